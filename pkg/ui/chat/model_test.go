package chat

import (
	"context"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/require"

	"boardbot/pkg/channel/console"
)

type fakeTransport struct {
	submitted []string
	output    chan console.Output
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{output: make(chan console.Output, 4)}
}

func (f *fakeTransport) Submit(_ context.Context, text string) error {
	f.submitted = append(f.submitted, text)
	return nil
}

func (f *fakeTransport) Output() <-chan console.Output {
	return f.output
}

func TestApplyTracksEditsAndReactions(t *testing.T) {
	t.Parallel()

	m := newModel(context.Background(), newFakeTransport(), Info{Username: "sam", Prefix: "!"})
	m.apply(console.Output{Kind: console.OutputPosted, MessageID: "b1", Text: "Page 1 of 2"})
	m.apply(console.Output{Kind: console.OutputReacted, MessageID: "b1", Emoji: "➡️"})
	m.apply(console.Output{Kind: console.OutputEdited, MessageID: "b1", Text: "Page 2 of 2"})
	m.apply(console.Output{Kind: console.OutputEdited, MessageID: "missing", Text: "ignored"})

	require.Len(t, m.entries, 1)
	require.Equal(t, "Page 2 of 2", m.entries[0].content)
	require.Equal(t, []string{"➡️"}, m.entries[0].reactions)
	require.True(t, m.entries[0].edited)
}

func TestEnterSubmitsAndRecordsUserLine(t *testing.T) {
	t.Parallel()

	transport := newFakeTransport()
	m := newModel(context.Background(), transport, Info{Prefix: "!"})
	m.input.SetValue("!boards")

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	cmd()

	require.Equal(t, []string{"!boards"}, transport.submitted)
	require.Len(t, m.entries, 1)
	require.Equal(t, "user", m.entries[0].role)
	require.Empty(t, m.input.Value())
}

func TestPagingShortcutSubmitsReaction(t *testing.T) {
	t.Parallel()

	transport := newFakeTransport()
	m := newModel(context.Background(), transport, Info{})

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlN})
	require.NotNil(t, cmd)
	cmd()

	require.Equal(t, []string{"/react ➡️"}, transport.submitted)
	require.Empty(t, m.entries)
}

func TestOutputMessageIsRenderedAndPollingContinues(t *testing.T) {
	t.Parallel()

	m := newModel(context.Background(), newFakeTransport(), Info{})
	_, cmd := m.Update(outputMsg{output: console.Output{Kind: console.OutputPosted, MessageID: "b1", Text: "pong"}, ok: true})
	require.NotNil(t, cmd)
	require.Contains(t, m.View(), "pong")

	_, cmd = m.Update(outputMsg{ok: false})
	require.Nil(t, cmd)
	require.True(t, m.closed)
}

func TestIsExitCommand(t *testing.T) {
	t.Parallel()

	for _, input := range []string{"exit", " QUIT ", ":q", "/exit"} {
		if !isExitCommand(input) {
			t.Fatalf("isExitCommand(%q) = false, want true", input)
		}
	}
	if isExitCommand("!help") {
		t.Fatal("isExitCommand(\"!help\") = true, want false")
	}
}

func TestHandleViewportMouseWheelUpDisablesFollowLog(t *testing.T) {
	t.Parallel()

	m := newModel(context.Background(), newFakeTransport(), Info{})
	m.viewport.Width = 40
	m.viewport.Height = 5
	m.viewport.SetContent(strings.Repeat("line\n", 40))
	m.viewport.GotoBottom()
	m.followLog = true

	previousOffset := m.viewport.YOffset
	handled := m.handleViewportMouse(tea.MouseMsg{Action: tea.MouseActionPress, Button: tea.MouseButtonWheelUp})
	if !handled {
		t.Fatal("expected wheel-up mouse event to be handled")
	}
	if m.followLog {
		t.Fatal("expected followLog to be disabled after wheel-up scroll")
	}
	if m.viewport.YOffset >= previousOffset {
		t.Fatalf("expected YOffset to decrease after wheel-up scroll, got %d want < %d", m.viewport.YOffset, previousOffset)
	}
}

func TestHandleViewportMouseWheelDownAtBottomEnablesFollowLog(t *testing.T) {
	t.Parallel()

	m := newModel(context.Background(), newFakeTransport(), Info{})
	m.viewport.Width = 40
	m.viewport.Height = 5
	m.viewport.SetContent(strings.Repeat("line\n", 40))
	m.viewport.GotoBottom()

	maxOffset := m.viewport.TotalLineCount() - m.viewport.Height
	m.viewport.SetYOffset(max(0, maxOffset-1))
	m.followLog = false

	handled := m.handleViewportMouse(tea.MouseMsg{Action: tea.MouseActionPress, Button: tea.MouseButtonWheelDown})
	if !handled {
		t.Fatal("expected wheel-down mouse event to be handled")
	}
	if !m.viewport.AtBottom() {
		t.Fatalf("expected viewport to reach bottom, got YOffset=%d", m.viewport.YOffset)
	}
	if !m.followLog {
		t.Fatal("expected followLog to re-enable when wheel-down reaches bottom")
	}
}

func TestHandleViewportMouseIgnoresNonWheelEvents(t *testing.T) {
	t.Parallel()

	m := newModel(context.Background(), newFakeTransport(), Info{})
	handled := m.handleViewportMouse(tea.MouseMsg{Action: tea.MouseActionPress, Button: tea.MouseButtonLeft})
	if handled {
		t.Fatal("expected non-wheel mouse event to be ignored")
	}
}

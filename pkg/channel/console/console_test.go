package console

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"boardbot/pkg/bus"
	"boardbot/pkg/config"
)

func TestRunDeliversTypedLinesAsDirectMessages(t *testing.T) {
	adapter := NewAdapter(config.ConsoleConfig{UserID: "me", Username: "Sam"}, 4, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	received := make(chan bus.Inbound, 1)
	done := make(chan error, 1)
	go func() {
		done <- adapter.Run(ctx, func(_ context.Context, in bus.Inbound) { received <- in })
	}()

	require.NoError(t, adapter.Submit(ctx, "boards"))

	select {
	case in := <-received:
		require.NotNil(t, in.Message)
		require.Equal(t, "console", in.Message.Channel)
		require.Equal(t, "me", in.Message.SenderID)
		require.Equal(t, ChatID, in.Message.ChatID)
		require.Equal(t, "Sam", in.Message.SenderMention)
		require.True(t, in.Message.Direct)
	case <-time.After(time.Second):
		t.Fatal("no inbound message")
	}

	cancel()
	require.NoError(t, <-done)
}

func TestDefaultsApplyWithoutConfig(t *testing.T) {
	adapter := NewAdapter(config.ConsoleConfig{Username: "  "}, 0, nil)

	require.Equal(t, "you", adapter.Username())
	require.Equal(t, "console", adapter.Name())
}

func TestReactTargetsLatestReactedMessage(t *testing.T) {
	adapter := NewAdapter(config.ConsoleConfig{}, 8, nil)
	ctx := context.Background()

	_, ok := adapter.inbound("/react ➡️")
	require.False(t, ok, "no reaction target yet")

	id, err := adapter.Send(ctx, ChatID, "page 1")
	require.NoError(t, err)
	require.NoError(t, adapter.React(ctx, ChatID, id, "➡️"))

	in, ok := adapter.inbound("/react ➡️")
	require.True(t, ok)
	require.NotNil(t, in.Reaction)
	require.Equal(t, id, in.Reaction.MessageID)
	require.Equal(t, "➡️", in.Reaction.Emoji)
	require.Equal(t, defaultUserID, in.Reaction.SenderID)

	posted := <-adapter.Output()
	require.Equal(t, OutputPosted, posted.Kind)
	require.Equal(t, "page 1", posted.Text)
	reacted := <-adapter.Output()
	require.Equal(t, OutputReacted, reacted.Kind)
	require.Equal(t, id, reacted.MessageID)
}

func TestBlankLinesAreDropped(t *testing.T) {
	adapter := NewAdapter(config.ConsoleConfig{}, 1, nil)
	_, ok := adapter.inbound("   ")
	require.False(t, ok)
}

func TestEditPublishesOutput(t *testing.T) {
	adapter := NewAdapter(config.ConsoleConfig{}, 1, nil)
	require.NoError(t, adapter.Edit(context.Background(), ChatID, "b3", "page 2"))
	out := <-adapter.Output()
	require.Equal(t, Output{Kind: OutputEdited, MessageID: "b3", Text: "page 2"}, out)
}

package interact

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"

	"boardbot/pkg/bus"
)

type fakeMessenger struct {
	mu        sync.Mutex
	next      int
	sent      []string
	edits     []string
	reactions []string
	sendErr   error
	reactErr  error
}

func (m *fakeMessenger) Send(_ context.Context, _ string, text string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sendErr != nil {
		return "", m.sendErr
	}
	m.next++
	m.sent = append(m.sent, text)
	return strconv.Itoa(m.next), nil
}

func (m *fakeMessenger) Edit(_ context.Context, _ string, _ string, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.edits = append(m.edits, text)
	return nil
}

func (m *fakeMessenger) React(_ context.Context, _ string, messageID string, emoji string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.reactErr != nil {
		return m.reactErr
	}
	m.reactions = append(m.reactions, messageID+":"+emoji)
	return nil
}

func (m *fakeMessenger) Sent() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.sent...)
}

func (m *fakeMessenger) Reactions() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.reactions...)
}

func (m *fakeMessenger) Edits() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.edits...)
}

var errSendFailed = errors.New("send failed")

func newTestCoordinator(t *testing.T, opts ...Option) (*Coordinator, *clockwork.FakeClock) {
	t.Helper()

	clock := clockwork.NewFakeClock()
	c := NewCoordinator(append([]Option{WithClock(clock)}, opts...)...)
	return c, clock
}

func testConversation(messenger *fakeMessenger) Conversation {
	return Conversation{
		Channel:   "telegram",
		ChatID:    "42",
		UserID:    "7",
		Mentions:  []string{"@boardbot"},
		Messenger: messenger,
	}
}

func message(conv Conversation, content string) bus.InboundMessage {
	return bus.InboundMessage{
		Channel:  conv.Channel,
		ChatID:   conv.ChatID,
		SenderID: conv.UserID,
		Content:  content,
	}
}

// awaitWaiter blocks until a message waiter newer than after listens under key.
func awaitWaiter(t *testing.T, c *Coordinator, key Key, after uint64) *Waiter {
	t.Helper()

	var found *Waiter
	require.Eventually(t, func() bool {
		w, ok := c.LookupMessageWaiter(key)
		if !ok || w.ID() <= after {
			return false
		}
		found = w
		return true
	}, time.Second, time.Millisecond)
	return found
}

func awaitDone(t *testing.T, done <-chan struct{}) {
	t.Helper()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for settle")
	}
}

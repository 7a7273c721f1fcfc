package cmd

import (
	"context"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"boardbot/pkg/bus"
	"boardbot/pkg/command"
	"boardbot/pkg/config"
)

type sentMessages struct {
	mu   sync.Mutex
	text []string
}

func (s *sentMessages) Send(_ context.Context, _ string, text string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.text = append(s.text, text)
	return "m1", nil
}

func (s *sentMessages) Edit(_ context.Context, _ string, _ string, _ string) error { return nil }

func (s *sentMessages) React(_ context.Context, _ string, _ string, _ string) error { return nil }

func (s *sentMessages) all() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.text...)
}

func TestNewAppWiresRouterWithoutBoardClient(t *testing.T) {
	cfg := &config.Config{
		Bot:   config.BotConfig{Prefix: "!"},
		Store: config.StoreConfig{Path: filepath.Join(t.TempDir(), "boardbot.db")},
	}
	ctx := context.Background()

	bot, err := newApp(ctx, cfg, slog.New(slog.DiscardHandler))
	require.NoError(t, err)
	t.Cleanup(func() { _ = bot.Close() })

	sent := &sentMessages{}
	msg := bus.InboundMessage{Channel: "console", ChatID: "local", SenderID: "u1", MessageID: "1", Content: "!ping"}
	require.Equal(t, command.OutcomeDispatched, bot.router.HandleMessage(ctx, msg, sent))
	bot.router.Wait()
	require.Equal(t, []string{"Pong!"}, sent.all())

	msg.Content = "!boards"
	require.Equal(t, command.OutcomeIgnored, bot.router.HandleMessage(ctx, msg, sent))
}

func TestNewAppWiresBoardCommandsWhenKeyIsSet(t *testing.T) {
	cfg := &config.Config{
		Bot:   config.BotConfig{Prefix: "!"},
		Board: config.BoardConfig{APIKey: "key"},
		Store: config.StoreConfig{Path: filepath.Join(t.TempDir(), "boardbot.db")},
	}
	ctx := context.Background()

	bot, err := newApp(ctx, cfg, slog.New(slog.DiscardHandler))
	require.NoError(t, err)
	t.Cleanup(func() { _ = bot.Close() })

	sent := &sentMessages{}
	msg := bus.InboundMessage{Channel: "console", ChatID: "local", SenderID: "u1", MessageID: "1", Content: "!boards"}
	require.Equal(t, command.OutcomeDispatched, bot.router.HandleMessage(ctx, msg, sent))
	bot.router.Wait()
	require.Equal(t, []string{"You need to log in first. Use `!login`."}, sent.all())
}

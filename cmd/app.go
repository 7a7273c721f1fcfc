package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"boardbot/pkg/board"
	"boardbot/pkg/bus"
	"boardbot/pkg/command"
	"boardbot/pkg/commands"
	"boardbot/pkg/config"
	"boardbot/pkg/interact"
	"boardbot/pkg/store"
)

const appName = "boardbot"

// app is the transport-independent part of the bot shared by every mode.
type app struct {
	bus         *bus.MessageBus
	store       *store.Store
	coordinator *interact.Coordinator
	router      *command.Router
}

func newApp(ctx context.Context, cfg *config.Config, log *slog.Logger) (*app, error) {
	st, err := store.New(cfg.Store.Path)
	if err != nil {
		return nil, err
	}
	if err := st.AutoMigrate(ctx); err != nil {
		_ = st.Close()
		return nil, err
	}

	mb := bus.NewMessageBus()
	coordinator := interact.NewCoordinator(
		interact.WithDefaultTimeout(cfg.Bot.WaitTimeout()),
		interact.WithPhrases(cfg.Bot.Phrases),
		interact.WithConfirmToken(cfg.Bot.ConfirmToken),
		interact.WithCancelWords(cfg.Bot.CancelWords...),
		interact.WithEvents(mb),
		interact.WithLogger(log),
	)

	deps := commands.Deps{
		Registry:      command.NewRegistry(),
		Coordinator:   coordinator,
		Settings:      st,
		DefaultPrefix: cfg.Bot.Prefix,
		PageSize:      cfg.Bot.PageSize,
		Owners:        cfg.Bot.Owners,
		Log:           log,
	}
	if cfg.Board.APIKey != "" {
		client, err := board.New(cfg.Board, log)
		if err != nil {
			mb.Close()
			_ = st.Close()
			return nil, fmt.Errorf("configure board client: %w", err)
		}
		deps.Boards = client
		deps.LoginURL = client.AuthorizeURL(appName)
	}
	if err := commands.Register(deps); err != nil {
		mb.Close()
		_ = st.Close()
		return nil, fmt.Errorf("register commands: %w", err)
	}

	router, err := command.NewRouter(command.RouterConfig{
		Registry:      deps.Registry,
		Coordinator:   coordinator,
		Settings:      st,
		DefaultPrefix: cfg.Bot.Prefix,
		Owners:        cfg.Bot.Owners,
		Phrases:       cfg.Bot.Replies,
		Events:        mb,
		Log:           log,
	})
	if err != nil {
		mb.Close()
		_ = st.Close()
		return nil, err
	}

	return &app{bus: mb, store: st, coordinator: coordinator, router: router}, nil
}

func (a *app) Close() error {
	a.bus.Close()
	return a.store.Close()
}

var errNoChannels = errors.New("no channels are enabled")

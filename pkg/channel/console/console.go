// Package console is an in-process transport for driving the bot from a
// terminal. Lines typed by the local user become direct messages; bot
// output is published as Output events for a UI to render.
package console

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"
	"sync"

	"boardbot/pkg/bus"
	"boardbot/pkg/channel"
	"boardbot/pkg/config"
)

const (
	channelName = "console"
	// ChatID is the single conversation the console hosts.
	ChatID = "local"

	defaultUserID   = "local-user"
	defaultUsername = "you"

	reactCommand = "/react"
)

// OutputKind says what happened to a transcript entry.
type OutputKind int

const (
	OutputPosted OutputKind = iota
	OutputEdited
	OutputReacted
)

// Output is one change to the transcript made by the bot.
type Output struct {
	Kind      OutputKind
	MessageID string
	Text      string
	Emoji     string
}

// Adapter implements channel.Adapter for a local terminal session.
type Adapter struct {
	userID   string
	username string
	input    chan string
	output   chan Output
	log      *slog.Logger

	mu          sync.Mutex
	next        int
	lastReacted string
}

// NewAdapter constructs a console adapter. buffer sizes the output queue a
// UI drains.
func NewAdapter(cfg config.ConsoleConfig, buffer int, log *slog.Logger) *Adapter {
	if log == nil {
		log = slog.Default()
	}
	if buffer <= 0 {
		buffer = 64
	}

	userID := strings.TrimSpace(cfg.UserID)
	if userID == "" {
		userID = defaultUserID
	}
	username := strings.TrimSpace(cfg.Username)
	if username == "" {
		username = defaultUsername
	}

	return &Adapter{
		userID:   userID,
		username: username,
		input:    make(chan string),
		output:   make(chan Output, buffer),
		log:      log.With("component", "channel.console"),
	}
}

// Name returns the channel identifier.
func (a *Adapter) Name() string {
	return channelName
}

// Username is the display name of the local user.
func (a *Adapter) Username() string {
	return a.username
}

// Output streams bot activity for rendering.
func (a *Adapter) Output() <-chan Output {
	return a.output
}

// Submit hands one typed line to Run. It blocks until Run accepts it or ctx
// ends.
func (a *Adapter) Submit(ctx context.Context, text string) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case a.input <- text:
		return nil
	}
}

// Run converts submitted lines until ctx is canceled.
func (a *Adapter) Run(ctx context.Context, handler channel.Handler) error {
	if handler == nil {
		return errors.New("handler is required")
	}

	a.log.Info("Console channel started", "user_id", a.userID)
	for {
		select {
		case <-ctx.Done():
			return nil
		case text := <-a.input:
			inbound, ok := a.inbound(text)
			if !ok {
				continue
			}
			handler(ctx, inbound)
		}
	}
}

// inbound turns a typed line into an event. "/react <emoji>" reacts to the
// latest bot message the bot itself reacted to, which is how pagers are
// driven from a keyboard.
func (a *Adapter) inbound(text string) (bus.Inbound, bool) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return bus.Inbound{}, false
	}

	if emoji, ok := strings.CutPrefix(trimmed, reactCommand+" "); ok {
		a.mu.Lock()
		target := a.lastReacted
		a.mu.Unlock()
		if target == "" {
			a.log.Debug("Ignoring reaction with no target")
			return bus.Inbound{}, false
		}
		return bus.Inbound{Reaction: &bus.InboundReaction{
			Channel:   channelName,
			SenderID:  a.userID,
			ChatID:    ChatID,
			MessageID: target,
			Emoji:     strings.TrimSpace(emoji),
		}}, true
	}

	return bus.Inbound{Message: &bus.InboundMessage{
		Channel:       channelName,
		SenderID:      a.userID,
		ChatID:        ChatID,
		MessageID:     a.nextID("u"),
		Content:       text,
		Direct:        true,
		SenderMention: a.username,
		Metadata:      map[string]string{},
	}}, true
}

// Send records a bot message and returns its id.
func (a *Adapter) Send(ctx context.Context, chatID string, text string) (string, error) {
	id := a.nextID("b")
	return id, a.emit(ctx, Output{Kind: OutputPosted, MessageID: id, Text: text})
}

// Edit replaces a bot message in the transcript.
func (a *Adapter) Edit(ctx context.Context, chatID string, messageID string, text string) error {
	return a.emit(ctx, Output{Kind: OutputEdited, MessageID: messageID, Text: text})
}

// React attaches a bot reaction to a message.
func (a *Adapter) React(ctx context.Context, chatID string, messageID string, emoji string) error {
	a.mu.Lock()
	a.lastReacted = messageID
	a.mu.Unlock()
	return a.emit(ctx, Output{Kind: OutputReacted, MessageID: messageID, Emoji: emoji})
}

func (a *Adapter) emit(ctx context.Context, out Output) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case a.output <- out:
		return nil
	}
}

func (a *Adapter) nextID(prefix string) string {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.next++
	return prefix + strconv.Itoa(a.next)
}

var _ channel.Adapter = (*Adapter)(nil)

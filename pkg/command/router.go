package command

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"boardbot/pkg/bus"
	"boardbot/pkg/channel"
	"boardbot/pkg/interact"
	"boardbot/pkg/store"
	"boardbot/pkg/tokenize"
)

// Settings is the read side of the settings store the router consults.
type Settings interface {
	User(ctx context.Context, id string) (store.User, error)
	Chat(ctx context.Context, id string) (store.Chat, error)
}

// Outcome describes what the router did with a message.
type Outcome int

const (
	// OutcomeIgnored: not a command for this bot.
	OutcomeIgnored Outcome = iota
	// OutcomeConsumed: delivered to a pending conversational flow.
	OutcomeConsumed
	// OutcomeRejected: a command was recognized but refused (usage, cooldown).
	OutcomeRejected
	// OutcomeDispatched: a command handler was started.
	OutcomeDispatched
)

func (o Outcome) String() string {
	switch o {
	case OutcomeIgnored:
		return "ignored"
	case OutcomeConsumed:
		return "consumed"
	case OutcomeRejected:
		return "rejected"
	case OutcomeDispatched:
		return "dispatched"
	default:
		return "unknown"
	}
}

type Phrases struct {
	Usage    string `json:"usage,omitempty"`    // %s%s: prefix, usage line
	Cooldown string `json:"cooldown,omitempty"` // %s: remaining wait
	Failed   string `json:"failed,omitempty"`
}

func DefaultPhrases() Phrases {
	return Phrases{
		Usage:    "Usage: `%s%s`",
		Cooldown: "Slow down! You can use this command again in %s.",
		Failed:   "Something went wrong while running that command.",
	}
}

type RouterConfig struct {
	Registry      *Registry
	Coordinator   *interact.Coordinator
	Settings      Settings
	DefaultPrefix string
	// Owners are user refs allowed to run owner-only commands.
	Owners  []string
	Phrases Phrases
	Events  bus.EventPublisher
	Clock   clockwork.Clock
	Log     *slog.Logger
}

// Router is the dispatcher: pending flows see a message first, and only
// messages no flow is listening for are parsed as commands.
type Router struct {
	registry      *Registry
	coordinator   *interact.Coordinator
	settings      Settings
	defaultPrefix string
	owners        []string
	phrases       Phrases
	events        bus.EventPublisher
	clock         clockwork.Clock
	log           *slog.Logger

	mu        sync.Mutex
	cooldowns map[cooldownKey]time.Time

	inflight sync.WaitGroup
}

type cooldownKey struct {
	user    string
	command string
}

func NewRouter(cfg RouterConfig) (*Router, error) {
	if cfg.Registry == nil {
		return nil, errors.New("command registry is required")
	}
	if cfg.Coordinator == nil {
		return nil, errors.New("interaction coordinator is required")
	}
	if cfg.Settings == nil {
		return nil, errors.New("settings store is required")
	}
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	if cfg.Log == nil {
		cfg.Log = slog.Default()
	}

	phrases := DefaultPhrases()
	if cfg.Phrases.Usage != "" {
		phrases.Usage = cfg.Phrases.Usage
	}
	if cfg.Phrases.Cooldown != "" {
		phrases.Cooldown = cfg.Phrases.Cooldown
	}
	if cfg.Phrases.Failed != "" {
		phrases.Failed = cfg.Phrases.Failed
	}

	return &Router{
		registry:      cfg.Registry,
		coordinator:   cfg.Coordinator,
		settings:      cfg.Settings,
		defaultPrefix: cfg.DefaultPrefix,
		owners:        cfg.Owners,
		phrases:       phrases,
		events:        cfg.Events,
		clock:         cfg.Clock,
		log:           cfg.Log.With("component", "command.router"),
		cooldowns:     make(map[cooldownKey]time.Time),
	}, nil
}

// HandleMessage routes one inbound message. Command handlers run on their
// own goroutines so they can wait for later messages from the same stream;
// HandleMessage returns once the handler has finished or started listening.
func (r *Router) HandleMessage(ctx context.Context, msg bus.InboundMessage, messenger channel.Messenger) Outcome {
	if r.coordinator.RouteMessage(interact.MessageKey(msg), msg) {
		return OutcomeConsumed
	}

	user, err := r.settings.User(ctx, UserRef(msg))
	if err != nil {
		r.log.Warn("User settings unavailable", "channel", msg.Channel, "sender_id", msg.SenderID, "error", err)
		user = store.User{ID: UserRef(msg)}
	}
	chat, err := r.settings.Chat(ctx, msg.ChatScope())
	if err != nil {
		r.log.Warn("Chat settings unavailable", "channel", msg.Channel, "chat_id", msg.ChatID, "error", err)
		chat = store.Chat{ID: msg.ChatScope()}
	}
	if user.Banned || chat.Banned {
		return OutcomeIgnored
	}

	prefix, rest, ok := StripPrefix(msg.Content, Prefixes(msg, user, chat, r.defaultPrefix), msg.Direct)
	if !ok {
		return OutcomeIgnored
	}
	args := tokenize.Tokenize(rest)
	if len(args) == 0 {
		return OutcomeIgnored
	}
	cmd, ok := r.registry.Lookup(args[0])
	if !ok {
		return OutcomeIgnored
	}
	if cmd.OwnerOnly && !slices.Contains(r.owners, UserRef(msg)) {
		return OutcomeIgnored
	}

	req := &Request{
		ID:      uuid.NewString(),
		Message: msg,
		Prefix:  prefix,
		Invoked: args[0],
		Args:    args[1:],
		Command: cmd,
		Conv:    interact.ConversationFor(msg, messenger),
	}
	log := r.log.With("request_id", req.ID, "command", cmd.Name, "channel", msg.Channel, "chat_id", msg.ChatID)

	if len(req.Args) < cmd.MinArgs {
		r.reply(ctx, req, log, fmt.Sprintf(r.phrases.Usage, prefix, cmd.Usage))
		return OutcomeRejected
	}
	if wait, limited := r.takeCooldown(req.UserRef(), cmd); limited {
		r.reply(ctx, req, log, fmt.Sprintf(r.phrases.Cooldown, wait.Round(time.Second)))
		return OutcomeRejected
	}

	// The next event is not handled until the command has returned or is
	// listening for the user's reply, so a follow-up is never parsed as a
	// command of its own.
	ready := make(chan struct{})
	var once sync.Once
	req.Conv.Listening = func() { once.Do(func() { close(ready) }) }

	r.inflight.Add(1)
	go func() {
		defer r.inflight.Done()
		defer req.Conv.Listening()
		r.run(ctx, req, log)
	}()

	select {
	case <-ready:
	case <-ctx.Done():
		return OutcomeDispatched
	}
	if w, ok := r.coordinator.LookupMessageWaiter(req.Conv.Key()); ok {
		log.Debug("Command waiting for reply", "waiter_id", w.ID(), "timeout", w.Timeout())
	}
	return OutcomeDispatched
}

// HandleReaction hands a reaction to whichever flow listens on its message.
func (r *Router) HandleReaction(reaction bus.InboundReaction) {
	r.coordinator.RouteReaction(interact.ReactionKey(reaction), reaction)
}

// Wait blocks until every started command handler has returned.
func (r *Router) Wait() {
	r.inflight.Wait()
}

func (r *Router) run(ctx context.Context, req *Request, log *slog.Logger) {
	started := r.clock.Now()
	log.Debug("Running command", "args", len(req.Args))
	r.publish(ctx, bus.EventCommandStarted, req, nil)

	err := req.Command.Run(ctx, req)
	if err != nil {
		log.Error("Command failed", "error", err, "duration", r.clock.Since(started))
		r.publish(ctx, bus.EventCommandFailed, req, err)
		if ctx.Err() == nil {
			r.reply(ctx, req, log, r.phrases.Failed)
		}
		return
	}

	log.Debug("Command completed", "duration", r.clock.Since(started))
	r.publish(ctx, bus.EventCommandCompleted, req, nil)
}

// takeCooldown starts the cooldown of cmd for user, or reports how long
// the user still has to wait.
func (r *Router) takeCooldown(user string, cmd Command) (time.Duration, bool) {
	if cmd.Cooldown <= 0 {
		return 0, false
	}

	key := cooldownKey{user: user, command: cmd.Name}
	now := r.clock.Now()

	r.mu.Lock()
	defer r.mu.Unlock()

	if until, ok := r.cooldowns[key]; ok && now.Before(until) {
		return until.Sub(now), true
	}
	r.cooldowns[key] = now.Add(cmd.Cooldown)

	// Forget expired entries so the map stays bounded by active users.
	for k, until := range r.cooldowns {
		if !now.Before(until) {
			delete(r.cooldowns, k)
		}
	}
	return 0, false
}

func (r *Router) reply(ctx context.Context, req *Request, log *slog.Logger, text string) {
	if req.Conv.Messenger == nil {
		return
	}
	if err := req.Reply(ctx, text); err != nil {
		log.Warn("Reply not delivered", "error", err)
	}
}

func (r *Router) publish(ctx context.Context, eventType bus.EventType, req *Request, err error) {
	if r.events == nil {
		return
	}

	event := bus.Event{
		Type:      eventType,
		At:        r.clock.Now().UTC(),
		Channel:   req.Message.Channel,
		ChatID:    req.Message.ChatID,
		RequestID: req.ID,
		Payload:   map[string]string{"command": req.Command.Name},
	}
	if err != nil {
		event.Error = err.Error()
	}
	r.events.PublishEvent(ctx, event)
}

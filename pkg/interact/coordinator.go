package interact

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"

	"boardbot/pkg/bus"
	"boardbot/pkg/channel"
)

// Waiter listens for the next text message under a (chat, user) key.
type Waiter struct {
	*waiter[bus.InboundMessage]
}

// ReactionWaiter listens for the next reaction under a (message, user) key.
type ReactionWaiter struct {
	*waiter[bus.InboundReaction]
}

// Coordinator owns the message and reaction waiter registries. It is safe
// for concurrent use.
type Coordinator struct {
	messages  *registry[bus.InboundMessage]
	reactions *registry[bus.InboundReaction]

	clock       clockwork.Clock
	timeout     time.Duration
	phrases     Phrases
	yes         string
	cancelWords map[string]struct{}
	events      bus.EventPublisher
	log         *slog.Logger
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithClock replaces the wall clock used for waiter timers.
func WithClock(clock clockwork.Clock) Option {
	return func(c *Coordinator) {
		if clock != nil {
			c.clock = clock
		}
	}
}

// WithDefaultTimeout sets the timeout used when a flow does not pass one.
func WithDefaultTimeout(timeout time.Duration) Option {
	return func(c *Coordinator) {
		if timeout > 0 {
			c.timeout = timeout
		}
	}
}

// WithPhrases overrides the non-empty fields of the default phrases.
func WithPhrases(phrases Phrases) Option {
	return func(c *Coordinator) {
		c.phrases = c.phrases.merge(phrases)
	}
}

// WithConfirmToken sets the exact reply that confirms a Confirm prompt.
func WithConfirmToken(token string) Option {
	return func(c *Coordinator) {
		if token = strings.TrimSpace(token); token != "" {
			c.yes = token
		}
	}
}

// WithCancelWords replaces the words that cancel an Input prompt.
func WithCancelWords(words ...string) Option {
	return func(c *Coordinator) {
		set := make(map[string]struct{}, len(words))
		for _, word := range words {
			if word = strings.ToLower(strings.TrimSpace(word)); word != "" {
				set[word] = struct{}{}
			}
		}
		if len(set) > 0 {
			c.cancelWords = set
		}
	}
}

// WithEvents publishes waiter lifecycle transitions.
func WithEvents(events bus.EventPublisher) Option {
	return func(c *Coordinator) {
		c.events = events
	}
}

func WithLogger(log *slog.Logger) Option {
	return func(c *Coordinator) {
		if log != nil {
			c.log = log
		}
	}
}

func NewCoordinator(opts ...Option) *Coordinator {
	c := &Coordinator{
		clock:   clockwork.NewRealClock(),
		timeout: DefaultTimeout,
		phrases: DefaultPhrases(),
		yes:     "yes",
		cancelWords: map[string]struct{}{
			"cancel": {},
			"stop":   {},
			"end":    {},
		},
		log: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}

	c.log = c.log.With("component", "interact.coordinator")
	c.messages = newRegistry[bus.InboundMessage]("message", c.clock, c.events, c.log)
	c.reactions = newRegistry[bus.InboundReaction]("reaction", c.clock, c.events, c.log)
	return c
}

// DefaultTimeout returns the timeout applied to flows that do not set one.
func (c *Coordinator) DefaultTimeout() time.Duration {
	return c.timeout
}

// ConfirmToken returns the reply that confirms a Confirm prompt.
func (c *Coordinator) ConfirmToken() string {
	return c.yes
}

// NewMessageWaiter installs a waiter for the next message under key. A
// pending waiter under the same key is superseded.
func (c *Coordinator) NewMessageWaiter(key Key, timeout time.Duration, filter func(bus.InboundMessage) bool) (*Waiter, error) {
	w, err := c.messages.create(key, timeout, filter)
	if err != nil {
		return nil, err
	}
	return &Waiter{w}, nil
}

// NewReactionWaiter installs a waiter for the next reaction under key. A
// pending waiter under the same key is superseded.
func (c *Coordinator) NewReactionWaiter(key Key, timeout time.Duration, filter func(bus.InboundReaction) bool) (*ReactionWaiter, error) {
	w, err := c.reactions.create(key, timeout, filter)
	if err != nil {
		return nil, err
	}
	return &ReactionWaiter{w}, nil
}

// RouteMessage offers msg to the waiter under key. It reports true whenever
// a waiter was listening, including when its filter rejected msg; the caller
// must then not treat msg as a command.
func (c *Coordinator) RouteMessage(key Key, msg bus.InboundMessage) bool {
	return c.messages.route(key, msg)
}

// RouteReaction offers reaction to the waiter under key. Reactions nobody
// listens for are dropped.
func (c *Coordinator) RouteReaction(key Key, reaction bus.InboundReaction) {
	c.reactions.route(key, reaction)
}

// LookupMessageWaiter returns the pending message waiter under key.
func (c *Coordinator) LookupMessageWaiter(key Key) (*Waiter, bool) {
	w, ok := c.messages.lookup(key)
	if !ok {
		return nil, false
	}
	return &Waiter{w}, true
}

// Pending reports how many message and reaction waiters are listening.
func (c *Coordinator) Pending() (messages int, reactions int) {
	return c.messages.len(), c.reactions.len()
}

// IsCancelPhrase reports whether content asks to abandon an input prompt:
// one of the cancel words, in any case, optionally addressed to the bot
// through one of mentions.
func (c *Coordinator) IsCancelPhrase(content string, mentions []string) bool {
	text := strings.ToLower(strings.TrimSpace(content))
	for _, mention := range mentions {
		mention = strings.ToLower(strings.TrimSpace(mention))
		if mention == "" {
			continue
		}
		if rest, ok := strings.CutPrefix(text, mention); ok {
			text = strings.TrimSpace(rest)
			break
		}
	}

	_, ok := c.cancelWords[text]
	return ok
}

// timeoutFor resolves a flow timeout: zero means the default.
func (c *Coordinator) timeoutFor(timeout time.Duration) (time.Duration, error) {
	switch {
	case timeout < 0:
		return 0, ErrInvalidTimeout
	case timeout == 0:
		return c.timeout, nil
	default:
		return timeout, nil
	}
}

// acknowledge sends a closing notice for a flow. Delivery failures are
// logged; the flow result stands.
func (c *Coordinator) acknowledge(ctx context.Context, conv Conversation, text string) {
	if text == "" || conv.Messenger == nil {
		return
	}
	if _, err := conv.Say(ctx, text); err != nil {
		c.log.Warn("Acknowledgment not delivered", "channel", conv.Channel, "chat_id", conv.ChatID, "error", err)
	}
}

// Conversation is a flow's view of one user in one chat.
type Conversation struct {
	Channel string
	ChatID  string
	UserID  string
	// Address prefixes bot replies so the user sees they are addressed.
	Address string
	// Mentions are the forms that address the bot, accepted before cancel words.
	Mentions  []string
	Messenger channel.Messenger
	// Listening, when set, is called each time a flow starts listening for
	// the user's next message in this conversation.
	Listening func()
}

// ConversationFor starts a conversation with the author of msg.
func ConversationFor(msg bus.InboundMessage, messenger channel.Messenger) Conversation {
	return Conversation{
		Channel:   msg.Channel,
		ChatID:    msg.ChatID,
		UserID:    msg.SenderID,
		Address:   msg.SenderMention,
		Mentions:  msg.Mentions,
		Messenger: messenger,
	}
}

// Key returns the message waiter key of the conversation.
func (conv Conversation) Key() Key {
	return Key{Scope: bus.ChatScope(conv.Channel, conv.ChatID), User: conv.UserID}
}

// listen installs the conversation's message waiter and reports it through
// conv.Listening.
func (c *Coordinator) listen(conv Conversation, timeout time.Duration, filter func(bus.InboundMessage) bool) (*Waiter, error) {
	w, err := c.NewMessageWaiter(conv.Key(), timeout, filter)
	if err != nil {
		return nil, err
	}
	if conv.Listening != nil {
		conv.Listening()
	}
	return w, nil
}

// ReactionKey returns the reaction waiter key for a message the bot sent
// into the conversation.
func (conv Conversation) ReactionKey(messageID string) Key {
	return Key{Scope: bus.MessageScope(conv.Channel, conv.ChatID, messageID), User: conv.UserID}
}

// Say sends text addressed to the user and returns the sent message id.
func (conv Conversation) Say(ctx context.Context, text string) (string, error) {
	return conv.Messenger.Send(ctx, conv.ChatID, conv.address(text))
}

// Edit replaces the text of a message sent with Say.
func (conv Conversation) Edit(ctx context.Context, messageID string, text string) error {
	return conv.Messenger.Edit(ctx, conv.ChatID, messageID, conv.address(text))
}

func (conv Conversation) address(text string) string {
	if conv.Address == "" {
		return text
	}
	return conv.Address + ", " + text
}

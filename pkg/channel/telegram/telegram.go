package telegram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"

	"boardbot/pkg/bus"
	"boardbot/pkg/channel"
	"boardbot/pkg/config"
)

const channelName = "telegram"
const messagePreviewLimit = 240

// Adapter bridges Telegram updates into boardbot inbound events and sends
// replies, edits and reactions back.
type Adapter struct {
	cfg       config.TelegramConfig
	bot       *telego.Bot
	allowFrom map[string]struct{}
	log       *slog.Logger

	mu       sync.RWMutex
	mentions []string
}

// NewAdapter validates Telegram configuration and constructs an adapter instance.
func NewAdapter(cfg config.TelegramConfig, log *slog.Logger) (*Adapter, error) {
	token := strings.TrimSpace(cfg.Token)
	if token == "" {
		return nil, errors.New("channels.telegram.token is required")
	}

	if log == nil {
		log = slog.Default()
	}

	var options []telego.BotOption
	if proxy := strings.TrimSpace(cfg.Proxy); proxy != "" {
		proxyURL, err := url.Parse(proxy)
		if err != nil {
			return nil, fmt.Errorf("parse channels.telegram.proxy: %w", err)
		}
		options = append(options, telego.WithHTTPClient(&http.Client{
			Transport: &http.Transport{Proxy: http.ProxyURL(proxyURL)},
		}))
	}

	bot, err := telego.NewBot(token, options...)
	if err != nil {
		return nil, fmt.Errorf("initialize telegram bot: %w", err)
	}

	return &Adapter{
		cfg:       cfg,
		bot:       bot,
		allowFrom: allowFromSet(cfg.AllowFrom),
		log:       log.With("component", "channel.telegram"),
	}, nil
}

// Name returns the channel identifier used in bus metadata and logs.
func (a *Adapter) Name() string {
	return channelName
}

// Run starts Telegram long polling and forwards messages and reactions
// through the shared channel handler.
func (a *Adapter) Run(ctx context.Context, handler channel.Handler) error {
	if handler == nil {
		return errors.New("handler is required")
	}

	me, err := a.bot.GetMe(ctx)
	if err != nil {
		return fmt.Errorf("get telegram bot identity: %w", err)
	}
	a.setMentions(me.Username)

	updates, err := a.bot.UpdatesViaLongPolling(ctx, &telego.GetUpdatesParams{
		AllowedUpdates: []string{"message", "message_reaction"},
	})
	if err != nil {
		return fmt.Errorf("start long polling: %w", err)
	}

	a.log.Info("Telegram channel started", "username", me.Username)

	for {
		select {
		case <-ctx.Done():
			return nil
		case update, ok := <-updates:
			if !ok {
				if err := ctx.Err(); err != nil {
					return nil
				}
				return errors.New("telegram updates channel closed")
			}

			switch {
			case update.Message != nil:
				inbound, ok := a.inboundMessage(*update.Message)
				if !ok {
					continue
				}
				inbound.Metadata["update_id"] = strconv.Itoa(update.UpdateID)
				a.log.Debug("Received message", "chat_id", inbound.ChatID, "sender_id", inbound.SenderID, "content", previewText(inbound.Content))
				handler(ctx, bus.Inbound{Message: &inbound})

			case update.MessageReaction != nil:
				for _, reaction := range a.inboundReactions(*update.MessageReaction) {
					a.log.Debug("Received reaction", "chat_id", reaction.ChatID, "message_id", reaction.MessageID, "sender_id", reaction.SenderID)
					handler(ctx, bus.Inbound{Reaction: &reaction})
				}
			}
		}
	}
}

// Send posts text into a chat.
func (a *Adapter) Send(ctx context.Context, chatID string, text string) (string, error) {
	id, err := parseChatID(chatID)
	if err != nil {
		return "", err
	}

	a.log.Debug("Sending message", "chat_id", chatID, "content", previewText(text))
	sent, err := a.bot.SendMessage(ctx, tu.Message(tu.ID(id), text))
	if err != nil {
		return "", fmt.Errorf("send telegram message: %w", err)
	}
	return strconv.Itoa(sent.MessageID), nil
}

// Edit replaces the text of a bot message.
func (a *Adapter) Edit(ctx context.Context, chatID string, messageID string, text string) error {
	id, err := parseChatID(chatID)
	if err != nil {
		return err
	}
	msgID, err := strconv.Atoi(strings.TrimSpace(messageID))
	if err != nil {
		return fmt.Errorf("invalid telegram message id %q: %w", messageID, err)
	}

	if _, err := a.bot.EditMessageText(ctx, &telego.EditMessageTextParams{
		ChatID:    tu.ID(id),
		MessageID: msgID,
		Text:      text,
	}); err != nil {
		return fmt.Errorf("edit telegram message: %w", err)
	}
	return nil
}

// React sets the bot's reaction on a message. Telegram only accepts emoji
// from its reaction palette; anything else fails here.
func (a *Adapter) React(ctx context.Context, chatID string, messageID string, emoji string) error {
	id, err := parseChatID(chatID)
	if err != nil {
		return err
	}
	msgID, err := strconv.Atoi(strings.TrimSpace(messageID))
	if err != nil {
		return fmt.Errorf("invalid telegram message id %q: %w", messageID, err)
	}

	if err := a.bot.SetMessageReaction(ctx, &telego.SetMessageReactionParams{
		ChatID:    tu.ID(id),
		MessageID: msgID,
		Reaction:  []telego.ReactionType{&telego.ReactionTypeEmoji{Type: "emoji", Emoji: emoji}},
	}); err != nil {
		return fmt.Errorf("react to telegram message: %w", err)
	}
	return nil
}

func (a *Adapter) setMentions(username string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.mentions = mentionForms(username)
}

func (a *Adapter) currentMentions() []string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.mentions
}

// inboundMessage converts a Telegram text message. Messages from bots,
// without a sender, without text, or from senders outside allow_from are
// dropped.
func (a *Adapter) inboundMessage(message telego.Message) (bus.InboundMessage, bool) {
	if strings.TrimSpace(message.Text) == "" {
		return bus.InboundMessage{}, false
	}
	if message.From == nil || message.From.IsBot {
		return bus.InboundMessage{}, false
	}

	senderID := strconv.FormatInt(message.From.ID, 10)
	if !a.senderAllowed(senderID) {
		a.log.Debug("Ignoring message from unauthorized sender", "sender_id", senderID)
		return bus.InboundMessage{}, false
	}

	return bus.InboundMessage{
		Channel:       channelName,
		SenderID:      senderID,
		ChatID:        strconv.FormatInt(message.Chat.ID, 10),
		MessageID:     strconv.Itoa(message.MessageID),
		Content:       message.Text,
		Direct:        message.Chat.Type == telego.ChatTypePrivate,
		SenderMention: senderMention(message.From),
		Mentions:      a.currentMentions(),
		Metadata:      map[string]string{},
	}, true
}

// inboundReactions returns one event per emoji the user newly added.
func (a *Adapter) inboundReactions(update telego.MessageReactionUpdated) []bus.InboundReaction {
	if update.User == nil || update.User.IsBot {
		return nil
	}

	senderID := strconv.FormatInt(update.User.ID, 10)
	if !a.senderAllowed(senderID) {
		return nil
	}

	previous := make(map[string]struct{}, len(update.OldReaction))
	for _, reaction := range update.OldReaction {
		if emoji := reactionEmoji(reaction); emoji != "" {
			previous[emoji] = struct{}{}
		}
	}

	var out []bus.InboundReaction
	for _, reaction := range update.NewReaction {
		emoji := reactionEmoji(reaction)
		if emoji == "" {
			continue
		}
		if _, ok := previous[emoji]; ok {
			continue
		}
		out = append(out, bus.InboundReaction{
			Channel:   channelName,
			SenderID:  senderID,
			ChatID:    strconv.FormatInt(update.Chat.ID, 10),
			MessageID: strconv.Itoa(update.MessageID),
			Emoji:     emoji,
		})
	}
	return out
}

// reactionEmoji extracts the emoji of a standard reaction. Custom emoji and
// paid reactions carry none.
func reactionEmoji(reaction telego.ReactionType) string {
	if reaction == nil {
		return ""
	}

	raw, err := json.Marshal(reaction)
	if err != nil {
		return ""
	}
	var decoded struct {
		Type  string `json:"type"`
		Emoji string `json:"emoji"`
	}
	if err := json.Unmarshal(raw, &decoded); err != nil || decoded.Type != "emoji" {
		return ""
	}
	return decoded.Emoji
}

// senderAllowed checks whether a sender is permitted by allow_from config.
//
// When no allow list is configured, all senders are accepted.
func (a *Adapter) senderAllowed(senderID string) bool {
	if len(a.allowFrom) == 0 {
		return true
	}

	_, ok := a.allowFrom[strings.TrimSpace(senderID)]
	return ok
}

func senderMention(user *telego.User) string {
	if user == nil {
		return ""
	}
	if user.Username != "" {
		return "@" + user.Username
	}
	return user.FirstName
}

// mentionForms lists the ways a message can address the bot.
func mentionForms(username string) []string {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil
	}
	return []string{"@" + username}
}

func parseChatID(chatID string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(chatID), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid telegram chat id %q: %w", chatID, err)
	}
	return id, nil
}

// allowFromSet normalizes allow_from values into a lookup set.
func allowFromSet(allowFrom []string) map[string]struct{} {
	if len(allowFrom) == 0 {
		return nil
	}

	allowed := make(map[string]struct{}, len(allowFrom))
	for _, value := range allowFrom {
		trimmed := strings.TrimSpace(value)
		if trimmed == "" {
			continue
		}
		allowed[trimmed] = struct{}{}
	}

	if len(allowed) == 0 {
		return nil
	}

	return allowed
}

// previewText returns a bounded log-safe preview of message text.
func previewText(text string) string {
	trimmed := strings.TrimSpace(text)
	if len(trimmed) <= messagePreviewLimit {
		return trimmed
	}

	return trimmed[:messagePreviewLimit] + "..."
}

var _ channel.Adapter = (*Adapter)(nil)

package bus

import "strings"

// InboundMessage is one text message delivered by a transport.
type InboundMessage struct {
	Channel   string `json:"channel"`
	SenderID  string `json:"sender_id"`
	ChatID    string `json:"chat_id"`
	MessageID string `json:"message_id,omitempty"`
	Content   string `json:"content"`
	Direct    bool   `json:"direct,omitempty"`
	// SenderMention is how the bot addresses the sender in a reply.
	SenderMention string `json:"sender_mention,omitempty"`
	// Mentions lists the forms that address the bot on this transport.
	Mentions []string          `json:"mentions,omitempty"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// InboundReaction is one reaction added to a message by a user.
type InboundReaction struct {
	Channel   string            `json:"channel"`
	SenderID  string            `json:"sender_id"`
	ChatID    string            `json:"chat_id"`
	MessageID string            `json:"message_id"`
	Emoji     string            `json:"emoji"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// Inbound wraps exactly one of Message or Reaction so both kinds share a
// single ordered queue.
type Inbound struct {
	Message  *InboundMessage  `json:"message,omitempty"`
	Reaction *InboundReaction `json:"reaction,omitempty"`
}

// ChannelName returns the transport that produced the event.
func (in Inbound) ChannelName() string {
	switch {
	case in.Message != nil:
		return in.Message.Channel
	case in.Reaction != nil:
		return in.Reaction.Channel
	default:
		return ""
	}
}

// ChatScope identifies the chat a message arrived in across transports.
func (m InboundMessage) ChatScope() string {
	return ChatScope(m.Channel, m.ChatID)
}

// MessageScope identifies the message a reaction was added to across
// transports. Chat ids are included because some transports number messages
// per chat.
func (r InboundReaction) MessageScope() string {
	return MessageScope(r.Channel, r.ChatID, r.MessageID)
}

// MessageScope builds the scope of a sent message so reaction waiters can be
// keyed before any reaction arrives.
func MessageScope(channel string, chatID string, messageID string) string {
	return ChatScope(channel, chatID) + "/" + strings.TrimSpace(messageID)
}

// ChatScope builds the scope of a chat on a transport.
func ChatScope(channel string, chatID string) string {
	return strings.TrimSpace(channel) + ":" + strings.TrimSpace(chatID)
}

package channel

import (
	"context"

	"boardbot/pkg/bus"
)

// Handler accepts one inbound event from a transport. It must not block on
// command execution; the gateway queues the event and returns.
type Handler func(context.Context, bus.Inbound)

// Messenger is the outbound side of a transport.
type Messenger interface {
	// Send posts text into a chat and returns the id of the created message.
	Send(ctx context.Context, chatID string, text string) (string, error)
	// Edit replaces the text of a message previously sent by the bot.
	Edit(ctx context.Context, chatID string, messageID string, text string) error
	// React adds a reaction from the bot to a message.
	React(ctx context.Context, chatID string, messageID string, emoji string) error
}

// Adapter bridges one external transport (for example Telegram) into boardbot.
type Adapter interface {
	Messenger
	Name() string
	Run(context.Context, Handler) error
}

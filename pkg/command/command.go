// Package command parses chat messages into commands and runs them.
package command

import (
	"context"
	"strings"
	"time"

	"boardbot/pkg/bus"
	"boardbot/pkg/interact"
)

// Command is one chat command.
type Command struct {
	Name     string
	Aliases  []string
	Usage    string
	Summary  string
	Category string
	// MinArgs is the number of arguments required after the command name.
	MinArgs  int
	Cooldown time.Duration
	// Hidden commands run normally but are left out of help listings.
	Hidden bool
	// OwnerOnly commands are ignored unless the sender is a configured owner.
	OwnerOnly bool
	Run       func(context.Context, *Request) error
}

// Names returns the command name followed by its aliases.
func (c Command) Names() []string {
	return append([]string{c.Name}, c.Aliases...)
}

// Request is one parsed invocation.
type Request struct {
	ID      string
	Message bus.InboundMessage
	// Prefix is the prefix the user typed, empty in direct messages without one.
	Prefix string
	// Invoked is the command name or alias as typed.
	Invoked string
	Args    []string
	Command Command
	Conv    interact.Conversation
}

// Reply sends text to the invoking user.
func (r *Request) Reply(ctx context.Context, text string) error {
	_, err := r.Conv.Say(ctx, text)
	return err
}

// Arg returns the i-th argument or an empty string.
func (r *Request) Arg(i int) string {
	if i < 0 || i >= len(r.Args) {
		return ""
	}
	return r.Args[i]
}

// Rest joins the arguments from i onward with single spaces.
func (r *Request) Rest(i int) string {
	if i >= len(r.Args) {
		return ""
	}
	return strings.Join(r.Args[i:], " ")
}

// UserRef is the settings id of the sender, scoped by transport.
func (r *Request) UserRef() string {
	return UserRef(r.Message)
}

// ChatRef is the settings id of the chat, scoped by transport.
func (r *Request) ChatRef() string {
	return r.Message.ChatScope()
}

// UserRef returns the settings id of the author of msg.
func UserRef(msg bus.InboundMessage) string {
	return bus.ChatScope(msg.Channel, msg.SenderID)
}

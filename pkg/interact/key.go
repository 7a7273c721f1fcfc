// Package interact multiplexes inbound messages and reactions onto at most
// one pending listener per identity key, and builds conversational flows
// (prompts, confirmations, pickers, pagers, sub-menus) on top of that.
package interact

import (
	"errors"
	"time"

	"boardbot/pkg/bus"
)

// DefaultTimeout bounds every waiter that is not given an explicit timeout.
const DefaultTimeout = 30 * time.Second

// ErrInvalidTimeout is returned when a waiter is created with a timeout that
// cannot expire.
var ErrInvalidTimeout = errors.New("interact: timeout must be positive")

// Key identifies who a waiter listens to and where. Message waiters are
// scoped to a chat, reaction waiters to a single message.
type Key struct {
	Scope string
	User  string
}

// MessageKey returns the key under which msg is routed.
func MessageKey(msg bus.InboundMessage) Key {
	return Key{Scope: msg.ChatScope(), User: msg.SenderID}
}

// ReactionKey returns the key under which reaction is routed.
func ReactionKey(reaction bus.InboundReaction) Key {
	return Key{Scope: reaction.MessageScope(), User: reaction.SenderID}
}

func (k Key) String() string {
	return k.Scope + "#" + k.User
}

// Status is the lifecycle state of a waiter. Every state other than
// StatusPending is terminal.
type Status int

const (
	StatusPending Status = iota
	StatusResolved
	StatusExpired
	StatusSuperseded
	StatusCanceled
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusResolved:
		return "resolved"
	case StatusExpired:
		return "expired"
	case StatusSuperseded:
		return "superseded"
	case StatusCanceled:
		return "canceled"
	default:
		return "unknown"
	}
}

func (s Status) eventType() bus.EventType {
	switch s {
	case StatusResolved:
		return bus.EventWaiterResolved
	case StatusExpired:
		return bus.EventWaiterExpired
	case StatusSuperseded:
		return bus.EventWaiterSuperseded
	case StatusCanceled:
		return bus.EventWaiterCanceled
	default:
		return bus.EventWaiterCreated
	}
}

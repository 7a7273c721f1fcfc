package bus

import (
	"context"
	"sync"
)

const defaultBufferSize = 100

// MessageBus is the single inbound event stream shared by every transport,
// plus a lossy fan-out of lifecycle events.
type MessageBus struct {
	inbound chan Inbound

	eventSubscribers      map[uint64]chan Event
	nextEventSubscriberID uint64

	done      chan struct{}
	closeOnce sync.Once

	mu sync.RWMutex
}

func NewMessageBus() *MessageBus {
	return &MessageBus{
		inbound:          make(chan Inbound, defaultBufferSize),
		eventSubscribers: make(map[uint64]chan Event),
		done:             make(chan struct{}),
	}
}

func (mb *MessageBus) PublishInbound(ctx context.Context, in Inbound) bool {
	if ctx == nil {
		ctx = context.Background()
	}
	if in.Message == nil && in.Reaction == nil {
		return false
	}

	select {
	case <-ctx.Done():
		return false
	case <-mb.done:
		return false
	default:
	}

	select {
	case <-ctx.Done():
		return false
	case <-mb.done:
		return false
	case mb.inbound <- in:
		return true
	}
}

func (mb *MessageBus) ConsumeInbound(ctx context.Context) (Inbound, bool) {
	if ctx == nil {
		ctx = context.Background()
	}

	select {
	case <-ctx.Done():
		return Inbound{}, false
	case <-mb.done:
		return Inbound{}, false
	case in := <-mb.inbound:
		return in, true
	}
}

func (mb *MessageBus) Close() {
	mb.closeOnce.Do(func() {
		close(mb.done)

		mb.mu.Lock()
		for id, ch := range mb.eventSubscribers {
			close(ch)
			delete(mb.eventSubscribers, id)
		}
		mb.mu.Unlock()
	})
}

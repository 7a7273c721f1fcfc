package interact

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"boardbot/pkg/bus"
)

// waiter is a one-shot listener for the next event of type E under a key.
// It settles exactly once: resolved with an event, or expired, superseded or
// canceled with none.
type waiter[E any] struct {
	key     Key
	id      uint64
	created time.Time
	timeout time.Duration
	filter  func(E) bool
	reg     *registry[E]

	mu     sync.Mutex
	status Status
	event  E
	timer  clockwork.Timer
	done   chan struct{}
}

// Key returns the identity the waiter listens under.
func (w *waiter[E]) Key() Key { return w.key }

// ID returns the generation number assigned when the waiter was installed.
func (w *waiter[E]) ID() uint64 { return w.id }

// Created returns when the waiter was installed.
func (w *waiter[E]) Created() time.Time { return w.created }

// Timeout returns how long the waiter listens before expiring.
func (w *waiter[E]) Timeout() time.Duration { return w.timeout }

// Done is closed once the waiter settles.
func (w *waiter[E]) Done() <-chan struct{} { return w.done }

// Status returns the current lifecycle state.
func (w *waiter[E]) Status() Status {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.status
}

// Wait blocks until the waiter settles. It returns the accepted event and
// true, or the zero value and false when the waiter expired, was superseded
// or was canceled. When ctx is done first the waiter is canceled.
func (w *waiter[E]) Wait(ctx context.Context) (E, bool) {
	if ctx == nil {
		ctx = context.Background()
	}

	select {
	case <-w.done:
	case <-ctx.Done():
		w.reg.cancel(w)
		<-w.done
	}

	return w.result()
}

// Cancel settles a pending waiter without an event and deregisters it.
func (w *waiter[E]) Cancel() {
	w.reg.cancel(w)
}

func (w *waiter[E]) result() (E, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.status != StatusResolved {
		var zero E
		return zero, false
	}
	return w.event, true
}

// finish moves a pending waiter into a terminal state. It reports false when
// the waiter had already settled.
func (w *waiter[E]) finish(status Status, event E) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.status != StatusPending {
		return false
	}

	w.status = status
	w.event = event
	if w.timer != nil {
		w.timer.Stop()
	}
	close(w.done)
	return true
}

// registry holds the single pending waiter per key for one event kind.
// Lock order is registry.mu before waiter.mu.
type registry[E any] struct {
	kind   string
	clock  clockwork.Clock
	events bus.EventPublisher
	log    *slog.Logger

	mu      sync.Mutex
	next    uint64
	waiters map[Key]*waiter[E]
}

func newRegistry[E any](kind string, clock clockwork.Clock, events bus.EventPublisher, log *slog.Logger) *registry[E] {
	return &registry[E]{
		kind:    kind,
		clock:   clock,
		events:  events,
		log:     log,
		waiters: make(map[Key]*waiter[E]),
	}
}

// create installs a new waiter under key, superseding any pending one.
func (r *registry[E]) create(key Key, timeout time.Duration, filter func(E) bool) (*waiter[E], error) {
	if timeout <= 0 {
		return nil, fmt.Errorf("%w: got %s", ErrInvalidTimeout, timeout)
	}

	w := &waiter[E]{
		key:     key,
		timeout: timeout,
		filter:  filter,
		reg:     r,
		done:    make(chan struct{}),
	}

	var zero E
	r.mu.Lock()
	r.next++
	w.id = r.next
	w.created = r.clock.Now()

	previous := r.waiters[key]
	if previous != nil && !previous.finish(StatusSuperseded, zero) {
		previous = nil
	}
	r.waiters[key] = w

	// The callback takes r.mu, so it cannot observe w before the timer is set.
	w.mu.Lock()
	w.timer = r.clock.AfterFunc(timeout, func() { r.expire(w) })
	w.mu.Unlock()
	r.mu.Unlock()

	if previous != nil {
		r.publish(previous, StatusSuperseded)
	}
	r.publish(w, StatusPending)

	return w, nil
}

// route forwards event to the waiter under key. It reports whether a waiter
// was listening, even when its filter rejected the event.
func (r *registry[E]) route(key Key, event E) bool {
	for {
		r.mu.Lock()
		w := r.waiters[key]
		r.mu.Unlock()

		if w == nil {
			return false
		}
		// Filters run outside the lock so they may inspect the coordinator.
		if w.filter != nil && !w.filter(event) {
			return true
		}

		r.mu.Lock()
		if r.waiters[key] != w {
			// Superseded or expired while filtering; try whoever holds the key now.
			r.mu.Unlock()
			continue
		}
		resolved := w.finish(StatusResolved, event)
		if resolved {
			r.releaseLocked(w)
		}
		r.mu.Unlock()

		if resolved {
			r.publish(w, StatusResolved)
		}
		return true
	}
}

func (r *registry[E]) lookup(key Key) (*waiter[E], bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	w, ok := r.waiters[key]
	return w, ok
}

func (r *registry[E]) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.waiters)
}

func (r *registry[E]) expire(w *waiter[E]) {
	r.settle(w, StatusExpired)
}

func (r *registry[E]) cancel(w *waiter[E]) {
	r.settle(w, StatusCanceled)
}

func (r *registry[E]) settle(w *waiter[E], status Status) {
	var zero E

	r.mu.Lock()
	settled := w.finish(status, zero)
	if settled {
		r.releaseLocked(w)
	}
	r.mu.Unlock()

	if settled {
		r.publish(w, status)
	}
}

// releaseLocked removes w only if it still owns its key; a stale waiter
// never evicts its successor.
func (r *registry[E]) releaseLocked(w *waiter[E]) {
	if current, ok := r.waiters[w.key]; ok && current == w {
		delete(r.waiters, w.key)
	}
}

func (r *registry[E]) publish(w *waiter[E], status Status) {
	transition := status.String()
	if status == StatusPending {
		transition = "created"
	}
	r.log.Debug("Waiter "+transition,
		"kind", r.kind,
		"key", w.key.String(),
		"waiter_id", w.id,
	)

	if r.events == nil {
		return
	}

	event := bus.Event{
		Type: status.eventType(),
		At:   r.clock.Now().UTC(),
		Key:  w.key.String(),
		Payload: map[string]string{
			"kind":       r.kind,
			"waiter_id":  strconv.FormatUint(w.id, 10),
			"timeout_ms": strconv.FormatInt(w.timeout.Milliseconds(), 10),
		},
	}
	r.events.PublishEvent(context.Background(), event)
}

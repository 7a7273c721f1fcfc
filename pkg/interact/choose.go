package interact

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"boardbot/pkg/bus"
)

type ChooseOptions[T any] struct {
	Header  string
	Display func(T) string
	// Timeout bounds the wait for a pick. Zero means the coordinator's default.
	Timeout time.Duration
}

// Choose shows items as a numbered list and waits for the user to reply with
// a number. A single item is returned without asking. Cancel phrases and
// timeouts end the flow with false and a notice.
func Choose[T any](ctx context.Context, c *Coordinator, conv Conversation, items []T, opts ChooseOptions[T]) (T, bool, error) {
	var zero T
	switch len(items) {
	case 0:
		return zero, false, nil
	case 1:
		return items[0], true, nil
	}

	timeout, err := c.timeoutFor(opts.Timeout)
	if err != nil {
		return zero, false, fmt.Errorf("choose: %w", err)
	}

	display := displayFunc(opts.Display)
	header := opts.Header
	if header == "" {
		header = c.phrases.ChooseHeader
	}

	var b strings.Builder
	b.WriteString(header)
	b.WriteByte('\n')
	for i, item := range items {
		fmt.Fprintf(&b, "%d. %s\n", i+1, display(item))
	}
	fmt.Fprintf(&b, c.phrases.ChooseHint, len(items))

	pick := func(content string) (int, bool) {
		n, err := strconv.Atoi(strings.TrimSpace(content))
		if err != nil || n < 1 || n > len(items) {
			return 0, false
		}
		return n - 1, true
	}

	w, err := c.listen(conv, timeout, func(msg bus.InboundMessage) bool {
		if _, ok := pick(msg.Content); ok {
			return true
		}
		return c.IsCancelPhrase(msg.Content, conv.Mentions)
	})
	if err != nil {
		return zero, false, fmt.Errorf("choose: %w", err)
	}
	if _, err := conv.Say(ctx, b.String()); err != nil {
		w.Cancel()
		return zero, false, fmt.Errorf("send choices: %w", err)
	}

	msg, ok := w.Wait(ctx)
	if !ok {
		if w.Status() == StatusExpired {
			c.acknowledge(ctx, conv, c.phrases.InputTimedOut)
		}
		return zero, false, nil
	}

	index, ok := pick(msg.Content)
	if !ok {
		c.acknowledge(ctx, conv, c.phrases.InputCanceled)
		return zero, false, nil
	}
	return items[index], true, nil
}

type SearchOptions[T any] struct {
	// Name is the text a query is matched against.
	Name    func(T) string
	Display func(T) string
	Header  string
	Timeout time.Duration
}

// Search resolves query against items by name, ignoring case. An exact
// match wins outright; otherwise the substring matches are narrowed with
// Choose. An empty query offers every item.
func Search[T any](ctx context.Context, c *Coordinator, conv Conversation, query string, items []T, opts SearchOptions[T]) (T, bool, error) {
	var zero T

	name := displayFunc(opts.Name)
	display := opts.Display
	if display == nil {
		display = name
	}
	choose := ChooseOptions[T]{Header: opts.Header, Display: display, Timeout: opts.Timeout}

	needle := strings.ToLower(strings.TrimSpace(query))
	if needle == "" {
		return Choose(ctx, c, conv, items, choose)
	}

	var matches []T
	for _, item := range items {
		candidate := strings.ToLower(name(item))
		if candidate == needle {
			return item, true, nil
		}
		if strings.Contains(candidate, needle) {
			matches = append(matches, item)
		}
	}

	if len(matches) == 0 {
		c.acknowledge(ctx, conv, fmt.Sprintf(c.phrases.NoResults, strings.TrimSpace(query)))
		return zero, false, nil
	}
	return Choose(ctx, c, conv, matches, choose)
}

func displayFunc[T any](display func(T) string) func(T) string {
	if display != nil {
		return display
	}
	return func(item T) string { return fmt.Sprint(item) }
}

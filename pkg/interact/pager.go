package interact

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"boardbot/pkg/bus"
)

const defaultPageSize = 10

// Navigation reactions added under every multi-page message.
const (
	EmojiPrevious = "⬅️"
	EmojiNext     = "➡️"
	EmojiStop     = "⏹️"

	// Some transports strip the emoji presentation selector from reactions.
	variationSelector = "\ufe0f"
)

type PagerOptions[T any] struct {
	Header   string
	Display  func(T) string
	PageSize int
	// Start is the 1-based page shown first; out-of-range values are clamped.
	Start int
	// Timeout bounds each wait for a navigation step. Zero means the
	// coordinator's default.
	Timeout time.Duration
}

type navAction int

const (
	navPrevious navAction = iota + 1
	navNext
	navJump
	navStop
)

type navigation struct {
	action navAction
	page   int
}

// Paginate sends items one page at a time and edits the message in place as
// the user navigates, either with reactions or with text replies. It returns
// when the user stops, stops answering, or starts another flow.
func Paginate[T any](ctx context.Context, c *Coordinator, conv Conversation, items []T, opts PagerOptions[T]) error {
	timeout, err := c.timeoutFor(opts.Timeout)
	if err != nil {
		return fmt.Errorf("paginate: %w", err)
	}

	size := opts.PageSize
	if size <= 0 {
		size = defaultPageSize
	}
	pages := max(1, (len(items)+size-1)/size)
	page := min(max(opts.Start, 1), pages)
	display := displayFunc(opts.Display)

	render := func(page int) string {
		var b strings.Builder
		if opts.Header != "" {
			b.WriteString(opts.Header)
			b.WriteByte('\n')
		}
		if len(items) == 0 {
			b.WriteString(c.phrases.PagerEmpty)
			return b.String()
		}
		start := (page - 1) * size
		for i := start; i < min(start+size, len(items)); i++ {
			fmt.Fprintf(&b, "%d. %s\n", i+1, display(items[i]))
		}
		fmt.Fprintf(&b, c.phrases.PageFooter, page, pages)
		if pages > 1 {
			b.WriteByte('\n')
			b.WriteString(c.phrases.PagerHint)
		}
		return b.String()
	}

	messageID, err := conv.Say(ctx, render(page))
	if err != nil {
		return fmt.Errorf("send page: %w", err)
	}
	if pages == 1 {
		return nil
	}

	for _, emoji := range []string{EmojiPrevious, EmojiNext, EmojiStop} {
		if err := conv.Messenger.React(ctx, conv.ChatID, messageID, emoji); err != nil {
			// Text navigation still works without the reactions.
			c.log.Debug("Navigation reaction not added", "channel", conv.Channel, "emoji", emoji, "error", err)
			break
		}
	}

	for {
		nav, ok, err := c.navigate(ctx, conv, messageID, pages, timeout)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}

		next := page
		switch nav.action {
		case navStop:
			return nil
		case navPrevious:
			next = page - 1
			if next < 1 {
				next = pages
			}
		case navNext:
			next = page + 1
			if next > pages {
				next = 1
			}
		case navJump:
			next = nav.page
		}

		if next == page {
			continue
		}
		page = next
		if err := conv.Edit(ctx, messageID, render(page)); err != nil {
			return fmt.Errorf("edit page: %w", err)
		}
	}
}

type navResult struct {
	nav navigation
	ok  bool
}

// navigate races a reaction waiter on the page message against a message
// waiter in the chat. The first to settle decides the step; the other is
// canceled.
func (c *Coordinator) navigate(ctx context.Context, conv Conversation, messageID string, pages int, timeout time.Duration) (navigation, bool, error) {
	parse := func(content string) (navigation, bool) {
		text := strings.ToLower(strings.TrimSpace(content))
		switch text {
		case "<":
			return navigation{action: navPrevious}, true
		case ">":
			return navigation{action: navNext}, true
		case "stop":
			return navigation{action: navStop}, true
		}
		if c.IsCancelPhrase(text, conv.Mentions) {
			return navigation{action: navStop}, true
		}
		if n, err := strconv.Atoi(text); err == nil && n >= 1 && n <= pages {
			return navigation{action: navJump, page: n}, true
		}
		return navigation{}, false
	}

	messages, err := c.listen(conv, timeout, func(msg bus.InboundMessage) bool {
		_, ok := parse(msg.Content)
		return ok
	})
	if err != nil {
		return navigation{}, false, fmt.Errorf("paginate: %w", err)
	}
	reactions, err := c.NewReactionWaiter(conv.ReactionKey(messageID), timeout, func(reaction bus.InboundReaction) bool {
		_, ok := parseReaction(reaction.Emoji)
		return ok
	})
	if err != nil {
		messages.Cancel()
		return navigation{}, false, fmt.Errorf("paginate: %w", err)
	}

	stepCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	results := make(chan navResult, 2)
	go func() {
		msg, ok := messages.Wait(stepCtx)
		nav, parsed := parse(msg.Content)
		results <- navResult{nav: nav, ok: ok && parsed}
	}()
	go func() {
		reaction, ok := reactions.Wait(stepCtx)
		nav, parsed := parseReaction(reaction.Emoji)
		results <- navResult{nav: nav, ok: ok && parsed}
	}()

	first := <-results
	cancel()
	second := <-results

	switch {
	case first.ok:
		return first.nav, true, nil
	case second.ok && messages.Status() != StatusSuperseded && reactions.Status() != StatusSuperseded:
		return second.nav, true, nil
	default:
		return navigation{}, false, nil
	}
}

func parseReaction(emoji string) (navigation, bool) {
	switch strings.TrimSuffix(emoji, variationSelector) {
	case strings.TrimSuffix(EmojiPrevious, variationSelector):
		return navigation{action: navPrevious}, true
	case strings.TrimSuffix(EmojiNext, variationSelector):
		return navigation{action: navNext}, true
	case strings.TrimSuffix(EmojiStop, variationSelector):
		return navigation{action: navStop}, true
	default:
		return navigation{}, false
	}
}

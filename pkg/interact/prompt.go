package interact

import (
	"context"
	"fmt"
	"strings"
	"time"

	"boardbot/pkg/bus"
)

// AwaitMessage waits for the next message under key accepted by filter. A
// nil filter accepts everything; rejected messages are swallowed and do not
// extend the timeout. A zero timeout uses the coordinator default; a
// negative one returns ErrInvalidTimeout.
func (c *Coordinator) AwaitMessage(ctx context.Context, key Key, filter func(bus.InboundMessage) bool, timeout time.Duration) (bus.InboundMessage, bool, error) {
	timeout, err := c.timeoutFor(timeout)
	if err != nil {
		return bus.InboundMessage{}, false, err
	}

	w, err := c.NewMessageWaiter(key, timeout, filter)
	if err != nil {
		return bus.InboundMessage{}, false, err
	}

	msg, ok := w.Wait(ctx)
	return msg, ok, nil
}

// AwaitReaction waits for the next reaction under key accepted by filter.
func (c *Coordinator) AwaitReaction(ctx context.Context, key Key, filter func(bus.InboundReaction) bool, timeout time.Duration) (bus.InboundReaction, bool, error) {
	timeout, err := c.timeoutFor(timeout)
	if err != nil {
		return bus.InboundReaction{}, false, err
	}

	w, err := c.NewReactionWaiter(key, timeout, filter)
	if err != nil {
		return bus.InboundReaction{}, false, err
	}

	reaction, ok := w.Wait(ctx)
	return reaction, ok, nil
}

type InputOptions struct {
	// Prompt replaces the default "type your response" text.
	Prompt string
	// Timeout bounds the wait. Zero means the coordinator's default timeout.
	Timeout time.Duration
	// Filter narrows which replies are accepted. Cancel phrases always pass.
	Filter func(bus.InboundMessage) bool
}

// Input asks the user for free text. It returns false when the user cancels
// (empty reply or a cancel phrase), when nobody answers in time, or when a
// newer flow takes over the conversation. The user is told about the first
// two; a superseded or canceled prompt ends silently.
func (c *Coordinator) Input(ctx context.Context, conv Conversation, opts InputOptions) (string, bool, error) {
	timeout, err := c.timeoutFor(opts.Timeout)
	if err != nil {
		return "", false, fmt.Errorf("input: %w", err)
	}

	prompt := opts.Prompt
	if prompt == "" {
		prompt = c.phrases.InputPrompt
	}

	filter := func(msg bus.InboundMessage) bool {
		if opts.Filter == nil || opts.Filter(msg) {
			return true
		}
		return strings.TrimSpace(msg.Content) == "" || c.IsCancelPhrase(msg.Content, conv.Mentions)
	}

	// Listen before prompting so a fast reply is never parsed as a command.
	w, err := c.listen(conv, timeout, filter)
	if err != nil {
		return "", false, fmt.Errorf("input: %w", err)
	}
	if _, err := conv.Say(ctx, prompt+"\n"+c.phrases.InputHint); err != nil {
		w.Cancel()
		return "", false, fmt.Errorf("send input prompt: %w", err)
	}

	msg, ok := w.Wait(ctx)
	if !ok {
		if w.Status() == StatusExpired {
			c.acknowledge(ctx, conv, c.phrases.InputTimedOut)
		}
		return "", false, nil
	}

	if strings.TrimSpace(msg.Content) == "" || c.IsCancelPhrase(msg.Content, conv.Mentions) {
		c.acknowledge(ctx, conv, c.phrases.InputCanceled)
		return "", false, nil
	}

	return msg.Content, true, nil
}

type ConfirmOptions struct {
	Prompt string
	// Timeout bounds the wait. Zero means the coordinator's default timeout.
	Timeout time.Duration
}

// Confirm asks a yes/no question. Only a reply equal to the confirm token,
// case included, counts as yes. A declined or unanswered prompt is
// acknowledged; a superseded or canceled one is not.
func (c *Coordinator) Confirm(ctx context.Context, conv Conversation, opts ConfirmOptions) (bool, error) {
	timeout, err := c.timeoutFor(opts.Timeout)
	if err != nil {
		return false, fmt.Errorf("confirm: %w", err)
	}

	prompt := opts.Prompt
	if prompt == "" {
		prompt = c.phrases.ConfirmPrompt
	}

	w, err := c.listen(conv, timeout, nil)
	if err != nil {
		return false, fmt.Errorf("confirm: %w", err)
	}
	if _, err := conv.Say(ctx, prompt+"\n"+fmt.Sprintf(c.phrases.ConfirmHint, c.yes)); err != nil {
		w.Cancel()
		return false, fmt.Errorf("send confirm prompt: %w", err)
	}

	msg, ok := w.Wait(ctx)
	if ok && msg.Content == c.yes {
		return true, nil
	}

	if ok || w.Status() == StatusExpired {
		c.acknowledge(ctx, conv, c.phrases.ConfirmDeclined)
	}
	return false, nil
}

package interact

import (
	"context"
	"strings"
	"time"
)

// MenuEntry is one branch of a sub-menu.
type MenuEntry struct {
	Name    string
	Aliases []string
	Summary string
	Run     func(context.Context) error
}

func (e MenuEntry) matches(name string) bool {
	if strings.EqualFold(e.Name, name) {
		return true
	}
	for _, alias := range e.Aliases {
		if strings.EqualFold(alias, name) {
			return true
		}
	}
	return false
}

type MenuOptions struct {
	Header  string
	Entries []MenuEntry
	Timeout time.Duration
}

// Menu runs the entry named by arg, or lets the user pick one when arg is
// empty or unknown.
func (c *Coordinator) Menu(ctx context.Context, conv Conversation, arg string, opts MenuOptions) error {
	if arg = strings.TrimSpace(arg); arg != "" {
		for _, entry := range opts.Entries {
			if entry.matches(arg) {
				return entry.Run(ctx)
			}
		}
	}

	entry, ok, err := Choose(ctx, c, conv, opts.Entries, ChooseOptions[MenuEntry]{
		Header:  opts.Header,
		Timeout: opts.Timeout,
		Display: func(e MenuEntry) string {
			if e.Summary == "" {
				return e.Name
			}
			return e.Name + ": " + e.Summary
		},
	})
	if err != nil || !ok {
		return err
	}
	return entry.Run(ctx)
}

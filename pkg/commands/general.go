package commands

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"boardbot/pkg/command"
)

func (s *set) ping() command.Command {
	return command.Command{
		Name:     "ping",
		Usage:    "ping",
		Summary:  "Check that the bot is listening.",
		Category: categoryGeneral,
		Run: func(ctx context.Context, req *command.Request) error {
			return req.Reply(ctx, "Pong!")
		},
	}
}

func (s *set) help() command.Command {
	return command.Command{
		Name:     "help",
		Aliases:  []string{"commands"},
		Usage:    "help [command]",
		Summary:  "List commands or describe one.",
		Category: categoryGeneral,
		Run: func(ctx context.Context, req *command.Request) error {
			if name := req.Arg(0); name != "" {
				cmd, ok := s.Registry.Lookup(name)
				if !ok || cmd.Hidden {
					return req.Reply(ctx, fmt.Sprintf("There is no command called %q.", name))
				}
				return req.Reply(ctx, describe(req.Prefix, cmd))
			}
			return req.Reply(ctx, s.overview(req.Prefix))
		},
	}
}

// overview groups visible commands by category.
func (s *set) overview(prefix string) string {
	byCategory := map[string][]string{}
	for _, cmd := range s.Registry.List() {
		if cmd.Hidden {
			continue
		}
		category := cmd.Category
		if category == "" {
			category = categoryGeneral
		}
		byCategory[category] = append(byCategory[category], "`"+prefix+cmd.Name+"`")
	}

	categories := make([]string, 0, len(byCategory))
	for category := range byCategory {
		categories = append(categories, category)
	}
	slices.Sort(categories)

	var b strings.Builder
	b.WriteString("Commands:")
	for _, category := range categories {
		fmt.Fprintf(&b, "\n%s: %s", category, strings.Join(byCategory[category], ", "))
	}
	fmt.Fprintf(&b, "\nUse `%shelp <command>` for details.", prefix)
	return b.String()
}

func describe(prefix string, cmd command.Command) string {
	var b strings.Builder
	fmt.Fprintf(&b, "`%s%s`", prefix, cmd.Usage)
	if cmd.Summary != "" {
		b.WriteString("\n" + cmd.Summary)
	}
	if len(cmd.Aliases) > 0 {
		b.WriteString("\nAliases: " + strings.Join(cmd.Aliases, ", "))
	}
	if cmd.Cooldown > 0 {
		fmt.Fprintf(&b, "\nCooldown: %s", cmd.Cooldown)
	}
	return b.String()
}

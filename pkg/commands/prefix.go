package commands

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"boardbot/pkg/command"
	"boardbot/pkg/interact"
	"boardbot/pkg/store"
)

func (s *set) prefix() command.Command {
	return command.Command{
		Name:     "prefix",
		Aliases:  []string{"prefixes"},
		Usage:    "prefix [show|add|remove|set] [value]",
		Summary:  "Manage your personal prefixes and the chat prefix.",
		Category: categoryGeneral,
		Run: func(ctx context.Context, req *command.Request) error {
			return s.Coordinator.Menu(ctx, req.Conv, req.Arg(0), interact.MenuOptions{
				Header: "What do you want to do with prefixes?",
				Entries: []interact.MenuEntry{
					{Name: "show", Aliases: []string{"list"}, Summary: "show the prefixes that work here", Run: func(ctx context.Context) error {
						return s.showPrefixes(ctx, req)
					}},
					{Name: "add", Summary: "add a personal prefix", Run: func(ctx context.Context) error {
						return s.addPrefix(ctx, req)
					}},
					{Name: "remove", Aliases: []string{"delete"}, Summary: "remove a personal prefix", Run: func(ctx context.Context) error {
						return s.removePrefix(ctx, req)
					}},
					{Name: "set", Summary: "set the prefix of this chat", Run: func(ctx context.Context) error {
						return s.setChatPrefix(ctx, req)
					}},
				},
			})
		},
	}
}

func (s *set) showPrefixes(ctx context.Context, req *command.Request) error {
	user, err := s.Settings.User(ctx, req.UserRef())
	if err != nil {
		return err
	}
	chat, err := s.Settings.Chat(ctx, req.ChatRef())
	if err != nil {
		return err
	}

	chatPrefix := chat.Prefix
	if chatPrefix == "" {
		chatPrefix = s.DefaultPrefix
	}

	personal := make([]string, 0, len(user.Prefixes))
	for _, prefix := range user.Prefixes {
		personal = append(personal, displayPrefix(prefix))
	}
	mine := "(none)"
	if len(personal) > 0 {
		mine = strings.Join(personal, ", ")
	}

	return req.Reply(ctx, fmt.Sprintf("Chat prefix: %s\nYour prefixes: %s", displayPrefix(chatPrefix), mine))
}

// prefixValue takes the value after the sub-command or asks for one. A
// quoted argument keeps trailing spaces, so "bb " is a valid prefix.
func (s *set) prefixValue(ctx context.Context, req *command.Request, prompt string) (string, bool, error) {
	if value := req.Rest(1); strings.TrimSpace(value) != "" {
		return value, true, nil
	}
	value, ok, err := s.Coordinator.Input(ctx, req.Conv, interact.InputOptions{Prompt: prompt})
	if err != nil || !ok {
		return "", false, err
	}
	return strings.TrimSpace(value), true, nil
}

func (s *set) addPrefix(ctx context.Context, req *command.Request) error {
	value, ok, err := s.prefixValue(ctx, req, "Type the prefix to add.")
	if err != nil || !ok {
		return err
	}

	_, err = s.Settings.AddUserPrefix(ctx, req.UserRef(), value)
	if errors.Is(err, store.ErrPrefixLimit) {
		return req.Reply(ctx, fmt.Sprintf("You already have %d prefixes. Remove one first.", store.MaxUserPrefixes))
	}
	if err != nil {
		return err
	}
	return req.Reply(ctx, fmt.Sprintf("Added %s to your prefixes.", displayPrefix(value)))
}

func (s *set) removePrefix(ctx context.Context, req *command.Request) error {
	value, ok, err := s.prefixValue(ctx, req, "Type the prefix to remove.")
	if err != nil || !ok {
		return err
	}

	_, err = s.Settings.RemoveUserPrefix(ctx, req.UserRef(), value)
	if errors.Is(err, store.ErrNotFound) {
		return req.Reply(ctx, fmt.Sprintf("%s is not one of your prefixes.", displayPrefix(value)))
	}
	if err != nil {
		return err
	}
	return req.Reply(ctx, fmt.Sprintf("Removed %s from your prefixes.", displayPrefix(value)))
}

// setChatPrefix changes the prefix everyone in the chat uses. Transports do
// not report chat permissions, so only owners may do it.
func (s *set) setChatPrefix(ctx context.Context, req *command.Request) error {
	if req.Message.Direct {
		return req.Reply(ctx, "Chat prefixes only apply to group chats. Use `add` for a personal prefix.")
	}
	if !s.isOwner(req) {
		return req.Reply(ctx, "Only bot owners can change the chat prefix.")
	}

	value, ok, err := s.prefixValue(ctx, req, "Type the new chat prefix.")
	if err != nil || !ok {
		return err
	}
	if err := s.Settings.SetChatPrefix(ctx, req.ChatRef(), value); err != nil {
		return err
	}
	return req.Reply(ctx, fmt.Sprintf("The chat prefix is now %s.", displayPrefix(value)))
}

package commands

import (
	"context"
	"fmt"
	"strings"

	"boardbot/pkg/bus"
	"boardbot/pkg/command"
)

func (s *set) ban() command.Command {
	return command.Command{
		Name:      "ban",
		Usage:     "ban <user|chat> <id>",
		Summary:   "Make the bot ignore a user or chat on this transport.",
		Category:  categoryAdmin,
		MinArgs:   2,
		Hidden:    true,
		OwnerOnly: true,
		Run: func(ctx context.Context, req *command.Request) error {
			return s.setBanned(ctx, req, true)
		},
	}
}

func (s *set) unban() command.Command {
	return command.Command{
		Name:      "unban",
		Usage:     "unban <user|chat> <id>",
		Summary:   "Lift a ban.",
		Category:  categoryAdmin,
		MinArgs:   2,
		Hidden:    true,
		OwnerOnly: true,
		Run: func(ctx context.Context, req *command.Request) error {
			return s.setBanned(ctx, req, false)
		},
	}
}

func (s *set) setBanned(ctx context.Context, req *command.Request, banned bool) error {
	target := strings.TrimSpace(req.Arg(1))
	ref := bus.ChatScope(req.Message.Channel, target)
	verb := "Banned"
	if !banned {
		verb = "Unbanned"
	}

	switch strings.ToLower(req.Arg(0)) {
	case "user":
		if ref == req.UserRef() {
			return req.Reply(ctx, "You cannot ban yourself.")
		}
		if err := s.Settings.SetUserBanned(ctx, ref, banned); err != nil {
			return err
		}
	case "chat":
		if err := s.Settings.SetChatBanned(ctx, ref, banned); err != nil {
			return err
		}
	default:
		return req.Reply(ctx, fmt.Sprintf("Usage: `%s%s`", req.Prefix, req.Command.Usage))
	}

	s.log.Info("Ban state changed", "target", ref, "banned", banned, "by", req.UserRef())
	return req.Reply(ctx, fmt.Sprintf("%s %s %s.", verb, strings.ToLower(req.Arg(0)), target))
}

package commands

import (
	"context"
	"fmt"
	"strings"
	"time"

	"boardbot/pkg/board"
	"boardbot/pkg/command"
	"boardbot/pkg/interact"
)

func (s *set) login() command.Command {
	return command.Command{
		Name:     "login",
		Usage:    "login",
		Summary:  "Link your task-board account with an API token.",
		Category: categoryAccount,
		Cooldown: 10 * time.Second,
		Run:      s.runLogin,
	}
}

func (s *set) logout() command.Command {
	return command.Command{
		Name:     "logout",
		Usage:    "logout",
		Summary:  "Forget your task-board token.",
		Category: categoryAccount,
		Run:      s.runLogout,
	}
}

func (s *set) account() command.Command {
	return command.Command{
		Name:     "account",
		Aliases:  []string{"me"},
		Usage:    "account [info|login|logout]",
		Summary:  "Show or change your linked account.",
		Category: categoryAccount,
		Run: func(ctx context.Context, req *command.Request) error {
			return s.Coordinator.Menu(ctx, req.Conv, req.Arg(0), interact.MenuOptions{
				Header: "Account options:",
				Entries: []interact.MenuEntry{
					{Name: "info", Summary: "show your account status", Run: func(ctx context.Context) error {
						return s.accountInfo(ctx, req)
					}},
					{Name: "login", Summary: "link a task-board account", Run: func(ctx context.Context) error {
						return s.runLogin(ctx, req)
					}},
					{Name: "logout", Summary: "unlink your account", Run: func(ctx context.Context) error {
						return s.runLogout(ctx, req)
					}},
				},
			})
		},
	}
}

// runLogin asks for a token in a direct conversation and checks it against
// the board API before saving it.
func (s *set) runLogin(ctx context.Context, req *command.Request) error {
	if s.Boards == nil {
		return req.Reply(ctx, "Task boards are not configured on this bot.")
	}
	if !req.Message.Direct {
		return req.Reply(ctx, "Tokens are secret. Send me `login` in a direct message.")
	}

	user, err := s.Settings.User(ctx, req.UserRef())
	if err != nil {
		return err
	}
	if user.LoggedIn() {
		return req.Reply(ctx, fmt.Sprintf("You are already logged in. Use `%slogout` first to switch accounts.", req.Prefix))
	}

	prompt := "Paste your task-board API token."
	if s.LoginURL != "" {
		prompt += " You can create one at " + s.LoginURL
	}
	token, ok, err := s.Coordinator.Input(ctx, req.Conv, interact.InputOptions{
		Prompt:  prompt,
		Timeout: 2 * s.Coordinator.DefaultTimeout(),
	})
	if err != nil || !ok {
		return err
	}
	token = strings.TrimSpace(token)

	member, err := s.Boards.Me(ctx, token)
	if board.IsCategory(err, board.ErrorUnauthorized) || board.IsCategory(err, board.ErrorInvalidRequest) {
		return req.Reply(ctx, "That token was rejected. Check it and try again.")
	}
	if err != nil {
		return err
	}

	if err := s.Settings.SetBoardToken(ctx, req.UserRef(), token); err != nil {
		return err
	}
	s.log.Info("User linked board account", "user", req.UserRef(), "member", member.Username)
	return req.Reply(ctx, fmt.Sprintf("Logged in as %s. Use `%sboards` to pick a board.", memberName(member), req.Prefix))
}

func (s *set) runLogout(ctx context.Context, req *command.Request) error {
	user, err := s.Settings.User(ctx, req.UserRef())
	if err != nil {
		return err
	}
	if !user.LoggedIn() {
		return req.Reply(ctx, "You are not logged in.")
	}

	confirmed, err := s.Coordinator.Confirm(ctx, req.Conv, interact.ConfirmOptions{
		Prompt: "Log out and forget your board token?",
	})
	if err != nil || !confirmed {
		return err
	}

	if err := s.Settings.SetBoardToken(ctx, req.UserRef(), ""); err != nil {
		return err
	}
	return req.Reply(ctx, "Logged out.")
}

func (s *set) accountInfo(ctx context.Context, req *command.Request) error {
	user, err := s.Settings.User(ctx, req.UserRef())
	if err != nil {
		return err
	}
	if !user.LoggedIn() {
		return req.Reply(ctx, fmt.Sprintf("You are not logged in. Use `%slogin` to link an account.", req.Prefix))
	}
	if s.Boards == nil {
		return req.Reply(ctx, "You are logged in.")
	}

	member, err := s.Boards.Me(ctx, user.BoardToken)
	if err != nil {
		if handled, herr := s.boardFailure(ctx, req, err); handled {
			return herr
		}
		return err
	}

	text := "Logged in as " + memberName(member) + "."
	if user.CurrentBoard != "" {
		current, err := s.Boards.Board(ctx, user.BoardToken, user.CurrentBoard)
		if err == nil {
			text += "\nCurrent board: " + current.Name
		}
	}
	return req.Reply(ctx, text)
}

func memberName(member board.Member) string {
	if member.FullName != "" && member.Username != "" {
		return member.FullName + " (" + member.Username + ")"
	}
	if member.FullName != "" {
		return member.FullName
	}
	return member.Username
}

// Package commands holds the built-in chat commands.
package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"strings"

	"boardbot/pkg/board"
	"boardbot/pkg/command"
	"boardbot/pkg/interact"
	"boardbot/pkg/store"
)

// Settings is the slice of the store the commands read and write.
type Settings interface {
	User(ctx context.Context, id string) (store.User, error)
	Chat(ctx context.Context, id string) (store.Chat, error)
	AddUserPrefix(ctx context.Context, id string, prefix string) (store.User, error)
	RemoveUserPrefix(ctx context.Context, id string, prefix string) (store.User, error)
	SetBoardToken(ctx context.Context, id string, token string) error
	SetCurrentBoard(ctx context.Context, id string, boardID string) error
	SetChatPrefix(ctx context.Context, id string, prefix string) error
	SetUserBanned(ctx context.Context, id string, banned bool) error
	SetChatBanned(ctx context.Context, id string, banned bool) error
}

// Boards is the task-board API used by the board commands.
type Boards interface {
	Me(ctx context.Context, token string) (board.Member, error)
	Boards(ctx context.Context, token string) ([]board.Board, error)
	Board(ctx context.Context, token string, boardID string) (board.Board, error)
	Lists(ctx context.Context, token string, boardID string, archived bool) ([]board.List, error)
	AddCard(ctx context.Context, token string, listID string, name string) (board.Card, error)
}

type Deps struct {
	Registry      *command.Registry
	Coordinator   *interact.Coordinator
	Settings      Settings
	Boards        Boards
	DefaultPrefix string
	PageSize      int
	// Owners are user refs (channel:sender) allowed to run admin commands.
	Owners []string
	// LoginURL is shown by login to tell users where to get a token.
	LoginURL string
	Log      *slog.Logger
}

// set is the shared state behind every built-in command.
type set struct {
	Deps
	log *slog.Logger
}

const (
	categoryGeneral = "General"
	categoryAccount = "Account"
	categoryBoards  = "Boards"
	categoryAdmin   = "Admin"
)

// Register adds every built-in command to deps.Registry.
func Register(deps Deps) error {
	if deps.Registry == nil {
		return errors.New("command registry is required")
	}
	if deps.Coordinator == nil {
		return errors.New("interaction coordinator is required")
	}
	if deps.Settings == nil {
		return errors.New("settings store is required")
	}
	if deps.Log == nil {
		deps.Log = slog.Default()
	}

	s := &set{Deps: deps, log: deps.Log.With("component", "commands")}

	cmds := []command.Command{
		s.ping(),
		s.help(),
		s.prefix(),
		s.login(),
		s.logout(),
		s.account(),
		s.ban(),
		s.unban(),
	}
	if deps.Boards != nil {
		cmds = append(cmds, s.boards(), s.switchBoard(), s.lists(), s.archive(), s.addCard())
	} else {
		s.log.Warn("Board client not configured, board commands disabled")
	}
	return deps.Registry.Register(cmds...)
}

func (s *set) isOwner(req *command.Request) bool {
	return slices.Contains(s.Owners, req.UserRef())
}

// pageArg parses an optional 1-based page argument. Anything that is not a
// positive number starts at the first page.
func pageArg(req *command.Request) int {
	page, err := strconv.Atoi(req.Arg(0))
	if err != nil || page < 1 {
		return 1
	}
	return page
}

// boardFailure answers the board errors a user can act on and reports
// whether err was handled. An unauthorized token is forgotten.
func (s *set) boardFailure(ctx context.Context, req *command.Request, err error) (bool, error) {
	switch board.CategoryFromError(err) {
	case board.ErrorUnauthorized:
		if clearErr := s.Settings.SetBoardToken(ctx, req.UserRef(), ""); clearErr != nil {
			return true, fmt.Errorf("clear rejected token: %w", clearErr)
		}
		return true, req.Reply(ctx, fmt.Sprintf("Your board token is no longer valid. Use `%slogin` to link your account again.", req.Prefix))
	case board.ErrorRateLimited:
		return true, req.Reply(ctx, "The board service is busy right now, try again in a moment.")
	default:
		return false, nil
	}
}

func displayPrefix(prefix string) string {
	if strings.TrimSpace(prefix) == "" {
		return "(none)"
	}
	return "`" + prefix + "`"
}

package commands

import (
	"context"
	"fmt"
	"strings"
	"time"

	"boardbot/pkg/board"
	"boardbot/pkg/command"
	"boardbot/pkg/interact"
	"boardbot/pkg/store"
)

const boardCooldown = 3 * time.Second

func (s *set) boards() command.Command {
	return command.Command{
		Name:     "boards",
		Usage:    "boards [page]",
		Summary:  "Browse your boards.",
		Category: categoryBoards,
		Cooldown: boardCooldown,
		Run: func(ctx context.Context, req *command.Request) error {
			user, ok, err := s.requireLogin(ctx, req)
			if err != nil || !ok {
				return err
			}

			boards, err := s.Boards.Boards(ctx, user.BoardToken)
			if err != nil {
				if handled, herr := s.boardFailure(ctx, req, err); handled {
					return herr
				}
				return err
			}
			if len(boards) == 0 {
				return req.Reply(ctx, "You have no open boards.")
			}

			return interact.Paginate(ctx, s.Coordinator, req.Conv, boards, interact.PagerOptions[board.Board]{
				Header:   "Your boards:",
				PageSize: s.PageSize,
				Start:    pageArg(req),
				Display: func(b board.Board) string {
					line := b.Name
					if b.Starred {
						line = "⭐ " + line
					}
					if b.ID == user.CurrentBoard {
						line += " (current)"
					}
					return line
				},
			})
		},
	}
}

func (s *set) switchBoard() command.Command {
	return command.Command{
		Name:     "switch",
		Aliases:  []string{"use"},
		Usage:    "switch [board name]",
		Summary:  "Pick the board other commands work on.",
		Category: categoryBoards,
		Cooldown: boardCooldown,
		Run: func(ctx context.Context, req *command.Request) error {
			user, ok, err := s.requireLogin(ctx, req)
			if err != nil || !ok {
				return err
			}

			boards, err := s.Boards.Boards(ctx, user.BoardToken)
			if err != nil {
				if handled, herr := s.boardFailure(ctx, req, err); handled {
					return herr
				}
				return err
			}
			if len(boards) == 0 {
				return req.Reply(ctx, "You have no open boards.")
			}

			picked, ok, err := interact.Search(ctx, s.Coordinator, req.Conv, req.Rest(0), boards, interact.SearchOptions[board.Board]{
				Header: "Which board?",
				Name:   func(b board.Board) string { return b.Name },
			})
			if err != nil || !ok {
				return err
			}

			if err := s.Settings.SetCurrentBoard(ctx, req.UserRef(), picked.ID); err != nil {
				return err
			}
			return req.Reply(ctx, fmt.Sprintf("Switched to %s.", picked.Name))
		},
	}
}

func (s *set) lists() command.Command {
	return command.Command{
		Name:     "lists",
		Usage:    "lists [page]",
		Summary:  "Browse the lists of your current board.",
		Category: categoryBoards,
		Cooldown: boardCooldown,
		Run: func(ctx context.Context, req *command.Request) error {
			return s.browseLists(ctx, req, false)
		},
	}
}

func (s *set) archive() command.Command {
	return command.Command{
		Name:     "archive",
		Aliases:  []string{"archived"},
		Usage:    "archive [page]",
		Summary:  "Browse the archived lists of your current board.",
		Category: categoryBoards,
		Cooldown: boardCooldown,
		Run: func(ctx context.Context, req *command.Request) error {
			return s.browseLists(ctx, req, true)
		},
	}
}

func (s *set) browseLists(ctx context.Context, req *command.Request, archived bool) error {
	user, ok, err := s.requireBoard(ctx, req)
	if err != nil || !ok {
		return err
	}

	lists, ok, err := s.currentLists(ctx, req, user, archived)
	if err != nil || !ok {
		return err
	}
	if len(lists) == 0 {
		if archived {
			return req.Reply(ctx, "This board has no archived lists.")
		}
		return req.Reply(ctx, "This board has no lists.")
	}

	header := "Lists:"
	if archived {
		header = "Archived lists:"
	}
	return interact.Paginate(ctx, s.Coordinator, req.Conv, lists, interact.PagerOptions[board.List]{
		Header:   header,
		PageSize: s.PageSize,
		Start:    pageArg(req),
		Display: func(l board.List) string {
			if l.Subscribed {
				return l.Name + " 🔔"
			}
			return l.Name
		},
	})
}

func (s *set) addCard() command.Command {
	return command.Command{
		Name:     "addcard",
		Aliases:  []string{"add"},
		Usage:    "addcard [card name]",
		Summary:  "Add a card to a list on your current board.",
		Category: categoryBoards,
		Cooldown: 5 * time.Second,
		Run: func(ctx context.Context, req *command.Request) error {
			user, ok, err := s.requireBoard(ctx, req)
			if err != nil || !ok {
				return err
			}

			lists, ok, err := s.currentLists(ctx, req, user, false)
			if err != nil || !ok {
				return err
			}
			if len(lists) == 0 {
				return req.Reply(ctx, "This board has no lists to add a card to.")
			}

			list, ok, err := interact.Choose(ctx, s.Coordinator, req.Conv, lists, interact.ChooseOptions[board.List]{
				Header:  "Which list should the card go in?",
				Display: func(l board.List) string { return l.Name },
			})
			if err != nil || !ok {
				return err
			}

			name := strings.TrimSpace(req.Rest(0))
			if name == "" {
				name, ok, err = s.Coordinator.Input(ctx, req.Conv, interact.InputOptions{Prompt: "What should the card be called?"})
				if err != nil || !ok {
					return err
				}
				name = strings.TrimSpace(name)
			}

			card, err := s.Boards.AddCard(ctx, user.BoardToken, list.ID, name)
			if err != nil {
				if handled, herr := s.boardFailure(ctx, req, err); handled {
					return herr
				}
				return err
			}

			text := fmt.Sprintf("Added %q to %s.", card.Name, list.Name)
			if card.ShortURL != "" {
				text += " " + card.ShortURL
			}
			return req.Reply(ctx, text)
		},
	}
}

// currentLists loads the lists of the user's current board. A board that
// disappeared is forgotten and reported as not ok.
func (s *set) currentLists(ctx context.Context, req *command.Request, user store.User, archived bool) ([]board.List, bool, error) {
	lists, err := s.Boards.Lists(ctx, user.BoardToken, user.CurrentBoard, archived)
	if err == nil {
		return lists, true, nil
	}

	if board.IsCategory(err, board.ErrorNotFound) {
		if clearErr := s.Settings.SetCurrentBoard(ctx, req.UserRef(), ""); clearErr != nil {
			return nil, false, clearErr
		}
		return nil, false, req.Reply(ctx, fmt.Sprintf("Your current board no longer exists. Use `%sswitch` to pick another.", req.Prefix))
	}
	if handled, herr := s.boardFailure(ctx, req, err); handled {
		return nil, false, herr
	}
	return nil, false, err
}

func (s *set) requireLogin(ctx context.Context, req *command.Request) (store.User, bool, error) {
	user, err := s.Settings.User(ctx, req.UserRef())
	if err != nil {
		return store.User{}, false, err
	}
	if !user.LoggedIn() {
		return user, false, req.Reply(ctx, fmt.Sprintf("You need to log in first. Use `%slogin`.", req.Prefix))
	}
	return user, true, nil
}

func (s *set) requireBoard(ctx context.Context, req *command.Request) (store.User, bool, error) {
	user, ok, err := s.requireLogin(ctx, req)
	if err != nil || !ok {
		return user, ok, err
	}
	if user.CurrentBoard == "" {
		return user, false, req.Reply(ctx, fmt.Sprintf("Pick a board first with `%sswitch`.", req.Prefix))
	}
	return user, true, nil
}

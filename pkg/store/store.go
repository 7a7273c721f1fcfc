// Package store persists per-user and per-chat bot settings in sqlite.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"
)

// MaxUserPrefixes bounds how many personal prefixes a user may register.
const MaxUserPrefixes = 10

var (
	ErrNotFound    = errors.New("not found")
	ErrPrefixLimit = fmt.Errorf("at most %d prefixes allowed", MaxUserPrefixes)
)

// User holds the settings of one user on one transport. IDs are opaque to
// the store; callers scope them by transport.
type User struct {
	ID           string
	Prefixes     []string
	BoardToken   string
	CurrentBoard string
	Banned       bool
}

// LoggedIn reports whether the user has linked a task-board account.
func (u User) LoggedIn() bool {
	return u.BoardToken != ""
}

type Chat struct {
	ID     string
	Prefix string
	Banned bool
}

type Store struct {
	db *sql.DB
}

func New(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(`PRAGMA journal_mode=WAL; PRAGMA busy_timeout=5000;`); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply sqlite pragmas: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) AutoMigrate(ctx context.Context) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id TEXT PRIMARY KEY,
			prefixes TEXT NOT NULL DEFAULT '[]',
			board_token TEXT NOT NULL DEFAULT '',
			current_board TEXT NOT NULL DEFAULT '',
			banned INTEGER NOT NULL DEFAULT 0,
			created_at TEXT NOT NULL DEFAULT (datetime('now'))
		);`,
		`CREATE TABLE IF NOT EXISTS chats (
			id TEXT PRIMARY KEY,
			prefix TEXT NOT NULL DEFAULT '',
			banned INTEGER NOT NULL DEFAULT 0,
			created_at TEXT NOT NULL DEFAULT (datetime('now'))
		);`,
	}

	for _, query := range queries {
		if _, err := s.db.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("migrate sqlite: %w", err)
		}
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// User returns the settings of id. Unknown users get default settings.
func (s *Store) User(ctx context.Context, id string) (User, error) {
	return scanUser(s.db.QueryRowContext(ctx, userQuery, strings.TrimSpace(id)), id)
}

// AddUserPrefix registers a personal command prefix and returns the updated
// user. Adding a prefix the user already has is a no-op.
func (s *Store) AddUserPrefix(ctx context.Context, id string, prefix string) (User, error) {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		return User{}, errors.New("prefix is required")
	}

	return s.updatePrefixes(ctx, id, func(prefixes []string) ([]string, error) {
		for _, existing := range prefixes {
			if strings.EqualFold(existing, prefix) {
				return prefixes, nil
			}
		}
		if len(prefixes) >= MaxUserPrefixes {
			return nil, ErrPrefixLimit
		}
		return append(prefixes, prefix), nil
	})
}

// RemoveUserPrefix drops a personal prefix. It returns ErrNotFound when the
// user never registered it.
func (s *Store) RemoveUserPrefix(ctx context.Context, id string, prefix string) (User, error) {
	prefix = strings.TrimSpace(prefix)

	return s.updatePrefixes(ctx, id, func(prefixes []string) ([]string, error) {
		for i, existing := range prefixes {
			if strings.EqualFold(existing, prefix) {
				return append(prefixes[:i], prefixes[i+1:]...), nil
			}
		}
		return nil, ErrNotFound
	})
}

// SetBoardToken links a task-board token to the user. An empty token logs
// the user out and forgets the current board.
func (s *Store) SetBoardToken(ctx context.Context, id string, token string) error {
	token = strings.TrimSpace(token)
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO users (id, board_token) VALUES (?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			board_token = excluded.board_token,
			current_board = CASE WHEN excluded.board_token = '' THEN '' ELSE users.current_board END`,
		strings.TrimSpace(id),
		token,
	)
	if err != nil {
		return fmt.Errorf("set board token: %w", err)
	}
	return nil
}

func (s *Store) SetCurrentBoard(ctx context.Context, id string, boardID string) error {
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO users (id, current_board) VALUES (?, ?)
		 ON CONFLICT(id) DO UPDATE SET current_board = excluded.current_board`,
		strings.TrimSpace(id),
		strings.TrimSpace(boardID),
	)
	if err != nil {
		return fmt.Errorf("set current board: %w", err)
	}
	return nil
}

func (s *Store) SetUserBanned(ctx context.Context, id string, banned bool) error {
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO users (id, banned) VALUES (?, ?)
		 ON CONFLICT(id) DO UPDATE SET banned = excluded.banned`,
		strings.TrimSpace(id),
		boolToInt(banned),
	)
	if err != nil {
		return fmt.Errorf("set user banned: %w", err)
	}
	return nil
}

// Chat returns the settings of a chat. Unknown chats get default settings.
func (s *Store) Chat(ctx context.Context, id string) (Chat, error) {
	id = strings.TrimSpace(id)
	row := s.db.QueryRowContext(ctx, `SELECT prefix, banned FROM chats WHERE id = ?`, id)

	chat := Chat{ID: id}
	var banned int
	if err := row.Scan(&chat.Prefix, &banned); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return chat, nil
		}
		return Chat{}, fmt.Errorf("lookup chat: %w", err)
	}
	chat.Banned = banned != 0
	return chat, nil
}

// SetChatPrefix replaces the prefix of a chat. An empty prefix restores the
// default.
func (s *Store) SetChatPrefix(ctx context.Context, id string, prefix string) error {
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO chats (id, prefix) VALUES (?, ?)
		 ON CONFLICT(id) DO UPDATE SET prefix = excluded.prefix`,
		strings.TrimSpace(id),
		strings.TrimSpace(prefix),
	)
	if err != nil {
		return fmt.Errorf("set chat prefix: %w", err)
	}
	return nil
}

func (s *Store) SetChatBanned(ctx context.Context, id string, banned bool) error {
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO chats (id, banned) VALUES (?, ?)
		 ON CONFLICT(id) DO UPDATE SET banned = excluded.banned`,
		strings.TrimSpace(id),
		boolToInt(banned),
	)
	if err != nil {
		return fmt.Errorf("set chat banned: %w", err)
	}
	return nil
}

const userQuery = `SELECT prefixes, board_token, current_board, banned FROM users WHERE id = ?`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner, id string) (User, error) {
	user := User{ID: strings.TrimSpace(id)}

	var (
		prefixes string
		banned   int
	)
	if err := row.Scan(&prefixes, &user.BoardToken, &user.CurrentBoard, &banned); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return user, nil
		}
		return User{}, fmt.Errorf("lookup user: %w", err)
	}
	if err := json.Unmarshal([]byte(prefixes), &user.Prefixes); err != nil {
		return User{}, fmt.Errorf("decode user prefixes: %w", err)
	}
	user.Banned = banned != 0
	return user, nil
}

func (s *Store) updatePrefixes(ctx context.Context, id string, update func([]string) ([]string, error)) (User, error) {
	id = strings.TrimSpace(id)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return User{}, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	user, err := scanUser(tx.QueryRowContext(ctx, userQuery, id), id)
	if err != nil {
		return User{}, err
	}

	prefixes, err := update(user.Prefixes)
	if err != nil {
		return User{}, err
	}
	encoded, err := json.Marshal(prefixes)
	if err != nil {
		return User{}, fmt.Errorf("encode user prefixes: %w", err)
	}

	if _, err := tx.ExecContext(
		ctx,
		`INSERT INTO users (id, prefixes) VALUES (?, ?)
		 ON CONFLICT(id) DO UPDATE SET prefixes = excluded.prefixes`,
		id,
		string(encoded),
	); err != nil {
		return User{}, fmt.Errorf("update user prefixes: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return User{}, fmt.Errorf("commit transaction: %w", err)
	}

	user.Prefixes = prefixes
	return user, nil
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}

package store

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "boardbot_test.sqlite")
	sqlStore, err := New(dbPath)
	if err != nil {
		t.Fatalf("open test store: %v", err)
	}
	t.Cleanup(func() { _ = sqlStore.Close() })
	if err := sqlStore.AutoMigrate(context.Background()); err != nil {
		t.Fatalf("migrate test store: %v", err)
	}
	return sqlStore
}

func TestUnknownUserAndChatHaveDefaults(t *testing.T) {
	sqlStore := newTestStore(t)
	ctx := context.Background()

	user, err := sqlStore.User(ctx, "telegram:7")
	if err != nil {
		t.Fatalf("lookup user: %v", err)
	}
	if user.ID != "telegram:7" || len(user.Prefixes) != 0 || user.LoggedIn() || user.Banned {
		t.Fatalf("unexpected default user: %+v", user)
	}

	chat, err := sqlStore.Chat(ctx, "telegram:42")
	if err != nil {
		t.Fatalf("lookup chat: %v", err)
	}
	if chat.ID != "telegram:42" || chat.Prefix != "" || chat.Banned {
		t.Fatalf("unexpected default chat: %+v", chat)
	}
}

func TestUserPrefixes(t *testing.T) {
	sqlStore := newTestStore(t)
	ctx := context.Background()

	if _, err := sqlStore.AddUserPrefix(ctx, "u", "!"); err != nil {
		t.Fatalf("add prefix: %v", err)
	}
	user, err := sqlStore.AddUserPrefix(ctx, "u", "bb ")
	if err != nil {
		t.Fatalf("add prefix: %v", err)
	}
	if got := fmt.Sprint(user.Prefixes); got != "[! bb]" {
		t.Fatalf("prefixes = %s, want [! bb]", got)
	}

	// Duplicates are ignored regardless of case.
	if _, err := sqlStore.AddUserPrefix(ctx, "u", "BB"); err != nil {
		t.Fatalf("add duplicate prefix: %v", err)
	}

	user, err = sqlStore.RemoveUserPrefix(ctx, "u", "!")
	if err != nil {
		t.Fatalf("remove prefix: %v", err)
	}
	if got := fmt.Sprint(user.Prefixes); got != "[bb]" {
		t.Fatalf("prefixes = %s, want [bb]", got)
	}

	if _, err := sqlStore.RemoveUserPrefix(ctx, "u", "?"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("remove missing prefix error = %v, want ErrNotFound", err)
	}

	loaded, err := sqlStore.User(ctx, "u")
	if err != nil {
		t.Fatalf("lookup user: %v", err)
	}
	if got := fmt.Sprint(loaded.Prefixes); got != "[bb]" {
		t.Fatalf("persisted prefixes = %s, want [bb]", got)
	}
}

func TestUserPrefixLimit(t *testing.T) {
	sqlStore := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < MaxUserPrefixes; i++ {
		if _, err := sqlStore.AddUserPrefix(ctx, "u", fmt.Sprintf("p%d", i)); err != nil {
			t.Fatalf("add prefix %d: %v", i, err)
		}
	}
	if _, err := sqlStore.AddUserPrefix(ctx, "u", "extra"); !errors.Is(err, ErrPrefixLimit) {
		t.Fatalf("add over limit error = %v, want ErrPrefixLimit", err)
	}
}

func TestBoardTokenAndCurrentBoard(t *testing.T) {
	sqlStore := newTestStore(t)
	ctx := context.Background()

	if err := sqlStore.SetBoardToken(ctx, "u", "secret"); err != nil {
		t.Fatalf("set token: %v", err)
	}
	if err := sqlStore.SetCurrentBoard(ctx, "u", "board-1"); err != nil {
		t.Fatalf("set board: %v", err)
	}

	user, err := sqlStore.User(ctx, "u")
	if err != nil {
		t.Fatalf("lookup user: %v", err)
	}
	if user.BoardToken != "secret" || user.CurrentBoard != "board-1" || !user.LoggedIn() {
		t.Fatalf("unexpected user: %+v", user)
	}

	// Logging out forgets the board too.
	if err := sqlStore.SetBoardToken(ctx, "u", ""); err != nil {
		t.Fatalf("clear token: %v", err)
	}
	user, err = sqlStore.User(ctx, "u")
	if err != nil {
		t.Fatalf("lookup user: %v", err)
	}
	if user.LoggedIn() || user.CurrentBoard != "" {
		t.Fatalf("expected logged out user, got %+v", user)
	}
}

func TestChatSettingsAndBans(t *testing.T) {
	sqlStore := newTestStore(t)
	ctx := context.Background()

	if err := sqlStore.SetChatPrefix(ctx, "c", "?"); err != nil {
		t.Fatalf("set chat prefix: %v", err)
	}
	if err := sqlStore.SetChatBanned(ctx, "c", true); err != nil {
		t.Fatalf("ban chat: %v", err)
	}
	if err := sqlStore.SetUserBanned(ctx, "u", true); err != nil {
		t.Fatalf("ban user: %v", err)
	}

	chat, err := sqlStore.Chat(ctx, "c")
	if err != nil {
		t.Fatalf("lookup chat: %v", err)
	}
	if chat.Prefix != "?" || !chat.Banned {
		t.Fatalf("unexpected chat: %+v", chat)
	}

	user, err := sqlStore.User(ctx, "u")
	if err != nil {
		t.Fatalf("lookup user: %v", err)
	}
	if !user.Banned {
		t.Fatal("expected banned user")
	}

	if err := sqlStore.SetChatPrefix(ctx, "c", ""); err != nil {
		t.Fatalf("reset chat prefix: %v", err)
	}
	chat, err = sqlStore.Chat(ctx, "c")
	if err != nil {
		t.Fatalf("lookup chat: %v", err)
	}
	if chat.Prefix != "" || !chat.Banned {
		t.Fatalf("reset should keep ban, got %+v", chat)
	}
}

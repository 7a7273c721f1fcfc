package telegram

import (
	"log/slog"
	"reflect"
	"strings"
	"testing"

	"github.com/mymmrac/telego"
)

func TestAllowFromSet(t *testing.T) {
	allowed := allowFromSet([]string{" 123 ", "", "456", "123"})
	if len(allowed) != 2 {
		t.Fatalf("allowFromSet len = %d, want 2", len(allowed))
	}
	if _, ok := allowed["123"]; !ok {
		t.Fatal("allowFromSet missing 123")
	}
	if _, ok := allowed["456"]; !ok {
		t.Fatal("allowFromSet missing 456")
	}
}

func TestSenderAllowed(t *testing.T) {
	adapter := &Adapter{allowFrom: map[string]struct{}{"1": {}}}
	if !adapter.senderAllowed("1") {
		t.Fatal("expected sender 1 to be allowed")
	}
	if adapter.senderAllowed("2") {
		t.Fatal("expected sender 2 to be denied")
	}

	adapter.allowFrom = nil
	if !adapter.senderAllowed("any") {
		t.Fatal("expected sender to be allowed when allowlist empty")
	}
}

func TestInboundMessage(t *testing.T) {
	adapter := &Adapter{log: slog.Default()}
	adapter.setMentions("boardbot")

	msg, ok := adapter.inboundMessage(telego.Message{
		MessageID: 9,
		From:      &telego.User{ID: 7, Username: "ana"},
		Chat:      telego.Chat{ID: 42, Type: telego.ChatTypePrivate},
		Text:      "!boards 2",
	})
	if !ok {
		t.Fatal("expected message to be accepted")
	}
	if msg.Channel != "telegram" || msg.SenderID != "7" || msg.ChatID != "42" || msg.MessageID != "9" {
		t.Fatalf("unexpected identity fields: %+v", msg)
	}
	if !msg.Direct {
		t.Fatal("expected private chat to be direct")
	}
	if msg.SenderMention != "@ana" {
		t.Fatalf("sender mention = %q, want @ana", msg.SenderMention)
	}
	if !reflect.DeepEqual(msg.Mentions, []string{"@boardbot"}) {
		t.Fatalf("mentions = %v", msg.Mentions)
	}

	group := telego.Chat{ID: -100, Type: "supergroup"}
	if msg, _ := adapter.inboundMessage(telego.Message{From: &telego.User{ID: 7, FirstName: "Ana"}, Chat: group, Text: "hi"}); msg.Direct || msg.SenderMention != "Ana" {
		t.Fatalf("unexpected group message: %+v", msg)
	}

	rejected := []telego.Message{
		{From: &telego.User{ID: 7}, Chat: group, Text: "  "},
		{Chat: group, Text: "no sender"},
		{From: &telego.User{ID: 8, IsBot: true}, Chat: group, Text: "from a bot"},
	}
	for _, message := range rejected {
		if _, ok := adapter.inboundMessage(message); ok {
			t.Fatalf("expected message to be dropped: %+v", message)
		}
	}
}

func TestInboundReactionsOnlyReportsAdded(t *testing.T) {
	adapter := &Adapter{log: slog.Default()}

	reactions := adapter.inboundReactions(telego.MessageReactionUpdated{
		Chat:      telego.Chat{ID: 42},
		MessageID: 5,
		User:      &telego.User{ID: 7},
		OldReaction: []telego.ReactionType{
			&telego.ReactionTypeEmoji{Type: "emoji", Emoji: "👍"},
		},
		NewReaction: []telego.ReactionType{
			&telego.ReactionTypeEmoji{Type: "emoji", Emoji: "👍"},
			&telego.ReactionTypeEmoji{Type: "emoji", Emoji: "🔥"},
			&telego.ReactionTypeCustomEmoji{Type: "custom_emoji", CustomEmojiID: "123"},
		},
	})

	if len(reactions) != 1 {
		t.Fatalf("reactions = %+v, want exactly the added emoji", reactions)
	}
	got := reactions[0]
	if got.Emoji != "🔥" || got.ChatID != "42" || got.MessageID != "5" || got.SenderID != "7" {
		t.Fatalf("unexpected reaction: %+v", got)
	}
	if got.MessageScope() != "telegram:42/5" {
		t.Fatalf("message scope = %q", got.MessageScope())
	}

	if reactions := adapter.inboundReactions(telego.MessageReactionUpdated{Chat: telego.Chat{ID: 42}}); len(reactions) != 0 {
		t.Fatalf("anonymous reaction should be dropped, got %+v", reactions)
	}
}

func TestParseChatID(t *testing.T) {
	if id, err := parseChatID(" -100 "); err != nil || id != -100 {
		t.Fatalf("parseChatID = %d, %v", id, err)
	}
	if _, err := parseChatID("abc"); err == nil {
		t.Fatal("expected error for non-numeric chat id")
	}
}

func TestPreviewText(t *testing.T) {
	short := " hello "
	if got := previewText(short); got != "hello" {
		t.Fatalf("previewText short = %q, want %q", got, "hello")
	}

	long := strings.Repeat("a", messagePreviewLimit+20)
	got := previewText(long)
	if len(got) != messagePreviewLimit+3 {
		t.Fatalf("previewText long len = %d, want %d", len(got), messagePreviewLimit+3)
	}
	if !strings.HasSuffix(got, "...") {
		t.Fatalf("previewText long = %q, want ellipsis suffix", got)
	}
}

package board

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"boardbot/pkg/config"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := New(config.BoardConfig{BaseURL: server.URL + "/1/", APIKey: "key-1"}, nil)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	client.http = server.Client()
	return client
}

func TestBoardsSendsCredentialsAndDecodes(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Fatalf("expected GET, got %s", r.Method)
		}
		if r.URL.Path != "/1/members/me/boards" {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		query := r.URL.Query()
		if query.Get("key") != "key-1" || query.Get("token") != "tok" || query.Get("filter") != "open" {
			t.Fatalf("unexpected query: %s", r.URL.RawQuery)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"id":"b1","name":"Roadmap","starred":true},{"id":"b2","name":"Ops"}]`))
	})

	boards, err := client.Boards(context.Background(), "tok")
	if err != nil {
		t.Fatalf("boards: %v", err)
	}
	if len(boards) != 2 || boards[0].Name != "Roadmap" || !boards[0].Starred || boards[1].ID != "b2" {
		t.Fatalf("unexpected boards: %+v", boards)
	}
}

func TestListsArchivedFilter(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/1/boards/b1/lists" {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("filter"); got != "closed" {
			t.Fatalf("filter = %q, want closed", got)
		}
		_, _ = w.Write([]byte(`[{"id":"l1","name":"Old","closed":true}]`))
	})

	lists, err := client.Lists(context.Background(), "tok", "b1", true)
	if err != nil {
		t.Fatalf("lists: %v", err)
	}
	if len(lists) != 1 || !lists[0].Closed {
		t.Fatalf("unexpected lists: %+v", lists)
	}
}

func TestAddCard(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/1/cards" {
			t.Fatalf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		query := r.URL.Query()
		if query.Get("idList") != "l1" || query.Get("name") != "Write docs" {
			t.Fatalf("unexpected query: %s", r.URL.RawQuery)
		}
		_, _ = w.Write([]byte(`{"id":"c1","name":"Write docs","shortUrl":"https://example.test/c/c1"}`))
	})

	card, err := client.AddCard(context.Background(), "tok", "l1", "  Write docs ")
	if err != nil {
		t.Fatalf("add card: %v", err)
	}
	if card.ID != "c1" {
		t.Fatalf("unexpected card: %+v", card)
	}

	if _, err := client.AddCard(context.Background(), "tok", "l1", " "); CategoryFromError(err) != ErrorInvalidRequest {
		t.Fatalf("empty name category = %q, want %q", CategoryFromError(err), ErrorInvalidRequest)
	}
}

func TestErrorCategories(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   string
	}{
		{name: "unauthorized", status: http.StatusUnauthorized, body: "invalid token", want: ErrorUnauthorized},
		{name: "not found", status: http.StatusNotFound, want: ErrorNotFound},
		{name: "invalid id", status: http.StatusBadRequest, body: "invalid id", want: ErrorNotFound},
		{name: "rate limited", status: http.StatusTooManyRequests, want: ErrorRateLimited},
		{name: "server error", status: http.StatusBadGateway, want: ErrorUnavailable},
		{name: "bad request", status: http.StatusBadRequest, body: "invalid value for name", want: ErrorInvalidRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			_, err := client.Me(context.Background(), "tok")
			if got := CategoryFromError(err); got != tt.want {
				t.Fatalf("category = %q, want %q (err %v)", got, tt.want, err)
			}
		})
	}
}

func TestInvalidResponseAndMissingToken(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`not json`))
	})

	if _, err := client.Me(context.Background(), "tok"); !IsCategory(err, ErrorInvalidResponse) {
		t.Fatalf("expected invalid response, got %v", err)
	}
	if _, err := client.Boards(context.Background(), ""); !IsCategory(err, ErrorUnauthorized) {
		t.Fatalf("expected unauthorized without token, got %v", err)
	}
}

func TestTransportErrorHidesCredentials(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	baseURL := server.URL
	server.Close()

	client, err := New(config.BoardConfig{BaseURL: baseURL, APIKey: "secret-key"}, nil)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	_, err = client.Me(context.Background(), "secret-token")
	if !IsCategory(err, ErrorUnavailable) {
		t.Fatalf("expected unavailable, got %v", err)
	}
	if strings.Contains(err.Error(), "secret") {
		t.Fatalf("error leaks credentials: %v", err)
	}
}

func TestNewRequiresAPIKey(t *testing.T) {
	if _, err := New(config.BoardConfig{}, nil); err == nil {
		t.Fatal("expected error without api key")
	}
}

func TestAuthorizeURL(t *testing.T) {
	client, err := New(config.BoardConfig{APIKey: "app-key"}, nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	got := client.AuthorizeURL("boardbot")
	parsed, err := url.Parse(got)
	if err != nil {
		t.Fatalf("parse %q: %v", got, err)
	}
	if parsed.Host != "trello.com" || parsed.Path != "/1/authorize" {
		t.Fatalf("AuthorizeURL = %q, want trello authorize page", got)
	}
	query := parsed.Query()
	if query.Get("key") != "app-key" || query.Get("name") != "boardbot" || query.Get("response_type") != "token" {
		t.Fatalf("AuthorizeURL query = %v", query)
	}
}

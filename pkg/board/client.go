// Package board is a small client for a Trello-compatible task-board API.
package board

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"boardbot/pkg/config"
)

const (
	defaultBaseURL      = "https://api.trello.com/1"
	defaultAuthorizeURL = "https://trello.com/1/authorize"
	defaultTimeout      = 15 * time.Second

	// The API allows 300 requests per 10 seconds per key.
	requestsPerWindow = 300
	requestWindow     = 10 * time.Second

	maxErrorBody = 512
)

type Member struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	FullName string `json:"fullName"`
}

type Board struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Closed   bool   `json:"closed"`
	Starred  bool   `json:"starred"`
	ShortURL string `json:"shortUrl"`
}

type List struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Closed     bool   `json:"closed"`
	Subscribed bool   `json:"subscribed"`
}

type Card struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	ShortURL string `json:"shortUrl"`
}

type Client struct {
	baseURL      string
	authorizeURL string
	apiKey       string
	http         *http.Client
	limiter      *rate.Limiter
	log          *slog.Logger
}

func New(cfg config.BoardConfig, log *slog.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("board api key is required")
	}
	if log == nil {
		log = slog.Default()
	}

	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("parse board base url: %w", err)
	}

	authorizeURL := strings.TrimSpace(cfg.AuthorizeURL)
	if authorizeURL == "" {
		authorizeURL = defaultAuthorizeURL
	}

	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	return &Client{
		baseURL:      baseURL,
		authorizeURL: authorizeURL,
		apiKey:       strings.TrimSpace(cfg.APIKey),
		http:         &http.Client{Timeout: timeout},
		limiter:      rate.NewLimiter(rate.Every(requestWindow/requestsPerWindow), requestsPerWindow),
		log:          log.With("component", "board.client"),
	}, nil
}

// AuthorizeURL is the page where a user grants appName a non-expiring token.
func (c *Client) AuthorizeURL(appName string) string {
	query := url.Values{
		"expiration":    {"never"},
		"name":          {appName},
		"scope":         {"read,write"},
		"response_type": {"token"},
		"key":           {c.apiKey},
	}
	return c.authorizeURL + "?" + query.Encode()
}

// Me returns the member the token belongs to. It is used to validate tokens.
func (c *Client) Me(ctx context.Context, token string) (Member, error) {
	var member Member
	err := c.get(ctx, token, "/members/me", url.Values{"fields": {"username,fullName"}}, &member)
	return member, err
}

// Boards returns the open boards of the token's member.
func (c *Client) Boards(ctx context.Context, token string) ([]Board, error) {
	var boards []Board
	err := c.get(ctx, token, "/members/me/boards", url.Values{
		"filter": {"open"},
		"fields": {"name,closed,starred,shortUrl"},
	}, &boards)
	return boards, err
}

// Board returns a single board.
func (c *Client) Board(ctx context.Context, token string, boardID string) (Board, error) {
	var board Board
	err := c.get(ctx, token, "/boards/"+url.PathEscape(boardID), url.Values{
		"fields": {"name,closed,starred,shortUrl"},
	}, &board)
	return board, err
}

// Lists returns the open lists of a board, or the archived ones.
func (c *Client) Lists(ctx context.Context, token string, boardID string, archived bool) ([]List, error) {
	filter := "open"
	if archived {
		filter = "closed"
	}

	var lists []List
	err := c.get(ctx, token, "/boards/"+url.PathEscape(boardID)+"/lists", url.Values{
		"filter": {filter},
		"fields": {"name,closed,subscribed"},
	}, &lists)
	return lists, err
}

// AddCard creates a card at the bottom of a list.
func (c *Client) AddCard(ctx context.Context, token string, listID string, name string) (Card, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Card{}, NewError(ErrorInvalidRequest, "card name is required")
	}

	var card Card
	err := c.do(ctx, http.MethodPost, token, "/cards", url.Values{
		"idList": {listID},
		"name":   {name},
		"pos":    {"bottom"},
	}, &card)
	return card, err
}

func (c *Client) get(ctx context.Context, token string, path string, query url.Values, out any) error {
	return c.do(ctx, http.MethodGet, token, path, query, out)
}

func (c *Client) do(ctx context.Context, method string, token string, path string, query url.Values, out any) error {
	if strings.TrimSpace(token) == "" {
		return NewError(ErrorUnauthorized, "no board token")
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("wait for board rate limit: %w", err)
	}

	if query == nil {
		query = url.Values{}
	}
	query.Set("key", c.apiKey)
	query.Set("token", token)

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path+"?"+query.Encode(), nil)
	if err != nil {
		return fmt.Errorf("build board request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	started := time.Now()
	res, err := c.http.Do(req)
	if err != nil {
		// Keep the credential-bearing URL out of the error text.
		var urlErr *url.Error
		if errors.As(err, &urlErr) {
			err = urlErr.Err
		}
		return NewError(ErrorUnavailable, err.Error())
	}
	defer res.Body.Close()

	c.log.Debug("Board API call", "method", method, "path", path, "status", res.StatusCode, "duration", time.Since(started))

	if res.StatusCode >= http.StatusBadRequest {
		body, _ := io.ReadAll(io.LimitReader(res.Body, maxErrorBody))
		return errorFromStatus(res.StatusCode, strings.TrimSpace(string(body)))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return NewError(ErrorInvalidResponse, err.Error())
	}
	return nil
}

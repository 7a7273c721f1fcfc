package discord

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// Send posts text into a channel and returns the new message id.
func (a *Adapter) Send(ctx context.Context, chatID string, text string) (string, error) {
	chatID = strings.TrimSpace(chatID)
	if chatID == "" {
		return "", errors.New("discord channel id is required")
	}

	var created struct {
		ID string `json:"id"`
	}
	endpoint := a.apiBase + "/channels/" + url.PathEscape(chatID) + "/messages"
	if err := a.call(ctx, http.MethodPost, endpoint, map[string]string{"content": clip(text)}, &created); err != nil {
		return "", fmt.Errorf("send discord message: %w", err)
	}
	return created.ID, nil
}

// Edit replaces the content of a bot message.
func (a *Adapter) Edit(ctx context.Context, chatID string, messageID string, text string) error {
	endpoint := a.apiBase + "/channels/" + url.PathEscape(strings.TrimSpace(chatID)) +
		"/messages/" + url.PathEscape(strings.TrimSpace(messageID))
	if err := a.call(ctx, http.MethodPatch, endpoint, map[string]string{"content": clip(text)}, nil); err != nil {
		return fmt.Errorf("edit discord message: %w", err)
	}
	return nil
}

// React adds the bot's reaction to a message.
func (a *Adapter) React(ctx context.Context, chatID string, messageID string, emoji string) error {
	endpoint := a.apiBase + "/channels/" + url.PathEscape(strings.TrimSpace(chatID)) +
		"/messages/" + url.PathEscape(strings.TrimSpace(messageID)) +
		"/reactions/" + url.PathEscape(emoji) + "/@me"
	if err := a.call(ctx, http.MethodPut, endpoint, nil, nil); err != nil {
		return fmt.Errorf("react to discord message: %w", err)
	}
	return nil
}

func (a *Adapter) call(ctx context.Context, method string, endpoint string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bot "+a.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("discord api status %d: %s", resp.StatusCode, strings.TrimSpace(string(detail)))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode discord response: %w", err)
	}
	return nil
}

// clip truncates text to Discord's message length limit.
func clip(text string) string {
	runes := []rune(text)
	if len(runes) <= messageLimit {
		return text
	}
	return string(runes[:messageLimit-3]) + "..."
}

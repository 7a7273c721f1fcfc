// Package discord connects boardbot to the Discord gateway over a websocket
// and answers through the REST API.
package discord

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gorilla/websocket"

	"boardbot/pkg/bus"
	"boardbot/pkg/channel"
	"boardbot/pkg/config"
)

const (
	channelName       = "discord"
	defaultAPIBase    = "https://discord.com/api/v10"
	defaultGatewayURL = "wss://gateway.discord.gg/?v=10&encoding=json"
	reconnectDelay    = 2 * time.Second
	maxReconnectDelay = 2 * time.Minute
	messageLimit      = 2000
)

// Adapter receives Discord messages and reactions from the gateway.
type Adapter struct {
	token      string
	apiBase    string
	gatewayURL string
	allowFrom  map[string]struct{}
	httpClient *http.Client
	dialer     *websocket.Dialer
	log        *slog.Logger

	mu        sync.RWMutex
	botUserID string
}

// NewAdapter validates Discord configuration and constructs an adapter.
func NewAdapter(cfg config.DiscordConfig, log *slog.Logger) (*Adapter, error) {
	token := strings.TrimSpace(cfg.Token)
	if token == "" {
		return nil, errors.New("channels.discord.token is required")
	}
	if log == nil {
		log = slog.Default()
	}

	apiBase := strings.TrimRight(strings.TrimSpace(cfg.APIBaseURL), "/")
	if apiBase == "" {
		apiBase = defaultAPIBase
	}
	gatewayURL := strings.TrimSpace(cfg.GatewayURL)
	if gatewayURL == "" {
		gatewayURL = defaultGatewayURL
	}

	allowFrom := make(map[string]struct{}, len(cfg.AllowFrom))
	for _, id := range cfg.AllowFrom {
		if id = strings.TrimSpace(id); id != "" {
			allowFrom[id] = struct{}{}
		}
	}

	return &Adapter{
		token:      token,
		apiBase:    apiBase,
		gatewayURL: gatewayURL,
		allowFrom:  allowFrom,
		httpClient: &http.Client{Timeout: 12 * time.Second},
		dialer:     websocket.DefaultDialer,
		log:        log.With("component", "channel.discord"),
	}, nil
}

// Name returns the channel identifier.
func (a *Adapter) Name() string {
	return channelName
}

// Run keeps a gateway session open until ctx is canceled, reconnecting after
// failures.
func (a *Adapter) Run(ctx context.Context, handler channel.Handler) error {
	if handler == nil {
		return errors.New("handler is required")
	}

	a.log.Info("Discord channel started")
	retry := newReconnectBackoff()
	for {
		ready, err := a.runSession(ctx, handler)
		if ctx.Err() != nil {
			return nil
		}
		if ready {
			retry.Reset()
		}

		delay := retry.NextBackOff()
		a.log.Warn("Discord gateway session ended", "error", err, "retry_in", delay)

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(delay):
		}
	}
}

// newReconnectBackoff never gives up; a session that reached READY resets it.
func newReconnectBackoff() backoff.BackOff {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = reconnectDelay
	bo.MaxInterval = maxReconnectDelay
	bo.MaxElapsedTime = 0
	return bo
}

// runSession reports whether the session got as far as READY.
func (a *Adapter) runSession(ctx context.Context, handler channel.Handler) (bool, error) {
	conn, _, err := a.dialer.DialContext(ctx, a.gatewayURL, nil)
	if err != nil {
		return false, fmt.Errorf("dial gateway: %w", err)
	}
	defer conn.Close()

	sessionCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		<-sessionCtx.Done()
		_ = conn.Close()
	}()

	var writeMu sync.Mutex
	var sequence atomic.Int64
	ready := false

	interval, err := readHello(conn)
	if err != nil {
		return false, err
	}
	if err := a.identify(conn, &writeMu); err != nil {
		return false, err
	}
	go a.heartbeatLoop(sessionCtx, conn, &writeMu, &sequence, interval)

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return ready, fmt.Errorf("read gateway message: %w", err)
		}

		var envelope gatewayEnvelope
		if err := json.Unmarshal(data, &envelope); err != nil {
			a.log.Error("Failed to decode gateway envelope", "error", err)
			continue
		}
		if envelope.S != nil {
			sequence.Store(*envelope.S)
		}

		switch envelope.Op {
		case opDispatch:
			if envelope.T == "READY" {
				ready = true
			}
			a.dispatch(ctx, envelope, handler)
		case opHeartbeat:
			if err := sendHeartbeat(conn, &writeMu, sequence.Load()); err != nil {
				return ready, err
			}
		case opReconnect:
			return ready, errors.New("gateway requested reconnect")
		case opInvalidSession:
			return ready, errors.New("gateway invalid session")
		}
	}
}

func (a *Adapter) dispatch(ctx context.Context, envelope gatewayEnvelope, handler channel.Handler) {
	switch envelope.T {
	case "READY":
		var ready readyPayload
		if err := json.Unmarshal(envelope.D, &ready); err != nil {
			a.log.Error("Failed to decode ready payload", "error", err)
			return
		}
		a.setBotUserID(ready.User.ID)
		a.log.Info("Discord session ready", "user_id", ready.User.ID, "username", ready.User.Username)

	case "MESSAGE_CREATE":
		var message messageCreate
		if err := json.Unmarshal(envelope.D, &message); err != nil {
			a.log.Error("Failed to decode message", "error", err)
			return
		}
		botUserID := a.currentBotUserID()
		inbound, ok := toInbound(message, botUserID, mentionForms(botUserID))
		if !ok || !a.senderAllowed(inbound.SenderID) {
			return
		}
		a.log.Debug("Received message", "chat_id", inbound.ChatID, "sender_id", inbound.SenderID)
		handler(ctx, bus.Inbound{Message: &inbound})

	case "MESSAGE_REACTION_ADD":
		var payload reactionAdd
		if err := json.Unmarshal(envelope.D, &payload); err != nil {
			a.log.Error("Failed to decode reaction", "error", err)
			return
		}
		reaction, ok := toReaction(payload, a.currentBotUserID())
		if !ok || !a.senderAllowed(reaction.SenderID) {
			return
		}
		a.log.Debug("Received reaction", "chat_id", reaction.ChatID, "message_id", reaction.MessageID, "sender_id", reaction.SenderID)
		handler(ctx, bus.Inbound{Reaction: &reaction})
	}
}

func readHello(conn *websocket.Conn) (time.Duration, error) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return 0, fmt.Errorf("read hello: %w", err)
		}
		var envelope gatewayEnvelope
		if err := json.Unmarshal(data, &envelope); err != nil {
			return 0, fmt.Errorf("decode hello payload: %w", err)
		}
		if envelope.Op != opHello {
			continue
		}
		var hello helloPayload
		if err := json.Unmarshal(envelope.D, &hello); err != nil {
			return 0, fmt.Errorf("decode hello body: %w", err)
		}
		return time.Duration(hello.HeartbeatIntervalMS) * time.Millisecond, nil
	}
}

func (a *Adapter) identify(conn *websocket.Conn, writeMu *sync.Mutex) error {
	payload := map[string]any{
		"op": opIdentify,
		"d": map[string]any{
			"token":   a.token,
			"intents": gatewayIntents,
			"properties": map[string]string{
				"os":      "linux",
				"browser": "boardbot",
				"device":  "boardbot",
			},
		},
	}

	writeMu.Lock()
	defer writeMu.Unlock()
	if err := conn.WriteJSON(payload); err != nil {
		return fmt.Errorf("send identify: %w", err)
	}
	return nil
}

func (a *Adapter) heartbeatLoop(ctx context.Context, conn *websocket.Conn, writeMu *sync.Mutex, sequence *atomic.Int64, interval time.Duration) {
	if interval < time.Second {
		interval = 5 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := sendHeartbeat(conn, writeMu, sequence.Load()); err != nil {
				a.log.Error("Heartbeat failed", "error", err)
				return
			}
		}
	}
}

func sendHeartbeat(conn *websocket.Conn, writeMu *sync.Mutex, sequence int64) error {
	writeMu.Lock()
	defer writeMu.Unlock()

	var d any
	if sequence > 0 {
		d = sequence
	}
	if err := conn.WriteJSON(map[string]any{"op": opHeartbeat, "d": d}); err != nil {
		return fmt.Errorf("send heartbeat: %w", err)
	}
	return nil
}

func (a *Adapter) setBotUserID(id string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.botUserID = strings.TrimSpace(id)
}

func (a *Adapter) currentBotUserID() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.botUserID
}

func (a *Adapter) senderAllowed(senderID string) bool {
	if len(a.allowFrom) == 0 {
		return true
	}
	_, ok := a.allowFrom[senderID]
	return ok
}

var _ channel.Adapter = (*Adapter)(nil)

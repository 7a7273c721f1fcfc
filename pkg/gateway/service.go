// Package gateway runs the transports, the inbound dispatch loop and the
// status server as one unit.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"boardbot/pkg/bus"
	"boardbot/pkg/channel"
	"boardbot/pkg/command"
	"boardbot/pkg/config"
)

const (
	defaultHealthHost = "0.0.0.0"
	defaultHealthPort = 18790
	eventBuffer       = 256
)

// Dispatcher routes inbound events to pending flows and commands.
type Dispatcher interface {
	HandleMessage(ctx context.Context, msg bus.InboundMessage, messenger channel.Messenger) command.Outcome
	HandleReaction(reaction bus.InboundReaction)
	// Wait blocks until running command handlers return.
	Wait()
}

type ServiceConfig struct {
	// Gateway configures the status server. A negative port disables it.
	Gateway    config.GatewayConfig
	Bus        *bus.MessageBus
	Dispatcher Dispatcher
	Adapters   []channel.Adapter
	// Pending reports listening message and reaction waiters for /statusz.
	Pending func() (messages int, reactions int)
	Log     *slog.Logger
}

type Service struct {
	cfg        config.GatewayConfig
	bus        *bus.MessageBus
	dispatcher Dispatcher
	channels   []channel.Adapter
	byName     map[string]channel.Adapter
	pending    func() (int, int)
	log        *slog.Logger

	mu            sync.RWMutex
	startedAt     time.Time
	lastInboundAt time.Time
	channelStates map[string]channelState
	outcomes      map[string]int64
	events        map[bus.EventType]int64
}

type channelState struct {
	Running bool   `json:"running"`
	Error   string `json:"error,omitempty"`
}

type pendingWaiters struct {
	Messages  int `json:"messages"`
	Reactions int `json:"reactions"`
}

type statusResponse struct {
	Status        string                  `json:"status"`
	UptimeSeconds int64                   `json:"uptime_seconds"`
	LastInboundAt string                  `json:"last_inbound_at,omitempty"`
	Channels      map[string]channelState `json:"channels"`
	Inbound       map[string]int64        `json:"inbound,omitempty"`
	Events        map[string]int64        `json:"events,omitempty"`
	Pending       *pendingWaiters         `json:"pending,omitempty"`
}

func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Bus == nil {
		return nil, errors.New("message bus is required")
	}
	if cfg.Dispatcher == nil {
		return nil, errors.New("dispatcher is required")
	}
	if len(cfg.Adapters) == 0 {
		return nil, errors.New("at least one channel adapter is required")
	}
	if cfg.Log == nil {
		cfg.Log = slog.Default()
	}

	byName := make(map[string]channel.Adapter, len(cfg.Adapters))
	channelStates := make(map[string]channelState, len(cfg.Adapters))
	for _, adapter := range cfg.Adapters {
		name := adapter.Name()
		if _, exists := byName[name]; exists {
			return nil, fmt.Errorf("duplicate channel adapter %q", name)
		}
		byName[name] = adapter
		channelStates[name] = channelState{}
	}

	return &Service{
		cfg:           cfg.Gateway,
		bus:           cfg.Bus,
		dispatcher:    cfg.Dispatcher,
		channels:      cfg.Adapters,
		byName:        byName,
		pending:       cfg.Pending,
		log:           cfg.Log.With("component", "gateway.service"),
		channelStates: channelStates,
		outcomes:      make(map[string]int64),
		events:        make(map[bus.EventType]int64),
	}, nil
}

// Run blocks until ctx is canceled or a transport fails. Command handlers
// still running at that point are waited for before Run returns.
func (s *Service) Run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	s.mu.Lock()
	s.startedAt = time.Now().UTC()
	s.mu.Unlock()

	group, groupCtx := errgroup.WithContext(ctx)

	events, unsubscribe := s.bus.SubscribeEvents(groupCtx, eventBuffer)
	defer unsubscribe()
	group.Go(func() error {
		s.countEvents(groupCtx, events)
		return nil
	})

	group.Go(func() error {
		s.dispatchLoop(groupCtx)
		return nil
	})

	if s.cfg.Port >= 0 {
		group.Go(func() error {
			return s.runStatusServer(groupCtx)
		})
	}

	for _, adapter := range s.channels {
		group.Go(func() error {
			name := adapter.Name()
			s.setChannelState(name, channelState{Running: true})
			err := adapter.Run(groupCtx, s.publish)
			s.setChannelState(name, channelState{Running: false, Error: errorString(err)})
			if err != nil && !errors.Is(err, context.Canceled) {
				return fmt.Errorf("run %s channel: %w", name, err)
			}
			return nil
		})
	}

	err := group.Wait()
	s.dispatcher.Wait()
	return err
}

// Handler serves the status endpoints.
func (s *Service) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/readyz", s.handleReady)
	mux.HandleFunc("/statusz", s.handleStatus)
	return mux
}

// publish is the channel.Handler given to every adapter. Events from all
// transports share one queue so the dispatch order is the arrival order.
func (s *Service) publish(ctx context.Context, inbound bus.Inbound) {
	s.mu.Lock()
	s.lastInboundAt = time.Now().UTC()
	s.mu.Unlock()

	if !s.bus.PublishInbound(ctx, inbound) {
		s.log.Warn("Dropped inbound event", "channel", inbound.ChannelName())
	}
}

func (s *Service) dispatchLoop(ctx context.Context) {
	for {
		inbound, ok := s.bus.ConsumeInbound(ctx)
		if !ok {
			return
		}
		s.dispatch(ctx, inbound)
	}
}

func (s *Service) dispatch(ctx context.Context, inbound bus.Inbound) {
	switch {
	case inbound.Reaction != nil:
		s.dispatcher.HandleReaction(*inbound.Reaction)
		s.countOutcome("reaction")

	case inbound.Message != nil:
		adapter, ok := s.byName[inbound.Message.Channel]
		if !ok {
			s.log.Warn("Inbound message from unknown channel", "channel", inbound.Message.Channel)
			s.countOutcome("unroutable")
			return
		}
		outcome := s.dispatcher.HandleMessage(ctx, *inbound.Message, adapter)
		s.countOutcome(outcome.String())
	}
}

func (s *Service) countEvents(ctx context.Context, events <-chan bus.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			s.mu.Lock()
			s.events[event.Type]++
			s.mu.Unlock()
			if event.Type == bus.EventCommandFailed {
				s.log.Warn("Command failed", "request_id", event.RequestID, "channel", event.Channel, "error", event.Error)
			}
		}
	}
}

func (s *Service) runStatusServer(ctx context.Context) error {
	host := strings.TrimSpace(s.cfg.Host)
	if host == "" {
		host = defaultHealthHost
	}

	port := s.cfg.Port
	if port == 0 {
		port = defaultHealthPort
	}

	addr := host + ":" + strconv.Itoa(port)
	server := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	s.log.Info("Gateway status server started", "address", addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("start status server: %w", err)
	}
	return nil
}

func (s *Service) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.respondStatus(w, http.StatusOK, "ok")
}

func (s *Service) handleReady(w http.ResponseWriter, _ *http.Request) {
	statusCode := http.StatusOK
	status := "ready"
	if !s.isReady() {
		statusCode = http.StatusServiceUnavailable
		status = "not_ready"
	}

	s.respondStatus(w, statusCode, status)
}

func (s *Service) handleStatus(w http.ResponseWriter, _ *http.Request) {
	status := "ready"
	if !s.isReady() {
		status = "not_ready"
	}
	s.respondStatus(w, http.StatusOK, status)
}

func (s *Service) respondStatus(w http.ResponseWriter, statusCode int, status string) {
	payload := s.currentStatus(status)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.log.Error("Failed to write status response", "error", err)
	}
}

func (s *Service) currentStatus(status string) statusResponse {
	s.mu.RLock()
	defer s.mu.RUnlock()

	uptime := int64(0)
	if !s.startedAt.IsZero() {
		uptime = int64(time.Since(s.startedAt).Seconds())
	}

	channels := make(map[string]channelState, len(s.channelStates))
	for name, state := range s.channelStates {
		channels[name] = state
	}

	inbound := make(map[string]int64, len(s.outcomes))
	for outcome, count := range s.outcomes {
		inbound[outcome] = count
	}

	events := make(map[string]int64, len(s.events))
	for eventType, count := range s.events {
		events[string(eventType)] = count
	}

	lastInbound := ""
	if !s.lastInboundAt.IsZero() {
		lastInbound = s.lastInboundAt.Format(time.RFC3339)
	}

	response := statusResponse{
		Status:        status,
		UptimeSeconds: uptime,
		LastInboundAt: lastInbound,
		Channels:      channels,
		Inbound:       inbound,
		Events:        events,
	}
	if s.pending != nil {
		messages, reactions := s.pending()
		response.Pending = &pendingWaiters{Messages: messages, Reactions: reactions}
	}
	return response
}

// isReady reports whether at least one transport is running.
func (s *Service) isReady() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, state := range s.channelStates {
		if state.Running {
			return true
		}
	}
	return false
}

func (s *Service) setChannelState(name string, state channelState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.channelStates[name] = state
}

func (s *Service) countOutcome(outcome string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.outcomes[outcome]++
}

func errorString(err error) string {
	if err == nil {
		return ""
	}

	return err.Error()
}

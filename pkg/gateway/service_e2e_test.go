package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"

	"boardbot/pkg/bus"
	"boardbot/pkg/channel"
	"boardbot/pkg/command"
	"boardbot/pkg/config"
	"boardbot/pkg/interact"
	"boardbot/pkg/store"
)

type scriptedAdapter struct {
	name    string
	inbound []bus.Inbound
	runErr  error

	mu   sync.Mutex
	next int
	sent []string
	done chan struct{}
}

func (a *scriptedAdapter) Name() string {
	return a.name
}

func (a *scriptedAdapter) Run(ctx context.Context, handler channel.Handler) error {
	for _, inbound := range a.inbound {
		handler(ctx, inbound)
	}
	close(a.done)

	if a.runErr != nil {
		return a.runErr
	}
	<-ctx.Done()
	return nil
}

func (a *scriptedAdapter) Send(_ context.Context, _ string, text string) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.next++
	a.sent = append(a.sent, text)
	return fmt.Sprintf("%s-%d", a.name, a.next), nil
}

func (a *scriptedAdapter) Edit(context.Context, string, string, string) error { return nil }

func (a *scriptedAdapter) React(context.Context, string, string, string) error { return nil }

func (a *scriptedAdapter) sentMessages() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]string(nil), a.sent...)
}

type staticSettings struct{}

func (staticSettings) User(_ context.Context, id string) (store.User, error) {
	return store.User{ID: id}, nil
}

func (staticSettings) Chat(_ context.Context, id string) (store.Chat, error) {
	return store.Chat{ID: id}, nil
}

type gatewayFixture struct {
	bus         *bus.MessageBus
	coordinator *interact.Coordinator
	router      *command.Router
}

func newGatewayFixture(t *testing.T) *gatewayFixture {
	t.Helper()

	mb := bus.NewMessageBus()
	t.Cleanup(mb.Close)

	coordinator := interact.NewCoordinator(
		interact.WithClock(clockwork.NewFakeClock()),
		interact.WithEvents(mb),
	)

	registry := command.NewRegistry()
	require.NoError(t, registry.Register(
		command.Command{
			Name: "echo",
			Run: func(ctx context.Context, req *command.Request) error {
				return req.Reply(ctx, req.Rest(0))
			},
		},
		command.Command{
			Name: "ask",
			Run: func(ctx context.Context, req *command.Request) error {
				answer, ok, err := coordinator.Input(ctx, req.Conv, interact.InputOptions{Prompt: "Name?"})
				if err != nil || !ok {
					return err
				}
				return req.Reply(ctx, "hello "+answer)
			},
		},
	))

	router, err := command.NewRouter(command.RouterConfig{
		Registry:      registry,
		Coordinator:   coordinator,
		Settings:      staticSettings{},
		DefaultPrefix: "!",
		Events:        mb,
	})
	require.NoError(t, err)

	return &gatewayFixture{bus: mb, coordinator: coordinator, router: router}
}

func (f *gatewayFixture) service(t *testing.T, gateway config.GatewayConfig, adapters ...channel.Adapter) *Service {
	t.Helper()
	svc, err := NewService(ServiceConfig{
		Gateway:    gateway,
		Bus:        f.bus,
		Dispatcher: f.router,
		Adapters:   adapters,
		Pending:    f.coordinator.Pending,
	})
	require.NoError(t, err)
	return svc
}

func message(channelName string, content string) bus.Inbound {
	return bus.Inbound{Message: &bus.InboundMessage{
		Channel:  channelName,
		ChatID:   "100",
		SenderID: "7",
		Content:  content,
	}}
}

func TestGatewayServiceRoutesRepliesToOriginatingChannel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	f := newGatewayFixture(t)
	telegram := &scriptedAdapter{
		name:    "telegram",
		inbound: []bus.Inbound{message("telegram", "!echo one"), message("telegram", "not a command")},
		done:    make(chan struct{}),
	}
	discord := &scriptedAdapter{
		name:    "discord",
		inbound: []bus.Inbound{message("discord", "!echo two")},
		done:    make(chan struct{}),
	}
	svc := f.service(t, config.GatewayConfig{Port: -1}, telegram, discord)

	errCh := make(chan error, 1)
	go func() {
		errCh <- svc.Run(ctx)
	}()

	require.Eventually(t, func() bool {
		return len(telegram.sentMessages()) == 1 && len(discord.sentMessages()) == 1
	}, 3*time.Second, 5*time.Millisecond)
	require.Equal(t, []string{"one"}, telegram.sentMessages())
	require.Equal(t, []string{"two"}, discord.sentMessages())

	require.Eventually(t, func() bool {
		status := svc.currentStatus("")
		return status.Inbound["ignored"] == 1 && status.Events[string(bus.EventCommandCompleted)] == 2
	}, 3*time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-errCh:
		require.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for service run to exit")
	}
}

func TestGatewayServiceFlowSeesFollowUpBeforeCommands(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	f := newGatewayFixture(t)
	adapter := &scriptedAdapter{
		name:    "telegram",
		inbound: []bus.Inbound{message("telegram", "!ask")},
		done:    make(chan struct{}),
	}
	svc := f.service(t, config.GatewayConfig{Port: -1}, adapter)

	errCh := make(chan error, 1)
	go func() {
		errCh <- svc.Run(ctx)
	}()

	require.Eventually(t, func() bool { return len(adapter.sentMessages()) == 1 }, 3*time.Second, 5*time.Millisecond)
	require.Contains(t, adapter.sentMessages()[0], "Name?")

	// A reply that looks like a command still belongs to the open prompt.
	svc.publish(ctx, message("telegram", "!echo ignored"))
	require.Eventually(t, func() bool { return len(adapter.sentMessages()) == 2 }, 3*time.Second, 5*time.Millisecond)
	require.Equal(t, "hello !echo ignored", adapter.sentMessages()[1])

	cancel()
	require.NoError(t, <-errCh)
}

func TestGatewayServiceStopsWhenChannelFails(t *testing.T) {
	f := newGatewayFixture(t)
	adapter := &scriptedAdapter{
		name:   "telegram",
		runErr: errors.New("token revoked"),
		done:   make(chan struct{}),
	}
	svc := f.service(t, config.GatewayConfig{Port: -1}, adapter)

	errCh := make(chan error, 1)
	go func() {
		errCh <- svc.Run(context.Background())
	}()

	select {
	case err := <-errCh:
		require.ErrorContains(t, err, "run telegram channel: token revoked")
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for service run to exit")
	}

	status := svc.currentStatus("")
	require.False(t, status.Channels["telegram"].Running)
	require.Equal(t, "token revoked", status.Channels["telegram"].Error)
}

func TestGatewayServiceReadyzReflectsRunningChannels(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	f := newGatewayFixture(t)
	adapter := &scriptedAdapter{name: "telegram", done: make(chan struct{})}
	port := freeTCPPort(t)
	svc := f.service(t, config.GatewayConfig{Host: "127.0.0.1", Port: port}, adapter)

	errCh := make(chan error, 1)
	go func() {
		errCh <- svc.Run(ctx)
	}()

	url := fmt.Sprintf("http://127.0.0.1:%d/readyz", port)
	require.Eventually(t, func() bool {
		response, err := http.Get(url)
		if err != nil {
			return false
		}
		defer response.Body.Close()

		var payload statusResponse
		if err := json.NewDecoder(response.Body).Decode(&payload); err != nil {
			return false
		}
		return response.StatusCode == http.StatusOK && payload.Status == "ready" && payload.Pending != nil
	}, 3*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-errCh:
		require.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for service run to exit")
	}
}

func freeTCPPort(t *testing.T) int {
	t.Helper()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer listener.Close()

	addr, ok := listener.Addr().(*net.TCPAddr)
	require.True(t, ok)
	return addr.Port
}

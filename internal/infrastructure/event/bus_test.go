package event

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/crm/backend/internal/domain/session"
	"github.com/crm/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type testHandler struct {
	mu         sync.Mutex
	eventTypes []string
	handled    []shared.DomainEvent
	err        error
	panics     bool
}

func newTestHandler(eventTypes ...string) *testHandler {
	return &testHandler{eventTypes: eventTypes}
}

func (h *testHandler) Handle(_ context.Context, event shared.DomainEvent) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.handled = append(h.handled, event)
	if h.panics {
		panic("boom")
	}
	return h.err
}

func (h *testHandler) EventTypes() []string { return h.eventTypes }

func (h *testHandler) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.handled)
}

func signedIn() shared.DomainEvent {
	return session.NewSignedInEvent(&session.Session{UserID: "user-1", Email: "jan@example.nl"})
}

func TestInMemoryEventBus_DeliversByType(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())
	require.NoError(t, bus.Start(context.Background()))

	in := newTestHandler(session.EventTypeSignedIn)
	out := newTestHandler(session.EventTypeSignedOut)
	all := newTestHandler()
	bus.Subscribe(in)
	bus.Subscribe(out)
	bus.Subscribe(all)

	require.NoError(t, bus.Publish(context.Background(), signedIn(), session.NewSignedOutEvent("user-1")))

	assert.Equal(t, 1, in.count())
	assert.Equal(t, 1, out.count())
	assert.Equal(t, 2, all.count())
	require.NoError(t, bus.Stop(context.Background()))
}

func startedBus(t *testing.T, log *zap.Logger) *InMemoryEventBus {
	t.Helper()
	bus := NewInMemoryEventBus(log)
	require.NoError(t, bus.Start(context.Background()))
	return bus
}

func TestInMemoryEventBus_ExplicitTypesOverrideHandler(t *testing.T) {
	bus := startedBus(t, nil)
	h := newTestHandler(session.EventTypeSignedIn)
	bus.Subscribe(h, session.EventTypeSignedOut)

	require.NoError(t, bus.Publish(context.Background(), signedIn()))
	assert.Equal(t, 0, h.count())
}

func TestInMemoryEventBus_FailuresAreIsolated(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	bus := startedBus(t, zap.New(core))

	failing := newTestHandler(session.EventTypeSignedIn)
	failing.err = errors.New("handler error")
	panicking := newTestHandler(session.EventTypeSignedIn)
	panicking.panics = true
	healthy := newTestHandler(session.EventTypeSignedIn)

	bus.Subscribe(failing)
	bus.Subscribe(panicking)
	bus.Subscribe(healthy)

	assert.NoError(t, bus.Publish(context.Background(), signedIn()))
	assert.Equal(t, 1, healthy.count())
	assert.Equal(t, int64(2), bus.Failures())
	assert.Equal(t, 2, logs.FilterMessage("Event handler failed").Len())
}

func TestInMemoryEventBus_Unsubscribe(t *testing.T) {
	bus := startedBus(t, nil)
	h := newTestHandler(session.EventTypeSignedIn, session.EventTypeSignedOut)
	bus.Subscribe(h)
	bus.Unsubscribe(h)

	require.NoError(t, bus.Publish(context.Background(), signedIn()))
	assert.Equal(t, 0, h.count())
	assert.Empty(t, bus.registry.Handlers(session.EventTypeSignedOut))
}

func TestInMemoryEventBus_RejectsWhenStopped(t *testing.T) {
	bus := NewInMemoryEventBus(nil)
	h := newTestHandler(session.EventTypeSignedIn)
	bus.Subscribe(h)

	assert.ErrorIs(t, bus.Publish(context.Background(), signedIn()), ErrBusStopped)

	require.NoError(t, bus.Start(context.Background()))
	require.NoError(t, bus.Publish(context.Background(), signedIn()))
	require.NoError(t, bus.Stop(context.Background()))
	assert.ErrorIs(t, bus.Publish(context.Background(), signedIn()), ErrBusStopped)
	assert.Equal(t, 1, h.count())
}

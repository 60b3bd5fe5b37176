package event

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rai1001/ChefOsv2-sub002/internal/domain/ledger"
	"github.com/rai1001/ChefOsv2-sub002/internal/domain/shared"
	"github.com/rai1001/ChefOsv2-sub002/internal/domain/shared/valueobject"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func depletedEvent() shared.DomainEvent {
	b := &ledger.Batch{IngredientID: uuid.New(), OutletID: uuid.New()}
	b.ID = uuid.New()
	return ledger.NewBatchDepletedEvent(b, time.Now())
}

func shortfallEvent() shared.DomainEvent {
	kg := valueobject.MustNewQuantityFromString("5", valueobject.Kilogram)
	return ledger.NewConsumptionShortfallEvent(uuid.New(), uuid.New(), kg, kg, time.Now())
}

// testHandler records the events it receives
type testHandler struct {
	eventTypes []string
	handled    []shared.DomainEvent
	err        error
	mu         sync.Mutex
}

func newTestHandler(eventTypes ...string) *testHandler {
	return &testHandler{eventTypes: eventTypes}
}

func (h *testHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.handled = append(h.handled, event)
	return h.err
}

func (h *testHandler) EventTypes() []string {
	return h.eventTypes
}

func (h *testHandler) setError(err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.err = err
}

func (h *testHandler) getHandled() []shared.DomainEvent {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]shared.DomainEvent(nil), h.handled...)
}

type panicHandler struct{}

func (panicHandler) Handle(context.Context, shared.DomainEvent) error { panic("boom") }
func (panicHandler) EventTypes() []string                            { return nil }

func TestInMemoryEventBus_Publish(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())

	handler := newTestHandler(ledger.EventTypeBatchDepleted)
	bus.Subscribe(handler)

	event := depletedEvent()
	require.NoError(t, bus.Publish(context.Background(), event, shortfallEvent()))

	handled := handler.getHandled()
	require.Len(t, handled, 1)
	assert.Equal(t, event, handled[0])
}

func TestInMemoryEventBus_Publish_WildcardHandler(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())

	wildcard := newTestHandler()
	bus.Subscribe(wildcard)

	require.NoError(t, bus.Publish(context.Background(), depletedEvent(), shortfallEvent()))
	assert.Len(t, wildcard.getHandled(), 2)
}

func TestInMemoryEventBus_Publish_HandlerFailuresAreIsolated(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())

	failing := newTestHandler(ledger.EventTypeBatchDepleted)
	failing.setError(errors.New("handler error"))
	healthy := newTestHandler(ledger.EventTypeBatchDepleted)
	bus.Subscribe(failing)
	bus.Subscribe(panicHandler{}, ledger.EventTypeBatchDepleted)
	bus.Subscribe(healthy)

	require.NoError(t, bus.Publish(context.Background(), depletedEvent()))
	assert.Len(t, failing.getHandled(), 1)
	assert.Len(t, healthy.getHandled(), 1)
}

func TestInMemoryEventBus_Unsubscribe(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())

	handler := newTestHandler(ledger.EventTypeBatchDepleted)
	bus.Subscribe(handler)
	_ = bus.Publish(context.Background(), depletedEvent())

	bus.Unsubscribe(handler)
	_ = bus.Publish(context.Background(), depletedEvent())

	assert.Len(t, handler.getHandled(), 1)
}

func TestInMemoryEventBus_AsyncDispatchDrainsOnStop(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop(), WithAsyncDispatch(16))
	handler := newTestHandler(ledger.EventTypeBatchDepleted)
	bus.Subscribe(handler)

	require.NoError(t, bus.Start(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	for i := 0; i < 10; i++ {
		require.NoError(t, bus.Publish(ctx, depletedEvent()))
	}
	// queued events survive the publishing request
	cancel()

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer stopCancel()
	require.NoError(t, bus.Stop(stopCtx))
	assert.Len(t, handler.getHandled(), 10)

	// a stopped bus falls back to synchronous delivery
	require.NoError(t, bus.Start(context.Background()))
	require.NoError(t, bus.Publish(context.Background(), depletedEvent()))
	assert.Len(t, handler.getHandled(), 11)
}

func TestInMemoryEventBus_SyncStartStop(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())
	handler := newTestHandler(ledger.EventTypeBatchDepleted)
	bus.Subscribe(handler)

	require.NoError(t, bus.Start(context.Background()))
	require.NoError(t, bus.Publish(context.Background(), depletedEvent()))
	assert.Len(t, handler.getHandled(), 1)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, bus.Stop(ctx))
	require.NoError(t, bus.Stop(ctx))
}

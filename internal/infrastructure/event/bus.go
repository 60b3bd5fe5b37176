// Package event delivers ledger domain events to in-process handlers
// after the unit of work that raised them has committed.
package event

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/rai1001/ChefOsv2-sub002/internal/domain/shared"
	"go.uber.org/zap"
)

// InMemoryEventBus implements EventBus with in-memory pub/sub.
// Delivery is synchronous unless WithAsyncDispatch is set, in which case
// Publish queues events for a worker started by Start.
type InMemoryEventBus struct {
	registry *HandlerRegistry
	logger   *zap.Logger
	running  atomic.Bool
	wg       sync.WaitGroup

	// mu orders enqueues against closing the queue in Stop
	mu      sync.RWMutex
	stopped bool
	queue   chan queuedEvent
	dropped atomic.Int64
}

type queuedEvent struct {
	ctx   context.Context
	event shared.DomainEvent
}

// BusOption configures an InMemoryEventBus
type BusOption func(*InMemoryEventBus)

// WithAsyncDispatch queues up to buffer events and delivers them off the caller's goroutine
func WithAsyncDispatch(buffer int) BusOption {
	return func(b *InMemoryEventBus) {
		if buffer > 0 {
			b.queue = make(chan queuedEvent, buffer)
		}
	}
}

// NewInMemoryEventBus creates a new in-memory event bus
func NewInMemoryEventBus(logger *zap.Logger, opts ...BusOption) *InMemoryEventBus {
	b := &InMemoryEventBus{
		registry: NewHandlerRegistry(),
		logger:   logger,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Publish delivers events to their handlers. Handler failures are logged
// and never returned: the stock movement has already been committed.
func (b *InMemoryEventBus) Publish(ctx context.Context, events ...shared.DomainEvent) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, event := range events {
		if b.queue != nil && b.running.Load() {
			b.enqueue(ctx, event)
			continue
		}
		b.deliver(ctx, event)
	}
	return nil
}

func (b *InMemoryEventBus) enqueue(ctx context.Context, event shared.DomainEvent) {
	// handlers outlive the request that raised the event
	qe := queuedEvent{ctx: context.WithoutCancel(ctx), event: event}
	select {
	case b.queue <- qe:
	default:
		b.dropped.Add(1)
		b.logger.Warn("event queue full, delivering inline",
			zap.String("event_type", event.EventType()),
			zap.String("event_id", event.EventID().String()),
		)
		b.deliver(ctx, event)
	}
}

func (b *InMemoryEventBus) deliver(ctx context.Context, event shared.DomainEvent) {
	for _, handler := range b.registry.GetHandlers(event.EventType()) {
		if err := b.dispatchToHandler(ctx, handler, event); err != nil {
			// Log error but continue with other handlers
			b.logger.Error("handler failed to process event",
				zap.String("event_type", event.EventType()),
				zap.String("event_id", event.EventID().String()),
				zap.String("aggregate_id", event.AggregateID().String()),
				zap.Error(err),
			)
		}
	}
}

// Subscribe registers a handler for specific event types
func (b *InMemoryEventBus) Subscribe(handler shared.EventHandler, eventTypes ...string) {
	// If handler specifies its own event types, use those
	if len(eventTypes) == 0 {
		eventTypes = handler.EventTypes()
	}
	b.registry.Register(handler, eventTypes...)
	b.logger.Debug("handler subscribed",
		zap.Strings("event_types", eventTypes),
	)
}

// Unsubscribe removes a handler
func (b *InMemoryEventBus) Unsubscribe(handler shared.EventHandler) {
	b.registry.Unregister(handler)
	b.logger.Debug("handler unsubscribed")
}

// Start starts the dispatch worker when the bus is asynchronous.
// A stopped bus keeps delivering synchronously and cannot be restarted.
func (b *InMemoryEventBus) Start(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.stopped || !b.running.CompareAndSwap(false, true) {
		return nil
	}
	if b.queue != nil {
		b.wg.Add(1)
		go b.worker()
	}
	b.logger.Info("event bus started", zap.Bool("async", b.queue != nil))
	return nil
}

func (b *InMemoryEventBus) worker() {
	defer b.wg.Done()
	for qe := range b.queue {
		b.deliver(qe.ctx, qe.event)
	}
}

// Stop stops accepting queued events and waits for the queue to drain,
// or for ctx to end
func (b *InMemoryEventBus) Stop(ctx context.Context) error {
	b.mu.Lock()
	if !b.running.CompareAndSwap(true, false) {
		b.mu.Unlock()
		return nil
	}
	b.stopped = true
	if b.queue == nil {
		b.mu.Unlock()
		b.logger.Info("event bus stopped")
		return nil
	}
	close(b.queue)
	b.mu.Unlock()

	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		b.logger.Info("event bus stopped", zap.Int64("dropped_to_inline", b.dropped.Load()))
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// dispatchToHandler safely dispatches an event to a handler
func (b *InMemoryEventBus) dispatchToHandler(ctx context.Context, handler shared.EventHandler, event shared.DomainEvent) (err error) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("handler panicked",
				zap.String("event_type", event.EventType()),
				zap.Any("panic", r),
			)
		}
	}()

	return handler.Handle(ctx, event)
}

// Ensure InMemoryEventBus implements EventBus
var _ shared.EventBus = (*InMemoryEventBus)(nil)

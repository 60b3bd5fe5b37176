package ledger

import (
	"context"
	"time"

	"github.com/rai1001/ChefOsv2-sub002/internal/domain/shared"
	"github.com/rai1001/ChefOsv2-sub002/internal/domain/shared/valueobject"
	"go.uber.org/zap"
)

const (
	// DefaultOperationTimeout bounds each storage round trip
	DefaultOperationTimeout = 5 * time.Second
	// DefaultReceiptConcurrency bounds the purchase-order lines received in parallel
	DefaultReceiptConcurrency = 4
)

// settings is shared by every ledger service
type settings struct {
	logger             *zap.Logger
	now                func() time.Time
	publisher          shared.EventPublisher
	retry              RetryPolicy
	operationTimeout   time.Duration
	currency           valueobject.Currency
	receiptConcurrency int
	idempotencyTTL     time.Duration
}

func newSettings(opts []Option) settings {
	s := settings{
		logger:             zap.NewNop(),
		now:                time.Now,
		retry:              DefaultRetryPolicy(),
		operationTimeout:   DefaultOperationTimeout,
		currency:           valueobject.DefaultCurrency,
		receiptConcurrency: DefaultReceiptConcurrency,
		idempotencyTTL:     shared.DefaultIdempotencyTTL,
	}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

// Option configures a ledger service
type Option func(*settings)

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(s *settings) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock overrides the time source
func WithClock(now func() time.Time) Option {
	return func(s *settings) {
		if now != nil {
			s.now = now
		}
	}
}

// WithEventPublisher sets where domain events go after commit
func WithEventPublisher(publisher shared.EventPublisher) Option {
	return func(s *settings) {
		s.publisher = publisher
	}
}

// WithRetryPolicy sets the optimistic concurrency retry policy
func WithRetryPolicy(policy RetryPolicy) Option {
	return func(s *settings) {
		s.retry = policy.normalized()
	}
}

// WithOperationTimeout bounds each operation's storage work. Zero disables it.
func WithOperationTimeout(d time.Duration) Option {
	return func(s *settings) {
		s.operationTimeout = d
	}
}

// WithCurrency sets the currency batches are costed in
func WithCurrency(c valueobject.Currency) Option {
	return func(s *settings) {
		if c.IsValid() {
			s.currency = c
		}
	}
}

// WithReceiptConcurrency bounds parallel receipt lines
func WithReceiptConcurrency(n int) Option {
	return func(s *settings) {
		if n > 0 {
			s.receiptConcurrency = n
		}
	}
}

// WithIdempotencyTTL sets how long receipt keys are remembered
func WithIdempotencyTTL(ttl time.Duration) Option {
	return func(s *settings) {
		if ttl > 0 {
			s.idempotencyTTL = ttl
		}
	}
}

func (s settings) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.operationTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.operationTimeout)
}

func (s settings) clock() time.Time {
	return s.now().UTC()
}

// publish delivers events best effort; a failure never undoes the commit
func (s settings) publish(ctx context.Context, events ...shared.DomainEvent) {
	if s.publisher == nil || len(events) == 0 {
		return
	}
	if err := s.publisher.Publish(ctx, events...); err != nil {
		s.logger.Warn("Failed to publish ledger events",
			zap.Int("count", len(events)),
			zap.Error(err),
		)
	}
}

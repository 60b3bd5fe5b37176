// Package docstore provides a Redis-backed ledger backend.
//
// Each batch, transaction and ingredient is stored as a JSON document.
// Sorted sets index active batches per ingredient and outlet, dated batches
// per outlet, and transaction history per ingredient and per batch.
// A unit of work buffers its writes and commits them in one MULTI/EXEC
// guarded by WATCH on every batch it touched.
package docstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rai1001/ChefOsv2-sub002/internal/domain/ledger"
	"github.com/rai1001/ChefOsv2-sub002/internal/domain/shared"
	"github.com/rai1001/ChefOsv2-sub002/internal/infrastructure/telemetry"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/trace"
)

const defaultKeyPrefix = "ledger:"

// Store is the document-store ledger.Store
type Store struct {
	client redis.UniversalClient
	prefix string
	now    func() time.Time
}

// Option configures a Store
type Option func(*Store)

// WithKeyPrefix sets the prefix of every key the store writes
func WithKeyPrefix(prefix string) Option {
	return func(s *Store) {
		if prefix != "" {
			s.prefix = prefix
		}
	}
}

// WithClock overrides the clock used for updated_at stamps
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// NewStore creates a Store over an existing client. The caller owns the client.
func NewStore(client redis.UniversalClient, opts ...Option) *Store {
	s := &Store{client: client, prefix: defaultKeyPrefix, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) batchKey(id uuid.UUID) string {
	return s.prefix + "batch:" + id.String()
}

func (s *Store) activeKey(ingredientID, outletID uuid.UUID) string {
	return s.prefix + "active:" + ingredientID.String() + ":" + outletID.String()
}

func (s *Store) expiryKey(outletID uuid.UUID) string {
	return s.prefix + "expiry:" + outletID.String()
}

func (s *Store) transactionKey(id uuid.UUID) string {
	return s.prefix + "tx:" + id.String()
}

func (s *Store) historyKey(ingredientID uuid.UUID) string {
	return s.prefix + "history:" + ingredientID.String()
}

func (s *Store) outletHistoryKey(ingredientID, outletID uuid.UUID) string {
	return s.prefix + "history:" + ingredientID.String() + ":" + outletID.String()
}

func (s *Store) batchHistoryKey(batchID uuid.UUID) string {
	return s.prefix + "batch-tx:" + batchID.String()
}

func (s *Store) ingredientKey(ingredientID, outletID uuid.UUID) string {
	return s.prefix + "ingredient:" + ingredientID.String() + ":" + outletID.String()
}

// Execute runs fn against a buffered unit of work and commits its writes
// atomically. A concurrent change to any batch fn read or wrote fails the
// commit with shared.ErrVersionConflict.
func (s *Store) Execute(ctx context.Context, fn func(repos ledger.Repositories) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	uow := newUnitOfWork(s)
	if err := fn(uow); err != nil {
		return err
	}
	if uow.isEmpty() {
		return nil
	}

	ctx, span := telemetry.StartSpan(ctx, "docstore.commit",
		telemetry.WithSpanKind(trace.SpanKindClient),
		telemetry.WithAttribute(telemetry.SpanAttrBatchCount, len(uow.batches)),
		telemetry.WithAttribute(telemetry.SpanAttrTxCount, len(uow.transactions)),
	)
	defer span.End()

	err := uow.commit(ctx)
	telemetry.RecordError(span, err)
	return err
}

// Batches returns the batch repository outside any unit of work
func (s *Store) Batches() ledger.BatchRepository {
	return &liveBatches{store: s}
}

// Transactions returns the transaction repository outside any unit of work
func (s *Store) Transactions() ledger.StockTransactionRepository {
	return &liveTransactions{store: s}
}

// Ingredients returns the ingredient catalog
func (s *Store) Ingredients() ledger.IngredientCatalog {
	return &ingredientCatalog{store: s}
}

// Ping checks the connection
func (s *Store) Ping(ctx context.Context) error {
	return translateError(s.client.Ping(ctx).Err())
}

// getter is satisfied by both the client and a WATCH transaction
type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func (s *Store) loadBatch(ctx context.Context, g getter, id uuid.UUID) (*ledger.Batch, error) {
	raw, err := g.Get(ctx, s.batchKey(id)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, shared.Errorf(shared.ErrBatchNotFound, "batch %s not found", id)
	}
	if err != nil {
		return nil, translateError(err)
	}
	return decodeBatch(raw)
}

// loadBatches resolves index members to batch documents, skipping members
// whose document is gone
func (s *Store) loadBatches(ctx context.Context, members []string) ([]ledger.Batch, error) {
	if len(members) == 0 {
		return nil, nil
	}
	keys := make([]string, 0, len(members))
	for _, m := range members {
		id, err := uuid.Parse(m)
		if err != nil {
			return nil, fmt.Errorf("corrupt batch index member %q: %w", m, err)
		}
		keys = append(keys, s.batchKey(id))
	}
	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, translateError(err)
	}
	out := make([]ledger.Batch, 0, len(values))
	for _, v := range values {
		raw, ok := v.(string)
		if !ok {
			continue
		}
		b, err := decodeBatch(raw)
		if err != nil {
			return nil, err
		}
		out = append(out, *b)
	}
	return out, nil
}

func (s *Store) activeBatches(ctx context.Context, ingredientID, outletID uuid.UUID) ([]ledger.Batch, error) {
	members, err := s.client.ZRange(ctx, s.activeKey(ingredientID, outletID), 0, -1).Result()
	if err != nil {
		return nil, translateError(err)
	}
	return s.loadBatches(ctx, members)
}

func (s *Store) expiringBatches(ctx context.Context, outletID uuid.UUID, days int, asOf time.Time) ([]ledger.Batch, error) {
	threshold := asOf.UTC().AddDate(0, 0, days)
	members, err := s.client.ZRangeByScore(ctx, s.expiryKey(outletID), &redis.ZRangeBy{
		Min: "-inf",
		Max: fmt.Sprintf("%d", threshold.Unix()),
	}).Result()
	if err != nil {
		return nil, translateError(err)
	}
	return s.loadBatches(ctx, members)
}

// loadTransactions resolves history members to transaction documents
func (s *Store) loadTransactions(ctx context.Context, members []string) ([]ledger.StockTransaction, error) {
	if len(members) == 0 {
		return nil, nil
	}
	keys := make([]string, 0, len(members))
	for _, m := range members {
		id, err := uuid.Parse(m)
		if err != nil {
			return nil, fmt.Errorf("corrupt history member %q: %w", m, err)
		}
		keys = append(keys, s.transactionKey(id))
	}
	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, translateError(err)
	}
	out := make([]ledger.StockTransaction, 0, len(values))
	for _, v := range values {
		raw, ok := v.(string)
		if !ok {
			continue
		}
		tx, err := decodeTransaction(raw)
		if err != nil {
			return nil, err
		}
		out = append(out, *tx)
	}
	return out, nil
}

// translateError maps client failures onto domain errors
func translateError(err error) error {
	if err == nil {
		return nil
	}
	var domainErr *shared.DomainError
	if errors.As(err, &domainErr) {
		return err
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	if errors.Is(err, redis.Nil) {
		return shared.Errorf(shared.ErrNotFound, "document not found")
	}
	if errors.Is(err, redis.TxFailedErr) {
		return shared.Errorf(shared.ErrVersionConflict, "watched batch changed before commit")
	}
	return shared.Errorf(shared.ErrRepositoryUnavailable, "redis: %v", err)
}

var _ ledger.Store = (*Store)(nil)

package ledger

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rai1001/ChefOsv2-sub002/internal/domain/ledger"
	"github.com/rai1001/ChefOsv2-sub002/internal/domain/shared"
	"github.com/rai1001/ChefOsv2-sub002/internal/domain/shared/valueobject"
	"github.com/rai1001/ChefOsv2-sub002/internal/infrastructure/persistence/memory"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2025, 1, 10, 9, 0, 0, 0, time.UTC)

// MockEventPublisher is a mock implementation of shared.EventPublisher
type MockEventPublisher struct {
	mu     sync.Mutex
	events []shared.DomainEvent
}

func NewMockEventPublisher() *MockEventPublisher {
	return &MockEventPublisher{
		events: make([]shared.DomainEvent, 0),
	}
}

func (m *MockEventPublisher) Publish(ctx context.Context, events ...shared.DomainEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, events...)
	return nil
}

func (m *MockEventPublisher) GetEventsByType(eventType string) []shared.DomainEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]shared.DomainEvent, 0)
	for _, e := range m.events {
		if e.EventType() == eventType {
			result = append(result, e)
		}
	}
	return result
}

// MockBatchRepository is a mock implementation of ledger.BatchRepository
type MockBatchRepository struct {
	mock.Mock
}

func (m *MockBatchRepository) FindByID(ctx context.Context, id uuid.UUID) (*ledger.Batch, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.Batch), args.Error(1)
}

func (m *MockBatchRepository) FindActiveBatchesOrderedByExpiry(ctx context.Context, ingredientID, outletID uuid.UUID) ([]ledger.Batch, error) {
	args := m.Called(ctx, ingredientID, outletID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]ledger.Batch), args.Error(1)
}

func (m *MockBatchRepository) FindBatchesExpiringWithin(ctx context.Context, outletID uuid.UUID, days int, asOf time.Time) ([]ledger.Batch, error) {
	args := m.Called(ctx, outletID, days, asOf)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]ledger.Batch), args.Error(1)
}

func (m *MockBatchRepository) Create(ctx context.Context, batch *ledger.Batch) error {
	args := m.Called(ctx, batch)
	return args.Error(0)
}

func (m *MockBatchRepository) ApplyConsumption(ctx context.Context, batchID uuid.UUID, newRemaining valueobject.Quantity, newStatus ledger.BatchStatus, expectedVersion int) (*ledger.Batch, error) {
	args := m.Called(ctx, batchID, newRemaining, newStatus, expectedVersion)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.Batch), args.Error(1)
}

func (m *MockBatchRepository) DeleteDepleted(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// conflictingStore fails every ApplyConsumption after the first pass calls
// with a version conflict, as if another process always got there first
type conflictingStore struct {
	*memory.Store
	pass     int32
	attempts int32
}

func (s *conflictingStore) Execute(ctx context.Context, fn func(repos ledger.Repositories) error) error {
	return s.Store.Execute(ctx, func(repos ledger.Repositories) error {
		return fn(conflictingRepos{Repositories: repos, store: s})
	})
}

type conflictingRepos struct {
	ledger.Repositories
	store *conflictingStore
}

func (r conflictingRepos) Batches() ledger.BatchRepository {
	return conflictingBatches{BatchRepository: r.Repositories.Batches(), store: r.store}
}

type conflictingBatches struct {
	ledger.BatchRepository
	store *conflictingStore
}

func (b conflictingBatches) ApplyConsumption(ctx context.Context, batchID uuid.UUID, newRemaining valueobject.Quantity, newStatus ledger.BatchStatus, expectedVersion int) (*ledger.Batch, error) {
	if n := atomic.AddInt32(&b.store.attempts, 1); n <= b.store.pass {
		return b.BatchRepository.ApplyConsumption(ctx, batchID, newRemaining, newStatus, expectedVersion)
	}
	return nil, shared.ErrVersionConflict
}

// tickingClock advances one second per reading so records get distinct times
type tickingClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *tickingClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(time.Second)
	return c.t
}

type fixture struct {
	store    *memory.Store
	ledger   *BatchLedger
	recorder *TransactionRecorder
	events   *MockEventPublisher
	clock    *tickingClock
	ing      *ledger.Ingredient
	outlet   uuid.UUID
}

func fastRetry() RetryPolicy {
	return RetryPolicy{MaxAttempts: 5, BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond}
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	store := memory.NewStore()
	return newFixtureWithStore(t, store, store, opts...)
}

func newFixtureWithStore(t *testing.T, mem *memory.Store, store ledger.Store, opts ...Option) *fixture {
	t.Helper()
	f := &fixture{
		store:  mem,
		events: NewMockEventPublisher(),
		clock:  &tickingClock{t: testNow},
		outlet: uuid.New(),
	}
	all := append([]Option{
		WithClock(f.clock.Now),
		WithEventPublisher(f.events),
		WithRetryPolicy(fastRetry()),
	}, opts...)
	f.ledger = NewBatchLedger(store, all...)
	f.recorder = NewTransactionRecorder(store, all...)

	ing, err := f.ledger.RegisterIngredient(context.Background(), RegisterIngredientRequest{
		OutletID:      f.outlet,
		Name:          "Flour",
		CanonicalUnit: "kg",
	})
	require.NoError(t, err)
	f.ing = ing
	return f
}

func kg(v string) valueobject.Quantity {
	return valueobject.MustNewQuantityFromString(v, valueobject.Kilogram)
}

func eur(minor int64) valueobject.Money {
	return valueobject.MustNewMoney(minor, valueobject.EUR)
}

func day(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

func (f *fixture) receive(t *testing.T, qty string, expiry *time.Time, lot string) *ledger.Batch {
	t.Helper()
	b, err := f.ledger.CreateBatch(context.Background(), CreateBatchRequest{
		IngredientID: f.ing.ID,
		OutletID:     f.outlet,
		LotNumber:    lot,
		Quantity:     kg(qty),
		UnitCost:     eur(250),
		ExpiryDate:   expiry,
	})
	require.NoError(t, err)
	return b
}

func (f *fixture) consume(t *testing.T, qty string) *ConsumeResult {
	t.Helper()
	res, err := f.ledger.Consume(context.Background(), ConsumeRequest{
		IngredientID: f.ing.ID,
		OutletID:     f.outlet,
		Quantity:     kg(qty),
	})
	require.NoError(t, err)
	return res
}

func (f *fixture) batch(t *testing.T, id uuid.UUID) *ledger.Batch {
	t.Helper()
	b, err := f.store.Batches().FindByID(context.Background(), id)
	require.NoError(t, err)
	return b
}

// transactionSum adds up the signed quantities recorded against a batch
func (f *fixture) transactionSum(t *testing.T, batchID uuid.UUID) valueobject.Quantity {
	t.Helper()
	txs, err := f.store.Transactions().FindByBatch(context.Background(), batchID)
	require.NoError(t, err)
	sum := valueobject.ZeroQuantity(valueobject.Kilogram)
	for _, tx := range txs {
		sum, err = sum.Add(tx.Quantity)
		require.NoError(t, err)
	}
	return sum
}

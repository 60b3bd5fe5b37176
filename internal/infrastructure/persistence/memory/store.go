// Package memory provides an in-process ledger backend.
// It is used by tests and by the server when ledger.backend = "memory".
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rai1001/ChefOsv2-sub002/internal/domain/ledger"
	"github.com/rai1001/ChefOsv2-sub002/internal/domain/shared"
	"github.com/rai1001/ChefOsv2-sub002/internal/domain/shared/valueobject"
)

type ingredientKey struct {
	id       uuid.UUID
	outletID uuid.UUID
}

type state struct {
	batches      map[uuid.UUID]ledger.Batch
	transactions []ledger.StockTransaction
	ingredients  map[ingredientKey]ledger.Ingredient
}

func newState() *state {
	return &state{
		batches:     map[uuid.UUID]ledger.Batch{},
		ingredients: map[ingredientKey]ledger.Ingredient{},
	}
}

// unitOfWork writes to the live state and keeps what it needs to undo:
// the log length at the start and the first seen copy of each touched batch.
// The transaction log is append-only, so truncating it is enough.
type unitOfWork struct {
	state  *state
	txLen  int
	before map[uuid.UUID]*ledger.Batch
}

func newUnitOfWork(st *state) *unitOfWork {
	return &unitOfWork{state: st, txLen: len(st.transactions), before: map[uuid.UUID]*ledger.Batch{}}
}

// remember saves the batch as it was before this unit of work first changed
// it; nil marks a batch that did not exist
func (u *unitOfWork) remember(id uuid.UUID) {
	if _, seen := u.before[id]; seen {
		return
	}
	if b, ok := u.state.batches[id]; ok {
		u.before[id] = &b
		return
	}
	u.before[id] = nil
}

func (u *unitOfWork) rollback() {
	clear(u.state.transactions[u.txLen:])
	u.state.transactions = u.state.transactions[:u.txLen]
	for id, b := range u.before {
		if b == nil {
			delete(u.state.batches, id)
			continue
		}
		u.state.batches[id] = *b
	}
}

// Store keeps all ledger data in maps guarded by a single RWMutex.
// A unit of work holds the write lock and is undone if it fails.
type Store struct {
	mu    sync.RWMutex
	state *state
	now   func() time.Time
}

// NewStore creates an empty store
func NewStore() *Store {
	return &Store{state: newState(), now: time.Now}
}

// WithClock overrides the clock used for updated_at stamps
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

// Batches returns the batch repository over the live state
func (s *Store) Batches() ledger.BatchRepository {
	return &batchRepository{store: s}
}

// Transactions returns the transaction repository over the live state
func (s *Store) Transactions() ledger.StockTransactionRepository {
	return &transactionRepository{store: s}
}

// Ingredients returns the ingredient catalog
func (s *Store) Ingredients() ledger.IngredientCatalog {
	return &ingredientCatalog{store: s}
}

// Execute runs fn under the write lock and undoes its writes if it fails
func (s *Store) Execute(ctx context.Context, fn func(repos ledger.Repositories) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	uow := newUnitOfWork(s.state)
	committed := false
	defer func() {
		if !committed {
			uow.rollback()
		}
	}()

	if err := fn(&txRepositories{store: s, uow: uow}); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	committed = true
	return nil
}

type txRepositories struct {
	store *Store
	uow   *unitOfWork
}

func (r *txRepositories) Batches() ledger.BatchRepository {
	return &batchRepository{store: r.store, bound: r.uow}
}

func (r *txRepositories) Transactions() ledger.StockTransactionRepository {
	return &transactionRepository{store: r.store, bound: r.uow}
}

// view runs fn inside the bound unit of work, or on the live state under lock
func (s *Store) view(bound *unitOfWork, write bool, fn func(st *state) error) error {
	if bound != nil {
		return fn(bound.state)
	}
	if write {
		s.mu.Lock()
		defer s.mu.Unlock()
	} else {
		s.mu.RLock()
		defer s.mu.RUnlock()
	}
	return fn(s.state)
}

type batchRepository struct {
	store *Store
	bound *unitOfWork
}

func (r *batchRepository) remember(id uuid.UUID) {
	if r.bound != nil {
		r.bound.remember(id)
	}
}

func stored(b ledger.Batch) ledger.Batch {
	b.ClearDomainEvents()
	return b
}

func (r *batchRepository) FindByID(ctx context.Context, id uuid.UUID) (*ledger.Batch, error) {
	var out *ledger.Batch
	err := r.store.view(r.bound, false, func(st *state) error {
		b, ok := st.batches[id]
		if !ok {
			return shared.Errorf(shared.ErrBatchNotFound, "batch %s not found", id)
		}
		out = &b
		return nil
	})
	return out, err
}

func (r *batchRepository) FindActiveBatchesOrderedByExpiry(ctx context.Context, ingredientID, outletID uuid.UUID) ([]ledger.Batch, error) {
	var out []ledger.Batch
	err := r.store.view(r.bound, false, func(st *state) error {
		for _, b := range st.batches {
			if b.IngredientID == ingredientID && b.OutletID == outletID && b.IsActive() {
				out = append(out, b)
			}
		}
		return nil
	})
	ledger.SortFIFO(out)
	return out, err
}

func (r *batchRepository) FindBatchesExpiringWithin(ctx context.Context, outletID uuid.UUID, days int, asOf time.Time) ([]ledger.Batch, error) {
	var out []ledger.Batch
	err := r.store.view(r.bound, false, func(st *state) error {
		for _, b := range st.batches {
			if b.OutletID == outletID && b.IsActive() && b.ExpiresWithin(asOf, days) {
				out = append(out, b)
			}
		}
		return nil
	})
	ledger.SortFIFO(out)
	return out, err
}

func (r *batchRepository) Create(ctx context.Context, batch *ledger.Batch) error {
	return r.store.view(r.bound, true, func(st *state) error {
		if _, exists := st.batches[batch.ID]; exists {
			return shared.Errorf(shared.ErrInvalidState, "batch %s already exists", batch.ID)
		}
		r.remember(batch.ID)
		st.batches[batch.ID] = stored(*batch)
		return nil
	})
}

func (r *batchRepository) ApplyConsumption(ctx context.Context, batchID uuid.UUID, newRemaining valueobject.Quantity, newStatus ledger.BatchStatus, expectedVersion int) (*ledger.Batch, error) {
	var out *ledger.Batch
	err := r.store.view(r.bound, true, func(st *state) error {
		b, ok := st.batches[batchID]
		if !ok {
			return shared.Errorf(shared.ErrBatchNotFound, "batch %s not found", batchID)
		}
		if b.Version != expectedVersion {
			return shared.Errorf(shared.ErrVersionConflict,
				"batch %s is at version %d, expected %d", batchID, b.Version, expectedVersion)
		}
		if newRemaining.Unit() != b.Unit() {
			return shared.Errorf(shared.ErrIncompatibleUnits,
				"batch %s is kept in %s, got %s", batchID, b.Unit(), newRemaining.Unit())
		}
		r.remember(batchID)
		b.RemainingQuantity = newRemaining
		b.Status = newStatus
		b.Version++
		b.Touch(r.store.now().UTC())
		st.batches[batchID] = b
		out = &b
		return nil
	})
	return out, err
}

func (r *batchRepository) DeleteDepleted(ctx context.Context, id uuid.UUID) error {
	return r.store.view(r.bound, true, func(st *state) error {
		b, ok := st.batches[id]
		if !ok {
			return shared.Errorf(shared.ErrBatchNotFound, "batch %s not found", id)
		}
		if b.HasStock() {
			return shared.Errorf(shared.ErrInvalidState, "batch %s still holds %s", id, b.RemainingQuantity)
		}
		r.remember(id)
		delete(st.batches, id)
		return nil
	})
}

type transactionRepository struct {
	store *Store
	bound *unitOfWork
}

func (r *transactionRepository) Append(ctx context.Context, tx *ledger.StockTransaction) error {
	return r.store.view(r.bound, true, func(st *state) error {
		st.transactions = append(st.transactions, *tx)
		return nil
	})
}

func (r *transactionRepository) FindByIngredient(ctx context.Context, ingredientID uuid.UUID, outletID *uuid.UUID, limit int) ([]ledger.StockTransaction, error) {
	var out []ledger.StockTransaction
	_ = r.store.view(r.bound, false, func(st *state) error {
		for _, tx := range st.transactions {
			if tx.IngredientID != ingredientID {
				continue
			}
			if outletID != nil && tx.OutletID != *outletID {
				continue
			}
			out = append(out, tx)
		}
		return nil
	})
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.After(out[j].Date)
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *transactionRepository) FindByBatch(ctx context.Context, batchID uuid.UUID) ([]ledger.StockTransaction, error) {
	var out []ledger.StockTransaction
	_ = r.store.view(r.bound, false, func(st *state) error {
		for _, tx := range st.transactions {
			if tx.BatchID != nil && *tx.BatchID == batchID {
				out = append(out, tx)
			}
		}
		return nil
	})
	// appends are already in commit order; only reorder on differing dates
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Date.Before(out[j].Date)
	})
	return out, nil
}

type ingredientCatalog struct {
	store *Store
}

func (c *ingredientCatalog) FindIngredient(ctx context.Context, ingredientID, outletID uuid.UUID) (*ledger.Ingredient, error) {
	c.store.mu.RLock()
	defer c.store.mu.RUnlock()
	i, ok := c.store.state.ingredients[ingredientKey{ingredientID, outletID}]
	if !ok {
		return nil, shared.Errorf(shared.ErrIngredientNotFound, "ingredient %s not found at outlet %s", ingredientID, outletID)
	}
	return &i, nil
}

func (c *ingredientCatalog) RegisterIngredient(ctx context.Context, ingredient *ledger.Ingredient) error {
	c.store.mu.Lock()
	defer c.store.mu.Unlock()
	c.store.state.ingredients[ingredientKey{ingredient.ID, ingredient.OutletID}] = *ingredient
	return nil
}

var (
	_ ledger.Store                      = (*Store)(nil)
	_ ledger.BatchRepository            = (*batchRepository)(nil)
	_ ledger.StockTransactionRepository = (*transactionRepository)(nil)
	_ ledger.IngredientCatalog          = (*ingredientCatalog)(nil)
)

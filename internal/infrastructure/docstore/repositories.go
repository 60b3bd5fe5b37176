package docstore

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rai1001/ChefOsv2-sub002/internal/domain/ledger"
	"github.com/rai1001/ChefOsv2-sub002/internal/domain/shared"
	"github.com/rai1001/ChefOsv2-sub002/internal/domain/shared/valueobject"
	"github.com/redis/go-redis/v9"
)

// liveBatches reads Redis directly. Each write runs as its own unit of work.
type liveBatches struct {
	store *Store
}

func (r *liveBatches) FindByID(ctx context.Context, id uuid.UUID) (*ledger.Batch, error) {
	return r.store.loadBatch(ctx, r.store.client, id)
}

func (r *liveBatches) FindActiveBatchesOrderedByExpiry(ctx context.Context, ingredientID, outletID uuid.UUID) ([]ledger.Batch, error) {
	batches, err := r.store.activeBatches(ctx, ingredientID, outletID)
	if err != nil {
		return nil, err
	}
	out := ledger.ActiveOnly(batches)
	ledger.SortFIFO(out)
	return out, nil
}

func (r *liveBatches) FindBatchesExpiringWithin(ctx context.Context, outletID uuid.UUID, days int, asOf time.Time) ([]ledger.Batch, error) {
	batches, err := r.store.expiringBatches(ctx, outletID, days, asOf)
	if err != nil {
		return nil, err
	}
	out := make([]ledger.Batch, 0, len(batches))
	for _, b := range batches {
		if b.IsActive() && b.ExpiresWithin(asOf, days) {
			out = append(out, b)
		}
	}
	ledger.SortFIFO(out)
	return out, nil
}

func (r *liveBatches) Create(ctx context.Context, batch *ledger.Batch) error {
	return r.store.Execute(ctx, func(repos ledger.Repositories) error {
		return repos.Batches().Create(ctx, batch)
	})
}

func (r *liveBatches) ApplyConsumption(ctx context.Context, batchID uuid.UUID, newRemaining valueobject.Quantity, newStatus ledger.BatchStatus, expectedVersion int) (*ledger.Batch, error) {
	var updated *ledger.Batch
	err := r.store.Execute(ctx, func(repos ledger.Repositories) error {
		var err error
		updated, err = repos.Batches().ApplyConsumption(ctx, batchID, newRemaining, newStatus, expectedVersion)
		return err
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (r *liveBatches) DeleteDepleted(ctx context.Context, id uuid.UUID) error {
	return r.store.Execute(ctx, func(repos ledger.Repositories) error {
		return repos.Batches().DeleteDepleted(ctx, id)
	})
}

type liveTransactions struct {
	store *Store
}

func (r *liveTransactions) Append(ctx context.Context, tx *ledger.StockTransaction) error {
	return r.store.Execute(ctx, func(repos ledger.Repositories) error {
		return repos.Transactions().Append(ctx, tx)
	})
}

func (r *liveTransactions) FindByIngredient(ctx context.Context, ingredientID uuid.UUID, outletID *uuid.UUID, limit int) ([]ledger.StockTransaction, error) {
	return r.store.transactionsByIngredient(ctx, ingredientID, outletID, limit)
}

func (r *liveTransactions) FindByBatch(ctx context.Context, batchID uuid.UUID) ([]ledger.StockTransaction, error) {
	return r.store.transactionsByBatch(ctx, batchID)
}

// transactionsByIngredient reads the history index newest first.
// A limit of zero or less returns the whole history.
func (s *Store) transactionsByIngredient(ctx context.Context, ingredientID uuid.UUID, outletID *uuid.UUID, limit int) ([]ledger.StockTransaction, error) {
	key := s.historyKey(ingredientID)
	if outletID != nil {
		key = s.outletHistoryKey(ingredientID, *outletID)
	}
	stop := int64(-1)
	if limit > 0 {
		stop = int64(limit - 1)
	}
	members, err := s.client.ZRevRange(ctx, key, 0, stop).Result()
	if err != nil {
		return nil, translateError(err)
	}
	txs, err := s.loadTransactions(ctx, members)
	if err != nil {
		return nil, err
	}
	sortNewestFirst(txs)
	return txs, nil
}

func (s *Store) transactionsByBatch(ctx context.Context, batchID uuid.UUID) ([]ledger.StockTransaction, error) {
	members, err := s.client.ZRange(ctx, s.batchHistoryKey(batchID), 0, -1).Result()
	if err != nil {
		return nil, translateError(err)
	}
	txs, err := s.loadTransactions(ctx, members)
	if err != nil {
		return nil, err
	}
	sortOldestFirst(txs)
	return txs, nil
}

type ingredientCatalog struct {
	store *Store
}

func (c *ingredientCatalog) FindIngredient(ctx context.Context, ingredientID, outletID uuid.UUID) (*ledger.Ingredient, error) {
	raw, err := c.store.client.Get(ctx, c.store.ingredientKey(ingredientID, outletID)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, shared.Errorf(shared.ErrIngredientNotFound, "ingredient %s not found at outlet %s", ingredientID, outletID)
	}
	if err != nil {
		return nil, translateError(err)
	}
	return decodeIngredient(raw)
}

func (c *ingredientCatalog) RegisterIngredient(ctx context.Context, ingredient *ledger.Ingredient) error {
	raw, err := encodeIngredient(ingredient)
	if err != nil {
		return err
	}
	return translateError(c.store.client.Set(ctx, c.store.ingredientKey(ingredient.ID, ingredient.OutletID), raw, 0).Err())
}

var (
	_ ledger.BatchRepository            = (*liveBatches)(nil)
	_ ledger.StockTransactionRepository = (*liveTransactions)(nil)
	_ ledger.IngredientCatalog          = (*ingredientCatalog)(nil)
)

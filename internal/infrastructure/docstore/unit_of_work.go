package docstore

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rai1001/ChefOsv2-sub002/internal/domain/ledger"
	"github.com/rai1001/ChefOsv2-sub002/internal/domain/shared"
	"github.com/rai1001/ChefOsv2-sub002/internal/domain/shared/valueobject"
	"github.com/redis/go-redis/v9"
)

// unitOfWork buffers writes in an overlay that its own reads see.
// Nothing reaches Redis until commit.
type unitOfWork struct {
	store *Store

	// pending state of every batch written in this unit, in write order
	batches map[uuid.UUID]*ledger.Batch
	order   []uuid.UUID

	// stored version of each pre-existing batch when it was first touched
	baseVersions map[uuid.UUID]int
	created      map[uuid.UUID]bool
	deleted      map[uuid.UUID]*ledger.Batch

	transactions []ledger.StockTransaction
}

func newUnitOfWork(s *Store) *unitOfWork {
	return &unitOfWork{
		store:        s,
		batches:      map[uuid.UUID]*ledger.Batch{},
		baseVersions: map[uuid.UUID]int{},
		created:      map[uuid.UUID]bool{},
		deleted:      map[uuid.UUID]*ledger.Batch{},
	}
}

func (u *unitOfWork) Batches() ledger.BatchRepository {
	return &uowBatches{uow: u}
}

func (u *unitOfWork) Transactions() ledger.StockTransactionRepository {
	return &uowTransactions{uow: u}
}

func (u *unitOfWork) isEmpty() bool {
	return len(u.batches) == 0 && len(u.deleted) == 0 && len(u.transactions) == 0
}

// get returns the batch as this unit currently sees it
func (u *unitOfWork) get(ctx context.Context, id uuid.UUID) (*ledger.Batch, error) {
	if _, gone := u.deleted[id]; gone {
		return nil, shared.Errorf(shared.ErrBatchNotFound, "batch %s not found", id)
	}
	if b, ok := u.batches[id]; ok {
		cp := *b
		return &cp, nil
	}
	return u.store.loadBatch(ctx, u.store.client, id)
}

// track records the stored version of a pre-existing batch the first time it is written
func (u *unitOfWork) track(b *ledger.Batch) {
	if u.created[b.ID] {
		return
	}
	if _, seen := u.baseVersions[b.ID]; !seen {
		u.baseVersions[b.ID] = b.Version
	}
}

func (u *unitOfWork) put(b *ledger.Batch) {
	if _, ok := u.batches[b.ID]; !ok {
		u.order = append(u.order, b.ID)
	}
	u.batches[b.ID] = b
}

// merge overlays pending writes onto batches fetched from Redis and keeps those matching
func (u *unitOfWork) merge(fetched []ledger.Batch, match func(*ledger.Batch) bool) []ledger.Batch {
	out := make([]ledger.Batch, 0, len(fetched))
	seen := make(map[uuid.UUID]bool, len(fetched))
	for i := range fetched {
		b := &fetched[i]
		seen[b.ID] = true
		if _, gone := u.deleted[b.ID]; gone {
			continue
		}
		if pending, ok := u.batches[b.ID]; ok {
			b = pending
		}
		if match(b) {
			out = append(out, *b)
		}
	}
	for _, id := range u.order {
		b, ok := u.batches[id]
		if !ok || seen[id] {
			continue
		}
		if match(b) {
			out = append(out, *b)
		}
	}
	return out
}

// commit writes the buffered changes in one MULTI/EXEC. Every batch the
// unit wrote is watched and its stored version re-checked first.
func (u *unitOfWork) commit(ctx context.Context) error {
	if u.isEmpty() {
		return nil
	}
	s := u.store

	batchDocs := make(map[uuid.UUID]string, len(u.batches))
	for id, b := range u.batches {
		raw, err := encodeBatch(b)
		if err != nil {
			return err
		}
		batchDocs[id] = raw
	}
	txDocs := make([]string, len(u.transactions))
	for i := range u.transactions {
		raw, err := encodeTransaction(&u.transactions[i])
		if err != nil {
			return err
		}
		txDocs[i] = raw
	}

	write := func(pipe redis.Pipeliner) error {
		for _, id := range u.order {
			b, ok := u.batches[id]
			if !ok {
				continue
			}
			member := id.String()
			pipe.Set(ctx, s.batchKey(id), batchDocs[id], 0)
			if b.IsActive() {
				pipe.ZAdd(ctx, s.activeKey(b.IngredientID, b.OutletID), redis.Z{Score: expiryScore(b.ExpiryDate), Member: member})
				if b.ExpiryDate != nil {
					pipe.ZAdd(ctx, s.expiryKey(b.OutletID), redis.Z{Score: expiryScore(b.ExpiryDate), Member: member})
				}
			} else {
				pipe.ZRem(ctx, s.activeKey(b.IngredientID, b.OutletID), member)
				pipe.ZRem(ctx, s.expiryKey(b.OutletID), member)
			}
		}
		for id, b := range u.deleted {
			member := id.String()
			pipe.Del(ctx, s.batchKey(id))
			pipe.ZRem(ctx, s.activeKey(b.IngredientID, b.OutletID), member)
			pipe.ZRem(ctx, s.expiryKey(b.OutletID), member)
		}
		for i := range u.transactions {
			tx := &u.transactions[i]
			member := tx.ID.String()
			z := redis.Z{Score: historyScore(tx), Member: member}
			pipe.Set(ctx, s.transactionKey(tx.ID), txDocs[i], 0)
			pipe.ZAdd(ctx, s.historyKey(tx.IngredientID), z)
			pipe.ZAdd(ctx, s.outletHistoryKey(tx.IngredientID, tx.OutletID), z)
			if tx.BatchID != nil {
				pipe.ZAdd(ctx, s.batchHistoryKey(*tx.BatchID), z)
			}
		}
		return nil
	}

	keys := make([]string, 0, len(u.baseVersions)+len(u.created))
	for id := range u.baseVersions {
		keys = append(keys, s.batchKey(id))
	}
	for id := range u.created {
		keys = append(keys, s.batchKey(id))
	}
	if len(keys) == 0 {
		_, err := s.client.TxPipelined(ctx, write)
		return translateError(err)
	}

	err := s.client.Watch(ctx, func(tx *redis.Tx) error {
		for id, expected := range u.baseVersions {
			current, err := s.loadBatch(ctx, tx, id)
			if err != nil {
				return err
			}
			if current.Version != expected {
				return shared.Errorf(shared.ErrVersionConflict,
					"batch %s is at version %d, expected %d", id, current.Version, expected)
			}
		}
		for id := range u.created {
			n, err := tx.Exists(ctx, s.batchKey(id)).Result()
			if err != nil {
				return err
			}
			if n > 0 {
				return shared.Errorf(shared.ErrInvalidState, "batch %s already exists", id)
			}
		}
		_, err := tx.TxPipelined(ctx, write)
		return err
	}, keys...)
	return translateError(err)
}

type uowBatches struct {
	uow *unitOfWork
}

func (r *uowBatches) FindByID(ctx context.Context, id uuid.UUID) (*ledger.Batch, error) {
	return r.uow.get(ctx, id)
}

func (r *uowBatches) FindActiveBatchesOrderedByExpiry(ctx context.Context, ingredientID, outletID uuid.UUID) ([]ledger.Batch, error) {
	fetched, err := r.uow.store.activeBatches(ctx, ingredientID, outletID)
	if err != nil {
		return nil, err
	}
	out := r.uow.merge(fetched, func(b *ledger.Batch) bool {
		return b.IngredientID == ingredientID && b.OutletID == outletID && b.IsActive()
	})
	ledger.SortFIFO(out)
	return out, nil
}

func (r *uowBatches) FindBatchesExpiringWithin(ctx context.Context, outletID uuid.UUID, days int, asOf time.Time) ([]ledger.Batch, error) {
	fetched, err := r.uow.store.expiringBatches(ctx, outletID, days, asOf)
	if err != nil {
		return nil, err
	}
	out := r.uow.merge(fetched, func(b *ledger.Batch) bool {
		return b.OutletID == outletID && b.IsActive() && b.ExpiresWithin(asOf, days)
	})
	ledger.SortFIFO(out)
	return out, nil
}

func (r *uowBatches) Create(ctx context.Context, batch *ledger.Batch) error {
	if _, ok := r.uow.batches[batch.ID]; ok {
		return shared.Errorf(shared.ErrInvalidState, "batch %s already exists", batch.ID)
	}
	n, err := r.uow.store.client.Exists(ctx, r.uow.store.batchKey(batch.ID)).Result()
	if err != nil {
		return translateError(err)
	}
	if n > 0 {
		return shared.Errorf(shared.ErrInvalidState, "batch %s already exists", batch.ID)
	}
	b := *batch
	b.ClearDomainEvents()
	r.uow.created[b.ID] = true
	r.uow.put(&b)
	return nil
}

func (r *uowBatches) ApplyConsumption(ctx context.Context, batchID uuid.UUID, newRemaining valueobject.Quantity, newStatus ledger.BatchStatus, expectedVersion int) (*ledger.Batch, error) {
	b, err := r.uow.get(ctx, batchID)
	if err != nil {
		return nil, err
	}
	if b.Version != expectedVersion {
		return nil, shared.Errorf(shared.ErrVersionConflict,
			"batch %s is at version %d, expected %d", batchID, b.Version, expectedVersion)
	}
	if newRemaining.Unit() != b.Unit() {
		return nil, shared.Errorf(shared.ErrIncompatibleUnits,
			"batch %s is kept in %s, got %s", batchID, b.Unit(), newRemaining.Unit())
	}
	r.uow.track(b)
	b.RemainingQuantity = newRemaining
	b.Status = newStatus
	b.Version++
	b.Touch(r.uow.store.now().UTC())
	r.uow.put(b)
	out := *b
	return &out, nil
}

func (r *uowBatches) DeleteDepleted(ctx context.Context, id uuid.UUID) error {
	b, err := r.uow.get(ctx, id)
	if err != nil {
		return err
	}
	if b.HasStock() {
		return shared.Errorf(shared.ErrInvalidState, "batch %s still holds %s", id, b.RemainingQuantity)
	}
	delete(r.uow.batches, id)
	if r.uow.created[id] {
		delete(r.uow.created, id)
		return nil
	}
	r.uow.track(b)
	r.uow.deleted[id] = b
	return nil
}

type uowTransactions struct {
	uow *unitOfWork
}

func (r *uowTransactions) Append(ctx context.Context, tx *ledger.StockTransaction) error {
	r.uow.transactions = append(r.uow.transactions, *tx)
	return nil
}

func (r *uowTransactions) FindByIngredient(ctx context.Context, ingredientID uuid.UUID, outletID *uuid.UUID, limit int) ([]ledger.StockTransaction, error) {
	stored, err := r.uow.store.transactionsByIngredient(ctx, ingredientID, outletID, 0)
	if err != nil {
		return nil, err
	}
	for _, tx := range r.uow.transactions {
		if tx.IngredientID != ingredientID {
			continue
		}
		if outletID != nil && tx.OutletID != *outletID {
			continue
		}
		stored = append(stored, tx)
	}
	sortNewestFirst(stored)
	if limit > 0 && len(stored) > limit {
		stored = stored[:limit]
	}
	return stored, nil
}

func (r *uowTransactions) FindByBatch(ctx context.Context, batchID uuid.UUID) ([]ledger.StockTransaction, error) {
	stored, err := r.uow.store.transactionsByBatch(ctx, batchID)
	if err != nil {
		return nil, err
	}
	for _, tx := range r.uow.transactions {
		if tx.BatchID != nil && *tx.BatchID == batchID {
			stored = append(stored, tx)
		}
	}
	sortOldestFirst(stored)
	return stored, nil
}

func sortNewestFirst(txs []ledger.StockTransaction) {
	sort.SliceStable(txs, func(i, j int) bool {
		return transactionBefore(&txs[j], &txs[i])
	})
}

func sortOldestFirst(txs []ledger.StockTransaction) {
	sort.SliceStable(txs, func(i, j int) bool {
		return transactionBefore(&txs[i], &txs[j])
	})
}

// transactionBefore orders by date, then creation time, then id
func transactionBefore(a, b *ledger.StockTransaction) bool {
	if !a.Date.Equal(b.Date) {
		return a.Date.Before(b.Date)
	}
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return a.ID.String() < b.ID.String()
}

var (
	_ ledger.Repositories               = (*unitOfWork)(nil)
	_ ledger.BatchRepository            = (*uowBatches)(nil)
	_ ledger.StockTransactionRepository = (*uowTransactions)(nil)
)

package ledger

import (
	"context"

	"github.com/google/uuid"
	"github.com/rai1001/ChefOsv2-sub002/internal/domain/ledger"
	"github.com/rai1001/ChefOsv2-sub002/internal/domain/shared"
	"github.com/rai1001/ChefOsv2-sub002/internal/domain/shared/valueobject"
	"go.uber.org/zap"
)

const (
	// DefaultHistoryLimit is used when a history query gives no limit
	DefaultHistoryLimit = 50
	// MaxHistoryLimit caps history queries
	MaxHistoryLimit = 500
)

// TransactionRecorder appends transactions and answers stock level and
// history queries
type TransactionRecorder struct {
	settings
	store ledger.Store
}

// NewTransactionRecorder creates a new TransactionRecorder
func NewTransactionRecorder(store ledger.Store, opts ...Option) *TransactionRecorder {
	return &TransactionRecorder{
		settings: newSettings(opts),
		store:    store,
	}
}

// Record appends a transaction as given. It does not touch any batch.
func (r *TransactionRecorder) Record(ctx context.Context, req RecordRequest) (*ledger.StockTransaction, error) {
	txType, err := ledger.ParseTransactionType(req.Type)
	if err != nil {
		return nil, err
	}
	unitCost := req.UnitCost
	if unitCost.Currency() == "" {
		unitCost = valueobject.Zero(r.currency)
	}
	params := ledger.NewStockTransactionParams{
		IngredientID: req.IngredientID,
		OutletID:     req.OutletID,
		BatchID:      req.BatchID,
		Quantity:     req.Quantity,
		UnitCost:     valueobject.UnitPriceOf(unitCost),
		Type:         txType,
		PerformedBy:  req.PerformedBy,
		Reason:       req.Reason,
		ReferenceID:  req.ReferenceID,
		Now:          r.clock(),
	}
	if req.Date != nil {
		params.Date = *req.Date
	}
	tx, err := ledger.NewStockTransaction(params)
	if err != nil {
		return nil, err
	}

	opCtx, cancel := r.withTimeout(ctx)
	defer cancel()
	if err := r.store.Transactions().Append(opCtx, tx); err != nil {
		return nil, translateStorageError(err)
	}
	r.logger.Debug("Stock transaction recorded",
		zap.String("transaction_id", tx.ID.String()),
		zap.String("type", tx.Type.String()),
		zap.String("quantity", tx.Quantity.String()),
		zap.Bool("increase", tx.IsIncrease()),
		zap.String("value", tx.Value().String()),
	)
	return tx, nil
}

// CurrentStockLevel sums the remaining quantity of ACTIVE batches, in the
// ingredient's canonical unit
func (r *TransactionRecorder) CurrentStockLevel(ctx context.Context, ingredientID, outletID uuid.UUID) (valueobject.Quantity, error) {
	level, err := r.StockLevel(ctx, ingredientID, outletID)
	if err != nil {
		return valueobject.Quantity{}, err
	}
	return level.Quantity, nil
}

// StockLevel returns the on-hand quantity and value of an ingredient at an outlet
func (r *TransactionRecorder) StockLevel(ctx context.Context, ingredientID, outletID uuid.UUID) (*StockLevel, error) {
	if ingredientID == uuid.Nil || outletID == uuid.Nil {
		return nil, shared.Errorf(shared.ErrInvalidInput, "ingredient id and outlet id are required")
	}
	opCtx, cancel := r.withTimeout(ctx)
	defer cancel()

	ing, err := r.store.Ingredients().FindIngredient(opCtx, ingredientID, outletID)
	if err != nil {
		return nil, translateStorageError(err)
	}
	batches, err := r.store.Batches().FindActiveBatchesOrderedByExpiry(opCtx, ingredientID, outletID)
	if err != nil {
		return nil, translateStorageError(err)
	}
	batches = ledger.ActiveOnly(batches)

	total := valueobject.ZeroQuantity(ing.CanonicalUnit)
	for i := range batches {
		remaining, err := ing.ToCanonical(batches[i].RemainingQuantity)
		if err != nil {
			return nil, err
		}
		if total, err = total.Add(remaining); err != nil {
			return nil, err
		}
	}
	value, err := valuation(batches, r.currency)
	if err != nil {
		return nil, err
	}
	return &StockLevel{
		IngredientID:  ingredientID,
		OutletID:      outletID,
		Quantity:      total,
		Value:         value,
		ActiveBatches: len(batches),
	}, nil
}

// History returns the latest transactions of an ingredient, most recent first.
// A nil outletID spans all outlets.
func (r *TransactionRecorder) History(ctx context.Context, ingredientID uuid.UUID, outletID *uuid.UUID, limit int) ([]ledger.StockTransaction, error) {
	if ingredientID == uuid.Nil {
		return nil, shared.Errorf(shared.ErrInvalidInput, "ingredient id is required")
	}
	opCtx, cancel := r.withTimeout(ctx)
	defer cancel()
	txs, err := r.store.Transactions().FindByIngredient(opCtx, ingredientID, outletID, normalizeHistoryLimit(limit))
	if err != nil {
		return nil, translateStorageError(err)
	}
	return txs, nil
}

// HistoryForBatch returns every transaction of a batch, oldest first
func (r *TransactionRecorder) HistoryForBatch(ctx context.Context, batchID uuid.UUID) ([]ledger.StockTransaction, error) {
	opCtx, cancel := r.withTimeout(ctx)
	defer cancel()
	txs, err := r.store.Transactions().FindByBatch(opCtx, batchID)
	if err != nil {
		return nil, translateStorageError(err)
	}
	if len(txs) > 0 {
		return txs, nil
	}
	// a batch with no transactions may still exist after a raw import
	if _, err := r.store.Batches().FindByID(opCtx, batchID); err != nil {
		return nil, translateStorageError(err)
	}
	return txs, nil
}

func normalizeHistoryLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultHistoryLimit
	case limit > MaxHistoryLimit:
		return MaxHistoryLimit
	}
	return limit
}

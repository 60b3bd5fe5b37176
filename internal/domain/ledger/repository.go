package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rai1001/ChefOsv2-sub002/internal/domain/shared/valueobject"
)

// BatchRepository is the persistence contract for batches.
// Implementations translate storage failures into shared.ErrRepositoryUnavailable
// and missing rows into shared.ErrBatchNotFound.
type BatchRepository interface {
	// FindByID finds a batch by ID
	FindByID(ctx context.Context, id uuid.UUID) (*Batch, error)

	// FindActiveBatchesOrderedByExpiry returns ACTIVE batches of an ingredient at an outlet
	// in FIFO order (expiry ascending with undated last, then created_at, lot number, id)
	FindActiveBatchesOrderedByExpiry(ctx context.Context, ingredientID, outletID uuid.UUID) ([]Batch, error)

	// FindBatchesExpiringWithin returns ACTIVE batches at an outlet whose expiry date is
	// on or before asOf + days, soonest first. Already expired dates are included.
	FindBatchesExpiringWithin(ctx context.Context, outletID uuid.UUID, days int, asOf time.Time) ([]Batch, error)

	// Create persists a new batch
	Create(ctx context.Context, batch *Batch) error

	// ApplyConsumption writes a new remaining quantity and status, conditioned on
	// expectedVersion. Returns the updated batch with its version incremented.
	// Fails with shared.ErrVersionConflict when the stored version differs.
	ApplyConsumption(ctx context.Context, batchID uuid.UUID, newRemaining valueobject.Quantity, newStatus BatchStatus, expectedVersion int) (*Batch, error)

	// DeleteDepleted removes a batch whose remaining quantity is zero
	DeleteDepleted(ctx context.Context, id uuid.UUID) error
}

// StockTransactionRepository is the append-only persistence contract for transactions
type StockTransactionRepository interface {
	// Append persists a new transaction. Records are never updated.
	Append(ctx context.Context, tx *StockTransaction) error

	// FindByIngredient returns the latest transactions of an ingredient, most recent first.
	// A nil outletID spans all outlets.
	FindByIngredient(ctx context.Context, ingredientID uuid.UUID, outletID *uuid.UUID, limit int) ([]StockTransaction, error)

	// FindByBatch returns every transaction of a batch, oldest first
	FindByBatch(ctx context.Context, batchID uuid.UUID) ([]StockTransaction, error)
}

// IngredientCatalog resolves ingredient identity and canonical units
type IngredientCatalog interface {
	// FindIngredient returns shared.ErrIngredientNotFound for unknown ingredient/outlet pairs
	FindIngredient(ctx context.Context, ingredientID, outletID uuid.UUID) (*Ingredient, error)

	// RegisterIngredient creates or replaces an ingredient record
	RegisterIngredient(ctx context.Context, ingredient *Ingredient) error
}

// Repositories gives access to the batch and transaction repositories.
// Inside UnitOfWork.Execute both share one underlying transaction.
type Repositories interface {
	Batches() BatchRepository
	Transactions() StockTransactionRepository
}

// UnitOfWork runs fn atomically: if fn returns an error nothing it wrote is kept
type UnitOfWork interface {
	Execute(ctx context.Context, fn func(repos Repositories) error) error
}

// Store is a complete ledger backend
type Store interface {
	UnitOfWork
	Repositories
	Ingredients() IngredientCatalog
}

package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rai1001/ChefOsv2-sub002/internal/domain/ledger"
	"github.com/rai1001/ChefOsv2-sub002/internal/domain/shared"
	"github.com/rai1001/ChefOsv2-sub002/internal/domain/shared/valueobject"
	"github.com/rai1001/ChefOsv2-sub002/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// fifoOrder puts undated batches after every dated one on both postgres and sqlite
const fifoOrder = "expiry_date IS NULL, expiry_date ASC, created_at ASC, lot_number ASC, id ASC"

// GormBatchRepository implements ledger.BatchRepository using GORM
type GormBatchRepository struct {
	db  *gorm.DB
	now func() time.Time
}

// NewGormBatchRepository creates a new GormBatchRepository
func NewGormBatchRepository(db *gorm.DB) *GormBatchRepository {
	return &GormBatchRepository{db: db, now: time.Now}
}

// FindByID finds a batch by its ID
func (r *GormBatchRepository) FindByID(ctx context.Context, id uuid.UUID) (*ledger.Batch, error) {
	var model models.BatchModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.Errorf(shared.ErrBatchNotFound, "batch %s not found", id)
		}
		return nil, translateError(err)
	}
	return model.ToDomain()
}

// FindActiveBatchesOrderedByExpiry returns ACTIVE batches in FIFO order
func (r *GormBatchRepository) FindActiveBatchesOrderedByExpiry(ctx context.Context, ingredientID, outletID uuid.UUID) ([]ledger.Batch, error) {
	var rows []models.BatchModel
	if err := r.db.WithContext(ctx).
		Where("ingredient_id = ? AND outlet_id = ? AND status = ?", ingredientID, outletID, ledger.BatchStatusActive.String()).
		Order(fifoOrder).
		Find(&rows).Error; err != nil {
		return nil, translateError(err)
	}
	return toDomainBatches(rows)
}

// FindBatchesExpiringWithin returns ACTIVE batches of an outlet expiring on or before asOf + days
func (r *GormBatchRepository) FindBatchesExpiringWithin(ctx context.Context, outletID uuid.UUID, days int, asOf time.Time) ([]ledger.Batch, error) {
	threshold := asOf.UTC().AddDate(0, 0, days)

	var rows []models.BatchModel
	if err := r.db.WithContext(ctx).
		Where("outlet_id = ? AND status = ?", outletID, ledger.BatchStatusActive.String()).
		Where("expiry_date IS NOT NULL AND expiry_date <= ?", threshold).
		Order(fifoOrder).
		Find(&rows).Error; err != nil {
		return nil, translateError(err)
	}
	return toDomainBatches(rows)
}

// Create persists a new batch
func (r *GormBatchRepository) Create(ctx context.Context, batch *ledger.Batch) error {
	return translateError(r.db.WithContext(ctx).Create(models.BatchModelFromDomain(batch)).Error)
}

// ApplyConsumption writes the new remaining quantity and status only if the
// stored version still equals expectedVersion
func (r *GormBatchRepository) ApplyConsumption(ctx context.Context, batchID uuid.UUID, newRemaining valueobject.Quantity, newStatus ledger.BatchStatus, expectedVersion int) (*ledger.Batch, error) {
	result := r.db.WithContext(ctx).
		Model(&models.BatchModel{}).
		Where("id = ? AND version = ? AND unit = ?", batchID, expectedVersion, newRemaining.Unit().String()).
		Updates(map[string]any{
			"remaining_quantity": newRemaining.Amount(),
			"status":             newStatus.String(),
			"version":            gorm.Expr("version + 1"),
			"updated_at":         r.now().UTC(),
		})
	if result.Error != nil {
		return nil, translateError(result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, r.explainMissedUpdate(ctx, batchID, newRemaining.Unit(), expectedVersion)
	}
	return r.FindByID(ctx, batchID)
}

// explainMissedUpdate tells a stale version apart from a missing batch or a unit mismatch
func (r *GormBatchRepository) explainMissedUpdate(ctx context.Context, batchID uuid.UUID, unit valueobject.Unit, expectedVersion int) error {
	var model models.BatchModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", batchID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return shared.Errorf(shared.ErrBatchNotFound, "batch %s not found", batchID)
		}
		return translateError(err)
	}
	if model.Version != expectedVersion {
		return shared.Errorf(shared.ErrVersionConflict,
			"batch %s is at version %d, expected %d", batchID, model.Version, expectedVersion)
	}
	return shared.Errorf(shared.ErrIncompatibleUnits,
		"batch %s is kept in %s, got %s", batchID, model.Unit, unit)
}

// DeleteDepleted deletes a batch whose remaining quantity is zero
func (r *GormBatchRepository) DeleteDepleted(ctx context.Context, id uuid.UUID) error {
	batch, err := r.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if batch.HasStock() {
		return shared.Errorf(shared.ErrInvalidState, "batch %s still holds %s", id, batch.RemainingQuantity)
	}
	result := r.db.WithContext(ctx).Delete(&models.BatchModel{}, "id = ? AND version = ?", id, batch.Version)
	if result.Error != nil {
		return translateError(result.Error)
	}
	if result.RowsAffected == 0 {
		return shared.Errorf(shared.ErrVersionConflict, "batch %s changed while being deleted", id)
	}
	return nil
}

func toDomainBatches(rows []models.BatchModel) ([]ledger.Batch, error) {
	batches := make([]ledger.Batch, 0, len(rows))
	for i := range rows {
		b, err := rows[i].ToDomain()
		if err != nil {
			return nil, err
		}
		batches = append(batches, *b)
	}
	return batches, nil
}

// Ensure GormBatchRepository implements BatchRepository
var _ ledger.BatchRepository = (*GormBatchRepository)(nil)

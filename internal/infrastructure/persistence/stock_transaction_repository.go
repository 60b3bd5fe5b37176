package persistence

import (
	"context"

	"github.com/google/uuid"
	"github.com/rai1001/ChefOsv2-sub002/internal/domain/ledger"
	"github.com/rai1001/ChefOsv2-sub002/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormStockTransactionRepository implements ledger.StockTransactionRepository using GORM.
// Rows are inserted and read, never updated.
type GormStockTransactionRepository struct {
	db *gorm.DB
}

// NewGormStockTransactionRepository creates a new GormStockTransactionRepository
func NewGormStockTransactionRepository(db *gorm.DB) *GormStockTransactionRepository {
	return &GormStockTransactionRepository{db: db}
}

// Append inserts a transaction
func (r *GormStockTransactionRepository) Append(ctx context.Context, tx *ledger.StockTransaction) error {
	return translateError(r.db.WithContext(ctx).Create(models.StockTransactionModelFromDomain(tx)).Error)
}

// FindByIngredient returns the latest transactions of an ingredient, most recent first
func (r *GormStockTransactionRepository) FindByIngredient(ctx context.Context, ingredientID uuid.UUID, outletID *uuid.UUID, limit int) ([]ledger.StockTransaction, error) {
	query := r.db.WithContext(ctx).Where("ingredient_id = ?", ingredientID)
	if outletID != nil {
		query = query.Where("outlet_id = ?", *outletID)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}

	var rows []models.StockTransactionModel
	if err := query.Order("date DESC, created_at DESC, id DESC").Find(&rows).Error; err != nil {
		return nil, translateError(err)
	}
	return toDomainTransactions(rows)
}

// FindByBatch returns the transactions of a batch, oldest first
func (r *GormStockTransactionRepository) FindByBatch(ctx context.Context, batchID uuid.UUID) ([]ledger.StockTransaction, error) {
	var rows []models.StockTransactionModel
	if err := r.db.WithContext(ctx).
		Where("batch_id = ?", batchID).
		Order("date ASC, created_at ASC, id ASC").
		Find(&rows).Error; err != nil {
		return nil, translateError(err)
	}
	return toDomainTransactions(rows)
}

func toDomainTransactions(rows []models.StockTransactionModel) ([]ledger.StockTransaction, error) {
	out := make([]ledger.StockTransaction, 0, len(rows))
	for i := range rows {
		tx, err := rows[i].ToDomain()
		if err != nil {
			return nil, err
		}
		out = append(out, *tx)
	}
	return out, nil
}

// Ensure GormStockTransactionRepository implements StockTransactionRepository
var _ ledger.StockTransactionRepository = (*GormStockTransactionRepository)(nil)

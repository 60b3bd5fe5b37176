package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rai1001/ChefOsv2-sub002/internal/domain/ledger"
	"github.com/rai1001/ChefOsv2-sub002/internal/domain/shared"
	"github.com/rai1001/ChefOsv2-sub002/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormIngredientCatalog implements ledger.IngredientCatalog using GORM
type GormIngredientCatalog struct {
	db  *gorm.DB
	now func() time.Time
}

// NewGormIngredientCatalog creates a new GormIngredientCatalog
func NewGormIngredientCatalog(db *gorm.DB) *GormIngredientCatalog {
	return &GormIngredientCatalog{db: db, now: time.Now}
}

// FindIngredient finds an ingredient at an outlet
func (c *GormIngredientCatalog) FindIngredient(ctx context.Context, ingredientID, outletID uuid.UUID) (*ledger.Ingredient, error) {
	var model models.IngredientModel
	err := c.db.WithContext(ctx).First(&model, "id = ? AND outlet_id = ?", ingredientID, outletID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.Errorf(shared.ErrIngredientNotFound,
				"ingredient %s not found at outlet %s", ingredientID, outletID)
		}
		return nil, translateError(err)
	}
	return model.ToDomain()
}

// RegisterIngredient inserts the ingredient or replaces its name, unit and factors
func (c *GormIngredientCatalog) RegisterIngredient(ctx context.Context, ingredient *ledger.Ingredient) error {
	model := models.IngredientModelFromDomain(ingredient, c.now().UTC())
	return translateError(c.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}, {Name: "outlet_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"name", "canonical_unit", "conversion_factors", "updated_at"}),
		}).
		Create(model).Error)
}

// Ensure GormIngredientCatalog implements IngredientCatalog
var _ ledger.IngredientCatalog = (*GormIngredientCatalog)(nil)

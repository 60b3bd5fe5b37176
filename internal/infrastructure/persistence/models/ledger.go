package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rai1001/ChefOsv2-sub002/internal/domain/ledger"
	"github.com/rai1001/ChefOsv2-sub002/internal/domain/shared"
	"github.com/rai1001/ChefOsv2-sub002/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// IngredientModel is the persistence model for the ledger's ingredient view.
// An ingredient is keyed by its id and outlet.
type IngredientModel struct {
	ID                uuid.UUID         `gorm:"type:uuid;primaryKey"`
	OutletID          uuid.UUID         `gorm:"type:uuid;primaryKey"`
	Name              string            `gorm:"type:varchar(200);not null"`
	CanonicalUnit     string            `gorm:"type:varchar(10);not null"`
	ConversionFactors map[string]string `gorm:"type:text;serializer:json"`
	CreatedAt         time.Time         `gorm:"not null"`
	UpdatedAt         time.Time         `gorm:"not null"`
}

// TableName returns the table name for GORM
func (IngredientModel) TableName() string {
	return "ingredients"
}

// ToDomain converts the persistence model to a domain Ingredient
func (m *IngredientModel) ToDomain() (*ledger.Ingredient, error) {
	unit, err := valueobject.ParseUnit(m.CanonicalUnit)
	if err != nil {
		return nil, fmt.Errorf("ingredient %s: %w", m.ID, err)
	}
	ing := &ledger.Ingredient{
		ID:                m.ID,
		OutletID:          m.OutletID,
		Name:              m.Name,
		CanonicalUnit:     unit,
		ConversionFactors: make(map[valueobject.Unit]decimal.Decimal, len(m.ConversionFactors)),
	}
	for code, raw := range m.ConversionFactors {
		from, err := valueobject.ParseUnit(code)
		if err != nil {
			return nil, fmt.Errorf("ingredient %s: %w", m.ID, err)
		}
		factor, err := decimal.NewFromString(raw)
		if err != nil {
			return nil, fmt.Errorf("ingredient %s: bad factor for %s: %w", m.ID, code, err)
		}
		ing.ConversionFactors[from] = factor
	}
	return ing, nil
}

// IngredientModelFromDomain creates a new persistence model from a domain Ingredient
func IngredientModelFromDomain(i *ledger.Ingredient, now time.Time) *IngredientModel {
	m := &IngredientModel{
		ID:                i.ID,
		OutletID:          i.OutletID,
		Name:              i.Name,
		CanonicalUnit:     i.CanonicalUnit.String(),
		ConversionFactors: make(map[string]string, len(i.ConversionFactors)),
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	for unit, factor := range i.ConversionFactors {
		m.ConversionFactors[unit.String()] = factor.String()
	}
	return m
}

// BatchModel is the persistence model for the Batch aggregate
type BatchModel struct {
	AggregateModel
	IngredientID      uuid.UUID       `gorm:"type:uuid;not null;index:idx_batches_partition"`
	OutletID          uuid.UUID       `gorm:"type:uuid;not null;index:idx_batches_partition;index:idx_batches_outlet_expiry"`
	LotNumber         string          `gorm:"type:varchar(100);not null;default:''"`
	Unit              string          `gorm:"type:varchar(10);not null"`
	ReceivedQuantity  decimal.Decimal `gorm:"type:decimal(20,6);not null"`
	RemainingQuantity decimal.Decimal `gorm:"type:decimal(20,6);not null"`
	UnitCostMinor     decimal.Decimal `gorm:"type:decimal(24,10);not null"`
	TotalCostMinor    int64           `gorm:"not null"`
	Currency          string          `gorm:"type:varchar(3);not null"`
	SupplierRef       string          `gorm:"type:varchar(100);not null;default:''"`
	ReceivedDate      time.Time       `gorm:"not null"`
	ExpiryDate        *time.Time      `gorm:"index:idx_batches_outlet_expiry"`
	Status            string          `gorm:"type:varchar(20);not null;index"`
}

// TableName returns the table name for GORM
func (BatchModel) TableName() string {
	return "ingredient_batches"
}

// ToDomain converts the persistence model to a domain Batch
func (m *BatchModel) ToDomain() (*ledger.Batch, error) {
	unit, err := valueobject.ParseUnit(m.Unit)
	if err != nil {
		return nil, fmt.Errorf("batch %s: %w", m.ID, err)
	}
	received, err := valueobject.NewQuantity(m.ReceivedQuantity, unit)
	if err != nil {
		return nil, fmt.Errorf("batch %s: %w", m.ID, err)
	}
	remaining, err := valueobject.NewQuantity(m.RemainingQuantity, unit)
	if err != nil {
		return nil, fmt.Errorf("batch %s: %w", m.ID, err)
	}
	currency := valueobject.Currency(m.Currency)
	unitCost, err := valueobject.NewUnitPrice(m.UnitCostMinor, currency)
	if err != nil {
		return nil, fmt.Errorf("batch %s: %w", m.ID, err)
	}
	status := ledger.BatchStatus(m.Status)
	if !status.IsValid() {
		return nil, shared.Errorf(shared.ErrInvalidState, "batch %s has unknown status %q", m.ID, m.Status)
	}
	var expiry *time.Time
	if m.ExpiryDate != nil {
		e := m.ExpiryDate.UTC()
		expiry = &e
	}

	return &ledger.Batch{
		BaseAggregateRoot: m.ToDomainAggregateRoot(),
		IngredientID:      m.IngredientID,
		OutletID:          m.OutletID,
		LotNumber:         m.LotNumber,
		ReceivedQuantity:  received,
		RemainingQuantity: remaining,
		UnitCost:          unitCost,
		TotalCost:         valueobject.MustNewMoney(m.TotalCostMinor, currency),
		SupplierRef:       m.SupplierRef,
		ReceivedDate:      m.ReceivedDate.UTC(),
		ExpiryDate:        expiry,
		Status:            status,
	}, nil
}

// FromDomain populates the persistence model from a domain Batch
func (m *BatchModel) FromDomain(b *ledger.Batch) {
	m.FromDomainAggregateRoot(b.BaseAggregateRoot)
	m.IngredientID = b.IngredientID
	m.OutletID = b.OutletID
	m.LotNumber = b.LotNumber
	m.Unit = b.Unit().String()
	m.ReceivedQuantity = b.ReceivedQuantity.Amount()
	m.RemainingQuantity = b.RemainingQuantity.Amount()
	m.UnitCostMinor = b.UnitCost.MinorUnits()
	m.TotalCostMinor = b.TotalCost.MinorUnits()
	m.Currency = string(b.UnitCost.Currency())
	m.SupplierRef = b.SupplierRef
	m.ReceivedDate = b.ReceivedDate
	m.ExpiryDate = b.ExpiryDate
	m.Status = b.Status.String()
}

// BatchModelFromDomain creates a new persistence model from a domain Batch
func BatchModelFromDomain(b *ledger.Batch) *BatchModel {
	m := &BatchModel{}
	m.FromDomain(b)
	return m
}

// StockTransactionModel is the persistence model for the append-only transaction log
type StockTransactionModel struct {
	ID            uuid.UUID       `gorm:"type:uuid;primary_key"`
	IngredientID  uuid.UUID       `gorm:"type:uuid;not null;index:idx_transactions_ingredient"`
	OutletID      uuid.UUID       `gorm:"type:uuid;not null;index:idx_transactions_ingredient"`
	BatchID       *uuid.UUID      `gorm:"type:uuid;index"`
	Quantity      decimal.Decimal `gorm:"type:decimal(20,6);not null"`
	Unit          string          `gorm:"type:varchar(10);not null"`
	UnitCostMinor decimal.Decimal `gorm:"type:decimal(24,10);not null"`
	Currency      string          `gorm:"type:varchar(3);not null"`
	Type          string          `gorm:"type:varchar(20);not null"`
	PerformedBy   string          `gorm:"type:varchar(100);not null;default:''"`
	Reason        string          `gorm:"type:text;not null;default:''"`
	ReferenceID   string          `gorm:"type:varchar(100);not null;default:'';index"`
	Date          time.Time       `gorm:"not null;index:idx_transactions_ingredient"`
	CreatedAt     time.Time       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (StockTransactionModel) TableName() string {
	return "stock_transactions"
}

// ToDomain converts the persistence model to a domain StockTransaction
func (m *StockTransactionModel) ToDomain() (*ledger.StockTransaction, error) {
	unit, err := valueobject.ParseUnit(m.Unit)
	if err != nil {
		return nil, fmt.Errorf("transaction %s: %w", m.ID, err)
	}
	qty, err := valueobject.NewSignedQuantity(m.Quantity, unit)
	if err != nil {
		return nil, fmt.Errorf("transaction %s: %w", m.ID, err)
	}
	unitCost, err := valueobject.NewUnitPrice(m.UnitCostMinor, valueobject.Currency(m.Currency))
	if err != nil {
		return nil, fmt.Errorf("transaction %s: %w", m.ID, err)
	}
	txType, err := ledger.ParseTransactionType(m.Type)
	if err != nil {
		return nil, err
	}
	return &ledger.StockTransaction{
		ID:           m.ID,
		IngredientID: m.IngredientID,
		OutletID:     m.OutletID,
		BatchID:      m.BatchID,
		Quantity:     qty,
		UnitCost:     unitCost,
		Type:         txType,
		PerformedBy:  m.PerformedBy,
		Reason:       m.Reason,
		ReferenceID:  m.ReferenceID,
		Date:         m.Date.UTC(),
		CreatedAt:    m.CreatedAt.UTC(),
	}, nil
}

// StockTransactionModelFromDomain creates a new persistence model from a domain StockTransaction
func StockTransactionModelFromDomain(t *ledger.StockTransaction) *StockTransactionModel {
	return &StockTransactionModel{
		ID:            t.ID,
		IngredientID:  t.IngredientID,
		OutletID:      t.OutletID,
		BatchID:       t.BatchID,
		Quantity:      t.Quantity.Amount(),
		Unit:          t.Quantity.Unit().String(),
		UnitCostMinor: t.UnitCost.MinorUnits(),
		Currency:      string(t.UnitCost.Currency()),
		Type:          t.Type.String(),
		PerformedBy:   t.PerformedBy,
		Reason:        t.Reason,
		ReferenceID:   t.ReferenceID,
		Date:          t.Date,
		CreatedAt:     t.CreatedAt,
	}
}

// AllModels lists every model the ledger schema needs, for AutoMigrate in tests
func AllModels() []any {
	return []any{&IngredientModel{}, &BatchModel{}, &StockTransactionModel{}}
}

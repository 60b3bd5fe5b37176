package docstore

import (
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/rai1001/ChefOsv2-sub002/internal/domain/ledger"
	"github.com/rai1001/ChefOsv2-sub002/internal/domain/shared"
	"github.com/rai1001/ChefOsv2-sub002/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// batchDoc is the JSON document stored per batch
type batchDoc struct {
	ID           uuid.UUID             `json:"id"`
	IngredientID uuid.UUID             `json:"ingredient_id"`
	OutletID     uuid.UUID             `json:"outlet_id"`
	LotNumber    string                `json:"lot_number"`
	Received     valueobject.Quantity  `json:"received_quantity"`
	Remaining    valueobject.Quantity  `json:"remaining_quantity"`
	UnitCost     valueobject.UnitPrice `json:"unit_cost"`
	TotalCost    valueobject.Money     `json:"total_cost"`
	SupplierRef  string                `json:"supplier_ref"`
	ReceivedDate time.Time             `json:"received_date"`
	ExpiryDate   *time.Time            `json:"expiry_date,omitempty"`
	Status       ledger.BatchStatus    `json:"status"`
	Version      int                   `json:"version"`
	CreatedAt    time.Time             `json:"created_at"`
	UpdatedAt    time.Time             `json:"updated_at"`
}

func batchDocFromDomain(b *ledger.Batch) batchDoc {
	return batchDoc{
		ID:           b.ID,
		IngredientID: b.IngredientID,
		OutletID:     b.OutletID,
		LotNumber:    b.LotNumber,
		Received:     b.ReceivedQuantity,
		Remaining:    b.RemainingQuantity,
		UnitCost:     b.UnitCost,
		TotalCost:    b.TotalCost,
		SupplierRef:  b.SupplierRef,
		ReceivedDate: b.ReceivedDate,
		ExpiryDate:   b.ExpiryDate,
		Status:       b.Status,
		Version:      b.Version,
		CreatedAt:    b.CreatedAt,
		UpdatedAt:    b.UpdatedAt,
	}
}

func (d batchDoc) toDomain() *ledger.Batch {
	return &ledger.Batch{
		BaseAggregateRoot: shared.BaseAggregateRoot{
			BaseEntity: shared.BaseEntity{ID: d.ID, CreatedAt: d.CreatedAt, UpdatedAt: d.UpdatedAt},
			Version:    d.Version,
		},
		IngredientID:      d.IngredientID,
		OutletID:          d.OutletID,
		LotNumber:         d.LotNumber,
		ReceivedQuantity:  d.Received,
		RemainingQuantity: d.Remaining,
		UnitCost:          d.UnitCost,
		TotalCost:         d.TotalCost,
		SupplierRef:       d.SupplierRef,
		ReceivedDate:      d.ReceivedDate,
		ExpiryDate:        d.ExpiryDate,
		Status:            d.Status,
	}
}

func encodeBatch(b *ledger.Batch) (string, error) {
	data, err := json.Marshal(batchDocFromDomain(b))
	if err != nil {
		return "", fmt.Errorf("encode batch %s: %w", b.ID, err)
	}
	return string(data), nil
}

func decodeBatch(raw string) (*ledger.Batch, error) {
	var d batchDoc
	if err := json.Unmarshal([]byte(raw), &d); err != nil {
		return nil, fmt.Errorf("decode batch: %w", err)
	}
	return d.toDomain(), nil
}

// undatedScore places batches without expiry after every dated one
const undatedScore = float64(math.MaxInt64)

// expiryScore orders batches in sorted sets by expiry in Unix seconds
func expiryScore(expiry *time.Time) float64 {
	if expiry == nil {
		return undatedScore
	}
	return float64(expiry.Unix())
}

// transactionDoc is the JSON document stored per stock transaction
type transactionDoc struct {
	ID           uuid.UUID              `json:"id"`
	IngredientID uuid.UUID              `json:"ingredient_id"`
	OutletID     uuid.UUID              `json:"outlet_id"`
	BatchID      *uuid.UUID             `json:"batch_id,omitempty"`
	Quantity     valueobject.Quantity   `json:"quantity"`
	UnitCost     valueobject.UnitPrice  `json:"unit_cost"`
	Type         ledger.TransactionType `json:"type"`
	PerformedBy  string                 `json:"performed_by,omitempty"`
	Reason       string                 `json:"reason,omitempty"`
	ReferenceID  string                 `json:"reference_id,omitempty"`
	Date         time.Time              `json:"date"`
	CreatedAt    time.Time              `json:"created_at"`
}

func encodeTransaction(t *ledger.StockTransaction) (string, error) {
	data, err := json.Marshal(transactionDoc{
		ID:           t.ID,
		IngredientID: t.IngredientID,
		OutletID:     t.OutletID,
		BatchID:      t.BatchID,
		Quantity:     t.Quantity,
		UnitCost:     t.UnitCost,
		Type:         t.Type,
		PerformedBy:  t.PerformedBy,
		Reason:       t.Reason,
		ReferenceID:  t.ReferenceID,
		Date:         t.Date,
		CreatedAt:    t.CreatedAt,
	})
	if err != nil {
		return "", fmt.Errorf("encode transaction %s: %w", t.ID, err)
	}
	return string(data), nil
}

func decodeTransaction(raw string) (*ledger.StockTransaction, error) {
	var d transactionDoc
	if err := json.Unmarshal([]byte(raw), &d); err != nil {
		return nil, fmt.Errorf("decode transaction: %w", err)
	}
	return &ledger.StockTransaction{
		ID:           d.ID,
		IngredientID: d.IngredientID,
		OutletID:     d.OutletID,
		BatchID:      d.BatchID,
		Quantity:     d.Quantity,
		UnitCost:     d.UnitCost,
		Type:         d.Type,
		PerformedBy:  d.PerformedBy,
		Reason:       d.Reason,
		ReferenceID:  d.ReferenceID,
		Date:         d.Date,
		CreatedAt:    d.CreatedAt,
	}, nil
}

// historyScore orders transaction histories by date with millisecond resolution
func historyScore(t *ledger.StockTransaction) float64 {
	return float64(t.Date.UnixMilli())
}

// ingredientDoc is the JSON document stored per ingredient and outlet
type ingredientDoc struct {
	ID                uuid.UUID                  `json:"id"`
	OutletID          uuid.UUID                  `json:"outlet_id"`
	Name              string                     `json:"name"`
	CanonicalUnit     valueobject.Unit           `json:"canonical_unit"`
	ConversionFactors map[string]decimal.Decimal `json:"conversion_factors,omitempty"`
}

func encodeIngredient(i *ledger.Ingredient) (string, error) {
	d := ingredientDoc{
		ID:                i.ID,
		OutletID:          i.OutletID,
		Name:              i.Name,
		CanonicalUnit:     i.CanonicalUnit,
		ConversionFactors: make(map[string]decimal.Decimal, len(i.ConversionFactors)),
	}
	for unit, factor := range i.ConversionFactors {
		d.ConversionFactors[unit.String()] = factor
	}
	data, err := json.Marshal(d)
	if err != nil {
		return "", fmt.Errorf("encode ingredient %s: %w", i.ID, err)
	}
	return string(data), nil
}

func decodeIngredient(raw string) (*ledger.Ingredient, error) {
	var d ingredientDoc
	if err := json.Unmarshal([]byte(raw), &d); err != nil {
		return nil, fmt.Errorf("decode ingredient: %w", err)
	}
	ing := &ledger.Ingredient{
		ID:                d.ID,
		OutletID:          d.OutletID,
		Name:              d.Name,
		CanonicalUnit:     d.CanonicalUnit,
		ConversionFactors: make(map[valueobject.Unit]decimal.Decimal, len(d.ConversionFactors)),
	}
	for code, factor := range d.ConversionFactors {
		unit, err := valueobject.ParseUnit(code)
		if err != nil {
			return nil, err
		}
		ing.ConversionFactors[unit] = factor
	}
	return ing, nil
}

package ledger

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rai1001/ChefOsv2-sub002/internal/domain/shared"
	"github.com/rai1001/ChefOsv2-sub002/internal/domain/shared/valueobject"
)

// TransactionType classifies a stock movement. The set is closed: every
// quantity change maps to exactly one of these.
type TransactionType string

const (
	// TransactionTypePurchase is stock received against a purchase order
	TransactionTypePurchase TransactionType = "PURCHASE"
	// TransactionTypeUsage is stock drawn for service or sale
	TransactionTypeUsage TransactionType = "USAGE"
	// TransactionTypeWaste is stock discarded
	TransactionTypeWaste TransactionType = "WASTE"
	// TransactionTypeAudit is a physical count correction
	TransactionTypeAudit TransactionType = "AUDIT"
	// TransactionTypeAdjustment is any other manual movement
	TransactionTypeAdjustment TransactionType = "ADJUSTMENT"
	// TransactionTypeInitialStock is the opening balance of a location
	TransactionTypeInitialStock TransactionType = "INITIAL_STOCK"
	// TransactionTypeProduction is stock drawn by recipe production
	TransactionTypeProduction TransactionType = "PRODUCTION"
)

// transactionTypeAliases are accepted on input only
var transactionTypeAliases = map[string]TransactionType{
	"SALE": TransactionTypeUsage,
}

// ParseTransactionType resolves boundary input into a TransactionType
func ParseTransactionType(s string) (TransactionType, error) {
	v := strings.ToUpper(strings.TrimSpace(s))
	if alias, ok := transactionTypeAliases[v]; ok {
		return alias, nil
	}
	t := TransactionType(v)
	if !t.IsValid() {
		return "", shared.Errorf(shared.ErrInvalidTransactionType, "unrecognized transaction type %q", s)
	}
	return t, nil
}

// String returns the string representation of TransactionType
func (t TransactionType) String() string {
	return string(t)
}

// IsValid returns true if the transaction type is one of the seven known types
func (t TransactionType) IsValid() bool {
	switch t {
	case TransactionTypePurchase,
		TransactionTypeUsage,
		TransactionTypeWaste,
		TransactionTypeAudit,
		TransactionTypeAdjustment,
		TransactionTypeInitialStock,
		TransactionTypeProduction:
		return true
	}
	return false
}

// IsReceipt returns true for types that create batches
func (t TransactionType) IsReceipt() bool {
	return t == TransactionTypePurchase || t == TransactionTypeInitialStock
}

// IsConsumption returns true for types a FIFO draw-down may record
func (t TransactionType) IsConsumption() bool {
	switch t {
	case TransactionTypeUsage,
		TransactionTypeProduction,
		TransactionTypeWaste,
		TransactionTypeAdjustment:
		return true
	}
	return false
}

// MovementKind is the business reason behind a quantity change
type MovementKind int

const (
	MovementProductionUse MovementKind = iota + 1
	MovementSaleUse
	MovementDiscard
	MovementReceipt
	MovementOpeningStock
	MovementCountCorrection
	MovementOther
)

// TypeForMovement maps a movement reason onto its transaction type.
// An unmapped kind is a programming error.
func TypeForMovement(kind MovementKind) TransactionType {
	switch kind {
	case MovementProductionUse:
		return TransactionTypeProduction
	case MovementSaleUse:
		return TransactionTypeUsage
	case MovementDiscard:
		return TransactionTypeWaste
	case MovementReceipt:
		return TransactionTypePurchase
	case MovementOpeningStock:
		return TransactionTypeInitialStock
	case MovementCountCorrection:
		return TransactionTypeAudit
	case MovementOther:
		return TransactionTypeAdjustment
	}
	panic(fmt.Sprintf("ledger: unmapped movement kind %d", kind))
}

// StockTransaction is an immutable record of one quantity change.
// Quantity is signed: positive adds stock, negative consumes it.
// Corrections are new offsetting transactions, never edits.
type StockTransaction struct {
	ID           uuid.UUID
	IngredientID uuid.UUID
	OutletID     uuid.UUID
	BatchID      *uuid.UUID
	Quantity     valueobject.Quantity
	UnitCost     valueobject.UnitPrice
	Type         TransactionType
	PerformedBy  string
	Reason       string
	ReferenceID  string
	Date         time.Time
	CreatedAt    time.Time
}

// NewStockTransactionParams holds the inputs of NewStockTransaction
type NewStockTransactionParams struct {
	IngredientID uuid.UUID
	OutletID     uuid.UUID
	BatchID      *uuid.UUID
	Quantity     valueobject.Quantity
	UnitCost     valueobject.UnitPrice
	Type         TransactionType
	PerformedBy  string
	Reason       string
	ReferenceID  string
	Date         time.Time
	Now          time.Time
}

// NewStockTransaction creates a validated transaction record
func NewStockTransaction(p NewStockTransactionParams) (*StockTransaction, error) {
	if p.IngredientID == uuid.Nil {
		return nil, shared.Errorf(shared.ErrInvalidInput, "ingredient id is required")
	}
	if p.OutletID == uuid.Nil {
		return nil, shared.Errorf(shared.ErrInvalidInput, "outlet id is required")
	}
	if p.Quantity.IsZero() {
		return nil, shared.Errorf(shared.ErrInvalidQuantity, "transaction quantity cannot be zero")
	}
	if !p.Type.IsValid() {
		return nil, shared.Errorf(shared.ErrInvalidTransactionType, "unrecognized transaction type %q", p.Type)
	}
	if p.Now.IsZero() {
		p.Now = time.Now()
	}
	date := p.Date
	if date.IsZero() {
		date = p.Now
	}

	return &StockTransaction{
		ID:           uuid.New(),
		IngredientID: p.IngredientID,
		OutletID:     p.OutletID,
		BatchID:      p.BatchID,
		Quantity:     p.Quantity,
		UnitCost:     p.UnitCost,
		Type:         p.Type,
		PerformedBy:  strings.TrimSpace(p.PerformedBy),
		Reason:       strings.TrimSpace(p.Reason),
		ReferenceID:  strings.TrimSpace(p.ReferenceID),
		Date:         date.UTC(),
		CreatedAt:    p.Now.UTC(),
	}, nil
}

// IsIncrease returns true if the transaction adds stock
func (t *StockTransaction) IsIncrease() bool {
	return t.Quantity.IsPositive()
}

// Value prices the movement at its unit cost; negative for consumption
func (t *StockTransaction) Value() valueobject.Money {
	return t.UnitCost.MultiplyByQuantity(t.Quantity)
}

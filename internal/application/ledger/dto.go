package ledger

import (
	"time"

	"github.com/google/uuid"
	"github.com/rai1001/ChefOsv2-sub002/internal/domain/ledger"
	"github.com/rai1001/ChefOsv2-sub002/internal/domain/shared/valueobject"
)

// RegisterIngredientRequest registers an ingredient with the ledger catalog
type RegisterIngredientRequest struct {
	ID                uuid.UUID         `json:"id"`
	OutletID          uuid.UUID         `json:"outlet_id" binding:"required"`
	Name              string            `json:"name" binding:"required,max=200"`
	CanonicalUnit     string            `json:"canonical_unit" binding:"required"`
	ConversionFactors map[string]string `json:"conversion_factors"`
}

// CreateBatchRequest receives a new batch.
// UnitCost is per unit of Quantity, whatever unit the delivery was counted in.
type CreateBatchRequest struct {
	IngredientID uuid.UUID              `json:"ingredient_id" binding:"required"`
	OutletID     uuid.UUID              `json:"outlet_id" binding:"required"`
	LotNumber    string                 `json:"lot_number" binding:"max=100"`
	Quantity     valueobject.Quantity   `json:"quantity"`
	UnitCost     valueobject.Money      `json:"unit_cost"`
	SupplierRef  string                 `json:"supplier_ref" binding:"max=100"`
	ReceivedDate *time.Time             `json:"received_date"`
	ExpiryDate   *time.Time             `json:"expiry_date"`
	Type         ledger.TransactionType `json:"type"` // PURCHASE (default) or INITIAL_STOCK
	PerformedBy  string                 `json:"performed_by"`
	ReferenceID  string                 `json:"reference_id"`
}

// ConsumeRequest draws stock down in FIFO order
type ConsumeRequest struct {
	IngredientID uuid.UUID              `json:"ingredient_id"`
	OutletID     uuid.UUID              `json:"outlet_id" binding:"required"`
	Quantity     valueobject.Quantity   `json:"quantity"`
	Type         ledger.TransactionType `json:"type"` // USAGE (default), PRODUCTION, WASTE, ADJUSTMENT
	PerformedBy  string                 `json:"performed_by"`
	Reason       string                 `json:"reason"`
	ReferenceID  string                 `json:"reference_id"`
}

// BatchConsumption is one batch's share of a consumption
type BatchConsumption struct {
	BatchID       uuid.UUID             `json:"batch_id"`
	Quantity      valueobject.Quantity  `json:"quantity"`
	UnitCost      valueobject.UnitPrice `json:"unit_cost"`
	Cost          valueobject.Money     `json:"cost"`
	TransactionID uuid.UUID             `json:"transaction_id"`
	Depleted      bool                  `json:"depleted"`
}

// ConsumeResult reports what a consumption drew.
// Shortfall is the requested amount active stock could not cover.
type ConsumeResult struct {
	Requested           valueobject.Quantity `json:"requested"`
	ConsumedFromBatches []BatchConsumption   `json:"consumed_from_batches"`
	TotalConsumed       valueobject.Quantity `json:"total_consumed"`
	Shortfall           valueobject.Quantity `json:"shortfall"`
	TotalCost           valueobject.Money    `json:"total_cost"`
}

// HasShortfall reports whether the request was only partially covered
func (r *ConsumeResult) HasShortfall() bool {
	return r.Shortfall.IsPositive()
}

// CorrectBatchRequest sets a batch's remaining quantity after a physical count
type CorrectBatchRequest struct {
	BatchID      uuid.UUID            `json:"-"`
	NewRemaining valueobject.Quantity `json:"new_remaining"`
	Reason       string               `json:"reason" binding:"required,max=500"`
	PerformedBy  string               `json:"performed_by"`
}

// ExpireBatchRequest forces a batch to EXPIRED
type ExpireBatchRequest struct {
	BatchID     uuid.UUID `json:"-"`
	Reason      string    `json:"reason" binding:"max=500"`
	PerformedBy string    `json:"performed_by"`
}

// RecordRequest appends a raw transaction to the ledger
type RecordRequest struct {
	IngredientID uuid.UUID            `json:"ingredient_id" binding:"required"`
	OutletID     uuid.UUID            `json:"outlet_id" binding:"required"`
	BatchID      *uuid.UUID           `json:"batch_id"`
	Quantity     valueobject.Quantity `json:"quantity"`
	UnitCost     valueobject.Money    `json:"unit_cost"`
	Type         string               `json:"type" binding:"required"`
	PerformedBy  string               `json:"performed_by"`
	Reason       string               `json:"reason"`
	ReferenceID  string               `json:"reference_id"`
	Date         *time.Time           `json:"date"`
}

// StockLevel is the on-hand quantity and value of an ingredient at an outlet
type StockLevel struct {
	IngredientID  uuid.UUID            `json:"ingredient_id"`
	OutletID      uuid.UUID            `json:"outlet_id"`
	Quantity      valueobject.Quantity `json:"quantity"`
	Value         valueobject.Money    `json:"value"`
	ActiveBatches int                  `json:"active_batches"`
}

// ReceiptLine is one delivered line of a purchase order
type ReceiptLine struct {
	LineRef      string               `json:"line_ref"`
	IngredientID uuid.UUID            `json:"ingredient_id" binding:"required"`
	LotNumber    string               `json:"lot_number"`
	Quantity     valueobject.Quantity `json:"quantity"`
	UnitCost     valueobject.Money    `json:"unit_cost"`
	ExpiryDate   *time.Time           `json:"expiry_date"`
}

// ReceiptRequest receives the delivered lines of a purchase order
type ReceiptRequest struct {
	PurchaseOrderID string        `json:"-"`
	OutletID        uuid.UUID     `json:"outlet_id" binding:"required"`
	SupplierRef     string        `json:"supplier_ref"`
	ReceivedDate    *time.Time    `json:"received_date"`
	PerformedBy     string        `json:"performed_by"`
	Lines           []ReceiptLine `json:"lines" binding:"required,min=1,dive"`
}

// ReceiptLineStatus is the outcome of one receipt line
type ReceiptLineStatus string

const (
	ReceiptLineReceived        ReceiptLineStatus = "RECEIVED"
	ReceiptLineAlreadyReceived ReceiptLineStatus = "ALREADY_RECEIVED"
	ReceiptLineFailed          ReceiptLineStatus = "FAILED"
)

// ReceiptLineResult carries the batch created for a line or why it failed
type ReceiptLineResult struct {
	Index   int               `json:"index"`
	LineRef string            `json:"line_ref,omitempty"`
	Status  ReceiptLineStatus `json:"status"`
	Batch   *ledger.Batch     `json:"-"`
	Err     error             `json:"-"`
}

// ReceiptResult summarizes a purchase-order receipt
type ReceiptResult struct {
	PurchaseOrderID string              `json:"purchase_order_id"`
	Lines           []ReceiptLineResult `json:"lines"`
	Received        int                 `json:"received"`
	AlreadyReceived int                 `json:"already_received"`
	Failed          int                 `json:"failed"`
}

// SweepStats summarizes one expiry sweep
type SweepStats struct {
	Outlets     int       `json:"outlets"`
	Expired     int       `json:"expired"`
	Failed      int       `json:"failed"`
	ProcessedAt time.Time `json:"processed_at"`
}

package handler

import (
	"errors"
	"time"

	"github.com/google/uuid"
	appledger "github.com/rai1001/ChefOsv2-sub002/internal/application/ledger"
	"github.com/rai1001/ChefOsv2-sub002/internal/domain/ledger"
	"github.com/rai1001/ChefOsv2-sub002/internal/domain/shared"
	"github.com/rai1001/ChefOsv2-sub002/internal/domain/shared/valueobject"
	"github.com/rai1001/ChefOsv2-sub002/internal/interfaces/http/dto"
)

// IngredientResponse represents a registered ingredient in API responses
type IngredientResponse struct {
	ID                uuid.UUID         `json:"id"`
	OutletID          uuid.UUID         `json:"outlet_id"`
	Name              string            `json:"name"`
	CanonicalUnit     string            `json:"canonical_unit"`
	ConversionFactors map[string]string `json:"conversion_factors,omitempty"`
}

// BatchResponse represents a batch in API responses
type BatchResponse struct {
	ID                uuid.UUID             `json:"id"`
	IngredientID      uuid.UUID             `json:"ingredient_id"`
	OutletID          uuid.UUID             `json:"outlet_id"`
	LotNumber         string                `json:"lot_number,omitempty"`
	ReceivedQuantity  valueobject.Quantity  `json:"received_quantity"`
	RemainingQuantity valueobject.Quantity  `json:"remaining_quantity"`
	UnitCost          valueobject.UnitPrice `json:"unit_cost"`
	TotalCost         valueobject.Money     `json:"total_cost"`
	RemainingValue    valueobject.Money     `json:"remaining_value"`
	SupplierRef       string                `json:"supplier_ref,omitempty"`
	ReceivedDate      time.Time             `json:"received_date"`
	ExpiryDate        *time.Time            `json:"expiry_date,omitempty"`
	Status            string                `json:"status"`
	Version           int                   `json:"version"`
	CreatedAt         time.Time             `json:"created_at"`
	UpdatedAt         time.Time             `json:"updated_at"`
}

// TransactionResponse represents a stock transaction in API responses
type TransactionResponse struct {
	ID           uuid.UUID             `json:"id"`
	IngredientID uuid.UUID             `json:"ingredient_id"`
	OutletID     uuid.UUID             `json:"outlet_id"`
	BatchID      *uuid.UUID            `json:"batch_id,omitempty"`
	Quantity     valueobject.Quantity  `json:"quantity"`
	UnitCost     valueobject.UnitPrice `json:"unit_cost"`
	Value        valueobject.Money     `json:"value"`
	Type         string                `json:"type"`
	PerformedBy  string                `json:"performed_by,omitempty"`
	Reason       string                `json:"reason,omitempty"`
	ReferenceID  string                `json:"reference_id,omitempty"`
	Date         time.Time             `json:"date"`
	CreatedAt    time.Time             `json:"created_at"`
}

// ExpiringBatchResponse is a batch on the expiry dashboard
type ExpiringBatchResponse struct {
	BatchResponse
	DaysUntilExpiry int    `json:"days_until_expiry"`
	ExpiryClass     string `json:"expiry_class"`
}

// ConsumeResponse is a consumption result plus its shortfall flag
type ConsumeResponse struct {
	*appledger.ConsumeResult
	HasShortfall bool `json:"has_shortfall"`
}

// ReceiptLineResponse is the outcome of one purchase-order line
type ReceiptLineResponse struct {
	Index   int            `json:"index"`
	LineRef string         `json:"line_ref,omitempty"`
	Status  string         `json:"status"`
	Batch   *BatchResponse `json:"batch,omitempty"`
	Error   *dto.ErrorInfo `json:"error,omitempty"`
}

// ReceiptResponse summarizes a purchase-order receipt
type ReceiptResponse struct {
	PurchaseOrderID string                `json:"purchase_order_id"`
	Lines           []ReceiptLineResponse `json:"lines"`
	Received        int                   `json:"received"`
	AlreadyReceived int                   `json:"already_received"`
	Failed          int                   `json:"failed"`
}

// ExpirySweepResponse reports a manual expiry sweep of one outlet
type ExpirySweepResponse struct {
	OutletID uuid.UUID `json:"outlet_id"`
	Expired  int       `json:"expired"`
	AsOf     time.Time `json:"as_of"`
}

func toIngredientResponse(ing *ledger.Ingredient) IngredientResponse {
	resp := IngredientResponse{
		ID:            ing.ID,
		OutletID:      ing.OutletID,
		Name:          ing.Name,
		CanonicalUnit: string(ing.CanonicalUnit),
	}
	if len(ing.ConversionFactors) > 0 {
		resp.ConversionFactors = make(map[string]string, len(ing.ConversionFactors))
		for unit, factor := range ing.ConversionFactors {
			resp.ConversionFactors[string(unit)] = factor.String()
		}
	}
	return resp
}

func toBatchResponse(b *ledger.Batch) BatchResponse {
	return BatchResponse{
		ID:                b.ID,
		IngredientID:      b.IngredientID,
		OutletID:          b.OutletID,
		LotNumber:         b.LotNumber,
		ReceivedQuantity:  b.ReceivedQuantity,
		RemainingQuantity: b.RemainingQuantity,
		UnitCost:          b.UnitCost,
		TotalCost:         b.TotalCost,
		RemainingValue:    b.RemainingValue(),
		SupplierRef:       b.SupplierRef,
		ReceivedDate:      b.ReceivedDate,
		ExpiryDate:        b.ExpiryDate,
		Status:            b.Status.String(),
		Version:           b.Version,
		CreatedAt:         b.CreatedAt,
		UpdatedAt:         b.UpdatedAt,
	}
}

func toBatchResponses(batches []ledger.Batch) []BatchResponse {
	out := make([]BatchResponse, len(batches))
	for i := range batches {
		out[i] = toBatchResponse(&batches[i])
	}
	return out
}

func toExpiringBatchResponses(batches []ledger.Batch, now time.Time, warnDays int) []ExpiringBatchResponse {
	out := make([]ExpiringBatchResponse, len(batches))
	for i := range batches {
		b := &batches[i]
		out[i] = ExpiringBatchResponse{
			BatchResponse:   toBatchResponse(b),
			DaysUntilExpiry: b.DaysUntilExpiry(now),
			ExpiryClass:     string(b.ClassifyExpiry(now, warnDays)),
		}
	}
	return out
}

func toTransactionResponse(tx *ledger.StockTransaction) TransactionResponse {
	return TransactionResponse{
		ID:           tx.ID,
		IngredientID: tx.IngredientID,
		OutletID:     tx.OutletID,
		BatchID:      tx.BatchID,
		Quantity:     tx.Quantity,
		UnitCost:     tx.UnitCost,
		Value:        tx.Value(),
		Type:         tx.Type.String(),
		PerformedBy:  tx.PerformedBy,
		Reason:       tx.Reason,
		ReferenceID:  tx.ReferenceID,
		Date:         tx.Date,
		CreatedAt:    tx.CreatedAt,
	}
}

func toTransactionResponses(txs []ledger.StockTransaction) []TransactionResponse {
	out := make([]TransactionResponse, len(txs))
	for i := range txs {
		out[i] = toTransactionResponse(&txs[i])
	}
	return out
}

func toReceiptResponse(r *appledger.ReceiptResult) ReceiptResponse {
	resp := ReceiptResponse{
		PurchaseOrderID: r.PurchaseOrderID,
		Lines:           make([]ReceiptLineResponse, len(r.Lines)),
		Received:        r.Received,
		AlreadyReceived: r.AlreadyReceived,
		Failed:          r.Failed,
	}
	for i, line := range r.Lines {
		lr := ReceiptLineResponse{
			Index:   line.Index,
			LineRef: line.LineRef,
			Status:  string(line.Status),
		}
		if line.Batch != nil {
			b := toBatchResponse(line.Batch)
			lr.Batch = &b
		}
		if line.Err != nil {
			lr.Error = errorInfo(line.Err)
		}
		resp.Lines[i] = lr
	}
	return resp
}

// errorInfo describes a line level error without failing the whole request
func errorInfo(err error) *dto.ErrorInfo {
	var domainErr *shared.DomainError
	if errors.As(err, &domainErr) {
		return &dto.ErrorInfo{Code: domainErr.Code, Message: domainErr.Message}
	}
	return &dto.ErrorInfo{Code: dto.ErrCodeInternal, Message: "An unexpected error occurred"}
}

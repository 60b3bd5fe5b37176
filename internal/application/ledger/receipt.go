package ledger

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rai1001/ChefOsv2-sub002/internal/domain/shared"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// receiptPendingTTL holds a line's key while its batch is being created
const receiptPendingTTL = 5 * time.Minute

// ReceiptService books the delivered lines of a purchase order as batches.
// Lines are independent: one failing line does not undo the others.
type ReceiptService struct {
	settings
	ledger      *BatchLedger
	idempotency shared.IdempotencyStore
}

// NewReceiptService creates a new ReceiptService. idempotency may be nil,
// in which case a repeated receipt creates new batches.
//
// A line's key is claimed for a few minutes before its batch is created and
// kept for the idempotency TTL only once the batch has committed. A failed
// line releases the key. If the process dies between claim and commit the
// line reports ALREADY_RECEIVED until the claim lapses, after which a retry
// books it.
func NewReceiptService(l *BatchLedger, idempotency shared.IdempotencyStore, opts ...Option) *ReceiptService {
	return &ReceiptService{
		settings:    newSettings(opts),
		ledger:      l,
		idempotency: idempotency,
	}
}

// ReceivePurchaseOrder creates one batch and PURCHASE transaction per line
func (s *ReceiptService) ReceivePurchaseOrder(ctx context.Context, req ReceiptRequest) (*ReceiptResult, error) {
	poID := strings.TrimSpace(req.PurchaseOrderID)
	if poID == "" {
		return nil, shared.Errorf(shared.ErrInvalidInput, "purchase order id is required")
	}
	if len(req.Lines) == 0 {
		return nil, shared.Errorf(shared.ErrInvalidInput, "purchase order %s has no lines to receive", poID)
	}

	results := make([]ReceiptLineResult, len(req.Lines))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.receiptConcurrency)
	for i, line := range req.Lines {
		g.Go(func() error {
			results[i] = s.receiveLine(gctx, poID, req, i, line)
			return nil
		})
	}
	_ = g.Wait()

	out := &ReceiptResult{PurchaseOrderID: poID, Lines: results}
	for _, r := range results {
		switch r.Status {
		case ReceiptLineReceived:
			out.Received++
		case ReceiptLineAlreadyReceived:
			out.AlreadyReceived++
		case ReceiptLineFailed:
			out.Failed++
		}
	}
	s.logger.Info("Purchase order received",
		zap.String("purchase_order_id", poID),
		zap.Int("received", out.Received),
		zap.Int("already_received", out.AlreadyReceived),
		zap.Int("failed", out.Failed),
	)
	return out, nil
}

func (s *ReceiptService) receiveLine(ctx context.Context, poID string, req ReceiptRequest, index int, line ReceiptLine) ReceiptLineResult {
	res := ReceiptLineResult{Index: index, LineRef: line.LineRef}
	key := receiptKey(poID, index, line)

	if s.idempotency != nil {
		first, err := s.idempotency.MarkProcessed(ctx, key, receiptPendingTTL)
		if err != nil {
			res.Status, res.Err = ReceiptLineFailed, translateStorageError(err)
			return res
		}
		if !first {
			res.Status = ReceiptLineAlreadyReceived
			return res
		}
	}

	batch, err := s.ledger.CreateBatch(ctx, CreateBatchRequest{
		IngredientID: line.IngredientID,
		OutletID:     req.OutletID,
		LotNumber:    line.LotNumber,
		Quantity:     line.Quantity,
		UnitCost:     line.UnitCost,
		SupplierRef:  req.SupplierRef,
		ReceivedDate: req.ReceivedDate,
		ExpiryDate:   line.ExpiryDate,
		PerformedBy:  req.PerformedBy,
		ReferenceID:  poID,
	})
	if err != nil {
		if s.idempotency != nil {
			if ferr := s.idempotency.Forget(context.WithoutCancel(ctx), key); ferr != nil {
				s.logger.Warn("Failed to release receipt key",
					zap.String("key", key),
					zap.Error(ferr),
				)
			}
		}
		s.logger.Warn("Receipt line failed",
			zap.String("purchase_order_id", poID),
			zap.Int("line", index),
			zap.Error(err),
		)
		res.Status, res.Err = ReceiptLineFailed, err
		return res
	}
	if s.idempotency != nil {
		if cerr := s.idempotency.Commit(context.WithoutCancel(ctx), key, s.idempotencyTTL); cerr != nil {
			s.logger.Warn("Failed to commit receipt key",
				zap.String("key", key),
				zap.Error(cerr),
			)
		}
	}
	res.Status, res.Batch = ReceiptLineReceived, batch
	return res
}

// receiptKey identifies a line across retries of the same receipt
func receiptKey(poID string, index int, line ReceiptLine) string {
	ref := strings.TrimSpace(line.LineRef)
	if ref == "" {
		ref = fmt.Sprintf("%s:%s:%d", line.IngredientID, strings.TrimSpace(line.LotNumber), index)
	}
	return fmt.Sprintf("receipt:%s:%s", poID, ref)
}

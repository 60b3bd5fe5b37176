package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rai1001/ChefOsv2-sub002/internal/domain/ledger"
	"github.com/rai1001/ChefOsv2-sub002/internal/domain/shared"
	"github.com/rai1001/ChefOsv2-sub002/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// BatchLedger owns every change to batch quantities: receipts, FIFO
// consumption, audit corrections and forced expiry. Each batch change is
// committed together with its stock transaction.
type BatchLedger struct {
	settings
	store ledger.Store
	locks *partitionLocks
}

// NewBatchLedger creates a new BatchLedger
func NewBatchLedger(store ledger.Store, opts ...Option) *BatchLedger {
	return &BatchLedger{
		settings: newSettings(opts),
		store:    store,
		locks:    newPartitionLocks(),
	}
}

// SetEventPublisher sets the event publisher for publishing domain events
func (l *BatchLedger) SetEventPublisher(publisher shared.EventPublisher) {
	l.publisher = publisher
}

// Currency returns the currency batches are costed in
func (l *BatchLedger) Currency() valueobject.Currency {
	return l.currency
}

// Now reads the ledger clock
func (l *BatchLedger) Now() time.Time {
	return l.clock()
}

// RegisterIngredient creates or replaces an ingredient in the catalog
func (l *BatchLedger) RegisterIngredient(ctx context.Context, req RegisterIngredientRequest) (*ledger.Ingredient, error) {
	unit, err := valueobject.ParseUnit(req.CanonicalUnit)
	if err != nil {
		return nil, err
	}
	ing, err := ledger.NewIngredient(req.ID, req.OutletID, req.Name, unit)
	if err != nil {
		return nil, err
	}
	for code, raw := range req.ConversionFactors {
		from, err := valueobject.ParseUnit(code)
		if err != nil {
			return nil, err
		}
		factor, err := decimal.NewFromString(raw)
		if err != nil || !factor.IsPositive() {
			return nil, shared.Errorf(shared.ErrInvalidInput, "conversion factor for %s must be a positive number", code)
		}
		ing.ConversionFactors[from] = factor
	}

	opCtx, cancel := l.withTimeout(ctx)
	defer cancel()
	if err := l.store.Ingredients().RegisterIngredient(opCtx, ing); err != nil {
		return nil, translateStorageError(err)
	}
	return ing, nil
}

func (l *BatchLedger) ingredient(ctx context.Context, ingredientID, outletID uuid.UUID) (*ledger.Ingredient, error) {
	if ingredientID == uuid.Nil || outletID == uuid.Nil {
		return nil, shared.Errorf(shared.ErrInvalidInput, "ingredient id and outlet id are required")
	}
	opCtx, cancel := l.withTimeout(ctx)
	defer cancel()
	ing, err := l.store.Ingredients().FindIngredient(opCtx, ingredientID, outletID)
	if err != nil {
		return nil, translateStorageError(err)
	}
	return ing, nil
}

// CreateBatch receives a batch in the ingredient's canonical unit and records
// its PURCHASE (or INITIAL_STOCK) transaction in the same unit of work.
func (l *BatchLedger) CreateBatch(ctx context.Context, req CreateBatchRequest) (*ledger.Batch, error) {
	txType := ledger.TypeForMovement(ledger.MovementReceipt)
	if req.Type != "" {
		parsed, err := ledger.ParseTransactionType(string(req.Type))
		if err != nil {
			return nil, err
		}
		if !parsed.IsReceipt() {
			return nil, shared.Errorf(shared.ErrInvalidTransactionType, "%s cannot create a batch", parsed)
		}
		txType = parsed
	}
	if !req.Quantity.IsPositive() {
		return nil, shared.Errorf(shared.ErrInvalidQuantity, "batch quantity must be positive, got %s", req.Quantity)
	}

	ing, err := l.ingredient(ctx, req.IngredientID, req.OutletID)
	if err != nil {
		return nil, err
	}
	canonical, err := ing.ToCanonical(req.Quantity)
	if err != nil {
		return nil, err
	}
	unitCost, totalCost, err := l.batchCost(req.UnitCost, req.Quantity, canonical)
	if err != nil {
		return nil, err
	}

	now := l.clock()
	var received time.Time
	if req.ReceivedDate != nil {
		received = *req.ReceivedDate
	}
	batch, err := ledger.NewBatch(ledger.NewBatchParams{
		IngredientID: ing.ID,
		OutletID:     ing.OutletID,
		LotNumber:    req.LotNumber,
		Quantity:     canonical,
		UnitCost:     unitCost,
		TotalCost:    totalCost,
		SupplierRef:  req.SupplierRef,
		ReceivedDate: received,
		ExpiryDate:   req.ExpiryDate,
		Now:          now,
	})
	if err != nil {
		return nil, err
	}

	release, err := l.locks.acquire(ctx, ing.ID, ing.OutletID)
	if err != nil {
		return nil, translateStorageError(err)
	}
	defer release()

	opCtx, cancel := l.withTimeout(ctx)
	defer cancel()
	err = l.store.Execute(opCtx, func(repos ledger.Repositories) error {
		if err := repos.Batches().Create(opCtx, batch); err != nil {
			return err
		}
		tx, err := ledger.NewStockTransaction(ledger.NewStockTransactionParams{
			IngredientID: batch.IngredientID,
			OutletID:     batch.OutletID,
			BatchID:      &batch.ID,
			Quantity:     batch.ReceivedQuantity,
			UnitCost:     batch.UnitCost,
			Type:         txType,
			PerformedBy:  req.PerformedBy,
			ReferenceID:  req.ReferenceID,
			Date:         batch.ReceivedDate,
			Now:          now,
		})
		if err != nil {
			return err
		}
		return repos.Transactions().Append(opCtx, tx)
	})
	if err != nil {
		return nil, translateStorageError(err)
	}

	l.logger.Info("Batch received",
		zap.String("batch_id", batch.ID.String()),
		zap.String("ingredient_id", batch.IngredientID.String()),
		zap.String("outlet_id", batch.OutletID.String()),
		zap.String("quantity", batch.ReceivedQuantity.String()),
		zap.String("total_cost", batch.TotalCost.String()),
	)
	l.publish(ctx, batch.GetDomainEvents()...)
	batch.ClearDomainEvents()
	return batch, nil
}

// batchCost prices the delivery as given and re-expresses the per-unit cost
// against the canonical unit without rounding
func (l *BatchLedger) batchCost(cost valueobject.Money, given, canonical valueobject.Quantity) (valueobject.UnitPrice, valueobject.Money, error) {
	if cost.Currency() == "" {
		cost = valueobject.Zero(l.currency)
	}
	if cost.Currency() != l.currency {
		return valueobject.UnitPrice{}, valueobject.Money{}, shared.Errorf(shared.ErrCurrencyMismatch,
			"batches are costed in %s, got %s", l.currency, cost.Currency())
	}
	if cost.IsNegative() {
		return valueobject.UnitPrice{}, valueobject.Money{}, shared.Errorf(shared.ErrInvalidInput, "unit cost cannot be negative")
	}
	price := valueobject.UnitPriceOf(cost)
	total := price.MultiplyByQuantity(given)
	if given.Unit() == canonical.Unit() {
		return price, total, nil
	}
	return price.Scale(given.Amount().Div(canonical.Amount())), total, nil
}

// ListActiveBatchesFIFO returns the ACTIVE batches of an ingredient in consumption order
func (l *BatchLedger) ListActiveBatchesFIFO(ctx context.Context, ingredientID, outletID uuid.UUID) ([]ledger.Batch, error) {
	if ingredientID == uuid.Nil || outletID == uuid.Nil {
		return nil, shared.Errorf(shared.ErrInvalidInput, "ingredient id and outlet id are required")
	}
	opCtx, cancel := l.withTimeout(ctx)
	defer cancel()
	batches, err := l.store.Batches().FindActiveBatchesOrderedByExpiry(opCtx, ingredientID, outletID)
	if err != nil {
		return nil, translateStorageError(err)
	}
	batches = ledger.ActiveOnly(batches)
	ledger.SortFIFO(batches)
	return batches, nil
}

// GetBatch returns a batch by id
func (l *BatchLedger) GetBatch(ctx context.Context, batchID uuid.UUID) (*ledger.Batch, error) {
	opCtx, cancel := l.withTimeout(ctx)
	defer cancel()
	b, err := l.store.Batches().FindByID(opCtx, batchID)
	if err != nil {
		return nil, translateStorageError(err)
	}
	return b, nil
}

// Consume draws the requested quantity from ACTIVE batches, earliest expiry
// first. Each batch draw commits with its negative transaction. A stale batch
// version re-reads the batches and retries the outstanding quantity; draws
// already committed stay committed and are reported in the result even when
// an error is returned.
func (l *BatchLedger) Consume(ctx context.Context, req ConsumeRequest) (*ConsumeResult, error) {
	txType, err := consumptionType(req.Type)
	if err != nil {
		return nil, err
	}
	if req.Quantity.IsNegative() {
		return nil, shared.Errorf(shared.ErrInvalidQuantity, "consumption quantity cannot be negative, got %s", req.Quantity)
	}
	if !req.Quantity.Unit().IsValid() {
		return nil, shared.Errorf(shared.ErrInvalidInput, "quantity unit is required")
	}

	ing, err := l.ingredient(ctx, req.IngredientID, req.OutletID)
	if err != nil {
		return nil, err
	}
	want, err := ing.ToCanonical(req.Quantity)
	if err != nil {
		return nil, err
	}

	result := &ConsumeResult{
		Requested:     want,
		TotalConsumed: valueobject.ZeroQuantity(want.Unit()),
		Shortfall:     valueobject.ZeroQuantity(want.Unit()),
		TotalCost:     valueobject.Zero(l.currency),
	}
	if want.IsZero() {
		return result, nil
	}

	release, err := l.locks.acquire(ctx, ing.ID, ing.OutletID)
	if err != nil {
		return nil, translateStorageError(err)
	}
	defer release()

	opCtx, cancel := l.withTimeout(ctx)
	defer cancel()

	var events []shared.DomainEvent
	outstanding := want
	err = retryOnConflict(opCtx, l.retry, func(attempt int) error {
		batches, err := l.store.Batches().FindActiveBatchesOrderedByExpiry(opCtx, ing.ID, ing.OutletID)
		if err != nil {
			return err
		}
		ledger.SortFIFO(batches)
		plan, err := ledger.PlanConsumption(batches, outstanding)
		if err != nil {
			return err
		}
		for _, draw := range plan.Draws {
			if err := opCtx.Err(); err != nil {
				return err
			}
			consumed, batch, err := l.commitDraw(opCtx, req, txType, draw)
			if err != nil {
				return err
			}
			if err := result.add(consumed); err != nil {
				return err
			}
			if outstanding, err = outstanding.Subtract(consumed.Quantity); err != nil {
				return err
			}
			if consumed.Depleted {
				events = append(events, ledger.NewBatchDepletedEvent(batch, l.clock()))
			}
		}
		return nil
	}, func(err error, wait time.Duration) {
		l.logger.Debug("Batch version conflict, retrying consumption",
			zap.String("ingredient_id", ing.ID.String()),
			zap.String("outlet_id", ing.OutletID.String()),
			zap.Duration("wait", wait),
			zap.Error(err),
		)
	})

	if shortfall, serr := ledger.ShortfallOf(want, result.TotalConsumed); serr == nil {
		result.Shortfall = shortfall
	}
	l.publish(ctx, events...)

	if err != nil {
		err = translateStorageError(err)
		if errors.Is(err, shared.ErrConcurrencyExhausted) {
			l.logger.Error("Consumption gave up on concurrent batch updates",
				zap.String("ingredient_id", ing.ID.String()),
				zap.String("outlet_id", ing.OutletID.String()),
				zap.String("consumed", result.TotalConsumed.String()),
				zap.Error(err),
			)
		}
		return result, err
	}

	if result.HasShortfall() {
		l.logger.Warn("Consumption exceeded active stock",
			zap.String("ingredient_id", ing.ID.String()),
			zap.String("outlet_id", ing.OutletID.String()),
			zap.String("requested", want.String()),
			zap.String("shortfall", result.Shortfall.String()),
		)
		l.publish(ctx, ledger.NewConsumptionShortfallEvent(ing.ID, ing.OutletID, want, result.Shortfall, l.clock()))
	}
	return result, nil
}

func consumptionType(t ledger.TransactionType) (ledger.TransactionType, error) {
	if t == "" {
		return ledger.TypeForMovement(ledger.MovementSaleUse), nil
	}
	parsed, err := ledger.ParseTransactionType(string(t))
	if err != nil {
		return "", err
	}
	if !parsed.IsConsumption() {
		return "", shared.Errorf(shared.ErrInvalidTransactionType, "%s cannot consume stock", parsed)
	}
	return parsed, nil
}

// commitDraw applies one planned draw and appends its transaction atomically
func (l *BatchLedger) commitDraw(ctx context.Context, req ConsumeRequest, txType ledger.TransactionType, draw ledger.BatchDraw) (BatchConsumption, *ledger.Batch, error) {
	var (
		updated *ledger.Batch
		tx      *ledger.StockTransaction
	)
	err := l.store.Execute(ctx, func(repos ledger.Repositories) error {
		b, err := repos.Batches().ApplyConsumption(ctx, draw.BatchID, draw.NewRemaining, draw.NewStatus, draw.ExpectedVersion)
		if err != nil {
			return err
		}
		batchID := draw.BatchID
		tx, err = ledger.NewStockTransaction(ledger.NewStockTransactionParams{
			IngredientID: b.IngredientID,
			OutletID:     b.OutletID,
			BatchID:      &batchID,
			Quantity:     draw.Drawn.Negate(),
			UnitCost:     draw.UnitCost,
			Type:         txType,
			PerformedBy:  req.PerformedBy,
			Reason:       req.Reason,
			ReferenceID:  req.ReferenceID,
			Now:          l.clock(),
		})
		if err != nil {
			return err
		}
		if err := repos.Transactions().Append(ctx, tx); err != nil {
			return err
		}
		updated = b
		return nil
	})
	if err != nil {
		return BatchConsumption{}, nil, err
	}
	return BatchConsumption{
		BatchID:       draw.BatchID,
		Quantity:      draw.Drawn,
		UnitCost:      draw.UnitCost,
		Cost:          draw.UnitCost.MultiplyByQuantity(draw.Drawn),
		TransactionID: tx.ID,
		Depleted:      draw.Depletes(),
	}, updated, nil
}

func (r *ConsumeResult) add(c BatchConsumption) error {
	total, err := r.TotalConsumed.Add(c.Quantity)
	if err != nil {
		return err
	}
	cost, err := r.TotalCost.Add(c.Cost)
	if err != nil {
		return err
	}
	r.ConsumedFromBatches = append(r.ConsumedFromBatches, c)
	r.TotalConsumed = total
	r.TotalCost = cost
	return nil
}

// CorrectBatch sets a batch's remaining quantity to an audited count and
// records the difference as an AUDIT transaction. A count equal to the
// current remaining quantity writes nothing.
func (l *BatchLedger) CorrectBatch(ctx context.Context, req CorrectBatchRequest) (*ledger.Batch, error) {
	reason := strings.TrimSpace(req.Reason)
	if reason == "" {
		return nil, shared.Errorf(shared.ErrInvalidInput, "a reason is required to correct a batch")
	}
	if req.NewRemaining.IsNegative() {
		return nil, shared.Errorf(shared.ErrInvalidQuantity, "remaining quantity cannot be negative")
	}

	current, err := l.GetBatch(ctx, req.BatchID)
	if err != nil {
		return nil, err
	}
	counted := req.NewRemaining
	if counted.Unit() != current.Unit() {
		if counted, err = counted.ConvertTo(current.Unit()); err != nil {
			return nil, err
		}
	}

	release, err := l.locks.acquire(ctx, current.IngredientID, current.OutletID)
	if err != nil {
		return nil, translateStorageError(err)
	}
	defer release()

	opCtx, cancel := l.withTimeout(ctx)
	defer cancel()

	var (
		result *ledger.Batch
		delta  valueobject.Quantity
	)
	err = retryOnConflict(opCtx, l.retry, func(int) error {
		b, err := l.store.Batches().FindByID(opCtx, req.BatchID)
		if err != nil {
			return err
		}
		plan, err := b.PlanCorrection(counted)
		if err != nil {
			return err
		}
		if plan.IsNoop() {
			result, delta = b, plan.Delta
			return nil
		}
		return l.store.Execute(opCtx, func(repos ledger.Repositories) error {
			updated, err := repos.Batches().ApplyConsumption(opCtx, b.ID, plan.NewRemaining, plan.NewStatus, plan.ExpectedVersion)
			if err != nil {
				return err
			}
			tx, err := ledger.NewStockTransaction(ledger.NewStockTransactionParams{
				IngredientID: b.IngredientID,
				OutletID:     b.OutletID,
				BatchID:      &b.ID,
				Quantity:     plan.Delta,
				UnitCost:     b.UnitCost,
				Type:         ledger.TypeForMovement(ledger.MovementCountCorrection),
				PerformedBy:  req.PerformedBy,
				Reason:       reason,
				Now:          l.clock(),
			})
			if err != nil {
				return err
			}
			if err := repos.Transactions().Append(opCtx, tx); err != nil {
				return err
			}
			result, delta = updated, plan.Delta
			return nil
		})
	}, nil)
	if err != nil {
		return nil, translateStorageError(err)
	}

	if !delta.IsZero() {
		l.logger.Info("Batch corrected",
			zap.String("batch_id", result.ID.String()),
			zap.String("delta", delta.String()),
			zap.String("reason", reason),
		)
		l.publish(ctx, ledger.NewBatchCorrectedEvent(result, delta, reason, l.clock()))
	}
	return result, nil
}

// ExpireBatch forces a batch to EXPIRED and writes its remaining quantity off
// with a WASTE transaction. Expiring an EXPIRED batch returns it unchanged.
func (l *BatchLedger) ExpireBatch(ctx context.Context, req ExpireBatchRequest) (*ledger.Batch, error) {
	current, err := l.GetBatch(ctx, req.BatchID)
	if err != nil {
		return nil, err
	}
	if current.Status == ledger.BatchStatusExpired {
		return current, nil
	}
	reason := strings.TrimSpace(req.Reason)
	if reason == "" {
		reason = "expired"
	}

	release, err := l.locks.acquire(ctx, current.IngredientID, current.OutletID)
	if err != nil {
		return nil, translateStorageError(err)
	}
	defer release()

	opCtx, cancel := l.withTimeout(ctx)
	defer cancel()

	var (
		result     *ledger.Batch
		writtenOff valueobject.Quantity
		changed    bool
	)
	err = retryOnConflict(opCtx, l.retry, func(int) error {
		b, err := l.store.Batches().FindByID(opCtx, req.BatchID)
		if err != nil {
			return err
		}
		if b.Status == ledger.BatchStatusExpired {
			result, changed = b, false
			return nil
		}
		left := b.RemainingQuantity
		return l.store.Execute(opCtx, func(repos ledger.Repositories) error {
			updated, err := repos.Batches().ApplyConsumption(opCtx, b.ID,
				valueobject.ZeroQuantity(b.Unit()), ledger.BatchStatusExpired, b.Version)
			if err != nil {
				return err
			}
			if !left.IsZero() {
				tx, err := ledger.NewStockTransaction(ledger.NewStockTransactionParams{
					IngredientID: b.IngredientID,
					OutletID:     b.OutletID,
					BatchID:      &b.ID,
					Quantity:     left.Negate(),
					UnitCost:     b.UnitCost,
					Type:         ledger.TypeForMovement(ledger.MovementDiscard),
					PerformedBy:  req.PerformedBy,
					Reason:       reason,
					Now:          l.clock(),
				})
				if err != nil {
					return err
				}
				if err := repos.Transactions().Append(opCtx, tx); err != nil {
					return err
				}
			}
			result, writtenOff, changed = updated, left, true
			return nil
		})
	}, nil)
	if err != nil {
		return nil, translateStorageError(err)
	}

	if changed {
		l.logger.Info("Batch expired",
			zap.String("batch_id", result.ID.String()),
			zap.String("written_off", writtenOff.String()),
		)
		l.publish(ctx, ledger.NewBatchExpiredEvent(result, writtenOff, l.clock()))
	}
	return result, nil
}

// ExpireDueBatches expires every ACTIVE batch at the outlet whose expiry date
// lies before asOf. It returns how many batches were expired; failures on
// individual batches are joined into the returned error.
func (l *BatchLedger) ExpireDueBatches(ctx context.Context, outletID uuid.UUID, asOf time.Time) (int, error) {
	opCtx, cancel := l.withTimeout(ctx)
	due, err := l.store.Batches().FindBatchesExpiringWithin(opCtx, outletID, 0, asOf)
	cancel()
	if err != nil {
		return 0, translateStorageError(err)
	}

	var (
		expired int
		errs    []error
	)
	for i := range due {
		if !due[i].IsActive() || !due[i].IsExpiredAt(asOf) {
			continue
		}
		if _, err := l.ExpireBatch(ctx, ExpireBatchRequest{BatchID: due[i].ID, Reason: "past expiry date", PerformedBy: "expiry-sweeper"}); err != nil {
			errs = append(errs, fmt.Errorf("batch %s: %w", due[i].ID, err))
			continue
		}
		expired++
	}
	return expired, errors.Join(errs...)
}

// DeleteDepletedBatch removes a batch that no longer holds stock.
// Its transactions stay in the ledger.
func (l *BatchLedger) DeleteDepletedBatch(ctx context.Context, batchID uuid.UUID) error {
	b, err := l.GetBatch(ctx, batchID)
	if err != nil {
		return err
	}
	if b.HasStock() {
		return shared.Errorf(shared.ErrInvalidState, "batch %s still holds %s", b.ID, b.RemainingQuantity)
	}

	release, err := l.locks.acquire(ctx, b.IngredientID, b.OutletID)
	if err != nil {
		return translateStorageError(err)
	}
	defer release()

	opCtx, cancel := l.withTimeout(ctx)
	defer cancel()
	if err := l.store.Batches().DeleteDepleted(opCtx, batchID); err != nil {
		return translateStorageError(err)
	}
	l.logger.Info("Depleted batch deleted", zap.String("batch_id", batchID.String()))
	return nil
}

// FindBatchesExpiringWithin lists ACTIVE batches at an outlet expiring within
// the next days days, including those already past their date
func (l *BatchLedger) FindBatchesExpiringWithin(ctx context.Context, outletID uuid.UUID, days int) ([]ledger.Batch, error) {
	if outletID == uuid.Nil {
		return nil, shared.Errorf(shared.ErrInvalidInput, "outlet id is required")
	}
	if days < 0 {
		return nil, shared.Errorf(shared.ErrInvalidInput, "days cannot be negative")
	}
	opCtx, cancel := l.withTimeout(ctx)
	defer cancel()
	batches, err := l.store.Batches().FindBatchesExpiringWithin(opCtx, outletID, days, l.clock())
	if err != nil {
		return nil, translateStorageError(err)
	}
	return batches, nil
}

// StockValuation prices the remaining quantity of every ACTIVE batch at its
// unit cost, rounding once with banker's rounding
func (l *BatchLedger) StockValuation(ctx context.Context, ingredientID, outletID uuid.UUID) (valueobject.Money, error) {
	batches, err := l.ListActiveBatchesFIFO(ctx, ingredientID, outletID)
	if err != nil {
		return valueobject.Money{}, err
	}
	return valuation(batches, l.currency)
}

func valuation(batches []ledger.Batch, currency valueobject.Currency) (valueobject.Money, error) {
	total := decimal.Zero
	for i := range batches {
		b := &batches[i]
		if b.UnitCost.Currency() != currency {
			return valueobject.Money{}, shared.Errorf(shared.ErrCurrencyMismatch,
				"batch %s is costed in %s, valuation is in %s", b.ID, b.UnitCost.Currency(), currency)
		}
		total = total.Add(b.UnitCost.MinorUnits().Mul(b.RemainingQuantity.Amount()))
	}
	return valueobject.NewMoneyFromDecimal(total.Shift(-currency.Exponent()), currency)
}

// translateStorageError turns deadline and connectivity failures into
// shared.ErrRepositoryUnavailable and leaves domain errors as they are
func translateStorageError(err error) error {
	if err == nil {
		return nil
	}
	var domainErr *shared.DomainError
	if errors.As(err, &domainErr) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return shared.Errorf(shared.ErrRepositoryUnavailable, "ledger storage did not answer in time: %v", err)
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	return shared.Errorf(shared.ErrRepositoryUnavailable, "ledger storage failed: %v", err)
}

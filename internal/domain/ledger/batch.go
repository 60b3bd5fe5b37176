package ledger

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rai1001/ChefOsv2-sub002/internal/domain/shared"
	"github.com/rai1001/ChefOsv2-sub002/internal/domain/shared/valueobject"
)

// BatchStatus represents the lifecycle state of a batch
type BatchStatus string

const (
	BatchStatusActive   BatchStatus = "ACTIVE"
	BatchStatusDepleted BatchStatus = "DEPLETED"
	BatchStatusExpired  BatchStatus = "EXPIRED"
)

// IsValid checks if the status is known
func (s BatchStatus) IsValid() bool {
	switch s {
	case BatchStatusActive, BatchStatusDepleted, BatchStatusExpired:
		return true
	}
	return false
}

// String returns the string representation
func (s BatchStatus) String() string {
	return string(s)
}

// Batch is one discrete, dated, costed receipt of an ingredient at an outlet.
// ReceivedQuantity, UnitCost, TotalCost, IngredientID and OutletID never change
// after creation; RemainingQuantity only moves through a draw or a correction.
type Batch struct {
	shared.BaseAggregateRoot
	IngredientID      uuid.UUID
	OutletID          uuid.UUID
	LotNumber         string
	ReceivedQuantity  valueobject.Quantity
	RemainingQuantity valueobject.Quantity
	UnitCost          valueobject.UnitPrice
	TotalCost         valueobject.Money
	SupplierRef       string
	ReceivedDate      time.Time
	ExpiryDate        *time.Time
	Status            BatchStatus
}

// NewBatchParams holds the inputs of NewBatch. UnitCost is per unit of
// Quantity. TotalCost is what was paid for the delivery; when it has no
// currency it is priced from UnitCost.
type NewBatchParams struct {
	IngredientID uuid.UUID
	OutletID     uuid.UUID
	LotNumber    string
	Quantity     valueobject.Quantity
	UnitCost     valueobject.UnitPrice
	TotalCost    valueobject.Money
	SupplierRef  string
	ReceivedDate time.Time
	ExpiryDate   *time.Time
	Now          time.Time
}

// NewBatch creates an ACTIVE batch holding its full received quantity
func NewBatch(p NewBatchParams) (*Batch, error) {
	if p.IngredientID == uuid.Nil {
		return nil, shared.Errorf(shared.ErrInvalidInput, "ingredient id is required")
	}
	if p.OutletID == uuid.Nil {
		return nil, shared.Errorf(shared.ErrInvalidInput, "outlet id is required")
	}
	if !p.Quantity.IsPositive() || p.Quantity.IsNegligible() {
		return nil, shared.Errorf(shared.ErrInvalidQuantity, "batch quantity must be positive, got %s", p.Quantity)
	}
	if p.UnitCost.IsNegative() {
		return nil, shared.Errorf(shared.ErrInvalidInput, "unit cost cannot be negative")
	}
	total := p.TotalCost
	if total.Currency() == "" {
		total = p.UnitCost.MultiplyByQuantity(p.Quantity)
	}
	if total.Currency() != p.UnitCost.Currency() {
		return nil, shared.Errorf(shared.ErrCurrencyMismatch,
			"total cost in %s, unit cost in %s", total.Currency(), p.UnitCost.Currency())
	}
	if total.IsNegative() {
		return nil, shared.Errorf(shared.ErrInvalidInput, "total cost cannot be negative")
	}
	if p.Now.IsZero() {
		p.Now = time.Now()
	}
	received := p.ReceivedDate
	if received.IsZero() {
		received = p.Now
	}
	if p.ExpiryDate != nil {
		exp := p.ExpiryDate.UTC()
		p.ExpiryDate = &exp
	}

	b := &Batch{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(p.Now),
		IngredientID:      p.IngredientID,
		OutletID:          p.OutletID,
		LotNumber:         strings.TrimSpace(p.LotNumber),
		ReceivedQuantity:  p.Quantity,
		RemainingQuantity: p.Quantity,
		UnitCost:          p.UnitCost,
		TotalCost:         total,
		SupplierRef:       strings.TrimSpace(p.SupplierRef),
		ReceivedDate:      received.UTC(),
		ExpiryDate:        p.ExpiryDate,
		Status:            BatchStatusActive,
	}
	b.AddDomainEvent(NewBatchReceivedEvent(b))
	return b, nil
}

// Unit returns the unit all of this batch's quantities are expressed in
func (b *Batch) Unit() valueobject.Unit {
	return b.ReceivedQuantity.Unit()
}

// IsActive reports whether the batch can be drawn from
func (b *Batch) IsActive() bool {
	return b.Status == BatchStatusActive
}

// HasStock reports a remaining quantity above epsilon
func (b *Batch) HasStock() bool {
	return b.RemainingQuantity.IsPositive() && !b.RemainingQuantity.IsNegligible()
}

// IsExpiredAt reports whether the expiry date lies before at
func (b *Batch) IsExpiredAt(at time.Time) bool {
	return b.ExpiryDate != nil && b.ExpiryDate.Before(at)
}

// ExpiresWithin reports whether the batch expires in [at, at+days]
func (b *Batch) ExpiresWithin(at time.Time, days int) bool {
	if b.ExpiryDate == nil {
		return false
	}
	return !b.ExpiryDate.After(at.AddDate(0, 0, days))
}

// DaysUntilExpiry returns whole days until expiry, -1 if no expiry date
func (b *Batch) DaysUntilExpiry(at time.Time) int {
	if b.ExpiryDate == nil {
		return -1
	}
	return int(b.ExpiryDate.Sub(at).Hours() / 24)
}

// ExpiryClass is the freshness bucket shown on expiry dashboards
type ExpiryClass string

const (
	ExpiryFresh        ExpiryClass = "FRESH"
	ExpiryExpiringSoon ExpiryClass = "EXPIRING_SOON"
	ExpiryExpired      ExpiryClass = "EXPIRED"
	ExpiryNone         ExpiryClass = "NO_EXPIRY"
)

// ClassifyExpiry buckets the batch relative to at
func (b *Batch) ClassifyExpiry(at time.Time, warnDays int) ExpiryClass {
	switch {
	case b.Status == BatchStatusExpired || b.IsExpiredAt(at):
		return ExpiryExpired
	case b.ExpiryDate == nil:
		return ExpiryNone
	case b.ExpiresWithin(at, warnDays):
		return ExpiryExpiringSoon
	default:
		return ExpiryFresh
	}
}

// BatchDraw is the planned state change of drawing from one batch.
// Drawn is positive; NewRemaining is already clamped.
type BatchDraw struct {
	BatchID         uuid.UUID
	Drawn           valueobject.Quantity
	NewRemaining    valueobject.Quantity
	NewStatus       BatchStatus
	ExpectedVersion int
	UnitCost        valueobject.UnitPrice
}

// Depletes reports whether the draw empties the batch
func (d BatchDraw) Depletes() bool {
	return d.NewStatus == BatchStatusDepleted
}

// PlanDraw computes min(remaining, want) and the resulting state.
// want must be in the batch unit.
func (b *Batch) PlanDraw(want valueobject.Quantity) (BatchDraw, error) {
	if !b.IsActive() {
		return BatchDraw{}, shared.Errorf(shared.ErrInvalidState, "batch %s is %s", b.ID, b.Status)
	}
	if !want.IsPositive() {
		return BatchDraw{}, shared.Errorf(shared.ErrInvalidQuantity, "draw quantity must be positive, got %s", want)
	}
	drawn, err := b.RemainingQuantity.Min(want)
	if err != nil {
		return BatchDraw{}, err
	}
	left, err := b.RemainingQuantity.Subtract(drawn)
	if err != nil {
		return BatchDraw{}, err
	}
	left = left.ClampToZero()

	status := BatchStatusActive
	if left.IsZero() {
		// the residue below epsilon goes with the draw
		drawn = b.RemainingQuantity
		status = BatchStatusDepleted
	}
	return BatchDraw{
		BatchID:         b.ID,
		Drawn:           drawn,
		NewRemaining:    left,
		NewStatus:       status,
		ExpectedVersion: b.Version,
		UnitCost:        b.UnitCost,
	}, nil
}

// BatchCorrection is the planned state change of an audit count
type BatchCorrection struct {
	Delta           valueobject.Quantity
	NewRemaining    valueobject.Quantity
	NewStatus       BatchStatus
	ExpectedVersion int
}

// IsNoop reports a correction that changes nothing
func (c BatchCorrection) IsNoop() bool {
	return c.Delta.IsZero()
}

// PlanCorrection validates an audited remaining quantity and returns the delta.
// ACTIVE and DEPLETED batches follow the new value; EXPIRED stays EXPIRED.
func (b *Batch) PlanCorrection(newRemaining valueobject.Quantity) (BatchCorrection, error) {
	if newRemaining.IsNegative() {
		return BatchCorrection{}, shared.Errorf(shared.ErrInvalidQuantity, "remaining quantity cannot be negative")
	}
	over, err := newRemaining.Subtract(b.ReceivedQuantity)
	if err != nil {
		return BatchCorrection{}, err
	}
	if over.IsPositive() && !over.IsNegligible() {
		return BatchCorrection{}, shared.Errorf(shared.ErrInvalidQuantity,
			"remaining %s exceeds received %s", newRemaining, b.ReceivedQuantity)
	}
	if over.IsPositive() {
		newRemaining = b.ReceivedQuantity
	}
	newRemaining = newRemaining.ClampToZero()

	delta, err := newRemaining.Subtract(b.RemainingQuantity)
	if err != nil {
		return BatchCorrection{}, err
	}

	status := b.Status
	if status != BatchStatusExpired {
		status = BatchStatusActive
		if newRemaining.IsZero() {
			status = BatchStatusDepleted
		}
	}
	return BatchCorrection{
		Delta:           delta,
		NewRemaining:    newRemaining,
		NewStatus:       status,
		ExpectedVersion: b.Version,
	}, nil
}

// RemainingValue prices the remaining quantity at the batch unit cost
func (b *Batch) RemainingValue() valueobject.Money {
	return b.UnitCost.MultiplyByQuantity(b.RemainingQuantity)
}

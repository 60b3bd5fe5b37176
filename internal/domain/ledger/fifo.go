package ledger

import (
	"bytes"
	"sort"

	"github.com/rai1001/ChefOsv2-sub002/internal/domain/shared/valueobject"
)

// FIFOLess orders batches for consumption: earliest expiry first (batches
// without expiry last), then receipt order, then lot number, then id.
func FIFOLess(a, b *Batch) bool {
	switch {
	case a.ExpiryDate != nil && b.ExpiryDate != nil:
		if !a.ExpiryDate.Equal(*b.ExpiryDate) {
			return a.ExpiryDate.Before(*b.ExpiryDate)
		}
	case a.ExpiryDate != nil:
		return true
	case b.ExpiryDate != nil:
		return false
	}
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	if a.LotNumber != b.LotNumber {
		return a.LotNumber < b.LotNumber
	}
	return bytes.Compare(a.ID[:], b.ID[:]) < 0
}

// SortFIFO sorts batches in place into consumption order.
// Backends that can order at query level still pass through here so the
// order never depends on how a store returns ties.
func SortFIFO(batches []Batch) {
	sort.SliceStable(batches, func(i, j int) bool {
		return FIFOLess(&batches[i], &batches[j])
	})
}

// ActiveOnly drops batches that are not ACTIVE
func ActiveOnly(batches []Batch) []Batch {
	active := make([]Batch, 0, len(batches))
	for _, b := range batches {
		if b.IsActive() {
			active = append(active, b)
		}
	}
	return active
}

// ConsumptionPlan is the pure outcome of walking a FIFO list
type ConsumptionPlan struct {
	Draws     []BatchDraw
	Total     valueobject.Quantity
	Shortfall valueobject.Quantity
}

// PlanConsumption walks FIFO-ordered active batches, drawing
// min(remaining, still needed) from each until want is covered or the
// list runs out. It does not mutate the batches.
func PlanConsumption(batches []Batch, want valueobject.Quantity) (ConsumptionPlan, error) {
	plan := ConsumptionPlan{
		Total:     valueobject.ZeroQuantity(want.Unit()),
		Shortfall: want,
	}
	needed := want
	for i := range batches {
		if needed.IsNegligible() {
			break
		}
		b := &batches[i]
		if !b.IsActive() || !b.HasStock() {
			continue
		}
		draw, err := b.PlanDraw(needed)
		if err != nil {
			return ConsumptionPlan{}, err
		}
		plan.Draws = append(plan.Draws, draw)
		if plan.Total, err = plan.Total.Add(draw.Drawn); err != nil {
			return ConsumptionPlan{}, err
		}
		if needed, err = needed.Subtract(draw.Drawn); err != nil {
			return ConsumptionPlan{}, err
		}
	}
	plan.Shortfall = clampShortfall(needed)
	return plan, nil
}

func clampShortfall(q valueobject.Quantity) valueobject.Quantity {
	if q.IsNegative() || q.IsNegligible() {
		return valueobject.ZeroQuantity(q.Unit())
	}
	return q
}

// ShortfallOf returns the uncovered part of want after consumed, never negative
func ShortfallOf(want, consumed valueobject.Quantity) (valueobject.Quantity, error) {
	left, err := want.Subtract(consumed)
	if err != nil {
		return valueobject.Quantity{}, err
	}
	return clampShortfall(left), nil
}

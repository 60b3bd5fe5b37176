package ledger

import (
	"strings"

	"github.com/google/uuid"
	"github.com/rai1001/ChefOsv2-sub002/internal/domain/shared"
	"github.com/rai1001/ChefOsv2-sub002/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// Ingredient is the ledger's read view of an ingredient owned by the
// catalog. Every batch and transaction of the ingredient is kept in
// CanonicalUnit.
type Ingredient struct {
	ID            uuid.UUID
	OutletID      uuid.UUID
	Name          string
	CanonicalUnit valueobject.Unit
	// ConversionFactors holds, per foreign unit, how many canonical units
	// one foreign unit is worth (density or piece weight).
	ConversionFactors map[valueobject.Unit]decimal.Decimal
}

// NewIngredient validates an ingredient record
func NewIngredient(id, outletID uuid.UUID, name string, unit valueobject.Unit) (*Ingredient, error) {
	if id == uuid.Nil {
		id = uuid.New()
	}
	if outletID == uuid.Nil {
		return nil, shared.Errorf(shared.ErrInvalidInput, "outlet id is required")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, shared.Errorf(shared.ErrInvalidInput, "ingredient name is required")
	}
	if !unit.IsValid() {
		return nil, shared.Errorf(shared.ErrInvalidInput, "unknown canonical unit %q", unit)
	}
	return &Ingredient{
		ID:                id,
		OutletID:          outletID,
		Name:              name,
		CanonicalUnit:     unit,
		ConversionFactors: map[valueobject.Unit]decimal.Decimal{},
	}, nil
}

// ToCanonical expresses q in the canonical unit. Units of the same family
// convert directly; other families need a registered conversion factor.
func (i *Ingredient) ToCanonical(q valueobject.Quantity) (valueobject.Quantity, error) {
	if q.Unit() == i.CanonicalUnit {
		return q, nil
	}
	if q.Unit().SameFamily(i.CanonicalUnit) {
		return q.ConvertTo(i.CanonicalUnit)
	}
	for from, factor := range i.ConversionFactors {
		if !from.SameFamily(q.Unit()) {
			continue
		}
		inFrom, err := q.ConvertTo(from)
		if err != nil {
			return valueobject.Quantity{}, err
		}
		return inFrom.ConvertWithFactor(i.CanonicalUnit, factor)
	}
	return valueobject.Quantity{}, shared.Errorf(shared.ErrIncompatibleUnits,
		"%s is kept in %s; no conversion from %s", i.Name, i.CanonicalUnit, q.Unit())
}

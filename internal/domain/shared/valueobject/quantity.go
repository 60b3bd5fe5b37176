package valueobject

import (
	"encoding/json"
	"fmt"

	"github.com/rai1001/ChefOsv2-sub002/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Epsilon is the tolerance used by every comparison against zero.
// Values at or below it are treated as exhausted stock.
var Epsilon = decimal.New(1, -4)

// Quantity is a physical amount tagged with its unit.
// It is immutable - all operations return new Quantity instances
type Quantity struct {
	value decimal.Decimal
	unit  Unit
}

// NewQuantity creates a non-negative Quantity
func NewQuantity(value decimal.Decimal, unit Unit) (Quantity, error) {
	if !unit.IsValid() {
		return Quantity{}, shared.Errorf(shared.ErrInvalidInput, "unknown unit %q", unit)
	}
	if value.IsNegative() {
		return Quantity{}, shared.Errorf(shared.ErrInvalidQuantity, "quantity cannot be negative: %s %s", value, unit)
	}
	return Quantity{value: value, unit: unit}, nil
}

// NewSignedQuantity creates a Quantity that may be negative.
// Only movement deltas use it; on-hand stock is never negative.
func NewSignedQuantity(value decimal.Decimal, unit Unit) (Quantity, error) {
	if !unit.IsValid() {
		return Quantity{}, shared.Errorf(shared.ErrInvalidInput, "unknown unit %q", unit)
	}
	return Quantity{value: value, unit: unit}, nil
}

// NewQuantityFromString parses a decimal string
func NewQuantityFromString(value string, unit Unit) (Quantity, error) {
	d, err := decimal.NewFromString(value)
	if err != nil {
		return Quantity{}, shared.Errorf(shared.ErrInvalidQuantity, "invalid quantity %q", value)
	}
	return NewQuantity(d, unit)
}

// MustNewQuantity creates a Quantity and panics on error
func MustNewQuantity(value decimal.Decimal, unit Unit) Quantity {
	q, err := NewQuantity(value, unit)
	if err != nil {
		panic(err)
	}
	return q
}

// MustNewQuantityFromString is NewQuantityFromString that panics on error
func MustNewQuantityFromString(value string, unit Unit) Quantity {
	q, err := NewQuantityFromString(value, unit)
	if err != nil {
		panic(err)
	}
	return q
}

// ZeroQuantity returns a zero quantity in unit
func ZeroQuantity(unit Unit) Quantity {
	return Quantity{value: decimal.Zero, unit: unit}
}

// Amount returns the decimal value
func (q Quantity) Amount() decimal.Decimal {
	return q.value
}

// Unit returns the unit tag
func (q Quantity) Unit() Unit {
	return q.unit
}

// IsZero returns true if the quantity is exactly zero
func (q Quantity) IsZero() bool {
	return q.value.IsZero()
}

// IsPositive returns true if the quantity is above zero
func (q Quantity) IsPositive() bool {
	return q.value.IsPositive()
}

// IsNegative returns true for a negative delta
func (q Quantity) IsNegative() bool {
	return q.value.IsNegative()
}

// IsNegligible reports whether |q| is at or below Epsilon
func (q Quantity) IsNegligible() bool {
	return q.value.Abs().LessThanOrEqual(Epsilon)
}

// ClampToZero returns exact zero when the value is negligible
func (q Quantity) ClampToZero() Quantity {
	if q.IsNegligible() {
		return ZeroQuantity(q.unit)
	}
	return q
}

// Negate flips the sign, producing a consumption delta from an amount
func (q Quantity) Negate() Quantity {
	return Quantity{value: q.value.Neg(), unit: q.unit}
}

// Abs returns the magnitude
func (q Quantity) Abs() Quantity {
	return Quantity{value: q.value.Abs(), unit: q.unit}
}

func (q Quantity) requireSameUnit(op string, other Quantity) error {
	if q.unit != other.unit {
		return shared.Errorf(shared.ErrIncompatibleUnits,
			"cannot %s quantities with different units: %s and %s", op, q.unit, other.unit)
	}
	return nil
}

// Add returns the sum of both quantities
func (q Quantity) Add(other Quantity) (Quantity, error) {
	if err := q.requireSameUnit("add", other); err != nil {
		return Quantity{}, err
	}
	return Quantity{value: q.value.Add(other.value), unit: q.unit}, nil
}

// Subtract returns q - other. The result may be negative; callers holding
// on-hand stock check the sign or use Min first.
func (q Quantity) Subtract(other Quantity) (Quantity, error) {
	if err := q.requireSameUnit("subtract", other); err != nil {
		return Quantity{}, err
	}
	return Quantity{value: q.value.Sub(other.value), unit: q.unit}, nil
}

// IsLessThan compares two quantities of the same unit
func (q Quantity) IsLessThan(other Quantity) (bool, error) {
	if err := q.requireSameUnit("compare", other); err != nil {
		return false, err
	}
	return q.value.LessThan(other.value), nil
}

// IsGreaterOrEqual compares two quantities of the same unit
func (q Quantity) IsGreaterOrEqual(other Quantity) (bool, error) {
	if err := q.requireSameUnit("compare", other); err != nil {
		return false, err
	}
	return q.value.GreaterThanOrEqual(other.value), nil
}

// Min returns the smaller of both quantities
func (q Quantity) Min(other Quantity) (Quantity, error) {
	less, err := q.IsLessThan(other)
	if err != nil {
		return Quantity{}, err
	}
	if less {
		return q, nil
	}
	return other, nil
}

// Equals reports equal unit and numerically equal value
func (q Quantity) Equals(other Quantity) bool {
	return q.unit == other.unit && q.value.Equal(other.value)
}

// ConvertTo converts into another unit of the same family
func (q Quantity) ConvertTo(target Unit) (Quantity, error) {
	if q.unit == target {
		return q, nil
	}
	factor, err := q.unit.FactorTo(target)
	if err != nil {
		return Quantity{}, err
	}
	return Quantity{value: q.value.Mul(factor), unit: target}, nil
}

// ConvertWithFactor converts across families using an ingredient supplied factor,
// expressed as target units per one unit of q.
func (q Quantity) ConvertWithFactor(target Unit, factor decimal.Decimal) (Quantity, error) {
	if !target.IsValid() {
		return Quantity{}, shared.Errorf(shared.ErrInvalidInput, "unknown unit %q", target)
	}
	if !factor.IsPositive() {
		return Quantity{}, shared.Errorf(shared.ErrIncompatibleUnits,
			"conversion factor from %s to %s must be positive", q.unit, target)
	}
	return Quantity{value: q.value.Mul(factor), unit: target}, nil
}

// String returns "value unit"
func (q Quantity) String() string {
	return fmt.Sprintf("%s %s", q.value.String(), q.unit)
}

type quantityJSON struct {
	Value decimal.Decimal `json:"value"`
	Unit  Unit            `json:"unit"`
}

// MarshalJSON implements json.Marshaler
func (q Quantity) MarshalJSON() ([]byte, error) {
	return json.Marshal(quantityJSON{Value: q.value, Unit: q.unit})
}

// UnmarshalJSON implements json.Unmarshaler. Signed values are accepted so
// stock transaction deltas round-trip.
func (q *Quantity) UnmarshalJSON(data []byte) error {
	var raw quantityJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	unit, err := ParseUnit(string(raw.Unit))
	if err != nil {
		return err
	}
	q.value = raw.Value
	q.unit = unit
	return nil
}

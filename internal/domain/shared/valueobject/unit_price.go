package valueobject

import (
	"encoding/json"
	"fmt"

	"github.com/rai1001/ChefOsv2-sub002/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// UnitPrice is a cost per one unit of quantity, held in minor units without
// rounding. A per-gram cost of goods bought by the kilogram is usually a
// fraction of a cent, so it cannot live in Money.
type UnitPrice struct {
	minor    decimal.Decimal
	currency Currency
}

// NewUnitPrice creates a UnitPrice from (possibly fractional) minor units
func NewUnitPrice(minor decimal.Decimal, currency Currency) (UnitPrice, error) {
	if !currency.IsValid() {
		return UnitPrice{}, shared.Errorf(shared.ErrInvalidInput, "unsupported currency %q", currency)
	}
	return UnitPrice{minor: minor, currency: currency}, nil
}

// UnitPriceOf reads a Money amount as a price per unit
func UnitPriceOf(m Money) UnitPrice {
	return UnitPrice{minor: decimal.NewFromInt(m.minor), currency: m.currency}
}

// MinorUnits returns the price in minor units
func (p UnitPrice) MinorUnits() decimal.Decimal {
	return p.minor
}

// Currency returns the currency
func (p UnitPrice) Currency() Currency {
	return p.currency
}

// IsZero returns true if the price is zero
func (p UnitPrice) IsZero() bool {
	return p.minor.IsZero()
}

// IsNegative returns true if the price is negative
func (p UnitPrice) IsNegative() bool {
	return p.minor.IsNegative()
}

// Scale multiplies the price by factor without rounding. Pricing per gram
// what was priced per kilogram is Scale(0.001).
func (p UnitPrice) Scale(factor decimal.Decimal) UnitPrice {
	return UnitPrice{minor: p.minor.Mul(factor), currency: p.currency}
}

// MultiplyByQuantity prices a quantity, rounding once to the nearest minor
// unit with banker's rounding
func (p UnitPrice) MultiplyByQuantity(q Quantity) Money {
	total := p.minor.Mul(q.Amount()).RoundBank(0)
	return Money{minor: total.IntPart(), currency: p.currency}
}

// Equals reports equal currency and amount
func (p UnitPrice) Equals(other UnitPrice) bool {
	return p.currency == other.currency && p.minor.Equal(other.minor)
}

// String returns "amount currency"
func (p UnitPrice) String() string {
	return fmt.Sprintf("%s %s", p.minor.Shift(-p.currency.Exponent()).String(), p.currency)
}

type unitPriceJSON struct {
	AmountMinor decimal.Decimal `json:"amount_minor"`
	Currency    Currency        `json:"currency"`
}

// MarshalJSON implements json.Marshaler
func (p UnitPrice) MarshalJSON() ([]byte, error) {
	return json.Marshal(unitPriceJSON{AmountMinor: p.minor, Currency: p.currency})
}

// UnmarshalJSON implements json.Unmarshaler. Both "0.125" and 0.125 are accepted.
func (p *UnitPrice) UnmarshalJSON(data []byte) error {
	var v unitPriceJSON
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	parsed, err := NewUnitPrice(v.AmountMinor, v.Currency)
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

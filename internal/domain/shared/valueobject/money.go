package valueobject

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rai1001/ChefOsv2-sub002/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Currency represents a currency code (ISO 4217)
type Currency string

const (
	EUR Currency = "EUR" // Euro (default)
	USD Currency = "USD" // US Dollar
	GBP Currency = "GBP" // British Pound
	CNY Currency = "CNY" // Chinese Yuan
	HKD Currency = "HKD" // Hong Kong Dollar
	JPY Currency = "JPY" // Japanese Yen
)

// DefaultCurrency is used when configuration does not name one
const DefaultCurrency = EUR

// minorExponent is the number of decimal places held in minor units
var minorExponent = map[Currency]int32{
	EUR: 2,
	USD: 2,
	GBP: 2,
	CNY: 2,
	HKD: 2,
	JPY: 0,
}

// ParseCurrency resolves a currency code, case-insensitively
func ParseCurrency(code string) (Currency, error) {
	c := Currency(strings.ToUpper(strings.TrimSpace(code)))
	if !c.IsValid() {
		return "", shared.Errorf(shared.ErrInvalidInput, "unsupported currency %q", code)
	}
	return c, nil
}

// IsValid reports whether the currency is supported
func (c Currency) IsValid() bool {
	_, ok := minorExponent[c]
	return ok
}

// Exponent returns the number of minor-unit decimal places
func (c Currency) Exponent() int32 {
	return minorExponent[c]
}

// Money is an exact amount held in integer minor units (cents).
// It is immutable - all operations return new Money instances
type Money struct {
	minor    int64
	currency Currency
}

// NewMoney creates Money from minor units
func NewMoney(minor int64, currency Currency) (Money, error) {
	if !currency.IsValid() {
		return Money{}, shared.Errorf(shared.ErrInvalidInput, "unsupported currency %q", currency)
	}
	return Money{minor: minor, currency: currency}, nil
}

// MustNewMoney is NewMoney that panics on error
func MustNewMoney(minor int64, currency Currency) Money {
	m, err := NewMoney(minor, currency)
	if err != nil {
		panic(err)
	}
	return m
}

// NewMoneyFromDecimal converts a display amount into minor units using
// banker's rounding. Only boundary code (HTTP, import) should need it.
func NewMoneyFromDecimal(amount decimal.Decimal, currency Currency) (Money, error) {
	if !currency.IsValid() {
		return Money{}, shared.Errorf(shared.ErrInvalidInput, "unsupported currency %q", currency)
	}
	minor := amount.Shift(currency.Exponent()).RoundBank(0)
	return Money{minor: minor.IntPart(), currency: currency}, nil
}

// Zero returns a zero amount in currency
func Zero(currency Currency) Money {
	return Money{currency: currency}
}

// MinorUnits returns the amount in minor units
func (m Money) MinorUnits() int64 {
	return m.minor
}

// Currency returns the currency
func (m Money) Currency() Currency {
	return m.currency
}

// Amount returns the display amount
func (m Money) Amount() decimal.Decimal {
	return decimal.New(m.minor, -m.currency.Exponent())
}

// IsZero returns true if the amount is zero
func (m Money) IsZero() bool {
	return m.minor == 0
}

// IsNegative returns true if the amount is negative
func (m Money) IsNegative() bool {
	return m.minor < 0
}

func (m Money) requireSameCurrency(other Money) error {
	if m.currency != other.currency {
		return shared.Errorf(shared.ErrCurrencyMismatch,
			"cannot combine money with different currencies: %s and %s", m.currency, other.currency)
	}
	return nil
}

// Add returns the exact sum
func (m Money) Add(other Money) (Money, error) {
	if err := m.requireSameCurrency(other); err != nil {
		return Money{}, err
	}
	return Money{minor: m.minor + other.minor, currency: m.currency}, nil
}

// Subtract returns the exact difference
func (m Money) Subtract(other Money) (Money, error) {
	if err := m.requireSameCurrency(other); err != nil {
		return Money{}, err
	}
	return Money{minor: m.minor - other.minor, currency: m.currency}, nil
}

// MultiplyByDecimal scales the amount and rounds to the nearest minor unit
// with banker's rounding
func (m Money) MultiplyByDecimal(factor decimal.Decimal) Money {
	scaled := decimal.NewFromInt(m.minor).Mul(factor).RoundBank(0)
	return Money{minor: scaled.IntPart(), currency: m.currency}
}

// MultiplyByQuantity prices a quantity at this unit cost
func (m Money) MultiplyByQuantity(q Quantity) Money {
	return m.MultiplyByDecimal(q.Amount())
}

// Equals reports equal currency and amount
func (m Money) Equals(other Money) bool {
	return m.currency == other.currency && m.minor == other.minor
}

// String returns "amount currency" with the currency's fixed decimals
func (m Money) String() string {
	return fmt.Sprintf("%s %s", m.Amount().StringFixed(m.currency.Exponent()), m.currency)
}

type moneyJSON struct {
	AmountMinor int64    `json:"amount_minor"`
	Currency    Currency `json:"currency"`
}

// MarshalJSON implements json.Marshaler
func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(moneyJSON{AmountMinor: m.minor, Currency: m.currency})
}

// UnmarshalJSON implements json.Unmarshaler
func (m *Money) UnmarshalJSON(data []byte) error {
	var v moneyJSON
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	parsed, err := NewMoney(v.AmountMinor, v.Currency)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

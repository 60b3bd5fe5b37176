package valueobject

import (
	"database/sql/driver"
	"fmt"
	"strings"

	"github.com/rai1001/ChefOsv2-sub002/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// UnitFamily partitions units into groups that convert into each other
// without ingredient-specific data
type UnitFamily string

const (
	FamilyMass   UnitFamily = "mass"
	FamilyVolume UnitFamily = "volume"
	FamilyCount  UnitFamily = "count"
)

// Unit is a unit-of-measure tag carried by every Quantity
type Unit string

// Known units. Factors convert into the family base unit (g, ml, pcs).
const (
	Milligram  Unit = "mg"
	Gram       Unit = "g"
	Kilogram   Unit = "kg"
	Millilitre Unit = "ml"
	Centilitre Unit = "cl"
	Litre      Unit = "l"
	Piece      Unit = "pcs"
	Dozen      Unit = "dozen"
)

type unitDefinition struct {
	family UnitFamily
	factor decimal.Decimal
}

var unitTable = map[Unit]unitDefinition{
	Milligram:  {FamilyMass, decimal.New(1, -3)},
	Gram:       {FamilyMass, decimal.NewFromInt(1)},
	Kilogram:   {FamilyMass, decimal.NewFromInt(1000)},
	Millilitre: {FamilyVolume, decimal.NewFromInt(1)},
	Centilitre: {FamilyVolume, decimal.NewFromInt(10)},
	Litre:      {FamilyVolume, decimal.NewFromInt(1000)},
	Piece:      {FamilyCount, decimal.NewFromInt(1)},
	Dozen:      {FamilyCount, decimal.NewFromInt(12)},
}

// unitAliases accepts common spellings on input
var unitAliases = map[string]Unit{
	"gr":    Gram,
	"kgs":   Kilogram,
	"lt":    Litre,
	"ltr":   Litre,
	"pc":    Piece,
	"piece": Piece,
	"unit":  Piece,
	"units": Piece,
	"ud":    Piece,
}

// ParseUnit resolves a unit code, case-insensitively
func ParseUnit(code string) (Unit, error) {
	c := strings.ToLower(strings.TrimSpace(code))
	if alias, ok := unitAliases[c]; ok {
		return alias, nil
	}
	u := Unit(c)
	if !u.IsValid() {
		return "", shared.Errorf(shared.ErrInvalidInput, "unknown unit %q", code)
	}
	return u, nil
}

// MustParseUnit is ParseUnit that panics on error
func MustParseUnit(code string) Unit {
	u, err := ParseUnit(code)
	if err != nil {
		panic(err)
	}
	return u
}

// IsValid reports whether the unit is known
func (u Unit) IsValid() bool {
	_, ok := unitTable[u]
	return ok
}

// Family returns the unit family, or "" for an unknown unit
func (u Unit) Family() UnitFamily {
	return unitTable[u].family
}

// SameFamily reports whether both units convert without external data
func (u Unit) SameFamily(other Unit) bool {
	return u.IsValid() && other.IsValid() && u.Family() == other.Family()
}

// FactorTo returns the multiplier converting a value in u into target.
// Both units must share a family.
func (u Unit) FactorTo(target Unit) (decimal.Decimal, error) {
	if !u.SameFamily(target) {
		return decimal.Zero, shared.Errorf(shared.ErrIncompatibleUnits,
			"cannot convert %s (%s) to %s (%s)", u, u.Family(), target, target.Family())
	}
	return unitTable[u].factor.Div(unitTable[target].factor), nil
}

// String returns the unit code
func (u Unit) String() string {
	return string(u)
}

// Value implements driver.Valuer
func (u Unit) Value() (driver.Value, error) {
	return string(u), nil
}

// Scan implements sql.Scanner
func (u *Unit) Scan(value any) error {
	var s string
	switch v := value.(type) {
	case nil:
		*u = ""
		return nil
	case string:
		s = v
	case []byte:
		s = string(v)
	default:
		return fmt.Errorf("cannot scan %T into Unit", value)
	}
	parsed, err := ParseUnit(s)
	if err != nil {
		return err
	}
	*u = parsed
	return nil
}

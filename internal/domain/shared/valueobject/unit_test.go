package valueobject

import (
	"errors"
	"testing"

	"github.com/rai1001/ChefOsv2-sub002/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseUnit(t *testing.T) {
	tests := []struct {
		in   string
		want Unit
	}{
		{"kg", Kilogram},
		{"KG", Kilogram},
		{" g ", Gram},
		{"gr", Gram},
		{"L", Litre},
		{"ltr", Litre},
		{"piece", Piece},
		{"dozen", Dozen},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseUnit(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	t.Run("unknown unit", func(t *testing.T) {
		_, err := ParseUnit("furlong")
		assert.True(t, errors.Is(err, shared.ErrInvalidInput))
	})
}

func TestUnit_Family(t *testing.T) {
	assert.Equal(t, FamilyMass, Kilogram.Family())
	assert.Equal(t, FamilyVolume, Centilitre.Family())
	assert.Equal(t, FamilyCount, Dozen.Family())
	assert.Equal(t, UnitFamily(""), Unit("oz").Family())

	assert.True(t, Gram.SameFamily(Kilogram))
	assert.False(t, Gram.SameFamily(Litre))
}

func TestUnit_FactorTo(t *testing.T) {
	f, err := Kilogram.FactorTo(Gram)
	require.NoError(t, err)
	assert.True(t, f.Equal(decimal.NewFromInt(1000)))

	f, err = Millilitre.FactorTo(Litre)
	require.NoError(t, err)
	assert.True(t, f.Equal(decimal.RequireFromString("0.001")))

	_, err = Kilogram.FactorTo(Litre)
	assert.True(t, errors.Is(err, shared.ErrIncompatibleUnits))
}

func TestUnit_Scan(t *testing.T) {
	var u Unit
	require.NoError(t, u.Scan("kg"))
	assert.Equal(t, Kilogram, u)

	require.NoError(t, u.Scan([]byte("ml")))
	assert.Equal(t, Millilitre, u)

	assert.Error(t, u.Scan(42))
}

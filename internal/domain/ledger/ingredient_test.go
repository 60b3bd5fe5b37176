package ledger

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/rai1001/ChefOsv2-sub002/internal/domain/shared"
	"github.com/rai1001/ChefOsv2-sub002/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIngredient_ToCanonical(t *testing.T) {
	oil, err := NewIngredient(uuid.New(), uuid.New(), "Olive oil", valueobject.Kilogram)
	require.NoError(t, err)

	t.Run("same unit passes through", func(t *testing.T) {
		q, err := oil.ToCanonical(kg("2"))
		require.NoError(t, err)
		assert.True(t, q.Equals(kg("2")))
	})

	t.Run("same family converts", func(t *testing.T) {
		q, err := oil.ToCanonical(valueobject.MustNewQuantityFromString("500", valueobject.Gram))
		require.NoError(t, err)
		assert.True(t, q.Equals(kg("0.5")))
	})

	t.Run("other family without factor fails", func(t *testing.T) {
		_, err := oil.ToCanonical(valueobject.MustNewQuantityFromString("1", valueobject.Litre))
		assert.True(t, errors.Is(err, shared.ErrIncompatibleUnits))
	})

	t.Run("other family with density", func(t *testing.T) {
		oil.ConversionFactors[valueobject.Litre] = decimal.RequireFromString("0.92")

		q, err := oil.ToCanonical(valueobject.MustNewQuantityFromString("500", valueobject.Millilitre))
		require.NoError(t, err)
		assert.True(t, q.Equals(kg("0.46")))
	})
}

func TestNewIngredient_Validation(t *testing.T) {
	_, err := NewIngredient(uuid.New(), uuid.Nil, "Salt", valueobject.Gram)
	assert.True(t, errors.Is(err, shared.ErrInvalidInput))

	_, err = NewIngredient(uuid.New(), uuid.New(), "  ", valueobject.Gram)
	assert.True(t, errors.Is(err, shared.ErrInvalidInput))

	_, err = NewIngredient(uuid.New(), uuid.New(), "Salt", valueobject.Unit("pinch"))
	assert.True(t, errors.Is(err, shared.ErrInvalidInput))

	i, err := NewIngredient(uuid.Nil, uuid.New(), "Salt", valueobject.Gram)
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, i.ID)
}

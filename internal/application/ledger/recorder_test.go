package ledger

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/rai1001/ChefOsv2-sub002/internal/domain/ledger"
	"github.com/rai1001/ChefOsv2-sub002/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransactionRecorder_Record(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	t.Run("appends without touching batches", func(t *testing.T) {
		b := f.receive(t, "5", nil, "L")

		tx, err := f.recorder.Record(ctx, RecordRequest{
			IngredientID: f.ing.ID,
			OutletID:     f.outlet,
			Quantity:     kg("0.5").Negate(),
			UnitCost:     eur(250),
			Type:         "adjustment",
			Reason:       "manual",
		})
		require.NoError(t, err)
		assert.Equal(t, ledger.TransactionTypeAdjustment, tx.Type)
		assert.Nil(t, tx.BatchID)
		assert.True(t, f.batch(t, b.ID).RemainingQuantity.Equals(kg("5")))
	})

	t.Run("unknown type", func(t *testing.T) {
		_, err := f.recorder.Record(ctx, RecordRequest{
			IngredientID: f.ing.ID,
			OutletID:     f.outlet,
			Quantity:     kg("1"),
			Type:         "TRANSFER",
		})
		assert.True(t, errors.Is(err, shared.ErrInvalidTransactionType))
	})

	t.Run("zero quantity", func(t *testing.T) {
		_, err := f.recorder.Record(ctx, RecordRequest{
			IngredientID: f.ing.ID,
			OutletID:     f.outlet,
			Quantity:     kg("0"),
			Type:         "AUDIT",
		})
		assert.True(t, errors.Is(err, shared.ErrInvalidQuantity))
	})
}

func TestTransactionRecorder_StockLevel(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.receive(t, "4", nil, "A")
	expiring := f.receive(t, "2", nil, "B")
	f.consume(t, "1")

	_, err := f.ledger.ExpireBatch(ctx, ExpireBatchRequest{BatchID: expiring.ID})
	require.NoError(t, err)

	level, err := f.recorder.CurrentStockLevel(ctx, f.ing.ID, f.outlet)
	require.NoError(t, err)
	assert.True(t, level.Equals(kg("3")))

	full, err := f.recorder.StockLevel(ctx, f.ing.ID, f.outlet)
	require.NoError(t, err)
	assert.Equal(t, 1, full.ActiveBatches)
	assert.Equal(t, int64(750), full.Value.MinorUnits())

	_, err = f.recorder.CurrentStockLevel(ctx, uuid.New(), f.outlet)
	assert.True(t, errors.Is(err, shared.ErrIngredientNotFound))
}

func TestTransactionRecorder_History(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.receive(t, "10", nil, "L")
	for i := 0; i < 4; i++ {
		f.consume(t, "1")
	}

	all, err := f.recorder.History(ctx, f.ing.ID, &f.outlet, 0)
	require.NoError(t, err)
	require.Len(t, all, 5)
	for i := 1; i < len(all); i++ {
		assert.False(t, all[i].Date.After(all[i-1].Date), "history must be most recent first")
	}
	assert.Equal(t, ledger.TransactionTypePurchase, all[len(all)-1].Type)

	limited, err := f.recorder.History(ctx, f.ing.ID, nil, 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)

	_, err = f.recorder.History(ctx, uuid.Nil, nil, 10)
	assert.True(t, errors.Is(err, shared.ErrInvalidInput))
}

func TestTransactionRecorder_HistoryForBatch(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.recorder.HistoryForBatch(ctx, uuid.New())
	assert.True(t, errors.Is(err, shared.ErrBatchNotFound))

	b := f.receive(t, "2", nil, "L")
	f.consume(t, "1")
	txs, err := f.recorder.HistoryForBatch(ctx, b.ID)
	require.NoError(t, err)
	require.Len(t, txs, 2)
	assert.Equal(t, ledger.TransactionTypePurchase, txs[0].Type)
	assert.Equal(t, ledger.TransactionTypeUsage, txs[1].Type)
}

func TestNormalizeHistoryLimit(t *testing.T) {
	assert.Equal(t, DefaultHistoryLimit, normalizeHistoryLimit(0))
	assert.Equal(t, DefaultHistoryLimit, normalizeHistoryLimit(-3))
	assert.Equal(t, 20, normalizeHistoryLimit(20))
	assert.Equal(t, MaxHistoryLimit, normalizeHistoryLimit(10000))
}

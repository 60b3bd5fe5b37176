package ledger

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rai1001/ChefOsv2-sub002/internal/domain/ledger"
	"github.com/rai1001/ChefOsv2-sub002/internal/domain/shared"
	"github.com/rai1001/ChefOsv2-sub002/internal/domain/shared/valueobject"
	"github.com/rai1001/ChefOsv2-sub002/internal/infrastructure/persistence/memory"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestBatchLedger_CreateBatch(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	t.Run("records batch and purchase transaction", func(t *testing.T) {
		b := f.receive(t, "10", day(2025, 3, 1), "LOT-1")

		assert.Equal(t, ledger.BatchStatusActive, b.Status)
		assert.True(t, b.RemainingQuantity.Equals(kg("10")))
		assert.Equal(t, int64(2500), b.TotalCost.MinorUnits())

		txs, err := f.recorder.HistoryForBatch(ctx, b.ID)
		require.NoError(t, err)
		require.Len(t, txs, 1)
		assert.Equal(t, ledger.TransactionTypePurchase, txs[0].Type)
		assert.True(t, txs[0].Quantity.Equals(kg("10")))
		assert.Len(t, f.events.GetEventsByType(ledger.EventTypeBatchReceived), 1)
	})

	t.Run("converts to canonical unit and rescales unit cost", func(t *testing.T) {
		b, err := f.ledger.CreateBatch(ctx, CreateBatchRequest{
			IngredientID: f.ing.ID,
			OutletID:     f.outlet,
			Quantity:     valueobject.MustNewQuantityFromString("500", valueobject.Gram),
			UnitCost:     eur(1),
		})
		require.NoError(t, err)
		assert.True(t, b.ReceivedQuantity.Equals(kg("0.5")))
		assert.True(t, b.UnitCost.MinorUnits().Equal(decimal.NewFromInt(1000)))
		assert.Equal(t, int64(500), b.TotalCost.MinorUnits())
	})

	t.Run("initial stock type", func(t *testing.T) {
		b, err := f.ledger.CreateBatch(ctx, CreateBatchRequest{
			IngredientID: f.ing.ID,
			OutletID:     f.outlet,
			Quantity:     kg("1"),
			UnitCost:     eur(100),
			Type:         ledger.TransactionTypeInitialStock,
		})
		require.NoError(t, err)
		txs, err := f.recorder.HistoryForBatch(ctx, b.ID)
		require.NoError(t, err)
		assert.Equal(t, ledger.TransactionTypeInitialStock, txs[0].Type)
	})

	t.Run("rejects non-receipt type", func(t *testing.T) {
		_, err := f.ledger.CreateBatch(ctx, CreateBatchRequest{
			IngredientID: f.ing.ID,
			OutletID:     f.outlet,
			Quantity:     kg("1"),
			UnitCost:     eur(100),
			Type:         ledger.TransactionTypeWaste,
		})
		assert.True(t, errors.Is(err, shared.ErrInvalidTransactionType))
	})

	t.Run("rejects zero and negative quantities", func(t *testing.T) {
		_, err := f.ledger.CreateBatch(ctx, CreateBatchRequest{
			IngredientID: f.ing.ID,
			OutletID:     f.outlet,
			Quantity:     kg("0"),
			UnitCost:     eur(100),
		})
		assert.True(t, errors.Is(err, shared.ErrInvalidQuantity))

		_, err = f.ledger.CreateBatch(ctx, CreateBatchRequest{
			IngredientID: f.ing.ID,
			OutletID:     f.outlet,
			Quantity:     kg("2").Negate(),
			UnitCost:     eur(100),
		})
		assert.True(t, errors.Is(err, shared.ErrInvalidQuantity))
	})

	t.Run("unknown ingredient", func(t *testing.T) {
		_, err := f.ledger.CreateBatch(ctx, CreateBatchRequest{
			IngredientID: uuid.New(),
			OutletID:     f.outlet,
			Quantity:     kg("1"),
			UnitCost:     eur(100),
		})
		assert.True(t, errors.Is(err, shared.ErrIngredientNotFound))
	})

	t.Run("incompatible unit", func(t *testing.T) {
		_, err := f.ledger.CreateBatch(ctx, CreateBatchRequest{
			IngredientID: f.ing.ID,
			OutletID:     f.outlet,
			Quantity:     valueobject.MustNewQuantityFromString("1", valueobject.Litre),
			UnitCost:     eur(100),
		})
		assert.True(t, errors.Is(err, shared.ErrIncompatibleUnits))
	})

	t.Run("foreign currency", func(t *testing.T) {
		_, err := f.ledger.CreateBatch(ctx, CreateBatchRequest{
			IngredientID: f.ing.ID,
			OutletID:     f.outlet,
			Quantity:     kg("1"),
			UnitCost:     valueobject.MustNewMoney(100, valueobject.USD),
		})
		assert.True(t, errors.Is(err, shared.ErrCurrencyMismatch))
	})
}

func TestBatchLedger_Consume_FIFOOrder(t *testing.T) {
	f := newFixture(t)
	b2 := f.receive(t, "10", day(2025, 12, 31), "B2")
	b1 := f.receive(t, "10", day(2025, 1, 1), "B1")

	res := f.consume(t, "15")

	require.Len(t, res.ConsumedFromBatches, 2)
	assert.Equal(t, b1.ID, res.ConsumedFromBatches[0].BatchID)
	assert.True(t, res.ConsumedFromBatches[0].Quantity.Equals(kg("10")))
	assert.True(t, res.ConsumedFromBatches[0].Depleted)
	assert.Equal(t, b2.ID, res.ConsumedFromBatches[1].BatchID)
	assert.True(t, res.ConsumedFromBatches[1].Quantity.Equals(kg("5")))
	assert.True(t, res.TotalConsumed.Equals(kg("15")))
	assert.True(t, res.Shortfall.IsZero())
	assert.Equal(t, int64(3750), res.TotalCost.MinorUnits())

	assert.Equal(t, ledger.BatchStatusDepleted, f.batch(t, b1.ID).Status)
	after2 := f.batch(t, b2.ID)
	assert.Equal(t, ledger.BatchStatusActive, after2.Status)
	assert.True(t, after2.RemainingQuantity.Equals(kg("5")))

	depleted := f.events.GetEventsByType(ledger.EventTypeBatchDepleted)
	require.Len(t, depleted, 1)
	assert.Equal(t, b1.ID, depleted[0].AggregateID())
}

func TestBatchLedger_Consume_UndatedBatchesLast(t *testing.T) {
	f := newFixture(t)
	undated := f.receive(t, "5", nil, "A")
	dated := f.receive(t, "5", day(2026, 6, 1), "Z")

	res := f.consume(t, "6")

	require.Len(t, res.ConsumedFromBatches, 2)
	assert.Equal(t, dated.ID, res.ConsumedFromBatches[0].BatchID)
	assert.Equal(t, undated.ID, res.ConsumedFromBatches[1].BatchID)
}

func TestBatchLedger_Consume_Shortfall(t *testing.T) {
	f := newFixture(t)
	b1 := f.receive(t, "10", day(2025, 2, 1), "B1")
	b2 := f.receive(t, "10", day(2025, 3, 1), "B2")

	res := f.consume(t, "25")

	assert.True(t, res.TotalConsumed.Equals(kg("20")))
	assert.True(t, res.Shortfall.Equals(kg("5")))
	assert.True(t, res.HasShortfall())
	assert.Equal(t, ledger.BatchStatusDepleted, f.batch(t, b1.ID).Status)
	assert.Equal(t, ledger.BatchStatusDepleted, f.batch(t, b2.ID).Status)
	assert.Len(t, f.events.GetEventsByType(ledger.EventTypeConsumptionShortfall), 1)
}

func TestBatchLedger_Consume_NoBatches(t *testing.T) {
	f := newFixture(t)

	res := f.consume(t, "3")

	assert.Empty(t, res.ConsumedFromBatches)
	assert.True(t, res.TotalConsumed.IsZero())
	assert.True(t, res.Shortfall.Equals(kg("3")))
}

func TestBatchLedger_Consume_ZeroQuantity(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	b := f.receive(t, "4", nil, "L")

	res := f.consume(t, "0")
	assert.Empty(t, res.ConsumedFromBatches)
	assert.True(t, res.Shortfall.IsZero())
	assert.Equal(t, 1, f.batch(t, b.ID).Version)

	_, err := f.ledger.Consume(ctx, ConsumeRequest{
		IngredientID: uuid.New(),
		OutletID:     f.outlet,
		Quantity:     kg("0"),
	})
	assert.True(t, errors.Is(err, shared.ErrIngredientNotFound))
}

func TestBatchLedger_Consume_Validation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.ledger.Consume(ctx, ConsumeRequest{
		IngredientID: f.ing.ID,
		OutletID:     f.outlet,
		Quantity:     kg("1").Negate(),
	})
	assert.True(t, errors.Is(err, shared.ErrInvalidQuantity))

	_, err = f.ledger.Consume(ctx, ConsumeRequest{
		IngredientID: f.ing.ID,
		OutletID:     f.outlet,
		Quantity:     kg("1"),
		Type:         ledger.TransactionTypePurchase,
	})
	assert.True(t, errors.Is(err, shared.ErrInvalidTransactionType))

	_, err = f.ledger.Consume(ctx, ConsumeRequest{
		IngredientID: f.ing.ID,
		OutletID:     f.outlet,
		Quantity:     kg("1"),
		Type:         "GIFT",
	})
	assert.True(t, errors.Is(err, shared.ErrInvalidTransactionType))
}

func TestBatchLedger_Consume_TypeAndUnits(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	b := f.receive(t, "2", nil, "L")

	res, err := f.ledger.Consume(ctx, ConsumeRequest{
		IngredientID: f.ing.ID,
		OutletID:     f.outlet,
		Quantity:     valueobject.MustNewQuantityFromString("250", valueobject.Gram),
		Type:         "sale",
		ReferenceID:  "ticket-42",
	})
	require.NoError(t, err)
	assert.True(t, res.TotalConsumed.Equals(kg("0.25")))

	txs, err := f.recorder.HistoryForBatch(ctx, b.ID)
	require.NoError(t, err)
	require.Len(t, txs, 2)
	assert.Equal(t, ledger.TransactionTypeUsage, txs[1].Type)
	assert.Equal(t, "ticket-42", txs[1].ReferenceID)
	assert.True(t, txs[1].Quantity.Equals(kg("0.25").Negate()))
}

func TestBatchLedger_Consume_ConservationAndPairing(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	batches := []*ledger.Batch{
		f.receive(t, "3", day(2025, 2, 1), "A"),
		f.receive(t, "4.5", day(2025, 2, 2), "B"),
		f.receive(t, "2", nil, "C"),
	}

	var drawn int
	for _, q := range []string{"1.25", "2", "0.75", "3"} {
		res := f.consume(t, q)
		drawn += len(res.ConsumedFromBatches)
	}
	_, err := f.ledger.CorrectBatch(ctx, CorrectBatchRequest{BatchID: batches[2].ID, NewRemaining: kg("1.5"), Reason: "count"})
	require.NoError(t, err)

	var usage int
	for _, b := range batches {
		current := f.batch(t, b.ID)
		assert.False(t, current.RemainingQuantity.IsNegative())
		assert.True(t, f.transactionSum(t, b.ID).Equals(current.RemainingQuantity),
			"batch %s: transactions do not add up to remaining %s", b.LotNumber, current.RemainingQuantity)

		txs, err := f.recorder.HistoryForBatch(ctx, b.ID)
		require.NoError(t, err)
		for _, tx := range txs {
			if tx.Type == ledger.TransactionTypeUsage {
				usage++
			}
		}
	}
	assert.Equal(t, drawn, usage)
}

func TestBatchLedger_Consume_CostIntegrity(t *testing.T) {
	f := newFixture(t)
	b := f.receive(t, "10", nil, "L")

	first := f.consume(t, "4")
	second := f.consume(t, "6")

	total, err := first.TotalCost.Add(second.TotalCost)
	require.NoError(t, err)
	assert.True(t, total.Equals(b.TotalCost))
	assert.Equal(t, ledger.BatchStatusDepleted, f.batch(t, b.ID).Status)
}

func TestBatchLedger_Consume_ResidueBelowEpsilon(t *testing.T) {
	f := newFixture(t)
	b := f.receive(t, "1.00005", nil, "L")

	res := f.consume(t, "1")

	require.Len(t, res.ConsumedFromBatches, 1)
	assert.True(t, res.ConsumedFromBatches[0].Depleted)
	after := f.batch(t, b.ID)
	assert.Equal(t, ledger.BatchStatusDepleted, after.Status)
	assert.True(t, after.RemainingQuantity.IsZero())
}

func TestBatchLedger_Consume_ConcurrentSameProcess(t *testing.T) {
	f := newFixture(t)
	b := f.receive(t, "8", nil, "L")

	var wg sync.WaitGroup
	results := make([]*ConsumeResult, 2)
	for i := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := f.ledger.Consume(context.Background(), ConsumeRequest{
				IngredientID: f.ing.ID,
				OutletID:     f.outlet,
				Quantity:     kg("5"),
			})
			assert.NoError(t, err)
			results[i] = res
		}()
	}
	wg.Wait()

	consumed, err := results[0].TotalConsumed.Add(results[1].TotalConsumed)
	require.NoError(t, err)
	shortfall, err := results[0].Shortfall.Add(results[1].Shortfall)
	require.NoError(t, err)
	assert.True(t, consumed.Equals(kg("8")))
	assert.True(t, shortfall.Equals(kg("2")))
	assert.True(t, f.batch(t, b.ID).RemainingQuantity.IsZero())
}

func TestBatchLedger_Consume_ConcurrentAcrossProcesses(t *testing.T) {
	store := memory.NewStore()
	f := newFixtureWithStore(t, store, store)
	b := f.receive(t, "8", nil, "L")

	// a second ledger over the same store has its own partition locks,
	// so only optimistic versioning keeps the two apart
	other := NewBatchLedger(store, WithRetryPolicy(RetryPolicy{MaxAttempts: 10, BaseDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond}))
	ledgers := []*BatchLedger{f.ledger, other}

	var wg sync.WaitGroup
	results := make([]*ConsumeResult, 6)
	for i := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := ledgers[i%2].Consume(context.Background(), ConsumeRequest{
				IngredientID: f.ing.ID,
				OutletID:     f.outlet,
				Quantity:     kg("2"),
			})
			assert.NoError(t, err)
			results[i] = res
		}()
	}
	wg.Wait()

	consumed := kg("0")
	for _, r := range results {
		var err error
		consumed, err = consumed.Add(r.TotalConsumed)
		require.NoError(t, err)
	}
	assert.True(t, consumed.Equals(kg("8")), "consumed %s", consumed)

	after := f.batch(t, b.ID)
	assert.True(t, after.RemainingQuantity.IsZero())
	assert.Equal(t, ledger.BatchStatusDepleted, after.Status)
	assert.True(t, f.transactionSum(t, b.ID).IsZero())
}

func TestBatchLedger_Consume_ConcurrencyExhausted(t *testing.T) {
	mem := memory.NewStore()
	store := &conflictingStore{Store: mem, pass: 1}
	f := newFixtureWithStore(t, mem, store, WithRetryPolicy(RetryPolicy{MaxAttempts: 3, BaseDelay: time.Millisecond, MaxDelay: time.Millisecond}))
	b1 := f.receive(t, "2", day(2025, 2, 1), "A")
	f.receive(t, "2", day(2025, 3, 1), "B")

	res, err := f.ledger.Consume(context.Background(), ConsumeRequest{
		IngredientID: f.ing.ID,
		OutletID:     f.outlet,
		Quantity:     kg("3"),
	})

	assert.True(t, errors.Is(err, shared.ErrConcurrencyExhausted))
	require.NotNil(t, res)
	require.Len(t, res.ConsumedFromBatches, 1)
	assert.Equal(t, b1.ID, res.ConsumedFromBatches[0].BatchID)
	assert.True(t, res.Shortfall.Equals(kg("1")))
	// one pass-through commit plus one conflict per attempt
	assert.Equal(t, int32(4), store.attempts)
}

func TestBatchLedger_Consume_StorageTimeout(t *testing.T) {
	mem := memory.NewStore()
	batches := new(MockBatchRepository)
	scope := NewNoOpTransactionScope(batches, mem.Transactions(), mem.Ingredients())
	f := newFixtureWithStore(t, mem, scope, WithOperationTimeout(20*time.Millisecond))

	batches.On("FindActiveBatchesOrderedByExpiry", mock.Anything, f.ing.ID, f.outlet).
		Run(func(args mock.Arguments) {
			<-args.Get(0).(context.Context).Done()
		}).
		Return(nil, context.DeadlineExceeded).Once()

	_, err := f.ledger.Consume(context.Background(), ConsumeRequest{
		IngredientID: f.ing.ID,
		OutletID:     f.outlet,
		Quantity:     kg("1"),
	})

	assert.True(t, errors.Is(err, shared.ErrRepositoryUnavailable))
	batches.AssertExpectations(t)
}

func TestBatchLedger_Consume_CancelledBeforeCommit(t *testing.T) {
	f := newFixture(t)
	b := f.receive(t, "5", nil, "L")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := f.ledger.Consume(ctx, ConsumeRequest{
		IngredientID: f.ing.ID,
		OutletID:     f.outlet,
		Quantity:     kg("1"),
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.True(t, f.batch(t, b.ID).RemainingQuantity.Equals(kg("5")))
}

func TestBatchLedger_CorrectBatch(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	t.Run("writes audit delta", func(t *testing.T) {
		b := f.receive(t, "10", nil, "L1")
		f.consume(t, "4")

		updated, err := f.ledger.CorrectBatch(ctx, CorrectBatchRequest{BatchID: b.ID, NewRemaining: kg("5"), Reason: "weekly count"})
		require.NoError(t, err)
		assert.True(t, updated.RemainingQuantity.Equals(kg("5")))

		txs, err := f.recorder.HistoryForBatch(ctx, b.ID)
		require.NoError(t, err)
		last := txs[len(txs)-1]
		assert.Equal(t, ledger.TransactionTypeAudit, last.Type)
		assert.True(t, last.Quantity.Equals(kg("1").Negate()))
		assert.Equal(t, "weekly count", last.Reason)
		assert.Len(t, f.events.GetEventsByType(ledger.EventTypeBatchCorrected), 1)
	})

	t.Run("zero delta writes nothing", func(t *testing.T) {
		b := f.receive(t, "3", nil, "L2")
		updated, err := f.ledger.CorrectBatch(ctx, CorrectBatchRequest{BatchID: b.ID, NewRemaining: kg("3"), Reason: "count"})
		require.NoError(t, err)
		assert.Equal(t, b.Version, updated.Version)

		txs, err := f.recorder.HistoryForBatch(ctx, b.ID)
		require.NoError(t, err)
		assert.Len(t, txs, 1)
	})

	t.Run("count to zero depletes and back up reactivates", func(t *testing.T) {
		b := f.receive(t, "3", nil, "L3")
		updated, err := f.ledger.CorrectBatch(ctx, CorrectBatchRequest{BatchID: b.ID, NewRemaining: kg("0"), Reason: "spilled"})
		require.NoError(t, err)
		assert.Equal(t, ledger.BatchStatusDepleted, updated.Status)

		updated, err = f.ledger.CorrectBatch(ctx, CorrectBatchRequest{BatchID: b.ID, NewRemaining: valueobject.MustNewQuantityFromString("1000", valueobject.Gram), Reason: "found"})
		require.NoError(t, err)
		assert.Equal(t, ledger.BatchStatusActive, updated.Status)
		assert.True(t, updated.RemainingQuantity.Equals(kg("1")))
	})

	t.Run("validation", func(t *testing.T) {
		b := f.receive(t, "3", nil, "L4")

		_, err := f.ledger.CorrectBatch(ctx, CorrectBatchRequest{BatchID: b.ID, NewRemaining: kg("1"), Reason: " "})
		assert.True(t, errors.Is(err, shared.ErrInvalidInput))

		_, err = f.ledger.CorrectBatch(ctx, CorrectBatchRequest{BatchID: b.ID, NewRemaining: kg("4"), Reason: "count"})
		assert.True(t, errors.Is(err, shared.ErrInvalidQuantity))

		_, err = f.ledger.CorrectBatch(ctx, CorrectBatchRequest{BatchID: b.ID, NewRemaining: kg("1").Negate(), Reason: "count"})
		assert.True(t, errors.Is(err, shared.ErrInvalidQuantity))

		_, err = f.ledger.CorrectBatch(ctx, CorrectBatchRequest{BatchID: uuid.New(), NewRemaining: kg("1"), Reason: "count"})
		assert.True(t, errors.Is(err, shared.ErrBatchNotFound))
	})
}

func TestBatchLedger_ExpireBatch(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	b := f.receive(t, "6", day(2025, 1, 5), "L")
	f.consume(t, "2")

	expired, err := f.ledger.ExpireBatch(ctx, ExpireBatchRequest{BatchID: b.ID})
	require.NoError(t, err)
	assert.Equal(t, ledger.BatchStatusExpired, expired.Status)
	assert.True(t, expired.RemainingQuantity.IsZero())

	txs, err := f.recorder.HistoryForBatch(ctx, b.ID)
	require.NoError(t, err)
	last := txs[len(txs)-1]
	assert.Equal(t, ledger.TransactionTypeWaste, last.Type)
	assert.True(t, last.Quantity.Equals(kg("4").Negate()))
	assert.True(t, f.transactionSum(t, b.ID).IsZero())

	again, err := f.ledger.ExpireBatch(ctx, ExpireBatchRequest{BatchID: b.ID})
	require.NoError(t, err)
	assert.Equal(t, expired.Version, again.Version)
	assert.Len(t, f.events.GetEventsByType(ledger.EventTypeBatchExpired), 1)

	res := f.consume(t, "1")
	assert.Empty(t, res.ConsumedFromBatches)
}

func TestBatchLedger_ExpireDueBatches(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	past := f.receive(t, "1", day(2025, 1, 5), "P")
	future := f.receive(t, "1", day(2025, 2, 5), "F")
	undated := f.receive(t, "1", nil, "U")

	n, err := f.ledger.ExpireDueBatches(ctx, f.outlet, testNow)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	assert.Equal(t, ledger.BatchStatusExpired, f.batch(t, past.ID).Status)
	assert.Equal(t, ledger.BatchStatusActive, f.batch(t, future.ID).Status)
	assert.Equal(t, ledger.BatchStatusActive, f.batch(t, undated.ID).Status)

	n, err = f.ledger.ExpireDueBatches(ctx, f.outlet, testNow)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestBatchLedger_DeleteDepletedBatch(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	b := f.receive(t, "2", nil, "L")

	err := f.ledger.DeleteDepletedBatch(ctx, b.ID)
	assert.True(t, errors.Is(err, shared.ErrInvalidState))

	f.consume(t, "2")
	require.NoError(t, f.ledger.DeleteDepletedBatch(ctx, b.ID))

	_, err = f.ledger.GetBatch(ctx, b.ID)
	assert.True(t, errors.Is(err, shared.ErrBatchNotFound))

	// the ledger keeps the history of a deleted batch
	txs, err := f.recorder.HistoryForBatch(ctx, b.ID)
	require.NoError(t, err)
	assert.Len(t, txs, 2)
}

func TestBatchLedger_FindBatchesExpiringWithin(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	soon := f.receive(t, "1", day(2025, 1, 12), "S")
	f.receive(t, "1", day(2025, 3, 1), "L")
	f.receive(t, "1", nil, "N")

	got, err := f.ledger.FindBatchesExpiringWithin(ctx, f.outlet, 3)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, soon.ID, got[0].ID)

	_, err = f.ledger.FindBatchesExpiringWithin(ctx, f.outlet, -1)
	assert.True(t, errors.Is(err, shared.ErrInvalidInput))
}

func TestBatchLedger_ListActiveAndValuation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.receive(t, "2", day(2025, 4, 1), "B")
	f.receive(t, "3", day(2025, 2, 1), "A")
	f.consume(t, "3")

	active, err := f.ledger.ListActiveBatchesFIFO(ctx, f.ing.ID, f.outlet)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "B", active[0].LotNumber)

	value, err := f.ledger.StockValuation(ctx, f.ing.ID, f.outlet)
	require.NoError(t, err)
	assert.Equal(t, int64(500), value.MinorUnits())
}

func TestBatchLedger_CreateBatch_CoarserUnitKeepsCost(t *testing.T) {
	tests := []struct {
		name     string
		perKg    int64
		perGram  string
		totalEUR int64
	}{
		{"half cent per gram", 500, "0.5", 1000},
		{"just under a cent per gram", 999, "0.999", 1998},
		{"well under a cent per gram", 149, "0.149", 298},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			f := newFixture(t)
			sugar, err := f.ledger.RegisterIngredient(ctx, RegisterIngredientRequest{
				OutletID:      f.outlet,
				Name:          "Sugar",
				CanonicalUnit: "g",
			})
			require.NoError(t, err)

			b, err := f.ledger.CreateBatch(ctx, CreateBatchRequest{
				IngredientID: sugar.ID,
				OutletID:     f.outlet,
				Quantity:     kg("2"),
				UnitCost:     eur(tt.perKg),
			})
			require.NoError(t, err)
			assert.True(t, b.ReceivedQuantity.Equals(valueobject.MustNewQuantityFromString("2000", valueobject.Gram)))
			assert.True(t, b.UnitCost.MinorUnits().Equal(decimal.RequireFromString(tt.perGram)), b.UnitCost.String())
			assert.Equal(t, tt.totalEUR, b.TotalCost.MinorUnits())
			assert.Equal(t, tt.totalEUR, b.UnitCost.MultiplyByQuantity(b.ReceivedQuantity).MinorUnits())

			value, err := f.ledger.StockValuation(ctx, sugar.ID, f.outlet)
			require.NoError(t, err)
			assert.Equal(t, tt.totalEUR, value.MinorUnits())

			res, err := f.ledger.Consume(ctx, ConsumeRequest{
				IngredientID: sugar.ID,
				OutletID:     f.outlet,
				Quantity:     valueobject.MustNewQuantityFromString("2000", valueobject.Gram),
			})
			require.NoError(t, err)
			assert.Equal(t, tt.totalEUR, res.TotalCost.MinorUnits())
		})
	}
}

func TestBatchLedger_RegisterIngredient(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	oil, err := f.ledger.RegisterIngredient(ctx, RegisterIngredientRequest{
		OutletID:          f.outlet,
		Name:              "Olive oil",
		CanonicalUnit:     "KG",
		ConversionFactors: map[string]string{"l": "0.92"},
	})
	require.NoError(t, err)

	b, err := f.ledger.CreateBatch(ctx, CreateBatchRequest{
		IngredientID: oil.ID,
		OutletID:     f.outlet,
		Quantity:     valueobject.MustNewQuantityFromString("1", valueobject.Litre),
		UnitCost:     eur(920),
	})
	require.NoError(t, err)
	assert.True(t, b.ReceivedQuantity.Equals(kg("0.92")))
	assert.Equal(t, int64(920), b.TotalCost.MinorUnits())
	assert.Equal(t, int64(1000), b.UnitCost.MultiplyByQuantity(kg("1")).MinorUnits())

	_, err = f.ledger.RegisterIngredient(ctx, RegisterIngredientRequest{
		OutletID:          f.outlet,
		Name:              "Eggs",
		CanonicalUnit:     "pcs",
		ConversionFactors: map[string]string{"kg": "-1"},
	})
	assert.True(t, errors.Is(err, shared.ErrInvalidInput))
}

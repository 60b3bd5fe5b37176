package telemetry

import (
	"context"

	"github.com/rai1001/ChefOsv2-sub002/internal/domain/ledger"
	"github.com/rai1001/ChefOsv2-sub002/internal/domain/shared"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// LedgerMetrics counts ledger domain events. It is registered on the event
// bus as a shared.EventHandler.
type LedgerMetrics struct {
	logger *zap.Logger

	batchesReceived *Counter
	batchesDepleted *Counter
	shortfalls      *Counter
	batchesExpired  *Counter
	corrections     *Counter
}

// NewLedgerMetrics creates the ledger counters on meter.
func NewLedgerMetrics(meter metric.Meter, logger *zap.Logger) (*LedgerMetrics, error) {
	if meter == nil {
		return nil, ErrMeterNil
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	lm := &LedgerMetrics{logger: logger}
	counters := []struct {
		dst         **Counter
		name        string
		description string
		unit        string
	}{
		{&lm.batchesReceived, "ledger_batches_received_total", "Total number of batches received", "{batches}"},
		{&lm.batchesDepleted, "ledger_batches_depleted_total", "Total number of batches drawn down to zero", "{batches}"},
		{&lm.shortfalls, "ledger_shortfall_total", "Total number of consumptions that active stock could not cover", "{consumptions}"},
		{&lm.batchesExpired, "ledger_batches_expired_total", "Total number of batches forced to expired", "{batches}"},
		{&lm.corrections, "ledger_corrections_total", "Total number of audit corrections", "{corrections}"},
	}
	for _, c := range counters {
		counter, err := NewCounter(meter, c.name, c.description, c.unit)
		if err != nil {
			return nil, err
		}
		*c.dst = counter
	}
	return lm, nil
}

// EventTypes returns the ledger event types this handler counts.
func (m *LedgerMetrics) EventTypes() []string {
	return []string{
		ledger.EventTypeBatchReceived,
		ledger.EventTypeBatchDepleted,
		ledger.EventTypeConsumptionShortfall,
		ledger.EventTypeBatchExpired,
		ledger.EventTypeBatchCorrected,
	}
}

// Handle increments the counter matching the event. Unknown events are ignored.
func (m *LedgerMetrics) Handle(ctx context.Context, event shared.DomainEvent) error {
	switch e := event.(type) {
	case *ledger.BatchReceivedEvent:
		m.batchesReceived.Inc(ctx, AttrOutletID.String(e.OutletID.String()))
	case *ledger.BatchDepletedEvent:
		m.batchesDepleted.Inc(ctx, AttrOutletID.String(e.OutletID.String()))
	case *ledger.ConsumptionShortfallEvent:
		m.shortfalls.Inc(ctx,
			AttrOutletID.String(e.OutletID.String()),
			AttrIngredientID.String(e.IngredientID.String()),
		)
		m.logger.Debug("shortfall counted",
			zap.String("ingredient_id", e.IngredientID.String()),
			zap.String("shortfall", e.Shortfall.String()),
		)
	case *ledger.BatchExpiredEvent:
		m.batchesExpired.Inc(ctx, AttrOutletID.String(e.OutletID.String()))
	case *ledger.BatchCorrectedEvent:
		m.corrections.Inc(ctx,
			AttrOutletID.String(e.OutletID.String()),
			AttrReason.String(correctionReason(e.Reason)),
		)
	default:
		m.logger.Debug("ignoring event", zap.String("event_type", event.EventType()))
	}
	return nil
}

// correctionReason maps free text reasons longer than 32 bytes to "other".
func correctionReason(reason string) string {
	if reason == "" {
		return "unspecified"
	}
	if len(reason) > 32 {
		return "other"
	}
	return reason
}

// ErrMeterNil is returned when meter is nil.
var ErrMeterNil = &MetricsError{Op: "NewLedgerMetrics", Err: "meter cannot be nil"}

// MetricsError represents a metrics-related error.
type MetricsError struct {
	Op  string
	Err string
}

func (e *MetricsError) Error() string {
	return e.Op + ": " + e.Err
}

var _ shared.EventHandler = (*LedgerMetrics)(nil)

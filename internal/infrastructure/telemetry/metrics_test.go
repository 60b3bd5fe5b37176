package telemetry_test

import (
	"context"
	"testing"
	"time"

	"github.com/rai1001/ChefOsv2-sub002/internal/infrastructure/telemetry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.uber.org/zap/zaptest"
)

func disabledMetricsConfig() telemetry.MetricsConfig {
	return telemetry.MetricsConfig{
		Enabled:           false,
		CollectorEndpoint: "localhost:14317",
		ExportInterval:    60 * time.Second,
		ServiceName:       "batch-ledger-test",
	}
}

func TestNewMeterProvider_Disabled(t *testing.T) {
	ctx := context.Background()
	cfg := disabledMetricsConfig()

	mp, err := telemetry.NewMeterProvider(ctx, cfg, zaptest.NewLogger(t))
	require.NoError(t, err)
	require.NotNil(t, mp)

	assert.False(t, mp.IsEnabled())
	assert.Equal(t, cfg.ServiceName, mp.GetConfig().ServiceName)
	assert.NotNil(t, mp.Meter("ledger"), "disabled provider falls back to the global meter")
	assert.NoError(t, mp.ForceFlush(ctx))

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	assert.NoError(t, mp.Shutdown(cancelled))
}

func TestNewMeterProvider_Enabled(t *testing.T) {
	// needs a collector on localhost:14317
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	ctx := context.Background()
	cfg := disabledMetricsConfig()
	cfg.Enabled = true
	cfg.Insecure = true
	cfg.ExportInterval = time.Second

	mp, err := telemetry.NewMeterProvider(ctx, cfg, zaptest.NewLogger(t))
	require.NoError(t, err)
	assert.True(t, mp.IsEnabled())
	assert.NoError(t, mp.ForceFlush(ctx))
	assert.NoError(t, mp.Shutdown(ctx))
}

func TestMetricHelpers_Record(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })
	meter := provider.Meter("test")
	ctx := context.Background()

	counter, err := telemetry.NewCounter(meter, "ledger_test_total", "test counter", "{ops}")
	require.NoError(t, err)
	counter.Inc(ctx, telemetry.AttrOutletID.String("o-1"))
	counter.Add(ctx, 4, telemetry.AttrOutletID.String("o-1"))

	histogram, err := telemetry.NewHistogram(meter, telemetry.HistogramOpts{
		Name:        "ledger_test_duration_seconds",
		Description: "test histogram",
		Unit:        "s",
		Boundaries:  telemetry.DBDurationBuckets,
	})
	require.NoError(t, err)
	histogram.RecordDuration(ctx, 20*time.Millisecond, telemetry.AttrDBOperation.String("UPDATE"))
	histogram.Record(ctx, 0.5, telemetry.AttrDBOperation.String("SELECT"))

	gauge, err := telemetry.NewGauge(meter, "ledger_test_open", "test gauge", "{connection}")
	require.NoError(t, err)
	gauge.Record(ctx, 7, telemetry.AttrDBState.String("open"))

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))
	require.Len(t, rm.ScopeMetrics, 1)

	byName := make(map[string]metricdata.Metrics)
	for _, m := range rm.ScopeMetrics[0].Metrics {
		byName[m.Name] = m
	}

	sum := byName["ledger_test_total"].Data.(metricdata.Sum[int64])
	require.Len(t, sum.DataPoints, 1)
	assert.Equal(t, int64(5), sum.DataPoints[0].Value)

	hist := byName["ledger_test_duration_seconds"].Data.(metricdata.Histogram[float64])
	require.Len(t, hist.DataPoints, 2)
	assert.Equal(t, telemetry.DBDurationBuckets, hist.DataPoints[0].Bounds)

	g := byName["ledger_test_open"].Data.(metricdata.Gauge[int64])
	require.Len(t, g.DataPoints, 1)
	assert.Equal(t, int64(7), g.DataPoints[0].Value)
}

func TestHistogram_NoBoundaries(t *testing.T) {
	meter := noop.NewMeterProvider().Meter("test")

	histogram, err := telemetry.NewHistogram(meter, telemetry.HistogramOpts{
		Name: "ledger_plain_histogram",
		Unit: "s",
	})
	require.NoError(t, err)

	// Should not panic
	histogram.Record(context.Background(), 1.5)
}

func TestCommonAttributes(t *testing.T) {
	assert.Equal(t, "ingredient_id", string(telemetry.AttrIngredientID))
	assert.Equal(t, "outlet_id", string(telemetry.AttrOutletID))
	assert.Equal(t, "reason", string(telemetry.AttrReason))
	assert.Equal(t, "event_type", string(telemetry.AttrEventType))
	assert.Equal(t, "http.route", string(telemetry.AttrHTTPRoute))
	assert.Equal(t, "db.operation", string(telemetry.AttrDBOperation))
	assert.Equal(t, "db.table", string(telemetry.AttrDBTable))
	assert.Equal(t, "db.pool.state", string(telemetry.AttrDBState))
}

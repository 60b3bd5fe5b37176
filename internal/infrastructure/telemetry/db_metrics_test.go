package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.uber.org/zap"
)

func newManualMeter(t *testing.T) (*sdkmetric.ManualReader, *sdkmetric.MeterProvider) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })
	return reader, provider
}

// queryCounts returns db_query_total keyed by "OPERATION table".
func queryCounts(t *testing.T, reader *sdkmetric.ManualReader) map[string]int64 {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	counts := make(map[string]int64)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != "db_query_total" {
				continue
			}
			for _, dp := range m.Data.(metricdata.Sum[int64]).DataPoints {
				op, _ := dp.Attributes.Value(AttrDBOperation)
				table, _ := dp.Attributes.Value(AttrDBTable)
				counts[op.AsString()+" "+table.AsString()] += dp.Value
			}
		}
	}
	return counts
}

func TestDefaultDBMetricsConfig(t *testing.T) {
	cfg := DefaultDBMetricsConfig()

	assert.True(t, cfg.Enabled)
	assert.Equal(t, 200*time.Millisecond, cfg.SlowQueryThreshold)
	assert.Equal(t, 15*time.Second, cfg.PoolStatsInterval)
}

func TestNewDBMetrics_FillsDefaults(t *testing.T) {
	metrics, err := NewDBMetrics(noop.NewMeterProvider().Meter("test"), DBMetricsConfig{Enabled: true}, nil)
	require.NoError(t, err)

	assert.Equal(t, 200*time.Millisecond, metrics.config.SlowQueryThreshold)
	assert.Equal(t, 15*time.Second, metrics.config.PoolStatsInterval)
}

func TestDBMetrics_RecordQuery(t *testing.T) {
	reader, provider := newManualMeter(t)
	metrics, err := NewDBMetrics(provider.Meter("db.client"), DBMetricsConfig{
		Enabled:            true,
		SlowQueryThreshold: 50 * time.Millisecond,
	}, zap.NewNop())
	require.NoError(t, err)

	ctx := context.Background()
	metrics.RecordQuery(ctx, "update", "ingredient_batches", 10*time.Millisecond)
	metrics.RecordQuery(ctx, "UPDATE", "ingredient_batches", 80*time.Millisecond)
	metrics.RecordQuery(ctx, "", "", time.Millisecond)

	counts := queryCounts(t, reader)
	assert.Equal(t, int64(2), counts["UPDATE ingredient_batches"])
	assert.Equal(t, int64(1), counts["UNKNOWN unknown"])

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))
	var slow int64
	for _, m := range rm.ScopeMetrics[0].Metrics {
		if m.Name == "db_slow_query_total" {
			for _, dp := range m.Data.(metricdata.Sum[int64]).DataPoints {
				assert.Equal(t, attribute.NewSet(AttrDBTable.String("ingredient_batches")), dp.Attributes)
				slow += dp.Value
			}
		}
	}
	assert.Equal(t, int64(1), slow)
}

func TestDBMetricsPlugin_CountsQueries(t *testing.T) {
	reader, provider := newManualMeter(t)
	metrics, err := NewDBMetrics(provider.Meter("db.client"), DefaultDBMetricsConfig(), zap.NewNop())
	require.NoError(t, err)

	db := setupTestDB(t)
	require.NoError(t, db.Use(NewDBMetricsPlugin(metrics)))

	require.NoError(t, db.Create(&batchRow{LotNumber: "LOT-1"}).Error)
	var found []batchRow
	require.NoError(t, db.Find(&found).Error)
	require.NoError(t, db.Model(&batchRow{}).Where("lot_number = ?", "LOT-1").Update("lot_number", "LOT-2").Error)
	require.NoError(t, db.Exec("DELETE FROM ingredient_batches").Error)

	counts := queryCounts(t, reader)
	assert.Equal(t, int64(1), counts["INSERT ingredient_batches"])
	assert.Equal(t, int64(1), counts["SELECT ingredient_batches"])
	assert.Equal(t, int64(1), counts["UPDATE ingredient_batches"])
	assert.Equal(t, int64(1), counts["DELETE unknown"], "raw statements carry no table")
}

func TestDBMetrics_PoolStatsAndStop(t *testing.T) {
	reader, provider := newManualMeter(t)
	metrics, err := NewDBMetrics(provider.Meter("db.client"), DBMetricsConfig{
		Enabled:           true,
		PoolStatsInterval: 10 * time.Millisecond,
	}, zap.NewNop())
	require.NoError(t, err)

	sqlDB, err := setupTestDB(t).DB()
	require.NoError(t, err)

	metrics.StartPoolStatsCollection(context.Background(), sqlDB)
	metrics.Stop()
	metrics.Stop()

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	states := make(map[string]bool)
	for _, m := range rm.ScopeMetrics[0].Metrics {
		if m.Name != "db_pool_connections" {
			continue
		}
		for _, dp := range m.Data.(metricdata.Gauge[int64]).DataPoints {
			state, _ := dp.Attributes.Value(AttrDBState)
			states[state.AsString()] = true
		}
	}
	assert.Equal(t, map[string]bool{"idle": true, "in_use": true, "open": true, "max": true}, states)
}

func TestDetectOperationType(t *testing.T) {
	tests := map[string]string{
		"SELECT * FROM ingredient_batches":           "SELECT",
		"  insert into stock_transactions values(1)": "INSERT",
		"UPDATE ingredient_batches SET version = 2":  "UPDATE",
		"delete from ingredient_batches":             "DELETE",
		"PRAGMA foreign_keys = ON":                   "OTHER",
		"":                                           "OTHER",
	}
	for sql, want := range tests {
		assert.Equal(t, want, detectOperationType(sql), sql)
	}
}

func TestRegisterDBMetrics_DisabledProvider(t *testing.T) {
	mp, err := NewMeterProvider(context.Background(), MetricsConfig{Enabled: false}, zap.NewNop())
	require.NoError(t, err)

	metrics, err := RegisterDBMetrics(context.Background(), setupTestDB(t), mp, DefaultDBMetricsConfig(), zap.NewNop())
	require.NoError(t, err)
	assert.Nil(t, metrics)
}

package telemetry_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/vncsmyrnk/user-service/internal/adapters/telemetry"
	"github.com/vncsmyrnk/user-service/internal/core/ports"
)

func newTestMetrics(t *testing.T) (*telemetry.Metrics, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	m, err := telemetry.NewMetrics(provider.Meter(telemetry.MeterName))
	require.NoError(t, err)
	return m, reader
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Aggregation {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	out := make(map[string]metricdata.Aggregation)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m.Data
		}
	}
	return out
}

func sumFor(t *testing.T, data metricdata.Aggregation, attrs ...attribute.KeyValue) int64 {
	t.Helper()
	sum, ok := data.(metricdata.Sum[int64])
	require.True(t, ok, "expected an int64 sum, got %T", data)

	want := attribute.NewSet(attrs...)
	for _, dp := range sum.DataPoints {
		if dp.Attributes.Equals(&want) {
			return dp.Value
		}
	}
	return 0
}

func TestMetrics_Counters(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.UserRegistered(ctx)
	m.UserRegistered(ctx)
	m.LoginAttempt(ctx, ports.OutcomeSuccess)
	m.LoginAttempt(ctx, ports.OutcomeFailed)
	m.LoginAttempt(ctx, ports.OutcomeFailed)
	m.TokenRefresh(ctx, ports.OutcomeSuccess)
	m.CacheLookup(ctx, true)
	m.CacheLookup(ctx, false)
	m.CacheOperation(ctx, ports.CacheOpSet, ports.CacheStatusSuccess)

	data := collect(t, reader)

	assert.Equal(t, int64(2), sumFor(t, data["user_registrations_total"]))
	assert.Equal(t, int64(1), sumFor(t, data["login_attempts_total"], attribute.String("status", "success")))
	assert.Equal(t, int64(2), sumFor(t, data["login_attempts_total"], attribute.String("status", "failed")))
	assert.Equal(t, int64(1), sumFor(t, data["token_refresh_total"], attribute.String("status", "success")))
	assert.Equal(t, int64(1), sumFor(t, data["cache_hit_rate_total"], attribute.String("result", "hit")))
	assert.Equal(t, int64(1), sumFor(t, data["cache_hit_rate_total"], attribute.String("result", "miss")))
	assert.Equal(t, int64(1), sumFor(t, data["cache_operations_total"],
		attribute.String("operation", "set"), attribute.String("status", "success")))
}

func TestMetrics_ActiveUsersGaugeKeepsLastValue(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.ActiveUsers(ctx, 3)
	m.ActiveUsers(ctx, 7)

	data := collect(t, reader)
	gauge, ok := data["active_users_total"].(metricdata.Gauge[int64])
	require.True(t, ok)
	require.Len(t, gauge.DataPoints, 1)
	assert.Equal(t, int64(7), gauge.DataPoints[0].Value)
}

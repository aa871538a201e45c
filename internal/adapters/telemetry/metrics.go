package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/vncsmyrnk/user-service/internal/core/ports"
)

const MeterName = "github.com/vncsmyrnk/user-service"

// Metrics records service outcomes on OpenTelemetry instruments.
type Metrics struct {
	registrations   metric.Int64Counter
	loginAttempts   metric.Int64Counter
	tokenRefreshes  metric.Int64Counter
	cacheLookups    metric.Int64Counter
	cacheOperations metric.Int64Counter
	activeUsers     metric.Int64Gauge
}

var _ ports.Metrics = (*Metrics)(nil)

func NewMetrics(meter metric.Meter) (*Metrics, error) {
	var m Metrics
	var err error

	if m.registrations, err = meter.Int64Counter("user_registrations_total",
		metric.WithDescription("Total number of user registrations")); err != nil {
		return nil, fmt.Errorf("failed to create registrations counter: %w", err)
	}
	if m.loginAttempts, err = meter.Int64Counter("login_attempts_total",
		metric.WithDescription("Total number of login attempts")); err != nil {
		return nil, fmt.Errorf("failed to create login counter: %w", err)
	}
	if m.tokenRefreshes, err = meter.Int64Counter("token_refresh_total",
		metric.WithDescription("Total number of token refresh requests")); err != nil {
		return nil, fmt.Errorf("failed to create refresh counter: %w", err)
	}
	if m.cacheLookups, err = meter.Int64Counter("cache_hit_rate_total",
		metric.WithDescription("Cache hit/miss counter")); err != nil {
		return nil, fmt.Errorf("failed to create cache lookup counter: %w", err)
	}
	if m.cacheOperations, err = meter.Int64Counter("cache_operations_total",
		metric.WithDescription("Total number of cache operations")); err != nil {
		return nil, fmt.Errorf("failed to create cache operations counter: %w", err)
	}
	if m.activeUsers, err = meter.Int64Gauge("active_users_total",
		metric.WithDescription("Total number of registered users")); err != nil {
		return nil, fmt.Errorf("failed to create active users gauge: %w", err)
	}

	return &m, nil
}

func (m *Metrics) UserRegistered(ctx context.Context) {
	m.registrations.Add(ctx, 1)
}

func (m *Metrics) LoginAttempt(ctx context.Context, outcome string) {
	m.loginAttempts.Add(ctx, 1, metric.WithAttributes(attribute.String("status", outcome)))
}

func (m *Metrics) TokenRefresh(ctx context.Context, outcome string) {
	m.tokenRefreshes.Add(ctx, 1, metric.WithAttributes(attribute.String("status", outcome)))
}

func (m *Metrics) CacheLookup(ctx context.Context, hit bool) {
	result := ports.CacheStatusMiss
	if hit {
		result = ports.CacheStatusHit
	}
	m.cacheLookups.Add(ctx, 1, metric.WithAttributes(attribute.String("result", result)))
}

func (m *Metrics) CacheOperation(ctx context.Context, operation, status string) {
	m.cacheOperations.Add(ctx, 1, metric.WithAttributes(
		attribute.String("operation", operation),
		attribute.String("status", status),
	))
}

func (m *Metrics) ActiveUsers(ctx context.Context, count int64) {
	m.activeUsers.Record(ctx, count)
}

package ports

import "context"

const (
	OutcomeSuccess = "success"
	OutcomeFailed  = "failed"
)

const (
	CacheOpGet    = "get"
	CacheOpSet    = "set"
	CacheOpDelete = "delete"
)

const (
	CacheStatusHit     = "hit"
	CacheStatusMiss    = "miss"
	CacheStatusSuccess = "success"
	CacheStatusSkipped = "skipped"
	CacheStatusError   = "error"
)

// Metrics is the observability sink the services report outcomes to.
type Metrics interface {
	UserRegistered(ctx context.Context)
	LoginAttempt(ctx context.Context, outcome string)
	TokenRefresh(ctx context.Context, outcome string)
	CacheLookup(ctx context.Context, hit bool)
	CacheOperation(ctx context.Context, operation, status string)
	ActiveUsers(ctx context.Context, count int64)
}

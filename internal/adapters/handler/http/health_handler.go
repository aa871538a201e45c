package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

const deepHealthTimeout = 2 * time.Second

type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthHandler struct {
	version string
	db      Pinger
	cache   Pinger
	logger  *slog.Logger
}

func NewHealthHandler(version string, db, cache Pinger, logger *slog.Logger) *HealthHandler {
	return &HealthHandler{
		version: version,
		db:      db,
		cache:   cache,
		logger:  logger,
	}
}

type deepHealthResponse struct {
	Status string `json:"status"`
	DB     string `json:"db"`
	Cache  string `json:"cache"`
}

func (h *HealthHandler) Root(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"message": "User Service API",
		"version": h.version,
	})
}

func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// Deep pings the durable store and the cache and answers 503 when either
// is unreachable.
func (h *HealthHandler) Deep(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), deepHealthTimeout)
	defer cancel()

	resp := deepHealthResponse{
		Status: "healthy",
		DB:     h.check(ctx, "db", h.db),
		Cache:  h.check(ctx, "cache", h.cache),
	}

	status := http.StatusOK
	if resp.DB != "healthy" || resp.Cache != "healthy" {
		resp.Status = "unhealthy"
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, resp)
}

func (h *HealthHandler) check(ctx context.Context, name string, p Pinger) string {
	if err := p.Ping(ctx); err != nil {
		h.logger.WarnContext(ctx, "health check failed", "component", name, "error", err)
		return "unhealthy"
	}
	return "healthy"
}

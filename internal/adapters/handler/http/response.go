package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/vncsmyrnk/user-service/internal/core/domain"
)

type envelope struct {
	Success bool      `json:"success"`
	Data    any       `json:"data"`
	Error   *string   `json:"error"`
	Message string    `json:"message"`
	Meta    *pageMeta `json:"meta,omitempty"`
}

type pageMeta struct {
	Page       int   `json:"page"`
	PerPage    int   `json:"per_page"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
}

func newPageMeta(skip, limit int, total int64) *pageMeta {
	totalPages := int((total + int64(limit) - 1) / int64(limit))
	return &pageMeta{
		Page:       skip/limit + 1,
		PerPage:    limit,
		Total:      total,
		TotalPages: totalPages,
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeData(w http.ResponseWriter, status int, message string, data any) {
	writeJSON(w, status, envelope{Success: true, Data: data, Message: message})
}

func writeFailure(w http.ResponseWriter, status int, message string) {
	text := http.StatusText(status)
	writeJSON(w, status, envelope{Success: false, Error: &text, Message: message})
}

func writeUnauthorized(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", "Bearer")
	writeFailure(w, http.StatusUnauthorized, domain.ErrUnauthorized.Error())
}

// writeError maps a service error onto a status code. Anything it does not
// recognise is logged and reported as a bare 500.
func writeError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	var validationErr *domain.ValidationError
	switch {
	case errors.As(err, &validationErr):
		writeFailure(w, http.StatusUnprocessableEntity, validationErr.Error())
	case errors.Is(err, domain.ErrUnauthorized):
		writeUnauthorized(w)
	case errors.Is(err, domain.ErrForbidden):
		writeFailure(w, http.StatusForbidden, err.Error())
	case errors.Is(err, domain.ErrUserNotFound):
		writeFailure(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrEmailTaken):
		writeFailure(w, http.StatusBadRequest, err.Error())
	default:
		logger.ErrorContext(r.Context(), "request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		writeFailure(w, http.StatusInternalServerError, domain.ErrInternal.Error())
	}
}

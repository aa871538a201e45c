package http

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/mail"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/vncsmyrnk/user-service/internal/core/domain"
	"github.com/vncsmyrnk/user-service/internal/core/ports"
)

type UserHandler struct {
	service ports.UserService
	logger  *slog.Logger
}

func NewUserHandler(service ports.UserService, logger *slog.Logger) *UserHandler {
	return &UserHandler{
		service: service,
		logger:  logger,
	}
}

type preferencesRequest struct {
	Email *bool `json:"email"`
	Push  *bool `json:"push"`
}

// toDomain fills unset flags with the opt-in default.
func (p *preferencesRequest) toDomain() domain.Preferences {
	prefs := domain.Preferences{Email: true, Push: true}
	if p == nil {
		return prefs
	}
	if p.Email != nil {
		prefs.Email = *p.Email
	}
	if p.Push != nil {
		prefs.Push = *p.Push
	}
	return prefs
}

type createUserRequest struct {
	Name        string              `json:"name"`
	Email       string              `json:"email"`
	Password    string              `json:"password"`
	Preferences *preferencesRequest `json:"preferences"`
}

type updatePushTokenRequest struct {
	PushToken *string `json:"push_token"`
}

type updatePreferencesRequest struct {
	Preferences *preferencesRequest `json:"preferences"`
}

func (h *UserHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeFailure(w, http.StatusBadRequest, "invalid request body")
		return
	}

	input, err := req.validate()
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	user, err := h.service.Register(r.Context(), input)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	writeData(w, http.StatusCreated, "user created successfully", user)
}

func (req *createUserRequest) validate() (ports.RegisterInput, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return ports.RegisterInput{}, domain.NewValidationError("name", "is required")
	}

	email := normalizeEmail(req.Email)
	if email == "" {
		return ports.RegisterInput{}, domain.NewValidationError("email", "is required")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return ports.RegisterInput{}, domain.NewValidationError("email", "is not a valid address")
	}

	if req.Password == "" {
		return ports.RegisterInput{}, domain.NewValidationError("password", "is required")
	}

	return ports.RegisterInput{
		Name:        name,
		Email:       email,
		Password:    req.Password,
		Preferences: req.Preferences.toDomain(),
	}, nil
}

func (h *UserHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	id, err := userIDParam(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	user, err := h.service.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	writeData(w, http.StatusOK, "user retrieved successfully", user)
}

func (h *UserHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	skip, err := intQuery(r, "skip")
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	limit, err := intQuery(r, "limit")
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	page, err := h.service.List(r.Context(), ports.ListUsersInput{Skip: skip, Limit: limit})
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, envelope{
		Success: true,
		Data:    page.Users,
		Message: "users retrieved successfully",
		Meta:    newPageMeta(page.Skip, page.Limit, page.Total),
	})
}

func (h *UserHandler) UpdatePushToken(w http.ResponseWriter, r *http.Request) {
	id, caller, ok := h.ownerRequest(w, r)
	if !ok {
		return
	}

	var req updatePushTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeFailure(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.PushToken == nil {
		writeError(w, r, h.logger, domain.NewValidationError("push_token", "is required"))
		return
	}

	user, err := h.service.UpdatePushToken(r.Context(), id, caller.ID, *req.PushToken)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	writeData(w, http.StatusOK, "push token updated successfully", user)
}

func (h *UserHandler) UpdatePreferences(w http.ResponseWriter, r *http.Request) {
	id, caller, ok := h.ownerRequest(w, r)
	if !ok {
		return
	}

	var req updatePreferencesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeFailure(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Preferences == nil {
		writeError(w, r, h.logger, domain.NewValidationError("preferences", "is required"))
		return
	}

	user, err := h.service.UpdatePreferences(r.Context(), id, caller.ID, req.Preferences.toDomain())
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	writeData(w, http.StatusOK, "preferences updated successfully", user)
}

func (h *UserHandler) ownerRequest(w http.ResponseWriter, r *http.Request) (uuid.UUID, *domain.User, bool) {
	id, err := userIDParam(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return uuid.Nil, nil, false
	}
	caller, ok := CurrentUser(r.Context())
	if !ok {
		writeUnauthorized(w)
		return uuid.Nil, nil, false
	}
	return id, caller, true
}

func userIDParam(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		return uuid.Nil, domain.NewValidationError("id", domain.ErrInvalidUserID.Error())
	}
	return id, nil
}

func intQuery(r *http.Request, name string) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, domain.NewValidationError(name, "must be a non-negative integer")
	}
	return n, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

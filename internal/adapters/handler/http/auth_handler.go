package http

import (
	"encoding/json"
	"log/slog"
	"mime"
	"net/http"

	"github.com/vncsmyrnk/user-service/internal/core/domain"
	"github.com/vncsmyrnk/user-service/internal/core/ports"
)

type AuthHandler struct {
	authService ports.AuthService
	logger      *slog.Logger
}

func NewAuthHandler(authService ports.AuthService, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		logger:      logger,
	}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// Login accepts either a JSON body {email, password} or the OAuth2 password
// form {username, password}.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/json" {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeFailure(w, http.StatusBadRequest, "invalid request body")
			return
		}
	} else {
		if err := r.ParseForm(); err != nil {
			writeFailure(w, http.StatusBadRequest, "invalid form body")
			return
		}
		req.Email = r.PostForm.Get("username")
		req.Password = r.PostForm.Get("password")
	}

	email := normalizeEmail(req.Email)
	if email == "" {
		writeError(w, r, h.logger, domain.NewValidationError("email", "is required"))
		return
	}
	if req.Password == "" {
		writeError(w, r, h.logger, domain.NewValidationError("password", "is required"))
		return
	}

	pair, err := h.authService.Login(r.Context(), email, req.Password)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	writeData(w, http.StatusOK, "login successful", pair)
}

func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeFailure(w, http.StatusBadRequest, "invalid request body")
		return
	}
	issued, err := h.authService.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	writeData(w, http.StatusOK, "token refreshed successfully", issued)
}

package handler

import (
	"log/slog"
	"net/http"

	"github.com/mailclient/mailclient-auth/internal/model"
	"github.com/mailclient/mailclient-auth/internal/service"
)

// AuthHandler handles HTTP requests for authentication.
type AuthHandler struct {
	service *service.AuthService
	logger  *slog.Logger
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(svc *service.AuthService, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{service: svc, logger: logger}
}

// HandleRegister handles POST /api/v1/auth/register requests.
func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req model.RegisterRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeDecodeError(w, err)
		return
	}

	if _, err := h.service.Register(r.Context(), req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	writeSuccess(w, "User registered successfully. Please login.", nil)
}

// HandleLogin handles POST /api/v1/auth/login requests.
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req model.LoginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeDecodeError(w, err)
		return
	}

	resp, err := h.service.Login(r.Context(), req)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	writeSuccess(w, "", resp)
}

// HandleGoogleLogin handles POST /api/v1/auth/google requests.
func (h *AuthHandler) HandleGoogleLogin(w http.ResponseWriter, r *http.Request) {
	var req model.GoogleLoginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeDecodeError(w, err)
		return
	}

	resp, err := h.service.GoogleLogin(r.Context(), req)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	writeSuccess(w, "", resp)
}

// HandleRefresh handles POST /api/v1/auth/refresh requests.
func (h *AuthHandler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	var req model.RefreshTokenRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeDecodeError(w, err)
		return
	}

	resp, err := h.service.Refresh(r.Context(), req)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	writeSuccess(w, "", resp)
}

// HandleLogout handles POST /api/v1/auth/logout requests.
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	var req model.RefreshTokenRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeDecodeError(w, err)
		return
	}

	if err := h.service.Logout(r.Context(), req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	writeSuccess(w, "Logged out successfully", nil)
}

package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/mailclient/mailclient-auth/internal/middleware"
	"github.com/mailclient/mailclient-auth/internal/model"
	"github.com/mailclient/mailclient-auth/internal/service"
)

// UserHandler serves the authenticated user's profile.
type UserHandler struct {
	service *service.UserService
	logger  *slog.Logger
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(svc *service.UserService, logger *slog.Logger) *UserHandler {
	return &UserHandler{service: svc, logger: logger}
}

// HandleMe handles GET /api/v1/users/me requests.
func (h *UserHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, model.ErrorResponse(model.CodeAuthRequired, model.MsgAuthRequired))
		return
	}

	resp, err := h.service.GetUser(r.Context(), user.ID)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	writeSuccess(w, "", resp)
}

// HandleUpdateMe handles PUT /api/v1/users/me requests.
func (h *UserHandler) HandleUpdateMe(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, model.ErrorResponse(model.CodeAuthRequired, model.MsgAuthRequired))
		return
	}

	var req model.UpdateProfileRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeDecodeError(w, err)
		return
	}

	resp, err := h.service.UpdateProfile(r.Context(), user.ID, req)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	writeSuccess(w, "Profile updated successfully", resp)
}

// HandleGetUser handles GET /api/v1/users/{id} requests.
func (h *UserHandler) HandleGetUser(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeJSON(w, http.StatusBadRequest, model.ErrorResponse(model.CodeValidation, "Invalid user id"))
		return
	}

	resp, err := h.service.GetUser(r.Context(), id)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	writeSuccess(w, "", resp)
}

package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/mailclient/mailclient-auth/internal/model"
	"github.com/mailclient/mailclient-auth/internal/service"
)

type errorMapping struct {
	err     error
	status  int
	code    string
	message string
}

// errorTable translates service errors into HTTP responses. Order matters
// only in that the first match wins.
var errorTable = []errorMapping{
	{service.ErrEmailRequired, http.StatusBadRequest, model.CodeRequiredField, "Email is required"},
	{service.ErrPasswordRequired, http.StatusBadRequest, model.CodeRequiredField, "Password is required"},
	{service.ErrNameRequired, http.StatusBadRequest, model.CodeRequiredField, "Name is required"},
	{service.ErrIDTokenRequired, http.StatusBadRequest, model.CodeRequiredField, "Google ID token is required"},
	{service.ErrRefreshTokenRequired, http.StatusBadRequest, model.CodeRequiredField, "Refresh token is required"},
	{service.ErrInvalidEmail, http.StatusBadRequest, model.CodeInvalidEmail, model.MsgInvalidEmail},
	{service.ErrWeakPassword, http.StatusBadRequest, model.CodeInvalidPassword, model.MsgInvalidPassword},
	{service.ErrPasswordTooLong, http.StatusBadRequest, model.CodeInvalidPassword, "Password must be at most 72 bytes"},
	{service.ErrNameTooLong, http.StatusBadRequest, model.CodeValidation, "Name must be at most 100 characters"},

	{service.ErrInvalidCredentials, http.StatusUnauthorized, model.CodeInvalidCredential, model.MsgInvalidCredential},
	{service.ErrInvalidGoogleToken, http.StatusUnauthorized, model.CodeInvalidGoogle, model.MsgInvalidGoogle},
	{service.ErrRefreshTokenNotFound, http.StatusUnauthorized, model.CodeInvalidToken, model.MsgInvalidToken},
	{service.ErrRefreshTokenExpired, http.StatusUnauthorized, model.CodeTokenExpired, model.MsgTokenExpired},

	{service.ErrEmailTaken, http.StatusConflict, model.CodeEmailTaken, model.MsgEmailTaken},
	{service.ErrUserNotFound, http.StatusNotFound, model.CodeUserNotFound, model.MsgUserNotFound},
}

// writeError maps err to its status and code. Unknown errors become a
// SYSTEM_001 500 and are logged with full detail.
func writeError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	for _, m := range errorTable {
		if errors.Is(err, m.err) {
			writeJSON(w, m.status, model.ErrorResponse(m.code, m.message))
			return
		}
	}

	logger.ErrorContext(r.Context(), "request failed",
		"method", r.Method,
		"path", r.URL.Path,
		"error", err,
	)
	writeJSON(w, http.StatusInternalServerError, model.ErrorResponse(model.CodeInternal, model.MsgInternal))
}

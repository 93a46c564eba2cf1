package middleware

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/mailclient/mailclient-auth/internal/model"
)

type contextKey string

const (
	userKey      contextKey = "user"
	requestIDKey contextKey = "requestID"
)

// TokenValidator reads and checks access tokens.
type TokenValidator interface {
	ExtractUsername(token string) (string, error)
	IsTokenValid(token, email string) bool
}

// UserLoader resolves the subject of an access token to a user.
type UserLoader interface {
	LoadByEmail(ctx context.Context, email string) (*model.User, error)
}

// Authenticate returns middleware that requires a valid Bearer access token
// and stores the authenticated user in the request context. Both
// dependencies are required.
func Authenticate(tokens TokenValidator, users UserLoader, logger *slog.Logger) func(http.Handler) http.Handler {
	if tokens == nil {
		panic("middleware: Authenticate requires a TokenValidator")
	}
	if users == nil {
		panic("middleware: Authenticate requires a UserLoader")
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				writeJSONError(w, http.StatusUnauthorized, model.CodeAuthRequired, model.MsgAuthRequired)
				return
			}

			token, found := strings.CutPrefix(authHeader, "Bearer ")
			token = strings.TrimSpace(token)
			if !found || token == "" {
				writeJSONError(w, http.StatusUnauthorized, model.CodeAuthRequired, model.MsgAuthRequired)
				return
			}

			email, err := tokens.ExtractUsername(token)
			if err != nil {
				logger.DebugContext(r.Context(), "access token rejected", "error", err)
				writeJSONError(w, http.StatusUnauthorized, model.CodeInvalidToken, model.MsgInvalidToken)
				return
			}

			user, err := users.LoadByEmail(r.Context(), email)
			if err != nil {
				logger.DebugContext(r.Context(), "access token subject not loadable", "error", err)
				writeJSONError(w, http.StatusUnauthorized, model.CodeInvalidToken, model.MsgInvalidToken)
				return
			}

			if !tokens.IsTokenValid(token, user.Email) {
				writeJSONError(w, http.StatusUnauthorized, model.CodeInvalidToken, model.MsgInvalidToken)
				return
			}

			ctx := context.WithValue(r.Context(), userKey, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// UserFromContext extracts the authenticated user from the request context.
func UserFromContext(ctx context.Context) (*model.User, bool) {
	user, ok := ctx.Value(userKey).(*model.User)
	return user, ok
}

func writeJSONError(w http.ResponseWriter, status int, code, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(model.ErrorResponse(code, msg))
}

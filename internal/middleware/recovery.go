package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/mailclient/mailclient-auth/internal/model"
)

// Recoverer turns a panic in a handler into a SYSTEM_001 500 response and
// logs the stack.
func Recoverer(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}

				logger.ErrorContext(r.Context(), "panic recovered",
					"request_id", RequestIDFromContext(r.Context()),
					"panic", rec,
					"stack", string(debug.Stack()),
				)
				writeJSONError(w, http.StatusInternalServerError, model.CodeInternal, model.MsgInternal)
			}()

			next.ServeHTTP(w, r)
		})
	}
}

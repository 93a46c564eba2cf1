package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mailclient/mailclient-auth/internal/model"
)

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

type fakeTokens struct {
	subject string
	err     error
	valid   bool
}

func (f fakeTokens) ExtractUsername(string) (string, error) {
	return f.subject, f.err
}

func (f fakeTokens) IsTokenValid(string, string) bool {
	return f.valid
}

type fakeUsers map[string]*model.User

func (f fakeUsers) LoadByEmail(_ context.Context, email string) (*model.User, error) {
	user, ok := f[email]
	if !ok {
		return nil, errors.New("user not found")
	}
	return user, nil
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) model.APIResponse {
	t.Helper()
	var resp model.APIResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestAuthenticate(t *testing.T) {
	ann := &model.User{ID: 7, Email: "ann@x.com"}
	users := fakeUsers{"ann@x.com": ann}

	tests := []struct {
		name       string
		header     string
		tokens     fakeTokens
		wantStatus int
		wantCode   string
	}{
		{"valid", "Bearer good", fakeTokens{subject: "ann@x.com", valid: true}, http.StatusOK, ""},
		{"missing header", "", fakeTokens{}, http.StatusUnauthorized, model.CodeAuthRequired},
		{"not bearer", "Token good", fakeTokens{}, http.StatusUnauthorized, model.CodeAuthRequired},
		{"unparseable", "Bearer bad", fakeTokens{err: errors.New("bad")}, http.StatusUnauthorized, model.CodeInvalidToken},
		{"unknown user", "Bearer good", fakeTokens{subject: "ghost@x.com", valid: true}, http.StatusUnauthorized, model.CodeInvalidToken},
		{"not valid for user", "Bearer good", fakeTokens{subject: "ann@x.com", valid: false}, http.StatusUnauthorized, model.CodeInvalidToken},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got *model.User
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				got, _ = UserFromContext(r.Context())
				w.WriteHeader(http.StatusOK)
			})

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			Authenticate(tt.tokens, users, testLogger())(next).ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantCode == "" {
				assert.Same(t, ann, got)
				return
			}
			assert.Nil(t, got)
			assert.Equal(t, tt.wantCode, decodeError(t, rec).ErrorCode)
		})
	}
}

func TestAuthenticateRequiresDependencies(t *testing.T) {
	assert.Panics(t, func() { Authenticate(nil, fakeUsers{}, testLogger()) })
	assert.Panics(t, func() { Authenticate(fakeTokens{}, nil, testLogger()) })
}

func TestUserFromContextEmpty(t *testing.T) {
	_, ok := UserFromContext(context.Background())
	assert.False(t, ok)
}

func TestRateLimit(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	handler := RateLimit(ctx, 1, 2)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	send := func(remoteAddr string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/", nil)
		req.RemoteAddr = remoteAddr
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec
	}

	assert.Equal(t, http.StatusNoContent, send("10.0.0.1:1000").Code)
	assert.Equal(t, http.StatusNoContent, send("10.0.0.1:1001").Code)

	rec := send("10.0.0.1:1002")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, model.CodeRateLimited, decodeError(t, rec).ErrorCode)

	assert.Equal(t, http.StatusNoContent, send("10.0.0.2:1000").Code, "limits are per client IP")
}

func TestIPRateLimiterEvictIdle(t *testing.T) {
	rl := newIPRateLimiter(1, 1)
	rl.getLimiter("10.0.0.1")
	rl.getLimiter("10.0.0.2")
	rl.visitors["10.0.0.1"].lastSeen = time.Now().Add(-2 * visitorTTL)

	rl.evictIdle(time.Now())

	assert.NotContains(t, rl.visitors, "10.0.0.1")
	assert.Contains(t, rl.visitors, "10.0.0.2")
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)

	req.RemoteAddr = "192.0.2.10:5555"
	assert.Equal(t, "192.0.2.10", clientIP(req))

	req.RemoteAddr = "[2001:db8::1]:443"
	assert.Equal(t, "2001:db8::1", clientIP(req))

	req.RemoteAddr = "unix-socket"
	assert.Equal(t, "unix-socket", clientIP(req))
}

func TestRequestLogger(t *testing.T) {
	var seen string
	handler := RequestLogger(testLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestIDFromContext(r.Context())
		w.Write([]byte("ok"))
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, seen)
	assert.Equal(t, seen, rec.Header().Get("X-Request-ID"))
}

func TestRecoverer(t *testing.T) {
	handler := Recoverer(testLogger())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	resp := decodeError(t, rec)
	assert.Equal(t, model.CodeInternal, resp.ErrorCode)
	assert.NotContains(t, resp.Message, "boom")
}

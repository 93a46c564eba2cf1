package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mailclient/mailclient-auth/internal/middleware"
)

// RouterConfig carries everything NewRouter mounts.
type RouterConfig struct {
	Auth   *AuthHandler
	Users  *UserHandler
	Health *HealthHandler

	Tokens middleware.TokenValidator
	Loader middleware.UserLoader

	// RateLimitRPS and RateLimitBurst limit /api/v1/auth per client IP.
	// A non-positive RPS disables the limit.
	RateLimitRPS   float64
	RateLimitBurst int

	Logger *slog.Logger
}

// NewRouter builds the HTTP routes. ctx bounds the lifetime of background
// work owned by the router, such as rate limiter cleanup.
func NewRouter(ctx context.Context, cfg RouterConfig) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestLogger(cfg.Logger))
	r.Use(middleware.Recoverer(cfg.Logger))

	r.Get("/health", cfg.Health.HandleHealth)

	r.Route("/api/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			if cfg.RateLimitRPS > 0 {
				r.Use(middleware.RateLimit(ctx, cfg.RateLimitRPS, cfg.RateLimitBurst))
			}
			r.Post("/auth/register", cfg.Auth.HandleRegister)
			r.Post("/auth/login", cfg.Auth.HandleLogin)
			r.Post("/auth/google", cfg.Auth.HandleGoogleLogin)
			r.Post("/auth/refresh", cfg.Auth.HandleRefresh)
			r.Post("/auth/logout", cfg.Auth.HandleLogout)
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.Authenticate(cfg.Tokens, cfg.Loader, cfg.Logger))
			r.Get("/users/me", cfg.Users.HandleMe)
			r.Put("/users/me", cfg.Users.HandleUpdateMe)
			r.Get("/users/{id}", cfg.Users.HandleGetUser)
		})
	})

	return r
}

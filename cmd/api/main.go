package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/mailclient/mailclient-auth/internal/config"
	"github.com/mailclient/mailclient-auth/internal/crypto"
	"github.com/mailclient/mailclient-auth/internal/google"
	"github.com/mailclient/mailclient-auth/internal/handler"
	"github.com/mailclient/mailclient-auth/internal/repository"
	"github.com/mailclient/mailclient-auth/internal/service"
)

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Warn("no .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	logger := newLogger(cfg)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := repository.NewDB(ctx, cfg.DBDriver, cfg.DatabaseDSN)
	if err != nil {
		logger.Error("database connection failed", "driver", cfg.DBDriver, "error", err)
		os.Exit(1)
	}
	defer db.Close()
	store := repository.NewStore(db)

	hasher, err := crypto.NewPasswordHasher(cfg.Password.Algorithm, cfg.Password.Cost)
	if err != nil {
		logger.Error("invalid password hasher settings", "error", err)
		os.Exit(1)
	}
	jwtService := crypto.NewJWTService(cfg.JWT.Secret, cfg.JWT.Issuer, cfg.JWT.AccessTTL, cfg.JWT.ClockSkew)

	httpClient := &http.Client{Timeout: 10 * time.Second}
	keyCache := google.NewKeyCache(cfg.Google.CertsURL, httpClient, logger)
	googleVerifier := google.NewVerifier(cfg.Google.ClientID, keyCache, logger)

	refreshTokens := service.NewRefreshTokenService(store, cfg.JWT.RefreshTTL, cfg.RefreshToken.MaxPerUser, logger)
	authService := service.NewAuthService(store, hasher, jwtService, refreshTokens, googleVerifier, service.AuthOptions{
		RotateRefreshTokens:        cfg.RefreshToken.Rotation,
		RequireVerifiedGoogleEmail: cfg.Google.RequireVerifiedMail,
	}, logger)
	userService := service.NewUserService(store)

	router := handler.NewRouter(ctx, handler.RouterConfig{
		Auth:           handler.NewAuthHandler(authService, logger),
		Users:          handler.NewUserHandler(userService, logger),
		Health:         handler.NewHealthHandler(store, logger),
		Tokens:         jwtService,
		Loader:         userService,
		RateLimitRPS:   cfg.RateLimit.RPS,
		RateLimitBurst: cfg.RateLimit.Burst,
		Logger:         logger,
	})

	var wg sync.WaitGroup
	if cfg.RefreshToken.CleanupInterval > 0 {
		sweeper := service.NewTokenSweeper(refreshTokens, cfg.RefreshToken.CleanupInterval, logger)
		wg.Go(func() {
			sweeper.Run(ctx)
		})
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("server starting", "port", cfg.Port, "env", cfg.Env, "db_driver", cfg.DBDriver)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-serverErr:
		logger.Error("server error", "error", err)
		stop()
	}

	logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced shutdown", "error", err)
	}
	wg.Wait()

	logger.Info("server stopped")
}

func newLogger(cfg config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.LogLevel}
	if cfg.IsProduction() {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}

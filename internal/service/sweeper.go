package service

import (
	"context"
	"log/slog"
	"time"
)

// TokenSweeper periodically deletes expired refresh tokens.
type TokenSweeper struct {
	tokens   *RefreshTokenService
	interval time.Duration
	logger   *slog.Logger
}

// NewTokenSweeper creates a new TokenSweeper. A zero interval sweeps only once.
func NewTokenSweeper(tokens *RefreshTokenService, interval time.Duration, logger *slog.Logger) *TokenSweeper {
	return &TokenSweeper{
		tokens:   tokens,
		interval: interval,
		logger:   logger,
	}
}

// Run sweeps immediately and then on every tick until ctx is cancelled.
func (s *TokenSweeper) Run(ctx context.Context) {
	s.sweep(ctx)

	if s.interval <= 0 {
		return
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("refresh token sweeper stopped")
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *TokenSweeper) sweep(ctx context.Context) {
	deleted, err := s.tokens.DeleteExpiredTokens(ctx)
	if err != nil {
		if ctx.Err() == nil {
			s.logger.Error("expired refresh token sweep failed", "error", err)
		}
		return
	}
	if deleted > 0 {
		s.logger.Info("expired refresh tokens deleted", "count", deleted)
	}
}

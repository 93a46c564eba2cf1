package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/mailclient/mailclient-auth/internal/model"
	"github.com/mailclient/mailclient-auth/internal/repository"
)

// Unlimited disables the per-user refresh token cap.
const Unlimited = -1

// RefreshTokenService manages the lifecycle of persisted refresh tokens.
type RefreshTokenService struct {
	store      *repository.Store
	ttl        time.Duration
	maxPerUser int
	logger     *slog.Logger
	now        func() time.Time
}

// NewRefreshTokenService creates a new RefreshTokenService. maxPerUser caps the
// number of live tokens per user; Unlimited disables the cap.
func NewRefreshTokenService(store *repository.Store, ttl time.Duration, maxPerUser int, logger *slog.Logger) *RefreshTokenService {
	return &RefreshTokenService{
		store:      store,
		ttl:        ttl,
		maxPerUser: maxPerUser,
		logger:     logger,
		now:        time.Now,
	}
}

// Create persists token for userID with expiry now+ttl. When the user already
// holds the maximum number of tokens, the oldest are evicted in the same transaction.
func (s *RefreshTokenService) Create(ctx context.Context, userID int64, token string) (*model.RefreshToken, error) {
	var rt *model.RefreshToken
	err := s.store.InTx(ctx, func(tx *repository.Store) error {
		var err error
		rt, err = s.create(ctx, tx, userID, token)
		return err
	})
	if err != nil {
		return nil, err
	}
	return rt, nil
}

func (s *RefreshTokenService) create(ctx context.Context, tx *repository.Store, userID int64, token string) (*model.RefreshToken, error) {
	if s.maxPerUser != Unlimited {
		count, err := tx.RefreshTokens.CountByUserID(ctx, userID)
		if err != nil {
			return nil, err
		}
		if excess := count - s.maxPerUser + 1; excess > 0 {
			evicted, err := tx.RefreshTokens.DeleteOldestByUserID(ctx, userID, excess)
			if err != nil {
				return nil, err
			}
			s.logger.Debug("evicted oldest refresh tokens", "user_id", userID, "count", evicted)
		}
	}

	now := s.now().UTC()
	rt := &model.RefreshToken{
		Token:     token,
		UserID:    userID,
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}
	if err := tx.RefreshTokens.Create(ctx, rt); err != nil {
		return nil, fmt.Errorf("creating refresh token: %w", err)
	}
	return rt, nil
}

// FindByToken looks up a refresh token by exact match.
func (s *RefreshTokenService) FindByToken(ctx context.Context, token string) (*model.RefreshToken, error) {
	rt, err := s.store.RefreshTokens.FindByToken(ctx, token)
	if err != nil {
		if errors.Is(err, repository.ErrRefreshTokenNotFound) {
			return nil, ErrRefreshTokenNotFound
		}
		return nil, err
	}
	return rt, nil
}

// VerifyExpiration returns rt unchanged if it is still valid. An expired token
// is deleted and ErrRefreshTokenExpired is returned.
func (s *RefreshTokenService) VerifyExpiration(ctx context.Context, rt *model.RefreshToken) (*model.RefreshToken, error) {
	if !rt.IsExpired(s.now()) {
		return rt, nil
	}

	err := s.store.RefreshTokens.DeleteByToken(ctx, rt.Token)
	if err != nil && !errors.Is(err, repository.ErrRefreshTokenNotFound) {
		return nil, err
	}
	s.logger.Info("expired refresh token removed", "user_id", rt.UserID)
	return nil, ErrRefreshTokenExpired
}

// Rotate atomically replaces old with newToken. If old was already consumed,
// for example by a concurrent refresh, ErrRefreshTokenNotFound is returned and
// nothing is written.
func (s *RefreshTokenService) Rotate(ctx context.Context, old *model.RefreshToken, newToken string) (*model.RefreshToken, error) {
	var rt *model.RefreshToken
	err := s.store.InTx(ctx, func(tx *repository.Store) error {
		if err := tx.RefreshTokens.DeleteByToken(ctx, old.Token); err != nil {
			if errors.Is(err, repository.ErrRefreshTokenNotFound) {
				return ErrRefreshTokenNotFound
			}
			return err
		}

		var err error
		rt, err = s.create(ctx, tx, old.UserID, newToken)
		return err
	})
	if err != nil {
		return nil, err
	}
	return rt, nil
}

// DeleteByToken removes a refresh token, failing with ErrRefreshTokenNotFound
// if it does not exist.
func (s *RefreshTokenService) DeleteByToken(ctx context.Context, token string) error {
	if err := s.store.RefreshTokens.DeleteByToken(ctx, token); err != nil {
		if errors.Is(err, repository.ErrRefreshTokenNotFound) {
			return ErrRefreshTokenNotFound
		}
		return err
	}
	return nil
}

// RevokeAllForUser deletes every refresh token of a user.
func (s *RefreshTokenService) RevokeAllForUser(ctx context.Context, userID int64) (int64, error) {
	n, err := s.store.RefreshTokens.DeleteByUserID(ctx, userID)
	if err != nil {
		return 0, err
	}
	s.logger.Info("revoked all refresh tokens", "user_id", userID, "count", n)
	return n, nil
}

// DeleteExpiredTokens removes every token expired at the current time. It is
// idempotent and returns the number of tokens removed.
func (s *RefreshTokenService) DeleteExpiredTokens(ctx context.Context) (int64, error) {
	return s.store.RefreshTokens.DeleteExpired(ctx, s.now())
}

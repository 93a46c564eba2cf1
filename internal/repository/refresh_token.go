package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mailclient/mailclient-auth/internal/model"
)

var (
	ErrRefreshTokenNotFound = errors.New("refresh token not found")
	ErrDuplicateToken       = errors.New("refresh token already exists")
)

const refreshTokenColumns = `id, token, user_id, expires_at, created_at`

// RefreshTokenRepository handles refresh token persistence operations.
type RefreshTokenRepository struct {
	q       querier
	dialect Dialect
}

// Create inserts a refresh token and sets its generated ID.
// ExpiresAt and CreatedAt must be set by the caller.
func (r *RefreshTokenRepository) Create(ctx context.Context, token *model.RefreshToken) error {
	query := `INSERT INTO refresh_tokens (token, user_id, expires_at, created_at) VALUES (?, ?, ?, ?)`

	id, err := insertID(ctx, r.q, r.dialect, query,
		token.Token, token.UserID, token.ExpiresAt.UTC(), token.CreatedAt.UTC(),
	)
	if err != nil {
		if isDuplicateEntryError(err) {
			return ErrDuplicateToken
		}
		return fmt.Errorf("failed to save refresh token: %w", err)
	}

	token.ID = id
	return nil
}

// FindByToken retrieves a refresh token by exact match on the token string.
func (r *RefreshTokenRepository) FindByToken(ctx context.Context, token string) (*model.RefreshToken, error) {
	query := `SELECT ` + refreshTokenColumns + ` FROM refresh_tokens WHERE token = ?`

	rt := &model.RefreshToken{}
	err := r.q.QueryRowContext(ctx, rebind(r.dialect, query), token).Scan(
		&rt.ID, &rt.Token, &rt.UserID, &rt.ExpiresAt, &rt.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRefreshTokenNotFound
		}
		return nil, fmt.Errorf("failed to get refresh token: %w", err)
	}

	rt.ExpiresAt = rt.ExpiresAt.UTC()
	rt.CreatedAt = rt.CreatedAt.UTC()
	return rt, nil
}

// CountByUserID returns how many refresh tokens the user currently holds.
func (r *RefreshTokenRepository) CountByUserID(ctx context.Context, userID int64) (int, error) {
	var n int
	query := `SELECT COUNT(*) FROM refresh_tokens WHERE user_id = ?`
	if err := r.q.QueryRowContext(ctx, rebind(r.dialect, query), userID).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count refresh tokens: %w", err)
	}
	return n, nil
}

// DeleteOldestByUserID removes the user's n oldest refresh tokens and returns
// how many were deleted.
func (r *RefreshTokenRepository) DeleteOldestByUserID(ctx context.Context, userID int64, n int) (int64, error) {
	if n <= 0 {
		return 0, nil
	}

	// MySQL rejects LIMIT inside an IN subquery, so select the ids first.
	query := `SELECT id FROM refresh_tokens WHERE user_id = ? ORDER BY created_at ASC, id ASC LIMIT ?`
	rows, err := r.q.QueryContext(ctx, rebind(r.dialect, query), userID, n)
	if err != nil {
		return 0, fmt.Errorf("failed to select oldest tokens: %w", err)
	}

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			_ = rows.Close()
			return 0, fmt.Errorf("failed to scan token id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return 0, fmt.Errorf("error iterating token ids: %w", err)
	}
	_ = rows.Close()

	var deleted int64
	for _, id := range ids {
		result, err := r.q.ExecContext(ctx, rebind(r.dialect, `DELETE FROM refresh_tokens WHERE id = ?`), id)
		if err != nil {
			return deleted, fmt.Errorf("failed to delete refresh token: %w", err)
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return deleted, fmt.Errorf("failed to get affected rows: %w", err)
		}
		deleted += affected
	}

	return deleted, nil
}

// DeleteByToken removes a refresh token. It returns ErrRefreshTokenNotFound when
// no row matched, which lets concurrent consumers of the same token detect that
// another request already used it.
func (r *RefreshTokenRepository) DeleteByToken(ctx context.Context, token string) error {
	result, err := r.q.ExecContext(ctx, rebind(r.dialect, `DELETE FROM refresh_tokens WHERE token = ?`), token)
	if err != nil {
		return fmt.Errorf("failed to delete refresh token: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return ErrRefreshTokenNotFound
	}

	return nil
}

// DeleteByUserID removes all refresh tokens of a user and returns the count.
func (r *RefreshTokenRepository) DeleteByUserID(ctx context.Context, userID int64) (int64, error) {
	result, err := r.q.ExecContext(ctx, rebind(r.dialect, `DELETE FROM refresh_tokens WHERE user_id = ?`), userID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete user tokens: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get affected rows: %w", err)
	}
	return rows, nil
}

// DeleteExpired removes all refresh tokens that expired at or before now.
func (r *RefreshTokenRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	result, err := r.q.ExecContext(ctx, rebind(r.dialect, `DELETE FROM refresh_tokens WHERE expires_at <= ?`), now.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired tokens: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get affected rows: %w", err)
	}
	return rows, nil
}

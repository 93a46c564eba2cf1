package repository

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mailclient/mailclient-auth/internal/model"
)

func createTestToken(t *testing.T, store *Store, userID int64, token string, createdAt, expiresAt time.Time) *model.RefreshToken {
	t.Helper()

	rt := &model.RefreshToken{
		Token:     token,
		UserID:    userID,
		CreatedAt: createdAt,
		ExpiresAt: expiresAt,
	}
	require.NoError(t, store.RefreshTokens.Create(context.Background(), rt))
	return rt
}

// listTokens returns the user's token strings, oldest first.
func listTokens(t *testing.T, store *Store, userID int64) []string {
	t.Helper()

	rows, err := store.db.QueryContext(context.Background(),
		`SELECT token FROM refresh_tokens WHERE user_id = ? ORDER BY created_at ASC, id ASC`, userID)
	require.NoError(t, err)
	defer rows.Close()

	var tokens []string
	for rows.Next() {
		var token string
		require.NoError(t, rows.Scan(&token))
		tokens = append(tokens, token)
	}
	require.NoError(t, rows.Err())
	return tokens
}

func TestRefreshTokenRepository_CreateAndFind(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	user := createTestUser(t, store, "a@x.com")

	now := time.Now().UTC().Truncate(time.Microsecond)
	rt := createTestToken(t, store, user.ID, "token-1", now, now.Add(time.Hour))
	assert.NotZero(t, rt.ID)

	got, err := store.RefreshTokens.FindByToken(ctx, "token-1")
	require.NoError(t, err)
	assert.Equal(t, rt.ID, got.ID)
	assert.Equal(t, user.ID, got.UserID)
	assert.True(t, got.ExpiresAt.Equal(now.Add(time.Hour)), "expires_at = %v", got.ExpiresAt)

	_, err = store.RefreshTokens.FindByToken(ctx, "token-")
	assert.ErrorIs(t, err, ErrRefreshTokenNotFound)
}

func TestRefreshTokenRepository_CreateDuplicate(t *testing.T) {
	store := setupTestStore(t)
	user := createTestUser(t, store, "a@x.com")
	now := time.Now().UTC()

	createTestToken(t, store, user.ID, "dup", now, now.Add(time.Hour))

	err := store.RefreshTokens.Create(context.Background(), &model.RefreshToken{
		Token: "dup", UserID: user.ID, CreatedAt: now, ExpiresAt: now.Add(time.Hour),
	})
	assert.ErrorIs(t, err, ErrDuplicateToken)
}

func TestRefreshTokenRepository_DeleteByToken(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	user := createTestUser(t, store, "a@x.com")
	now := time.Now().UTC()

	createTestToken(t, store, user.ID, "token-1", now, now.Add(time.Hour))

	require.NoError(t, store.RefreshTokens.DeleteByToken(ctx, "token-1"))
	assert.ErrorIs(t, store.RefreshTokens.DeleteByToken(ctx, "token-1"), ErrRefreshTokenNotFound)

	_, err := store.RefreshTokens.FindByToken(ctx, "token-1")
	assert.ErrorIs(t, err, ErrRefreshTokenNotFound)
}

func TestRefreshTokenRepository_DeleteByUserID(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	ann := createTestUser(t, store, "ann@x.com")
	bob := createTestUser(t, store, "bob@x.com")
	now := time.Now().UTC()

	for i := 0; i < 3; i++ {
		createTestToken(t, store, ann.ID, fmt.Sprintf("ann-%d", i), now, now.Add(time.Hour))
	}
	createTestToken(t, store, bob.ID, "bob-0", now, now.Add(time.Hour))

	deleted, err := store.RefreshTokens.DeleteByUserID(ctx, ann.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), deleted)

	count, err := store.RefreshTokens.CountByUserID(ctx, ann.ID)
	require.NoError(t, err)
	assert.Zero(t, count)

	count, err = store.RefreshTokens.CountByUserID(ctx, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestRefreshTokenRepository_DeleteExpired(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	user := createTestUser(t, store, "a@x.com")
	now := time.Now().UTC()

	createTestToken(t, store, user.ID, "expired-1", now.Add(-3*time.Hour), now.Add(-2*time.Hour))
	createTestToken(t, store, user.ID, "expired-2", now.Add(-2*time.Hour), now.Add(-time.Minute))
	createTestToken(t, store, user.ID, "valid", now, now.Add(time.Hour))

	deleted, err := store.RefreshTokens.DeleteExpired(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)

	deleted, err = store.RefreshTokens.DeleteExpired(ctx, now)
	require.NoError(t, err)
	assert.Zero(t, deleted)

	_, err = store.RefreshTokens.FindByToken(ctx, "valid")
	assert.NoError(t, err)
}

func TestRefreshTokenRepository_DeleteOldestByUserID(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	user := createTestUser(t, store, "a@x.com")
	base := time.Now().UTC().Add(-time.Hour)

	for i := 0; i < 5; i++ {
		created := base.Add(time.Duration(i) * time.Minute)
		createTestToken(t, store, user.ID, fmt.Sprintf("token-%d", i), created, created.Add(24*time.Hour))
	}

	deleted, err := store.RefreshTokens.DeleteOldestByUserID(ctx, user.ID, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)

	tokens := listTokens(t, store, user.ID)
	assert.Equal(t, []string{"token-2", "token-3", "token-4"}, tokens)

	deleted, err = store.RefreshTokens.DeleteOldestByUserID(ctx, user.ID, 0)
	require.NoError(t, err)
	assert.Zero(t, deleted)
}

func TestRefreshTokenRepository_CascadeOnUserDelete(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	user := createTestUser(t, store, "a@x.com")
	now := time.Now().UTC()
	createTestToken(t, store, user.ID, "token-1", now, now.Add(time.Hour))

	_, err := store.db.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, user.ID)
	require.NoError(t, err)

	_, err = store.RefreshTokens.FindByToken(ctx, "token-1")
	assert.ErrorIs(t, err, ErrRefreshTokenNotFound)
}

func TestStore_InTx(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	user := createTestUser(t, store, "a@x.com")
	now := time.Now().UTC()

	t.Run("commit", func(t *testing.T) {
		err := store.InTx(ctx, func(tx *Store) error {
			return tx.RefreshTokens.Create(ctx, &model.RefreshToken{
				Token: "committed", UserID: user.ID, CreatedAt: now, ExpiresAt: now.Add(time.Hour),
			})
		})
		require.NoError(t, err)

		_, err = store.RefreshTokens.FindByToken(ctx, "committed")
		assert.NoError(t, err)
	})

	t.Run("rollback", func(t *testing.T) {
		boom := errors.New("boom")
		err := store.InTx(ctx, func(tx *Store) error {
			if err := tx.RefreshTokens.DeleteByToken(ctx, "committed"); err != nil {
				return err
			}
			return boom
		})
		assert.ErrorIs(t, err, boom)

		_, err = store.RefreshTokens.FindByToken(ctx, "committed")
		assert.NoError(t, err, "delete should have been rolled back")
	})

	t.Run("nested reuses transaction", func(t *testing.T) {
		err := store.InTx(ctx, func(tx *Store) error {
			return tx.InTx(ctx, func(inner *Store) error {
				assert.Same(t, tx, inner)
				return nil
			})
		})
		assert.NoError(t, err)
	})
}

package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mailclient/mailclient-auth/internal/model"
)

func createUser(t *testing.T, env *testEnv, email string) *model.User {
	t.Helper()
	return env.register(t, email, "P@ssw0rd", "Test User")
}

func TestRefreshTokenService_CreateEnforcesCap(t *testing.T) {
	env := newTestEnv(t, defaultOptions(), 3)
	user := createUser(t, env, "a@x.com")
	ctx := context.Background()

	base := time.Now().Add(-time.Hour)
	for i := 0; i < 5; i++ {
		created := base.Add(time.Duration(i) * time.Minute)
		env.tokens.now = func() time.Time { return created }
		_, err := env.tokens.Create(ctx, user.ID, fmt.Sprintf("token-%d", i))
		require.NoError(t, err)
	}

	count, err := env.store.RefreshTokens.CountByUserID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	for i, wantErr := range []error{ErrRefreshTokenNotFound, ErrRefreshTokenNotFound, nil, nil, nil} {
		_, err := env.tokens.FindByToken(ctx, fmt.Sprintf("token-%d", i))
		assert.ErrorIs(t, err, wantErr, "token-%d", i)
	}
}

func TestRefreshTokenService_CapIsPerUser(t *testing.T) {
	env := newTestEnv(t, defaultOptions(), 1)
	ann := createUser(t, env, "a@x.com")
	bob := createUser(t, env, "b@x.com")
	ctx := context.Background()

	_, err := env.tokens.Create(ctx, ann.ID, "ann-1")
	require.NoError(t, err)
	_, err = env.tokens.Create(ctx, bob.ID, "bob-1")
	require.NoError(t, err)

	_, err = env.tokens.FindByToken(ctx, "ann-1")
	assert.NoError(t, err)
	_, err = env.tokens.FindByToken(ctx, "bob-1")
	assert.NoError(t, err)
}

func TestRefreshTokenService_Unlimited(t *testing.T) {
	env := newTestEnv(t, defaultOptions(), Unlimited)
	user := createUser(t, env, "a@x.com")
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		_, err := env.tokens.Create(ctx, user.ID, fmt.Sprintf("token-%d", i))
		require.NoError(t, err)
	}

	count, err := env.store.RefreshTokens.CountByUserID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, 10, count)
}

func TestRefreshTokenService_LoginsRespectCap(t *testing.T) {
	env := newTestEnv(t, defaultOptions(), 5)
	user := createUser(t, env, "a@x.com")
	ctx := context.Background()

	var first string
	for i := 0; i < 7; i++ {
		resp, err := env.auth.Login(ctx, model.LoginRequest{Email: "a@x.com", Password: "P@ssw0rd"})
		require.NoError(t, err)
		if i == 0 {
			first = resp.RefreshToken
		}
	}

	count, err := env.store.RefreshTokens.CountByUserID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, count)

	_, err = env.auth.Refresh(ctx, model.RefreshTokenRequest{RefreshToken: first})
	assert.ErrorIs(t, err, ErrRefreshTokenNotFound)
}

func TestRefreshTokenService_CreateSetsExpiry(t *testing.T) {
	env := newTestEnv(t, defaultOptions(), 5)
	user := createUser(t, env, "a@x.com")

	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	env.tokens.now = func() time.Time { return fixed }

	rt, err := env.tokens.Create(context.Background(), user.ID, "token")
	require.NoError(t, err)
	assert.Equal(t, fixed, rt.CreatedAt)
	assert.Equal(t, fixed.Add(testRefreshTTL), rt.ExpiresAt)
}

func TestRefreshTokenService_VerifyExpiration(t *testing.T) {
	env := newTestEnv(t, defaultOptions(), 5)
	user := createUser(t, env, "a@x.com")
	ctx := context.Background()

	rt, err := env.tokens.Create(ctx, user.ID, "token")
	require.NoError(t, err)

	got, err := env.tokens.VerifyExpiration(ctx, rt)
	require.NoError(t, err)
	assert.Same(t, rt, got)

	env.tokens.now = func() time.Time { return rt.ExpiresAt }
	_, err = env.tokens.VerifyExpiration(ctx, rt)
	assert.ErrorIs(t, err, ErrRefreshTokenExpired)

	_, err = env.tokens.FindByToken(ctx, "token")
	assert.ErrorIs(t, err, ErrRefreshTokenNotFound)

	// A second check of the same stale value still reports expiry.
	_, err = env.tokens.VerifyExpiration(ctx, rt)
	assert.ErrorIs(t, err, ErrRefreshTokenExpired)
}

func TestRefreshTokenService_Rotate(t *testing.T) {
	env := newTestEnv(t, defaultOptions(), 1)
	user := createUser(t, env, "a@x.com")
	ctx := context.Background()

	old, err := env.tokens.Create(ctx, user.ID, "old")
	require.NoError(t, err)

	next, err := env.tokens.Rotate(ctx, old, "new")
	require.NoError(t, err)
	assert.Equal(t, "new", next.Token)
	assert.Equal(t, user.ID, next.UserID)

	_, err = env.tokens.FindByToken(ctx, "old")
	assert.ErrorIs(t, err, ErrRefreshTokenNotFound)

	_, err = env.tokens.Rotate(ctx, old, "another")
	assert.ErrorIs(t, err, ErrRefreshTokenNotFound)

	_, err = env.tokens.FindByToken(ctx, "another")
	assert.ErrorIs(t, err, ErrRefreshTokenNotFound, "failed rotation must not insert")
}

func TestRefreshTokenService_RevokeAllForUser(t *testing.T) {
	env := newTestEnv(t, defaultOptions(), Unlimited)
	user := createUser(t, env, "a@x.com")
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := env.tokens.Create(ctx, user.ID, fmt.Sprintf("token-%d", i))
		require.NoError(t, err)
	}

	n, err := env.tokens.RevokeAllForUser(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	n, err = env.tokens.RevokeAllForUser(ctx, user.ID)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestRefreshTokenService_DeleteExpiredTokens(t *testing.T) {
	env := newTestEnv(t, defaultOptions(), Unlimited)
	user := createUser(t, env, "a@x.com")
	ctx := context.Background()

	env.tokens.now = func() time.Time { return time.Now().Add(-testRefreshTTL - time.Minute) }
	_, err := env.tokens.Create(ctx, user.ID, "stale")
	require.NoError(t, err)
	env.tokens.now = time.Now

	_, err = env.tokens.Create(ctx, user.ID, "fresh")
	require.NoError(t, err)

	n, err := env.tokens.DeleteExpiredTokens(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = env.tokens.DeleteExpiredTokens(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	_, err = env.tokens.FindByToken(ctx, "fresh")
	assert.NoError(t, err)
}

package service

import (
	"context"
	"testing"
	"time"

	"voucher-queue/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestAuth(t *testing.T) *AuthService {
	t.Helper()
	return NewAuthService(repository.NewMemoryUsersRepo(), "test-secret", time.Hour, zap.NewNop())
}

func TestLoginAndVerifyToken(t *testing.T) {
	auth := newTestAuth(t)
	ctx := context.Background()

	require.NoError(t, auth.EnsureUser(ctx, "operator", "s3cret", "Operator"))

	token, err := auth.Login(ctx, "operator", "s3cret")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := auth.VerifyToken(token)
	require.NoError(t, err)
	assert.Equal(t, "operator", claims.Username)
	assert.Equal(t, "Operator", claims.Role)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	auth := newTestAuth(t)
	ctx := context.Background()

	require.NoError(t, auth.EnsureUser(ctx, "operator", "s3cret", "Operator"))

	_, err := auth.Login(ctx, "operator", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = auth.Login(ctx, "nobody", "s3cret")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestVerifyTokenRejectsForeignSecret(t *testing.T) {
	auth := newTestAuth(t)
	ctx := context.Background()
	require.NoError(t, auth.EnsureUser(ctx, "operator", "s3cret", "Operator"))

	token, err := auth.Login(ctx, "operator", "s3cret")
	require.NoError(t, err)

	other := NewAuthService(repository.NewMemoryUsersRepo(), "different-secret", time.Hour, zap.NewNop())
	_, err = other.VerifyToken(token)
	assert.Error(t, err)
}

func TestEnsureUserIsIdempotent(t *testing.T) {
	auth := newTestAuth(t)
	ctx := context.Background()

	require.NoError(t, auth.EnsureUser(ctx, "admin", "first", "Admin"))
	require.NoError(t, auth.EnsureUser(ctx, "admin", "second", "Admin"))

	// The upsert keeps the account reachable with the latest password.
	_, err := auth.Login(ctx, "admin", "second")
	assert.NoError(t, err)
}

package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carboncoin/carboncoin-api/internal/config"
	"github.com/carboncoin/carboncoin-api/internal/domain"
)

func testAuthConfig() config.AuthConfig {
	return config.AuthConfig{
		JWTSecret:                   "test-secret-key-that-is-long-enough!",
		TokenLifetimeMinutes:        60,
		RefreshTokenLifetimeMinutes: 10080,
	}
}

func newTestService(t *testing.T) *hmacJWTService {
	t.Helper()
	svc, err := NewJWTService(testAuthConfig())
	require.NoError(t, err)
	return svc.(*hmacJWTService)
}

func testUser(t *testing.T) *domain.User {
	t.Helper()
	user, err := domain.NewUser("trader1", "password123", domain.RoleTrader, "")
	require.NoError(t, err)
	return user
}

func TestNewJWTServiceRejectsShortSecret(t *testing.T) {
	cfg := testAuthConfig()
	cfg.JWTSecret = "short"

	_, err := NewJWTService(cfg)
	assert.Error(t, err)
}

func TestAccessTokenRoundTrip(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)
	user := testUser(t)

	token, err := svc.GenerateToken(ctx, user)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := svc.ValidateToken(ctx, token)
	require.NoError(t, err)

	assert.Equal(t, user.ID, claims.UserID)
	assert.Equal(t, user.Username, claims.Username)
	assert.Equal(t, domain.RoleTrader, claims.Role)
	assert.Equal(t, "access", claims.TokenType)
	assert.Equal(t, user.ID.String(), claims.Subject)
	assert.NotEmpty(t, claims.ID)
}

func TestRefreshTokenRoundTrip(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)
	user := testUser(t)

	token, err := svc.GenerateRefreshToken(ctx, user)
	require.NoError(t, err)

	claims, err := svc.ValidateRefreshToken(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, "refresh", claims.TokenType)
	assert.Equal(t, user.ID, claims.UserID)
}

func TestTokenTypeEnforcement(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)
	user := testUser(t)

	access, err := svc.GenerateToken(ctx, user)
	require.NoError(t, err)
	refresh, err := svc.GenerateRefreshToken(ctx, user)
	require.NoError(t, err)

	_, err = svc.ValidateToken(ctx, refresh)
	assert.ErrorIs(t, err, ErrWrongTokenType)

	_, err = svc.ValidateRefreshToken(ctx, access)
	assert.ErrorIs(t, err, ErrWrongTokenType)
}

func TestExpiredToken(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)
	user := testUser(t)

	issued := time.Now().Add(-24 * time.Hour)
	svc.timeFunc = func() time.Time { return issued }

	access, err := svc.GenerateToken(ctx, user)
	require.NoError(t, err)
	refresh, err := svc.GenerateRefreshToken(ctx, user)
	require.NoError(t, err)

	svc.timeFunc = time.Now

	_, err = svc.ValidateToken(ctx, access)
	assert.ErrorIs(t, err, ErrExpiredToken)

	// Refresh lifetime is a week, so it should still validate.
	_, err = svc.ValidateRefreshToken(ctx, refresh)
	assert.NoError(t, err)
}

func TestExpiredRefreshToken(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)
	user := testUser(t)

	svc.timeFunc = func() time.Time { return time.Now().Add(-30 * 24 * time.Hour) }
	refresh, err := svc.GenerateRefreshToken(ctx, user)
	require.NoError(t, err)

	svc.timeFunc = time.Now
	_, err = svc.ValidateRefreshToken(ctx, refresh)
	assert.ErrorIs(t, err, ErrExpiredRefreshToken)
}

func TestClockSkewTolerance(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)
	user := testUser(t)

	// Expired one minute ago, inside the two minute skew window.
	svc.timeFunc = func() time.Time { return time.Now().Add(-61 * time.Minute) }
	access, err := svc.GenerateToken(ctx, user)
	require.NoError(t, err)

	svc.timeFunc = time.Now
	_, err = svc.ValidateToken(ctx, access)
	assert.NoError(t, err)
}

func TestTamperedToken(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)
	user := testUser(t)

	token, err := svc.GenerateToken(ctx, user)
	require.NoError(t, err)

	_, err = svc.ValidateToken(ctx, token+"x")
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = svc.ValidateToken(ctx, "not-a-jwt")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestDifferentSigningKeys(t *testing.T) {
	ctx := context.Background()
	user := testUser(t)

	svcA := newTestService(t)

	cfgB := testAuthConfig()
	cfgB.JWTSecret = "another-secret-key-that-is-long-enough!"
	svcBIface, err := NewJWTService(cfgB)
	require.NoError(t, err)

	token, err := svcA.GenerateToken(ctx, user)
	require.NoError(t, err)

	_, err = svcBIface.ValidateToken(ctx, token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestBcryptVerifier(t *testing.T) {
	v := NewBcryptVerifier(4)

	hashed, err := v.Hash("correct horse battery staple")
	require.NoError(t, err)
	require.NotEqual(t, "correct horse battery staple", hashed)

	assert.NoError(t, v.Compare(hashed, "correct horse battery staple"))
	assert.Error(t, v.Compare(hashed, "wrong password"))
}

package service_test

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carboncoin/carboncoin-api/internal/config"
	"github.com/carboncoin/carboncoin-api/internal/domain"
	"github.com/carboncoin/carboncoin-api/internal/service"
	"github.com/carboncoin/carboncoin-api/internal/service/auth"
	"github.com/carboncoin/carboncoin-api/internal/store"
)

func newUserService(t *testing.T) (*service.UserService, *memUserStore, *memWalletStore) {
	t.Helper()

	jwtSvc, err := auth.NewJWTService(config.AuthConfig{
		JWTSecret:                   "test-secret-key-that-is-long-enough!",
		TokenLifetimeMinutes:        60,
		RefreshTokenLifetimeMinutes: 10080,
	})
	require.NoError(t, err)

	users := newMemUserStore()
	wallets := newMemWalletStore()
	hasher := auth.NewBcryptVerifier(4)

	svc := service.NewUserService(users, wallets, hasher, hasher, jwtSvc, slog.Default())
	return svc, users, wallets
}

func TestRegisterProvisionsWallet(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, _, wallets := newUserService(t)

	user, err := svc.Register(ctx, "trader1", "trader123")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleTrader, user.Role)
	assert.Empty(t, user.Password)
	assert.NotEmpty(t, user.HashedPassword)

	wallet, err := wallets.GetByUserID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, service.InitialWalletBalance, wallet.USDBalance)
}

func TestRegisterDuplicateUsername(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, _, _ := newUserService(t)

	_, err := svc.Register(ctx, "trader1", "trader123")
	require.NoError(t, err)

	_, err = svc.Register(ctx, "trader1", "other-password")
	assert.ErrorIs(t, err, store.ErrUsernameExists)
}

func TestRegisterValidation(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, _, _ := newUserService(t)

	_, err := svc.Register(ctx, "trader1", "short")
	assert.ErrorIs(t, err, domain.ErrPasswordTooShort)

	_, err = svc.Register(ctx, "", "trader123")
	assert.ErrorIs(t, err, domain.ErrEmptyUsername)
}

func TestCreateCompanyOwnerSkipsWallet(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, _, wallets := newUserService(t)

	user, err := svc.CreateWithRole(ctx, "owner_gti", "owner123", domain.RoleCompanyOwner, "GTI")
	require.NoError(t, err)
	assert.Equal(t, "GTI", user.CompanySymbol)

	_, err = wallets.GetByUserID(ctx, user.ID)
	assert.ErrorIs(t, err, store.ErrWalletNotFound)
}

func TestLogin(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, _, _ := newUserService(t)

	registered, err := svc.Register(ctx, "trader1", "trader123")
	require.NoError(t, err)

	t.Run("valid credentials yield a token pair", func(t *testing.T) {
		result, err := svc.Login(ctx, "trader1", "trader123")
		require.NoError(t, err)
		assert.Equal(t, registered.ID, result.User.ID)
		assert.NotEmpty(t, result.AccessToken)
		assert.NotEmpty(t, result.RefreshToken)
		assert.NotEqual(t, result.AccessToken, result.RefreshToken)
	})

	t.Run("wrong password", func(t *testing.T) {
		_, err := svc.Login(ctx, "trader1", "wrong-password")
		assert.ErrorIs(t, err, service.ErrInvalidCredentials)
	})

	t.Run("unknown user", func(t *testing.T) {
		_, err := svc.Login(ctx, "ghost", "trader123")
		assert.ErrorIs(t, err, service.ErrInvalidCredentials)
	})
}

func TestLoginBackfillsMissingWallet(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, users, wallets := newUserService(t)

	user, err := svc.Register(ctx, "trader1", "trader123")
	require.NoError(t, err)

	// Simulate an account that predates wallet provisioning.
	delete(wallets.Wallets, user.ID)
	_, err = users.GetByID(ctx, user.ID)
	require.NoError(t, err)

	_, err = svc.Login(ctx, "trader1", "trader123")
	require.NoError(t, err)

	wallet, err := wallets.GetByUserID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, service.InitialWalletBalance, wallet.USDBalance)
}

func TestRefresh(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, _, _ := newUserService(t)

	_, err := svc.Register(ctx, "trader1", "trader123")
	require.NoError(t, err)

	login, err := svc.Login(ctx, "trader1", "trader123")
	require.NoError(t, err)

	t.Run("refresh token yields a new pair", func(t *testing.T) {
		result, err := svc.Refresh(ctx, login.RefreshToken)
		require.NoError(t, err)
		assert.Equal(t, login.User.ID, result.User.ID)
		assert.NotEmpty(t, result.AccessToken)
	})

	t.Run("access token is rejected", func(t *testing.T) {
		_, err := svc.Refresh(ctx, login.AccessToken)
		assert.ErrorIs(t, err, auth.ErrWrongTokenType)
	})

	t.Run("garbage is rejected", func(t *testing.T) {
		_, err := svc.Refresh(ctx, "not-a-token")
		assert.ErrorIs(t, err, auth.ErrInvalidRefreshToken)
	})
}

func TestEnsureAdmin(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, users, _ := newUserService(t)

	require.NoError(t, svc.EnsureAdmin(ctx, "admin-password"))

	admin, err := users.GetByUsername(ctx, "admin")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAdmin, admin.Role)

	// Idempotent on restart.
	require.NoError(t, svc.EnsureAdmin(ctx, "different-password"))
	again, err := users.GetByUsername(ctx, "admin")
	require.NoError(t, err)
	assert.Equal(t, admin.ID, again.ID)
}

// Package service implements the platform's use cases on top of the domain
// model, the ledger and the persistence layer.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/carboncoin/carboncoin-api/internal/domain"
	"github.com/carboncoin/carboncoin-api/internal/platform/logger"
	"github.com/carboncoin/carboncoin-api/internal/service/auth"
	"github.com/carboncoin/carboncoin-api/internal/store"
)

// InitialWalletBalance is the demo USD balance every trader wallet starts with.
const InitialWalletBalance = 10000.0

// adminUsername is the bootstrapped administrator account.
const adminUsername = "admin"

// LoginResult carries the authenticated user and a fresh token pair.
type LoginResult struct {
	User         *domain.User
	AccessToken  string
	RefreshToken string
}

// UserService handles registration, login and token refresh.
type UserService struct {
	users    store.UserStore
	wallets  store.WalletStore
	hasher   auth.PasswordHasher
	verifier auth.PasswordVerifier
	jwt      auth.JWTService
	logger   *slog.Logger
}

// NewUserService creates a UserService.
func NewUserService(
	users store.UserStore,
	wallets store.WalletStore,
	hasher auth.PasswordHasher,
	verifier auth.PasswordVerifier,
	jwt auth.JWTService,
	log *slog.Logger,
) *UserService {
	if log == nil {
		log = slog.Default()
	}
	return &UserService{
		users:    users,
		wallets:  wallets,
		hasher:   hasher,
		verifier: verifier,
		jwt:      jwt,
		logger:   log.With(slog.String("component", "user_service")),
	}
}

// Register creates a trader account with a funded wallet.
func (s *UserService) Register(ctx context.Context, username, password string) (*domain.User, error) {
	return s.CreateWithRole(ctx, username, password, domain.RoleTrader, "")
}

// CreateWithRole creates an account with the given role. Traders are
// provisioned a wallet funded with the demo balance.
func (s *UserService) CreateWithRole(
	ctx context.Context,
	username, password string,
	role domain.Role,
	companySymbol string,
) (*domain.User, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	user, err := domain.NewUser(username, password, role, companySymbol)
	if err != nil {
		return nil, err
	}

	hashed, err := s.hasher.Hash(user.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	user.HashedPassword = hashed
	user.Password = ""

	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	if role == domain.RoleTrader {
		wallet := domain.NewWallet(user.ID, user.Username, InitialWalletBalance)
		if err := s.wallets.Create(ctx, wallet); err != nil {
			return nil, fmt.Errorf("provision wallet: %w", err)
		}
	}

	log.Info("user registered",
		slog.String("user_id", user.ID.String()),
		slog.String("username", user.Username),
		slog.String("role", string(role)))

	return user, nil
}

// Login authenticates a user and issues a token pair. Traders without a
// wallet get one provisioned, covering accounts created before wallets
// existed.
func (s *UserService) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := s.verifier.Compare(user.HashedPassword, password); err != nil {
		log.Warn("failed login attempt", slog.String("username", username))
		return nil, ErrInvalidCredentials
	}

	if user.Role == domain.RoleTrader {
		if err := s.ensureWallet(ctx, user); err != nil {
			return nil, err
		}
	}

	return s.issueTokens(ctx, user)
}

// Refresh validates a refresh token and issues a new token pair.
func (s *UserService) Refresh(ctx context.Context, refreshToken string) (*LoginResult, error) {
	claims, err := s.jwt.ValidateRefreshToken(ctx, refreshToken)
	if err != nil {
		return nil, err
	}

	user, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			return nil, auth.ErrInvalidRefreshToken
		}
		return nil, err
	}

	return s.issueTokens(ctx, user)
}

// GetByID retrieves a user.
func (s *UserService) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	return s.users.GetByID(ctx, id)
}

// EnsureAdmin creates the administrator account if it does not exist yet.
func (s *UserService) EnsureAdmin(ctx context.Context, password string) error {
	_, err := s.users.GetByUsername(ctx, adminUsername)
	if err == nil {
		return nil
	}
	if !errors.Is(err, store.ErrUserNotFound) {
		return err
	}

	_, err = s.CreateWithRole(ctx, adminUsername, password, domain.RoleAdmin, "")
	if errors.Is(err, store.ErrUsernameExists) {
		// Lost a race with another instance; the account exists now.
		return nil
	}
	return err
}

func (s *UserService) ensureWallet(ctx context.Context, user *domain.User) error {
	_, err := s.wallets.GetByUserID(ctx, user.ID)
	if err == nil {
		return nil
	}
	if !errors.Is(err, store.ErrWalletNotFound) {
		return err
	}

	wallet := domain.NewWallet(user.ID, user.Username, InitialWalletBalance)
	return s.wallets.Create(ctx, wallet)
}

func (s *UserService) issueTokens(ctx context.Context, user *domain.User) (*LoginResult, error) {
	access, err := s.jwt.GenerateToken(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("issue access token: %w", err)
	}
	refresh, err := s.jwt.GenerateRefreshToken(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("issue refresh token: %w", err)
	}

	return &LoginResult{
		User:         user,
		AccessToken:  access,
		RefreshToken: refresh,
	}, nil
}

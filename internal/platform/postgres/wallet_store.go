package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/carboncoin/carboncoin-api/internal/domain"
	"github.com/carboncoin/carboncoin-api/internal/platform/logger"
	"github.com/carboncoin/carboncoin-api/internal/store"
)

// PostgresWalletStore implements the store.WalletStore interface
// using a PostgreSQL database as the storage backend. Holdings are stored as
// a JSONB map of token symbol to amount.
type PostgresWalletStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresWalletStore creates a new PostgreSQL implementation of the
// WalletStore interface.
func NewPostgresWalletStore(db store.DBTX, logger *slog.Logger) *PostgresWalletStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresWalletStore{
		db:     db,
		logger: logger.With(slog.String("component", "wallet_store")),
	}
}

// Ensure PostgresWalletStore implements store.WalletStore interface
var _ store.WalletStore = (*PostgresWalletStore)(nil)

// WithTx returns a WalletStore bound to the given transaction.
func (s *PostgresWalletStore) WithTx(tx *sql.Tx) store.WalletStore {
	return &PostgresWalletStore{db: tx, logger: s.logger}
}

// Create implements store.WalletStore.Create
func (s *PostgresWalletStore) Create(ctx context.Context, wallet *domain.Wallet) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	holdings, err := json.Marshal(wallet.Holdings)
	if err != nil {
		return fmt.Errorf("encode holdings: %w", err)
	}

	query := `
		INSERT INTO wallets (address, user_id, username, usd_balance, holdings, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err = s.db.ExecContext(
		ctx,
		query,
		wallet.Address,
		wallet.UserID,
		wallet.Username,
		wallet.USDBalance,
		holdings,
		wallet.CreatedAt,
	)
	if err != nil {
		if IsForeignKeyViolation(err) {
			return fmt.Errorf("%w: user with ID %s not found",
				store.ErrInvalidEntity, wallet.UserID)
		}
		log.Error("failed to create wallet",
			slog.String("error", err.Error()),
			slog.String("wallet_address", wallet.Address.String()))
		return MapError(err)
	}

	log.Info("wallet created",
		slog.String("wallet_address", wallet.Address.String()),
		slog.String("user_id", wallet.UserID.String()))
	return nil
}

// GetByUserID implements store.WalletStore.GetByUserID
func (s *PostgresWalletStore) GetByUserID(ctx context.Context, userID uuid.UUID) (*domain.Wallet, error) {
	return s.getByUserID(ctx, userID, false)
}

// GetByUserIDForUpdate implements store.WalletStore.GetByUserIDForUpdate
func (s *PostgresWalletStore) GetByUserIDForUpdate(ctx context.Context, userID uuid.UUID) (*domain.Wallet, error) {
	return s.getByUserID(ctx, userID, true)
}

func (s *PostgresWalletStore) getByUserID(ctx context.Context, userID uuid.UUID, forUpdate bool) (*domain.Wallet, error) {
	query := `
		SELECT address, user_id, username, usd_balance, holdings, created_at
		FROM wallets
		WHERE user_id = $1
	`
	if forUpdate {
		query += ` FOR UPDATE`
	}

	var (
		wallet   domain.Wallet
		holdings []byte
	)
	err := s.db.QueryRowContext(ctx, query, userID).Scan(
		&wallet.Address,
		&wallet.UserID,
		&wallet.Username,
		&wallet.USDBalance,
		&holdings,
		&wallet.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrWalletNotFound
		}
		return nil, MapError(err)
	}

	wallet.Holdings = make(map[string]float64)
	if len(holdings) > 0 {
		if err := json.Unmarshal(holdings, &wallet.Holdings); err != nil {
			return nil, fmt.Errorf("decode holdings for wallet %s: %w", wallet.Address, err)
		}
	}

	return &wallet, nil
}

// Update implements store.WalletStore.Update
func (s *PostgresWalletStore) Update(ctx context.Context, wallet *domain.Wallet) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	holdings, err := json.Marshal(wallet.Holdings)
	if err != nil {
		return fmt.Errorf("encode holdings: %w", err)
	}

	query := `
		UPDATE wallets
		SET usd_balance = $2, holdings = $3
		WHERE address = $1
	`
	result, err := s.db.ExecContext(ctx, query, wallet.Address, wallet.USDBalance, holdings)
	if err != nil {
		log.Error("failed to update wallet",
			slog.String("error", err.Error()),
			slog.String("wallet_address", wallet.Address.String()))
		return MapError(err)
	}

	return CheckRowsAffected(result, store.ErrWalletNotFound)
}

// Count implements store.WalletStore.Count
func (s *PostgresWalletStore) Count(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM wallets`).Scan(&count); err != nil {
		return 0, MapError(err)
	}
	return count, nil
}

package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/carboncoin/carboncoin-api/internal/domain"
)

// WalletStore defines wallet persistence, including token holdings.
type WalletStore interface {
	// Create saves a new wallet with its holdings.
	Create(ctx context.Context, wallet *domain.Wallet) error

	// GetByUserID retrieves the wallet owned by a user.
	// Returns ErrWalletNotFound if the user has no wallet.
	GetByUserID(ctx context.Context, userID uuid.UUID) (*domain.Wallet, error)

	// GetByUserIDForUpdate retrieves the wallet and locks its row until the
	// surrounding transaction ends, serializing concurrent trades on the
	// same wallet.
	GetByUserIDForUpdate(ctx context.Context, userID uuid.UUID) (*domain.Wallet, error)

	// Update persists the wallet's USD balance and holdings.
	// Returns ErrWalletNotFound if the wallet does not exist.
	Update(ctx context.Context, wallet *domain.Wallet) error

	// Count returns the number of wallets.
	Count(ctx context.Context) (int, error)

	// WithTx returns a WalletStore bound to the given transaction.
	WithTx(tx *sql.Tx) WalletStore
}

// TradeStore records executed trades for audit and wallet history.
type TradeStore interface {
	// Create appends an executed trade for a wallet.
	Create(ctx context.Context, walletAddress uuid.UUID, trade *domain.Trade) error

	// ListByWallet returns up to limit recent trades for a wallet, newest
	// first.
	ListByWallet(ctx context.Context, walletAddress uuid.UUID, limit int) ([]domain.Trade, error)

	// WithTx returns a TradeStore bound to the given transaction.
	WithTx(tx *sql.Tx) TradeStore
}

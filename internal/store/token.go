package store

import (
	"context"
	"database/sql"

	"github.com/carboncoin/carboncoin-api/internal/domain"
)

// TokenStore defines company-token persistence, including the token's
// price, emission and candle histories.
type TokenStore interface {
	// Create saves a new token.
	// Returns ErrSymbolExists if the symbol is taken.
	Create(ctx context.Context, token *domain.CompanyToken) error

	// GetBySymbol retrieves a token with its histories.
	// Returns ErrTokenNotFound if the token does not exist.
	GetBySymbol(ctx context.Context, symbol string) (*domain.CompanyToken, error)

	// GetBySymbolForUpdate retrieves a token and locks its row until the
	// surrounding transaction ends.
	GetBySymbolForUpdate(ctx context.Context, symbol string) (*domain.CompanyToken, error)

	// List retrieves all tokens with their histories.
	List(ctx context.Context) ([]*domain.CompanyToken, error)

	// Update persists the token's mutable state (price, emissions, supply,
	// volume and histories).
	// Returns ErrTokenNotFound if the token does not exist.
	Update(ctx context.Context, token *domain.CompanyToken) error

	// Delete removes a token by symbol.
	// Returns ErrTokenNotFound if the token does not exist.
	Delete(ctx context.Context, symbol string) error

	// Count returns the number of registered tokens.
	Count(ctx context.Context) (int, error)

	// WithTx returns a TokenStore bound to the given transaction.
	WithTx(tx *sql.Tx) TokenStore
}

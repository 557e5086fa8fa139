package store

import (
	"context"

	"github.com/carboncoin/carboncoin-api/internal/domain"
)

// BlockStore persists mined blocks append-only so a restart can replay the
// chain into the in-process ledger.
type BlockStore interface {
	// Append saves a newly mined block.
	Append(ctx context.Context, block *domain.Block) error

	// ListAll returns every persisted block ordered by index.
	ListAll(ctx context.Context) ([]*domain.Block, error)
}

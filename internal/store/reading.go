package store

import (
	"context"

	"github.com/carboncoin/carboncoin-api/internal/domain"
)

// ReadingStore persists accepted emission readings for audit.
type ReadingStore interface {
	// Create appends an accepted reading.
	Create(ctx context.Context, reading *domain.Reading) error

	// ListByCompany returns up to limit recent readings for a company,
	// oldest first.
	ListByCompany(ctx context.Context, companySymbol string, limit int) ([]domain.Reading, error)
}

package store

import (
	"context"

	"github.com/google/uuid"

	"github.com/carboncoin/carboncoin-api/internal/domain"
)

// ApplicationStore persists company verification applications.
type ApplicationStore interface {
	// Create saves a new application.
	Create(ctx context.Context, app *domain.Application) error

	// GetByID retrieves an application.
	// Returns ErrApplicationNotFound if it does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Application, error)

	// Update persists the application's status, score and decision fields.
	// Returns ErrApplicationNotFound if it does not exist.
	Update(ctx context.Context, app *domain.Application) error

	// ListByStatus returns applications in the given status, oldest first.
	ListByStatus(ctx context.Context, status domain.ApplicationStatus) ([]*domain.Application, error)
}

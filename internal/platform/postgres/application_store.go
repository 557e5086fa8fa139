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

// PostgresApplicationStore implements the store.ApplicationStore interface
// using a PostgreSQL database as the storage backend. Document keys are
// stored as a JSONB array.
type PostgresApplicationStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresApplicationStore creates a new PostgreSQL implementation of the
// ApplicationStore interface.
func NewPostgresApplicationStore(db store.DBTX, logger *slog.Logger) *PostgresApplicationStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresApplicationStore{
		db:     db,
		logger: logger.With(slog.String("component", "application_store")),
	}
}

// Ensure PostgresApplicationStore implements store.ApplicationStore interface
var _ store.ApplicationStore = (*PostgresApplicationStore)(nil)

// Create implements store.ApplicationStore.Create
func (s *PostgresApplicationStore) Create(ctx context.Context, app *domain.Application) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := app.Validate(); err != nil {
		return err
	}

	documents, err := json.Marshal(app.Documents)
	if err != nil {
		return fmt.Errorf("encode documents: %w", err)
	}

	query := `
		INSERT INTO applications (id, company_name, industry_type, company_scale,
			registration_number, emission_baseline, documents, status, score,
			rejection_reason, submitted_at, decided_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	_, err = s.db.ExecContext(
		ctx,
		query,
		app.ID,
		app.CompanyName,
		app.IndustryType,
		app.CompanyScale,
		nullString(app.RegistrationNumber),
		app.EmissionBaseline,
		documents,
		app.Status,
		app.Score,
		nullString(app.RejectionReason),
		app.SubmittedAt,
		app.DecidedAt,
	)
	if err != nil {
		log.Error("failed to create application",
			slog.String("error", err.Error()),
			slog.String("application_id", app.ID.String()))
		return MapError(err)
	}

	log.Info("application created",
		slog.String("application_id", app.ID.String()),
		slog.String("company_name", app.CompanyName))
	return nil
}

// GetByID implements store.ApplicationStore.GetByID
func (s *PostgresApplicationStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Application, error) {
	query := applicationSelect + ` WHERE id = $1`
	app, err := s.scanApplication(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, store.ErrApplicationNotFound
		}
		return nil, err
	}
	return app, nil
}

// Update implements store.ApplicationStore.Update
func (s *PostgresApplicationStore) Update(ctx context.Context, app *domain.Application) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	documents, err := json.Marshal(app.Documents)
	if err != nil {
		return fmt.Errorf("encode documents: %w", err)
	}

	query := `
		UPDATE applications
		SET documents = $2, status = $3, score = $4, rejection_reason = $5, decided_at = $6
		WHERE id = $1
	`
	result, err := s.db.ExecContext(
		ctx,
		query,
		app.ID,
		documents,
		app.Status,
		app.Score,
		nullString(app.RejectionReason),
		app.DecidedAt,
	)
	if err != nil {
		log.Error("failed to update application",
			slog.String("error", err.Error()),
			slog.String("application_id", app.ID.String()))
		return MapError(err)
	}

	return CheckRowsAffected(result, store.ErrApplicationNotFound)
}

// ListByStatus implements store.ApplicationStore.ListByStatus
func (s *PostgresApplicationStore) ListByStatus(ctx context.Context, status domain.ApplicationStatus) ([]*domain.Application, error) {
	query := applicationSelect + ` WHERE status = $1 ORDER BY submitted_at ASC`

	rows, err := s.db.QueryContext(ctx, query, status)
	if err != nil {
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	var apps []*domain.Application
	for rows.Next() {
		app, err := s.scanApplication(rows)
		if err != nil {
			return nil, err
		}
		apps = append(apps, app)
	}
	if err := rows.Err(); err != nil {
		return nil, MapError(err)
	}

	return apps, nil
}

const applicationSelect = `
	SELECT id, company_name, industry_type, company_scale, registration_number,
		emission_baseline, documents, status, score, rejection_reason,
		submitted_at, decided_at
	FROM applications
`

func (s *PostgresApplicationStore) scanApplication(row rowScanner) (*domain.Application, error) {
	var (
		app                domain.Application
		registrationNumber sql.NullString
		documents          []byte
		status             string
		rejectionReason    sql.NullString
		decidedAt          sql.NullTime
	)

	err := row.Scan(
		&app.ID,
		&app.CompanyName,
		&app.IndustryType,
		&app.CompanyScale,
		&registrationNumber,
		&app.EmissionBaseline,
		&documents,
		&status,
		&app.Score,
		&rejectionReason,
		&app.SubmittedAt,
		&decidedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, MapError(err)
	}

	app.RegistrationNumber = registrationNumber.String
	app.Status = domain.ApplicationStatus(status)
	app.RejectionReason = rejectionReason.String
	if decidedAt.Valid {
		t := decidedAt.Time
		app.DecidedAt = &t
	}
	if len(documents) > 0 {
		if err := json.Unmarshal(documents, &app.Documents); err != nil {
			return nil, fmt.Errorf("decode documents for application %s: %w", app.ID, err)
		}
	}

	return &app, nil
}

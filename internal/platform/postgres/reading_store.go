package postgres

import (
	"context"
	"log/slog"

	"github.com/carboncoin/carboncoin-api/internal/domain"
	"github.com/carboncoin/carboncoin-api/internal/platform/logger"
	"github.com/carboncoin/carboncoin-api/internal/store"
)

// defaultReadingLimit bounds reading history queries when the caller passes
// no explicit limit.
const defaultReadingLimit = 100

// PostgresReadingStore implements the store.ReadingStore interface
// using a PostgreSQL database as the storage backend.
type PostgresReadingStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresReadingStore creates a new PostgreSQL implementation of the
// ReadingStore interface.
func NewPostgresReadingStore(db store.DBTX, logger *slog.Logger) *PostgresReadingStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresReadingStore{
		db:     db,
		logger: logger.With(slog.String("component", "reading_store")),
	}
}

// Ensure PostgresReadingStore implements store.ReadingStore interface
var _ store.ReadingStore = (*PostgresReadingStore)(nil)

// Create implements store.ReadingStore.Create
func (s *PostgresReadingStore) Create(ctx context.Context, reading *domain.Reading) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		INSERT INTO emission_readings (device_id, company_symbol, emission_value, validated, recorded_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := s.db.ExecContext(
		ctx,
		query,
		reading.DeviceID,
		reading.CompanySymbol,
		reading.Emissions,
		reading.Validated,
		reading.Timestamp,
	)
	if err != nil {
		log.Error("failed to record emission reading",
			slog.String("error", err.Error()),
			slog.String("device_id", reading.DeviceID),
			slog.String("company_symbol", reading.CompanySymbol))
		return MapError(err)
	}

	return nil
}

// ListByCompany implements store.ReadingStore.ListByCompany
func (s *PostgresReadingStore) ListByCompany(ctx context.Context, companySymbol string, limit int) ([]domain.Reading, error) {
	if limit <= 0 {
		limit = defaultReadingLimit
	}

	// Fetch the newest rows, then return them oldest first.
	query := `
		SELECT device_id, company_symbol, emission_value, validated, recorded_at
		FROM (
			SELECT id, device_id, company_symbol, emission_value, validated, recorded_at
			FROM emission_readings
			WHERE company_symbol = $1
			ORDER BY recorded_at DESC, id DESC
			LIMIT $2
		) recent
		ORDER BY recorded_at ASC, id ASC
	`
	rows, err := s.db.QueryContext(ctx, query, companySymbol, limit)
	if err != nil {
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	var readings []domain.Reading
	for rows.Next() {
		var reading domain.Reading
		err := rows.Scan(
			&reading.DeviceID,
			&reading.CompanySymbol,
			&reading.Emissions,
			&reading.Validated,
			&reading.Timestamp,
		)
		if err != nil {
			return nil, MapError(err)
		}
		readings = append(readings, reading)
	}
	if err := rows.Err(); err != nil {
		return nil, MapError(err)
	}

	return readings, nil
}

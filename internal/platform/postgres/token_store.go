package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/carboncoin/carboncoin-api/internal/domain"
	"github.com/carboncoin/carboncoin-api/internal/platform/logger"
	"github.com/carboncoin/carboncoin-api/internal/store"
)

// PostgresTokenStore implements the store.TokenStore interface
// using a PostgreSQL database as the storage backend. The price, emission
// and candle histories are bounded series and stored as JSONB alongside the
// token row.
type PostgresTokenStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresTokenStore creates a new PostgreSQL implementation of the
// TokenStore interface.
func NewPostgresTokenStore(db store.DBTX, logger *slog.Logger) *PostgresTokenStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresTokenStore{
		db:     db,
		logger: logger.With(slog.String("component", "token_store")),
	}
}

// Ensure PostgresTokenStore implements store.TokenStore interface
var _ store.TokenStore = (*PostgresTokenStore)(nil)

// WithTx returns a TokenStore bound to the given transaction.
func (s *PostgresTokenStore) WithTx(tx *sql.Tx) store.TokenStore {
	return &PostgresTokenStore{db: tx, logger: s.logger}
}

const tokenColumns = `symbol, id, company_name, total_supply, circulating_supply,
	emission_baseline, current_emissions, industry_type, company_scale,
	price, volume_24h, is_verified, owner_address,
	price_history, emission_history, candles, created_at`

// Create implements store.TokenStore.Create
// Returns store.ErrSymbolExists on a symbol collision.
func (s *PostgresTokenStore) Create(ctx context.Context, token *domain.CompanyToken) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := token.Validate(); err != nil {
		return err
	}

	prices, emissions, candles, err := marshalHistories(token)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO tokens (` + tokenColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
	`
	_, err = s.db.ExecContext(
		ctx,
		query,
		token.Symbol,
		token.ID,
		token.CompanyName,
		token.TotalSupply,
		token.CirculatingSupply,
		token.EmissionBaseline,
		token.CurrentEmissions,
		token.IndustryType,
		token.CompanyScale,
		token.Price,
		token.Volume24h,
		token.Verified,
		nullString(token.OwnerAddress),
		prices,
		emissions,
		candles,
		token.CreatedAt,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return fmt.Errorf("%w: %s", store.ErrSymbolExists, token.Symbol)
		}
		log.Error("failed to create token",
			slog.String("error", err.Error()),
			slog.String("symbol", token.Symbol))
		return MapError(err)
	}

	log.Info("token created",
		slog.String("symbol", token.Symbol),
		slog.String("company_name", token.CompanyName))
	return nil
}

// GetBySymbol implements store.TokenStore.GetBySymbol
func (s *PostgresTokenStore) GetBySymbol(ctx context.Context, symbol string) (*domain.CompanyToken, error) {
	query := `SELECT ` + tokenColumns + ` FROM tokens WHERE symbol = $1`
	return s.scanToken(s.db.QueryRowContext(ctx, query, strings.ToUpper(symbol)))
}

// GetBySymbolForUpdate implements store.TokenStore.GetBySymbolForUpdate
func (s *PostgresTokenStore) GetBySymbolForUpdate(ctx context.Context, symbol string) (*domain.CompanyToken, error) {
	query := `SELECT ` + tokenColumns + ` FROM tokens WHERE symbol = $1 FOR UPDATE`
	return s.scanToken(s.db.QueryRowContext(ctx, query, strings.ToUpper(symbol)))
}

// List implements store.TokenStore.List
func (s *PostgresTokenStore) List(ctx context.Context) ([]*domain.CompanyToken, error) {
	query := `SELECT ` + tokenColumns + ` FROM tokens ORDER BY symbol`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	var tokens []*domain.CompanyToken
	for rows.Next() {
		token, err := s.scanToken(rows)
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, token)
	}
	if err := rows.Err(); err != nil {
		return nil, MapError(err)
	}

	return tokens, nil
}

// Update implements store.TokenStore.Update
func (s *PostgresTokenStore) Update(ctx context.Context, token *domain.CompanyToken) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	prices, emissions, candles, err := marshalHistories(token)
	if err != nil {
		return err
	}

	query := `
		UPDATE tokens
		SET circulating_supply = $2, current_emissions = $3, price = $4,
			volume_24h = $5, is_verified = $6, owner_address = $7,
			price_history = $8, emission_history = $9, candles = $10
		WHERE symbol = $1
	`
	result, err := s.db.ExecContext(
		ctx,
		query,
		token.Symbol,
		token.CirculatingSupply,
		token.CurrentEmissions,
		token.Price,
		token.Volume24h,
		token.Verified,
		nullString(token.OwnerAddress),
		prices,
		emissions,
		candles,
	)
	if err != nil {
		log.Error("failed to update token",
			slog.String("error", err.Error()),
			slog.String("symbol", token.Symbol))
		return MapError(err)
	}

	return CheckRowsAffected(result, store.ErrTokenNotFound)
}

// Delete implements store.TokenStore.Delete
func (s *PostgresTokenStore) Delete(ctx context.Context, symbol string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM tokens WHERE symbol = $1`, strings.ToUpper(symbol))
	if err != nil {
		return MapError(err)
	}
	return CheckRowsAffected(result, store.ErrTokenNotFound)
}

// Count implements store.TokenStore.Count
func (s *PostgresTokenStore) Count(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM tokens`).Scan(&count); err != nil {
		return 0, MapError(err)
	}
	return count, nil
}

func (s *PostgresTokenStore) scanToken(row rowScanner) (*domain.CompanyToken, error) {
	var (
		token        domain.CompanyToken
		ownerAddress sql.NullString
		prices       []byte
		emissions    []byte
		candles      []byte
	)

	err := row.Scan(
		&token.Symbol,
		&token.ID,
		&token.CompanyName,
		&token.TotalSupply,
		&token.CirculatingSupply,
		&token.EmissionBaseline,
		&token.CurrentEmissions,
		&token.IndustryType,
		&token.CompanyScale,
		&token.Price,
		&token.Volume24h,
		&token.Verified,
		&ownerAddress,
		&prices,
		&emissions,
		&candles,
		&token.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrTokenNotFound
		}
		return nil, MapError(err)
	}

	token.OwnerAddress = ownerAddress.String

	if err := unmarshalHistory(prices, &token.PriceHistory); err != nil {
		return nil, fmt.Errorf("decode price history for %s: %w", token.Symbol, err)
	}
	if err := unmarshalHistory(emissions, &token.EmissionHistory); err != nil {
		return nil, fmt.Errorf("decode emission history for %s: %w", token.Symbol, err)
	}
	if err := unmarshalHistory(candles, &token.Candles); err != nil {
		return nil, fmt.Errorf("decode candles for %s: %w", token.Symbol, err)
	}

	return &token, nil
}

func marshalHistories(token *domain.CompanyToken) (prices, emissions, candles []byte, err error) {
	if prices, err = json.Marshal(token.PriceHistory); err != nil {
		return nil, nil, nil, fmt.Errorf("encode price history: %w", err)
	}
	if emissions, err = json.Marshal(token.EmissionHistory); err != nil {
		return nil, nil, nil, fmt.Errorf("encode emission history: %w", err)
	}
	if candles, err = json.Marshal(token.Candles); err != nil {
		return nil, nil, nil, fmt.Errorf("encode candles: %w", err)
	}
	return prices, emissions, candles, nil
}

func unmarshalHistory[T any](data []byte, dst *[]T) error {
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, dst)
}

package postgres

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/google/uuid"

	"github.com/carboncoin/carboncoin-api/internal/domain"
	"github.com/carboncoin/carboncoin-api/internal/platform/logger"
	"github.com/carboncoin/carboncoin-api/internal/store"
)

// defaultTradeLimit bounds trade history queries when the caller passes no
// explicit limit.
const defaultTradeLimit = 100

// PostgresTradeStore implements the store.TradeStore interface
// using a PostgreSQL database as the storage backend.
type PostgresTradeStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresTradeStore creates a new PostgreSQL implementation of the
// TradeStore interface.
func NewPostgresTradeStore(db store.DBTX, logger *slog.Logger) *PostgresTradeStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresTradeStore{
		db:     db,
		logger: logger.With(slog.String("component", "trade_store")),
	}
}

// Ensure PostgresTradeStore implements store.TradeStore interface
var _ store.TradeStore = (*PostgresTradeStore)(nil)

// WithTx returns a TradeStore bound to the given transaction.
func (s *PostgresTradeStore) WithTx(tx *sql.Tx) store.TradeStore {
	return &PostgresTradeStore{db: tx, logger: s.logger}
}

// Create implements store.TradeStore.Create
func (s *PostgresTradeStore) Create(ctx context.Context, walletAddress uuid.UUID, trade *domain.Trade) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		INSERT INTO trades (wallet_address, token_symbol, trade_type, amount, price, fee, executed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := s.db.ExecContext(
		ctx,
		query,
		walletAddress,
		trade.Symbol,
		trade.Type,
		trade.Amount,
		trade.Price,
		trade.Fee,
		trade.Timestamp,
	)
	if err != nil {
		log.Error("failed to record trade",
			slog.String("error", err.Error()),
			slog.String("wallet_address", walletAddress.String()),
			slog.String("token_symbol", trade.Symbol))
		return MapError(err)
	}

	return nil
}

// ListByWallet implements store.TradeStore.ListByWallet
func (s *PostgresTradeStore) ListByWallet(ctx context.Context, walletAddress uuid.UUID, limit int) ([]domain.Trade, error) {
	if limit <= 0 {
		limit = defaultTradeLimit
	}

	query := `
		SELECT token_symbol, trade_type, amount, price, fee, executed_at
		FROM trades
		WHERE wallet_address = $1
		ORDER BY executed_at DESC, id DESC
		LIMIT $2
	`
	rows, err := s.db.QueryContext(ctx, query, walletAddress, limit)
	if err != nil {
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	var trades []domain.Trade
	for rows.Next() {
		var (
			trade     domain.Trade
			tradeType string
		)
		err := rows.Scan(
			&trade.Symbol,
			&tradeType,
			&trade.Amount,
			&trade.Price,
			&trade.Fee,
			&trade.Timestamp,
		)
		if err != nil {
			return nil, MapError(err)
		}
		trade.Type = domain.TransactionType(tradeType)
		trades = append(trades, trade)
	}
	if err := rows.Err(); err != nil {
		return nil, MapError(err)
	}

	return trades, nil
}

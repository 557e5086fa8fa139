package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/carboncoin/carboncoin-api/internal/domain"
	"github.com/carboncoin/carboncoin-api/internal/platform/logger"
	"github.com/carboncoin/carboncoin-api/internal/store"
)

// PostgresBlockStore implements the store.BlockStore interface
// using a PostgreSQL database as the storage backend. Blocks are append-only;
// the transaction list is stored as JSONB.
type PostgresBlockStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresBlockStore creates a new PostgreSQL implementation of the
// BlockStore interface.
func NewPostgresBlockStore(db store.DBTX, logger *slog.Logger) *PostgresBlockStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresBlockStore{
		db:     db,
		logger: logger.With(slog.String("component", "block_store")),
	}
}

// Ensure PostgresBlockStore implements store.BlockStore interface
var _ store.BlockStore = (*PostgresBlockStore)(nil)

// Append implements store.BlockStore.Append
func (s *PostgresBlockStore) Append(ctx context.Context, block *domain.Block) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	transactions, err := json.Marshal(block.Transactions)
	if err != nil {
		return fmt.Errorf("encode block transactions: %w", err)
	}

	query := `
		INSERT INTO blocks (block_index, transactions, mined_at, prev_hash, nonce, hash)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err = s.db.ExecContext(
		ctx,
		query,
		block.Index,
		transactions,
		block.Timestamp,
		block.PrevHash,
		block.Nonce,
		block.Hash,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return fmt.Errorf("%w: block %d already persisted", store.ErrDuplicate, block.Index)
		}
		log.Error("failed to persist block",
			slog.String("error", err.Error()),
			slog.Int("index", block.Index))
		return MapError(err)
	}

	log.Debug("block persisted",
		slog.Int("index", block.Index),
		slog.String("hash", block.Hash))
	return nil
}

// ListAll implements store.BlockStore.ListAll
func (s *PostgresBlockStore) ListAll(ctx context.Context) ([]*domain.Block, error) {
	query := `
		SELECT block_index, transactions, mined_at, prev_hash, nonce, hash
		FROM blocks
		ORDER BY block_index ASC
	`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	var blocks []*domain.Block
	for rows.Next() {
		var (
			block        domain.Block
			transactions []byte
		)
		err := rows.Scan(
			&block.Index,
			&transactions,
			&block.Timestamp,
			&block.PrevHash,
			&block.Nonce,
			&block.Hash,
		)
		if err != nil {
			return nil, MapError(err)
		}
		if len(transactions) > 0 {
			if err := json.Unmarshal(transactions, &block.Transactions); err != nil {
				return nil, fmt.Errorf("decode transactions for block %d: %w", block.Index, err)
			}
		}
		blocks = append(blocks, &block)
	}
	if err := rows.Err(); err != nil {
		return nil, MapError(err)
	}

	return blocks, nil
}

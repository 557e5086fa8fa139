package postgres

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carboncoin/carboncoin-api/internal/domain"
	"github.com/carboncoin/carboncoin-api/internal/store"
)

func storedToken(t *testing.T) *domain.CompanyToken {
	t.Helper()
	token, err := domain.NewCompanyToken(
		"GreenTech Industries", "GTI", 1_000_000, 50_000, "manufacturing", "large")
	require.NoError(t, err)
	return token
}

func tokenRows(token *domain.CompanyToken) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"symbol", "id", "company_name", "total_supply", "circulating_supply",
		"emission_baseline", "current_emissions", "industry_type", "company_scale",
		"price", "volume_24h", "is_verified", "owner_address",
		"price_history", "emission_history", "candles", "created_at",
	}).AddRow(
		token.Symbol, token.ID, token.CompanyName, token.TotalSupply, token.CirculatingSupply,
		token.EmissionBaseline, token.CurrentEmissions, token.IndustryType, token.CompanyScale,
		token.Price, token.Volume24h, token.Verified, nil,
		[]byte(`[{"timestamp":1700000000,"price":101.5}]`),
		[]byte(`[{"timestamp":1700000000,"emissions":48000}]`),
		[]byte(`[{"timestamp":1700000000,"open":100,"high":102,"low":99,"close":101.5,"volume":1500}]`),
		token.CreatedAt,
	)
}

func TestTokenStoreCreate(t *testing.T) {
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		db, mock := newMockDB(t)
		s := NewPostgresTokenStore(db, nil)
		token := storedToken(t)

		mock.ExpectExec("INSERT INTO tokens").
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, s.Create(ctx, token))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("duplicate symbol", func(t *testing.T) {
		db, mock := newMockDB(t)
		s := NewPostgresTokenStore(db, nil)

		mock.ExpectExec("INSERT INTO tokens").
			WillReturnError(&pgconn.PgError{Code: "23505"})

		assert.ErrorIs(t, s.Create(ctx, storedToken(t)), store.ErrSymbolExists)
	})
}

func TestTokenStoreGetBySymbol(t *testing.T) {
	ctx := context.Background()

	t.Run("found with histories", func(t *testing.T) {
		db, mock := newMockDB(t)
		s := NewPostgresTokenStore(db, nil)
		token := storedToken(t)

		mock.ExpectQuery("SELECT (.+) FROM tokens WHERE symbol").
			WithArgs("GTI").
			WillReturnRows(tokenRows(token))

		got, err := s.GetBySymbol(ctx, "gti")
		require.NoError(t, err)

		assert.Equal(t, "GTI", got.Symbol)
		require.Len(t, got.PriceHistory, 1)
		assert.Equal(t, 101.5, got.PriceHistory[0].Price)
		require.Len(t, got.Candles, 1)
		assert.Equal(t, 1500.0, got.Candles[0].Volume)
		require.Len(t, got.EmissionHistory, 1)
	})

	t.Run("not found", func(t *testing.T) {
		db, mock := newMockDB(t)
		s := NewPostgresTokenStore(db, nil)

		mock.ExpectQuery("SELECT (.+) FROM tokens WHERE symbol").
			WithArgs("NOPE").
			WillReturnError(sql.ErrNoRows)

		_, err := s.GetBySymbol(ctx, "NOPE")
		assert.ErrorIs(t, err, store.ErrTokenNotFound)
	})

	t.Run("get for update locks the row", func(t *testing.T) {
		db, mock := newMockDB(t)
		s := NewPostgresTokenStore(db, nil)
		token := storedToken(t)

		mock.ExpectQuery(`SELECT (.+) FROM tokens WHERE symbol = (.+) FOR UPDATE`).
			WithArgs("GTI").
			WillReturnRows(tokenRows(token))

		got, err := s.GetBySymbolForUpdate(ctx, "gti")
		require.NoError(t, err)
		assert.Equal(t, "GTI", got.Symbol)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestTokenStoreList(t *testing.T) {
	ctx := context.Background()
	db, mock := newMockDB(t)
	s := NewPostgresTokenStore(db, nil)
	token := storedToken(t)

	mock.ExpectQuery("SELECT (.+) FROM tokens ORDER BY symbol").
		WillReturnRows(tokenRows(token))

	tokens, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, tokens, 1)
	assert.Equal(t, "GreenTech Industries", tokens[0].CompanyName)
}

func TestTokenStoreUpdate(t *testing.T) {
	ctx := context.Background()

	t.Run("missing token", func(t *testing.T) {
		db, mock := newMockDB(t)
		s := NewPostgresTokenStore(db, nil)

		mock.ExpectExec("UPDATE tokens").
			WillReturnResult(sqlmock.NewResult(0, 0))

		assert.ErrorIs(t, s.Update(ctx, storedToken(t)), store.ErrTokenNotFound)
	})
}

func TestTokenStoreDelete(t *testing.T) {
	ctx := context.Background()
	db, mock := newMockDB(t)
	s := NewPostgresTokenStore(db, nil)

	mock.ExpectExec("DELETE FROM tokens").
		WithArgs("GTI").
		WillReturnResult(sqlmock.NewResult(0, 1))

	assert.NoError(t, s.Delete(ctx, "gti"))
}

func TestWalletStoreRoundTrip(t *testing.T) {
	ctx := context.Background()

	t.Run("get by user id", func(t *testing.T) {
		db, mock := newMockDB(t)
		s := NewPostgresWalletStore(db, nil)
		userID := uuid.New()
		address := uuid.New()

		rows := sqlmock.NewRows([]string{
			"address", "user_id", "username", "usd_balance", "holdings", "created_at",
		}).AddRow(address, userID, "trader1", 9500.0, []byte(`{"GTI":25}`), time.Now().UTC())

		mock.ExpectQuery("SELECT (.+) FROM wallets WHERE user_id").
			WithArgs(userID).
			WillReturnRows(rows)

		wallet, err := s.GetByUserID(ctx, userID)
		require.NoError(t, err)
		assert.Equal(t, address, wallet.Address)
		assert.Equal(t, 9500.0, wallet.USDBalance)
		assert.Equal(t, 25.0, wallet.Holding("GTI"))
	})

	t.Run("get for update locks the row", func(t *testing.T) {
		db, mock := newMockDB(t)
		s := NewPostgresWalletStore(db, nil)
		userID := uuid.New()
		address := uuid.New()

		rows := sqlmock.NewRows([]string{
			"address", "user_id", "username", "usd_balance", "holdings", "created_at",
		}).AddRow(address, userID, "trader1", 9500.0, []byte(`{"GTI":25}`), time.Now().UTC())

		mock.ExpectQuery(`SELECT (.+) FROM wallets WHERE user_id = (.+) FOR UPDATE`).
			WithArgs(userID).
			WillReturnRows(rows)

		wallet, err := s.GetByUserIDForUpdate(ctx, userID)
		require.NoError(t, err)
		assert.Equal(t, address, wallet.Address)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing wallet", func(t *testing.T) {
		db, mock := newMockDB(t)
		s := NewPostgresWalletStore(db, nil)

		mock.ExpectQuery("SELECT (.+) FROM wallets WHERE user_id").
			WillReturnError(sql.ErrNoRows)

		_, err := s.GetByUserID(ctx, uuid.New())
		assert.ErrorIs(t, err, store.ErrWalletNotFound)
	})

	t.Run("update", func(t *testing.T) {
		db, mock := newMockDB(t)
		s := NewPostgresWalletStore(db, nil)
		wallet := domain.NewWallet(uuid.New(), "trader1", 10000)

		mock.ExpectExec("UPDATE wallets").
			WillReturnResult(sqlmock.NewResult(0, 1))

		assert.NoError(t, s.Update(ctx, wallet))
	})
}

func TestBlockStoreListAll(t *testing.T) {
	ctx := context.Background()
	db, mock := newMockDB(t)
	s := NewPostgresBlockStore(db, nil)

	rows := sqlmock.NewRows([]string{
		"block_index", "transactions", "mined_at", "prev_hash", "nonce", "hash",
	}).
		AddRow(0, []byte(`null`), 1700000000, "0", 0, "abc").
		AddRow(1, []byte(`[{"type":"MINT","from_address":"MINT","to_address":"SYSTEM","amount":300000,"token_symbol":"GTI"}]`),
			1700000100, "abc", 42, "000def")

	mock.ExpectQuery("SELECT (.+) FROM blocks ORDER BY block_index").
		WillReturnRows(rows)

	blocks, err := s.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, blocks, 2)
	assert.Empty(t, blocks[0].Transactions)
	require.Len(t, blocks[1].Transactions, 1)
	assert.Equal(t, domain.TransactionMint, blocks[1].Transactions[0].Type)
	assert.Equal(t, 300000.0, blocks[1].Transactions[0].Amount)
}

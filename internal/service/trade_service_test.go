package service_test

import (
	"context"
	"database/sql"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carboncoin/carboncoin-api/internal/domain"
	"github.com/carboncoin/carboncoin-api/internal/ledger"
	"github.com/carboncoin/carboncoin-api/internal/service"
	"github.com/carboncoin/carboncoin-api/internal/store"
)

type tradeFixture struct {
	svc     *service.TradeService
	wallets *memWalletStore
	tokens  *memTokenStore
	trades  *memTradeStore
	blocks  *memBlockStore
	chain   *ledger.Ledger
	userID  uuid.UUID
}

func newTradeFixture(t *testing.T) *tradeFixture {
	t.Helper()
	ctx := context.Background()

	wallets := newMemWalletStore()
	tokens := newMemTokenStore()
	trades := newMemTradeStore()
	blocks := &memBlockStore{}
	chain := ledger.New(1, slog.Default())

	userID := uuid.New()
	wallet := domain.NewWallet(userID, "trader1", 10000)
	require.NoError(t, wallets.Create(ctx, wallet))

	token, err := domain.NewCompanyToken(
		"GreenTech Industries", "GTI", 1_000_000, 1000, "manufacturing", "large")
	require.NoError(t, err)
	require.NoError(t, tokens.Create(ctx, token))

	svc := service.NewTradeService(wallets, trades, tokens, blocks, chain, passthroughTxRunner, slog.Default())
	return &tradeFixture{
		svc: svc, wallets: wallets, tokens: tokens, trades: trades,
		blocks: blocks, chain: chain, userID: userID,
	}
}

func TestBuy(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newTradeFixture(t)

	result, err := f.svc.Buy(ctx, f.userID, "GTI", 10)
	require.NoError(t, err)

	// 10 tokens at $100 plus the 1% fee.
	assert.InDelta(t, 1000.0, result.Cost, 1e-9)
	assert.InDelta(t, 10.0, result.Fee, 1e-9)
	assert.InDelta(t, 1010.0, result.Total, 1e-9)
	assert.InDelta(t, 8990.0, result.NewBalance, 1e-9)
	assert.InDelta(t, 10.0, result.NewTokenBalance, 1e-9)

	t.Run("wallet and token are persisted", func(t *testing.T) {
		wallet, err := f.wallets.GetByUserID(ctx, f.userID)
		require.NoError(t, err)
		assert.InDelta(t, 8990.0, wallet.USDBalance, 1e-9)
		assert.InDelta(t, 10.0, wallet.Holding("GTI"), 1e-9)

		token, err := f.tokens.GetBySymbol(ctx, "GTI")
		require.NoError(t, err)
		assert.InDelta(t, 1000.0, token.Volume24h, 1e-9)

		trades, err := f.trades.ListByWallet(ctx, wallet.Address, 10)
		require.NoError(t, err)
		require.Len(t, trades, 1)
		assert.Equal(t, domain.TransactionBuy, trades[0].Type)
	})

	t.Run("purchase is mined onto the chain", func(t *testing.T) {
		wallet, err := f.wallets.GetByUserID(ctx, f.userID)
		require.NoError(t, err)

		assert.Equal(t, 2, f.chain.Height())
		assert.InDelta(t, 10.0, f.chain.BalanceOf(wallet.Address.String(), "GTI"), 1e-9)
		assert.Len(t, f.blocks.Blocks, 1)
	})
}

func TestBuyInsufficientFunds(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newTradeFixture(t)

	// 10000 USD cannot cover 100 tokens at $100 plus fee.
	_, err := f.svc.Buy(ctx, f.userID, "GTI", 100)
	assert.ErrorIs(t, err, domain.ErrInsufficientFunds)

	wallet, err := f.wallets.GetByUserID(ctx, f.userID)
	require.NoError(t, err)
	assert.InDelta(t, 10000.0, wallet.USDBalance, 1e-9)
	assert.Equal(t, 1, f.chain.Height())
}

func TestBuyUnknownToken(t *testing.T) {
	t.Parallel()
	f := newTradeFixture(t)

	_, err := f.svc.Buy(context.Background(), f.userID, "NOPE", 1)
	assert.ErrorIs(t, err, store.ErrTokenNotFound)
}

func TestBuyInvalidAmount(t *testing.T) {
	t.Parallel()
	f := newTradeFixture(t)

	_, err := f.svc.Buy(context.Background(), f.userID, "GTI", 0)
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)

	_, err = f.svc.Sell(context.Background(), f.userID, "GTI", -5)
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)
}

func TestSell(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newTradeFixture(t)

	_, err := f.svc.Buy(ctx, f.userID, "GTI", 10)
	require.NoError(t, err)

	result, err := f.svc.Sell(ctx, f.userID, "GTI", 4)
	require.NoError(t, err)

	// 4 tokens at $100, minus the 1% fee on proceeds.
	assert.InDelta(t, 400.0, result.Proceeds, 1e-9)
	assert.InDelta(t, 4.0, result.Fee, 1e-9)
	assert.InDelta(t, 396.0, result.NetProceeds, 1e-9)
	assert.InDelta(t, 8990.0+396.0, result.NewBalance, 1e-9)
	assert.InDelta(t, 6.0, result.NewTokenBalance, 1e-9)

	wallet, err := f.wallets.GetByUserID(ctx, f.userID)
	require.NoError(t, err)
	assert.InDelta(t, 6.0, f.chain.BalanceOf(wallet.Address.String(), "GTI"), 1e-9)
	assert.Equal(t, 3, f.chain.Height())
}

func TestSellInsufficientHoldings(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newTradeFixture(t)

	_, err := f.svc.Sell(ctx, f.userID, "GTI", 1)
	assert.ErrorIs(t, err, domain.ErrInsufficientHoldings)
}

func TestSellUnknownWallet(t *testing.T) {
	t.Parallel()
	f := newTradeFixture(t)

	_, err := f.svc.Sell(context.Background(), uuid.New(), "GTI", 1)
	assert.ErrorIs(t, err, store.ErrWalletNotFound)
}

// lockingWalletStore counts reads made through the row-locking accessor.
type lockingWalletStore struct {
	*memWalletStore
	lockedReads int
}

func (s *lockingWalletStore) GetByUserIDForUpdate(ctx context.Context, userID uuid.UUID) (*domain.Wallet, error) {
	s.lockedReads++
	return s.memWalletStore.GetByUserIDForUpdate(ctx, userID)
}

func (s *lockingWalletStore) WithTx(*sql.Tx) store.WalletStore { return s }

type lockingTokenStore struct {
	*memTokenStore
	lockedReads int
}

func (s *lockingTokenStore) GetBySymbolForUpdate(ctx context.Context, symbol string) (*domain.CompanyToken, error) {
	s.lockedReads++
	return s.memTokenStore.GetBySymbolForUpdate(ctx, symbol)
}

func (s *lockingTokenStore) WithTx(*sql.Tx) store.TokenStore { return s }

// Buy and Sell must read wallet and token inside the transaction through the
// locking accessors so concurrent trades on the same wallet serialize.
func TestTradesReadThroughRowLocks(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	wallets := &lockingWalletStore{memWalletStore: newMemWalletStore()}
	tokens := &lockingTokenStore{memTokenStore: newMemTokenStore()}
	chain := ledger.New(1, slog.Default())

	userID := uuid.New()
	require.NoError(t, wallets.Create(ctx, domain.NewWallet(userID, "trader1", 10000)))
	token, err := domain.NewCompanyToken(
		"GreenTech Industries", "GTI", 1_000_000, 1000, "manufacturing", "large")
	require.NoError(t, err)
	require.NoError(t, tokens.Create(ctx, token))

	svc := service.NewTradeService(wallets, newMemTradeStore(), tokens, &memBlockStore{},
		chain, passthroughTxRunner, slog.Default())

	_, err = svc.Buy(ctx, userID, "GTI", 10)
	require.NoError(t, err)
	_, err = svc.Sell(ctx, userID, "GTI", 2)
	require.NoError(t, err)

	assert.Equal(t, 2, wallets.lockedReads)
	assert.Equal(t, 2, tokens.lockedReads)
}

func TestTradeHistory(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newTradeFixture(t)

	_, err := f.svc.Buy(ctx, f.userID, "GTI", 10)
	require.NoError(t, err)
	_, err = f.svc.Sell(ctx, f.userID, "GTI", 2)
	require.NoError(t, err)

	history, err := f.svc.History(ctx, f.userID, 10)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, domain.TransactionSell, history[0].Type)
	assert.Equal(t, domain.TransactionBuy, history[1].Type)
}

package service

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/carboncoin/carboncoin-api/internal/domain"
	"github.com/carboncoin/carboncoin-api/internal/ledger"
	"github.com/carboncoin/carboncoin-api/internal/platform/logger"
	"github.com/carboncoin/carboncoin-api/internal/store"
)

// TradeFeeRate is the fee charged on every buy and sell, as a fraction of
// the trade value.
const TradeFeeRate = 0.01

// TxRunner executes fn within a database transaction. It exists so tests can
// substitute a pass-through runner for the real store.RunInTransaction.
type TxRunner func(ctx context.Context, fn store.TxFn) error

// NewTxRunner returns a TxRunner backed by the given database.
func NewTxRunner(db *sql.DB) TxRunner {
	return func(ctx context.Context, fn store.TxFn) error {
		return store.RunInTransaction(ctx, db, fn)
	}
}

// TradeResult reports an executed trade back to the caller.
type TradeResult struct {
	Symbol          string  `json:"token_symbol"`
	Amount          float64 `json:"amount"`
	Price           float64 `json:"price"`
	Cost            float64 `json:"cost,omitempty"`
	Proceeds        float64 `json:"proceeds,omitempty"`
	Fee             float64 `json:"fee"`
	Total           float64 `json:"total,omitempty"`
	NetProceeds     float64 `json:"net_proceeds,omitempty"`
	NewBalance      float64 `json:"new_balance"`
	NewTokenBalance float64 `json:"new_token_balance"`
}

// TradeService executes custodial buys and sells. Wallet and token state are
// persisted transactionally; the matching ledger transaction is mined after
// the database commit so a rollback never leaves a mined block behind.
type TradeService struct {
	wallets store.WalletStore
	trades  store.TradeStore
	tokens  store.TokenStore
	blocks  store.BlockStore
	chain   *ledger.Ledger
	runTx   TxRunner
	feeRate float64
	logger  *slog.Logger
}

// NewTradeService creates a TradeService with the standard fee rate.
func NewTradeService(
	wallets store.WalletStore,
	trades store.TradeStore,
	tokens store.TokenStore,
	blocks store.BlockStore,
	chain *ledger.Ledger,
	runTx TxRunner,
	log *slog.Logger,
) *TradeService {
	if log == nil {
		log = slog.Default()
	}
	return &TradeService{
		wallets: wallets,
		trades:  trades,
		tokens:  tokens,
		blocks:  blocks,
		chain:   chain,
		runTx:   runTx,
		feeRate: TradeFeeRate,
		logger:  log.With(slog.String("component", "trade_service")),
	}
}

// Buy purchases tokens with the wallet's USD balance. The fee is charged on
// top of the cost. The wallet and token rows stay locked for the duration of
// the transaction so concurrent trades serialize instead of losing updates.
func (s *TradeService) Buy(ctx context.Context, userID uuid.UUID, symbol string, amount float64) (*TradeResult, error) {
	if amount <= 0 {
		return nil, domain.ErrInvalidAmount
	}

	var (
		wallet *domain.Wallet
		token  *domain.CompanyToken
		result *TradeResult
		fee    float64
	)
	err := s.runTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		var err error
		wallet, err = s.wallets.WithTx(tx).GetByUserIDForUpdate(ctx, userID)
		if err != nil {
			return err
		}
		token, err = s.tokens.WithTx(tx).GetBySymbolForUpdate(ctx, symbol)
		if err != nil {
			return err
		}

		cost := amount * token.Price
		fee = cost * s.feeRate
		total := cost + fee

		if err := wallet.DebitUSD(total); err != nil {
			return fmt.Errorf("%w: need $%.2f, have $%.2f",
				err, total, wallet.USDBalance)
		}
		if err := wallet.CreditTokens(token.Symbol, amount); err != nil {
			return err
		}
		wallet.RecordTrade(domain.TransactionBuy, token.Symbol, amount, token.Price, fee)
		token.RecordTrade(amount, token.Price, domain.TransactionBuy)

		result = &TradeResult{
			Symbol:          token.Symbol,
			Amount:          amount,
			Price:           token.Price,
			Cost:            cost,
			Fee:             fee,
			Total:           total,
			NewBalance:      wallet.USDBalance,
			NewTokenBalance: wallet.Holding(token.Symbol),
		}

		return s.persistTrade(ctx, tx, wallet, token, domain.TransactionBuy, amount, fee)
	})
	if err != nil {
		return nil, err
	}

	s.settle(ctx, domain.TransactionBuy, wallet, token, amount, fee)
	return result, nil
}

// Sell converts tokens back to USD. The fee is deducted from the proceeds.
func (s *TradeService) Sell(ctx context.Context, userID uuid.UUID, symbol string, amount float64) (*TradeResult, error) {
	if amount <= 0 {
		return nil, domain.ErrInvalidAmount
	}

	var (
		wallet *domain.Wallet
		token  *domain.CompanyToken
		result *TradeResult
		fee    float64
	)
	err := s.runTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		var err error
		wallet, err = s.wallets.WithTx(tx).GetByUserIDForUpdate(ctx, userID)
		if err != nil {
			return err
		}
		token, err = s.tokens.WithTx(tx).GetBySymbolForUpdate(ctx, symbol)
		if err != nil {
			return err
		}

		if err := wallet.DebitTokens(token.Symbol, amount); err != nil {
			return fmt.Errorf("%w: need %.4f %s, have %.4f",
				err, amount, token.Symbol, wallet.Holding(token.Symbol))
		}

		proceeds := amount * token.Price
		fee = proceeds * s.feeRate
		net := proceeds - fee

		if err := wallet.CreditUSD(net); err != nil {
			return err
		}
		wallet.RecordTrade(domain.TransactionSell, token.Symbol, amount, token.Price, fee)
		token.RecordTrade(amount, token.Price, domain.TransactionSell)

		result = &TradeResult{
			Symbol:          token.Symbol,
			Amount:          amount,
			Price:           token.Price,
			Proceeds:        proceeds,
			Fee:             fee,
			NetProceeds:     net,
			NewBalance:      wallet.USDBalance,
			NewTokenBalance: wallet.Holding(token.Symbol),
		}

		return s.persistTrade(ctx, tx, wallet, token, domain.TransactionSell, amount, fee)
	})
	if err != nil {
		return nil, err
	}

	s.settle(ctx, domain.TransactionSell, wallet, token, amount, fee)
	return result, nil
}

// History returns a wallet's recent trades, newest first.
func (s *TradeService) History(ctx context.Context, userID uuid.UUID, limit int) ([]domain.Trade, error) {
	wallet, err := s.wallets.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.trades.ListByWallet(ctx, wallet.Address, limit)
}

// persistTrade saves the mutated wallet and token plus the trade record
// within the caller's transaction.
func (s *TradeService) persistTrade(
	ctx context.Context,
	tx *sql.Tx,
	wallet *domain.Wallet,
	token *domain.CompanyToken,
	txType domain.TransactionType,
	amount, fee float64,
) error {
	trade := &domain.Trade{
		Timestamp: wallet.Trades[len(wallet.Trades)-1].Timestamp,
		Symbol:    token.Symbol,
		Amount:    amount,
		Price:     token.Price,
		Fee:       fee,
		Type:      txType,
	}

	if err := s.wallets.WithTx(tx).Update(ctx, wallet); err != nil {
		return err
	}
	if err := s.tokens.WithTx(tx).Update(ctx, token); err != nil {
		return err
	}
	return s.trades.WithTx(tx).Create(ctx, wallet.Address, trade)
}

// settle records the trade on the ledger and mines it. Custody is already
// settled in the database at this point, so ledger failures are logged
// rather than surfaced.
func (s *TradeService) settle(
	ctx context.Context,
	txType domain.TransactionType,
	wallet *domain.Wallet,
	token *domain.CompanyToken,
	amount, fee float64,
) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	ltx, err := domain.NewTransaction(txType, wallet.Address.String(), wallet.Address.String(), amount, token.Symbol)
	if err != nil {
		log.Error("failed to build ledger transaction", slog.String("error", err.Error()))
		return
	}
	ltx.Price = token.Price
	ltx.Fee = fee

	if err := s.chain.Submit(ltx); err != nil {
		log.Error("ledger rejected trade transaction",
			slog.String("error", err.Error()),
			slog.String("tx_id", ltx.ID.String()))
		return
	}

	block, err := s.chain.MinePending(domain.SystemAddress)
	if err != nil {
		log.Error("failed to mine trade block", slog.String("error", err.Error()))
		return
	}

	if s.blocks != nil {
		if err := s.blocks.Append(ctx, block); err != nil {
			log.Error("failed to persist mined block",
				slog.String("error", err.Error()),
				slog.Int("index", block.Index))
		}
	}
}

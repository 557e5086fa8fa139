package domain

import (
	"time"

	"github.com/google/uuid"
)

// Wallet holds a user's demo USD balance and custodial token holdings.
// Balances here mirror the custody view; the ledger tracks the on-chain view.
type Wallet struct {
	Address    uuid.UUID          `json:"address"`
	UserID     uuid.UUID          `json:"user_id"`
	Username   string             `json:"username"`
	USDBalance float64            `json:"usd_balance"`
	Holdings   map[string]float64 `json:"token_balances"`
	Trades     []Trade            `json:"-"`
	CreatedAt  time.Time          `json:"created_at"`
}

// NewWallet creates a wallet funded with the given demo balance.
func NewWallet(userID uuid.UUID, username string, initialBalance float64) *Wallet {
	return &Wallet{
		Address:    uuid.New(),
		UserID:     userID,
		Username:   username,
		USDBalance: initialBalance,
		Holdings:   make(map[string]float64),
		CreatedAt:  time.Now().UTC(),
	}
}

// Holding returns the wallet's balance of one token.
func (w *Wallet) Holding(symbol string) float64 {
	return w.Holdings[symbol]
}

// CreditUSD adds USD to the wallet.
func (w *Wallet) CreditUSD(amount float64) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	w.USDBalance += amount
	return nil
}

// DebitUSD removes USD from the wallet, failing if it cannot cover the amount.
func (w *Wallet) DebitUSD(amount float64) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	if w.USDBalance < amount {
		return ErrInsufficientFunds
	}
	w.USDBalance -= amount
	return nil
}

// CreditTokens adds tokens to the wallet's holdings.
func (w *Wallet) CreditTokens(symbol string, amount float64) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	if w.Holdings == nil {
		w.Holdings = make(map[string]float64)
	}
	w.Holdings[symbol] += amount
	return nil
}

// DebitTokens removes tokens from the wallet's holdings, failing if the
// wallet holds fewer than requested.
func (w *Wallet) DebitTokens(symbol string, amount float64) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	if w.Holdings[symbol] < amount {
		return ErrInsufficientHoldings
	}
	w.Holdings[symbol] -= amount
	return nil
}

// RecordTrade appends an executed trade to the wallet's history.
func (w *Wallet) RecordTrade(txType TransactionType, symbol string, amount, price, fee float64) {
	w.Trades = append(w.Trades, Trade{
		Timestamp: time.Now().Unix(),
		Symbol:    symbol,
		Amount:    amount,
		Price:     price,
		Fee:       fee,
		Type:      txType,
	})
}

// PortfolioValue prices the wallet's holdings with the given price table and
// adds the USD balance. Tokens without a quoted price contribute nothing.
func (w *Wallet) PortfolioValue(prices map[string]float64) float64 {
	total := w.USDBalance
	for symbol, amount := range w.Holdings {
		if price, ok := prices[symbol]; ok {
			total += amount * price
		}
	}
	return total
}

// Package mocks provides in-memory store implementations for tests.
package mocks

import (
	"context"
	"database/sql"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/carboncoin/carboncoin-api/internal/domain"
	"github.com/carboncoin/carboncoin-api/internal/store"
)

// PassthroughTxRunner runs the function without a real transaction. The
// in-memory stores ignore the tx handle.
func PassthroughTxRunner(ctx context.Context, fn store.TxFn) error {
	return fn(ctx, nil)
}

// UserStore is an in-memory store.UserStore.
type UserStore struct {
	Users map[uuid.UUID]*domain.User
}

var _ store.UserStore = (*UserStore)(nil)

// NewUserStore creates an empty UserStore.
func NewUserStore() *UserStore {
	return &UserStore{Users: make(map[uuid.UUID]*domain.User)}
}

func (s *UserStore) Create(_ context.Context, user *domain.User) error {
	for _, u := range s.Users {
		if u.Username == user.Username {
			return store.ErrUsernameExists
		}
	}
	copied := *user
	s.Users[user.ID] = &copied
	return nil
}

func (s *UserStore) GetByID(_ context.Context, id uuid.UUID) (*domain.User, error) {
	u, ok := s.Users[id]
	if !ok {
		return nil, store.ErrUserNotFound
	}
	copied := *u
	return &copied, nil
}

func (s *UserStore) GetByUsername(_ context.Context, username string) (*domain.User, error) {
	for _, u := range s.Users {
		if u.Username == username {
			copied := *u
			return &copied, nil
		}
	}
	return nil, store.ErrUserNotFound
}

func (s *UserStore) Update(_ context.Context, user *domain.User) error {
	if _, ok := s.Users[user.ID]; !ok {
		return store.ErrUserNotFound
	}
	copied := *user
	s.Users[user.ID] = &copied
	return nil
}

func (s *UserStore) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := s.Users[id]; !ok {
		return store.ErrUserNotFound
	}
	delete(s.Users, id)
	return nil
}

func (s *UserStore) Count(_ context.Context) (int, error) { return len(s.Users), nil }

func (s *UserStore) WithTx(_ *sql.Tx) store.UserStore { return s }

// WalletStore is an in-memory store.WalletStore keyed by user ID.
type WalletStore struct {
	Wallets map[uuid.UUID]*domain.Wallet
}

var _ store.WalletStore = (*WalletStore)(nil)

// NewWalletStore creates an empty WalletStore.
func NewWalletStore() *WalletStore {
	return &WalletStore{Wallets: make(map[uuid.UUID]*domain.Wallet)}
}

func (s *WalletStore) Create(_ context.Context, wallet *domain.Wallet) error {
	s.Wallets[wallet.UserID] = cloneWallet(wallet)
	return nil
}

func (s *WalletStore) GetByUserID(_ context.Context, userID uuid.UUID) (*domain.Wallet, error) {
	w, ok := s.Wallets[userID]
	if !ok {
		return nil, store.ErrWalletNotFound
	}
	return cloneWallet(w), nil
}

// GetByUserIDForUpdate behaves like GetByUserID; the in-memory store has no
// row locks.
func (s *WalletStore) GetByUserIDForUpdate(ctx context.Context, userID uuid.UUID) (*domain.Wallet, error) {
	return s.GetByUserID(ctx, userID)
}

func (s *WalletStore) Update(_ context.Context, wallet *domain.Wallet) error {
	if _, ok := s.Wallets[wallet.UserID]; !ok {
		return store.ErrWalletNotFound
	}
	s.Wallets[wallet.UserID] = cloneWallet(wallet)
	return nil
}

func (s *WalletStore) Count(_ context.Context) (int, error) { return len(s.Wallets), nil }

func (s *WalletStore) WithTx(_ *sql.Tx) store.WalletStore { return s }

func cloneWallet(w *domain.Wallet) *domain.Wallet {
	copied := *w
	copied.Holdings = make(map[string]float64, len(w.Holdings))
	for k, v := range w.Holdings {
		copied.Holdings[k] = v
	}
	copied.Trades = append([]domain.Trade(nil), w.Trades...)
	return &copied
}

// TokenStore is an in-memory store.TokenStore.
type TokenStore struct {
	Tokens map[string]*domain.CompanyToken
}

var _ store.TokenStore = (*TokenStore)(nil)

// NewTokenStore creates an empty TokenStore.
func NewTokenStore() *TokenStore {
	return &TokenStore{Tokens: make(map[string]*domain.CompanyToken)}
}

func (s *TokenStore) Create(_ context.Context, token *domain.CompanyToken) error {
	if _, ok := s.Tokens[token.Symbol]; ok {
		return store.ErrSymbolExists
	}
	copied := *token
	s.Tokens[token.Symbol] = &copied
	return nil
}

// GetBySymbol resolves case-insensitively, matching the SQL implementation.
func (s *TokenStore) GetBySymbol(_ context.Context, symbol string) (*domain.CompanyToken, error) {
	t, ok := s.Tokens[strings.ToUpper(symbol)]
	if !ok {
		return nil, store.ErrTokenNotFound
	}
	copied := *t
	return &copied, nil
}

// GetBySymbolForUpdate behaves like GetBySymbol; the in-memory store has no
// row locks.
func (s *TokenStore) GetBySymbolForUpdate(ctx context.Context, symbol string) (*domain.CompanyToken, error) {
	return s.GetBySymbol(ctx, symbol)
}

func (s *TokenStore) List(_ context.Context) ([]*domain.CompanyToken, error) {
	symbols := make([]string, 0, len(s.Tokens))
	for sym := range s.Tokens {
		symbols = append(symbols, sym)
	}
	sort.Strings(symbols)

	out := make([]*domain.CompanyToken, 0, len(symbols))
	for _, sym := range symbols {
		copied := *s.Tokens[sym]
		out = append(out, &copied)
	}
	return out, nil
}

func (s *TokenStore) Update(_ context.Context, token *domain.CompanyToken) error {
	if _, ok := s.Tokens[token.Symbol]; !ok {
		return store.ErrTokenNotFound
	}
	copied := *token
	s.Tokens[token.Symbol] = &copied
	return nil
}

func (s *TokenStore) Delete(_ context.Context, symbol string) error {
	symbol = strings.ToUpper(symbol)
	if _, ok := s.Tokens[symbol]; !ok {
		return store.ErrTokenNotFound
	}
	delete(s.Tokens, symbol)
	return nil
}

func (s *TokenStore) Count(_ context.Context) (int, error) { return len(s.Tokens), nil }

func (s *TokenStore) WithTx(_ *sql.Tx) store.TokenStore { return s }

// TradeStore is an in-memory store.TradeStore.
type TradeStore struct {
	Trades map[uuid.UUID][]domain.Trade
}

var _ store.TradeStore = (*TradeStore)(nil)

// NewTradeStore creates an empty TradeStore.
func NewTradeStore() *TradeStore {
	return &TradeStore{Trades: make(map[uuid.UUID][]domain.Trade)}
}

func (s *TradeStore) Create(_ context.Context, walletAddress uuid.UUID, trade *domain.Trade) error {
	s.Trades[walletAddress] = append(s.Trades[walletAddress], *trade)
	return nil
}

// ListByWallet returns trades newest first, matching the SQL implementation.
func (s *TradeStore) ListByWallet(_ context.Context, walletAddress uuid.UUID, limit int) ([]domain.Trade, error) {
	trades := s.Trades[walletAddress]
	out := make([]domain.Trade, 0, len(trades))
	for i := len(trades) - 1; i >= 0; i-- {
		out = append(out, trades[i])
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (s *TradeStore) WithTx(_ *sql.Tx) store.TradeStore { return s }

// ReadingStore is an in-memory store.ReadingStore keyed by company symbol.
type ReadingStore struct {
	Readings map[string][]domain.Reading
}

var _ store.ReadingStore = (*ReadingStore)(nil)

// NewReadingStore creates an empty ReadingStore.
func NewReadingStore() *ReadingStore {
	return &ReadingStore{Readings: make(map[string][]domain.Reading)}
}

func (s *ReadingStore) Create(_ context.Context, reading *domain.Reading) error {
	s.Readings[reading.CompanySymbol] = append(s.Readings[reading.CompanySymbol], *reading)
	return nil
}

// ListByCompany returns readings oldest first, matching the SQL implementation.
func (s *ReadingStore) ListByCompany(_ context.Context, companySymbol string, limit int) ([]domain.Reading, error) {
	readings := s.Readings[companySymbol]
	if limit > 0 && len(readings) > limit {
		readings = readings[len(readings)-limit:]
	}
	out := make([]domain.Reading, len(readings))
	copy(out, readings)
	return out, nil
}

// BlockStore is an in-memory store.BlockStore.
type BlockStore struct {
	Blocks []*domain.Block
}

var _ store.BlockStore = (*BlockStore)(nil)

func (s *BlockStore) Append(_ context.Context, block *domain.Block) error {
	s.Blocks = append(s.Blocks, block)
	return nil
}

func (s *BlockStore) ListAll(_ context.Context) ([]*domain.Block, error) {
	return append([]*domain.Block(nil), s.Blocks...), nil
}

// ApplicationStore is an in-memory store.ApplicationStore.
type ApplicationStore struct {
	Apps map[uuid.UUID]*domain.Application
}

var _ store.ApplicationStore = (*ApplicationStore)(nil)

// NewApplicationStore creates an empty ApplicationStore.
func NewApplicationStore() *ApplicationStore {
	return &ApplicationStore{Apps: make(map[uuid.UUID]*domain.Application)}
}

func (s *ApplicationStore) Create(_ context.Context, app *domain.Application) error {
	copied := *app
	s.Apps[app.ID] = &copied
	return nil
}

func (s *ApplicationStore) GetByID(_ context.Context, id uuid.UUID) (*domain.Application, error) {
	app, ok := s.Apps[id]
	if !ok {
		return nil, store.ErrApplicationNotFound
	}
	copied := *app
	return &copied, nil
}

func (s *ApplicationStore) Update(_ context.Context, app *domain.Application) error {
	if _, ok := s.Apps[app.ID]; !ok {
		return store.ErrApplicationNotFound
	}
	copied := *app
	s.Apps[app.ID] = &copied
	return nil
}

func (s *ApplicationStore) ListByStatus(_ context.Context, status domain.ApplicationStatus) ([]*domain.Application, error) {
	var out []*domain.Application
	for _, app := range s.Apps {
		if app.Status == status {
			copied := *app
			out = append(out, &copied)
		}
	}
	return out, nil
}

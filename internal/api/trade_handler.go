package api

import (
	"context"
	"net/http"
	"sort"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/carboncoin/carboncoin-api/internal/api/shared"
	"github.com/carboncoin/carboncoin-api/internal/domain"
	"github.com/carboncoin/carboncoin-api/internal/service"
	"github.com/carboncoin/carboncoin-api/internal/store"
)

// defaultHistoryLimit caps the trade history response when no limit is given.
const defaultHistoryLimit = 50

// TradeHandler serves wallet views and trade execution.
type TradeHandler struct {
	trades   *service.TradeService
	wallets  store.WalletStore
	tokens   *service.TokenService
	validate *validator.Validate
}

// NewTradeHandler creates a TradeHandler.
func NewTradeHandler(
	trades *service.TradeService,
	wallets store.WalletStore,
	tokens *service.TokenService,
	validate *validator.Validate,
) *TradeHandler {
	return &TradeHandler{trades: trades, wallets: wallets, tokens: tokens, validate: validate}
}

// Buy executes a token purchase for the authenticated user.
func (h *TradeHandler) Buy(w http.ResponseWriter, r *http.Request) {
	h.execute(w, r, h.trades.Buy)
}

// Sell executes a token sale for the authenticated user.
func (h *TradeHandler) Sell(w http.ResponseWriter, r *http.Request) {
	h.execute(w, r, h.trades.Sell)
}

func (h *TradeHandler) execute(
	w http.ResponseWriter,
	r *http.Request,
	run func(ctx context.Context, userID uuid.UUID, symbol string, amount float64) (*service.TradeResult, error),
) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	var req TradeRequest
	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}

	result, err := run(r.Context(), userID, req.TokenSymbol, req.Amount)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err),
			GetSafeErrorMessage(err, "Failed to execute trade"), err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, result)
}

// Wallet returns the authenticated user's wallet.
func (h *TradeHandler) Wallet(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	wallet, err := h.wallets.GetByUserID(r.Context(), userID)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err),
			GetSafeErrorMessage(err, "Failed to load wallet"), err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, wallet)
}

// Portfolio returns the wallet's holdings priced at current market rates.
func (h *TradeHandler) Portfolio(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	wallet, err := h.wallets.GetByUserID(r.Context(), userID)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err),
			GetSafeErrorMessage(err, "Failed to load wallet"), err)
		return
	}

	tokens, err := h.tokens.List(r.Context())
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err),
			GetSafeErrorMessage(err, "Failed to price portfolio"), err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, buildPortfolio(wallet, tokens))
}

// History returns the wallet's recent trades, newest first.
func (h *TradeHandler) History(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	trades, err := h.trades.History(r.Context(), userID, queryLimit(r, defaultHistoryLimit))
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err),
			GetSafeErrorMessage(err, "Failed to load trade history"), err)
		return
	}
	if trades == nil {
		trades = []domain.Trade{}
	}

	shared.RespondWithJSON(w, r, http.StatusOK, trades)
}

func buildPortfolio(wallet *domain.Wallet, tokens []*domain.CompanyToken) PortfolioResponse {
	bySymbol := make(map[string]*domain.CompanyToken, len(tokens))
	prices := make(map[string]float64, len(tokens))
	for _, token := range tokens {
		bySymbol[token.Symbol] = token
		prices[token.Symbol] = token.Price
	}

	holdings := make([]PortfolioHolding, 0, len(wallet.Holdings))
	for symbol, amount := range wallet.Holdings {
		if amount == 0 {
			continue
		}
		holding := PortfolioHolding{TokenSymbol: symbol, Amount: amount}
		if token, ok := bySymbol[symbol]; ok {
			holding.CompanyName = token.CompanyName
			holding.Price = token.Price
			holding.Value = amount * token.Price
		}
		holdings = append(holdings, holding)
	}
	sort.Slice(holdings, func(i, j int) bool {
		return holdings[i].TokenSymbol < holdings[j].TokenSymbol
	})

	return PortfolioResponse{
		WalletAddress: wallet.Address.String(),
		USDBalance:    wallet.USDBalance,
		Holdings:      holdings,
		TotalValue:    wallet.PortfolioValue(prices),
	}
}

package api

import (
	"net/http"

	"github.com/carboncoin/carboncoin-api/internal/api/shared"
	"github.com/carboncoin/carboncoin-api/internal/ledger"
	"github.com/carboncoin/carboncoin-api/internal/store"
)

// ChainHandler serves the public ledger and platform statistics views.
type ChainHandler struct {
	chain   *ledger.Ledger
	users   store.UserStore
	wallets store.WalletStore
	tokens  store.TokenStore
}

// NewChainHandler creates a ChainHandler.
func NewChainHandler(
	chain *ledger.Ledger,
	users store.UserStore,
	wallets store.WalletStore,
	tokens store.TokenStore,
) *ChainHandler {
	return &ChainHandler{chain: chain, users: users, wallets: wallets, tokens: tokens}
}

// GetChain returns the full block list with chain health.
func (h *ChainHandler) GetChain(w http.ResponseWriter, r *http.Request) {
	shared.RespondWithJSON(w, r, http.StatusOK, ChainResponse{
		Height:              h.chain.Height(),
		Valid:               h.chain.Valid(),
		PendingTransactions: h.chain.PendingCount(),
		Blocks:              h.chain.Blocks(),
	})
}

// GetStats returns platform-wide totals.
func (h *ChainHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	users, err := h.users.Count(r.Context())
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err),
			GetSafeErrorMessage(err, "Failed to load statistics"), err)
		return
	}
	wallets, err := h.wallets.Count(r.Context())
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err),
			GetSafeErrorMessage(err, "Failed to load statistics"), err)
		return
	}
	tokens, err := h.tokens.List(r.Context())
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err),
			GetSafeErrorMessage(err, "Failed to load statistics"), err)
		return
	}

	var marketCap, volume float64
	for _, token := range tokens {
		marketCap += token.MarketCap()
		volume += token.Volume24h
	}

	shared.RespondWithJSON(w, r, http.StatusOK, StatsResponse{
		TotalUsers:     users,
		TotalWallets:   wallets,
		TotalTokens:    len(tokens),
		TotalMarketCap: marketCap,
		TotalVolume24h: volume,
		ChainHeight:    h.chain.Height(),
		ChainValid:     h.chain.Valid(),
	})
}

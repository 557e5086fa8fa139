package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/carboncoin/carboncoin-api/internal/api/shared"
	"github.com/carboncoin/carboncoin-api/internal/domain"
	"github.com/carboncoin/carboncoin-api/internal/service"
)

// Chart windows returned on the token detail view.
const (
	candleWindow        = 50
	emissionChartWindow = 100
)

// TokenHandler serves the public token market views.
type TokenHandler struct {
	tokens *service.TokenService
}

// NewTokenHandler creates a TokenHandler.
func NewTokenHandler(tokens *service.TokenService) *TokenHandler {
	return &TokenHandler{tokens: tokens}
}

// List returns all tokens with their 24 hour movement.
func (h *TokenHandler) List(w http.ResponseWriter, r *http.Request) {
	tokens, err := h.tokens.List(r.Context())
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err),
			GetSafeErrorMessage(err, "Failed to list tokens"), err)
		return
	}

	summaries := make([]TokenSummary, 0, len(tokens))
	for _, token := range tokens {
		summaries = append(summaries, summarize(token))
	}

	shared.RespondWithJSON(w, r, http.StatusOK, summaries)
}

// Get returns one token with its candlestick and emission chart data.
func (h *TokenHandler) Get(w http.ResponseWriter, r *http.Request) {
	symbol := chi.URLParam(r, "symbol")

	token, err := h.tokens.Get(r.Context(), symbol)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err),
			GetSafeErrorMessage(err, "Failed to load token"), err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, TokenDetail{
		TokenSummary:    summarize(token),
		CandlestickData: token.CandleWindow(candleWindow),
		EmissionChart:   token.EmissionWindow(emissionChartWindow),
	})
}

func summarize(token *domain.CompanyToken) TokenSummary {
	return TokenSummary{
		CompanyToken:   token,
		PriceChange24h: token.Change24h(),
		MarketCap:      token.MarketCap(),
	}
}

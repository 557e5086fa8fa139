package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/carboncoin/carboncoin-api/internal/api/middleware"
	"github.com/carboncoin/carboncoin-api/internal/api/shared"
	"github.com/carboncoin/carboncoin-api/internal/domain"
	"github.com/carboncoin/carboncoin-api/internal/emissions"
	"github.com/carboncoin/carboncoin-api/internal/market"
	"github.com/carboncoin/carboncoin-api/internal/store"
)

// defaultReadingWindow caps the emission history response.
const defaultReadingWindow = 100

// EmissionHandler ingests device readings and serves emission history.
type EmissionHandler struct {
	tracker  *emissions.Tracker
	tokens   store.TokenStore
	engine   *market.Engine
	validate *validator.Validate
}

// NewEmissionHandler creates an EmissionHandler.
func NewEmissionHandler(
	tracker *emissions.Tracker,
	tokens store.TokenStore,
	engine *market.Engine,
	validate *validator.Validate,
) *EmissionHandler {
	return &EmissionHandler{tracker: tracker, tokens: tokens, engine: engine, validate: validate}
}

// SubmitReading ingests one emission reading. Company owners may only report
// for their own company; admins may report for any. A validated reading
// updates the token's emissions and reprices it.
func (h *EmissionHandler) SubmitReading(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.GetClaims(r)
	if !ok {
		shared.RespondWithError(w, r, http.StatusUnauthorized, "Authentication required")
		return
	}

	var req ReadingRequest
	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}

	symbol := strings.ToUpper(req.CompanySymbol)
	if claims.Role == domain.RoleCompanyOwner {
		if symbol == "" {
			symbol = claims.CompanySymbol
		}
		if symbol != claims.CompanySymbol {
			shared.RespondWithErrorAndLog(w, r, http.StatusForbidden,
				"Cannot report readings for another company", domain.ErrUnauthorized,
				shared.WithElevatedLogLevel())
			return
		}
	}
	if symbol == "" {
		shared.RespondWithError(w, r, http.StatusBadRequest, "company_symbol is required")
		return
	}

	reading, err := h.tracker.Ingest(r.Context(), symbol, req.DeviceID, req.EmissionValue)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err),
			GetSafeErrorMessage(err, "Failed to ingest reading"), err)
		return
	}

	resp := ReadingResponse{Reading: reading}

	// Rejected readings are reported back but never move the market.
	if reading.Validated {
		token, err := h.tokens.GetBySymbol(r.Context(), symbol)
		if err != nil && !errors.Is(err, store.ErrTokenNotFound) {
			shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err),
				GetSafeErrorMessage(err, "Failed to load token"), err)
			return
		}
		if err == nil {
			token.UpdateEmissions(reading.Emissions)
			resp.Price = h.engine.Reprice(token)
			if err := h.tokens.Update(r.Context(), token); err != nil {
				shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err),
					GetSafeErrorMessage(err, "Failed to persist repriced token"), err)
				return
			}
		}
	}

	shared.RespondWithJSON(w, r, http.StatusCreated, resp)
}

// History returns a company's recent readings, oldest first.
func (h *EmissionHandler) History(w http.ResponseWriter, r *http.Request) {
	symbol := strings.ToUpper(chi.URLParam(r, "symbol"))

	readings := h.tracker.History(symbol, queryLimit(r, defaultReadingWindow))
	if readings == nil {
		readings = []domain.Reading{}
	}

	shared.RespondWithJSON(w, r, http.StatusOK, readings)
}

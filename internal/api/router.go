package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/carboncoin/carboncoin-api/internal/api/middleware"
	"github.com/carboncoin/carboncoin-api/internal/api/shared"
	"github.com/carboncoin/carboncoin-api/internal/domain"
)

// RouterConfig carries the handlers and middleware the router mounts.
type RouterConfig struct {
	Auth      *AuthHandler
	Tokens    *TokenHandler
	Trades    *TradeHandler
	Emissions *EmissionHandler
	Admin     *AdminHandler
	Chain     *ChainHandler

	AuthMiddleware *middleware.AuthMiddleware

	// Metrics instruments requests when set.
	Metrics *middleware.Metrics

	// MetricsHandler serves the /metrics scrape endpoint when set.
	MetricsHandler http.Handler
}

// NewRouter builds the HTTP router. Market data, the ledger and platform
// stats are public; wallet and trading routes require authentication;
// emission reporting and administration are role-gated.
func NewRouter(cfg RouterConfig) chi.Router {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.TraceMiddleware)
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Handler)
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		shared.RespondWithJSON(w, r, http.StatusOK, MessageResponse{Message: "ok"})
	})
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	r.Route("/api", func(r chi.Router) {
		r.Post("/register", cfg.Auth.Register)
		r.Post("/login", cfg.Auth.Login)
		r.Post("/refresh", cfg.Auth.Refresh)

		r.Get("/tokens", cfg.Tokens.List)
		r.Get("/tokens/{symbol}", cfg.Tokens.Get)
		r.Get("/emissions/{symbol}", cfg.Emissions.History)
		r.Get("/blockchain", cfg.Chain.GetChain)
		r.Get("/stats", cfg.Chain.GetStats)

		r.Group(func(r chi.Router) {
			r.Use(cfg.AuthMiddleware.Authenticate)

			r.Post("/logout", cfg.Auth.Logout)
			r.Get("/wallet", cfg.Trades.Wallet)
			r.Get("/portfolio", cfg.Trades.Portfolio)
			r.Get("/trades", cfg.Trades.History)
			r.Post("/buy", cfg.Trades.Buy)
			r.Post("/sell", cfg.Trades.Sell)

			r.Group(func(r chi.Router) {
				r.Use(cfg.AuthMiddleware.RequireRole(domain.RoleCompanyOwner, domain.RoleAdmin))
				r.Post("/emissions/readings", cfg.Emissions.SubmitReading)
			})

			r.Route("/admin", func(r chi.Router) {
				r.Use(cfg.AuthMiddleware.RequireRole(domain.RoleAdmin))

				r.Post("/tokens", cfg.Admin.CreateToken)
				r.Post("/tokens/{symbol}/mint", cfg.Admin.MintToken)
				r.Delete("/tokens/{symbol}", cfg.Admin.DeleteToken)
				r.Get("/applications", cfg.Admin.ListApplications)
				r.Post("/applications/{id}/review", cfg.Admin.ReviewApplication)
				r.Post("/applications/{id}/reject", cfg.Admin.RejectApplication)
				r.Post("/applications/{id}/documents", cfg.Admin.UploadDocument)
			})
		})
	})

	return r
}

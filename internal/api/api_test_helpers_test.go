package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"math/rand"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/require"

	"github.com/carboncoin/carboncoin-api/internal/api"
	"github.com/carboncoin/carboncoin-api/internal/api/middleware"
	"github.com/carboncoin/carboncoin-api/internal/config"
	"github.com/carboncoin/carboncoin-api/internal/domain"
	"github.com/carboncoin/carboncoin-api/internal/emissions"
	"github.com/carboncoin/carboncoin-api/internal/ledger"
	"github.com/carboncoin/carboncoin-api/internal/market"
	"github.com/carboncoin/carboncoin-api/internal/mocks"
	"github.com/carboncoin/carboncoin-api/internal/service"
	"github.com/carboncoin/carboncoin-api/internal/service/auth"
	"github.com/carboncoin/carboncoin-api/internal/verify"
)

// testServer wires the full router against in-memory stores.
type testServer struct {
	t      *testing.T
	router chi.Router

	users   *mocks.UserStore
	wallets *mocks.WalletStore
	tokens  *mocks.TokenStore
	trades  *mocks.TradeStore
	blocks  *mocks.BlockStore
	apps    *mocks.ApplicationStore

	tracker *emissions.Tracker
	chain   *ledger.Ledger

	jwt      auth.JWTService
	userSvc  *service.UserService
	tokenSvc *service.TokenService
	verifier *verify.Verifier
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	jwtSvc, err := auth.NewJWTService(config.AuthConfig{
		JWTSecret:                   "test-secret-key-that-is-long-enough!",
		TokenLifetimeMinutes:        60,
		RefreshTokenLifetimeMinutes: 10080,
	})
	require.NoError(t, err)

	validate := validator.New()
	hasher := auth.NewBcryptVerifier(4)

	users := mocks.NewUserStore()
	wallets := mocks.NewWalletStore()
	tokens := mocks.NewTokenStore()
	trades := mocks.NewTradeStore()
	blocks := &mocks.BlockStore{}
	apps := mocks.NewApplicationStore()

	chain := ledger.New(1, slog.Default())
	tracker := emissions.NewTracker(nil, slog.Default())
	engine := market.NewEngine()
	verifier := verify.NewVerifier(apps, nil, nil)

	userSvc := service.NewUserService(users, wallets, hasher, hasher, jwtSvc, slog.Default())
	tradeSvc := service.NewTradeService(wallets, trades, tokens, blocks, chain,
		mocks.PassthroughTxRunner, slog.Default())
	tokenSvc := service.NewTokenService(tokens, blocks, verifier, tracker, chain,
		rand.New(rand.NewSource(7)), slog.Default())

	router := api.NewRouter(api.RouterConfig{
		Auth:           api.NewAuthHandler(userSvc, validate),
		Tokens:         api.NewTokenHandler(tokenSvc),
		Trades:         api.NewTradeHandler(tradeSvc, wallets, tokenSvc, validate),
		Emissions:      api.NewEmissionHandler(tracker, tokens, engine, validate),
		Admin:          api.NewAdminHandler(tokenSvc, verifier, false, validate),
		Chain:          api.NewChainHandler(chain, users, wallets, tokens),
		AuthMiddleware: middleware.NewAuthMiddleware(jwtSvc),
	})

	return &testServer{
		t: t, router: router,
		users: users, wallets: wallets, tokens: tokens, trades: trades,
		blocks: blocks, apps: apps,
		tracker: tracker, chain: chain,
		jwt: jwtSvc, userSvc: userSvc, tokenSvc: tokenSvc, verifier: verifier,
	}
}

// do performs a request against the router. A non-empty token is sent as a
// bearer credential; a non-nil body is JSON encoded.
func (ts *testServer) do(method, path, token string, body interface{}) *httptest.ResponseRecorder {
	ts.t.Helper()

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		require.NoError(ts.t, err)
		reader = bytes.NewReader(encoded)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, dst interface{}) {
	t.Helper()
	require.NoError(t, json.NewDecoder(rec.Body).Decode(dst))
}

// accountToken creates an account with the given role and returns a valid
// access token for it.
func (ts *testServer) accountToken(username string, role domain.Role, companySymbol string) (*domain.User, string) {
	ts.t.Helper()

	user, err := ts.userSvc.CreateWithRole(context.Background(), username, "password123", role, companySymbol)
	require.NoError(ts.t, err)

	token, err := ts.jwt.GenerateToken(context.Background(), user)
	require.NoError(ts.t, err)
	return user, token
}

// createToken registers a company token through the service layer.
func (ts *testServer) createToken(symbol string, baseline float64) *domain.CompanyToken {
	ts.t.Helper()

	token, err := ts.tokenSvc.Create(context.Background(), service.CreateTokenParams{
		CompanyName:      symbol + " Corp",
		Symbol:           symbol,
		IndustryType:     "manufacturing",
		CompanyScale:     "large",
		EmissionBaseline: baseline,
	})
	require.NoError(ts.t, err)
	return token
}

package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/carboncoin/carboncoin-api/internal/api"
	apimiddleware "github.com/carboncoin/carboncoin-api/internal/api/middleware"
	"github.com/carboncoin/carboncoin-api/internal/config"
	"github.com/carboncoin/carboncoin-api/internal/emissions"
	"github.com/carboncoin/carboncoin-api/internal/ledger"
	"github.com/carboncoin/carboncoin-api/internal/market"
	"github.com/carboncoin/carboncoin-api/internal/platform/objectstore"
	"github.com/carboncoin/carboncoin-api/internal/platform/postgres"
	"github.com/carboncoin/carboncoin-api/internal/service"
	"github.com/carboncoin/carboncoin-api/internal/service/auth"
	"github.com/carboncoin/carboncoin-api/internal/store"
	"github.com/carboncoin/carboncoin-api/internal/task"
	"github.com/carboncoin/carboncoin-api/internal/verify"
)

// application holds the shared dependencies so startup and shutdown stay in
// one place.
type application struct {
	config *config.Config
	logger *slog.Logger
	db     *sql.DB

	tokens store.TokenStore

	chain     *ledger.Ledger
	simulator *task.Simulator

	userService  *service.UserService
	tokenService *service.TokenService

	handler http.Handler
}

// newApplication wires configuration, storage, services and the router.
func newApplication(ctx context.Context, cfg *config.Config, log *slog.Logger) (*application, error) {
	db, err := openDatabase(ctx, cfg.Database.URL)
	if err != nil {
		return nil, err
	}
	if err := runMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}

	userStore := postgres.NewPostgresUserStore(db, log)
	tokenStore := postgres.NewPostgresTokenStore(db, log)
	walletStore := postgres.NewPostgresWalletStore(db, log)
	tradeStore := postgres.NewPostgresTradeStore(db, log)
	readingStore := postgres.NewPostgresReadingStore(db, log)
	applicationStore := postgres.NewPostgresApplicationStore(db, log)
	blockStore := postgres.NewPostgresBlockStore(db, log)

	chain, err := restoreLedger(ctx, cfg.Ledger.Difficulty, blockStore, log)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	tracker := emissions.NewTracker(readingStore, log)
	engine := market.NewEngineWithWeights(
		cfg.Market.EmissionWeight, cfg.Market.SentimentWeight, cfg.Market.VolumeWeight)

	var docs objectstore.DocumentStore
	if cfg.Storage.Enabled {
		docs, err = objectstore.NewMinIO(objectstore.Config{
			Endpoint:  cfg.Storage.Endpoint,
			AccessKey: cfg.Storage.AccessKey,
			SecretKey: cfg.Storage.SecretKey,
			Bucket:    cfg.Storage.Bucket,
			UseSSL:    cfg.Storage.UseSSL,
		})
		if err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("initialize document storage: %w", err)
		}
	}
	verifier := verify.NewVerifier(applicationStore, docs, log)

	jwtService, err := auth.NewJWTService(cfg.Auth)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	hasher := auth.NewBcryptVerifier(cfg.Auth.BcryptCost)

	userService := service.NewUserService(userStore, walletStore, hasher, hasher, jwtService, log)
	tradeService := service.NewTradeService(walletStore, tradeStore, tokenStore, blockStore,
		chain, service.NewTxRunner(db), log)
	tokenService := service.NewTokenService(tokenStore, blockStore, verifier, tracker, chain, nil, log)
	tokenService.SetSeedDays(cfg.Seed.HistoryDays)

	if err := tokenService.RestoreDevices(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("restore device registry: %w", err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics, err := apimiddleware.NewMetrics(registry)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("register metrics: %w", err)
	}

	validate := validator.New()
	router := api.NewRouter(api.RouterConfig{
		Auth:           api.NewAuthHandler(userService, validate),
		Tokens:         api.NewTokenHandler(tokenService),
		Trades:         api.NewTradeHandler(tradeService, walletStore, tokenService, validate),
		Emissions:      api.NewEmissionHandler(tracker, tokenStore, engine, validate),
		Admin:          api.NewAdminHandler(tokenService, verifier, cfg.Storage.Enabled, validate),
		Chain:          api.NewChainHandler(chain, userStore, walletStore, tokenStore),
		AuthMiddleware: apimiddleware.NewAuthMiddleware(jwtService),
		Metrics:        metrics,
		MetricsHandler: promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
	})

	simulator := task.NewSimulator(tracker, tokenStore, engine, task.SimulatorConfig{
		Interval: cfg.Simulator.Interval(),
		Variance: cfg.Simulator.Variance,
	}, log)

	return &application{
		config:       cfg,
		logger:       log,
		db:           db,
		tokens:       tokenStore,
		chain:        chain,
		simulator:    simulator,
		userService:  userService,
		tokenService: tokenService,
		handler:      router,
	}, nil
}

// run bootstraps accounts and demo data, starts the background workers and
// serves HTTP until the context is canceled.
func (app *application) run(ctx context.Context) error {
	if err := app.userService.EnsureAdmin(ctx, app.config.Auth.AdminPassword); err != nil {
		return fmt.Errorf("bootstrap admin account: %w", err)
	}

	if app.config.Seed.Enabled {
		if err := app.seedDemoData(ctx); err != nil {
			return fmt.Errorf("seed demo data: %w", err)
		}
	}

	if app.config.Simulator.Enabled {
		feeds, err := app.simulatorFeeds(ctx)
		if err != nil {
			return fmt.Errorf("build simulator feeds: %w", err)
		}
		app.simulator.Start(feeds)
		defer app.simulator.Stop()
	}

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", app.config.Server.Port),
		Handler:      app.handler,
		ReadTimeout:  time.Duration(app.config.Server.ReadTimeoutSeconds) * time.Second,
		WriteTimeout: time.Duration(app.config.Server.WriteTimeoutSeconds) * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		app.logger.Info("server listening",
			slog.Int("port", app.config.Server.Port),
			slog.Int("chain_height", app.chain.Height()))
		serverErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serverErr:
		return err
	case <-ctx.Done():
	}

	app.logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(),
		time.Duration(app.config.Server.ShutdownTimeoutSeconds)*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown server: %w", err)
	}
	return nil
}

// simulatorFeeds builds one feed per persisted token.
func (app *application) simulatorFeeds(ctx context.Context) ([]task.CompanyFeed, error) {
	tokens, err := app.tokens.List(ctx)
	if err != nil {
		return nil, err
	}

	feeds := make([]task.CompanyFeed, 0, len(tokens))
	for _, token := range tokens {
		feeds = append(feeds, task.CompanyFeed{
			Symbol:   token.Symbol,
			DeviceID: service.DeviceID(token.Symbol),
			Baseline: token.EmissionBaseline,
			Variance: app.config.Simulator.Variance,
		})
	}
	return feeds, nil
}

func (app *application) close() {
	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error("failed to close database", "error", err.Error())
		}
	}
}

// restoreLedger rebuilds the chain from persisted blocks. On first boot the
// fresh genesis block is persisted so later restarts validate against it.
func restoreLedger(
	ctx context.Context,
	difficulty int,
	blocks store.BlockStore,
	log *slog.Logger,
) (*ledger.Ledger, error) {
	persisted, err := blocks.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("load persisted chain: %w", err)
	}

	if len(persisted) == 0 {
		chain := ledger.New(difficulty, log)
		if err := blocks.Append(ctx, chain.Blocks()[0]); err != nil && !errors.Is(err, store.ErrDuplicate) {
			return nil, fmt.Errorf("persist genesis block: %w", err)
		}
		return chain, nil
	}

	chain, err := ledger.Restore(difficulty, persisted, log)
	if err != nil {
		return nil, fmt.Errorf("restore chain: %w", err)
	}
	return chain, nil
}

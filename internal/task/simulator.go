// Package task runs the platform's background workers.
package task

import (
	"context"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/carboncoin/carboncoin-api/internal/emissions"
	"github.com/carboncoin/carboncoin-api/internal/market"
	"github.com/carboncoin/carboncoin-api/internal/store"
)

// SimulatorConfig tunes the synthetic emission feed.
type SimulatorConfig struct {
	// Interval between readings per company.
	Interval time.Duration

	// Variance is the maximum relative deviation of a synthetic reading
	// from the company's baseline.
	Variance float64
}

// DefaultSimulatorConfig returns the standard feed settings.
func DefaultSimulatorConfig() SimulatorConfig {
	return SimulatorConfig{
		Interval: 30 * time.Second,
		Variance: 0.1,
	}
}

// CompanyFeed describes one simulated device.
type CompanyFeed struct {
	Symbol   string
	DeviceID string
	Baseline float64

	// Variance overrides the config value when non-zero.
	Variance float64
}

// Simulator generates synthetic IoT emission readings for registered
// companies, feeding them through the same validation path real devices
// would use. Validated readings update the token's emissions and reprice it.
type Simulator struct {
	tracker *emissions.Tracker
	tokens  store.TokenStore
	engine  *market.Engine
	config  SimulatorConfig

	ctx        context.Context
	cancelFunc context.CancelFunc
	wg         sync.WaitGroup
	logger     *slog.Logger
}

// NewSimulator creates a simulator. Call Start to launch the feeds.
func NewSimulator(
	tracker *emissions.Tracker,
	tokens store.TokenStore,
	engine *market.Engine,
	config SimulatorConfig,
	logger *slog.Logger,
) *Simulator {
	if config.Interval <= 0 {
		config.Interval = DefaultSimulatorConfig().Interval
	}
	if config.Variance <= 0 {
		config.Variance = DefaultSimulatorConfig().Variance
	}
	if logger == nil {
		logger = slog.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Simulator{
		tracker:    tracker,
		tokens:     tokens,
		engine:     engine,
		config:     config,
		ctx:        ctx,
		cancelFunc: cancel,
		logger:     logger.With(slog.String("component", "iot_simulator")),
	}
}

// Start launches one worker per feed. Feeds for unregistered devices emit
// rejected readings until the device appears.
func (s *Simulator) Start(feeds []CompanyFeed) {
	for i, feed := range feeds {
		s.wg.Add(1)
		rng := rand.New(rand.NewSource(time.Now().UnixNano() + int64(i)))
		go s.run(feed, rng)
	}

	s.logger.Info("emission simulation started",
		slog.Int("feeds", len(feeds)),
		slog.Duration("interval", s.config.Interval))
}

// Stop cancels all workers and waits for them to drain.
func (s *Simulator) Stop() {
	s.cancelFunc()
	s.wg.Wait()
	s.logger.Info("emission simulation stopped")
}

func (s *Simulator) run(feed CompanyFeed, rng *rand.Rand) {
	defer s.wg.Done()

	variance := feed.Variance
	if variance <= 0 {
		variance = s.config.Variance
	}

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.tick(feed, variance, rng)
		}
	}
}

// tick produces one synthetic reading and runs it through validation,
// emission tracking and repricing.
func (s *Simulator) tick(feed CompanyFeed, variance float64, rng *rand.Rand) {
	value := feed.Baseline * (1 + (rng.Float64()*2-1)*variance)
	if value < 0 {
		value = 0
	}

	reading, err := s.tracker.Ingest(s.ctx, feed.Symbol, feed.DeviceID, value)
	if err != nil {
		s.logger.Warn("simulated reading rejected",
			slog.String("symbol", feed.Symbol),
			slog.String("device_id", feed.DeviceID),
			slog.String("error", err.Error()))
		return
	}
	if !reading.Validated {
		s.logger.Debug("simulated reading failed validation",
			slog.String("symbol", feed.Symbol),
			slog.Float64("value", value))
		return
	}

	token, err := s.tokens.GetBySymbol(s.ctx, feed.Symbol)
	if err != nil {
		s.logger.Warn("token lookup failed for simulated reading",
			slog.String("symbol", feed.Symbol),
			slog.String("error", err.Error()))
		return
	}

	token.UpdateEmissions(value)
	price := s.engine.Reprice(token)

	if err := s.tokens.Update(s.ctx, token); err != nil {
		s.logger.Error("failed to persist repriced token",
			slog.String("symbol", feed.Symbol),
			slog.String("error", err.Error()))
		return
	}

	s.logger.Info("emission update applied",
		slog.String("symbol", feed.Symbol),
		slog.Float64("emissions", value),
		slog.Float64("price", price),
		slog.Float64("performance", token.EmissionPerformance()))
}

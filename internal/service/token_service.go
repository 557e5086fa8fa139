package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"strings"
	"time"

	"github.com/carboncoin/carboncoin-api/internal/domain"
	"github.com/carboncoin/carboncoin-api/internal/emissions"
	"github.com/carboncoin/carboncoin-api/internal/ledger"
	"github.com/carboncoin/carboncoin-api/internal/platform/logger"
	"github.com/carboncoin/carboncoin-api/internal/store"
	"github.com/carboncoin/carboncoin-api/internal/verify"
)

const (
	// initialMintRatio is the share of the total supply minted to the
	// company's treasury address when a token is created.
	initialMintRatio = 0.3

	// adminMinerAddress tags blocks mined during administrative flows.
	adminMinerAddress = "ADMIN"

	// defaultSeedDays is the length of synthetic history generated for a
	// freshly created token.
	defaultSeedDays = 100
)

// CreateTokenParams describes a company token to create.
type CreateTokenParams struct {
	CompanyName        string
	Symbol             string
	IndustryType       string
	CompanyScale       string
	RegistrationNumber string
	EmissionBaseline   float64
	InitialSupply      float64
	Location           string
}

// TokenService manages the company token lifecycle: verification, creation
// with seeded history and the initial treasury mint, and removal.
type TokenService struct {
	tokens   store.TokenStore
	blocks   store.BlockStore
	verifier *verify.Verifier
	tracker  *emissions.Tracker
	chain    *ledger.Ledger
	seedDays int
	rng      *rand.Rand
	logger   *slog.Logger
}

// NewTokenService creates a TokenService. A nil rng falls back to a
// time-seeded source.
func NewTokenService(
	tokens store.TokenStore,
	blocks store.BlockStore,
	verifier *verify.Verifier,
	tracker *emissions.Tracker,
	chain *ledger.Ledger,
	rng *rand.Rand,
	log *slog.Logger,
) *TokenService {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if log == nil {
		log = slog.Default()
	}
	return &TokenService{
		tokens:   tokens,
		blocks:   blocks,
		verifier: verifier,
		tracker:  tracker,
		chain:    chain,
		seedDays: defaultSeedDays,
		rng:      rng,
		logger:   log.With(slog.String("component", "token_service")),
	}
}

// Create verifies the company, creates its token with seeded history, mints
// the initial treasury supply on the ledger and registers the company's
// first IoT device.
func (s *TokenService) Create(ctx context.Context, params CreateTokenParams) (*domain.CompanyToken, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if params.InitialSupply == 0 {
		params.InitialSupply = 1_000_000
	}
	if params.Location == "" {
		params.Location = "Industrial Site"
	}

	app, err := s.verifier.Submit(ctx,
		params.CompanyName, params.IndustryType, params.CompanyScale,
		params.RegistrationNumber, params.EmissionBaseline)
	if err != nil {
		return nil, err
	}
	app, err = s.verifier.AutoApprove(ctx, app.ID)
	if err != nil {
		return nil, err
	}
	if app.Status != domain.ApplicationVerified {
		return nil, fmt.Errorf("%w: %s", ErrApplicationRejected, app.RejectionReason)
	}

	token, err := domain.NewCompanyToken(
		params.CompanyName, params.Symbol,
		params.InitialSupply, params.EmissionBaseline,
		params.IndustryType, params.CompanyScale)
	if err != nil {
		return nil, err
	}
	token.Verified = true
	token.OwnerAddress = treasuryAddress(token.Symbol)
	token.SeedHistory(s.seedDays, s.rng)

	if err := s.mint(ctx, token, token.TotalSupply*initialMintRatio, token.OwnerAddress); err != nil {
		return nil, err
	}

	device, err := domain.NewDevice(token.Symbol, DeviceID(token.Symbol), "CO2_SENSOR", params.Location)
	if err != nil {
		return nil, err
	}
	if err := s.tracker.RegisterDevice(device); err != nil && !errors.Is(err, emissions.ErrDeviceExists) {
		return nil, err
	}

	if err := s.tokens.Create(ctx, token); err != nil {
		return nil, err
	}

	log.Info("token created",
		slog.String("symbol", token.Symbol),
		slog.String("company_name", token.CompanyName),
		slog.Float64("circulating_supply", token.CirculatingSupply))

	return token, nil
}

// SetSeedDays overrides the synthetic history length for new tokens.
func (s *TokenService) SetSeedDays(days int) {
	if days > 0 {
		s.seedDays = days
	}
}

// RestoreDevices re-registers each persisted token's default sensor and
// reloads its stored reading history. The device registry and reading
// history live in memory, so both must be rebuilt on startup.
func (s *TokenService) RestoreDevices(ctx context.Context) error {
	tokens, err := s.tokens.List(ctx)
	if err != nil {
		return err
	}

	for _, token := range tokens {
		device, err := domain.NewDevice(token.Symbol, DeviceID(token.Symbol), "CO2_SENSOR", "Industrial Site")
		if err != nil {
			return err
		}
		if err := s.tracker.RegisterDevice(device); err != nil && !errors.Is(err, emissions.ErrDeviceExists) {
			return err
		}
		if err := s.tracker.Restore(ctx, token.Symbol); err != nil {
			return err
		}
	}
	return nil
}

// Delete removes a token and its device registrations.
func (s *TokenService) Delete(ctx context.Context, symbol string) error {
	symbol = strings.ToUpper(symbol)
	if err := s.tokens.Delete(ctx, symbol); err != nil {
		return err
	}
	s.tracker.RemoveCompany(symbol)
	return nil
}

// Get retrieves one token with its histories.
func (s *TokenService) Get(ctx context.Context, symbol string) (*domain.CompanyToken, error) {
	return s.tokens.GetBySymbol(ctx, symbol)
}

// List retrieves all tokens.
func (s *TokenService) List(ctx context.Context) ([]*domain.CompanyToken, error) {
	return s.tokens.List(ctx)
}

// Mint issues additional supply to an address, mines the MINT block and
// persists the updated token. An empty address mints to the treasury.
func (s *TokenService) Mint(ctx context.Context, symbol string, amount float64, toAddress string) (*domain.CompanyToken, error) {
	token, err := s.tokens.GetBySymbol(ctx, symbol)
	if err != nil {
		return nil, err
	}
	if toAddress == "" {
		toAddress = token.OwnerAddress
	}

	if err := s.mint(ctx, token, amount, toAddress); err != nil {
		return nil, err
	}
	if err := s.tokens.Update(ctx, token); err != nil {
		return nil, err
	}

	return token, nil
}

// mint checks the supply cap, issues the MINT transaction on the ledger and
// mines the block.
func (s *TokenService) mint(ctx context.Context, token *domain.CompanyToken, amount float64, toAddress string) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := token.Mint(amount); err != nil {
		return err
	}

	tx, err := domain.NewTransaction(
		domain.TransactionMint, domain.MintAddress, toAddress, amount, token.Symbol)
	if err != nil {
		return err
	}
	if err := s.chain.Submit(tx); err != nil {
		return fmt.Errorf("submit mint transaction: %w", err)
	}

	block, err := s.chain.MinePending(adminMinerAddress)
	if err != nil {
		return fmt.Errorf("mine mint block: %w", err)
	}

	if s.blocks != nil {
		if err := s.blocks.Append(ctx, block); err != nil {
			log.Error("failed to persist mint block",
				slog.String("error", err.Error()),
				slog.Int("index", block.Index))
		}
	}

	log.Info("supply minted",
		slog.String("symbol", token.Symbol),
		slog.Float64("amount", amount),
		slog.String("to_address", toAddress))

	return nil
}

// treasuryAddress is the company's on-chain treasury address.
func treasuryAddress(symbol string) string {
	return "WALLET_" + strings.ToUpper(symbol)
}

// DeviceID names a company's first emission sensor.
func DeviceID(symbol string) string {
	return "IOT_" + strings.ToUpper(symbol) + "_001"
}

package domain

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"strings"
	"time"

	"github.com/google/uuid"
)

// historyCap bounds the in-memory price, emission and candle histories.
const historyCap = 100

// candlePeriod is the width of one OHLCV candle.
const candlePeriod = 24 * time.Hour

// CompanyToken validation errors.
var (
	ErrEmptyCompanyName = errors.New("company name cannot be empty")
	ErrEmptySymbol      = errors.New("token symbol cannot be empty")
	ErrSymbolTooLong    = errors.New("token symbol must be at most 8 characters long")
	ErrInvalidSupply    = errors.New("total supply must be positive")
	ErrInvalidBaseline  = errors.New("emission baseline cannot be negative")
)

// Candle is one OHLCV bar of the token's daily price series.
type Candle struct {
	Timestamp int64   `json:"timestamp"`
	Open      float64 `json:"open"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Close     float64 `json:"close"`
	Volume    float64 `json:"volume"`
}

// PricePoint is one sample of the token's price history.
type PricePoint struct {
	Timestamp int64   `json:"timestamp"`
	Price     float64 `json:"price"`
}

// EmissionPoint is one sample of the token's emission history.
type EmissionPoint struct {
	Timestamp int64   `json:"timestamp"`
	Emissions float64 `json:"emissions"`
}

// Trade is one executed buy or sell.
type Trade struct {
	Timestamp int64           `json:"timestamp"`
	Symbol    string          `json:"token_symbol,omitempty"`
	Amount    float64         `json:"amount"`
	Price     float64         `json:"price"`
	Fee       float64         `json:"fee,omitempty"`
	Type      TransactionType `json:"type"`
}

// PriceChange summarizes the token's 24 hour movement.
type PriceChange struct {
	Change        float64 `json:"change"`
	ChangePercent float64 `json:"change_percent"`
}

// CompanyToken is a carbon token issued for a verified company. Its price
// tracks the company's emission performance against its baseline.
type CompanyToken struct {
	ID                uuid.UUID `json:"token_id"`
	CompanyName       string    `json:"company_name"`
	Symbol            string    `json:"symbol"`
	TotalSupply       float64   `json:"total_supply"`
	CirculatingSupply float64   `json:"circulating_supply"`
	EmissionBaseline  float64   `json:"emission_baseline"`
	CurrentEmissions  float64   `json:"current_emissions"`
	IndustryType      string    `json:"industry_type"`
	CompanyScale      string    `json:"company_scale"`
	Price             float64   `json:"price"`
	Volume24h         float64   `json:"volume_24h"`
	Verified          bool      `json:"is_verified"`
	OwnerAddress      string    `json:"owner_address,omitempty"`
	CreatedAt         time.Time `json:"created_at"`

	PriceHistory    []PricePoint    `json:"-"`
	EmissionHistory []EmissionPoint `json:"-"`
	Candles         []Candle        `json:"-"`
	Trades          []Trade         `json:"-"`
}

// NewCompanyToken creates a token for a company. The symbol is uppercased.
// The token starts at $100 with no history; callers seed history explicitly
// for newly registered tokens.
func NewCompanyToken(
	companyName, symbol string,
	totalSupply, emissionBaseline float64,
	industryType, companyScale string,
) (*CompanyToken, error) {
	token := &CompanyToken{
		ID:               uuid.New(),
		CompanyName:      companyName,
		Symbol:           strings.ToUpper(symbol),
		TotalSupply:      totalSupply,
		EmissionBaseline: emissionBaseline,
		CurrentEmissions: emissionBaseline,
		IndustryType:     industryType,
		CompanyScale:     companyScale,
		Price:            100.0,
		CreatedAt:        time.Now().UTC(),
	}

	if err := token.Validate(); err != nil {
		return nil, err
	}

	return token, nil
}

// Validate checks the token carries consistent data.
func (t *CompanyToken) Validate() error {
	if t.ID == uuid.Nil {
		return ErrInvalidID
	}
	if t.CompanyName == "" {
		return ErrEmptyCompanyName
	}
	if t.Symbol == "" {
		return ErrEmptySymbol
	}
	if len(t.Symbol) > 8 {
		return ErrSymbolTooLong
	}
	if t.TotalSupply <= 0 {
		return ErrInvalidSupply
	}
	if t.EmissionBaseline < 0 {
		return ErrInvalidBaseline
	}
	return nil
}

// Mint adds newly issued tokens to the circulating supply. Issuance that
// would push circulation past the total supply is rejected.
func (t *CompanyToken) Mint(amount float64) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	if t.CirculatingSupply+amount > t.TotalSupply {
		return fmt.Errorf("%w: circulating %.2f + %.2f exceeds total %.2f",
			ErrSupplyExceeded, t.CirculatingSupply, amount, t.TotalSupply)
	}
	t.CirculatingSupply += amount
	return nil
}

// SeedHistory generates `days` days of synthetic OHLCV and emission history
// ending now, so a freshly registered token presents a realistic chart. The
// random source is injected so tests stay deterministic.
func (t *CompanyToken) SeedHistory(days int, rng *rand.Rand) {
	basePrice := 100.0
	baseEmission := t.EmissionBaseline
	now := time.Now()

	for i := days; i > 0; i-- {
		ts := now.Add(-time.Duration(i) * candlePeriod).Unix()

		open := basePrice
		dailyChange := rng.Float64()*0.16 - 0.08 // ±8% daily
		closePrice := open * (1 + dailyChange)

		high := math.Max(open, closePrice) * (1 + rng.Float64()*0.05)
		low := math.Min(open, closePrice) * (1 - rng.Float64()*0.05)
		volume := 1000 + rng.Float64()*9000

		t.Candles = append(t.Candles, Candle{
			Timestamp: ts,
			Open:      roundCents(open),
			High:      roundCents(high),
			Low:       roundCents(low),
			Close:     roundCents(closePrice),
			Volume:    roundCents(volume),
		})
		t.PriceHistory = append(t.PriceHistory, PricePoint{Timestamp: ts, Price: roundCents(closePrice)})
		basePrice = closePrice

		emissionChange := rng.Float64()*0.2 - 0.1 // ±10% walk
		baseEmission = baseEmission * (1 + emissionChange)
		t.EmissionHistory = append(t.EmissionHistory, EmissionPoint{Timestamp: ts, Emissions: roundCents(baseEmission)})
	}

	if n := len(t.Candles); n > 0 {
		t.Price = t.Candles[n-1].Close
	}
	if n := len(t.EmissionHistory); n > 0 {
		t.CurrentEmissions = t.EmissionHistory[n-1].Emissions
	}
	t.trimHistories()
}

// UpdateEmissions records a validated emission reading.
func (t *CompanyToken) UpdateEmissions(emissions float64) {
	t.CurrentEmissions = emissions
	t.EmissionHistory = append(t.EmissionHistory, EmissionPoint{
		Timestamp: time.Now().Unix(),
		Emissions: emissions,
	})
	t.trimHistories()
}

// UpdatePrice records a new price and rolls the candle series: a new daily
// candle opens when the last one is older than the candle period, otherwise
// the current candle's high/low/close are updated in place.
func (t *CompanyToken) UpdatePrice(price float64) {
	now := time.Now().Unix()

	t.Price = price
	t.PriceHistory = append(t.PriceHistory, PricePoint{Timestamp: now, Price: price})

	if len(t.Candles) == 0 {
		t.Candles = append(t.Candles, Candle{
			Timestamp: now,
			Open:      price,
			High:      price,
			Low:       price,
			Close:     price,
		})
		t.trimHistories()
		return
	}

	last := &t.Candles[len(t.Candles)-1]
	if now-last.Timestamp > int64(candlePeriod.Seconds()) {
		t.Candles = append(t.Candles, Candle{
			Timestamp: now,
			Open:      last.Close,
			High:      price,
			Low:       price,
			Close:     price,
		})
	} else {
		last.High = math.Max(last.High, price)
		last.Low = math.Min(last.Low, price)
		last.Close = price
	}
	t.trimHistories()
}

// RecordTrade adds an executed trade to the token's stats and the current
// candle's volume.
func (t *CompanyToken) RecordTrade(amount, price float64, txType TransactionType) {
	t.Trades = append(t.Trades, Trade{
		Timestamp: time.Now().Unix(),
		Symbol:    t.Symbol,
		Amount:    amount,
		Price:     price,
		Type:      txType,
	})
	t.Volume24h += amount * price

	if len(t.Candles) > 0 {
		t.Candles[len(t.Candles)-1].Volume += amount
	}
}

// EmissionPerformance is the ratio of current emissions to the baseline.
// Below 1.0 the company beats its baseline; above 1.0 it exceeds it.
// A zero baseline reads as neutral.
func (t *CompanyToken) EmissionPerformance() float64 {
	if t.EmissionBaseline == 0 {
		return 1.0
	}
	return t.CurrentEmissions / t.EmissionBaseline
}

// Change24h compares the closes of the last two candles.
func (t *CompanyToken) Change24h() PriceChange {
	if len(t.Candles) < 2 {
		return PriceChange{}
	}

	yesterday := t.Candles[len(t.Candles)-2].Close
	today := t.Candles[len(t.Candles)-1].Close
	change := today - yesterday

	var pct float64
	if yesterday > 0 {
		pct = change / yesterday * 100
	}

	return PriceChange{
		Change:        roundCents(change),
		ChangePercent: roundCents(pct),
	}
}

// CandleWindow returns up to the last n candles.
func (t *CompanyToken) CandleWindow(n int) []Candle {
	return lastN(t.Candles, n)
}

// PriceWindow returns up to the last n price points.
func (t *CompanyToken) PriceWindow(n int) []PricePoint {
	return lastN(t.PriceHistory, n)
}

// EmissionWindow returns up to the last n emission points.
func (t *CompanyToken) EmissionWindow(n int) []EmissionPoint {
	return lastN(t.EmissionHistory, n)
}

// MarketCap is the value of the circulating supply at the current price.
func (t *CompanyToken) MarketCap() float64 {
	return t.Price * t.CirculatingSupply
}

func (t *CompanyToken) trimHistories() {
	t.PriceHistory = lastN(t.PriceHistory, historyCap)
	t.EmissionHistory = lastN(t.EmissionHistory, historyCap)
	t.Candles = lastN(t.Candles, historyCap)
}

func lastN[T any](s []T, n int) []T {
	if n <= 0 || len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}

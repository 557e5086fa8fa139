// Package market prices carbon tokens from their emission performance.
package market

import (
	"math"

	"github.com/carboncoin/carboncoin-api/internal/domain"
)

// Engine weight defaults. Emission performance dominates; sentiment and
// trading volume nudge the price.
const (
	DefaultEmissionWeight  = 0.5
	DefaultSentimentWeight = 0.3
	DefaultVolumeWeight    = 0.2

	// NeutralSentiment leaves the sentiment term at zero.
	NeutralSentiment = 0.5

	// maxMovePercent caps a single repricing step.
	maxMovePercent = 50.0

	// priceFloor keeps tokens tradeable after sustained bad performance.
	priceFloor = 0.01
)

// Engine converts emission performance into price movements.
type Engine struct {
	emissionWeight  float64
	sentimentWeight float64
	volumeWeight    float64
}

// NewEngine creates an engine with the default weights.
func NewEngine() *Engine {
	return NewEngineWithWeights(DefaultEmissionWeight, DefaultSentimentWeight, DefaultVolumeWeight)
}

// NewEngineWithWeights creates an engine with explicit weights. Non-positive
// weights fall back to the defaults.
func NewEngineWithWeights(emission, sentiment, volume float64) *Engine {
	if emission <= 0 {
		emission = DefaultEmissionWeight
	}
	if sentiment <= 0 {
		sentiment = DefaultSentimentWeight
	}
	if volume <= 0 {
		volume = DefaultVolumeWeight
	}
	return &Engine{
		emissionWeight:  emission,
		sentimentWeight: sentiment,
		volumeWeight:    volume,
	}
}

// NextPrice computes the next price for a token.
//
// performance is current emissions over baseline: below 1.0 the company beats
// its baseline and the price rises, above 1.0 it falls. sentiment is in
// [0, 1] with 0.5 neutral. volume dampens through log1p so whales do not
// dominate. The step is clamped to ±50% and the result floors at $0.01.
func (e *Engine) NextPrice(current, performance, volume, sentiment float64) float64 {
	var emissionImpact float64
	if performance < 1.0 {
		emissionImpact = (1.0 - performance) * e.emissionWeight
	} else {
		emissionImpact = -(performance - 1.0) * e.emissionWeight
	}

	sentimentImpact := (sentiment - NeutralSentiment) * 2 * e.sentimentWeight
	volumeImpact := math.Log1p(volume) * 0.01 * e.volumeWeight

	movePercent := (emissionImpact + sentimentImpact + volumeImpact) * 100
	movePercent = math.Max(math.Min(movePercent, maxMovePercent), -maxMovePercent)

	next := current * (1 + movePercent/100)
	next = math.Max(next, priceFloor)

	return math.Round(next*100) / 100
}

// Reprice applies NextPrice to a token using its own performance and 24h
// volume with neutral sentiment, and rolls the token's candle series.
func (e *Engine) Reprice(token *domain.CompanyToken) float64 {
	next := e.NextPrice(token.Price, token.EmissionPerformance(), token.Volume24h, NeutralSentiment)
	token.UpdatePrice(next)
	return next
}

// CandleSummary condenses a token's recent price history into a single bar.
type CandleSummary struct {
	Open          float64 `json:"open"`
	High          float64 `json:"high"`
	Low           float64 `json:"low"`
	Close         float64 `json:"close"`
	Color         string  `json:"color"`
	ChangePercent float64 `json:"change_percent"`
}

// Summarize builds a CandleSummary over the token's last 100 price points.
func Summarize(token *domain.CompanyToken) CandleSummary {
	history := token.PriceWindow(100)
	if len(history) < 2 {
		return CandleSummary{
			Open:  token.Price,
			High:  token.Price,
			Low:   token.Price,
			Close: token.Price,
			Color: "green",
		}
	}

	open := history[0].Price
	closePrice := history[len(history)-1].Price
	high, low := open, open

	for _, p := range history {
		high = math.Max(high, p.Price)
		low = math.Min(low, p.Price)
	}

	color := "green"
	if closePrice < open {
		color = "red"
	}

	var changePct float64
	if open > 0 {
		changePct = math.Round((closePrice-open)/open*10000) / 100
	}

	return CandleSummary{
		Open:          math.Round(open*100) / 100,
		High:          math.Round(high*100) / 100,
		Low:           math.Round(low*100) / 100,
		Close:         math.Round(closePrice*100) / 100,
		Color:         color,
		ChangePercent: changePct,
	}
}

// Package api implements the HTTP handlers for the trading platform.
package api

import "github.com/carboncoin/carboncoin-api/internal/domain"

// RegisterRequest is the payload for user registration.
type RegisterRequest struct {
	Username string `json:"username" validate:"required,max=64"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

// LoginRequest is the payload for user login.
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// RefreshRequest is the payload for refreshing a token pair.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// AuthResponse returns the authenticated user and a token pair.
type AuthResponse struct {
	User         *domain.User `json:"user"`
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
}

// TradeRequest is the payload for buying or selling tokens.
type TradeRequest struct {
	TokenSymbol string  `json:"token_symbol" validate:"required,max=8"`
	Amount      float64 `json:"amount" validate:"required,gt=0"`
}

// CreateTokenRequest is the admin payload for registering a company token.
type CreateTokenRequest struct {
	CompanyName        string  `json:"company_name" validate:"required"`
	Symbol             string  `json:"symbol" validate:"required,max=8"`
	IndustryType       string  `json:"industry_type" validate:"required"`
	CompanyScale       string  `json:"company_scale" validate:"required,oneof=small medium large"`
	RegistrationNumber string  `json:"registration_number"`
	EmissionBaseline   float64 `json:"emission_baseline" validate:"gte=0"`
	InitialSupply      float64 `json:"initial_supply" validate:"gte=0"`
	Location           string  `json:"location"`
}

// MintRequest is the admin payload for issuing additional token supply. An
// empty to_address mints to the company treasury.
type MintRequest struct {
	Amount    float64 `json:"amount" validate:"required,gt=0"`
	ToAddress string  `json:"to_address" validate:"omitempty,max=64"`
}

// ReadingRequest is the payload for submitting an emission reading.
type ReadingRequest struct {
	CompanySymbol string  `json:"company_symbol" validate:"omitempty,max=8"`
	DeviceID      string  `json:"device_id" validate:"required"`
	EmissionValue float64 `json:"emission_value" validate:"gte=0"`
}

// ReadingResponse reports an ingested reading and the resulting price.
type ReadingResponse struct {
	Reading domain.Reading `json:"reading"`
	Price   float64        `json:"price,omitempty"`
}

// ReviewRequest is the admin payload for scoring an application.
type ReviewRequest struct {
	Scores map[string]float64 `json:"scores" validate:"required,min=1,dive,gte=0,lte=100"`
}

// RejectRequest is the admin payload for rejecting an application.
type RejectRequest struct {
	Reason string `json:"reason" validate:"required"`
}

// TokenSummary is one row of the token list.
type TokenSummary struct {
	*domain.CompanyToken
	PriceChange24h domain.PriceChange `json:"price_change_24h"`
	MarketCap      float64            `json:"market_cap"`
}

// TokenDetail is the full token view with chart data.
type TokenDetail struct {
	TokenSummary
	CandlestickData []domain.Candle        `json:"candlestick_data"`
	EmissionChart   []domain.EmissionPoint `json:"emission_chart"`
}

// PortfolioHolding is one priced position in a portfolio.
type PortfolioHolding struct {
	TokenSymbol string  `json:"token_symbol"`
	CompanyName string  `json:"company_name,omitempty"`
	Amount      float64 `json:"amount"`
	Price       float64 `json:"price"`
	Value       float64 `json:"value"`
}

// PortfolioResponse is the wallet's priced position summary.
type PortfolioResponse struct {
	WalletAddress string             `json:"wallet_address"`
	USDBalance    float64            `json:"usd_balance"`
	Holdings      []PortfolioHolding `json:"holdings"`
	TotalValue    float64            `json:"total_value"`
}

// ChainResponse describes the ledger state.
type ChainResponse struct {
	Height              int             `json:"height"`
	Valid               bool            `json:"valid"`
	PendingTransactions int             `json:"pending_transactions"`
	Blocks              []*domain.Block `json:"blocks"`
}

// StatsResponse is the platform-wide summary.
type StatsResponse struct {
	TotalUsers     int     `json:"total_users"`
	TotalWallets   int     `json:"total_wallets"`
	TotalTokens    int     `json:"total_tokens"`
	TotalMarketCap float64 `json:"total_market_cap"`
	TotalVolume24h float64 `json:"total_volume_24h"`
	ChainHeight    int     `json:"chain_height"`
	ChainValid     bool    `json:"chain_valid"`
}

// MessageResponse is a plain acknowledgment body.
type MessageResponse struct {
	Message string `json:"message"`
}

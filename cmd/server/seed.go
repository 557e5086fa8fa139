package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/carboncoin/carboncoin-api/internal/domain"
	"github.com/carboncoin/carboncoin-api/internal/service"
	"github.com/carboncoin/carboncoin-api/internal/store"
)

const (
	demoOwnerPassword  = "owner123"
	demoTraderUsername = "trader1"
	demoTraderPassword = "trader123"
)

// demoCompanies are the companies created on a fresh database so the platform
// has something to trade against out of the box.
var demoCompanies = []service.CreateTokenParams{
	{
		CompanyName:      "GreenTech Industries",
		Symbol:           "GTI",
		IndustryType:     "Manufacturing",
		CompanyScale:     "large",
		EmissionBaseline: 1000.0,
		InitialSupply:    1_000_000,
		Location:         "Factory A - California",
	},
	{
		CompanyName:      "EcoSteel Corp",
		Symbol:           "ESC",
		IndustryType:     "Steel Production",
		CompanyScale:     "large",
		EmissionBaseline: 2500.0,
		InitialSupply:    800_000,
		Location:         "Steel Mill - Pittsburgh",
	},
	{
		CompanyName:      "CleanEnergy Solutions",
		Symbol:           "CES",
		IndustryType:     "Energy",
		CompanyScale:     "medium",
		EmissionBaseline: 500.0,
		InitialSupply:    500_000,
		Location:         "Power Plant - Texas",
	},
	{
		CompanyName:      "SustainableTextiles",
		Symbol:           "STX",
		IndustryType:     "Textile",
		CompanyScale:     "medium",
		EmissionBaseline: 300.0,
		InitialSupply:    600_000,
		Location:         "Textile Factory - India",
	},
}

// seedDemoData creates the demo companies and accounts on an empty database.
// A database that already holds tokens is left untouched.
func (app *application) seedDemoData(ctx context.Context) error {
	existing, err := app.tokens.List(ctx)
	if err != nil {
		return fmt.Errorf("check existing tokens: %w", err)
	}
	if len(existing) > 0 {
		app.logger.Debug("skipping demo seed, tokens already present",
			slog.Int("count", len(existing)))
		return nil
	}

	for _, company := range demoCompanies {
		token, err := app.tokenService.Create(ctx, company)
		if err != nil {
			return fmt.Errorf("create demo token %s: %w", company.Symbol, err)
		}

		ownerUsername := "owner_" + strings.ToLower(company.Symbol)
		_, err = app.userService.CreateWithRole(ctx,
			ownerUsername, demoOwnerPassword, domain.RoleCompanyOwner, company.Symbol)
		if err != nil && !errors.Is(err, store.ErrUsernameExists) {
			return fmt.Errorf("create demo owner %s: %w", ownerUsername, err)
		}

		app.logger.Info("demo company seeded",
			slog.String("symbol", token.Symbol),
			slog.String("company_name", token.CompanyName),
			slog.Float64("price", token.Price))
	}

	_, err = app.userService.Register(ctx, demoTraderUsername, demoTraderPassword)
	if err != nil && !errors.Is(err, store.ErrUsernameExists) {
		return fmt.Errorf("create demo trader: %w", err)
	}

	app.logger.Info("demo data seeded", slog.Int("companies", len(demoCompanies)))
	return nil
}

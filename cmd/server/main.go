// Package main implements the entry point for the CarbonCoin API server,
// a carbon credit trading platform driven by IoT emission data.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/carboncoin/carboncoin-api/internal/config"
	"github.com/carboncoin/carboncoin-api/internal/platform/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	appLogger := logger.Setup(logger.Config{Level: cfg.Server.LogLevel})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := newApplication(ctx, cfg, appLogger)
	if err != nil {
		appLogger.Error("failed to initialize application", "error", err.Error())
		os.Exit(1)
	}
	defer app.close()

	if err := app.run(ctx); err != nil {
		appLogger.Error("server exited with error", "error", err.Error())
		os.Exit(1)
	}
}

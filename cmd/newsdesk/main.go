package main

import (
	"context"
	"os"

	"github.com/ElijahTowers/QuartaPotestas-sub002/internal/app"
	"github.com/ElijahTowers/QuartaPotestas-sub002/internal/config"
	"github.com/ElijahTowers/QuartaPotestas-sub002/internal/logging"
)

func main() {
	ctx := context.Background()
	cfg := config.Load()
	logger := logging.New(cfg.Logging.Level)

	application, err := app.New(cfg, logger)
	if err != nil {
		logger.Error("startup failed", "error", err)
		os.Exit(1)
	}
	defer application.Close()

	if err := application.Run(ctx); err != nil {
		logger.Error("application stopped", "error", err)
		os.Exit(1)
	}
}

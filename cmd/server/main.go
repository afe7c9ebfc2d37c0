package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/iliyamo/cinema-ticket-booking/internal/app"
	"github.com/iliyamo/cinema-ticket-booking/internal/config"
)

func main() {
	cfg, err := config.Load(config.DefaultFiles...)
	if err != nil {
		zap.NewExample().Fatal("Load config", zap.Error(err))
	}

	lg, err := newLogger(cfg)
	if err != nil {
		panic(err)
	}
	defer func() { _ = lg.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.Run(ctx, lg, cfg); err != nil {
		lg.Error("Server stopped", zap.Error(err))
		os.Exit(1)
	}
	lg.Info("Server stopped")
}

func newLogger(cfg config.Config) (*zap.Logger, error) {
	if cfg.IsDev() {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

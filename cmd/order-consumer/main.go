// Command order-consumer appends every order.paid event to the order log.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-faster/errors"
	"go.uber.org/zap"

	"github.com/iliyamo/cinema-ticket-booking/internal/config"
	"github.com/iliyamo/cinema-ticket-booking/internal/queue"
)

func main() {
	cfg, err := config.Load(config.DefaultFiles...)
	if err != nil {
		zap.NewExample().Fatal("Load config", zap.Error(err))
	}
	newLogger := zap.NewProduction
	if cfg.IsDev() {
		newLogger = zap.NewDevelopment
	}
	lg, err := newLogger()
	if err != nil {
		panic(err)
	}
	defer func() { _ = lg.Sync() }()

	if cfg.RabbitURL == "" {
		lg.Fatal("RABBITMQ_URL is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sink := queue.FileLog{Path: cfg.OrderLogPath}
	c := &queue.Consumer{
		URL:    cfg.RabbitURL,
		Handle: sink.Handle,
		Log:    lg,
	}
	lg.Info("Consuming", zap.String("queue", queue.OrderPaidQueue), zap.String("log", cfg.OrderLogPath))
	if err := c.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		lg.Error("Consumer stopped", zap.Error(err))
		os.Exit(1)
	}
}

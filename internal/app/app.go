// Package app builds the HTTP server from configuration and runs it until
// the context is cancelled.
package app

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/iliyamo/cinema-ticket-booking/internal/auth"
	"github.com/iliyamo/cinema-ticket-booking/internal/catalog"
	"github.com/iliyamo/cinema-ticket-booking/internal/checkout"
	"github.com/iliyamo/cinema-ticket-booking/internal/config"
	"github.com/iliyamo/cinema-ticket-booking/internal/database"
	"github.com/iliyamo/cinema-ticket-booking/internal/handler"
	"github.com/iliyamo/cinema-ticket-booking/internal/middleware"
	"github.com/iliyamo/cinema-ticket-booking/internal/notify"
	"github.com/iliyamo/cinema-ticket-booking/internal/promotion"
	"github.com/iliyamo/cinema-ticket-booking/internal/queue"
	"github.com/iliyamo/cinema-ticket-booking/internal/repository"
	"github.com/iliyamo/cinema-ticket-booking/internal/router"
)

// Run opens the database, wires every component and serves HTTP until ctx
// is done, then drains in-flight requests within cfg.ShutdownTimeout.
func Run(ctx context.Context, lg *zap.Logger, cfg config.Config) error {
	db, err := database.Open(ctx, database.Options{
		User: cfg.DBUser,
		Pass: cfg.DBPass,
		Host: cfg.DBHost,
		Port: cfg.DBPort,
		Name: cfg.DBName,
	})
	if err != nil {
		return err
	}
	defer db.Close()

	if cfg.DBMigrate {
		if err := database.Migrate(ctx, db); err != nil {
			return errors.Wrap(err, "migrate")
		}
	}
	caps, err := database.ProbeCapabilities(ctx, db)
	if err != nil {
		return err
	}
	lg.Info("Storage capabilities",
		zap.Bool("seat_holds", caps.SeatHolds),
		zap.Bool("promotions", caps.Promotions))

	// Redis is optional; without it caching and rate limiting pass through.
	rdb, err := config.NewRedisClient(ctx, cfg)
	if err != nil {
		lg.Warn("Redis unavailable, cache and rate limit disabled", zap.Error(err))
	} else {
		defer rdb.Close()
	}

	var events checkout.Publisher
	if cfg.RabbitURL != "" {
		pub := queue.NewPublisher(cfg.RabbitURL, lg)
		defer pub.Close()
		events = pub
	}

	e := NewServer(lg, cfg, db, rdb, caps, events)
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           e,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		lg.Info("Server listening", zap.String("addr", srv.Addr), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return errors.Wrap(err, "listen")
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.ShutdownTimeout)
		defer cancel()
		lg.Info("Shutting down server", zap.Duration("timeout", cfg.ShutdownTimeout))
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// NewServer assembles the echo instance. rdb and events may be nil.
func NewServer(lg *zap.Logger, cfg config.Config, db *sql.DB, rdb *redis.Client, caps database.Capabilities, events checkout.Publisher) *echo.Echo {
	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)
	movies := repository.NewMovieRepo(db)
	showtimes := repository.NewShowtimeRepo(db)
	orders := repository.NewOrderRepo(db)
	promos := repository.NewPromotionRepo(db)
	holdsRepo := repository.NewSeatHoldRepo(db)

	authSvc := auth.NewService(users, tokens, auth.Options{
		Secret:         cfg.JWTSecret,
		AccessTTLMin:   cfg.AccessTTLMin,
		RefreshTTLDays: cfg.RefreshTTLDays,
		BcryptCost:     cfg.BcryptCost,
	})
	catalogSvc := catalog.NewService(movies, showtimes)
	holds := catalog.NewHolds(catalog.SQLHoldStore{
		Holds:     holdsRepo,
		Orders:    orders,
		Showtimes: showtimes,
	}, caps.SeatHolds)
	quotes := promotion.NewService(promos, users, caps.Promotions, nil)
	mailer := notify.NewSMTPMailer(notify.SMTPConfig{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUser,
		Password: cfg.SMTPPass,
		From:     cfg.SMTPFrom,
		Location: cfg.Location(),
	})
	fin := checkout.NewFinalizer(checkout.NewSQLStore(db), mailer, events, caps, lg)

	cacheCfg := cfg.Cache()
	var purger *middleware.CachePurger
	if rdb != nil {
		purger = middleware.NewCachePurger(cacheCfg, rdb)
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = handler.ErrorHandler(lg)

	e.Use(echomw.RequestID())
	e.Use(middleware.RequestLogger(lg))
	e.Use(echomw.Recover())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.Origins(),
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))
	e.Use(echomw.BodyLimit("1M"))

	router.Register(e, router.Handlers{
		Auth:       handler.NewAuthHandler(authSvc),
		Users:      handler.NewUserHandler(authSvc, orders),
		Movies:     handler.NewMovieHandler(catalogSvc, purger, lg),
		Showtimes:  handler.NewShowtimeHandler(catalogSvc, holds, cfg.Location()),
		Promotions: handler.NewPromotionHandler(quotes, promos),
		Payments:   handler.NewPaymentHandler(fin),
		Health:     handler.NewHealthHandler(db),
	}, router.Guards{
		Auth:      middleware.JWTAuth(cfg.JWTSecret),
		Admin:     middleware.RequireAdmin(users, lg),
		Cache:     middleware.Cache(cacheCfg, rdb, lg),
		RateLimit: middleware.RateLimit(cfg.RateLimit(), rdb, lg),
	})
	return e
}

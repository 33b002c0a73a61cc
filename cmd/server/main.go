// Command server runs the lead-ledger HTTP API and background workers.
package main

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	app "github.com/TradeBoost-AI/lead-ledger/internal/app"
	"github.com/TradeBoost-AI/lead-ledger/internal/app/httpapi"
	spendsvc "github.com/TradeBoost-AI/lead-ledger/internal/app/services/spend"
	"github.com/TradeBoost-AI/lead-ledger/internal/app/storage/postgres"
	"github.com/TradeBoost-AI/lead-ledger/internal/config"
	"github.com/TradeBoost-AI/lead-ledger/pkg/logger"
)

func main() {
	_ = godotenv.Load()

	log := logger.NewDefault("lead-ledger")

	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("failed to load configuration")
	}

	stores := app.Stores{}
	if cfg.DatabaseURL != "" {
		db, err := sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			log.WithError(err).Fatal("failed to open database")
		}
		defer db.Close()
		db.SetMaxOpenConns(25)
		db.SetConnMaxLifetime(5 * time.Minute)

		if err := postgres.Migrate(db); err != nil {
			log.WithError(err).Fatal("failed to run migrations")
		}
		store := postgres.New(db)
		stores = app.Stores{Accounts: store, Calls: store, Spend: store}
		log.Info("postgres storage initialised")
	} else {
		log.Warn("DATABASE_URL not set; using in-memory storage")
	}

	opts := app.Options{
		DefaultTimezone:         cfg.ReportingTimezone,
		DefaultCurrencyCode:     cfg.DefaultCurrencyCode,
		SyncFreshness:           cfg.SyncFreshness,
		MinQualifiedCallSeconds: cfg.MinQualifiedCallSeconds,
		SyncCronSpec:            cfg.SyncCronSpec,
		ComplianceRulesPath:     cfg.ComplianceRulesPath,
	}

	if cfg.AdsConfigured() {
		reporter, err := spendsvc.NewGoogleAdsReporter(nil, spendsvc.GoogleAdsConfig{
			ClientID:        cfg.GoogleAdsClientID,
			ClientSecret:    cfg.GoogleAdsClientSecret,
			DeveloperToken:  cfg.GoogleAdsDeveloperToken,
			LoginCustomerID: cfg.GoogleAdsLoginCustomerID,
		}, log.WithField("component", "google-ads"))
		if err != nil {
			log.WithError(err).Fatal("failed to configure ads reporter")
		}
		opts.Reporter = reporter
	}

	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
		if err := client.Ping(context.Background()).Err(); err != nil {
			log.WithError(err).Fatal("failed to connect to redis")
		}
		defer client.Close()
		opts.Locker = spendsvc.NewRedisLocker(client, 0)
		log.Info("redis sync lease enabled")
	}

	application, err := app.New(stores, opts, log)
	if err != nil {
		log.WithError(err).Fatal("failed to initialise application")
	}

	handler := httpapi.NewHandler(application, httpapi.Config{
		WebhookSecret:        cfg.WebhookSecret,
		JWTSecret:            cfg.JWTSecret,
		AllowedOrigin:        cfg.AllowedOrigin,
		WebhookRatePerSecond: cfg.WebhookRatePerSecond,
		WebhookBurst:         cfg.WebhookBurst,
	}, log.WithField("component", "httpapi"))

	server := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := application.Start(ctx); err != nil {
		log.WithError(err).Fatal("failed to start application services")
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithField("addr", cfg.HTTPAddr).Info("http server listening")
		errCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received")
	case err := <-errCh:
		log.WithError(err).Error("http server stopped unexpectedly")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("http server shutdown incomplete")
	}
	if err := application.Stop(shutdownCtx); err != nil {
		log.WithError(err).Warn("application services shutdown incomplete")
	}
	log.Info("shutdown complete")
}

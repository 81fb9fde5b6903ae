package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MrJamesThe3rd/haulbook/internal/config"
	"github.com/MrJamesThe3rd/haulbook/internal/database"
	"github.com/MrJamesThe3rd/haulbook/internal/discount"
	"github.com/MrJamesThe3rd/haulbook/internal/expense"
	expenseStore "github.com/MrJamesThe3rd/haulbook/internal/expense/store"
	haulHttp "github.com/MrJamesThe3rd/haulbook/internal/http"
	"github.com/MrJamesThe3rd/haulbook/internal/http/auth"
	expenseHandler "github.com/MrJamesThe3rd/haulbook/internal/http/expense"
	importHandler "github.com/MrJamesThe3rd/haulbook/internal/http/importcsv"
	pricingHandler "github.com/MrJamesThe3rd/haulbook/internal/http/pricing"
	tripHandler "github.com/MrJamesThe3rd/haulbook/internal/http/trip"
	"github.com/MrJamesThe3rd/haulbook/internal/importer"
	"github.com/MrJamesThe3rd/haulbook/internal/logging"
	"github.com/MrJamesThe3rd/haulbook/internal/pricing"
	pricingStore "github.com/MrJamesThe3rd/haulbook/internal/pricing/store"
	"github.com/MrJamesThe3rd/haulbook/internal/trip"
	tripStore "github.com/MrJamesThe3rd/haulbook/internal/trip/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logging.New(cfg.Log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.NewWithPool(ctx, cfg.ConnectionString(), database.PoolConfig{
		MaxOpenConns:    cfg.DB.MaxOpenConns,
		MaxIdleConns:    cfg.DB.MaxIdleConns,
		ConnMaxLifetime: cfg.DB.ConnMaxLifetime,
	})
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if cfg.DB.AutoMigrate {
		if err := database.Migrate(ctx, db); err != nil {
			slog.Error("failed to migrate database", "error", err)
			os.Exit(1)
		}
	}

	var (
		trips    = tripStore.New(db)
		expenses = expenseStore.New(db)
	)

	var (
		pricingService  = pricing.NewService(pricingStore.New(db))
		expenseService  = expense.NewService(expenses)
		discountService = discount.NewSynchronizer(trips, expenses)
		tripService     = trip.NewService(trips, pricingService, database.NewTxManager(db), discountService)
		importService   = importer.NewService(expenseService)
	)

	var (
		tripH    = tripHandler.NewHandler(tripService)
		expenseH = expenseHandler.NewHandler(expenseService)
		pricingH = pricingHandler.NewHandler(pricingService)
		importH  = importHandler.NewHandler(importService, expenseService)
	)

	opts := haulHttp.Options{
		AllowedOrigins: cfg.AllowedOrigins(),
		Health:         db.PingContext,
	}

	if cfg.Auth.JWTSecret != "" {
		opts.Auth = auth.NewManager(cfg.Auth.JWTSecret, cfg.Auth.JWTIssuer)
	} else {
		slog.Warn("AUTH_JWT_SECRET not set, API is unauthenticated")
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.App.Port),
		Handler:           haulHttp.New(opts, tripH, expenseH, pricingH, importH),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.Server.Timeout,
		WriteTimeout:      cfg.Server.Timeout,
	}

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown failed", "error", err)
		}
	}()

	slog.Info("starting server", "addr", srv.Addr, "app", cfg.App.Name)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

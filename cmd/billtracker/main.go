package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/shopspring/decimal"

	"billtracker/internal/backend"
	"billtracker/internal/cache"
	"billtracker/internal/cli"
	"billtracker/internal/commands"
	"billtracker/internal/config"
	"billtracker/internal/core"
	apphttp "billtracker/internal/http"
	"billtracker/internal/log"
	"billtracker/internal/state"
)

func main() {
	cli.LoadEnvFile()

	logger := log.FromEnv(log.ComponentApp)
	log.SetDefault(logger)
	cfg := cli.LoadAndValidateConfig(logger, (*config.Config).Validate)

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", log.FieldError, err)
		os.Exit(1)
	}

	ctx := context.Background()
	result, err := backend.NewFactory(logger).CreateBackend(ctx, backendCfg)
	if err != nil {
		logger.Error("Failed to create backend", log.FieldError, err, "backend", cfg.DataBackend)
		os.Exit(1)
	}
	be := result.Backend

	// A configured service account opens the session up front; otherwise the
	// first visitor logs in from the browser.
	if cfg.BackendUsername != "" {
		creds := core.Credentials{Username: cfg.BackendUsername, Password: cfg.BackendPassword}
		if _, err := be.Login(ctx, creds); err != nil {
			logger.Warn("Automatic login failed, waiting for interactive login",
				log.FieldUsername, cfg.BackendUsername,
				log.FieldError, err)
		} else {
			logger.Info("Logged in to backend", log.FieldUsername, cfg.BackendUsername)
		}
	}

	st := state.New(be, logger)
	cacheManager := cache.NewManager(logger)
	cacheManager.StartCleanup(5 * time.Minute)
	views := state.NewViews(st, cacheManager)

	registry := commands.New(be, st, commands.Options{
		Tax:      core.NewTaxCalculator(decimal.NewFromFloat(cfg.TaxRate)),
		Calendar: core.FiscalCalendar{StartMonth: time.Month(cfg.FiscalYearStartMonth)},
	}, logger).Registry()

	srv, err := apphttp.NewServer(apphttp.Config{
		Addr:               ":" + cfg.Port,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		TrustedProxies:     cfg.TrustedProxies,
		BlockSuspicious:    cfg.BlockSuspicious,
	}, apphttp.Deps{
		Backend:  be,
		State:    st,
		Views:    views,
		Registry: registry,
		Cache:    cacheManager,
		Logger:   logger,
	})
	if err != nil {
		logger.Error("Failed to create HTTP server", log.FieldError, err)
		os.Exit(1)
	}

	runCtx, stop := context.WithCancel(ctx)
	defer stop()
	shutdownCtx, done := cli.GracefulShutdown(runCtx, logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
		if result.Cleanup != nil {
			if err := result.Cleanup(); err != nil {
				logger.Error("Backend cleanup error", log.FieldError, err)
			}
		}
	})

	logger.Info("Starting billtracker server",
		"port", cfg.Port,
		"backend", cfg.DataBackend)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		stop()
		cli.WaitForShutdown(shutdownCtx, done)
		os.Exit(1)
	}

	cli.WaitForShutdown(shutdownCtx, done)
	logger.Info("Server stopped gracefully")
}

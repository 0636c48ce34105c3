package main

import (
	"context"
	"errors"
	"os"
	"time"

	"billtracker/internal/amqp"
	"billtracker/internal/backend"
	"billtracker/internal/cli"
	"billtracker/internal/config"
	"billtracker/internal/core"
	"billtracker/internal/log"
	"billtracker/internal/services"
	gsheet "billtracker/internal/sheets/google"
	"billtracker/internal/worker"
)

func main() {
	cli.LoadEnvFile()

	logger := log.FromEnv(log.ComponentWorker)
	log.SetDefault(logger)
	logger.Info("Starting billtracker-worker")

	cfg := cli.LoadAndValidateConfig(logger, (*config.Config).ValidateWorker)
	ctx := context.Background()

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", log.FieldError, err)
		os.Exit(1)
	}
	if backendCfg.Kind == backend.KindMemory {
		logger.Error("The export worker needs the rest or sqlite backend; the memory backend is process local")
		os.Exit(1)
	}
	// The worker only reads bills, so it never publishes events itself.
	backendCfg.AMQPURL = ""

	result, err := backend.NewFactory(logger).CreateBackend(ctx, backendCfg)
	if err != nil {
		logger.Error("Failed to create backend", log.FieldError, err, "backend", cfg.DataBackend)
		os.Exit(1)
	}

	source := worker.NewSessionSource(result.Backend, core.Credentials{
		Username: cfg.BackendUsername,
		Password: cfg.BackendPassword,
	}, logger)
	if cfg.BackendUsername != "" {
		if err := source.Login(ctx); err != nil {
			logger.Error("Worker login failed", log.FieldError, err)
			os.Exit(1)
		}
	} else {
		logger.Warn("BACKEND_USERNAME is not set; exports will fail if the backend requires a session")
	}

	ledger := cli.InitSQLite(ctx, logger, cfg.SQLiteDBPath, backendCfg.Admin)

	creds, err := cfg.ServiceAccountCredentials()
	if err != nil {
		logger.Error("Failed to read Google credentials", log.FieldError, err)
		os.Exit(1)
	}
	sheetsClient, err := gsheet.NewFromCredentials(ctx, cfg.GoogleSpreadsheetID, creds)
	if err != nil {
		logger.Error("Failed to initialize Google Sheets client", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Google Sheets client initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID)

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", log.FieldError, err)
		os.Exit(1)
	}

	exportWorker := worker.NewExportWorker(source, sheetsClient, ledger, logger)
	processor := services.NewExportProcessor(exportWorker, services.ExportProcessorConfig{
		Interval:   cfg.ExportInterval,
		RunOnStart: true,
	})

	runCtx, stop := context.WithCancel(ctx)
	defer stop()
	shutdownCtx, done := cli.GracefulShutdown(runCtx, logger, 30*time.Second, func(ctx context.Context) {
		if err := processor.Stop(ctx); err != nil {
			logger.Warn("Export processor did not stop in time", log.FieldError, err)
		}
		if err := amqpClient.Close(); err != nil {
			logger.Error("AMQP close error", log.FieldError, err)
		}
		if err := ledger.Close(); err != nil {
			logger.Error("Ledger close error", log.FieldError, err)
		}
		if result.Cleanup != nil {
			if err := result.Cleanup(); err != nil {
				logger.Error("Backend cleanup error", log.FieldError, err)
			}
		}
	})

	if err := processor.Start(shutdownCtx); err != nil {
		logger.Error("Failed to start export processor", log.FieldError, err)
		stop()
		cli.WaitForShutdown(shutdownCtx, done)
		os.Exit(1)
	}

	go func() {
		err := amqpClient.ConsumeBillsChanged(shutdownCtx, exportWorker.HandleBillsChanged)
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("Message consumption failed", log.FieldError, err)
			stop()
		}
	}()

	logger.Info("Worker running",
		"exchange", cfg.AMQPExchange,
		"queue", cfg.AMQPQueue,
		"export_interval", cfg.ExportInterval)
	cli.WaitForShutdown(shutdownCtx, done)
	logger.Info("Worker stopped")
}

package main

import (
	"context"
	"errors"
	"os"
	"time"

	"townledger/internal/cli"
	applog "townledger/internal/log"
	"townledger/internal/services"
	gsheet "townledger/internal/sheets/google"
	"townledger/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(applog.ComponentWorker)
	logger.Info("Starting townledger-worker")

	cfg := cli.LoadAndValidateConfig(logger)
	rates, err := cfg.Rates()
	if err != nil {
		logger.Error("Invalid default rates", applog.FieldError, err)
		os.Exit(1)
	}
	if cfg.GoogleSpreadsheetID == "" {
		logger.Error("GOOGLE_SPREADSHEET_ID is required for the report worker")
		os.Exit(1)
	}

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	amqpClient := cli.ConnectAMQP(logger, cfg, true)
	defer amqpClient.Close()

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, nil)

	sheetsClient, err := gsheet.NewFromEnv(ctx)
	if err != nil {
		logger.Error("Failed to initialize Google Sheets client", applog.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Google Sheets client initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID)

	registry := services.NewRegistry(repo, nil)
	reports := worker.NewReportWorker(
		services.NewBilling(repo, nil),
		services.NewDefaulters(repo),
		services.NewFunds(repo, nil),
		registry,
		sheetsClient,
		rates,
	)

	// Bring every tab up to date before following events.
	if err := reports.RefreshAll(ctx); err != nil {
		logger.Error("Startup refresh failed", applog.FieldError, err)
	}

	go func() {
		if err := amqpClient.ConsumeLedgerEvents(ctx, reports.HandleLedgerEvent); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("Message consumption failed", applog.FieldError, err)
			os.Exit(1)
		}
	}()

	// Periodic refresh covers events lost while the worker was down.
	go func() {
		ticker := time.NewTicker(cfg.RefreshInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := reports.RefreshAll(ctx); err != nil {
					logger.Error("Periodic refresh failed", applog.FieldError, err)
				}
			}
		}
	}()

	cli.WaitForShutdown(ctx, done)
	logger.Info("Worker stopped")
}

package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"townledger/internal/cli"
	apphttp "townledger/internal/http"
	applog "townledger/internal/log"
	"townledger/internal/services"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(applog.ComponentApp)
	cfg := cli.LoadAndValidateConfig(logger)

	rates, err := cfg.Rates()
	if err != nil {
		logger.Error("Invalid default rates", applog.FieldError, err)
		os.Exit(1)
	}

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	var events services.EventPublisher
	if client := cli.ConnectAMQP(logger, cfg, false); client != nil {
		defer client.Close()
		events = client
	}

	srv := apphttp.NewServer(":"+cfg.Port, apphttp.Deps{
		Registry:   services.NewRegistry(repo, events),
		Billing:    services.NewBilling(repo, events),
		Defaulters: services.NewDefaulters(repo),
		Funds:      services.NewFunds(repo, events),
		Rates:      rates,
		Logger:     logger,
	})
	srv.MaxHeaderBytes = 1 << 16

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", applog.FieldError, err)
		}
	})

	logger.Info("Starting townledger server",
		"port", cfg.Port,
		"db", cfg.SQLiteDBPath,
		"events", events != nil,
		"water_rate", rates.Water.String(),
		"security_rate", rates.Security.String(),
		"sanitation_rate", rates.Sanitation.String())
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Server error", applog.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}

package main

import (
	"context"
	"os"
	"time"

	"budgettracker/internal/amqp"
	"budgettracker/internal/api"
	"budgettracker/internal/backend"
	"budgettracker/internal/cli"
	"budgettracker/internal/log"
	"budgettracker/internal/notify"
	"budgettracker/internal/services"
	"budgettracker/internal/worker"
)

func main() {
	bootstrap := log.New(log.DefaultConfig())
	if err := cli.LoadEnvFile(); err != nil {
		bootstrap.Warn("Ignoring .env file", log.FieldError, err.Error())
	}

	cfg, err := cli.LoadAndValidateConfig()
	if err != nil {
		bootstrap.Error("Configuration validation failed", log.FieldError, err.Error())
		os.Exit(1)
	}
	logger := cli.SetupLogger(cfg, nil).WithComponent(log.ComponentWorker)
	logger.Info("Starting budget-worker", "backend", cfg.DataBackend, log.FieldOperation, log.OpStartup)

	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required for the worker")
		os.Exit(1)
	}
	// The worker reads the sessions the web process wrote.
	if !backend.BackendType(cfg.DataBackend).Shared() {
		logger.Error("The worker needs a shared store, set DATA_BACKEND to sqlite or postgres", "backend", cfg.DataBackend)
		os.Exit(1)
	}

	ctx := context.Background()
	storeResult, err := cli.OpenStore(ctx, cfg, logger)
	if err != nil {
		logger.Error("Failed to open local store", log.FieldError, err.Error())
		os.Exit(1)
	}

	client, err := api.New(cfg.APIBaseURL, api.WithTimeout(cfg.APITimeout), api.WithLogger(logger))
	if err != nil {
		logger.Error("Failed to create backend client", log.FieldError, err.Error())
		os.Exit(1)
	}

	var notifier notify.Notifier = notify.NewLog(logger)
	if cfg.TelegramEnabled() {
		t, err := notify.NewTelegram(cfg.TelegramBotToken, cfg.TelegramChatID, logger)
		if err != nil {
			logger.Error("Failed to initialize Telegram", log.FieldError, err.Error())
			os.Exit(1)
		}
		notifier = t
	}

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", log.FieldError, err.Error())
		os.Exit(1)
	}

	alerts := services.NewAlertService(storeResult.Store, notifier, cfg.CurrencySymbol, logger)
	w := worker.NewAlertWorker(storeResult.Store, client, alerts, logger)

	shutdownCtx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := w.Stop(ctx); err != nil {
			logger.Warn("Worker did not stop in time", log.FieldError, err.Error())
		}
		_ = amqpClient.Close()
		if storeResult.Cleanup != nil {
			if err := storeResult.Cleanup(); err != nil {
				logger.Warn("Failed to close local store", log.FieldError, err.Error())
			}
		}
	})

	if err := w.Start(shutdownCtx, amqpClient); err != nil {
		logger.Error("Failed to start worker", log.FieldError, err.Error())
		os.Exit(1)
	}
	logger.Info("Consuming budget checks", "queue", cfg.AMQPQueue)

	select {
	case <-shutdownCtx.Done():
		cli.WaitForShutdown(shutdownCtx, done)
	case <-w.Done():
		if shutdownCtx.Err() == nil {
			logger.Error("Consumer stopped unexpectedly", log.FieldError, errString(w.Err()))
			os.Exit(1)
		}
		cli.WaitForShutdown(shutdownCtx, done)
	}
}

func errString(err error) string {
	if err == nil {
		return "consumer returned"
	}
	return err.Error()
}

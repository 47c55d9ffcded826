package main

import (
	"context"
	"os"
	"time"

	"budgettracker/internal/amqp"
	"budgettracker/internal/api"
	"budgettracker/internal/cache"
	"budgettracker/internal/cli"
	"budgettracker/internal/config"
	"budgettracker/internal/core"
	"budgettracker/internal/export"
	apphttp "budgettracker/internal/http"
	"budgettracker/internal/log"
	"budgettracker/internal/notify"
	"budgettracker/internal/services"
	"budgettracker/internal/session"
)

const (
	profileCacheSize = 1000
	sweepInterval    = 10 * time.Minute
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
	logger := cli.SetupLogger(cfg, nil)
	logger.Info("Starting budgettracker",
		"port", cfg.Port,
		"api", cfg.APIBaseURL,
		"backend", cfg.DataBackend,
		log.FieldOperation, log.OpStartup)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	storeResult, err := cli.OpenStore(ctx, cfg, logger)
	if err != nil {
		logger.Error("Failed to open local store", log.FieldError, err.Error(), "backend", cfg.DataBackend)
		os.Exit(1)
	}

	client, err := api.New(cfg.APIBaseURL, api.WithTimeout(cfg.APITimeout), api.WithLogger(logger))
	if err != nil {
		logger.Error("Failed to create backend client", log.FieldError, err.Error())
		os.Exit(1)
	}

	sessions := session.NewManager(storeResult.Store, session.Config{
		TTL:        cfg.SessionTTL,
		CookieName: cfg.SessionCookie,
		Secure:     cfg.CookieSecure,
	}, logger)
	go sessions.Sweep(ctx, sweepInterval)

	profileLRU := cache.NewLRU[core.User](profileCacheSize, cfg.ProfileCacheTTL)
	janitor := cache.NewJanitor(logger)
	janitor.Register(profileLRU)
	janitor.Start(time.Minute)

	// Budget checks are published only when a broker is configured.
	var (
		publisher  amqp.Publisher
		amqpClient *amqp.Client
	)
	if cfg.AMQPURL != "" {
		amqpClient, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
		if err != nil {
			logger.Warn("AMQP unavailable, budget checks run on page load only", log.FieldError, err.Error())
		} else {
			publisher = amqpClient
		}
	}

	var sheets export.Appender
	if cfg.SheetsEnabled() {
		s, err := export.NewSheets(ctx, export.SheetsConfig{
			SpreadsheetID:   cfg.GoogleSpreadsheetID,
			SheetName:       cfg.GoogleSheetName,
			CredentialsFile: cfg.GoogleCredentialsFile,
			CredentialsJSON: cfg.GoogleCredentialsJSON,
		}, logger)
		if err != nil {
			logger.Error("Failed to initialize Google Sheets export", log.FieldError, err.Error())
			os.Exit(1)
		}
		sheets = s
	}

	ledger := services.NewLedgerService(publisher, logger)

	srv, err := apphttp.NewServer(":"+cfg.Port, apphttp.Deps{
		Config:    cfg,
		Client:    client,
		Sessions:  sessions,
		Profiles:  cache.NewProfiles(profileLRU),
		Store:     storeResult.Store,
		Ledger:    ledger,
		Dashboard: services.NewDashboardService(logger),
		Admin:     services.NewAdminService(cfg.AdminPageSize, logger),
		Alerts:    services.NewAlertService(storeResult.Store, newNotifier(cfg, logger), cfg.CurrencySymbol, logger),
		Exports:   export.NewService(storeResult.Store, sheets, cfg.CurrencySymbol, logger),
		Logger:    logger,
	})
	if err != nil {
		logger.Error("Failed to create HTTP server", log.FieldError, err.Error())
		os.Exit(1)
	}

	shutdownCtx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err.Error())
		}
		cancel()
		janitor.Stop()
		if err := ledger.Close(ctx); err != nil {
			logger.Warn("Pending budget checks were not published", log.FieldError, err.Error())
		}
		if amqpClient != nil {
			_ = amqpClient.Close()
		}
		if storeResult.Cleanup != nil {
			if err := storeResult.Cleanup(); err != nil {
				logger.Warn("Failed to close local store", log.FieldError, err.Error())
			}
		}
	})

	if err := srv.ListenAndServe(); err != nil {
		logger.Error("Server error", log.FieldError, err.Error(), "port", cfg.Port)
		os.Exit(1)
	}
	cli.WaitForShutdown(shutdownCtx, done)
}

// newNotifier sends alerts to Telegram when configured and to the log
// otherwise.
func newNotifier(cfg *config.Config, logger *log.Logger) notify.Notifier {
	if cfg.TelegramEnabled() {
		t, err := notify.NewTelegram(cfg.TelegramBotToken, cfg.TelegramChatID, logger)
		if err == nil {
			return t
		}
		logger.Warn("Telegram unavailable, logging alerts instead", log.FieldError, err.Error())
	}
	return notify.NewLog(logger)
}

package main

import (
	"context"
	"os"
	"time"

	"bizdash/internal/amqp"
	"bizdash/internal/backend"
	"bizdash/internal/cli"
	"bizdash/internal/log"
	"bizdash/internal/report"
	"bizdash/internal/services"
	ports "bizdash/internal/sheets"
	gsheet "bizdash/internal/sheets/google"
	memsheet "bizdash/internal/sheets/memory"
	"bizdash/internal/worker"
)

func main() {
	cli.LoadEnvFile()

	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL")).WithComponent(log.ComponentWorker)
	logger.Info("Starting report-worker")

	cfg := cli.LoadAndValidateConfig(logger)

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", log.FieldError, err)
		os.Exit(1)
	}
	startCtx, startCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer startCancel()
	result, err := backend.NewFactory(logger).CreateBackend(startCtx, backendCfg)
	if err != nil {
		logger.Error("Failed to initialize backend", log.FieldError, err, log.FieldBackend, cfg.DataBackend)
		os.Exit(1)
	}

	var writer ports.ReportWriter
	if cfg.SheetsEnabled() {
		client, err := gsheet.New(context.Background(), gsheet.Config{
			SpreadsheetID:   cfg.GoogleSpreadsheetID,
			SheetName:       cfg.GoogleSheetName,
			CredentialsFile: cfg.GoogleServiceAccountFile,
			CredentialsJSON: cfg.GoogleServiceAccountJSON,
		}, logger)
		if err != nil {
			logger.Error("Failed to initialize Google Sheets client", log.FieldError, err)
			os.Exit(1)
		}
		writer = client
		logger.Info("Google Sheets client initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID)
	} else {
		writer = memsheet.New()
		logger.Warn("Google Sheets disabled - exports are kept in memory only")
	}

	records := services.NewRecordService(result.Repo, cfg.DemoUserID, logger)
	exports := services.NewExportProcessor(report.NewFetcher(result.Repo), writer, cfg.DefaultLocale, cfg.DefaultCurrency, logger)
	recurring := services.NewRecurringProcessor(records, logger)

	// Without AMQP the worker still runs its schedules; exports then run in
	// process and changes are not published.
	var (
		consumer worker.Consumer
		queue    worker.Enqueuer
		client   *amqp.Client
	)
	if cfg.AMQPURL != "" {
		client, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", log.FieldError, err)
			os.Exit(1)
		}
		records.AddPublisher(client)
		consumer, queue = client, client
	} else {
		logger.Info("AMQP disabled - no AMQP_URL provided")
	}

	workerCfg := worker.DefaultConfig()
	workerCfg.ReportCron = cfg.ReportCron
	workerCfg.RecurringCron = cfg.RecurringCron
	w := worker.New(consumer, queue, exports, recurring, workerCfg, logger)

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := w.Stop(ctx); err != nil {
			logger.Error("Worker stop error", log.FieldError, err)
		}
		if client != nil {
			if err := client.Close(); err != nil {
				logger.Error("Failed to close AMQP client", log.FieldError, err)
			}
		}
		if err := result.Cleanup(); err != nil {
			logger.Error("Failed to close store", log.FieldError, err)
		}
	})

	if err := w.Start(ctx); err != nil {
		logger.Error("Failed to start worker", log.FieldError, err)
		os.Exit(1)
	}
	cli.WaitForShutdown(ctx, done)
}

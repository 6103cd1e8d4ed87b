package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"bizdash/internal/amqp"
	"bizdash/internal/backend"
	"bizdash/internal/cli"
	apphttp "bizdash/internal/http"
	"bizdash/internal/live"
	"bizdash/internal/log"
	"bizdash/internal/report"
	"bizdash/internal/services"
)

func main() {
	cli.LoadEnvFile()

	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL")).WithComponent(log.ComponentApp)
	logger.Info("Starting bizdash")

	cfg := cli.LoadAndValidateConfig(logger)

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", log.FieldError, err)
		os.Exit(1)
	}
	startCtx, startCancel := context.WithTimeout(context.Background(), 30*time.Second)
	result, err := backend.NewFactory(logger).CreateBackend(startCtx, backendCfg)
	startCancel()
	if err != nil {
		logger.Error("Failed to initialize backend", log.FieldError, err, log.FieldBackend, cfg.DataBackend)
		os.Exit(1)
	}

	records := services.NewRecordService(result.Repo, cfg.DemoUserID, logger)
	fetcher := report.NewFetcher(result.Repo)

	// AMQP is optional for the server: without it changes are not published
	// and export requests are refused.
	var amqpClient *amqp.Client
	if cfg.AMQPURL != "" {
		amqpClient, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", log.FieldError, err)
			os.Exit(1)
		}
		records.AddPublisher(amqpClient)
		logger.Info("AMQP client initialized", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
	} else {
		logger.Info("AMQP disabled - no AMQP_URL provided")
	}

	hub := live.NewHub(fetcher, logger)
	records.AddPublisher(hub)

	srvCfg := apphttp.Config{
		Addr:           ":" + cfg.Port,
		Records:        records,
		Fetcher:        fetcher,
		Store:          result.Store,
		Live:           hub,
		Locale:         cfg.DefaultLocale,
		Currency:       cfg.DefaultCurrency,
		ViewSessionTTL: cfg.ViewSessionTTL,
		ViewSessionMax: cfg.ViewSessionMax,
		TrustedProxies: cfg.TrustedProxies,
		Logger:         logger,
	}
	if amqpClient != nil {
		srvCfg.Exports = amqpClient
	}
	srv := apphttp.NewServer(srvCfg)

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
		if amqpClient != nil {
			if err := amqpClient.Close(); err != nil {
				logger.Error("Failed to close AMQP client", log.FieldError, err)
			}
		}
		if err := result.Cleanup(); err != nil {
			logger.Error("Failed to close store", log.FieldError, err)
		}
	})

	go hub.Run(ctx)

	go func() {
		logger.Info("Server starting", "addr", srv.Addr, log.FieldBackend, cfg.DataBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server failed to start", log.FieldError, err)
			os.Exit(1)
		}
	}()

	cli.WaitForShutdown(ctx, done)
}

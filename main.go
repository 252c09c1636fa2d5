package main

import (
	"context"
	"errors"
	"log" // Use standard log only for initial fatal errors before logger is set up
	"net/http"
	"os"
	"time"

	"paperAccount/config"
	"paperAccount/internal/account"
	"paperAccount/internal/adapters/binanceclient"
	"paperAccount/internal/adapters/httpapi"
	"paperAccount/internal/adapters/jsonstore"
	"paperAccount/internal/adapters/logger"
	"paperAccount/internal/adapters/sqlite"
	"paperAccount/internal/app"
	"paperAccount/internal/market"
	"paperAccount/internal/ports"
)

func main() {
	ctx := context.Background()

	// 1. Load Configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err) // Use standard log before logger is ready
	}

	// 2. Initialize Logger
	appLogger := newLogger(cfg)
	appLogger.Info(ctx, "Logger initialized", map[string]interface{}{"level": cfg.LogLevel.String(), "format": cfg.LogFormat})

	// 3. Initialize Account Store
	store, closeStore, err := newStore(cfg, appLogger)
	if err != nil {
		appLogger.Error(ctx, err, "FATAL: Failed to initialize account store")
		log.Fatalf("FATAL: Failed to initialize account store: %v", err)
	}
	defer func() {
		if err := closeStore(); err != nil {
			appLogger.Error(ctx, err, "Error closing account store")
		}
	}()

	// 4. Load Accounts
	manager, err := account.LoadManager(ctx, store, cfg.Trading, appLogger)
	if err != nil {
		appLogger.Error(ctx, err, "FATAL: Failed to load accounts")
		log.Fatalf("FATAL: Failed to load accounts: %v", err)
	}

	// 5. Initialize Quote Source
	quotes, err := newQuoteSource(ctx, cfg, appLogger)
	if err != nil {
		appLogger.Error(ctx, err, "FATAL: Failed to initialize quote source")
		log.Fatalf("FATAL: Failed to initialize quote source: %v", err)
	}
	appLogger.Info(ctx, "Quote source initialized", map[string]interface{}{"source": cfg.QuoteSource})

	// 6. Initialize Application Service
	simService, err := app.NewSimulationService(manager, quotes, appLogger, cfg.ProcessInterval)
	if err != nil {
		appLogger.Error(ctx, err, "FATAL: Failed to initialize simulation service")
		log.Fatalf("FATAL: Failed to initialize simulation service: %v", err)
	}

	// 7. Start the HTTP API
	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           httpapi.NewRouter(httpapi.NewHandlers(manager, quotes, component(appLogger, "httpapi"))),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		appLogger.Info(ctx, "HTTP API listening", map[string]interface{}{"addr": cfg.HTTPAddr})
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.Error(ctx, err, "HTTP API stopped unexpectedly")
		}
	}()

	// 8. Run the simulation loop until interrupted
	runErr := simService.Start(ctx)

	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		appLogger.Error(ctx, err, "Error shutting down HTTP API")
	}

	if runErr != nil {
		appLogger.Error(ctx, runErr, "Simulation service exited with error")
		log.Fatalf("FATAL: Simulation service exited with error: %v", runErr)
	}
	appLogger.Info(ctx, "Application finished gracefully.")
}

func newLogger(cfg *config.Config) ports.Logger {
	switch cfg.LogFormat {
	case config.LogFormatJSON:
		return logger.NewZerologLogger(os.Stdout, cfg.LogLevel, false)
	case config.LogFormatConsole:
		return logger.NewZerologLogger(os.Stdout, cfg.LogLevel, true)
	default:
		return logger.NewStdLogger(cfg.LogLevel)
	}
}

// component tags structured loggers with the subsystem name.
func component(l ports.Logger, name string) ports.Logger {
	if zl, ok := l.(*logger.ZerologLogger); ok {
		return zl.With(name)
	}
	return l
}

func newStore(cfg *config.Config, appLogger ports.Logger) (account.Store, func() error, error) {
	if cfg.StorageBackend == config.StorageSQLite {
		repo, err := sqlite.NewRepository(sqlite.Config{DBPath: cfg.DBPath, Logger: appLogger})
		if err != nil {
			return nil, nil, err
		}
		return repo, repo.Close, nil
	}
	store, err := jsonstore.New(jsonstore.Config{Path: cfg.Trading.StoragePath, Logger: appLogger})
	if err != nil {
		return nil, nil, err
	}
	return store, func() error { return nil }, nil
}

func newQuoteSource(ctx context.Context, cfg *config.Config, appLogger ports.Logger) (ports.QuoteSource, error) {
	if cfg.QuoteSource != config.QuoteSourceBinance {
		return market.NewMemoryQuoteSource(cfg.Trading), nil
	}
	client, err := binanceclient.New(binanceclient.Config{
		APIKey:     cfg.APIKey,
		SecretKey:  cfg.SecretKey,
		UseTestnet: cfg.IsTestnet,
		Logger:     component(appLogger, "binance"),
	})
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx); err != nil {
		return nil, err
	}
	return client, nil
}

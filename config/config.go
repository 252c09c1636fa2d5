package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"paperAccount/internal/adapters/logger"
	"paperAccount/internal/domain"
)

// Storage backends.
const (
	StorageJSON   = "json"
	StorageSQLite = "sqlite"
)

// Quote sources.
const (
	QuoteSourceMemory  = "memory"
	QuoteSourceBinance = "binance"
)

// Log formats.
const (
	LogFormatText    = "text"
	LogFormatJSON    = "json"
	LogFormatConsole = "console"
)

// Config holds all application configuration.
type Config struct {
	// Trading defaults applied to accounts without an override
	Trading domain.TradingConfig

	// Persistence
	StorageBackend string
	DBPath         string // SQLite only; the JSON store uses Trading.StoragePath

	// Market data
	QuoteSource string
	APIKey      string
	SecretKey   string
	IsTestnet   bool

	// Simulation loop and HTTP API
	ProcessInterval time.Duration
	HTTPAddr        string

	// Logging
	LogLevel  logger.LogLevel
	LogFormat string
}

// LoadConfig loads configuration from environment variables (.env file).
func LoadConfig() (*Config, error) {
	// Load .env file, but don't fail if it doesn't exist (allow pure env vars)
	_ = godotenv.Load()

	cfg := &Config{Trading: domain.DefaultTradingConfig()}
	var err error
	var errs []string // Collect validation errors

	// Trading defaults
	for _, rate := range []struct {
		key string
		dst *decimal.Decimal
	}{
		{"PAPER_ACCOUNT_DEFAULT_SLIPPAGE", &cfg.Trading.DefaultSlippage},
		{"PAPER_ACCOUNT_DEFAULT_SPREAD", &cfg.Trading.DefaultSpread},
		{"PAPER_ACCOUNT_COMMISSION_RATE", &cfg.Trading.CommissionRate},
	} {
		*rate.dst, err = getEnvAsDecimalRequired(rate.key, decimal.Zero)
		if err != nil {
			errs = append(errs, fmt.Sprintf("invalid %s: %v", rate.key, err))
		} else if rate.dst.IsNegative() || rate.dst.GreaterThanOrEqual(decimal.NewFromInt(1)) {
			errs = append(errs, fmt.Sprintf("%s must be between 0.0 (inclusive) and 1.0 (exclusive)", rate.key))
		}
	}
	cfg.Trading.StoragePath = getEnv("PAPER_ACCOUNT_STORAGE_PATH", "")

	// Persistence
	cfg.StorageBackend = strings.ToLower(getEnv("STORAGE_BACKEND", StorageJSON))
	if cfg.StorageBackend != StorageJSON && cfg.StorageBackend != StorageSQLite {
		errs = append(errs, fmt.Sprintf("STORAGE_BACKEND must be %q or %q", StorageJSON, StorageSQLite))
	}
	cfg.DBPath = getEnv("DB_PATH", "./data/paper_account.db")

	// Market data
	cfg.QuoteSource = strings.ToLower(getEnv("QUOTE_SOURCE", QuoteSourceMemory))
	if cfg.QuoteSource != QuoteSourceMemory && cfg.QuoteSource != QuoteSourceBinance {
		errs = append(errs, fmt.Sprintf("QUOTE_SOURCE must be %q or %q", QuoteSourceMemory, QuoteSourceBinance))
	}
	cfg.APIKey = getEnv("BINANCE_API_KEY", "")
	cfg.SecretKey = getEnv("BINANCE_API_SECRET", "")
	cfg.IsTestnet = getEnvAsBool("IS_TESTNET", true) // Default to testnet for safety

	// Simulation loop and HTTP API
	intervalSeconds, err := getEnvAsIntRequired("PROCESS_INTERVAL_SECONDS", 5)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid PROCESS_INTERVAL_SECONDS: %v", err))
	} else if intervalSeconds <= 0 {
		errs = append(errs, "PROCESS_INTERVAL_SECONDS must be positive")
	}
	cfg.ProcessInterval = time.Duration(intervalSeconds) * time.Second
	cfg.HTTPAddr = getEnv("HTTP_ADDR", ":8080")

	// Logging
	cfg.LogLevel = logger.ParseLevel(getEnv("LOG_LEVEL", "INFO"))
	cfg.LogFormat = strings.ToLower(getEnv("LOG_FORMAT", LogFormatText))
	switch cfg.LogFormat {
	case LogFormatText, LogFormatJSON, LogFormatConsole:
	default:
		errs = append(errs, fmt.Sprintf("LOG_FORMAT must be one of %s, %s, %s", LogFormatText, LogFormatJSON, LogFormatConsole))
	}

	// Combine validation errors
	if len(errs) > 0 {
		return nil, fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}

	return cfg, nil
}

// --- Env Var Helpers ---

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsIntRequired(key string, defaultValue int) (int, error) {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		// Use default if env var is not set at all
		return defaultValue, nil
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		// Return error if env var is set but invalid
		return 0, fmt.Errorf("invalid integer value '%s' for key %s: %w", valueStr, key, err)
	}
	return value, nil
}

func getEnvAsDecimalRequired(key string, defaultValue decimal.Decimal) (decimal.Decimal, error) {
	valueStr := strings.TrimSpace(os.Getenv(key))
	if valueStr == "" {
		return defaultValue, nil
	}
	value, err := decimal.NewFromString(valueStr)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid decimal value '%s' for key %s: %w", valueStr, key, err)
	}
	return value, nil
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

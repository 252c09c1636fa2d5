package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"paperAccount/config"
	"paperAccount/internal/adapters/binanceclient"
	"paperAccount/internal/adapters/logger"
	"paperAccount/internal/domain"
	"paperAccount/internal/utils"
)

func main() {
	symbolFlag := flag.String("symbol", "ETHUSDT", "symbol to download")
	interval := flag.String("interval", "1h", "bar interval (1m, 5m, 1h, 1d, ...)")
	days := flag.Int("days", 90, "how many days back from now")
	out := flag.String("out", "", "output CSV (default data/<symbol>_<interval>_<start>_to_<end>.csv)")
	flag.Parse()

	// 1. Load Configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err) // Use standard log before logger is ready
	}

	// 2. Initialize Logger
	appLogger := logger.NewStdLogger(cfg.LogLevel)
	ctx := context.Background()

	// 3. Initialize Exchange Client (Binance Adapter)
	binanceClient, err := binanceclient.New(binanceclient.Config{
		APIKey:     cfg.APIKey,
		SecretKey:  cfg.SecretKey,
		UseTestnet: cfg.IsTestnet,
		Logger:     appLogger,
	})
	if err != nil {
		appLogger.Error(ctx, err, "FATAL: Failed to initialize Binance client")
		log.Fatalf("FATAL: Failed to initialize Binance client: %v", err)
	}

	symbol := domain.NewSymbol(*symbolFlag)
	end := time.Now().UTC()
	start := end.AddDate(0, 0, -*days)

	fmt.Printf("Fetching bars for %s %s from %s to %s...\n", symbol, *interval, start.Format(time.RFC3339), end.Format(time.RFC3339))
	bars, err := binanceClient.GetHistoricalData(ctx, symbol, start, end, *interval)
	if err != nil {
		appLogger.Error(ctx, err, "Error fetching bars")
		log.Fatalf("Error fetching bars: %v", err)
	}
	appLogger.Info(ctx, "Fetched bars", map[string]interface{}{"count": len(bars)})

	filename := *out
	if filename == "" {
		filename = fmt.Sprintf("data/%s_%s_%s_to_%s.csv", symbol, *interval, start.Format("20060102"), end.Format("20060102"))
	}
	if err := utils.WriteBarsToCSV(bars, filename); err != nil {
		appLogger.Error(ctx, err, "Error writing CSV")
		log.Fatalf("Error writing CSV: %v", err)
	}
	appLogger.Info(ctx, "Saved to", map[string]interface{}{"filename": filename})
}

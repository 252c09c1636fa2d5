package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/shopspring/decimal"

	"paperAccount/config"
	"paperAccount/internal/account"
	"paperAccount/internal/adapters/logger"
	"paperAccount/internal/domain"
	"paperAccount/internal/market"
	"paperAccount/internal/ports"
	"paperAccount/internal/replay"
	"paperAccount/internal/utils"
)

func main() {
	file := flag.String("file", "", "CSV of bars written by fetch_bars (required)")
	fast := flag.Int("fast", 8, "fast moving average period")
	slow := flag.Int("slow", 21, "slow moving average period")
	maType := flag.String("ma", "EMA", "moving average type (SMA or EMA)")
	quantity := flag.String("qty", "1", "quantity bought on every entry")
	deposit := flag.String("deposit", "10000", "initial deposit")
	tradesOut := flag.String("trades-out", "", "optional CSV of executions")
	from := flag.String("from", "", "replay bars opening at or after this RFC3339 time")
	to := flag.String("to", "", "replay bars opening at or before this RFC3339 time")
	flag.Parse()

	if *file == "" {
		flag.Usage()
		os.Exit(2)
	}

	// 1. Load Configuration (trading defaults: commission, slippage, spread)
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err)
	}
	appLogger := logger.NewStdLogger(cfg.LogLevel)
	ctx := context.Background()

	// 2. Load bars from CSV and cut the requested window
	loaded, err := utils.ReadBarsFromCSV(*file)
	if err != nil {
		appLogger.Error(ctx, err, "Error loading bars", map[string]interface{}{"file": *file})
		log.Fatalf("Error loading bars: %v", err)
	}
	if len(loaded) == 0 {
		log.Fatalf("No bars in %s", *file)
	}
	start, err := parseTime(*from, time.Time{})
	if err != nil {
		log.Fatalf("Invalid -from: %v", err)
	}
	end, err := parseTime(*to, loaded[len(loaded)-1].OpenTime)
	if err != nil {
		log.Fatalf("Invalid -to: %v", err)
	}

	symbol := loaded[0].Symbol
	var source ports.HistoricalDataSource = newHistoricalSource(symbol, loaded)
	bars, err := source.GetHistoricalData(ctx, symbol, start, end, loaded[0].Interval)
	if err != nil {
		log.Fatalf("Error selecting bars: %v", err)
	}
	appLogger.Info(ctx, "Loaded bars", map[string]interface{}{"file": *file, "count": len(bars), "symbol": symbol})

	qty, err := domain.QuantityFromString(*quantity)
	if err != nil {
		log.Fatalf("Invalid -qty: %v", err)
	}
	initial, err := decimal.NewFromString(*deposit)
	if err != nil {
		log.Fatalf("Invalid -deposit: %v", err)
	}

	// 3. Replay through a dedicated account
	acc := account.New("replay", "USD", initial, cfg.Trading, appLogger)
	result, err := replay.Run(ctx, acc, bars, replay.Config{
		Symbol:   symbol,
		Fast:     replay.MovingAverage{Type: replay.MovingAverageType(*maType), Period: *fast},
		Slow:     replay.MovingAverage{Type: replay.MovingAverageType(*maType), Period: *slow},
		Quantity: qty,
	}, appLogger)
	if err != nil {
		appLogger.Error(ctx, err, "Replay error")
		log.Fatalf("Replay error: %v", err)
	}

	summary := map[string]interface{}{
		"steps":            result.Steps,
		"orders_submitted": result.OrdersSubmitted,
		"orders_rejected":  result.OrdersRejected,
		"trades":           result.Trades,
		"max_drawdown":     result.MaxDrawdown.Mul(decimal.NewFromInt(100)).StringFixed(2) + "%",
		"performance":      result.Performance,
	}
	out, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		log.Fatalf("Error encoding result: %v", err)
	}
	fmt.Println(string(out))

	// 4. Write executions
	if *tradesOut != "" {
		if err := utils.WriteTradesToCSV(acc.Trades(), *tradesOut); err != nil {
			appLogger.Error(ctx, err, "Error writing trades CSV")
			log.Fatalf("Error writing trades CSV: %v", err)
		}
		appLogger.Info(ctx, "Trades saved to", map[string]interface{}{"filename": *tradesOut})
	}
}

func newHistoricalSource(symbol domain.Symbol, bars []*domain.Bar) *market.MemoryHistoricalSource {
	source := market.NewMemoryHistoricalSource()
	source.AddData(symbol, bars)
	return source
}

func parseTime(value string, fallback time.Time) (time.Time, error) {
	if value == "" {
		return fallback, nil
	}
	return time.Parse(time.RFC3339, value)
}

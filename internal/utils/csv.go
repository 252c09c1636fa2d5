package utils

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/shopspring/decimal"

	"paperAccount/internal/domain"
)

var barHeader = []string{"open_time", "close_time", "symbol", "interval", "open", "high", "low", "close", "volume"}

// WriteBarsToCSV writes bars to filename, creating its directory if needed.
func WriteBarsToCSV(bars []*domain.Bar, filename string) error {
	if err := os.MkdirAll(filepath.Dir(filename), 0755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", filename, err)
	}
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.Write(barHeader); err != nil {
		return err
	}
	for _, b := range bars {
		err := writer.Write([]string{
			b.OpenTime.UTC().Format(time.RFC3339Nano),
			b.CloseTime.UTC().Format(time.RFC3339Nano),
			string(b.Symbol),
			b.Interval,
			b.Open.String(),
			b.High.String(),
			b.Low.String(),
			b.Close.String(),
			b.Volume.String(),
		})
		if err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// ReadBarsFromCSV reads bars written by WriteBarsToCSV.
func ReadBarsFromCSV(filename string) ([]*domain.Bar, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = len(barHeader)

	if _, err := reader.Read(); err != nil { // header
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading header of %s: %w", filename, err)
	}

	var bars []*domain.Bar
	for line := 2; ; line++ {
		rec, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", filename, err)
		}
		bar, err := parseBar(rec)
		if err != nil {
			return nil, fmt.Errorf("%s line %d: %w", filename, line, err)
		}
		bars = append(bars, bar)
	}
	return bars, nil
}

func parseBar(rec []string) (*domain.Bar, error) {
	openTime, err := time.Parse(time.RFC3339Nano, rec[0])
	if err != nil {
		return nil, fmt.Errorf("parsing open_time '%s': %w", rec[0], err)
	}
	closeTime, err := time.Parse(time.RFC3339Nano, rec[1])
	if err != nil {
		return nil, fmt.Errorf("parsing close_time '%s': %w", rec[1], err)
	}

	prices := make([]domain.Price, 4)
	for i, raw := range rec[4:8] {
		p, err := domain.PriceFromString(raw)
		if err != nil {
			return nil, fmt.Errorf("parsing %s: %w", barHeader[4+i], err)
		}
		prices[i] = p
	}
	volume, err := decimal.NewFromString(rec[8])
	if err != nil {
		return nil, fmt.Errorf("parsing volume '%s': %w", rec[8], err)
	}

	return &domain.Bar{
		Symbol:    domain.NewSymbol(rec[2]),
		Interval:  rec[3],
		OpenTime:  openTime,
		CloseTime: closeTime,
		Open:      prices[0],
		High:      prices[1],
		Low:       prices[2],
		Close:     prices[3],
		Volume:    volume,
	}, nil
}

var tradeHeader = []string{"id", "order_id", "timestamp", "symbol", "side", "quantity", "price", "commission", "value"}

// WriteTradesToCSV writes executions to filename, creating its directory if needed.
func WriteTradesToCSV(trades []domain.Trade, filename string) error {
	if err := os.MkdirAll(filepath.Dir(filename), 0755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", filename, err)
	}
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.Write(tradeHeader); err != nil {
		return err
	}
	for _, t := range trades {
		err := writer.Write([]string{
			string(t.ID),
			string(t.OrderID),
			t.Timestamp.UTC().Format(time.RFC3339Nano),
			string(t.Symbol),
			string(t.Side),
			t.Quantity.String(),
			t.Price.String(),
			t.Commission.String(),
			t.Value().String(),
		})
		if err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

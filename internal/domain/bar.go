package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Bar represents a single OHLCV candlestick of historical market data.
type Bar struct {
	Symbol    Symbol          `json:"symbol"`
	Interval  string          `json:"interval"` // e.g. "1m", "1h"
	OpenTime  time.Time       `json:"open_time"`
	CloseTime time.Time       `json:"close_time"`
	Open      Price           `json:"open"`
	High      Price           `json:"high"`
	Low       Price           `json:"low"`
	Close     Price           `json:"close"`
	Volume    decimal.Decimal `json:"volume"`
}

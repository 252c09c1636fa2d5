package replay

import (
	"fmt"

	"github.com/shopspring/decimal"

	"paperAccount/internal/domain"
)

// MovingAverageType defines the type of moving average
type MovingAverageType string

const (
	// SimpleMovingAverage represents a simple moving average
	SimpleMovingAverage MovingAverageType = "SMA"
	// ExponentialMovingAverage represents an exponential moving average
	ExponentialMovingAverage MovingAverageType = "EMA"
)

// MovingAverage computes a moving average of bar closes.
type MovingAverage struct {
	Type   MovingAverageType
	Period int
}

// RequiredDataPoints returns the minimum number of bars needed for calculation
func (m MovingAverage) RequiredDataPoints() int {
	return m.Period
}

// Calculate computes the moving average value based on the configured type
func (m MovingAverage) Calculate(bars []*domain.Bar) (decimal.Decimal, error) {
	if m.Period <= 0 {
		return decimal.Zero, fmt.Errorf("moving average period must be positive, got %d", m.Period)
	}
	switch m.Type {
	case SimpleMovingAverage, "":
		return m.sma(bars)
	case ExponentialMovingAverage:
		return m.ema(bars)
	default:
		return decimal.Zero, fmt.Errorf("unsupported moving average type: %s", m.Type)
	}
}

func (m MovingAverage) sma(bars []*domain.Bar) (decimal.Decimal, error) {
	if len(bars) < m.Period {
		return decimal.Zero, fmt.Errorf("not enough data (%d) to calculate SMA for period %d", len(bars), m.Period)
	}

	total := decimal.Zero
	for _, b := range bars[len(bars)-m.Period:] {
		total = total.Add(b.Close.Decimal)
	}
	return total.DivRound(decimal.NewFromInt(int64(m.Period)), domain.DivisionPrecision), nil
}

func (m MovingAverage) ema(bars []*domain.Bar) (decimal.Decimal, error) {
	if len(bars) < m.Period {
		return decimal.Zero, fmt.Errorf("not enough data (%d) to calculate EMA for period %d", len(bars), m.Period)
	}

	multiplier := decimal.NewFromInt(2).DivRound(decimal.NewFromInt(int64(m.Period+1)), domain.DivisionPrecision)

	// Seeded with the SMA of the first period bars
	ema, err := m.sma(bars[:m.Period])
	if err != nil {
		return decimal.Zero, err
	}
	for _, b := range bars[m.Period:] {
		ema = b.Close.Sub(ema).Mul(multiplier).Add(ema)
	}
	return ema.Round(domain.DivisionPrecision), nil
}

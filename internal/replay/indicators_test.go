package replay

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"paperAccount/internal/domain"
)

func barsFromCloses(symbol domain.Symbol, closes ...string) []*domain.Bar {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]*domain.Bar, len(closes))
	for i, c := range closes {
		p := domain.MustPrice(c)
		open := start.Add(time.Duration(i) * time.Hour)
		bars[i] = &domain.Bar{
			Symbol: symbol, Interval: "1h",
			OpenTime: open, CloseTime: open.Add(time.Hour - time.Millisecond),
			Open: p, High: p, Low: p, Close: p, Volume: decimal.NewFromInt(1),
		}
	}
	return bars
}

func TestMovingAverage_Calculate(t *testing.T) {
	bars := barsFromCloses("X", "10", "11", "12", "13", "14")

	tests := []struct {
		name    string
		ma      MovingAverage
		bars    []*domain.Bar
		want    string
		wantErr bool
	}{
		{"sma of last three", MovingAverage{Type: SimpleMovingAverage, Period: 3}, bars, "13", false},
		{"sma default type", MovingAverage{Period: 5}, bars, "12", false},
		{"ema seeded with sma", MovingAverage{Type: ExponentialMovingAverage, Period: 3}, bars, "13", false},
		{"not enough data", MovingAverage{Type: SimpleMovingAverage, Period: 6}, bars, "", true},
		{"zero period", MovingAverage{Type: SimpleMovingAverage}, bars, "", true},
		{"unknown type", MovingAverage{Type: "WMA", Period: 2}, bars, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.ma.Calculate(tt.bars)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, got.Equal(decimal.RequireFromString(tt.want)), "got %s", got)
		})
	}
}

func TestMovingAverage_EMAWeightsRecentBars(t *testing.T) {
	bars := barsFromCloses("X", "10", "10", "10", "20")
	ema, err := MovingAverage{Type: ExponentialMovingAverage, Period: 3}.Calculate(bars)
	require.NoError(t, err)
	// 10 + (20-10) * 2/4
	assert.True(t, ema.Equal(decimal.NewFromInt(15)), "got %s", ema)
}

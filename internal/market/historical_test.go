package market

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"paperAccount/internal/domain"
	"paperAccount/internal/ports"
)

func TestMemoryHistoricalSource(t *testing.T) {
	ctx := context.Background()
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := makeBars("ETHUSDT", start, "10", "11", "12", "13")

	s := NewMemoryHistoricalSource()
	// Fed out of order on purpose.
	s.AddData("ETHUSDT", []*domain.Bar{bars[2], bars[0], bars[3], bars[1]})

	all, err := s.GetHistoricalData(ctx, "ETHUSDT", start, start.Add(24*time.Hour), "1h")
	require.NoError(t, err)
	require.Len(t, all, 4)
	for i, b := range all {
		assert.Equal(t, bars[i].OpenTime, b.OpenTime)
	}

	window, err := s.GetHistoricalData(ctx, "ETHUSDT", start.Add(time.Hour), start.Add(2*time.Hour), "1h")
	require.NoError(t, err)
	require.Len(t, window, 2, "both bounds are inclusive")
	assertDecimal(t, "11", window[0].Close.Decimal)
	assertDecimal(t, "12", window[1].Close.Decimal)

	none, err := s.GetHistoricalData(ctx, "ETHUSDT", start.Add(48*time.Hour), start.Add(72*time.Hour), "1h")
	require.NoError(t, err)
	assert.Empty(t, none)

	_, err = s.GetHistoricalData(ctx, "BTCUSDT", start, start, "1h")
	assert.ErrorIs(t, err, ports.ErrSymbolNotFound)
}

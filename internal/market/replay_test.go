package market

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"paperAccount/internal/domain"
	"paperAccount/internal/ports"
)

func TestReplayQuoteSource_Steps(t *testing.T) {
	ctx := context.Background()
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	r := NewReplayQuoteSource(map[domain.Symbol][]*domain.Bar{
		"ETH": makeBars("ETH", start, "100", "110", "120"),
		"BTC": makeBars("BTC", start, "1000"),
	}, decimal.RequireFromString("0.02"))

	assert.Equal(t, 3, r.Len())
	assert.Equal(t, 0, r.Position())

	q, err := r.GetQuote(ctx, "ETH")
	require.NoError(t, err)
	assertDecimal(t, "99", q.Bid.Decimal)
	assertDecimal(t, "101", q.Ask.Decimal)
	assertDecimal(t, "100", q.Last.Decimal)
	assert.Equal(t, start.Add(time.Hour-time.Millisecond), q.Timestamp, "quotes carry the bar close time")

	require.True(t, r.Next())
	require.True(t, r.Next())
	assert.False(t, r.Next(), "no bar past the end")
	assert.Equal(t, 2, r.Position())

	q, err = r.GetQuote(ctx, "ETH")
	require.NoError(t, err)
	assertDecimal(t, "120", q.Last.Decimal)

	btc, ok := r.CurrentBar("BTC")
	require.True(t, ok)
	assertDecimal(t, "1000", btc.Close.Decimal, "shorter series keep their last bar")

	r.Reset()
	assert.Equal(t, 0, r.Position())
	bar, ok := r.CurrentBar("ETH")
	require.True(t, ok)
	assertDecimal(t, "100", bar.Close.Decimal)
}

func TestReplayQuoteSource_UnknownSymbol(t *testing.T) {
	ctx := context.Background()
	r := NewReplayQuoteSource(map[domain.Symbol][]*domain.Bar{"ETH": nil}, decimal.Zero)

	_, err := r.GetQuote(ctx, "ETH")
	assert.ErrorIs(t, err, ports.ErrSymbolNotFound)
	_, err = r.GetQuote(ctx, "BTC")
	assert.ErrorIs(t, err, ports.ErrSymbolNotFound)
	assert.False(t, r.IsSymbolSupported(ctx, "ETH"))
	assert.Equal(t, 0, r.Len())
	assert.False(t, r.Next())

	_, ok := r.CurrentBar("ETH")
	assert.False(t, ok)
}

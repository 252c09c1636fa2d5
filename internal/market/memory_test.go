package market

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"paperAccount/internal/domain"
	"paperAccount/internal/ports"
)

var (
	_ ports.QuoteSource          = (*MemoryQuoteSource)(nil)
	_ ports.QuoteSource          = (*ReplayQuoteSource)(nil)
	_ ports.HistoricalDataSource = (*MemoryHistoricalSource)(nil)
)

func assertDecimal(t *testing.T, expected string, actual decimal.Decimal, msgAndArgs ...interface{}) {
	t.Helper()
	assert.Truef(t, decimal.RequireFromString(expected).Equal(actual), "expected %s, got %s %v", expected, actual, msgAndArgs)
}

func TestMemoryQuoteSource_UnknownSymbol(t *testing.T) {
	s := NewMemoryQuoteSource(domain.DefaultTradingConfig())
	ctx := context.Background()

	_, err := s.GetQuote(ctx, "AAPL")
	assert.ErrorIs(t, err, ports.ErrSymbolNotFound)
	assert.False(t, s.IsSymbolSupported(ctx, "AAPL"))
	assert.Empty(t, s.Symbols())
}

func TestMemoryQuoteSource_SetQuote(t *testing.T) {
	s := NewMemoryQuoteSource(domain.DefaultTradingConfig())
	ctx := context.Background()

	s.SetQuote(domain.NewQuote("AAPL", domain.MustPrice("99"), domain.MustPrice("101"), domain.MustPrice("100")))

	q, err := s.GetQuote(ctx, "AAPL")
	require.NoError(t, err)
	assertDecimal(t, "99", q.Bid.Decimal)
	assertDecimal(t, "101", q.Ask.Decimal)
	assertDecimal(t, "100", q.Last.Decimal)
	assert.True(t, s.IsSymbolSupported(ctx, "AAPL"))

	s.SetQuote(domain.NewQuote("AAPL", domain.MustPrice("1"), domain.MustPrice("2"), domain.MustPrice("1.5")))
	q, _ = s.GetQuote(ctx, "AAPL")
	assertDecimal(t, "1", q.Bid.Decimal, "later quotes replace earlier ones")
}

func TestMemoryQuoteSource_SetPriceUsesSpread(t *testing.T) {
	s := NewMemoryQuoteSource(domain.TradingConfig{DefaultSpread: decimal.RequireFromString("0.01")})
	ctx := context.Background()

	s.SetPrice("TSLA", domain.MustPrice("200"))
	q, err := s.GetQuote(ctx, "TSLA")
	require.NoError(t, err)
	assertDecimal(t, "199", q.Bid.Decimal)
	assertDecimal(t, "201", q.Ask.Decimal)
	assertDecimal(t, "200", q.Last.Decimal)

	s.SetPriceWithConfig("BTC", domain.MustPrice("100"), domain.TradingConfig{DefaultSpread: decimal.RequireFromString("0.1")})
	q, err = s.GetQuote(ctx, "BTC")
	require.NoError(t, err)
	assertDecimal(t, "95", q.Bid.Decimal)
	assertDecimal(t, "105", q.Ask.Decimal)

	symbols := s.Symbols()
	sort.Slice(symbols, func(i, j int) bool { return symbols[i] < symbols[j] })
	assert.Equal(t, []domain.Symbol{"BTC", "TSLA"}, symbols)
}

func TestMemoryQuoteSource_Concurrent(t *testing.T) {
	s := NewMemoryQuoteSource(domain.DefaultTradingConfig())
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			s.SetPrice("AAPL", domain.NewPrice(decimal.NewFromInt(int64(i+1))))
		}(i)
		go func() {
			defer wg.Done()
			_, _ = s.GetQuote(ctx, "AAPL")
		}()
	}
	wg.Wait()
	assert.True(t, s.IsSymbolSupported(ctx, "AAPL"))
}

func makeBars(symbol domain.Symbol, start time.Time, closes ...string) []*domain.Bar {
	bars := make([]*domain.Bar, 0, len(closes))
	for i, c := range closes {
		open := start.Add(time.Duration(i) * time.Hour)
		p := domain.MustPrice(c)
		bars = append(bars, &domain.Bar{
			Symbol:    symbol,
			Interval:  "1h",
			OpenTime:  open,
			CloseTime: open.Add(time.Hour - time.Millisecond),
			Open:      p,
			High:      p,
			Low:       p,
			Close:     p,
			Volume:    decimal.NewFromInt(1),
		})
	}
	return bars
}

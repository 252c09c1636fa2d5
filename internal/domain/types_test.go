package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSymbol(t *testing.T) {
	assert.Equal(t, Symbol("BTCUSDT"), NewSymbol("  btcusdt "))
	assert.Equal(t, "AAPL", NewSymbol("aapl").String())
}

func TestPriceAndQuantityParsing(t *testing.T) {
	p, err := PriceFromString(" 175.50 ")
	require.NoError(t, err)
	assertDecimal(t, "175.5", p.Decimal)

	_, err = PriceFromString("abc")
	assert.Error(t, err)

	q, err := QuantityFromString("0.001")
	require.NoError(t, err)
	assertDecimal(t, "0.001", q.Decimal)

	_, err = QuantityFromString("")
	assert.Error(t, err)

	assert.Panics(t, func() { MustPrice("x") })
	assert.True(t, ZeroQuantity().IsZero())
}

func TestPrice_Ptr(t *testing.T) {
	p := MustPrice("10")
	ptr := p.Ptr()
	ptr.Decimal = dec("11")
	assertDecimal(t, "10", p.Decimal)
}

func TestIDsAreUnique(t *testing.T) {
	assert.NotEqual(t, NewAccountID(), NewAccountID())
	assert.NotEqual(t, NewOrderID(), NewOrderID())
	assert.NotEqual(t, NewTradeID(), NewTradeID())
}

func TestParseOrderSide(t *testing.T) {
	tests := []struct {
		in   string
		want OrderSide
		ok   bool
	}{
		{"buy", Buy, true},
		{" SELL ", Sell, true},
		{"hold", "", false},
	}
	for _, tt := range tests {
		got, ok := ParseOrderSide(tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestParseOrderType(t *testing.T) {
	tests := []struct {
		in   string
		want OrderType
		ok   bool
	}{
		{"market", Market, true},
		{"Limit", Limit, true},
		{"STOP", Stop, true},
		{"stop_limit", StopLimit, true},
		{"stoplimit", StopLimit, true},
		{"trailing", "", false},
	}
	for _, tt := range tests {
		got, ok := ParseOrderType(tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestQuote(t *testing.T) {
	q := QuoteFromPrice("AAPL", MustPrice("100"), dec("0.002"))
	assertDecimal(t, "99.9", q.Bid.Decimal)
	assertDecimal(t, "100.1", q.Ask.Decimal)
	assertDecimal(t, "100", q.Last.Decimal)
	assertDecimal(t, "100", q.Mid().Decimal)
	assert.False(t, q.Timestamp.IsZero())

	flat := QuoteFromPrice("AAPL", MustPrice("50"), decimal.Zero)
	assert.True(t, flat.Bid.Equal(flat.Ask.Decimal))

	assertDecimal(t, "101", NewQuote("X", MustPrice("100"), MustPrice("102"), MustPrice("101.5")).Mid().Decimal)
}

func TestTradeValue(t *testing.T) {
	tr := NewTrade("o", "AAPL", Buy, MustQuantity("3"), MustPrice("2.5"), dec("0.01"))
	assertDecimal(t, "7.5", tr.Value())
	assert.NotEmpty(t, tr.ID)
}

func TestDefaultTradingConfig(t *testing.T) {
	cfg := DefaultTradingConfig()
	assert.True(t, cfg.CommissionRate.IsZero())
	assert.True(t, cfg.DefaultSlippage.IsZero())
	assert.True(t, cfg.DefaultSpread.IsZero())
}

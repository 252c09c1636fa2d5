package domain

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DivisionPrecision is the number of decimal places kept by every division
// performed on money or share counts (average price, mid price, ROI).
const DivisionPrecision int32 = 28

// Symbol identifies a tradable instrument (e.g. "AAPL", "BTCUSDT").
// Symbols are always stored upper-cased.
type Symbol string

// NewSymbol normalizes s into a Symbol.
func NewSymbol(s string) Symbol {
	return Symbol(upper(s))
}

func (s Symbol) String() string {
	return string(s)
}

// Price is the price of one unit of an asset.
type Price struct {
	decimal.Decimal
}

// NewPrice wraps a decimal as a Price.
func NewPrice(d decimal.Decimal) Price {
	return Price{Decimal: d}
}

// PriceFromString parses a decimal string such as "175.50".
func PriceFromString(s string) (Price, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return Price{}, fmt.Errorf("invalid price %q: %w", s, err)
	}
	return Price{Decimal: d}, nil
}

// MustPrice is like PriceFromString but panics on malformed input.
// Intended for constants and tests.
func MustPrice(s string) Price {
	return Price{Decimal: decimal.RequireFromString(s)}
}

// Ptr returns a pointer to a copy of p, for optional price fields.
func (p Price) Ptr() *Price {
	return &p
}

// Quantity is an amount of an asset.
type Quantity struct {
	decimal.Decimal
}

// NewQuantity wraps a decimal as a Quantity.
func NewQuantity(d decimal.Decimal) Quantity {
	return Quantity{Decimal: d}
}

// QuantityFromString parses a decimal string such as "10".
func QuantityFromString(s string) (Quantity, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return Quantity{}, fmt.Errorf("invalid quantity %q: %w", s, err)
	}
	return Quantity{Decimal: d}, nil
}

// MustQuantity is like QuantityFromString but panics on malformed input.
func MustQuantity(s string) Quantity {
	return Quantity{Decimal: decimal.RequireFromString(s)}
}

// ZeroQuantity returns an empty quantity.
func ZeroQuantity() Quantity {
	return Quantity{Decimal: decimal.Zero}
}

// AccountID uniquely identifies an account.
type AccountID string

// NewAccountID generates a random AccountID.
func NewAccountID() AccountID { return AccountID(uuid.NewString()) }

func (id AccountID) String() string { return string(id) }

// OrderID uniquely identifies an order.
type OrderID string

// NewOrderID generates a random OrderID.
func NewOrderID() OrderID { return OrderID(uuid.NewString()) }

func (id OrderID) String() string { return string(id) }

// TradeID uniquely identifies a trade.
type TradeID string

// NewTradeID generates a random TradeID.
func NewTradeID() TradeID { return TradeID(uuid.NewString()) }

func (id TradeID) String() string { return string(id) }

func upper(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Trade is an immutable record of a single execution against an order.
// An order that fills in several steps owns several trades.
type Trade struct {
	ID         TradeID         `json:"id"`
	OrderID    OrderID         `json:"order_id"`
	Symbol     Symbol          `json:"symbol"`
	Side       OrderSide       `json:"side"`
	Quantity   Quantity        `json:"quantity"`
	Price      Price           `json:"price"`
	Commission decimal.Decimal `json:"commission"`
	Timestamp  time.Time       `json:"timestamp"`
}

// NewTrade creates a trade with a fresh id, stamped with the current time.
func NewTrade(orderID OrderID, symbol Symbol, side OrderSide, quantity Quantity, price Price, commission decimal.Decimal) Trade {
	return Trade{
		ID:         NewTradeID(),
		OrderID:    orderID,
		Symbol:     symbol,
		Side:       side,
		Quantity:   quantity,
		Price:      price,
		Commission: commission,
		Timestamp:  time.Now().UTC(),
	}
}

// Value returns the notional value of the trade (price * quantity).
func (t Trade) Value() decimal.Decimal {
	return t.Price.Mul(t.Quantity.Decimal)
}

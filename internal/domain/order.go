package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Order is a single trading instruction and its fill state.
type Order struct {
	ID             OrderID     `json:"id"`
	Symbol         Symbol      `json:"symbol"`
	Side           OrderSide   `json:"side"`
	Type           OrderType   `json:"type"`
	Quantity       Quantity    `json:"quantity"`
	FilledQuantity Quantity    `json:"filled_quantity"`
	LimitPrice     *Price      `json:"limit_price,omitempty"` // LIMIT and STOP_LIMIT only
	StopPrice      *Price      `json:"stop_price,omitempty"`  // STOP and STOP_LIMIT only
	Status         OrderStatus `json:"status"`
	RejectReason   string      `json:"reject_reason,omitempty"`
	CreatedAt      time.Time   `json:"created_at"`
	UpdatedAt      time.Time   `json:"updated_at"`
	Trades         []Trade     `json:"trades"`
}

func newOrder(symbol Symbol, side OrderSide, orderType OrderType, quantity Quantity) *Order {
	now := time.Now().UTC()
	return &Order{
		ID:             NewOrderID(),
		Symbol:         symbol,
		Side:           side,
		Type:           orderType,
		Quantity:       quantity,
		FilledQuantity: ZeroQuantity(),
		Status:         StatusCreated,
		CreatedAt:      now,
		UpdatedAt:      now,
		Trades:         []Trade{},
	}
}

// NewMarketOrder creates an order executed at the prevailing quote.
func NewMarketOrder(symbol Symbol, side OrderSide, quantity Quantity) *Order {
	return newOrder(symbol, side, Market, quantity)
}

// NewLimitOrder creates an order executed at limitPrice once the quote crosses it.
func NewLimitOrder(symbol Symbol, side OrderSide, quantity Quantity, limitPrice Price) *Order {
	o := newOrder(symbol, side, Limit, quantity)
	o.LimitPrice = limitPrice.Ptr()
	return o
}

// NewStopOrder creates a stop order.
func NewStopOrder(symbol Symbol, side OrderSide, quantity Quantity, stopPrice Price) *Order {
	o := newOrder(symbol, side, Stop, quantity)
	o.StopPrice = stopPrice.Ptr()
	return o
}

// NewStopLimitOrder creates a stop-limit order.
func NewStopLimitOrder(symbol Symbol, side OrderSide, quantity Quantity, stopPrice, limitPrice Price) *Order {
	o := newOrder(symbol, side, StopLimit, quantity)
	o.StopPrice = stopPrice.Ptr()
	o.LimitPrice = limitPrice.Ptr()
	return o
}

// IsActive reports whether the order can still be filled or canceled.
func (o *Order) IsActive() bool {
	switch o.Status {
	case StatusCreated, StatusSubmitted, StatusPartiallyFilled:
		return true
	default:
		return false
	}
}

func (o *Order) IsFilled() bool   { return o.Status == StatusFilled }
func (o *Order) IsCanceled() bool { return o.Status == StatusCanceled }
func (o *Order) IsRejected() bool { return o.Status == StatusRejected }
func (o *Order) IsExpired() bool  { return o.Status == StatusExpired }

// IsComplete reports whether the order reached a terminal state.
func (o *Order) IsComplete() bool {
	return o.IsFilled() || o.IsCanceled() || o.IsRejected() || o.IsExpired()
}

// RemainingQuantity returns quantity - filled quantity.
func (o *Order) RemainingQuantity() Quantity {
	return NewQuantity(o.Quantity.Sub(o.FilledQuantity.Decimal))
}

// Submit moves a CREATED order to SUBMITTED. Other states are left alone.
func (o *Order) Submit() {
	if o.Status == StatusCreated {
		o.Status = StatusSubmitted
		o.UpdatedAt = time.Now().UTC()
	}
}

// Cancel cancels an active order and reports whether it took effect.
func (o *Order) Cancel() bool {
	if !o.IsActive() {
		return false
	}
	o.Status = StatusCanceled
	o.UpdatedAt = time.Now().UTC()
	return true
}

// Reject marks a CREATED or SUBMITTED order as rejected.
func (o *Order) Reject(reason string) bool {
	if o.Status != StatusCreated && o.Status != StatusSubmitted {
		return false
	}
	o.Status = StatusRejected
	o.RejectReason = reason
	o.UpdatedAt = time.Now().UTC()
	return true
}

// AddTrade records an execution and recomputes the fill status.
func (o *Order) AddTrade(t Trade) {
	o.FilledQuantity = NewQuantity(o.FilledQuantity.Add(t.Quantity.Decimal))

	if o.FilledQuantity.GreaterThanOrEqual(o.Quantity.Decimal) {
		o.Status = StatusFilled
	} else if o.FilledQuantity.GreaterThan(decimal.Zero) {
		o.Status = StatusPartiallyFilled
	}

	o.Trades = append(o.Trades, t)
	o.UpdatedAt = time.Now().UTC()
}

// Clone returns a deep copy of the order.
func (o *Order) Clone() *Order {
	c := *o
	if o.LimitPrice != nil {
		c.LimitPrice = o.LimitPrice.Ptr()
	}
	if o.StopPrice != nil {
		c.StopPrice = o.StopPrice.Ptr()
	}
	c.Trades = make([]Trade, len(o.Trades))
	copy(c.Trades, o.Trades)
	return &c
}

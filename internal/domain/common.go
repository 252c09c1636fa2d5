package domain

// OrderSide represents the side of an order (BUY or SELL).
type OrderSide string

const (
	Buy  OrderSide = "BUY"
	Sell OrderSide = "SELL"
)

// OrderType represents how an order is priced.
type OrderType string

const (
	Market    OrderType = "MARKET"     // Executed at the current quote (plus slippage)
	Limit     OrderType = "LIMIT"      // Executed at the limit price once the quote crosses it
	Stop      OrderType = "STOP"       // Accepted but never triggered by this engine
	StopLimit OrderType = "STOP_LIMIT" // Accepted but never triggered by this engine
)

// OrderStatus represents the lifecycle state of an order.
type OrderStatus string

const (
	StatusCreated         OrderStatus = "CREATED"
	StatusSubmitted       OrderStatus = "SUBMITTED"
	StatusPartiallyFilled OrderStatus = "PARTIALLY_FILLED"
	StatusFilled          OrderStatus = "FILLED"
	StatusCanceled        OrderStatus = "CANCELED"
	StatusRejected        OrderStatus = "REJECTED"
	StatusExpired         OrderStatus = "EXPIRED"
)

// ParseOrderSide converts a case-insensitive side name to an OrderSide.
func ParseOrderSide(s string) (OrderSide, bool) {
	switch OrderSide(upper(s)) {
	case Buy:
		return Buy, true
	case Sell:
		return Sell, true
	default:
		return "", false
	}
}

// ParseOrderType converts a case-insensitive type name to an OrderType.
// Both "STOP_LIMIT" and "STOPLIMIT" are accepted.
func ParseOrderType(s string) (OrderType, bool) {
	switch upper(s) {
	case string(Market):
		return Market, true
	case string(Limit):
		return Limit, true
	case string(Stop):
		return Stop, true
	case string(StopLimit), "STOPLIMIT":
		return StopLimit, true
	default:
		return "", false
	}
}

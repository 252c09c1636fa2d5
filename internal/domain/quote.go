package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

var two = decimal.NewFromInt(2)

// Quote is a point-in-time bid/ask/last snapshot for a symbol.
// Bid <= Ask is expected but not enforced; quote sources are responsible for it.
type Quote struct {
	Symbol    Symbol    `json:"symbol"`
	Bid       Price     `json:"bid"`
	Ask       Price     `json:"ask"`
	Last      Price     `json:"last"`
	Timestamp time.Time `json:"timestamp"`
}

// NewQuote creates a quote stamped with the current time.
func NewQuote(symbol Symbol, bid, ask, last Price) Quote {
	return Quote{
		Symbol:    symbol,
		Bid:       bid,
		Ask:       ask,
		Last:      last,
		Timestamp: time.Now().UTC(),
	}
}

// QuoteFromPrice synthesizes a quote around a single reference price,
// placing bid and ask half of the spread fraction below and above it.
func QuoteFromPrice(symbol Symbol, price Price, spread decimal.Decimal) Quote {
	halfSpread := price.Mul(spread).DivRound(two, DivisionPrecision)
	return NewQuote(symbol,
		NewPrice(price.Sub(halfSpread)),
		NewPrice(price.Add(halfSpread)),
		price)
}

// Mid returns (bid+ask)/2.
func (q Quote) Mid() Price {
	return NewPrice(q.Bid.Add(q.Ask.Decimal).DivRound(two, DivisionPrecision))
}

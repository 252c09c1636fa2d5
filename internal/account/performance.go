package account

import (
	"context"

	"github.com/shopspring/decimal"

	"paperAccount/internal/domain"
	"paperAccount/internal/ports"
)

var hundred = decimal.NewFromInt(100)

// Performance summarizes the results of an account at current quotes.
type Performance struct {
	InitialDeposit decimal.Decimal `json:"initial_deposit"`
	CashBalance    decimal.Decimal `json:"cash_balance"`
	Equity         decimal.Decimal `json:"equity"`
	RealizedPnL    decimal.Decimal `json:"realized_pnl"`
	UnrealizedPnL  decimal.Decimal `json:"unrealized_pnl"`
	TotalPnL       decimal.Decimal `json:"total_pnl"` // Realized + unrealized
	ROI            decimal.Decimal `json:"roi"`       // Percent of the initial deposit
}

// Equity returns cash plus the mid-price value of every open position.
func (a *Account) Equity(ctx context.Context, quotes ports.QuoteSource) (decimal.Decimal, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	marketValue, _, err := a.valuePositions(ctx, quotes)
	if err != nil {
		return decimal.Zero, err
	}
	return a.state.CashBalance.Add(marketValue), nil
}

// TotalRealizedPnL sums the realized PnL of all positions.
func (a *Account) TotalRealizedPnL() decimal.Decimal {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.totalRealizedPnL()
}

func (a *Account) totalRealizedPnL() decimal.Decimal {
	total := decimal.Zero
	for _, pos := range a.state.Positions {
		total = total.Add(pos.RealizedPnL)
	}
	return total
}

// TotalUnrealizedPnL sums the unrealized PnL of all open positions at mid prices.
func (a *Account) TotalUnrealizedPnL(ctx context.Context, quotes ports.QuoteSource) (decimal.Decimal, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	_, unrealized, err := a.valuePositions(ctx, quotes)
	return unrealized, err
}

// Performance computes the account performance metrics at current quotes.
func (a *Account) Performance(ctx context.Context, quotes ports.QuoteSource) (*Performance, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	marketValue, unrealized, err := a.valuePositions(ctx, quotes)
	if err != nil {
		return nil, err
	}
	realized := a.totalRealizedPnL()
	total := realized.Add(unrealized)

	roi := decimal.Zero
	if a.state.InitialDeposit.IsPositive() {
		roi = total.DivRound(a.state.InitialDeposit, domain.DivisionPrecision).Mul(hundred)
	}

	return &Performance{
		InitialDeposit: a.state.InitialDeposit,
		CashBalance:    a.state.CashBalance,
		Equity:         a.state.CashBalance.Add(marketValue),
		RealizedPnL:    realized,
		UnrealizedPnL:  unrealized,
		TotalPnL:       total,
		ROI:            roi,
	}, nil
}

// valuePositions prices every non-flat position at its quote's mid price and
// returns the summed market value and unrealized PnL.
func (a *Account) valuePositions(ctx context.Context, quotes ports.QuoteSource) (marketValue, unrealized decimal.Decimal, err error) {
	marketValue, unrealized = decimal.Zero, decimal.Zero
	for _, pos := range a.state.Positions {
		if pos.IsFlat() {
			continue
		}
		quote, err := quotes.GetQuote(ctx, pos.Symbol)
		if err != nil {
			return decimal.Zero, decimal.Zero, err
		}
		mid := quote.Mid()
		marketValue = marketValue.Add(pos.MarketValue(mid))
		unrealized = unrealized.Add(pos.UnrealizedPnL(mid))
	}
	return marketValue, unrealized, nil
}

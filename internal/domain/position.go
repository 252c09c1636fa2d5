package domain

import "github.com/shopspring/decimal"

// Position represents the holdings of a single symbol within an account.
// Positions are created on the first execution touching a symbol and are
// never removed; a closed position stays around with zero quantity.
type Position struct {
	Symbol       Symbol          `json:"symbol"`
	Quantity     Quantity        `json:"quantity"`
	AveragePrice Price           `json:"average_price"` // Value-weighted entry price, kept as-is once flat
	RealizedPnL  decimal.Decimal `json:"realized_pnl"`
}

// NewPosition creates an empty position for symbol.
func NewPosition(symbol Symbol) *Position {
	return &Position{
		Symbol:       symbol,
		Quantity:     ZeroQuantity(),
		AveragePrice: NewPrice(decimal.Zero),
		RealizedPnL:  decimal.Zero,
	}
}

// ApplyTrade updates the position with an executed trade.
func (p *Position) ApplyTrade(t Trade) {
	switch t.Side {
	case Buy:
		p.Add(t.Quantity, t.Price)
	case Sell:
		p.Remove(t.Quantity, t.Price)
	}
}

// Add increases the position and recomputes the average price.
func (p *Position) Add(quantity Quantity, price Price) {
	if quantity.IsZero() {
		return
	}

	currentValue := p.Quantity.Mul(p.AveragePrice.Decimal)
	addedValue := quantity.Mul(price.Decimal)
	newQuantity := p.Quantity.Add(quantity.Decimal)

	if newQuantity.IsPositive() {
		p.AveragePrice = NewPrice(currentValue.Add(addedValue).DivRound(newQuantity, DivisionPrecision))
	}
	p.Quantity = NewQuantity(newQuantity)
}

// Remove decreases the position, realizing the PnL of the removed quantity
// against the average price. The average price is left untouched.
// Quantity never goes below zero; callers validate the size beforehand.
func (p *Position) Remove(quantity Quantity, price Price) {
	if quantity.IsZero() || p.Quantity.IsZero() {
		return
	}

	sellValue := quantity.Mul(price.Decimal)
	costBasis := quantity.Mul(p.AveragePrice.Decimal)
	p.RealizedPnL = p.RealizedPnL.Add(sellValue.Sub(costBasis))

	newQuantity := p.Quantity.Sub(quantity.Decimal)
	if newQuantity.IsNegative() {
		newQuantity = decimal.Zero
	}
	p.Quantity = NewQuantity(newQuantity)
}

// UnrealizedPnL returns quantity * (currentPrice - averagePrice), zero when flat.
func (p *Position) UnrealizedPnL(currentPrice Price) decimal.Decimal {
	if p.IsFlat() {
		return decimal.Zero
	}
	return p.Quantity.Mul(currentPrice.Sub(p.AveragePrice.Decimal))
}

// TotalPnL returns realized plus unrealized PnL at currentPrice.
func (p *Position) TotalPnL(currentPrice Price) decimal.Decimal {
	return p.RealizedPnL.Add(p.UnrealizedPnL(currentPrice))
}

// MarketValue returns quantity * price.
func (p *Position) MarketValue(price Price) decimal.Decimal {
	return p.Quantity.Mul(price.Decimal)
}

// CostBasis returns quantity * averagePrice.
func (p *Position) CostBasis() decimal.Decimal {
	return p.Quantity.Mul(p.AveragePrice.Decimal)
}

func (p *Position) IsFlat() bool  { return p.Quantity.IsZero() }
func (p *Position) IsLong() bool  { return p.Quantity.IsPositive() }
func (p *Position) IsShort() bool { return p.Quantity.IsNegative() }

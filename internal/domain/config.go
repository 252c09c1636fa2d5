package domain

import "github.com/shopspring/decimal"

// TradingConfig holds the execution parameters of an account.
// All rates are non-negative decimal fractions (0.001 == 0.1%).
type TradingConfig struct {
	DefaultSlippage decimal.Decimal `json:"default_slippage"` // Applied against the trader on market fills
	DefaultSpread   decimal.Decimal `json:"default_spread"`   // Used when a quote is synthesized from one price
	CommissionRate  decimal.Decimal `json:"commission_rate"`  // Fraction of notional charged per execution
	StoragePath     string          `json:"storage_path,omitempty"`
}

// DefaultTradingConfig returns a frictionless configuration: no slippage,
// no spread and no commission.
func DefaultTradingConfig() TradingConfig {
	return TradingConfig{
		DefaultSlippage: decimal.Zero,
		DefaultSpread:   decimal.Zero,
		CommissionRate:  decimal.Zero,
	}
}

package ports

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"paperAccount/internal/domain"
)

// Standard application-level errors.
// Adapters should wrap underlying infrastructure errors with these standard errors.
var (
	// General Errors
	ErrUnknown            = errors.New("unknown error occurred")
	ErrInvalidRequest     = errors.New("invalid request parameters or format")
	ErrNotFound           = errors.New("resource not found")
	ErrTimeout            = errors.New("operation timed out")
	ErrContextCanceled    = errors.New("operation canceled via context")
	ErrConfigurationError = errors.New("invalid or missing configuration")

	// Trading Errors
	ErrInsufficientFunds    = errors.New("insufficient funds for operation")
	ErrInsufficientPosition = errors.New("insufficient position for operation")
	ErrInvalidOrder         = errors.New("invalid order")
	ErrOrderNotFound        = errors.New("order not found")
	ErrSymbolNotFound       = errors.New("symbol not found")
	ErrAccountNotFound      = errors.New("account not found")

	// Market Data Errors
	ErrMarketDataUnavailable = errors.New("market data source is unavailable")
	ErrConnectionFailed      = errors.New("failed to connect to the market data source")
	ErrRateLimited           = errors.New("API rate limit exceeded")

	// Storage Errors
	ErrStorage        = errors.New("storage operation failed")
	ErrDBConnection   = errors.New("database connection error")
	ErrQueryFailed    = errors.New("database query failed")
	ErrUpdateFailed   = errors.New("database update failed")
	ErrSerialization  = errors.New("serialization failed")
	ErrDuplicateEntry = errors.New("database record already exists")
)

// InsufficientFundsError reports a cash shortfall.
type InsufficientFundsError struct {
	Required  decimal.Decimal
	Available decimal.Decimal
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("insufficient funds: required %s, available %s", e.Required, e.Available)
}

func (e *InsufficientFundsError) Unwrap() error { return ErrInsufficientFunds }

// InsufficientPositionError reports that fewer units are held than a sell needs.
type InsufficientPositionError struct {
	Symbol    domain.Symbol
	Required  decimal.Decimal
	Available decimal.Decimal
}

func (e *InsufficientPositionError) Error() string {
	return fmt.Sprintf("insufficient position: required %s, available %s for %s", e.Required, e.Available, e.Symbol)
}

func (e *InsufficientPositionError) Unwrap() error { return ErrInsufficientPosition }

// InvalidOrderError reports a malformed order, including internal
// inconsistencies such as a limit order without a limit price.
type InvalidOrderError struct {
	Reason string
}

func (e *InvalidOrderError) Error() string {
	return "invalid order: " + e.Reason
}

func (e *InvalidOrderError) Unwrap() error { return ErrInvalidOrder }

// OrderNotFoundError reports an unknown (or no longer open) order id.
type OrderNotFoundError struct {
	OrderID domain.OrderID
}

func (e *OrderNotFoundError) Error() string {
	return fmt.Sprintf("order not found: %s", e.OrderID)
}

func (e *OrderNotFoundError) Unwrap() error { return ErrOrderNotFound }

// SymbolNotFoundError reports a symbol a quote or data source does not know.
type SymbolNotFoundError struct {
	Symbol domain.Symbol
}

func (e *SymbolNotFoundError) Error() string {
	return fmt.Sprintf("symbol not found: %s", e.Symbol)
}

func (e *SymbolNotFoundError) Unwrap() error { return ErrSymbolNotFound }

// AccountNotFoundError reports an unknown account id.
type AccountNotFoundError struct {
	AccountID domain.AccountID
}

func (e *AccountNotFoundError) Error() string {
	return fmt.Sprintf("account not found: %s", e.AccountID)
}

func (e *AccountNotFoundError) Unwrap() error { return ErrAccountNotFound }

package ports

import (
	"context"
	"time"

	"paperAccount/internal/domain"
)

// QuoteSource provides current quotes. Implementations range from an
// in-memory table to live exchange feeds and historical replays; the
// account engine is agnostic to which one it is given.
type QuoteSource interface {
	// GetQuote returns the current quote for symbol.
	// Returns a *SymbolNotFoundError if the symbol is unknown.
	GetQuote(ctx context.Context, symbol domain.Symbol) (domain.Quote, error)

	// IsSymbolSupported reports whether GetQuote can serve symbol.
	IsSymbolSupported(ctx context.Context, symbol domain.Symbol) bool
}

// HistoricalDataSource provides historical bars.
type HistoricalDataSource interface {
	// GetHistoricalData returns the bars of symbol whose open time lies in [start, end].
	GetHistoricalData(ctx context.Context, symbol domain.Symbol, start, end time.Time, interval string) ([]*domain.Bar, error)
}

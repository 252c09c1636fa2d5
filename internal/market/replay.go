package market

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"

	"paperAccount/internal/domain"
	"paperAccount/internal/ports"
)

// ReplayQuoteSource replays historical bars as quotes, one step at a time.
// The close of the current bar is the last price; bid and ask are placed
// around it with the configured spread. Symbols advance together by index.
type ReplayQuoteSource struct {
	mu     sync.RWMutex
	bars   map[domain.Symbol][]*domain.Bar
	pos    int
	spread decimal.Decimal
}

// NewReplayQuoteSource creates a replay positioned on the first bar.
func NewReplayQuoteSource(bars map[domain.Symbol][]*domain.Bar, spread decimal.Decimal) *ReplayQuoteSource {
	return &ReplayQuoteSource{bars: bars, spread: spread}
}

// Len returns the number of steps of the longest series.
func (r *ReplayQuoteSource) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, b := range r.bars {
		if len(b) > n {
			n = len(b)
		}
	}
	return n
}

// Position returns the index of the current step.
func (r *ReplayQuoteSource) Position() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.pos
}

// Next advances one step and reports whether a bar is available there.
func (r *ReplayQuoteSource) Next() bool {
	n := r.Len()
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.pos+1 >= n {
		return false
	}
	r.pos++
	return true
}

// Reset moves back to the first bar.
func (r *ReplayQuoteSource) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pos = 0
}

// CurrentBar returns the bar of symbol at the current step. Series shorter
// than the current step keep reporting their last bar.
func (r *ReplayQuoteSource) CurrentBar(symbol domain.Symbol) (*domain.Bar, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.current(symbol)
}

func (r *ReplayQuoteSource) current(symbol domain.Symbol) (*domain.Bar, bool) {
	series := r.bars[symbol]
	if len(series) == 0 {
		return nil, false
	}
	i := r.pos
	if i >= len(series) {
		i = len(series) - 1
	}
	return series[i], true
}

// GetQuote implements ports.QuoteSource.
func (r *ReplayQuoteSource) GetQuote(ctx context.Context, symbol domain.Symbol) (domain.Quote, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	bar, ok := r.current(symbol)
	if !ok {
		return domain.Quote{}, &ports.SymbolNotFoundError{Symbol: symbol}
	}
	q := domain.QuoteFromPrice(symbol, bar.Close, r.spread)
	q.Timestamp = bar.CloseTime
	return q, nil
}

// IsSymbolSupported implements ports.QuoteSource.
func (r *ReplayQuoteSource) IsSymbolSupported(ctx context.Context, symbol domain.Symbol) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.bars[symbol]) > 0
}

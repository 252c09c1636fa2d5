package market

import (
	"context"
	"sync"

	"paperAccount/internal/domain"
	"paperAccount/internal/ports"
)

// MemoryQuoteSource is an in-memory table of quotes, fed by the caller.
// It is safe for concurrent use.
type MemoryQuoteSource struct {
	mu     sync.RWMutex
	quotes map[domain.Symbol]domain.Quote
	config domain.TradingConfig
}

// NewMemoryQuoteSource creates an empty source. cfg.DefaultSpread is used
// by SetPrice to synthesize bid and ask.
func NewMemoryQuoteSource(cfg domain.TradingConfig) *MemoryQuoteSource {
	return &MemoryQuoteSource{
		quotes: make(map[domain.Symbol]domain.Quote),
		config: cfg,
	}
}

// SetQuote stores q as the current quote of its symbol.
func (s *MemoryQuoteSource) SetQuote(q domain.Quote) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.quotes[q.Symbol] = q
}

// SetPrice stores a quote synthesized around price using the source's spread.
func (s *MemoryQuoteSource) SetPrice(symbol domain.Symbol, price domain.Price) {
	s.SetPriceWithConfig(symbol, price, s.config)
}

// SetPriceWithConfig is like SetPrice but takes the spread from cfg.
func (s *MemoryQuoteSource) SetPriceWithConfig(symbol domain.Symbol, price domain.Price, cfg domain.TradingConfig) {
	s.SetQuote(domain.QuoteFromPrice(symbol, price, cfg.DefaultSpread))
}

// Symbols returns the symbols that currently have a quote.
func (s *MemoryQuoteSource) Symbols() []domain.Symbol {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Symbol, 0, len(s.quotes))
	for sym := range s.quotes {
		out = append(out, sym)
	}
	return out
}

// GetQuote implements ports.QuoteSource.
func (s *MemoryQuoteSource) GetQuote(ctx context.Context, symbol domain.Symbol) (domain.Quote, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	q, ok := s.quotes[symbol]
	if !ok {
		return domain.Quote{}, &ports.SymbolNotFoundError{Symbol: symbol}
	}
	return q, nil
}

// IsSymbolSupported implements ports.QuoteSource.
func (s *MemoryQuoteSource) IsSymbolSupported(ctx context.Context, symbol domain.Symbol) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.quotes[symbol]
	return ok
}

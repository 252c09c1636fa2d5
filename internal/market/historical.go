package market

import (
	"context"
	"sort"
	"sync"
	"time"

	"paperAccount/internal/domain"
	"paperAccount/internal/ports"
)

// MemoryHistoricalSource serves historical bars loaded by the caller.
type MemoryHistoricalSource struct {
	mu   sync.RWMutex
	bars map[domain.Symbol][]*domain.Bar
}

// NewMemoryHistoricalSource creates an empty source.
func NewMemoryHistoricalSource() *MemoryHistoricalSource {
	return &MemoryHistoricalSource{bars: make(map[domain.Symbol][]*domain.Bar)}
}

// AddData replaces the bars of symbol. Bars are kept sorted by open time.
func (s *MemoryHistoricalSource) AddData(symbol domain.Symbol, bars []*domain.Bar) {
	sorted := make([]*domain.Bar, len(bars))
	copy(sorted, bars)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].OpenTime.Before(sorted[j].OpenTime) })

	s.mu.Lock()
	defer s.mu.Unlock()
	s.bars[symbol] = sorted
}

// GetHistoricalData implements ports.HistoricalDataSource. The interval is
// not used for filtering: the source serves whatever granularity it was fed.
func (s *MemoryHistoricalSource) GetHistoricalData(ctx context.Context, symbol domain.Symbol, start, end time.Time, interval string) ([]*domain.Bar, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	bars, ok := s.bars[symbol]
	if !ok {
		return nil, &ports.SymbolNotFoundError{Symbol: symbol}
	}

	out := make([]*domain.Bar, 0, len(bars))
	for _, b := range bars {
		if !b.OpenTime.Before(start) && !b.OpenTime.After(end) {
			out = append(out, b)
		}
	}
	return out, nil
}

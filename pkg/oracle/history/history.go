// Package history provides the bounded consensus price history per asset.
package history

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"
)

// Store holds an ordered, bounded window of past consensus prices per asset.
// Entries beyond the window are evicted oldest-first. Only observed consensus
// prices go in; the store never fabricates history.
type Store interface {
	// Append records a consensus price for the asset. Appends for the same
	// asset are serialized by the implementation.
	Append(ctx context.Context, asset string, price decimal.Decimal) error

	// Window returns up to n most recent prices for the asset, oldest first.
	Window(ctx context.Context, asset string, n int) ([]decimal.Decimal, error)
}

// MemoryStore is the in-process Store. Per-asset appends take a single lock,
// so concurrent aggregations for one asset cannot lose or reorder entries.
type MemoryStore struct {
	window int
	mu     sync.Mutex
	series map[string]*assetSeries
}

type assetSeries struct {
	mu     sync.Mutex
	prices []decimal.Decimal
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates a memory store with the given window size.
func NewMemoryStore(window int) *MemoryStore {
	if window <= 0 {
		window = 30
	}
	return &MemoryStore{
		window: window,
		series: make(map[string]*assetSeries),
	}
}

// Append records a consensus price, evicting the oldest entry beyond the window.
func (s *MemoryStore) Append(_ context.Context, asset string, price decimal.Decimal) error {
	series := s.seriesFor(asset)

	series.mu.Lock()
	defer series.mu.Unlock()

	series.prices = append(series.prices, price)
	if len(series.prices) > s.window {
		// FIFO eviction, oldest first
		series.prices = series.prices[len(series.prices)-s.window:]
	}
	return nil
}

// Window returns up to n most recent prices, oldest first.
func (s *MemoryStore) Window(_ context.Context, asset string, n int) ([]decimal.Decimal, error) {
	series := s.seriesFor(asset)

	series.mu.Lock()
	defer series.mu.Unlock()

	prices := series.prices
	if n > 0 && len(prices) > n {
		prices = prices[len(prices)-n:]
	}

	out := make([]decimal.Decimal, len(prices))
	copy(out, prices)
	return out, nil
}

// Len returns the current history length for an asset.
func (s *MemoryStore) Len(asset string) int {
	series := s.seriesFor(asset)

	series.mu.Lock()
	defer series.mu.Unlock()
	return len(series.prices)
}

func (s *MemoryStore) seriesFor(asset string) *assetSeries {
	s.mu.Lock()
	defer s.mu.Unlock()

	series, ok := s.series[asset]
	if !ok {
		series = &assetSeries{}
		s.series[asset] = series
	}
	return series
}

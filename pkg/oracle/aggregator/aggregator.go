// Package aggregator fans out to price sources and computes consensus.
package aggregator

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/stablemint/oracle-engine/pkg/logging"
	"github.com/stablemint/oracle-engine/pkg/metrics"
	"github.com/stablemint/oracle-engine/pkg/oracle/history"
	"github.com/stablemint/oracle-engine/pkg/oracle/sources"
)

// ConsensusResult is the outcome of one aggregation round. The median is
// computed only from quotes with positive prices; SourcesUsed is provenance
// for how many sources contributed.
type ConsensusResult struct {
	Asset       string          `json:"asset"`
	MedianPrice decimal.Decimal `json:"median_price"`
	SourcesUsed int             `json:"sources_used"`
	Quotes      []sources.Quote `json:"quotes"`
}

// Aggregator fans out to all configured source clients concurrently, collects
// the successful quotes, and takes their median as the consensus price. The
// median tolerates a minority of outlier or compromised sources; correctness
// holds as long as a majority of configured sources are honest.
type Aggregator struct {
	clients       []sources.Client
	sourceTimeout time.Duration
	store         history.Store
	logger        *logging.Logger
}

// New creates an aggregator over the given clients. Each successful consensus
// is appended to the history store for the asset.
func New(clients []sources.Client, sourceTimeout time.Duration, store history.Store, logger *logging.Logger) (*Aggregator, error) {
	if len(clients) == 0 {
		return nil, fmt.Errorf("%w", ErrNoClientsConfigured)
	}
	if sourceTimeout <= 0 {
		sourceTimeout = sources.DefaultTimeout
	}

	return &Aggregator{
		clients:       clients,
		sourceTimeout: sourceTimeout,
		store:         store,
		logger:        logger,
	}, nil
}

// Aggregate fetches the asset price from every client in parallel and returns
// the median consensus. Per-source failures are swallowed here and surfaced
// only through SourcesUsed; zero successes fail with ErrNoFeedAvailable.
func (a *Aggregator) Aggregate(ctx context.Context, asset string) (*ConsensusResult, error) {
	start := time.Now()
	normalized := sources.NormalizeAsset(asset)
	if normalized == "" {
		return nil, fmt.Errorf("%w: empty asset", ErrNoFeedAvailable)
	}

	// Overall deadline: stragglers past it are abandoned, not awaited. Each
	// client carries its own per-fetch timeout, so an abandoned fetch still
	// releases its network resources on its own.
	deadline := 2 * a.sourceTimeout
	fanCtx, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()

	results := make(chan sources.Quote, len(a.clients))
	var wg sync.WaitGroup
	for _, client := range a.clients {
		wg.Add(1)
		go func(client sources.Client) {
			defer wg.Done()

			fetchStart := time.Now()
			quote, err := client.Fetch(fanCtx, normalized)
			if err != nil {
				metrics.RecordSourceFetch(client.Name(), "error", time.Since(fetchStart))
				a.logger.Warn("Source fetch failed",
					"source", client.Name(),
					"asset", normalized,
					"error", err.Error())
				return
			}

			metrics.RecordSourceFetch(client.Name(), "ok", time.Since(fetchStart))
			results <- quote
		}(client)
	}

	// Close the results channel once every fetch returned or was abandoned.
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	quotes := a.collect(fanCtx, results, done, len(a.clients))

	if len(quotes) == 0 {
		return nil, fmt.Errorf("%w: %s (0 of %d sources)", ErrNoFeedAvailable, normalized, len(a.clients))
	}

	median := medianPrice(quotes)

	result := &ConsensusResult{
		Asset:       normalized,
		MedianPrice: median,
		SourcesUsed: len(quotes),
		Quotes:      quotes,
	}

	if a.store != nil {
		if err := a.store.Append(ctx, normalized, median); err != nil {
			// History drives prediction only; a failed append degrades the
			// next volatility estimate but never the consensus itself.
			a.logger.Error("Failed to append consensus history",
				"asset", normalized,
				"error", err.Error())
		}
	}

	price, _ := median.Float64()
	metrics.RecordAggregation(normalized, len(quotes), price, time.Since(start))

	a.logger.Debug("Aggregated consensus",
		"asset", normalized,
		"median", median.String(),
		"sources_used", len(quotes))

	return result, nil
}

// collect gathers quotes until every client reported, the fan-out deadline
// fires, or all fetch goroutines finished. The results channel is buffered,
// so quotes delivered before done or the deadline may still sit in it when
// either case wins the select; both exit paths drain non-blockingly before
// returning. A quote that made it into the buffer within the deadline is
// never discarded.
func (a *Aggregator) collect(ctx context.Context, results <-chan sources.Quote, done <-chan struct{}, expected int) []sources.Quote {
	quotes := make([]sources.Quote, 0, expected)
collect:
	for {
		select {
		case quote := <-results:
			quotes = append(quotes, quote)
			if len(quotes) == expected {
				break collect
			}
		case <-done:
			for {
				select {
				case quote := <-results:
					quotes = append(quotes, quote)
				default:
					break collect
				}
			}
		case <-ctx.Done():
			for {
				select {
				case quote := <-results:
					quotes = append(quotes, quote)
				default:
					break collect
				}
			}
		}
	}
	return quotes
}

// medianPrice computes the order-independent median of the quote prices.
// Even counts average the two middle values, matching the consensus contract.
func medianPrice(quotes []sources.Quote) decimal.Decimal {
	prices := make([]decimal.Decimal, len(quotes))
	for i, q := range quotes {
		prices[i] = q.Price
	}

	sort.Slice(prices, func(i, j int) bool {
		return prices[i].LessThan(prices[j])
	})

	n := len(prices)
	if n%2 == 1 {
		return prices[n/2]
	}
	return prices[n/2-1].Add(prices[n/2]).Div(decimal.NewFromInt(2))
}

// Package oracle composes aggregation, prediction, attestation, and peg
// decisions into the engine's two public operations.
package oracle

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/stablemint/oracle-engine/pkg/logging"
	"github.com/stablemint/oracle-engine/pkg/metrics"
	"github.com/stablemint/oracle-engine/pkg/oracle/aggregator"
	"github.com/stablemint/oracle-engine/pkg/oracle/attest"
	"github.com/stablemint/oracle-engine/pkg/oracle/history"
	"github.com/stablemint/oracle-engine/pkg/oracle/predictor"
	"github.com/stablemint/oracle-engine/pkg/oracle/stabilize"
)

// DefaultAdjustmentScale is k in adjusted = median * (1 + volatility * k).
// With volatility bounded to [0,1] the adjustment is bounded to k * median.
var DefaultAdjustmentScale = decimal.NewFromFloat(0.01)

// Engine owns the aggregator, predictor, attestor, and decider for the
// lifetime of the process and exposes the two operations collaborators use.
type Engine struct {
	aggregator *aggregator.Aggregator
	predictor  predictor.Predictor
	attestor   *attest.Attestor
	decider    *stabilize.Decider
	store      history.Store
	window     int
	scale      decimal.Decimal // adjustment constant k
	logger     *logging.Logger
}

// Options configures an Engine.
type Options struct {
	Aggregator      *aggregator.Aggregator
	Predictor       predictor.Predictor
	Attestor        *attest.Attestor
	Decider         *stabilize.Decider
	History         history.Store
	PredictorWindow int             // observations fed to the predictor (default 30)
	AdjustmentScale decimal.Decimal // k, taken literally (zero disables the adjustment)
	Logger          *logging.Logger
}

// NewEngine composes the engine from its collaborators.
func NewEngine(opts Options) *Engine {
	window := opts.PredictorWindow
	if window <= 0 {
		window = predictor.DefaultWindow
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNoopLogger()
	}

	return &Engine{
		aggregator: opts.Aggregator,
		predictor:  opts.Predictor,
		attestor:   opts.Attestor,
		decider:    opts.Decider,
		store:      opts.History,
		window:     window,
		scale:      opts.AdjustmentScale,
		logger:     logger,
	}
}

// GetAttestedFeed aggregates quotes for the asset, adjusts the consensus with
// the predicted volatility, and returns the signed feed. Every stage failure
// propagates with its own error kind; no partial feed is ever returned. A
// predictor failure alone does not fail the call: it degrades to volatility 0.
func (e *Engine) GetAttestedFeed(ctx context.Context, asset string) (*attest.AttestedFeed, error) {
	consensus, err := e.aggregator.Aggregate(ctx, asset)
	if err != nil {
		return nil, err
	}

	volatility := e.predictVolatility(ctx, consensus)

	// adjusted = median * (1 + volatility * k)
	one := decimal.NewFromInt(1)
	adjusted := consensus.MedianPrice.Mul(one.Add(volatility.Mul(e.scale)))

	feed, err := e.attestor.Attest(consensus.Asset, consensus.MedianPrice, adjusted, volatility, consensus.SourcesUsed)
	if err != nil {
		return nil, err
	}

	e.logger.Info("Produced attested feed",
		"asset", feed.Asset,
		"median", feed.MedianPrice.String(),
		"predicted", feed.PredictedPrice.String(),
		"volatility", feed.VolatilityScore.String(),
		"sources_used", feed.SourcesUsed)

	return feed, nil
}

// Recommend delegates the peg decision to the stabilization decider. It never
// fetches feeds itself: callers supply the price (typically from a prior
// GetAttestedFeed) so feed freshness stays decoupled from decision logic.
func (e *Engine) Recommend(currentPrice, targetPeg, volatility decimal.Decimal) stabilize.Recommendation {
	return e.decider.Recommend(currentPrice, targetPeg, volatility)
}

// predictVolatility runs the predictor over the asset's history window,
// failing open to zero volatility when the predictor cannot deliver.
func (e *Engine) predictVolatility(ctx context.Context, consensus *aggregator.ConsensusResult) decimal.Decimal {
	prices, err := e.store.Window(ctx, consensus.Asset, e.window)
	if err != nil || len(prices) == 0 {
		// The current consensus is always an observation of record.
		prices = []decimal.Decimal{consensus.MedianPrice}
	}

	padded, err := predictor.PadWindow(prices, e.window)
	if err != nil {
		e.degraded(consensus.Asset, err)
		return decimal.Zero
	}

	volatility, err := e.predictor.PredictVolatility(ctx, padded)
	if err != nil {
		e.degraded(consensus.Asset, err)
		return decimal.Zero
	}

	return predictor.Clamp(volatility)
}

func (e *Engine) degraded(asset string, err error) {
	metrics.RecordPredictorFallback()
	e.logger.Warn("Predictor degraded, assuming zero volatility",
		"asset", asset,
		"error", err.Error())
}

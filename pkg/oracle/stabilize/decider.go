// Package stabilize decides supply actions against a target peg.
package stabilize

import (
	"github.com/shopspring/decimal"

	"github.com/stablemint/oracle-engine/pkg/logging"
	"github.com/stablemint/oracle-engine/pkg/metrics"
)

// Action is a recommended supply action.
type Action string

const (
	ActionMint Action = "mint"
	ActionBurn Action = "burn"
	ActionHold Action = "hold"
)

// Default thresholds. All three are configuration, not behavior.
var (
	DefaultVolatilityThreshold = decimal.NewFromFloat(0.5)
	DefaultDeviationThreshold  = decimal.NewFromFloat(0.02)
	DefaultScaleFactor         = decimal.NewFromInt(1000)
)

// Recommendation is the outcome of one stabilization decision. Derived, never
// persisted; recomputed on every call.
type Recommendation struct {
	Action          Action          `json:"action"`
	Amount          decimal.Decimal `json:"amount"`
	VolatilityScore decimal.Decimal `json:"volatility_score"`
}

// Config holds the decision thresholds. Zero values are taken literally: a
// zero deviation threshold means every round acts. Start from DefaultConfig
// for the standard thresholds.
type Config struct {
	VolatilityThreshold decimal.Decimal // act strictly above this volatility
	DeviationThreshold  decimal.Decimal // act at or above this peg deviation
	ScaleFactor         decimal.Decimal // amount = deviation * scale
}

// DefaultConfig returns the standard thresholds.
func DefaultConfig() Config {
	return Config{
		VolatilityThreshold: DefaultVolatilityThreshold,
		DeviationThreshold:  DefaultDeviationThreshold,
		ScaleFactor:         DefaultScaleFactor,
	}
}

// Decider maps (price, peg, volatility) to a supply recommendation. Each call
// is stateless; the thresholds are fixed at construction.
type Decider struct {
	cfg    Config
	logger *logging.Logger
}

// New creates a decider with the given thresholds.
func New(cfg Config, logger *logging.Logger) *Decider {
	return &Decider{cfg: cfg, logger: logger}
}

// Recommend decides among mint, burn, and hold for the current price against
// the target peg. Volatility strictly above its threshold or a peg deviation
// at or above its threshold triggers action; the amount scales with the
// deviation. A deviation of exactly the threshold acts: Recommend(0.98, 1.0)
// with the default thresholds mints with amount 20.
//
// The direction test is a strict currentPrice > targetPeg: a price exactly at
// peg under high volatility recommends mint. That tie-break is part of the
// observable contract and must not change.
func (d *Decider) Recommend(currentPrice, targetPeg, volatility decimal.Decimal) Recommendation {
	deviation := currentPrice.Sub(targetPeg).Abs()

	rec := Recommendation{
		Action:          ActionHold,
		Amount:          decimal.Zero,
		VolatilityScore: volatility,
	}

	if volatility.GreaterThan(d.cfg.VolatilityThreshold) || deviation.GreaterThanOrEqual(d.cfg.DeviationThreshold) {
		if currentPrice.GreaterThan(targetPeg) {
			rec.Action = ActionBurn
		} else {
			rec.Action = ActionMint
		}
		rec.Amount = deviation.Mul(d.cfg.ScaleFactor)
	}

	metrics.RecordRecommendation(string(rec.Action))

	d.logger.Debug("Stabilization recommendation",
		"price", currentPrice.String(),
		"peg", targetPeg.String(),
		"deviation", deviation.String(),
		"volatility", volatility.String(),
		"action", string(rec.Action),
		"amount", rec.Amount.String())

	return rec
}

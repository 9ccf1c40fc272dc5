// Package predictor defines the volatility prediction boundary.
package predictor

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// DefaultWindow is the number of observations fed to the predictor.
const DefaultWindow = 30

// ErrEmptyHistory indicates prediction was attempted with no observations.
var ErrEmptyHistory = errors.New("empty price history")

// Predictor estimates near-term price instability from a bounded window of
// past consensus prices. Implementations must be pure with respect to the
// history argument; any internal model state is the implementation's own
// concern and invisible here. Scores outside [0,1] are clamped by the caller.
type Predictor interface {
	// PredictVolatility returns a volatility score in [0,1] for the ordered
	// history, oldest first.
	PredictVolatility(ctx context.Context, prices []decimal.Decimal) (decimal.Decimal, error)
}

// PadWindow edge-extends a short history to exactly window entries by
// repeating the oldest observation at the front. Histories at or above the
// window size are truncated to the most recent window entries. The padding
// policy is fixed so predictor inputs are deterministic for a given history.
func PadWindow(prices []decimal.Decimal, window int) ([]decimal.Decimal, error) {
	if window <= 0 {
		window = DefaultWindow
	}
	if len(prices) == 0 {
		return nil, fmt.Errorf("%w", ErrEmptyHistory)
	}

	if len(prices) >= window {
		out := make([]decimal.Decimal, window)
		copy(out, prices[len(prices)-window:])
		return out, nil
	}

	out := make([]decimal.Decimal, 0, window)
	for i := len(prices); i < window; i++ {
		out = append(out, prices[0])
	}
	out = append(out, prices...)
	return out, nil
}

// Clamp bounds a volatility score to [0,1].
func Clamp(score decimal.Decimal) decimal.Decimal {
	if score.IsNegative() {
		return decimal.Zero
	}
	one := decimal.NewFromInt(1)
	if score.GreaterThan(one) {
		return one
	}
	return score
}

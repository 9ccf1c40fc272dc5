package predictor

import (
	"context"
	"fmt"
	"math"

	"github.com/shopspring/decimal"
)

// defaultScale maps a relative standard deviation onto [0,1]. A window whose
// prices deviate 5% or more from their mean saturates the score at 1.
var defaultScale = decimal.NewFromInt(20)

// StdDevPredictor is the built-in reference predictor: the score is the
// standard deviation of the window relative to its mean, scaled and clamped
// to [0,1]. It lets the engine run without an external model service; any
// richer model plugs in behind the same interface.
type StdDevPredictor struct {
	scale decimal.Decimal
}

var _ Predictor = (*StdDevPredictor)(nil)

// NewStdDevPredictor creates the reference predictor.
func NewStdDevPredictor() *StdDevPredictor {
	return &StdDevPredictor{scale: defaultScale}
}

// PredictVolatility scores the window by its coefficient of variation.
func (p *StdDevPredictor) PredictVolatility(_ context.Context, prices []decimal.Decimal) (decimal.Decimal, error) {
	if len(prices) == 0 {
		return decimal.Zero, fmt.Errorf("%w", ErrEmptyHistory)
	}

	n := decimal.NewFromInt(int64(len(prices)))

	sum := decimal.Zero
	for _, price := range prices {
		sum = sum.Add(price)
	}
	mean := sum.Div(n)

	if mean.IsZero() {
		return decimal.Zero, nil
	}

	variance := decimal.Zero
	for _, price := range prices {
		diff := price.Sub(mean)
		variance = variance.Add(diff.Mul(diff))
	}
	variance = variance.Div(n)

	// decimal has no square root; float64 precision is ample for a score
	// that is clamped to [0,1] anyway.
	varF, _ := variance.Div(mean.Mul(mean)).Float64()
	if varF <= 0 {
		return decimal.Zero, nil
	}

	relStdDev := decimal.NewFromFloat(math.Sqrt(varF))
	return Clamp(relStdDev.Mul(p.scale)), nil
}

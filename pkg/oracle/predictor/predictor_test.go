package predictor

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func prices(values ...string) []decimal.Decimal {
	out := make([]decimal.Decimal, len(values))
	for i, v := range values {
		out[i] = decimal.RequireFromString(v)
	}
	return out
}

func TestPadWindow_ShortHistoryEdgeExtends(t *testing.T) {
	padded, err := PadWindow(prices("100", "101", "102"), 5)
	require.NoError(t, err)
	require.Len(t, padded, 5)

	// Oldest observation repeated at the front
	assert.True(t, padded[0].Equal(decimal.NewFromInt(100)))
	assert.True(t, padded[1].Equal(decimal.NewFromInt(100)))
	assert.True(t, padded[2].Equal(decimal.NewFromInt(100)))
	assert.True(t, padded[3].Equal(decimal.NewFromInt(101)))
	assert.True(t, padded[4].Equal(decimal.NewFromInt(102)))
}

func TestPadWindow_ExactLengthUnchanged(t *testing.T) {
	in := prices("1", "2", "3")
	padded, err := PadWindow(in, 3)
	require.NoError(t, err)
	require.Len(t, padded, 3)
	for i := range in {
		assert.True(t, padded[i].Equal(in[i]))
	}
}

func TestPadWindow_LongHistoryTruncatesToMostRecent(t *testing.T) {
	padded, err := PadWindow(prices("1", "2", "3", "4", "5"), 3)
	require.NoError(t, err)
	require.Len(t, padded, 3)
	assert.True(t, padded[0].Equal(decimal.NewFromInt(3)))
	assert.True(t, padded[2].Equal(decimal.NewFromInt(5)))
}

func TestPadWindow_EmptyHistoryFails(t *testing.T) {
	_, err := PadWindow(nil, 5)
	require.ErrorIs(t, err, ErrEmptyHistory)
}

func TestPadWindow_SingleObservation(t *testing.T) {
	padded, err := PadWindow(prices("42"), 4)
	require.NoError(t, err)
	require.Len(t, padded, 4)
	for _, p := range padded {
		assert.True(t, p.Equal(decimal.NewFromInt(42)))
	}
}

func TestClamp(t *testing.T) {
	assert.True(t, Clamp(decimal.RequireFromString("-0.3")).IsZero())
	assert.True(t, Clamp(decimal.RequireFromString("0.4")).Equal(decimal.RequireFromString("0.4")))
	assert.True(t, Clamp(decimal.RequireFromString("1.7")).Equal(decimal.NewFromInt(1)))
}

func TestStdDevPredictor_ConstantPricesScoreZero(t *testing.T) {
	p := NewStdDevPredictor()

	score, err := p.PredictVolatility(context.Background(), prices("100", "100", "100", "100"))
	require.NoError(t, err)
	assert.True(t, score.IsZero(), "score = %s", score)
}

func TestStdDevPredictor_VolatileWindowScoresHigher(t *testing.T) {
	p := NewStdDevPredictor()

	calm, err := p.PredictVolatility(context.Background(), prices("100", "100.1", "99.9", "100"))
	require.NoError(t, err)

	wild, err := p.PredictVolatility(context.Background(), prices("100", "120", "80", "100"))
	require.NoError(t, err)

	assert.True(t, wild.GreaterThan(calm), "wild %s should exceed calm %s", wild, calm)
}

func TestStdDevPredictor_ScoreBounded(t *testing.T) {
	p := NewStdDevPredictor()

	// Extreme swings must still clamp to 1
	score, err := p.PredictVolatility(context.Background(), prices("1", "1000", "1", "1000"))
	require.NoError(t, err)
	assert.True(t, score.LessThanOrEqual(decimal.NewFromInt(1)))
	assert.True(t, score.GreaterThanOrEqual(decimal.Zero))
}

func TestStdDevPredictor_EmptyHistoryFails(t *testing.T) {
	p := NewStdDevPredictor()

	_, err := p.PredictVolatility(context.Background(), nil)
	require.ErrorIs(t, err, ErrEmptyHistory)
}

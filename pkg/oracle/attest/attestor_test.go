package attest

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stablemint/oracle-engine/pkg/logging"
)

// fakeSigner records the payload it was asked to sign.
type fakeSigner struct {
	payload []byte
	err     error
}

func (s *fakeSigner) Sign(payload []byte) ([]byte, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.payload = payload
	return []byte("signature"), nil
}

func (s *fakeSigner) PublicKey() []byte { return []byte("pubkey") }

func TestAttest_SignsCanonicalPayload(t *testing.T) {
	signer := &fakeSigner{}
	attestor := New(signer, logging.NewNoopLogger())

	median := decimal.RequireFromString("1.00")
	predicted := decimal.RequireFromString("1.0042")
	volatility := decimal.RequireFromString("0.42")

	feed, err := attestor.Attest("USTC", median, predicted, volatility, 3)
	require.NoError(t, err)

	assert.Equal(t, "USTC", feed.Asset)
	assert.True(t, feed.MedianPrice.Equal(median))
	assert.True(t, feed.PredictedPrice.Equal(predicted))
	assert.True(t, feed.VolatilityScore.Equal(volatility))
	assert.Equal(t, 3, feed.SourcesUsed)
	assert.Equal(t, []byte("signature"), feed.Signature)
	assert.False(t, feed.Timestamp.IsZero())

	assert.Equal(t, string(CanonicalPayload("USTC", predicted, volatility)), string(signer.payload))
}

func TestCanonicalPayload_Format(t *testing.T) {
	payload := CanonicalPayload("USTC",
		decimal.RequireFromString("1.5"),
		decimal.RequireFromString("0.25"),
	)

	// Fixed field order, lowercase asset, fixed decimal places
	assert.Equal(t, "oracle/v1:ustc:1.500000000000000000:0.250000", string(payload))
}

func TestCanonicalPayload_CaseAndSpaceInsensitive(t *testing.T) {
	a := CanonicalPayload("USTC", decimal.NewFromInt(1), decimal.Zero)
	b := CanonicalPayload("  ustc ", decimal.NewFromInt(1), decimal.Zero)
	assert.Equal(t, string(a), string(b))
}

func TestCanonicalPayload_DistinctInputsDistinctPayloads(t *testing.T) {
	base := CanonicalPayload("USTC", decimal.NewFromInt(1), decimal.Zero)

	otherAsset := CanonicalPayload("BTC", decimal.NewFromInt(1), decimal.Zero)
	otherPrice := CanonicalPayload("USTC", decimal.NewFromInt(2), decimal.Zero)
	otherVol := CanonicalPayload("USTC", decimal.NewFromInt(1), decimal.RequireFromString("0.1"))

	assert.NotEqual(t, string(base), string(otherAsset))
	assert.NotEqual(t, string(base), string(otherPrice))
	assert.NotEqual(t, string(base), string(otherVol))
}

func TestAttest_NilSignerFails(t *testing.T) {
	attestor := New(nil, logging.NewNoopLogger())

	_, err := attestor.Attest("USTC", decimal.NewFromInt(1), decimal.NewFromInt(1), decimal.Zero, 1)
	require.ErrorIs(t, err, ErrSigningUnavailable)
}

func TestAttest_SignerErrorFails(t *testing.T) {
	attestor := New(&fakeSigner{err: errors.New("hsm offline")}, logging.NewNoopLogger())

	_, err := attestor.Attest("USTC", decimal.NewFromInt(1), decimal.NewFromInt(1), decimal.Zero, 1)
	require.ErrorIs(t, err, ErrSigningUnavailable)
}

func TestAttest_EmptyAssetFails(t *testing.T) {
	attestor := New(&fakeSigner{}, logging.NewNoopLogger())

	_, err := attestor.Attest("  ", decimal.NewFromInt(1), decimal.NewFromInt(1), decimal.Zero, 1)
	require.ErrorIs(t, err, ErrEmptyAsset)
}

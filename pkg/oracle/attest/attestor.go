// Package attest produces signed, timestamped price attestations.
package attest

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/stablemint/oracle-engine/pkg/logging"
	"github.com/stablemint/oracle-engine/pkg/metrics"
)

// Canonical encoding contract, version 1. The signature covers exactly
// (asset, predicted price, volatility score) in this layout:
//
//	oracle/v1:<asset lowercase>:<price, 18 decimal places>:<volatility, 6 decimal places>
//
// Field order and numeric formatting are fixed so signatures are reproducible
// and verifiable independent of implementation language.
const (
	encodingPrefix = "oracle/v1"
	pricePlaces    = 18
	volPlaces      = 6
)

// Signer is the injected signing capability. Key material lifecycle is the
// collaborator's responsibility; the attestor never generates keys.
// Implementations must be safe for concurrent use.
type Signer interface {
	// Sign signs the payload and returns the signature bytes.
	Sign(payload []byte) ([]byte, error)

	// PublicKey returns the verifying key bytes for this signer.
	PublicKey() []byte
}

// AttestedFeed is a signed, timestamped statement binding an asset to a
// consensus price, predicted price, and volatility score. Immutable once
// created.
type AttestedFeed struct {
	Asset           string          `json:"asset"`
	MedianPrice     decimal.Decimal `json:"median_price"`
	PredictedPrice  decimal.Decimal `json:"predicted_price"`
	VolatilityScore decimal.Decimal `json:"volatility_score"`
	SourcesUsed     int             `json:"sources_used"`
	Signature       []byte          `json:"signature"`
	Timestamp       time.Time       `json:"timestamp"`
}

// Attestor signs feed results with an injected signing capability.
type Attestor struct {
	signer Signer
	logger *logging.Logger
}

// New creates an attestor around the given signer.
func New(signer Signer, logger *logging.Logger) *Attestor {
	return &Attestor{signer: signer, logger: logger}
}

// Attest builds the canonical encoding of (asset, predictedPrice,
// volatilityScore), signs it, and returns the attested feed. A missing or
// failing signer yields ErrSigningUnavailable; no unsigned feed is ever
// returned.
func (a *Attestor) Attest(asset string, median, predicted, volatility decimal.Decimal, sourcesUsed int) (*AttestedFeed, error) {
	if strings.TrimSpace(asset) == "" {
		return nil, fmt.Errorf("%w", ErrEmptyAsset)
	}
	if a.signer == nil {
		metrics.RecordAttestation("unavailable")
		return nil, fmt.Errorf("%w: no signer configured", ErrSigningUnavailable)
	}

	payload := CanonicalPayload(asset, predicted, volatility)

	signature, err := a.signer.Sign(payload)
	if err != nil {
		metrics.RecordAttestation("error")
		return nil, fmt.Errorf("%w: %v", ErrSigningUnavailable, err)
	}

	metrics.RecordAttestation("ok")

	feed := &AttestedFeed{
		Asset:           strings.ToUpper(strings.TrimSpace(asset)),
		MedianPrice:     median,
		PredictedPrice:  predicted,
		VolatilityScore: volatility,
		SourcesUsed:     sourcesUsed,
		Signature:       signature,
		Timestamp:       time.Now(),
	}

	a.logger.Debug("Attested feed",
		"asset", feed.Asset,
		"predicted_price", predicted.String(),
		"volatility", volatility.String())

	return feed, nil
}

// CanonicalPayload builds the version-1 byte encoding the signature covers.
func CanonicalPayload(asset string, predicted, volatility decimal.Decimal) []byte {
	return []byte(fmt.Sprintf("%s:%s:%s:%s",
		encodingPrefix,
		strings.ToLower(strings.TrimSpace(asset)),
		predicted.StringFixed(pricePlaces),
		volatility.StringFixed(volPlaces),
	))
}

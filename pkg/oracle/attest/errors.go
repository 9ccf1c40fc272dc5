package attest

import "errors"

var (
	// ErrSigningUnavailable indicates the signing capability is not ready.
	// Fatal: a feed is never returned unsigned.
	ErrSigningUnavailable = errors.New("signing unavailable")
	// ErrEmptyAsset indicates an attestation was requested without an asset.
	ErrEmptyAsset = errors.New("asset cannot be empty")
)

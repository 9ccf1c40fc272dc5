package sources

import "errors"

var (
	// ErrSourceUnavailable indicates that one source failed to produce a usable
	// quote. Non-fatal; the aggregator tolerates it up to all-sources-failed.
	ErrSourceUnavailable = errors.New("source unavailable")
	// ErrUnknownProviderKind indicates an unregistered provider kind.
	ErrUnknownProviderKind = errors.New("unknown provider kind")
	// ErrAssetNotConfigured indicates the client has no mapping for the asset.
	ErrAssetNotConfigured = errors.New("asset not configured for source")
	// ErrEmptyAsset indicates an empty asset symbol.
	ErrEmptyAsset = errors.New("asset symbol cannot be empty")
	// ErrNoAssetsConfigured indicates a client was configured without assets.
	ErrNoAssetsConfigured = errors.New("no assets configured")
	// ErrUnexpectedStatus indicates an unexpected HTTP status code.
	ErrUnexpectedStatus = errors.New("unexpected HTTP status code")
	// ErrInvalidResponse indicates a malformed response from the provider.
	ErrInvalidResponse = errors.New("invalid response")
	// ErrNonPositivePrice indicates the provider returned a zero or negative price.
	ErrNonPositivePrice = errors.New("non-positive price in response")
	// ErrRPCURLRequired indicates that rpc_url is required.
	ErrRPCURLRequired = errors.New("rpc_url is required")
	// ErrStaleRound indicates an on-chain round with no valid answer yet.
	ErrStaleRound = errors.New("stale or incomplete round")
)

package aggregator

import "errors"

var (
	// ErrNoFeedAvailable indicates that zero sources produced a usable quote.
	// Fatal for the call; the only fatal condition in aggregation.
	ErrNoFeedAvailable = errors.New("no feed available")
	// ErrNoClientsConfigured indicates the aggregator has no source clients.
	ErrNoClientsConfigured = errors.New("no source clients configured")
)

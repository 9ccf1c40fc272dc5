// Package sources provides one-shot price quote clients for external providers.
package sources

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/stablemint/oracle-engine/pkg/logging"
)

// ProviderKind identifies the response shape a client knows how to parse.
type ProviderKind string

const (
	KindCoinGecko ProviderKind = "coingecko"
	KindBinance   ProviderKind = "binance"
	KindKraken    ProviderKind = "kraken"
	KindChainlink ProviderKind = "chainlink"
)

// DefaultTimeout bounds a single fetch when no timeout is configured.
const DefaultTimeout = 5 * time.Second

// Quote is a single price observation from one provider.
// Quotes are immutable and discarded after aggregation.
type Quote struct {
	Source    string          `json:"source"`
	Asset     string          `json:"asset"`
	Price     decimal.Decimal `json:"price"`
	Timestamp time.Time       `json:"timestamp"`
}

// Client fetches a single quote from one external provider.
// Implementations enforce a bounded per-call timeout and perform no retries;
// retry policy belongs to the caller.
type Client interface {
	// Fetch returns the current quote for the asset or ErrSourceUnavailable.
	// A zero or negative extracted price is never returned silently.
	Fetch(ctx context.Context, asset string) (Quote, error)

	// Name returns the unique name of this client instance.
	Name() string

	// Kind returns the provider kind this client parses.
	Kind() ProviderKind
}

// Config holds the construction-time settings shared by all clients.
type Config struct {
	Name    string
	URL     string            // provider endpoint; defaults per kind
	Timeout time.Duration     // per-fetch deadline; DefaultTimeout if zero
	Assets  map[string]string // unified asset symbol -> provider-specific identifier
	Extra   map[string]interface{}
}

// Factory constructs a Client for one provider kind. Factories validate the
// configuration fully, so a client that constructs successfully never fails
// on config problems at fetch time.
type Factory func(cfg Config, logger *logging.Logger) (Client, error)

package sources

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/stablemint/oracle-engine/pkg/logging"
)

const coingeckoBaseURL = "https://api.coingecko.com/api/v3"

// CoinGeckoClient fetches USD spot prices from the CoinGecko simple price API.
// Asset mapping: unified symbol -> CoinGecko coin id (e.g. "BTC" -> "bitcoin").
type CoinGeckoClient struct {
	*baseClient
}

var _ Client = (*CoinGeckoClient)(nil)

// NewCoinGeckoClient creates a new CoinGecko client.
func NewCoinGeckoClient(cfg Config, logger *logging.Logger) (Client, error) {
	base, err := newBaseClient(KindCoinGecko, coingeckoBaseURL, cfg, logger)
	if err != nil {
		return nil, err
	}
	return &CoinGeckoClient{baseClient: base}, nil
}

// Fetch returns the current USD quote for the asset.
func (c *CoinGeckoClient) Fetch(ctx context.Context, asset string) (Quote, error) {
	id, err := c.providerID(asset)
	if err != nil {
		return Quote{}, c.unavailable(err)
	}

	url := fmt.Sprintf("%s/simple/price?ids=%s&vs_currencies=usd", c.url, id)

	// Response shape: {"bitcoin": {"usd": 65000.12}}
	var data map[string]map[string]decimal.Decimal
	if err := c.getJSON(ctx, url, &data); err != nil {
		return Quote{}, c.unavailable(err)
	}

	entry, ok := data[id]
	if !ok {
		return Quote{}, c.unavailable(fmt.Errorf("%w: missing coin %q", ErrInvalidResponse, id))
	}
	price, ok := entry["usd"]
	if !ok {
		return Quote{}, c.unavailable(fmt.Errorf("%w: missing usd rate for %q", ErrInvalidResponse, id))
	}

	q, err := c.quote(asset, price)
	if err != nil {
		return Quote{}, c.unavailable(err)
	}

	c.logger.Debug("Fetched quote", "source", c.name, "asset", q.Asset, "price", q.Price.String())
	return q, nil
}

func init() {
	Register(KindCoinGecko, NewCoinGeckoClient)
}

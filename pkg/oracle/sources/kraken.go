package sources

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/stablemint/oracle-engine/pkg/logging"
)

const krakenBaseURL = "https://api.kraken.com"

// KrakenClient fetches spot prices from the Kraken public ticker endpoint.
// Asset mapping: unified symbol -> Kraken pair (e.g. "BTC" -> "XXBTZUSD").
type KrakenClient struct {
	*baseClient
}

// krakenResponse is the /0/public/Ticker response. "c" holds the last trade
// [price, lot volume] pair.
type krakenResponse struct {
	Error  []string `json:"error"`
	Result map[string]struct {
		Close []string `json:"c"`
	} `json:"result"`
}

var _ Client = (*KrakenClient)(nil)

// NewKrakenClient creates a new Kraken client.
func NewKrakenClient(cfg Config, logger *logging.Logger) (Client, error) {
	base, err := newBaseClient(KindKraken, krakenBaseURL, cfg, logger)
	if err != nil {
		return nil, err
	}
	return &KrakenClient{baseClient: base}, nil
}

// Fetch returns the current quote for the asset.
func (c *KrakenClient) Fetch(ctx context.Context, asset string) (Quote, error) {
	pair, err := c.providerID(asset)
	if err != nil {
		return Quote{}, c.unavailable(err)
	}

	url := fmt.Sprintf("%s/0/public/Ticker?pair=%s", c.url, pair)

	var data krakenResponse
	if err := c.getJSON(ctx, url, &data); err != nil {
		return Quote{}, c.unavailable(err)
	}

	if len(data.Error) > 0 {
		return Quote{}, c.unavailable(fmt.Errorf("%w: %s", ErrInvalidResponse, strings.Join(data.Error, "; ")))
	}

	// Kraken echoes the pair under a possibly-normalized key, so fall back to
	// the single result entry when the exact key is absent.
	entry, ok := data.Result[pair]
	if !ok {
		if len(data.Result) != 1 {
			return Quote{}, c.unavailable(fmt.Errorf("%w: missing pair %q", ErrInvalidResponse, pair))
		}
		for _, v := range data.Result {
			entry = v
		}
	}

	if len(entry.Close) == 0 || entry.Close[0] == "" {
		return Quote{}, c.unavailable(fmt.Errorf("%w: missing close price for %q", ErrInvalidResponse, pair))
	}

	price, err := decimal.NewFromString(entry.Close[0])
	if err != nil {
		return Quote{}, c.unavailable(fmt.Errorf("%w: price %q: %v", ErrInvalidResponse, entry.Close[0], err))
	}

	q, err := c.quote(asset, price)
	if err != nil {
		return Quote{}, c.unavailable(err)
	}

	c.logger.Debug("Fetched quote", "source", c.name, "asset", q.Asset, "price", q.Price.String())
	return q, nil
}

func init() {
	Register(KindKraken, NewKrakenClient)
}

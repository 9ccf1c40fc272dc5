package sources

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/stablemint/oracle-engine/pkg/logging"
)

const binanceBaseURL = "https://api.binance.com"

// BinanceClient fetches spot prices from the Binance ticker price endpoint.
// Asset mapping: unified symbol -> Binance pair symbol (e.g. "BTC" -> "BTCUSDT").
type BinanceClient struct {
	*baseClient
}

// binanceTicker is the /api/v3/ticker/price response for a single symbol.
type binanceTicker struct {
	Symbol string `json:"symbol"`
	Price  string `json:"price"`
}

var _ Client = (*BinanceClient)(nil)

// NewBinanceClient creates a new Binance client.
func NewBinanceClient(cfg Config, logger *logging.Logger) (Client, error) {
	base, err := newBaseClient(KindBinance, binanceBaseURL, cfg, logger)
	if err != nil {
		return nil, err
	}
	return &BinanceClient{baseClient: base}, nil
}

// Fetch returns the current quote for the asset.
func (c *BinanceClient) Fetch(ctx context.Context, asset string) (Quote, error) {
	symbol, err := c.providerID(asset)
	if err != nil {
		return Quote{}, c.unavailable(err)
	}

	url := fmt.Sprintf("%s/api/v3/ticker/price?symbol=%s", c.url, symbol)

	var ticker binanceTicker
	if err := c.getJSON(ctx, url, &ticker); err != nil {
		return Quote{}, c.unavailable(err)
	}

	if ticker.Price == "" {
		return Quote{}, c.unavailable(fmt.Errorf("%w: missing price for %q", ErrInvalidResponse, symbol))
	}

	price, err := decimal.NewFromString(ticker.Price)
	if err != nil {
		return Quote{}, c.unavailable(fmt.Errorf("%w: price %q: %v", ErrInvalidResponse, ticker.Price, err))
	}

	q, err := c.quote(asset, price)
	if err != nil {
		return Quote{}, c.unavailable(err)
	}

	c.logger.Debug("Fetched quote", "source", c.name, "asset", q.Asset, "price", q.Price.String())
	return q, nil
}

func init() {
	Register(KindBinance, NewBinanceClient)
}

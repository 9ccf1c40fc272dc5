package sources

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/shopspring/decimal"

	"github.com/stablemint/oracle-engine/pkg/logging"
)

// Chainlink AggregatorV3 ABI (only latestRoundData).
const aggregatorABIJSON = `[{
	"inputs": [],
	"name": "latestRoundData",
	"outputs": [
		{"internalType": "uint80", "name": "roundId", "type": "uint80"},
		{"internalType": "int256", "name": "answer", "type": "int256"},
		{"internalType": "uint256", "name": "startedAt", "type": "uint256"},
		{"internalType": "uint256", "name": "updatedAt", "type": "uint256"},
		{"internalType": "uint80", "name": "answeredInRound", "type": "uint80"}
	],
	"stateMutability": "view",
	"type": "function"
}]`

// defaultFeedDecimals is the scale used by Chainlink USD feeds.
const defaultFeedDecimals = 8

// ChainlinkClient reads spot prices from on-chain Chainlink aggregator
// contracts. Asset mapping: unified symbol -> feed contract address.
type ChainlinkClient struct {
	name     string
	rpcURL   string
	timeout  time.Duration
	feeds    map[string]common.Address
	decimals int32
	client   *ethclient.Client
	aggABI   abi.ABI
	logger   *logging.Logger
}

var _ Client = (*ChainlinkClient)(nil)

// NewChainlinkClient creates a new Chainlink on-chain client. The feed
// addresses are validated at construction, never at fetch time.
func NewChainlinkClient(cfg Config, logger *logging.Logger) (Client, error) {
	rpcURL, _ := cfg.Extra["rpc_url"].(string)
	if rpcURL == "" {
		return nil, fmt.Errorf("%w", ErrRPCURLRequired)
	}

	if len(cfg.Assets) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoAssetsConfigured, cfg.Name)
	}

	name := cfg.Name
	if name == "" {
		name = string(KindChainlink)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	decimals := defaultFeedDecimals
	switch d := cfg.Extra["decimals"].(type) {
	case int:
		decimals = d
	case float64:
		decimals = int(d)
	}
	if decimals < 0 || decimals > 255 {
		return nil, fmt.Errorf("%w: decimals %d out of range", ErrInvalidResponse, decimals)
	}

	feeds := make(map[string]common.Address, len(cfg.Assets))
	for asset, addr := range cfg.Assets {
		if !common.IsHexAddress(addr) {
			return nil, fmt.Errorf("%w: feed address %q for %s", ErrInvalidResponse, addr, asset)
		}
		feeds[NormalizeAsset(asset)] = common.HexToAddress(addr)
	}

	aggABI, err := abi.JSON(strings.NewReader(aggregatorABIJSON))
	if err != nil {
		return nil, fmt.Errorf("failed to parse aggregator ABI: %w", err)
	}

	client, err := ethclient.Dial(rpcURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RPC: %w", err)
	}

	return &ChainlinkClient{
		name:     name,
		rpcURL:   rpcURL,
		timeout:  timeout,
		feeds:    feeds,
		decimals: int32(decimals), // #nosec G115 -- decimals validated above to be 0-255
		client:   client,
		aggABI:   aggABI,
		logger:   logger,
	}, nil
}

// Name returns the client instance name.
func (c *ChainlinkClient) Name() string {
	return c.name
}

// Kind returns the provider kind.
func (c *ChainlinkClient) Kind() ProviderKind {
	return KindChainlink
}

// Fetch reads latestRoundData from the feed contract for the asset.
func (c *ChainlinkClient) Fetch(ctx context.Context, asset string) (Quote, error) {
	normalized := NormalizeAsset(asset)
	if normalized == "" {
		return Quote{}, c.unavailable(fmt.Errorf("%w", ErrEmptyAsset))
	}

	feedAddr, ok := c.feeds[normalized]
	if !ok {
		return Quote{}, c.unavailable(fmt.Errorf("%w: %s (%s)", ErrAssetNotConfigured, asset, c.name))
	}

	fetchCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	data, err := c.aggABI.Pack("latestRoundData")
	if err != nil {
		return Quote{}, c.unavailable(fmt.Errorf("failed to pack call: %w", err))
	}

	result, err := c.client.CallContract(fetchCtx, ethereum.CallMsg{
		To:   &feedAddr,
		Data: data,
	}, nil) // nil = latest block
	if err != nil {
		return Quote{}, c.unavailable(fmt.Errorf("failed to call latestRoundData: %w", err))
	}

	var round struct {
		RoundId         *big.Int
		Answer          *big.Int
		StartedAt       *big.Int
		UpdatedAt       *big.Int
		AnsweredInRound *big.Int
	}
	if err := c.aggABI.UnpackIntoInterface(&round, "latestRoundData", result); err != nil {
		return Quote{}, c.unavailable(fmt.Errorf("%w: %v", ErrInvalidResponse, err))
	}

	if round.UpdatedAt.Sign() == 0 {
		return Quote{}, c.unavailable(fmt.Errorf("%w: round %s", ErrStaleRound, round.RoundId))
	}

	price := decimal.NewFromBigInt(round.Answer, -c.decimals)
	if !price.IsPositive() {
		return Quote{}, c.unavailable(fmt.Errorf("%w: %s from feed %s", ErrNonPositivePrice, price.String(), feedAddr.Hex()))
	}

	c.logger.Debug("Fetched on-chain quote",
		"source", c.name,
		"asset", normalized,
		"price", price.String(),
		"round", round.RoundId.String())

	return Quote{
		Source:    c.name,
		Asset:     normalized,
		Price:     price,
		Timestamp: time.Now(),
	}, nil
}

// Close releases the RPC connection.
func (c *ChainlinkClient) Close() {
	if c.client != nil {
		c.client.Close()
	}
}

func (c *ChainlinkClient) unavailable(err error) error {
	return fmt.Errorf("%w: %s: %v", ErrSourceUnavailable, c.name, err)
}

func init() {
	Register(KindChainlink, NewChainlinkClient)
}

package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/stablemint/oracle-engine/pkg/logging"
)

// maxResponseBytes bounds provider response bodies.
const maxResponseBytes = 1 << 20

// baseClient provides the shared HTTP plumbing for REST provider clients.
type baseClient struct {
	name    string
	kind    ProviderKind
	url     string
	timeout time.Duration
	assets  map[string]string
	client  *http.Client
	logger  *logging.Logger
}

func newBaseClient(kind ProviderKind, defaultURL string, cfg Config, logger *logging.Logger) (*baseClient, error) {
	if len(cfg.Assets) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoAssetsConfigured, cfg.Name)
	}

	name := cfg.Name
	if name == "" {
		name = string(kind)
	}

	url := cfg.URL
	if url == "" {
		url = defaultURL
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	// Case-normalize asset keys once so lookups are case-insensitive.
	assets := make(map[string]string, len(cfg.Assets))
	for asset, id := range cfg.Assets {
		if strings.TrimSpace(asset) == "" || strings.TrimSpace(id) == "" {
			return nil, fmt.Errorf("%w: empty asset mapping in %s", ErrNoAssetsConfigured, name)
		}
		assets[NormalizeAsset(asset)] = id
	}

	return &baseClient{
		name:    name,
		kind:    kind,
		url:     strings.TrimRight(url, "/"),
		timeout: timeout,
		assets:  assets,
		client:  &http.Client{Timeout: timeout},
		logger:  logger,
	}, nil
}

// Name returns the client instance name.
func (c *baseClient) Name() string {
	return c.name
}

// Kind returns the provider kind.
func (c *baseClient) Kind() ProviderKind {
	return c.kind
}

// providerID resolves the unified asset symbol to the provider-specific
// identifier configured for this client.
func (c *baseClient) providerID(asset string) (string, error) {
	normalized := NormalizeAsset(asset)
	if normalized == "" {
		return "", fmt.Errorf("%w", ErrEmptyAsset)
	}
	id, ok := c.assets[normalized]
	if !ok {
		return "", fmt.Errorf("%w: %s (%s)", ErrAssetNotConfigured, asset, c.name)
	}
	return id, nil
}

// getJSON performs a timeout-bounded GET and decodes the JSON body into out.
// The per-call context deadline releases the connection independently of any
// caller-level cancellation.
func (c *baseClient) getJSON(ctx context.Context, url string, out interface{}) error {
	fetchCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(fetchCtx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to fetch: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: %d", ErrUnexpectedStatus, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}

	return nil
}

// quote validates the extracted price and wraps it into a Quote.
func (c *baseClient) quote(asset string, price decimal.Decimal) (Quote, error) {
	if !price.IsPositive() {
		return Quote{}, fmt.Errorf("%w: %s from %s", ErrNonPositivePrice, price.String(), c.name)
	}
	return Quote{
		Source:    c.name,
		Asset:     NormalizeAsset(asset),
		Price:     price,
		Timestamp: time.Now(),
	}, nil
}

// unavailable maps any fetch-time failure onto the source taxonomy.
func (c *baseClient) unavailable(err error) error {
	return fmt.Errorf("%w: %s: %v", ErrSourceUnavailable, c.name, err)
}

// NormalizeAsset case-normalizes an asset symbol.
func NormalizeAsset(asset string) string {
	return strings.ToUpper(strings.TrimSpace(asset))
}

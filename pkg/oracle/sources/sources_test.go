package sources

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/stablemint/oracle-engine/pkg/logging"
)

func mustDecimal(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatalf("Invalid decimal %q: %v", s, err)
	}
	return d
}

func testConfig(url string, assets map[string]string) Config {
	return Config{
		URL:     url,
		Timeout: 2 * time.Second,
		Assets:  assets,
	}
}

func TestRegistry_AllKindsRegistered(t *testing.T) {
	registered := make(map[ProviderKind]bool)
	for _, kind := range Kinds() {
		registered[kind] = true
	}

	for _, kind := range []ProviderKind{KindCoinGecko, KindBinance, KindKraken, KindChainlink} {
		if !registered[kind] {
			t.Errorf("Expected kind %q to be registered", kind)
		}
	}
}

func TestCreate_UnknownKind(t *testing.T) {
	_, err := Create("nosuch", testConfig("", map[string]string{"BTC": "bitcoin"}), logging.NewNoopLogger())
	if !errors.Is(err, ErrUnknownProviderKind) {
		t.Fatalf("Expected ErrUnknownProviderKind, got %v", err)
	}
}

func TestNewClients_NoAssetsConfigured(t *testing.T) {
	factories := map[string]Factory{
		"coingecko": NewCoinGeckoClient,
		"binance":   NewBinanceClient,
		"kraken":    NewKrakenClient,
	}
	for name, factory := range factories {
		t.Run(name, func(t *testing.T) {
			_, err := factory(testConfig("", nil), logging.NewNoopLogger())
			if !errors.Is(err, ErrNoAssetsConfigured) {
				t.Fatalf("Expected ErrNoAssetsConfigured, got %v", err)
			}
		})
	}
}

func TestCoinGecko_Fetch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("ids") != "bitcoin" {
			t.Errorf("Unexpected ids param: %s", r.URL.Query().Get("ids"))
		}
		_, _ = w.Write([]byte(`{"bitcoin": {"usd": 65000.12}}`))
	}))
	defer server.Close()

	client, err := NewCoinGeckoClient(testConfig(server.URL, map[string]string{"BTC": "bitcoin"}), logging.NewNoopLogger())
	if err != nil {
		t.Fatalf("NewCoinGeckoClient failed: %v", err)
	}

	quote, err := client.Fetch(context.Background(), "btc")
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}

	if quote.Asset != "BTC" {
		t.Errorf("Expected asset BTC, got %s", quote.Asset)
	}
	if quote.Price.String() != "65000.12" {
		t.Errorf("Expected price 65000.12, got %s", quote.Price)
	}
	if quote.Source != string(KindCoinGecko) {
		t.Errorf("Expected source coingecko, got %s", quote.Source)
	}
}

func TestCoinGecko_FetchMissingCoin(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()

	client, err := NewCoinGeckoClient(testConfig(server.URL, map[string]string{"BTC": "bitcoin"}), logging.NewNoopLogger())
	if err != nil {
		t.Fatalf("NewCoinGeckoClient failed: %v", err)
	}

	_, err = client.Fetch(context.Background(), "BTC")
	if !errors.Is(err, ErrSourceUnavailable) {
		t.Fatalf("Expected ErrSourceUnavailable, got %v", err)
	}
}

func TestBinance_Fetch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("symbol") != "BTCUSDT" {
			t.Errorf("Unexpected symbol param: %s", r.URL.Query().Get("symbol"))
		}
		_, _ = w.Write([]byte(`{"symbol": "BTCUSDT", "price": "65001.50000000"}`))
	}))
	defer server.Close()

	client, err := NewBinanceClient(testConfig(server.URL, map[string]string{"BTC": "BTCUSDT"}), logging.NewNoopLogger())
	if err != nil {
		t.Fatalf("NewBinanceClient failed: %v", err)
	}

	quote, err := client.Fetch(context.Background(), "BTC")
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}

	if !quote.Price.Equal(mustDecimal(t, "65001.5")) {
		t.Errorf("Expected price 65001.5, got %s", quote.Price)
	}
}

func TestBinance_FetchMalformedPrice(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"symbol": "BTCUSDT", "price": "not-a-number"}`))
	}))
	defer server.Close()

	client, err := NewBinanceClient(testConfig(server.URL, map[string]string{"BTC": "BTCUSDT"}), logging.NewNoopLogger())
	if err != nil {
		t.Fatalf("NewBinanceClient failed: %v", err)
	}

	_, err = client.Fetch(context.Background(), "BTC")
	if !errors.Is(err, ErrSourceUnavailable) {
		t.Fatalf("Expected ErrSourceUnavailable, got %v", err)
	}
}

func TestBinance_FetchNonPositivePrice(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"symbol": "BTCUSDT", "price": "0"}`))
	}))
	defer server.Close()

	client, err := NewBinanceClient(testConfig(server.URL, map[string]string{"BTC": "BTCUSDT"}), logging.NewNoopLogger())
	if err != nil {
		t.Fatalf("NewBinanceClient failed: %v", err)
	}

	_, err = client.Fetch(context.Background(), "BTC")
	if !errors.Is(err, ErrSourceUnavailable) {
		t.Fatalf("Expected ErrSourceUnavailable for zero price, got %v", err)
	}
}

func TestKraken_Fetch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("pair") != "XBTUSD" {
			t.Errorf("Unexpected pair param: %s", r.URL.Query().Get("pair"))
		}
		// Kraken normalizes the pair key in the response
		_, _ = w.Write([]byte(`{"error": [], "result": {"XXBTZUSD": {"c": ["65002.30000", "0.01000000"]}}}`))
	}))
	defer server.Close()

	client, err := NewKrakenClient(testConfig(server.URL, map[string]string{"BTC": "XBTUSD"}), logging.NewNoopLogger())
	if err != nil {
		t.Fatalf("NewKrakenClient failed: %v", err)
	}

	quote, err := client.Fetch(context.Background(), "BTC")
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}

	if !quote.Price.Equal(mustDecimal(t, "65002.3")) {
		t.Errorf("Expected price 65002.3, got %s", quote.Price)
	}
}

func TestKraken_FetchAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"error": ["EQuery:Unknown asset pair"], "result": {}}`))
	}))
	defer server.Close()

	client, err := NewKrakenClient(testConfig(server.URL, map[string]string{"BTC": "XBTUSD"}), logging.NewNoopLogger())
	if err != nil {
		t.Fatalf("NewKrakenClient failed: %v", err)
	}

	_, err = client.Fetch(context.Background(), "BTC")
	if !errors.Is(err, ErrSourceUnavailable) {
		t.Fatalf("Expected ErrSourceUnavailable, got %v", err)
	}
}

func TestFetch_UnexpectedStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	client, err := NewCoinGeckoClient(testConfig(server.URL, map[string]string{"BTC": "bitcoin"}), logging.NewNoopLogger())
	if err != nil {
		t.Fatalf("NewCoinGeckoClient failed: %v", err)
	}

	_, err = client.Fetch(context.Background(), "BTC")
	if !errors.Is(err, ErrSourceUnavailable) {
		t.Fatalf("Expected ErrSourceUnavailable, got %v", err)
	}
}

func TestFetch_UnconfiguredAsset(t *testing.T) {
	client, err := NewCoinGeckoClient(testConfig("http://unused.invalid", map[string]string{"BTC": "bitcoin"}), logging.NewNoopLogger())
	if err != nil {
		t.Fatalf("NewCoinGeckoClient failed: %v", err)
	}

	_, err = client.Fetch(context.Background(), "DOGE")
	if !errors.Is(err, ErrSourceUnavailable) {
		t.Fatalf("Expected ErrSourceUnavailable, got %v", err)
	}
}

func TestFetch_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(2 * time.Second):
		case <-r.Context().Done():
		}
		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()

	cfg := testConfig(server.URL, map[string]string{"BTC": "bitcoin"})
	cfg.Timeout = 50 * time.Millisecond

	client, err := NewCoinGeckoClient(cfg, logging.NewNoopLogger())
	if err != nil {
		t.Fatalf("NewCoinGeckoClient failed: %v", err)
	}

	start := time.Now()
	_, err = client.Fetch(context.Background(), "BTC")
	if !errors.Is(err, ErrSourceUnavailable) {
		t.Fatalf("Expected ErrSourceUnavailable, got %v", err)
	}
	if time.Since(start) > time.Second {
		t.Errorf("Fetch did not respect the configured timeout")
	}
}

func TestNewChainlinkClient_RequiresRPCURL(t *testing.T) {
	cfg := testConfig("", map[string]string{"BTC": "0xF4030086522a5bEEa4988F8cA5B36dbC97BeE88c"})

	_, err := NewChainlinkClient(cfg, logging.NewNoopLogger())
	if !errors.Is(err, ErrRPCURLRequired) {
		t.Fatalf("Expected ErrRPCURLRequired, got %v", err)
	}
}

func TestNewChainlinkClient_RejectsBadFeedAddress(t *testing.T) {
	cfg := testConfig("", map[string]string{"BTC": "not-an-address"})
	cfg.Extra = map[string]interface{}{"rpc_url": "http://localhost:8545"}

	_, err := NewChainlinkClient(cfg, logging.NewNoopLogger())
	if !errors.Is(err, ErrInvalidResponse) {
		t.Fatalf("Expected ErrInvalidResponse, got %v", err)
	}
}

func TestNormalizeAsset(t *testing.T) {
	if got := NormalizeAsset("  ustc "); got != "USTC" {
		t.Errorf("Expected USTC, got %q", got)
	}
	if got := NormalizeAsset(""); got != "" {
		t.Errorf("Expected empty, got %q", got)
	}
}

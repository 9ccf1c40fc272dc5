package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shopspring/decimal"

	"github.com/stablemint/oracle-engine/pkg/config"
	"github.com/stablemint/oracle-engine/pkg/keystore"
	"github.com/stablemint/oracle-engine/pkg/logging"
	"github.com/stablemint/oracle-engine/pkg/metrics"
	"github.com/stablemint/oracle-engine/pkg/oracle"
	"github.com/stablemint/oracle-engine/pkg/oracle/aggregator"
	"github.com/stablemint/oracle-engine/pkg/oracle/attest"
	"github.com/stablemint/oracle-engine/pkg/oracle/history"
	"github.com/stablemint/oracle-engine/pkg/oracle/predictor"
	"github.com/stablemint/oracle-engine/pkg/oracle/sources"
	"github.com/stablemint/oracle-engine/pkg/oracle/stabilize"
	"github.com/stablemint/oracle-engine/pkg/server/api"
	"github.com/stablemint/oracle-engine/pkg/version"
)

var (
	configFile = flag.String("config", "config/config.yaml", "Path to configuration file")
	showVer    = flag.Bool("version", false, "Show version and exit")
	oneShot    = flag.String("asset", "", "Produce one attested feed for the asset and exit")
)

func main() {
	flag.Parse()

	if *showVer {
		fmt.Printf("oracle-engine version %s\n", version.Version)
		os.Exit(0)
	}

	// Load configuration
	cfg, err := config.Load(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Validate configuration
	if err := config.Validate(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logging
	logger, err := logging.Init(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	logger.Info("Starting oracle-engine", "version", version.Version)

	// Initialize metrics
	if cfg.Metrics.Enabled {
		metrics.Init()
		go func() {
			logger.Info("Starting metrics server", "addr", cfg.Metrics.Addr, "path", cfg.Metrics.Path)
			if err := metrics.ServeHTTP(cfg.Metrics.Addr, cfg.Metrics.Path); err != nil {
				logger.Error("Metrics server failed", "error", err)
			}
		}()
	}

	// Setup graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	engine, cleanup, err := buildEngine(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("Failed to build engine", "error", err)
	}
	defer cleanup()

	// One-shot mode: print the attested feed as JSON and exit.
	if *oneShot != "" {
		if err := runOneShot(ctx, engine, *oneShot); err != nil {
			logger.Fatal("One-shot feed failed", "asset", *oneShot, "error", err)
		}
		return
	}

	errChan := make(chan error, 1)
	go func() {
		errChan <- runServer(ctx, cfg, engine, logger)
	}()

	// Wait for shutdown signal or error
	select {
	case sig := <-sigChan:
		logger.Info("Received shutdown signal", "signal", sig.String())
		cancel()
	case err := <-errChan:
		if err != nil {
			logger.Error("Server failed", "error", err)
			cancel()
		}
	}

	logger.Info("Shutdown complete")
}

// buildEngine wires sources, history, predictor, attestor, and decider into
// the engine. The returned cleanup releases external connections.
func buildEngine(ctx context.Context, cfg *config.Config, logger *logging.Logger) (*oracle.Engine, func(), error) {
	// Initialize sources
	var clients []sources.Client
	for _, sourceCfg := range cfg.Sources {
		if !sourceCfg.Enabled {
			continue
		}

		logger.Info("Initializing source", "kind", sourceCfg.Kind, "name", sourceCfg.Name)

		client, err := sources.Create(sources.ProviderKind(sourceCfg.Kind), sources.Config{
			Name:    sourceCfg.Name,
			URL:     sourceCfg.GetString("url", ""),
			Timeout: cfg.Oracle.SourceTimeout.ToDuration(),
			Assets:  sourceCfg.GetStringMap("assets"),
			Extra:   sourceCfg.Config,
		}, logger)
		if err != nil {
			logger.Warn("Failed to create source", "kind", sourceCfg.Kind, "name", sourceCfg.Name, "error", err)
			continue
		}

		clients = append(clients, client)
		logger.Info("Source ready", "source", client.Name(), "kind", string(client.Kind()))
	}

	if len(clients) == 0 {
		return nil, nil, fmt.Errorf("no sources available")
	}

	// Initialize history store
	var store history.Store
	var closeStore func()
	switch cfg.History.Backend {
	case "postgres":
		pgStore, err := history.NewPostgresStore(ctx, cfg.History.DSN, cfg.History.Window)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create postgres history: %w", err)
		}
		store = pgStore
		closeStore = pgStore.Close
		logger.Info("Using postgres history store", "window", cfg.History.Window)
	default:
		store = history.NewMemoryStore(cfg.History.Window)
		logger.Info("Using in-memory history store", "window", cfg.History.Window)
	}

	// Load the signing key
	var signer attest.Signer
	var err error
	if cfg.Signing.KeyFile != "" {
		signer, err = keystore.FromFile(cfg.Signing.KeyFile)
	} else {
		signer, err = keystore.FromEnv(cfg.Signing.KeyEnv)
	}
	if err != nil {
		if closeStore != nil {
			closeStore()
		}
		return nil, nil, fmt.Errorf("failed to load signing key: %w", err)
	}

	agg, err := aggregator.New(clients, cfg.Oracle.SourceTimeout.ToDuration(), store, logger)
	if err != nil {
		if closeStore != nil {
			closeStore()
		}
		return nil, nil, err
	}

	decider := stabilize.New(stabilize.Config{
		VolatilityThreshold: decimal.NewFromFloat(*cfg.Stabilizer.VolatilityThreshold),
		DeviationThreshold:  decimal.NewFromFloat(*cfg.Stabilizer.DeviationThreshold),
		ScaleFactor:         decimal.NewFromFloat(*cfg.Stabilizer.ScaleFactor),
	}, logger)

	engine := oracle.NewEngine(oracle.Options{
		Aggregator:      agg,
		Predictor:       predictor.NewStdDevPredictor(),
		Attestor:        attest.New(signer, logger),
		Decider:         decider,
		History:         store,
		PredictorWindow: cfg.Oracle.PredictorWindow,
		AdjustmentScale: decimal.NewFromFloat(*cfg.Oracle.AdjustmentScale),
		Logger:          logger,
	})

	cleanup := func() {
		for _, client := range clients {
			if closer, ok := client.(interface{ Close() }); ok {
				closer.Close()
			}
		}
		if closeStore != nil {
			closeStore()
		}
	}

	return engine, cleanup, nil
}

func runServer(ctx context.Context, cfg *config.Config, engine *oracle.Engine, logger *logging.Logger) error {
	server := api.NewServer(cfg.Server.HTTP.Addr, engine, decimal.NewFromFloat(cfg.Stabilizer.TargetPeg), logger)

	// Start WebSocket server if enabled
	var wsServer *api.WebSocketServer
	if cfg.Server.WebSocket.Enabled {
		wsServer = api.NewWebSocketServer(cfg.Server.WebSocket.Addr, logger)
		server.SetWebSocketServer(wsServer)

		go func() {
			if err := wsServer.Start(ctx); err != nil {
				logger.Error("WebSocket server error", "error", err)
			}
		}()
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		_ = server.Stop(shutdownCtx)
		if wsServer != nil {
			wsServer.Stop()
		}
	}()

	return server.Start()
}

// runOneShot produces a single attested feed and prints it to stdout.
func runOneShot(ctx context.Context, engine *oracle.Engine, asset string) error {
	feedCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	feed, err := engine.GetAttestedFeed(feedCtx, asset)
	if err != nil {
		return err
	}

	fmt.Printf("asset=%s median=%s predicted=%s volatility=%s sources=%d signature=%x\n",
		feed.Asset,
		feed.MedianPrice.String(),
		feed.PredictedPrice.String(),
		feed.VolatilityScore.String(),
		feed.SourcesUsed,
		feed.Signature)
	return nil
}

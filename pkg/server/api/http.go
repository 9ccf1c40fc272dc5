// Package api provides HTTP and WebSocket API endpoints for the oracle engine.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/stablemint/oracle-engine/pkg/logging"
	"github.com/stablemint/oracle-engine/pkg/metrics"
	"github.com/stablemint/oracle-engine/pkg/oracle"
	"github.com/stablemint/oracle-engine/pkg/oracle/aggregator"
	"github.com/stablemint/oracle-engine/pkg/oracle/attest"
)

// feedTimeout bounds one feed request end to end, fan-out included.
const feedTimeout = 15 * time.Second

// Server represents the HTTP API server.
type Server struct {
	addr      string
	engine    *oracle.Engine
	targetPeg decimal.Decimal
	server    *http.Server
	logger    *logging.Logger
	wsServer  *WebSocketServer // Optional WebSocket server for streaming
}

// NewServer creates a new HTTP API server.
func NewServer(addr string, engine *oracle.Engine, targetPeg decimal.Decimal, logger *logging.Logger) *Server {
	return &Server{
		addr:      addr,
		engine:    engine,
		targetPeg: targetPeg,
		logger:    logger,
	}
}

// SetWebSocketServer sets the WebSocket server for streaming attested feeds.
func (s *Server) SetWebSocketServer(ws *WebSocketServer) {
	s.wsServer = ws
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/v1/feed/", s.handleFeed)
	mux.HandleFunc("/v1/recommend", s.handleRecommend)

	s.server = &http.Server{
		Addr:              s.addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	s.logger.Info("Starting HTTP server", "addr", s.addr)
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("HTTP server error: %w", err)
	}
	return nil
}

// Stop gracefully stops the HTTP server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		s.logger.Info("Stopping HTTP server")
		return s.server.Shutdown(ctx)
	}
	return nil
}

// handleHealth handles /health endpoint.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	start := time.Now()
	defer func() {
		metrics.RecordHTTPRequest("/health", "200", time.Since(start))
	}()

	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// handleFeed handles GET /v1/feed/{asset}.
func (s *Server) handleFeed(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	status := "200"
	defer func() {
		metrics.RecordHTTPRequest("/v1/feed", status, time.Since(start))
	}()

	if r.Method != http.MethodGet {
		status = "405"
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	asset := strings.TrimPrefix(r.URL.Path, "/v1/feed/")
	if asset == "" || strings.Contains(asset, "/") {
		status = "400"
		http.Error(w, "asset is required", http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), feedTimeout)
	defer cancel()

	feed, err := s.engine.GetAttestedFeed(ctx, asset)
	if err != nil {
		switch {
		case errors.Is(err, aggregator.ErrNoFeedAvailable):
			// Every source failed this round. Retryable.
			status = "503"
			s.logger.Warn("No feed available", "asset", asset, "error", err.Error())
			http.Error(w, "no feed available", http.StatusServiceUnavailable)
		case errors.Is(err, attest.ErrSigningUnavailable):
			// An unsigned feed is never served.
			status = "500"
			s.logger.Error("Signing unavailable", "asset", asset, "error", err.Error())
			http.Error(w, "signing unavailable", http.StatusInternalServerError)
		default:
			status = "500"
			s.logger.Error("Feed request failed", "asset", asset, "error", err.Error())
			http.Error(w, "internal error", http.StatusInternalServerError)
		}
		return
	}

	// Send to WebSocket clients if enabled
	if s.wsServer != nil {
		s.wsServer.SendUpdate(feed)
	}

	s.sendJSON(w, feedToResponse(feed))
}

// recommendRequest is the POST /v1/recommend request body. TargetPeg is
// optional and defaults to the configured peg.
type recommendRequest struct {
	CurrentPrice decimal.Decimal  `json:"current_price"`
	TargetPeg    *decimal.Decimal `json:"target_peg,omitempty"`
	Volatility   decimal.Decimal  `json:"volatility_score"`
}

// handleRecommend handles POST /v1/recommend.
func (s *Server) handleRecommend(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	status := "200"
	defer func() {
		metrics.RecordHTTPRequest("/v1/recommend", status, time.Since(start))
	}()

	if r.Method != http.MethodPost {
		status = "405"
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req recommendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		status = "400"
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if !req.CurrentPrice.IsPositive() {
		status = "400"
		http.Error(w, "current_price must be positive", http.StatusBadRequest)
		return
	}

	targetPeg := s.targetPeg
	if req.TargetPeg != nil {
		if !req.TargetPeg.IsPositive() {
			status = "400"
			http.Error(w, "target_peg must be positive", http.StatusBadRequest)
			return
		}
		targetPeg = *req.TargetPeg
	}

	rec := s.engine.Recommend(req.CurrentPrice, targetPeg, req.Volatility)
	s.sendJSON(w, rec)
}

// feedToResponse shapes an attested feed for the wire with the signature
// hex-encoded.
func feedToResponse(feed *attest.AttestedFeed) map[string]interface{} {
	return map[string]interface{}{
		"asset":            feed.Asset,
		"median_price":     feed.MedianPrice.String(),
		"predicted_price":  feed.PredictedPrice.String(),
		"volatility_score": feed.VolatilityScore.String(),
		"sources_used":     feed.SourcesUsed,
		"signature":        fmt.Sprintf("%x", feed.Signature),
		"timestamp":        feed.Timestamp.UTC().Format(time.RFC3339Nano),
	}
}

// sendJSON sends a JSON response.
func (s *Server) sendJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error("Failed to encode JSON response", "error", err)
	}
}

// Package metrics provides Prometheus metrics for the oracle engine.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// SourceFetchesTotal is a counter of price fetch attempts per source.
	SourceFetchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "source_fetches_total",
			Help: "Total number of price fetch attempts against external sources",
		},
		[]string{"source", "status"},
	)

	// SourceFetchDuration is a histogram of per-source fetch latencies.
	SourceFetchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "source_fetch_duration_seconds",
			Help:    "Latency of price fetches against external sources",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"source"},
	)

	// AggregationDuration is a histogram of consensus aggregation duration.
	AggregationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "aggregation_duration_seconds",
			Help:    "Duration of consensus aggregation operations",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"asset"},
	)

	// ConsensusSourcesUsed is a gauge of sources contributing to the last consensus.
	ConsensusSourcesUsed = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "consensus_sources_used",
			Help: "Number of sources that contributed to the most recent consensus",
		},
		[]string{"asset"},
	)

	// ConsensusPrice is a gauge of the last consensus median price.
	ConsensusPrice = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "consensus_price",
			Help: "Most recent consensus median price per asset",
		},
		[]string{"asset"},
	)

	// PredictorFallbacksTotal counts predictor failures degraded to zero volatility.
	PredictorFallbacksTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "predictor_fallbacks_total",
			Help: "Total number of predictor failures that fell back to zero volatility",
		},
	)

	// AttestationsTotal counts attestation attempts by status.
	AttestationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "attestations_total",
			Help: "Total number of feed attestation attempts",
		},
		[]string{"status"},
	)

	// RecommendationsTotal counts stabilization recommendations by action.
	RecommendationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recommendations_total",
			Help: "Total number of stabilization recommendations by action",
		},
		[]string{"action"},
	)

	// HTTPRequestsTotal is a counter of total HTTP requests.
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"endpoint", "status"},
	)

	// HTTPRequestDuration is a histogram of HTTP request latencies.
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latencies",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"endpoint"},
	)
)

// Init registers all metrics with the default Prometheus registry.
func Init() {
	prometheus.MustRegister(
		SourceFetchesTotal,
		SourceFetchDuration,
		AggregationDuration,
		ConsensusSourcesUsed,
		ConsensusPrice,
		PredictorFallbacksTotal,
		AttestationsTotal,
		RecommendationsTotal,
		HTTPRequestsTotal,
		HTTPRequestDuration,
	)
}

// ServeHTTP serves Prometheus metrics on the specified address.
func ServeHTTP(addr, path string) error {
	mux := http.NewServeMux()
	mux.Handle(path, promhttp.Handler())
	server := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return server.ListenAndServe()
}

// RecordSourceFetch records a fetch attempt against an external source.
func RecordSourceFetch(source, status string, duration time.Duration) {
	SourceFetchesTotal.WithLabelValues(source, status).Inc()
	SourceFetchDuration.WithLabelValues(source).Observe(duration.Seconds())
}

// RecordAggregation records a consensus aggregation operation.
func RecordAggregation(asset string, sourcesUsed int, price float64, duration time.Duration) {
	AggregationDuration.WithLabelValues(asset).Observe(duration.Seconds())
	ConsensusSourcesUsed.WithLabelValues(asset).Set(float64(sourcesUsed))
	ConsensusPrice.WithLabelValues(asset).Set(price)
}

// RecordPredictorFallback records a predictor failure degraded to zero volatility.
func RecordPredictorFallback() {
	PredictorFallbacksTotal.Inc()
}

// RecordAttestation records an attestation attempt.
func RecordAttestation(status string) {
	AttestationsTotal.WithLabelValues(status).Inc()
}

// RecordRecommendation records a stabilization recommendation.
func RecordRecommendation(action string) {
	RecommendationsTotal.WithLabelValues(action).Inc()
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, status string, duration time.Duration) {
	HTTPRequestsTotal.WithLabelValues(endpoint, status).Inc()
	HTTPRequestDuration.WithLabelValues(endpoint).Observe(duration.Seconds())
}

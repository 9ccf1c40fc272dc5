package config

import "time"

// Config is the root configuration structure
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Oracle     OracleConfig     `yaml:"oracle"`
	Stabilizer StabilizerConfig `yaml:"stabilizer"`
	Signing    SigningConfig    `yaml:"signing"`
	History    HistoryConfig    `yaml:"history"`
	Sources    []SourceConfig   `yaml:"sources"`
	Metrics    MetricsConfig    `yaml:"metrics"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// ServerConfig configures the HTTP API server
type ServerConfig struct {
	HTTP      HTTPConfig `yaml:"http"`
	WebSocket WSConfig   `yaml:"websocket"`
}

// HTTPConfig configures the HTTP listener
type HTTPConfig struct {
	Addr string `yaml:"addr"`
}

// WSConfig configures the WebSocket feed stream
type WSConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

// OracleConfig configures the aggregation and prediction pipeline.
// AdjustmentScale is a pointer so an explicit zero survives defaulting.
type OracleConfig struct {
	SourceTimeout   Duration `yaml:"source_timeout"`   // per-source fetch timeout (default 5s)
	PredictorWindow int      `yaml:"predictor_window"` // history window fed to the predictor (default 30)
	AdjustmentScale *float64 `yaml:"adjustment_scale"` // k in adjusted = median * (1 + vol*k) (default 0.01)
}

// StabilizerConfig configures the peg decision thresholds. The thresholds are
// pointers so an operator can set them to zero explicitly; only absent keys
// receive defaults.
type StabilizerConfig struct {
	VolatilityThreshold *float64 `yaml:"volatility_threshold"` // default 0.5
	DeviationThreshold  *float64 `yaml:"deviation_threshold"`  // default 0.02
	ScaleFactor         *float64 `yaml:"scale_factor"`         // default 1000
	TargetPeg           float64  `yaml:"target_peg"`           // default 1.0, zero is invalid
}

// SigningConfig configures where the attestation key is loaded from
type SigningConfig struct {
	KeyFile string `yaml:"key_file"` // path to hex-encoded secp256k1 private key
	KeyEnv  string `yaml:"key_env"`  // environment variable holding the hex key
}

// HistoryConfig configures the consensus price history store
type HistoryConfig struct {
	Backend string `yaml:"backend"` // "memory" (default) or "postgres"
	Window  int    `yaml:"window"`  // bounded window size (default 30)
	DSN     string `yaml:"dsn"`     // postgres DSN when backend is "postgres"
}

// SourceConfig configures a price source
type SourceConfig struct {
	Kind    string                 `yaml:"kind"`
	Name    string                 `yaml:"name"`
	Enabled bool                   `yaml:"enabled"`
	Config  map[string]interface{} `yaml:"config"`
}

// MetricsConfig configures Prometheus metrics
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
	Path    string `yaml:"path"`
}

// LoggingConfig configures logging
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Duration is a wrapper around time.Duration for YAML parsing
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler
func (d *Duration) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	td, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(td)
	return nil
}

// ToDuration converts Duration to time.Duration
func (d Duration) ToDuration() time.Duration {
	return time.Duration(d)
}

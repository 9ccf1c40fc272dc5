// Package config provides configuration loading and validation for oracle-engine.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Load loads configuration from a YAML file, expanding environment variables.
func Load(path string) (*Config, error) {
	// Validate and sanitize path
	cleanPath := filepath.Clean(path)
	absPath, err := filepath.Abs(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("invalid config path: %w", err)
	}

	// Read config file
	data, err := os.ReadFile(absPath) // #nosec G304 -- Path sanitized with filepath.Clean and filepath.Abs
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Expand environment variables in YAML
	expanded := os.ExpandEnv(string(data))

	// Parse YAML
	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	// Apply defaults
	ApplyDefaults(&cfg)

	return &cfg, nil
}

// ApplyDefaults sets default values for optional fields.
func ApplyDefaults(cfg *Config) {
	// Server defaults
	if cfg.Server.HTTP.Addr == "" {
		cfg.Server.HTTP.Addr = ":8080"
	}
	if cfg.Server.WebSocket.Enabled && cfg.Server.WebSocket.Addr == "" {
		cfg.Server.WebSocket.Addr = ":8081"
	}

	// Oracle defaults
	if cfg.Oracle.SourceTimeout.ToDuration() == 0 {
		cfg.Oracle.SourceTimeout = Duration(5 * time.Second)
	}
	if cfg.Oracle.PredictorWindow == 0 {
		cfg.Oracle.PredictorWindow = 30
	}
	if cfg.Oracle.AdjustmentScale == nil {
		cfg.Oracle.AdjustmentScale = f64ptr(0.01)
	}

	// Stabilizer defaults. Only nil pointers receive a default so an explicit
	// zero in the file is taken literally.
	if cfg.Stabilizer.VolatilityThreshold == nil {
		cfg.Stabilizer.VolatilityThreshold = f64ptr(0.5)
	}
	if cfg.Stabilizer.DeviationThreshold == nil {
		cfg.Stabilizer.DeviationThreshold = f64ptr(0.02)
	}
	if cfg.Stabilizer.ScaleFactor == nil {
		cfg.Stabilizer.ScaleFactor = f64ptr(1000)
	}
	if cfg.Stabilizer.TargetPeg == 0 {
		cfg.Stabilizer.TargetPeg = 1.0
	}

	// History defaults
	if cfg.History.Backend == "" {
		cfg.History.Backend = "memory"
	}
	if cfg.History.Window == 0 {
		cfg.History.Window = cfg.Oracle.PredictorWindow
	}

	// Metrics defaults
	if cfg.Metrics.Enabled && cfg.Metrics.Addr == "" {
		cfg.Metrics.Addr = ":9091"
	}
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = "/metrics"
	}

	// Logging defaults
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
	if cfg.Logging.Output == "" {
		cfg.Logging.Output = "stdout"
	}
}

func f64ptr(v float64) *float64 { return &v }

// GetString retrieves a string value from the source configuration.
func (sc *SourceConfig) GetString(key, defaultValue string) string {
	if val, ok := sc.Config[key]; ok {
		if str, ok := val.(string); ok {
			return str
		}
	}
	return defaultValue
}

// GetInt retrieves an integer from source config.
func (sc *SourceConfig) GetInt(key string, defaultValue int) int {
	if val, ok := sc.Config[key]; ok {
		switch v := val.(type) {
		case int:
			return v
		case float64:
			return int(v)
		}
	}
	return defaultValue
}

// GetStringMap retrieves a string-to-string map from the source configuration.
func (sc *SourceConfig) GetStringMap(key string) map[string]string {
	out := make(map[string]string)
	if val, ok := sc.Config[key]; ok {
		if m, ok := val.(map[string]interface{}); ok {
			for k, v := range m {
				if s, ok := v.(string); ok {
					out[k] = s
				}
			}
		}
	}
	return out
}

// GetBool retrieves a boolean from source config.
func (sc *SourceConfig) GetBool(key string, defaultValue bool) bool {
	if val, ok := sc.Config[key]; ok {
		if b, ok := val.(bool); ok {
			return b
		}
	}
	return defaultValue
}

package config

import "fmt"

// Validate checks the configuration for inconsistencies that would only
// surface at request time otherwise. Source kinds are resolved against the
// provider registry when the clients are constructed at startup; everything
// checked here is structural.
func Validate(cfg *Config) error {
	enabled := 0
	names := make(map[string]struct{}, len(cfg.Sources))
	for i, src := range cfg.Sources {
		if src.Kind == "" {
			return fmt.Errorf("%w: sources[%d]", ErrSourceKindRequired, i)
		}
		if src.Name == "" {
			return fmt.Errorf("%w: sources[%d] (%s)", ErrSourceNameRequired, i, src.Kind)
		}
		if _, ok := names[src.Name]; ok {
			return fmt.Errorf("%w: %s", ErrDuplicateSourceName, src.Name)
		}
		names[src.Name] = struct{}{}
		if src.Enabled {
			enabled++
		}
	}
	if enabled == 0 {
		return fmt.Errorf("%w", ErrNoSourcesConfigured)
	}

	if cfg.Signing.KeyFile == "" && cfg.Signing.KeyEnv == "" {
		return fmt.Errorf("%w", ErrSigningKeyRequired)
	}

	switch cfg.History.Backend {
	case "memory":
	case "postgres":
		if cfg.History.DSN == "" {
			return fmt.Errorf("%w", ErrHistoryDSNRequired)
		}
	default:
		return fmt.Errorf("%w: %s", ErrUnknownHistoryBackend, cfg.History.Backend)
	}

	if cfg.History.Window <= 0 {
		return fmt.Errorf("%w: history.window = %d", ErrInvalidWindow, cfg.History.Window)
	}
	if cfg.Oracle.PredictorWindow <= 0 {
		return fmt.Errorf("%w: oracle.predictor_window = %d", ErrInvalidWindow, cfg.Oracle.PredictorWindow)
	}

	if v := cfg.Stabilizer.VolatilityThreshold; v != nil && (*v < 0 || *v > 1) {
		return fmt.Errorf("%w: volatility_threshold must be in [0,1]", ErrInvalidThreshold)
	}
	if v := cfg.Stabilizer.DeviationThreshold; v != nil && *v < 0 {
		return fmt.Errorf("%w: deviation_threshold must be >= 0", ErrInvalidThreshold)
	}
	if v := cfg.Stabilizer.ScaleFactor; v != nil && *v < 0 {
		return fmt.Errorf("%w: scale_factor must be >= 0", ErrInvalidThreshold)
	}
	if cfg.Stabilizer.TargetPeg <= 0 {
		return fmt.Errorf("%w: target_peg must be positive", ErrInvalidThreshold)
	}

	return nil
}

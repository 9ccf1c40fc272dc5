package config

import "errors"

var (
	// ErrNoSourcesConfigured indicates that no enabled price sources are configured.
	ErrNoSourcesConfigured = errors.New("no enabled price sources configured")
	// ErrDuplicateSourceName indicates that two sources share the same name.
	ErrDuplicateSourceName = errors.New("duplicate source name")
	// ErrSourceKindRequired indicates that a source entry is missing its kind.
	ErrSourceKindRequired = errors.New("source kind is required")
	// ErrSourceNameRequired indicates that a source entry is missing its name.
	ErrSourceNameRequired = errors.New("source name is required")
	// ErrSigningKeyRequired indicates that no signing key location is configured.
	ErrSigningKeyRequired = errors.New("signing key_file or key_env is required")
	// ErrHistoryDSNRequired indicates that the postgres history backend has no DSN.
	ErrHistoryDSNRequired = errors.New("history dsn is required for postgres backend")
	// ErrUnknownHistoryBackend indicates an unsupported history backend.
	ErrUnknownHistoryBackend = errors.New("unknown history backend")
	// ErrInvalidThreshold indicates an out-of-range stabilizer threshold.
	ErrInvalidThreshold = errors.New("invalid stabilizer threshold")
	// ErrInvalidWindow indicates a non-positive window size.
	ErrInvalidWindow = errors.New("window size must be positive")
)

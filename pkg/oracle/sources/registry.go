package sources

import (
	"fmt"
	"sync"

	"github.com/stablemint/oracle-engine/pkg/logging"
)

var (
	registry = make(map[ProviderKind]Factory)
	mu       sync.RWMutex
)

// Register adds a provider factory to the registry.
func Register(kind ProviderKind, factory Factory) {
	mu.Lock()
	defer mu.Unlock()
	registry[kind] = factory
}

// Create constructs a client for the given provider kind. Configuration is
// validated here, at construction time, never per fetch.
func Create(kind ProviderKind, cfg Config, logger *logging.Logger) (Client, error) {
	mu.RLock()
	factory, ok := registry[kind]
	mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownProviderKind, kind)
	}

	return factory(cfg, logger)
}

// Kinds returns all registered provider kinds.
func Kinds() []ProviderKind {
	mu.RLock()
	defer mu.RUnlock()

	kinds := make([]ProviderKind, 0, len(registry))
	for kind := range registry {
		kinds = append(kinds, kind)
	}
	return kinds
}

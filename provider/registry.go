package provider

import (
	"fmt"
	"sync"
)

// Settings carries the opaque construction parameters for a provider:
// where the hosted endpoint lives and how to authenticate against it.
// The core never parses these values.
type Settings struct {
	BaseURL string
	APIKey  string
}

// Factory builds a provider from endpoint settings.
type Factory func(Settings) (Provider, error)

var (
	registry = make(map[string]Factory)
	mu       sync.RWMutex
)

// Register adds a provider factory to the registry.
// This is typically called from a provider package's init() function.
func Register(name string, factory Factory) {
	mu.Lock()
	defer mu.Unlock()
	registry[name] = factory
}

// Get builds a provider by name using the given settings.
// Returns an error if the provider is not registered.
func Get(name string, settings Settings) (Provider, error) {
	mu.RLock()
	factory, ok := registry[name]
	mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("unknown provider: %q (available: %v)", name, Available())
	}

	return factory(settings)
}

// Available returns the names of all registered providers.
func Available() []string {
	mu.RLock()
	defer mu.RUnlock()

	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	return names
}

// IsRegistered checks if a provider is registered.
func IsRegistered(name string) bool {
	mu.RLock()
	defer mu.RUnlock()
	_, ok := registry[name]
	return ok
}

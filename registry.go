package infer

import (
	"sort"
	"strings"
	"sync"
)

// Factory constructs a live Provider handle from a ClientConfig. Concrete
// drivers register a Factory under their driver id via Register or the
// built-in constructor each driver package exposes.
type Factory func(cfg ClientConfig) (Provider, error)

// Registry is a string-keyed dispatch table of driver factories, looked up
// case-insensitively and with surrounding whitespace trimmed. The zero
// value is not usable; construct one with NewRegistry.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry returns an empty registry. Use drivers.NewDefaultRegistry
// for one that pre-registers the two included drivers.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

func normalizeDriverID(driver string) string {
	return strings.ToLower(strings.TrimSpace(driver))
}

// Register adds a factory under driver. A later call with the same
// (normalized) id replaces the earlier one.
func (r *Registry) Register(driver string, factory Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[normalizeDriverID(driver)] = factory
}

// Create looks up driver and invokes its factory with cfg. An unregistered
// driver surfaces UnknownDriverError; a factory failure is wrapped in
// DriverInitError.
func (r *Registry) Create(driver string, cfg ClientConfig) (Provider, error) {
	r.mu.RLock()
	factory, ok := r.factories[normalizeDriverID(driver)]
	available := r.driverNamesLocked()
	r.mu.RUnlock()

	if !ok {
		return nil, &UnknownDriverError{Driver: driver, Available: available}
	}

	provider, err := factory(cfg)
	if err != nil {
		return nil, &DriverInitError{Driver: driver, Source: err}
	}
	return provider, nil
}

// Drivers returns the registered driver ids in sorted order.
func (r *Registry) Drivers() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.driverNamesLocked()
}

func (r *Registry) driverNamesLocked() []string {
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

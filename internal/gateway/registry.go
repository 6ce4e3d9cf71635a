package gateway

import (
	"fmt"
	"strings"
	"sync"
)

// Registry resolves drivers by provider name per call, replacing the old
// process-wide single-gateway selection. The configured default is only a
// fallback for callers that name no provider.
type Registry struct {
	mu          sync.RWMutex
	drivers     map[string]Driver
	defaultName string
}

func NewRegistry(defaultName string) *Registry {
	return &Registry{
		drivers:     make(map[string]Driver),
		defaultName: strings.ToLower(defaultName),
	}
}

func (r *Registry) Register(d Driver) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.drivers[strings.ToLower(d.Name())] = d
}

// Resolve returns the named driver, or the default when name is empty.
func (r *Registry) Resolve(name string) (Driver, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	key := strings.ToLower(name)
	if key == "" {
		key = r.defaultName
	}
	d, ok := r.drivers[key]
	if !ok {
		return nil, fmt.Errorf("payment gateway %q is not registered", key)
	}
	return d, nil
}

func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.drivers))
	for name := range r.drivers {
		out = append(out, name)
	}
	return out
}

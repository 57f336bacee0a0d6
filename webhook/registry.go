package webhook

import (
	"fmt"
	"strings"
	"sync"
)

// Factory produces a fresh handler instance per request
type Factory func() Handler

/* Registry maps handler names to factories and service ids to handler names
 * Bindings are resolved lazily at request time, so a binding may be declared
 * before its handler factory is registered (load order does not matter, only
 * the state at resolution time does)
 */
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
	bindings  map[string]string
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[string]Factory),
		bindings:  make(map[string]string),
	}
}

// Register adds a handler factory under the given name
func (r *Registry) Register(name string, factory Factory) {
	if name == "" || factory == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = factory
}

// Bind maps a service id to a registered handler name.
// The handler does not have to be registered yet.
func (r *Registry) Bind(serviceID, handlerName string) {
	if serviceID == "" || handlerName == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.bindings[normalizeServiceID(serviceID)] = handlerName
}

/* Resolve looks up the service id binding and instantiates its handler
 * Returns the canonical handler name together with the instance so callers
 * can stamp it on the persisted record
 */
func (r *Registry) Resolve(serviceID string) (string, Handler, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	name, ok := r.bindings[normalizeServiceID(serviceID)]
	if !ok {
		return "", nil, fmt.Errorf("%w for service %q", ErrUnknownHandler, serviceID)
	}
	factory, ok := r.factories[name]
	if !ok {
		return "", nil, fmt.Errorf("%w: service %q is bound to unregistered handler %q", ErrUnknownHandler, serviceID, name)
	}
	return name, factory(), nil
}

// Handler instantiates a handler directly by its registered name
func (r *Registry) Handler(name string) (Handler, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	factory, ok := r.factories[name]
	if !ok {
		return nil, fmt.Errorf("%w: no handler registered as %q", ErrUnknownHandler, name)
	}
	return factory(), nil
}

// ServiceIDs returns all bound service ids
func (r *Registry) ServiceIDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.bindings))
	for id := range r.bindings {
		ids = append(ids, id)
	}
	return ids
}

func normalizeServiceID(serviceID string) string {
	return strings.ToLower(strings.TrimSpace(serviceID))
}

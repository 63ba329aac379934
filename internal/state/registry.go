package state

import (
	"reflect"
	"sort"
	"sync"

	"go.uber.org/zap"
)

// Registry maps store names to their live stores. It is constructed by the
// host application and injected into every Manager; there is no global one.
type Registry struct {
	mu      sync.RWMutex
	stores  map[string]MutableStore
	cleanup []func()
	closed  bool
	logger  *zap.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		stores: make(map[string]MutableStore),
		logger: logger,
	}
}

// Lookup returns the store registered under name.
func (r *Registry) Lookup(name string) (MutableStore, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	store, ok := r.stores[name]
	return store, ok
}

// Names returns the registered store names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.stores))
	for name := range r.stores {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of registered stores.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.stores)
}

// Close detaches every subscription made through the registry's managers and
// forgets all stores. Managers built afterwards fail with ErrRegistryClosed.
func (r *Registry) Close() {
	r.mu.Lock()
	cleanup := r.cleanup
	r.cleanup = nil
	r.stores = make(map[string]MutableStore)
	r.closed = true
	r.mu.Unlock()

	for _, fn := range cleanup {
		fn()
	}
	r.logger.Debug("store registry closed", zap.Int("subscriptions", len(cleanup)))
}

// attach resolves the store a new Manager binds to. A supplied container is
// adopted and registered (last writer wins); otherwise an existing store is
// reused, and only when none exists is create called. The boolean reports
// whether create was used.
func (r *Registry) attach(name string, supplied Container, create func() MutableStore) (MutableStore, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil, false, ErrRegistryClosed
	}

	existing, exists := r.stores[name]

	if supplied != nil {
		if exists && sameContainer(underlying(existing), supplied) {
			return existing, false, nil
		}
		store := Augment(supplied)
		r.stores[name] = store
		return store, false, nil
	}

	if exists {
		return existing, false, nil
	}

	store := create()
	r.stores[name] = store
	return store, true, nil
}

// track registers fn to run on Close. If the registry is already closed fn
// runs immediately.
func (r *Registry) track(fn func()) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		fn()
		return
	}
	r.cleanup = append(r.cleanup, fn)
	r.mu.Unlock()
}

func sameContainer(a, b Container) bool {
	if a == nil || b == nil {
		return false
	}
	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ta != tb || !ta.Comparable() {
		return false
	}
	return a == b
}

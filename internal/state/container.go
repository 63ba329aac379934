// Package state provides named reactive stores and the Manager that guards
// every read and write to them.
//
// A store is a Container (an observable key-value object) augmented with the
// MutableStore capability. Stores are registered by name in a Registry so that
// every Manager built for the same name shares one container.
package state

import (
	"sort"
	"sync"
)

// Well-known fields.
const (
	// ErrorsField holds the append-only list of recorded error messages.
	ErrorsField = "errors"
	// MetaField holds pagination and response metadata.
	MetaField = "meta"
)

// Listener receives a snapshot of the container after every successful
// update. The snapshot is shared between listeners and must not be modified.
type Listener func(snapshot map[string]any)

// Container is an observable, mutable key-value object.
type Container interface {
	// Name returns the store name the container was created for.
	Name() string

	// View runs fn with read access to the live data.
	View(fn func(data map[string]any))

	// Update runs fn with write access to the live data. Listeners are
	// notified only when fn returns nil.
	Update(fn func(data map[string]any) error) error

	// Subscribe registers fn for change notifications.
	Subscribe(fn Listener) (unsubscribe func())
}

// MemoryContainer is the default in-process Container.
type MemoryContainer struct {
	name string

	mu   sync.RWMutex
	data map[string]any

	listenersMu sync.Mutex
	listeners   map[uint64]Listener
	nextID      uint64

	// pending snapshots in write order; one goroutine drains at a time.
	queueMu  sync.Mutex
	pending  []map[string]any
	draining bool
}

// NewMemoryContainer creates a container seeded with seed. The map is owned by
// the container afterwards.
func NewMemoryContainer(name string, seed map[string]any) *MemoryContainer {
	if seed == nil {
		seed = make(map[string]any)
	}
	return &MemoryContainer{
		name:      name,
		data:      seed,
		listeners: make(map[uint64]Listener),
	}
}

// Name returns the store name.
func (c *MemoryContainer) Name() string {
	return c.name
}

// View runs fn under the read lock.
func (c *MemoryContainer) View(fn func(data map[string]any)) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	fn(c.data)
}

// Update runs fn under the write lock and notifies listeners on success.
//
// Snapshots reach listeners in write order. When another goroutine is already
// delivering, or a listener itself calls Update, the snapshot is queued and
// Update returns; the delivering goroutine hands it over next.
func (c *MemoryContainer) Update(fn func(data map[string]any) error) error {
	c.mu.Lock()
	if err := fn(c.data); err != nil {
		c.mu.Unlock()
		return err
	}
	c.queueMu.Lock()
	c.pending = append(c.pending, cloneMap(c.data))
	deliver := !c.draining
	c.draining = true
	c.queueMu.Unlock()
	c.mu.Unlock()

	if deliver {
		c.drain()
	}
	return nil
}

// drain delivers queued snapshots until the queue is empty.
func (c *MemoryContainer) drain() {
	for {
		c.queueMu.Lock()
		if len(c.pending) == 0 {
			c.draining = false
			c.queueMu.Unlock()
			return
		}
		snapshot := c.pending[0]
		c.pending[0] = nil
		c.pending = c.pending[1:]
		c.queueMu.Unlock()

		c.notify(snapshot)
	}
}

// Subscribe registers fn; the returned function removes it.
func (c *MemoryContainer) Subscribe(fn Listener) func() {
	c.listenersMu.Lock()
	id := c.nextID
	c.nextID++
	c.listeners[id] = fn
	c.listenersMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.listenersMu.Lock()
			delete(c.listeners, id)
			c.listenersMu.Unlock()
		})
	}
}

// notify calls listeners in subscription order, outside the data lock.
func (c *MemoryContainer) notify(snapshot map[string]any) {
	c.listenersMu.Lock()
	ids := make([]uint64, 0, len(c.listeners))
	for id := range c.listeners {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	listeners := make([]Listener, 0, len(ids))
	for _, id := range ids {
		listeners = append(listeners, c.listeners[id])
	}
	c.listenersMu.Unlock()

	for _, fn := range listeners {
		fn(snapshot)
	}
}

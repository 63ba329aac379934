package state

import (
	"reflect"
	"sort"
	"sync"
)

// Ref is a live handle on one top-level field of a store.
type Ref struct {
	manager *Manager
	key     string
}

// State returns one Ref per current field.
func (m *Manager) State() map[string]*Ref {
	refs := make(map[string]*Ref)
	m.store.View(func(data map[string]any) {
		for key := range data {
			refs[key] = &Ref{manager: m, key: key}
		}
	})
	return refs
}

// Fields returns the current field names in sorted order.
func (m *Manager) Fields() []string {
	var keys []string
	m.store.View(func(data map[string]any) {
		keys = make([]string, 0, len(data))
		for key := range data {
			keys = append(keys, key)
		}
	})
	sort.Strings(keys)
	return keys
}

// Key returns the field name.
func (r *Ref) Key() string {
	return r.key
}

// Get returns a copy of the field's current value.
func (r *Ref) Get() any {
	value, _ := r.manager.Get(r.key)
	return value
}

// Set writes the field through the manager.
func (r *Ref) Set(value any) error {
	return r.manager.SetFieldValue(r.key, value)
}

// Watch calls fn with the new value every time the field changes. Writes to
// other fields do not trigger it.
func (r *Ref) Watch(fn func(value any)) (cancel func()) {
	var mu sync.Mutex
	last := r.Get()

	return r.manager.Subscribe(func(snapshot map[string]any) {
		value := snapshot[r.key]

		mu.Lock()
		if reflect.DeepEqual(value, last) {
			mu.Unlock()
			return
		}
		last = cloneValue(value)
		mu.Unlock()

		fn(cloneValue(value))
	})
}

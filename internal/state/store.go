package state

import (
	"github.com/vyrodovalexey/adminstate/internal/keypath"
)

// MutableStore is a Container that knows how to apply path writes and keep
// its error list.
type MutableStore interface {
	Container

	// SetState assigns value at p. Every segment of p must already exist.
	SetState(p keypath.Path, value any) error

	// AddError appends message to the errors field, creating it if absent.
	AddError(message string)

	// ClearErrors empties the errors field.
	ClearErrors()
}

// Augment returns c as a MutableStore. A container that already implements
// the capability is returned unchanged; any other container is wrapped in the
// default implementation.
func Augment(c Container) MutableStore {
	if store, ok := c.(MutableStore); ok {
		return store
	}
	return &augmentedStore{Container: c}
}

// underlying returns the container a store was built from.
func underlying(s MutableStore) Container {
	if a, ok := s.(*augmentedStore); ok {
		return a.Container
	}
	return s
}

// augmentedStore adds the default mutators to a plain Container.
type augmentedStore struct {
	Container
}

func (s *augmentedStore) SetState(p keypath.Path, value any) error {
	return s.Update(func(data map[string]any) error {
		return keypath.Set(data, p, value)
	})
}

func (s *augmentedStore) AddError(message string) {
	_ = s.Update(func(data map[string]any) error {
		data[ErrorsField] = append(AsStrings(data[ErrorsField]), message)
		return nil
	})
}

func (s *augmentedStore) ClearErrors() {
	_ = s.Update(func(data map[string]any) error {
		data[ErrorsField] = []string{}
		return nil
	})
}

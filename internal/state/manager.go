package state

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/vyrodovalexey/adminstate/internal/keypath"
)

// Manager is the single mutation gateway into one named store. It enforces
// the declared schema, tracks errors and loads remote data into the store.
type Manager struct {
	name      string
	initial   map[string]any
	store     MutableStore
	registry  *Registry
	logger    *zap.Logger
	notifier  Notifier
	requester Requester

	// supplied is only set between option application and attach.
	supplied Container
}

// Option configures a Manager.
type Option func(*Manager)

// WithContainer adopts an externally created container instead of creating
// one, e.g. a container rehydrated by a persistence plugin.
func WithContainer(c Container) Option {
	return func(m *Manager) {
		m.supplied = c
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithNotifier sets the sink that receives key-not-found messages.
func WithNotifier(n Notifier) Option {
	return func(m *Manager) {
		if n != nil {
			m.notifier = n
		}
	}
}

// WithRequester sets the transport used by the fetch operations.
func WithRequester(r Requester) Option {
	return func(m *Manager) {
		m.requester = r
	}
}

// New builds a Manager for storeName. initialData declares the schema and its
// defaults; an errors field is added when missing. The first Manager for a
// name creates the container, later ones adopt it.
func New(registry *Registry, storeName string, initialData map[string]any, opts ...Option) (*Manager, error) {
	if registry == nil {
		return nil, ErrNilRegistry
	}
	if strings.TrimSpace(storeName) == "" {
		return nil, ErrInvalidStoreName
	}

	m := &Manager{
		name:     storeName,
		initial:  cloneMap(initialData),
		registry: registry,
		logger:   zap.NewNop(),
		notifier: NopNotifier{},
	}
	if m.initial == nil {
		m.initial = make(map[string]any)
	}
	if _, ok := m.initial[ErrorsField]; !ok {
		m.initial[ErrorsField] = []string{}
	}

	for _, opt := range opts {
		opt(m)
	}
	m.logger = m.logger.With(zap.String("store", storeName))

	store, created, err := registry.attach(storeName, m.supplied, func() MutableStore {
		return Augment(NewMemoryContainer(storeName, cloneMap(m.initial)))
	})
	m.supplied = nil
	if err != nil {
		return nil, fmt.Errorf("attaching store %q: %w", storeName, err)
	}
	m.store = store

	if created {
		m.logger.Debug("store not found, created")
	} else {
		m.logger.Debug("store found, adopted")
	}

	m.seedDefaults()

	return m, nil
}

// seedDefaults adds every declared field the container lacks. Fields that are
// already present, e.g. rehydrated ones, keep their values.
func (m *Manager) seedDefaults() {
	var added []string
	err := m.store.Update(func(data map[string]any) error {
		for key, value := range m.initial {
			if _, ok := data[key]; ok {
				continue
			}
			data[key] = cloneValue(value)
			added = append(added, key)
		}
		return nil
	})
	if err != nil {
		m.recordError(fmt.Sprintf("Failed to seed %q state: %v", m.name, err))
		return
	}
	if len(added) > 0 {
		sort.Strings(added)
		m.logger.Debug("declared fields seeded", zap.Strings("fields", added))
	}
}

// Name returns the store name.
func (m *Manager) Name() string {
	return m.name
}

// Store returns the underlying store.
func (m *Manager) Store() MutableStore {
	return m.store
}

// InitialState returns a copy of the declared defaults.
func (m *Manager) InitialState() map[string]any {
	return cloneMap(m.initial)
}

// RawState returns a plain deep copy of the current data.
func (m *Manager) RawState() map[string]any {
	var snapshot map[string]any
	m.store.View(func(data map[string]any) {
		snapshot = cloneMap(data)
	})
	return snapshot
}

// Get returns a copy of the value at a dotted path.
func (m *Manager) Get(key string) (any, bool) {
	p, err := keypath.Parse(key)
	if err != nil {
		return nil, false
	}

	var (
		value any
		found bool
	)
	m.store.View(func(data map[string]any) {
		value, found = keypath.Get(data, p)
		value = cloneValue(value)
	})
	return value, found
}

// Path validates a dotted key against the current data and returns it as a
// typed path.
func (m *Manager) Path(key string) (keypath.Path, error) {
	p, err := keypath.Parse(key)
	if err != nil {
		return keypath.Path{}, &KeyNotFoundError{Store: m.name, Key: key}
	}

	var found bool
	m.store.View(func(data map[string]any) {
		found = keypath.Exists(data, p)
	})
	if !found {
		return keypath.Path{}, &KeyNotFoundError{Store: m.name, Key: key}
	}
	return p, nil
}

// SetState assigns value at a dotted path such as "person.email". A path that
// does not resolve is logged, sent to the notifier and returned as a
// *KeyNotFoundError; the data is left untouched.
func (m *Manager) SetState(key string, value any) error {
	p, err := keypath.Parse(key)
	if err != nil {
		return m.keyNotFound(key, err)
	}
	return m.SetPath(p, value)
}

// SetPath is SetState for an already parsed path.
func (m *Manager) SetPath(p keypath.Path, value any) error {
	if err := m.write(p, value); err != nil {
		if errors.Is(err, ErrKeyNotFound) || errors.Is(err, keypath.ErrInvalidPath) {
			return m.keyNotFound(p.String(), err)
		}
		return fmt.Errorf("setting %s in %q: %w", p, m.name, err)
	}
	return nil
}

// SetFieldValue sets a single field. Same semantics as SetState.
func (m *Manager) SetFieldValue(key string, value any) error {
	return m.SetState(key, value)
}

// SetFieldsValue applies every pair independently, in key order. A failing
// key is recorded as an error and the remaining keys still apply.
func (m *Manager) SetFieldsValue(values map[string]any) BatchResult {
	return m.applyBatch(values)
}

// ResetState re-applies the declared defaults field by field.
func (m *Manager) ResetState() BatchResult {
	result := m.applyBatch(cloneMap(m.initial))
	m.logger.Debug("state reset", zap.Stringer("result", result))
	return result
}

// ClearState blanks every field: "" for strings, empty slices and maps, nil
// for anything else. Unlike ResetState it ignores the declared defaults.
func (m *Manager) ClearState() BatchResult {
	blank := make(map[string]any)
	m.store.View(func(data map[string]any) {
		for key, value := range data {
			blank[key] = emptyValue(value)
		}
	})
	result := m.applyBatch(blank)
	m.logger.Debug("state cleared", zap.Stringer("result", result))
	return result
}

// AddError appends message to the store's error list.
func (m *Manager) AddError(message string) {
	m.recordError(message)
}

// ClearErrors empties the store's error list.
func (m *Manager) ClearErrors() {
	m.store.ClearErrors()
}

// Errors returns a copy of the store's error list.
func (m *Manager) Errors() []string {
	var out []string
	m.store.View(func(data map[string]any) {
		out = AsStrings(data[ErrorsField])
	})
	return out
}

// HasErrors reports whether any error is recorded.
func (m *Manager) HasErrors() bool {
	return len(m.Errors()) > 0
}

// Subscribe registers fn for every change of the store. The subscription is
// detached when the registry closes.
func (m *Manager) Subscribe(fn Listener) func() {
	unsubscribe := m.store.Subscribe(fn)
	m.registry.track(unsubscribe)
	return unsubscribe
}

func (m *Manager) write(p keypath.Path, value any) error {
	err := m.store.SetState(p, value)
	if err != nil {
		storeMutationsTotal.WithLabelValues(m.name, resultRejected).Inc()
		return err
	}
	storeMutationsTotal.WithLabelValues(m.name, resultApplied).Inc()
	return nil
}

func (m *Manager) applyBatch(values map[string]any) BatchResult {
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var result BatchResult
	for _, key := range keys {
		p, err := keypath.Parse(key)
		if err == nil {
			err = m.write(p, values[key])
		}
		if err != nil {
			fieldErr := FieldError{Key: key, Err: &KeyNotFoundError{Store: m.name, Key: key}}
			if !errors.Is(err, ErrKeyNotFound) && !errors.Is(err, keypath.ErrInvalidPath) {
				fieldErr.Err = fmt.Errorf("setting %s in %q: %w", key, m.name, err)
			}
			m.logger.Warn("field not applied", zap.String("key", key), zap.Error(err))
			m.recordError(fieldErr.Error())
			result.Failed = append(result.Failed, fieldErr)
			continue
		}
		result.Applied = append(result.Applied, key)
	}
	return result
}

func (m *Manager) keyNotFound(key string, cause error) error {
	err := &KeyNotFoundError{Store: m.name, Key: key}
	m.logger.Error("key not found", zap.String("key", key), zap.NamedError("cause", cause))
	m.notifier.Error(err.Error())
	return err
}

func (m *Manager) recordError(message string) {
	m.store.AddError(message)
	storeErrorsRecordedTotal.WithLabelValues(m.name).Inc()
}

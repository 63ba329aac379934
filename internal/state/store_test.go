package state

import (
	"errors"
	"reflect"
	"sync"
	"testing"

	"github.com/vyrodovalexey/adminstate/internal/keypath"
)

// capableContainer already implements MutableStore with its own semantics.
type capableContainer struct {
	*MemoryContainer
	writes int
}

func (c *capableContainer) SetState(p keypath.Path, value any) error {
	c.writes++
	return c.Update(func(data map[string]any) error {
		return keypath.Set(data, p, value)
	})
}

func (c *capableContainer) AddError(string) {}

func (c *capableContainer) ClearErrors() {}

func TestAugment(t *testing.T) {
	t.Run("wraps plain container", func(t *testing.T) {
		// Arrange
		c := NewMemoryContainer("s", map[string]any{"a": 1})

		// Act
		store := Augment(c)
		again := Augment(store)

		// Assert
		if store != again {
			t.Error("augmenting an augmented store should return it unchanged")
		}
		if underlying(store) != Container(c) {
			t.Error("underlying() should return the wrapped container")
		}
		if store.Name() != "s" {
			t.Errorf("Name() = %q, want s", store.Name())
		}
	})

	t.Run("keeps capable container", func(t *testing.T) {
		// Arrange
		c := &capableContainer{MemoryContainer: NewMemoryContainer("s", map[string]any{"a": 1})}

		// Act
		store := Augment(c)
		err := store.SetState(keypath.MustParse("a"), 2)

		// Assert
		if store != MutableStore(c) {
			t.Error("a container that already implements MutableStore must be returned as-is")
		}
		if err != nil {
			t.Fatalf("SetState() error: %v", err)
		}
		if c.writes != 1 {
			t.Errorf("writes = %d, want 1", c.writes)
		}
	})
}

func TestAugmentedStore_SetState(t *testing.T) {
	// Arrange
	c := NewMemoryContainer("s", map[string]any{
		"person": map[string]any{"email": "a@example.com"},
	})
	store := Augment(c)
	var notified int
	store.Subscribe(func(map[string]any) { notified++ })

	// Act
	okErr := store.SetState(keypath.MustParse("person.email"), "b@example.com")
	badErr := store.SetState(keypath.MustParse("person.phone"), "1")

	// Assert
	if okErr != nil {
		t.Fatalf("SetState() error: %v", okErr)
	}
	if !errors.Is(badErr, ErrKeyNotFound) {
		t.Errorf("SetState(missing) error = %v, want ErrKeyNotFound", badErr)
	}
	if notified != 1 {
		t.Errorf("listener calls = %d, want 1", notified)
	}
	c.View(func(data map[string]any) {
		person := data["person"].(map[string]any)
		if person["email"] != "b@example.com" {
			t.Errorf("email = %v, want b@example.com", person["email"])
		}
		if _, ok := person["phone"]; ok {
			t.Error("missing key must not be created")
		}
	})
}

func TestAugmentedStore_Errors(t *testing.T) {
	// Arrange
	c := NewMemoryContainer("s", map[string]any{})
	store := Augment(c)

	// Act
	store.AddError("one")
	store.AddError("two")
	var afterAdd any
	c.View(func(data map[string]any) { afterAdd = cloneValue(data[ErrorsField]) })
	store.ClearErrors()

	// Assert
	if !reflect.DeepEqual(afterAdd, []string{"one", "two"}) {
		t.Errorf("errors = %#v, want [one two]", afterAdd)
	}
	c.View(func(data map[string]any) {
		if got := AsStrings(data[ErrorsField]); len(got) != 0 {
			t.Errorf("errors after ClearErrors = %v, want empty", got)
		}
	})
}

func TestMemoryContainer_UpdateErrorSkipsListeners(t *testing.T) {
	// Arrange
	c := NewMemoryContainer("s", nil)
	var calls int
	unsubscribe := c.Subscribe(func(map[string]any) { calls++ })

	// Act
	failErr := c.Update(func(map[string]any) error { return errors.New("nope") })
	_ = c.Update(func(data map[string]any) error {
		data["x"] = 1
		return nil
	})
	unsubscribe()
	unsubscribe()
	_ = c.Update(func(data map[string]any) error {
		data["x"] = 2
		return nil
	})

	// Assert
	if failErr == nil {
		t.Error("Update() should return the callback error")
	}
	if calls != 1 {
		t.Errorf("listener calls = %d, want 1", calls)
	}
}

func TestMemoryContainer_ListenerOrder(t *testing.T) {
	// Arrange
	c := NewMemoryContainer("s", nil)
	var order []int
	for i := 0; i < 5; i++ {
		i := i
		c.Subscribe(func(map[string]any) { order = append(order, i) })
	}

	// Act
	_ = c.Update(func(data map[string]any) error {
		data["x"] = true
		return nil
	})

	// Assert
	if !reflect.DeepEqual(order, []int{0, 1, 2, 3, 4}) {
		t.Errorf("order = %v, want subscription order", order)
	}
}

func TestMemoryContainer_ConcurrentUpdatesDeliverInWriteOrder(t *testing.T) {
	// Arrange
	const writers, writes = 8, 50
	c := NewMemoryContainer("s", map[string]any{"n": 0})
	var (
		mu        sync.Mutex
		delivered []int
	)
	c.Subscribe(func(snapshot map[string]any) {
		mu.Lock()
		delivered = append(delivered, snapshot["n"].(int))
		mu.Unlock()
	})

	// Act
	var wg sync.WaitGroup
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < writes; i++ {
				_ = c.Update(func(data map[string]any) error {
					data["n"] = data["n"].(int) + 1
					return nil
				})
			}
		}()
	}
	wg.Wait()

	// Assert
	mu.Lock()
	defer mu.Unlock()
	if len(delivered) != writers*writes {
		t.Fatalf("deliveries = %d, want %d", len(delivered), writers*writes)
	}
	for i, n := range delivered {
		if n != i+1 {
			t.Fatalf("delivery %d carried n=%d, want %d", i, n, i+1)
		}
	}
	c.View(func(data map[string]any) {
		if data["n"] != delivered[len(delivered)-1] {
			t.Errorf("last delivered n = %d, final n = %v", delivered[len(delivered)-1], data["n"])
		}
	})
}

func TestMemoryContainer_UpdateFromListener(t *testing.T) {
	// Arrange
	c := NewMemoryContainer("s", map[string]any{"step": 0})
	var seen []int
	c.Subscribe(func(snapshot map[string]any) {
		step := snapshot["step"].(int)
		seen = append(seen, step)
		if step == 1 {
			_ = c.Update(func(data map[string]any) error {
				data["step"] = 2
				return nil
			})
		}
	})

	// Act
	err := c.Update(func(data map[string]any) error {
		data["step"] = 1
		return nil
	})

	// Assert
	if err != nil {
		t.Fatalf("Update() unexpected error: %v", err)
	}
	if !reflect.DeepEqual(seen, []int{1, 2}) {
		t.Errorf("seen = %v, want [1 2]", seen)
	}
}

func TestAsStrings(t *testing.T) {
	tests := []struct {
		name  string
		input any
		want  []string
	}{
		{name: "nil", input: nil, want: []string{}},
		{name: "strings", input: []string{"a"}, want: []string{"a"}},
		{name: "decoded list", input: []any{"a", float64(2)}, want: []string{"a", "2"}},
		{name: "scalar", input: 5, want: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := AsStrings(tt.input); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("AsStrings(%v) = %#v, want %#v", tt.input, got, tt.want)
			}
		})
	}
}

func TestEmptyValue(t *testing.T) {
	tests := []struct {
		name  string
		input any
		want  any
	}{
		{name: "string", input: "abc", want: ""},
		{name: "slice", input: []any{1}, want: []any{}},
		{name: "map", input: map[string]any{"a": 1}, want: map[string]any{}},
		{name: "number", input: 3.5, want: nil},
		{name: "bool", input: true, want: nil},
		{name: "nil", input: nil, want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := emptyValue(tt.input); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("emptyValue(%v) = %#v, want %#v", tt.input, got, tt.want)
			}
		})
	}
}

func TestBatchResult_String(t *testing.T) {
	// Arrange
	result := BatchResult{
		Applied: []string{"a", "b"},
		Failed:  []FieldError{{Key: "z", Err: &KeyNotFoundError{Store: "s", Key: "z"}}},
	}

	// Act & Assert
	if got := result.String(); got != "applied=[a,b] failed=[z]" {
		t.Errorf("String() = %q", got)
	}
	if (BatchResult{}).Err() != nil {
		t.Error("empty result should have nil Err()")
	}
}

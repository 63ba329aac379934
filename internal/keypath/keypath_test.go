package keypath

import (
	"errors"
	"reflect"
	"testing"
)

func newGraph() map[string]any {
	return map[string]any{
		"username": "",
		"person": map[string]any{
			"email": "old@example.com",
			"user": map[string]any{
				"id": "u1",
			},
		},
		"tags": []string{"a"},
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    []string
		wantErr bool
	}{
		{name: "single field", input: "username", want: []string{"username"}},
		{name: "nested field", input: "person.email", want: []string{"person", "email"}},
		{name: "deep field", input: "person.user.id", want: []string{"person", "user", "id"}},
		{name: "empty", input: "", wantErr: true},
		{name: "blank", input: "   ", wantErr: true},
		{name: "leading dot", input: ".email", wantErr: true},
		{name: "double dot", input: "person..email", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Act
			got, err := Parse(tt.input)

			// Assert
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidPath) {
					t.Fatalf("Parse(%q) error = %v, want ErrInvalidPath", tt.input, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Parse(%q) unexpected error: %v", tt.input, err)
			}
			if !reflect.DeepEqual(got.Segments(), tt.want) {
				t.Errorf("Segments() = %v, want %v", got.Segments(), tt.want)
			}
			if got.String() != tt.input {
				t.Errorf("String() = %q, want %q", got.String(), tt.input)
			}
		})
	}
}

func TestPath_Child(t *testing.T) {
	// Arrange
	base := MustParse("person")

	// Act
	child := base.Child("email")

	// Assert
	if child.String() != "person.email" {
		t.Errorf("Child() = %q, want person.email", child.String())
	}
	if base.String() != "person" {
		t.Errorf("base path mutated: %q", base.String())
	}
	if child.Root() != "person" {
		t.Errorf("Root() = %q, want person", child.Root())
	}
}

func TestMustParse_Panics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("MustParse(\"\") should panic")
		}
	}()
	MustParse("")
}

func TestSet_RoundTrip(t *testing.T) {
	tests := []struct {
		name  string
		path  string
		value any
	}{
		{name: "top level", path: "username", value: "admin"},
		{name: "nested", path: "person.email", value: "new@example.com"},
		{name: "deep", path: "person.user.id", value: "u2"},
		{name: "replace slice", path: "tags", value: []string{"b", "c"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Arrange
			graph := newGraph()
			p := MustParse(tt.path)

			// Act
			err := Set(graph, p, tt.value)

			// Assert
			if err != nil {
				t.Fatalf("Set() unexpected error: %v", err)
			}
			got, ok := Get(graph, p)
			if !ok {
				t.Fatalf("Get(%s) not found after Set", tt.path)
			}
			if !reflect.DeepEqual(got, tt.value) {
				t.Errorf("Get(%s) = %v, want %v", tt.path, got, tt.value)
			}
		})
	}
}

func TestSet_PreservesSiblings(t *testing.T) {
	// Arrange
	graph := newGraph()

	// Act
	if err := Set(graph, MustParse("person.email"), "x@example.com"); err != nil {
		t.Fatalf("Set() unexpected error: %v", err)
	}

	// Assert
	id, ok := Get(graph, MustParse("person.user.id"))
	if !ok || id != "u1" {
		t.Errorf("sibling person.user.id = %v (found %v), want u1", id, ok)
	}
}

func TestSet_Unresolvable(t *testing.T) {
	tests := []struct {
		name string
		path string
	}{
		{name: "missing top level", path: "missing"},
		{name: "missing leaf", path: "person.phone"},
		{name: "missing intermediate", path: "address.city"},
		{name: "through scalar", path: "username.length"},
		{name: "through slice", path: "tags.first"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Arrange
			graph := newGraph()
			before := newGraph()

			// Act
			err := Set(graph, MustParse(tt.path), "value")

			// Assert
			if !errors.Is(err, ErrKeyNotFound) {
				t.Fatalf("Set(%s) error = %v, want ErrKeyNotFound", tt.path, err)
			}
			if !reflect.DeepEqual(graph, before) {
				t.Errorf("graph modified on failed Set: %v", graph)
			}
		})
	}
}

func TestSet_ZeroPath(t *testing.T) {
	if err := Set(newGraph(), Path{}, 1); !errors.Is(err, ErrInvalidPath) {
		t.Errorf("Set(zero path) error = %v, want ErrInvalidPath", err)
	}
}

func TestExists(t *testing.T) {
	graph := newGraph()

	if !Exists(graph, MustParse("person.user")) {
		t.Error("Exists(person.user) = false, want true")
	}
	if Exists(graph, MustParse("person.user.name")) {
		t.Error("Exists(person.user.name) = true, want false")
	}
	if Exists(nil, MustParse("person")) {
		t.Error("Exists on nil root = true, want false")
	}
}

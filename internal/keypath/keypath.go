// Package keypath resolves and assigns nested fields of JSON-shaped object
// graphs (map[string]any) addressed by typed paths.
package keypath

import (
	"errors"
	"fmt"
	"strings"
)

// Separator joins path segments in their dotted string form.
const Separator = "."

// Path errors.
var (
	ErrInvalidPath = errors.New("invalid key path")
	ErrKeyNotFound = errors.New("key not found")
)

// Path is a sequence of field selectors, e.g. person -> email.
// The zero value is an empty (invalid) path.
type Path struct {
	segments []string
}

// New builds a path from individual field names.
func New(fields ...string) (Path, error) {
	if len(fields) == 0 {
		return Path{}, fmt.Errorf("%w: no segments", ErrInvalidPath)
	}

	segments := make([]string, len(fields))
	for i, field := range fields {
		if field == "" {
			return Path{}, fmt.Errorf("%w: empty segment at position %d", ErrInvalidPath, i)
		}
		segments[i] = field
	}

	return Path{segments: segments}, nil
}

// Parse splits a dotted string such as "person.email" into a Path.
func Parse(dotted string) (Path, error) {
	if strings.TrimSpace(dotted) == "" {
		return Path{}, fmt.Errorf("%w: %q", ErrInvalidPath, dotted)
	}

	path, err := New(strings.Split(dotted, Separator)...)
	if err != nil {
		return Path{}, fmt.Errorf("parsing %q: %w", dotted, err)
	}
	return path, nil
}

// MustParse is like Parse but panics on malformed input. Intended for
// package-level path literals.
func MustParse(dotted string) Path {
	path, err := Parse(dotted)
	if err != nil {
		panic(err)
	}
	return path
}

// Child returns a new path with field appended.
func (p Path) Child(field string) Path {
	segments := make([]string, 0, len(p.segments)+1)
	segments = append(segments, p.segments...)
	segments = append(segments, field)
	return Path{segments: segments}
}

// Root returns the top-level field the path starts from.
func (p Path) Root() string {
	if len(p.segments) == 0 {
		return ""
	}
	return p.segments[0]
}

// Segments returns a copy of the path's field selectors.
func (p Path) Segments() []string {
	out := make([]string, len(p.segments))
	copy(out, p.segments)
	return out
}

// Len returns the number of segments.
func (p Path) Len() int {
	return len(p.segments)
}

// IsZero reports whether the path has no segments.
func (p Path) IsZero() bool {
	return len(p.segments) == 0
}

// String returns the dotted form.
func (p Path) String() string {
	return strings.Join(p.segments, Separator)
}

// Get returns the value addressed by p inside root.
func Get(root map[string]any, p Path) (any, bool) {
	if p.IsZero() || root == nil {
		return nil, false
	}

	parent, ok := walk(root, p)
	if !ok {
		return nil, false
	}

	value, ok := parent[p.segments[len(p.segments)-1]]
	return value, ok
}

// Exists reports whether every segment of p resolves inside root.
func Exists(root map[string]any, p Path) bool {
	_, ok := Get(root, p)
	return ok
}

// Set assigns value at p. Every segment, including the last one, must already
// exist; intermediate segments must be objects. On failure root is untouched.
func Set(root map[string]any, p Path, value any) error {
	if p.IsZero() {
		return ErrInvalidPath
	}
	if root == nil {
		return fmt.Errorf("%w: %s", ErrKeyNotFound, p)
	}

	parent, ok := walk(root, p)
	if !ok {
		return fmt.Errorf("%w: %s", ErrKeyNotFound, p)
	}

	leaf := p.segments[len(p.segments)-1]
	if _, exists := parent[leaf]; !exists {
		return fmt.Errorf("%w: %s", ErrKeyNotFound, p)
	}

	parent[leaf] = value
	return nil
}

// walk descends to the object holding the last segment of p.
func walk(root map[string]any, p Path) (map[string]any, bool) {
	current := root
	for _, segment := range p.segments[:len(p.segments)-1] {
		next, ok := current[segment]
		if !ok {
			return nil, false
		}

		object, ok := next.(map[string]any)
		if !ok {
			return nil, false
		}
		current = object
	}
	return current, true
}

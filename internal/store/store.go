// Package store provides person storage for the reference admin API.
package store

import (
	"context"
	"errors"

	"github.com/vyrodovalexey/adminstate/internal/model"
)

// Store errors.
var (
	ErrNotFound       = errors.New("person not found")
	ErrInvalidID      = errors.New("invalid person ID")
	ErrNilPerson      = errors.New("person cannot be nil")
	ErrInvalidPage    = errors.New("page and perPage must be positive")
	ErrDuplicateEmail = errors.New("email already in use")
)

// Pagination limits.
const (
	DefaultPerPage = 10
	MaxPerPage     = 100
)

// Owner identifies the account that creates a person.
type Owner struct {
	ID       string
	Username string
}

// Store defines the interface for person storage operations.
type Store interface {
	// List returns one page of persons ordered by name, then ID.
	List(ctx context.Context, page, perPage int) (model.Page[model.Person], error)

	// Get retrieves a person by its ID.
	Get(ctx context.Context, id string) (*model.Person, error)

	// Create adds a new person owned by owner and returns it with a generated ID.
	Create(ctx context.Context, input *model.PersonInput, owner Owner) (*model.Person, error)

	// Update replaces the writable fields of an existing person.
	Update(ctx context.Context, id string, input *model.PersonInput) (*model.Person, error)

	// Delete removes a person by its ID.
	Delete(ctx context.Context, id string) error
}

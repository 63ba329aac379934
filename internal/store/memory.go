package store

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vyrodovalexey/adminstate/internal/model"
)

// MemoryStore implements Store with in-memory storage.
type MemoryStore struct {
	mu      sync.RWMutex
	persons map[string]model.Person
	now     func() time.Time
}

// NewMemoryStore creates a new MemoryStore instance.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		persons: make(map[string]model.Person),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// List returns one page of persons ordered by name, then ID. A page past the
// end is empty, not an error.
func (s *MemoryStore) List(ctx context.Context, page, perPage int) (model.Page[model.Person], error) {
	select {
	case <-ctx.Done():
		return model.Page[model.Person]{}, fmt.Errorf("list persons: %w", ctx.Err())
	default:
	}

	if page < 1 || perPage < 1 {
		return model.Page[model.Person]{}, ErrInvalidPage
	}
	if perPage > MaxPerPage {
		perPage = MaxPerPage
	}

	s.mu.RLock()
	all := make([]model.Person, 0, len(s.persons))
	for _, p := range s.persons {
		all = append(all, p)
	}
	s.mu.RUnlock()

	sort.Slice(all, func(i, j int) bool {
		a, b := strings.ToLower(all[i].Name), strings.ToLower(all[j].Name)
		if a != b {
			return a < b
		}
		return all[i].ID < all[j].ID
	})

	data := []model.Person{}
	// Compared before multiplying so huge page numbers cannot overflow.
	if page-1 < (len(all)+perPage-1)/perPage {
		start := (page - 1) * perPage
		end := start + perPage
		if end > len(all) {
			end = len(all)
		}
		data = all[start:end]
	}

	return model.Page[model.Person]{
		Data: data,
		Meta: model.NewPageMeta(page, perPage, len(all)),
	}, nil
}

// Get retrieves a person by its ID.
func (s *MemoryStore) Get(ctx context.Context, id string) (*model.Person, error) {
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("get person: %w", ctx.Err())
	default:
	}

	if id == "" {
		return nil, ErrInvalidID
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	p, exists := s.persons[id]
	if !exists {
		return nil, ErrNotFound
	}

	return &p, nil
}

// Create adds a new person and returns it with a generated ID.
func (s *MemoryStore) Create(ctx context.Context, input *model.PersonInput, owner Owner) (*model.Person, error) {
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("create person: %w", ctx.Err())
	default:
	}

	if input == nil {
		return nil, ErrNilPerson
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.emailTaken(input.Email, "") {
		return nil, ErrDuplicateEmail
	}

	now := s.now()
	p := model.Person{
		ID:          uuid.New().String(),
		PersonInput: *input,
		UserID:      owner.ID,
		CreatedAt:   now,
		UpdatedAt:   now,
		User:        model.PersonUser{ID: owner.ID, Username: owner.Username},
	}

	s.persons[p.ID] = p

	return &p, nil
}

// Update replaces the writable fields of an existing person.
func (s *MemoryStore) Update(ctx context.Context, id string, input *model.PersonInput) (*model.Person, error) {
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("update person: %w", ctx.Err())
	default:
	}

	if id == "" {
		return nil, ErrInvalidID
	}

	if input == nil {
		return nil, ErrNilPerson
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, exists := s.persons[id]
	if !exists {
		return nil, ErrNotFound
	}

	if s.emailTaken(input.Email, id) {
		return nil, ErrDuplicateEmail
	}

	existing.PersonInput = *input
	existing.UpdatedAt = s.now()
	s.persons[id] = existing

	return &existing, nil
}

// Delete removes a person by its ID.
func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("delete person: %w", ctx.Err())
	default:
	}

	if id == "" {
		return ErrInvalidID
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.persons[id]; !exists {
		return ErrNotFound
	}

	delete(s.persons, id)

	return nil
}

// emailTaken reports whether another person already uses email. Callers hold
// the lock.
func (s *MemoryStore) emailTaken(email, exceptID string) bool {
	for id, p := range s.persons {
		if id != exceptID && strings.EqualFold(p.Email, email) {
			return true
		}
	}
	return false
}

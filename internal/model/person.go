// Package model defines data structures shared by the admin API server and its
// clients.
package model

import (
	"errors"
	"strings"
	"time"
)

// Validation errors for Person.
var (
	ErrEmptyName    = errors.New("name cannot be empty")
	ErrNameTooLong  = errors.New("name cannot exceed 255 characters")
	ErrEmptyEmail   = errors.New("email cannot be empty")
	ErrInvalidEmail = errors.New("email is not valid")
	ErrFieldTooLong = errors.New("field cannot exceed 255 characters")
)

// Validation constants.
const (
	MaxNameLength  = 255
	MaxFieldLength = 255
)

// Person types.
const (
	PersonTypeIndividual = "individual"
	PersonTypeCompany    = "company"
)

// PersonUser is the account a person record belongs to.
type PersonUser struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// PersonInput holds the fields a client may write. Optional fields are
// nullable on the wire.
type PersonInput struct {
	Name         string  `json:"name"`
	Email        string  `json:"email"`
	Phone        *string `json:"phone"`
	Active       *bool   `json:"active"`
	Extension    *string `json:"extension"`
	Neighborhood *string `json:"neighborhood"`
	Complement   *string `json:"complement"`
	Address      *string `json:"address"`
	Number       *string `json:"number"`
	City         *string `json:"city"`
	State        *string `json:"state"`
	Type         string  `json:"type"`
}

// Validate checks if the input has valid field values.
func (p *PersonInput) Validate() error {
	name := strings.TrimSpace(p.Name)
	if name == "" {
		return ErrEmptyName
	}

	if len(name) > MaxNameLength {
		return ErrNameTooLong
	}

	email := strings.TrimSpace(p.Email)
	if email == "" {
		return ErrEmptyEmail
	}

	at := strings.Index(email, "@")
	if at <= 0 || at == len(email)-1 || strings.Contains(email[at+1:], "@") {
		return ErrInvalidEmail
	}

	for _, field := range []*string{
		p.Phone, p.Extension, p.Neighborhood, p.Complement,
		p.Address, p.Number, p.City, p.State,
	} {
		if field != nil && len(*field) > MaxFieldLength {
			return ErrFieldTooLong
		}
	}

	return nil
}

// Person is a contact record managed through the admin console.
type Person struct {
	ID string `json:"id"`
	PersonInput
	UserID    string     `json:"userId"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
	User      PersonUser `json:"user"`
}

// BlankPerson returns the empty person form as a plain object. Every field the
// API serves is present so nested writes such as "person.user.username"
// resolve.
func BlankPerson() map[string]any {
	return map[string]any{
		"id":           "",
		"name":         "",
		"email":        "",
		"phone":        nil,
		"active":       nil,
		"extension":    nil,
		"neighborhood": nil,
		"complement":   nil,
		"address":      nil,
		"number":       nil,
		"city":         nil,
		"state":        nil,
		"type":         "",
		"userId":       "",
		"createdAt":    "",
		"updatedAt":    "",
		"user": map[string]any{
			"id":       "",
			"username": "",
		},
	}
}

// PageMeta describes one page of a collection.
type PageMeta struct {
	Page     int `json:"page"`
	PerPage  int `json:"perPage"`
	Total    int `json:"total"`
	LastPage int `json:"lastPage"`
}

// NewPageMeta computes the metadata for page of a collection of total items.
func NewPageMeta(page, perPage, total int) PageMeta {
	lastPage := 1
	if perPage > 0 && total > 0 {
		lastPage = (total + perPage - 1) / perPage
	}
	return PageMeta{
		Page:     page,
		PerPage:  perPage,
		Total:    total,
		LastPage: lastPage,
	}
}

// Page is a paginated collection response.
type Page[T any] struct {
	Data []T      `json:"data"`
	Meta PageMeta `json:"meta"`
}

// PersonResponse wraps a single person.
type PersonResponse struct {
	Person Person `json:"person"`
}

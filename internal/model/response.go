package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Login validation errors.
var (
	ErrEmptyUsername = errors.New("username cannot be empty")
	ErrEmptyPassword = errors.New("password cannot be empty")
)

// ErrorResponse represents an error response structure.
type ErrorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// LoginRequest is the body of POST /auth/login.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Validate checks that both credentials are present.
func (r *LoginRequest) Validate() error {
	if strings.TrimSpace(r.Username) == "" {
		return ErrEmptyUsername
	}
	if r.Password == "" {
		return ErrEmptyPassword
	}
	return nil
}

// LoginResponse is returned by a successful login.
type LoginResponse struct {
	Token       string    `json:"token"`
	Username    string    `json:"username"`
	Permissions []string  `json:"permissions"`
	ExpiresAt   time.Time `json:"expiresAt"`
}

// Toast types.
const (
	ToastSuccess = "success"
	ToastError   = "error"
)

// Toast is a transient notification shown to the signed-in user.
type Toast struct {
	ID       string `json:"id" yaml:"id"`
	Type     string `json:"type" yaml:"type"`
	Message  string `json:"message" yaml:"message"`
	Username string `json:"username,omitempty" yaml:"username,omitempty"`
}

// Convert re-decodes in into out through its JSON form. It maps between typed
// models and the plain objects held in state stores.
func Convert(in, out any) error {
	data, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("encoding %T: %w", in, err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decoding into %T: %w", out, err)
	}
	return nil
}

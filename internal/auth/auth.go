// Package auth provides authentication for the reference admin API.
package auth

import (
	"context"
	"errors"
	"net/http"
)

// AuthMethod represents the authentication method used.
type AuthMethod string

const (
	// AuthMethodNone indicates no authentication.
	AuthMethodNone AuthMethod = "none"
	// AuthMethodBasic indicates HTTP Basic authentication.
	AuthMethodBasic AuthMethod = "basic"
	// AuthMethodBearer indicates a bearer token issued by POST /auth/login.
	AuthMethodBearer AuthMethod = "bearer"
	// AuthMethodAny indicates a chain of methods.
	AuthMethodAny AuthMethod = "any"
)

// AuthInfo holds authenticated identity information.
type AuthInfo struct {
	Method      AuthMethod
	Subject     string
	Permissions []string
}

// HasPermission reports whether the identity carries permission.
func (i *AuthInfo) HasPermission(permission string) bool {
	for _, p := range i.Permissions {
		if p == permission {
			return true
		}
	}
	return false
}

// Authenticator validates a request and returns auth info.
type Authenticator interface {
	Authenticate(r *http.Request) (*AuthInfo, error)
	Method() AuthMethod
}

// Sentinel errors for authentication failures.
var (
	ErrUnauthenticated    = errors.New("unauthenticated: no credentials provided")
	ErrInvalidToken       = errors.New("invalid token")
	ErrTokenExpired       = errors.New("token expired")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// contextKey is the type for context keys in this package.
type contextKey string

// authInfoKey is the context key for AuthInfo.
const authInfoKey contextKey = "auth_info"

// FromContext retrieves AuthInfo from the context.
func FromContext(ctx context.Context) (*AuthInfo, bool) {
	info, ok := ctx.Value(authInfoKey).(*AuthInfo)
	return info, ok
}

// WithAuthInfo stores AuthInfo in the context.
func WithAuthInfo(ctx context.Context, info *AuthInfo) context.Context {
	return context.WithValue(ctx, authInfoKey, info)
}

// anyAuthenticator tries each authenticator in order.
type anyAuthenticator []Authenticator

// Any returns an Authenticator that tries authenticators in order. A method
// that finds no credentials (ErrUnauthenticated) passes to the next one; any
// other failure ends the chain.
func Any(authenticators ...Authenticator) Authenticator {
	return anyAuthenticator(authenticators)
}

// Authenticate returns the first successful result.
func (a anyAuthenticator) Authenticate(r *http.Request) (*AuthInfo, error) {
	for _, authenticator := range a {
		info, err := authenticator.Authenticate(r)
		if err == nil {
			return info, nil
		}
		if !errors.Is(err, ErrUnauthenticated) {
			return nil, err
		}
	}
	return nil, ErrUnauthenticated
}

// Method returns AuthMethodAny.
func (a anyAuthenticator) Method() AuthMethod {
	return AuthMethodAny
}

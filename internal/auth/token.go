package auth

import (
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultTokenTTL is the lifetime of issued tokens when none is configured.
const DefaultTokenTTL = 8 * time.Hour

type issuedToken struct {
	info      AuthInfo
	expiresAt time.Time
}

// TokenIssuer hands out opaque bearer tokens after a successful login and
// authenticates requests that present them.
type TokenIssuer struct {
	mu     sync.RWMutex
	tokens map[string]issuedToken
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenIssuer creates an issuer whose tokens live for ttl.
func NewTokenIssuer(ttl time.Duration) *TokenIssuer {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &TokenIssuer{
		tokens: make(map[string]issuedToken),
		ttl:    ttl,
		now:    time.Now,
	}
}

// Issue creates a token for info and returns it with its expiry.
func (t *TokenIssuer) Issue(info *AuthInfo) (string, time.Time) {
	token := uuid.New().String()
	expiresAt := t.now().Add(t.ttl).UTC()

	issued := issuedToken{
		info: AuthInfo{
			Method:      AuthMethodBearer,
			Subject:     info.Subject,
			Permissions: append([]string(nil), info.Permissions...),
		},
		expiresAt: expiresAt,
	}

	t.mu.Lock()
	t.purgeLocked()
	t.tokens[token] = issued
	t.mu.Unlock()

	return token, expiresAt
}

// Revoke invalidates token. Unknown tokens are ignored.
func (t *TokenIssuer) Revoke(token string) {
	t.mu.Lock()
	delete(t.tokens, token)
	t.mu.Unlock()
}

// Lookup returns the identity behind token.
func (t *TokenIssuer) Lookup(token string) (*AuthInfo, error) {
	t.mu.RLock()
	issued, ok := t.tokens[token]
	t.mu.RUnlock()

	if !ok {
		return nil, ErrInvalidToken
	}
	if !t.now().Before(issued.expiresAt) {
		t.Revoke(token)
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, ErrTokenExpired)
	}

	info := issued.info
	info.Permissions = append([]string(nil), issued.info.Permissions...)
	return &info, nil
}

// Authenticate extracts a Bearer token from the Authorization header and
// resolves it.
func (t *TokenIssuer) Authenticate(r *http.Request) (*AuthInfo, error) {
	token, ok := BearerToken(r)
	if !ok {
		return nil, ErrUnauthenticated
	}
	return t.Lookup(token)
}

// Method returns the authentication method type.
func (t *TokenIssuer) Method() AuthMethod {
	return AuthMethodBearer
}

// Len returns the number of live tokens.
func (t *TokenIssuer) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.tokens)
}

// purgeLocked drops expired tokens. Callers hold the write lock.
func (t *TokenIssuer) purgeLocked() {
	now := t.now()
	for token, issued := range t.tokens {
		if !now.Before(issued.expiresAt) {
			delete(t.tokens, token)
		}
	}
}

// BearerToken returns the token of an "Authorization: Bearer" header.
func BearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		return "", false
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	return token, token != ""
}

package auth

import (
	"fmt"
	"net/http"
	"sort"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// DefaultPermissions are granted to users configured without an explicit
// permission list.
var DefaultPermissions = []string{"person"}

// dummyHash is compared against for unknown users so that both failure paths
// spend the same bcrypt time.
const dummyHash = "$2a$10$7EqJtq98hPqEX7fNZaFWoOhi5BWX4Z7rUSbE8mvXbQzJgAP/4ZRoi" //nolint:gosec // not a credential

type account struct {
	hash        string
	permissions []string
}

// BasicAuthenticator verifies usernames and passwords against bcrypt hashes.
// It serves both POST /auth/login and HTTP Basic credentials.
type BasicAuthenticator struct {
	users map[string]account
}

// NewBasicAuthenticator creates a new Basic authenticator from a
// configuration string in the format "user1:hash1,user2:hash2:perm1|perm2".
// The optional third part lists the user's permissions.
func NewBasicAuthenticator(usersConfig string) (*BasicAuthenticator, error) {
	trimmed := strings.TrimSpace(usersConfig)
	if trimmed == "" {
		return nil, fmt.Errorf("basic auth: users config must not be empty")
	}

	users := make(map[string]account)
	for _, entry := range strings.Split(trimmed, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}

		// Bcrypt hashes contain '$' but never ':'.
		parts := strings.Split(entry, ":")
		if len(parts) < 2 || len(parts) > 3 {
			return nil, fmt.Errorf("basic auth: invalid entry format, expected user:hash[:permissions]")
		}

		username, hash := parts[0], parts[1]
		if username == "" || hash == "" {
			return nil, fmt.Errorf("basic auth: username and hash must not be empty")
		}

		permissions := append([]string(nil), DefaultPermissions...)
		if len(parts) == 3 {
			permissions = splitPermissions(parts[2])
		}

		users[username] = account{hash: hash, permissions: permissions}
	}

	if len(users) == 0 {
		return nil, fmt.Errorf("basic auth: no valid user entries found")
	}

	return &BasicAuthenticator{users: users}, nil
}

// Verify checks a username and password. Unknown users and wrong passwords
// produce the same error.
func (a *BasicAuthenticator) Verify(username, password string) (*AuthInfo, error) {
	acct, exists := a.users[username]
	hash := acct.hash
	if !exists {
		hash = dummyHash
	}

	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	if !exists || err != nil {
		return nil, fmt.Errorf("%w: wrong username or password", ErrInvalidCredentials)
	}

	return &AuthInfo{
		Method:      AuthMethodBasic,
		Subject:     username,
		Permissions: append([]string(nil), acct.permissions...),
	}, nil
}

// Authenticate verifies HTTP Basic credentials.
func (a *BasicAuthenticator) Authenticate(r *http.Request) (*AuthInfo, error) {
	username, password, ok := r.BasicAuth()
	if !ok {
		return nil, ErrUnauthenticated
	}
	return a.Verify(username, password)
}

// Method returns the authentication method type.
func (a *BasicAuthenticator) Method() AuthMethod {
	return AuthMethodBasic
}

// Usernames returns the configured usernames in sorted order.
func (a *BasicAuthenticator) Usernames() []string {
	names := make([]string, 0, len(a.users))
	for name := range a.users {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func splitPermissions(raw string) []string {
	permissions := []string{}
	for _, p := range strings.Split(raw, "|") {
		if p = strings.TrimSpace(p); p != "" {
			permissions = append(permissions, p)
		}
	}
	return permissions
}

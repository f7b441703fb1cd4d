package auth

import (
	"errors"
	"net/http"
	"strings"
)

// ErrUnauthenticated is returned when a request carries no valid identity.
var ErrUnauthenticated = errors.New("not authenticated")

// ErrInactiveUser is returned when the account exists but is disabled.
var ErrInactiveUser = errors.New("user is inactive")

// Identity resolves the calling user from HTTP requests.
type Identity struct {
	users  UserStore
	secret []byte
}

// NewIdentity creates an identity resolver over a user store.
func NewIdentity(users UserStore, secret []byte) *Identity {
	return &Identity{users: users, secret: secret}
}

// parseBearer extracts the token from an Authorization: Bearer <token> header.
func parseBearer(header string) (string, error) {
	if header == "" {
		return "", errors.New("missing Authorization header")
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", errors.New("invalid Authorization header format")
	}
	if parts[1] == "" {
		return "", errors.New("empty bearer token")
	}
	return parts[1], nil
}

// CurrentUser returns the authenticated user, or nil when the request
// carries no valid token. Absence is not an error: unauthenticated chat is a
// supported degraded mode.
func (i *Identity) CurrentUser(r *http.Request) *User {
	token, err := parseBearer(r.Header.Get("Authorization"))
	if err != nil {
		return nil
	}

	username, err := ParseToken(token, i.secret)
	if err != nil {
		return nil
	}

	user, err := i.users.GetByUsername(r.Context(), username)
	if err != nil || !user.Active {
		return nil
	}
	return user
}

// CurrentActiveUser returns the authenticated active user or fails the
// request.
func (i *Identity) CurrentActiveUser(r *http.Request) (*User, error) {
	token, err := parseBearer(r.Header.Get("Authorization"))
	if err != nil {
		return nil, ErrUnauthenticated
	}

	username, err := ParseToken(token, i.secret)
	if err != nil {
		return nil, ErrUnauthenticated
	}

	user, err := i.users.GetByUsername(r.Context(), username)
	if err != nil {
		return nil, ErrUnauthenticated
	}
	if !user.Active {
		return nil, ErrInactiveUser
	}
	return user, nil
}

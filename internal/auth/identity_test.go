package auth

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"
	"time"
)

func newTestUser(t *testing.T, username string, active bool) *User {
	t.Helper()
	hash, err := HashPassword("password-123")
	if err != nil {
		t.Fatalf("HashPassword() error = %v", err)
	}
	return &User{
		ID:           "id-" + username,
		Username:     username,
		Email:        username + "@example.com",
		Role:         RoleUser,
		Active:       active,
		PasswordHash: hash,
		CreatedAt:    time.Now().UTC(),
	}
}

func TestCheckPassword(t *testing.T) {
	user := newTestUser(t, "alice", true)

	if !user.CheckPassword("password-123") {
		t.Error("CheckPassword() = false for correct password")
	}
	if user.CheckPassword("wrong") {
		t.Error("CheckPassword() = true for wrong password")
	}
}

func TestMemoryUserStore(t *testing.T) {
	store := NewMemoryUserStore()
	store.Add(newTestUser(t, "alice", true))

	user, err := store.GetByUsername(context.Background(), "alice")
	if err != nil {
		t.Fatalf("GetByUsername() error = %v", err)
	}
	if user.Username != "alice" {
		t.Errorf("Username = %q", user.Username)
	}

	if _, err := store.GetByUsername(context.Background(), "nobody"); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("GetByUsername(nobody) error = %v, want ErrUserNotFound", err)
	}
}

func TestCurrentUser(t *testing.T) {
	store := NewMemoryUserStore()
	store.Add(newTestUser(t, "alice", true))
	store.Add(newTestUser(t, "bob", false))
	identity := NewIdentity(store, testSecret)

	t.Run("valid token", func(t *testing.T) {
		token, _, err := GenerateToken("alice", testSecret)
		if err != nil {
			t.Fatalf("GenerateToken() error = %v", err)
		}

		r := httptest.NewRequest("GET", "/api/chat", nil)
		r.Header.Set("Authorization", "Bearer "+token)

		user := identity.CurrentUser(r)
		if user == nil || user.Username != "alice" {
			t.Errorf("CurrentUser() = %+v, want alice", user)
		}
	})

	t.Run("no header is not an error", func(t *testing.T) {
		r := httptest.NewRequest("GET", "/api/chat", nil)
		if user := identity.CurrentUser(r); user != nil {
			t.Errorf("CurrentUser() without header = %+v, want nil", user)
		}
	})

	t.Run("malformed header", func(t *testing.T) {
		r := httptest.NewRequest("GET", "/api/chat", nil)
		r.Header.Set("Authorization", "Basic dXNlcjpwYXNz")
		if user := identity.CurrentUser(r); user != nil {
			t.Errorf("CurrentUser() with Basic auth = %+v, want nil", user)
		}
	})

	t.Run("inactive user", func(t *testing.T) {
		token, _, _ := GenerateToken("bob", testSecret)
		r := httptest.NewRequest("GET", "/api/chat", nil)
		r.Header.Set("Authorization", "Bearer "+token)
		if user := identity.CurrentUser(r); user != nil {
			t.Errorf("CurrentUser() for inactive user = %+v, want nil", user)
		}
	})

	t.Run("unknown user", func(t *testing.T) {
		token, _, _ := GenerateToken("ghost", testSecret)
		r := httptest.NewRequest("GET", "/api/chat", nil)
		r.Header.Set("Authorization", "Bearer "+token)
		if user := identity.CurrentUser(r); user != nil {
			t.Errorf("CurrentUser() for unknown user = %+v, want nil", user)
		}
	})
}

func TestCurrentActiveUser(t *testing.T) {
	store := NewMemoryUserStore()
	store.Add(newTestUser(t, "alice", true))
	store.Add(newTestUser(t, "bob", false))
	identity := NewIdentity(store, testSecret)

	t.Run("valid token", func(t *testing.T) {
		token, _, _ := GenerateToken("alice", testSecret)
		r := httptest.NewRequest("GET", "/api/chat/sessions", nil)
		r.Header.Set("Authorization", "Bearer "+token)

		user, err := identity.CurrentActiveUser(r)
		if err != nil {
			t.Fatalf("CurrentActiveUser() error = %v", err)
		}
		if user.Username != "alice" {
			t.Errorf("Username = %q", user.Username)
		}
	})

	t.Run("missing token", func(t *testing.T) {
		r := httptest.NewRequest("GET", "/api/chat/sessions", nil)
		if _, err := identity.CurrentActiveUser(r); !errors.Is(err, ErrUnauthenticated) {
			t.Errorf("error = %v, want ErrUnauthenticated", err)
		}
	})

	t.Run("inactive user", func(t *testing.T) {
		token, _, _ := GenerateToken("bob", testSecret)
		r := httptest.NewRequest("GET", "/api/chat/sessions", nil)
		r.Header.Set("Authorization", "Bearer "+token)
		if _, err := identity.CurrentActiveUser(r); !errors.Is(err, ErrInactiveUser) {
			t.Errorf("error = %v, want ErrInactiveUser", err)
		}
	})
}

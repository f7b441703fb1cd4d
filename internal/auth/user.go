package auth

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// User roles.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// ErrUserNotFound is returned when a username has no account.
var ErrUserNotFound = errors.New("user not found")

// User is an account known to the identity collaborator.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	FullName     string    `json:"full_name,omitempty"`
	Role         string    `json:"role"`
	Active       bool      `json:"is_active"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// CheckPassword verifies a plaintext password against the stored hash.
func (u *User) CheckPassword(password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) == nil
}

// HashPassword hashes a password for storage.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// UserStore looks up accounts. User persistence itself lives outside this
// gateway; the memory implementation backs standalone deployments and tests.
type UserStore interface {
	GetByUsername(ctx context.Context, username string) (*User, error)
}

// MemoryUserStore is a mutex-guarded in-memory user table.
type MemoryUserStore struct {
	mu    sync.RWMutex
	users map[string]*User
}

// NewMemoryUserStore creates an empty user store.
func NewMemoryUserStore() *MemoryUserStore {
	return &MemoryUserStore{users: make(map[string]*User)}
}

// Add registers a user, replacing any account with the same username.
func (s *MemoryUserStore) Add(user *User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[user.Username] = user
}

func (s *MemoryUserStore) GetByUsername(_ context.Context, username string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.users[username]
	if !ok {
		return nil, ErrUserNotFound
	}
	copied := *user
	return &copied, nil
}

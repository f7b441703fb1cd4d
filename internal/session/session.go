package session

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a session does not exist, is inactive, or
// belongs to another user.
var ErrNotFound = errors.New("session not found")

// DefaultTitle is the title given to sessions created implicitly by a chat
// request.
const DefaultTitle = "New Conversation"

// Message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// Session is one conversation owned by a user. Messages are append-only;
// past messages are never reordered or mutated.
type Session struct {
	ID        string    `json:"session_id"`
	UserID    string    `json:"user_id"`
	Title     string    `json:"title"`
	ModelUsed string    `json:"model_used"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Active    bool      `json:"is_active"`
}

// Message is a single entry in a session transcript.
type Message struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	ModelUsed string    `json:"model_used"`
	Timestamp time.Time `json:"timestamp"`
}

// Store persists chat sessions and their transcripts.
type Store interface {
	// FindActiveSession returns the session when it exists, is active and is
	// owned by userID; ErrNotFound otherwise.
	FindActiveSession(ctx context.Context, sessionID, userID string) (*Session, error)

	// CreateSession creates a new active session for userID.
	CreateSession(ctx context.Context, userID, title, modelUsed string) (*Session, error)

	// AppendMessage appends one message to a session transcript.
	AppendMessage(ctx context.Context, sessionID, role, content, modelUsed string) error

	// TouchSession bumps the session's last-activity timestamp.
	TouchSession(ctx context.Context, sessionID string) error

	// ListSessions returns the user's active sessions, most recent first.
	ListSessions(ctx context.Context, userID string) ([]*Session, error)

	// ListMessages returns a session transcript in append order.
	ListMessages(ctx context.Context, sessionID string) ([]Message, error)

	// RenameSession updates the title of a session owned by userID.
	RenameSession(ctx context.Context, sessionID, userID, title string) (*Session, error)

	// DeactivateSession soft-deletes a session owned by userID.
	DeactivateSession(ctx context.Context, sessionID, userID string) error

	// Close releases backend resources.
	Close() error
}

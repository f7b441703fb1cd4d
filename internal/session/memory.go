package session

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore keeps sessions in process memory. No persistence across
// restarts; the default backend for standalone deployments.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	messages map[string][]Message
}

// NewMemoryStore creates an empty in-memory session store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]*Session),
		messages: make(map[string][]Message),
	}
}

func (s *MemoryStore) FindActiveSession(_ context.Context, sessionID, userID string) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[sessionID]
	if !ok || !sess.Active || sess.UserID != userID {
		return nil, ErrNotFound
	}
	copied := *sess
	return &copied, nil
}

func (s *MemoryStore) CreateSession(_ context.Context, userID, title, modelUsed string) (*Session, error) {
	if title == "" {
		title = DefaultTitle
	}
	now := time.Now().UTC()
	sess := &Session{
		ID:        uuid.New().String(),
		UserID:    userID,
		Title:     title,
		ModelUsed: modelUsed,
		CreatedAt: now,
		UpdatedAt: now,
		Active:    true,
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.ID] = sess

	copied := *sess
	return &copied, nil
}

func (s *MemoryStore) AppendMessage(_ context.Context, sessionID, role, content, modelUsed string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[sessionID]; !ok {
		return ErrNotFound
	}
	s.messages[sessionID] = append(s.messages[sessionID], Message{
		Role:      role,
		Content:   content,
		ModelUsed: modelUsed,
		Timestamp: time.Now().UTC(),
	})
	return nil
}

func (s *MemoryStore) TouchSession(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[sessionID]
	if !ok {
		return ErrNotFound
	}
	sess.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *MemoryStore) ListSessions(_ context.Context, userID string) ([]*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var sessions []*Session
	for _, sess := range s.sessions {
		if sess.UserID == userID && sess.Active {
			copied := *sess
			sessions = append(sessions, &copied)
		}
	}
	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].UpdatedAt.After(sessions[j].UpdatedAt)
	})
	return sessions, nil
}

func (s *MemoryStore) ListMessages(_ context.Context, sessionID string) ([]Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.sessions[sessionID]; !ok {
		return nil, ErrNotFound
	}
	msgs := make([]Message, len(s.messages[sessionID]))
	copy(msgs, s.messages[sessionID])
	return msgs, nil
}

func (s *MemoryStore) RenameSession(_ context.Context, sessionID, userID, title string) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[sessionID]
	if !ok || !sess.Active || sess.UserID != userID {
		return nil, ErrNotFound
	}
	sess.Title = title
	sess.UpdatedAt = time.Now().UTC()

	copied := *sess
	return &copied, nil
}

func (s *MemoryStore) DeactivateSession(_ context.Context, sessionID, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[sessionID]
	if !ok || !sess.Active || sess.UserID != userID {
		return ErrNotFound
	}
	sess.Active = false
	return nil
}

func (s *MemoryStore) Close() error {
	return nil
}

package session

import (
	"context"
	"testing"
	"time"
)

func TestMemoryStoreCreateAndFind(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	sess, err := s.CreateSession(ctx, "user-1", "My Chat", "gpt-4o")
	if err != nil {
		t.Fatalf("CreateSession() error = %v", err)
	}
	if sess.ID == "" {
		t.Fatal("CreateSession() returned empty ID")
	}
	if !sess.Active {
		t.Error("new session should be active")
	}
	if sess.Title != "My Chat" {
		t.Errorf("Title = %q", sess.Title)
	}

	found, err := s.FindActiveSession(ctx, sess.ID, "user-1")
	if err != nil {
		t.Fatalf("FindActiveSession() error = %v", err)
	}
	if found.ID != sess.ID {
		t.Errorf("found ID = %q, want %q", found.ID, sess.ID)
	}
}

func TestMemoryStoreCreateSessionDefaultTitle(t *testing.T) {
	s := NewMemoryStore()

	sess, err := s.CreateSession(context.Background(), "user-1", "", "")
	if err != nil {
		t.Fatalf("CreateSession() error = %v", err)
	}
	if sess.Title != DefaultTitle {
		t.Errorf("Title = %q, want %q", sess.Title, DefaultTitle)
	}
}

func TestMemoryStoreFindActiveSessionOwnership(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	sess, _ := s.CreateSession(ctx, "user-1", "", "")

	if _, err := s.FindActiveSession(ctx, sess.ID, "user-2"); err != ErrNotFound {
		t.Errorf("foreign user lookup error = %v, want ErrNotFound", err)
	}
	if _, err := s.FindActiveSession(ctx, "no-such-id", "user-1"); err != ErrNotFound {
		t.Errorf("missing session lookup error = %v, want ErrNotFound", err)
	}
}

func TestMemoryStoreAppendAndListMessages(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	sess, _ := s.CreateSession(ctx, "user-1", "", "gpt-4o")

	if err := s.AppendMessage(ctx, sess.ID, RoleUser, "Hello", "gpt-4o"); err != nil {
		t.Fatalf("AppendMessage() error = %v", err)
	}
	if err := s.AppendMessage(ctx, sess.ID, RoleAssistant, "Hi!", "gpt-4o"); err != nil {
		t.Fatalf("AppendMessage() error = %v", err)
	}

	msgs, err := s.ListMessages(ctx, sess.ID)
	if err != nil {
		t.Fatalf("ListMessages() error = %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("len(msgs) = %d, want 2", len(msgs))
	}
	if msgs[0].Role != RoleUser || msgs[0].Content != "Hello" {
		t.Errorf("msgs[0] = %+v", msgs[0])
	}
	if msgs[1].Role != RoleAssistant || msgs[1].Content != "Hi!" {
		t.Errorf("msgs[1] = %+v", msgs[1])
	}

	if err := s.AppendMessage(ctx, "no-such-id", RoleUser, "x", ""); err != ErrNotFound {
		t.Errorf("AppendMessage() on missing session error = %v, want ErrNotFound", err)
	}
}

func TestMemoryStoreListSessionsOrder(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	first, _ := s.CreateSession(ctx, "user-1", "first", "")
	second, _ := s.CreateSession(ctx, "user-1", "second", "")
	s.CreateSession(ctx, "user-2", "other", "")

	// Touch the older session so it becomes the most recent.
	time.Sleep(2 * time.Millisecond)
	if err := s.TouchSession(ctx, first.ID); err != nil {
		t.Fatalf("TouchSession() error = %v", err)
	}

	sessions, err := s.ListSessions(ctx, "user-1")
	if err != nil {
		t.Fatalf("ListSessions() error = %v", err)
	}
	if len(sessions) != 2 {
		t.Fatalf("len(sessions) = %d, want 2", len(sessions))
	}
	if sessions[0].ID != first.ID {
		t.Errorf("most recently touched session should list first, got %q", sessions[0].Title)
	}
	if sessions[1].ID != second.ID {
		t.Errorf("sessions[1].ID = %q, want %q", sessions[1].ID, second.ID)
	}
}

func TestMemoryStoreRenameSession(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	sess, _ := s.CreateSession(ctx, "user-1", "old", "")

	renamed, err := s.RenameSession(ctx, sess.ID, "user-1", "new title")
	if err != nil {
		t.Fatalf("RenameSession() error = %v", err)
	}
	if renamed.Title != "new title" {
		t.Errorf("Title = %q", renamed.Title)
	}

	if _, err := s.RenameSession(ctx, sess.ID, "user-2", "hijack"); err != ErrNotFound {
		t.Errorf("foreign rename error = %v, want ErrNotFound", err)
	}
}

func TestMemoryStoreDeactivateSession(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	sess, _ := s.CreateSession(ctx, "user-1", "", "")

	if err := s.DeactivateSession(ctx, sess.ID, "user-1"); err != nil {
		t.Fatalf("DeactivateSession() error = %v", err)
	}

	// Deactivated sessions are invisible to lookups and listings.
	if _, err := s.FindActiveSession(ctx, sess.ID, "user-1"); err != ErrNotFound {
		t.Errorf("FindActiveSession() after deactivate error = %v, want ErrNotFound", err)
	}
	sessions, _ := s.ListSessions(ctx, "user-1")
	if len(sessions) != 0 {
		t.Errorf("ListSessions() after deactivate returned %d sessions", len(sessions))
	}

	if err := s.DeactivateSession(ctx, sess.ID, "user-1"); err != ErrNotFound {
		t.Errorf("double deactivate error = %v, want ErrNotFound", err)
	}
}

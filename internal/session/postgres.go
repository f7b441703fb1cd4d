package session

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // PostgreSQL driver
)

// PostgresConfig holds connection settings for the Postgres session store.
type PostgresConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// PostgresStore persists sessions and transcripts in PostgreSQL.
type PostgresStore struct {
	db *sqlx.DB
}

// NewPostgresStore connects to Postgres and verifies the connection.
func NewPostgresStore(cfg PostgresConfig) (*PostgresStore, error) {
	db, err := sqlx.Connect("postgres", cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}
	if cfg.ConnMaxIdleTime > 0 {
		db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)
	}

	return &PostgresStore{db: db}, nil
}

// EnsureSchema creates the session tables when they do not exist.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	schema := `
		CREATE TABLE IF NOT EXISTS chat_sessions (
			session_id UUID PRIMARY KEY,
			user_id    TEXT NOT NULL,
			title      TEXT NOT NULL,
			model_used TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			is_active  BOOLEAN NOT NULL DEFAULT TRUE
		);
		CREATE INDEX IF NOT EXISTS idx_chat_sessions_user ON chat_sessions (user_id);

		CREATE TABLE IF NOT EXISTS messages (
			id         BIGSERIAL PRIMARY KEY,
			session_id UUID NOT NULL REFERENCES chat_sessions (session_id),
			role       TEXT NOT NULL,
			content    TEXT NOT NULL,
			model_used TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);
		CREATE INDEX IF NOT EXISTS idx_messages_session ON messages (session_id, id);
	`
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to ensure session schema: %w", err)
	}
	return nil
}

type sessionRow struct {
	ID        string    `db:"session_id"`
	UserID    string    `db:"user_id"`
	Title     string    `db:"title"`
	ModelUsed string    `db:"model_used"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
	Active    bool      `db:"is_active"`
}

func (r sessionRow) toSession() *Session {
	return &Session{
		ID:        r.ID,
		UserID:    r.UserID,
		Title:     r.Title,
		ModelUsed: r.ModelUsed,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
		Active:    r.Active,
	}
}

func (s *PostgresStore) FindActiveSession(ctx context.Context, sessionID, userID string) (*Session, error) {
	var row sessionRow
	query := `
		SELECT session_id, user_id, title, model_used, created_at, updated_at, is_active
		FROM chat_sessions
		WHERE session_id = $1 AND user_id = $2 AND is_active = TRUE
	`

	err := s.db.GetContext(ctx, &row, query, sessionID, userID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	return row.toSession(), nil
}

func (s *PostgresStore) CreateSession(ctx context.Context, userID, title, modelUsed string) (*Session, error) {
	if title == "" {
		title = DefaultTitle
	}

	var row sessionRow
	query := `
		INSERT INTO chat_sessions (session_id, user_id, title, model_used)
		VALUES ($1, $2, $3, $4)
		RETURNING session_id, user_id, title, model_used, created_at, updated_at, is_active
	`

	err := s.db.GetContext(ctx, &row, query, uuid.New().String(), userID, title, modelUsed)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	return row.toSession(), nil
}

func (s *PostgresStore) AppendMessage(ctx context.Context, sessionID, role, content, modelUsed string) error {
	query := `
		INSERT INTO messages (session_id, role, content, model_used)
		VALUES ($1, $2, $3, $4)
	`

	if _, err := s.db.ExecContext(ctx, query, sessionID, role, content, modelUsed); err != nil {
		return fmt.Errorf("failed to append message: %w", err)
	}
	return nil
}

func (s *PostgresStore) TouchSession(ctx context.Context, sessionID string) error {
	query := `UPDATE chat_sessions SET updated_at = now() WHERE session_id = $1`

	res, err := s.db.ExecContext(ctx, query, sessionID)
	if err != nil {
		return fmt.Errorf("failed to touch session: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) ListSessions(ctx context.Context, userID string) ([]*Session, error) {
	query := `
		SELECT session_id, user_id, title, model_used, created_at, updated_at, is_active
		FROM chat_sessions
		WHERE user_id = $1 AND is_active = TRUE
		ORDER BY updated_at DESC
	`

	var rows []sessionRow
	if err := s.db.SelectContext(ctx, &rows, query, userID); err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}

	sessions := make([]*Session, 0, len(rows))
	for _, row := range rows {
		sessions = append(sessions, row.toSession())
	}
	return sessions, nil
}

func (s *PostgresStore) ListMessages(ctx context.Context, sessionID string) ([]Message, error) {
	query := `
		SELECT role, content, model_used, created_at
		FROM messages
		WHERE session_id = $1
		ORDER BY id ASC
	`

	var rows []struct {
		Role      string    `db:"role"`
		Content   string    `db:"content"`
		ModelUsed string    `db:"model_used"`
		CreatedAt time.Time `db:"created_at"`
	}
	if err := s.db.SelectContext(ctx, &rows, query, sessionID); err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}

	msgs := make([]Message, 0, len(rows))
	for _, row := range rows {
		msgs = append(msgs, Message{
			Role:      row.Role,
			Content:   row.Content,
			ModelUsed: row.ModelUsed,
			Timestamp: row.CreatedAt,
		})
	}
	return msgs, nil
}

func (s *PostgresStore) RenameSession(ctx context.Context, sessionID, userID, title string) (*Session, error) {
	var row sessionRow
	query := `
		UPDATE chat_sessions
		SET title = $3, updated_at = now()
		WHERE session_id = $1 AND user_id = $2 AND is_active = TRUE
		RETURNING session_id, user_id, title, model_used, created_at, updated_at, is_active
	`

	err := s.db.GetContext(ctx, &row, query, sessionID, userID, title)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to rename session: %w", err)
	}

	return row.toSession(), nil
}

func (s *PostgresStore) DeactivateSession(ctx context.Context, sessionID, userID string) error {
	query := `
		UPDATE chat_sessions
		SET is_active = FALSE
		WHERE session_id = $1 AND user_id = $2 AND is_active = TRUE
	`

	res, err := s.db.ExecContext(ctx, query, sessionID, userID)
	if err != nil {
		return fmt.Errorf("failed to deactivate session: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}

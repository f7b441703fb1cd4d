package session

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RedisConfig holds connection settings for the Redis session store.
type RedisConfig struct {
	Address      string
	Password     string
	DB           int
	PoolSize     int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// RedisStore persists sessions in Redis: one hash per session, one list per
// transcript, and a per-user index list.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore connects to Redis and verifies the connection.
func NewRedisStore(cfg RedisConfig) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Address,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisStore{client: client}, nil
}

func sessionKey(sessionID string) string {
	return "chat:session:" + sessionID
}

func messagesKey(sessionID string) string {
	return "chat:session:" + sessionID + ":messages"
}

func userSessionsKey(userID string) string {
	return "chat:user:" + userID + ":sessions"
}

func (s *RedisStore) readSession(ctx context.Context, sessionID string) (*Session, error) {
	fields, err := s.client.HGetAll(ctx, sessionKey(sessionID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read session: %w", err)
	}
	if len(fields) == 0 {
		return nil, ErrNotFound
	}

	createdAt, _ := time.Parse(time.RFC3339Nano, fields["created_at"])
	updatedAt, _ := time.Parse(time.RFC3339Nano, fields["updated_at"])

	return &Session{
		ID:        sessionID,
		UserID:    fields["user_id"],
		Title:     fields["title"],
		ModelUsed: fields["model_used"],
		CreatedAt: createdAt,
		UpdatedAt: updatedAt,
		Active:    fields["is_active"] == "1",
	}, nil
}

func (s *RedisStore) writeSession(ctx context.Context, sess *Session) error {
	active := "0"
	if sess.Active {
		active = "1"
	}
	err := s.client.HSet(ctx, sessionKey(sess.ID),
		"user_id", sess.UserID,
		"title", sess.Title,
		"model_used", sess.ModelUsed,
		"created_at", sess.CreatedAt.Format(time.RFC3339Nano),
		"updated_at", sess.UpdatedAt.Format(time.RFC3339Nano),
		"is_active", active,
	).Err()
	if err != nil {
		return fmt.Errorf("failed to write session: %w", err)
	}
	return nil
}

func (s *RedisStore) FindActiveSession(ctx context.Context, sessionID, userID string) (*Session, error) {
	sess, err := s.readSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !sess.Active || sess.UserID != userID {
		return nil, ErrNotFound
	}
	return sess, nil
}

func (s *RedisStore) CreateSession(ctx context.Context, userID, title, modelUsed string) (*Session, error) {
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

	if err := s.writeSession(ctx, sess); err != nil {
		return nil, err
	}
	if err := s.client.RPush(ctx, userSessionsKey(userID), sess.ID).Err(); err != nil {
		return nil, fmt.Errorf("failed to index session: %w", err)
	}
	return sess, nil
}

func (s *RedisStore) AppendMessage(ctx context.Context, sessionID, role, content, modelUsed string) error {
	if _, err := s.readSession(ctx, sessionID); err != nil {
		return err
	}

	data, err := json.Marshal(Message{
		Role:      role,
		Content:   content,
		ModelUsed: modelUsed,
		Timestamp: time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	if err := s.client.RPush(ctx, messagesKey(sessionID), data).Err(); err != nil {
		return fmt.Errorf("failed to append message: %w", err)
	}
	return nil
}

func (s *RedisStore) TouchSession(ctx context.Context, sessionID string) error {
	if _, err := s.readSession(ctx, sessionID); err != nil {
		return err
	}
	err := s.client.HSet(ctx, sessionKey(sessionID),
		"updated_at", time.Now().UTC().Format(time.RFC3339Nano),
	).Err()
	if err != nil {
		return fmt.Errorf("failed to touch session: %w", err)
	}
	return nil
}

func (s *RedisStore) ListSessions(ctx context.Context, userID string) ([]*Session, error) {
	ids, err := s.client.LRange(ctx, userSessionsKey(userID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}

	var sessions []*Session
	for _, id := range ids {
		sess, err := s.readSession(ctx, id)
		if err != nil {
			continue
		}
		if sess.Active && sess.UserID == userID {
			sessions = append(sessions, sess)
		}
	}
	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].UpdatedAt.After(sessions[j].UpdatedAt)
	})
	return sessions, nil
}

func (s *RedisStore) ListMessages(ctx context.Context, sessionID string) ([]Message, error) {
	if _, err := s.readSession(ctx, sessionID); err != nil {
		return nil, err
	}

	raw, err := s.client.LRange(ctx, messagesKey(sessionID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}

	msgs := make([]Message, 0, len(raw))
	for _, item := range raw {
		var msg Message
		if err := json.Unmarshal([]byte(item), &msg); err != nil {
			continue
		}
		msgs = append(msgs, msg)
	}
	return msgs, nil
}

func (s *RedisStore) RenameSession(ctx context.Context, sessionID, userID, title string) (*Session, error) {
	sess, err := s.FindActiveSession(ctx, sessionID, userID)
	if err != nil {
		return nil, err
	}
	sess.Title = title
	sess.UpdatedAt = time.Now().UTC()
	if err := s.writeSession(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

func (s *RedisStore) DeactivateSession(ctx context.Context, sessionID, userID string) error {
	sess, err := s.FindActiveSession(ctx, sessionID, userID)
	if err != nil {
		return err
	}
	sess.Active = false
	return s.writeSession(ctx, sess)
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

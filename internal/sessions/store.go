// Package sessions keeps the server-side record of who is logged in. The
// JWT a client presents is only honored while its session record still
// exists, so revoking a session logs the user out everywhere immediately.
package sessions

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/occuhealth/ehr-platform/internal/auth"
)

// DefaultTTL bounds how long a session lives without a fresh login.
const DefaultTTL = 12 * time.Hour

// Session is the authoritative login record.
type Session struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Role      auth.Role `json:"role"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Store persists sessions in redis with a TTL.
type Store struct {
	redis *redis.Client
	ttl   time.Duration
}

func NewStore(redisClient *redis.Client, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store{redis: redisClient, ttl: ttl}
}

func (s *Store) key(id string) string {
	return "session:" + id
}

// Create opens a session for the user and returns the record.
func (s *Store) Create(ctx context.Context, userID string, role auth.Role) (*Session, error) {
	now := time.Now().UTC()
	sess := &Session{
		ID:        uuid.NewString(),
		UserID:    userID,
		Role:      role,
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}
	data, err := json.Marshal(sess)
	if err != nil {
		return nil, fmt.Errorf("sessions: marshal: %w", err)
	}
	if err := s.redis.Set(ctx, s.key(sess.ID), data, s.ttl).Err(); err != nil {
		return nil, fmt.Errorf("sessions: save: %w", err)
	}
	return sess, nil
}

// Get returns the session, or (nil, nil) when it is absent or expired.
func (s *Store) Get(ctx context.Context, id string) (*Session, error) {
	data, err := s.redis.Get(ctx, s.key(id)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("sessions: get: %w", err)
	}
	var sess Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, fmt.Errorf("sessions: unmarshal: %w", err)
	}
	return &sess, nil
}

// Delete revokes the session. Deleting an absent session is not an error.
func (s *Store) Delete(ctx context.Context, id string) error {
	if err := s.redis.Del(ctx, s.key(id)).Err(); err != nil {
		return fmt.Errorf("sessions: delete: %w", err)
	}
	return nil
}

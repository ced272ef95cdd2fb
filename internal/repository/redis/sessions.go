package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	red "github.com/redis/go-redis/v9"

	"github.com/arklim/village-admin/internal/core/port"
	"github.com/arklim/village-admin/internal/repository"
)

const defaultSessionPrefix = "va:session"

// SessionRepository persists refresh sessions in Redis keyed by token hash.
type SessionRepository struct {
	client *red.Client
	prefix string
}

// NewSessionRepository constructs a Redis-backed session repository.
func NewSessionRepository(client *red.Client, keyPrefix string) *SessionRepository {
	prefix := strings.TrimSpace(keyPrefix)
	if prefix == "" {
		prefix = defaultSessionPrefix
	}

	return &SessionRepository{client: client, prefix: prefix}
}

// Store writes the session state under the token hash with the supplied TTL.
func (r *SessionRepository) Store(ctx context.Context, tokenHash string, session port.RefreshSession, ttl time.Duration) error {
	key := r.key(tokenHash)
	if key == "" {
		return fmt.Errorf("token hash is required")
	}
	if ttl <= 0 {
		return fmt.Errorf("ttl must be positive")
	}

	payload, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}

	if err := r.client.Set(ctx, key, payload, ttl).Err(); err != nil {
		return fmt.Errorf("redis set session: %w", err)
	}

	return nil
}

// Get loads the session bound to the token hash.
func (r *SessionRepository) Get(ctx context.Context, tokenHash string) (*port.RefreshSession, error) {
	key := r.key(tokenHash)
	if key == "" {
		return nil, fmt.Errorf("token hash is required")
	}

	payload, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, red.Nil) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("redis get session: %w", err)
	}

	var session port.RefreshSession
	if err := json.Unmarshal(payload, &session); err != nil {
		return nil, fmt.Errorf("unmarshal session: %w", err)
	}

	return &session, nil
}

// Delete removes the session, invalidating its refresh token.
func (r *SessionRepository) Delete(ctx context.Context, tokenHash string) error {
	key := r.key(tokenHash)
	if key == "" {
		return fmt.Errorf("token hash is required")
	}
	if err := r.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("redis delete session: %w", err)
	}
	return nil
}

func (r *SessionRepository) key(tokenHash string) string {
	trimmed := strings.TrimSpace(tokenHash)
	if trimmed == "" {
		return ""
	}
	return fmt.Sprintf("%s:%s", r.prefix, trimmed)
}

var _ port.SessionRepository = (*SessionRepository)(nil)

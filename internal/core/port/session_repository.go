package port

import (
	"context"
	"time"
)

// RefreshSession is the server-side state bound to one refresh token.
type RefreshSession struct {
	SessionID string    `json:"session_id"`
	UserID    string    `json:"user_id"`
	Email     string    `json:"email"`
	ExpiresAt time.Time `json:"expires_at"`
}

// SessionRepository stores refresh sessions keyed by refresh token hash.
type SessionRepository interface {
	Store(ctx context.Context, tokenHash string, session RefreshSession, ttl time.Duration) error
	Get(ctx context.Context, tokenHash string) (*RefreshSession, error)
	Delete(ctx context.Context, tokenHash string) error
}

package domain

import "time"

// Principal is the authenticated identity resolved for a single request.
// It is derived from a validated session and never persisted by this service.
type Principal struct {
	ID        string
	Email     string
	SessionID string
	ExpiresAt time.Time
}

// Session is the renewable cookie-borne credential pair proving a principal's
// identity across requests.
type Session struct {
	AccessToken      string
	RefreshToken     string
	AccessExpiresAt  time.Time
	RefreshExpiresAt time.Time
}

// IsExpired reports whether the access token has passed its validity window.
func (s Session) IsExpired(at time.Time) bool {
	return !s.AccessExpiresAt.After(at)
}

// User mirrors the persisted representation in the users table.
type User struct {
	ID           string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}

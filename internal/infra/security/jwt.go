package security

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrInvalidAccessToken indicates the token is malformed or its signature failed validation.
	ErrInvalidAccessToken = errors.New("jwt: invalid access token")
	// ErrExpiredAccessToken indicates the token's validity window has passed.
	ErrExpiredAccessToken = errors.New("jwt: access token expired")
)

// AccessClaims are the claims carried by an access token.
type AccessClaims struct {
	Email     string `json:"email"`
	SessionID string `json:"sid"`
	jwt.RegisteredClaims
}

// TokenMinter signs and parses HS256 access tokens.
type TokenMinter struct {
	secret []byte
	issuer string
	now    func() time.Time
}

// NewTokenMinter constructs a TokenMinter for the supplied shared secret.
func NewTokenMinter(secret, issuer string) (*TokenMinter, error) {
	if secret == "" {
		return nil, fmt.Errorf("jwt: secret is required")
	}
	return &TokenMinter{
		secret: []byte(secret),
		issuer: issuer,
		now:    func() time.Time { return time.Now().UTC() },
	}, nil
}

// WithClock overrides the internal clock for deterministic tests.
func (m *TokenMinter) WithClock(clock func() time.Time) *TokenMinter {
	if clock != nil {
		m.now = clock
	}
	return m
}

// Mint issues a signed access token for the user and session.
func (m *TokenMinter) Mint(userID, email, sessionID string, ttl time.Duration) (string, time.Time, error) {
	if userID == "" {
		return "", time.Time{}, fmt.Errorf("jwt: user id is required")
	}
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}

	now := m.now()
	expiresAt := now.Add(ttl)

	claims := AccessClaims{
		Email:     email,
		SessionID: sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.issuer,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign access token: %w", err)
	}

	return signed, expiresAt, nil
}

// Parse validates the token signature and expiry and returns its claims.
func (m *TokenMinter) Parse(tokenString string) (*AccessClaims, error) {
	claims := &AccessClaims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return m.secret, nil
	}, jwt.WithTimeFunc(m.now))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredAccessToken
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidAccessToken, err)
	}

	if !token.Valid || claims.Subject == "" {
		return nil, ErrInvalidAccessToken
	}

	return claims, nil
}

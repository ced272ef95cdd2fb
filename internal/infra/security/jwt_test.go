package security

import (
	"errors"
	"testing"
	"time"
)

func TestTokenMinter_MintAndParse(t *testing.T) {
	minter, err := NewTokenMinter("secret-secret-secret-secret-1234", "village-admin")
	if err != nil {
		t.Fatalf("NewTokenMinter: %v", err)
	}

	token, expiresAt, err := minter.Mint("user-1", "admin@example.com", "session-1", 15*time.Minute)
	if err != nil {
		t.Fatalf("Mint returned error: %v", err)
	}
	if token == "" || expiresAt.IsZero() {
		t.Fatalf("incomplete mint result")
	}

	claims, err := minter.Parse(token)
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if claims.Subject != "user-1" || claims.Email != "admin@example.com" || claims.SessionID != "session-1" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestTokenMinter_ParseExpired(t *testing.T) {
	minter, err := NewTokenMinter("secret-secret-secret-secret-1234", "village-admin")
	if err != nil {
		t.Fatalf("NewTokenMinter: %v", err)
	}

	token, _, err := minter.Mint("user-1", "admin@example.com", "session-1", time.Minute)
	if err != nil {
		t.Fatalf("Mint returned error: %v", err)
	}

	minter.WithClock(func() time.Time { return time.Now().UTC().Add(time.Hour) })

	if _, err := minter.Parse(token); !errors.Is(err, ErrExpiredAccessToken) {
		t.Fatalf("expected ErrExpiredAccessToken, got %v", err)
	}
}

func TestTokenMinter_ParseTampered(t *testing.T) {
	minter, err := NewTokenMinter("secret-secret-secret-secret-1234", "village-admin")
	if err != nil {
		t.Fatalf("NewTokenMinter: %v", err)
	}
	other, err := NewTokenMinter("another-secret-another-secret-12", "village-admin")
	if err != nil {
		t.Fatalf("NewTokenMinter: %v", err)
	}

	token, _, err := other.Mint("user-1", "admin@example.com", "session-1", time.Minute)
	if err != nil {
		t.Fatalf("Mint returned error: %v", err)
	}

	if _, err := minter.Parse(token); !errors.Is(err, ErrInvalidAccessToken) {
		t.Fatalf("expected ErrInvalidAccessToken, got %v", err)
	}
}

func TestHashPassword_RoundTrip(t *testing.T) {
	hash, err := HashPassword("correct horse battery staple")
	if err != nil {
		t.Fatalf("HashPassword returned error: %v", err)
	}

	ok, err := VerifyPassword("correct horse battery staple", hash)
	if err != nil {
		t.Fatalf("VerifyPassword returned error: %v", err)
	}
	if !ok {
		t.Fatalf("correct password rejected")
	}

	ok, err = VerifyPassword("wrong", hash)
	if err != nil {
		t.Fatalf("VerifyPassword returned error: %v", err)
	}
	if ok {
		t.Fatalf("wrong password accepted")
	}
}

func TestGenerateSecureToken(t *testing.T) {
	a, err := GenerateSecureToken(32)
	if err != nil {
		t.Fatalf("GenerateSecureToken returned error: %v", err)
	}
	b, err := GenerateSecureToken(32)
	if err != nil {
		t.Fatalf("GenerateSecureToken returned error: %v", err)
	}
	if a == b {
		t.Fatalf("tokens must be unique")
	}
	if HashToken(a) == HashToken(b) {
		t.Fatalf("hashes must differ for distinct tokens")
	}
}

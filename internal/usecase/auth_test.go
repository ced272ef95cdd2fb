package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/arklim/village-admin/internal/core/domain"
	"github.com/arklim/village-admin/internal/core/port"
	"github.com/arklim/village-admin/internal/infra/security"
	"github.com/arklim/village-admin/internal/repository"
)

type userRepoStub struct {
	byEmail map[string]*domain.User
}

func (s *userRepoStub) Create(_ context.Context, user domain.User) error {
	if s.byEmail == nil {
		s.byEmail = make(map[string]*domain.User)
	}
	if _, ok := s.byEmail[user.Email]; ok {
		return repository.ErrConflict
	}
	s.byEmail[user.Email] = &user
	return nil
}

func (s *userRepoStub) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	user, ok := s.byEmail[email]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return user, nil
}

func (s *userRepoStub) GetByID(_ context.Context, id string) (*domain.User, error) {
	for _, user := range s.byEmail {
		if user.ID == id {
			return user, nil
		}
	}
	return nil, repository.ErrNotFound
}

type sessionRepoStub struct {
	entries map[string]port.RefreshSession
	deletes []string
}

func (s *sessionRepoStub) Store(_ context.Context, tokenHash string, session port.RefreshSession, _ time.Duration) error {
	if s.entries == nil {
		s.entries = make(map[string]port.RefreshSession)
	}
	s.entries[tokenHash] = session
	return nil
}

func (s *sessionRepoStub) Get(_ context.Context, tokenHash string) (*port.RefreshSession, error) {
	session, ok := s.entries[tokenHash]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &session, nil
}

func (s *sessionRepoStub) Delete(_ context.Context, tokenHash string) error {
	s.deletes = append(s.deletes, tokenHash)
	delete(s.entries, tokenHash)
	return nil
}

func newAuthFixture(t *testing.T) (*AuthService, *userRepoStub, *sessionRepoStub, *security.TokenMinter) {
	t.Helper()

	minter, err := security.NewTokenMinter("test-secret-test-secret-test1234", "village-admin")
	if err != nil {
		t.Fatalf("NewTokenMinter: %v", err)
	}

	hash, err := security.HashPassword("correct horse battery staple")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}

	users := &userRepoStub{byEmail: map[string]*domain.User{
		"admin@example.com": {
			ID:           "user-1",
			Email:        "admin@example.com",
			PasswordHash: hash,
		},
	}}
	sessions := &sessionRepoStub{}

	svc := NewAuthService(users, sessions, minter, 15*time.Minute, 168*time.Hour, zaptest.NewLogger(t))
	return svc, users, sessions, minter
}

func TestAuthService_SignIn(t *testing.T) {
	svc, _, sessions, _ := newAuthFixture(t)

	principal, session, err := svc.SignIn(context.Background(), "Admin@Example.com ", "correct horse battery staple")
	if err != nil {
		t.Fatalf("SignIn returned error: %v", err)
	}
	if principal.ID != "user-1" || principal.Email != "admin@example.com" {
		t.Fatalf("unexpected principal: %+v", principal)
	}
	if session.AccessToken == "" || session.RefreshToken == "" {
		t.Fatalf("expected a full token pair, got %+v", session)
	}
	if len(sessions.entries) != 1 {
		t.Fatalf("expected one stored session, got %d", len(sessions.entries))
	}
	if _, ok := sessions.entries[security.HashToken(session.RefreshToken)]; !ok {
		t.Fatalf("session not stored under the refresh token hash")
	}
}

func TestAuthService_ProvisionUser(t *testing.T) {
	svc, users, _, _ := newAuthFixture(t)

	user, err := svc.ProvisionUser(context.Background(), " Deputy@Example.COM ", "hunter2hunter2")
	if err != nil {
		t.Fatalf("ProvisionUser returned error: %v", err)
	}
	if user.Email != "deputy@example.com" {
		t.Fatalf("email not normalized: %q", user.Email)
	}
	if _, ok := users.byEmail["deputy@example.com"]; !ok {
		t.Fatalf("user not stored under normalized email: %v", users.byEmail)
	}

	// The provisioned account must be reachable from SignIn regardless of
	// the caller's casing.
	if _, _, err := svc.SignIn(context.Background(), "DEPUTY@example.com", "hunter2hunter2"); err != nil {
		t.Fatalf("SignIn with provisioned credentials failed: %v", err)
	}
}

func TestAuthService_ProvisionUserDuplicate(t *testing.T) {
	svc, _, _, _ := newAuthFixture(t)

	_, err := svc.ProvisionUser(context.Background(), "admin@example.com", "hunter2hunter2")
	if !errors.Is(err, ErrUserExists) {
		t.Fatalf("expected ErrUserExists, got %v", err)
	}
}

func TestAuthService_ProvisionUserRejectsWeakInput(t *testing.T) {
	svc, users, _, _ := newAuthFixture(t)

	if _, err := svc.ProvisionUser(context.Background(), "no-at-sign", "hunter2hunter2"); err == nil {
		t.Fatal("expected error for invalid email")
	}
	if _, err := svc.ProvisionUser(context.Background(), "deputy@example.com", "short"); err == nil {
		t.Fatal("expected error for short password")
	}
	if len(users.byEmail) != 1 {
		t.Fatalf("store touched on rejected input: %v", users.byEmail)
	}
}

func TestAuthService_SignInWrongPassword(t *testing.T) {
	svc, _, _, _ := newAuthFixture(t)

	_, _, err := svc.SignIn(context.Background(), "admin@example.com", "wrong")
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestAuthService_SignInUnknownUser(t *testing.T) {
	svc, _, _, _ := newAuthFixture(t)

	_, _, err := svc.SignIn(context.Background(), "nobody@example.com", "whatever")
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestAuthService_GetUserValidAccessToken(t *testing.T) {
	svc, _, _, _ := newAuthFixture(t)

	_, issued, err := svc.SignIn(context.Background(), "admin@example.com", "correct horse battery staple")
	if err != nil {
		t.Fatalf("SignIn returned error: %v", err)
	}

	principal, renewed, err := svc.GetUser(context.Background(), issued.AccessToken, issued.RefreshToken)
	if err != nil {
		t.Fatalf("GetUser returned error: %v", err)
	}
	if principal.ID != "user-1" {
		t.Fatalf("unexpected principal: %+v", principal)
	}
	if renewed != nil {
		t.Fatalf("expected no rotation for a valid access token")
	}
}

func TestAuthService_GetUserExpiredAccessRotates(t *testing.T) {
	svc, _, sessions, minter := newAuthFixture(t)

	_, issued, err := svc.SignIn(context.Background(), "admin@example.com", "correct horse battery staple")
	if err != nil {
		t.Fatalf("SignIn returned error: %v", err)
	}
	oldHash := security.HashToken(issued.RefreshToken)

	// Jump the validator's clock past the access TTL but inside the refresh TTL.
	later := time.Now().UTC().Add(time.Hour)
	minter.WithClock(func() time.Time { return later })
	svc.WithClock(func() time.Time { return later })

	principal, renewed, err := svc.GetUser(context.Background(), issued.AccessToken, issued.RefreshToken)
	if err != nil {
		t.Fatalf("GetUser returned error: %v", err)
	}
	if principal == nil || principal.ID != "user-1" || principal.SessionID == "" {
		t.Fatalf("unexpected principal: %+v", principal)
	}
	if renewed == nil {
		t.Fatalf("expected a renewed token pair")
	}
	if renewed.RefreshToken == issued.RefreshToken {
		t.Fatalf("refresh token was not rotated")
	}
	if _, ok := sessions.entries[oldHash]; ok {
		t.Fatalf("old refresh session still usable after rotation")
	}
	if _, ok := sessions.entries[security.HashToken(renewed.RefreshToken)]; !ok {
		t.Fatalf("rotated session not stored")
	}

	// The old refresh token must be dead now.
	if _, _, err := svc.GetUser(context.Background(), "", issued.RefreshToken); !errors.Is(err, ErrNoSession) {
		t.Fatalf("expected ErrNoSession for the rotated-out token, got %v", err)
	}
}

func TestAuthService_GetUserNoTokens(t *testing.T) {
	svc, _, _, _ := newAuthFixture(t)

	if _, _, err := svc.GetUser(context.Background(), "", ""); !errors.Is(err, ErrNoSession) {
		t.Fatalf("expected ErrNoSession, got %v", err)
	}
}

func TestAuthService_GetUserExpiredRefresh(t *testing.T) {
	svc, _, sessions, minter := newAuthFixture(t)

	_, issued, err := svc.SignIn(context.Background(), "admin@example.com", "correct horse battery staple")
	if err != nil {
		t.Fatalf("SignIn returned error: %v", err)
	}

	// Jump past both TTLs.
	later := time.Now().UTC().Add(200 * time.Hour)
	minter.WithClock(func() time.Time { return later })
	svc.WithClock(func() time.Time { return later })

	if _, _, err := svc.GetUser(context.Background(), issued.AccessToken, issued.RefreshToken); !errors.Is(err, ErrNoSession) {
		t.Fatalf("expected ErrNoSession, got %v", err)
	}
	if len(sessions.entries) != 0 {
		t.Fatalf("expired session should be removed, got %d entries", len(sessions.entries))
	}
}

func TestAuthService_RefreshDeletedUser(t *testing.T) {
	svc, users, sessions, _ := newAuthFixture(t)

	_, session, err := svc.SignIn(context.Background(), "admin@example.com", "correct horse battery staple")
	if err != nil {
		t.Fatalf("SignIn returned error: %v", err)
	}

	delete(users.byEmail, "admin@example.com")

	if _, _, err := svc.GetUser(context.Background(), "", session.RefreshToken); !errors.Is(err, ErrNoSession) {
		t.Fatalf("expected ErrNoSession for deleted account, got %v", err)
	}
	if len(sessions.entries) != 0 {
		t.Fatalf("session survived account deletion: %v", sessions.entries)
	}
}

func TestAuthService_SignOut(t *testing.T) {
	svc, _, sessions, _ := newAuthFixture(t)

	_, issued, err := svc.SignIn(context.Background(), "admin@example.com", "correct horse battery staple")
	if err != nil {
		t.Fatalf("SignIn returned error: %v", err)
	}

	if err := svc.SignOut(context.Background(), issued.RefreshToken); err != nil {
		t.Fatalf("SignOut returned error: %v", err)
	}
	if len(sessions.entries) != 0 {
		t.Fatalf("session should be removed on sign out")
	}

	// Signing out without a token is a no-op.
	if err := svc.SignOut(context.Background(), ""); err != nil {
		t.Fatalf("SignOut without token returned error: %v", err)
	}
}

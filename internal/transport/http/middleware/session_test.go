package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap/zaptest"

	"github.com/arklim/village-admin/internal/core/domain"
	"github.com/arklim/village-admin/internal/core/port"
	"github.com/arklim/village-admin/internal/infra/config"
	"github.com/arklim/village-admin/internal/infra/security"
	"github.com/arklim/village-admin/internal/repository"
	"github.com/arklim/village-admin/internal/usecase"
)

type userRepoStub struct {
	users map[string]*domain.User
}

func (s *userRepoStub) Create(_ context.Context, _ domain.User) error { return nil }

func (s *userRepoStub) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	user, ok := s.users[email]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return user, nil
}

func (s *userRepoStub) GetByID(_ context.Context, id string) (*domain.User, error) {
	for _, user := range s.users {
		if user.ID == id {
			return user, nil
		}
	}
	return nil, repository.ErrNotFound
}

type sessionRepoStub struct {
	entries map[string]port.RefreshSession
}

func (s *sessionRepoStub) Store(_ context.Context, hash string, session port.RefreshSession, _ time.Duration) error {
	if s.entries == nil {
		s.entries = make(map[string]port.RefreshSession)
	}
	s.entries[hash] = session
	return nil
}

func (s *sessionRepoStub) Get(_ context.Context, hash string) (*port.RefreshSession, error) {
	session, ok := s.entries[hash]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &session, nil
}

func (s *sessionRepoStub) Delete(_ context.Context, hash string) error {
	delete(s.entries, hash)
	return nil
}

type sessionFixture struct {
	auth    *usecase.AuthService
	minter  *security.TokenMinter
	cfg     config.SessionSettings
	session *domain.Session
}

func newSessionFixture(t *testing.T) *sessionFixture {
	t.Helper()

	minter, err := security.NewTokenMinter("test-secret-test-secret-test1234", "village-admin")
	if err != nil {
		t.Fatalf("NewTokenMinter: %v", err)
	}

	hash, err := security.HashPassword("pass")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}

	users := &userRepoStub{users: map[string]*domain.User{
		"admin@example.com": {ID: "user-1", Email: "admin@example.com", PasswordHash: hash},
	}}
	cfg := config.SessionSettings{
		Secret:          "test-secret-test-secret-test1234",
		AccessTokenTTL:  15 * time.Minute,
		RefreshTokenTTL: 168 * time.Hour,
	}

	auth := usecase.NewAuthService(users, &sessionRepoStub{}, minter, cfg.AccessTokenTTL, cfg.RefreshTokenTTL, zaptest.NewLogger(t))

	_, session, err := auth.SignIn(context.Background(), "admin@example.com", "pass")
	if err != nil {
		t.Fatalf("SignIn: %v", err)
	}

	return &sessionFixture{auth: auth, minter: minter, cfg: cfg, session: session}
}

// serveWithSession runs one request through the interceptor and captures the
// principal plus the request-side cookies the downstream handler observed.
func serveWithSession(t *testing.T, fx *sessionFixture, access, refresh string) (*httptest.ResponseRecorder, *domain.Principal, map[string]string) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	var principal *domain.Principal
	forwarded := make(map[string]string)

	engine := gin.New()
	engine.Use(SessionRefresh(fx.auth, fx.cfg, zaptest.NewLogger(t)))
	engine.GET("/", func(c *gin.Context) {
		principal = GetPrincipal(c)
		for _, cookie := range c.Request.Cookies() {
			forwarded[cookie.Name] = cookie.Value
		}
		c.Status(http.StatusNoContent)
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if access != "" {
		req.AddCookie(&http.Cookie{Name: AccessTokenCookie, Value: access})
	}
	if refresh != "" {
		req.AddCookie(&http.Cookie{Name: RefreshTokenCookie, Value: refresh})
	}

	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)

	return rec, principal, forwarded
}

func responseCookies(rec *httptest.ResponseRecorder) map[string]*http.Cookie {
	out := make(map[string]*http.Cookie)
	res := rec.Result()
	for _, cookie := range res.Cookies() {
		out[cookie.Name] = cookie
	}
	return out
}

func TestSessionRefresh_ValidAccessToken(t *testing.T) {
	fx := newSessionFixture(t)

	rec, principal, _ := serveWithSession(t, fx, fx.session.AccessToken, fx.session.RefreshToken)

	if principal == nil || principal.ID != "user-1" {
		t.Fatalf("expected resolved principal, got %+v", principal)
	}
	if len(responseCookies(rec)) != 0 {
		t.Fatalf("no cookies should be written for a valid access token")
	}
}

func TestSessionRefresh_ExpiredAccessRotatesBothSides(t *testing.T) {
	fx := newSessionFixture(t)

	// Jump past the access TTL; the refresh token stays valid.
	later := time.Now().UTC().Add(time.Hour)
	fx.minter.WithClock(func() time.Time { return later })
	fx.auth.WithClock(func() time.Time { return later })

	rec, principal, forwarded := serveWithSession(t, fx, fx.session.AccessToken, fx.session.RefreshToken)

	if principal == nil || principal.ID != "user-1" {
		t.Fatalf("expected resolved principal after rotation, got %+v", principal)
	}

	cookies := responseCookies(rec)
	newAccess, ok := cookies[AccessTokenCookie]
	if !ok || newAccess.Value == "" || newAccess.Value == fx.session.AccessToken {
		t.Fatalf("expected a fresh access cookie on the response")
	}
	newRefresh, ok := cookies[RefreshTokenCookie]
	if !ok || newRefresh.Value == "" || newRefresh.Value == fx.session.RefreshToken {
		t.Fatalf("expected a rotated refresh cookie on the response")
	}
	if !newAccess.HttpOnly || !newRefresh.HttpOnly {
		t.Fatalf("session cookies must be HttpOnly")
	}

	// The downstream handler must see the renewed pair on the request too.
	if forwarded[AccessTokenCookie] != newAccess.Value {
		t.Fatalf("request-side access cookie not rewritten")
	}
	if forwarded[RefreshTokenCookie] != newRefresh.Value {
		t.Fatalf("request-side refresh cookie not rewritten")
	}
}

func TestSessionRefresh_DeadSessionClearsCookies(t *testing.T) {
	fx := newSessionFixture(t)

	later := time.Now().UTC().Add(time.Hour)
	fx.minter.WithClock(func() time.Time { return later })
	fx.auth.WithClock(func() time.Time { return later })

	// Invalidate the refresh session server-side.
	if err := fx.auth.SignOut(context.Background(), fx.session.RefreshToken); err != nil {
		t.Fatalf("SignOut: %v", err)
	}

	rec, principal, forwarded := serveWithSession(t, fx, fx.session.AccessToken, fx.session.RefreshToken)

	if principal != nil {
		t.Fatalf("expected anonymous request, got %+v", principal)
	}

	cookies := responseCookies(rec)
	for _, name := range []string{AccessTokenCookie, RefreshTokenCookie} {
		cookie, ok := cookies[name]
		if !ok || cookie.Value != "" || cookie.MaxAge >= 0 {
			t.Fatalf("expected %s to be cleared, got %+v", name, cookie)
		}
	}
	if forwarded[AccessTokenCookie] != "" || forwarded[RefreshTokenCookie] != "" {
		t.Fatalf("stale cookies still forwarded downstream: %v", forwarded)
	}
}

func TestSessionRefresh_NoCookiesIsAnonymous(t *testing.T) {
	fx := newSessionFixture(t)

	rec, principal, _ := serveWithSession(t, fx, "", "")

	if principal != nil {
		t.Fatalf("expected anonymous request, got %+v", principal)
	}
	if rec.Code != http.StatusNoContent {
		t.Fatalf("request should proceed, got %d", rec.Code)
	}
}

func TestSessionRefresh_SkipsOperationalPaths(t *testing.T) {
	fx := newSessionFixture(t)
	gin.SetMode(gin.TestMode)

	var principal *domain.Principal
	engine := gin.New()
	engine.Use(SessionRefresh(fx.auth, fx.cfg, zaptest.NewLogger(t)))
	engine.GET("/healthz", func(c *gin.Context) {
		principal = GetPrincipal(c)
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.AddCookie(&http.Cookie{Name: AccessTokenCookie, Value: fx.session.AccessToken})
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)

	if principal != nil {
		t.Fatalf("interceptor should skip operational paths")
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", rec.Code)
	}
}

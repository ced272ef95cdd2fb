package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/arklim/village-admin/internal/core/domain"
	"github.com/arklim/village-admin/internal/core/port"
	"github.com/arklim/village-admin/internal/infra/security"
	"github.com/arklim/village-admin/internal/repository"
)

var (
	// ErrInvalidCredentials indicates the provided email or password are incorrect.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrNoSession indicates no valid session could be derived from the supplied tokens.
	ErrNoSession = errors.New("no valid session")
	// ErrUserExists indicates a user with the given email is already provisioned.
	ErrUserExists = errors.New("user already exists")
)

const minPasswordLength = 8

const refreshTokenBytes = 32

// AuthService issues, validates, and refreshes cookie-borne sessions.
type AuthService struct {
	users      port.UserRepository
	sessions   port.SessionRepository
	minter     *security.TokenMinter
	accessTTL  time.Duration
	refreshTTL time.Duration
	logger     *zap.Logger
	now        func() time.Time
}

// NewAuthService constructs an AuthService.
func NewAuthService(
	users port.UserRepository,
	sessions port.SessionRepository,
	minter *security.TokenMinter,
	accessTTL, refreshTTL time.Duration,
	logger *zap.Logger,
) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if accessTTL <= 0 {
		accessTTL = 15 * time.Minute
	}
	if refreshTTL <= 0 {
		refreshTTL = 168 * time.Hour
	}
	return &AuthService{
		users:      users,
		sessions:   sessions,
		minter:     minter,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		logger:     logger,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// WithClock overrides the internal clock for deterministic tests.
func (s *AuthService) WithClock(clock func() time.Time) *AuthService {
	if clock != nil {
		s.now = clock
	}
	return s
}

// ProvisionUser creates an operator account. The email is normalized to
// lowercase so it matches the case-insensitive unique index and the SignIn
// lookup.
func (s *AuthService) ProvisionUser(ctx context.Context, email, password string) (*domain.User, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, fmt.Errorf("invalid email %q", email)
	}
	if len(password) < minPasswordLength {
		return nil, fmt.Errorf("password must be at least %d characters", minPasswordLength)
	}

	hash, err := security.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := domain.User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: hash,
		CreatedAt:    s.now(),
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, ErrUserExists
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.logger.Info("user provisioned", zap.String("user_id", user.ID))

	return &user, nil
}

// SignIn verifies credentials and creates a fresh session.
func (s *AuthService) SignIn(ctx context.Context, email, password string) (*domain.Principal, *domain.Session, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || password == "" {
		return nil, nil, ErrInvalidCredentials
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil, ErrInvalidCredentials
		}
		return nil, nil, fmt.Errorf("lookup user: %w", err)
	}

	ok, err := security.VerifyPassword(password, user.PasswordHash)
	if err != nil {
		return nil, nil, fmt.Errorf("verify password: %w", err)
	}
	if !ok {
		return nil, nil, ErrInvalidCredentials
	}

	return s.issueSession(ctx, user.ID, user.Email, uuid.NewString())
}

// GetUser derives the principal from the supplied tokens. When the access
// token has expired but the refresh token is still valid, the session is
// rotated and the renewed pair is returned alongside the principal; the
// caller must propagate the new cookies. A nil session means no rotation
// happened.
func (s *AuthService) GetUser(ctx context.Context, accessToken, refreshToken string) (*domain.Principal, *domain.Session, error) {
	if accessToken != "" {
		claims, err := s.minter.Parse(accessToken)
		if err == nil {
			return &domain.Principal{
				ID:        claims.Subject,
				Email:     claims.Email,
				SessionID: claims.SessionID,
				ExpiresAt: claims.ExpiresAt.Time,
			}, nil, nil
		}
		if !errors.Is(err, security.ErrExpiredAccessToken) && !errors.Is(err, security.ErrInvalidAccessToken) {
			return nil, nil, fmt.Errorf("parse access token: %w", err)
		}
	}

	return s.refresh(ctx, refreshToken)
}

// SignOut invalidates the refresh session. A missing session is not an error.
func (s *AuthService) SignOut(ctx context.Context, refreshToken string) error {
	if strings.TrimSpace(refreshToken) == "" {
		return nil
	}
	if err := s.sessions.Delete(ctx, security.HashToken(refreshToken)); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

func (s *AuthService) refresh(ctx context.Context, refreshToken string) (*domain.Principal, *domain.Session, error) {
	if strings.TrimSpace(refreshToken) == "" {
		return nil, nil, ErrNoSession
	}

	oldHash := security.HashToken(refreshToken)
	state, err := s.sessions.Get(ctx, oldHash)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil, ErrNoSession
		}
		return nil, nil, fmt.Errorf("load session: %w", err)
	}

	now := s.now()
	if !state.ExpiresAt.After(now) {
		_ = s.sessions.Delete(ctx, oldHash)
		return nil, nil, ErrNoSession
	}

	// A session must not outlive its account.
	if _, err := s.users.GetByID(ctx, state.UserID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			_ = s.sessions.Delete(ctx, oldHash)
			return nil, nil, ErrNoSession
		}
		return nil, nil, fmt.Errorf("lookup user: %w", err)
	}

	// Rotation: the old refresh token must be unusable before the new pair
	// is handed out.
	if err := s.sessions.Delete(ctx, oldHash); err != nil {
		return nil, nil, fmt.Errorf("rotate session: %w", err)
	}

	principal, session, err := s.issueSession(ctx, state.UserID, state.Email, state.SessionID)
	if err != nil {
		return nil, nil, err
	}

	s.logger.Debug("session refreshed",
		zap.String("session_id", state.SessionID),
		zap.String("user_id", state.UserID),
	)

	return principal, session, nil
}

func (s *AuthService) issueSession(ctx context.Context, userID, email, sessionID string) (*domain.Principal, *domain.Session, error) {
	refreshToken, err := security.GenerateSecureToken(refreshTokenBytes)
	if err != nil {
		return nil, nil, fmt.Errorf("generate refresh token: %w", err)
	}

	accessToken, accessExpiry, err := s.minter.Mint(userID, email, sessionID, s.accessTTL)
	if err != nil {
		return nil, nil, fmt.Errorf("mint access token: %w", err)
	}

	refreshExpiry := s.now().Add(s.refreshTTL)
	state := port.RefreshSession{
		SessionID: sessionID,
		UserID:    userID,
		Email:     email,
		ExpiresAt: refreshExpiry,
	}
	if err := s.sessions.Store(ctx, security.HashToken(refreshToken), state, s.refreshTTL); err != nil {
		return nil, nil, fmt.Errorf("store session: %w", err)
	}

	principal := &domain.Principal{
		ID:        userID,
		Email:     email,
		SessionID: sessionID,
		ExpiresAt: accessExpiry,
	}
	session := &domain.Session{
		AccessToken:      accessToken,
		RefreshToken:     refreshToken,
		AccessExpiresAt:  accessExpiry,
		RefreshExpiresAt: refreshExpiry,
	}

	return principal, session, nil
}

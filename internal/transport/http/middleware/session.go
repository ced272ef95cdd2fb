package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/arklim/village-admin/internal/core/domain"
	"github.com/arklim/village-admin/internal/infra/config"
	"github.com/arklim/village-admin/internal/usecase"
)

const (
	// AccessTokenCookie carries the short-lived access token.
	AccessTokenCookie = "va_access_token"
	// RefreshTokenCookie carries the long-lived refresh token.
	RefreshTokenCookie = "va_refresh_token"
)

// skippedPrefixes are request paths the session interceptor ignores:
// static assets and operational endpoints never carry a session.
var skippedPrefixes = []string{
	"/static/",
	"/favicon.ico",
	"/healthz",
	"/readyz",
	"/metrics",
}

// SessionTokens extracts the session cookie pair from the request, ignoring
// cookies with empty values.
func SessionTokens(r *http.Request) (access, refresh string) {
	for _, cookie := range r.Cookies() {
		if cookie.Value == "" {
			continue
		}
		switch cookie.Name {
		case AccessTokenCookie:
			access = cookie.Value
		case RefreshTokenCookie:
			refresh = cookie.Value
		}
	}
	return access, refresh
}

// WriteSessionCookies sets the renewed pair on the outbound response and
// rewrites the inbound request's Cookie header so same-cycle consumers
// observe the fresh tokens.
func WriteSessionCookies(c *gin.Context, cfg config.SessionSettings, session *domain.Session) {
	if session == nil {
		return
	}

	maxAge := int(cfg.RefreshTokenTTL.Seconds())
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(AccessTokenCookie, session.AccessToken, maxAge, "/", cfg.CookieDomain, cfg.CookieSecure, true)
	c.SetCookie(RefreshTokenCookie, session.RefreshToken, maxAge, "/", cfg.CookieDomain, cfg.CookieSecure, true)

	rewriteRequestCookies(c.Request, map[string]string{
		AccessTokenCookie:  session.AccessToken,
		RefreshTokenCookie: session.RefreshToken,
	})
}

// ClearSessionCookies expires both session cookies on the response and drops
// them from the forwarded request.
func ClearSessionCookies(c *gin.Context, cfg config.SessionSettings) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(AccessTokenCookie, "", -1, "/", cfg.CookieDomain, cfg.CookieSecure, true)
	c.SetCookie(RefreshTokenCookie, "", -1, "/", cfg.CookieDomain, cfg.CookieSecure, true)

	rewriteRequestCookies(c.Request, map[string]string{
		AccessTokenCookie:  "",
		RefreshTokenCookie: "",
	})
}

func rewriteRequestCookies(r *http.Request, replacements map[string]string) {
	parts := make([]string, 0, len(r.Cookies())+len(replacements))
	seen := make(map[string]bool, len(replacements))

	for _, cookie := range r.Cookies() {
		if value, ok := replacements[cookie.Name]; ok {
			seen[cookie.Name] = true
			if value == "" {
				continue
			}
			parts = append(parts, cookie.Name+"="+value)
			continue
		}
		parts = append(parts, cookie.Name+"="+cookie.Value)
	}

	for name, value := range replacements {
		if !seen[name] && value != "" {
			parts = append(parts, name+"="+value)
		}
	}

	r.Header.Set("Cookie", strings.Join(parts, "; "))
}

// SessionRefresh is the session refresh interceptor. It runs before any other
// session consumer, validates the cookie pair, and transparently rotates an
// expiring session, re-issuing cookies on both request and response. When the
// session store is unreachable the request proceeds unauthenticated; the
// procedure-level authorization gates remain the enforcement point.
func SessionRefresh(auth *usecase.AuthService, cfg config.SessionSettings, log *zap.Logger) gin.HandlerFunc {
	if log == nil {
		log = zap.NewNop()
	}

	return func(c *gin.Context) {
		path := c.Request.URL.Path
		for _, prefix := range skippedPrefixes {
			if strings.HasPrefix(path, prefix) {
				c.Next()
				return
			}
		}

		access, refresh := SessionTokens(c.Request)
		if access == "" && refresh == "" {
			c.Next()
			return
		}

		principal, renewed, err := auth.GetUser(c.Request.Context(), access, refresh)
		if err != nil {
			if errors.Is(err, usecase.ErrNoSession) {
				ClearSessionCookies(c, cfg)
			} else {
				log.Warn("session validation unavailable, proceeding unauthenticated",
					zap.String("path", path),
					zap.Error(err),
				)
			}
			c.Next()
			return
		}

		if renewed != nil {
			WriteSessionCookies(c, cfg, renewed)
		}

		SetPrincipal(c, principal)
		c.Next()
	}
}

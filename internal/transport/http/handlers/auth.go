package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/arklim/village-admin/internal/infra/config"
	"github.com/arklim/village-admin/internal/transport/http/middleware"
	"github.com/arklim/village-admin/internal/usecase"
)

// AuthHandler exposes sign-in and sign-out endpoints.
type AuthHandler struct {
	auth *usecase.AuthService
	cfg  config.SessionSettings
}

// NewAuthHandler constructs AuthHandler.
func NewAuthHandler(auth *usecase.AuthService, cfg config.SessionSettings) *AuthHandler {
	return &AuthHandler{auth: auth, cfg: cfg}
}

// RegisterRoutes binds authentication routes.
func (h *AuthHandler) RegisterRoutes(r *gin.Engine) {
	r.POST("/login", h.Login)
	r.POST("/logout", h.Logout)
}

// Login verifies credentials and issues the session cookie pair. Browser form
// submissions are redirected to the dashboard; API clients receive JSON. A
// failed form submission re-renders the sign-in page with an inline message
// and the entered email preserved.
func (h *AuthHandler) Login(c *gin.Context) {
	isJSON := strings.Contains(c.ContentType(), "application/json")

	var req LoginRequest
	if err := c.ShouldBind(&req); err != nil {
		h.loginFailed(c, isJSON, req.Email, "invalid login payload")
		return
	}

	principal, session, err := h.auth.SignIn(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, usecase.ErrInvalidCredentials) {
			h.loginFailed(c, isJSON, req.Email, "invalid email or password")
			return
		}
		if isJSON {
			c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "sign-in failed"))
			return
		}
		h.renderLogin(c, http.StatusInternalServerError, req.Email, "sign-in failed, try again")
		return
	}

	middleware.WriteSessionCookies(c, h.cfg, session)

	if isJSON {
		c.JSON(http.StatusOK, LoginResponse{
			UserID:    principal.ID,
			Email:     principal.Email,
			ExpiresAt: principal.ExpiresAt,
		})
		return
	}

	c.Redirect(http.StatusFound, "/")
}

// Logout invalidates the refresh session, clears both cookies, and sends the
// browser back to the sign-in page.
func (h *AuthHandler) Logout(c *gin.Context) {
	_, refresh := middleware.SessionTokens(c.Request)
	if err := h.auth.SignOut(c.Request.Context(), refresh); err != nil {
		// The cookies are cleared regardless; a dangling redis entry
		// expires on its own TTL.
		_ = c.Error(err)
	}

	middleware.ClearSessionCookies(c, h.cfg)

	if strings.Contains(c.ContentType(), "application/json") {
		c.Status(http.StatusNoContent)
		return
	}

	c.Redirect(http.StatusFound, "/login")
}

func (h *AuthHandler) loginFailed(c *gin.Context, isJSON bool, email, message string) {
	if isJSON {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, message))
		return
	}
	h.renderLogin(c, http.StatusUnauthorized, email, message)
}

func (h *AuthHandler) renderLogin(c *gin.Context, status int, email, message string) {
	c.HTML(status, "login.html", gin.H{
		"Email": email,
		"Error": message,
	})
}

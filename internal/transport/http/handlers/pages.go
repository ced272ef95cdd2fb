package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/arklim/village-admin/internal/transport/http/middleware"
	"github.com/arklim/village-admin/internal/usecase"
)

// PageHandler renders the server-side page shells. Unauthenticated access to
// protected pages redirects to the sign-in form.
type PageHandler struct {
	villageCodes *usecase.VillageCodeService
}

// NewPageHandler constructs PageHandler.
func NewPageHandler(villageCodes *usecase.VillageCodeService) *PageHandler {
	return &PageHandler{villageCodes: villageCodes}
}

// RegisterRoutes binds the page routes.
func (h *PageHandler) RegisterRoutes(r *gin.Engine) {
	r.GET("/", h.Dashboard)
	r.GET("/login", h.LoginPage)
	r.GET("/settings/village-codes", h.VillageCodesPage)
}

// Dashboard renders the protected landing page.
func (h *PageHandler) Dashboard(c *gin.Context) {
	principal := middleware.GetPrincipal(c)
	if principal == nil {
		c.Redirect(http.StatusFound, "/login")
		return
	}

	c.HTML(http.StatusOK, "dashboard.html", gin.H{
		"Email": principal.Email,
	})
}

// LoginPage renders the public sign-in form. Authenticated visitors are sent
// straight to the dashboard.
func (h *PageHandler) LoginPage(c *gin.Context) {
	if middleware.GetPrincipal(c) != nil {
		c.Redirect(http.StatusFound, "/")
		return
	}

	c.HTML(http.StatusOK, "login.html", gin.H{})
}

// VillageCodesPage renders the protected settings page with the current
// table contents. Mutations run through the RPC endpoint.
func (h *PageHandler) VillageCodesPage(c *gin.Context) {
	principal := middleware.GetPrincipal(c)
	if principal == nil {
		c.Redirect(http.StatusFound, "/login")
		return
	}

	records, err := h.villageCodes.List(c.Request.Context(), true)
	if err != nil {
		c.HTML(http.StatusInternalServerError, "village_codes.html", gin.H{
			"Email": principal.Email,
			"Error": "failed to load village codes",
		})
		return
	}

	c.HTML(http.StatusOK, "village_codes.html", gin.H{
		"Email":   principal.Email,
		"Records": records,
	})
}

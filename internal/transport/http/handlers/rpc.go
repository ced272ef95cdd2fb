package handlers

import (
	"errors"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/arklim/village-admin/internal/infra/config"
	"github.com/arklim/village-admin/internal/rpc"
	"github.com/arklim/village-admin/internal/transport/http/middleware"
	"github.com/arklim/village-admin/internal/usecase"
)

// NewRPCContextBuilder returns the request context builder for the procedure
// pipeline. One context is built per inbound call: it derives the principal
// from the (possibly already refreshed) cookies and propagates any further
// cookie rotation onto the response. Session store failures yield an
// anonymous context; the authorization gates are the enforcement point.
func NewRPCContextBuilder(auth *usecase.AuthService, cfg config.SessionSettings, log *zap.Logger) rpc.ContextBuilder {
	if log == nil {
		log = zap.NewNop()
	}

	return func(c *gin.Context) *rpc.CallContext {
		ctx := &rpc.CallContext{
			Request: c.Request,
			Writer:  c.Writer,
		}

		access, refresh := middleware.SessionTokens(c.Request)
		if access == "" && refresh == "" {
			return ctx
		}

		principal, renewed, err := auth.GetUser(c.Request.Context(), access, refresh)
		if err != nil {
			if !errors.Is(err, usecase.ErrNoSession) {
				log.Warn("rpc context: session validation failed", zap.Error(err))
			}
			return ctx
		}

		if renewed != nil {
			middleware.WriteSessionCookies(c, cfg, renewed)
		}

		ctx.Principal = principal
		return ctx
	}
}

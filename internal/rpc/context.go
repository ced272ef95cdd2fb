package rpc

import (
	"net/http"

	"github.com/arklim/village-admin/internal/core/domain"
)

// CallContext carries the request/response handles and the principal resolved
// for one inbound call. One context is built per call and never cached.
type CallContext struct {
	Request   *http.Request
	Writer    http.ResponseWriter
	Principal *domain.Principal
}

// Authed is the narrowed context handed to protected handlers after the
// authorization gate has passed: the principal is a value, not a pointer, so
// handlers cannot observe an absent identity.
type Authed struct {
	Request   *http.Request
	Writer    http.ResponseWriter
	Principal domain.Principal
}

// Gate inspects the context ahead of the handler and aborts the call by
// returning an error.
type Gate func(ctx *CallContext) error

// RequireAuth aborts with UNAUTHORIZED when no principal is present.
func RequireAuth(ctx *CallContext) error {
	if ctx == nil || ctx.Principal == nil {
		return NewError(CodeUnauthorized, "authentication required")
	}
	return nil
}

package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/arklim/village-admin/internal/core/domain"
)

const (
	// TraceIDHeader is the HTTP header name for trace ID
	TraceIDHeader = "X-Trace-ID"
	// TraceIDKey is the context key for trace ID
	TraceIDKey = "trace_id"
	// PrincipalKey is the context key for the authenticated principal
	PrincipalKey = "principal"
)

// EnrichContext adds a trace ID to each request.
func EnrichContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		traceID := c.GetHeader(TraceIDHeader)
		if traceID == "" {
			traceID = uuid.NewString()
		}

		c.Set(TraceIDKey, traceID)
		c.Header(TraceIDHeader, traceID)

		c.Next()
	}
}

// GetTraceID retrieves the trace ID from the context.
func GetTraceID(c *gin.Context) string {
	if traceID, exists := c.Get(TraceIDKey); exists {
		if id, ok := traceID.(string); ok {
			return id
		}
	}
	return ""
}

// SetPrincipal stores the resolved principal on the gin context.
func SetPrincipal(c *gin.Context, principal *domain.Principal) {
	if principal != nil {
		c.Set(PrincipalKey, principal)
	}
}

// GetPrincipal retrieves the principal resolved by the session interceptor,
// or nil for anonymous requests.
func GetPrincipal(c *gin.Context) *domain.Principal {
	if value, exists := c.Get(PrincipalKey); exists {
		if principal, ok := value.(*domain.Principal); ok {
			return principal
		}
	}
	return nil
}

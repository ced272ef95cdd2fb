package rpc

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
)

// CallRequest is one element of the batched transport payload.
type CallRequest struct {
	Path  string          `json:"path"`
	Type  Kind            `json:"type"`
	Input json.RawMessage `json:"input,omitempty"`
}

// ResultEnvelope wraps a successful call result.
type ResultEnvelope struct {
	Data any `json:"data"`
}

// CallResponse is one element of the batched response, in call order.
// Exactly one of Result or Error is set.
type CallResponse struct {
	Result *ResultEnvelope `json:"result,omitempty"`
	Error  *Error          `json:"error,omitempty"`
}

// ContextBuilder derives a fresh CallContext for one inbound call.
type ContextBuilder func(c *gin.Context) *CallContext

// Handler mounts the router on a single batched HTTP endpoint. The body is an
// array of calls; the response is an array of result/error envelopes in call
// order. A failed call never fails its batch siblings.
func Handler(router *Router, buildContext ContextBuilder) gin.HandlerFunc {
	return func(c *gin.Context) {
		var calls []CallRequest
		if err := c.ShouldBindJSON(&calls); err != nil {
			c.JSON(http.StatusBadRequest, []CallResponse{
				{Error: NewError(CodeParseError, "request body must be a JSON array of calls")},
			})
			return
		}

		ctx := buildContext(c)

		responses := make([]CallResponse, 0, len(calls))
		for _, call := range calls {
			result, err := router.Call(ctx, call.Path, call.Type, call.Input)
			if err != nil {
				responses = append(responses, CallResponse{Error: AsError(err)})
				continue
			}
			responses = append(responses, CallResponse{Result: &ResultEnvelope{Data: result}})
		}

		c.JSON(http.StatusOK, responses)
	}
}

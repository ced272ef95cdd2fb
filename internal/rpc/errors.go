package rpc

import "errors"

// Code is the machine-readable error classification carried over the wire.
type Code string

const (
	CodeBadRequest   Code = "BAD_REQUEST"
	CodeUnauthorized Code = "UNAUTHORIZED"
	CodeNotFound     Code = "NOT_FOUND"
	CodeConflict     Code = "CONFLICT"
	CodeParseError   Code = "PARSE_ERROR"
	CodeInternal     Code = "INTERNAL_SERVER_ERROR"
)

// Error is the structured error shape returned for a failed call.
type Error struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	return string(e.Code) + ": " + e.Message
}

// NewError constructs a coded procedure error.
func NewError(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// AsError resolves any handler error into the structured shape. Errors that
// are not already coded become opaque internal errors; their details stay in
// the server log, never on the wire.
func AsError(err error) *Error {
	if err == nil {
		return nil
	}

	var rpcErr *Error
	if errors.As(err, &rpcErr) {
		return rpcErr
	}

	return NewError(CodeInternal, "internal server error")
}

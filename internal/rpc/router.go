package rpc

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// Group binds procedures to a namespace. An empty namespace mounts procedures
// at the root (reachable by bare name).
type Group struct {
	Namespace  string
	Procedures []Procedure
}

// Router resolves dot-paths to registered procedures. It is immutable after
// construction; build it once at startup and pass it to the transport.
type Router struct {
	procedures map[string]*Procedure
	logger     *zap.Logger
}

// BuildRouter merges the supplied groups into a router, rejecting duplicate
// or malformed registrations.
func BuildRouter(logger *zap.Logger, groups ...Group) (*Router, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	procedures := make(map[string]*Procedure)
	for _, group := range groups {
		for i := range group.Procedures {
			proc := group.Procedures[i]
			if strings.TrimSpace(proc.Name) == "" {
				return nil, fmt.Errorf("rpc: procedure with empty name in namespace %q", group.Namespace)
			}
			if strings.Contains(proc.Name, ".") {
				return nil, fmt.Errorf("rpc: procedure name %q must not contain dots", proc.Name)
			}

			path := proc.Name
			if group.Namespace != "" {
				path = group.Namespace + "." + proc.Name
			}

			if _, exists := procedures[path]; exists {
				return nil, fmt.Errorf("rpc: duplicate procedure %q", path)
			}
			procedures[path] = &proc
		}
	}

	return &Router{procedures: procedures, logger: logger}, nil
}

// Resolve returns the procedure registered at the dot-path.
func (r *Router) Resolve(path string) (*Procedure, bool) {
	proc, ok := r.procedures[path]
	return proc, ok
}

// Call executes the procedure at path with the raw input. Every failure is
// recovered into a coded error; a call never crashes the request.
func (r *Router) Call(ctx *CallContext, path string, kind Kind, raw json.RawMessage) (result any, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("procedure panicked",
				zap.String("path", path),
				zap.Any("panic", rec),
			)
			result = nil
			err = NewError(CodeInternal, "internal server error")
		}
	}()

	proc, ok := r.Resolve(path)
	if !ok {
		return nil, NewError(CodeNotFound, fmt.Sprintf("no procedure at path %q", path))
	}

	if kind != "" && kind != proc.Kind {
		return nil, NewError(CodeBadRequest, fmt.Sprintf("%q is a %s, not a %s", path, proc.Kind, kind))
	}

	result, err = proc.handler(ctx, raw)
	if err != nil {
		var rpcErr *Error
		if !errors.As(err, &rpcErr) {
			r.logger.Error("procedure failed",
				zap.String("path", path),
				zap.Error(err),
			)
		}
		return nil, AsError(err)
	}

	return result, nil
}

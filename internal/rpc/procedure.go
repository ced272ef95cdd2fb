package rpc

import (
	"encoding/json"
	"fmt"
)

// Kind distinguishes reads from writes.
type Kind string

const (
	KindQuery    Kind = "query"
	KindMutation Kind = "mutation"
)

// Validator is implemented by inputs that carry their own schema checks.
// Validation runs after the gate list and before the handler.
type Validator interface {
	Validate() error
}

// Procedure is a named, typed server operation reachable through the
// transport. The handler is wrapped at construction time with the ordered
// gate list followed by input decoding.
type Procedure struct {
	Name    string
	Kind    Kind
	handler func(ctx *CallContext, raw json.RawMessage) (any, error)
}

// NewQuery builds an unprotected read procedure.
func NewQuery[I any](name string, fn func(ctx *CallContext, input I) (any, error), gates ...Gate) Procedure {
	return newProcedure(name, KindQuery, fn, gates)
}

// NewMutation builds an unprotected write procedure.
func NewMutation[I any](name string, fn func(ctx *CallContext, input I) (any, error), gates ...Gate) Procedure {
	return newProcedure(name, KindMutation, fn, gates)
}

// NewProtectedQuery builds a read procedure guarded by the authorization
// gate; the handler receives the narrowed context.
func NewProtectedQuery[I any](name string, fn func(ctx Authed, input I) (any, error), gates ...Gate) Procedure {
	return newProcedure(name, KindQuery, protect(fn), prepend(RequireAuth, gates))
}

// NewProtectedMutation builds a write procedure guarded by the authorization
// gate; the handler receives the narrowed context.
func NewProtectedMutation[I any](name string, fn func(ctx Authed, input I) (any, error), gates ...Gate) Procedure {
	return newProcedure(name, KindMutation, protect(fn), prepend(RequireAuth, gates))
}

func newProcedure[I any](name string, kind Kind, fn func(ctx *CallContext, input I) (any, error), gates []Gate) Procedure {
	return Procedure{
		Name: name,
		Kind: kind,
		handler: func(ctx *CallContext, raw json.RawMessage) (any, error) {
			for _, gate := range gates {
				if gate == nil {
					continue
				}
				if err := gate(ctx); err != nil {
					return nil, err
				}
			}

			input, err := decodeInput[I](raw)
			if err != nil {
				return nil, err
			}

			return fn(ctx, input)
		},
	}
}

// decodeInput unmarshals and validates the raw input. An absent input decodes
// to the zero value so procedures with all-optional fields accept bare calls.
func decodeInput[I any](raw json.RawMessage) (I, error) {
	var input I

	if len(raw) > 0 && string(raw) != "null" {
		if err := json.Unmarshal(raw, &input); err != nil {
			return input, NewError(CodeBadRequest, fmt.Sprintf("invalid input: %v", err))
		}
	}

	if v, ok := any(input).(Validator); ok {
		if err := v.Validate(); err != nil {
			return input, NewError(CodeBadRequest, err.Error())
		}
	}

	return input, nil
}

func protect[I any](fn func(ctx Authed, input I) (any, error)) func(ctx *CallContext, input I) (any, error) {
	return func(ctx *CallContext, input I) (any, error) {
		// RequireAuth ran already; the pointer dereference is safe.
		return fn(Authed{
			Request:   ctx.Request,
			Writer:    ctx.Writer,
			Principal: *ctx.Principal,
		}, input)
	}
}

func prepend(gate Gate, gates []Gate) []Gate {
	out := make([]Gate, 0, len(gates)+1)
	out = append(out, gate)
	out = append(out, gates...)
	return out
}

// Package tools exposes every veto operation as a named tool taking a flat
// argument object. The same registry backs the MCP, gRPC and CLI surfaces.
package tools

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/danielpatrickdp/veto/internal/apperr"
	"github.com/danielpatrickdp/veto/internal/logging"
)

// Kind is the JSON type of a parameter.
type Kind string

const (
	KindNumber  Kind = "number"
	KindInteger Kind = "integer"
	KindString  Kind = "string"
	KindBoolean Kind = "boolean"
	KindRange   Kind = "range" // {"min": int, "max": int}
)

// #region types
// Param describes one tool argument. Min and Max bound numeric kinds.
type Param struct {
	Name        string
	Kind        Kind
	Required    bool
	Description string
	Enum        []string
	Min         *float64
	Max         *float64
}

// Handler runs a tool against validated arguments.
type Handler func(ctx context.Context, args Args) (any, error)

// Tool is a named operation with its parameter schema.
type Tool struct {
	Name        string
	Description string
	Params      []Param
	Handler     Handler
}

// ErrorPayload is the structured error returned to tool callers.
type ErrorPayload struct {
	Error string      `json:"error"`
	Kind  apperr.Kind `json:"kind"`
}

// #endregion types

// #region registry
// Registry holds tools by name.
type Registry struct {
	tools  map[string]Tool
	logger *zap.Logger
}

// NewRegistry returns an empty registry.
func NewRegistry(logger *zap.Logger) *Registry {
	return &Registry{tools: map[string]Tool{}, logger: logging.OrNop(logger)}
}

// Register adds t. Registering a name twice is a programming error.
func (r *Registry) Register(t Tool) {
	if _, ok := r.tools[t.Name]; ok {
		panic(fmt.Sprintf("tools: duplicate tool %q", t.Name))
	}
	r.tools[t.Name] = t
}

// Get returns the named tool.
func (r *Registry) Get(name string) (Tool, bool) {
	t, ok := r.tools[name]
	return t, ok
}

// List returns all tools sorted by name.
func (r *Registry) List() []Tool {
	out := make([]Tool, 0, len(r.tools))
	for _, t := range r.tools {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Call validates raw against the tool's schema and runs it.
func (r *Registry) Call(ctx context.Context, name string, raw map[string]any) (any, error) {
	t, ok := r.tools[name]
	if !ok {
		return nil, apperr.NotFound("Unknown tool: %s", name)
	}
	args, err := decode(t.Params, raw)
	if err != nil {
		return nil, err
	}
	out, err := t.Handler(ctx, args)
	if err != nil {
		kind := apperr.KindOf(err)
		if kind == apperr.KindDependency || kind == apperr.KindInternal {
			r.logger.Error("tool failed", zap.String("tool", name), zap.Error(err))
		} else {
			r.logger.Debug("tool rejected", zap.String("tool", name), zap.String("kind", string(kind)), zap.Error(err))
		}
		return nil, err
	}
	r.logger.Debug("tool ok", zap.String("tool", name))
	return out, nil
}

// #endregion registry

// NewErrorPayload classifies err for the caller.
func NewErrorPayload(err error) ErrorPayload {
	return ErrorPayload{Error: err.Error(), Kind: apperr.KindOf(err)}
}

// Package tools implements the tool call surface agents use against session
// state: memorize, memorize_list, forget, the calorie/macro calculator and
// the exercise and meal lookups.
//
// Domain failures never surface as Go errors. Every call returns a Result
// carrying either a "status" or an "error" message, so the calling agent can
// decide how to phrase it to the user.
package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"

	"github.com/kalambet/heracles/internal/state"
)

// Result is a tool payload.
type Result map[string]any

// Status builds a successful result with a status message.
func Status(format string, args ...any) Result {
	return Result{"status": fmt.Sprintf(format, args...)}
}

// Error builds a failed result.
func Error(format string, args ...any) Result {
	return Result{"error": fmt.Sprintf(format, args...)}
}

// IsError reports whether r carries an error.
func (r Result) IsError() bool {
	_, ok := r["error"]
	return ok
}

// Message returns the error or status text.
func (r Result) Message() string {
	if msg, ok := r["error"].(string); ok {
		return msg
	}
	if msg, ok := r["status"].(string); ok {
		return msg
	}
	return ""
}

// Tool is a named operation bound to a session's state.
type Tool interface {
	Name() string
	Description() string
	// Schema is the JSON Schema of the arguments object.
	Schema() map[string]any
	Call(ctx context.Context, st *state.Store, args map[string]any) (Result, error)
}

// Config names and describes a tool.
type Config struct {
	Name        string
	Description string
}

// New builds a Tool from a typed handler. The argument schema is reflected
// from Args; fields tagged jsonschema:"required" are required.
func New[Args any](cfg Config, fn func(context.Context, *state.Store, Args) Result) (Tool, error) {
	if cfg.Name == "" {
		return nil, fmt.Errorf("tool name is required")
	}
	if cfg.Description == "" {
		return nil, fmt.Errorf("tool %s: description is required", cfg.Name)
	}
	schema, err := generateSchema[Args]()
	if err != nil {
		return nil, fmt.Errorf("generating schema for %s: %w", cfg.Name, err)
	}
	return &functionTool[Args]{cfg: cfg, fn: fn, schema: schema}, nil
}

type functionTool[Args any] struct {
	cfg    Config
	fn     func(context.Context, *state.Store, Args) Result
	schema map[string]any
}

func (t *functionTool[Args]) Name() string           { return t.cfg.Name }
func (t *functionTool[Args]) Description() string    { return t.cfg.Description }
func (t *functionTool[Args]) Schema() map[string]any { return t.schema }

func (t *functionTool[Args]) Call(ctx context.Context, st *state.Store, args map[string]any) (Result, error) {
	var typed Args
	if args != nil {
		data, err := json.Marshal(args)
		if err != nil {
			return nil, fmt.Errorf("invalid arguments for %s: %w", t.cfg.Name, err)
		}
		if err := json.Unmarshal(data, &typed); err != nil {
			return nil, fmt.Errorf("invalid arguments for %s: %w", t.cfg.Name, err)
		}
	}
	return t.fn(ctx, st, typed), nil
}

func generateSchema[T any]() (map[string]any, error) {
	reflector := &jsonschema.Reflector{
		RequiredFromJSONSchemaTags: true,
		ExpandedStruct:             true,
		DoNotReference:             true,
	}
	data, err := json.Marshal(reflector.Reflect(new(T)))
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	delete(m, "$schema")
	delete(m, "$id")
	return m, nil
}

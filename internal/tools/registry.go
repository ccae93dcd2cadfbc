package tools

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/kalambet/heracles/internal/state"
)

// ErrUnknownTool is returned when a tool name is not registered.
var ErrUnknownTool = errors.New("unknown tool")

// Registry holds tools by name in registration order.
type Registry struct {
	tools  map[string]Tool
	order  []string
	logger *slog.Logger
}

// NewRegistry returns an empty registry.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{tools: make(map[string]Tool), logger: logger}
}

// Register adds t. Names must be unique.
func (r *Registry) Register(t Tool) error {
	if _, ok := r.tools[t.Name()]; ok {
		return fmt.Errorf("tool %q already registered", t.Name())
	}
	r.tools[t.Name()] = t
	r.order = append(r.order, t.Name())
	return nil
}

// Get returns the tool called name.
func (r *Registry) Get(name string) (Tool, bool) {
	t, ok := r.tools[name]
	return t, ok
}

// List returns tools in registration order.
func (r *Registry) List() []Tool {
	out := make([]Tool, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.tools[name])
	}
	return out
}

// Subset returns the named tools, in the order given.
func (r *Registry) Subset(names []string) ([]Tool, error) {
	out := make([]Tool, 0, len(names))
	for _, name := range names {
		t, ok := r.tools[name]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownTool, name)
		}
		out = append(out, t)
	}
	return out, nil
}

// Invoke calls the named tool. Unknown tools and undecodable arguments come
// back as error results.
func (r *Registry) Invoke(ctx context.Context, st *state.Store, name string, args map[string]any) Result {
	t, ok := r.tools[name]
	if !ok {
		r.logger.Info("tool call rejected", "tool", name, "error", ErrUnknownTool)
		return Error("%s: %s", ErrUnknownTool, name)
	}

	res, err := t.Call(ctx, st, args)
	if err != nil {
		r.logger.Info("tool call failed", "tool", name, "error", err)
		return Error("%s", err)
	}
	if res.IsError() {
		r.logger.Info("tool returned error", "tool", name, "error", res.Message())
	} else {
		r.logger.Debug("tool call", "tool", name, "status", res.Message())
	}
	return res
}

// Deps are the collaborators some tools need.
type Deps struct {
	// Catalog backs the fitness and nutrition lookups. Nil selects the
	// simulated lookups.
	Catalog Catalog
	Logger  *slog.Logger
}

// Names of the built-in tools.
const (
	MemorizeName     = "memorize"
	MemorizeListName = "memorize_list"
	ForgetName       = "forget"
	CalculatorName   = "calories_macro_calculator_tool"
	FitnessName      = "fitness"
	NutritionName    = "nutrition"
)

// Default returns a registry holding every built-in tool.
func Default(deps Deps) (*Registry, error) {
	r := NewRegistry(deps.Logger)
	builders := []func() (Tool, error){
		newMemorize,
		newMemorizeList,
		newForget,
		newCalculator,
		func() (Tool, error) { return newFitness(deps.Catalog) },
		func() (Tool, error) { return newNutrition(deps.Catalog) },
	}
	for _, build := range builders {
		t, err := build()
		if err != nil {
			return nil, err
		}
		if err := r.Register(t); err != nil {
			return nil, err
		}
	}
	return r, nil
}

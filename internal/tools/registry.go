// Package tools provides the tool registry for Switchboard agents.
// Tools are deterministic, side-effect-free functions the logical agent may
// invoke after explicit user approval.
package tools

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/google/jsonschema-go/jsonschema"

	"github.com/normanking/switchboard/internal/llm"
)

// ErrToolNotFound is returned when a requested tool name is not registered.
// Agents treat this as "no tool available" and fall back to a direct answer.
var ErrToolNotFound = errors.New("tool not found")

// Tool is a callable registered with the registry.
type Tool struct {
	// Name uniquely identifies the tool.
	Name string

	// Description is shown to the model when binding tool definitions.
	Description string

	// Schema describes the JSON argument object.
	Schema *jsonschema.Schema

	// Invoke runs the tool with raw JSON arguments.
	Invoke func(ctx context.Context, args string) (string, error)
}

// NewTool builds a Tool whose argument schema is derived from ArgType and
// whose raw JSON arguments are decoded into ArgType before invocation.
func NewTool[ArgType any](name, description string, fn func(ctx context.Context, arg ArgType) (string, error)) (*Tool, error) {
	schema, err := jsonschema.For[ArgType](nil)
	if err != nil {
		return nil, fmt.Errorf("derive schema for %s: %w", name, err)
	}
	return &Tool{
		Name:        name,
		Description: description,
		Schema:      schema,
		Invoke: func(ctx context.Context, args string) (string, error) {
			var arg ArgType
			if err := decodeArgs([]byte(args), &arg); err != nil {
				return "", fmt.Errorf("decode %s arguments %q: %w", name, args, err)
			}
			return fn(ctx, arg)
		},
	}, nil
}

// MustTool is NewTool for statically known argument types.
func MustTool[ArgType any](name, description string, fn func(ctx context.Context, arg ArgType) (string, error)) *Tool {
	t, err := NewTool(name, description, fn)
	if err != nil {
		panic(err)
	}
	return t
}

// Registry maps tool names to callables and exposes their specs for binding
// to the LLM gateway.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]*Tool
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]*Tool)}
}

// Register adds a tool. Registering the same name twice replaces the tool.
func (r *Registry) Register(t *Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[t.Name] = t
}

// Has reports whether a tool name is registered.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.tools[name]
	return ok
}

// Invoke runs the named tool with raw JSON arguments. An unregistered name
// returns ErrToolNotFound; a registered tool with an unknown lookup key
// returns its own "not available" sentinel, never an error.
func (r *Registry) Invoke(ctx context.Context, name, args string) (string, error) {
	r.mu.RLock()
	t, ok := r.tools[name]
	r.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrToolNotFound, name)
	}
	return t.Invoke(ctx, args)
}

// Specs returns the tool definitions for gateway binding, sorted by name so
// prompts are deterministic.
func (r *Registry) Specs() []llm.ToolSpec {
	r.mu.RLock()
	defer r.mu.RUnlock()
	specs := make([]llm.ToolSpec, 0, len(r.tools))
	for _, t := range r.tools {
		specs = append(specs, llm.ToolSpec{
			Name:        t.Name,
			Description: t.Description,
			Parameters:  t.Schema,
		})
	}
	sort.Slice(specs, func(i, j int) bool { return specs[i].Name < specs[j].Name })
	return specs
}

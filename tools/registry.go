package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/hrkit/interviewbot/provider"
)

// NotFoundError is returned when a named tool is not registered.
type NotFoundError struct {
	Name string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("tool not found: %q", e.Name)
}

// Registry manages the declared tools in registration order. It is the
// orchestrator's tool source: Defs lists the schemas offered to the model
// and Execute dispatches a model-requested call.
type Registry struct {
	mu    sync.RWMutex
	order []string
	tools map[string]Tool
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		tools: make(map[string]Tool),
	}
}

// Register adds tools to the registry. Re-registering a name replaces the
// tool but keeps its original position.
func (r *Registry) Register(tools ...Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range tools {
		if _, exists := r.tools[t.Name()]; !exists {
			r.order = append(r.order, t.Name())
		}
		r.tools[t.Name()] = t
	}
}

// Get retrieves a tool by name.
func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

// Names returns the registered tool names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, len(r.order))
	copy(names, r.order)
	return names
}

// Defs returns the tool schemas in registration order.
func (r *Registry) Defs(ctx context.Context) ([]provider.ToolDef, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	defs := make([]provider.ToolDef, 0, len(r.order))
	for _, name := range r.order {
		t := r.tools[name]
		params, err := json.Marshal(t.Parameters())
		if err != nil {
			return nil, fmt.Errorf("marshaling schema for tool %q: %w", name, err)
		}
		defs = append(defs, provider.ToolDef{
			Name:        t.Name(),
			Description: t.Description(),
			Parameters:  params,
		})
	}
	return defs, nil
}

// Execute runs the named tool with the given arguments.
func (r *Registry) Execute(ctx context.Context, name string, args json.RawMessage) (any, error) {
	t, ok := r.Get(name)
	if !ok {
		return nil, &NotFoundError{Name: name}
	}
	return t.Execute(ctx, args)
}

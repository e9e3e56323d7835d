package mcpservice

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/ggoodman/ise-mcp-server-go/schema"
)

var (
	// ErrDuplicateTool is returned when a tool name is registered twice.
	ErrDuplicateTool = errors.New("duplicate tool")
	// ErrToolNotFound is returned for names that were never registered.
	ErrToolNotFound = errors.New("tool not found")
	// ErrRegistrySealed is returned by Register once a Dispatcher owns the registry.
	ErrRegistrySealed = errors.New("tool registry is sealed")
)

// ToolHandler runs one tool. args has already been validated against the
// tool's input schema. The returned value is serialized as the tool's text
// content.
type ToolHandler func(ctx context.Context, args map[string]any) (any, error)

// ToolDefinition describes a callable tool. It is never mutated after
// registration.
type ToolDefinition struct {
	Name        string
	Description string
	InputSchema *schema.Node
}

// Registry holds tool definitions and their handlers in registration order.
// It is populated at start-up; once sealed by NewDispatcher it only serves
// reads and needs no locking on the hot path.
type Registry struct {
	mu       sync.Mutex
	sealed   bool
	order    []string
	defs     map[string]ToolDefinition
	handlers map[string]ToolHandler
}

func NewRegistry() *Registry {
	return &Registry{
		defs:     make(map[string]ToolDefinition),
		handlers: make(map[string]ToolHandler),
	}
}

// Register adds a tool. The schema must be a well-formed object node.
func (r *Registry) Register(def ToolDefinition, handler ToolHandler) error {
	if def.Name == "" {
		return errors.New("tool name is required")
	}
	if handler == nil {
		return fmt.Errorf("tool %q: handler is required", def.Name)
	}
	if def.InputSchema == nil {
		def.InputSchema = schema.Object()
	}
	if def.InputSchema.Type != schema.TypeObject {
		return fmt.Errorf("tool %q: input schema must be an object, got %q", def.Name, def.InputSchema.Type)
	}
	if err := def.InputSchema.Check(); err != nil {
		return fmt.Errorf("tool %q: %w", def.Name, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.sealed {
		return fmt.Errorf("%w: cannot add %q", ErrRegistrySealed, def.Name)
	}
	if _, exists := r.defs[def.Name]; exists {
		return fmt.Errorf("%w: %q", ErrDuplicateTool, def.Name)
	}
	r.order = append(r.order, def.Name)
	r.defs[def.Name] = def
	r.handlers[def.Name] = handler
	return nil
}

// MustRegister is Register for start-up code that cannot continue on error.
func (r *Registry) MustRegister(def ToolDefinition, handler ToolHandler) {
	if err := r.Register(def, handler); err != nil {
		panic(err)
	}
}

// Get returns the definition registered under name.
func (r *Registry) Get(name string) (ToolDefinition, error) {
	def, ok := r.defs[name]
	if !ok {
		return ToolDefinition{}, fmt.Errorf("%w: %q", ErrToolNotFound, name)
	}
	return def, nil
}

// List returns every definition in registration order.
func (r *Registry) List() []ToolDefinition {
	out := make([]ToolDefinition, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.defs[name])
	}
	return out
}

// Len reports the number of registered tools.
func (r *Registry) Len() int { return len(r.order) }

func (r *Registry) handler(name string) ToolHandler { return r.handlers[name] }

func (r *Registry) seal() {
	r.mu.Lock()
	r.sealed = true
	r.mu.Unlock()
}

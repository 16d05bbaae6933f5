package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"fortune-master/backend/internal/adapter"
)

// Tool is a named capability the model may invoke. Implementations are
// stateless from the dispatcher's point of view and own their external I/O.
type Tool interface {
	Name() string
	// Description tells the model when the tool applies
	Description() string
	// Parameters is the JSON Schema object for the tool's arguments
	Parameters() map[string]interface{}
	Invoke(ctx context.Context, args map[string]interface{}) (string, error)
}

type registeredTool struct {
	tool   Tool
	schema *gojsonschema.Schema
}

// Registry is a fixed, ordered set of tools. It is built once and never
// mutated, so it can be shared between sessions.
type Registry struct {
	order  []string
	byName map[string]registeredTool
}

// NewRegistry builds a registry, compiling each tool's schema. Names must be
// non-empty and unique.
func NewRegistry(tools ...Tool) (*Registry, error) {
	r := &Registry{
		order:  make([]string, 0, len(tools)),
		byName: make(map[string]registeredTool, len(tools)),
	}

	for _, t := range tools {
		name := t.Name()
		if strings.TrimSpace(name) == "" {
			return nil, fmt.Errorf("tool with empty name")
		}
		if _, exists := r.byName[name]; exists {
			return nil, fmt.Errorf("duplicate tool name: %s", name)
		}

		schema, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(t.Parameters()))
		if err != nil {
			return nil, fmt.Errorf("invalid parameter schema for %s: %w", name, err)
		}

		r.order = append(r.order, name)
		r.byName[name] = registeredTool{tool: t, schema: schema}
	}

	return r, nil
}

// Lookup finds a tool by exact name
func (r *Registry) Lookup(name string) (Tool, bool) {
	entry, ok := r.byName[name]
	if !ok {
		return nil, false
	}
	return entry.tool, true
}

// Names returns tool names in registration order
func (r *Registry) Names() []string {
	names := make([]string, len(r.order))
	copy(names, r.order)
	return names
}

// Len returns the number of registered tools
func (r *Registry) Len() int {
	return len(r.order)
}

// Definitions returns the function definitions offered to the model
func (r *Registry) Definitions() []adapter.Tool {
	defs := make([]adapter.Tool, 0, len(r.order))
	for _, name := range r.order {
		t := r.byName[name].tool
		defs = append(defs, adapter.Tool{
			Type: "function",
			Function: adapter.FunctionDefinition{
				Name:        t.Name(),
				Description: t.Description(),
				Parameters:  t.Parameters(),
			},
		})
	}
	return defs
}

// Validate checks args against the named tool's declared schema
func (r *Registry) Validate(name string, args map[string]interface{}) error {
	entry, ok := r.byName[name]
	if !ok {
		return fmt.Errorf("tool not registered: %s", name)
	}

	// A nil map encodes as null and fails the object type check
	result, err := entry.schema.Validate(gojsonschema.NewGoLoader(args))
	if err != nil {
		return fmt.Errorf("failed to validate arguments: %w", err)
	}
	if !result.Valid() {
		problems := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			problems = append(problems, e.String())
		}
		return fmt.Errorf("invalid arguments: %s", strings.Join(problems, "; "))
	}
	return nil
}

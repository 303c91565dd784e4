package assistant

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"
)

// Tool defines the interface for a tool
type Tool interface {
	Definition() ToolDefinition
	// Execute runs the tool with arguments that already passed schema
	// validation. Tools with no parameters receive nil.
	Execute(ctx context.Context, args map[string]any) (any, error)
}

type registeredTool struct {
	tool     Tool
	def      ToolDefinition
	resolved *jsonschema.Resolved
}

// ToolRegistry maps tool names to tools. It is fixed at construction.
type ToolRegistry struct {
	tools map[string]*registeredTool
	order []string
}

// NewToolRegistry builds a registry from tools, in the given order
func NewToolRegistry(tools ...Tool) (*ToolRegistry, error) {
	r := &ToolRegistry{
		tools: make(map[string]*registeredTool, len(tools)),
	}
	for _, t := range tools {
		if t == nil {
			return nil, errors.New("tool is nil")
		}
		def := t.Definition()
		name := strings.TrimSpace(def.Name)
		if name == "" {
			return nil, errors.New("tool name is empty")
		}
		if _, ok := r.tools[name]; ok {
			return nil, fmt.Errorf("tool %q already registered", name)
		}
		if def.Parameters == nil {
			def.Parameters = ObjectSchema(nil)
		}
		resolved, err := def.Parameters.Resolve(nil)
		if err != nil {
			return nil, fmt.Errorf("tool %q has an invalid parameter schema: %w", name, err)
		}
		r.tools[name] = &registeredTool{tool: t, def: def, resolved: resolved}
		r.order = append(r.order, name)
	}
	return r, nil
}

// Get retrieves a tool by name
func (r *ToolRegistry) Get(name string) (Tool, bool) {
	rt, ok := r.tools[name]
	if !ok {
		return nil, false
	}
	return rt.tool, true
}

// Names lists the registered tool names in registration order
func (r *ToolRegistry) Names() []string {
	return append([]string(nil), r.order...)
}

// Definitions returns the definitions of all registered tools
func (r *ToolRegistry) Definitions() []ToolDefinition {
	defs := make([]ToolDefinition, 0, len(r.order))
	for _, name := range r.order {
		defs = append(defs, r.tools[name].def)
	}
	return defs
}

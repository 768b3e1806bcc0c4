package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/courseloom/tutor/internal/llm"
)

// Registry holds named tools, exposes their schemas in registration
// order, and dispatches invocations by name.
type Registry struct {
	tools map[string]Tool
	order []string
}

func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]Tool)}
}

// Register adds a tool under its definition name. A nameless definition
// is a programmer error and fails immediately. Re-registering a name
// replaces the tool but keeps its original position, so Definitions
// stays deterministic.
func (r *Registry) Register(tool Tool) error {
	def := tool.Definition()
	if def.Name == "" {
		return errors.New("tool definition must carry a name")
	}
	if _, exists := r.tools[def.Name]; !exists {
		r.order = append(r.order, def.Name)
	}
	r.tools[def.Name] = tool
	return nil
}

// Definitions returns all tool schemas in registration order.
func (r *Registry) Definitions() []llm.Tool {
	defs := make([]llm.Tool, 0, len(r.order))
	for _, name := range r.order {
		defs = append(defs, r.tools[name].Definition())
	}
	return defs
}

// Invoke dispatches one tool call. An unregistered name yields a plain
// "not found" string (nil error) so the model can recover in-turn.
func (r *Registry) Invoke(ctx context.Context, name string, args json.RawMessage) (string, error) {
	tool, ok := r.tools[name]
	if !ok {
		return fmt.Sprintf("Tool '%s' not found", name), nil
	}
	return tool.Execute(ctx, args)
}

// CollectSources returns the first non-empty source list found scanning
// tools in registration order. Lists are not merged across tools: with
// one tool round per query only one tool's attributions are surfaced.
func (r *Registry) CollectSources() []Source {
	for _, name := range r.order {
		if sources := r.tools[name].Sources(); len(sources) > 0 {
			return sources
		}
	}
	return nil
}

// ResetSources clears every registered tool's source list.
func (r *Registry) ResetSources() {
	for _, tool := range r.tools {
		tool.ResetSources()
	}
}

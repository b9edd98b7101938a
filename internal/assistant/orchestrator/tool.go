package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"

	"crm-assistant/internal/common/validation"
	"crm-assistant/internal/models"

	"github.com/sashabaranov/go-openai"
)

// Tool is a function the model may call. Execute receives the raw JSON
// arguments after they have been validated against Parameters.
type Tool interface {
	Name() string
	Description() string
	Parameters() validation.JSONSchema
	Execute(ctx context.Context, caller models.Identity, args json.RawMessage) (string, error)
}

// Registry keeps tools in registration order so tool definitions are sent
// to the model deterministically.
type Registry struct {
	tools map[string]Tool
	order []string
}

func NewRegistry(tools ...Tool) *Registry {
	r := &Registry{tools: make(map[string]Tool, len(tools))}
	for _, t := range tools {
		r.Register(t)
	}
	return r
}

// Register panics on duplicate names; registration happens at startup.
func (r *Registry) Register(t Tool) {
	name := t.Name()
	if _, exists := r.tools[name]; exists {
		panic(fmt.Sprintf("tool %q registered twice", name))
	}
	r.tools[name] = t
	r.order = append(r.order, name)
}

func (r *Registry) Get(name string) (Tool, bool) {
	t, ok := r.tools[name]
	return t, ok
}

func (r *Registry) Names() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Definitions renders the registered tools in the chat-completion format.
func (r *Registry) Definitions() []openai.Tool {
	defs := make([]openai.Tool, 0, len(r.order))
	for _, name := range r.order {
		t := r.tools[name]
		defs = append(defs, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        t.Name(),
				Description: t.Description(),
				Parameters:  t.Parameters().Map(),
			},
		})
	}
	return defs
}

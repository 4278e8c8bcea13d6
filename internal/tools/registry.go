// Package tools is the read-only capability surface offered to the agent.
// Every capability validates its own arguments through the guardrail
// enforcer and reports violations as errors, never as partial data.
package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/MrJamesThe3rd/spendsight/internal/audit"
	"github.com/MrJamesThe3rd/spendsight/internal/llm"
)

var ErrUnknownTool = errors.New("unknown tool")

type Tool interface {
	Name() string
	Description() string
	// Parameters is the JSON schema of the arguments object.
	Parameters() map[string]any
	Execute(ctx context.Context, args json.RawMessage) (json.RawMessage, error)
}

// Failure is a capability error as the agent sees it.
type Failure struct {
	Tool string
	Err  error
}

func (f *Failure) Error() string {
	return fmt.Sprintf("%s: %v", f.Tool, f.Err)
}

func (f *Failure) Unwrap() error {
	return f.Err
}

// Registry holds the tools in registration order, which is also the order
// they are described to the model.
type Registry struct {
	tools   []Tool
	byName  map[string]Tool
	emitter audit.Emitter
}

func NewRegistry(emitter audit.Emitter, tools ...Tool) *Registry {
	if emitter == nil {
		emitter = audit.Nop{}
	}

	r := &Registry{byName: make(map[string]Tool), emitter: emitter}
	for _, t := range tools {
		r.Register(t)
	}

	return r
}

// Register adds t, replacing any tool with the same name.
func (r *Registry) Register(t Tool) {
	if _, exists := r.byName[t.Name()]; !exists {
		r.tools = append(r.tools, t)
	} else {
		for i, existing := range r.tools {
			if existing.Name() == t.Name() {
				r.tools[i] = t
			}
		}
	}

	r.byName[t.Name()] = t
}

func (r *Registry) Get(name string) (Tool, bool) {
	t, ok := r.byName[name]
	return t, ok
}

func (r *Registry) List() []Tool {
	return append([]Tool(nil), r.tools...)
}

// Descriptors returns the tools in the shape the language model consumes.
func (r *Registry) Descriptors() []llm.Tool {
	out := make([]llm.Tool, 0, len(r.tools))
	for _, t := range r.tools {
		out = append(out, llm.Tool{
			Name:        t.Name(),
			Description: t.Description(),
			Parameters:  t.Parameters(),
		})
	}

	return out
}

// Invoke runs one tool call and audits it. Any error, including an unknown
// tool name, comes back as a *Failure.
func (r *Registry) Invoke(ctx context.Context, name string, args json.RawMessage) (json.RawMessage, error) {
	r.emitter.Emit(ctx, audit.Event{Type: audit.CapabilityCall, Tool: name, Args: compact(args)})

	t, ok := r.byName[name]
	if !ok {
		return nil, r.fail(ctx, name, ErrUnknownTool)
	}

	result, err := t.Execute(ctx, args)
	if err != nil {
		return nil, r.fail(ctx, name, err)
	}

	r.emitter.Emit(ctx, audit.Event{Type: audit.CapabilityResult, Tool: name, Detail: fmt.Sprintf("%d bytes", len(result))})

	return result, nil
}

func (r *Registry) fail(ctx context.Context, name string, err error) error {
	r.emitter.Emit(ctx, audit.Event{Type: audit.CapabilityError, Tool: name, Detail: err.Error()})
	return &Failure{Tool: name, Err: err}
}

// compact drops arguments that are not valid JSON so the audit line stays parseable.
func compact(args json.RawMessage) json.RawMessage {
	if !json.Valid(args) {
		return nil
	}

	return args
}

// ErrorResult is the tool message sent back to the model for a failed call.
func ErrorResult(err error) json.RawMessage {
	msg := err.Error()

	var f *Failure
	if errors.As(err, &f) {
		msg = f.Err.Error()
	}

	b, _ := json.Marshal(map[string]string{"error": msg})

	return b
}

func decodeArgs(args json.RawMessage, v any) error {
	if len(args) == 0 {
		args = json.RawMessage("{}")
	}

	if err := json.Unmarshal(args, v); err != nil {
		return fmt.Errorf("invalid arguments: %w", err)
	}

	return nil
}

// Package agent runs the bounded tool-calling loop between the language model
// and the capability surface:
//
//	Planning -> (ToolInvoking <-> Planning) -> Summarizing -> Done
//
// The model decides which tools to call and in what order. The loop decides
// how often it may ask, feeds every tool error back as a tool result and never
// retries a call on its own.
package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/MrJamesThe3rd/spendsight/internal/audit"
	"github.com/MrJamesThe3rd/spendsight/internal/llm"
	"github.com/MrJamesThe3rd/spendsight/internal/memory"
	"github.com/MrJamesThe3rd/spendsight/internal/tools"
)

const DefaultMaxIterations = 8

// ShortfallText is returned when the iteration bound is hit and the model
// gives no summary either.
const ShortfallText = "I could not gather enough information to complete this analysis " +
	"within the allowed number of steps, so no figures are reported."

const summarizeInstruction = "You have reached the maximum number of tool calls. " +
	"Do not request any more tools. Answer now using only the data already returned, " +
	"and state clearly which parts of the request you could not complete."

var ErrEmptyResponse = errors.New("model returned an empty response")

type State int

const (
	Planning State = iota
	ToolInvoking
	Summarizing
	Done
)

func (s State) String() string {
	switch s {
	case Planning:
		return "planning"
	case ToolInvoking:
		return "tool_invoking"
	case Summarizing:
		return "summarizing"
	case Done:
		return "done"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Invoker is the capability surface as the loop sees it.
type Invoker interface {
	Descriptors() []llm.Tool
	Invoke(ctx context.Context, name string, args json.RawMessage) (json.RawMessage, error)
}

type Config struct {
	Model       string
	Temperature float64
	MaxTokens   int
	// MaxIterations bounds the number of model turns that may request tools.
	MaxIterations int
}

type Loop struct {
	provider llm.Provider
	tools    Invoker
	cfg      Config
	emitter  audit.Emitter
	logger   *slog.Logger
}

func New(provider llm.Provider, tools Invoker, cfg Config, emitter audit.Emitter, logger *slog.Logger) *Loop {
	if cfg.MaxIterations <= 0 {
		cfg.MaxIterations = DefaultMaxIterations
	}

	if emitter == nil {
		emitter = audit.Nop{}
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &Loop{provider: provider, tools: tools, cfg: cfg, emitter: emitter, logger: logger}
}

type Input struct {
	System string
	Prompt string
	// Conversation is optional history read before the prompt. Run never
	// writes to it; the caller stores the turn once the answer is vetted.
	Conversation memory.Conversation
}

// Call is one capability invocation made during a run.
type Call struct {
	Name      string
	Arguments json.RawMessage
	Result    json.RawMessage
	Err       error
}

type Result struct {
	Text       string
	Iterations int
	Calls      []Call
	// Exhausted reports that the iteration bound ended tool use.
	Exhausted bool
}

// Failures lists the failed calls as "tool: message".
func (r *Result) Failures() []string {
	var out []string

	for _, c := range r.Calls {
		if c.Err != nil {
			out = append(out, fmt.Sprintf("%s: %s", c.Name, errorMessage(c.Err)))
		}
	}

	return out
}

type run struct {
	*Loop
	messages []llm.Message
	pending  []llm.ToolCall
	result   *Result
}

func (l *Loop) Run(ctx context.Context, in Input) (*Result, error) {
	r := &run{Loop: l, result: &Result{}}

	if in.System != "" {
		r.messages = append(r.messages, llm.Message{Role: llm.RoleSystem, Content: in.System})
	}

	if in.Conversation != nil {
		history, err := in.Conversation.Messages(ctx)
		if err != nil {
			l.logger.Warn("failed to load conversation, continuing without it", "error", err)
		}

		r.messages = append(r.messages, history...)
	}

	r.messages = append(r.messages, llm.Message{Role: llm.RoleUser, Content: in.Prompt})

	state := Planning
	for state != Done {
		var err error

		l.logger.Debug("agent step", "state", state, "iteration", r.result.Iterations)

		switch state {
		case Planning:
			state, err = r.plan(ctx)
		case ToolInvoking:
			state, err = r.invoke(ctx)
		case Summarizing:
			state, err = r.summarize(ctx)
		}

		if err != nil {
			return nil, err
		}
	}

	return r.result, nil
}

func (r *run) plan(ctx context.Context) (State, error) {
	if r.result.Iterations >= r.cfg.MaxIterations {
		r.result.Exhausted = true
		r.emitter.Emit(ctx, audit.Event{
			Type:   audit.IterationsExhausted,
			Detail: fmt.Sprintf("%d iterations", r.result.Iterations),
		})

		return Summarizing, nil
	}

	r.result.Iterations++

	resp, err := r.generate(ctx, r.tools.Descriptors())
	if err != nil {
		return Done, err
	}

	if len(resp.ToolCalls) > 0 {
		r.messages = append(r.messages, llm.Message{
			Role:      llm.RoleAssistant,
			Content:   resp.Content,
			ToolCalls: resp.ToolCalls,
		})
		r.pending = resp.ToolCalls

		return ToolInvoking, nil
	}

	text := strings.TrimSpace(resp.Content)
	if text == "" {
		return Done, ErrEmptyResponse
	}

	r.result.Text = text

	return Done, nil
}

// invoke runs the pending calls one at a time, in the order requested.
func (r *run) invoke(ctx context.Context) (State, error) {
	for _, tc := range r.pending {
		if err := ctx.Err(); err != nil {
			return Done, fmt.Errorf("invoking %s: %w", tc.Name, err)
		}

		out, err := r.tools.Invoke(ctx, tc.Name, tc.Arguments)

		call := Call{Name: tc.Name, Arguments: tc.Arguments, Result: out, Err: err}
		if err != nil {
			r.logger.Warn("capability call failed", "tool", tc.Name, "error", err)
			out = tools.ErrorResult(err)
		}

		r.result.Calls = append(r.result.Calls, call)
		r.messages = append(r.messages, llm.Message{
			Role:       llm.RoleTool,
			Content:    string(out),
			ToolCallID: tc.ID,
			Name:       tc.Name,
		})
	}

	r.pending = nil

	if err := ctx.Err(); err != nil {
		return Done, fmt.Errorf("invoking tools: %w", err)
	}

	return Planning, nil
}

// summarize asks once more, without tools, for a best-effort answer.
func (r *run) summarize(ctx context.Context) (State, error) {
	r.messages = append(r.messages, llm.Message{Role: llm.RoleUser, Content: summarizeInstruction})

	resp, err := r.generate(ctx, nil)
	if err != nil {
		return Done, err
	}

	// Tool calls requested here are ignored; any text that came with them
	// is still the summary.
	r.result.Text = strings.TrimSpace(resp.Content)
	if r.result.Text == "" {
		r.result.Text = ShortfallText
	}

	return Done, nil
}

func (r *run) generate(ctx context.Context, descriptors []llm.Tool) (*llm.Response, error) {
	resp, err := r.provider.Generate(ctx, &llm.Request{
		Model:       r.cfg.Model,
		Messages:    r.messages,
		Temperature: r.cfg.Temperature,
		MaxTokens:   r.cfg.MaxTokens,
		Tools:       descriptors,
	})
	if err != nil {
		return nil, fmt.Errorf("generating response: %w", err)
	}

	return resp, nil
}

func errorMessage(err error) string {
	var f *tools.Failure
	if errors.As(err, &f) {
		return f.Err.Error()
	}

	return err.Error()
}

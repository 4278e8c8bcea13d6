// Package llm is the boundary to the language generation service. Providers
// translate a provider-neutral chat request, including tool descriptors and
// tool results, into a backend call and back.
package llm

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

const DefaultTimeout = 60 * time.Second

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

var (
	ErrUnknownProvider = errors.New("unknown llm provider")
	ErrNoChoices       = errors.New("no choices returned")
)

//go:generate mockgen -source=provider.go -destination=provider_mock.go -package=llm
type Provider interface {
	// Name returns the provider identifier (e.g. "openai", "gemini").
	Name() string
	// Generate sends one chat turn and returns either text or tool calls.
	Generate(ctx context.Context, req *Request) (*Response, error)
}

type Request struct {
	Model       string
	Messages    []Message
	Temperature float64
	MaxTokens   int
	// Tools is empty when the model must answer in text.
	Tools []Tool
}

type Message struct {
	Role    string
	Content string
	// ToolCalls is set on assistant messages that requested tools.
	ToolCalls []ToolCall
	// ToolCallID and Name are set on tool result messages.
	ToolCallID string
	Name       string
}

// Tool describes a callable capability. Parameters is a JSON schema object.
type Tool struct {
	Name        string
	Description string
	Parameters  map[string]any
}

type Response struct {
	Content      string
	FinishReason string
	InputTokens  int
	OutputTokens int
	Model        string
	ToolCalls    []ToolCall
}

type ToolCall struct {
	ID        string
	Name      string
	Arguments json.RawMessage
}

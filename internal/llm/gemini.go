package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"google.golang.org/genai"
)

const (
	geminiRoleUser  = "user"
	geminiRoleModel = "model"
)

type GeminiProvider struct {
	client  *genai.Client
	timeout time.Duration
}

// NewGeminiProvider builds a Gemini API client. baseURL is optional.
func NewGeminiProvider(ctx context.Context, apiKey, baseURL string, timeout time.Duration) (*GeminiProvider, error) {
	cfg := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	if baseURL != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: baseURL}
	}

	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return &GeminiProvider{client: client, timeout: timeout}, nil
}

func (p *GeminiProvider) Name() string {
	return "gemini"
}

func (p *GeminiProvider) Generate(ctx context.Context, req *Request) (*Response, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	system, contents := toGeminiContents(req.Messages)

	cfg := &genai.GenerateContentConfig{
		SystemInstruction: system,
		Temperature:       genai.Ptr(float32(req.Temperature)),
		MaxOutputTokens:   int32(req.MaxTokens),
	}

	if len(req.Tools) > 0 {
		decls := make([]*genai.FunctionDeclaration, 0, len(req.Tools))
		for _, t := range req.Tools {
			decls = append(decls, &genai.FunctionDeclaration{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  toGeminiSchema(t.Parameters),
			})
		}

		cfg.Tools = []*genai.Tool{{FunctionDeclarations: decls}}
	}

	resp, err := p.client.Models.GenerateContent(ctx, req.Model, contents, cfg)
	if err != nil {
		return nil, fmt.Errorf("gemini generate content: %w", err)
	}

	return fromGeminiResponse(resp, req.Model)
}

// toGeminiContents lifts system messages into the system instruction and maps
// tool results to function responses. Consecutive tool results share a turn.
func toGeminiContents(msgs []Message) (*genai.Content, []*genai.Content) {
	var (
		system   []string
		contents []*genai.Content
	)

	for _, msg := range msgs {
		switch msg.Role {
		case RoleSystem:
			system = append(system, msg.Content)

		case RoleAssistant:
			c := &genai.Content{Role: geminiRoleModel}
			if msg.Content != "" {
				c.Parts = append(c.Parts, &genai.Part{Text: msg.Content})
			}

			for _, tc := range msg.ToolCalls {
				c.Parts = append(c.Parts, &genai.Part{FunctionCall: &genai.FunctionCall{
					ID:   tc.ID,
					Name: tc.Name,
					Args: decodeObject(tc.Arguments, "args"),
				}})
			}

			contents = append(contents, c)

		case RoleTool:
			part := &genai.Part{FunctionResponse: &genai.FunctionResponse{
				ID:       msg.ToolCallID,
				Name:     msg.Name,
				Response: decodeObject(json.RawMessage(msg.Content), "output"),
			}}

			if n := len(contents); n > 0 && isFunctionResponseTurn(contents[n-1]) {
				contents[n-1].Parts = append(contents[n-1].Parts, part)
				continue
			}

			contents = append(contents, &genai.Content{Role: geminiRoleUser, Parts: []*genai.Part{part}})

		default:
			contents = append(contents, &genai.Content{
				Role:  geminiRoleUser,
				Parts: []*genai.Part{{Text: msg.Content}},
			})
		}
	}

	if len(system) == 0 {
		return nil, contents
	}

	return &genai.Content{Parts: []*genai.Part{{Text: strings.Join(system, "\n\n")}}}, contents
}

func isFunctionResponseTurn(c *genai.Content) bool {
	return c.Role == geminiRoleUser && len(c.Parts) > 0 && c.Parts[0].FunctionResponse != nil
}

// decodeObject returns raw as a JSON object, wrapping anything else under key.
func decodeObject(raw json.RawMessage, key string) map[string]any {
	var obj map[string]any
	if err := json.Unmarshal(raw, &obj); err == nil && obj != nil {
		return obj
	}

	return map[string]any{key: string(raw)}
}

func fromGeminiResponse(resp *genai.GenerateContentResponse, model string) (*Response, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return nil, fmt.Errorf("gemini generate content: %w", ErrNoChoices)
	}

	out := &Response{
		FinishReason: string(resp.Candidates[0].FinishReason),
		Model:        model,
	}

	if resp.ModelVersion != "" {
		out.Model = resp.ModelVersion
	}

	if resp.UsageMetadata != nil {
		out.InputTokens = int(resp.UsageMetadata.PromptTokenCount)
		out.OutputTokens = int(resp.UsageMetadata.CandidatesTokenCount)
	}

	calls := resp.FunctionCalls()
	for i, fc := range calls {
		args, err := json.Marshal(fc.Args)
		if err != nil {
			return nil, fmt.Errorf("encoding function call args: %w", err)
		}

		if fc.Args == nil {
			args = json.RawMessage("{}")
		}

		id := fc.ID
		if id == "" {
			id = fmt.Sprintf("%s-%d", fc.Name, i)
		}

		out.ToolCalls = append(out.ToolCalls, ToolCall{ID: id, Name: fc.Name, Arguments: args})
	}

	if len(calls) == 0 {
		out.Content = resp.Text()
	}

	return out, nil
}

// toGeminiSchema converts the JSON schema subset the tools use.
func toGeminiSchema(schema map[string]any) *genai.Schema {
	if schema == nil {
		return nil
	}

	s := &genai.Schema{}

	if t, ok := schema["type"].(string); ok {
		s.Type = genai.Type(strings.ToUpper(t))
	}

	if d, ok := schema["description"].(string); ok {
		s.Description = d
	}

	if f, ok := schema["format"].(string); ok {
		s.Format = f
	}

	if props, ok := schema["properties"].(map[string]any); ok {
		s.Properties = make(map[string]*genai.Schema, len(props))
		for name, p := range props {
			if pm, ok := p.(map[string]any); ok {
				s.Properties[name] = toGeminiSchema(pm)
			}
		}
	}

	switch req := schema["required"].(type) {
	case []string:
		s.Required = req
	case []any:
		for _, r := range req {
			if name, ok := r.(string); ok {
				s.Required = append(s.Required, name)
			}
		}
	}

	if items, ok := schema["items"].(map[string]any); ok {
		s.Items = toGeminiSchema(items)
	}

	return s
}

package agent_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/MrJamesThe3rd/spendsight/internal/agent"
	"github.com/MrJamesThe3rd/spendsight/internal/llm"
	"github.com/MrJamesThe3rd/spendsight/internal/memory"
	"github.com/MrJamesThe3rd/spendsight/internal/tools"
)

type fakeInvoker struct {
	calls   []string
	results map[string]json.RawMessage
	errs    map[string]error
}

func (f *fakeInvoker) Descriptors() []llm.Tool {
	return []llm.Tool{{Name: "get_monthly_total"}, {Name: "get_transactions"}}
}

func (f *fakeInvoker) Invoke(_ context.Context, name string, _ json.RawMessage) (json.RawMessage, error) {
	f.calls = append(f.calls, name)

	if err, ok := f.errs[name]; ok {
		return nil, &tools.Failure{Tool: name, Err: err}
	}

	return f.results[name], nil
}

func toolCall(id, name string) *llm.Response {
	return &llm.Response{ToolCalls: []llm.ToolCall{{ID: id, Name: name, Arguments: json.RawMessage(`{}`)}}}
}

func text(s string) *llm.Response {
	return &llm.Response{Content: s}
}

var cfg = agent.Config{Model: "test-model", Temperature: 0.2, MaxTokens: 512, MaxIterations: 4}

func TestLoop_AnswersWithoutTools(t *testing.T) {
	ctrl := gomock.NewController(t)
	provider := llm.NewMockProvider(ctrl)
	conv := memory.NewWindow(20)

	provider.EXPECT().
		Generate(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, req *llm.Request) (*llm.Response, error) {
			require.Len(t, req.Messages, 2)
			assert.Equal(t, llm.RoleSystem, req.Messages[0].Role)
			assert.Equal(t, "test-model", req.Model)
			assert.Len(t, req.Tools, 2)

			return text("  Nothing to report.  "), nil
		})

	got, err := agent.New(provider, &fakeInvoker{}, cfg, nil, nil).Run(context.Background(), agent.Input{
		System:       "rules",
		Prompt:       "hello",
		Conversation: conv,
	})
	require.NoError(t, err)

	assert.Equal(t, "Nothing to report.", got.Text)
	assert.Equal(t, 1, got.Iterations)
	assert.False(t, got.Exhausted)

	saved, _ := conv.Messages(context.Background())
	assert.Empty(t, saved)
}

func TestLoop_FeedsToolResultsBack(t *testing.T) {
	ctrl := gomock.NewController(t)
	provider := llm.NewMockProvider(ctrl)
	invoker := &fakeInvoker{results: map[string]json.RawMessage{
		"get_monthly_total": json.RawMessage(`{"total":"2630.50"}`),
		"get_transactions":  json.RawMessage(`{"count":5}`),
	}}

	gomock.InOrder(
		provider.EXPECT().Generate(gomock.Any(), gomock.Any()).Return(toolCall("c1", "get_monthly_total"), nil),
		provider.EXPECT().Generate(gomock.Any(), gomock.Any()).Return(toolCall("c2", "get_transactions"), nil),
		provider.EXPECT().
			Generate(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, req *llm.Request) (*llm.Response, error) {
				last := req.Messages[len(req.Messages)-1]
				assert.Equal(t, llm.RoleTool, last.Role)
				assert.Equal(t, "c2", last.ToolCallID)
				assert.Equal(t, `{"count":5}`, last.Content)

				return text("Travel was the largest category."), nil
			}),
	)

	got, err := agent.New(provider, invoker, cfg, nil, nil).Run(context.Background(), agent.Input{Prompt: "analyse"})
	require.NoError(t, err)

	assert.Equal(t, "Travel was the largest category.", got.Text)
	assert.Equal(t, 3, got.Iterations)
	assert.Equal(t, []string{"get_monthly_total", "get_transactions"}, invoker.calls)
	require.Len(t, got.Calls, 2)
	assert.Empty(t, got.Failures())
}

func TestLoop_ToolErrorIsReportedNotRetried(t *testing.T) {
	ctrl := gomock.NewController(t)
	provider := llm.NewMockProvider(ctrl)
	invoker := &fakeInvoker{errs: map[string]error{"get_transactions": errors.New("store unavailable")}}

	gomock.InOrder(
		provider.EXPECT().Generate(gomock.Any(), gomock.Any()).Return(toolCall("c1", "get_transactions"), nil),
		provider.EXPECT().
			Generate(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, req *llm.Request) (*llm.Response, error) {
				last := req.Messages[len(req.Messages)-1]
				assert.JSONEq(t, `{"error":"store unavailable"}`, last.Content)

				return text("I was unable to retrieve your transactions."), nil
			}),
	)

	got, err := agent.New(provider, invoker, cfg, nil, nil).Run(context.Background(), agent.Input{Prompt: "analyse"})
	require.NoError(t, err)

	assert.Equal(t, []string{"get_transactions"}, invoker.calls)
	assert.Equal(t, []string{"get_transactions: store unavailable"}, got.Failures())
}

func TestLoop_IterationBoundSummarizes(t *testing.T) {
	ctrl := gomock.NewController(t)
	provider := llm.NewMockProvider(ctrl)
	invoker := &fakeInvoker{results: map[string]json.RawMessage{"get_monthly_total": json.RawMessage(`{}`)}}

	bounded := cfg
	bounded.MaxIterations = 2

	gomock.InOrder(
		provider.EXPECT().Generate(gomock.Any(), gomock.Any()).Return(toolCall("c1", "get_monthly_total"), nil).Times(2),
		provider.EXPECT().
			Generate(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, req *llm.Request) (*llm.Response, error) {
				assert.Empty(t, req.Tools)
				return text("Only the monthly total could be checked."), nil
			}),
	)

	got, err := agent.New(provider, invoker, bounded, nil, nil).Run(context.Background(), agent.Input{Prompt: "analyse"})
	require.NoError(t, err)

	assert.True(t, got.Exhausted)
	assert.Equal(t, 2, got.Iterations)
	assert.Equal(t, "Only the monthly total could be checked.", got.Text)
}

func TestLoop_IterationBoundSummaryResponse(t *testing.T) {
	type testCase struct {
		name    string
		summary *llm.Response
		want    string
	}

	tests := []testCase{
		{
			name:    "EmptyFallsBack",
			summary: text(""),
			want:    agent.ShortfallText,
		},
		{
			name:    "ToolCallsWithoutTextFallBack",
			summary: toolCall("c2", "get_transactions"),
			want:    agent.ShortfallText,
		},
		{
			name: "TextWithToolCallsIsKept",
			summary: &llm.Response{
				Content:   " Spending rose 12% on Travel. ",
				ToolCalls: []llm.ToolCall{{ID: "c2", Name: "get_transactions", Arguments: json.RawMessage(`{}`)}},
			},
			want: "Spending rose 12% on Travel.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			provider := llm.NewMockProvider(ctrl)
			invoker := &fakeInvoker{}

			bounded := cfg
			bounded.MaxIterations = 1

			gomock.InOrder(
				provider.EXPECT().Generate(gomock.Any(), gomock.Any()).Return(toolCall("c1", "get_monthly_total"), nil),
				provider.EXPECT().Generate(gomock.Any(), gomock.Any()).Return(tt.summary, nil),
			)

			got, err := agent.New(provider, invoker, bounded, nil, nil).Run(context.Background(), agent.Input{Prompt: "analyse"})
			require.NoError(t, err)

			assert.True(t, got.Exhausted)
			assert.Equal(t, tt.want, got.Text)
			assert.Equal(t, []string{"get_monthly_total"}, invoker.calls)
		})
	}
}

func TestLoop_Errors(t *testing.T) {
	type testCase struct {
		name    string
		resp    *llm.Response
		genErr  error
		wantErr error
	}

	providerErr := errors.New("rate limited")

	tests := []testCase{
		{name: "ProviderError", genErr: providerErr, wantErr: providerErr},
		{name: "EmptyAnswer", resp: text("   "), wantErr: agent.ErrEmptyResponse},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			provider := llm.NewMockProvider(ctrl)
			conv := memory.NewWindow(20)

			provider.EXPECT().Generate(gomock.Any(), gomock.Any()).Return(tt.resp, tt.genErr)

			got, err := agent.New(provider, &fakeInvoker{}, cfg, nil, nil).Run(context.Background(), agent.Input{
				Prompt:       "analyse",
				Conversation: conv,
			})
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Nil(t, got)

			saved, _ := conv.Messages(context.Background())
			assert.Empty(t, saved)
		})
	}
}

func TestLoop_CancelledDuringTools(t *testing.T) {
	ctrl := gomock.NewController(t)
	provider := llm.NewMockProvider(ctrl)

	ctx, cancel := context.WithCancel(context.Background())

	provider.EXPECT().
		Generate(gomock.Any(), gomock.Any()).
		DoAndReturn(func(context.Context, *llm.Request) (*llm.Response, error) {
			cancel()
			return toolCall("c1", "get_monthly_total"), nil
		})

	_, err := agent.New(provider, &fakeInvoker{}, cfg, nil, nil).Run(ctx, agent.Input{Prompt: "analyse"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLoop_UsesConversationHistory(t *testing.T) {
	ctrl := gomock.NewController(t)
	provider := llm.NewMockProvider(ctrl)
	conv := memory.NewWindow(20)

	require.NoError(t, conv.Append(context.Background(),
		llm.Message{Role: llm.RoleUser, Content: "earlier question"},
		llm.Message{Role: llm.RoleAssistant, Content: "earlier answer"},
	))

	provider.EXPECT().
		Generate(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, req *llm.Request) (*llm.Response, error) {
			require.Len(t, req.Messages, 3)
			assert.Equal(t, "earlier question", req.Messages[0].Content)
			assert.Equal(t, "follow up", req.Messages[2].Content)

			return text("answer"), nil
		})

	_, err := agent.New(provider, &fakeInvoker{}, cfg, nil, nil).Run(context.Background(), agent.Input{
		Prompt:       "follow up",
		Conversation: conv,
	})
	require.NoError(t, err)

	saved, _ := conv.Messages(context.Background())
	assert.Len(t, saved, 2)
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "planning", agent.Planning.String())
	assert.Equal(t, "tool_invoking", agent.ToolInvoking.String())
	assert.Equal(t, "summarizing", agent.Summarizing.String())
	assert.Equal(t, "done", agent.Done.String())
}

package insight_test

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/MrJamesThe3rd/spendsight/internal/agent"
	"github.com/MrJamesThe3rd/spendsight/internal/guardrail"
	"github.com/MrJamesThe3rd/spendsight/internal/insight"
	"github.com/MrJamesThe3rd/spendsight/internal/llm"
	"github.com/MrJamesThe3rd/spendsight/internal/memory"
	"github.com/MrJamesThe3rd/spendsight/internal/summary"
	"github.com/MrJamesThe3rd/spendsight/internal/tools"
	"github.com/MrJamesThe3rd/spendsight/internal/transaction"
)

func fixedClock() time.Time {
	return time.Date(2025, 11, 15, 10, 0, 0, 0, time.UTC)
}

type runnerFunc func(ctx context.Context, in agent.Input) (*agent.Result, error)

func (f runnerFunc) Run(ctx context.Context, in agent.Input) (*agent.Result, error) {
	return f(ctx, in)
}

type fixture struct {
	repo     *transaction.MockRepository
	provider *llm.MockProvider
	store    *memory.InMemoryStore
	service  *insight.Service
}

func newFixture(t *testing.T, limits guardrail.Limits) *fixture {
	t.Helper()

	ctrl := gomock.NewController(t)
	repo := transaction.NewMockRepository(ctrl)
	provider := llm.NewMockProvider(ctrl)

	guard := guardrail.New(limits, fixedClock)
	registry := tools.NewRegistry(nil,
		tools.NewMonthlyTotal(guard, summary.NewService(repo)),
		tools.NewTransactions(transaction.NewService(repo, guard, nil), nil),
	)
	loop := agent.New(provider, registry, agent.Config{Model: "test-model", MaxIterations: 6}, nil, nil)
	store := memory.NewInMemoryStore(20, 10)

	return &fixture{
		repo:     repo,
		provider: provider,
		store:    store,
		service:  insight.NewService(guard, loop, store, nil, nil, time.Second),
	}
}

func novemberTransactions() []*transaction.Transaction {
	rows := []struct {
		amount, category, merchant string
	}{
		{"120.50", "Dining", "Hawker Centre"},
		{"580.00", "Shopping", "Takashimaya"},
		{"320.00", "Groceries", "FairPrice"},
		{"1400.00", "Travel", "Singapore Airlines"},
		{"210.00", "Transport", "Grab"},
	}

	txs := make([]*transaction.Transaction, len(rows))
	for i, r := range rows {
		txs[i] = &transaction.Transaction{
			ID:        int64(i + 1),
			AccountID: "A123",
			Amount:    decimal.RequireFromString(r.amount),
			Category:  r.category,
			Merchant:  r.merchant,
			Date:      time.Date(2025, 11, 3+i, 0, 0, 0, 0, time.UTC),
		}
	}

	return txs
}

func call(id, name, args string) *llm.Response {
	return &llm.Response{ToolCalls: []llm.ToolCall{{ID: id, Name: name, Arguments: json.RawMessage(args)}}}
}

const (
	totalArgs        = `{"account_id":"A123","year":2025,"month":11}`
	transactionsArgs = `{"account_id":"A123","from_date":"2025-11-01","to_date":"2025-11-30"}`
)

// scriptedRun expects the model to ask for the total, then the listing, then
// answer with text. Tool results are collected into seen.
func (f *fixture) scriptedRun(answer string, seen *[]string) {
	gomock.InOrder(
		f.provider.EXPECT().Generate(gomock.Any(), gomock.Any()).Return(call("c1", "get_monthly_total", totalArgs), nil),
		f.provider.EXPECT().
			Generate(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, req *llm.Request) (*llm.Response, error) {
				*seen = append(*seen, req.Messages[len(req.Messages)-1].Content)
				return call("c2", "get_transactions", transactionsArgs), nil
			}),
		f.provider.EXPECT().
			Generate(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, req *llm.Request) (*llm.Response, error) {
				*seen = append(*seen, req.Messages[len(req.Messages)-1].Content)
				return &llm.Response{Content: answer}, nil
			}),
	)
}

func TestService_Generate_ValidationBeforeAgent(t *testing.T) {
	type testCase struct {
		name      string
		accountID string
		year      int
		month     int
		want      error
	}

	tests := []testCase{
		{name: "BadAccount", accountID: "A-1", year: 2025, month: 11, want: guardrail.ErrInvalidAccountID},
		{name: "OldYear", accountID: "A123", year: 2019, month: 11, want: guardrail.ErrInvalidYear},
		{name: "FutureYear", accountID: "A123", year: 2026, month: 1, want: guardrail.ErrInvalidYear},
		{name: "BadMonth", accountID: "A123", year: 2025, month: 13, want: guardrail.ErrInvalidMonth},
		{name: "FutureMonth", accountID: "A123", year: 2025, month: 12, want: guardrail.ErrFutureMonth},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, guardrail.DefaultLimits())

			_, err := f.service.Generate(context.Background(), "s1", tt.accountID, tt.year, tt.month)
			assert.ErrorIs(t, err, tt.want)

			var genErr *insight.GenerationError
			assert.False(t, errors.As(err, &genErr))
		})
	}
}

func TestService_Generate_RedactsAccountID(t *testing.T) {
	f := newFixture(t, guardrail.DefaultLimits())
	f.repo.EXPECT().Find(gomock.Any(), "A123", gomock.Any(), gomock.Any()).Return(novemberTransactions(), nil).Times(2)

	var seen []string
	f.scriptedRun("Account A123 spent 2630.50 in November. Travel at Singapore Airlines (1400.00) is over 40% of the total for A123.", &seen)

	got, err := f.service.Generate(context.Background(), "s1", "A123", 2025, 11)
	require.NoError(t, err)

	assert.NotContains(t, got, "A123")
	assert.True(t, strings.HasPrefix(got, "Your account spent 2630.50"))
	assert.JSONEq(t, `{"year":2025,"month":11,"from_date":"2025-11-01","to_date":"2025-11-30","total":"2630.50"}`, seen[0])

	saved, err := f.store.Conversation("s1").Messages(context.Background())
	require.NoError(t, err)
	require.Len(t, saved, 2)
	assert.Equal(t, llm.RoleUser, saved[0].Role)
	assert.Equal(t, got, saved[1].Content)

	for _, m := range saved {
		assert.NotContains(t, m.Content, "A123")
	}
}

func TestService_Generate_RedactsShortAccountIDs(t *testing.T) {
	guard := guardrail.New(guardrail.DefaultLimits(), fixedClock)

	for _, id := range []string{"acc", "count", "this", "a", "t", "un"} {
		t.Run(id, func(t *testing.T) {
			echo := runnerFunc(func(context.Context, agent.Input) (*agent.Result, error) {
				return &agent.Result{Text: "Spending on " + id + " rose 12% in November."}, nil
			})
			store := memory.NewInMemoryStore(20, 10)

			got, err := insight.NewService(guard, echo, store, nil, nil, 0).Generate(context.Background(), "s1", id, 2025, 11)
			require.NoError(t, err)
			assert.NotContains(t, got, id)

			saved, err := store.Conversation("s1").Messages(context.Background())
			require.NoError(t, err)

			for _, m := range saved {
				assert.NotContains(t, m.Content, id)
			}
		})
	}
}

func TestService_ConversationScopedToOwner(t *testing.T) {
	guard := guardrail.New(guardrail.DefaultLimits(), fixedClock)
	store := memory.NewInMemoryStore(20, 10)

	var history []llm.Message
	runner := runnerFunc(func(ctx context.Context, in agent.Input) (*agent.Result, error) {
		var err error

		history, err = in.Conversation.Messages(ctx)
		if err != nil {
			return nil, err
		}

		return &agent.Result{Text: "answer to " + in.Prompt}, nil
	})

	svc := insight.NewService(guard, runner, store, nil, nil, 0)
	alice := memory.WithOwner(context.Background(), "alice")
	bob := memory.WithOwner(context.Background(), "bob")

	_, err := svc.Analyse(alice, "shared", "What did I spend on Travel?")
	require.NoError(t, err)

	_, err = svc.Analyse(bob, "shared", "Hello")
	require.NoError(t, err)
	assert.Empty(t, history)

	_, err = svc.Analyse(alice, "shared", "And Dining?")
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "What did I spend on Travel?", history[0].Content)
	assert.Equal(t, "answer to What did I spend on Travel?", history[1].Content)
}

func TestService_Generate_DisclosesCapabilityFailure(t *testing.T) {
	f := newFixture(t, guardrail.DefaultLimits())
	f.repo.EXPECT().Find(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, errors.New("store unavailable")).Times(2)

	var seen []string
	f.scriptedRun("Your account spent 0.00 in November.", &seen)

	got, err := f.service.Generate(context.Background(), "s1", "A123", 2025, 11)
	require.NoError(t, err)

	assert.Contains(t, seen[0], "store unavailable")
	assert.Contains(t, got, "could not be retrieved")
	assert.Contains(t, got, "get_monthly_total")
	assert.Contains(t, got, "get_transactions")
}

func TestService_Generate_SameSnapshotSameFigures(t *testing.T) {
	f := newFixture(t, guardrail.DefaultLimits())
	f.repo.EXPECT().Find(gomock.Any(), "A123", gomock.Any(), gomock.Any()).Return(novemberTransactions(), nil).Times(4)

	var first, second []string

	f.scriptedRun("First phrasing.", &first)
	_, err := f.service.Generate(context.Background(), "s1", "A123", 2025, 11)
	require.NoError(t, err)

	f.scriptedRun("Second phrasing.", &second)
	_, err = f.service.Generate(context.Background(), "s2", "A123", 2025, 11)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestService_Generate_ProviderFailure(t *testing.T) {
	f := newFixture(t, guardrail.DefaultLimits())
	f.provider.EXPECT().Generate(gomock.Any(), gomock.Any()).Return(nil, errors.New("upstream 503"))

	got, err := f.service.Generate(context.Background(), "s1", "A123", 2025, 11)
	assert.Empty(t, got)

	var genErr *insight.GenerationError
	require.True(t, errors.As(err, &genErr))
	assert.Contains(t, genErr.Message(), "upstream 503")
}

func TestService_Generate_Timeout(t *testing.T) {
	guard := guardrail.New(guardrail.DefaultLimits(), fixedClock)
	blocking := runnerFunc(func(ctx context.Context, _ agent.Input) (*agent.Result, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})

	svc := insight.NewService(guard, blocking, nil, nil, nil, 20*time.Millisecond)

	got, err := svc.Generate(context.Background(), "s1", "A123", 2025, 11)
	assert.Empty(t, got)

	var genErr *insight.GenerationError
	require.True(t, errors.As(err, &genErr))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestService_Generate_Prompt(t *testing.T) {
	guard := guardrail.New(guardrail.DefaultLimits(), fixedClock)

	var got agent.Input
	capture := runnerFunc(func(_ context.Context, in agent.Input) (*agent.Result, error) {
		got = in
		return &agent.Result{Text: "ok"}, nil
	})

	_, err := insight.NewService(guard, capture, memory.NewInMemoryStore(20, 10), nil, nil, 0).
		Generate(context.Background(), "s1", "A123", 2025, 1)
	require.NoError(t, err)

	assert.Contains(t, got.Prompt, "2025-01")
	assert.Contains(t, got.Prompt, "2024-12")
	assert.Contains(t, got.Prompt, ">20%")
	assert.Contains(t, got.Prompt, ">40%")
	assert.Contains(t, got.Prompt, "Never mention the account ID")
	assert.Contains(t, got.System, "get_monthly_total returns only a total")
	assert.Contains(t, got.System, "under 300 words")
	assert.NotNil(t, got.Conversation)
}

func TestService_Generate_HardLengthLimit(t *testing.T) {
	limits := guardrail.DefaultLimits()
	limits.MaxWords = 5
	limits.HardWordLimit = true
	guard := guardrail.New(limits, fixedClock)

	long := runnerFunc(func(context.Context, agent.Input) (*agent.Result, error) {
		return &agent.Result{Text: "Travel led spending. Dining came second with a small share."}, nil
	})

	got, err := insight.NewService(guard, long, nil, nil, nil, 0).Generate(context.Background(), "", "A123", 2025, 11)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(got, "Travel led spending."))
	assert.NotContains(t, got, "Dining")
}

func TestService_Analyse(t *testing.T) {
	guard := guardrail.New(guardrail.DefaultLimits(), fixedClock)

	var got agent.Input
	echo := runnerFunc(func(_ context.Context, in agent.Input) (*agent.Result, error) {
		got = in
		return &agent.Result{Text: "Account A123 looks fine."}, nil
	})

	svc := insight.NewService(guard, echo, nil, nil, nil, 0)

	_, err := svc.Analyse(context.Background(), "s1", "   ")
	assert.ErrorIs(t, err, insight.ErrEmptyQuery)

	text, err := svc.Analyse(context.Background(), "s1", "How much did A123 spend?")
	require.NoError(t, err)
	assert.Equal(t, "Account A123 looks fine.", text)
	assert.Equal(t, "How much did A123 spend?", got.Prompt)
	assert.NotContains(t, got.System, "Rules:")
}

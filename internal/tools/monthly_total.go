package tools

import (
	"context"
	"encoding/json"
	"time"

	"github.com/MrJamesThe3rd/spendsight/internal/guardrail"
	"github.com/MrJamesThe3rd/spendsight/internal/summary"
)

type Totaler interface {
	MonthlyTotal(ctx context.Context, accountID string, year, month int) (*summary.Total, error)
}

// MonthlyTotal exposes only the sum for a month; category detail has to come
// from the transaction listing.
type MonthlyTotal struct {
	guard   *guardrail.Enforcer
	totaler Totaler
}

func NewMonthlyTotal(guard *guardrail.Enforcer, totaler Totaler) *MonthlyTotal {
	return &MonthlyTotal{guard: guard, totaler: totaler}
}

func (t *MonthlyTotal) Name() string {
	return "get_monthly_total"
}

func (t *MonthlyTotal) Description() string {
	return "Returns the total amount spent by an account in one calendar month. " +
		"It returns only the total, without categories, merchants or individual transactions."
}

func (t *MonthlyTotal) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"account_id": map[string]any{"type": "string", "description": "Account identifier"},
			"year":       map[string]any{"type": "integer", "description": "Four digit year"},
			"month":      map[string]any{"type": "integer", "description": "Month number, 1 to 12"},
		},
		"required": []string{"account_id", "year", "month"},
	}
}

type monthlyTotalArgs struct {
	AccountID string `json:"account_id"`
	Year      int    `json:"year"`
	Month     int    `json:"month"`
}

type monthlyTotalResult struct {
	Year     int    `json:"year"`
	Month    int    `json:"month"`
	FromDate string `json:"from_date"`
	ToDate   string `json:"to_date"`
	Total    string `json:"total"`
}

func (t *MonthlyTotal) Execute(ctx context.Context, raw json.RawMessage) (json.RawMessage, error) {
	var args monthlyTotalArgs
	if err := decodeArgs(raw, &args); err != nil {
		return nil, err
	}

	if err := t.guard.ValidateAccountID(args.AccountID); err != nil {
		return nil, err
	}

	if err := t.guard.ValidatePeriod(args.Year, args.Month); err != nil {
		return nil, err
	}

	total, err := t.totaler.MonthlyTotal(ctx, args.AccountID, args.Year, args.Month)
	if err != nil {
		return nil, err
	}

	return json.Marshal(monthlyTotalResult{
		Year:     total.Year,
		Month:    total.Month,
		FromDate: total.From.Format(time.DateOnly),
		ToDate:   total.To.Format(time.DateOnly),
		Total:    total.Amount.StringFixed(2),
	})
}

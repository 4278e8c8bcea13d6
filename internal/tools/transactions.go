package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/MrJamesThe3rd/spendsight/internal/audit"
	"github.com/MrJamesThe3rd/spendsight/internal/transaction"
)

type Lister interface {
	List(ctx context.Context, accountID string, from, to time.Time) (*transaction.Listing, error)
}

type Transactions struct {
	lister  Lister
	emitter audit.Emitter
}

func NewTransactions(lister Lister, emitter audit.Emitter) *Transactions {
	if emitter == nil {
		emitter = audit.Nop{}
	}

	return &Transactions{lister: lister, emitter: emitter}
}

func (t *Transactions) Name() string {
	return "get_transactions"
}

func (t *Transactions) Description() string {
	return "Lists the individual transactions of an account between two dates, both inclusive, " +
		"with date, amount, category and merchant. The range may span at most 90 days and " +
		"at most 500 transactions are returned; truncated is true when more matched."
}

func (t *Transactions) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"account_id": map[string]any{"type": "string", "description": "Account identifier"},
			"from_date":  map[string]any{"type": "string", "description": "First day, YYYY-MM-DD"},
			"to_date":    map[string]any{"type": "string", "description": "Last day, YYYY-MM-DD"},
		},
		"required": []string{"account_id", "from_date", "to_date"},
	}
}

type transactionsArgs struct {
	AccountID string `json:"account_id"`
	FromDate  string `json:"from_date"`
	ToDate    string `json:"to_date"`
}

type transactionRow struct {
	ID       int64  `json:"id"`
	Date     string `json:"date"`
	Amount   string `json:"amount"`
	Category string `json:"category"`
	Merchant string `json:"merchant"`
}

type transactionsResult struct {
	FromDate     string           `json:"from_date"`
	ToDate       string           `json:"to_date"`
	Count        int              `json:"count"`
	Truncated    bool             `json:"truncated"`
	Transactions []transactionRow `json:"transactions"`
}

func (t *Transactions) Execute(ctx context.Context, raw json.RawMessage) (json.RawMessage, error) {
	var args transactionsArgs
	if err := decodeArgs(raw, &args); err != nil {
		return nil, err
	}

	from, err := parseDate("from_date", args.FromDate)
	if err != nil {
		return nil, err
	}

	to, err := parseDate("to_date", args.ToDate)
	if err != nil {
		return nil, err
	}

	listing, err := t.lister.List(ctx, args.AccountID, from, to)
	if err != nil {
		return nil, err
	}

	if listing.Truncated {
		t.emitter.Emit(ctx, audit.Event{
			Type:   audit.ResultTruncated,
			Tool:   t.Name(),
			Detail: fmt.Sprintf("matched %d, returned %d", listing.Matched, len(listing.Transactions)),
		})
	}

	rows := make([]transactionRow, 0, len(listing.Transactions))
	for _, tx := range listing.Transactions {
		rows = append(rows, transactionRow{
			ID:       tx.ID,
			Date:     tx.Date.Format(time.DateOnly),
			Amount:   tx.Amount.StringFixed(2),
			Category: tx.Category,
			Merchant: tx.Merchant,
		})
	}

	return json.Marshal(transactionsResult{
		FromDate:     from.Format(time.DateOnly),
		ToDate:       to.Format(time.DateOnly),
		Count:        len(rows),
		Truncated:    listing.Truncated,
		Transactions: rows,
	})
}

func parseDate(field, value string) (time.Time, error) {
	d, err := time.Parse(time.DateOnly, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid %s %q, expected YYYY-MM-DD", field, value)
	}

	return d, nil
}

// Package summary computes monthly aggregates over an account's transactions.
package summary

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/spendsight/internal/guardrail"
	"github.com/MrJamesThe3rd/spendsight/internal/transaction"
)

// Finder is the part of the transaction store the aggregation needs.
type Finder interface {
	Find(ctx context.Context, accountID string, from, to time.Time) ([]*transaction.Transaction, error)
}

type Service struct {
	finder Finder
}

func NewService(finder Finder) *Service {
	return &Service{finder: finder}
}

// Total is a monthly sum together with the window it covers.
type Total struct {
	Year   int
	Month  int
	From   time.Time
	To     time.Time
	Amount decimal.Decimal
	Count  int
}

// MonthlyTotal sums every transaction dated in the calendar month. The read is
// not volume capped; an empty month sums to zero.
func (s *Service) MonthlyTotal(ctx context.Context, accountID string, year, month int) (*Total, error) {
	from, to := guardrail.MonthWindow(year, month)

	txs, err := s.finder.Find(ctx, accountID, from, to)
	if err != nil {
		return nil, fmt.Errorf("finding transactions: %w", err)
	}

	return &Total{
		Year:   year,
		Month:  month,
		From:   from,
		To:     to,
		Amount: Sum(txs),
		Count:  len(txs),
	}, nil
}

func Sum(txs []*transaction.Transaction) decimal.Decimal {
	total := decimal.Zero
	for _, tx := range txs {
		total = total.Add(tx.Amount)
	}

	return total
}

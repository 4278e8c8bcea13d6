package transaction

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/MrJamesThe3rd/spendsight/internal/guardrail"
)

//go:generate mockgen -source=service.go -destination=repository_mock.go -package=transaction
type Repository interface {
	// Find returns the account's transactions dated within [from, to], both
	// ends inclusive, in store order (date, then insertion).
	Find(ctx context.Context, accountID string, from, to time.Time) ([]*Transaction, error)
	GetAccount(ctx context.Context, id string) (*Account, error)
	CreateAccount(ctx context.Context, acc *Account) error
	CreateTransactions(ctx context.Context, txs []*Transaction) error
}

type Service struct {
	repo   Repository
	guard  *guardrail.Enforcer
	logger *slog.Logger
}

func NewService(repo Repository, guard *guardrail.Enforcer, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}

	return &Service{repo: repo, guard: guard, logger: logger}
}

// List reads the account's transactions in [from, to] after checking the
// identifier and the window size. Results above the volume cap are cut to the
// first MaxResults rows in store order; that is logged, never returned as an error.
func (s *Service) List(ctx context.Context, accountID string, from, to time.Time) (*Listing, error) {
	if err := s.guard.ValidateAccountID(accountID); err != nil {
		return nil, err
	}

	if err := s.guard.ValidateRange(from, to); err != nil {
		return nil, err
	}

	txs, err := s.repo.Find(ctx, accountID, guardrail.DateOnly(from), guardrail.DateOnly(to))
	if err != nil {
		return nil, fmt.Errorf("finding transactions: %w", err)
	}

	kept, truncated := guardrail.Truncate(txs, s.guard.Limits().MaxResults)
	if truncated {
		s.logger.Warn("transaction count exceeds limit, truncating",
			"matched", len(txs),
			"limit", s.guard.Limits().MaxResults,
		)
	}

	return &Listing{
		Transactions: kept,
		Matched:      len(txs),
		Truncated:    truncated,
	}, nil
}

type ImportResult struct {
	AccountsCreated int
	Imported        int
}

// Import creates any accounts that do not exist yet and then stores the
// transactions. It is used to seed the store; the insight path never writes.
func (s *Service) Import(ctx context.Context, accounts []*Account, txs []*Transaction) (*ImportResult, error) {
	result := &ImportResult{}

	for _, acc := range accounts {
		if err := s.guard.ValidateAccountID(acc.ID); err != nil {
			return nil, fmt.Errorf("account %q: %w", acc.ID, err)
		}

		_, err := s.repo.GetAccount(ctx, acc.ID)
		if err == nil {
			continue
		}

		if !errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("getting account: %w", err)
		}

		if err := s.repo.CreateAccount(ctx, acc); err != nil {
			return nil, fmt.Errorf("creating account: %w", err)
		}

		result.AccountsCreated++
	}

	for _, tx := range txs {
		if tx.Amount.IsNegative() {
			return nil, fmt.Errorf("transaction on %s for %s: negative amount %s",
				tx.Date.Format(time.DateOnly), tx.AccountID, tx.Amount.StringFixed(2))
		}
	}

	if len(txs) == 0 {
		return result, nil
	}

	if err := s.repo.CreateTransactions(ctx, txs); err != nil {
		return nil, fmt.Errorf("creating transactions: %w", err)
	}

	result.Imported = len(txs)

	return result, nil
}

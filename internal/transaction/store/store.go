package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/MrJamesThe3rd/spendsight/internal/transaction"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// scanTransaction expects the columns of selectTransactionColumns, in order.
func scanTransaction(s scanner) (*transaction.Transaction, error) {
	var tx transaction.Transaction

	if err := s.Scan(&tx.ID, &tx.AccountID, &tx.Amount, &tx.Category, &tx.Merchant, &tx.Date); err != nil {
		return nil, err
	}

	return &tx, nil
}

const selectTransactionColumns = `t.id, t.account_id, t.amount, t.category, t.merchant, t.date`

func (s *Store) Find(ctx context.Context, accountID string, from, to time.Time) ([]*transaction.Transaction, error) {
	query := `SELECT ` + selectTransactionColumns + `
		FROM transactions t
		WHERE t.account_id = $1 AND t.date >= $2 AND t.date <= $3
		ORDER BY t.date ASC, t.id ASC`

	rows, err := s.db.QueryContext(ctx, query, accountID, from, to)
	if err != nil {
		return nil, fmt.Errorf("finding transactions: %w", err)
	}
	defer rows.Close()

	var txs []*transaction.Transaction

	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning transaction: %w", err)
		}

		txs = append(txs, tx)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating transaction rows: %w", err)
	}

	return txs, nil
}

func (s *Store) GetAccount(ctx context.Context, id string) (*transaction.Account, error) {
	query := `SELECT id, customer_name, currency, opened_on FROM accounts WHERE id = $1`

	var acc transaction.Account

	err := s.db.QueryRowContext(ctx, query, id).Scan(&acc.ID, &acc.CustomerName, &acc.Currency, &acc.OpenedOn)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, transaction.ErrNotFound
		}

		return nil, fmt.Errorf("getting account: %w", err)
	}

	return &acc, nil
}

func (s *Store) CreateAccount(ctx context.Context, acc *transaction.Account) error {
	query := `
		INSERT INTO accounts (id, customer_name, currency, opened_on)
		VALUES ($1, $2, $3, COALESCE($4, CURRENT_DATE))
		ON CONFLICT (id) DO NOTHING
	`

	var openedOn *time.Time
	if !acc.OpenedOn.IsZero() {
		openedOn = &acc.OpenedOn
	}

	if _, err := s.db.ExecContext(ctx, query, acc.ID, acc.CustomerName, acc.Currency, openedOn); err != nil {
		return fmt.Errorf("creating account: %w", err)
	}

	return nil
}

// CreateTransactions inserts all rows in one database transaction, in slice
// order, so the surrogate ids follow the import order.
func (s *Store) CreateTransactions(ctx context.Context, txs []*transaction.Transaction) error {
	dbTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer dbTx.Rollback()

	query := `
		INSERT INTO transactions (account_id, amount, category, merchant, date)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`

	for _, tx := range txs {
		err := dbTx.QueryRowContext(ctx, query,
			tx.AccountID,
			tx.Amount,
			tx.Category,
			tx.Merchant,
			tx.Date,
		).Scan(&tx.ID)
		if err != nil {
			return fmt.Errorf("creating transaction: %w", err)
		}
	}

	if err := dbTx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	return nil
}

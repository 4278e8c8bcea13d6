// Package ledgercsv parses account ledger exports used to seed the store.
//
// The file may start with any number of preamble lines; the first row that
// names the account, date, amount, category and merchant columns is the
// header. Files delimited with ';' use the European decimal comma.
package ledgercsv

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/MrJamesThe3rd/spendsight/internal/transaction"
)

const defaultCurrency = "SGD"

var dateLayouts = []string{time.DateOnly, "02/01/2006", "02-01-2006", "2006/01/02"}

type Parser struct{}

func NewParser() *Parser {
	return &Parser{}
}

func (p *Parser) Parse(r io.Reader) (*transaction.Batch, error) {
	br := bufio.NewReader(r)

	comma, err := sniffDelimiter(br)
	if err != nil {
		return nil, err
	}

	reader := csv.NewReader(br)
	reader.Comma = comma
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}

	for i, row := range rows {
		if cols, ok := matchHeader(row); ok {
			return parseRows(cols, rows[i+1:], i+1, comma == ';')
		}
	}

	return nil, fmt.Errorf("no header found: expected account_id, date, amount, category and merchant columns")
}

// sniffDelimiter picks ';' when the first non-empty line has more semicolons
// than commas.
func sniffDelimiter(br *bufio.Reader) (rune, error) {
	head, err := br.Peek(br.Size())
	if err != nil && err != io.EOF && err != bufio.ErrBufferFull {
		return 0, fmt.Errorf("peek: %w", err)
	}

	for _, line := range strings.Split(string(head), "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}

		if strings.Count(line, ";") > strings.Count(line, ",") {
			return ';', nil
		}

		return ',', nil
	}

	return ',', nil
}

// parseRows builds the batch. headerLine is the 1-based record number of the
// header, used for error messages.
func parseRows(cols colIndex, rows [][]string, headerLine int, european bool) (*transaction.Batch, error) {
	batch := &transaction.Batch{}
	accounts := make(map[string]*transaction.Account)

	for i, row := range rows {
		rowNum := headerLine + i + 1

		accountID := cols.value(row, colAccountID)
		rawDate := cols.value(row, colDate)

		if accountID == "" && rawDate == "" {
			continue
		}

		date, err := parseDate(rawDate)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", rowNum, err)
		}

		amount, err := parseAmount(cols.value(row, colAmount), european)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", rowNum, err)
		}

		acc, ok := accounts[accountID]
		if !ok {
			acc = &transaction.Account{
				ID:           accountID,
				CustomerName: cols.value(row, colCustomerName),
				Currency:     strings.ToUpper(cols.value(row, colCurrency)),
				OpenedOn:     date,
			}

			if acc.Currency == "" {
				acc.Currency = defaultCurrency
			}

			accounts[accountID] = acc
			batch.Accounts = append(batch.Accounts, acc)
		}

		if date.Before(acc.OpenedOn) {
			acc.OpenedOn = date
		}

		batch.Transactions = append(batch.Transactions, &transaction.Transaction{
			AccountID: accountID,
			Amount:    amount,
			Category:  cols.value(row, colCategory),
			Merchant:  cols.value(row, colMerchant),
			Date:      date,
		})
	}

	return batch, nil
}

func parseDate(s string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}

	return time.Time{}, fmt.Errorf("invalid date %q", s)
}

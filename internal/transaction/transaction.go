package transaction

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var ErrNotFound = errors.New("not found")

// Account is owned by the upstream ledger; this service only reads it.
type Account struct {
	ID           string
	CustomerName string
	Currency     string
	OpenedOn     time.Time
}

// Transaction is a single posted spend event. Amounts are non-negative with
// two decimal places.
type Transaction struct {
	ID        int64
	AccountID string
	Amount    decimal.Decimal
	Category  string
	Merchant  string
	Date      time.Time
}

// Listing is the guarded result of a range read.
type Listing struct {
	Transactions []*Transaction
	// Matched is the number of rows the store returned before the volume cap.
	Matched   int
	Truncated bool
}

// Batch is a parsed seed file: the accounts it mentions, in first-seen order,
// and its transactions in file order.
type Batch struct {
	Accounts     []*Account
	Transactions []*Transaction
}

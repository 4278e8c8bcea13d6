package importer

import (
	"io"

	"github.com/MrJamesThe3rd/spendsight/internal/transaction"
)

type Format string

const (
	FormatLedgerCSV Format = "ledger-csv"
)

type Importer interface {
	Parse(r io.Reader) (*transaction.Batch, error)
}

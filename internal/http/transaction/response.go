package transaction

import (
	"time"

	"github.com/MrJamesThe3rd/spendsight/internal/summary"
	"github.com/MrJamesThe3rd/spendsight/internal/transaction"
)

type transactionResponse struct {
	ID       int64  `json:"id"`
	Date     string `json:"date"`
	Amount   string `json:"amount"`
	Category string `json:"category"`
	Merchant string `json:"merchant"`
}

type listingResponse struct {
	From         string                `json:"from"`
	To           string                `json:"to"`
	Count        int                   `json:"count"`
	Matched      int                   `json:"matched"`
	Truncated    bool                  `json:"truncated"`
	Transactions []transactionResponse `json:"transactions"`
}

type totalResponse struct {
	Year  int    `json:"year"`
	Month int    `json:"month"`
	From  string `json:"from"`
	To    string `json:"to"`
	Count int    `json:"count"`
	Total string `json:"total"`
}

func toResponse(tx *transaction.Transaction) transactionResponse {
	return transactionResponse{
		ID:       tx.ID,
		Date:     tx.Date.Format(time.DateOnly),
		Amount:   tx.Amount.StringFixed(2),
		Category: tx.Category,
		Merchant: tx.Merchant,
	}
}

func toResponseList(txs []*transaction.Transaction) []transactionResponse {
	resp := make([]transactionResponse, len(txs))
	for i, tx := range txs {
		resp[i] = toResponse(tx)
	}

	return resp
}

func toListingResponse(from, to time.Time, l *transaction.Listing) listingResponse {
	return listingResponse{
		From:         from.Format(time.DateOnly),
		To:           to.Format(time.DateOnly),
		Count:        len(l.Transactions),
		Matched:      l.Matched,
		Truncated:    l.Truncated,
		Transactions: toResponseList(l.Transactions),
	}
}

func toTotalResponse(t *summary.Total) totalResponse {
	return totalResponse{
		Year:  t.Year,
		Month: t.Month,
		From:  t.From.Format(time.DateOnly),
		To:    t.To.Format(time.DateOnly),
		Count: t.Count,
		Total: t.Amount.StringFixed(2),
	}
}

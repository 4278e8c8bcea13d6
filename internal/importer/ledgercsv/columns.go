package ledgercsv

import "strings"

type column int

const (
	colAccountID column = iota
	colCustomerName
	colCurrency
	colDate
	colAmount
	colCategory
	colMerchant
)

// aliases lists the header names accepted for each column, compared after
// lowercasing and dropping spaces, dashes and underscores.
var aliases = map[column][]string{
	colAccountID:    {"accountid", "account", "accountno", "accountnumber"},
	colCustomerName: {"customername", "customer", "name"},
	colCurrency:     {"currency", "ccy"},
	colDate:         {"date", "transactiondate", "postingdate", "posted"},
	colAmount:       {"amount", "value"},
	colCategory:     {"category"},
	colMerchant:     {"merchant", "description", "payee"},
}

// required must all be present for a row to count as the header.
var required = []column{colAccountID, colDate, colAmount, colCategory, colMerchant}

type colIndex map[column]int

func normalizeHeader(s string) string {
	return strings.NewReplacer(" ", "", "_", "", "-", "", ".", "").Replace(strings.ToLower(strings.TrimSpace(s)))
}

// matchHeader maps the cells of row to columns and reports whether every
// required column was found.
func matchHeader(row []string) (colIndex, bool) {
	cols := make(colIndex)

	for i, cell := range row {
		name := normalizeHeader(cell)
		if name == "" {
			continue
		}

		for c, names := range aliases {
			if _, seen := cols[c]; seen {
				continue
			}

			for _, alias := range names {
				if name == alias {
					cols[c] = i
				}
			}
		}
	}

	for _, c := range required {
		if _, ok := cols[c]; !ok {
			return nil, false
		}
	}

	return cols, true
}

func (c colIndex) value(row []string, col column) string {
	idx, ok := c[col]
	if !ok || idx >= len(row) {
		return ""
	}

	return strings.TrimSpace(row[idx])
}

package ledgercsv

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// parseAmount reads a two decimal amount. With european set the comma is the
// decimal separator and dots group thousands ("1.234,56"); otherwise commas
// group thousands ("1,234.56"). Currency symbols and spaces are ignored.
func parseAmount(s string, european bool) (decimal.Decimal, error) {
	clean := strings.Map(func(r rune) rune {
		switch {
		case r >= '0' && r <= '9', r == '-', r == '.', r == ',':
			return r
		default:
			return -1
		}
	}, s)

	if european {
		clean = strings.ReplaceAll(clean, ".", "")
		clean = strings.ReplaceAll(clean, ",", ".")
	} else {
		clean = strings.ReplaceAll(clean, ",", "")
	}

	d, err := decimal.NewFromString(clean)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount %q", s)
	}

	if d.Exponent() < -2 && !d.Equal(d.Round(2)) {
		return decimal.Zero, fmt.Errorf("amount %q has more than two decimal places", s)
	}

	return d.Round(2), nil
}

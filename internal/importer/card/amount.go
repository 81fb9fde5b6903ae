package card

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

var errEmptyAmount = errors.New("empty amount")

var hundred = decimal.NewFromInt(100)

// parseAmount reads a statement amount into cents. Both "1.234,56" and
// "1,234.56" are accepted: the right-most separator is the decimal one. A
// lone dot followed by exactly three digits is a thousands separator.
func parseAmount(s string) (int64, error) {
	clean := strings.NewReplacer("€", "", "EUR", "", " ", "", "\u00a0", "").Replace(s)
	if clean == "" {
		return 0, errEmptyAmount
	}

	comma := strings.LastIndex(clean, ",")
	dot := strings.LastIndex(clean, ".")

	switch {
	case comma > dot:
		clean = strings.ReplaceAll(clean, ".", "")
		clean = strings.Replace(clean, ",", ".", 1)
	case dot > comma && comma >= 0:
		clean = strings.ReplaceAll(clean, ",", "")
	case dot >= 0 && (len(clean)-dot-1 == 3 || strings.Count(clean, ".") > 1):
		clean = strings.ReplaceAll(clean, ".", "")
	}

	d, err := decimal.NewFromString(clean)
	if err != nil {
		return 0, err
	}

	return d.Mul(hundred).Round(0).IntPart(), nil
}

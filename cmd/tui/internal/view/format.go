package view

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"
)

const requestTimeout = 10 * time.Second

var (
	errNegativeAmount = errors.New("amount cannot be negative")
	errInvalidAmount  = errors.New("invalid amount (e.g. 12.50)")
	errInvalidDate    = errors.New("invalid date (YYYY-MM-DD)")
)

// FormatAmount formats an amount stored as cents with thousands separators.
func FormatAmount(cents int64) string {
	return humanize.FormatFloat("#,###.##", float64(cents)/100.0)
}

// FormatDate formats a time.Time into YYYY-MM-DD.
func FormatDate(t time.Time) string {
	return t.Format(time.DateOnly)
}

// ParseAmount reads a user-typed amount in currency units, accepting a comma
// as decimal separator, and returns cents.
func ParseAmount(s string) (int64, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", ".")

	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, errInvalidAmount
	}

	if d.IsNegative() {
		return 0, errNegativeAmount
	}

	return d.Shift(2).Round(0).IntPart(), nil
}

func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(time.DateOnly, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, errInvalidDate
	}

	return t, nil
}

// RequestCtx returns a context with the standard timeout for API and outbox
// calls made from a tea.Cmd.
func RequestCtx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), requestTimeout)
}

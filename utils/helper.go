package utils

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const DateLayout = "2006-01-02"

// Source files carry timestamps in a handful of layouts depending on which
// portal exported them. Order matters: the most specific layouts go first.
var dateLayouts = []string{
	"2006-01-02 15:04:05",
	"02/01/2006 15:04:05",
	"02/01/2006 15:04",
	"15:04 2006-01-02",
	"2006-01-02 15:04",
	"2006-01-02",
	"02/01/2006",
}

// RoundTo2 rounds to 2 decimal places. Every derivation step in the ledger
// chain stores the rounded value; carry-forward math depends on it.
func RoundTo2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// ParseDecimal converts a string to a decimal.Decimal value.
func ParseDecimal(value string) (decimal.Decimal, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return decimal.Zero, errors.New("empty decimal string")
	}

	dec, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Zero, err
	}

	return dec, nil
}

// ParseFlexibleDecimal accepts the messy numeric strings that arrive from
// spreadsheets: thousands separators, surrounding spaces and the leading
// quote-escape some tools prepend to force text cells.
func ParseFlexibleDecimal(value string) (decimal.Decimal, error) {
	value = strings.TrimSpace(value)
	value = strings.TrimPrefix(value, "'")
	value = strings.ReplaceAll(value, ",", "")
	value = strings.TrimSpace(value)
	if value == "" {
		return decimal.Zero, errors.New("empty decimal string")
	}
	return decimal.NewFromString(value)
}

// ParseDateOnly parses a source date string into a UTC midnight time.Time.
func ParseDateOnly(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, errors.New("empty date string")
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return TruncateToDate(t), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", value)
}

// TruncateToDate drops the time-of-day portion (UTC).
func TruncateToDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// MonthRange returns the first and last calendar day of (year, month), UTC.
func MonthRange(year int, month time.Month) (time.Time, time.Time) {
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	last := first.AddDate(0, 1, -1)
	return first, last
}

// PrevMonth returns the (year, month) immediately before the given one.
func PrevMonth(year int, month time.Month) (int, time.Month) {
	t := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC).AddDate(0, -1, 0)
	return t.Year(), t.Month()
}

func DaysInMonth(year int, month time.Month) int {
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	return first.AddDate(0, 1, -1).Day()
}

// YearMonthPrefix returns "2006-01" for building date-string prefixes.
func YearMonthPrefix(year int, month time.Month) string {
	return time.Date(year, month, 1, 0, 0, 0, 0, time.UTC).Format("2006-01")
}

func DecimalPtr(d decimal.Decimal) *decimal.Decimal {
	return &d
}

// DecimalOrZero treats nil as zero; the ledger formulas use missing manual
// inputs as zero without materializing them.
func DecimalOrZero(d *decimal.Decimal) decimal.Decimal {
	if d == nil {
		return decimal.Zero
	}
	return *d
}

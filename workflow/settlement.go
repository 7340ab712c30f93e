package workflow

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"bitbucket.org/kiranetwork/recon_backend/models"
)

// DefaultSettlementRule is substituted whenever a channel has no
// configured rule or the configured rule cannot be parsed.
const DefaultSettlementRule = "T+1"

var settlementRuleRegex = regexp.MustCompile(`(?i)^\s*T\s*\+\s*(\d+)\s*$`)

// HolidaySet holds non-settlement dates keyed "YYYY-MM-DD".
type HolidaySet map[string]struct{}

func (h HolidaySet) Contains(d models.DateOnly) bool {
	_, ok := h[d.String()]
	return ok
}

func (h HolidaySet) Add(date string) {
	h[date] = struct{}{}
}

// MergeHolidaySets unions public and add-on holidays into one set.
func MergeHolidaySets(sets ...HolidaySet) HolidaySet {
	merged := make(HolidaySet)
	for _, s := range sets {
		for k := range s {
			merged[k] = struct{}{}
		}
	}
	return merged
}

// ParseSettlementRule extracts N from a "T+<N>" rule string.
func ParseSettlementRule(rule string) (int, error) {
	m := settlementRuleRegex.FindStringSubmatch(rule)
	if m == nil {
		return 0, fmt.Errorf("invalid settlement rule %q: want T+<N>", rule)
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, fmt.Errorf("invalid settlement rule %q: %w", rule, err)
	}
	return n, nil
}

func isBusinessDay(d models.DateOnly, holidays HolidaySet) bool {
	switch d.Time().Weekday() {
	case time.Saturday, time.Sunday:
		return false
	}
	return !holidays.Contains(d)
}

// CalculateSettlementDate walks forward from the transaction date until
// N business days (not weekends, not holidays) have passed, then keeps
// rolling forward while the landing date itself is a non-business day.
// ok is false when the rule cannot be parsed; the caller substitutes
// DefaultSettlementRule and carries on, it never aborts a batch.
func CalculateSettlementDate(txnDate models.DateOnly, rule string, holidays HolidaySet) (settlement models.DateOnly, ok bool) {
	n, err := ParseSettlementRule(rule)
	if err != nil {
		return models.DateOnly{}, false
	}

	d := txnDate
	for counted := 0; counted < n; {
		d = d.AddDays(1)
		if isBusinessDay(d, holidays) {
			counted++
		}
	}
	for !isBusinessDay(d, holidays) {
		d = d.AddDays(1)
	}
	return d, true
}

// CalculateSettlementDateString is the string-in string-out variant used
// by callers holding "YYYY-MM-DD" values. Malformed date or rule returns
// "".
func CalculateSettlementDateString(txnDate string, rule string, holidays HolidaySet) string {
	d, err := models.ParseDateOnly(strings.TrimSpace(txnDate))
	if err != nil {
		return ""
	}
	settlement, ok := CalculateSettlementDate(d, rule, holidays)
	if !ok {
		return ""
	}
	return settlement.String()
}

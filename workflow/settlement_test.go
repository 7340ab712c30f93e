package workflow

import (
	"testing"

	"bitbucket.org/kiranetwork/recon_backend/models"
)

func mustDate(t *testing.T, s string) models.DateOnly {
	t.Helper()
	d, err := models.ParseDateOnly(s)
	if err != nil {
		t.Fatalf("ParseDateOnly(%q): %v", s, err)
	}
	return d
}

func TestParseSettlementRule(t *testing.T) {
	cases := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{"T+1", 1, false},
		{"T+14", 14, false},
		{"t+2", 2, false},
		{" t + 3 ", 3, false},
		{"T+0", 0, false},
		{"T-1", 0, true},
		{"T+", 0, true},
		{"3", 0, true},
		{"", 0, true},
		{"T+1 days", 0, true},
	}
	for _, tc := range cases {
		n, err := ParseSettlementRule(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Fatalf("ParseSettlementRule(%q) expected error, got %d", tc.in, n)
			}
			continue
		}
		if err != nil {
			t.Fatalf("ParseSettlementRule(%q) error: %v", tc.in, err)
		}
		if n != tc.want {
			t.Fatalf("ParseSettlementRule(%q) expected %d, got %d", tc.in, tc.want, n)
		}
	}
}

// 2025-10-01 is a Wednesday; 2025-10-04/05 are the weekend.
func TestCalculateSettlementDate(t *testing.T) {
	holidays := make(HolidaySet)
	holidays.Add("2025-10-06") // Monday

	cases := []struct {
		txn      string
		rule     string
		holidays HolidaySet
		want     string
	}{
		// Plain business days.
		{"2025-10-01", "T+1", nil, "2025-10-02"},
		{"2025-10-01", "T+2", nil, "2025-10-03"},
		// Weekend is skipped while counting.
		{"2025-10-03", "T+1", nil, "2025-10-06"},
		{"2025-10-02", "T+2", nil, "2025-10-06"},
		// A holiday on the landing day pushes settlement past it.
		{"2025-10-03", "T+1", holidays, "2025-10-07"},
		{"2025-10-02", "T+2", holidays, "2025-10-07"},
		// T+0 on a non-business day rolls forward to the next one.
		{"2025-10-04", "T+0", nil, "2025-10-06"},
		{"2025-10-04", "T+0", holidays, "2025-10-07"},
		{"2025-10-01", "T+0", nil, "2025-10-01"},
	}
	for _, tc := range cases {
		got, ok := CalculateSettlementDate(mustDate(t, tc.txn), tc.rule, tc.holidays)
		if !ok {
			t.Fatalf("CalculateSettlementDate(%s, %s) unexpectedly not ok", tc.txn, tc.rule)
		}
		if got.String() != tc.want {
			t.Fatalf("CalculateSettlementDate(%s, %s) expected %s, got %s", tc.txn, tc.rule, tc.want, got.String())
		}
	}
}

func TestCalculateSettlementDateRejectsBadRule(t *testing.T) {
	for _, rule := range []string{"", "T-1", "next week"} {
		if _, ok := CalculateSettlementDate(mustDate(t, "2025-10-01"), rule, nil); ok {
			t.Fatalf("CalculateSettlementDate with rule %q expected ok=false", rule)
		}
	}
}

// Settlement dates must never move backwards as the transaction date
// advances; the carry-forward math in the deposit ledger relies on it.
func TestCalculateSettlementDateMonotonic(t *testing.T) {
	holidays := make(HolidaySet)
	holidays.Add("2025-10-06")
	holidays.Add("2025-10-13")

	prev := models.DateOnly{}
	d := mustDate(t, "2025-10-01")
	for i := 0; i < 31; i++ {
		got, ok := CalculateSettlementDate(d, "T+2", holidays)
		if !ok {
			t.Fatalf("CalculateSettlementDate(%s) not ok", d.String())
		}
		if !prev.IsZero() && got.Before(prev) {
			t.Fatalf("settlement went backwards: txn %s settles %s, previous settled %s", d.String(), got.String(), prev.String())
		}
		prev = got
		d = d.AddDays(1)
	}
}

func TestCalculateSettlementDateString(t *testing.T) {
	if got := CalculateSettlementDateString("2025-10-01", "T+1", nil); got != "2025-10-02" {
		t.Fatalf("expected 2025-10-02, got %q", got)
	}
	if got := CalculateSettlementDateString("not-a-date", "T+1", nil); got != "" {
		t.Fatalf("malformed date expected empty string, got %q", got)
	}
	if got := CalculateSettlementDateString("2025-10-01", "whenever", nil); got != "" {
		t.Fatalf("malformed rule expected empty string, got %q", got)
	}
}

func TestResolveSettlementRule(t *testing.T) {
	rules := map[string]string{"fpx": "T+2", "tng": "T+3"}
	override := "t+5"
	blank := "   "

	cases := []struct {
		override *string
		key      string
		want     string
	}{
		{&override, "fpx", "T+5"}, // manual override wins and is uppercased
		{&blank, "fpx", "T+2"},    // whitespace override falls through
		{nil, "FPX", "T+2"},       // channel keys match case-insensitively
		{nil, "tng", "T+3"},
		{nil, "boost", DefaultSettlementRule},
		{nil, "", DefaultSettlementRule},
	}
	for _, tc := range cases {
		got := ResolveSettlementRule(rules, tc.override, tc.key)
		if got != tc.want {
			t.Fatalf("ResolveSettlementRule(key=%q) expected %q, got %q", tc.key, tc.want, got)
		}
	}
}

func TestMergeHolidaySets(t *testing.T) {
	a := make(HolidaySet)
	a.Add("2025-01-01")
	b := make(HolidaySet)
	b.Add("2025-01-01")
	b.Add("2025-12-25")

	merged := MergeHolidaySets(a, b)
	if len(merged) != 2 {
		t.Fatalf("expected 2 merged holidays, got %d", len(merged))
	}
	if !merged.Contains(mustDate(t, "2025-12-25")) {
		t.Fatalf("merged set missing 2025-12-25")
	}
	if merged.Contains(mustDate(t, "2025-06-01")) {
		t.Fatalf("merged set should not contain 2025-06-01")
	}
}

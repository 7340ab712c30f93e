package workflow

import (
	"testing"

	"bitbucket.org/kiranetwork/recon_backend/models"
	"github.com/shopspring/decimal"
)

func TestFeeAmount(t *testing.T) {
	cases := []struct {
		feeType string
		rate    string
		amount  string
		volume  int64
		want    string
	}{
		{"percentage", "1.5", "1234.56", 3, "18.52"}, // 18.5184 rounds up
		{"percentage", "2", "100", 1, "2"},
		{"percentage", "1.125", "100", 1, "1.13"},
		{"per_volume", "0.5", "9999", 3, "1.5"},
		{"per_volume", "0.33", "0", 7, "2.31"},
		{"flat", "25", "9999", 99, "25"},
		{"flat", "25.999", "0", 0, "26"},

		// Legacy spellings fold into the canonical computation.
		{"percent", "2", "100", 1, "2"},
		{"per_order", "0.5", "9999", 3, "1.5"},
		{"PERCENTAGE", "2", "100", 1, "2"},
		{" flat ", "25", "0", 0, "25"},

		// Unknown or empty fee types charge nothing.
		{"", "2", "100", 1, "0"},
		{"tiered", "2", "100", 1, "0"},
	}
	for _, tc := range cases {
		rate := decimal.RequireFromString(tc.rate)
		amount := decimal.RequireFromString(tc.amount)
		got := FeeAmount(tc.feeType, rate, amount, tc.volume)
		if got.String() != tc.want {
			t.Fatalf("FeeAmount(%q, %s, %s, %d) expected %s, got %s",
				tc.feeType, tc.rate, tc.amount, tc.volume, tc.want, got.String())
		}
	}
}

func TestCanonicalFeeType(t *testing.T) {
	cases := []struct {
		in   string
		want models.FeeType
	}{
		{"percent", models.FeeTypePercentage},
		{"percentage", models.FeeTypePercentage},
		{"PERCENT", models.FeeTypePercentage},
		{"per_order", models.FeeTypePerVolume},
		{"per_volume", models.FeeTypePerVolume},
		{"flat", models.FeeTypeFlat},
		{" Flat ", models.FeeTypeFlat},
		{"tiered", models.FeeType("tiered")},
		{"TIERED", models.FeeType("tiered")},
	}
	for _, tc := range cases {
		if got := models.CanonicalFeeType(tc.in); got != tc.want {
			t.Fatalf("CanonicalFeeType(%q) expected %q, got %q", tc.in, tc.want, got)
		}
	}
}

func TestIsValidFeeType(t *testing.T) {
	for _, ok := range []string{"percentage", "percent", "per_volume", "per_order", "flat", "FLAT"} {
		if !models.IsValidFeeType(ok) {
			t.Fatalf("IsValidFeeType(%q) expected true", ok)
		}
	}
	for _, bad := range []string{"", "tiered", "free"} {
		if models.IsValidFeeType(bad) {
			t.Fatalf("IsValidFeeType(%q) expected false", bad)
		}
	}
}

package workflow

import (
	"testing"

	"bitbucket.org/kiranetwork/recon_backend/models"
	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func decp(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func checkDec(t *testing.T, label string, got *decimal.Decimal, want string) {
	t.Helper()
	if want == "" {
		if got != nil {
			t.Fatalf("%s expected NULL, got %s", label, got.String())
		}
		return
	}
	if got == nil {
		t.Fatalf("%s expected %s, got NULL", label, want)
	}
	if !got.Equal(dec(want)) {
		t.Fatalf("%s expected %s, got %s", label, want, got.String())
	}
}

func TestMerchantEngineBalancesNullUntilActivity(t *testing.T) {
	rows := []*models.MerchantLedger{
		{Merchant: "alpha", TransactionDate: mustDate(t, "2025-10-01")},
		{Merchant: "alpha", TransactionDate: mustDate(t, "2025-10-02")},
		{Merchant: "alpha", TransactionDate: mustDate(t, "2025-10-03")},
	}

	merchantEngine().Run(rows)

	for _, r := range rows {
		checkDec(t, r.TransactionDate.String()+" payout_pool_balance", r.PayoutPoolBalance, "")
		checkDec(t, r.TransactionDate.String()+" available_balance", r.AvailableBalance, "")
		checkDec(t, r.TransactionDate.String()+" total_balance", r.TotalBalance, "")
	}
}

func TestMerchantEngineCascade(t *testing.T) {
	rows := []*models.MerchantLedger{
		{
			Merchant:        "alpha",
			TransactionDate: mustDate(t, "2025-10-01"),
			AvailableTotal:  dec("100.00"),
		},
		{
			Merchant:        "alpha",
			TransactionDate: mustDate(t, "2025-10-02"),
		},
		{
			Merchant:          "alpha",
			TransactionDate:   mustDate(t, "2025-10-03"),
			AvailableTotal:    dec("25.50"),
			SettlementFund:    decp("40.00"),
			SettlementCharges: decp("0.53"),
			TopupPayoutPool:   decp("200.00"),
		},
		{
			Merchant:         "alpha",
			TransactionDate:  mustDate(t, "2025-10-04"),
			WithdrawalAmount: decp("50.50"),
			WithdrawalRate:   decp("1"),
			// stale value from an earlier run; must be recomputed
			WithdrawalCharges: decp("99.00"),
		},
	}

	merchantEngine().Run(rows)

	want := []struct{ pool, available, total string }{
		{"", "100.00", "100.00"},
		{"", "100.00", "100.00"}, // no movement, balances carry
		{"200.00", "84.97", "284.97"},
		{"148.99", "84.97", "233.96"},
	}
	for i, w := range want {
		day := rows[i].TransactionDate.String()
		checkDec(t, day+" payout_pool_balance", rows[i].PayoutPoolBalance, w.pool)
		checkDec(t, day+" available_balance", rows[i].AvailableBalance, w.available)
		checkDec(t, day+" total_balance", rows[i].TotalBalance, w.total)
	}

	// 50.50 at 1% is 0.505, rounded half away from zero.
	checkDec(t, "recomputed withdrawal_charges", rows[3].WithdrawalCharges, "0.51")
}

// A day that drains a balance to exactly zero still materializes the
// zero; the NEXT idle day goes back to NULL. A NULL therefore always
// means "nothing carried", never a swallowed balance.
func TestMerchantEngineZeroCarryGoesNull(t *testing.T) {
	rows := []*models.MerchantLedger{
		{
			Merchant:        "beta",
			TransactionDate: mustDate(t, "2025-11-01"),
			TopupPayoutPool: decp("100.00"),
		},
		{
			Merchant:         "beta",
			TransactionDate:  mustDate(t, "2025-11-02"),
			WithdrawalAmount: decp("100.00"),
		},
		{
			Merchant:        "beta",
			TransactionDate: mustDate(t, "2025-11-03"),
		},
	}

	merchantEngine().Run(rows)

	checkDec(t, "day 1 payout_pool_balance", rows[0].PayoutPoolBalance, "100.00")
	checkDec(t, "day 2 payout_pool_balance", rows[1].PayoutPoolBalance, "0.00")
	checkDec(t, "day 2 total_balance", rows[1].TotalBalance, "0.00")
	checkDec(t, "day 3 payout_pool_balance", rows[2].PayoutPoolBalance, "")
	checkDec(t, "day 3 total_balance", rows[2].TotalBalance, "")
}

func TestCommissionShare(t *testing.T) {
	cases := []struct {
		available string
		rate      *decimal.Decimal
		want      string
	}{
		{"1000.00", decp("7.5"), "75.00"},
		{"1000.00", nil, "0"},
		{"333.33", decp("1.5"), "5.00"}, // 4.99995 rounds half away from zero
		{"0", decp("7.5"), "0.00"},
	}
	for _, tc := range cases {
		got := commissionShare(dec(tc.available), tc.rate)
		if !got.Equal(dec(tc.want)) {
			t.Fatalf("commissionShare(%s) expected %s, got %s", tc.available, tc.want, got.String())
		}
	}
}

func TestAgentEngineFold(t *testing.T) {
	rows := []*models.AgentLedger{
		{
			Agent:           "alpha",
			TransactionDate: mustDate(t, "2025-10-01"),
			AvailableTotal:  dec("75.00"),
		},
		{
			Agent:            "alpha",
			TransactionDate:  mustDate(t, "2025-10-02"),
			WithdrawalAmount: decp("25.00"),
		},
		{
			Agent:           "alpha",
			TransactionDate: mustDate(t, "2025-10-03"),
		},
		{
			Agent:            "alpha",
			TransactionDate:  mustDate(t, "2025-10-04"),
			WithdrawalAmount: decp("50.00"),
		},
		{
			Agent:           "alpha",
			TransactionDate: mustDate(t, "2025-10-05"),
		},
	}

	agentEngine().Run(rows)

	want := []string{"75.00", "50.00", "50.00", "0.00", ""}
	for i, w := range want {
		checkDec(t, rows[i].TransactionDate.String()+" balance", rows[i].Balance, w)
	}
}

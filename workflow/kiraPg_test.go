package workflow

import (
	"testing"

	"bitbucket.org/kiranetwork/recon_backend/models"
	"github.com/shopspring/decimal"
)

func strp(s string) *string { return &s }

// 2025-10-01 is a Wednesday; 2025-10-06 (Monday) is a holiday below.
func TestComputeVarianceDerived(t *testing.T) {
	rules := map[string]string{"fpx": "T+1", "tng": "T+2"}
	holidays := make(HolidaySet)
	holidays.Add("2025-10-06")

	cases := []struct {
		name       string
		channel    models.Channel
		txn        string
		rule       *string
		feeType    *string
		feeRate    *decimal.Decimal
		kira       string
		pg         string
		volume     int64
		wantSettle string
		wantFees   string
		wantAmount string
		wantVar    string
	}{
		{
			name: "fpx no fee", channel: models.ChannelFPX, txn: "2025-10-01",
			kira: "1000.00", pg: "980.50",
			wantSettle: "2025-10-02", wantVar: "19.50",
		},
		{
			name: "tng rule counts past holiday", channel: models.ChannelTNG, txn: "2025-10-03",
			kira: "500.00", pg: "600.00",
			wantSettle: "2025-10-08", wantVar: "-100.00",
		},
		{
			name: "manual override wins", channel: models.ChannelBoost, txn: "2025-10-04",
			rule: strp("t+0"),
			kira: "50.00", pg: "50.00",
			wantSettle: "2025-10-07", wantVar: "0.00",
		},
		{
			name: "percent fee on pg amount", channel: models.ChannelFPX, txn: "2025-10-01",
			feeType: strp("percent"), feeRate: decp("1.5"),
			kira: "1000.00", pg: "980.50",
			wantSettle: "2025-10-02", wantFees: "14.71", wantAmount: "965.79", wantVar: "19.50",
		},
		{
			name: "per volume fee", channel: models.ChannelTNG, txn: "2025-10-01",
			feeType: strp("per_volume"), feeRate: decp("0.30"), volume: 12,
			kira: "980.50", pg: "980.50",
			wantSettle: "2025-10-03", wantFees: "3.60", wantAmount: "976.90", wantVar: "0.00",
		},
		{
			name: "malformed override falls back", channel: models.ChannelFPX, txn: "2025-10-01",
			rule: strp("whenever"),
			kira: "10.00", pg: "10.00",
			wantSettle: "2025-10-02", wantVar: "0.00",
		},
		{
			name: "fee type without rate charges nothing", channel: models.ChannelFPX, txn: "2025-10-01",
			feeType: strp("percent"),
			kira: "10.00", pg: "10.00",
			wantSettle: "2025-10-02", wantVar: "0.00",
		},
	}
	for _, tc := range cases {
		row := &models.KiraPGLedger{
			PgAccountLabel:  "acct_a",
			TransactionDate: mustDate(t, tc.txn),
			Channel:         tc.channel,
			KiraAmount:      dec(tc.kira),
			PgAmount:        dec(tc.pg),
			Volume:          tc.volume,
			SettlementRule:  tc.rule,
			FeeType:         tc.feeType,
			FeeRate:         tc.feeRate,
		}

		computeVarianceDerived(row, rules, holidays)

		if row.SettlementDate == nil {
			t.Fatalf("%s: settlement date expected %s, got nil", tc.name, tc.wantSettle)
		}
		if row.SettlementDate.String() != tc.wantSettle {
			t.Fatalf("%s: settlement date expected %s, got %s", tc.name, tc.wantSettle, row.SettlementDate.String())
		}
		checkDec(t, tc.name+" fees", row.Fees, tc.wantFees)
		checkDec(t, tc.name+" settlement_amount", row.SettlementAmount, tc.wantAmount)
		if !row.DailyVariance.Equal(dec(tc.wantVar)) {
			t.Fatalf("%s: daily variance expected %s, got %s", tc.name, tc.wantVar, row.DailyVariance.String())
		}
	}
}

func TestSortVarianceRows(t *testing.T) {
	rows := []*models.KiraPGLedger{
		{PgAccountLabel: "acct_a", TransactionDate: mustDate(t, "2025-10-02"), Channel: models.ChannelFPX},
		{PgAccountLabel: "acct_b", TransactionDate: mustDate(t, "2025-10-01"), Channel: models.ChannelTNG},
		{PgAccountLabel: "acct_a", TransactionDate: mustDate(t, "2025-10-01"), Channel: models.ChannelTNG},
		{PgAccountLabel: "acct_a", TransactionDate: mustDate(t, "2025-10-01"), Channel: models.ChannelBoost},
	}

	sortVarianceRows(rows)

	want := []struct {
		date    string
		account string
		channel models.Channel
	}{
		{"2025-10-01", "acct_a", models.ChannelBoost},
		{"2025-10-01", "acct_a", models.ChannelTNG},
		{"2025-10-01", "acct_b", models.ChannelTNG},
		{"2025-10-02", "acct_a", models.ChannelFPX},
	}
	for i, w := range want {
		r := rows[i]
		if r.TransactionDate.String() != w.date || r.PgAccountLabel != w.account || r.Channel != w.channel {
			t.Fatalf("position %d expected (%s, %s, %s), got (%s, %s, %s)",
				i, w.date, w.account, w.channel, r.TransactionDate.String(), r.PgAccountLabel, r.Channel)
		}
	}
}

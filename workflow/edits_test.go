package workflow

import (
	"encoding/json"
	"testing"
	"time"

	"bitbucket.org/kiranetwork/recon_backend/models"
)

func TestDecodeEditValue(t *testing.T) {
	cases := []struct {
		raw     string
		field   string
		want    EditKind
		number  string
		text    string
		wantErr bool
	}{
		{`null`, "fpx_fee_rate", EditClear, "", "", false},
		{`"CLEAR"`, "fpx_fee_rate", EditClear, "", "", false},
		{`"  CLEAR  "`, "remarks", EditClear, "", "", false},

		{`12.5`, "fpx_fee_rate", EditSetNumber, "12.5", "", false},
		{`"12.5"`, "fpx_fee_rate", EditSetNumber, "12.5", "", false},
		// Spreadsheet clients send formatted strings for numeric cells.
		{`"1,234.50"`, "withdrawal_amount", EditSetNumber, "1234.5", "", false},
		{`"'230"`, "withdrawal_amount", EditSetNumber, "230", "", false},

		{`"T+2"`, "settlement_rule", EditSetText, "", "T+2", false},
		{`" checked by finance "`, "remarks", EditSetText, "", "checked by finance", false},

		{`"not a number"`, "fpx_fee_rate", 0, "", "", true},
		{`12.5`, "remarks", 0, "", "", true},
		{`true`, "fpx_fee_rate", 0, "", "", true},
		{`{"nested":1}`, "fpx_fee_rate", 0, "", "", true},
	}
	for _, tc := range cases {
		v, err := DecodeEditValue(json.RawMessage(tc.raw), tc.field)
		if tc.wantErr {
			if err == nil {
				t.Fatalf("DecodeEditValue(%s, %s) expected error, got %+v", tc.raw, tc.field, v)
			}
			continue
		}
		if err != nil {
			t.Fatalf("DecodeEditValue(%s, %s) error: %v", tc.raw, tc.field, err)
		}
		if v.Kind != tc.want {
			t.Fatalf("DecodeEditValue(%s, %s) expected kind %d, got %d", tc.raw, tc.field, tc.want, v.Kind)
		}
		if tc.want == EditSetNumber && v.Number.String() != tc.number {
			t.Fatalf("DecodeEditValue(%s, %s) expected number %s, got %s", tc.raw, tc.field, tc.number, v.Number.String())
		}
		if tc.want == EditSetText && v.Text != tc.text {
			t.Fatalf("DecodeEditValue(%s, %s) expected text %q, got %q", tc.raw, tc.field, tc.text, v.Text)
		}
	}
}

func TestApplyDepositEditRules(t *testing.T) {
	var row models.Deposit

	// Rules are normalized to uppercase on write.
	if err := applyDepositEdit(&row, "fpx_settlement_rule", EditValue{Kind: EditSetText, Text: "t+3"}); err != nil {
		t.Fatalf("apply t+3: %v", err)
	}
	if row.FpxSettlementRule == nil || *row.FpxSettlementRule != "T+3" {
		t.Fatalf("expected rule T+3, got %v", row.FpxSettlementRule)
	}

	// A rule that does not parse is rejected, the field keeps its value.
	if err := applyDepositEdit(&row, "fpx_settlement_rule", EditValue{Kind: EditSetText, Text: "whenever"}); err == nil {
		t.Fatalf("expected error for unparseable rule")
	}
	if *row.FpxSettlementRule != "T+3" {
		t.Fatalf("rejected edit must not change the field, got %q", *row.FpxSettlementRule)
	}

	if err := applyDepositEdit(&row, "fpx_settlement_rule", EditValue{Kind: EditClear}); err != nil {
		t.Fatalf("clear rule: %v", err)
	}
	if row.FpxSettlementRule != nil {
		t.Fatalf("expected cleared rule, got %q", *row.FpxSettlementRule)
	}
}

func TestApplyDepositEditFeeTypes(t *testing.T) {
	var row models.Deposit

	// Legacy spellings are accepted and stored lowercased as entered.
	if err := applyDepositEdit(&row, "ewallet_fee_type", EditValue{Kind: EditSetText, Text: "Percent"}); err != nil {
		t.Fatalf("apply percent: %v", err)
	}
	if row.EwalletFeeType == nil || *row.EwalletFeeType != "percent" {
		t.Fatalf("expected fee type percent, got %v", row.EwalletFeeType)
	}

	if err := applyDepositEdit(&row, "ewallet_fee_type", EditValue{Kind: EditSetText, Text: "tiered"}); err == nil {
		t.Fatalf("expected error for unknown fee type")
	}
}

func TestApplyEditsRejectUnknownAndMistyped(t *testing.T) {
	var deposit models.Deposit
	if err := applyDepositEdit(&deposit, "settlement_fund", EditValue{Kind: EditSetNumber}); err == nil {
		t.Fatalf("settlement_fund is not a deposit field, expected error")
	}

	var merchant models.MerchantLedger
	if err := applyMerchantEdit(&merchant, "withdrawal_amount", EditValue{Kind: EditSetText, Text: "abc"}); err == nil {
		t.Fatalf("text into a numeric field expected error")
	}
	if err := applyMerchantEdit(&merchant, "nonsense", EditValue{Kind: EditClear}); err == nil {
		t.Fatalf("unknown field expected error")
	}

	var agent models.AgentLedger
	if err := applyAgentEdit(&agent, "fpx_fee_rate", EditValue{Kind: EditSetNumber}); err == nil {
		t.Fatalf("fpx_fee_rate is not an agent field, expected error")
	}
}

func TestParseMonthKey(t *testing.T) {
	year, month, err := parseMonthKey("2025-10")
	if err != nil {
		t.Fatalf("parseMonthKey: %v", err)
	}
	if year != 2025 || month != time.October {
		t.Fatalf("expected 2025 October, got %d %s", year, month)
	}
	if _, _, err := parseMonthKey("2025/10"); err == nil {
		t.Fatalf("expected error for bad month key")
	}
}

func TestNextMonthOf(t *testing.T) {
	cases := []struct {
		year      int
		month     time.Month
		wantYear  int
		wantMonth time.Month
	}{
		{2025, time.October, 2025, time.November},
		{2025, time.December, 2026, time.January},
	}
	for _, tc := range cases {
		y, m := nextMonthOf(tc.year, tc.month)
		if y != tc.wantYear || m != tc.wantMonth {
			t.Fatalf("nextMonthOf(%d, %s) expected %d %s, got %d %s", tc.year, tc.month, tc.wantYear, tc.wantMonth, y, m)
		}
	}
}

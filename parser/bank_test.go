package parser

import "testing"

func TestParseBankFilename(t *testing.T) {
	cases := []struct {
		filename string
		label    string
		bank     string
		channel  string
	}{
		{"Acme RHB_FPX_All-Transactions-20251001.xlsx", "Acme", "RHB", "FPX"},
		{"Acme RHB_FPX B2B_All-Transactions.xlsx", "Acme", "RHB", "FPXC"},
		{"Beta Sdn Bhd RHB_TNG_Oct.xls", "Beta Sdn Bhd", "RHB", "TNG"},
		{"Gamma RHB_BOOST.csv", "Gamma", "RHB", "BOOST"},
		{"Delta RHB_Shopee_Oct.csv", "Delta", "RHB", "Shopee"},
		{"Epsilon RHB_Current.csv", "Epsilon", "RHB", "ewallet"},
		{"zeta_statement.csv", "zeta", "", "ewallet"},
	}
	for _, tc := range cases {
		meta := parseBankFilename(tc.filename)
		if meta.accountLabel != tc.label {
			t.Fatalf("parseBankFilename(%q) expected label %q, got %q", tc.filename, tc.label, meta.accountLabel)
		}
		if meta.bank != tc.bank {
			t.Fatalf("parseBankFilename(%q) expected bank %q, got %q", tc.filename, tc.bank, meta.bank)
		}
		if meta.channel != tc.channel {
			t.Fatalf("parseBankFilename(%q) expected channel %q, got %q", tc.filename, tc.channel, meta.channel)
		}
	}
}

func TestBankParserCreditColumn(t *testing.T) {
	csv := `RHB Bank Statement,,,,
Account,123456,,,
Order ID,Date,Credit,Debit,Payment Mode
B1,2025-10-01,100.00,,FPX
B2,2025-10-01,,55.00,
B3,2025-10-02,"1,250.00",,
B4,2025-10-02,notanumber,,FPX
`
	results, err := BankParser{}.Parse("Acme RHB_Current_All-Transactions.csv", []byte(csv))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	rows, errs := SplitResults(results)
	if len(rows) != 2 {
		t.Fatalf("expected 2 credit rows, got %d", len(rows))
	}
	if len(errs) != 1 {
		t.Fatalf("expected 1 bad row, got %d: %v", len(errs), errs)
	}

	if rows[0].TransactionId != "B1" || rows[0].Amount.String() != "100" {
		t.Fatalf("B1 expected amount 100, got %s/%s", rows[0].TransactionId, rows[0].Amount.String())
	}
	// The payment mode cell overrides the filename channel.
	if rows[0].Description != "FPX" {
		t.Fatalf("B1 expected description FPX from payment mode, got %q", rows[0].Description)
	}
	// Without a mode cell the filename channel stands.
	if rows[1].TransactionId != "B3" || rows[1].Description != "ewallet" {
		t.Fatalf("B3 expected filename channel ewallet, got %s/%q", rows[1].TransactionId, rows[1].Description)
	}
	if rows[0].AccountLabel != "Acme" || rows[0].Bank != "RHB" {
		t.Fatalf("expected label Acme bank RHB, got %q/%q", rows[0].AccountLabel, rows[0].Bank)
	}
}

func TestBankParserAmountColumnSkipsNonPositive(t *testing.T) {
	csv := `Order ID,Date,Amount
B1,2025-10-01,80.00
B2,2025-10-01,-80.00
B3,2025-10-01,0
`
	results, err := BankParser{}.Parse("Acme RHB_FPX.csv", []byte(csv))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	rows, errs := SplitResults(results)
	if len(rows) != 1 || len(errs) != 0 {
		t.Fatalf("expected only the positive row, got %d rows %d errors", len(rows), len(errs))
	}
	if rows[0].TransactionId != "B1" {
		t.Fatalf("expected B1, got %s", rows[0].TransactionId)
	}
}

func TestBankParserRequiresIdColumn(t *testing.T) {
	csv := "Narrative,Value\nx,1\n"
	if _, err := (BankParser{}).Parse("Acme RHB_Current.csv", []byte(csv)); err == nil {
		t.Fatalf("expected id column detection error")
	}
}

package parser

import "testing"

func TestPGParserRazerFpxLayout(t *testing.T) {
	csv := `MerchantOrderNo,CreatedDate,TransactionAmount,Status
PG1,2025-10-01 08:00:00,120.00,Success
PG2,2025-10-01 09:30:00,"2,400.50",Success
`
	results, err := PGParser{}.Parse("acme_fpx_20251001.csv", "razer", "acme", []byte(csv))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	rows, errs := SplitResults(results)
	if len(rows) != 2 || len(errs) != 0 {
		t.Fatalf("expected 2 rows and 0 errors, got %d/%d", len(rows), len(errs))
	}
	if rows[0].Channel != "FPX" {
		t.Fatalf("fpx layout expected channel FPX, got %q", rows[0].Channel)
	}
	if rows[0].Platform != "razer" || rows[0].AccountLabel != "acme" {
		t.Fatalf("expected platform/label passthrough, got %q/%q", rows[0].Platform, rows[0].AccountLabel)
	}
	if rows[1].Amount.String() != "2400.5" {
		t.Fatalf("expected amount 2400.5, got %s", rows[1].Amount.String())
	}
}

func TestPGParserRazerEwalletLayout(t *testing.T) {
	csv := `MerchantOrderNo,Date,Amount
PG1,2025-10-01,45.00
`
	results, err := PGParser{}.Parse("acme_ewallet_tng_my_2025.csv", "razer", "acme", []byte(csv))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	rows, _ := SplitResults(results)
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}
	// Channel comes from the filename slug for per-channel ewallet files.
	if rows[0].Channel != "tng my" {
		t.Fatalf("expected channel from filename slug %q, got %q", "tng my", rows[0].Channel)
	}
}

func TestPGParserRazerEwalletLayoutWithoutSlug(t *testing.T) {
	csv := `MerchantOrderNo,Date,Amount
PG1,2025-10-01,45.00
`
	results, err := PGParser{}.Parse("renamed.csv", "razer", "acme", []byte(csv))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	rows, _ := SplitResults(results)
	if rows[0].Channel != "ewallet" {
		t.Fatalf("expected fallback channel ewallet, got %q", rows[0].Channel)
	}
}

func TestPGParserFiuuLayout(t *testing.T) {
	csv := `Order Number,Payment Time,Payment Amount,Payment Channels
PG1,2025-10-01 10:00:00,60.00,Malaysia TNG (MYR)
PG2,2025-10-01 10:05:00,70.00,FPX
PG3,bad-date,70.00,FPX
`
	results, err := PGParser{}.Parse("merchantx_20251001.csv", "fiuu", "merchantx", []byte(csv))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	rows, errs := SplitResults(results)
	if len(rows) != 2 || len(errs) != 1 {
		t.Fatalf("expected 2 rows and 1 error, got %d/%d", len(rows), len(errs))
	}
	// The channel word is pulled out of fiuu's verbose cell.
	if rows[0].Channel != "TNG" {
		t.Fatalf("expected channel TNG from %q, got %q", "Malaysia TNG (MYR)", rows[0].Channel)
	}
	if rows[1].Channel != "FPX" {
		t.Fatalf("plain channel cell expected FPX, got %q", rows[1].Channel)
	}
}

func TestPGParserRejectsUnknownLayout(t *testing.T) {
	csv := "Reference,Total\nx,1\n"
	if _, err := (PGParser{}).Parse("mystery.csv", "fiuu", "m", []byte(csv)); err == nil {
		t.Fatalf("expected layout detection error")
	}
}

func TestChannelFromEwalletFilename(t *testing.T) {
	cases := []struct {
		filename string
		want     string
	}{
		{"acme_ewallet_tng_my_2025.csv", "tng my"},
		{"acme_ewallet_boost_2025.csv", "boost"},
		{"acme_ewallet_shopee_pay_2024.xlsx", "shopee pay"},
		{"no_marker_here.csv", "ewallet"},
	}
	for _, tc := range cases {
		if got := channelFromEwalletFilename(tc.filename); got != tc.want {
			t.Fatalf("channelFromEwalletFilename(%q) expected %q, got %q", tc.filename, tc.want, got)
		}
	}
}

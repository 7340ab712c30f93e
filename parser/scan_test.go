package parser

import (
	"os"
	"path/filepath"
	"testing"

	"bitbucket.org/kiranetwork/recon_backend/models"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", dir, err)
	}
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

const razerFpxCSV = `MerchantOrderNo,CreatedDate,TransactionAmount
PG1,2025-10-01 08:00:00,120.00
`

func TestScanDirectory(t *testing.T) {
	inbox := t.TempDir()
	writeFile(t, inbox, "kira_oct.csv", kiraCSV)
	writeFile(t, filepath.Join(inbox, "acme"), "acme_fpx_20251001.csv", razerFpxCSV)
	writeFile(t, inbox, "notes.txt", "ignore me")
	writeFile(t, inbox, "~$lockfile.xlsx", "")
	writeFile(t, inbox, ".hidden.csv", "")

	already := map[string]struct{}{"kira_oct.csv": {}}
	files, err := ScanDirectory(inbox, already)
	if err != nil {
		t.Fatalf("ScanDirectory: %v", err)
	}
	if len(files) != 1 {
		t.Fatalf("expected 1 parsed file (kira skipped, junk filtered), got %d", len(files))
	}

	pf := files[0]
	if pf.Filename != "acme_fpx_20251001.csv" {
		t.Fatalf("expected the gateway file, got %s", pf.Filename)
	}
	if pf.Err != nil {
		t.Fatalf("gateway file failed to parse: %v", pf.Err)
	}
	if pf.Source != models.SourceGateway {
		t.Fatalf("expected gateway source, got %s", pf.Source)
	}
	// Subdirectory name carries the account label.
	if pf.AccountLabel != "acme" {
		t.Fatalf("expected label acme from subdirectory, got %q", pf.AccountLabel)
	}
	if len(pf.PG) != 1 {
		t.Fatalf("expected 1 gateway row, got %d", len(pf.PG))
	}
	if len(pf.Data) == 0 {
		t.Fatalf("raw bytes must be kept for archiving")
	}
}

func TestScanDirectoryMissingInbox(t *testing.T) {
	files, err := ScanDirectory(filepath.Join(t.TempDir(), "does-not-exist"), nil)
	if err != nil {
		t.Fatalf("missing inbox should not error, got %v", err)
	}
	if files != nil {
		t.Fatalf("missing inbox should yield no files, got %d", len(files))
	}
}

func TestParseStatementRouting(t *testing.T) {
	cases := []struct {
		name     string
		dirLabel string
		source   models.TransactionSource
		platform string
	}{
		{"kira_oct.csv", "", models.SourceKira, "kira"},
		{"export_oct.csv", "kira", models.SourceKira, "kira"},
		{"Acme RHB_FPX.csv", "", models.SourceBank, "bank"},
		{"acme_fpx_20251001.csv", "", models.SourceGateway, "razer"},
		{"acme_ewallet_boost_2025.csv", "", models.SourceGateway, "razer"},
		{"merchantx_20251001.csv", "", models.SourceGateway, "fiuu"},
	}
	for _, tc := range cases {
		pf := ParseStatement(tc.name, tc.dirLabel, []byte("x,y\n1,2\n"))
		if pf.Source != tc.source {
			t.Fatalf("ParseStatement(%q) expected source %s, got %s", tc.name, tc.source, pf.Source)
		}
		if pf.Platform != tc.platform {
			t.Fatalf("ParseStatement(%q) expected platform %s, got %s", tc.name, tc.platform, pf.Platform)
		}
	}
}

func TestGatewayAccountLabel(t *testing.T) {
	cases := []struct {
		name     string
		dirLabel string
		want     string
	}{
		{"whatever.csv", "acme", "acme"}, // directory label wins
		{"acme_fpx_20251001.csv", "", "acme"},
		{"big_merchant_ewallet_tng_2025.csv", "", "big_merchant"},
		{"merchantx_20251001.csv", "", "merchantx"},
		{"plain.csv", "", "plain"},
	}
	for _, tc := range cases {
		if got := gatewayAccountLabel(tc.name, tc.dirLabel); got != tc.want {
			t.Fatalf("gatewayAccountLabel(%q, %q) expected %q, got %q", tc.name, tc.dirLabel, tc.want, got)
		}
	}
}

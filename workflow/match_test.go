package workflow

import (
	"testing"

	"bitbucket.org/kiranetwork/recon_backend/models"
	"github.com/shopspring/decimal"
)

func kiraTxn(t *testing.T, id, date, amount string) models.KiraTransaction {
	t.Helper()
	return models.KiraTransaction{
		TransactionId:   id,
		TransactionDate: mustDate(t, date),
		Merchant:        "M1",
		PaymentMethod:   "FPX B2C",
		Amount:          decimal.RequireFromString(amount),
	}
}

func pgTxn(t *testing.T, id, date, amount string) models.PGTransaction {
	t.Helper()
	return models.PGTransaction{
		TransactionId:   id,
		TransactionDate: mustDate(t, date),
		AccountLabel:    "M1",
		Channel:         "FPX",
		Amount:          decimal.RequireFromString(amount),
	}
}

func bankTxn(t *testing.T, id, date, amount string) models.BankTransaction {
	t.Helper()
	return models.BankTransaction{
		TransactionId:   id,
		TransactionDate: mustDate(t, date),
		AccountLabel:    "M1",
		Description:     "FPX settlement",
		Amount:          decimal.RequireFromString(amount),
	}
}

func TestMatchTransactionsRemarks(t *testing.T) {
	kira := []models.KiraTransaction{
		kiraTxn(t, "T1", "2025-10-01", "100"),
		kiraTxn(t, "T2", "2025-10-01", "100"),
		kiraTxn(t, "T3", "2025-10-01", "100"),
		kiraTxn(t, "T4", "2025-10-01", "100"),
		kiraTxn(t, "T5", "2025-10-01", "100"),
		kiraTxn(t, "T6", "2025-10-01", "100"),
		kiraTxn(t, "T7", "2025-10-01", "100"),
		kiraTxn(t, "T8", "2025-10-01", "100"),
		kiraTxn(t, "T9", "2025-10-01", "100"),
	}
	pg := []models.PGTransaction{
		pgTxn(t, "T1", "2025-10-01", "100"),
		pgTxn(t, "T2", "2025-10-01", "90"),
		pgTxn(t, "T3", "2025-10-01", "90"),
		pgTxn(t, "T4", "2025-10-01", "100"),
		pgTxn(t, "T5", "2025-10-01", "100"),
		pgTxn(t, "T6", "2025-10-01", "90"),
		pgTxn(t, "T10", "2025-10-01", "55"),
		pgTxn(t, "T11", "2025-10-01", "55"),
	}
	bank := []models.BankTransaction{
		bankTxn(t, "T1", "2025-10-01", "100"),
		bankTxn(t, "T2", "2025-10-01", "90"),
		bankTxn(t, "T3", "2025-10-01", "100"),
		bankTxn(t, "T4", "2025-10-01", "90"),
		bankTxn(t, "T7", "2025-10-01", "100"),
		bankTxn(t, "T8", "2025-10-01", "90"),
		bankTxn(t, "T10", "2025-10-01", "55"),
		bankTxn(t, "T12", "2025-10-01", "55"),
	}

	rows, stats := MatchTransactions(kira, pg, bank)

	want := map[string]string{
		"T1":  RemarkMatch,
		"T2":  RemarkNotMatchGatewayBank,
		"T3":  RemarkNotMatchGateway,
		"T4":  RemarkNotMatchBank,
		"T5":  RemarkMatchGatewayOnly,
		"T6":  RemarkNotMatchGateway,
		"T7":  RemarkMatchBankOnly,
		"T8":  RemarkNotMatchBank,
		"T9":  RemarkNoDataGatewayBank,
		"T10": RemarkNoInternalData,
		"T11": RemarkNoInternalDataGateway,
		"T12": RemarkNoInternalDataBank,
	}

	if len(rows) != len(want) {
		t.Fatalf("expected %d rows, got %d", len(want), len(rows))
	}
	byId := make(map[string]ReconRow, len(rows))
	for _, r := range rows {
		byId[r.TransactionId] = r
	}
	for id, remark := range want {
		row, ok := byId[id]
		if !ok {
			t.Fatalf("row %s missing from output", id)
		}
		if row.Remarks != remark {
			t.Fatalf("row %s expected remark %q, got %q", id, remark, row.Remarks)
		}
	}

	if stats.Total != 12 {
		t.Fatalf("expected total 12, got %d", stats.Total)
	}
	if stats.Matched != 3 {
		t.Fatalf("expected 3 matched, got %d", stats.Matched)
	}
	if stats.Mismatched != 5 {
		t.Fatalf("expected 5 mismatched, got %d", stats.Mismatched)
	}
	if stats.MissingInternal != 3 {
		t.Fatalf("expected 3 missing internal, got %d", stats.MissingInternal)
	}
	if stats.MissingExternal != 1 {
		t.Fatalf("expected 1 missing external, got %d", stats.MissingExternal)
	}
	if stats.Unknown != 0 {
		t.Fatalf("expected 0 unknown, got %d", stats.Unknown)
	}
}

// Amounts compare equal only after 2dp rounding; sub-cent noise from
// source exports must not produce mismatches.
func TestMatchTransactionsRoundsBeforeComparing(t *testing.T) {
	kira := []models.KiraTransaction{kiraTxn(t, "T1", "2025-10-01", "10.001")}
	pg := []models.PGTransaction{pgTxn(t, "T1", "2025-10-01", "10.00")}

	rows, stats := MatchTransactions(kira, pg, nil)
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}
	if rows[0].Remarks != RemarkMatchGatewayOnly {
		t.Fatalf("expected %q, got %q", RemarkMatchGatewayOnly, rows[0].Remarks)
	}
	if stats.Matched != 1 {
		t.Fatalf("expected 1 matched, got %d", stats.Matched)
	}
}

func TestMatchTransactionsOrdering(t *testing.T) {
	kira := []models.KiraTransaction{
		kiraTxn(t, "B", "2025-10-02", "1"),
		kiraTxn(t, "A", "2025-10-02", "1"),
		kiraTxn(t, "Z", "2025-10-01", "1"),
	}
	rows, _ := MatchTransactions(kira, nil, nil)
	got := []string{rows[0].TransactionId, rows[1].TransactionId, rows[2].TransactionId}
	if got[0] != "Z" || got[1] != "A" || got[2] != "B" {
		t.Fatalf("expected date then id ordering [Z A B], got %v", got)
	}
}

// The channel on a joined row comes from the first source that saw it:
// internal payment method, then gateway channel, then bank description.
func TestMatchTransactionsChannelFallback(t *testing.T) {
	pg := []models.PGTransaction{pgTxn(t, "T1", "2025-10-01", "5")}
	bank := []models.BankTransaction{bankTxn(t, "T2", "2025-10-01", "5")}

	rows, _ := MatchTransactions(nil, pg, bank)
	byId := map[string]ReconRow{}
	for _, r := range rows {
		byId[r.TransactionId] = r
	}
	if byId["T1"].Channel != models.ChannelFPX {
		t.Fatalf("gateway-only row expected channel FPX, got %s", byId["T1"].Channel)
	}
	if byId["T2"].Channel != models.ChannelFPX {
		t.Fatalf("bank-only row expected channel FPX from description, got %s", byId["T2"].Channel)
	}
}

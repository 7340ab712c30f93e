package parser

import (
	"strings"
	"testing"
)

const kiraCSV = `Kira Transaction Export,,,,,,
Transaction ID,Created On,Transaction Amount,Payment Method,Merchant,MDR,Settlement Amount
TX1,2025-10-01 10:15:00,"1,000.00",FPX B2C,M1,1.00,998.00
TX1,2025-10-01 10:15:00,"1,000.00",FPX B2C,M1,1.00,998.00
,2025-10-01 11:00:00,50.00,FPX,M1,,
TX2,31-31-2025,50.00,FPX,M1,,
TX3,2025-10-02 09:00:00,abc,FPX,M1,,
TX4,02/10/2025,75.50,TNG,M1,xx,
`

func TestKiraParser(t *testing.T) {
	results, err := KiraParser{}.Parse("kira_oct.csv", []byte(kiraCSV))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	rows, errs := SplitResults(results)
	if len(rows) != 2 {
		t.Fatalf("expected 2 good rows, got %d", len(rows))
	}
	if len(errs) != 3 {
		t.Fatalf("expected 3 bad rows (empty id, bad date, bad amount), got %d: %v", len(errs), errs)
	}

	tx1 := rows[0]
	if tx1.TransactionId != "TX1" {
		t.Fatalf("expected TX1 first, got %s", tx1.TransactionId)
	}
	if tx1.TransactionDate.String() != "2025-10-01" {
		t.Fatalf("TX1 expected date 2025-10-01, got %s", tx1.TransactionDate.String())
	}
	if tx1.Amount.String() != "1000" {
		t.Fatalf("TX1 expected amount 1000 (separators stripped), got %s", tx1.Amount.String())
	}
	if tx1.PaymentMethod != "FPX B2C" {
		t.Fatalf("TX1 expected raw payment method, got %q", tx1.PaymentMethod)
	}
	if tx1.Merchant != "M1" {
		t.Fatalf("TX1 expected merchant M1, got %q", tx1.Merchant)
	}
	if tx1.Mdr == nil || tx1.Mdr.String() != "1" {
		t.Fatalf("TX1 expected mdr 1, got %v", tx1.Mdr)
	}
	if tx1.SettlementAmount == nil || tx1.SettlementAmount.String() != "998" {
		t.Fatalf("TX1 expected settlement 998, got %v", tx1.SettlementAmount)
	}

	// dd/mm date layout, junk in an optional column.
	tx4 := rows[1]
	if tx4.TransactionId != "TX4" {
		t.Fatalf("expected TX4 second, got %s", tx4.TransactionId)
	}
	if tx4.TransactionDate.String() != "2025-10-02" {
		t.Fatalf("TX4 expected date 2025-10-02, got %s", tx4.TransactionDate.String())
	}
	if tx4.Mdr != nil {
		t.Fatalf("unparseable optional mdr should come back nil, got %v", tx4.Mdr)
	}
}

func TestKiraParserRejectsUnknownLayout(t *testing.T) {
	csv := "Name,Total\nfoo,1\n"
	if _, err := (KiraParser{}).Parse("kira.csv", []byte(csv)); err == nil {
		t.Fatalf("expected header detection error")
	}
}

func TestKiraParserDuplicateIdsDropped(t *testing.T) {
	var b strings.Builder
	b.WriteString("Transaction ID,Created On,Transaction Amount,Payment Method\n")
	for i := 0; i < 3; i++ {
		b.WriteString("SAME,2025-10-01,10.00,FPX\n")
	}
	results, err := KiraParser{}.Parse("kira.csv", []byte(b.String()))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	rows, errs := SplitResults(results)
	if len(rows) != 1 || len(errs) != 0 {
		t.Fatalf("expected exactly 1 row and 0 errors, got %d/%d", len(rows), len(errs))
	}
}

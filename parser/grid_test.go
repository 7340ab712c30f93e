package parser

import "testing"

func TestColumnIndexKeepsFirstDuplicate(t *testing.T) {
	idx := columnIndex([]string{"Amount", " amount ", "Date", ""})
	if idx["amount"] != 0 {
		t.Fatalf("duplicate header should keep the first column, got %d", idx["amount"])
	}
	if idx["date"] != 2 {
		t.Fatalf("expected date at 2, got %d", idx["date"])
	}
	if _, ok := idx[""]; ok {
		t.Fatalf("blank headers must not be indexed")
	}
}

func TestCellToleratesShortRows(t *testing.T) {
	row := []string{"a", " b "}
	if got := cell(row, 1); got != "b" {
		t.Fatalf("expected trimmed b, got %q", got)
	}
	if got := cell(row, 5); got != "" {
		t.Fatalf("out of range expected empty, got %q", got)
	}
	if got := cell(row, -1); got != "" {
		t.Fatalf("negative index expected empty, got %q", got)
	}
}

func TestFindHeaderRowScanLimit(t *testing.T) {
	rows := make([][]string, 0, 12)
	for i := 0; i < 11; i++ {
		rows = append(rows, []string{"filler"})
	}
	rows = append(rows, []string{"Transaction ID"})

	at := findHeaderRow(rows, func(idx map[string]int) bool {
		_, ok := idx["transaction id"]
		return ok
	})
	if at != -1 {
		t.Fatalf("header beyond the scan limit must not be found, got %d", at)
	}

	at = findHeaderRow([][]string{{"junk"}, {"Transaction ID"}}, func(idx map[string]int) bool {
		_, ok := idx["transaction id"]
		return ok
	})
	if at != 1 {
		t.Fatalf("expected header at 1, got %d", at)
	}
}

func TestReadGridRejectsUnknownExtension(t *testing.T) {
	if _, err := readGrid("statement.pdf", []byte("x")); err == nil {
		t.Fatalf("expected unsupported format error")
	}
}

func TestReadGridCSVLaxSettings(t *testing.T) {
	data := []byte("a,b,c\n1,2\nonly\n")
	grid, err := readGrid("f.csv", data)
	if err != nil {
		t.Fatalf("readGrid: %v", err)
	}
	if len(grid) != 3 {
		t.Fatalf("expected 3 rows with ragged widths, got %d", len(grid))
	}
	if len(grid[1]) != 2 || len(grid[2]) != 1 {
		t.Fatalf("ragged rows must survive, got %d/%d", len(grid[1]), len(grid[2]))
	}
}

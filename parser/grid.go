package parser

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/extrame/xls"
	"github.com/xuri/excelize/v2"
)

// headerScanLimit caps how deep into a file the header search goes.
// Bank exports put account metadata above the real header row.
const headerScanLimit = 10

// readGrid loads a statement file into a string grid, routed by
// extension. xlsx via excelize, legacy xls via extrame/xls, csv via
// encoding/csv with the lax settings portal exports need.
func readGrid(filename string, data []byte) ([][]string, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".xlsx":
		return readGridXLSX(data)
	case ".xls":
		return readGridXLS(data)
	case ".csv":
		return readGridCSV(data)
	}
	return nil, fmt.Errorf("unsupported file format %q", filepath.Ext(filename))
}

func readGridXLSX(data []byte) ([][]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	sheetName := f.GetSheetName(0)
	rows, err := f.GetRows(sheetName)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func readGridXLS(data []byte) ([][]string, error) {
	wb, err := xls.OpenReader(bytes.NewReader(data), "utf-8")
	if err != nil {
		return nil, err
	}
	sheet := wb.GetSheet(0)
	if sheet == nil {
		return nil, fmt.Errorf("no sheets found")
	}

	var rows [][]string
	for i := 0; i <= int(sheet.MaxRow); i++ {
		row := sheet.Row(i)
		if row == nil {
			rows = append(rows, nil)
			continue
		}
		cells := make([]string, 0, row.LastCol())
		for j := 0; j < row.LastCol(); j++ {
			cells = append(cells, row.Col(j))
		}
		rows = append(rows, cells)
	}
	return rows, nil
}

func readGridCSV(data []byte) ([][]string, error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	r.TrimLeadingSpace = true
	return r.ReadAll()
}

// columnIndex maps lowercased trimmed header names to column positions.
// Duplicate names keep the first occurrence.
func columnIndex(header []string) map[string]int {
	idx := make(map[string]int, len(header))
	for i, name := range header {
		key := strings.ToLower(strings.TrimSpace(name))
		if key == "" {
			continue
		}
		if _, seen := idx[key]; !seen {
			idx[key] = i
		}
	}
	return idx
}

// findColumn returns the position of the first candidate present.
func findColumn(idx map[string]int, candidates ...string) (int, bool) {
	for _, c := range candidates {
		if i, ok := idx[c]; ok {
			return i, true
		}
	}
	return -1, false
}

// findHeaderRow locates the header by probing the first few rows for
// the required column names. Returns the header's index or -1.
func findHeaderRow(rows [][]string, required func(idx map[string]int) bool) int {
	limit := len(rows)
	if limit > headerScanLimit {
		limit = headerScanLimit
	}
	for i := 0; i < limit; i++ {
		if required(columnIndex(rows[i])) {
			return i
		}
	}
	return -1
}

// cell reads a column from a row, tolerating short rows.
func cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func rowIsEmpty(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

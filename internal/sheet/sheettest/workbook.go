// Package sheettest builds spreadsheet fixtures for tests.
package sheettest

import (
	"testing"

	"github.com/xuri/excelize/v2"
)

// Sheet describes one sheet of a generated fixture workbook.
type Sheet struct {
	Name      string
	HeaderRow int // 1-based; rows above it get a title line
	Header    []any
	Rows      [][]any
}

// WriteWorkbook writes an xlsx fixture with the given sheets to path.
func WriteWorkbook(t testing.TB, path string, sheets ...Sheet) {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()

	for i, s := range sheets {
		if i == 0 {
			if err := f.SetSheetName("Sheet1", s.Name); err != nil {
				t.Fatalf("renaming sheet: %v", err)
			}
		} else if _, err := f.NewSheet(s.Name); err != nil {
			t.Fatalf("adding sheet %s: %v", s.Name, err)
		}

		headerRow := s.HeaderRow
		if headerRow < 1 {
			headerRow = 1
		}
		if headerRow > 1 {
			if err := f.SetCellValue(s.Name, "A1", "PAYROLL DEDUCTION"); err != nil {
				t.Fatalf("writing title: %v", err)
			}
		}
		setRow(t, f, s.Name, headerRow, s.Header)
		for j, row := range s.Rows {
			setRow(t, f, s.Name, headerRow+1+j, row)
		}
	}

	if err := f.SaveAs(path); err != nil {
		t.Fatalf("saving workbook: %v", err)
	}
}

func setRow(t testing.TB, f *excelize.File, sheet string, row int, values []any) {
	t.Helper()
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		t.Fatalf("cell name: %v", err)
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		t.Fatalf("writing row %d: %v", row, err)
	}
}

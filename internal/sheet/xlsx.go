package sheet

import (
	"github.com/xuri/excelize/v2"
)

// XLSXFormat reads Office Open XML workbooks with excelize's streaming row
// iterator, so only one row is held in memory at a time.
type XLSXFormat struct{}

// Extension returns "xlsx".
func (XLSXFormat) Extension() string { return "xlsx" }

// Open opens an xlsx file. Large sheets spill to opts.TempDir.
func (XLSXFormat) Open(path string, opts Options) (Workbook, error) {
	f, err := excelize.OpenFile(path, excelize.Options{TmpDir: opts.TempDir})
	if err != nil {
		return nil, err
	}
	return &xlsxWorkbook{f: f}, nil
}

type xlsxWorkbook struct {
	f *excelize.File
}

func (w *xlsxWorkbook) SheetNames() []string { return w.f.GetSheetList() }

func (w *xlsxWorkbook) Rows(sheet string) (RowReader, error) {
	rows, err := w.f.Rows(sheet)
	if err != nil {
		return nil, err
	}
	return &xlsxRows{rows: rows}, nil
}

func (w *xlsxWorkbook) Close() error { return w.f.Close() }

type xlsxRows struct {
	rows *excelize.Rows
}

func (r *xlsxRows) Next() bool { return r.rows.Next() }

// Columns returns raw cell values so card numbers stored as numbers are not
// reformatted (e.g. into scientific notation).
func (r *xlsxRows) Columns() ([]string, error) {
	return r.rows.Columns(excelize.Options{RawCellValue: true})
}

func (r *xlsxRows) Error() error { return r.rows.Error() }

func (r *xlsxRows) Close() error { return r.rows.Close() }

package sheet

import (
	"fmt"
	"os"

	"github.com/shakinm/xlsReader/xls"
	"github.com/shakinm/xlsReader/xls/structure"
)

// XLSFormat reads legacy BIFF workbooks. The decoder parses the whole file up
// front; the format itself caps a sheet at 65536 rows.
type XLSFormat struct{}

// Extension returns "xls".
func (XLSFormat) Extension() string { return "xls" }

// Open opens an xls file.
func (XLSFormat) Open(path string, _ Options) (Workbook, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	wb, err := xls.OpenReader(f)
	if err != nil {
		return nil, err
	}

	out := &xlsWorkbook{rows: make(map[string][][]string)}
	for i := range wb.GetSheets() {
		sh, err := wb.GetSheet(i)
		if err != nil {
			return nil, fmt.Errorf("reading sheet %d: %w", i, err)
		}
		name := sh.GetName()
		var rows [][]string
		for _, row := range sh.GetRows() {
			rows = append(rows, xlsCells(row.GetCols()))
		}
		out.names = append(out.names, name)
		out.rows[name] = rows
	}
	return out, nil
}

// xlsCells renders one decoded row. The decoder pads missing rows with no
// cells and gaps inside a row with blank cells; numbers render without a
// trailing ".0" so numeric card numbers read as typed.
func xlsCells(cells []structure.CellData) []string {
	cols := make([]string, len(cells))
	for i, cell := range cells {
		if cell != nil {
			cols[i] = cell.GetString()
		}
	}
	return cols
}

type xlsWorkbook struct {
	names []string
	rows  map[string][][]string
}

func (w *xlsWorkbook) SheetNames() []string { return w.names }

func (w *xlsWorkbook) Rows(sheet string) (RowReader, error) {
	rows, ok := w.rows[sheet]
	if !ok {
		return nil, fmt.Errorf("sheet %q does not exist", sheet)
	}
	return &sliceRows{rows: rows, pos: -1}, nil
}

func (w *xlsWorkbook) Close() error { return nil }

// sliceRows adapts an in-memory sheet to RowReader.
type sliceRows struct {
	rows [][]string
	pos  int
}

func (r *sliceRows) Next() bool {
	if r.pos+1 >= len(r.rows) {
		return false
	}
	r.pos++
	return true
}

func (r *sliceRows) Columns() ([]string, error) {
	if r.pos < 0 || r.pos >= len(r.rows) {
		return nil, fmt.Errorf("no current row")
	}
	return r.rows[r.pos], nil
}

func (r *sliceRows) Error() error { return nil }

func (r *sliceRows) Close() error { return nil }

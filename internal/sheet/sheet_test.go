package sheet

import (
	"errors"
	"io"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/cleared-dev/payroll/internal/model"
	"github.com/cleared-dev/payroll/internal/sheet/sheettest"
)

// memWorkbook is an in-memory Workbook for paging tests.
type memWorkbook struct {
	names  []string
	sheets map[string][][]string
	closed bool
}

func newMemWorkbook() *memWorkbook {
	return &memWorkbook{sheets: make(map[string][][]string)}
}

func (w *memWorkbook) add(name string, rows ...[]string) *memWorkbook {
	w.names = append(w.names, name)
	w.sheets[name] = rows
	return w
}

func (w *memWorkbook) SheetNames() []string { return w.names }

func (w *memWorkbook) Rows(name string) (RowReader, error) {
	return &sliceRows{rows: w.sheets[name], pos: -1}, nil
}

func (w *memWorkbook) Close() error {
	w.closed = true
	return nil
}

var header = []string{"Card No", "Full Name", "Payroll Deduction", "Reference", "Department"}

func preamble(n int) [][]string {
	rows := make([][]string, n)
	rows[0] = []string{"PAYROLL DEDUCTION - MARCH 2025"}
	return rows
}

func withHeader(data ...[]string) [][]string {
	rows := append(preamble(2), header)
	return append(rows, data...)
}

func drain(t *testing.T, src *Source) []Page {
	t.Helper()
	var pages []Page
	for {
		p, err := src.NextPage()
		if errors.Is(err, io.EOF) {
			return pages
		}
		require.NoError(t, err)
		pages = append(pages, p)
	}
}

func TestSlug(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Card No", "card_no"},
		{"Card No.", "card_no"},
		{"  FULL  NAME ", "full_name"},
		{"Payroll-Deduction", "payroll_deduction"},
		{"Reference", "reference"},
		{"Número", "numero"},
		{"", ""},
		{"#", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Slug(tt.in), "Slug(%q)", tt.in)
	}
}

func TestParseAmount(t *testing.T) {
	good := map[string]string{
		"100":        "100",
		"1,500.50":   "1500.5",
		" 250.00 ":   "250",
		"₱ 1,000":    "1000",
		"PHP 75.25":  "75.25",
		"0.01":       "0.01",
		"2.5E+2":     "250",
		"1234567.89": "1234567.89",
	}
	for in, want := range good {
		d, err := parseAmount(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, d.String(), in)
	}

	for _, in := range []string{"", "abc", "0", "-50", "12..5"} {
		_, err := parseAmount(in)
		assert.ErrorIs(t, err, ErrInvalidAmount, in)
	}
}

func TestParseAmount_NegativeIsRefused(t *testing.T) {
	_, err := parseAmount("-1,500.50")
	require.ErrorIs(t, err, ErrInvalidAmount)
	assert.EqualError(t, err, "invalid payroll deduction amount: -1500.5 (reversals are not posted)")

	_, err = parseAmount("0.00")
	require.ErrorIs(t, err, ErrInvalidAmount)
	assert.NotContains(t, err.Error(), "reversal")
}

func TestSource_Paging(t *testing.T) {
	wb := newMemWorkbook().add("Sheet1", withHeader(
		[]string{"100234", "DELA CRUZ, JUAN", "100", "PD-0325"},
		[]string{"100235", "SANTOS, ANA", "250.50", "PD-0325"},
		[]string{"100236", "REYES, JOSE", "75", "PD-0325"},
	)...)

	src := NewSource("march.xlsx", wb, Options{HeaderRow: 3, ChunkSize: 2})
	pages := drain(t, src)
	require.Len(t, pages, 2)

	assert.True(t, pages[0].First)
	assert.False(t, pages[0].Last)
	require.Len(t, pages[0].Records, 2)
	assert.Equal(t, 4, pages[0].Records[0].Row)
	assert.Equal(t, "100234", pages[0].Records[0].Intent.CardNumber)
	assert.Equal(t, "DELA CRUZ, JUAN", pages[0].Records[0].Intent.FullName)
	assert.Equal(t, "100", pages[0].Records[0].Intent.Amount.String())
	assert.Equal(t, "PD-0325", pages[0].Records[0].Intent.ReferenceNumber)
	assert.Equal(t, 1, pages[0].Records[0].Intent.SheetOrdinal)

	assert.False(t, pages[1].First)
	assert.True(t, pages[1].Last)
	require.Len(t, pages[1].Records, 1)
	assert.Equal(t, 6, pages[1].Records[0].Row)

	require.NoError(t, src.Close())
	assert.True(t, wb.closed)
}

func TestSource_NotRestartable(t *testing.T) {
	wb := newMemWorkbook().add("Sheet1", withHeader([]string{"1", "A", "10", "R"})...)
	src := NewSource("a.xlsx", wb, Options{HeaderRow: 3, ChunkSize: 10})

	drain(t, src)
	_, err := src.NextPage()
	assert.ErrorIs(t, err, io.EOF)
}

func TestSource_TwoSheetsOrdinals(t *testing.T) {
	wb := newMemWorkbook().
		add("Regular", withHeader([]string{"1", "A", "10", "R1"})...).
		add("Empty").
		add("Confidential", withHeader([]string{"2", "B", "20", "R2"})...)

	src := NewSource("a.xlsx", wb, Options{HeaderRow: 3, ChunkSize: 10})
	pages := drain(t, src)
	require.Len(t, pages, 2)

	assert.Equal(t, "Regular", pages[0].Sheet)
	assert.Equal(t, 1, pages[0].Ordinal)
	assert.Equal(t, "Confidential", pages[1].Sheet)
	assert.Equal(t, 2, pages[1].Ordinal)
	assert.Equal(t, 2, pages[1].Records[0].Intent.SheetOrdinal)

	assert.Equal(t, "Non-confidential", Label(1))
	assert.Equal(t, "Confidential", Label(2))
	assert.Equal(t, "Sheet 3", Label(3))
}

func TestSource_OrdinalsArePerSource(t *testing.T) {
	for i := 0; i < 2; i++ {
		wb := newMemWorkbook().add("Sheet1", withHeader([]string{"1", "A", "10", "R"})...)
		pages := drain(t, NewSource("a.xlsx", wb, Options{HeaderRow: 3, ChunkSize: 10}))
		require.Len(t, pages, 1)
		assert.Equal(t, 1, pages[0].Ordinal, "run %d", i)
	}
}

func TestSource_MissingHeaders(t *testing.T) {
	rows := append(preamble(2),
		[]string{"Card Number", "Full Name", "Amount"},
		[]string{"100234", "DELA CRUZ, JUAN", "100"},
	)
	wb := newMemWorkbook().add("Sheet1", rows...)
	src := NewSource("march.xlsx", wb, Options{HeaderRow: 3, ChunkSize: 10})

	_, err := src.NextPage()
	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrFormat)

	var fe *FormatError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, []string{ColCardNumber, ColAmount, ColReference}, fe.Missing)
	assert.Equal(t, "card_number", fe.Suggestions[ColCardNumber])
	assert.Contains(t, err.Error(), "march.xlsx [Sheet1]")
	assert.Contains(t, err.Error(), "reference")
	assert.True(t, IsFormatError(err))
}

func TestSource_InvalidAmountIsRowLevel(t *testing.T) {
	wb := newMemWorkbook().add("Sheet1", withHeader(
		[]string{"100234", "DELA CRUZ, JUAN", "n/a", "PD-0325"},
		[]string{"100235", "SANTOS, ANA", "50", "PD-0325"},
	)...)
	pages := drain(t, NewSource("a.xlsx", wb, Options{HeaderRow: 3, ChunkSize: 10}))
	require.Len(t, pages, 1)
	require.Len(t, pages[0].Records, 2)

	bad := pages[0].Records[0]
	assert.ErrorIs(t, bad.Err, ErrInvalidAmount)
	assert.Equal(t, "100234", bad.Intent.CardNumber)
	assert.NoError(t, pages[0].Records[1].Err)
}

func TestSource_SkipsBlankRowsAndNormalizes(t *testing.T) {
	wb := newMemWorkbook().add("Sheet1", withHeader(
		[]string{" 100234 ", "DELA  CRUZ,   JUAN", "100", "PD-0325"},
		[]string{},
		[]string{"", "", "", "", "ignored extra"},
		[]string{"100235", "SANTOS, ANA", "50"},
	)...)
	pages := drain(t, NewSource("a.xlsx", wb, Options{HeaderRow: 3, ChunkSize: 10}))
	require.Len(t, pages, 1)
	require.Len(t, pages[0].Records, 2)

	assert.Equal(t, "100234", pages[0].Records[0].Intent.CardNumber)
	assert.Equal(t, "DELA CRUZ, JUAN", pages[0].Records[0].Intent.FullName)
	assert.Equal(t, 7, pages[0].Records[1].Row)
	assert.Empty(t, pages[0].Records[1].Intent.ReferenceNumber, "short rows read as blank cells")
}

func TestRegistry(t *testing.T) {
	r := DefaultRegistry()
	assert.NotNil(t, r.Get("xlsx"))
	assert.NotNil(t, r.Get(".XLS"))
	assert.Nil(t, r.Get("csv"))
	assert.ElementsMatch(t, []string{"xlsx", "xls"}, r.Extensions())

	assert.Panics(t, func() { r.Register(&XLSXFormat{}) })
}

func TestRegistry_OpenRejectsCSV(t *testing.T) {
	_, err := DefaultRegistry().Open(filepath.Join(t.TempDir(), "march.csv"), Options{})
	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrFormat)
}

func TestXLSX_EndToEnd(t *testing.T) {
	path := filepath.Join(t.TempDir(), "march.xlsx")
	sheettest.WriteWorkbook(t, path, sheettest.Sheet{
		Name:      "Non-Confidential",
		HeaderRow: 7,
		Header:    []any{"Card No", "Full Name", "Payroll Deduction", "Reference"},
		Rows: [][]any{
			{"100234", "DELA CRUZ, JUAN", 100, "PD-0325"},
			{100235, "SANTOS, ANA", 1500.75, "PD-0325"},
		},
	})

	wb, err := DefaultRegistry().Open(path, Options{TempDir: t.TempDir()})
	require.NoError(t, err)
	src := NewSource("march.xlsx", wb, Options{HeaderRow: 7, ChunkSize: 1000})
	defer src.Close()

	pages := drain(t, src)
	require.Len(t, pages, 1)
	require.Len(t, pages[0].Records, 2)
	assert.Equal(t, 8, pages[0].Records[0].Row)
	assert.Equal(t, "100", pages[0].Records[0].Intent.Amount.String())
	assert.Equal(t, "100235", pages[0].Records[1].Intent.CardNumber)
	assert.Equal(t, "1500.75", pages[0].Records[1].Intent.Amount.String())
}

func TestWriteWorkbook_MultipleSheets(t *testing.T) {
	path := filepath.Join(t.TempDir(), "two.xlsx")
	sheettest.WriteWorkbook(t, path,
		sheettest.Sheet{Name: "A", HeaderRow: 1, Header: []any{"Card No", "Full Name", "Payroll Deduction", "Reference"}},
		sheettest.Sheet{Name: "B", HeaderRow: 1, Header: []any{"Card No", "Full Name", "Payroll Deduction", "Reference"}},
	)

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, []string{"A", "B"}, f.GetSheetList())
}

func TestSource_HeaderRowPastEndOfSheet(t *testing.T) {
	wb := newMemWorkbook().add("Sheet1",
		[]string{"Card No", "Full Name", "Payroll Deduction", "Reference"},
		[]string{"100234", "DELA CRUZ, JUAN", "100", "PD-0325"},
		[]string{"100235", "SANTOS, ANA", "50", "PD-0325"},
		[]string{"100236", "REYES, JOSE", "75", "PD-0325"},
	)
	src := NewSource("march.xlsx", wb, Options{HeaderRow: 7, ChunkSize: 10})

	_, err := src.NextPage()
	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrFormat)

	var fe *FormatError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, "Sheet1", fe.Sheet)
	assert.Equal(t, RequiredColumns, fe.Missing)
	assert.Contains(t, err.Error(), "header row 7 not found")
}

func TestSource_BlankShortSheetIsSkipped(t *testing.T) {
	wb := newMemWorkbook().
		add("Notes", []string{}, []string{"", "  "}).
		add("Sheet1", withHeader([]string{"1", "A", "10", "R"})...)

	pages := drain(t, NewSource("a.xlsx", wb, Options{HeaderRow: 3, ChunkSize: 10}))
	require.Len(t, pages, 1)
	assert.Equal(t, "Sheet1", pages[0].Sheet)
	assert.Equal(t, 1, pages[0].Ordinal)
}

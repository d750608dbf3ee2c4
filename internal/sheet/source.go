package sheet

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/cleared-dev/payroll/internal/model"
)

// Options controls how a workbook is paged.
type Options struct {
	HeaderRow int    // 1-based row holding the column labels
	ChunkSize int    // records per page
	TempDir   string // spill directory for large xlsx sheets
}

// Record is one data row of a sheet. Err is set when the row could not be
// turned into an intent; Intent still carries whatever identity was read.
type Record struct {
	Row    int // 1-based sheet row
	Intent model.PaymentIntent
	Err    error
}

// Page is a bounded slice of one sheet's records.
type Page struct {
	File    string
	Sheet   string
	Ordinal int
	First   bool // first page of the sheet
	Last    bool // sheet is exhausted after this page
	Records []Record
}

// Label names a sheet ordinal for operator output.
func Label(ordinal int) string {
	switch ordinal {
	case 1:
		return "Non-confidential"
	case 2:
		return "Confidential"
	default:
		return fmt.Sprintf("Sheet %d", ordinal)
	}
}

// Source produces pages of payment intents from one workbook, sheet by sheet.
// It is single-use: once NextPage returns io.EOF the workbook must be reopened
// to read it again.
type Source struct {
	file string
	wb   Workbook
	opts Options

	sheets  []string
	next    int // index into sheets of the next sheet to open
	ordinal int

	rows   RowReader
	cols   columnIndex
	sheet  string
	rowNum int
	first  bool
}

// NewSource wraps an opened workbook.
func NewSource(file string, wb Workbook, opts Options) *Source {
	if opts.HeaderRow < 1 {
		opts.HeaderRow = 1
	}
	if opts.ChunkSize < 1 {
		opts.ChunkSize = 1000
	}
	return &Source{file: file, wb: wb, opts: opts, sheets: wb.SheetNames()}
}

// NextPage returns up to ChunkSize records. A sheet whose header lacks a
// required column yields a *FormatError before any of its rows are read.
// io.EOF signals that every sheet has been consumed.
func (s *Source) NextPage() (Page, error) {
	if s.rows == nil {
		if err := s.openNextSheet(); err != nil {
			return Page{}, err
		}
	}

	page := Page{File: s.file, Sheet: s.sheet, Ordinal: s.ordinal, First: s.first}
	s.first = false

	for len(page.Records) < s.opts.ChunkSize {
		if !s.rows.Next() {
			err := s.rows.Error()
			s.closeSheet()
			if err != nil {
				return Page{}, fmt.Errorf("reading %s [%s]: %w", s.file, page.Sheet, err)
			}
			page.Last = true
			break
		}
		s.rowNum++
		cols, err := s.rows.Columns()
		if err != nil {
			s.closeSheet()
			return Page{}, fmt.Errorf("reading %s [%s] row %d: %w", s.file, page.Sheet, s.rowNum, err)
		}
		rec, ok := s.record(cols)
		if !ok {
			continue
		}
		page.Records = append(page.Records, rec)
	}
	return page, nil
}

// Close releases the current sheet and the workbook.
func (s *Source) Close() error {
	s.closeSheet()
	return s.wb.Close()
}

func (s *Source) openNextSheet() error {
	for s.next < len(s.sheets) {
		name := s.sheets[s.next]
		s.next++

		rows, err := s.wb.Rows(name)
		if err != nil {
			return fmt.Errorf("opening %s [%s]: %w", s.file, name, err)
		}

		header, found, err := readHeader(rows, s.opts.HeaderRow)
		if err != nil {
			rows.Close()
			return fmt.Errorf("reading %s [%s] header: %w", s.file, name, err)
		}
		switch found {
		case headerBlankSheet:
			rows.Close()
			continue
		case headerMissing:
			rows.Close()
			return &FormatError{
				File:    s.file,
				Sheet:   name,
				Reason:  fmt.Sprintf("header row %d not found", s.opts.HeaderRow),
				Missing: RequiredColumns,
			}
		}

		cols, err := indexHeader(s.file, name, header)
		if err != nil {
			rows.Close()
			return err
		}

		s.ordinal++
		s.rows = rows
		s.cols = cols
		s.sheet = name
		s.rowNum = s.opts.HeaderRow
		s.first = true
		return nil
	}
	return io.EOF
}

func (s *Source) closeSheet() {
	if s.rows != nil {
		_ = s.rows.Close()
		s.rows = nil
	}
}

type headerResult int

const (
	headerFound headerResult = iota
	// The sheet ends before the header row and has no content at all.
	headerBlankSheet
	// The sheet ends before the header row but has content.
	headerMissing
)

// readHeader advances to headerRow and returns its cells.
func readHeader(rows RowReader, headerRow int) ([]string, headerResult, error) {
	content := false
	for i := 1; i <= headerRow; i++ {
		if !rows.Next() {
			if err := rows.Error(); err != nil {
				return nil, headerMissing, err
			}
			if content {
				return nil, headerMissing, nil
			}
			return nil, headerBlankSheet, nil
		}
		if i == headerRow {
			break
		}
		cols, err := rows.Columns()
		if err != nil {
			return nil, headerMissing, err
		}
		if !blank(cols) {
			content = true
		}
	}
	cols, err := rows.Columns()
	if err != nil {
		return nil, headerMissing, err
	}
	return cols, headerFound, nil
}

func blank(cols []string) bool {
	for _, c := range cols {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// record converts one data row. Rows whose required cells are all blank are
// skipped (ok=false).
func (s *Source) record(cols []string) (Record, bool) {
	cell := func(name string) string {
		i := s.cols[name]
		if i < len(cols) {
			return cleanCell(cols[i])
		}
		return ""
	}

	card := cell(ColCardNumber)
	name := cell(ColFullName)
	rawAmount := cell(ColAmount)
	ref := cell(ColReference)
	if card == "" && name == "" && rawAmount == "" && ref == "" {
		return Record{}, false
	}

	rec := Record{
		Row: s.rowNum,
		Intent: model.PaymentIntent{
			CardNumber:      card,
			FullName:        name,
			ReferenceNumber: ref,
			SheetOrdinal:    s.ordinal,
		},
	}
	amount, err := parseAmount(rawAmount)
	if err != nil {
		rec.Err = err
		return rec, true
	}
	rec.Intent.Amount = amount
	return rec, true
}

// IsFormatError reports whether err came from the input contract checks.
func IsFormatError(err error) bool {
	var fe *FormatError
	return errors.As(err, &fe)
}

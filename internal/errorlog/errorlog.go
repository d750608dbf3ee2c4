// Package errorlog keeps an append-only CSV of every row a run could not post,
// so operators can follow up on rejected deductions after the console is gone.
package errorlog

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/cleared-dev/payroll/internal/model"
)

// Entry is one row in the error log.
type Entry struct {
	Timestamp  time.Time
	RunID      string
	File       string
	Sheet      string
	Row        int
	CardNumber string
	FullName   string
	Reason     string
}

// Header is the CSV header for upload-errors.csv.
const Header = "timestamp,run_id,file,sheet,row,card_no,full_name,reason"

// FileName is the log file created inside the log folder.
const FileName = "upload-errors.csv"

const (
	numFields     = 8
	colTimestamp  = 0
	colRunID      = 1
	colFile       = 2
	colSheet      = 3
	colRow        = 4
	colCardNumber = 5
	colFullName   = 6
	colReason     = 7
)

// FromOutcome turns a run's row errors into log entries.
func FromOutcome(at time.Time, runID string, errs []model.RowError) []Entry {
	entries := make([]Entry, len(errs))
	for i, e := range errs {
		entries[i] = Entry{
			Timestamp:  at,
			RunID:      runID,
			File:       e.File,
			Sheet:      e.Sheet,
			Row:        e.Row,
			CardNumber: e.CardNumber,
			FullName:   e.FullName,
			Reason:     e.Reason,
		}
	}
	return entries
}

// MarshalEntry converts an Entry to a CSV row.
func MarshalEntry(e Entry) []string {
	row := make([]string, numFields)
	row[colTimestamp] = e.Timestamp.Format(time.RFC3339)
	row[colRunID] = e.RunID
	row[colFile] = e.File
	row[colSheet] = e.Sheet
	row[colRow] = strconv.Itoa(e.Row)
	row[colCardNumber] = e.CardNumber
	row[colFullName] = e.FullName
	row[colReason] = e.Reason
	return row
}

// UnmarshalEntry converts a CSV row to an Entry.
func UnmarshalEntry(record []string) (Entry, error) {
	if len(record) != numFields {
		return Entry{}, fmt.Errorf("expected %d fields, got %d", numFields, len(record))
	}

	ts, err := time.Parse(time.RFC3339, record[colTimestamp])
	if err != nil {
		return Entry{}, fmt.Errorf("parsing timestamp %q: %w", record[colTimestamp], err)
	}
	row, err := strconv.Atoi(record[colRow])
	if err != nil {
		return Entry{}, fmt.Errorf("parsing row %q: %w", record[colRow], err)
	}

	return Entry{
		Timestamp:  ts,
		RunID:      record[colRunID],
		File:       record[colFile],
		Sheet:      record[colSheet],
		Row:        row,
		CardNumber: record[colCardNumber],
		FullName:   record[colFullName],
		Reason:     record[colReason],
	}, nil
}

// Append writes entries to <dir>/upload-errors.csv, creating the file and
// header if needed.
func Append(dir string, entries []Entry) error {
	if len(entries) == 0 {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating log dir: %w", err)
	}

	path := filepath.Join(dir, FileName)
	needsHeader := false
	if _, err := os.Stat(path); os.IsNotExist(err) {
		needsHeader = true
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening error log: %w", err)
	}
	defer f.Close()

	cw := csv.NewWriter(f)
	defer cw.Flush()

	if needsHeader {
		if err := cw.Write(strings.Split(Header, ",")); err != nil {
			return fmt.Errorf("writing header: %w", err)
		}
	}

	for i, e := range entries {
		if err := cw.Write(MarshalEntry(e)); err != nil {
			return fmt.Errorf("writing entry %d: %w", i, err)
		}
	}

	return cw.Error()
}

// Read returns all entries from <dir>/upload-errors.csv.
// Returns an empty slice if the file does not exist.
func Read(dir string) ([]Entry, error) {
	f, err := os.Open(filepath.Join(dir, FileName))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening error log: %w", err)
	}
	defer f.Close()

	return readEntries(f)
}

func readEntries(r io.Reader) ([]Entry, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = numFields

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading error log CSV: %w", err)
	}

	if len(records) <= 1 {
		return nil, nil
	}

	var entries []Entry
	for i, rec := range records[1:] {
		e, err := UnmarshalEntry(rec)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		entries = append(entries, e)
	}
	return entries, nil
}

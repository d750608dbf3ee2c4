package sheet

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/schollz/closestmatch"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/cleared-dev/payroll/internal/model"
)

// Required column slugs.
const (
	ColCardNumber = "card_no"
	ColFullName   = "full_name"
	ColAmount     = "payroll_deduction"
	ColReference  = "reference"
)

// RequiredColumns lists the header slugs every sheet must carry, in report order.
var RequiredColumns = []string{ColCardNumber, ColFullName, ColAmount, ColReference}

// FormatError reports a file or sheet that does not meet the input contract.
type FormatError struct {
	File        string
	Sheet       string
	Reason      string
	Missing     []string
	Suggestions map[string]string // missing slug -> closest header present
}

func (e *FormatError) Error() string {
	where := e.File
	if e.Sheet != "" {
		where += " [" + e.Sheet + "]"
	}
	if len(e.Missing) == 0 {
		return fmt.Sprintf("%s: %s", where, e.Reason)
	}
	parts := make([]string, len(e.Missing))
	for i, m := range e.Missing {
		parts[i] = m
		if s, ok := e.Suggestions[m]; ok {
			parts[i] = fmt.Sprintf("%s (found %q)", m, s)
		}
	}
	if e.Reason != "" {
		return fmt.Sprintf("%s: %s; incorrect or missing header/s: %s", where, e.Reason, strings.Join(parts, ", "))
	}
	return fmt.Sprintf("%s: incorrect or missing header/s: %s", where, strings.Join(parts, ", "))
}

// Unwrap lets callers test for model.ErrFormat.
func (e *FormatError) Unwrap() error { return model.ErrFormat }

// Slug turns a header label into its lookup key: accents dropped, lowercased,
// runs of non-alphanumerics collapsed to "_". "Card No." becomes "card_no".
func Slug(label string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	plain, _, err := transform.String(t, label)
	if err != nil {
		plain = label
	}

	var b strings.Builder
	pendingSep := false
	for _, r := range strings.ToLower(plain) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if pendingSep && b.Len() > 0 {
				b.WriteByte('_')
			}
			pendingSep = false
			b.WriteRune(r)
			continue
		}
		pendingSep = true
	}
	return b.String()
}

// columnIndex maps each required slug to its zero-based column.
type columnIndex map[string]int

// indexHeader locates the required columns in a header row. Extra columns are
// ignored; the first occurrence of a repeated label wins.
func indexHeader(file, sheet string, header []string) (columnIndex, error) {
	present := make(map[string]int, len(header))
	var labels []string
	for i, h := range header {
		slug := Slug(h)
		if slug == "" {
			continue
		}
		if _, seen := present[slug]; !seen {
			present[slug] = i
			labels = append(labels, slug)
		}
	}

	idx := make(columnIndex, len(RequiredColumns))
	var missing []string
	for _, col := range RequiredColumns {
		i, ok := present[col]
		if !ok {
			missing = append(missing, col)
			continue
		}
		idx[col] = i
	}
	if len(missing) == 0 {
		return idx, nil
	}

	ferr := &FormatError{File: file, Sheet: sheet, Missing: missing}
	if len(labels) > 0 {
		cm := closestmatch.New(labels, []int{2, 3})
		for _, m := range missing {
			if s := cm.Closest(m); s != "" {
				if ferr.Suggestions == nil {
					ferr.Suggestions = make(map[string]string)
				}
				ferr.Suggestions[m] = s
			}
		}
	}
	return nil, ferr
}

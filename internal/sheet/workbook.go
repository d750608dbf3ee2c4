package sheet

import (
	"fmt"
	"path/filepath"
	"slices"
	"strings"
)

// Workbook is an opened spreadsheet file.
type Workbook interface {
	SheetNames() []string
	Rows(sheet string) (RowReader, error)
	Close() error
}

// RowReader walks the rows of one sheet in order, one row per Next call.
// Empty rows inside the used range are reported as empty rows.
type RowReader interface {
	Next() bool
	Columns() ([]string, error)
	Error() error
	Close() error
}

// Format opens workbooks of one file extension.
type Format interface {
	Extension() string
	Open(path string, opts Options) (Workbook, error)
}

// Registry holds the supported workbook formats keyed by extension.
type Registry struct {
	formats map[string]Format
}

// NewRegistry creates an empty format registry.
func NewRegistry() *Registry {
	return &Registry{formats: make(map[string]Format)}
}

// Register adds a format. Panics on duplicate extension.
func (r *Registry) Register(f Format) {
	key := normalizeExt(f.Extension())
	if _, ok := r.formats[key]; ok {
		panic("duplicate workbook format: " + key)
	}
	r.formats[key] = f
}

// Get returns the format for an extension (with or without the dot), or nil.
func (r *Registry) Get(ext string) Format {
	return r.formats[normalizeExt(ext)]
}

// Extensions lists the registered extensions, sorted.
func (r *Registry) Extensions() []string {
	exts := make([]string, 0, len(r.formats))
	for ext := range r.formats {
		exts = append(exts, ext)
	}
	slices.Sort(exts)
	return exts
}

// DefaultRegistry returns a registry with xlsx and xls support.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(&XLSXFormat{})
	r.Register(&XLSFormat{})
	return r
}

// Open picks the format from the file extension and opens the workbook.
func (r *Registry) Open(path string, opts Options) (Workbook, error) {
	ext := filepath.Ext(path)
	f := r.Get(ext)
	if f == nil {
		return nil, &FormatError{File: filepath.Base(path), Reason: fmt.Sprintf("unsupported extension %q", ext)}
	}
	wb, err := f.Open(path, opts)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", filepath.Base(path), err)
	}
	return wb, nil
}

func normalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

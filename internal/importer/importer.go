package importer

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/cleared-dev/payroll/internal/model"
)

// ErrNoFiles means the source folder is missing or holds no files.
var ErrNoFiles = errors.New("file not found")

// FileInfo describes a file in the source folder.
type FileInfo struct {
	Name string
	Path string
	Ext  string // lower-case, without the dot
	Size int64
}

// FormatError rejects a file whose extension is not an accepted workbook format.
type FormatError struct {
	File    string
	Ext     string
	Allowed []string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("%s: invalid file format %q (expected %s)", e.File, e.Ext, strings.Join(e.Allowed, ", "))
}

func (e *FormatError) Unwrap() error { return model.ErrFormat }

// Manager owns the deduction folders: it lists the files to post, archives
// them after a successful run and clears the spill folder.
type Manager struct {
	sourceDir string
	backupDir string
	tempDir   string
	allowed   []string
}

// NewManager creates a Manager. allowed lists accepted extensions without dots.
func NewManager(sourceDir, backupDir, tempDir string, allowed []string) *Manager {
	exts := make([]string, len(allowed))
	for i, a := range allowed {
		exts[i] = strings.ToLower(strings.TrimPrefix(a, "."))
	}
	return &Manager{sourceDir: sourceDir, backupDir: backupDir, tempDir: tempDir, allowed: exts}
}

// SourceDir returns the folder files are read from.
func (m *Manager) SourceDir() string { return m.sourceDir }

// TempDir returns the spill folder.
func (m *Manager) TempDir() string { return m.tempDir }

// Scan returns every regular file in the source folder, sorted by name.
// A missing or empty folder is ErrNoFiles.
func (m *Manager) Scan() ([]FileInfo, error) {
	entries, err := os.ReadDir(m.sourceDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: path %s", ErrNoFiles, m.sourceDir)
		}
		return nil, fmt.Errorf("reading source dir: %w", err)
	}

	var files []FileInfo
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", e.Name(), err)
		}
		files = append(files, FileInfo{
			Name: e.Name(),
			Path: filepath.Join(m.sourceDir, e.Name()),
			Ext:  strings.ToLower(strings.TrimPrefix(filepath.Ext(e.Name()), ".")),
			Size: info.Size(),
		})
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%w: path %s", ErrNoFiles, m.sourceDir)
	}
	return files, nil
}

// Check rejects every file with an unaccepted extension. It reads no file
// contents, so a run can refuse the whole folder before posting anything.
func (m *Manager) Check(files []FileInfo) error {
	var errs []error
	for _, f := range files {
		if !slices.Contains(m.allowed, f.Ext) {
			errs = append(errs, &FormatError{File: f.Name, Ext: f.Ext, Allowed: m.allowed})
		}
	}
	return errors.Join(errs...)
}

// Archive copies the files to the backup folder, then removes them from the
// source folder. Existing backups with the same name are overwritten.
func (m *Manager) Archive(files []FileInfo) error {
	if err := os.MkdirAll(m.backupDir, 0o755); err != nil {
		return fmt.Errorf("creating backup dir: %w", err)
	}
	for _, f := range files {
		if err := copyFile(f.Path, filepath.Join(m.backupDir, f.Name)); err != nil {
			return fmt.Errorf("backing up %s: %w", f.Name, err)
		}
	}
	for _, f := range files {
		if err := os.Remove(f.Path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("cleaning %s: %w", f.Name, err)
		}
	}
	return nil
}

// ClearTemp empties the spill folder, leaving the folder itself in place.
func (m *Manager) ClearTemp() error {
	if m.tempDir == "" {
		return nil
	}
	entries, err := os.ReadDir(m.tempDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("reading temp dir: %w", err)
	}
	var errs []error
	for _, e := range entries {
		if err := os.RemoveAll(filepath.Join(m.tempDir, e.Name())); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("clearing temp dir: %w", err)
	}
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

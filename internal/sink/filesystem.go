package sink

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"acutils-go/internal/acu"
)

// FileSystemSink stores reports as files under a root directory.
type FileSystemSink struct {
	name string
	root string
}

// NewFileSystemSink creates a new filesystem sink rooted at the given path.
func NewFileSystemSink(name, root string) (*FileSystemSink, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("failed to create sink directory: %w", err)
	}
	return &FileSystemSink{name: name, root: root}, nil
}

// Put stores a report under the given name, replacing any previous report.
func (v *FileSystemSink) Put(name string, r io.Reader, size int64) error {
	return v.writeFile(filepath.Join(v.root, name), r, size)
}

// Get retrieves a report by name and writes it to w.
func (v *FileSystemSink) Get(name string, w io.Writer) error {
	f, err := os.Open(filepath.Join(v.root, name))
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("report not found: %s", name)
		}
		return fmt.Errorf("failed to open report: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(w, f); err != nil {
		return fmt.Errorf("failed to read report: %w", err)
	}

	return nil
}

// ValidateSetup verifies that the sink directory is accessible.
func (v *FileSystemSink) ValidateSetup() error {
	info, err := os.Stat(v.root)
	if err != nil {
		return fmt.Errorf("sink root not accessible: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("sink root is not a directory: %s", v.root)
	}
	return nil
}

// writeFile writes data from r to the specified path using atomic write
// (temp file + rename).
func (v *FileSystemSink) writeFile(destPath string, r io.Reader, expectedSize int64) error {
	// Temp file in the same directory so the rename stays on one filesystem
	dir := filepath.Dir(destPath)
	tmpFile, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	written, err := io.Copy(tmpFile, r)
	if err != nil {
		tmpFile.Close()
		return fmt.Errorf("failed to write data: %w", err)
	}

	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if written != expectedSize {
		return fmt.Errorf("size mismatch: expected %d bytes, got %d", expectedSize, written)
	}

	if err := os.Rename(tmpPath, destPath); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	success = true
	return nil
}

// Compile-time check that FileSystemSink implements the ReportSink interface
var _ acu.ReportSink = (*FileSystemSink)(nil)

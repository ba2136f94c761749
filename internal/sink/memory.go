// Package sink stores rendered inventory reports in pluggable backends.
package sink

import (
	"bytes"
	"fmt"
	"io"
	"sync"

	"acutils-go/internal/acu"
)

// MemorySink is an in-memory implementation of the ReportSink interface,
// useful for testing. It is safe for concurrent use.
type MemorySink struct {
	name    string
	mu      sync.RWMutex
	reports map[string][]byte
}

// NewMemorySink creates a new in-memory sink with the given name.
func NewMemorySink(name string) *MemorySink {
	return &MemorySink{
		name:    name,
		reports: make(map[string][]byte),
	}
}

// Put stores a report under the given name, replacing any previous report.
func (m *MemorySink) Put(name string, r io.Reader, size int64) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("failed to read report: %w", err)
	}

	if int64(len(data)) != size {
		return fmt.Errorf("size mismatch: expected %d bytes, got %d", size, len(data))
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.reports[name] = data
	return nil
}

// Get retrieves a report by name.
func (m *MemorySink) Get(name string, w io.Writer) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	data, ok := m.reports[name]
	if !ok {
		return fmt.Errorf("report not found: %s", name)
	}

	if _, err := io.Copy(w, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}

	return nil
}

// ValidateSetup always succeeds for the in-memory sink.
func (m *MemorySink) ValidateSetup() error {
	return nil
}

// Compile-time check that MemorySink implements the ReportSink interface
var _ acu.ReportSink = (*MemorySink)(nil)

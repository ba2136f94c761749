package acu

import "io"

// ReportSink stores rendered inventory reports by name. Implementations
// exist for memory, local filesystem, and S3 backends.
type ReportSink interface {
	// Put stores a report under the given name, overwriting any previous
	// report with that name. size is the number of bytes that will be
	// read from r.
	Put(name string, r io.Reader, size int64) error

	// Get retrieves a report by name and writes it to w.
	Get(name string, w io.Writer) error

	// ValidateSetup verifies that the sink is accessible and properly
	// configured.
	ValidateSetup() error
}

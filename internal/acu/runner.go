package acu

import (
	"context"
	"strings"
)

// Runner executes one AccuRev CLI command and captures its output.
// Implementations must be safe for concurrent use; each call spawns an
// independent process with no shared mutable state between invocations.
type Runner interface {
	// Run executes the accurev binary with the given arguments and waits
	// for it to exit. A non-zero exit code is NOT an error: it is returned
	// in the Result for the caller to interpret as a domain-level failure.
	// Run returns an error only when the process could not be started or
	// its exit could not be observed (see InvocationError).
	Run(ctx context.Context, args ...string) (*Result, error)
}

// Result is the captured outcome of one command invocation.
// Stdout holds the entire standard output in memory; the AccuRev client
// emits its XML responses there.
type Result struct {
	Args     []string
	ExitCode int
	Stdout   []byte
	Stderr   []byte
}

// Accepted reports whether the exit code is zero or one of the documented
// acceptable non-zero codes for the command (e.g. hist exits 1 when no
// transactions match the time spec).
func (r *Result) Accepted(codes ...int) bool {
	if r.ExitCode == 0 {
		return true
	}
	for _, c := range codes {
		if r.ExitCode == c {
			return true
		}
	}
	return false
}

// Diagnostic returns the text the tool emitted for a failed run, preferring
// stderr and falling back to stdout. Used when logging domain failures.
func (r *Result) Diagnostic() string {
	if s := strings.TrimSpace(string(r.Stderr)); s != "" {
		return s
	}
	return strings.TrimSpace(string(r.Stdout))
}

// CommandError converts a non-accepted Result into the typed domain error
// carried back to callers.
func (r *Result) CommandError() *CommandError {
	return &CommandError{
		Args:       append([]string(nil), r.Args...),
		ExitCode:   r.ExitCode,
		Diagnostic: r.Diagnostic(),
	}
}

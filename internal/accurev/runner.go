// Package accurev runs the AccuRev command-line client as a child process
// and captures its output for projection.
package accurev

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"time"

	"acutils-go/internal/acu"
)

// DefaultBinary is the executable resolved on PATH when no binary path is
// configured.
const DefaultBinary = "accurev"

// CLI invokes the accurev binary. The zero timeout means each call runs
// until its context is done. CLI is safe for concurrent use; every call
// spawns an independent process.
type CLI struct {
	binary  string
	timeout time.Duration
}

// New creates a CLI for the given binary path; "" resolves "accurev" on
// PATH. timeout bounds each invocation, 0 means no per-call bound beyond
// the caller's context.
func New(binary string, timeout time.Duration) *CLI {
	if binary == "" {
		binary = DefaultBinary
	}
	return &CLI{binary: binary, timeout: timeout}
}

// Run executes the binary with the given arguments, capturing all of
// stdout and stderr in memory and waiting for exit. A non-zero exit code
// is returned in the Result, not as an error; only a process that cannot
// be started or observed yields an InvocationError.
func (c *CLI) Run(ctx context.Context, args ...string) (*acu.Result, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, c.binary, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	res := &acu.Result{
		Args:   args,
		Stdout: stdout.Bytes(),
		Stderr: stderr.Bytes(),
	}
	if err == nil {
		return res, nil
	}

	// A context deadline or cancellation kills the child; report it as a
	// failure to observe the process, not a domain-level exit code.
	if ctx.Err() != nil {
		return nil, &acu.InvocationError{Program: c.binary, Args: args, Err: ctx.Err()}
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		res.ExitCode = exitErr.ExitCode()
		return res, nil
	}

	return nil, &acu.InvocationError{Program: c.binary, Args: args, Err: err}
}

// Compile-time check that CLI implements the Runner interface.
var _ acu.Runner = (*CLI)(nil)

package acu

import (
	"fmt"
	"strings"
)

// InvocationError reports that the accurev process could not be started or
// its exit could not be observed. This is the transport-level failure mode,
// distinct from a command that ran and reported a non-zero exit code.
type InvocationError struct {
	Program string
	Args    []string
	Err     error
}

func (e *InvocationError) Error() string {
	return fmt.Sprintf("invoking %s %s: %v", e.Program, strings.Join(e.Args, " "), e.Err)
}

func (e *InvocationError) Unwrap() error { return e.Err }

// CommandError reports that the accurev process ran but exited with a code
// outside the accepted set for the command. The diagnostic text the tool
// emitted is carried along for logging.
type CommandError struct {
	Args       []string
	ExitCode   int
	Diagnostic string
}

func (e *CommandError) Error() string {
	if e.Diagnostic != "" {
		return fmt.Sprintf("accurev %s: exit code %d: %s", strings.Join(e.Args, " "), e.ExitCode, e.Diagnostic)
	}
	return fmt.Sprintf("accurev %s: exit code %d", strings.Join(e.Args, " "), e.ExitCode)
}

// ParseError reports that a command's XML output violated the documented
// shape: malformed XML, a missing required attribute, a malformed
// stream/version pair, or an enum token outside the closed set.
type ParseError struct {
	Command string
	Detail  string
	Err     error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("parsing %s response: %s: %v", e.Command, e.Detail, e.Err)
	}
	return fmt.Sprintf("parsing %s response: %s", e.Command, e.Detail)
}

func (e *ParseError) Unwrap() error { return e.Err }

// DuplicateKeyError reports that a lookup by what should be a unique key
// matched more than one record. This is a data integrity violation in the
// underlying repository and is surfaced rather than silently resolved.
type DuplicateKeyError struct {
	Collection string
	Key        string
}

func (e *DuplicateKeyError) Error() string {
	return fmt.Sprintf("%s: key %q matches more than one record", e.Collection, e.Key)
}

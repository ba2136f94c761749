package acu_test

import (
	"testing"

	"acutils-go/internal/acu"
)

func TestResult_Accepted(t *testing.T) {
	for _, tc := range []struct {
		name     string
		exitCode int
		codes    []int
		want     bool
	}{
		{"zero", 0, nil, true},
		{"zero with extras", 0, []int{1}, true},
		{"one rejected by default", 1, nil, false},
		{"one accepted when listed", 1, []int{1}, true},
		{"two rejected when only one listed", 2, []int{1}, false},
	} {
		t.Run(tc.name, func(t *testing.T) {
			r := &acu.Result{ExitCode: tc.exitCode}
			if got := r.Accepted(tc.codes...); got != tc.want {
				t.Errorf("Accepted(%v) with exit %d = %t, want %t", tc.codes, tc.exitCode, got, tc.want)
			}
		})
	}
}

func TestResult_Diagnostic(t *testing.T) {
	r := &acu.Result{
		Stdout: []byte("You are not in a directory associated with a workspace\n"),
		Stderr: []byte("Not authenticated.\n"),
	}
	if got := r.Diagnostic(); got != "Not authenticated." {
		t.Errorf("Diagnostic() = %q, want stderr text", got)
	}

	// Falls back to stdout when stderr is blank.
	r.Stderr = []byte("  \n")
	if got := r.Diagnostic(); got != "You are not in a directory associated with a workspace" {
		t.Errorf("Diagnostic() = %q, want stdout text", got)
	}
}

func TestResult_CommandError(t *testing.T) {
	r := &acu.Result{
		Args:     []string{"show", "-fx", "depots"},
		ExitCode: 1,
		Stderr:   []byte("Not authenticated.\n"),
	}

	err := r.CommandError()
	if err.ExitCode != 1 || err.Diagnostic != "Not authenticated." {
		t.Fatalf("CommandError() = %+v, unexpected", err)
	}
	want := "accurev show -fx depots: exit code 1: Not authenticated."
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

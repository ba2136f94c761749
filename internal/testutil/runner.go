package testutil

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"acutils-go/internal/acu"
)

// FakeRunner is a scripted acu.Runner for tests. Responses are keyed by
// the space-joined argument list. An optional per-runner random delay
// simulates the nondeterministic completion order of real fan-out builds.
type FakeRunner struct {
	mu        sync.Mutex
	responses map[string]FakeResponse
	calls     map[string]int
	maxDelay  time.Duration
}

// FakeResponse scripts the outcome of one command.
type FakeResponse struct {
	Stdout   string
	Stderr   string
	ExitCode int
	Err      error // returned instead of a Result when set
}

func NewFakeRunner() *FakeRunner {
	return &FakeRunner{
		responses: make(map[string]FakeResponse),
		calls:     make(map[string]int),
	}
}

// Stub registers the response for the exact argument list.
func (f *FakeRunner) Stub(args string, resp FakeResponse) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses[args] = resp
}

// StubXML registers a successful response with the given stdout.
func (f *FakeRunner) StubXML(args string, stdout string) {
	f.Stub(args, FakeResponse{Stdout: stdout})
}

// SetMaxDelay makes every Run sleep a random duration up to max before
// returning, injecting artificial completion-order jitter.
func (f *FakeRunner) SetMaxDelay(max time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.maxDelay = max
}

// Calls returns how many times the exact argument list was run.
func (f *FakeRunner) Calls(args string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[args]
}

// TotalCalls returns how many commands were run in total.
func (f *FakeRunner) TotalCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	total := 0
	for _, n := range f.calls {
		total += n
	}
	return total
}

func (f *FakeRunner) Run(ctx context.Context, args ...string) (*acu.Result, error) {
	key := strings.Join(args, " ")

	f.mu.Lock()
	f.calls[key]++
	resp, ok := f.responses[key]
	delay := f.maxDelay
	f.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(time.Duration(rand.Int63n(int64(delay)))):
		case <-ctx.Done():
			return nil, &acu.InvocationError{Program: "accurev", Args: args, Err: ctx.Err()}
		}
	}

	if !ok {
		return nil, &acu.InvocationError{
			Program: "accurev",
			Args:    args,
			Err:     fmt.Errorf("no stubbed response for %q", key),
		}
	}
	if resp.Err != nil {
		return nil, resp.Err
	}
	return &acu.Result{
		Args:     args,
		ExitCode: resp.ExitCode,
		Stdout:   []byte(resp.Stdout),
		Stderr:   []byte(resp.Stderr),
	}, nil
}

var _ acu.Runner = (*FakeRunner)(nil)

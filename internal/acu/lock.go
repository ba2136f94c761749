package acu

import (
	"context"
	"fmt"
	"sync"
)

// Lock is one restriction preventing certain principals from promoting
// changes into or out of a stream.
type Lock struct {
	Stream        string
	Kind          LockKind
	PrincipalType PrincipalType
	ExceptFor     string // principal exempted from the lock
	OnlyFor       string // principal the lock is limited to
	Comment       string
}

func (l *Lock) String() string {
	return fmt.Sprintf("%s lock on %s", l.Kind, l.Stream)
}

// Locks is the collection of stream locks on the server.
type Locks struct {
	runner Runner
	logger Logger

	mu    sync.Mutex
	locks []*Lock
}

func NewLocks(runner Runner, logger Logger) *Locks {
	return &Locks{runner: runner, logger: logger}
}

// Build populates the collection from `accurev show -fx locks`. On
// failure the collection contents are unreliable and must be discarded.
func (c *Locks) Build(ctx context.Context) error {
	res, err := c.runner.Run(ctx, "show", "-fx", "locks")
	if err != nil {
		c.logger.Error("listing locks", "err", err)
		return err
	}
	if !res.Accepted() {
		cmdErr := res.CommandError()
		c.logger.Error("listing locks", "exit_code", res.ExitCode, "diagnostic", cmdErr.Diagnostic)
		return cmdErr
	}

	locks, err := parseLocks(res.Stdout)
	if err != nil {
		c.logger.Error("listing locks", "err", err)
		return err
	}

	c.mu.Lock()
	c.locks = append(c.locks, locks...)
	c.mu.Unlock()

	c.logger.Debug("lock list built", "count", len(locks))
	return nil
}

// All returns the locks in append order.
func (c *Locks) All() []*Lock {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*Lock(nil), c.locks...)
}

// For returns the lock of the given kind on the given stream, or
// (nil, nil) when none exists. A duplicate (stream, kind) pair is a data
// integrity violation.
func (c *Locks) For(stream string, kind LockKind) (*Lock, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var found *Lock
	for _, l := range c.locks {
		if l.Stream != stream || l.Kind != kind {
			continue
		}
		if found != nil {
			return nil, &DuplicateKeyError{Collection: "locks", Key: stream + "/" + string(kind)}
		}
		found = l
	}
	return found, nil
}

// OnStream returns every lock on the given stream.
func (c *Locks) OnStream(stream string) []*Lock {
	c.mu.Lock()
	defer c.mu.Unlock()

	var out []*Lock
	for _, l := range c.locks {
		if l.Stream == stream {
			out = append(out, l)
		}
	}
	return out
}

// parseLocks projects a `show locks` response. Element path:
// AcResponse/Element; attributes Name, kind, userType, exceptFor,
// onlyFor, comment.
func parseLocks(doc []byte) ([]*Lock, error) {
	var locks []*Lock
	err := forEachElement(doc, "AcResponse", "Element", func(e elem) error {
		kind, err := parseLockKind(e.text("kind"))
		if err != nil {
			return err
		}
		ptype := PrincipalType("")
		if v, ok := e.lookup("userType"); ok {
			ptype, err = parsePrincipalType(v)
			if err != nil {
				return err
			}
		}
		locks = append(locks, &Lock{
			Stream:        e.text("Name"),
			Kind:          kind,
			PrincipalType: ptype,
			ExceptFor:     e.text("exceptFor"),
			OnlyFor:       e.text("onlyFor"),
			Comment:       e.text("comment"),
		})
		return nil
	})
	if err != nil {
		return nil, &ParseError{Command: "show locks", Detail: "Element", Err: err}
	}
	return locks, nil
}

package acu

import (
	"context"
	"fmt"
	"sync"
)

// Depot is one top-level container of version history. Records are
// immutable once their collection is built.
type Depot struct {
	ID               int
	Name             string
	Slice            int
	Case             CaseSensitivity
	ExclusiveLocking bool
}

func (d *Depot) String() string {
	return fmt.Sprintf("%s (%d)", d.Name, d.ID)
}

// Depots is the collection of all depots on the server.
type Depots struct {
	runner Runner
	logger Logger

	mu     sync.Mutex
	depots []*Depot
}

func NewDepots(runner Runner, logger Logger) *Depots {
	return &Depots{runner: runner, logger: logger}
}

// Build populates the collection from `accurev show -fx depots`.
// On failure the collection contents are unreliable and must be discarded.
func (c *Depots) Build(ctx context.Context) error {
	res, err := c.runner.Run(ctx, "show", "-fx", "depots")
	if err != nil {
		c.logger.Error("listing depots", "err", err)
		return err
	}
	if !res.Accepted() {
		cmdErr := res.CommandError()
		c.logger.Error("listing depots", "exit_code", res.ExitCode, "diagnostic", cmdErr.Diagnostic)
		return cmdErr
	}

	depots, err := parseDepots(res.Stdout)
	if err != nil {
		c.logger.Error("listing depots", "err", err)
		return err
	}

	c.mu.Lock()
	c.depots = append(c.depots, depots...)
	c.mu.Unlock()

	c.logger.Debug("depot list built", "count", len(depots))
	return nil
}

// All returns the depots in append order.
func (c *Depots) All() []*Depot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*Depot(nil), c.depots...)
}

// Size returns the number of depots in the collection.
func (c *Depots) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.depots)
}

// ByName returns the depot with the given name, or (nil, nil) when no
// depot matches. A name matching more than one depot is a data integrity
// violation and returns a DuplicateKeyError.
func (c *Depots) ByName(name string) (*Depot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var found *Depot
	for _, d := range c.depots {
		if d.Name != name {
			continue
		}
		if found != nil {
			return nil, &DuplicateKeyError{Collection: "depots", Key: name}
		}
		found = d
	}
	return found, nil
}

// ByID returns the depot with the given numeric ID, or (nil, nil) when no
// depot matches.
func (c *Depots) ByID(id int) (*Depot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var found *Depot
	for _, d := range c.depots {
		if d.ID != id {
			continue
		}
		if found != nil {
			return nil, &DuplicateKeyError{Collection: "depots", Key: fmt.Sprintf("%d", id)}
		}
		found = d
	}
	return found, nil
}

// parseDepots projects a `show -fx depots` response. Element path:
// AcResponse/Element; attributes Number, Name, Slice, case,
// exclusiveLocking.
func parseDepots(doc []byte) ([]*Depot, error) {
	var depots []*Depot
	err := forEachElement(doc, "AcResponse", "Element", func(e elem) error {
		id, err := e.integer("Number")
		if err != nil {
			return err
		}
		slice, err := e.integer("Slice")
		if err != nil {
			return err
		}
		caseMode, err := parseCaseSensitivity(e.text("case"))
		if err != nil {
			return err
		}
		depots = append(depots, &Depot{
			ID:               id,
			Name:             e.text("Name"),
			Slice:            slice,
			Case:             caseMode,
			ExclusiveLocking: e.boolean("exclusiveLocking"),
		})
		return nil
	})
	if err != nil {
		return nil, &ParseError{Command: "show depots", Detail: "Element", Err: err}
	}
	return depots, nil
}

package acu

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Element is one depot-relative object reported by the stat command, with
// its virtual and real version coordinates and status text.
type Element struct {
	Location     string
	Folder       bool
	EID          int
	ElemType     ElementType
	Size         int64
	ModTime      time.Time
	Virtual      Coord
	Real         Coord
	NamedVersion string
	Status       string // e.g. "(backed)", "(modified)(member)"
}

func (e *Element) String() string {
	return fmt.Sprintf("%s %s", e.Location, e.Status)
}

// Elements is the collection of element statuses for one stream.
type Elements struct {
	runner Runner
	logger Logger
	stream string

	mu       sync.Mutex
	elements []*Element
}

func NewElements(runner Runner, logger Logger, stream string) *Elements {
	return &Elements{runner: runner, logger: logger, stream: stream}
}

// Stream returns the stream this collection belongs to.
func (c *Elements) Stream() string { return c.stream }

// Build populates the collection from `accurev stat -fx -a -s <stream>`.
// On failure the collection contents are unreliable and must be discarded.
func (c *Elements) Build(ctx context.Context) error {
	res, err := c.runner.Run(ctx, "stat", "-fx", "-a", "-s", c.stream)
	if err != nil {
		c.logger.Error("listing element status", "stream", c.stream, "err", err)
		return err
	}
	if !res.Accepted() {
		cmdErr := res.CommandError()
		c.logger.Error("listing element status", "stream", c.stream, "exit_code", res.ExitCode, "diagnostic", cmdErr.Diagnostic)
		return cmdErr
	}

	elements, err := parseElements(res.Stdout)
	if err != nil {
		c.logger.Error("listing element status", "stream", c.stream, "err", err)
		return err
	}

	c.mu.Lock()
	c.elements = append(c.elements, elements...)
	c.mu.Unlock()

	c.logger.Debug("element status built", "stream", c.stream, "count", len(elements))
	return nil
}

// All returns the elements in append order.
func (c *Elements) All() []*Element {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*Element(nil), c.elements...)
}

// ByLocation returns the element at the given depot-relative location, or
// (nil, nil) when none exists. A duplicate location is a data integrity
// violation.
func (c *Elements) ByLocation(location string) (*Element, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var found *Element
	for _, e := range c.elements {
		if e.Location != location {
			continue
		}
		if found != nil {
			return nil, &DuplicateKeyError{Collection: "elements", Key: location}
		}
		found = e
	}
	return found, nil
}

// parseElements projects a `stat` response. Element path:
// AcResponse/element; attributes location, dir, id, elemType, size,
// modTime, Virtual, namedVersion, Real, status.
func parseElements(doc []byte) ([]*Element, error) {
	var elements []*Element
	err := forEachElement(doc, "AcResponse", "element", func(e elem) error {
		eid, err := e.integer("id")
		if err != nil {
			return err
		}
		elemType := ElemUnknown
		if v, ok := e.lookup("elemType"); ok {
			elemType, err = parseElementType(v)
			if err != nil {
				return err
			}
		}
		size, err := e.size("size")
		if err != nil {
			return err
		}
		modTime, err := e.epoch("modTime")
		if err != nil {
			return err
		}
		virtual, err := e.coord("Virtual")
		if err != nil {
			return err
		}
		real, err := e.coord("Real")
		if err != nil {
			return err
		}
		elements = append(elements, &Element{
			Location:     e.text("location"),
			Folder:       e.boolean("dir"),
			EID:          eid,
			ElemType:     elemType,
			Size:         size,
			ModTime:      modTime,
			Virtual:      virtual,
			Real:         real,
			NamedVersion: e.text("namedVersion"),
			Status:       e.text("status"),
		})
		return nil
	})
	if err != nil {
		return nil, &ParseError{Command: "stat", Detail: "element", Err: err}
	}
	return elements, nil
}

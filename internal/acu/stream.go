package acu

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// Stream is one branch-like container within a depot. A stream references
// exactly one depot, set at construction and never reassigned. The parent
// relation is carried by BasisID, not an owned pointer graph; it is
// resolved through the collection's lazily-built adjacency map.
type Stream struct {
	ID              int
	Name            string
	Depot           string
	Basis           string
	BasisID         int
	Type            StreamType
	Hidden          bool
	HasDefaultGroup bool
	Time            time.Time // time basis, zero when none
	StartTime       time.Time
}

func (s *Stream) String() string {
	return fmt.Sprintf("%s (%d)", s.Name, s.ID)
}

// IsRoot reports whether this is the depot's root stream, which has no
// basis.
func (s *Stream) IsRoot() bool { return s.BasisID == 0 }

// Streams is the collection of streams in one depot.
type Streams struct {
	runner Runner
	logger Logger
	depot  string

	mu      sync.Mutex
	streams []*Stream

	// Parent-to-children adjacency, computed at most once from a fresh
	// hierarchy listing the first time a children query is issued.
	// Concurrent first callers coalesce into a single underlying command.
	adjFlight singleflight.Group
	adjMu     sync.Mutex
	adj       map[int][]int
}

func NewStreams(runner Runner, logger Logger, depot string) *Streams {
	return &Streams{runner: runner, logger: logger, depot: depot}
}

// Depot returns the name of the depot this collection belongs to.
func (c *Streams) Depot() string { return c.depot }

// Build populates the collection from `accurev show -fx -a -p <depot>
// streams`, including hidden streams. On failure the collection contents
// are unreliable and must be discarded.
func (c *Streams) Build(ctx context.Context) error {
	res, err := c.runner.Run(ctx, "show", "-fx", "-a", "-p", c.depot, "streams")
	if err != nil {
		c.logger.Error("listing streams", "depot", c.depot, "err", err)
		return err
	}
	if !res.Accepted() {
		cmdErr := res.CommandError()
		c.logger.Error("listing streams", "depot", c.depot, "exit_code", res.ExitCode, "diagnostic", cmdErr.Diagnostic)
		return cmdErr
	}

	streams, err := parseStreams(res.Stdout)
	if err != nil {
		c.logger.Error("listing streams", "depot", c.depot, "err", err)
		return err
	}

	c.mu.Lock()
	c.streams = append(c.streams, streams...)
	c.mu.Unlock()

	c.logger.Debug("stream list built", "depot", c.depot, "count", len(streams))
	return nil
}

// All returns the streams in append order.
func (c *Streams) All() []*Stream {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*Stream(nil), c.streams...)
}

// Size returns the number of streams in the collection.
func (c *Streams) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.streams)
}

// ByName returns the stream with the given name, or (nil, nil) when no
// stream matches. Duplicate names are a data integrity violation.
func (c *Streams) ByName(name string) (*Stream, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var found *Stream
	for _, s := range c.streams {
		if s.Name != name {
			continue
		}
		if found != nil {
			return nil, &DuplicateKeyError{Collection: "streams", Key: name}
		}
		found = s
	}
	return found, nil
}

// ByID returns the stream with the given numeric ID, or (nil, nil) when no
// stream matches.
func (c *Streams) ByID(id int) (*Stream, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var found *Stream
	for _, s := range c.streams {
		if s.ID != id {
			continue
		}
		if found != nil {
			return nil, &DuplicateKeyError{Collection: "streams", Key: fmt.Sprintf("%d", id)}
		}
		found = s
	}
	return found, nil
}

// Basis returns the parent stream of s, or (nil, nil) for the depot root.
func (c *Streams) Basis(s *Stream) (*Stream, error) {
	if s.IsRoot() {
		return nil, nil
	}
	return c.ByID(s.BasisID)
}

// Children returns the direct child streams of s. The first call (or any
// set of concurrent first calls) issues exactly one hierarchy listing to
// compute the parent-to-children adjacency map; every later call reads the
// cached map.
func (c *Streams) Children(ctx context.Context, s *Stream) ([]*Stream, error) {
	adj, err := c.adjacency(ctx)
	if err != nil {
		return nil, err
	}

	ids := adj[s.ID]
	children := make([]*Stream, 0, len(ids))
	for _, id := range ids {
		child, err := c.ByID(id)
		if err != nil {
			return nil, err
		}
		if child != nil {
			children = append(children, child)
		}
	}
	return children, nil
}

// adjacency returns the parent-to-children map, computing it at most once.
func (c *Streams) adjacency(ctx context.Context) (map[int][]int, error) {
	c.adjMu.Lock()
	if c.adj != nil {
		adj := c.adj
		c.adjMu.Unlock()
		return adj, nil
	}
	c.adjMu.Unlock()

	v, err, _ := c.adjFlight.Do("adjacency", func() (any, error) {
		res, err := c.runner.Run(ctx, "show", "-fx", "-a", "-p", c.depot, "streams")
		if err != nil {
			c.logger.Error("building stream adjacency", "depot", c.depot, "err", err)
			return nil, err
		}
		if !res.Accepted() {
			cmdErr := res.CommandError()
			c.logger.Error("building stream adjacency", "depot", c.depot, "exit_code", res.ExitCode, "diagnostic", cmdErr.Diagnostic)
			return nil, cmdErr
		}

		streams, err := parseStreams(res.Stdout)
		if err != nil {
			c.logger.Error("building stream adjacency", "depot", c.depot, "err", err)
			return nil, err
		}

		adj := make(map[int][]int)
		for _, s := range streams {
			if s.IsRoot() {
				continue
			}
			adj[s.BasisID] = append(adj[s.BasisID], s.ID)
		}

		c.adjMu.Lock()
		c.adj = adj
		c.adjMu.Unlock()

		c.logger.Debug("stream adjacency built", "depot", c.depot, "parents", len(adj))
		return adj, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(map[int][]int), nil
}

// parseStreams projects a `show streams` response. Element path:
// streams/stream; attributes id, name, depotName, basis,
// basisStreamNumber, type, hidden, hasDefaultGroup, time, startTime.
func parseStreams(doc []byte) ([]*Stream, error) {
	var streams []*Stream
	err := forEachElement(doc, "streams", "stream", func(e elem) error {
		id, err := e.integer("id")
		if err != nil {
			return err
		}
		basisID, err := e.integer("basisStreamNumber")
		if err != nil {
			return err
		}
		streamType, err := parseStreamType(e.text("type"))
		if err != nil {
			return err
		}
		timeBasis, err := e.epoch("time")
		if err != nil {
			return err
		}
		startTime, err := e.epoch("startTime")
		if err != nil {
			return err
		}
		streams = append(streams, &Stream{
			ID:              id,
			Name:            e.text("name"),
			Depot:           e.text("depotName"),
			Basis:           e.text("basis"),
			BasisID:         basisID,
			Type:            streamType,
			Hidden:          e.boolean("hidden"),
			HasDefaultGroup: e.boolean("hasDefaultGroup"),
			Time:            timeBasis,
			StartTime:       startTime,
		})
		return nil
	})
	if err != nil {
		return nil, &ParseError{Command: "show streams", Detail: "stream", Err: err}
	}
	return streams, nil
}

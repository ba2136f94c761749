package acu

import (
	"context"
	"fmt"
	"sync"
)

// Rule is one include/exclude rule applied to a stream location.
type Rule struct {
	Stream     string
	Kind       RuleKind
	ElemType   ElementType
	Location   string
	CrossBasis string // cross-link basis stream, empty for ordinary rules
}

func (r *Rule) String() string {
	return fmt.Sprintf("%s %s in %s", r.Kind, r.Location, r.Stream)
}

// Rules is the collection of include/exclude rules for one query scope:
// either a single stream or every stream in a depot.
type Rules struct {
	runner Runner
	logger Logger
	limit  int // fan-out bound for BuildForStreams

	mu    sync.Mutex
	rules []*Rule
}

// NewRules creates a rule collection. limit bounds the fan-out width of
// BuildForStreams; 0 applies DefaultFanoutLimit, negative means unbounded.
func NewRules(runner Runner, logger Logger, limit int) *Rules {
	if limit == 0 {
		limit = DefaultFanoutLimit
	}
	return &Rules{runner: runner, logger: logger, limit: limit}
}

// Build populates the collection with one stream's rules from
// `accurev lsrules -fx -s <stream>`.
func (c *Rules) Build(ctx context.Context, stream string) error {
	res, err := c.runner.Run(ctx, "lsrules", "-fx", "-s", stream)
	if err != nil {
		c.logger.Error("listing rules", "stream", stream, "err", err)
		return err
	}
	if !res.Accepted() {
		cmdErr := res.CommandError()
		c.logger.Error("listing rules", "stream", stream, "exit_code", res.ExitCode, "diagnostic", cmdErr.Diagnostic)
		return cmdErr
	}

	rules, err := parseRules(stream, res.Stdout)
	if err != nil {
		c.logger.Error("listing rules", "stream", stream, "err", err)
		return err
	}

	c.mu.Lock()
	c.rules = append(c.rules, rules...)
	c.mu.Unlock()

	c.logger.Debug("rule list built", "stream", stream, "count", len(rules))
	return nil
}

// BuildForStreams fetches rules for every named stream with one lsrules
// call per stream, fanned out concurrently. A single sub-failure fails
// the build; rules from successful sub-calls are retained in the
// collection (the collection as a whole is then unreliable and should be
// discarded by the caller).
func (c *Rules) BuildForStreams(ctx context.Context, streams []string, progress ProgressFunc) error {
	return fanout(ctx, c.limit, streams, progress, func(ctx context.Context, stream string) error {
		return c.Build(ctx, stream)
	})
}

// All returns the rules in append order. Order across concurrent
// sub-calls of BuildForStreams is not deterministic.
func (c *Rules) All() []*Rule {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*Rule(nil), c.rules...)
}

// Size returns the number of rules in the collection.
func (c *Rules) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.rules)
}

// For returns the rule at the given stream and location, or (nil, nil)
// when none exists. A duplicate (stream, location) pair is a data
// integrity violation.
func (c *Rules) For(stream, location string) (*Rule, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var found *Rule
	for _, r := range c.rules {
		if r.Stream != stream || r.Location != location {
			continue
		}
		if found != nil {
			return nil, &DuplicateKeyError{Collection: "rules", Key: stream + ":" + location}
		}
		found = r
	}
	return found, nil
}

// parseRules projects an `lsrules` response. Element path:
// AcResponse/element; attributes kind, elemType, location, stream1,
// stream2 (cross-link basis).
func parseRules(stream string, doc []byte) ([]*Rule, error) {
	var rules []*Rule
	err := forEachElement(doc, "AcResponse", "element", func(e elem) error {
		kind, err := parseRuleKind(e.text("kind"))
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
		rules = append(rules, &Rule{
			Stream:     stream,
			Kind:       kind,
			ElemType:   elemType,
			Location:   e.text("location"),
			CrossBasis: e.text("stream2"),
		})
		return nil
	})
	if err != nil {
		return nil, &ParseError{Command: "lsrules", Detail: "element", Err: err}
	}
	return rules, nil
}

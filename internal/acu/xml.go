package acu

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

// elem wraps the attribute list of one XML start element. Attribute
// presence is meaningful in AccuRev responses (an absent flag attribute
// means false, an absent optional attribute takes its zero value), so the
// accessors never fail on a missing attribute unless explicitly required.
type elem struct {
	name  string
	attrs []xml.Attr
}

func newElem(se xml.StartElement) elem {
	return elem{name: se.Name.Local, attrs: se.Attr}
}

// lookup returns the raw attribute value and whether it was present.
func (e elem) lookup(name string) (string, bool) {
	for _, a := range e.attrs {
		if a.Name.Local == name {
			return a.Value, true
		}
	}
	return "", false
}

// text returns the attribute value, or "" when absent.
func (e elem) text(name string) string {
	v, _ := e.lookup(name)
	return v
}

// boolean returns true iff the attribute is present with the value "true".
// AccuRev marks flags either by emitting attr="true" or by omitting the
// attribute entirely.
func (e elem) boolean(name string) bool {
	v, ok := e.lookup(name)
	return ok && v == "true"
}

// integer parses the attribute as an int, returning 0 when absent.
func (e elem) integer(name string) (int, error) {
	v, ok := e.lookup(name)
	if !ok || v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("attribute %s=%q: %w", name, v, err)
	}
	return n, nil
}

// size parses the attribute as an int64, returning 0 when absent.
func (e elem) size(name string) (int64, error) {
	v, ok := e.lookup(name)
	if !ok || v == "" {
		return 0, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("attribute %s=%q: %w", name, v, err)
	}
	return n, nil
}

// epoch parses the attribute as Unix seconds, returning the zero time
// when absent. AccuRev emits all timestamps this way.
func (e elem) epoch(name string) (time.Time, error) {
	v, ok := e.lookup(name)
	if !ok || v == "" {
		return time.Time{}, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("attribute %s=%q: %w", name, v, err)
	}
	return time.Unix(n, 0).UTC(), nil
}

// Coord is a stream-number/version-number pair, the "A/B" coordinate
// AccuRev uses to address one version of one element.
type Coord struct {
	Stream  int
	Version int
}

func (c Coord) String() string {
	return fmt.Sprintf("%d/%d", c.Stream, c.Version)
}

// IsZero reports whether the coordinate was absent from the response.
func (c Coord) IsZero() bool { return c.Stream == 0 && c.Version == 0 }

// coord parses the attribute as an "A/B" pair. Absent attributes yield the
// zero coordinate; a present but malformed pair is a parse failure.
func (e elem) coord(name string) (Coord, error) {
	v, ok := e.lookup(name)
	if !ok || v == "" {
		return Coord{}, nil
	}
	return parseCoord(name, v)
}

func parseCoord(name, v string) (Coord, error) {
	s, ver, ok := strings.Cut(v, "/")
	if !ok {
		return Coord{}, fmt.Errorf("attribute %s=%q: not a stream/version pair", name, v)
	}
	sn, err := strconv.Atoi(s)
	if err != nil {
		return Coord{}, fmt.Errorf("attribute %s=%q: %w", name, v, err)
	}
	vn, err := strconv.Atoi(ver)
	if err != nil {
		return Coord{}, fmt.Errorf("attribute %s=%q: %w", name, v, err)
	}
	return Coord{Stream: sn, Version: vn}, nil
}

// forEachElement decodes doc, verifies the root element is named root, and
// invokes fn for every element named want anywhere below it. Projection
// stops at the first error.
func forEachElement(doc []byte, root, want string, fn func(elem) error) error {
	dec := xml.NewDecoder(bytes.NewReader(doc))

	sawRoot := false
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("malformed XML: %w", err)
		}

		se, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		if !sawRoot {
			if se.Name.Local != root {
				return fmt.Errorf("unexpected root element <%s>, want <%s>", se.Name.Local, root)
			}
			sawRoot = true
			continue
		}
		if se.Name.Local != want {
			continue
		}
		if err := fn(newElem(se)); err != nil {
			return err
		}
	}

	if !sawRoot {
		return fmt.Errorf("empty response, want <%s> root", root)
	}
	return nil
}

package acu

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"
)

// Transaction is one historical operation recorded by the server, with
// its child version, move, and stream records aggregated from the XML
// during a streaming parse. Transaction IDs are only unique within one
// depot; the composite of time, ID, user, and type identifies one.
type Transaction struct {
	ID         int
	Type       string // open set: promote, keep, add, defunct, purge, ...
	Time       time.Time
	User       string
	Stream     string
	FromStream string
	ToStream   string
	Comment    string
	Versions   []*Version
	Moves      []*Move
	Streams    []*Stream
}

func (t *Transaction) String() string {
	return fmt.Sprintf("#%d %s by %s", t.ID, t.Type, t.User)
}

// Version is one element version touched by a transaction.
type Version struct {
	Path        string
	EID         int
	Virtual     Coord
	Real        Coord
	VirtualName string
	RealName    string
	Checksum    string
	Size        int64
}

// Move records an element rename within a transaction.
type Move struct {
	Source string
	Dest   string
}

// Transactions is the collection of history records for one depot and
// time spec.
type Transactions struct {
	runner Runner
	logger Logger
	depot  string

	mu           sync.Mutex
	transactions []*Transaction
}

func NewTransactions(runner Runner, logger Logger, depot string) *Transactions {
	return &Transactions{runner: runner, logger: logger, depot: depot}
}

// Depot returns the depot this collection belongs to.
func (c *Transactions) Depot() string { return c.depot }

// Build populates the collection from `accurev hist -fx -p <depot>
// -t <timeSpec>`. hist exits 1 when no transaction matches the time spec;
// that is an accepted code yielding an empty collection. On any other
// failure the collection contents are unreliable and must be discarded.
func (c *Transactions) Build(ctx context.Context, timeSpec string) error {
	res, err := c.runner.Run(ctx, "hist", "-fx", "-p", c.depot, "-t", timeSpec)
	if err != nil {
		c.logger.Error("listing history", "depot", c.depot, "time_spec", timeSpec, "err", err)
		return err
	}
	if !res.Accepted(1) {
		cmdErr := res.CommandError()
		c.logger.Error("listing history", "depot", c.depot, "time_spec", timeSpec, "exit_code", res.ExitCode, "diagnostic", cmdErr.Diagnostic)
		return cmdErr
	}
	if res.ExitCode == 1 {
		c.logger.Debug("no transactions in range", "depot", c.depot, "time_spec", timeSpec)
		return nil
	}

	transactions, err := parseTransactions(res.Stdout)
	if err != nil {
		c.logger.Error("listing history", "depot", c.depot, "time_spec", timeSpec, "err", err)
		return err
	}

	c.mu.Lock()
	c.transactions = append(c.transactions, transactions...)
	c.mu.Unlock()

	c.logger.Debug("history built", "depot", c.depot, "count", len(transactions))
	return nil
}

// All returns the transactions in append order.
func (c *Transactions) All() []*Transaction {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*Transaction(nil), c.transactions...)
}

// ByID returns the transaction with the given ID, or (nil, nil) when no
// transaction matches. IDs repeat across depots but must be unique within
// this collection's depot.
func (c *Transactions) ByID(id int) (*Transaction, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var found *Transaction
	for _, t := range c.transactions {
		if t.ID != id {
			continue
		}
		if found != nil {
			return nil, &DuplicateKeyError{Collection: "transactions", Key: fmt.Sprintf("%d", id)}
		}
		found = t
	}
	return found, nil
}

// ByUser returns every transaction issued by the given principal.
func (c *Transactions) ByUser(user string) []*Transaction {
	c.mu.Lock()
	defer c.mu.Unlock()

	var out []*Transaction
	for _, t := range c.transactions {
		if t.User == user {
			out = append(out, t)
		}
	}
	return out
}

// parseTransactions projects a `hist` response with a streaming decode.
// Each <transaction> element and its <comment>, <version>, <move>, and
// <stream> children are aggregated into one record.
func parseTransactions(doc []byte) ([]*Transaction, error) {
	transactions, err := decodeTransactions(doc)
	if err != nil {
		return nil, &ParseError{Command: "hist", Detail: "transaction", Err: err}
	}
	return transactions, nil
}

func decodeTransactions(doc []byte) ([]*Transaction, error) {
	dec := xml.NewDecoder(bytes.NewReader(doc))

	var transactions []*Transaction
	sawRoot := false
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("malformed XML: %w", err)
		}

		se, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		if !sawRoot {
			if se.Name.Local != "AcResponse" {
				return nil, fmt.Errorf("unexpected root element <%s>, want <AcResponse>", se.Name.Local)
			}
			sawRoot = true
			continue
		}
		if se.Name.Local != "transaction" {
			if err := dec.Skip(); err != nil {
				return nil, fmt.Errorf("malformed XML: %w", err)
			}
			continue
		}

		txn, err := decodeOneTransaction(dec, newElem(se))
		if err != nil {
			return nil, err
		}
		transactions = append(transactions, txn)
	}

	if !sawRoot {
		return nil, fmt.Errorf("empty response, want <AcResponse> root")
	}
	return transactions, nil
}

// decodeOneTransaction consumes tokens from the open <transaction>
// element through its matching end tag.
func decodeOneTransaction(dec *xml.Decoder, e elem) (*Transaction, error) {
	id, err := e.integer("id")
	if err != nil {
		return nil, err
	}
	when, err := e.epoch("time")
	if err != nil {
		return nil, err
	}

	txn := &Transaction{
		ID:         id,
		Type:       e.text("type"),
		Time:       when,
		User:       e.text("user"),
		Stream:     e.text("streamName"),
		FromStream: e.text("fromStreamName"),
		ToStream:   e.text("toStreamName"),
	}

	for {
		tok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("malformed XML inside transaction %d: %w", txn.ID, err)
		}

		switch t := tok.(type) {
		case xml.EndElement:
			if t.Name.Local == "transaction" {
				return txn, nil
			}
		case xml.StartElement:
			child := newElem(t)
			switch t.Name.Local {
			case "comment":
				text, err := decodeCharData(dec)
				if err != nil {
					return nil, fmt.Errorf("transaction %d comment: %w", txn.ID, err)
				}
				txn.Comment = text
			case "version":
				v, err := decodeVersion(child)
				if err != nil {
					return nil, fmt.Errorf("transaction %d: %w", txn.ID, err)
				}
				txn.Versions = append(txn.Versions, v)
				if err := dec.Skip(); err != nil {
					return nil, fmt.Errorf("malformed XML inside transaction %d: %w", txn.ID, err)
				}
			case "move":
				txn.Moves = append(txn.Moves, &Move{
					Source: child.text("source"),
					Dest:   child.text("dest"),
				})
				if err := dec.Skip(); err != nil {
					return nil, fmt.Errorf("malformed XML inside transaction %d: %w", txn.ID, err)
				}
			case "stream":
				s, err := decodeStreamRecord(child)
				if err != nil {
					return nil, fmt.Errorf("transaction %d: %w", txn.ID, err)
				}
				txn.Streams = append(txn.Streams, s)
				if err := dec.Skip(); err != nil {
					return nil, fmt.Errorf("malformed XML inside transaction %d: %w", txn.ID, err)
				}
			default:
				if err := dec.Skip(); err != nil {
					return nil, fmt.Errorf("malformed XML inside transaction %d: %w", txn.ID, err)
				}
			}
		}
	}
}

func decodeVersion(e elem) (*Version, error) {
	eid, err := e.integer("eid")
	if err != nil {
		return nil, err
	}
	virtual, err := e.coord("virtual")
	if err != nil {
		return nil, err
	}
	real, err := e.coord("real")
	if err != nil {
		return nil, err
	}
	size, err := e.size("sz")
	if err != nil {
		return nil, err
	}
	return &Version{
		Path:        e.text("path"),
		EID:         eid,
		Virtual:     virtual,
		Real:        real,
		VirtualName: e.text("virtualNamedVersion"),
		RealName:    e.text("realNamedVersion"),
		Checksum:    e.text("md5"),
		Size:        size,
	}, nil
}

// decodeStreamRecord projects one <stream> child carried inside a
// transaction (a chstream/mkstream snapshot of the stream's state).
func decodeStreamRecord(e elem) (*Stream, error) {
	id, err := e.integer("id")
	if err != nil {
		return nil, err
	}
	basisID, err := e.integer("basisStreamNumber")
	if err != nil {
		return nil, err
	}
	streamType, err := parseStreamType(e.text("type"))
	if err != nil {
		return nil, err
	}
	startTime, err := e.epoch("startTime")
	if err != nil {
		return nil, err
	}
	return &Stream{
		ID:        id,
		Name:      e.text("name"),
		Depot:     e.text("depotName"),
		Basis:     e.text("basis"),
		BasisID:   basisID,
		Type:      streamType,
		Hidden:    e.boolean("hidden"),
		StartTime: startTime,
	}, nil
}

// decodeCharData reads the character data of the element the decoder is
// currently inside and consumes its end tag.
func decodeCharData(dec *xml.Decoder) (string, error) {
	var sb strings.Builder
	for {
		tok, err := dec.Token()
		if err != nil {
			return "", err
		}
		switch t := tok.(type) {
		case xml.CharData:
			sb.Write(t)
		case xml.EndElement:
			return strings.TrimSpace(sb.String()), nil
		case xml.StartElement:
			if err := dec.Skip(); err != nil {
				return "", err
			}
		}
	}
}

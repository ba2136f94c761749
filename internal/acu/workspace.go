package acu

import (
	"context"
	"fmt"
	"sync"
)

// Workspace is a stream variant bound to a physical location on a host
// machine, owned by one principal. A workspace's ID always equals the ID
// of its corresponding stream of type "workspace".
type Workspace struct {
	ID          int
	Name        string
	Depot       string
	Storage     string
	Host        string
	TargetLevel int // transaction level the workspace should update to
	UpdateLevel int // transaction level the workspace last updated to
	Type        int
	EOL         int
	UserID      int
	UserName    string
	Hidden      bool
}

func (w *Workspace) String() string {
	return fmt.Sprintf("%s (%s@%s)", w.Name, w.UserName, w.Host)
}

// Workspaces is the collection of workspaces, optionally scoped to one
// depot. Workspaces are fetched on demand, never as part of building a
// depot's stream collection.
type Workspaces struct {
	runner Runner
	logger Logger
	depot  string // empty means all depots

	mu         sync.Mutex
	workspaces []*Workspace
}

// NewWorkspaces creates a workspace collection. depot narrows the scope to
// one depot; pass "" for all workspaces on the server.
func NewWorkspaces(runner Runner, logger Logger, depot string) *Workspaces {
	return &Workspaces{runner: runner, logger: logger, depot: depot}
}

// Build populates the collection from `accurev show -fx -a wspaces`,
// including hidden (removed) workspaces. The depot scope, when set, is
// applied while projecting. On failure the collection contents are
// unreliable and must be discarded.
func (c *Workspaces) Build(ctx context.Context) error {
	res, err := c.runner.Run(ctx, "show", "-fx", "-a", "wspaces")
	if err != nil {
		c.logger.Error("listing workspaces", "depot", c.depot, "err", err)
		return err
	}
	if !res.Accepted() {
		cmdErr := res.CommandError()
		c.logger.Error("listing workspaces", "depot", c.depot, "exit_code", res.ExitCode, "diagnostic", cmdErr.Diagnostic)
		return cmdErr
	}

	workspaces, err := parseWorkspaces(res.Stdout)
	if err != nil {
		c.logger.Error("listing workspaces", "depot", c.depot, "err", err)
		return err
	}

	c.mu.Lock()
	for _, w := range workspaces {
		if c.depot == "" || w.Depot == c.depot {
			c.workspaces = append(c.workspaces, w)
		}
	}
	count := len(c.workspaces)
	c.mu.Unlock()

	c.logger.Debug("workspace list built", "depot", c.depot, "count", count)
	return nil
}

// All returns the workspaces in append order.
func (c *Workspaces) All() []*Workspace {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*Workspace(nil), c.workspaces...)
}

// ByName returns the workspace with the given name, or (nil, nil) when no
// workspace matches. Duplicate names are a data integrity violation.
func (c *Workspaces) ByName(name string) (*Workspace, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var found *Workspace
	for _, w := range c.workspaces {
		if w.Name != name {
			continue
		}
		if found != nil {
			return nil, &DuplicateKeyError{Collection: "workspaces", Key: name}
		}
		found = w
	}
	return found, nil
}

// ByID returns the workspace whose ID (and therefore backing stream ID)
// matches, or (nil, nil) when none does. IDs are only unique within one
// depot, so the collection's depot scope matters here.
func (c *Workspaces) ByID(id int) (*Workspace, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var found *Workspace
	for _, w := range c.workspaces {
		if w.ID != id {
			continue
		}
		if found != nil {
			return nil, &DuplicateKeyError{Collection: "workspaces", Key: fmt.Sprintf("%d", id)}
		}
		found = w
	}
	return found, nil
}

// ForUser returns the workspaces owned by the given principal name.
func (c *Workspaces) ForUser(userName string) []*Workspace {
	c.mu.Lock()
	defer c.mu.Unlock()

	var out []*Workspace
	for _, w := range c.workspaces {
		if w.UserName == userName {
			out = append(out, w)
		}
	}
	return out
}

// parseWorkspaces projects a `show wspaces` response. Element path:
// AcResponse/Element; attributes Name, Storage, Host, Stream, depot,
// Target_trans, Trans, Type, EOL, user_id, user_name, hidden.
func parseWorkspaces(doc []byte) ([]*Workspace, error) {
	var workspaces []*Workspace
	err := forEachElement(doc, "AcResponse", "Element", func(e elem) error {
		id, err := e.integer("Stream")
		if err != nil {
			return err
		}
		target, err := e.integer("Target_trans")
		if err != nil {
			return err
		}
		update, err := e.integer("Trans")
		if err != nil {
			return err
		}
		wsType, err := e.integer("Type")
		if err != nil {
			return err
		}
		eol, err := e.integer("EOL")
		if err != nil {
			return err
		}
		userID, err := e.integer("user_id")
		if err != nil {
			return err
		}
		workspaces = append(workspaces, &Workspace{
			ID:          id,
			Name:        e.text("Name"),
			Depot:       e.text("depot"),
			Storage:     e.text("Storage"),
			Host:        e.text("Host"),
			TargetLevel: target,
			UpdateLevel: update,
			Type:        wsType,
			EOL:         eol,
			UserID:      userID,
			UserName:    e.text("user_name"),
			Hidden:      e.boolean("hidden"),
		})
		return nil
	})
	if err != nil {
		return nil, &ParseError{Command: "show wspaces", Detail: "Element", Err: err}
	}
	return workspaces, nil
}

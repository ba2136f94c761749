package acu

import (
	"context"
	"fmt"
	"sync"
)

// Permission is one ACL entry granting or denying a principal rights to a
// depot or stream, optionally inheritable down the stream hierarchy.
type Permission struct {
	Kind          PermissionKind
	Name          string // depot or stream the entry applies to
	AppliesTo     string // principal name
	PrincipalType PrincipalType
	Rights        PermissionRights
	Inheritable   bool
}

func (p *Permission) String() string {
	return fmt.Sprintf("%s %s: %s %s", p.Kind, p.Name, p.AppliesTo, p.Rights)
}

// Permissions is the collection of ACL entries for one permission kind.
// One collection per kind query, matching the tool's own scoping.
type Permissions struct {
	runner Runner
	logger Logger
	kind   PermissionKind

	mu      sync.Mutex
	entries []*Permission
}

func NewPermissions(runner Runner, logger Logger, kind PermissionKind) *Permissions {
	return &Permissions{runner: runner, logger: logger, kind: kind}
}

// Kind returns the permission kind this collection was scoped to.
func (c *Permissions) Kind() PermissionKind { return c.kind }

// Build populates the collection from `accurev show -fx permissions`,
// keeping only entries of the collection's kind. On failure the
// collection contents are unreliable and must be discarded.
func (c *Permissions) Build(ctx context.Context) error {
	res, err := c.runner.Run(ctx, "show", "-fx", "permissions")
	if err != nil {
		c.logger.Error("listing permissions", "kind", c.kind, "err", err)
		return err
	}
	if !res.Accepted() {
		cmdErr := res.CommandError()
		c.logger.Error("listing permissions", "kind", c.kind, "exit_code", res.ExitCode, "diagnostic", cmdErr.Diagnostic)
		return cmdErr
	}

	entries, err := parsePermissions(res.Stdout)
	if err != nil {
		c.logger.Error("listing permissions", "kind", c.kind, "err", err)
		return err
	}

	c.mu.Lock()
	for _, p := range entries {
		if p.Kind == c.kind {
			c.entries = append(c.entries, p)
		}
	}
	count := len(c.entries)
	c.mu.Unlock()

	c.logger.Debug("permission list built", "kind", c.kind, "count", count)
	return nil
}

// All returns the entries in append order.
func (c *Permissions) All() []*Permission {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*Permission(nil), c.entries...)
}

// For returns the entry for the given target name and principal, or
// (nil, nil) when none exists. A duplicate composite key is a data
// integrity violation.
func (c *Permissions) For(name, appliesTo string) (*Permission, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var found *Permission
	for _, p := range c.entries {
		if p.Name != name || p.AppliesTo != appliesTo {
			continue
		}
		if found != nil {
			return nil, &DuplicateKeyError{Collection: "permissions", Key: name + "/" + appliesTo}
		}
		found = p
	}
	return found, nil
}

// parsePermissions projects a `show permissions` response. Element path:
// AcResponse/Element; attributes Kind, Name, Group, Type, Rights,
// Inheritable.
func parsePermissions(doc []byte) ([]*Permission, error) {
	var entries []*Permission
	err := forEachElement(doc, "AcResponse", "Element", func(e elem) error {
		kind, err := parsePermissionKind(e.text("Kind"))
		if err != nil {
			return err
		}
		ptype, err := parsePrincipalType(e.text("Type"))
		if err != nil {
			return err
		}
		rights, err := parsePermissionRights(e.text("Rights"))
		if err != nil {
			return err
		}
		entries = append(entries, &Permission{
			Kind:          kind,
			Name:          e.text("Name"),
			AppliesTo:     e.text("Group"),
			PrincipalType: ptype,
			Rights:        rights,
			Inheritable:   e.boolean("Inheritable"),
		})
		return nil
	})
	if err != nil {
		return nil, &ParseError{Command: "show permissions", Detail: "Element", Err: err}
	}
	return entries, nil
}

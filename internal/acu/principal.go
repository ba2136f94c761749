package acu

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// User is one principal known to the server. The directory profile fields
// are optional enrichment from an external identity service; a failed
// enrichment leaves them empty and never fails the collection build.
type User struct {
	ID     int
	Name   string
	Active bool

	// Directory enrichment, empty unless Enrich succeeded for this user.
	GivenName string
	Surname   string
	Mail      string
	Phone     string

	mu     sync.Mutex
	groups map[string]struct{} // transitive group membership by group name
}

func (u *User) String() string {
	return fmt.Sprintf("%s (%d)", u.Name, u.ID)
}

// MemberOf reports whether the user belongs to the named group, including
// implicit (transitive) membership. Valid only after BuildMemberships.
func (u *User) MemberOf(group string) bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	_, ok := u.groups[group]
	return ok
}

// Groups returns the user's transitive group names, sorted.
func (u *User) Groups() []string {
	u.mu.Lock()
	defer u.mu.Unlock()
	out := make([]string, 0, len(u.groups))
	for g := range u.groups {
		out = append(out, g)
	}
	sort.Strings(out)
	return out
}

func (u *User) setGroups(groups []string) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.groups = make(map[string]struct{}, len(groups))
	for _, g := range groups {
		u.groups[g] = struct{}{}
	}
}

func (u *User) setProfile(p *DirectoryProfile) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.GivenName = p.GivenName
	u.Surname = p.Surname
	u.Mail = p.Mail
	u.Phone = p.Phone
}

// DirectoryProfile is the set of identity fields an external directory can
// contribute to a user record.
type DirectoryProfile struct {
	GivenName string
	Surname   string
	Mail      string
	Phone     string
}

// DirectoryService looks up a principal's profile in an external identity
// directory. Failures are the caller's to log; enrichment is best-effort.
type DirectoryService interface {
	Lookup(ctx context.Context, userName string) (*DirectoryProfile, error)
}

// Users is the collection of principals on the server, optionally scoped
// to a configured set of principal names.
type Users struct {
	runner Runner
	logger Logger
	limit  int                 // fan-out bound for membership and enrichment builds
	scope  map[string]struct{} // principal-name scope; empty means all

	mu    sync.Mutex
	users []*User
}

// NewUsers creates a user collection. limit bounds the fan-out width of
// BuildMemberships and Enrich; 0 applies DefaultFanoutLimit, negative
// means unbounded. scope narrows the collection to the named principals;
// pass nil for every principal on the server.
func NewUsers(runner Runner, logger Logger, limit int, scope []string) *Users {
	if limit == 0 {
		limit = DefaultFanoutLimit
	}
	s := make(map[string]struct{}, len(scope))
	for _, name := range scope {
		s[name] = struct{}{}
	}
	return &Users{runner: runner, logger: logger, limit: limit, scope: s}
}

// Build populates the collection from `accurev show -fx -a users`,
// including inactive principals. The name scope, when set, is applied
// while projecting, so out-of-scope principals never enter the collection
// and later membership and enrichment fan-outs skip them. On failure the
// collection contents are unreliable and must be discarded.
func (c *Users) Build(ctx context.Context) error {
	res, err := c.runner.Run(ctx, "show", "-fx", "-a", "users")
	if err != nil {
		c.logger.Error("listing users", "err", err)
		return err
	}
	if !res.Accepted() {
		cmdErr := res.CommandError()
		c.logger.Error("listing users", "exit_code", res.ExitCode, "diagnostic", cmdErr.Diagnostic)
		return cmdErr
	}

	users, err := parseUsers(res.Stdout)
	if err != nil {
		c.logger.Error("listing users", "err", err)
		return err
	}

	c.mu.Lock()
	for _, u := range users {
		if len(c.scope) == 0 {
			c.users = append(c.users, u)
			continue
		}
		if _, ok := c.scope[u.Name]; ok {
			c.users = append(c.users, u)
		}
	}
	count := len(c.users)
	c.mu.Unlock()

	c.logger.Debug("user list built", "count", count)
	return nil
}

// All returns the users in append order.
func (c *Users) All() []*User {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*User(nil), c.users...)
}

// ByName returns the user with the given principal name, or (nil, nil)
// when no user matches. Duplicate names are a data integrity violation.
func (c *Users) ByName(name string) (*User, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var found *User
	for _, u := range c.users {
		if u.Name != name {
			continue
		}
		if found != nil {
			return nil, &DuplicateKeyError{Collection: "users", Key: name}
		}
		found = u
	}
	return found, nil
}

// ByID returns the user with the given numeric ID, or (nil, nil) when no
// user matches.
func (c *Users) ByID(id int) (*User, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var found *User
	for _, u := range c.users {
		if u.ID != id {
			continue
		}
		if found != nil {
			return nil, &DuplicateKeyError{Collection: "users", Key: fmt.Sprintf("%d", id)}
		}
		found = u
	}
	return found, nil
}

// BuildMemberships fetches each user's transitive group membership with
// one `accurev show -fx -u <name> groups` call per user, fanned out
// concurrently. A single sub-failure fails the build; memberships from
// successful sub-calls are retained.
func (c *Users) BuildMemberships(ctx context.Context, progress ProgressFunc) error {
	users := c.All()
	err := fanout(ctx, c.limit, users, progress, func(ctx context.Context, u *User) error {
		res, err := c.runner.Run(ctx, "show", "-fx", "-u", u.Name, "groups")
		if err != nil {
			c.logger.Error("listing user groups", "user", u.Name, "err", err)
			return err
		}
		if !res.Accepted() {
			cmdErr := res.CommandError()
			c.logger.Error("listing user groups", "user", u.Name, "exit_code", res.ExitCode, "diagnostic", cmdErr.Diagnostic)
			return cmdErr
		}

		groups, err := parseGroupNames(res.Stdout)
		if err != nil {
			c.logger.Error("listing user groups", "user", u.Name, "err", err)
			return err
		}
		u.setGroups(groups)
		return nil
	})
	if err != nil {
		return err
	}

	c.logger.Debug("user memberships built", "users", len(users))
	return nil
}

// Enrich looks every user up in the external directory and fills the
// profile fields. Lookup failures are logged and skipped; enrichment never
// fails the build.
func (c *Users) Enrich(ctx context.Context, dir DirectoryService, progress ProgressFunc) error {
	users := c.All()
	return fanout(ctx, c.limit, users, progress, func(ctx context.Context, u *User) error {
		profile, err := dir.Lookup(ctx, u.Name)
		if err != nil {
			c.logger.Warn("directory lookup failed, profile omitted", "user", u.Name, "err", err)
			return nil
		}
		u.setProfile(profile)
		return nil
	})
}

// parseUsers projects a `show users` response. Element path:
// AcResponse/Element; attributes Number, Name, isActive (absent means
// active).
func parseUsers(doc []byte) ([]*User, error) {
	var users []*User
	err := forEachElement(doc, "AcResponse", "Element", func(e elem) error {
		id, err := e.integer("Number")
		if err != nil {
			return err
		}
		active := true
		if v, ok := e.lookup("isActive"); ok {
			active = v == "true"
		}
		users = append(users, &User{
			ID:     id,
			Name:   e.text("Name"),
			Active: active,
		})
		return nil
	})
	if err != nil {
		return nil, &ParseError{Command: "show users", Detail: "Element", Err: err}
	}
	return users, nil
}

// Group is one group principal.
type Group struct {
	ID   int
	Name string
}

func (g *Group) String() string {
	return fmt.Sprintf("%s (%d)", g.Name, g.ID)
}

// Groups is the collection of group principals on the server.
type Groups struct {
	runner Runner
	logger Logger

	mu     sync.Mutex
	groups []*Group
}

func NewGroups(runner Runner, logger Logger) *Groups {
	return &Groups{runner: runner, logger: logger}
}

// Build populates the collection from `accurev show -fx groups`.
func (c *Groups) Build(ctx context.Context) error {
	res, err := c.runner.Run(ctx, "show", "-fx", "groups")
	if err != nil {
		c.logger.Error("listing groups", "err", err)
		return err
	}
	if !res.Accepted() {
		cmdErr := res.CommandError()
		c.logger.Error("listing groups", "exit_code", res.ExitCode, "diagnostic", cmdErr.Diagnostic)
		return cmdErr
	}

	groups, err := parseGroups(res.Stdout)
	if err != nil {
		c.logger.Error("listing groups", "err", err)
		return err
	}

	c.mu.Lock()
	c.groups = append(c.groups, groups...)
	c.mu.Unlock()

	c.logger.Debug("group list built", "count", len(groups))
	return nil
}

// All returns the groups in append order.
func (c *Groups) All() []*Group {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*Group(nil), c.groups...)
}

// ByName returns the group with the given name, or (nil, nil) when no
// group matches. Duplicate names are a data integrity violation.
func (c *Groups) ByName(name string) (*Group, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var found *Group
	for _, g := range c.groups {
		if g.Name != name {
			continue
		}
		if found != nil {
			return nil, &DuplicateKeyError{Collection: "groups", Key: name}
		}
		found = g
	}
	return found, nil
}

// parseGroups projects a `show groups` response.
func parseGroups(doc []byte) ([]*Group, error) {
	var groups []*Group
	err := forEachElement(doc, "AcResponse", "Element", func(e elem) error {
		id, err := e.integer("Number")
		if err != nil {
			return err
		}
		groups = append(groups, &Group{ID: id, Name: e.text("Name")})
		return nil
	})
	if err != nil {
		return nil, &ParseError{Command: "show groups", Detail: "Element", Err: err}
	}
	return groups, nil
}

// parseGroupNames projects a `show -u <user> groups` response into the
// member group names.
func parseGroupNames(doc []byte) ([]string, error) {
	var names []string
	err := forEachElement(doc, "AcResponse", "Element", func(e elem) error {
		names = append(names, e.text("Name"))
		return nil
	})
	if err != nil {
		return nil, &ParseError{Command: "show -u groups", Detail: "Element", Err: err}
	}
	return names, nil
}

// Package app is the application layer between the CLI and the collection
// types. It constructs all dependencies from config, exposes the
// high-level operations the commands call, and manages resource lifecycle
// on Close.
package app

import (
	"context"
	"fmt"
	"os"
	"time"

	"acutils-go/internal/accurev"
	"acutils-go/internal/acu"
	"acutils-go/internal/config"
	"acutils-go/internal/database"
	"acutils-go/internal/sink"
)

// App wires a Runner, logger, and the shared depot cache for one CLI
// invocation. The snapshot store and report sink are opened on first use
// so that read-only listing commands never touch them.
type App struct {
	cfg    *config.Config
	runner acu.Runner
	logger acu.Logger
	cache  *acu.DepotCache

	store   *database.Store
	sink    acu.ReportSink
	logFile *os.File
}

// New creates a fully wired App from the given config. operation
// identifies the CLI command being run (e.g. "streams", "snapshot"); it
// tags every log line of this invocation. The caller must call Close when
// done.
func New(cfg *config.Config, operation string) (*App, error) {
	opID := time.Now().UTC().Format("20060102T150405Z") + "-" + operation
	slogger, logFile, err := newLogger(cfg.LogDir, opID)
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}

	logger := &slogAdapter{l: slogger}
	runner := accurev.New(cfg.AccuRev.Binary, time.Duration(cfg.AccuRev.TimeoutSeconds)*time.Second)

	return &App{
		cfg:     cfg,
		runner:  runner,
		logger:  logger,
		cache:   acu.NewDepotCache(runner, logger),
		logFile: logFile,
	}, nil
}

// NewWithRunner creates an App on an explicit runner and logger. Used by
// tests to substitute a scripted runner.
func NewWithRunner(cfg *config.Config, runner acu.Runner, logger acu.Logger) *App {
	return &App{
		cfg:    cfg,
		runner: runner,
		logger: logger,
		cache:  acu.NewDepotCache(runner, logger),
	}
}

// Config returns the configuration the App was built from.
func (a *App) Config() *config.Config { return a.cfg }

// ensureStore opens the snapshot database on first use.
func (a *App) ensureStore() (*database.Store, error) {
	if a.store != nil {
		return a.store, nil
	}

	store, err := database.NewStoreFromConfig(a.cfg.Database, a.cfg.HostID)
	if err != nil {
		return nil, fmt.Errorf("opening snapshot database: %w", err)
	}
	if err := store.MigrateUp(); err != nil {
		store.Close()
		return nil, fmt.Errorf("migrating snapshot database: %w", err)
	}

	a.store = store
	return store, nil
}

// ensureSink creates the report sink on first use.
func (a *App) ensureSink(ctx context.Context) (acu.ReportSink, error) {
	if a.sink != nil {
		return a.sink, nil
	}

	s, err := sink.NewSinkFromConfig(ctx, a.cfg.Sink)
	if err != nil {
		return nil, fmt.Errorf("creating report sink: %w", err)
	}

	a.sink = s
	return s, nil
}

// depotNames returns the depots an inventory-wide operation should cover:
// the configured scope when set, otherwise every depot on the server.
func (a *App) depotNames(ctx context.Context) ([]string, error) {
	if len(a.cfg.Depots) > 0 {
		return a.cfg.Depots, nil
	}

	depots, err := a.cache.Get(ctx)
	if err != nil {
		return nil, err
	}

	var names []string
	for _, d := range depots.All() {
		names = append(names, d.Name)
	}
	return names, nil
}

// ListDepots returns every depot on the server.
func (a *App) ListDepots(ctx context.Context) ([]*acu.Depot, error) {
	depots, err := a.cache.Get(ctx)
	if err != nil {
		return nil, err
	}
	return depots.All(), nil
}

// ListStreams returns every stream in the depot, hidden ones included.
func (a *App) ListStreams(ctx context.Context, depot string) ([]*acu.Stream, error) {
	streams := acu.NewStreams(a.runner, a.logger, depot)
	if err := streams.Build(ctx); err != nil {
		return nil, err
	}
	return streams.All(), nil
}

// StreamChildren returns the direct children of the named stream.
func (a *App) StreamChildren(ctx context.Context, depot, stream string) ([]*acu.Stream, error) {
	streams := acu.NewStreams(a.runner, a.logger, depot)
	if err := streams.Build(ctx); err != nil {
		return nil, err
	}

	s, err := streams.ByName(stream)
	if err != nil {
		return nil, err
	}
	if s == nil {
		return nil, fmt.Errorf("no stream named %q in depot %s", stream, depot)
	}
	return streams.Children(ctx, s)
}

// ListWorkspaces returns the workspaces on the server, optionally scoped
// to one depot ("" means all).
func (a *App) ListWorkspaces(ctx context.Context, depot string) ([]*acu.Workspace, error) {
	workspaces := acu.NewWorkspaces(a.runner, a.logger, depot)
	if err := workspaces.Build(ctx); err != nil {
		return nil, err
	}
	return workspaces.All(), nil
}

// ListUsers returns the in-scope principals: the configured user list
// when set, otherwise every principal on the server. When withGroups is
// set, each user's transitive group membership is fetched as well. dir,
// when non-nil, enriches users with directory profile fields; enrichment
// failures are logged and skipped.
func (a *App) ListUsers(ctx context.Context, withGroups bool, dir acu.DirectoryService, progress acu.ProgressFunc) ([]*acu.User, error) {
	users := acu.NewUsers(a.runner, a.logger, a.cfg.AccuRev.FanoutLimit, a.cfg.Users)
	if err := users.Build(ctx); err != nil {
		return nil, err
	}

	if withGroups {
		if err := users.BuildMemberships(ctx, progress); err != nil {
			return nil, err
		}
	}
	if dir != nil {
		if err := users.Enrich(ctx, dir, progress); err != nil {
			return nil, err
		}
	}
	return users.All(), nil
}

// ListGroups returns every group principal.
func (a *App) ListGroups(ctx context.Context) ([]*acu.Group, error) {
	groups := acu.NewGroups(a.runner, a.logger)
	if err := groups.Build(ctx); err != nil {
		return nil, err
	}
	return groups.All(), nil
}

// ListLocks returns every stream lock on the server.
func (a *App) ListLocks(ctx context.Context) ([]*acu.Lock, error) {
	locks := acu.NewLocks(a.runner, a.logger)
	if err := locks.Build(ctx); err != nil {
		return nil, err
	}
	return locks.All(), nil
}

// ListPermissions returns the ACL entries of the given kind.
func (a *App) ListPermissions(ctx context.Context, kind acu.PermissionKind) ([]*acu.Permission, error) {
	permissions := acu.NewPermissions(a.runner, a.logger, kind)
	if err := permissions.Build(ctx); err != nil {
		return nil, err
	}
	return permissions.All(), nil
}

// ListRules returns include/exclude rules. When stream is non-empty only
// that stream is queried; otherwise the depot's entire stream list is
// fanned out.
func (a *App) ListRules(ctx context.Context, depot, stream string, progress acu.ProgressFunc) ([]*acu.Rule, error) {
	rules := acu.NewRules(a.runner, a.logger, a.cfg.AccuRev.FanoutLimit)

	if stream != "" {
		if err := rules.Build(ctx, stream); err != nil {
			return nil, err
		}
		return rules.All(), nil
	}

	streams := acu.NewStreams(a.runner, a.logger, depot)
	if err := streams.Build(ctx); err != nil {
		return nil, err
	}

	var names []string
	for _, s := range streams.All() {
		names = append(names, s.Name)
	}
	if err := rules.BuildForStreams(ctx, names, progress); err != nil {
		return nil, err
	}
	return rules.All(), nil
}

// History returns the depot's transactions for the given time spec.
func (a *App) History(ctx context.Context, depot, timeSpec string) ([]*acu.Transaction, error) {
	transactions := acu.NewTransactions(a.runner, a.logger, depot)
	if err := transactions.Build(ctx, timeSpec); err != nil {
		return nil, err
	}
	return transactions.All(), nil
}

// Status returns the element statuses of the named stream.
func (a *App) Status(ctx context.Context, stream string) ([]*acu.Element, error) {
	elements := acu.NewElements(a.runner, a.logger, stream)
	if err := elements.Build(ctx); err != nil {
		return nil, err
	}
	return elements.All(), nil
}

// Snapshot captures the current inventory (depots, streams, and
// workspaces for every in-scope depot) and saves it to the snapshot
// database. Returns the new snapshot ID.
func (a *App) Snapshot(ctx context.Context) (string, error) {
	depots, err := a.cache.Get(ctx)
	if err != nil {
		return "", err
	}

	names, err := a.depotNames(ctx)
	if err != nil {
		return "", err
	}

	snap := &database.Snapshot{
		HostID:     a.cfg.HostID,
		Depots:     depots.All(),
		Streams:    make(map[string][]*acu.Stream, len(names)),
		Workspaces: make(map[string][]*acu.Workspace, len(names)),
	}

	for _, name := range names {
		streams, err := a.ListStreams(ctx, name)
		if err != nil {
			return "", err
		}
		snap.Streams[name] = streams

		workspaces, err := a.ListWorkspaces(ctx, name)
		if err != nil {
			return "", err
		}
		snap.Workspaces[name] = workspaces
	}

	store, err := a.ensureStore()
	if err != nil {
		return "", err
	}

	id, err := store.SaveSnapshot(ctx, snap)
	if err != nil {
		return "", err
	}

	a.logger.Info("snapshot saved", "id", id, "depots", len(names))
	return id, nil
}

// ListSnapshots returns the saved snapshots, newest first.
func (a *App) ListSnapshots(ctx context.Context, limit int) ([]*database.SnapshotSummary, error) {
	store, err := a.ensureStore()
	if err != nil {
		return nil, err
	}
	return store.ListSnapshots(ctx, limit)
}

// Close releases the App's resources.
func (a *App) Close() error {
	var firstErr error

	if a.store != nil {
		if err := a.store.Close(); err != nil {
			firstErr = fmt.Errorf("closing snapshot database: %w", err)
		}
	}
	if a.logFile != nil {
		if err := a.logFile.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("closing log file: %w", err)
		}
	}

	return firstErr
}

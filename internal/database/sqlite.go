// Package database persists point-in-time inventory snapshots in SQLite.
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"acutils-go/internal/acu"
	"acutils-go/internal/database/migrations"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// Snapshot is one saved inventory: the depot, stream, and workspace
// listings captured together at one moment.
type Snapshot struct {
	ID         string
	HostID     string
	CreatedAt  time.Time
	Depots     []*acu.Depot
	Streams    map[string][]*acu.Stream    // keyed by depot name
	Workspaces map[string][]*acu.Workspace // keyed by depot name
}

// SnapshotSummary is the listing row for one saved snapshot.
type SnapshotSummary struct {
	ID          string
	HostID      string
	CreatedAt   time.Time
	DepotCount  int
	StreamCount int
}

// Store is a SQLite-backed snapshot store.
type Store struct {
	db   *sql.DB
	path string
}

// Open creates a Store at the given path. path can be a file path or
// ":memory:" for an in-memory database.
func Open(path string) (*Store, error) {
	db, err := OpenConnection(path)
	if err != nil {
		return nil, err
	}
	return &Store{db: db, path: path}, nil
}

// OpenConnection opens and configures a SQLite connection with the
// PRAGMAs the store relies on. Exported for tools and tests that need a
// properly configured connection.
func OpenConnection(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Foreign key constraints are OFF by default in SQLite; the cascade
	// deletes on snapshot rows depend on them.
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return db, nil
}

// Path returns the database file path (or ":memory:").
func (s *Store) Path() string { return s.path }

// CheckMigrations verifies the database schema is up-to-date.
func (s *Store) CheckMigrations() error {
	return migrations.CheckStatus(s.db)
}

// MigrateUp brings the database schema to the latest version.
func (s *Store) MigrateUp() error {
	return migrations.Up(s.db)
}

// SaveSnapshot writes one inventory snapshot in a single transaction and
// returns its generated ID.
func (s *Store) SaveSnapshot(ctx context.Context, snap *Snapshot) (string, error) {
	if snap.ID == "" {
		snap.ID = uuid.New().String()
	}
	if snap.CreatedAt.IsZero() {
		snap.CreatedAt = time.Now().UTC()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO snapshots (id, host_id, created_at) VALUES (?, ?, ?)`,
		snap.ID, snap.HostID, snap.CreatedAt,
	); err != nil {
		return "", fmt.Errorf("inserting snapshot: %w", err)
	}

	for _, d := range snap.Depots {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO snapshot_depots
			 (snapshot_id, depot_id, name, slice, case_mode, exclusive_locking)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			snap.ID, d.ID, d.Name, d.Slice, string(d.Case), d.ExclusiveLocking,
		); err != nil {
			return "", fmt.Errorf("inserting depot %s: %w", d.Name, err)
		}
	}

	for depot, streams := range snap.Streams {
		for _, st := range streams {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO snapshot_streams
				 (snapshot_id, depot, stream_id, name, basis, basis_id, stream_type,
				  hidden, has_default_group, time_basis, start_time)
				 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				snap.ID, depot, st.ID, st.Name, st.Basis, st.BasisID, string(st.Type),
				st.Hidden, st.HasDefaultGroup, nullTime(st.Time), nullTime(st.StartTime),
			); err != nil {
				return "", fmt.Errorf("inserting stream %s: %w", st.Name, err)
			}
		}
	}

	for depot, workspaces := range snap.Workspaces {
		for _, w := range workspaces {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO snapshot_workspaces
				 (snapshot_id, depot, workspace_id, name, storage, host,
				  target_level, update_level, user_name, hidden)
				 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				snap.ID, depot, w.ID, w.Name, w.Storage, w.Host,
				w.TargetLevel, w.UpdateLevel, w.UserName, w.Hidden,
			); err != nil {
				return "", fmt.Errorf("inserting workspace %s: %w", w.Name, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("committing transaction: %w", err)
	}

	return snap.ID, nil
}

// ListSnapshots returns the saved snapshots, newest first.
func (s *Store) ListSnapshots(ctx context.Context, limit int) ([]*SnapshotSummary, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT s.id, s.host_id, s.created_at,
		        (SELECT COUNT(*) FROM snapshot_depots d WHERE d.snapshot_id = s.id),
		        (SELECT COUNT(*) FROM snapshot_streams st WHERE st.snapshot_id = s.id)
		 FROM snapshots s
		 ORDER BY s.created_at DESC
		 LIMIT ?`, int64(limit))
	if err != nil {
		return nil, fmt.Errorf("listing snapshots: %w", err)
	}
	defer rows.Close()

	var out []*SnapshotSummary
	for rows.Next() {
		var sum SnapshotSummary
		if err := rows.Scan(&sum.ID, &sum.HostID, &sum.CreatedAt, &sum.DepotCount, &sum.StreamCount); err != nil {
			return nil, fmt.Errorf("scanning snapshot row: %w", err)
		}
		out = append(out, &sum)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading snapshot rows: %w", err)
	}
	return out, nil
}

// LoadSnapshot reads one snapshot back in full, or (nil, nil) when the ID
// is unknown.
func (s *Store) LoadSnapshot(ctx context.Context, id string) (*Snapshot, error) {
	snap := &Snapshot{
		ID:         id,
		Streams:    make(map[string][]*acu.Stream),
		Workspaces: make(map[string][]*acu.Workspace),
	}

	err := s.db.QueryRowContext(ctx,
		`SELECT host_id, created_at FROM snapshots WHERE id = ?`, id,
	).Scan(&snap.HostID, &snap.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading snapshot %s: %w", id, err)
	}

	if err := s.loadDepots(ctx, snap); err != nil {
		return nil, err
	}
	if err := s.loadStreams(ctx, snap); err != nil {
		return nil, err
	}
	if err := s.loadWorkspaces(ctx, snap); err != nil {
		return nil, err
	}
	return snap, nil
}

func (s *Store) loadDepots(ctx context.Context, snap *Snapshot) error {
	rows, err := s.db.QueryContext(ctx,
		`SELECT depot_id, name, slice, case_mode, exclusive_locking
		 FROM snapshot_depots WHERE snapshot_id = ? ORDER BY depot_id`, snap.ID)
	if err != nil {
		return fmt.Errorf("loading snapshot depots: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var d acu.Depot
		var caseMode string
		if err := rows.Scan(&d.ID, &d.Name, &d.Slice, &caseMode, &d.ExclusiveLocking); err != nil {
			return fmt.Errorf("scanning depot row: %w", err)
		}
		d.Case = acu.CaseSensitivity(caseMode)
		snap.Depots = append(snap.Depots, &d)
	}
	return rows.Err()
}

func (s *Store) loadStreams(ctx context.Context, snap *Snapshot) error {
	rows, err := s.db.QueryContext(ctx,
		`SELECT depot, stream_id, name, basis, basis_id, stream_type,
		        hidden, has_default_group, time_basis, start_time
		 FROM snapshot_streams WHERE snapshot_id = ? ORDER BY depot, stream_id`, snap.ID)
	if err != nil {
		return fmt.Errorf("loading snapshot streams: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var st acu.Stream
		var depot, streamType string
		var timeBasis, startTime sql.NullTime
		if err := rows.Scan(&depot, &st.ID, &st.Name, &st.Basis, &st.BasisID, &streamType,
			&st.Hidden, &st.HasDefaultGroup, &timeBasis, &startTime); err != nil {
			return fmt.Errorf("scanning stream row: %w", err)
		}
		st.Depot = depot
		st.Type = acu.StreamType(streamType)
		if timeBasis.Valid {
			st.Time = timeBasis.Time
		}
		if startTime.Valid {
			st.StartTime = startTime.Time
		}
		snap.Streams[depot] = append(snap.Streams[depot], &st)
	}
	return rows.Err()
}

func (s *Store) loadWorkspaces(ctx context.Context, snap *Snapshot) error {
	rows, err := s.db.QueryContext(ctx,
		`SELECT depot, workspace_id, name, storage, host,
		        target_level, update_level, user_name, hidden
		 FROM snapshot_workspaces WHERE snapshot_id = ? ORDER BY depot, workspace_id`, snap.ID)
	if err != nil {
		return fmt.Errorf("loading snapshot workspaces: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var w acu.Workspace
		var depot string
		if err := rows.Scan(&depot, &w.ID, &w.Name, &w.Storage, &w.Host,
			&w.TargetLevel, &w.UpdateLevel, &w.UserName, &w.Hidden); err != nil {
			return fmt.Errorf("scanning workspace row: %w", err)
		}
		w.Depot = depot
		snap.Workspaces[depot] = append(snap.Workspaces[depot], &w)
	}
	return rows.Err()
}

// nullTime maps the zero time to NULL so that "no time basis" round-trips.
func nullTime(t time.Time) sql.NullTime {
	if t.IsZero() {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t, Valid: true}
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

package database

import (
	"context"
	"testing"
	"time"

	"acutils-go/internal/acu"
	"acutils-go/internal/config"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { store.Close() })

	if err := store.MigrateUp(); err != nil {
		t.Fatalf("MigrateUp() error = %v", err)
	}
	return store
}

func testSnapshot() *Snapshot {
	return &Snapshot{
		HostID: "host-1",
		Depots: []*acu.Depot{
			{ID: 2, Name: "JUPITER", Slice: 2, Case: acu.CaseInsensitive},
			{ID: 3, Name: "NEPTUNE", Slice: 3, Case: acu.CaseInsensitive, ExclusiveLocking: true},
		},
		Streams: map[string][]*acu.Stream{
			"NEPTUNE": {
				{ID: 1, Name: "NEPTUNE", Depot: "NEPTUNE", Type: acu.StreamNormal,
					StartTime: time.Unix(1500000000, 0).UTC()},
				{ID: 2, Name: "NEPTUNE_DEV", Depot: "NEPTUNE", Basis: "NEPTUNE", BasisID: 1,
					Type: acu.StreamDynamic, HasDefaultGroup: true,
					StartTime: time.Unix(1500003600, 0).UTC()},
			},
		},
		Workspaces: map[string][]*acu.Workspace{
			"NEPTUNE": {
				{ID: 7, Name: "NEPTUNE_DEV_alice", Depot: "NEPTUNE", Storage: "/home/alice/nep",
					Host: "wks01", TargetLevel: 41, UpdateLevel: 41, UserName: "alice"},
			},
		},
	}
}

func TestStore_SaveLoadSnapshot(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	id, err := store.SaveSnapshot(ctx, testSnapshot())
	if err != nil {
		t.Fatalf("SaveSnapshot() error = %v", err)
	}
	if id == "" {
		t.Fatal("SaveSnapshot() returned empty ID")
	}

	got, err := store.LoadSnapshot(ctx, id)
	if err != nil {
		t.Fatalf("LoadSnapshot() error = %v", err)
	}
	if got == nil {
		t.Fatal("LoadSnapshot() = nil for saved snapshot")
	}

	if got.HostID != "host-1" {
		t.Errorf("HostID = %q, want %q", got.HostID, "host-1")
	}
	if len(got.Depots) != 2 {
		t.Fatalf("len(Depots) = %d, want 2", len(got.Depots))
	}
	if got.Depots[1].Name != "NEPTUNE" || !got.Depots[1].ExclusiveLocking {
		t.Errorf("Depots[1] = %+v, want NEPTUNE with exclusive locking", got.Depots[1])
	}
	if got.Depots[0].Case != acu.CaseInsensitive {
		t.Errorf("Depots[0].Case = %q, want %q", got.Depots[0].Case, acu.CaseInsensitive)
	}

	streams := got.Streams["NEPTUNE"]
	if len(streams) != 2 {
		t.Fatalf("len(Streams[NEPTUNE]) = %d, want 2", len(streams))
	}
	if streams[0].Name != "NEPTUNE" || streams[0].BasisID != 0 {
		t.Errorf("Streams[0] = %+v, want root stream NEPTUNE", streams[0])
	}
	if streams[1].Basis != "NEPTUNE" || streams[1].Type != acu.StreamDynamic {
		t.Errorf("Streams[1] = %+v, want dynamic child of NEPTUNE", streams[1])
	}
	if !streams[1].HasDefaultGroup {
		t.Error("Streams[1].HasDefaultGroup = false, want true")
	}
	if !streams[0].Time.IsZero() {
		t.Errorf("Streams[0].Time = %v, want zero (no time basis)", streams[0].Time)
	}
	if !streams[1].StartTime.Equal(time.Unix(1500003600, 0)) {
		t.Errorf("Streams[1].StartTime = %v, want %v", streams[1].StartTime, time.Unix(1500003600, 0).UTC())
	}

	workspaces := got.Workspaces["NEPTUNE"]
	if len(workspaces) != 1 {
		t.Fatalf("len(Workspaces[NEPTUNE]) = %d, want 1", len(workspaces))
	}
	if workspaces[0].UserName != "alice" || workspaces[0].TargetLevel != 41 {
		t.Errorf("Workspaces[0] = %+v, want alice at level 41", workspaces[0])
	}
}

func TestStore_LoadSnapshot_Unknown(t *testing.T) {
	store := newTestStore(t)

	got, err := store.LoadSnapshot(context.Background(), "no-such-id")
	if err != nil {
		t.Fatalf("LoadSnapshot() error = %v", err)
	}
	if got != nil {
		t.Errorf("LoadSnapshot() = %+v, want nil for unknown ID", got)
	}
}

func TestStore_ListSnapshots(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	first := testSnapshot()
	first.CreatedAt = time.Unix(1600000000, 0).UTC()
	if _, err := store.SaveSnapshot(ctx, first); err != nil {
		t.Fatalf("SaveSnapshot() error = %v", err)
	}

	second := testSnapshot()
	second.CreatedAt = time.Unix(1600003600, 0).UTC()
	secondID, err := store.SaveSnapshot(ctx, second)
	if err != nil {
		t.Fatalf("SaveSnapshot() error = %v", err)
	}

	list, err := store.ListSnapshots(ctx, 10)
	if err != nil {
		t.Fatalf("ListSnapshots() error = %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("len(ListSnapshots()) = %d, want 2", len(list))
	}
	if list[0].ID != secondID {
		t.Errorf("ListSnapshots()[0].ID = %q, want newest snapshot %q", list[0].ID, secondID)
	}
	if list[0].DepotCount != 2 || list[0].StreamCount != 2 {
		t.Errorf("counts = (%d depots, %d streams), want (2, 2)", list[0].DepotCount, list[0].StreamCount)
	}

	limited, err := store.ListSnapshots(ctx, 1)
	if err != nil {
		t.Fatalf("ListSnapshots(1) error = %v", err)
	}
	if len(limited) != 1 {
		t.Errorf("len(ListSnapshots(1)) = %d, want 1", len(limited))
	}
}

func TestCheckMigrations(t *testing.T) {
	store, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer store.Close()

	if err := store.CheckMigrations(); err == nil {
		t.Fatal("CheckMigrations() expected error before MigrateUp")
	}

	if err := store.MigrateUp(); err != nil {
		t.Fatalf("MigrateUp() error = %v", err)
	}

	if err := store.CheckMigrations(); err != nil {
		t.Errorf("CheckMigrations() after MigrateUp error = %v", err)
	}

	// Running Up again is a no-op.
	if err := store.MigrateUp(); err != nil {
		t.Errorf("second MigrateUp() error = %v", err)
	}
}

func TestNewStoreFromConfig(t *testing.T) {
	t.Run("memory", func(t *testing.T) {
		store, err := NewStoreFromConfig(config.DatabaseConfig{Type: "memory"}, "h1")
		if err != nil {
			t.Fatalf("NewStoreFromConfig() error = %v", err)
		}
		defer store.Close()
		if store.Path() != ":memory:" {
			t.Errorf("Path() = %q, want %q", store.Path(), ":memory:")
		}
	})

	t.Run("sqlite requires data_dir", func(t *testing.T) {
		if _, err := NewStoreFromConfig(config.DatabaseConfig{Type: "sqlite"}, "h1"); err == nil {
			t.Fatal("NewStoreFromConfig() expected error for missing data_dir")
		}
	})

	t.Run("unknown type", func(t *testing.T) {
		if _, err := NewStoreFromConfig(config.DatabaseConfig{Type: "postgres"}, "h1"); err == nil {
			t.Fatal("NewStoreFromConfig() expected error for unknown type")
		}
	})
}

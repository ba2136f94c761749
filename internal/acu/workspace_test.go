package acu_test

import (
	"context"
	"testing"

	"acutils-go/internal/acu"
	"acutils-go/internal/testutil"
)

const wspacesXML = `<AcResponse Command="show wspaces">
  <Element Name="NEPTUNE_DEV_alice" Storage="/home/alice/nep" Host="wks01" Stream="4" depot="NEPTUNE" Target_trans="41" Trans="41" Type="1" EOL="0" user_id="12" user_name="alice"/>
  <Element Name="NEPTUNE_DEV_bob" Storage="/home/bob/nep" Host="wks02" Stream="5" depot="NEPTUNE" Target_trans="41" Trans="38" Type="1" EOL="1" user_id="13" user_name="bob" hidden="true"/>
  <Element Name="JUPITER_MAIN_alice" Storage="/home/alice/jup" Host="wks01" Stream="9" depot="JUPITER" Target_trans="12" Trans="12" Type="1" EOL="0" user_id="12" user_name="alice"/>
</AcResponse>`

func TestWorkspaces_Build_AllDepots(t *testing.T) {
	runner := testutil.NewFakeRunner()
	runner.StubXML("show -fx -a wspaces", wspacesXML)

	workspaces := acu.NewWorkspaces(runner, acu.NewNopLogger(), "")
	if err := workspaces.Build(context.Background()); err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	all := workspaces.All()
	if len(all) != 3 {
		t.Fatalf("len(All()) = %d, want 3", len(all))
	}

	w := all[0]
	if w.ID != 4 || w.Name != "NEPTUNE_DEV_alice" {
		t.Errorf("All()[0] = %+v, want NEPTUNE_DEV_alice with ID 4", w)
	}
	if w.Storage != "/home/alice/nep" || w.Host != "wks01" {
		t.Errorf("storage/host = %s@%s, want /home/alice/nep@wks01", w.Storage, w.Host)
	}
	if w.TargetLevel != 41 || w.UpdateLevel != 41 {
		t.Errorf("levels = %d/%d, want 41/41", w.UpdateLevel, w.TargetLevel)
	}
	if w.UserID != 12 || w.UserName != "alice" {
		t.Errorf("owner = %s (%d), want alice (12)", w.UserName, w.UserID)
	}
	if w.Hidden {
		t.Error("Hidden = true, want false")
	}

	if !all[1].Hidden {
		t.Error("NEPTUNE_DEV_bob.Hidden = false, want true")
	}
	if all[1].UpdateLevel != 38 {
		t.Errorf("NEPTUNE_DEV_bob.UpdateLevel = %d, want 38", all[1].UpdateLevel)
	}
}

func TestWorkspaces_Build_DepotScope(t *testing.T) {
	runner := testutil.NewFakeRunner()
	runner.StubXML("show -fx -a wspaces", wspacesXML)

	workspaces := acu.NewWorkspaces(runner, acu.NewNopLogger(), "NEPTUNE")
	if err := workspaces.Build(context.Background()); err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	all := workspaces.All()
	if len(all) != 2 {
		t.Fatalf("len(All()) = %d, want 2 (JUPITER workspace filtered)", len(all))
	}
	for _, w := range all {
		if w.Depot != "NEPTUNE" {
			t.Errorf("workspace %s has depot %q, want NEPTUNE", w.Name, w.Depot)
		}
	}
}

func TestWorkspaces_Lookups(t *testing.T) {
	runner := testutil.NewFakeRunner()
	runner.StubXML("show -fx -a wspaces", wspacesXML)

	workspaces := acu.NewWorkspaces(runner, acu.NewNopLogger(), "")
	if err := workspaces.Build(context.Background()); err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	w, err := workspaces.ByName("NEPTUNE_DEV_bob")
	if err != nil {
		t.Fatalf("ByName() error = %v", err)
	}
	if w == nil || w.ID != 5 {
		t.Fatalf("ByName(NEPTUNE_DEV_bob) = %+v, want workspace 5", w)
	}

	w, err = workspaces.ByID(9)
	if err != nil {
		t.Fatalf("ByID() error = %v", err)
	}
	if w == nil || w.Name != "JUPITER_MAIN_alice" {
		t.Fatalf("ByID(9) = %+v, want JUPITER_MAIN_alice", w)
	}

	w, err = workspaces.ByName("missing")
	if err != nil {
		t.Fatalf("ByName() error = %v", err)
	}
	if w != nil {
		t.Errorf("ByName(missing) = %+v, want nil", w)
	}

	mine := workspaces.ForUser("alice")
	if len(mine) != 2 {
		t.Fatalf("len(ForUser(alice)) = %d, want 2", len(mine))
	}
	if len(workspaces.ForUser("carol")) != 0 {
		t.Error("ForUser(carol) returned workspaces, want none")
	}
}

package acu_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"acutils-go/internal/acu"
	"acutils-go/internal/testutil"
)

const neptuneStreamsXML = `<streams>
  <stream id="1" name="NEPTUNE" depotName="NEPTUNE" type="normal" startTime="1500000000" isDynamic="true"/>
  <stream id="2" name="NEPTUNE_DEV" depotName="NEPTUNE" basis="NEPTUNE" basisStreamNumber="1" type="dynamic" hasDefaultGroup="true" startTime="1500003600"/>
  <stream id="3" name="NEPTUNE_REL" depotName="NEPTUNE" basis="NEPTUNE" basisStreamNumber="1" type="snapshot" time="1500007200" startTime="1500007200" hidden="true"/>
  <stream id="4" name="NEPTUNE_DEV_alice" depotName="NEPTUNE" basis="NEPTUNE_DEV" basisStreamNumber="2" type="workspace" startTime="1500010800"/>
</streams>`

func builtStreams(t *testing.T) (*acu.Streams, *testutil.FakeRunner) {
	t.Helper()
	runner := testutil.NewFakeRunner()
	runner.StubXML("show -fx -a -p NEPTUNE streams", neptuneStreamsXML)

	streams := acu.NewStreams(runner, acu.NewNopLogger(), "NEPTUNE")
	if err := streams.Build(context.Background()); err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	return streams, runner
}

func TestStreams_Build(t *testing.T) {
	streams, _ := builtStreams(t)

	if streams.Size() != 4 {
		t.Fatalf("Size() = %d, want 4", streams.Size())
	}

	all := streams.All()
	root := all[0]
	if root.Name != "NEPTUNE" || !root.IsRoot() {
		t.Errorf("All()[0] = %+v, want root stream NEPTUNE", root)
	}
	if !root.StartTime.Equal(time.Unix(1500000000, 0)) {
		t.Errorf("root.StartTime = %v, want %v", root.StartTime, time.Unix(1500000000, 0).UTC())
	}
	if !root.Time.IsZero() {
		t.Errorf("root.Time = %v, want zero (no time basis)", root.Time)
	}

	dev := all[1]
	if dev.Basis != "NEPTUNE" || dev.BasisID != 1 || dev.Type != acu.StreamDynamic {
		t.Errorf("All()[1] = %+v, want dynamic child of NEPTUNE", dev)
	}
	if !dev.HasDefaultGroup {
		t.Error("NEPTUNE_DEV.HasDefaultGroup = false, want true")
	}

	rel := all[2]
	if rel.Type != acu.StreamSnapshot || !rel.Hidden {
		t.Errorf("All()[2] = %+v, want hidden snapshot", rel)
	}
	if !rel.Time.Equal(time.Unix(1500007200, 0)) {
		t.Errorf("NEPTUNE_REL.Time = %v, want %v", rel.Time, time.Unix(1500007200, 0).UTC())
	}

	if all[3].Type != acu.StreamWorkspace {
		t.Errorf("All()[3].Type = %q, want %q", all[3].Type, acu.StreamWorkspace)
	}
}

func TestStreams_Lookups(t *testing.T) {
	streams, _ := builtStreams(t)

	s, err := streams.ByName("NEPTUNE_DEV")
	if err != nil {
		t.Fatalf("ByName() error = %v", err)
	}
	if s == nil || s.ID != 2 {
		t.Fatalf("ByName(NEPTUNE_DEV) = %+v, want stream 2", s)
	}

	s, err = streams.ByID(3)
	if err != nil {
		t.Fatalf("ByID() error = %v", err)
	}
	if s == nil || s.Name != "NEPTUNE_REL" {
		t.Fatalf("ByID(3) = %+v, want NEPTUNE_REL", s)
	}

	s, err = streams.ByName("SATURN")
	if err != nil {
		t.Fatalf("ByName() error = %v", err)
	}
	if s != nil {
		t.Errorf("ByName(SATURN) = %+v, want nil", s)
	}
}

func TestStreams_Basis(t *testing.T) {
	streams, _ := builtStreams(t)

	root, _ := streams.ByName("NEPTUNE")
	parent, err := streams.Basis(root)
	if err != nil {
		t.Fatalf("Basis(root) error = %v", err)
	}
	if parent != nil {
		t.Errorf("Basis(root) = %+v, want nil", parent)
	}

	dev, _ := streams.ByName("NEPTUNE_DEV")
	parent, err = streams.Basis(dev)
	if err != nil {
		t.Fatalf("Basis() error = %v", err)
	}
	if parent == nil || parent.Name != "NEPTUNE" {
		t.Fatalf("Basis(NEPTUNE_DEV) = %+v, want NEPTUNE", parent)
	}
}

func TestStreams_Children(t *testing.T) {
	streams, _ := builtStreams(t)
	ctx := context.Background()

	root, _ := streams.ByName("NEPTUNE")
	children, err := streams.Children(ctx, root)
	if err != nil {
		t.Fatalf("Children() error = %v", err)
	}
	if len(children) != 2 {
		t.Fatalf("len(Children(NEPTUNE)) = %d, want 2", len(children))
	}
	if children[0].Name != "NEPTUNE_DEV" || children[1].Name != "NEPTUNE_REL" {
		t.Errorf("Children(NEPTUNE) = [%s %s], want [NEPTUNE_DEV NEPTUNE_REL]",
			children[0].Name, children[1].Name)
	}

	leaf, _ := streams.ByName("NEPTUNE_DEV_alice")
	children, err = streams.Children(ctx, leaf)
	if err != nil {
		t.Fatalf("Children() error = %v", err)
	}
	if len(children) != 0 {
		t.Errorf("len(Children(leaf)) = %d, want 0", len(children))
	}
}

func TestStreams_Children_SingleListing(t *testing.T) {
	streams, runner := builtStreams(t)
	runner.SetMaxDelay(20 * time.Millisecond)
	ctx := context.Background()

	root, _ := streams.ByName("NEPTUNE")

	// Concurrent first callers must coalesce into one adjacency listing.
	const callers = 8
	var wg sync.WaitGroup
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = streams.Children(ctx, root)
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Fatalf("Children() call %d error = %v", i, err)
		}
	}

	// One call for Build, one for the adjacency map.
	if got := runner.Calls("show -fx -a -p NEPTUNE streams"); got != 2 {
		t.Errorf("hierarchy listing ran %d times, want 2", got)
	}

	// Later calls reuse the cached map.
	if _, err := streams.Children(ctx, root); err != nil {
		t.Fatalf("Children() after cache error = %v", err)
	}
	if got := runner.Calls("show -fx -a -p NEPTUNE streams"); got != 2 {
		t.Errorf("hierarchy listing ran %d times after cached call, want 2", got)
	}
}

func TestStreams_Build_UnrecognizedType(t *testing.T) {
	runner := testutil.NewFakeRunner()
	runner.StubXML("show -fx -a -p D streams", `<streams>
  <stream id="1" name="S" depotName="D" type="volatile"/>
</streams>`)

	streams := acu.NewStreams(runner, acu.NewNopLogger(), "D")
	err := streams.Build(context.Background())

	var parseErr *acu.ParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("Build() error = %v, want ParseError", err)
	}
}

func TestStreams_Build_UnknownSentinel(t *testing.T) {
	runner := testutil.NewFakeRunner()
	runner.StubXML("show -fx -a -p D streams", `<streams>
  <stream id="1" name="S" depotName="D" type="unknown"/>
</streams>`)

	streams := acu.NewStreams(runner, acu.NewNopLogger(), "D")
	if err := streams.Build(context.Background()); err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	s, _ := streams.ByID(1)
	if s.Type != acu.StreamUnknown {
		t.Errorf("Type = %q, want %q", s.Type, acu.StreamUnknown)
	}
}

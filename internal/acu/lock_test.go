package acu_test

import (
	"context"
	"errors"
	"testing"

	"acutils-go/internal/acu"
	"acutils-go/internal/testutil"
)

const locksXML = `<AcResponse Command="show locks">
  <Element Name="NEPTUNE_REL" kind="all" comment="release freeze"/>
  <Element Name="NEPTUNE_DEV" kind="to" userType="group" exceptFor="admins"/>
  <Element Name="NEPTUNE_DEV" kind="from" userType="user" onlyFor="buildbot"/>
</AcResponse>`

func builtLocks(t *testing.T) *acu.Locks {
	t.Helper()
	runner := testutil.NewFakeRunner()
	runner.StubXML("show -fx locks", locksXML)

	locks := acu.NewLocks(runner, acu.NewNopLogger())
	if err := locks.Build(context.Background()); err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	return locks
}

func TestLocks_Build(t *testing.T) {
	locks := builtLocks(t)

	all := locks.All()
	if len(all) != 3 {
		t.Fatalf("len(All()) = %d, want 3", len(all))
	}

	if all[0].Kind != acu.LockAll || all[0].Comment != "release freeze" {
		t.Errorf("All()[0] = %+v, want all-lock with comment", all[0])
	}
	if all[0].PrincipalType != "" {
		t.Errorf("All()[0].PrincipalType = %q, want empty (attribute absent)", all[0].PrincipalType)
	}
	if all[1].PrincipalType != acu.PrincipalGroup || all[1].ExceptFor != "admins" {
		t.Errorf("All()[1] = %+v, want group lock excepting admins", all[1])
	}
	if all[2].Kind != acu.LockFrom || all[2].OnlyFor != "buildbot" {
		t.Errorf("All()[2] = %+v, want from-lock only for buildbot", all[2])
	}
}

func TestLocks_For(t *testing.T) {
	locks := builtLocks(t)

	l, err := locks.For("NEPTUNE_DEV", acu.LockTo)
	if err != nil {
		t.Fatalf("For() error = %v", err)
	}
	if l == nil || l.ExceptFor != "admins" {
		t.Fatalf("For(NEPTUNE_DEV, to) = %+v, want the to-lock", l)
	}

	l, err = locks.For("NEPTUNE_REL", acu.LockFrom)
	if err != nil {
		t.Fatalf("For() error = %v", err)
	}
	if l != nil {
		t.Errorf("For(NEPTUNE_REL, from) = %+v, want nil", l)
	}
}

func TestLocks_OnStream(t *testing.T) {
	locks := builtLocks(t)

	on := locks.OnStream("NEPTUNE_DEV")
	if len(on) != 2 {
		t.Fatalf("len(OnStream(NEPTUNE_DEV)) = %d, want 2", len(on))
	}
	if len(locks.OnStream("JUPITER")) != 0 {
		t.Error("OnStream(JUPITER) returned locks, want none")
	}
}

func TestLocks_Build_UnrecognizedKind(t *testing.T) {
	runner := testutil.NewFakeRunner()
	runner.StubXML("show -fx locks", `<AcResponse>
  <Element Name="S" kind="sideways"/>
</AcResponse>`)

	locks := acu.NewLocks(runner, acu.NewNopLogger())
	err := locks.Build(context.Background())

	var parseErr *acu.ParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("Build() error = %v, want ParseError", err)
	}
}

package credential

import (
	"path/filepath"
	"testing"
)

func TestStore_SetUnlock(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(filepath.Join(dir, "keys", "ldap.secret"))

	if store.IsConfigured() {
		t.Fatal("IsConfigured() = true before Set")
	}

	if err := store.Set("correct horse", "s3cret-bind-password"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	if !store.IsConfigured() {
		t.Fatal("IsConfigured() = false after Set")
	}

	got, err := store.Unlock("correct horse")
	if err != nil {
		t.Fatalf("Unlock() error = %v", err)
	}
	if got != "s3cret-bind-password" {
		t.Errorf("Unlock() = %q, want %q", got, "s3cret-bind-password")
	}
}

func TestStore_Unlock_WrongPassphrase(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(filepath.Join(dir, "ldap.secret"))

	if err := store.Set("right", "secret"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	if _, err := store.Unlock("wrong"); err == nil {
		t.Fatal("Unlock() with wrong passphrase expected error")
	}
}

func TestStore_Set_Replaces(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(filepath.Join(dir, "ldap.secret"))

	if err := store.Set("pass", "first"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if err := store.Set("pass", "second"); err != nil {
		t.Fatalf("second Set() error = %v", err)
	}

	got, err := store.Unlock("pass")
	if err != nil {
		t.Fatalf("Unlock() error = %v", err)
	}
	if got != "second" {
		t.Errorf("Unlock() = %q, want %q", got, "second")
	}
}

func TestStore_Unlock_MissingFile(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "missing.secret"))
	if _, err := store.Unlock("pass"); err == nil {
		t.Fatal("Unlock() expected error for missing file")
	}
}

package directory

import (
	"context"
	"testing"
	"time"

	"acutils-go/internal/config"
)

func TestNew(t *testing.T) {
	cfg := config.LDAPConfig{
		URL:    "ldaps://ad.example.com:636",
		BaseDN: "dc=example,dc=com",
		BindDN: "cn=svc-acutil,ou=service,dc=example,dc=com",
	}

	d := New(cfg, "hunter2")
	if d.url != cfg.URL || d.baseDN != cfg.BaseDN || d.bindDN != cfg.BindDN {
		t.Errorf("New() = %+v, want fields from config", d)
	}
	if d.bindPass != "hunter2" {
		t.Errorf("bindPass = %q, want the unlocked secret", d.bindPass)
	}
}

func TestLookup_DialBoundedByDeadline(t *testing.T) {
	// 192.0.2.1 (TEST-NET-1) never answers; the dial must give up at the
	// context deadline instead of hanging for the OS connect timeout.
	d := New(config.LDAPConfig{URL: "ldap://192.0.2.1:389"}, "")

	ctx, cancel := context.WithTimeout(context.Background(), 150*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := d.Lookup(ctx, "alice")
	elapsed := time.Since(start)

	if err == nil {
		t.Fatal("Lookup() error = nil, want dial failure")
	}
	if elapsed > 5*time.Second {
		t.Errorf("Lookup() took %v, want the dial bounded by the deadline", elapsed)
	}
}

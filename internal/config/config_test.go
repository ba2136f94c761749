package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

func TestManager_ReadWrite_RoundTrip(t *testing.T) {
	original := &Config{
		HostID:  "test-host-abc",
		BaseDir: "/home/user/.local/share/acutil",
		LogDir:  "/home/user/.local/share/acutil/log",
		AccuRev: AccuRevConfig{
			Binary:         "/opt/accurev/bin/accurev",
			FanoutLimit:    4,
			TimeoutSeconds: 120,
		},
		Depots: []string{"NEPTUNE", "JUPITER"},
		LDAP: LDAPConfig{
			Enabled: true,
			URL:     "ldaps://ad.example.com:636",
			BaseDN:  "dc=example,dc=com",
			BindDN:  "cn=svc-acutil,ou=service,dc=example,dc=com",
		},
		Credential: CredentialConfig{
			SecretPath: "/home/user/.local/share/acutil/keys/ldap.secret",
		},
		Database: DatabaseConfig{Type: "sqlite", DataDir: "/home/user/.local/share/acutil/db"},
		Sink: SinkConfig{
			Type:     "s3",
			Name:     "reports",
			S3Bucket: "acutil-reports",
			S3Prefix: "inventory/",
			S3Region: "us-east-1",

			S3AccessKeyID:     "AKIATEST",
			S3SecretAccessKey: "secret",
		},
	}

	var buf bytes.Buffer
	m := &Manager{}

	if err := m.Write(&buf, original); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	got, err := m.Read(&buf)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}

	if got.HostID != original.HostID {
		t.Errorf("HostID = %q, want %q", got.HostID, original.HostID)
	}
	if got.BaseDir != original.BaseDir {
		t.Errorf("BaseDir = %q, want %q", got.BaseDir, original.BaseDir)
	}
	if got.AccuRev.Binary != original.AccuRev.Binary {
		t.Errorf("AccuRev.Binary = %q, want %q", got.AccuRev.Binary, original.AccuRev.Binary)
	}
	if got.AccuRev.FanoutLimit != 4 {
		t.Errorf("AccuRev.FanoutLimit = %d, want 4", got.AccuRev.FanoutLimit)
	}
	if len(got.Depots) != 2 {
		t.Fatalf("len(Depots) = %d, want 2", len(got.Depots))
	}
	if got.Depots[0] != "NEPTUNE" {
		t.Errorf("Depots[0] = %q, want %q", got.Depots[0], "NEPTUNE")
	}
	if !got.LDAP.Enabled {
		t.Error("LDAP.Enabled = false, want true")
	}
	if got.LDAP.BindDN != original.LDAP.BindDN {
		t.Errorf("LDAP.BindDN = %q, want %q", got.LDAP.BindDN, original.LDAP.BindDN)
	}
	if got.Credential.SecretPath != original.Credential.SecretPath {
		t.Errorf("Credential.SecretPath = %q, want %q", got.Credential.SecretPath, original.Credential.SecretPath)
	}
	if got.Database.Type != "sqlite" {
		t.Errorf("Database.Type = %q, want %q", got.Database.Type, "sqlite")
	}
	if got.Sink.Type != "s3" {
		t.Errorf("Sink.Type = %q, want %q", got.Sink.Type, "s3")
	}
	if got.Sink.S3Bucket != "acutil-reports" {
		t.Errorf("Sink.S3Bucket = %q, want %q", got.Sink.S3Bucket, "acutil-reports")
	}
	if got.Sink.S3AccessKeyID != "AKIATEST" {
		t.Errorf("Sink.S3AccessKeyID = %q, want %q", got.Sink.S3AccessKeyID, "AKIATEST")
	}
}

func TestNewConfig(t *testing.T) {
	cfg := NewConfig("host-1", "/data/acutil")

	if cfg.HostID != "host-1" {
		t.Errorf("HostID = %q, want %q", cfg.HostID, "host-1")
	}
	if cfg.BaseDir != "/data/acutil" {
		t.Errorf("BaseDir = %q, want %q", cfg.BaseDir, "/data/acutil")
	}
	if cfg.LogDir != "/data/acutil/log" {
		t.Errorf("LogDir = %q, want %q", cfg.LogDir, "/data/acutil/log")
	}
	if cfg.AccuRev.Binary != "accurev" {
		t.Errorf("AccuRev.Binary = %q, want %q", cfg.AccuRev.Binary, "accurev")
	}
	if cfg.Credential.SecretPath != "/data/acutil/keys/ldap.secret" {
		t.Errorf("Credential.SecretPath = %q, want %q", cfg.Credential.SecretPath, "/data/acutil/keys/ldap.secret")
	}
	if cfg.Database.Type != "sqlite" {
		t.Errorf("Database.Type = %q, want %q", cfg.Database.Type, "sqlite")
	}
	if cfg.Sink.Type != "filesystem" {
		t.Errorf("Sink.Type = %q, want %q", cfg.Sink.Type, "filesystem")
	}
}

func TestInit(t *testing.T) {
	t.Run("creates config file", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "acutil.toml")
		cfg := NewConfig("h1", dir)

		if err := Init(path, cfg); err != nil {
			t.Fatalf("Init() error = %v", err)
		}

		if _, err := os.Stat(path); err != nil {
			t.Fatalf("config file not created: %v", err)
		}
	})

	t.Run("fails if file already exists", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "acutil.toml")
		cfg := NewConfig("h1", dir)

		if err := Init(path, cfg); err != nil {
			t.Fatalf("first Init() error = %v", err)
		}

		err := Init(path, cfg)
		if err == nil {
			t.Fatal("second Init() expected error")
		}
	})
}

func TestReadFromFile(t *testing.T) {
	t.Run("reads valid config", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "acutil.toml")
		cfg := NewConfig("read-test", dir)
		cfg.Database = DatabaseConfig{Type: "memory"}

		if err := Init(path, cfg); err != nil {
			t.Fatalf("Init() error = %v", err)
		}

		got, err := ReadFromFile(path)
		if err != nil {
			t.Fatalf("ReadFromFile() error = %v", err)
		}
		if got.HostID != "read-test" {
			t.Errorf("HostID = %q, want %q", got.HostID, "read-test")
		}
	})

	t.Run("returns error for missing file", func(t *testing.T) {
		_, err := ReadFromFile("/nonexistent/path/acutil.toml")
		if err == nil {
			t.Fatal("ReadFromFile() expected error for missing file")
		}
	})
}

package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config represents the main configuration for acutil.
type Config struct {
	HostID     string           `toml:"host_id"`
	BaseDir    string           `toml:"base_dir"`
	LogDir     string           `toml:"log_dir"`
	AccuRev    AccuRevConfig    `toml:"accurev"`
	Depots     []string         `toml:"depots"` // narrows query scope; empty means all
	Users      []string         `toml:"users"`  // narrows query scope; empty means all
	LDAP       LDAPConfig       `toml:"ldap"`
	Credential CredentialConfig `toml:"credential"`
	Database   DatabaseConfig   `toml:"database"`
	Sink       SinkConfig       `toml:"sink"`
}

// AccuRevConfig holds settings for invoking the AccuRev client.
type AccuRevConfig struct {
	Binary         string `toml:"binary"`          // path to the accurev executable; "" resolves on PATH
	FanoutLimit    int    `toml:"fanout_limit"`    // max concurrent processes in multi-command builds; 0 = default, <0 = unbounded
	TimeoutSeconds int    `toml:"timeout_seconds"` // per-command deadline; 0 = none
}

// LDAPConfig holds connection parameters for the identity directory used
// to enrich user records.
type LDAPConfig struct {
	Enabled bool   `toml:"enabled"`
	URL     string `toml:"url"` // e.g. ldaps://ad.example.com:636
	BaseDN  string `toml:"base_dn"`
	BindDN  string `toml:"bind_dn"`
}

// CredentialConfig holds the path of the age-encrypted secret used to
// bind to the directory.
type CredentialConfig struct {
	SecretPath string `toml:"secret_path"`
}

// DatabaseConfig represents configuration for the inventory snapshot
// database. This uses a tagged union pattern - the Type field determines
// which other fields are relevant.
type DatabaseConfig struct {
	Type    string `toml:"type"`               // "sqlite" or "memory"
	DataDir string `toml:"data_dir,omitempty"` // only used for type=sqlite
}

// SinkConfig represents configuration for the report sink backend.
// This uses a tagged union pattern - the Type field determines which other
// fields are relevant.
type SinkConfig struct {
	Type string `toml:"type"` // "memory", "s3", or "filesystem"
	Name string `toml:"name"`

	// S3-specific fields (only used when Type == "s3")
	S3Bucket string `toml:"s3_bucket,omitempty"`
	S3Prefix string `toml:"s3_prefix,omitempty"`
	S3Region string `toml:"s3_region,omitempty"`

	// Static credentials for the bucket. When unset the default AWS
	// credential chain is used instead.
	S3AccessKeyID     string `toml:"s3_access_key_id,omitempty"`
	S3SecretAccessKey string `toml:"s3_secret_access_key,omitempty"`

	// FileSystem-specific fields (only used when Type == "filesystem")
	FSRoot string `toml:"fs_root,omitempty"`
}

// NewConfig creates a new Config with the provided values and default
// paths under baseDir.
func NewConfig(hostID, baseDir string) *Config {
	return &Config{
		HostID:  hostID,
		BaseDir: baseDir,
		LogDir:  filepath.Join(baseDir, "log"),
		AccuRev: AccuRevConfig{
			Binary: "accurev",
		},
		Credential: CredentialConfig{
			SecretPath: filepath.Join(baseDir, "keys", "ldap.secret"),
		},
		Database: DatabaseConfig{
			Type:    "sqlite",
			DataDir: filepath.Join(baseDir, "db"),
		},
		Sink: SinkConfig{
			Type:   "filesystem",
			Name:   "reports",
			FSRoot: filepath.Join(baseDir, "reports"),
		},
	}
}

// Manager handles reading and writing configuration.
type Manager struct{}

// Read decodes a Config from the provided reader.
func (m *Manager) Read(r io.Reader) (*Config, error) {
	var cfg Config
	if _, err := toml.NewDecoder(r).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return &cfg, nil
}

// Write encodes a Config to the provided writer.
func (m *Manager) Write(w io.Writer, cfg *Config) error {
	if err := toml.NewEncoder(w).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// ReadFromFile reads a Config from the specified file path.
func ReadFromFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	cfg, err := m.Read(f)
	if err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}
	return cfg, nil
}

// writeToFile writes a Config to the specified file path.
func writeToFile(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	if err := m.Write(f, cfg); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// Init initializes a new config file at the specified path with the
// provided Config. Fails if a config file already exists there.
func Init(path string, cfg *Config) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := writeToFile(path, cfg); err != nil {
		return fmt.Errorf("initializing config: %w", err)
	}
	return nil
}

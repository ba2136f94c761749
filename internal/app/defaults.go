package app

import (
	"fmt"
	"os"
	"path/filepath"
)

// GetDefaults returns application default paths, checking environment
// variables first. Environment variables:
//   - ACUTIL_CONFIG_PATH: config file location (default: ~/.config/acutil.toml)
//   - ACUTIL_HOME: base directory for acutil data (default: ~/.local/share/acutil)
func GetDefaults() (map[string]string, error) {
	configPath, err := getConfigPath()
	if err != nil {
		return nil, err
	}

	baseDir, err := getBaseDir()
	if err != nil {
		return nil, err
	}

	return map[string]string{
		"config_path": configPath,
		"base_dir":    baseDir,
		"log_dir":     filepath.Join(baseDir, "log"),
	}, nil
}

// getConfigPath returns the config file path, checking ACUTIL_CONFIG_PATH
// first, then falling back to the default ~/.config/acutil.toml.
func getConfigPath() (string, error) {
	if path := os.Getenv("ACUTIL_CONFIG_PATH"); path != "" {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(homeDir, ".config", "acutil.toml"), nil
}

// getBaseDir returns the base directory for acutil data, checking
// ACUTIL_HOME first, then falling back to the XDG default
// ~/.local/share/acutil.
func getBaseDir() (string, error) {
	if path := os.Getenv("ACUTIL_HOME"); path != "" {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(homeDir, ".local", "share", "acutil"), nil
}

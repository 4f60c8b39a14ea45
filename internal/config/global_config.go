package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/hugo-lorenzo-mato/compound/internal/fsutil"
)

// UserConfigPath returns the per-user configuration file, which sits below
// every repository config in precedence.
func UserConfigPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(homeDir, ".config", "compound", "config.yaml"), nil
}

// EnsureConfigFile creates path with DefaultConfigYAML unless it already
// exists. It reports whether the file was created.
func EnsureConfigFile(path string) (bool, error) {
	if _, statErr := os.Stat(path); statErr == nil {
		return false, nil
	} else if !os.IsNotExist(statErr) {
		return false, fmt.Errorf("checking config: %w", statErr)
	}

	if err := fsutil.WriteFileAtomic(path, []byte(DefaultConfigYAML), 0o600); err != nil {
		return false, fmt.Errorf("creating config: %w", err)
	}
	return true, nil
}

package config

import (
	"os"
	"path/filepath"
)

// DefaultHomeDir returns ~/.graphask, or a directory under the temp dir when
// the user home cannot be determined.
func DefaultHomeDir() string {
	userHome, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".graphask")
	}
	return filepath.Join(userHome, ".graphask")
}

// DefaultConfigPath returns the default config file path for a given home directory
func DefaultConfigPath(homeDir string) string {
	return filepath.Join(homeDir, "config.yaml")
}

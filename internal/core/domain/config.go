package domain

import (
	"os"
	"path/filepath"
)

// ConfigFileName is the default configuration file name in the user's home directory.
const ConfigFileName = ".onsub.yaml"

// DirPerm is the permission used when creating directories.
const DirPerm = 0o750

// Config is the loaded configuration artifact.
type Config struct {
	Path     string
	Profiles *Registry
	Colors   map[string]string
	Settings map[string]any
}

// HomeDir returns the invoking user's home directory from HOME, falling back to USERPROFILE.
func HomeDir() string {
	if home := os.Getenv("HOME"); home != "" {
		return home
	}
	return os.Getenv("USERPROFILE")
}

// DefaultConfigPath returns the default configuration file location.
func DefaultConfigPath() string {
	return filepath.Join(HomeDir(), ConfigFileName)
}

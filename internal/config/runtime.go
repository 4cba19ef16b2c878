package config

import (
	"os"
	"path/filepath"
)

// GetRuntimePath resolves the runtime directory before the env file is
// loaded, so it reads the variable directly.
func GetRuntimePath() string {
	path := os.Getenv("RECALL_RUNTIME_PATH")
	if path == "" {
		path = ".recall"
	}

	if !filepath.IsAbs(path) {
		home, _ := os.UserHomeDir()
		path = filepath.Join(home, path)
	}
	return path
}

package security

import (
	"os"
	"path/filepath"
	"strings"
)

// ExpandHomePath expands a leading ~, ~/ or ~\ to the user's home directory.
func ExpandHomePath(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") && !strings.HasPrefix(path, `~\`) {
		return path
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	if path == "~" {
		return homeDir
	}
	return filepath.Join(homeDir, path[2:])
}

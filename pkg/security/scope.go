package security

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// ErrOutsideScope is returned when a path is not under any allowed directory
// or matches a deny pattern.
var ErrOutsideScope = errors.New("path outside allowed scope")

// Scope restricts which paths may be queried.
type Scope struct {
	allowedDirectories []string
	denyPatterns       []string
	logger             *slog.Logger
}

// NewScope creates a scope. An empty allowedDirs list permits every path that
// does not match a deny pattern. Deny patterns are doublestar globs matched
// against the slash-separated absolute path.
func NewScope(allowedDirs, denyPatterns []string, logger *slog.Logger) (*Scope, error) {
	dirs := make([]string, 0, len(allowedDirs))
	for _, dir := range allowedDirs {
		abs, err := filepath.Abs(ExpandHomePath(dir))
		if err != nil {
			return nil, fmt.Errorf("failed to get absolute path for %s: %w", dir, err)
		}
		if real, err := filepath.EvalSymlinks(abs); err == nil {
			abs = real
		}
		dirs = append(dirs, filepath.Clean(abs))
	}

	for _, p := range denyPatterns {
		if !doublestar.ValidatePattern(p) {
			return nil, fmt.Errorf("invalid deny pattern: %q", p)
		}
	}

	return &Scope{
		allowedDirectories: dirs,
		denyPatterns:       append([]string(nil), denyPatterns...),
		logger:             logger,
	}, nil
}

// Check returns the absolute, symlink-resolved form of requestedPath if it is
// inside the scope. A path that does not exist is checked in its absolute
// form; the query itself reports the missing file.
func (s *Scope) Check(requestedPath string) (string, error) {
	if requestedPath == "" {
		return "", fmt.Errorf("path cannot be empty")
	}

	absolutePath, err := filepath.Abs(ExpandHomePath(requestedPath))
	if err != nil {
		return "", fmt.Errorf("failed to get absolute path: %w", err)
	}

	if err := s.admit(absolutePath); err != nil {
		s.logger.Warn("Path rejected", "requested_path", requestedPath, "absolute_path", absolutePath, "error", err)
		return "", err
	}

	realPath, err := filepath.EvalSymlinks(absolutePath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return absolutePath, nil
		}
		return "", fmt.Errorf("failed to resolve %s: %w", absolutePath, err)
	}

	if err := s.admit(realPath); err != nil {
		s.logger.Warn("Symlink target rejected", "requested_path", requestedPath, "real_path", realPath, "error", err)
		return "", err
	}

	s.logger.Debug("Path admitted", "requested_path", requestedPath, "real_path", realPath)
	return realPath, nil
}

func (s *Scope) admit(absolutePath string) error {
	if !s.isAllowed(absolutePath) {
		return fmt.Errorf("%w: %s", ErrOutsideScope, absolutePath)
	}
	if pattern, ok := s.denied(absolutePath); ok {
		return fmt.Errorf("%w: %s matches deny pattern %q", ErrOutsideScope, absolutePath, pattern)
	}
	return nil
}

func (s *Scope) isAllowed(absolutePath string) bool {
	if len(s.allowedDirectories) == 0 {
		return true
	}
	for _, dir := range s.allowedDirectories {
		if isPathUnderDirectory(absolutePath, dir) {
			return true
		}
	}
	return false
}

func (s *Scope) denied(absolutePath string) (string, bool) {
	slashed := filepath.ToSlash(absolutePath)
	relative := strings.TrimPrefix(slashed, "/")
	for _, pattern := range s.denyPatterns {
		if ok, err := doublestar.Match(pattern, slashed); err == nil && ok {
			return pattern, true
		}
		if ok, err := doublestar.Match(pattern, relative); err == nil && ok {
			return pattern, true
		}
	}
	return "", false
}

// isPathUnderDirectory reports whether path equals dir or lies beneath it.
func isPathUnderDirectory(path, dir string) bool {
	sep := string(filepath.Separator)
	if !strings.HasSuffix(dir, sep) {
		dir += sep
	}
	if !strings.HasSuffix(path, sep) {
		path += sep
	}
	return strings.HasPrefix(path, dir)
}

// AllowedDirectories returns a copy of the allowed directories.
func (s *Scope) AllowedDirectories() []string {
	dirs := make([]string, len(s.allowedDirectories))
	copy(dirs, s.allowedDirectories)
	return dirs
}

// Restricted reports whether the scope limits paths to allowed directories.
func (s *Scope) Restricted() bool {
	return len(s.allowedDirectories) > 0
}

// ValidateDirectories checks that every directory exists and is a directory.
func ValidateDirectories(dirs []string) error {
	for _, dir := range dirs {
		info, err := os.Stat(ExpandHomePath(dir))
		if err != nil {
			return fmt.Errorf("directory %s is not accessible: %w", dir, err)
		}
		if !info.IsDir() {
			return fmt.Errorf("path %s is not a directory", dir)
		}
	}
	return nil
}

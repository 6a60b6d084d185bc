package security

import (
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

func newScope(t *testing.T, deny ...string) (*Scope, string) {
	t.Helper()
	base := t.TempDir()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s, err := NewScope([]string{base}, deny, logger)
	if err != nil {
		t.Fatalf("new scope: %v", err)
	}
	return s, s.AllowedDirectories()[0]
}

func TestCheckWithinAllowed(t *testing.T) {
	s, base := newScope(t)
	file := filepath.Join(base, "file.txt")
	if err := os.WriteFile(file, []byte("x"), 0644); err != nil {
		t.Fatalf("prep file: %v", err)
	}

	p, err := s.Check(file)
	if err != nil {
		t.Fatalf("check error: %v", err)
	}
	if !filepath.IsAbs(p) {
		t.Fatalf("expected absolute path, got: %s", p)
	}
}

func TestCheckMissingFileInsideScope(t *testing.T) {
	s, base := newScope(t)
	missing := filepath.Join(base, "nope.txt")

	p, err := s.Check(missing)
	if err != nil {
		t.Fatalf("check error: %v", err)
	}
	if p != missing {
		t.Fatalf("expected %s got %s", missing, p)
	}
}

func TestCheckOutsideAllowed(t *testing.T) {
	s, _ := newScope(t)
	outside := filepath.Join(t.TempDir(), "outside.txt")
	_, err := s.Check(outside)
	if !errors.Is(err, ErrOutsideScope) {
		t.Fatalf("expected ErrOutsideScope, got %v", err)
	}
}

func TestCheckEmpty(t *testing.T) {
	s, _ := newScope(t)
	if _, err := s.Check(""); err == nil {
		t.Fatalf("expected error for empty path")
	}
}

func TestCheckDenyPattern(t *testing.T) {
	s, base := newScope(t, "**/.git/**", "**/*.key")
	gitDir := filepath.Join(base, ".git")
	if err := os.Mkdir(gitDir, 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	if _, err := s.Check(filepath.Join(gitDir, "HEAD")); !errors.Is(err, ErrOutsideScope) {
		t.Fatalf("expected .git content denied, got %v", err)
	}
	if _, err := s.Check(filepath.Join(base, "server.key")); !errors.Is(err, ErrOutsideScope) {
		t.Fatalf("expected *.key denied, got %v", err)
	}
	if _, err := s.Check(filepath.Join(base, "server.crt")); err != nil {
		t.Fatalf("expected crt admitted, got %v", err)
	}
}

func TestNewScopeInvalidPattern(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	if _, err := NewScope(nil, []string{"[unclosed"}, logger); err == nil {
		t.Fatalf("expected error for invalid pattern")
	}
}

func TestUnrestrictedScope(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s, err := NewScope(nil, nil, logger)
	if err != nil {
		t.Fatalf("new scope: %v", err)
	}
	if s.Restricted() {
		t.Fatalf("expected unrestricted scope")
	}
	if _, err := s.Check(t.TempDir()); err != nil {
		t.Fatalf("unrestricted check: %v", err)
	}
}

func TestCheckSymlinkOutside(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlinks need privileges on windows")
	}
	s, base := newScope(t)
	target := filepath.Join(t.TempDir(), "target.txt")
	if err := os.WriteFile(target, []byte("x"), 0644); err != nil {
		t.Fatalf("prep target: %v", err)
	}
	link := filepath.Join(base, "link.txt")
	if err := os.Symlink(target, link); err != nil {
		t.Fatalf("symlink: %v", err)
	}

	if _, err := s.Check(link); !errors.Is(err, ErrOutsideScope) {
		t.Fatalf("expected error for outside symlink, got %v", err)
	}
}

func TestExpandHomePath(t *testing.T) {
	home, _ := os.UserHomeDir()
	if got := ExpandHomePath("~"); got != home {
		t.Fatalf("expected %s got %s", home, got)
	}
	if got := ExpandHomePath("~/sub"); got != filepath.Join(home, "sub") {
		t.Fatalf("expected joined path, got %s", got)
	}
	if got := ExpandHomePath("/abs/~"); got != "/abs/~" {
		t.Fatalf("expected untouched path, got %s", got)
	}
}

func TestAllowedDirectoriesCopy(t *testing.T) {
	s, base := newScope(t)
	dirs := s.AllowedDirectories()
	if len(dirs) != 1 || dirs[0] != base {
		t.Fatalf("unexpected dirs: %v", dirs)
	}
	dirs[0] = "changed"
	if s.AllowedDirectories()[0] != base {
		t.Fatalf("internal slice modified")
	}
}

func TestValidateDirectories(t *testing.T) {
	base := t.TempDir()
	file := filepath.Join(base, "f.txt")
	if err := os.WriteFile(file, []byte("x"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := ValidateDirectories([]string{base}); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if err := ValidateDirectories([]string{file}); err == nil {
		t.Fatalf("expected error for file")
	}
	if err := ValidateDirectories([]string{filepath.Join(base, "missing")}); err == nil {
		t.Fatalf("expected error for missing dir")
	}
}

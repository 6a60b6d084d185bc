// Package snapshot records the MACE timestamps of a set of paths at one point
// in time and compares such records.
package snapshot

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/google/uuid"

	"macesnap/pkg/ntfileinfo"
	"macesnap/pkg/security"
)

// Querier reads the basic information of one path.
type Querier func(path string) (*ntfileinfo.Record, error)

// Entry is one path's timestamps in a snapshot, in MACE order.
type Entry struct {
	Path           string    `json:"path" yaml:"path"`
	Modified       time.Time `json:"modified,omitzero" yaml:"modified,omitempty"`
	Accessed       time.Time `json:"accessed,omitzero" yaml:"accessed,omitempty"`
	Created        time.Time `json:"created,omitzero" yaml:"created,omitempty"`
	Changed        time.Time `json:"changed,omitzero" yaml:"changed,omitempty"`
	Attributes     uint32    `json:"attributes" yaml:"attributes"`
	AttributeNames []string  `json:"attributeNames,omitempty" yaml:"attribute_names,omitempty"`
	Error          string    `json:"error,omitempty" yaml:"error,omitempty"`
}

// FromRecord builds an Entry from a query result.
func FromRecord(rec *ntfileinfo.Record) Entry {
	return Entry{
		Path:           rec.Path,
		Modified:       rec.LastWriteTime,
		Accessed:       rec.LastAccessTime,
		Created:        rec.CreationTime,
		Changed:        rec.ChangeTime,
		Attributes:     uint32(rec.Attributes),
		AttributeNames: rec.Attributes.Names(),
	}
}

// Document is a set of entries taken together.
type Document struct {
	ID       string    `json:"id" yaml:"id"`
	Host     string    `json:"host,omitempty" yaml:"host,omitempty"`
	TakenAt  time.Time `json:"takenAt" yaml:"taken_at"`
	Patterns []string  `json:"patterns,omitempty" yaml:"patterns,omitempty"`
	Entries  []Entry   `json:"entries" yaml:"entries"`
}

// Failed returns the number of entries that could not be queried.
func (d *Document) Failed() int {
	n := 0
	for _, e := range d.Entries {
		if e.Error != "" {
			n++
		}
	}
	return n
}

// Targets returns what to query again to compare against d: the original
// patterns, so new matches show up as added, or else the entry paths.
func (d *Document) Targets() []string {
	if len(d.Patterns) > 0 {
		return append([]string(nil), d.Patterns...)
	}
	paths := make([]string, 0, len(d.Entries))
	for _, e := range d.Entries {
		paths = append(paths, e.Path)
	}
	return paths
}

// Snapshotter queries paths, optionally restricted to a scope.
type Snapshotter struct {
	query  Querier
	scope  *security.Scope
	logger *slog.Logger
	now    func() time.Time
	newID  func() string
}

// Option configures a Snapshotter.
type Option func(*Snapshotter)

// WithQuerier replaces the basic information query.
func WithQuerier(q Querier) Option {
	return func(s *Snapshotter) { s.query = q }
}

// WithScope rejects paths outside scope before they are queried.
func WithScope(scope *security.Scope) Option {
	return func(s *Snapshotter) { s.scope = scope }
}

// WithClock sets the time source used for TakenAt.
func WithClock(now func() time.Time) Option {
	return func(s *Snapshotter) { s.now = now }
}

// WithIDGenerator sets the snapshot ID source.
func WithIDGenerator(newID func() string) Option {
	return func(s *Snapshotter) { s.newID = newID }
}

// New creates a Snapshotter backed by ntfileinfo.QueryBasicTimestamps.
func New(logger *slog.Logger, opts ...Option) *Snapshotter {
	s := &Snapshotter{
		query:  ntfileinfo.QueryBasicTimestamps,
		logger: logger,
		now:    time.Now,
		newID:  func() string { return uuid.New().String() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Query reads one path. With a scope, the admitted absolute path is queried;
// otherwise path is passed through verbatim.
func (s *Snapshotter) Query(path string) (*ntfileinfo.Record, error) {
	target := path
	if s.scope != nil {
		admitted, err := s.scope.Check(path)
		if err != nil {
			return nil, err
		}
		target = admitted
	}

	s.logger.Debug("Querying basic information", "path", target)
	rec, err := s.query(target)
	if err != nil {
		s.logger.Debug("Query failed", "path", target, "error", err)
		return nil, err
	}
	return rec, nil
}

// Admit reports whether path passes the scope. Without a scope every path
// is admitted.
func (s *Snapshotter) Admit(path string) error {
	if s.scope == nil {
		return nil
	}
	_, err := s.scope.Check(path)
	return err
}

// Expand turns patterns into paths. Patterns without glob metacharacters
// are kept verbatim; globs are expanded with doublestar and sorted. The
// result has no duplicates and keeps first-seen order.
func (s *Snapshotter) Expand(patterns []string) ([]string, error) {
	seen := make(map[string]bool)
	var paths []string
	add := func(p string) {
		if !seen[p] {
			seen[p] = true
			paths = append(paths, p)
		}
	}

	for _, pattern := range patterns {
		if !hasMeta(pattern) {
			add(pattern)
			continue
		}

		expanded := security.ExpandHomePath(pattern)
		if s.scope != nil {
			// the walk itself must not list directories outside the scope
			base, _ := doublestar.SplitPattern(filepath.ToSlash(expanded))
			if _, err := s.scope.Check(filepath.FromSlash(base)); err != nil {
				return nil, fmt.Errorf("pattern %q: %w", pattern, err)
			}
		}

		matches, err := doublestar.FilepathGlob(expanded)
		if err != nil {
			return nil, fmt.Errorf("failed to expand pattern %q: %w", pattern, err)
		}
		if len(matches) == 0 {
			s.logger.Warn("Pattern matched nothing", "pattern", pattern)
		}
		sort.Strings(matches)
		for _, m := range matches {
			add(m)
		}
	}

	return paths, nil
}

func hasMeta(pattern string) bool {
	return strings.ContainsAny(pattern, "*?[{")
}

// Take expands patterns and queries every resulting path. A path that fails
// is recorded with its error; the snapshot continues.
func (s *Snapshotter) Take(ctx context.Context, patterns []string) (*Document, error) {
	if len(patterns) == 0 {
		return nil, fmt.Errorf("no paths provided")
	}

	paths, err := s.Expand(patterns)
	if err != nil {
		return nil, err
	}

	host, _ := os.Hostname()
	doc := &Document{
		ID:       s.newID(),
		Host:     host,
		TakenAt:  s.now().UTC(),
		Patterns: append([]string(nil), patterns...),
		Entries:  make([]Entry, 0, len(paths)),
	}

	for _, p := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		rec, err := s.Query(p)
		if err != nil {
			s.logger.Warn("Failed to query path in snapshot", "path", p, "error", err)
			doc.Entries = append(doc.Entries, Entry{Path: p, Error: err.Error()})
			continue
		}
		doc.Entries = append(doc.Entries, FromRecord(rec))
	}

	s.logger.Info("Snapshot taken", "id", doc.ID, "entries", len(doc.Entries), "failed", doc.Failed())
	return doc, nil
}

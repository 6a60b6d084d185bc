package snapshot

import (
	"fmt"
	"time"
)

// ChangeKind classifies a difference between two snapshots.
type ChangeKind string

const (
	Added    ChangeKind = "added"
	Removed  ChangeKind = "removed"
	Modified ChangeKind = "modified"
)

// FieldChange is one differing field of an entry.
type FieldChange struct {
	Field  string `json:"field" yaml:"field"`
	Before string `json:"before" yaml:"before"`
	After  string `json:"after" yaml:"after"`
}

// Change describes how one path differs between two snapshots.
type Change struct {
	Path   string        `json:"path" yaml:"path"`
	Kind   ChangeKind    `json:"kind" yaml:"kind"`
	Fields []FieldChange `json:"fields,omitempty" yaml:"fields,omitempty"`
}

// Compare lists the paths whose entries differ between before and after.
// Removed and modified paths come first in before's order, then added
// paths in after's order.
func Compare(before, after *Document) []Change {
	next := make(map[string]Entry, len(after.Entries))
	for _, e := range after.Entries {
		next[e.Path] = e
	}
	prev := make(map[string]bool, len(before.Entries))

	var changes []Change
	for _, old := range before.Entries {
		prev[old.Path] = true
		cur, ok := next[old.Path]
		if !ok {
			changes = append(changes, Change{Path: old.Path, Kind: Removed})
			continue
		}
		if fields := diffEntries(old, cur); len(fields) > 0 {
			changes = append(changes, Change{Path: old.Path, Kind: Modified, Fields: fields})
		}
	}

	for _, cur := range after.Entries {
		if !prev[cur.Path] {
			changes = append(changes, Change{Path: cur.Path, Kind: Added})
		}
	}

	return changes
}

func diffEntries(a, b Entry) []FieldChange {
	var fields []FieldChange
	times := []struct {
		name string
		a, b time.Time
	}{
		{"modified", a.Modified, b.Modified},
		{"accessed", a.Accessed, b.Accessed},
		{"created", a.Created, b.Created},
		{"changed", a.Changed, b.Changed},
	}
	for _, t := range times {
		if !t.a.Equal(t.b) {
			fields = append(fields, FieldChange{Field: t.name, Before: formatTime(t.a), After: formatTime(t.b)})
		}
	}
	if a.Attributes != b.Attributes {
		fields = append(fields, FieldChange{
			Field:  "attributes",
			Before: fmt.Sprintf("0x%08X", a.Attributes),
			After:  fmt.Sprintf("0x%08X", b.Attributes),
		})
	}
	if a.Error != b.Error {
		fields = append(fields, FieldChange{Field: "error", Before: a.Error, After: b.Error})
	}
	return fields
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

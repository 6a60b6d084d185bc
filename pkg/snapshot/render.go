package snapshot

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/sergi/go-diff/diffmatchpatch"

	"macesnap/pkg/ntfileinfo"
)

// TimeFormat controls how times are printed.
type TimeFormat struct {
	Layout   string
	Location *time.Location
}

// Format renders t in the configured layout and location, "-" for the zero time.
func (f TimeFormat) Format(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	if f.Location != nil {
		t = t.In(f.Location)
	}
	layout := f.Layout
	if layout == "" {
		layout = time.RFC3339Nano
	}
	return t.Format(layout)
}

// WriteText prints entries as an aligned table.
func WriteText(w io.Writer, entries []Entry, tf TimeFormat) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "PATH\tMODIFIED\tACCESSED\tCREATED\tCHANGED\tATTRIBUTES")
	for _, e := range entries {
		if e.Error != "" {
			fmt.Fprintf(tw, "%s\terror: %s\t\t\t\t\n", e.Path, e.Error)
			continue
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			e.Path,
			tf.Format(e.Modified),
			tf.Format(e.Accessed),
			tf.Format(e.Created),
			tf.Format(e.Changed),
			ntfileinfo.FileAttributes(e.Attributes))
	}
	return tw.Flush()
}

// renderLines prints one line per entry field, for line diffing.
func renderLines(doc *Document, tf TimeFormat) string {
	var b strings.Builder
	for _, e := range doc.Entries {
		if e.Error != "" {
			fmt.Fprintf(&b, "%s error=%s\n", e.Path, e.Error)
			continue
		}
		fmt.Fprintf(&b, "%s modified=%s\n", e.Path, tf.Format(e.Modified))
		fmt.Fprintf(&b, "%s accessed=%s\n", e.Path, tf.Format(e.Accessed))
		fmt.Fprintf(&b, "%s created=%s\n", e.Path, tf.Format(e.Created))
		fmt.Fprintf(&b, "%s changed=%s\n", e.Path, tf.Format(e.Changed))
		fmt.Fprintf(&b, "%s attributes=%s\n", e.Path, ntfileinfo.FileAttributes(e.Attributes))
	}
	return b.String()
}

// RenderDiff returns a line diff of two snapshots with -, + and space
// prefixes. Identical snapshots render as an empty string.
func RenderDiff(before, after *Document, tf TimeFormat) string {
	textA := renderLines(before, tf)
	textB := renderLines(after, tf)
	if textA == textB {
		return ""
	}

	dmp := diffmatchpatch.New()
	a, b, lines := dmp.DiffLinesToChars(textA, textB)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(a, b, false), lines)

	var out strings.Builder
	fmt.Fprintf(&out, "--- %s %s\n", before.ID, tf.Format(before.TakenAt))
	fmt.Fprintf(&out, "+++ %s %s\n", after.ID, tf.Format(after.TakenAt))
	for _, d := range diffs {
		prefix := " "
		switch d.Type {
		case diffmatchpatch.DiffDelete:
			prefix = "-"
		case diffmatchpatch.DiffInsert:
			prefix = "+"
		}
		for _, line := range strings.SplitAfter(d.Text, "\n") {
			if line == "" {
				continue
			}
			out.WriteString(prefix)
			out.WriteString(line)
		}
	}
	return out.String()
}

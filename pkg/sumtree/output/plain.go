package output

import (
	"bytes"
	"fmt"
	"time"

	"github.com/jamesainslie/sumtree/pkg/sumtree/diff"
	"github.com/jamesainslie/sumtree/pkg/sumtree/types"
)

// PlainFormatter writes uncolored text suitable for pipes and logs.
// Digests from `hash` are written in md5sum layout so the output can be
// used as a manifest.
type PlainFormatter struct{}

// Format writes the formatted report to the buffer.
func (f *PlainFormatter) Format(w *bytes.Buffer, r *Report) error {
	for _, d := range r.Digests {
		if d.Error != "" {
			fmt.Fprintf(w, "%s: %s\n", d.Path, d.Error)
			continue
		}
		fmt.Fprintf(w, "%s  %s\n", d.Digest, d.Path)
	}

	for _, s := range r.Sessions {
		f.writeSession(w, r.Operation, s)
	}

	if r.Diff != nil {
		f.writeDiff(w, r.Diff)
	}

	if r.Patch != "" {
		w.WriteString(r.Patch)
	}

	for _, warning := range r.Warnings {
		fmt.Fprintf(w, "warning: %s\n", warning)
	}
	return nil
}

func (f *PlainFormatter) writeSession(w *bytes.Buffer, op string, s Session) {
	fmt.Fprintf(w, "%s %s: %s (%d files, %s, %s, %s) in %s\n",
		op, s.Root, s.Outcome, s.Files, types.FormatSize(s.Bytes),
		s.Algorithm, s.Format, formatDuration(s.Elapsed))

	if s.Reason != "" {
		fmt.Fprintf(w, "  %s", s.Reason)
		if s.Line > 0 {
			fmt.Fprintf(w, " at line %d", s.Line)
		}
		if s.Path != "" {
			fmt.Fprintf(w, " (%s)", s.Path)
		}
		w.WriteString("\n")
		if s.Expected != "" || s.Actual != "" {
			fmt.Fprintf(w, "    expected: %s\n", s.Expected)
			fmt.Fprintf(w, "    actual:   %s\n", s.Actual)
		}
	}
	if s.Error != "" {
		fmt.Fprintf(w, "  error: %s\n", s.Error)
	}
}

func (f *PlainFormatter) writeDiff(w *bytes.Buffer, d *diff.Summary) {
	if d.AlgorithmMismatch {
		w.WriteString("algorithms differ; digests are not comparable\n")
	}
	for _, p := range d.Added {
		fmt.Fprintf(w, "+ %s\n", p)
	}
	for _, p := range d.Removed {
		fmt.Fprintf(w, "- %s\n", p)
	}
	for _, c := range d.Changed {
		fmt.Fprintf(w, "~ %s %s -> %s\n", c.Path, c.Old, c.New)
	}
	fmt.Fprintf(w, "added %d, removed %d, changed %d, unchanged %d\n",
		len(d.Added), len(d.Removed), len(d.Changed), d.Unchanged)
	if d.Malformed[0] > 0 || d.Malformed[1] > 0 {
		fmt.Fprintf(w, "malformed lines: %d left, %d right\n", d.Malformed[0], d.Malformed[1])
	}
}

// formatDuration rounds d for display.
func formatDuration(d time.Duration) string {
	switch {
	case d <= 0:
		return "0s"
	case d < time.Millisecond:
		return d.Round(time.Microsecond).String()
	case d < time.Second:
		return d.Round(time.Millisecond).String()
	case d < time.Minute:
		return d.Round(10 * time.Millisecond).String()
	default:
		return d.Round(time.Second).String()
	}
}

func init() {
	Register("plain", func() Formatter {
		return &PlainFormatter{}
	})
}

var _ Formatter = (*PlainFormatter)(nil)

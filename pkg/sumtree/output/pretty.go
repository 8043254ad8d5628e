package output

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/jamesainslie/sumtree/pkg/sumtree/diff"
	"github.com/jamesainslie/sumtree/pkg/sumtree/types"
)

// PrettyFormatter formats output with colors and boxes using lipgloss.
type PrettyFormatter struct{}

// Format writes the formatted report to the buffer.
func (f *PrettyFormatter) Format(w *bytes.Buffer, r *Report) error {
	if len(r.Digests) > 0 {
		w.WriteString(f.formatDigests(r.Digests))
	}

	for _, s := range r.Sessions {
		w.WriteString(f.formatSession(r.Operation, s))
		w.WriteString("\n")
	}

	if r.Diff != nil {
		w.WriteString(f.formatDiff(r.Diff))
	}

	if r.Patch != "" {
		w.WriteString(f.formatPatch(r.Patch))
	}

	if len(r.Warnings) > 0 {
		w.WriteString(WarningStyle.Bold(true).Render("Warnings:"))
		w.WriteString("\n")
		for _, warning := range r.Warnings {
			w.WriteString(WarningStyle.Render("  " + warning))
			w.WriteString("\n")
		}
	}
	return nil
}

func (f *PrettyFormatter) formatDigests(digests []Digest) string {
	var sb strings.Builder
	for _, d := range digests {
		if d.Error != "" {
			sb.WriteString(fmt.Sprintf("%s  %s\n", ErrorStyle.Render("error"), d.Path))
			sb.WriteString(MutedStyle.Render("  "+d.Error) + "\n")
			continue
		}
		sb.WriteString(fmt.Sprintf("%s  %s  %s\n",
			DigestStyle.Render(d.Digest), ValueStyle.Render(d.Path),
			MutedStyle.Render(d.Algorithm+", "+types.FormatSize(d.Bytes))))
	}
	return sb.String()
}

func (f *PrettyFormatter) formatSession(op string, s Session) string {
	var lines []string

	title := TitleStyle.Render(strings.ToUpper(op))
	status := OutcomeStyle(s.Outcome).Render(s.Outcome)
	lines = append(lines, fmt.Sprintf("%s  %s", title, status))
	lines = append(lines, field("Root:", s.Root))
	if s.Manifest != "" {
		lines = append(lines, field("Manifest:", s.Manifest))
	}
	lines = append(lines, fmt.Sprintf("%s  %s  %s",
		field("Algorithm:", s.Algorithm),
		field("Format:", s.Format),
		field("Hashed:", fmt.Sprintf("%s files, %s in %s",
			humanize.Comma(int64(s.Files)), types.FormatSize(s.Bytes), formatDuration(s.Elapsed)))))

	out := HeaderBox.Render(strings.Join(lines, "\n"))

	if detail := f.formatFailure(s); detail != "" {
		out += "\n" + FailureBox.Render(detail)
	}
	return out
}

func (f *PrettyFormatter) formatFailure(s Session) string {
	if s.Reason == "" && s.Error == "" {
		return ""
	}

	var lines []string
	if s.Reason != "" {
		head := ErrorStyle.Render(s.Reason)
		if s.Line > 0 {
			head += MutedStyle.Render(fmt.Sprintf(" at line %d", s.Line))
		}
		lines = append(lines, head)
		if s.Path != "" {
			lines = append(lines, field("Path:", s.Path))
		}
		if s.Expected != "" || s.Actual != "" {
			lines = append(lines, field("Expected:", s.Expected))
			lines = append(lines, field("Actual:", s.Actual))
		}
	}
	if s.Error != "" {
		lines = append(lines, ErrorStyle.Render(s.Error))
	}
	return strings.Join(lines, "\n")
}

func (f *PrettyFormatter) formatDiff(d *diff.Summary) string {
	var sb strings.Builder

	if d.AlgorithmMismatch {
		sb.WriteString(WarningStyle.Render("Algorithms differ; digests are not comparable"))
		sb.WriteString("\n")
	}
	for _, p := range d.Added {
		sb.WriteString(AddedStyle.Render("  + "+p) + "\n")
	}
	for _, p := range d.Removed {
		sb.WriteString(RemovedStyle.Render("  - "+p) + "\n")
	}
	for _, c := range d.Changed {
		sb.WriteString(ChangedStyle.Render("  ~ "+c.Path) + "\n")
		sb.WriteString(MutedStyle.Render(fmt.Sprintf("      %s -> %s", c.Old, c.New)) + "\n")
	}

	verdict := SuccessStyle.Render("identical")
	if !d.Identical() {
		verdict = ErrorStyle.Render("different")
	}
	sb.WriteString(fmt.Sprintf("%s  %s %d  %s %d  %s %d  %s %d\n",
		verdict,
		LabelStyle.Render("added"), len(d.Added),
		LabelStyle.Render("removed"), len(d.Removed),
		LabelStyle.Render("changed"), len(d.Changed),
		LabelStyle.Render("unchanged"), d.Unchanged))
	return sb.String()
}

func (f *PrettyFormatter) formatPatch(patch string) string {
	var sb strings.Builder
	for _, line := range strings.SplitAfter(patch, "\n") {
		if line == "" {
			continue
		}
		text := strings.TrimSuffix(line, "\n")
		switch {
		case strings.HasPrefix(text, "+++"), strings.HasPrefix(text, "---"):
			sb.WriteString(TitleStyle.Render(text))
		case strings.HasPrefix(text, "@@"):
			sb.WriteString(MutedStyle.Render(text))
		case strings.HasPrefix(text, "+"):
			sb.WriteString(AddedStyle.Render(text))
		case strings.HasPrefix(text, "-"):
			sb.WriteString(RemovedStyle.Render(text))
		default:
			sb.WriteString(text)
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

func field(label, value string) string {
	return LabelStyle.Render(label) + " " + ValueStyle.Render(value)
}

func init() {
	Register("pretty", func() Formatter {
		return &PrettyFormatter{}
	})
}

var _ Formatter = (*PrettyFormatter)(nil)

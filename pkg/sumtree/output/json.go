package output

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/jamesainslie/sumtree/pkg/sumtree/diff"
)

// document is the shared JSON/YAML shape of a report.
type document struct {
	Operation string        `json:"operation" yaml:"operation"`
	OK        bool          `json:"ok" yaml:"ok"`
	Sessions  []sessionView `json:"sessions,omitempty" yaml:"sessions,omitempty"`
	Diff      *diff.Summary `json:"diff,omitempty" yaml:"diff,omitempty"`
	Patch     string        `json:"patch,omitempty" yaml:"patch,omitempty"`
	Digests   []Digest      `json:"digests,omitempty" yaml:"digests,omitempty"`
	Warnings  []string      `json:"warnings,omitempty" yaml:"warnings,omitempty"`
}

type sessionView struct {
	Session `yaml:",inline"`
	Elapsed string `json:"elapsed" yaml:"elapsed"`
}

func buildDocument(r *Report) document {
	sessions := make([]sessionView, len(r.Sessions))
	for i, s := range r.Sessions {
		sessions[i] = sessionView{Session: s, Elapsed: formatDurationString(s.Elapsed)}
	}
	return document{
		Operation: r.Operation,
		OK:        r.OK(),
		Sessions:  sessions,
		Diff:      r.Diff,
		Patch:     r.Patch,
		Digests:   r.Digests,
		Warnings:  r.Warnings,
	}
}

// formatDurationString formats a duration for machine-readable output.
func formatDurationString(d time.Duration) string {
	if d == 0 {
		return "0s"
	}
	return d.String()
}

// JSONFormatter formats the report as one indented JSON object.
type JSONFormatter struct{}

// Format writes the formatted report to the buffer.
func (f *JSONFormatter) Format(w *bytes.Buffer, r *Report) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(buildDocument(r))
}

func init() {
	Register("json", func() Formatter {
		return &JSONFormatter{}
	})
}

var _ Formatter = (*JSONFormatter)(nil)

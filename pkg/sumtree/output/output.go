// Package output renders session reports in the formats selectable with
// --output (pretty, plain, json, yaml).
//
// Formatters are looked up by name in a registry:
//
//	formatter, err := output.Get("pretty")
//	if err != nil {
//	    return err
//	}
//	var buf bytes.Buffer
//	if err := formatter.Format(&buf, report); err != nil {
//	    return err
//	}
//	fmt.Print(buf.String())
package output

import (
	"bytes"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/jamesainslie/sumtree/pkg/sumtree/diff"
	"github.com/jamesainslie/sumtree/pkg/sumtree/engine"
)

// Session is the printable view of one engine.Result.
type Session struct {
	Root      string        `json:"root" yaml:"root"`
	Manifest  string        `json:"manifest,omitempty" yaml:"manifest,omitempty"`
	Algorithm string        `json:"algorithm" yaml:"algorithm"`
	Format    string        `json:"format" yaml:"format"`
	Outcome   string        `json:"outcome" yaml:"outcome"`
	Reason    string        `json:"reason,omitempty" yaml:"reason,omitempty"`
	Index     int           `json:"index" yaml:"index"`
	Line      int           `json:"line,omitempty" yaml:"line,omitempty"`
	Path      string        `json:"path,omitempty" yaml:"path,omitempty"`
	Expected  string        `json:"expected,omitempty" yaml:"expected,omitempty"`
	Actual    string        `json:"actual,omitempty" yaml:"actual,omitempty"`
	Files     int           `json:"files" yaml:"files"`
	Bytes     int64         `json:"bytes" yaml:"bytes"`
	Elapsed   time.Duration `json:"-" yaml:"-"`
	Error     string        `json:"error,omitempty" yaml:"error,omitempty"`
}

// NewSession converts an engine result.
func NewSession(root, manifestPath string, r engine.Result) Session {
	s := Session{
		Root:      root,
		Manifest:  manifestPath,
		Algorithm: r.Algorithm,
		Format:    r.Format,
		Outcome:   r.Outcome.String(),
		Index:     r.Index,
		Line:      r.Line,
		Path:      r.Path,
		Expected:  r.Expected,
		Actual:    r.Actual,
		Files:     r.FilesHashed,
		Bytes:     r.BytesHashed,
		Elapsed:   r.Elapsed,
	}
	if r.Reason != engine.ReasonNone {
		s.Reason = r.Reason.String()
	}
	if r.Err != nil {
		s.Error = r.Err.Error()
	}
	return s
}

// OK reports whether the session succeeded.
func (s Session) OK() bool {
	return s.Outcome == engine.OutcomeSuccess.String()
}

// Digest is one line of `hash` output.
type Digest struct {
	Path      string `json:"path" yaml:"path"`
	Algorithm string `json:"algorithm" yaml:"algorithm"`
	Digest    string `json:"digest,omitempty" yaml:"digest,omitempty"`
	Bytes     int64  `json:"bytes" yaml:"bytes"`
	Error     string `json:"error,omitempty" yaml:"error,omitempty"`
}

// Report is everything a command prints.
type Report struct {
	// Operation is the command that produced the report.
	Operation string

	// Sessions holds one entry per engine session: one for generate and
	// verify, two for compare.
	Sessions []Session

	// Diff is set by compare and diff.
	Diff *diff.Summary

	// Patch is the unified diff printed by `diff --patch`.
	Patch string

	// Digests is set by hash.
	Digests []Digest

	Warnings []string
}

// OK reports whether every session succeeded, every digest was computed
// and any diff found the trees identical.
func (r *Report) OK() bool {
	for _, s := range r.Sessions {
		if !s.OK() {
			return false
		}
	}
	for _, d := range r.Digests {
		if d.Error != "" {
			return false
		}
	}
	if r.Diff != nil && !r.Diff.Identical() {
		return false
	}
	return true
}

// Formatter is the interface that all output formatters implement.
type Formatter interface {
	// Format writes the formatted report to the buffer.
	Format(w *bytes.Buffer, r *Report) error
}

// FormatterFactory creates a new Formatter instance.
type FormatterFactory func() Formatter

// Registry manages formatter registration and lookup.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]FormatterFactory
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[string]FormatterFactory),
	}
}

// Register adds a factory, replacing any existing one with the same name.
func (r *Registry) Register(name string, factory FormatterFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = factory
}

// Get returns a new formatter instance by name.
func (r *Registry) Get(name string) (Formatter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	factory, ok := r.factories[name]
	if !ok {
		return nil, fmt.Errorf("unknown formatter: %s", name)
	}
	return factory(), nil
}

// Available returns the sorted registered names.
func (r *Registry) Available() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DefaultRegistry is the global formatter registry.
var DefaultRegistry = NewRegistry()

// Register adds a formatter factory to the default registry.
func Register(name string, factory FormatterFactory) {
	DefaultRegistry.Register(name, factory)
}

// Get returns a new formatter instance from the default registry.
func Get(name string) (Formatter, error) {
	return DefaultRegistry.Get(name)
}

// Available returns all formatter names from the default registry.
func Available() []string {
	return DefaultRegistry.Available()
}

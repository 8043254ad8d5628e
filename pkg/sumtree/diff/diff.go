// Package diff produces full reports between two manifests: a path-keyed
// summary of added, removed and changed files, and a unified patch.
package diff

import (
	"sort"
	"strings"

	"github.com/pmezard/go-difflib/difflib"

	"github.com/jamesainslie/sumtree/pkg/sumtree/manifest"
)

// Change is a path whose digest differs between the two manifests.
type Change struct {
	Path string `json:"path" yaml:"path"`
	Old  string `json:"old" yaml:"old"`
	New  string `json:"new" yaml:"new"`
}

// Summary is the result of Compare. Paths are sorted.
type Summary struct {
	Added     []string `json:"added" yaml:"added"`
	Removed   []string `json:"removed" yaml:"removed"`
	Changed   []Change `json:"changed" yaml:"changed"`
	Unchanged int      `json:"unchanged" yaml:"unchanged"`

	// Malformed counts data lines that did not decode, per side.
	Malformed [2]int `json:"malformed" yaml:"malformed"`

	// AlgorithmMismatch is set when both manifests announce different
	// algorithms, making every digest comparison meaningless.
	AlgorithmMismatch bool `json:"algorithm_mismatch" yaml:"algorithm_mismatch"`
}

// Identical reports whether the manifests describe the same tree.
func (s Summary) Identical() bool {
	return len(s.Added) == 0 && len(s.Removed) == 0 && len(s.Changed) == 0 && !s.AlgorithmMismatch
}

// Compare matches entries by normalized path. Two sentinels are equal; a
// sentinel against a real digest is a change. Digests compare
// case-insensitively.
func Compare(a, b *manifest.Document, fa, fb manifest.Format) Summary {
	var s Summary

	left, bad := index(a, fa)
	s.Malformed[0] = bad
	right, bad := index(b, fb)
	s.Malformed[1] = bad

	algA, okA := a.Directive(fa)
	algB, okB := b.Directive(fb)
	s.AlgorithmMismatch = okA && okB && algA.Name != algB.Name

	for path, old := range left {
		cur, ok := right[path]
		switch {
		case !ok:
			s.Removed = append(s.Removed, path)
		case sameDigest(old, cur):
			s.Unchanged++
		default:
			s.Changed = append(s.Changed, Change{Path: path, Old: old, New: cur})
		}
	}
	for path := range right {
		if _, ok := left[path]; !ok {
			s.Added = append(s.Added, path)
		}
	}

	sort.Strings(s.Added)
	sort.Strings(s.Removed)
	sort.Slice(s.Changed, func(i, j int) bool { return s.Changed[i].Path < s.Changed[j].Path })
	return s
}

func index(doc *manifest.Document, f manifest.Format) (map[string]string, int) {
	entries := doc.Entries(f)
	out := make(map[string]string, len(entries))
	for _, e := range entries {
		out[manifest.NormalizePath(e.Path)] = e.Digest
	}
	return out, doc.Len() - len(entries)
}

func sameDigest(a, b string) bool {
	sa, sb := manifest.IsSentinel(a), manifest.IsSentinel(b)
	if sa || sb {
		return sa && sb
	}
	return strings.EqualFold(a, b)
}

// Options controls unified patch output.
type Options struct {
	// Context is the number of context lines per hunk. Zero means 3.
	Context int
}

// Unified returns a unified patch from a to b, or "" when they are equal.
func Unified(aName, bName string, a, b []byte, opt Options) (string, error) {
	ctx := opt.Context
	if ctx <= 0 {
		ctx = 3
	}
	return difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        splitLines(string(a)),
		B:        splitLines(string(b)),
		FromFile: aName,
		ToFile:   bName,
		Context:  ctx,
	})
}

// DataText returns the data lines of doc, one per line, without comments.
// Patches built from it are not cluttered by header timestamps.
func DataText(doc *manifest.Document) []byte {
	if doc.Len() == 0 {
		return nil
	}
	return []byte(strings.Join(doc.Lines, "\n") + "\n")
}

func splitLines(s string) []string {
	if s == "" {
		return []string{}
	}
	return strings.SplitAfter(s, "\n")
}

package manifest

import (
	"strings"

	"github.com/jamesainslie/sumtree/pkg/sumtree/hasher"
)

const directivePrefix = "# Hash algorithm: "

// MD5Sum is the md5sum(1) compatible grammar. Despite the name it carries any
// algorithm, announced through a "# Hash algorithm:" comment.
type MD5Sum struct{}

// Name implements Format.
func (MD5Sum) Name() string { return "md5sum" }

// CommentMarker implements Format.
func (MD5Sum) CommentMarker() byte { return '#' }

// DefaultAlgorithm implements Format.
func (MD5Sum) DefaultAlgorithm() string { return "MD5" }

// Extension implements Format.
func (MD5Sum) Extension() string { return ".md5" }

// Encode implements Format.
func (MD5Sum) Encode(e Entry) string {
	return e.Digest + "  " + e.Path
}

// Decode implements Format. The two-space separator is tried first, then the
// " *" binary-mode marker written by coreutils.
func (MD5Sum) Decode(line string) (Entry, bool) {
	for _, sep := range []string{"  ", " *"} {
		i := strings.Index(line, sep)
		if i <= 0 {
			continue
		}
		e := Entry{Digest: line[:i], Path: line[i+len(sep):]}
		if e.Path == "" {
			return Entry{}, false
		}
		return e, true
	}
	return Entry{}, false
}

// AlgorithmDirective implements Format.
func (MD5Sum) AlgorithmDirective(line string) (hasher.Algorithm, bool) {
	name, ok := strings.CutPrefix(line, directivePrefix)
	if !ok {
		return hasher.Algorithm{}, false
	}
	return hasher.Lookup(name)
}

// Directive implements Format.
func (MD5Sum) Directive(alg hasher.Algorithm) (string, bool) {
	return strings.TrimPrefix(directivePrefix, "# ") + alg.Name, true
}

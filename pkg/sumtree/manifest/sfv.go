package manifest

import (
	"strings"

	"github.com/jamesainslie/sumtree/pkg/sumtree/hasher"
)

// SFV is the Simple File Verification grammar: path first, digest last.
type SFV struct{}

// Name implements Format.
func (SFV) Name() string { return "sfv" }

// CommentMarker implements Format.
func (SFV) CommentMarker() byte { return ';' }

// DefaultAlgorithm implements Format.
func (SFV) DefaultAlgorithm() string { return "CRC32" }

// Extension implements Format.
func (SFV) Extension() string { return ".sfv" }

// Encode implements Format.
func (SFV) Encode(e Entry) string {
	return e.Path + " " + e.Digest
}

// Decode implements Format. The digest is the last space-delimited token,
// except for a trailing sentinel, which is taken whole since it contains
// spaces of its own.
func (SFV) Decode(line string) (Entry, bool) {
	if strings.HasSuffix(line, "]") {
		if i := strings.LastIndex(line, " "+sentinelPrefix); i > 0 {
			return Entry{Path: line[:i], Digest: line[i+1:]}, true
		}
	}

	i := strings.LastIndexByte(line, ' ')
	if i <= 0 || i == len(line)-1 {
		return Entry{}, false
	}
	return Entry{Path: line[:i], Digest: line[i+1:]}, true
}

// AlgorithmDirective implements Format. SFV has no directive.
func (SFV) AlgorithmDirective(string) (hasher.Algorithm, bool) {
	return hasher.Algorithm{}, false
}

// Directive implements Format.
func (SFV) Directive(hasher.Algorithm) (string, bool) {
	return "", false
}

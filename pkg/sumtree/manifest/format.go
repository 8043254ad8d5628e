// Package manifest implements the on-disk checksum manifest grammars.
//
// Two formats are supported: MD5SUM style ("<digest>  <path>", '#' comments)
// and SFV style ("<path> <digest>", ';' comments). Both are pure string codecs;
// file I/O lives in Parse and Write.
package manifest

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/jamesainslie/sumtree/pkg/sumtree/hasher"
)

// ErrUnknownFormat is returned when a format name does not resolve.
var ErrUnknownFormat = errors.New("unknown manifest format")

// Entry is one decoded or to-be-encoded manifest data line.
type Entry struct {
	Digest string `json:"digest" yaml:"digest"`
	Path   string `json:"path" yaml:"path"`
}

// Format is the grammar of one manifest variant.
type Format interface {
	// Name returns the format identifier, e.g. "md5sum".
	Name() string

	// CommentMarker returns the leading byte of comment lines.
	CommentMarker() byte

	// Encode renders e as one data line without a line terminator.
	Encode(e Entry) string

	// Decode parses a data line. It reports false when no separator is found.
	Decode(line string) (Entry, bool)

	// AlgorithmDirective resolves an algorithm override from a comment line.
	AlgorithmDirective(line string) (hasher.Algorithm, bool)

	// Directive returns the comment body announcing alg, if the format
	// supports one.
	Directive(alg hasher.Algorithm) (string, bool)

	// DefaultAlgorithm names the algorithm conventionally used with the format.
	DefaultAlgorithm() string

	// Extension is the conventional file extension including the dot.
	Extension() string
}

var (
	md5sumFormat Format = MD5Sum{}
	sfvFormat    Format = SFV{}
)

// Formats returns every supported format.
func Formats() []Format {
	return []Format{md5sumFormat, sfvFormat}
}

// FormatFor resolves a format by name, case-insensitively.
func FormatFor(name string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "md5sum", "md5", "sum", "":
		return md5sumFormat, nil
	case "sfv":
		return sfvFormat, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, name)
}

// FormatForPath picks SFV for ".sfv" files and MD5SUM for everything else.
func FormatForPath(path string) Format {
	if strings.EqualFold(filepath.Ext(path), sfvFormat.Extension()) {
		return sfvFormat
	}
	return md5sumFormat
}

// NormalizePath turns a manifest path into the form compared against a
// FileSet relative path: backslashes become '/', and a single leading
// separator left by some historical tools is dropped.
func NormalizePath(p string) string {
	p = strings.ReplaceAll(p, `\`, "/")
	return strings.TrimPrefix(p, "/")
}

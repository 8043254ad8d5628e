// Package types provides the core data types shared by the sumtree packages.
// It includes the ordered file set produced by a directory scan, along with
// utility functions for parsing and formatting byte sizes.
package types

import (
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
)

// Size constants for binary (IEC) units.
const (
	KiB int64 = 1024
	MiB int64 = 1024 * KiB
	GiB int64 = 1024 * MiB
	TiB int64 = 1024 * GiB
)

// FileEntry is a single file discovered under a scan root.
// The relative path is always derived from the owning set's root so it can
// never disagree with FullPath.
type FileEntry struct {
	// FullPath is the absolute path to the file.
	FullPath string `json:"full_path"`

	// Length is the file size in bytes at scan time.
	Length int64 `json:"length"`

	root string
}

// RelativePath returns the path relative to the scan root using '/'
// separators on every platform.
func (e FileEntry) RelativePath() string {
	return RelativeTo(e.root, e.FullPath)
}

// FileSet is the ordered list of files under a root directory.
// Entry order is the join key against manifest lines and must be stable
// across repeated scans of an unmodified tree.
type FileSet struct {
	// Root is the absolute scan root.
	Root string `json:"root"`

	// Entries holds the files in discovery order.
	Entries []FileEntry `json:"entries"`
}

// NewFileSet returns an empty set rooted at root.
func NewFileSet(root string) *FileSet {
	return &FileSet{
		Root:    filepath.Clean(root),
		Entries: make([]FileEntry, 0),
	}
}

// Add appends a file to the set. fullPath must live under the set root.
func (s *FileSet) Add(fullPath string, length int64) {
	s.Entries = append(s.Entries, FileEntry{
		FullPath: filepath.Clean(fullPath),
		Length:   length,
		root:     s.Root,
	})
}

// Len returns the number of entries.
func (s *FileSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Entries)
}

// TotalSize returns the sum of all entry lengths.
func (s *FileSet) TotalSize() int64 {
	var total int64
	for _, e := range s.Entries {
		total += e.Length
	}
	return total
}

// Remove drops the entry with the given full path, preserving the order of
// the remaining entries. It reports whether an entry was removed.
func (s *FileSet) Remove(fullPath string) bool {
	i := s.indexOf(fullPath)
	if i < 0 {
		return false
	}
	s.Entries = append(s.Entries[:i], s.Entries[i+1:]...)
	return true
}

func (s *FileSet) indexOf(fullPath string) int {
	if s == nil {
		return -1
	}
	want := filepath.Clean(fullPath)
	for i, e := range s.Entries {
		if e.FullPath == want {
			return i
		}
	}
	return -1
}

// RelativeTo returns path relative to root with '/' separators.
// If path is not under root, the cleaned, slash-normalized path is returned.
func RelativeTo(root, path string) string {
	rel, err := filepath.Rel(root, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return filepath.ToSlash(filepath.Clean(path))
	}
	return filepath.ToSlash(rel)
}

// IsUnder reports whether path is root itself or lives below it.
func IsUnder(root, path string) bool {
	root = filepath.Clean(root)
	path = filepath.Clean(path)
	if path == root {
		return true
	}
	return strings.HasPrefix(path, root+string(filepath.Separator))
}

// sizePattern matches size strings like "100M", "2G", "500K", "1.5GB", etc.
var sizePattern = regexp.MustCompile(`(?i)^\s*([0-9]+(?:\.[0-9]+)?)\s*([KMGT]?(?:i?B)?)\s*$`)

// ErrInvalidSize indicates that the size string could not be parsed.
var ErrInvalidSize = errors.New("invalid size format")

// ErrNegativeSize indicates that a negative size value was provided.
var ErrNegativeSize = errors.New("size cannot be negative")

// ParseSize parses a human-readable size string and returns the size in bytes.
// It supports plain bytes ("1024") and K, M, G, T suffixes with optional
// "B" or "iB" ("100K", "50MB", "2GiB"). All units are binary.
//
// Decimal values are supported and truncated to the nearest byte.
// Leading and trailing whitespace is ignored.
func ParseSize(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("%w: empty string", ErrInvalidSize)
	}

	if strings.HasPrefix(s, "-") {
		return 0, ErrNegativeSize
	}

	matches := sizePattern.FindStringSubmatch(s)
	if matches == nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidSize, s)
	}

	value, err := strconv.ParseFloat(matches[1], 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidSize, s)
	}

	suffix := strings.ToUpper(matches[2])
	suffix = strings.TrimSuffix(suffix, "IB")
	suffix = strings.TrimSuffix(suffix, "B")

	var multiplier int64
	switch suffix {
	case "":
		multiplier = 1
	case "K":
		multiplier = KiB
	case "M":
		multiplier = MiB
	case "G":
		multiplier = GiB
	case "T":
		multiplier = TiB
	default:
		return 0, fmt.Errorf("%w: unknown suffix %q", ErrInvalidSize, suffix)
	}

	return int64(value * float64(multiplier)), nil
}

// FormatSize converts a size in bytes to a human-readable string using
// binary (IEC) units.
func FormatSize(bytes int64) string {
	if bytes < 0 {
		bytes = 0
	}
	return humanize.IBytes(uint64(bytes))
}

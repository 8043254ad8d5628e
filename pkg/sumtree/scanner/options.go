// Package scanner lists the regular files under a root directory as an
// ordered types.FileSet. Discovery is parallel (fastwalk); the result is
// sorted by relative path so repeated scans of an unmodified tree agree.
package scanner

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gobwas/glob"
)

// Options configures a scan.
type Options struct {
	// Root is the directory to scan.
	Root string

	// Recursive descends into subdirectories.
	Recursive bool

	// IncludeHidden keeps dot files and directories (and, on Windows, files
	// with the hidden attribute).
	IncludeHidden bool

	// IncludeSystem keeps OS metadata such as .DS_Store or Thumbs.db.
	IncludeSystem bool

	// IncludeArchive keeps files with the Windows archive attribute.
	// It has no effect on other platforms.
	IncludeArchive bool

	// Exclude holds glob patterns matched against the slash-separated
	// relative path and against the base name.
	Exclude []string

	// OnProgress, if set, is called periodically from walker goroutines.
	OnProgress func(Progress)
}

// DefaultOptions returns options for a recursive scan of root that skips
// hidden and system files.
func DefaultOptions(root string) Options {
	return Options{
		Root:           root,
		Recursive:      true,
		IncludeArchive: true,
	}
}

// Progress is a snapshot of a running scan.
type Progress struct {
	Dirs    int64
	Files   int64
	Bytes   int64
	Current string
}

// progressInterval throttles OnProgress.
const progressInterval = 100 * time.Millisecond

// ErrScan is matched by every *ScanError.
var ErrScan = errors.New("scan failed")

// ScanError reports the path at which a scan was aborted.
type ScanError struct {
	Path string
	Err  error
}

func (e *ScanError) Error() string {
	return fmt.Sprintf("scan failed at %s: %v", e.Path, e.Err)
}

// Unwrap returns the underlying error.
func (e *ScanError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrScan) succeed.
func (e *ScanError) Is(target error) bool { return target == ErrScan }

// systemNames are OS metadata entries skipped unless IncludeSystem is set.
var systemNames = map[string]struct{}{
	".DS_Store":                 {},
	".AppleDouble":              {},
	".Spotlight-V100":           {},
	".Trashes":                  {},
	".fseventsd":                {},
	".DocumentRevisions-V100":   {},
	".TemporaryItems":           {},
	"Thumbs.db":                 {},
	"ehthumbs.db":               {},
	"desktop.ini":               {},
	"$RECYCLE.BIN":              {},
	"System Volume Information": {},
}

// IsSystemName reports whether a base name is OS metadata.
func IsSystemName(name string) bool {
	_, ok := systemNames[name]
	return ok
}

func compilePatterns(patterns []string) ([]glob.Glob, error) {
	out := make([]glob.Glob, 0, len(patterns))
	for _, p := range patterns {
		g, err := glob.Compile(p, '/')
		if err != nil {
			return nil, fmt.Errorf("invalid exclude pattern %q: %w", p, err)
		}
		out = append(out, g)
	}
	return out, nil
}

func resolveRoot(root string) (string, error) {
	if root == "" {
		root = "."
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return "", &ScanError{Path: root, Err: err}
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", &ScanError{Path: abs, Err: err}
	}
	if !info.IsDir() {
		return "", &ScanError{Path: abs, Err: fmt.Errorf("not a directory")}
	}
	return abs, nil
}

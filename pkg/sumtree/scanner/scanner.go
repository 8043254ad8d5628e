package scanner

import (
	"context"
	"errors"
	"io/fs"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charlievieth/fastwalk"
	"github.com/gobwas/glob"

	"github.com/jamesainslie/sumtree/pkg/sumtree/logging"
	"github.com/jamesainslie/sumtree/pkg/sumtree/types"
)

type found struct {
	path string
	rel  string
	size int64
}

type scan struct {
	opts    Options
	root    string
	exclude []glob.Glob

	dirs  atomic.Int64
	files atomic.Int64
	bytes atomic.Int64

	lastProgress atomic.Int64

	mu      sync.Mutex
	results []found
	err     error
}

// Scan walks opts.Root and returns its files in relative-path order.
//
// The scan is all or nothing: the first error aborts the walk and is
// returned as a *ScanError with no FileSet. Cancellation returns ctx.Err().
func Scan(ctx context.Context, opts Options) (*types.FileSet, error) {
	log := logging.Get("scanner")

	root, err := resolveRoot(opts.Root)
	if err != nil {
		return nil, err
	}
	exclude, err := compilePatterns(opts.Exclude)
	if err != nil {
		return nil, err
	}

	s := &scan{opts: opts, root: root, exclude: exclude}
	start := time.Now()
	log.Debug("scan started", "root", root, "recursive", opts.Recursive)

	conf := fastwalk.Config{Follow: false}
	walkErr := fastwalk.Walk(&conf, root, s.visit(ctx))

	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if s.err != nil {
		log.Error("scan aborted", "error", s.err)
		return nil, s.err
	}
	if walkErr != nil {
		return nil, &ScanError{Path: root, Err: walkErr}
	}

	sort.Slice(s.results, func(i, j int) bool {
		return s.results[i].rel < s.results[j].rel
	})

	set := types.NewFileSet(root)
	for _, f := range s.results {
		set.Add(f.path, f.size)
	}

	s.report("", true)
	log.Info("scan finished", "root", root, "files", set.Len(), "bytes", set.TotalSize(),
		"elapsed", time.Since(start))
	return set, nil
}

func (s *scan) visit(ctx context.Context) fs.WalkDirFunc {
	return func(path string, d fs.DirEntry, err error) error {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err != nil {
			return s.fail(path, err)
		}
		if path == s.root {
			return nil
		}

		rel := types.RelativeTo(s.root, path)
		if d.IsDir() {
			if !s.opts.Recursive || s.skipName(d.Name(), nil) || s.excluded(rel, d.Name()) {
				return fastwalk.SkipDir
			}
			s.dirs.Add(1)
			s.report(path, false)
			return nil
		}

		if !d.Type().IsRegular() || s.excluded(rel, d.Name()) {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return s.fail(path, err)
		}
		if s.skipName(d.Name(), info) {
			return nil
		}

		s.files.Add(1)
		s.bytes.Add(info.Size())

		s.mu.Lock()
		s.results = append(s.results, found{path: path, rel: rel, size: info.Size()})
		s.mu.Unlock()
		return nil
	}
}

// skipName applies the hidden, system and archive filters. info may be nil
// for directories, in which case only name-based rules apply.
func (s *scan) skipName(name string, info fs.FileInfo) bool {
	attrs := attributes(info)
	if !s.opts.IncludeSystem && (IsSystemName(name) || attrs.system) {
		return true
	}
	if !s.opts.IncludeHidden && (strings.HasPrefix(name, ".") || attrs.hidden) {
		return true
	}
	if !s.opts.IncludeArchive && attrs.archive {
		return true
	}
	return false
}

func (s *scan) excluded(rel, name string) bool {
	for _, g := range s.exclude {
		if g.Match(rel) || g.Match(name) {
			return true
		}
	}
	return false
}

// fail records the first error and aborts the walk.
func (s *scan) fail(path string, err error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err == nil {
		var se *ScanError
		if errors.As(err, &se) {
			s.err = se
		} else {
			s.err = &ScanError{Path: path, Err: err}
		}
	}
	return s.err
}

func (s *scan) report(current string, force bool) {
	if s.opts.OnProgress == nil {
		return
	}
	now := time.Now().UnixNano()
	last := s.lastProgress.Load()
	if !force && now-last < int64(progressInterval) {
		return
	}
	if !force && !s.lastProgress.CompareAndSwap(last, now) {
		return
	}
	s.opts.OnProgress(Progress{
		Dirs:    s.dirs.Load(),
		Files:   s.files.Load(),
		Bytes:   s.bytes.Load(),
		Current: current,
	})
}

// Package watcher watches a directory tree and reports bursts of changes
// once they settle, so callers can re-verify a tree after it stops moving.
package watcher

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/jamesainslie/sumtree/pkg/sumtree/logging"
	"github.com/jamesainslie/sumtree/pkg/sumtree/types"
)

// DefaultDebounce is the quiet period used when Options.Debounce is zero.
const DefaultDebounce = 2 * time.Second

// Event is one filesystem change.
type Event struct {
	Path string
	Op   fsnotify.Op
}

// Options configures a Watcher.
type Options struct {
	// Debounce is how long the tree must be quiet before OnSettled fires.
	Debounce time.Duration

	// Ignore drops events for matching paths. Nil keeps everything.
	Ignore func(path string) bool

	// OnEvent, if set, is called for every kept event.
	OnEvent func(Event)
}

// Watcher watches directories recursively. Symlinks are not followed.
type Watcher struct {
	fsw    *fsnotify.Watcher
	opts   Options
	log    *logging.Logger
	mu     sync.Mutex
	paths  map[string]struct{}
	closed bool
}

// New returns a Watcher with no directories registered.
func New(opts Options) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	return &Watcher{
		fsw:   fsw,
		opts:  opts,
		log:   logging.Get("watcher"),
		paths: make(map[string]struct{}),
	}, nil
}

// Watch registers root and every directory below it.
func (w *Watcher) Watch(root string) error {
	abs, err := filepath.Abs(root)
	if err != nil {
		return err
	}
	info, err := os.Lstat(abs)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return &fs.PathError{Op: "watch", Path: abs, Err: fs.ErrInvalid}
	}
	return w.addTree(abs)
}

func (w *Watcher) addTree(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			w.log.Warn("skipping unreadable path", "path", path, "error", err)
			return nil
		}
		if d.Type()&fs.ModeSymlink != 0 || !d.IsDir() {
			return nil
		}
		return w.add(path)
	})
}

func (w *Watcher) add(path string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	if _, ok := w.paths[path]; ok {
		return nil
	}
	if err := w.fsw.Add(path); err != nil {
		w.log.Warn("failed to add watch", "path", path, "error", err)
		return err
	}
	w.paths[path] = struct{}{}
	return nil
}

func (w *Watcher) drop(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	for p := range w.paths {
		if p == path || types.IsUnder(path, p) {
			_ = w.fsw.Remove(p)
			delete(w.paths, p)
		}
	}
}

// Watched returns the number of directories being watched.
func (w *Watcher) Watched() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.paths)
}

// Run delivers settled batches of events to onSettled until ctx is done or
// the watcher is closed. onSettled runs on the Run goroutine; events that
// arrive meanwhile are batched for the next call.
func (w *Watcher) Run(ctx context.Context, onSettled func([]Event)) error {
	var (
		pending []Event
		timer   *time.Timer
		fire    <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			w.track(ev)
			if w.opts.Ignore != nil && w.opts.Ignore(ev.Name) {
				continue
			}
			e := Event{Path: ev.Name, Op: ev.Op}
			if w.opts.OnEvent != nil {
				w.opts.OnEvent(e)
			}
			pending = append(pending, e)
			if timer == nil {
				timer = time.NewTimer(w.opts.Debounce)
			} else {
				timer.Reset(w.opts.Debounce)
			}
			fire = timer.C

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.log.Error("watcher error", "error", err)

		case <-fire:
			fire = nil
			batch := pending
			pending = nil
			w.log.Debug("changes settled", "events", len(batch))
			onSettled(batch)
		}
	}
}

// track keeps the watch list in step with directories being created and
// removed.
func (w *Watcher) track(ev fsnotify.Event) {
	switch {
	case ev.Has(fsnotify.Create):
		info, err := os.Lstat(ev.Name)
		if err == nil && info.IsDir() {
			_ = w.addTree(ev.Name)
		}
	case ev.Has(fsnotify.Remove), ev.Has(fsnotify.Rename):
		w.drop(ev.Name)
	}
}

// Close stops watching.
func (w *Watcher) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true
	w.paths = map[string]struct{}{}
	return w.fsw.Close()
}

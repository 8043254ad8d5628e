package watcher

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestWatcher(t *testing.T, opts Options) *Watcher {
	t.Helper()
	w, err := New(opts)
	require.NoError(t, err)
	t.Cleanup(func() { _ = w.Close() })
	return w
}

func TestNewDefaultsDebounce(t *testing.T) {
	t.Parallel()

	w := newTestWatcher(t, Options{})
	assert.Equal(t, DefaultDebounce, w.opts.Debounce)
	assert.Equal(t, 0, w.Watched())
}

func TestWatchRegistersSubdirectories(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "a", "b"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "c"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "a", "f.txt"), []byte("x"), 0o644))

	w := newTestWatcher(t, Options{})
	require.NoError(t, w.Watch(root))

	// root, a, a/b, c
	assert.Equal(t, 4, w.Watched())
}

func TestWatchRejectsFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "f.txt")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))

	w := newTestWatcher(t, Options{})
	assert.Error(t, w.Watch(path))
	assert.Error(t, w.Watch(filepath.Join(t.TempDir(), "missing")))
}

func TestWatchSkipsSymlinkedDirectories(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	target := t.TempDir()
	if err := os.Symlink(target, filepath.Join(root, "link")); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}

	w := newTestWatcher(t, Options{})
	require.NoError(t, w.Watch(root))
	assert.Equal(t, 1, w.Watched())
}

func TestDropRemovesChildWatches(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "a", "b"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "ab"), 0o755))

	w := newTestWatcher(t, Options{})
	require.NoError(t, w.Watch(root))
	require.Equal(t, 4, w.Watched())

	w.drop(filepath.Join(root, "a"))

	// "ab" shares a prefix with "a" but is a sibling.
	assert.Equal(t, 2, w.Watched())
}

type collector struct {
	mu      sync.Mutex
	batches [][]Event
}

func (c *collector) settled(events []Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.batches = append(c.batches, events)
}

func (c *collector) snapshot() [][]Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([][]Event(nil), c.batches...)
}

func TestRunDebouncesBurst(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	w := newTestWatcher(t, Options{Debounce: 200 * time.Millisecond})
	require.NoError(t, w.Watch(root))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var c collector
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx, c.settled) }()

	for i := range 5 {
		name := filepath.Join(root, "f"+string(rune('0'+i))+".txt")
		require.NoError(t, os.WriteFile(name, []byte("data"), 0o644))
	}

	require.Eventually(t, func() bool { return len(c.snapshot()) == 1 }, 5*time.Second, 20*time.Millisecond)

	// No second batch without further changes.
	time.Sleep(400 * time.Millisecond)
	batches := c.snapshot()
	require.Len(t, batches, 1)
	assert.NotEmpty(t, batches[0])

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestRunIgnoresMatchingPaths(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	manifest := filepath.Join(root, "tree.md5")

	var (
		mu   sync.Mutex
		seen []string
	)
	w := newTestWatcher(t, Options{
		Debounce: 100 * time.Millisecond,
		Ignore:   func(path string) bool { return path == manifest },
		OnEvent: func(e Event) {
			mu.Lock()
			seen = append(seen, e.Path)
			mu.Unlock()
		},
	})
	require.NoError(t, w.Watch(root))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var c collector
	go func() { _ = w.Run(ctx, c.settled) }()

	require.NoError(t, os.WriteFile(manifest, []byte("x"), 0o644))
	time.Sleep(400 * time.Millisecond)
	assert.Empty(t, c.snapshot())

	other := filepath.Join(root, "data.bin")
	require.NoError(t, os.WriteFile(other, []byte("x"), 0o644))
	require.Eventually(t, func() bool { return len(c.snapshot()) == 1 }, 5*time.Second, 20*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	for _, p := range seen {
		assert.False(t, strings.HasSuffix(p, "tree.md5"))
	}
}

func TestRunWatchesNewDirectories(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	w := newTestWatcher(t, Options{Debounce: 100 * time.Millisecond})
	require.NoError(t, w.Watch(root))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var c collector
	go func() { _ = w.Run(ctx, c.settled) }()

	require.NoError(t, os.Mkdir(filepath.Join(root, "new"), 0o755))
	require.Eventually(t, func() bool { return w.Watched() == 2 }, 5*time.Second, 20*time.Millisecond)
}

func TestRunReturnsAfterClose(t *testing.T) {
	t.Parallel()

	w := newTestWatcher(t, Options{})
	require.NoError(t, w.Watch(t.TempDir()))

	done := make(chan error, 1)
	go func() { done <- w.Run(context.Background(), func([]Event) {}) }()

	require.NoError(t, w.Close())
	require.NoError(t, w.Close())

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after Close")
	}
}

package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"
	"golang.org/x/term"
	"golang.org/x/time/rate"

	"github.com/jamesainslie/sumtree/cmd/sumtree/tui"
	"github.com/jamesainslie/sumtree/pkg/sumtree/config"
	"github.com/jamesainslie/sumtree/pkg/sumtree/engine"
	"github.com/jamesainslie/sumtree/pkg/sumtree/hasher"
	"github.com/jamesainslie/sumtree/pkg/sumtree/history"
	"github.com/jamesainslie/sumtree/pkg/sumtree/logging"
	"github.com/jamesainslie/sumtree/pkg/sumtree/manifest"
	"github.com/jamesainslie/sumtree/pkg/sumtree/output"
	"github.com/jamesainslie/sumtree/pkg/sumtree/scanner"
	"github.com/jamesainslie/sumtree/pkg/sumtree/types"
)

// Exit codes.
const (
	exitFailure   = 1
	exitCancelled = 130
)

// exitError carries a process exit code for a run that already printed its
// report.
type exitError struct {
	code int
}

func (e *exitError) Error() string {
	return fmt.Sprintf("exit status %d", e.code)
}

// settings are the per-run values shared by every session of a command.
type settings struct {
	cfg     *config.Config
	format  manifest.Format
	alg     hasher.Algorithm
	key     []byte
	chunk   int
	bps     int64
}

// resolveFormat picks the manifest format from the configured name or, when
// that is empty, from the manifest file extension.
func resolveFormat(name, manifestPath string) (manifest.Format, error) {
	if name != "" {
		return manifest.FormatFor(name)
	}
	if manifestPath != "" {
		return manifest.FormatForPath(manifestPath), nil
	}
	return manifest.MD5Sum{}, nil
}

// resolveAlgorithm looks up name, defaulting to the format's algorithm.
func resolveAlgorithm(name string, format manifest.Format) (hasher.Algorithm, error) {
	if name == "" {
		name = format.DefaultAlgorithm()
	}
	return hasher.MustLookup(name)
}

// newSettings resolves cfg for a run against manifestPath, which may be
// empty. The key for keyed algorithms is read here, once per run.
func newSettings(cfg *config.Config, manifestPath string) (*settings, error) {
	format, err := resolveFormat(cfg.Format, manifestPath)
	if err != nil {
		return nil, err
	}
	alg, err := resolveAlgorithm(cfg.Algorithm, format)
	if err != nil {
		return nil, err
	}

	chunk, err := cfg.ChunkBytes()
	if err != nil {
		return nil, err
	}
	bps, err := cfg.RateBytes()
	if err != nil {
		return nil, err
	}
	if chunk == 0 {
		chunk = hasher.ChunkSize
	}

	s := &settings{
		cfg:     cfg,
		format:  format,
		alg:     alg,
		chunk:   chunk,
		bps:     bps,
	}
	if alg.Keyed {
		if s.key, err = loadKey(cfg.KeyFile); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// withKey reads the key when a manifest turns out to announce a keyed
// algorithm that the configured one did not need.
func (s *settings) withKey(alg hasher.Algorithm) error {
	if !alg.Keyed || s.key != nil {
		return nil
	}
	key, err := loadKey(s.cfg.KeyFile)
	if err != nil {
		return err
	}
	s.key = key
	return nil
}

// scanOptions builds scanner options for root from the configuration.
func (s *settings) scanOptions(root string) scanner.Options {
	opts := scanner.DefaultOptions(root)
	opts.Recursive = s.cfg.Recursive
	opts.IncludeHidden = s.cfg.IncludeHidden
	opts.IncludeSystem = s.cfg.IncludeSystem
	opts.IncludeArchive = s.cfg.IncludeArchive
	opts.Exclude = s.cfg.Exclude
	return opts
}

// scan lists root and drops the given paths (manifests inside the tree).
func (s *settings) scan(ctx context.Context, root string, drop ...string) (*types.FileSet, error) {
	set, err := scanner.Scan(ctx, s.scanOptions(root))
	if err != nil {
		return nil, err
	}
	for _, p := range drop {
		if p == "" {
			continue
		}
		if abs, err := filepath.Abs(p); err == nil && set.Remove(abs) {
			printVerbose("Excluding %s from the file set", abs)
		}
	}
	return set, nil
}

// engine returns an Engine for set.
func (s *settings) engine(set *types.FileSet) *engine.Engine {
	return engine.New(engine.Options{
		FileSet:   set,
		Algorithm: s.alg,
		Format:    s.format,
		Key:       s.key,
		ChunkSize: s.chunk,
		Limiter:   s.limiter(),
		Version:   version,
	})
}

// limiter returns a fresh read throttle so concurrent sessions never share a
// token bucket. Nil when no rate is configured.
func (s *settings) limiter() *rate.Limiter {
	return hasher.NewLimiter(s.bps, s.chunk)
}

// resolveDir returns the absolute path of dir and checks it is a directory.
func resolveDir(dir string) (string, error) {
	expanded, err := config.ExpandPath(dir)
	if err != nil {
		return "", fmt.Errorf("failed to expand path: %w", err)
	}
	abs, err := filepath.Abs(expanded)
	if err != nil {
		return "", fmt.Errorf("failed to resolve path: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("path does not exist: %s", abs)
		}
		return "", fmt.Errorf("cannot access path: %w", err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("path is not a directory: %s", abs)
	}
	return abs, nil
}

// defaultManifestPath is <root>/<basename of root><extension>.
func defaultManifestPath(root string, format manifest.Format) string {
	name := filepath.Base(root)
	if name == string(filepath.Separator) || name == "." || name == "" {
		name = "checksums"
	}
	return filepath.Join(root, name+format.Extension())
}

// findManifest returns the first existing default manifest for root, trying
// every format.
func findManifest(root string) (string, error) {
	for _, f := range manifest.Formats() {
		p := defaultManifestPath(root, f)
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}
	return "", fmt.Errorf("no manifest found in %s; pass one explicitly", root)
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

// useTUI reports whether the interactive progress view should be shown.
func useTUI(cfg *config.Config) bool {
	if viper.GetBool("no_tui") || getQuiet() {
		return false
	}
	if cfg.Output != "" && cfg.Output != "pretty" {
		return false
	}
	return term.IsTerminal(int(os.Stderr.Fd()))
}

// runSessions runs every session concurrently, in the progress view when the
// terminal allows it. Outcomes are returned in session order.
func runSessions(ctx context.Context, cfg *config.Config, title string, sessions []tui.Session) ([]tui.Outcome, error) {
	if useTUI(cfg) {
		if err := initTUILogging(); err != nil {
			return nil, fmt.Errorf("failed to initialize TUI logging: %w", err)
		}
		return tui.Run(ctx, tui.Options{Title: title, Sessions: sessions})
	}

	// Sessions are independent: one failing does not cancel the others.
	outcomes := make([]tui.Outcome, len(sessions))
	var g errgroup.Group
	for i, s := range sessions {
		g.Go(func() error {
			res, err := s.Run(ctx, verboseProgress(s.Label))
			outcomes[i] = tui.Outcome{Result: res, Err: err}
			return nil
		})
	}
	_ = g.Wait()
	return outcomes, nil
}

// verboseProgress logs the session size through the integer progress
// encoding.
func verboseProgress(label string) engine.Progress {
	return engine.IntProgress(func(v int) {
		if v < 0 {
			printVerbose("%s: %d files", label, -v)
		}
	})
}

// printReport renders r in the configured output format on w.
func printReport(w io.Writer, cfg *config.Config, r *output.Report) error {
	name := cfg.Output
	if name == "" {
		name = config.DefaultOutput
	}
	formatter, err := output.Get(name)
	if err != nil {
		return fmt.Errorf("unknown output format %q: available formats are %v", name, output.Available())
	}

	var buf bytes.Buffer
	if err := formatter.Format(&buf, r); err != nil {
		return fmt.Errorf("failed to format output: %w", err)
	}
	_, err = w.Write(buf.Bytes())
	return err
}

// exitFor maps session results to the process exit status.
func exitFor(r *output.Report, results ...engine.Result) error {
	for _, res := range results {
		if res.Outcome == engine.OutcomeCancelled {
			return &exitError{code: exitCancelled}
		}
	}
	if !r.OK() {
		return &exitError{code: exitFailure}
	}
	return nil
}

// recordHistory stores rec unless history is disabled. Failures are logged,
// never returned.
func recordHistory(cfg *config.Config, rec *history.Record) {
	if !cfg.History.Enabled || viper.GetBool("no_history") {
		return
	}
	log := logging.Get("history")

	store, err := history.Open(cfg.History.Path)
	if err != nil {
		log.Warn("history unavailable", "path", cfg.History.Path, "error", err)
		return
	}
	defer store.Close()

	if err := store.Put(rec); err != nil {
		log.Warn("failed to record run", "error", err)
		return
	}
	if n, err := store.Cleanup(cfg.History.RetentionDays); err != nil {
		log.Warn("history cleanup failed", "error", err)
	} else if n > 0 {
		log.Debug("expired history records removed", "count", n)
	}
}

// newRecord describes a finished session for the history.
func newRecord(op history.Operation, root, manifestPath string, started time.Time, res engine.Result) *history.Record {
	rec := &history.Record{
		Operation: op,
		Root:      root,
		Manifest:  manifestPath,
		Algorithm: res.Algorithm,
		Format:    res.Format,
		Outcome:   res.Outcome.String(),
		Files:     res.FilesHashed,
		Bytes:     res.BytesHashed,
		StartedAt: started,
		Elapsed:   res.Elapsed,
	}
	if res.Reason != engine.ReasonNone {
		rec.Reason = res.Reason.String()
		if res.Path != "" {
			rec.Detail = res.Path
		}
	}
	if res.Err != nil {
		rec.Detail = res.Err.Error()
	}
	return rec
}

// prepareVerify reads the algorithm a manifest announces so the key can be
// loaded before hashing starts. A manifest that cannot be read is left for
// the engine to report.
func (s *settings) prepareVerify(manifestPath string) error {
	f, err := os.Open(manifestPath)
	if err != nil {
		return nil
	}
	defer f.Close()

	doc, err := manifest.Parse(f, s.format)
	if err != nil {
		return nil
	}
	if alg, ok := doc.Directive(s.format); ok {
		return s.withKey(alg)
	}
	return nil
}

// writeManifest replaces path with content through a temporary file in the
// same directory, so readers never see a partial manifest.
func writeManifest(path, content string) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating manifest: %w", err)
	}
	name := tmp.Name()
	defer os.Remove(name)

	if _, err := tmp.WriteString(content); err != nil {
		tmp.Close()
		return fmt.Errorf("writing manifest: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("syncing manifest: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing manifest: %w", err)
	}
	if err := os.Chmod(name, 0o644); err != nil {
		return fmt.Errorf("setting manifest mode: %w", err)
	}
	if err := os.Rename(name, path); err != nil {
		return fmt.Errorf("replacing manifest: %w", err)
	}
	return nil
}

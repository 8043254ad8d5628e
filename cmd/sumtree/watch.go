package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/jamesainslie/sumtree/pkg/sumtree/config"
	"github.com/jamesainslie/sumtree/pkg/sumtree/engine"
	"github.com/jamesainslie/sumtree/pkg/sumtree/history"
	"github.com/jamesainslie/sumtree/pkg/sumtree/logging"
	"github.com/jamesainslie/sumtree/pkg/sumtree/metrics"
	"github.com/jamesainslie/sumtree/pkg/sumtree/output"
	"github.com/jamesainslie/sumtree/pkg/sumtree/watcher"
)

var watchCmd = &cobra.Command{
	Use:   "watch <dir> [manifest]",
	Short: "Re-verify a tree whenever it changes",
	Long: `Verify a directory tree, then watch it and verify again each time a
burst of changes settles. Every pass is printed and recorded in the history.

With --metrics-addr, Prometheus metrics are served on /metrics.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runWatch,
}

var (
	watchDebounce    time.Duration
	watchMetricsAddr string
)

func init() {
	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", 0, "quiet period before re-verifying (default from config)")
	watchCmd.Flags().StringVar(&watchMetricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")
	rootCmd.AddCommand(watchCmd)
}

// ignoreFor drops events on the manifest itself and on the temporary files
// used to replace it.
func ignoreFor(manifestPath string) func(string) bool {
	base := filepath.Base(manifestPath)
	return func(path string) bool {
		if path == manifestPath {
			return true
		}
		name := filepath.Base(path)
		return strings.HasPrefix(name, "."+base+".") && strings.HasSuffix(name, ".tmp")
	}
}

// watchLoop owns one watched tree.
type watchLoop struct {
	cfg  *config.Config
	plan *verifyPlan
	log  *logging.Logger
}

// pass rescans and verifies the tree once.
func (l *watchLoop) pass(ctx context.Context) engine.Result {
	started := time.Now()

	var res engine.Result
	set, err := l.plan.s.scan(ctx, l.plan.root)
	if err != nil {
		res = engine.Result{Outcome: engine.OutcomeError, Index: -1, Err: fmt.Errorf("scan failed: %w", err)}
	} else {
		res, _ = l.plan.s.engine(set).Verify(ctx, l.plan.manifest,
			engine.Multi(verboseProgress(l.plan.root), metrics.Progress()))
	}
	if res.Outcome == engine.OutcomeCancelled {
		return res
	}

	metrics.Observe("verify", res)
	recordHistory(l.cfg, newRecord(history.OpWatch, l.plan.root, l.plan.manifest, started, res))

	report := &output.Report{
		Operation: "watch",
		Sessions:  []output.Session{output.NewSession(l.plan.root, l.plan.manifest, res)},
	}
	if err := printReport(os.Stdout, l.cfg, report); err != nil {
		l.log.Warn("failed to print report", "error", err)
	}
	return res
}

func (l *watchLoop) run(ctx context.Context, debounce time.Duration) error {
	w, err := watcher.New(watcher.Options{
		Debounce: debounce,
		Ignore:   ignoreFor(l.plan.manifest),
		OnEvent:  func(watcher.Event) { metrics.WatchEvent() },
	})
	if err != nil {
		return fmt.Errorf("failed to start watcher: %w", err)
	}
	defer w.Close()

	if err := w.Watch(l.plan.root); err != nil {
		return fmt.Errorf("failed to watch %s: %w", l.plan.root, err)
	}
	l.log.Info("watching", "root", l.plan.root, "directories", w.Watched(), "debounce", debounce)

	l.pass(ctx)
	return w.Run(ctx, func(events []watcher.Event) {
		l.log.Debug("changes settled", "events", len(events))
		l.pass(ctx)
	})
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if len(args) > 1 && args[1] == stdoutPath {
		return fmt.Errorf("watch needs a manifest file, not stdin")
	}
	plan, err := planVerify(cfg, args)
	if err != nil {
		return err
	}

	debounce := watchDebounce
	if debounce <= 0 {
		debounce = cfg.Watch.Debounce
	}
	addr := watchMetricsAddr
	if addr == "" {
		addr = cfg.Watch.MetricsAddr
	}

	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	loop := &watchLoop{cfg: cfg, plan: plan, log: logging.Get("watch")}
	printInfo("Watching %s (Ctrl+C to stop)", plan.root)

	g, gctx := errgroup.WithContext(ctx)
	if addr != "" {
		g.Go(func() error { return metrics.Serve(gctx, addr) })
	}
	g.Go(func() error {
		err := loop.run(gctx, debounce)
		// Stop the metrics server with the loop.
		cancel()
		return err
	})
	return g.Wait()
}

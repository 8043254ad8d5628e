package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/jamesainslie/sumtree/cmd/sumtree/tui"
	"github.com/jamesainslie/sumtree/pkg/sumtree/config"
	"github.com/jamesainslie/sumtree/pkg/sumtree/diff"
	"github.com/jamesainslie/sumtree/pkg/sumtree/engine"
	"github.com/jamesainslie/sumtree/pkg/sumtree/history"
	"github.com/jamesainslie/sumtree/pkg/sumtree/manifest"
	"github.com/jamesainslie/sumtree/pkg/sumtree/output"
	"github.com/jamesainslie/sumtree/pkg/sumtree/types"
)

var compareCmd = &cobra.Command{
	Use:   "compare <left> <right>",
	Short: "Hash two directory trees and report their differences",
	Long: `Hash two directory trees concurrently with the same algorithm and
report files that were added, removed or changed between them.

Nothing is written to disk; use generate and diff for a persistent record.`,
	Args: cobra.ExactArgs(2),
	RunE: runCompare,
}

func init() {
	rootCmd.AddCommand(compareCmd)
}

// compareTrees scans and hashes both roots concurrently, then diffs the
// in-memory manifests. The summary is nil unless both sessions succeeded.
func compareTrees(ctx context.Context, cfg *config.Config, s *settings, roots [2]string) ([2]engine.Result, *diff.Summary, error) {
	var results [2]engine.Result

	var sets [2]*types.FileSet
	g, gctx := errgroup.WithContext(ctx)
	for i, root := range roots {
		g.Go(func() error {
			set, err := s.scan(gctx, root)
			if err != nil {
				return fmt.Errorf("scan of %s failed: %w", root, err)
			}
			sets[i] = set
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return results, nil, err
	}

	sessions := make([]tui.Session, len(roots))
	for i, root := range roots {
		set := sets[i]
		sessions[i] = tui.Session{
			Label: root,
			Run: func(ctx context.Context, p engine.Progress) (engine.Result, error) {
				return s.engine(set).Generate(ctx, p)
			},
		}
	}
	outcomes, err := runSessions(ctx, cfg, "compare", sessions)
	if err != nil {
		return results, nil, err
	}
	for i := range outcomes {
		results[i] = outcomes[i].Result
	}
	if !results[0].OK() || !results[1].OK() {
		return results, nil, nil
	}

	var docs [2]*manifest.Document
	for i := range results {
		doc, err := manifest.Parse(strings.NewReader(results[i].Manifest), s.format)
		if err != nil {
			return results, nil, fmt.Errorf("reading generated manifest: %w", err)
		}
		docs[i] = doc
	}
	summary := diff.Compare(docs[0], docs[1], s.format, s.format)
	return results, &summary, nil
}

func runCompare(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	var roots [2]string
	for i := range roots {
		if roots[i], err = resolveDir(args[i]); err != nil {
			return err
		}
	}
	s, err := newSettings(cfg, "")
	if err != nil {
		return err
	}

	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	started := time.Now()
	results, summary, err := compareTrees(ctx, cfg, s, roots)
	if err != nil {
		return err
	}

	report := &output.Report{Operation: "compare", Diff: summary}
	for i, res := range results {
		report.Sessions = append(report.Sessions, output.NewSession(roots[i], "", res))
	}
	if summary != nil && summary.AlgorithmMismatch {
		report.Warnings = append(report.Warnings, "manifests announce different algorithms")
	}

	rec := newRecord(history.OpCompare, roots[0], roots[1], started, combine(results))
	if summary != nil && !summary.Identical() {
		rec.Outcome = engine.OutcomeFailed.String()
		rec.Detail = fmt.Sprintf("added %d, removed %d, changed %d",
			len(summary.Added), len(summary.Removed), len(summary.Changed))
	}
	recordHistory(cfg, rec)

	if !getQuiet() || !report.OK() {
		if err := printReport(os.Stdout, cfg, report); err != nil {
			return err
		}
	}
	return exitFor(report, results[:]...)
}

// combine folds two session results into one history entry: the first
// unsuccessful result wins, totals are summed.
func combine(results [2]engine.Result) engine.Result {
	out := results[0]
	if out.OK() && !results[1].OK() {
		out = results[1]
	}
	out.FilesHashed = results[0].FilesHashed + results[1].FilesHashed
	out.BytesHashed = results[0].BytesHashed + results[1].BytesHashed
	out.Elapsed = max(results[0].Elapsed, results[1].Elapsed)
	return out
}

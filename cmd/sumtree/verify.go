package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/jamesainslie/sumtree/cmd/sumtree/tui"
	"github.com/jamesainslie/sumtree/pkg/sumtree/config"
	"github.com/jamesainslie/sumtree/pkg/sumtree/engine"
	"github.com/jamesainslie/sumtree/pkg/sumtree/history"
	"github.com/jamesainslie/sumtree/pkg/sumtree/output"
)

var verifyCmd = &cobra.Command{
	Use:   "verify <dir> [manifest]",
	Short: "Check a directory tree against a manifest",
	Long: `Re-hash a directory tree and compare it line by line with a manifest.

Without a manifest argument, <dir>/<dir name>.md5 and then .sfv are tried.
Use - to read the manifest from stdin. Verification stops at the first
difference and reports the file, the manifest line and both values.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runVerify,
}

func init() {
	rootCmd.AddCommand(verifyCmd)
}

// verifyPlan is a resolved verify invocation.
type verifyPlan struct {
	root     string
	manifest string
	s        *settings
}

func planVerify(cfg *config.Config, args []string) (*verifyPlan, error) {
	root, err := resolveDir(args[0])
	if err != nil {
		return nil, err
	}

	var path string
	switch {
	case len(args) > 1 && args[1] == stdoutPath:
		path = stdoutPath
	case len(args) > 1:
		expanded, err := config.ExpandPath(args[1])
		if err != nil {
			return nil, fmt.Errorf("failed to expand path: %w", err)
		}
		if path, err = filepath.Abs(expanded); err != nil {
			return nil, fmt.Errorf("failed to resolve path: %w", err)
		}
	default:
		if path, err = findManifest(root); err != nil {
			return nil, err
		}
	}

	formatHint := path
	if path == stdoutPath {
		formatHint = ""
	}
	s, err := newSettings(cfg, formatHint)
	if err != nil {
		return nil, err
	}
	if path != stdoutPath {
		if err := s.prepareVerify(path); err != nil {
			return nil, err
		}
	}
	return &verifyPlan{root: root, manifest: path, s: s}, nil
}

func (v *verifyPlan) fromStdin() bool {
	return v.manifest == stdoutPath
}

func (v *verifyPlan) run(ctx context.Context, cfg *config.Config, stdin io.Reader) (engine.Result, error) {
	set, err := v.s.scan(ctx, v.root)
	if err != nil {
		return engine.Result{}, fmt.Errorf("scan failed: %w", err)
	}

	run := func(ctx context.Context, p engine.Progress) (engine.Result, error) {
		e := v.s.engine(set)
		if v.fromStdin() {
			return e.VerifyReader(ctx, stdin, p)
		}
		return e.Verify(ctx, v.manifest, p)
	}

	outcomes, err := runSessions(ctx, cfg, "verify", []tui.Session{{Label: v.root, Run: run}})
	if err != nil {
		return engine.Result{}, err
	}
	return outcomes[0].Result, nil
}

func runVerify(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	plan, err := planVerify(cfg, args)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	started := time.Now()
	res, err := plan.run(ctx, cfg, os.Stdin)
	if err != nil {
		return err
	}

	manifestPath := plan.manifest
	if plan.fromStdin() {
		manifestPath = "(stdin)"
	}
	recordHistory(cfg, newRecord(history.OpVerify, plan.root, manifestPath, started, res))

	report := &output.Report{
		Operation: "verify",
		Sessions:  []output.Session{output.NewSession(plan.root, manifestPath, res)},
	}
	if !getQuiet() || !report.OK() {
		if err := printReport(os.Stdout, cfg, report); err != nil {
			return err
		}
	}
	return exitFor(report, res)
}

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
	"github.com/jamesainslie/sumtree/pkg/sumtree/types"
)

const stdoutPath = "-"

var generateCmd = &cobra.Command{
	Use:   "generate <dir>",
	Short: "Hash a directory tree into a manifest",
	Long: `Hash every file under a directory and write a checksum manifest.

The manifest is written to <dir>/<dir name>.md5 (or .sfv) unless --write
names another file. Use --write - to print it on stdout. The manifest file
itself is never part of the hashed set.`,
	Args: cobra.ExactArgs(1),
	RunE: runGenerate,
}

var generateWrite string

func init() {
	generateCmd.Flags().StringVarP(&generateWrite, "write", "w", "", "manifest path, or - for stdout")
	rootCmd.AddCommand(generateCmd)
}

// generatePlan is a resolved generate invocation.
type generatePlan struct {
	root   string
	target string
	s      *settings
}

func planGenerate(cfg *config.Config, dir, write string) (*generatePlan, error) {
	root, err := resolveDir(dir)
	if err != nil {
		return nil, err
	}

	target := write
	if target != "" && target != stdoutPath {
		expanded, err := config.ExpandPath(target)
		if err != nil {
			return nil, fmt.Errorf("failed to expand path: %w", err)
		}
		if target, err = filepath.Abs(expanded); err != nil {
			return nil, fmt.Errorf("failed to resolve path: %w", err)
		}
	}

	formatHint := target
	if target == stdoutPath {
		formatHint = ""
	}
	s, err := newSettings(cfg, formatHint)
	if err != nil {
		return nil, err
	}
	if target == "" {
		target = defaultManifestPath(root, s.format)
	}
	return &generatePlan{root: root, target: target, s: s}, nil
}

func (g *generatePlan) toStdout() bool {
	return g.target == stdoutPath
}

// run scans and hashes the tree. The manifest is not written.
func (g *generatePlan) run(ctx context.Context, cfg *config.Config) (engine.Result, error) {
	var drop []string
	if !g.toStdout() {
		drop = append(drop, g.target)
	}
	set, err := g.s.scan(ctx, g.root, drop...)
	if err != nil {
		return engine.Result{}, fmt.Errorf("scan failed: %w", err)
	}
	printVerbose("Hashing %d files (%s) with %s", set.Len(), types.FormatSize(set.TotalSize()), g.s.alg.Name)

	outcomes, err := runSessions(ctx, cfg, "generate", []tui.Session{{
		Label: g.root,
		Run: func(ctx context.Context, p engine.Progress) (engine.Result, error) {
			return g.s.engine(set).Generate(ctx, p)
		},
	}})
	if err != nil {
		return engine.Result{}, err
	}
	return outcomes[0].Result, nil
}

// commit writes a successful manifest to its target.
func (g *generatePlan) commit(res engine.Result, stdout io.Writer) error {
	if !res.OK() {
		return nil
	}
	if g.toStdout() {
		_, err := io.WriteString(stdout, res.Manifest)
		return err
	}
	return writeManifest(g.target, res.Manifest)
}

func runGenerate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	plan, err := planGenerate(cfg, args[0], generateWrite)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	started := time.Now()
	res, err := plan.run(ctx, cfg)
	if err != nil {
		return err
	}
	if err := plan.commit(res, os.Stdout); err != nil {
		return err
	}

	manifestPath := plan.target
	if plan.toStdout() {
		manifestPath = ""
	}
	recordHistory(cfg, newRecord(history.OpGenerate, plan.root, manifestPath, started, res))

	report := &output.Report{
		Operation: "generate",
		Sessions:  []output.Session{output.NewSession(plan.root, manifestPath, res)},
	}
	// Keep stdout clean for the manifest itself.
	reportOut := io.Writer(os.Stdout)
	if plan.toStdout() {
		reportOut = os.Stderr
	}
	if !getQuiet() || !report.OK() {
		if err := printReport(reportOut, cfg, report); err != nil {
			return err
		}
	}
	return exitFor(report, res)
}

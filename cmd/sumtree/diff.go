package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jamesainslie/sumtree/pkg/sumtree/diff"
	"github.com/jamesainslie/sumtree/pkg/sumtree/manifest"
	"github.com/jamesainslie/sumtree/pkg/sumtree/output"
)

var diffCmd = &cobra.Command{
	Use:   "diff <a> <b>",
	Short: "Compare two manifests",
	Long: `Compare two manifest files by path and report added, removed and
changed entries. Unlike verify, every difference is listed.

With --patch, a unified diff of the data lines is printed as well.`,
	Args: cobra.ExactArgs(2),
	RunE: runDiff,
}

var (
	diffPatch   bool
	diffContext int
)

func init() {
	diffCmd.Flags().BoolVarP(&diffPatch, "patch", "p", false, "include a unified diff of the manifest lines")
	diffCmd.Flags().IntVarP(&diffContext, "context", "U", 3, "context lines in the unified diff")
	rootCmd.AddCommand(diffCmd)
}

// loadManifest parses path in the configured format, or the one its
// extension implies.
func loadManifest(formatName, path string) (*manifest.Document, manifest.Format, error) {
	format, err := resolveFormat(formatName, path)
	if err != nil {
		return nil, nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("opening manifest: %w", err)
	}
	defer f.Close()

	doc, err := manifest.Parse(f, format)
	if err != nil {
		return nil, nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return doc, format, nil
}

// diffManifests builds the report for two manifest files.
func diffManifests(formatName, a, b string, patch bool, context int) (*output.Report, error) {
	docA, fa, err := loadManifest(formatName, a)
	if err != nil {
		return nil, err
	}
	docB, fb, err := loadManifest(formatName, b)
	if err != nil {
		return nil, err
	}

	summary := diff.Compare(docA, docB, fa, fb)
	report := &output.Report{Operation: "diff", Diff: &summary}
	if summary.AlgorithmMismatch {
		report.Warnings = append(report.Warnings, "manifests announce different algorithms")
	}
	if fa.Name() != fb.Name() {
		report.Warnings = append(report.Warnings,
			fmt.Sprintf("comparing %s manifest with %s manifest", fa.Name(), fb.Name()))
	}

	if patch {
		text, err := diff.Unified(a, b, diff.DataText(docA), diff.DataText(docB), diff.Options{Context: context})
		if err != nil {
			return nil, fmt.Errorf("building patch: %w", err)
		}
		report.Patch = text
	}
	return report, nil
}

func runDiff(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	report, err := diffManifests(cfg.Format, args[0], args[1], diffPatch, diffContext)
	if err != nil {
		return err
	}
	if !getQuiet() || !report.OK() {
		if err := printReport(os.Stdout, cfg, report); err != nil {
			return err
		}
	}
	return exitFor(report)
}

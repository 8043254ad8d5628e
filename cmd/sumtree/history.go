package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jamesainslie/sumtree/pkg/sumtree/config"
	"github.com/jamesainslie/sumtree/pkg/sumtree/history"
	"github.com/jamesainslie/sumtree/pkg/sumtree/types"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "View past runs",
	Long: `View the history of generate, verify, compare and watch runs.

Each run is stored with its outcome, totals and, for failures, the first
difference found.`,
	RunE: runHistory,
}

var historyShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show details of a specific run",
	Long:  `Display a run by its ID or a unique ID prefix.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runHistoryShow,
}

var historyCleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Remove runs older than the retention period",
	RunE:  runHistoryClean,
}

var historyLimit int

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "l", 20, "maximum number of entries to show")

	historyCmd.AddCommand(historyShowCmd)
	historyCmd.AddCommand(historyCleanCmd)
	rootCmd.AddCommand(historyCmd)
}

// openHistory opens the configured store, falling back to the default
// location when the configuration cannot be loaded.
func openHistory() (*history.Store, *config.Config, error) {
	cfg, err := loadConfig()
	if err != nil {
		printVerbose("Using default history location: %v", err)
		store, err := history.Open(config.DefaultHistoryPath())
		return store, nil, err
	}
	store, err := history.Open(cfg.History.Path)
	return store, cfg, err
}

func runHistory(cmd *cobra.Command, args []string) error {
	store, _, err := openHistory()
	if err != nil {
		return fmt.Errorf("failed to open history: %w", err)
	}
	defer store.Close()

	records, err := store.List(historyLimit)
	if err != nil {
		return fmt.Errorf("failed to list history: %w", err)
	}
	if len(records) == 0 {
		printInfo("No history entries found.")
		printInfo("Run 'sumtree generate <dir>' to record one.")
		return nil
	}

	printHistoryTable(os.Stdout, records)
	fmt.Println("\nUse 'sumtree history show <id>' for details on a specific entry.")
	return nil
}

func printHistoryTable(w io.Writer, records []*history.Record) {
	fmt.Fprintf(w, "%-8s  %-19s  %-8s  %-9s  %-8s  %-10s  %s\n",
		"ID", "STARTED", "OP", "OUTCOME", "FILES", "SIZE", "ROOT")
	fmt.Fprintln(w, strings.Repeat("-", 96))
	for _, r := range records {
		fmt.Fprintf(w, "%-8s  %-19s  %-8s  %-9s  %-8d  %-10s  %s\n",
			r.ShortID(),
			r.StartedAt.Local().Format("2006-01-02 15:04:05"),
			r.Operation,
			r.Outcome,
			r.Files,
			types.FormatSize(r.Bytes),
			truncateString(r.Root, 40),
		)
	}
}

func printHistoryRecord(w io.Writer, r *history.Record) {
	fmt.Fprintln(w, "Run Details")
	fmt.Fprintln(w, strings.Repeat("=", 60))
	fmt.Fprintf(w, "ID:         %s\n", r.ID)
	fmt.Fprintf(w, "Started:    %s\n", r.StartedAt.Local().Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintf(w, "Operation:  %s\n", r.Operation)
	fmt.Fprintf(w, "Root:       %s\n", r.Root)
	if r.Manifest != "" {
		fmt.Fprintf(w, "Manifest:   %s\n", r.Manifest)
	}
	fmt.Fprintf(w, "Algorithm:  %s (%s)\n", r.Algorithm, r.Format)
	fmt.Fprintf(w, "Outcome:    %s\n", r.Outcome)
	if r.Reason != "" {
		fmt.Fprintf(w, "Reason:     %s\n", r.Reason)
	}
	fmt.Fprintf(w, "Files:      %d\n", r.Files)
	fmt.Fprintf(w, "Size:       %s\n", types.FormatSize(r.Bytes))
	fmt.Fprintf(w, "Elapsed:    %s\n", r.Elapsed)
	if r.Detail != "" {
		fmt.Fprintf(w, "Detail:     %s\n", r.Detail)
	}
}

func runHistoryShow(cmd *cobra.Command, args []string) error {
	store, _, err := openHistory()
	if err != nil {
		return fmt.Errorf("failed to open history: %w", err)
	}
	defer store.Close()

	rec, err := store.Get(args[0])
	if err != nil {
		return fmt.Errorf("failed to get entry: %w", err)
	}
	printHistoryRecord(os.Stdout, rec)
	return nil
}

func runHistoryClean(cmd *cobra.Command, args []string) error {
	store, cfg, err := openHistory()
	if err != nil {
		return fmt.Errorf("failed to open history: %w", err)
	}
	defer store.Close()

	retentionDays := config.DefaultRetentionDays
	if cfg != nil && cfg.History.RetentionDays > 0 {
		retentionDays = cfg.History.RetentionDays
	}

	printInfo("Cleaning history entries older than %d days...", retentionDays)
	n, err := store.Cleanup(retentionDays)
	if err != nil {
		return fmt.Errorf("failed to clean history: %w", err)
	}
	printInfo("Removed %d entries.", n)
	return nil
}

// truncateString shortens s to maxLen, keeping the end, which is the
// distinctive part of a path.
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[len(s)-maxLen:]
	}
	return "..." + s[len(s)-maxLen+3:]
}

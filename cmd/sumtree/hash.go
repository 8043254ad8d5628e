package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/jamesainslie/sumtree/pkg/sumtree/hasher"
	"github.com/jamesainslie/sumtree/pkg/sumtree/output"
)

var hashCmd = &cobra.Command{
	Use:   "hash <file>...",
	Short: "Print the digest of individual files",
	Long: `Hash files with the configured algorithm and print one digest per file,
in the same layout as an md5sum manifest. Use - to hash stdin.

Digest styles: hex (default), HEX or upper, colon, space, base64.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runHash,
}

var hashStyle string

func init() {
	hashCmd.Flags().StringVar(&hashStyle, "style", "hex", "digest style")
	rootCmd.AddCommand(hashCmd)
}

// hashFiles digests every path in order. A failure on one file is recorded
// in its entry and does not stop the others.
func hashFiles(ctx context.Context, h *hasher.Hasher, style hasher.Style, paths []string, stdin io.Reader) []output.Digest {
	out := make([]output.Digest, 0, len(paths))
	for _, p := range paths {
		if ctx.Err() != nil {
			break
		}
		d := output.Digest{Path: p, Algorithm: h.Algorithm().Name}

		var res hasher.Result
		if p == stdoutPath {
			res = h.Reader(ctx, stdin, -1, style, nil)
		} else {
			res = h.File(ctx, p, style, nil)
		}
		switch res.Status {
		case hasher.StatusCompleted:
			d.Digest = res.Digest
		case hasher.StatusCancelled:
			d.Error = "cancelled"
		default:
			d.Error = res.Err.Error()
		}
		d.Bytes = res.Bytes
		out = append(out, d)
	}
	return out
}

func runHash(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	style, err := hasher.ParseStyle(hashStyle)
	if err != nil {
		return err
	}
	s, err := newSettings(cfg, "")
	if err != nil {
		return err
	}
	h, err := hasher.New(s.alg, hasher.Options{Key: s.key, ChunkSize: s.chunk, Limiter: s.limiter()})
	if err != nil {
		return err
	}

	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	report := &output.Report{
		Operation: "hash",
		Digests:   hashFiles(ctx, h, style, args, os.Stdin),
	}
	if err := printReport(os.Stdout, cfg, report); err != nil {
		return err
	}
	if ctx.Err() != nil {
		return &exitError{code: exitCancelled}
	}
	return exitFor(report)
}

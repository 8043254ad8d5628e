package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/jamesainslie/sumtree/pkg/sumtree/hasher"
	"github.com/jamesainslie/sumtree/pkg/sumtree/manifest"
)

var algorithmsCmd = &cobra.Command{
	Use:     "algorithms",
	Aliases: []string{"algs"},
	Short:   "List supported hash algorithms and manifest formats",
	RunE: func(cmd *cobra.Command, args []string) error {
		return listAlgorithms(cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(algorithmsCmd)
}

func listAlgorithms(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ALGORITHM\tBITS\tHEX\tKEYED")
	for _, alg := range hasher.All() {
		keyed := ""
		if alg.Keyed {
			keyed = "yes"
		}
		fmt.Fprintf(tw, "%s\t%d\t%d\t%s\n", alg.Name, alg.Bits, alg.HexWidth(), keyed)
	}
	fmt.Fprintln(tw)
	fmt.Fprintln(tw, "FORMAT\tEXTENSION\tDEFAULT")
	for _, f := range manifest.Formats() {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", f.Name(), f.Extension(), f.DefaultAlgorithm())
	}
	return tw.Flush()
}

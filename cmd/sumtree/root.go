package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jamesainslie/sumtree/pkg/sumtree/config"
)

var (
	cfgFile   string
	configErr error
	rootCmd   = &cobra.Command{
		Use:   "sumtree",
		Short: "Generate and verify checksum manifests for directory trees",
		Long: `sumtree hashes every file under a directory into a portable manifest
(md5sum or SFV layout) and later verifies the tree against it.

Examples:
  sumtree generate ~/photos                 # write ~/photos/photos.md5
  sumtree generate -a SHA256 -w tree.md5 .  # choose algorithm and output
  sumtree verify ~/photos ~/photos/photos.md5
  sumtree compare /mnt/a /mnt/b             # hash two trees side by side
  sumtree diff old.md5 new.md5 --patch
  sumtree watch ~/photos ~/photos/photos.md5 --metrics-addr :9464`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: initializeLogging,
	}
)

func init() {
	cobra.OnInitialize(initConfig)

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default: ~/.config/sumtree/config.yaml)")
	flags.StringP("algorithm", "a", "", "hash algorithm (see 'sumtree algorithms')")
	flags.StringP("format", "f", "", "manifest format: md5sum or sfv")
	flags.StringP("output", "o", "", "report format: pretty, plain, json, yaml")
	flags.String("chunk-size", "", "read buffer per file (e.g. 1MiB)")
	flags.String("rate-limit", "", "read throttle in bytes per second (e.g. 50MB)")
	flags.BoolP("recursive", "r", true, "descend into subdirectories")
	flags.Bool("hidden", false, "include hidden files and directories")
	flags.Bool("system", false, "include OS metadata files such as Thumbs.db")
	flags.Bool("archive", true, "include files with the archive attribute (Windows)")
	flags.StringSliceP("exclude", "e", nil, "exclude glob patterns (can be repeated)")
	flags.String("key-file", "", "key file for keyed algorithms")
	flags.Bool("no-history", false, "do not record this run in the history")
	flags.Bool("no-tui", false, "disable the interactive progress view")
	flags.BoolP("quiet", "q", false, "minimal output")
	flags.BoolP("verbose", "v", false, "debug output")

	for key, name := range map[string]string{
		"algorithm":       "algorithm",
		"format":          "format",
		"output":          "output",
		"chunk_size":      "chunk-size",
		"rate_limit":      "rate-limit",
		"recursive":       "recursive",
		"include_hidden":  "hidden",
		"include_system":  "system",
		"include_archive": "archive",
		"exclude":         "exclude",
		"key_file":        "key-file",
		"no_history":      "no-history",
		"no_tui":          "no-tui",
		"quiet":           "quiet",
		"verbose":         "verbose",
	} {
		_ = viper.BindPFlag(key, flags.Lookup(name))
	}
}

// initConfig reads in the config file and environment variables.
func initConfig() {
	configErr = config.Configure(viper.GetViper(), cfgFile)
}

// loadConfig decodes the merged flags, environment and config file.
func loadConfig() (*config.Config, error) {
	if configErr != nil {
		return nil, configErr
	}
	return config.Decode(viper.GetViper())
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func getVerbose() bool {
	return viper.GetBool("verbose")
}

func getQuiet() bool {
	return viper.GetBool("quiet")
}

// printVerbose prints a message if verbose mode is enabled.
func printVerbose(format string, args ...any) {
	if getVerbose() && !getQuiet() {
		fmt.Fprintf(os.Stderr, "[DEBUG] "+format+"\n", args...)
	}
}

// printInfo prints a message to stderr unless quiet mode is enabled.
func printInfo(format string, args ...any) {
	if !getQuiet() {
		fmt.Fprintf(os.Stderr, format+"\n", args...)
	}
}

// printError prints an error message to stderr.
func printError(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
}

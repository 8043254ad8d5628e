// Package config loads sumtree settings from the config file, SUMTREE_
// environment variables and command-line flags.
package config

import "time"

// Default configuration values.
//
// An empty algorithm selects the format's own default (MD5 for md5sum,
// CRC32 for sfv). An empty format is taken from the manifest extension.
const (
	DefaultAlgorithm     = ""
	DefaultFormat        = ""
	DefaultChunkSize     = "1MiB"
	DefaultOutput        = "pretty"
	DefaultRetentionDays = 90
	DefaultDebounce      = 2 * time.Second
	DefaultLogLevel      = "info"
	DefaultLogMaxSize    = "10MB"
)

// DefaultExclusions are patterns skipped by every scan unless the config
// file replaces the list.
var DefaultExclusions = []string{
	".git",
	".DS_Store",
}

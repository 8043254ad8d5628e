package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/spf13/viper"

	"github.com/jamesainslie/sumtree/pkg/sumtree/types"
)

const appName = "sumtree"

// RotationConfig configures log file rotation.
type RotationConfig struct {
	MaxSize    string `mapstructure:"max_size"`
	MaxAge     int    `mapstructure:"max_age"`
	MaxBackups int    `mapstructure:"max_backups"`
	Daily      bool   `mapstructure:"daily"`
}

// LoggingConfig configures application logging.
type LoggingConfig struct {
	Level      string            `mapstructure:"level"`
	Path       string            `mapstructure:"path"`
	Rotation   RotationConfig    `mapstructure:"rotation"`
	Components map[string]string `mapstructure:"components"`
}

// HistoryConfig configures the run history database.
type HistoryConfig struct {
	Enabled       bool   `mapstructure:"enabled"`
	Path          string `mapstructure:"path"`
	RetentionDays int    `mapstructure:"retention_days"`
}

// WatchConfig configures `sumtree watch`.
type WatchConfig struct {
	Debounce    time.Duration `mapstructure:"debounce"`
	MetricsAddr string        `mapstructure:"metrics_addr"`
}

// Config represents the application configuration.
type Config struct {
	Algorithm      string        `mapstructure:"algorithm"`
	Format         string        `mapstructure:"format"`
	Output         string        `mapstructure:"output"`
	ChunkSize      string        `mapstructure:"chunk_size"`
	RateLimit      string        `mapstructure:"rate_limit"`
	Recursive      bool          `mapstructure:"recursive"`
	IncludeHidden  bool          `mapstructure:"include_hidden"`
	IncludeSystem  bool          `mapstructure:"include_system"`
	IncludeArchive bool          `mapstructure:"include_archive"`
	Exclude        []string      `mapstructure:"exclude"`
	KeyFile        string        `mapstructure:"key_file"`
	History        HistoryConfig `mapstructure:"history"`
	Watch          WatchConfig   `mapstructure:"watch"`
	Logging        LoggingConfig `mapstructure:"logging"`
}

// ChunkBytes parses ChunkSize. An empty value means the hasher default.
func (c *Config) ChunkBytes() (int, error) {
	if strings.TrimSpace(c.ChunkSize) == "" {
		return 0, nil
	}
	n, err := types.ParseSize(c.ChunkSize)
	if err != nil {
		return 0, fmt.Errorf("chunk_size: %w", err)
	}
	if n <= 0 || n > 1<<30 {
		return 0, fmt.Errorf("chunk_size: %q out of range", c.ChunkSize)
	}
	return int(n), nil
}

// RateBytes parses RateLimit as bytes per second. Empty or zero disables
// throttling.
func (c *Config) RateBytes() (int64, error) {
	s := strings.TrimSpace(c.RateLimit)
	if s == "" || s == "0" {
		return 0, nil
	}
	n, err := types.ParseSize(strings.TrimSuffix(s, "/s"))
	if err != nil {
		return 0, fmt.Errorf("rate_limit: %w", err)
	}
	return n, nil
}

// SetDefaults registers every default on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("algorithm", DefaultAlgorithm)
	v.SetDefault("format", DefaultFormat)
	v.SetDefault("output", DefaultOutput)
	v.SetDefault("chunk_size", DefaultChunkSize)
	v.SetDefault("rate_limit", "")
	v.SetDefault("recursive", true)
	v.SetDefault("include_hidden", false)
	v.SetDefault("include_system", false)
	v.SetDefault("include_archive", true)
	v.SetDefault("exclude", DefaultExclusions)
	v.SetDefault("key_file", "")

	v.SetDefault("history.enabled", true)
	v.SetDefault("history.path", "") // Empty means DefaultHistoryPath
	v.SetDefault("history.retention_days", DefaultRetentionDays)

	v.SetDefault("watch.debounce", DefaultDebounce)
	v.SetDefault("watch.metrics_addr", "")

	v.SetDefault("logging.level", DefaultLogLevel)
	v.SetDefault("logging.path", "") // Empty means logging.DefaultLogPath
	v.SetDefault("logging.rotation.max_size", DefaultLogMaxSize)
	v.SetDefault("logging.rotation.max_age", 30)
	v.SetDefault("logging.rotation.max_backups", 5)
	v.SetDefault("logging.rotation.daily", true)
	v.SetDefault("logging.components", map[string]string{
		"engine":  "info",
		"scanner": "info",
		"watcher": "warn",
		"history": "warn",
		"tui":     "info",
	})
}

// Configure prepares v to read the config file and SUMTREE_ variables.
// cfgFile overrides the search path when set. A missing config file is not
// an error; a malformed one is.
func Configure(v *viper.Viper, cfgFile string) error {
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		dir, err := ConfigDir()
		if err != nil {
			return err
		}
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(dir)
	}

	v.SetEnvPrefix("SUMTREE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	SetDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		if cfgFile == "" && errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}
	return nil
}

// Decode unmarshals v and expands ~ in path settings.
func Decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	for _, p := range []*string{&cfg.KeyFile, &cfg.History.Path, &cfg.Logging.Path} {
		expanded, err := ExpandPath(*p)
		if err != nil {
			return nil, err
		}
		*p = expanded
	}
	if cfg.History.Path == "" {
		cfg.History.Path = DefaultHistoryPath()
	}
	return &cfg, nil
}

// Load reads configuration from the default config file and environment.
func Load() (*Config, error) {
	return LoadFile("")
}

// LoadFile reads configuration from path, or the default location when
// path is empty.
func LoadFile(path string) (*Config, error) {
	v := viper.New()
	if err := Configure(v, path); err != nil {
		return nil, err
	}
	return Decode(v)
}

// ConfigDir returns $XDG_CONFIG_HOME/sumtree, falling back to
// ~/.config/sumtree. The environment is read on every call.
func ConfigDir() (string, error) {
	if xdgConfigHome := os.Getenv("XDG_CONFIG_HOME"); xdgConfigHome != "" {
		return filepath.Join(xdgConfigHome, appName), nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(homeDir, ".config", appName), nil
}

// ConfigPath returns the default config file path.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// DataDir returns $XDG_DATA_HOME/sumtree for the history database.
func DataDir() string {
	return filepath.Join(xdg.DataHome, appName)
}

// StateDir returns $XDG_STATE_HOME/sumtree for log files.
func StateDir() string {
	return filepath.Join(xdg.StateHome, appName)
}

// DefaultHistoryPath returns the default history database directory.
func DefaultHistoryPath() string {
	return filepath.Join(DataDir(), "history")
}

// ExpandPath expands a leading ~ to the user's home directory.
func ExpandPath(path string) (string, error) {
	if !strings.HasPrefix(path, "~") {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(homeDir, path[1:]), nil
}

// WriteDefault writes a commented default config file and returns its path.
// An existing file is left untouched unless force is set.
func WriteDefault(force bool) (string, error) {
	path, err := ConfigPath()
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}

	if !force {
		if _, err := os.Stat(path); err == nil {
			return path, nil
		} else if !os.IsNotExist(err) {
			return "", fmt.Errorf("failed to check config file: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(defaultConfigFile()), 0o644); err != nil {
		return "", fmt.Errorf("failed to write default config: %w", err)
	}
	return path, nil
}

func defaultConfigFile() string {
	return fmt.Sprintf(`# sumtree configuration

# Hash algorithm (see: sumtree algorithms). Empty uses the format default:
# MD5 for md5sum, CRC32 for sfv.
algorithm: "%s"

# Manifest format: md5sum or sfv. Empty picks it from the manifest extension.
format: "%s"

# Report format: pretty, plain, json, yaml
output: %s

# Read buffer size per file
chunk_size: %s

# Read throttle in bytes per second (e.g. 50MB). Empty disables it.
rate_limit: ""

# Directory scan
recursive: true
include_hidden: false
include_system: false
include_archive: true
exclude:
  - .git
  - .DS_Store

# Key for HMAC and keyed BLAKE2b. SUMTREE_KEY is used when unset.
key_file: ""

history:
  enabled: true
  # Empty means $XDG_DATA_HOME/sumtree/history
  path: ""
  retention_days: %d

watch:
  debounce: %s
  # Prometheus listen address, e.g. 127.0.0.1:9464. Empty disables it.
  metrics_addr: ""

logging:
  # debug, info, warn, error
  level: %s
  # Empty means $XDG_STATE_HOME/sumtree/sumtree.log
  path: ""
  rotation:
    max_size: %s
    max_age: 30       # days
    max_backups: 5
    daily: true
  components:
    engine: info
    scanner: info
    watcher: warn
    history: warn
    tui: info
`, DefaultAlgorithm, DefaultFormat, DefaultOutput, DefaultChunkSize,
		DefaultRetentionDays, DefaultDebounce, DefaultLogLevel, DefaultLogMaxSize)
}

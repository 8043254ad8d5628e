package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate points HOME and XDG_CONFIG_HOME at a fresh directory.
func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("XDG_CONFIG_HOME", "")
	return home
}

func writeConfig(t *testing.T, home, content string) string {
	t.Helper()
	dir := filepath.Join(home, ".config", "sumtree")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	isolate(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, DefaultAlgorithm, cfg.Algorithm)
	assert.Equal(t, DefaultFormat, cfg.Format)
	assert.Equal(t, DefaultOutput, cfg.Output)
	assert.Equal(t, DefaultChunkSize, cfg.ChunkSize)
	assert.Empty(t, cfg.RateLimit)
	assert.True(t, cfg.Recursive)
	assert.False(t, cfg.IncludeHidden)
	assert.False(t, cfg.IncludeSystem)
	assert.True(t, cfg.IncludeArchive)
	assert.Equal(t, DefaultExclusions, cfg.Exclude)

	assert.True(t, cfg.History.Enabled)
	assert.Equal(t, DefaultRetentionDays, cfg.History.RetentionDays)
	assert.Equal(t, DefaultHistoryPath(), cfg.History.Path)

	assert.Equal(t, DefaultDebounce, cfg.Watch.Debounce)
	assert.Empty(t, cfg.Watch.MetricsAddr)

	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "10MB", cfg.Logging.Rotation.MaxSize)
	assert.Equal(t, 30, cfg.Logging.Rotation.MaxAge)
	assert.Equal(t, 5, cfg.Logging.Rotation.MaxBackups)
	assert.True(t, cfg.Logging.Rotation.Daily)
	assert.Equal(t, "warn", cfg.Logging.Components["watcher"])
}

func TestLoad_FromFile(t *testing.T) {
	home := isolate(t)
	writeConfig(t, home, `
algorithm: SHA256
format: sfv
chunk_size: 64K
rate_limit: 20MB/s
recursive: false
include_hidden: true
exclude:
  - "*.tmp"
key_file: ~/keys/sumtree.key
history:
  enabled: false
  path: ~/hist
  retention_days: 7
watch:
  debounce: 500ms
  metrics_addr: 127.0.0.1:9464
logging:
  level: debug
  components:
    engine: debug
`)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "SHA256", cfg.Algorithm)
	assert.Equal(t, "sfv", cfg.Format)
	assert.False(t, cfg.Recursive)
	assert.True(t, cfg.IncludeHidden)
	assert.Equal(t, []string{"*.tmp"}, cfg.Exclude)
	assert.Equal(t, filepath.Join(home, "keys", "sumtree.key"), cfg.KeyFile)
	assert.False(t, cfg.History.Enabled)
	assert.Equal(t, filepath.Join(home, "hist"), cfg.History.Path)
	assert.Equal(t, 7, cfg.History.RetentionDays)
	assert.Equal(t, 500*time.Millisecond, cfg.Watch.Debounce)
	assert.Equal(t, "127.0.0.1:9464", cfg.Watch.MetricsAddr)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "debug", cfg.Logging.Components["engine"])

	chunk, err := cfg.ChunkBytes()
	require.NoError(t, err)
	assert.Equal(t, 64*1024, chunk)

	rate, err := cfg.RateBytes()
	require.NoError(t, err)
	assert.Equal(t, int64(20<<20), rate)
}

func TestLoad_XDGConfigHome(t *testing.T) {
	isolate(t)
	xdgHome := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", xdgHome)

	dir := filepath.Join(xdgHome, "sumtree")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("algorithm: XXH64\n"), 0o644))

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "XXH64", cfg.Algorithm)
}

func TestLoad_EnvOverride(t *testing.T) {
	home := isolate(t)
	writeConfig(t, home, "algorithm: SHA1\n")
	t.Setenv("SUMTREE_ALGORITHM", "BLAKE2b-256")
	t.Setenv("SUMTREE_HISTORY_RETENTION_DAYS", "3")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "BLAKE2b-256", cfg.Algorithm)
	assert.Equal(t, 3, cfg.History.RetentionDays)
}

func TestLoad_MalformedFile(t *testing.T) {
	home := isolate(t)
	writeConfig(t, home, "algorithm: [unterminated\n")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoadFile(t *testing.T) {
	isolate(t)

	path := filepath.Join(t.TempDir(), "custom.yaml")
	require.NoError(t, os.WriteFile(path, []byte("format: sfv\n"), 0o644))

	cfg, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "sfv", cfg.Format)
	assert.Equal(t, DefaultAlgorithm, cfg.Algorithm)

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestConfigure_FlagsBoundOnSameViper(t *testing.T) {
	isolate(t)

	v := viper.New()
	require.NoError(t, Configure(v, ""))
	v.Set("algorithm", "SHA512")

	cfg, err := Decode(v)
	require.NoError(t, err)
	assert.Equal(t, "SHA512", cfg.Algorithm)
}

func TestChunkBytes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{"", 0, false},
		{"1MiB", 1 << 20, false},
		{"4096", 4096, false},
		{"0", 0, true},
		{"2G", 0, true},
		{"lots", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := (&Config{ChunkSize: tt.in}).ChunkBytes()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRateBytes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		want    int64
		wantErr bool
	}{
		{"", 0, false},
		{"0", 0, false},
		{"1M", 1 << 20, false},
		{"512K/s", 512 << 10, false},
		{"fast", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := (&Config{RateLimit: tt.in}).RateBytes()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestConfigDir(t *testing.T) {
	home := isolate(t)

	dir, err := ConfigDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".config", "sumtree"), dir)

	t.Setenv("XDG_CONFIG_HOME", "/custom/config")
	dir, err = ConfigDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/custom/config", "sumtree"), dir)
}

func TestWriteDefault(t *testing.T) {
	isolate(t)

	path, err := WriteDefault(false)
	require.NoError(t, err)
	assert.FileExists(t, path)

	// The written file must decode to the built-in defaults.
	fromFile, err := Load()
	require.NoError(t, err)
	assert.Equal(t, DefaultAlgorithm, fromFile.Algorithm)
	assert.Equal(t, DefaultExclusions, fromFile.Exclude)
	assert.Equal(t, DefaultDebounce, fromFile.Watch.Debounce)
	assert.Equal(t, DefaultRetentionDays, fromFile.History.RetentionDays)

	// Existing files are preserved unless forced.
	require.NoError(t, os.WriteFile(path, []byte("algorithm: SHA1\n"), 0o644))
	_, err = WriteDefault(false)
	require.NoError(t, err)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "algorithm: SHA1\n", string(data))

	_, err = WriteDefault(true)
	require.NoError(t, err)
	data, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "# sumtree configuration"))
}

func TestExpandPath(t *testing.T) {
	home := isolate(t)

	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"/abs/path", "/abs/path"},
		{"relative", "relative"},
		{"~", home},
		{"~/keys/k", filepath.Join(home, "keys", "k")},
	}
	for _, tt := range tests {
		got, err := ExpandPath(tt.in)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestXDGDirs(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "sumtree", filepath.Base(DataDir()))
	assert.Equal(t, "sumtree", filepath.Base(StateDir()))
	assert.Equal(t, filepath.Join(DataDir(), "history"), DefaultHistoryPath())
}

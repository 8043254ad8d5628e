package main

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jamesainslie/sumtree/pkg/sumtree/config"
	"github.com/jamesainslie/sumtree/pkg/sumtree/engine"
	"github.com/jamesainslie/sumtree/pkg/sumtree/hasher"
	"github.com/jamesainslie/sumtree/pkg/sumtree/history"
	"github.com/jamesainslie/sumtree/pkg/sumtree/manifest"
)

// testConfig never starts the progress view.
func testConfig() *config.Config {
	return &config.Config{
		Output:         "plain",
		Recursive:      true,
		IncludeArchive: true,
	}
}

func writeTree(t *testing.T, files map[string]string) string {
	t.Helper()
	root := filepath.Join(t.TempDir(), "tree")
	for name, content := range files {
		path := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return root
}

func TestGenerateThenVerify(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	cfg := testConfig()

	root := writeTree(t, map[string]string{
		"a.txt":     "hello",
		"sub/b.txt": "world",
		"empty.txt": "",
	})

	gen, err := planGenerate(cfg, root, "")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "tree.md5"), gen.target)

	res, err := gen.run(ctx, cfg)
	require.NoError(t, err)
	require.Equal(t, engine.OutcomeSuccess, res.Outcome)
	assert.Equal(t, 2, res.FilesHashed)
	require.NoError(t, gen.commit(res, io.Discard))

	data, err := os.ReadFile(gen.target)
	require.NoError(t, err)
	assert.Contains(t, string(data), "5d41402abc4b2a76b9719d911017c592  a.txt")
	assert.Contains(t, string(data), "sub/b.txt")
	assert.NotContains(t, string(data), "tree.md5")

	ver, err := planVerify(cfg, []string{root})
	require.NoError(t, err)
	assert.Equal(t, gen.target, ver.manifest)

	res, err = ver.run(ctx, cfg, nil)
	require.NoError(t, err)
	assert.Equal(t, engine.OutcomeSuccess, res.Outcome)

	// Same length, different content.
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.txt"), []byte("HELLO"), 0o644))
	ver, err = planVerify(cfg, []string{root, gen.target})
	require.NoError(t, err)
	res, err = ver.run(ctx, cfg, nil)
	require.NoError(t, err)
	assert.Equal(t, engine.OutcomeFailed, res.Outcome)
	assert.Equal(t, engine.ReasonDigestMismatch, res.Reason)
	assert.Equal(t, "a.txt", res.Path)
}

func TestGenerateSFVToStdout(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	cfg := testConfig()
	cfg.Format = "sfv"

	root := writeTree(t, map[string]string{"a.txt": "hello"})

	gen, err := planGenerate(cfg, root, stdoutPath)
	require.NoError(t, err)
	assert.True(t, gen.toStdout())
	assert.Equal(t, "CRC32", gen.s.alg.Name)

	res, err := gen.run(ctx, cfg)
	require.NoError(t, err)
	require.True(t, res.OK())

	var out bytes.Buffer
	require.NoError(t, gen.commit(res, &out))
	assert.Contains(t, out.String(), "a.txt 3610a686")

	entries, err := os.ReadDir(root)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "nothing is written into the tree")
}

func TestVerifyFromReader(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	cfg := testConfig()

	root := writeTree(t, map[string]string{"a.txt": "hello"})
	ver, err := planVerify(cfg, []string{root, stdoutPath})
	require.NoError(t, err)
	assert.True(t, ver.fromStdin())

	res, err := ver.run(ctx, cfg, strings.NewReader("5d41402abc4b2a76b9719d911017c592  a.txt\n"))
	require.NoError(t, err)
	assert.Equal(t, engine.OutcomeSuccess, res.Outcome)
}

func TestVerifyMissingManifest(t *testing.T) {
	t.Parallel()

	root := writeTree(t, map[string]string{"a.txt": "hello"})
	_, err := planVerify(testConfig(), []string{root})
	assert.ErrorContains(t, err, "no manifest found")
}

func TestCompareTrees(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	cfg := testConfig()

	left := writeTree(t, map[string]string{"a.txt": "one", "b.txt": "two", "gone.txt": "x"})
	right := writeTree(t, map[string]string{"a.txt": "one", "b.txt": "TWO", "new.txt": "y"})

	s, err := newSettings(cfg, "")
	require.NoError(t, err)

	results, summary, err := compareTrees(ctx, cfg, s, [2]string{left, right})
	require.NoError(t, err)
	assert.True(t, results[0].OK())
	assert.True(t, results[1].OK())
	require.NotNil(t, summary)

	assert.Equal(t, []string{"new.txt"}, summary.Added)
	assert.Equal(t, []string{"gone.txt"}, summary.Removed)
	require.Len(t, summary.Changed, 1)
	assert.Equal(t, "b.txt", summary.Changed[0].Path)
	assert.Equal(t, 1, summary.Unchanged)

	combined := combine(results)
	assert.Equal(t, 6, combined.FilesHashed)
	assert.Equal(t, engine.OutcomeSuccess, combined.Outcome)
}

func TestCombinePrefersFailure(t *testing.T) {
	t.Parallel()

	got := combine([2]engine.Result{
		{Outcome: engine.OutcomeSuccess, FilesHashed: 1, Elapsed: time.Second},
		{Outcome: engine.OutcomeError, FilesHashed: 2, Elapsed: 2 * time.Second},
	})
	assert.Equal(t, engine.OutcomeError, got.Outcome)
	assert.Equal(t, 3, got.FilesHashed)
	assert.Equal(t, 2*time.Second, got.Elapsed)
}

func writeManifestFile(t *testing.T, path string, f manifest.Format, entries []manifest.Entry) {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, manifest.Write(&buf, f, []string{"test"}, entries))
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
}

func TestDiffManifests(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	a := filepath.Join(dir, "a.md5")
	b := filepath.Join(dir, "b.md5")
	writeManifestFile(t, a, manifest.MD5Sum{}, []manifest.Entry{
		{Digest: "aaaa", Path: "keep.txt"},
		{Digest: "bbbb", Path: "change.txt"},
		{Digest: "cccc", Path: "old.txt"},
	})
	writeManifestFile(t, b, manifest.MD5Sum{}, []manifest.Entry{
		{Digest: "AAAA", Path: "keep.txt"},
		{Digest: "dddd", Path: "change.txt"},
		{Digest: "eeee", Path: "new.txt"},
	})

	report, err := diffManifests("", a, b, true, 1)
	require.NoError(t, err)
	require.NotNil(t, report.Diff)
	assert.Equal(t, []string{"new.txt"}, report.Diff.Added)
	assert.Equal(t, []string{"old.txt"}, report.Diff.Removed)
	assert.Equal(t, 1, report.Diff.Unchanged)
	assert.False(t, report.OK())
	assert.Contains(t, report.Patch, "-bbbb  change.txt")
	assert.Contains(t, report.Patch, "+dddd  change.txt")

	report, err = diffManifests("", a, a, false, 0)
	require.NoError(t, err)
	assert.True(t, report.OK())
	assert.Empty(t, report.Patch)

	_, err = diffManifests("", a, filepath.Join(dir, "missing.md5"), false, 0)
	assert.Error(t, err)
}

func TestDiffManifestsMixedFormats(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	a := filepath.Join(dir, "tree.md5")
	b := filepath.Join(dir, "tree.sfv")
	writeManifestFile(t, a, manifest.MD5Sum{}, []manifest.Entry{{Digest: "3610a686", Path: "a.txt"}})
	writeManifestFile(t, b, manifest.SFV{}, []manifest.Entry{{Digest: "3610A686", Path: "a.txt"}})

	report, err := diffManifests("", a, b, false, 0)
	require.NoError(t, err)
	assert.True(t, report.Diff.Identical())
	require.Len(t, report.Warnings, 1)
	assert.Contains(t, report.Warnings[0], "sfv")
}

func TestHashFiles(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "hello.txt")
	require.NoError(t, os.WriteFile(path, []byte("hello"), 0o644))

	alg, err := hasher.MustLookup("MD5")
	require.NoError(t, err)
	h, err := hasher.New(alg, hasher.Options{})
	require.NoError(t, err)

	paths := []string{path, filepath.Join(dir, "missing"), stdoutPath}
	digests := hashFiles(context.Background(), h, hasher.StyleHexUpper, paths, strings.NewReader("hello"))
	require.Len(t, digests, 3)

	assert.Equal(t, "5D41402ABC4B2A76B9719D911017C592", digests[0].Digest)
	assert.Equal(t, int64(5), digests[0].Bytes)
	assert.Equal(t, "MD5", digests[0].Algorithm)

	assert.Empty(t, digests[1].Digest)
	assert.NotEmpty(t, digests[1].Error)

	assert.Equal(t, digests[0].Digest, digests[2].Digest)
}

func TestHashFilesCancelled(t *testing.T) {
	t.Parallel()

	alg, err := hasher.MustLookup("SHA256")
	require.NoError(t, err)
	h, err := hasher.New(alg, hasher.Options{})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Empty(t, hashFiles(ctx, h, hasher.Canonical, []string{"a", "b"}, nil))
}

func TestListAlgorithms(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, listAlgorithms(&buf))
	out := buf.String()

	for _, name := range hasher.Names() {
		assert.Contains(t, out, name)
	}
	assert.Contains(t, out, ".sfv")
	assert.Regexp(t, `HMAC-SHA256\s+256\s+64\s+yes`, out)
	assert.Regexp(t, `(?m)^CRC32\s+32\s+8\b`, out)
}

func TestShowConfig(t *testing.T) {
	t.Parallel()

	v := viper.New()
	v.Set("algorithm", "SHA256")
	v.Set("history.retention_days", 30)

	var buf bytes.Buffer
	env := []string{"HOME=/home/me", "SUMTREE_OUTPUT=json", "SUMTREE_ALGORITHM=SHA256"}
	require.NoError(t, showConfig(&buf, v, env))
	out := buf.String()

	assert.Contains(t, out, "(using defaults, no file found)")
	assert.Contains(t, out, "algorithm: SHA256")
	assert.Contains(t, out, "retention_days: 30")
	assert.Contains(t, out, "#   SUMTREE_ALGORITHM=SHA256\n#   SUMTREE_OUTPUT=json")
	assert.NotContains(t, out, "HOME=")
}

func TestPrintHistory(t *testing.T) {
	t.Parallel()

	rec := &history.Record{
		ID:        uuid.MustParse("0f0e0d0c-0b0a-4908-8706-050403020100"),
		Operation: history.OpVerify,
		Root:      "/data/photos",
		Manifest:  "/data/photos/photos.md5",
		Algorithm: "MD5",
		Format:    "md5sum",
		Outcome:   "failed",
		Reason:    "digest mismatch",
		Files:     12,
		Bytes:     2048,
		StartedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		Elapsed:   1500 * time.Millisecond,
		Detail:    "img_001.jpg",
	}

	var table bytes.Buffer
	printHistoryTable(&table, []*history.Record{rec})
	assert.Contains(t, table.String(), "0f0e0d0c")
	assert.Contains(t, table.String(), "verify")
	assert.Contains(t, table.String(), "2.0 KiB")

	var detail bytes.Buffer
	printHistoryRecord(&detail, rec)
	assert.Contains(t, detail.String(), "Reason:     digest mismatch")
	assert.Contains(t, detail.String(), "Detail:     img_001.jpg")
	assert.Contains(t, detail.String(), "Elapsed:    1.5s")
}

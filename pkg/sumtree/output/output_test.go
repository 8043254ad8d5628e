package output

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/jamesainslie/sumtree/pkg/sumtree/diff"
	"github.com/jamesainslie/sumtree/pkg/sumtree/engine"
)

func failedVerify() *Report {
	res := engine.Result{
		Outcome:     engine.OutcomeFailed,
		Reason:      engine.ReasonDigestMismatch,
		Index:       1,
		Path:        "docs/readme.txt",
		Line:        4,
		Expected:    "d41d8cd98f00b204e9800998ecf8427e",
		Actual:      "0cc175b9c0f1b6a831c399e269772661",
		Algorithm:   "MD5",
		Format:      "md5sum",
		FilesHashed: 2,
		BytesHashed: 2048,
		Elapsed:     1500 * time.Millisecond,
	}
	return &Report{
		Operation: "verify",
		Sessions:  []Session{NewSession("/data/tree", "/data/tree.md5", res)},
	}
}

func TestRegistry(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []string{"json", "plain", "pretty", "yaml"}, Available())

	for _, name := range Available() {
		f, err := Get(name)
		require.NoError(t, err, name)
		assert.NotNil(t, f)
	}

	_, err := Get("xml")
	assert.Error(t, err)

	r := NewRegistry()
	r.Register("b", func() Formatter { return &PlainFormatter{} })
	r.Register("a", func() Formatter { return &JSONFormatter{} })
	assert.Equal(t, []string{"a", "b"}, r.Available())
}

func TestNewSession(t *testing.T) {
	t.Parallel()

	s := NewSession("/r", "", engine.Result{
		Outcome: engine.OutcomeError,
		Index:   -1,
		Err:     errors.New("boom"),
	})
	assert.Equal(t, "error", s.Outcome)
	assert.Empty(t, s.Reason)
	assert.Equal(t, "boom", s.Error)
	assert.False(t, s.OK())

	ok := NewSession("/r", "", engine.Result{Outcome: engine.OutcomeSuccess, Index: -1})
	assert.True(t, ok.OK())
}

func TestReportOK(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		report Report
		want   bool
	}{
		{"empty", Report{}, true},
		{"success", Report{Sessions: []Session{{Outcome: "success"}}}, true},
		{"failed session", *failedVerify(), false},
		{"digest error", Report{Digests: []Digest{{Path: "x", Error: "denied"}}}, false},
		{"identical diff", Report{Diff: &diff.Summary{Unchanged: 3}}, true},
		{"different diff", Report{Diff: &diff.Summary{Added: []string{"a"}}}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.report.OK())
		})
	}
}

func TestPlainFormatter(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, (&PlainFormatter{}).Format(&buf, failedVerify()))

	out := buf.String()
	assert.Contains(t, out, "verify /data/tree: failed (2 files, 2.0 KiB, MD5, md5sum) in 1.5s")
	assert.Contains(t, out, "digest mismatch at line 4 (docs/readme.txt)")
	assert.Contains(t, out, "expected: d41d8cd98f00b204e9800998ecf8427e")
	assert.Contains(t, out, "actual:   0cc175b9c0f1b6a831c399e269772661")
}

func TestPlainFormatterDigestsAsManifest(t *testing.T) {
	t.Parallel()

	r := &Report{
		Operation: "hash",
		Digests: []Digest{
			{Path: "a.txt", Algorithm: "MD5", Digest: "0cc175b9c0f1b6a831c399e269772661", Bytes: 1},
			{Path: "missing", Algorithm: "MD5", Error: "no such file"},
		},
	}

	var buf bytes.Buffer
	require.NoError(t, (&PlainFormatter{}).Format(&buf, r))
	assert.Equal(t, "0cc175b9c0f1b6a831c399e269772661  a.txt\nmissing: no such file\n", buf.String())
}

func TestPlainFormatterDiff(t *testing.T) {
	t.Parallel()

	r := &Report{
		Operation: "diff",
		Diff: &diff.Summary{
			Added:     []string{"new.txt"},
			Removed:   []string{"old.txt"},
			Changed:   []diff.Change{{Path: "c.txt", Old: "aa", New: "bb"}},
			Unchanged: 7,
			Malformed: [2]int{1, 0},
		},
		Warnings: []string{"left manifest has 1 malformed line"},
	}

	var buf bytes.Buffer
	require.NoError(t, (&PlainFormatter{}).Format(&buf, r))

	out := buf.String()
	assert.Contains(t, out, "+ new.txt\n")
	assert.Contains(t, out, "- old.txt\n")
	assert.Contains(t, out, "~ c.txt aa -> bb\n")
	assert.Contains(t, out, "added 1, removed 1, changed 1, unchanged 7\n")
	assert.Contains(t, out, "malformed lines: 1 left, 0 right\n")
	assert.Contains(t, out, "warning: left manifest has 1 malformed line\n")
}

func TestPrettyFormatter(t *testing.T) {
	t.Parallel()

	r := failedVerify()
	r.Diff = &diff.Summary{Added: []string{"extra.bin"}, Unchanged: 1}
	r.Patch = "--- a\n+++ b\n@@ -1 +1 @@\n-x\n+y\n"
	r.Warnings = []string{"slow disk"}

	var buf bytes.Buffer
	require.NoError(t, (&PrettyFormatter{}).Format(&buf, r))

	out := buf.String()
	assert.Contains(t, out, "VERIFY")
	assert.Contains(t, out, "/data/tree")
	assert.Contains(t, out, "digest mismatch")
	assert.Contains(t, out, "docs/readme.txt")
	assert.Contains(t, out, "extra.bin")
	assert.Contains(t, out, "different")
	assert.Contains(t, out, "+y")
	assert.Contains(t, out, "slow disk")
}

func TestPrettyFormatterDigests(t *testing.T) {
	t.Parallel()

	r := &Report{
		Operation: "hash",
		Digests: []Digest{
			{Path: "a.txt", Algorithm: "SHA256", Digest: "ca978112", Bytes: 1},
			{Path: "b.txt", Algorithm: "SHA256", Error: "permission denied"},
		},
	}

	var buf bytes.Buffer
	require.NoError(t, (&PrettyFormatter{}).Format(&buf, r))

	out := buf.String()
	assert.Contains(t, out, "ca978112")
	assert.Contains(t, out, "a.txt")
	assert.Contains(t, out, "permission denied")
}

func TestJSONFormatter(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, (&JSONFormatter{}).Format(&buf, failedVerify()))

	var parsed map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &parsed))

	assert.Equal(t, "verify", parsed["operation"])
	assert.Equal(t, false, parsed["ok"])

	sessions := parsed["sessions"].([]any)
	require.Len(t, sessions, 1)
	s := sessions[0].(map[string]any)
	assert.Equal(t, "failed", s["outcome"])
	assert.Equal(t, "digest mismatch", s["reason"])
	assert.Equal(t, float64(4), s["line"])
	assert.Equal(t, "1.5s", s["elapsed"])
	assert.NotContains(t, parsed, "diff")
}

func TestYAMLFormatter(t *testing.T) {
	t.Parallel()

	r := failedVerify()
	r.Diff = &diff.Summary{Removed: []string{"gone.txt"}}

	var buf bytes.Buffer
	require.NoError(t, (&YAMLFormatter{}).Format(&buf, r))

	var parsed map[string]any
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &parsed))

	assert.Equal(t, "verify", parsed["operation"])
	assert.Equal(t, false, parsed["ok"])

	sessions := parsed["sessions"].([]any)
	require.Len(t, sessions, 1)
	s := sessions[0].(map[string]any)
	assert.Equal(t, "/data/tree", s["root"])
	assert.Equal(t, "1.5s", s["elapsed"])

	d := parsed["diff"].(map[string]any)
	assert.Equal(t, []any{"gone.txt"}, d["removed"])
}

func TestFormatDuration(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   time.Duration
		want string
	}{
		{0, "0s"},
		{1500 * time.Nanosecond, "2µs"},
		{1234567 * time.Nanosecond, "1ms"},
		{1234 * time.Millisecond, "1.23s"},
		{90 * time.Second, "1m30s"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, formatDuration(tt.in), tt.in.String())
	}
}

package manifest

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jamesainslie/sumtree/pkg/sumtree/hasher"
)

func TestSentinelDigest_Width(t *testing.T) {
	t.Parallel()

	tests := []struct {
		bits  int
		width int
	}{
		{128, 32},
		{160, 40},
		{256, 64},
		{512, 128},
	}
	for _, tt := range tests {
		s := SentinelDigest(tt.bits)
		assert.Len(t, s, tt.width)
		assert.True(t, IsSentinel(s))
		assert.True(t, strings.HasSuffix(s, "#]"))
	}

	assert.Equal(t, "[0 bytes file #################]", SentinelDigest(128))
}

func TestSentinelDigest_ShortDigestClamps(t *testing.T) {
	t.Parallel()

	s := SentinelDigest(32)
	assert.Equal(t, "[0 bytes file ]", s)
	assert.True(t, IsSentinel(s))
}

func TestIsSentinel(t *testing.T) {
	t.Parallel()

	assert.True(t, IsSentinel("[0 bytes file ###]"))
	assert.True(t, IsSentinel("[0 bytes file whatever"))
	assert.False(t, IsSentinel("d41d8cd98f00b204e9800998ecf8427e"))
	assert.False(t, IsSentinel(""))
}

func TestMD5Sum_Encode(t *testing.T) {
	t.Parallel()

	line := MD5Sum{}.Encode(Entry{Digest: "abc123", Path: "dir/my file.txt"})
	assert.Equal(t, "abc123  dir/my file.txt", line)
}

func TestMD5Sum_Decode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		line  string
		want  Entry
		valid bool
	}{
		{"two spaces", "abc123  a.txt", Entry{"abc123", "a.txt"}, true},
		{"path with spaces", "abc123  my  file.txt", Entry{"abc123", "my  file.txt"}, true},
		{"binary marker", "abc123 *a.txt", Entry{"abc123", "a.txt"}, true},
		{"sentinel", SentinelDigest(128) + "  c.txt", Entry{SentinelDigest(128), "c.txt"}, true},
		{"short sentinel", SentinelDigest(32) + "  c.txt", Entry{SentinelDigest(32), "c.txt"}, true},
		{"single space", "abc123 a.txt", Entry{}, false},
		{"no separator", "abc123", Entry{}, false},
		{"leading separator", "  a.txt", Entry{}, false},
		{"empty path", "abc123  ", Entry{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, ok := MD5Sum{}.Decode(tt.line)
			assert.Equal(t, tt.valid, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSFV_Encode(t *testing.T) {
	t.Parallel()

	line := SFV{}.Encode(Entry{Digest: "352441c2", Path: "my file.txt"})
	assert.Equal(t, "my file.txt 352441c2", line)
}

func TestSFV_Decode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		line  string
		want  Entry
		valid bool
	}{
		{"simple", "a.txt 352441c2", Entry{"352441c2", "a.txt"}, true},
		{"path with spaces", "my file name.txt 352441c2", Entry{"352441c2", "my file name.txt"}, true},
		{"sentinel", "c.txt " + SentinelDigest(32), Entry{SentinelDigest(32), "c.txt"}, true},
		{"sentinel with spaced path", "a b.txt " + SentinelDigest(128), Entry{SentinelDigest(128), "a b.txt"}, true},
		{"no space", "a.txt", Entry{}, false},
		{"trailing space", "a.txt ", Entry{}, false},
		{"leading space only", " 352441c2", Entry{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, ok := SFV{}.Decode(tt.line)
			assert.Equal(t, tt.valid, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFormats_RoundTrip(t *testing.T) {
	t.Parallel()

	entries := []Entry{
		{Digest: "0123abcd", Path: "a.txt"},
		{Digest: "ffff0000", Path: "nested dir/b c.txt"},
		{Digest: SentinelDigest(256), Path: "empty file"},
	}
	for _, f := range Formats() {
		t.Run(f.Name(), func(t *testing.T) {
			t.Parallel()
			for _, e := range entries {
				got, ok := f.Decode(f.Encode(e))
				require.True(t, ok)
				assert.Equal(t, e, got)
			}
		})
	}
}

func TestAlgorithmDirective(t *testing.T) {
	t.Parallel()

	alg, ok := MD5Sum{}.AlgorithmDirective("# Hash algorithm: SHA1")
	require.True(t, ok)
	assert.Equal(t, "SHA1", alg.Name)

	_, ok = MD5Sum{}.AlgorithmDirective("# Hash algorithm: rot13")
	assert.False(t, ok)

	_, ok = MD5Sum{}.AlgorithmDirective("# Generated by sumtree")
	assert.False(t, ok)

	_, ok = SFV{}.AlgorithmDirective("# Hash algorithm: SHA1")
	assert.False(t, ok)
	_, ok = SFV{}.AlgorithmDirective("; Hash algorithm: SHA1")
	assert.False(t, ok)
}

func TestDirective_RoundTripsThroughWrite(t *testing.T) {
	t.Parallel()

	sha256, _ := hasher.Lookup("SHA256")
	body, ok := MD5Sum{}.Directive(sha256)
	require.True(t, ok)

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, MD5Sum{}, []string{body}, nil))
	assert.Equal(t, "# Hash algorithm: SHA256\n", buf.String())

	doc, err := Parse(&buf, MD5Sum{})
	require.NoError(t, err)
	alg, ok := doc.Directive(MD5Sum{})
	require.True(t, ok)
	assert.Equal(t, "SHA256", alg.Name)

	_, ok = SFV{}.Directive(sha256)
	assert.False(t, ok)
}

func TestParse(t *testing.T) {
	t.Parallel()

	input := "\uFEFF# header one\r\n" +
		"# Hash algorithm: SHA1\r\n" +
		"\r\n" +
		"aaa  a.txt\r\n" +
		"   \n" +
		"# trailing comment\n" +
		"bbb  b.txt\n"

	doc, err := Parse(strings.NewReader(input), MD5Sum{})
	require.NoError(t, err)

	assert.Equal(t, []string{"# header one", "# Hash algorithm: SHA1", "# trailing comment"}, doc.Header)
	assert.Equal(t, []string{"aaa  a.txt", "bbb  b.txt"}, doc.Lines)
	assert.Equal(t, []int{4, 7}, doc.LineNumbers)
	assert.Equal(t, 2, doc.Len())

	alg, ok := doc.Directive(MD5Sum{})
	require.True(t, ok)
	assert.Equal(t, "SHA1", alg.Name)
}

func TestParse_SFVCommentsOnlySemicolon(t *testing.T) {
	t.Parallel()

	input := "; comment\n# not a comment 00000000\na.txt 352441c2\n"
	doc, err := Parse(strings.NewReader(input), SFV{})
	require.NoError(t, err)

	assert.Equal(t, []string{"; comment"}, doc.Header)
	assert.Len(t, doc.Lines, 2)
}

func TestParse_NoHeader(t *testing.T) {
	t.Parallel()

	doc, err := Parse(strings.NewReader("aaa  a.txt\n"), MD5Sum{})
	require.NoError(t, err)
	assert.Empty(t, doc.Header)
	assert.Equal(t, []Entry{{Digest: "aaa", Path: "a.txt"}}, doc.Entries(MD5Sum{}))
}

func TestBuildHeader(t *testing.T) {
	t.Parallel()

	ts := time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC)
	header := BuildHeader("sumtree", "1.0.0", "Linux 6.1 x86_64", ts)

	assert.Equal(t, []string{
		"Generated by sumtree 1.0.0",
		"Platform: Linux 6.1 x86_64",
		"Date: 2024-03-01T12:30:00Z",
	}, header)
}

func TestWrite(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	err := Write(&buf, SFV{}, []string{"Generated by sumtree", ""}, []Entry{
		{Digest: "352441c2", Path: "a.txt"},
	})
	require.NoError(t, err)
	assert.Equal(t, "; Generated by sumtree\n;\na.txt 352441c2\n", buf.String())
}

func TestFormatFor(t *testing.T) {
	t.Parallel()

	f, err := FormatFor("SFV")
	require.NoError(t, err)
	assert.Equal(t, "sfv", f.Name())

	f, err = FormatFor("md5sum")
	require.NoError(t, err)
	assert.Equal(t, "md5sum", f.Name())

	_, err = FormatFor("par2")
	assert.True(t, errors.Is(err, ErrUnknownFormat))
}

func TestFormatForPath(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "sfv", FormatForPath("/x/files.SFV").Name())
	assert.Equal(t, "md5sum", FormatForPath("/x/files.md5").Name())
	assert.Equal(t, "md5sum", FormatForPath("/x/SHA256SUMS").Name())
}

func TestNormalizePath(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "a/b.txt", NormalizePath("/a/b.txt"))
	assert.Equal(t, "a/b.txt", NormalizePath(`\a\b.txt`))
	assert.Equal(t, "a/b.txt", NormalizePath("a/b.txt"))
}

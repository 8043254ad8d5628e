// Package engine generates checksum manifests for a FileSet and verifies a
// FileSet against an existing manifest.
//
// Verification is positional: file i of the set is compared with data line i
// of the manifest, and the first mismatch ends the session. Callers that need
// a complete report generate a fresh manifest and diff the two.
package engine

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/jamesainslie/sumtree/pkg/sumtree/hasher"
	"github.com/jamesainslie/sumtree/pkg/sumtree/logging"
	"github.com/jamesainslie/sumtree/pkg/sumtree/manifest"
	"github.com/jamesainslie/sumtree/pkg/sumtree/platform"
	"github.com/jamesainslie/sumtree/pkg/sumtree/types"
)

// Producer is the program name written to generated headers.
const Producer = "sumtree"

// Options configures one session.
type Options struct {
	// FileSet is the ordered list of files to process. Required.
	FileSet *types.FileSet

	// Algorithm is the digest algorithm. Required. Verify may replace it
	// with one announced by the manifest.
	Algorithm hasher.Algorithm

	// Format is the manifest grammar. Nil means MD5SUM.
	Format manifest.Format

	// Key is the secret for keyed algorithms.
	Key []byte

	// ChunkSize overrides hasher.ChunkSize.
	ChunkSize int

	// Limiter throttles file reads.
	Limiter *rate.Limiter

	// Version is written to the generated header.
	Version string

	// Header replaces the generated header bodies when non-nil.
	Header []string
}

// Engine runs Generate and Verify for one session. It is not safe for
// concurrent use; run one Engine per goroutine.
type Engine struct {
	opts   Options
	format manifest.Format
	log    *logging.Logger
}

// New returns an Engine for opts. Missing required settings are reported
// when a session starts.
func New(opts Options) *Engine {
	format := opts.Format
	if format == nil {
		format = manifest.MD5Sum{}
	}
	if opts.Version == "" {
		opts.Version = "dev"
	}
	return &Engine{
		opts:   opts,
		format: format,
		log:    logging.Get("engine"),
	}
}

// FileSet returns the session's file set.
func (e *Engine) FileSet() *types.FileSet {
	return e.opts.FileSet
}

func (e *Engine) validate() error {
	if e.opts.FileSet == nil {
		return &ConfigError{Missing: "file set"}
	}
	if e.opts.Algorithm.IsZero() {
		return &ConfigError{Missing: "algorithm"}
	}
	return nil
}

func (e *Engine) newResult(alg hasher.Algorithm) Result {
	return Result{
		Index:     -1,
		Algorithm: alg.Name,
		Format:    e.format.Name(),
	}
}

func (e *Engine) hasher(alg hasher.Algorithm) (*hasher.Hasher, error) {
	return hasher.New(alg, hasher.Options{
		Key:       e.opts.Key,
		ChunkSize: e.opts.ChunkSize,
		Limiter:   e.opts.Limiter,
	})
}

func (e *Engine) header() []string {
	if e.opts.Header != nil {
		return append([]string(nil), e.opts.Header...)
	}
	return manifest.BuildHeader(Producer, e.opts.Version, platform.Describe(), time.Now())
}

// Generate hashes every file in set order and renders a manifest.
// Zero-length files are not read; they get the sentinel digest.
func (e *Engine) Generate(ctx context.Context, p Progress) (Result, error) {
	start := time.Now()
	if p == nil {
		p = NopProgress{}
	}

	if err := e.validate(); err != nil {
		return errored(Result{Index: -1}, err, start), err
	}

	alg := e.opts.Algorithm
	res := e.newResult(alg)
	h, err := e.hasher(alg)
	if err != nil {
		return errored(res, err, start), err
	}

	files := e.opts.FileSet.Entries
	e.log.Info("generate started", "root", e.opts.FileSet.Root, "files", len(files), "algorithm", alg.Name)
	p.SetTotal(len(files))

	sentinel := manifest.SentinelDigest(alg.Bits)
	entries := make([]manifest.Entry, 0, len(files))

	for i, f := range files {
		if ctx.Err() != nil {
			return e.cancelled(res, start), nil
		}

		digest := sentinel
		if f.Length > 0 {
			hr := h.File(ctx, f.FullPath, hasher.Canonical, chunkFunc(p, i))
			switch hr.Status {
			case hasher.StatusCancelled:
				return e.cancelled(res, start), nil
			case hasher.StatusFailed:
				res.Index, res.Path = i, f.RelativePath()
				return errored(res, hr.Err, start), hr.Err
			}
			digest = hr.Digest
			res.FilesHashed++
			res.BytesHashed += hr.Bytes
		}

		entries = append(entries, manifest.Entry{Digest: digest, Path: f.RelativePath()})
		p.Advance(i + 1)
	}

	header := e.header()
	if body, ok := e.format.Directive(alg); ok {
		header = append(header, body)
	}

	var sb strings.Builder
	if err := manifest.Write(&sb, e.format, header, entries); err != nil {
		return errored(res, err, start), err
	}

	res.Outcome = OutcomeSuccess
	res.Manifest = sb.String()
	res.Elapsed = time.Since(start)
	e.log.Info("generate finished", "files", len(entries), "hashed", res.FilesHashed, "elapsed", res.Elapsed)
	return res, nil
}

// Verify checks the FileSet against the manifest at path. If the manifest
// lives inside the scanned root it is first removed from the FileSet.
//
// A mismatch is reported as OutcomeFailed with a nil error. The error is
// non-nil only for OutcomeError.
func (e *Engine) Verify(ctx context.Context, path string, p Progress) (Result, error) {
	start := time.Now()
	if err := e.validate(); err != nil {
		return errored(Result{Index: -1}, err, start), err
	}

	if abs, err := filepath.Abs(path); err == nil && e.opts.FileSet.Remove(abs) {
		e.log.Debug("excluded manifest from file set", "path", abs)
	}

	f, err := os.Open(path)
	if err != nil {
		err = fmt.Errorf("opening manifest: %w", err)
		return errored(e.newResult(e.opts.Algorithm), err, start), err
	}
	defer f.Close()

	return e.verify(ctx, f, p, start)
}

// VerifyReader is Verify for a manifest that is not on disk. The FileSet is
// used as is.
func (e *Engine) VerifyReader(ctx context.Context, r io.Reader, p Progress) (Result, error) {
	start := time.Now()
	if err := e.validate(); err != nil {
		return errored(Result{Index: -1}, err, start), err
	}
	return e.verify(ctx, r, p, start)
}

func (e *Engine) verify(ctx context.Context, r io.Reader, p Progress, start time.Time) (Result, error) {
	if p == nil {
		p = NopProgress{}
	}

	alg := e.opts.Algorithm
	doc, err := manifest.Parse(r, e.format)
	if err != nil {
		return errored(e.newResult(alg), err, start), err
	}

	if announced, ok := doc.Directive(e.format); ok && announced.Name != alg.Name {
		e.log.Info("manifest selects algorithm", "configured", alg.Name, "announced", announced.Name)
		alg = announced
	}

	res := e.newResult(alg)
	h, err := e.hasher(alg)
	if err != nil {
		return errored(res, err, start), err
	}

	files := e.opts.FileSet.Entries
	e.log.Info("verify started", "root", e.opts.FileSet.Root, "files", len(files), "lines", doc.Len(), "algorithm", alg.Name)
	p.SetTotal(len(files))

	if doc.Len() != len(files) {
		res.Reason = ReasonCountMismatch
		res.Expected = fmt.Sprint(doc.Len())
		res.Actual = fmt.Sprint(len(files))
		return e.failed(res, start), nil
	}

	for i, f := range files {
		if ctx.Err() != nil {
			return e.cancelled(res, start), nil
		}

		res.Index, res.Line, res.Path = i, doc.LineNumbers[i], f.RelativePath()

		entry, ok := e.format.Decode(doc.Lines[i])
		if !ok {
			res.Reason = ReasonMalformedLine
			res.Expected = doc.Lines[i]
			return e.failed(res, start), nil
		}

		if got := manifest.NormalizePath(entry.Path); got != res.Path {
			res.Reason = ReasonPathMismatch
			res.Expected, res.Actual = entry.Path, res.Path
			return e.failed(res, start), nil
		}

		hr := h.File(ctx, f.FullPath, hasher.Canonical, chunkFunc(p, i))
		switch hr.Status {
		case hasher.StatusCancelled:
			return e.cancelled(res, start), nil
		case hasher.StatusFailed:
			return errored(res, hr.Err, start), hr.Err
		}
		res.FilesHashed++
		res.BytesHashed += hr.Bytes

		// A sentinel entry matches whatever the file now hashes to.
		if !manifest.IsSentinel(entry.Digest) && !strings.EqualFold(hr.Digest, entry.Digest) {
			res.Reason = ReasonDigestMismatch
			res.Expected, res.Actual = entry.Digest, hr.Digest
			return e.failed(res, start), nil
		}

		p.Advance(i + 1)
	}

	res.Outcome = OutcomeSuccess
	res.Index, res.Line, res.Path = -1, 0, ""
	res.Elapsed = time.Since(start)
	e.log.Info("verify passed", "files", len(files), "hashed", res.FilesHashed, "elapsed", res.Elapsed)
	return res, nil
}

func (e *Engine) failed(res Result, start time.Time) Result {
	res.Outcome = OutcomeFailed
	res.Elapsed = time.Since(start)
	e.log.Warn("verify failed", "reason", res.Reason, "index", res.Index, "path", res.Path,
		"expected", res.Expected, "actual", res.Actual)
	return res
}

func (e *Engine) cancelled(res Result, start time.Time) Result {
	res.Outcome = OutcomeCancelled
	res.Reason = ReasonNone
	res.Manifest = ""
	res.Elapsed = time.Since(start)
	e.log.Info("session cancelled", "hashed", res.FilesHashed)
	return res
}

func errored(res Result, err error, start time.Time) Result {
	res.Outcome = OutcomeError
	res.Err = err
	res.Elapsed = time.Since(start)
	logging.Get("engine").Error("session error", "error", err, "index", res.Index)
	return res
}

func chunkFunc(p Progress, index int) hasher.ChunkFunc {
	return func(read, total int64) {
		p.Chunk(index, read, total)
	}
}

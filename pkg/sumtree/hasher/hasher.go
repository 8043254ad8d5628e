package hasher

import (
	"context"
	"errors"
	"fmt"
	"hash"
	"io"
	"os"

	"golang.org/x/time/rate"
)

// ChunkSize is the default read size for a single hashing step.
const ChunkSize = 1 << 20

// Status is the terminal state of one hashing call.
type Status int

// Hashing states.
const (
	StatusCompleted Status = iota
	StatusCancelled
	StatusFailed
)

// String returns the status name.
func (s Status) String() string {
	switch s {
	case StatusCompleted:
		return "completed"
	case StatusCancelled:
		return "cancelled"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Result is the outcome of hashing one file or stream. Digest and Sum are
// only set when Status is StatusCompleted; Err only when it is StatusFailed.
type Result struct {
	Status Status
	Digest string
	Sum    []byte
	Bytes  int64
	Err    error
}

// Completed reports whether the digest is available.
func (r Result) Completed() bool {
	return r.Status == StatusCompleted
}

// ChunkFunc receives cumulative bytes read and the expected total after each
// chunk. total is -1 when unknown.
type ChunkFunc func(read, total int64)

// Options configures a Hasher.
type Options struct {
	// Key is the secret for keyed algorithms. Ignored otherwise.
	Key []byte

	// ChunkSize overrides the read size. Zero means ChunkSize.
	ChunkSize int

	// Limiter throttles reads in bytes per second. Nil disables throttling.
	Limiter *rate.Limiter
}

// Hasher hashes files one at a time with a reusable buffer.
// A Hasher is not safe for concurrent use.
type Hasher struct {
	alg     Algorithm
	h       hash.Hash
	buf     []byte
	limiter *rate.Limiter
}

// New returns a Hasher for alg.
func New(alg Algorithm, opts Options) (*Hasher, error) {
	h, err := alg.New(opts.Key)
	if err != nil {
		return nil, err
	}
	size := opts.ChunkSize
	if size <= 0 {
		size = ChunkSize
	}
	return &Hasher{
		alg:     alg,
		h:       h,
		buf:     make([]byte, size),
		limiter: opts.Limiter,
	}, nil
}

// Algorithm returns the algorithm this Hasher computes.
func (h *Hasher) Algorithm() Algorithm {
	return h.alg
}

// File hashes the file at path.
func (h *Hasher) File(ctx context.Context, path string, style Style, onChunk ChunkFunc) Result {
	if err := ctx.Err(); err != nil {
		return Result{Status: StatusCancelled}
	}

	f, err := os.Open(path)
	if err != nil {
		return failed(0, fmt.Errorf("open %s: %w", path, err))
	}
	defer f.Close()

	size := int64(-1)
	if info, err := f.Stat(); err == nil {
		size = info.Size()
	}
	adviseSequential(f, size)

	res := h.Reader(ctx, f, size, style, onChunk)
	if res.Status == StatusFailed {
		res.Err = fmt.Errorf("read %s: %w", path, res.Err)
	}
	return res
}

// Reader hashes r until EOF. size is the expected length, or -1 if unknown,
// and is only used for progress reporting.
func (h *Hasher) Reader(ctx context.Context, r io.Reader, size int64, style Style, onChunk ChunkFunc) Result {
	h.h.Reset()
	var read int64

	for {
		if ctx.Err() != nil {
			return Result{Status: StatusCancelled, Bytes: read}
		}

		n, err := r.Read(h.buf)
		if n > 0 {
			if werr := h.wait(ctx, n); werr != nil {
				if ctx.Err() != nil {
					return Result{Status: StatusCancelled, Bytes: read}
				}
				return failed(read, werr)
			}
			h.h.Write(h.buf[:n])
			read += int64(n)
			if onChunk != nil {
				onChunk(read, size)
			}
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return failed(read, err)
		}
	}

	sum := h.h.Sum(nil)
	return Result{
		Status: StatusCompleted,
		Digest: style.Format(sum),
		Sum:    sum,
		Bytes:  read,
	}
}

// wait blocks until the limiter admits n bytes. Requests larger than the
// limiter burst are split.
func (h *Hasher) wait(ctx context.Context, n int) error {
	if h.limiter == nil || h.limiter.Limit() == rate.Inf {
		return nil
	}
	burst := h.limiter.Burst()
	if burst <= 0 {
		return fmt.Errorf("rate limiter has zero burst")
	}
	for n > 0 {
		step := min(n, burst)
		if err := h.limiter.WaitN(ctx, step); err != nil {
			return err
		}
		n -= step
	}
	return nil
}

func failed(read int64, err error) Result {
	return Result{Status: StatusFailed, Bytes: read, Err: err}
}

// NewLimiter returns a limiter admitting bytesPerSec with a burst of one
// chunk. A non-positive rate returns nil, meaning unthrottled.
func NewLimiter(bytesPerSec int64, chunkSize int) *rate.Limiter {
	if bytesPerSec <= 0 {
		return nil
	}
	if chunkSize <= 0 {
		chunkSize = ChunkSize
	}
	return rate.NewLimiter(rate.Limit(bytesPerSec), chunkSize)
}

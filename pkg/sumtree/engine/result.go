package engine

import (
	"errors"
	"time"
)

// Outcome is the overall result of a session.
type Outcome int

// Session outcomes. Failed means the tree does not match the manifest;
// Error means the check could not be carried out.
const (
	OutcomeSuccess Outcome = iota
	OutcomeFailed
	OutcomeCancelled
	OutcomeError
)

// String returns the outcome name.
func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeFailed:
		return "failed"
	case OutcomeCancelled:
		return "cancelled"
	case OutcomeError:
		return "error"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (o Outcome) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

// Reason explains an OutcomeFailed verification.
type Reason int

// Failure reasons.
const (
	ReasonNone Reason = iota
	ReasonCountMismatch
	ReasonMalformedLine
	ReasonPathMismatch
	ReasonDigestMismatch
)

// String returns the reason name.
func (r Reason) String() string {
	switch r {
	case ReasonNone:
		return "none"
	case ReasonCountMismatch:
		return "count mismatch"
	case ReasonMalformedLine:
		return "malformed line"
	case ReasonPathMismatch:
		return "path mismatch"
	case ReasonDigestMismatch:
		return "digest mismatch"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (r Reason) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// Result describes a finished Generate or Verify session.
type Result struct {
	Outcome Outcome
	Reason  Reason

	// Index is the 0-based position that failed, or -1.
	Index int

	// Path is the file's relative path at Index.
	Path string

	// Line is the 1-based manifest line number at Index, when known.
	Line int

	// Expected and Actual hold the manifest and computed values at the
	// failure: digests, paths or, for a count mismatch, entry counts.
	Expected string
	Actual   string

	Algorithm   string
	Format      string
	FilesHashed int
	BytesHashed int64
	Elapsed     time.Duration

	// Manifest is the generated text. Only set by a successful Generate.
	Manifest string

	// Err is set for OutcomeError.
	Err error
}

// OK reports whether the session succeeded.
func (r Result) OK() bool {
	return r.Outcome == OutcomeSuccess
}

// ErrNotConfigured is matched by every *ConfigError.
var ErrNotConfigured = errors.New("checksum session is not configured")

// ConfigError reports a session started without a required setting.
type ConfigError struct {
	Missing string
}

func (e *ConfigError) Error() string {
	return ErrNotConfigured.Error() + ": missing " + e.Missing
}

// Is makes errors.Is(err, ErrNotConfigured) succeed.
func (e *ConfigError) Is(target error) bool {
	return target == ErrNotConfigured
}

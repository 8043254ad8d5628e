// Package history records every generate, verify, compare and watch run in
// a Badger database under the XDG data directory.
package history

import (
	"time"

	"github.com/google/uuid"
)

// Operation names the kind of run.
type Operation string

// Recorded operations.
const (
	OpGenerate Operation = "generate"
	OpVerify   Operation = "verify"
	OpCompare  Operation = "compare"
	OpWatch    Operation = "watch"
)

// Record is one run.
type Record struct {
	ID        uuid.UUID     `json:"id"`
	Operation Operation     `json:"operation"`
	Root      string        `json:"root"`
	Manifest  string        `json:"manifest,omitempty"`
	Algorithm string        `json:"algorithm,omitempty"`
	Format    string        `json:"format,omitempty"`
	Outcome   string        `json:"outcome"`
	Reason    string        `json:"reason,omitempty"`
	Files     int           `json:"files"`
	Bytes     int64         `json:"bytes"`
	StartedAt time.Time     `json:"started_at"`
	Elapsed   time.Duration `json:"elapsed"`
	Detail    string        `json:"detail,omitempty"`
}

// ShortID returns the first eight hex digits of the ID.
func (r *Record) ShortID() string {
	return r.ID.String()[:8]
}

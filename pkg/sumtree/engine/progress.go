package engine

// Progress receives notifications from one Generate or Verify session.
// Calls arrive on the session's goroutine, in order.
type Progress interface {
	// SetTotal announces the number of files and resets progress to zero.
	// It is called once, before any file is processed.
	SetTotal(n int)

	// Advance reports the number of files completed so far.
	Advance(done int)

	// Chunk reports bytes read of the file at index. size is -1 if unknown.
	Chunk(index int, read, size int64)
}

// NopProgress discards all notifications.
type NopProgress struct{}

// SetTotal implements Progress.
func (NopProgress) SetTotal(int) {}

// Advance implements Progress.
func (NopProgress) Advance(int) {}

// Chunk implements Progress.
func (NopProgress) Chunk(int, int64, int64) {}

// IntProgress adapts a single integer callback. A negative value resets the
// total to its absolute value; a non-negative value is the number of files
// completed. Chunk notifications are dropped.
type IntProgress func(int)

// SetTotal implements Progress.
func (f IntProgress) SetTotal(n int) { f(-n) }

// Advance implements Progress.
func (f IntProgress) Advance(done int) { f(done) }

// Chunk implements Progress.
func (IntProgress) Chunk(int, int64, int64) {}

type multi []Progress

// Multi fans notifications out to every non-nil p.
func Multi(ps ...Progress) Progress {
	out := make(multi, 0, len(ps))
	for _, p := range ps {
		if p != nil {
			out = append(out, p)
		}
	}
	return out
}

func (m multi) SetTotal(n int) {
	for _, p := range m {
		p.SetTotal(n)
	}
}

func (m multi) Advance(done int) {
	for _, p := range m {
		p.Advance(done)
	}
}

func (m multi) Chunk(index int, read, size int64) {
	for _, p := range m {
		p.Chunk(index, read, size)
	}
}

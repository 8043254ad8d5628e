package logging

import "sync"

// DefaultBufferSize is the number of records kept for the progress view.
const DefaultBufferSize = 64

// RingBuffer keeps the most recent log records, overwriting the oldest.
type RingBuffer struct {
	mu      sync.RWMutex
	entries []Entry
	next    int
	full    bool
}

// NewRingBuffer returns a buffer holding up to size records.
func NewRingBuffer(size int) *RingBuffer {
	if size <= 0 {
		size = DefaultBufferSize
	}
	return &RingBuffer{entries: make([]Entry, size)}
}

// Add records e.
func (b *RingBuffer) Add(e Entry) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.entries[b.next] = e
	b.next = (b.next + 1) % len(b.entries)
	if b.next == 0 {
		b.full = true
	}
}

// Len returns the number of stored records.
func (b *RingBuffer) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.len()
}

func (b *RingBuffer) len() int {
	if b.full {
		return len(b.entries)
	}
	return b.next
}

// Last returns up to n of the newest records, oldest first.
func (b *RingBuffer) Last(n int) []Entry {
	b.mu.RLock()
	defer b.mu.RUnlock()

	count := b.len()
	if n > count {
		n = count
	}
	if n <= 0 {
		return nil
	}

	out := make([]Entry, n)
	size := len(b.entries)
	first := (b.next - n + size) % size
	for i := range n {
		out[i] = b.entries[(first+i)%size]
	}
	return out
}

package tui

import (
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jamesainslie/sumtree/pkg/sumtree/engine"
)

type totalMsg struct {
	pane int
	n    int
}

type advanceMsg struct {
	pane int
	done int
}

type chunkMsg struct {
	pane  int
	index int
	read  int64
	size  int64
}

type sessionDoneMsg struct {
	pane   int
	result engine.Result
	err    error
}

// chunkInterval limits chunk messages per pane.
const chunkInterval = 50 * time.Millisecond

// reporter forwards engine progress for one pane to the program.
type reporter struct {
	pane int
	send func(tea.Msg)

	mu        sync.Mutex
	lastChunk time.Time
}

var _ engine.Progress = (*reporter)(nil)

func (r *reporter) SetTotal(n int) { r.send(totalMsg{pane: r.pane, n: n}) }

func (r *reporter) Advance(done int) { r.send(advanceMsg{pane: r.pane, done: done}) }

func (r *reporter) Chunk(index int, read, size int64) {
	r.mu.Lock()
	now := time.Now()
	if read < size && now.Sub(r.lastChunk) < chunkInterval {
		r.mu.Unlock()
		return
	}
	r.lastChunk = now
	r.mu.Unlock()

	r.send(chunkMsg{pane: r.pane, index: index, read: read, size: size})
}

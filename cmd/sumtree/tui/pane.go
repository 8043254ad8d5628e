package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/lipgloss"

	"github.com/jamesainslie/sumtree/pkg/sumtree/engine"
	"github.com/jamesainslie/sumtree/pkg/sumtree/types"
)

// Pane is the progress view of one session.
type Pane struct {
	label    string
	bar      progress.Model
	spinner  spinner.Model
	total    int
	done     int
	index    int
	read     int64
	size     int64
	started  time.Time
	finished bool
	result   engine.Result
	err      error
	width    int
}

// NewPane returns an idle pane.
func NewPane(label string) Pane {
	s := spinner.New()
	s.Spinner = spinner.Points
	s.Style = lipgloss.NewStyle().Foreground(primaryColor)

	return Pane{
		label:   label,
		bar:     progress.New(progress.WithDefaultGradient(), progress.WithoutPercentage()),
		spinner: s,
		index:   -1,
		size:    -1,
		started: time.Now(),
		width:   76,
	}
}

// SetWidth resizes the pane.
func (p *Pane) SetWidth(w int) {
	if w < 30 {
		w = 30
	}
	p.width = w
	p.bar.Width = w - 14
}

func (p *Pane) setTotal(n int) {
	p.total = n
	p.done = 0
	p.index = -1
}

func (p *Pane) advance(done int) {
	p.done = done
	p.read, p.size = 0, -1
}

func (p *Pane) chunk(index int, read, size int64) {
	p.index = index
	p.read = read
	p.size = size
}

func (p *Pane) finish(res engine.Result, err error) {
	p.finished = true
	p.result = res
	p.err = err
}

// Percent is the fraction of files completed, counting the partial file.
func (p Pane) Percent() float64 {
	if p.total <= 0 {
		if p.finished {
			return 1
		}
		return 0
	}
	done := float64(p.done)
	if !p.finished && p.size > 0 && p.index == p.done {
		done += float64(p.read) / float64(p.size)
	}
	pct := done / float64(p.total)
	if pct > 1 {
		pct = 1
	}
	return pct
}

// View renders the pane.
func (p Pane) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render(p.label))
	b.WriteString("\n")

	b.WriteString(p.bar.ViewAs(p.Percent()))
	b.WriteString(fmt.Sprintf(" %3.0f%%", p.Percent()*100))
	b.WriteString("\n")

	b.WriteString(labelStyle.Render("Files: "))
	b.WriteString(valueStyle.Render(fmt.Sprintf("%d/%d", p.done, p.total)))
	if p.size > 0 && !p.finished {
		b.WriteString(labelStyle.Render("  Current: "))
		b.WriteString(valueStyle.Render(fmt.Sprintf("%s/%s",
			types.FormatSize(p.read), types.FormatSize(p.size))))
	}
	b.WriteString(labelStyle.Render("  Elapsed: "))
	b.WriteString(valueStyle.Render(p.elapsed().Round(100 * time.Millisecond).String()))
	b.WriteString("\n")

	b.WriteString(p.status())

	return paneStyle.Width(p.width).Render(b.String())
}

func (p Pane) elapsed() time.Duration {
	if p.finished && p.result.Elapsed > 0 {
		return p.result.Elapsed
	}
	return time.Since(p.started)
}

func (p Pane) status() string {
	if !p.finished {
		return p.spinner.View() + " " + mutedTextStyle.Render("hashing")
	}

	switch p.result.Outcome {
	case engine.OutcomeSuccess:
		return successTextStyle.Render("✓ success")
	case engine.OutcomeCancelled:
		return warningTextStyle.Render("cancelled")
	case engine.OutcomeFailed:
		msg := "✗ " + p.result.Reason.String()
		if p.result.Path != "" {
			msg += ": " + truncatePath(p.result.Path, p.width-len(msg)-6)
		}
		return errorTextStyle.Render(msg)
	default:
		msg := "error"
		if p.err != nil {
			msg += ": " + p.err.Error()
		}
		return errorTextStyle.Render(msg)
	}
}

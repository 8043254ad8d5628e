package tui

import (
	"context"
	"errors"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/jamesainslie/sumtree/pkg/sumtree/engine"
	"github.com/jamesainslie/sumtree/pkg/sumtree/logging"
)

// Session is one engine run shown in its own pane.
type Session struct {
	Label string
	Run   func(ctx context.Context, p engine.Progress) (engine.Result, error)
}

// Outcome is what a Session returned.
type Outcome struct {
	Result engine.Result
	Err    error
}

// Options configures the progress view.
type Options struct {
	Title    string
	Sessions []Session

	// LogLines is the number of recent log records shown under the panes.
	LogLines int
}

// Model is the Bubble Tea model for the progress view.
type Model struct {
	opts     Options
	panes    []Pane
	outcomes []Outcome
	pending  int
	ctx      context.Context
	cancel   context.CancelFunc
	send     *func(tea.Msg)
	logs     []logging.Entry
	width    int
	height   int
}

type tickMsg struct{}

// NewModel returns a model whose sessions run under ctx.
func NewModel(ctx context.Context, opts Options) Model {
	ctx, cancel := context.WithCancel(ctx)
	panes := make([]Pane, len(opts.Sessions))
	for i, s := range opts.Sessions {
		panes[i] = NewPane(s.Label)
	}
	if opts.LogLines <= 0 {
		opts.LogLines = 5
	}
	noop := func(tea.Msg) {}
	return Model{
		opts:     opts,
		panes:    panes,
		outcomes: make([]Outcome, len(opts.Sessions)),
		pending:  len(opts.Sessions),
		ctx:      ctx,
		cancel:   cancel,
		send:     &noop,
		width:    80,
		height:   24,
	}
}

// Init starts every session.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{tick()}
	for i := range m.panes {
		cmds = append(cmds, m.panes[i].spinner.Tick, m.start(i))
	}
	return tea.Batch(cmds...)
}

func (m Model) start(i int) tea.Cmd {
	session := m.opts.Sessions[i]
	send := m.send
	ctx := m.ctx
	return func() tea.Msg {
		rep := &reporter{pane: i, send: func(msg tea.Msg) { (*send)(msg) }}
		res, err := session.Run(ctx, rep)
		return sessionDoneMsg{pane: i, result: res, err: err}
	}
}

func tick() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(time.Time) tea.Msg {
		return tickMsg{}
	})
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.resize()
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			m.cancel()
		}
		return m, nil

	case totalMsg:
		m.panes[msg.pane].setTotal(msg.n)
		return m, nil

	case advanceMsg:
		m.panes[msg.pane].advance(msg.done)
		return m, nil

	case chunkMsg:
		m.panes[msg.pane].chunk(msg.index, msg.read, msg.size)
		return m, nil

	case sessionDoneMsg:
		m.panes[msg.pane].finish(msg.result, msg.err)
		m.outcomes[msg.pane] = Outcome{Result: msg.result, Err: msg.err}
		m.pending--
		if m.pending == 0 {
			m.cancel()
			return m, tea.Quit
		}
		return m, nil

	case tickMsg:
		if buf := logging.Buffer(); buf != nil {
			m.logs = buf.Last(m.opts.LogLines)
		}
		return m, tick()

	case spinner.TickMsg:
		var cmds []tea.Cmd
		for i := range m.panes {
			var cmd tea.Cmd
			m.panes[i].spinner, cmd = m.panes[i].spinner.Update(msg)
			cmds = append(cmds, cmd)
		}
		return m, tea.Batch(cmds...)
	}
	return m, nil
}

// resize lays panes side by side when there is room, stacked otherwise.
func (m *Model) resize() {
	w := m.width - 6
	if len(m.panes) > 1 && m.width >= 100 {
		w = (m.width - 8) / len(m.panes)
	}
	for i := range m.panes {
		m.panes[i].SetWidth(w)
	}
}

// View renders the model.
func (m Model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render(m.opts.Title))
	b.WriteString("\n")
	b.WriteString(renderDivider(m.width - 4))
	b.WriteString("\n")

	views := make([]string, len(m.panes))
	for i, p := range m.panes {
		views[i] = p.View()
	}
	if len(views) > 1 && m.width >= 100 {
		b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, views...))
	} else {
		b.WriteString(lipgloss.JoinVertical(lipgloss.Left, views...))
	}
	b.WriteString("\n")

	if len(m.logs) > 0 {
		b.WriteString(renderLogTail(m.logs, m.width-6))
	}

	b.WriteString(keyStyle.Render("q"))
	b.WriteString(keyDescStyle.Render(" cancel"))

	return outerBoxStyle.Width(m.width - 2).Render(b.String())
}

// Outcomes returns the per-session results, in session order.
func (m Model) Outcomes() []Outcome {
	return m.outcomes
}

// Run shows the progress view on stderr until every session finishes.
func Run(ctx context.Context, opts Options) ([]Outcome, error) {
	if len(opts.Sessions) == 0 {
		return nil, errors.New("no sessions to run")
	}

	model := NewModel(ctx, opts)
	defer model.cancel()

	// Cancelling ctx cancels the sessions; the program exits once each has
	// reported its (cancelled) result.
	p := tea.NewProgram(model, tea.WithOutput(os.Stderr))
	*model.send = p.Send

	final, err := p.Run()
	if err != nil {
		return nil, err
	}
	return final.(Model).Outcomes(), nil
}

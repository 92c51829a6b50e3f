// Package tui is the interactive search screen.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/felixgeelhaar/glance/internal/catalog"
	"github.com/felixgeelhaar/glance/internal/command"
	"github.com/felixgeelhaar/glance/internal/session"
	"github.com/felixgeelhaar/glance/internal/ui"
)

// TUI forwards status updates to a running program.
type TUI struct {
	program *tea.Program
}

func NewTUI(p *tea.Program) *TUI {
	return &TUI{program: p}
}

func (t *TUI) UpdateStatus(status string) {
	t.program.Send(StatusMsg(status))
}

func (t *TUI) Log(msg string) {
	t.program.Send(LogMsg(msg))
}

type StatusMsg string
type LogMsg string

// opDoneMsg reports that a session operation returned.
type opDoneMsg struct{ err error }

type commandDoneMsg struct {
	res command.Result
	err error
}

type detailDoneMsg struct {
	detail session.Detail
	err    error
}

// liveQueryMsg carries a debounced query edit.
type liveQueryMsg string

// chrome is the number of lines around the viewport.
const chrome = 6

// Options configure the screen.
type Options struct {
	Tiers    ui.Tiers
	Commands *command.Registry
	// Debouncer enables live search when set.
	Debouncer *session.Debouncer
	// Initial is a query or ":" command run when the screen opens.
	Initial string
}

type Model struct {
	ctx      context.Context
	sess     *session.Session
	commands *command.Registry
	tiers    ui.Tiers

	debounce *session.Debouncer
	live     chan string
	lastLive string
	initial  string

	Input    textinput.Model
	Spinner  spinner.Model
	Viewport viewport.Model

	Results  []catalog.Product
	Selected int
	Detail   *session.Detail
	Status   string
	Error    string
	Log      []string
	Loading  bool

	Ready    bool
	Quitting bool
	Width    int
	Height   int
}

func NewModel(ctx context.Context, s *session.Session, opts Options) Model {
	in := textinput.New()
	in.Placeholder = "search, or :help"
	in.Prompt = "› "
	in.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	if opts.Tiers.Max == 0 {
		opts.Tiers = ui.WideTiers
	}
	m := Model{
		ctx:      ctx,
		sess:     s,
		commands: opts.Commands,
		tiers:    opts.Tiers,
		debounce: opts.Debouncer,
		Input:    in,
		Spinner:  sp,
		Status:   "type a query and press enter",
	}
	if m.commands == nil {
		m.commands = command.NewRegistry()
	}
	if m.debounce != nil {
		m.live = make(chan string, 1)
	}
	if line := strings.TrimSpace(opts.Initial); line != "" {
		m.initial = line
		m.Loading = true
		if _, isCmd := command.Parse(line); !isCmd {
			m.Input.SetValue(line)
			m.lastLive = line
		}
	}
	return m
}

func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{textinput.Blink, m.waitLive()}
	if m.initial != "" {
		op := m.search(m.initial)
		if _, isCmd := command.Parse(m.initial); isCmd {
			op = m.runCommand(m.initial)
		}
		cmds = append(cmds, m.Spinner.Tick, op)
	}
	return tea.Batch(cmds...)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC:
			m.Quitting = true
			if m.debounce != nil {
				m.debounce.Stop()
			}
			return m, tea.Quit
		case tea.KeyEnter:
			return m.submit()
		case tea.KeyCtrlN:
			cmd := m.loadMore()
			return m, cmd
		case tea.KeyCtrlD:
			return m.openDetail()
		case tea.KeyEsc:
			if m.Detail != nil {
				m.Detail = nil
				m.render()
			}
			return m, nil
		case tea.KeyUp:
			m.move(-1)
			return m, nil
		case tea.KeyDown:
			m.move(1)
			return m, nil
		}

		var cmd tea.Cmd
		before := m.Input.Value()
		m.Input, cmd = m.Input.Update(msg)
		cmds = append(cmds, cmd)
		if m.debounce != nil && m.Input.Value() != before {
			m.queueLive(m.Input.Value())
		}

	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height
		h := msg.Height - chrome
		if h < 1 {
			h = 1
		}
		if !m.Ready {
			m.Viewport = viewport.New(msg.Width, h)
			m.Viewport.KeyMap = pageKeys()
			m.Ready = true
		} else {
			m.Viewport.Width = msg.Width
			m.Viewport.Height = h
		}
		m.Input.Width = msg.Width - 4
		m.render()

	case liveQueryMsg:
		q := strings.TrimSpace(string(msg))
		cmds = append(cmds, m.waitLive())
		if q != "" && q != m.lastLive && q == strings.TrimSpace(m.Input.Value()) {
			if _, isCmd := command.Parse(q); !isCmd {
				m.lastLive = q
				m.Detail = nil
				cmds = append(cmds, m.start(m.search(q)))
			}
		}

	case opDoneMsg:
		m.sync()
		if msg.err != nil && !errors.Is(msg.err, session.ErrStale) && m.Error == "" {
			m.Error = msg.err.Error()
		}

	case commandDoneMsg:
		m.sync()
		if msg.err != nil {
			m.Error = msg.err.Error()
		} else {
			if msg.res.Message != "" {
				m.Status = msg.res.Message
			}
			if msg.res.Detail != nil {
				m.Detail = msg.res.Detail
			}
		}
		m.render()

	case detailDoneMsg:
		m.sync()
		if msg.err == nil {
			m.Detail = &msg.detail
			if msg.detail.Product == nil {
				m.Status = "no product found"
			}
		}
		m.render()

	case StatusMsg:
		m.Status = string(msg)

	case LogMsg:
		m.Log = append(m.Log, string(msg))

	case spinner.TickMsg:
		if !m.Loading {
			return m, nil
		}
		var cmd tea.Cmd
		m.Spinner, cmd = m.Spinner.Update(msg)
		return m, cmd
	}

	if m.Ready {
		var cmd tea.Cmd
		m.Viewport, cmd = m.Viewport.Update(msg)
		cmds = append(cmds, cmd)
		if _, scrolled := msg.(tea.MouseMsg); scrolled || isPageKey(msg) {
			cmds = append(cmds, m.loadMoreAtBottom())
		}
	}

	return m, tea.Batch(cmds...)
}

// submit runs the input line as a command or a new text search.
func (m Model) submit() (tea.Model, tea.Cmd) {
	line := strings.TrimSpace(m.Input.Value())
	if line == "" {
		return m, nil
	}
	if m.debounce != nil {
		m.debounce.Stop()
	}

	if _, ok := command.Parse(line); ok {
		m.Input.SetValue("")
		return m, m.start(m.runCommand(line))
	}
	m.Detail = nil
	m.lastLive = line
	return m, m.start(m.search(line))
}

func (m Model) openDetail() (tea.Model, tea.Cmd) {
	if m.Selected < 0 || m.Selected >= len(m.Results) {
		return m, nil
	}
	hash := m.Results[m.Selected].ColorTextHash
	if hash == "" {
		m.Error = "selected product has no detail"
		return m, nil
	}
	return m, m.start(m.fetchDetail(hash))
}

func (m *Model) move(delta int) {
	if len(m.Results) == 0 || m.Detail != nil {
		return
	}
	m.Selected += delta
	if m.Selected < 0 {
		m.Selected = 0
	}
	if m.Selected >= len(m.Results) {
		m.Selected = len(m.Results) - 1
	}
	m.render()
}

// start marks the screen busy and runs op.
func (m *Model) start(op tea.Cmd) tea.Cmd {
	m.Loading = true
	m.Error = ""
	return tea.Batch(m.Spinner.Tick, op)
}

// sync copies the session state into the model.
func (m *Model) sync() {
	snap := m.sess.Snapshot()
	m.Results = snap.Results
	m.Loading = snap.Loading
	m.Error = snap.LastError
	if m.Selected >= len(m.Results) {
		m.Selected = len(m.Results) - 1
	}
	if m.Selected < 0 {
		m.Selected = 0
	}
	m.render()
}

func (m Model) search(q string) tea.Cmd {
	return func() tea.Msg {
		return opDoneMsg{err: m.sess.StartTextSearch(m.ctx, q)}
	}
}

// loadMore fetches the next page unless the session has nothing to add.
func (m *Model) loadMore() tea.Cmd {
	snap := m.sess.Snapshot()
	if snap.Loading || snap.Exhausted || snap.Pending.Kind == session.QueryNone {
		return nil
	}
	s, ctx := m.sess, m.ctx
	return m.start(func() tea.Msg {
		return opDoneMsg{err: s.LoadMore(ctx)}
	})
}

func (m *Model) loadMoreAtBottom() tea.Cmd {
	if m.Detail != nil || len(m.Results) == 0 || !m.Viewport.AtBottom() {
		return nil
	}
	return m.loadMore()
}

func (m Model) runCommand(line string) tea.Cmd {
	return func() tea.Msg {
		res, err := m.commands.Run(m.ctx, line)
		return commandDoneMsg{res: res, err: err}
	}
}

func (m Model) fetchDetail(hash string) tea.Cmd {
	return func() tea.Msg {
		d, err := m.sess.FetchDetail(m.ctx, hash)
		return detailDoneMsg{detail: d, err: err}
	}
}

// queueLive hands q to the debouncer; the last edit in the window wins.
func (m Model) queueLive(q string) {
	live := m.live
	m.debounce.Trigger(func() {
		select {
		case <-live:
		default:
		}
		live <- q
	})
}

// waitLive blocks until the debouncer emits a query.
func (m Model) waitLive() tea.Cmd {
	if m.live == nil {
		return nil
	}
	live := m.live
	return func() tea.Msg {
		return liveQueryMsg(<-live)
	}
}

func pageKeys() viewport.KeyMap {
	return viewport.KeyMap{
		PageDown: key.NewBinding(key.WithKeys("pgdown")),
		PageUp:   key.NewBinding(key.WithKeys("pgup")),
	}
}

func isPageKey(msg tea.Msg) bool {
	k, ok := msg.(tea.KeyMsg)
	return ok && (k.Type == tea.KeyPgDown || k.Type == tea.KeyPgUp)
}

func (m Model) View() string {
	if !m.Ready {
		return "\n  Initializing..."
	}

	header := titleStyle.Render(" glance ")
	if m.Filters() != "none" {
		header += " " + filterStyle.Render(m.Filters())
	}

	status := m.Status
	if m.Loading {
		status = m.Spinner.View() + " " + status
	}
	lines := []string{
		header,
		m.Input.View(),
		"",
		m.Viewport.View(),
		infoStyle.Render(status),
	}
	if m.Error != "" {
		lines = append(lines, errorStyle.Render(m.Error))
	} else {
		lines = append(lines, helpStyle.Render(fmt.Sprintf("%d results · enter search · ctrl+n more · ctrl+d detail · esc back · ctrl+c quit", len(m.Results))))
	}

	view := strings.Join(lines, "\n")
	if m.Quitting {
		return view + "\n  Quitting...\n"
	}
	return view
}

// Filters renders the active filters.
func (m Model) Filters() string {
	return m.sess.Filters().String()
}

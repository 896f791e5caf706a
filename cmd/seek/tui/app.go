package tui

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/jamesainslie/seek/pkg/seek/catalog"
	"github.com/jamesainslie/seek/pkg/seek/events"
	"github.com/jamesainslie/seek/pkg/seek/logging"
	"github.com/jamesainslie/seek/pkg/seek/search"
	"github.com/jamesainslie/seek/pkg/seek/session"
	"github.com/jamesainslie/seek/pkg/seek/types"
)

// Options configures the TUI application.
type Options struct {
	Manager *session.Manager
	Engine  *search.Engine

	// Index, when set, starts this session on launch and on ctrl+r.
	Index *types.ScanRequest

	// Changes delivers snapshots published by other processes. Optional.
	Changes <-chan catalog.Change
}

type (
	searchResultMsg struct {
		keyword string
		rows    []types.FileRecord
		err     error
		elapsed time.Duration
	}
	sessionStartedMsg struct {
		handle *session.Handle
		err    error
	}
	sessionEventMsg  struct{ ev *events.Event }
	catalogChangeMsg catalog.Change
	catalogOpenedMsg struct {
		path string
		err  error
	}
)

// Model is the main Bubble Tea model for the seek TUI.
type Model struct {
	opts    Options
	logger  *logging.Logger
	input   textinput.Model
	spinner spinner.Model
	results ResultList
	sub     *events.Subscriber

	keyword  string
	elapsed  time.Duration
	err      error
	status   string
	showLogs bool

	// Indexing state
	indexing bool
	session  *session.Handle
	progress types.Progress
	target   string
	last     *types.Outcome

	width  int
	height int
}

// NewModel creates a model subscribed to the manager's events.
func NewModel(opts Options) Model {
	ti := textinput.New()
	ti.Placeholder = "type part of a file name"
	ti.Prompt = "Search: "
	ti.CharLimit = 256
	ti.Focus()

	s := spinner.New()
	s.Spinner = spinner.Points
	s.Style = lipgloss.NewStyle().Foreground(primaryColor)

	m := Model{
		opts:    opts,
		logger:  logging.Get("tui"),
		input:   ti,
		spinner: s,
		width:   80,
		height:  24,
	}
	if opts.Manager != nil {
		m.sub = opts.Manager.Subscribe("")
	}
	m.results.SetHeight(m.listHeight())
	return m
}

// Init starts the event listeners and the launch session, if any.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{textinput.Blink, m.listenEvents(), m.listenChanges()}
	if m.opts.Index != nil {
		cmds = append(cmds, m.startIndex(*m.opts.Index))
	}
	return tea.Batch(cmds...)
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.input.Width = max(m.width-16, 10)
		m.results.SetHeight(m.listHeight())
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case searchResultMsg:
		// Drop answers to keywords the user has already typed past.
		if msg.keyword != m.input.Value() {
			return m, nil
		}
		m.keyword, m.err, m.elapsed = msg.keyword, msg.err, msg.elapsed
		m.results.SetRows(msg.rows)
		return m, nil

	case sessionStartedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.session = msg.handle
		m.indexing = true
		m.progress = types.Progress{}
		m.status = ""
		return m, m.spinner.Tick

	case sessionEventMsg:
		return m.handleEvent(msg.ev)

	case catalogChangeMsg:
		if msg.Kind == catalog.Added && !m.indexing {
			return m, tea.Batch(m.openCatalog(msg.Path), m.listenChanges())
		}
		return m, m.listenChanges()

	case catalogOpenedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.status = "Catalog: " + filepath.Base(msg.path)
		return m, m.search(m.input.Value())

	case spinner.TickMsg:
		if !m.indexing {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "esc":
		if m.indexing && m.opts.Manager != nil {
			_ = m.opts.Manager.Cancel(m.session.ID)
		}
		return m, tea.Quit
	case "ctrl+x":
		if m.indexing && m.opts.Manager != nil {
			if err := m.opts.Manager.Cancel(m.session.ID); err == nil {
				m.status = "Cancelling..."
			}
		}
		return m, nil
	case "ctrl+r":
		if !m.indexing && m.opts.Index != nil {
			return m, m.startIndex(*m.opts.Index)
		}
		return m, nil
	case "ctrl+l":
		m.showLogs = !m.showLogs
		m.results.SetHeight(m.listHeight())
		return m, nil
	case "enter":
		if r, ok := m.results.Selected(); ok {
			m.status = r.Path
		}
		return m, nil
	}

	if m.results.HandleKey(msg.String()) {
		return m, nil
	}

	before := m.input.Value()
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	if m.input.Value() != before {
		return m, tea.Batch(cmd, m.search(m.input.Value()))
	}
	return m, cmd
}

func (m Model) handleEvent(ev *events.Event) (tea.Model, tea.Cmd) {
	next := m.listenEvents()
	if ev == nil || m.session == nil || ev.SessionID != m.session.ID {
		return m, next
	}

	switch ev.Type {
	case events.EventProgress:
		p := *ev.Progress
		switch p.Kind {
		case types.ProgressTarget:
			m.target = p.Target
		case types.ProgressRecords:
			m.progress = p
		case types.ProgressSkipped:
			m.status = fmt.Sprintf("Skipped %s: %s", p.Target, p.Message)
		}
		return m, next

	case events.EventCompleted:
		m.indexing = false
		m.last = ev.Outcome
		m.status = outcomeText(ev.Outcome)
		if ev.Outcome.Published() {
			return m, tea.Batch(next, m.openCatalog(ev.Outcome.SnapshotPath))
		}
	}
	return m, next
}

func outcomeText(o *types.Outcome) string {
	switch o.State {
	case types.StateCompleted:
		return fmt.Sprintf("Indexed %s files in %.1fs", types.FormatCount(o.Records), o.ElapsedSeconds())
	case types.StateCancelled:
		if o.Published() {
			return fmt.Sprintf("Cancelled; kept %s files", types.FormatCount(o.Records))
		}
		return "Cancelled; nothing published"
	default:
		if o.Err != nil {
			return "Indexing failed: " + o.Err.Error()
		}
		return "Indexing failed"
	}
}

func (m Model) search(keyword string) tea.Cmd {
	engine := m.opts.Engine
	return func() tea.Msg {
		start := time.Now()
		rows, err := engine.Search(context.Background(), keyword)
		return searchResultMsg{keyword: keyword, rows: rows, err: err, elapsed: time.Since(start)}
	}
}

func (m Model) startIndex(req types.ScanRequest) tea.Cmd {
	manager := m.opts.Manager
	return func() tea.Msg {
		h, err := manager.Start(context.Background(), req)
		return sessionStartedMsg{handle: h, err: err}
	}
}

func (m Model) openCatalog(path string) tea.Cmd {
	engine := m.opts.Engine
	return func() tea.Msg {
		return catalogOpenedMsg{path: path, err: engine.Open(context.Background(), path)}
	}
}

func (m Model) listenEvents() tea.Cmd {
	if m.sub == nil {
		return nil
	}
	ch := m.sub.Events
	return func() tea.Msg {
		ev, ok := <-ch
		if !ok {
			return nil
		}
		return sessionEventMsg{ev: ev}
	}
}

func (m Model) listenChanges() tea.Cmd {
	if m.opts.Changes == nil {
		return nil
	}
	ch := m.opts.Changes
	return func() tea.Msg {
		c, ok := <-ch
		if !ok {
			return nil
		}
		return catalogChangeMsg(c)
	}
}

// listHeight is the number of result rows that fit under the chrome.
func (m Model) listHeight() int {
	h := m.height - 9
	if m.showLogs {
		h -= logPaneHeight + 1
	}
	return max(h, 1)
}

// View renders the search screen.
func (m Model) View() string {
	contentWidth := max(m.width-4, 40)

	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString("\n")
	b.WriteString(renderDivider(contentWidth))
	b.WriteString("\n")
	b.WriteString(m.input.View())
	b.WriteString("\n\n")

	switch {
	case m.err != nil:
		b.WriteString(errorTextStyle.Render("  " + m.err.Error()))
	case m.keyword == "":
		b.WriteString(mutedTextStyle.Render("  Start typing to search."))
	case m.results.Len() == 0:
		b.WriteString(mutedTextStyle.Render("  No matches."))
	default:
		b.WriteString(m.results.View(contentWidth))
	}
	b.WriteString("\n")

	if m.showLogs {
		b.WriteString(renderDivider(contentWidth))
		b.WriteString("\n")
		b.WriteString(renderLogPane(contentWidth))
		b.WriteString("\n")
	}

	b.WriteString(renderDivider(contentWidth))
	b.WriteString("\n")
	b.WriteString(m.renderStatus())
	b.WriteString("\n")
	b.WriteString(m.renderKeys())

	return outerBoxStyle.Width(max(m.width-2, 40)).Render(b.String())
}

func (m Model) renderHeader() string {
	header := titleStyle.Render(" SEEK")
	if m.opts.Engine != nil {
		if cur := m.opts.Engine.Current(); cur != "" {
			header += mutedTextStyle.Render(fmt.Sprintf("  %s  •  %s files",
				filepath.Base(cur), types.FormatCount(m.opts.Engine.Records())))
		} else {
			header += warningTextStyle.Render("  no catalog")
		}
	}
	if m.keyword != "" && m.err == nil {
		count := fmt.Sprintf("  %d matches", m.results.Len())
		if m.opts.Engine != nil && m.results.Len() >= m.opts.Engine.Limit() {
			count = fmt.Sprintf("  first %d matches", m.results.Len())
		}
		header += mutedTextStyle.Render(count + fmt.Sprintf(" in %v", m.elapsed.Round(time.Microsecond)))
	}
	return header
}

func (m Model) renderStatus() string {
	if m.indexing {
		target := m.target
		if target == "" {
			target = "starting"
		}
		line := fmt.Sprintf("  %s Indexing %s  %s records", m.spinner.View(), target, types.FormatCount(m.progress.Records))
		if m.status != "" {
			line += mutedTextStyle.Render("  " + m.status)
		}
		return line
	}
	if m.status == "" {
		return ""
	}
	if m.last != nil && m.last.State == types.StateCompleted {
		return successTextStyle.Render("  " + m.status)
	}
	return mutedTextStyle.Render("  " + m.status)
}

func (m Model) renderKeys() string {
	hints := []string{keyHint("↑/↓", "move"), keyHint("enter", "show path")}
	if m.indexing {
		hints = append(hints, keyHint("ctrl+x", "cancel indexing"))
	} else if m.opts.Index != nil {
		hints = append(hints, keyHint("ctrl+r", "re-index"))
	}
	hints = append(hints, keyHint("ctrl+l", "logs"), keyHint("esc", "quit"))
	return "  " + strings.Join(hints, "  ")
}

// Close ends the event subscription.
func (m Model) Close() {
	if m.opts.Manager != nil {
		m.opts.Manager.Unsubscribe(m.sub)
	}
}

// Run starts the TUI application.
func Run(opts Options) error {
	model := NewModel(opts)
	defer model.Close()

	p := tea.NewProgram(model, tea.WithAltScreen())
	_, err := p.Run()
	return err
}

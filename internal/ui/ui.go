package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/desertthunder/mzsearch/internal/formatter"
	"github.com/desertthunder/mzsearch/internal/models"
	"github.com/desertthunder/mzsearch/internal/shared"
	"github.com/desertthunder/mzsearch/internal/tasks"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	ConfirmView ViewState = iota
	SearchView
	ResultView
)

const barWidth = 40

// Search is the task surface driven by the TUI. Implemented by [tasks.SearchTask].
type Search interface {
	Run(ctx context.Context) error
	Cancel()
	Snapshot() tasks.State
	Description() string
	PeakList() *models.PeakList
}

// Model represents the TUI application state.
type Model struct {
	ctx          context.Context
	view         ViewState
	search       Search
	server       string
	progressChan chan tasks.ProgressUpdate
	progress     tasks.ProgressUpdate
	phases       []tasks.ProgressUpdate
	state        tasks.State
	cancelling   bool
	results      list.Model
	openBrowser  func(string) error
	err          error
	width        int
	height       int
	spinner      spinner.Model
	help         help.Model
	keys         keyMap
}

// NewModel creates a new TUI model. progress must be the channel the task was built with;
// the model closes it once the task returns.
func NewModel(ctx context.Context, search Search, progress chan tasks.ProgressUpdate, server string) *Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = styles.bar

	return &Model{
		ctx:          ctx,
		view:         ConfirmView,
		search:       search,
		server:       server,
		progressChan: progress,
		openBrowser:  shared.OpenBrowser,
		spinner:      s,
		help:         help.New(),
		keys:         newKeyMap(),
	}
}

// State returns the last task state the model observed.
func (m *Model) State() tasks.State { return m.state }

// Err returns the error the task returned, if any.
func (m *Model) Err() error { return m.err }

// Init waits for confirmation; nothing runs until the user submits.
func (m *Model) Init() tea.Cmd {
	return nil
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if m.view == ResultView {
			m.results.SetSize(msg.Width-4, msg.Height-10)
		}
		return m, nil

	case tea.KeyMsg:
		switch m.view {
		case ConfirmView:
			return m.handleConfirmKeys(msg)
		case SearchView:
			return m.handleSearchKeys(msg)
		case ResultView:
			return m.handleResultKeys(msg)
		}

	case spinner.TickMsg:
		if m.view != SearchView {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case Msg:
		switch msg.kind {
		case MsgProgressUpdate:
			m.progress = msg.update()
			if len(m.phases) == 0 || m.phases[len(m.phases)-1].Phase != m.progress.Phase {
				m.phases = append(m.phases, m.progress)
			} else {
				m.phases[len(m.phases)-1] = m.progress
			}
			m.state = m.search.Snapshot()
			return m, m.waitForProgress()

		case MsgSearchComplete:
			m.err = msg.err()
			m.state = m.search.Snapshot()
			m.showResults()
			return m, nil

		case MsgBrowserOpened:
			if err := msg.err(); err != nil {
				m.progress.Message = fmt.Sprintf("Could not open browser: %v", err)
			}
			return m, nil
		}
	}

	if m.view == ResultView {
		var cmd tea.Cmd
		m.results, cmd = m.results.Update(msg)
		return m, cmd
	}
	return m, nil
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	switch m.view {
	case ConfirmView:
		return m.renderConfirm()
	case SearchView:
		return m.renderSearch()
	case ResultView:
		return m.renderResult()
	default:
		return ""
	}
}

func (m *Model) handleConfirmKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.yes):
		m.view = SearchView
		return m, tea.Batch(m.spinner.Tick, m.startSearch())
	case key.Matches(msg, m.keys.no), key.Matches(msg, m.keys.quit):
		m.search.Cancel()
		m.state = m.search.Snapshot()
		close(m.progressChan)
		m.progressChan = nil
		return m, tea.Quit
	}
	return m, nil
}

func (m *Model) handleSearchKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.cancel) && !m.cancelling {
		m.cancelling = true
		m.search.Cancel()
	}
	return m, nil
}

func (m *Model) handleResultKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.open):
		if m.state.ResultURL != "" {
			return m, m.openResult(m.state.ResultURL)
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.results, cmd = m.results.Update(msg)
	return m, cmd
}

func (m *Model) startSearch() tea.Cmd {
	ch := m.progressChan
	go func() {
		err := m.search.Run(m.ctx)
		m.err = err
		close(ch)
	}()

	return m.waitForProgress()
}

func (m *Model) waitForProgress() tea.Cmd {
	ch := m.progressChan
	return func() tea.Msg {
		if ch == nil {
			return searchCompleteMsg(m.err)
		}

		update, ok := <-ch
		if !ok {
			return searchCompleteMsg(m.err)
		}
		return progressUpdateMsg(update)
	}
}

func (m *Model) openResult(url string) tea.Cmd {
	open := m.openBrowser
	return func() tea.Msg {
		return browserOpenedMsg(open(url))
	}
}

func (m *Model) showResults() {
	m.view = ResultView
	m.progressChan = nil

	rows := formatter.IdentifiedRows(m.search.PeakList())
	m.results = list.New(identificationItems(rows), list.NewDefaultDelegate(), 0, 0)
	m.results.Title = fmt.Sprintf("Identifications (%d)", len(rows))
	m.results.SetShowHelp(false)
	m.results.SetSize(max(m.width-4, 60), max(m.height-10, 16))
}

func (m *Model) renderConfirm() string {
	pl := m.search.PeakList()
	title := styles.title.Render(fmt.Sprintf("Submit '%s' for MS/MS search?", pl.Name))
	info := fmt.Sprintf("\nRows: %d\nMS/MS spectra: %d\nServer: %s\n", len(pl.Rows), formatter.MSMSCount(pl), m.server)

	helpView := m.help.ShortHelpView([]key.Binding{m.keys.yes, m.keys.no})
	return fmt.Sprintf("%s\n%s\n%s", title, info, helpView)
}

func (m *Model) renderSearch() string {
	title := styles.title.Render(m.search.Description())

	var b strings.Builder
	for i, p := range m.phases {
		if i == len(m.phases)-1 {
			break
		}
		b.WriteString(styles.ok.Render("✓ ") + p.Phase.String() + "\n")
	}

	phase := m.progress.Message
	if phase == "" {
		phase = "Starting..."
	}
	if m.cancelling {
		phase = styles.warn.Render("Canceling at next checkpoint...")
	}

	bar := fmt.Sprintf("%s %3.0f%%", styles.Bar(m.state.Percentage(), barWidth), m.state.Percentage()*100)
	helpView := m.help.ShortHelpView([]key.Binding{m.keys.cancel})

	return fmt.Sprintf("%s\n%s%s %s\n\n%s\n\n%s", title, b.String(), m.spinner.View(), phase, bar, helpView)
}

func (m *Model) renderResult() string {
	var title string
	switch m.state.Status {
	case models.StatusFinished:
		title = styles.ok.Render(fmt.Sprintf("✓ Search finished: %d identifications", m.state.Identified))
	case models.StatusCanceled:
		title = styles.warn.Render("Search canceled")
	default:
		msg := m.state.Message
		if msg == "" && m.err != nil {
			msg = m.err.Error()
		}
		title = styles.err.Render(fmt.Sprintf("✗ Search failed: %s", msg))
	}

	info := fmt.Sprintf("\nStatus: %s", styles.Status(m.state.Status))
	if m.state.Location != nil {
		info += fmt.Sprintf("\nResult file: %s", m.state.Location.Path())
	}

	helpKeys := []key.Binding{m.keys.quit}
	if m.state.ResultURL != "" {
		helpKeys = []key.Binding{m.keys.up, m.keys.down, m.keys.open, m.keys.quit}
	}
	helpView := m.help.ShortHelpView(helpKeys)

	if m.state.Status != models.StatusFinished {
		return fmt.Sprintf("%s\n%s\n\n%s", title, info, helpView)
	}
	return fmt.Sprintf("%s\n%s\n\n%s\n\n%s", title, info, m.results.View(), helpView)
}

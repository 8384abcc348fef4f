package tui

import (
	"context"
	"errors"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/marcin-skalski/jobcheck/internal/checker"
	"github.com/marcin-skalski/jobcheck/internal/report"
)

type SnapshotProvider interface {
	GetSnapshot() Snapshot
}

// ReportSource is the inspector as the TUI uses it.
type ReportSource interface {
	Inspect(ctx context.Context) (*report.Report, error)
	Fetch(ctx context.Context) (*report.Report, error)
	RefreshIdentity(ctx context.Context) (string, error)
}

type viewMode int

const (
	viewModeList viewMode = iota
	viewModeReport
)

const maxReportLines = 40

type Model struct {
	provider        SnapshotProvider
	inspector       ReportSource
	snapshot        Snapshot
	refreshInterval time.Duration
	loc             *time.Location

	mode         viewMode
	report       *report.Report
	status       string
	fetching     bool
	scrollOffset int
}

type tickMsg time.Time

type reportMsg struct {
	report *report.Report
	err    error
}

type identityMsg struct {
	name string
	err  error
}

func NewModel(provider SnapshotProvider, inspector ReportSource, refreshInterval time.Duration, loc *time.Location) Model {
	return Model{
		provider:        provider,
		inspector:       inspector,
		snapshot:        provider.GetSnapshot(),
		refreshInterval: refreshInterval,
		loc:             loc,
		mode:            viewModeList,
	}
}

func (m Model) Init() tea.Cmd {
	return tickCmd(m.refreshInterval)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case reportMsg:
		m.fetching = false
		m.snapshot = m.provider.GetSnapshot()
		switch {
		case errors.Is(msg.err, checker.ErrBusy):
		case msg.err != nil:
			m.report = nil
			m.status = msg.err.Error()
		default:
			m.report = msg.report
			m.scrollOffset = 0
			m.status = ""
			switch {
			case msg.report.Notice != "":
				m.status = msg.report.Notice
			case !msg.report.Empty():
				m.status = checker.StatusFetched
			}
		}
		return m, nil

	case identityMsg:
		if msg.err != nil {
			m.status = msg.err.Error()
		} else {
			m.status = checker.StatusIdentityFetched
		}
		m.snapshot = m.provider.GetSnapshot()
		return m, nil

	case tickMsg:
		m.snapshot = m.provider.GetSnapshot()
		return m, tickCmd(m.refreshInterval)
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "i":
		return m, m.identityCmd()
	}

	switch m.mode {
	case viewModeList:
		switch msg.String() {
		case "r":
			m.snapshot = m.provider.GetSnapshot()
		case "o", "enter":
			m.mode = viewModeReport
			return m.startFetch(true)
		}

	case viewModeReport:
		switch msg.String() {
		case "esc":
			m.mode = viewModeList
			m.snapshot = m.provider.GetSnapshot()
		case "f", "r":
			return m.startFetch(false)
		case "up", "k":
			if m.scrollOffset > 0 {
				m.scrollOffset--
			}
		case "down", "j":
			m.scrollOffset = min(m.scrollOffset+1, m.maxOffset())
		case "home", "g":
			m.scrollOffset = 0
		case "end", "G":
			m.scrollOffset = m.maxOffset()
		}
	}

	return m, nil
}

// startFetch issues one report request. Requests while one is outstanding
// are dropped.
func (m Model) startFetch(open bool) (tea.Model, tea.Cmd) {
	if m.fetching {
		return m, nil
	}
	m.fetching = true
	m.status = checker.StatusFetching

	inspector := m.inspector
	return m, func() tea.Msg {
		ctx := context.Background()
		if open {
			r, err := inspector.Inspect(ctx)
			return reportMsg{report: r, err: err}
		}
		r, err := inspector.Fetch(ctx)
		return reportMsg{report: r, err: err}
	}
}

func (m Model) identityCmd() tea.Cmd {
	inspector := m.inspector
	return func() tea.Msg {
		name, err := inspector.RefreshIdentity(context.Background())
		return identityMsg{name: name, err: err}
	}
}

func (m Model) maxOffset() int {
	if m.report == nil {
		return 0
	}
	return max(0, len(reportLines(m.report, m.loc))-maxReportLines)
}

func (m Model) View() string {
	switch m.mode {
	case viewModeReport:
		return renderReportView(m.snapshot, m.report, m.status, m.scrollOffset, m.loc)
	default:
		return renderListView(m.snapshot, m.status)
	}
}

func tickCmd(interval time.Duration) tea.Cmd {
	return tea.Tick(interval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

package tui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/ariannacore/letsgo/internal/jobs"
	"github.com/ariannacore/letsgo/internal/stats"
)

// TickMsg is sent periodically to refresh the display.
type TickMsg time.Time

// StatsSource provides session totals.
type StatsSource interface {
	Snapshot() stats.Summary
}

// JobSource provides the background job table.
type JobSource interface {
	List() []jobs.Info
}

// Config holds dashboard configuration.
type Config struct {
	SessionID   string
	Shell       string
	MetricsAddr string
	StatsSource StatsSource
	JobSource   JobSource
}

// Model represents the dashboard state.
type Model struct {
	sessionID   string
	shell       string
	metricsAddr string

	statsSource StatsSource
	jobSource   JobSource

	summary    stats.Summary
	jobList    []jobs.Info
	lastUpdate time.Time

	width  int
	height int

	quitting bool
}

// New creates a dashboard model.
func New(cfg Config) Model {
	return Model{
		sessionID:   cfg.SessionID,
		shell:       cfg.Shell,
		metricsAddr: cfg.MetricsAddr,
		statsSource: cfg.StatsSource,
		jobSource:   cfg.JobSource,
		lastUpdate:  time.Now(),
		width:       80,
		height:      24,
	}
}

// Init starts the refresh timer.
func (m Model) Init() tea.Cmd {
	return tickCmd()
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			m.quitting = true
			return m, tea.Quit
		case "r":
			return m, tickCmd()
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case TickMsg:
		if m.statsSource != nil {
			m.summary = m.statsSource.Snapshot()
		}
		if m.jobSource != nil {
			m.jobList = m.jobSource.List()
		}
		m.lastUpdate = time.Now()
		return m, tickCmd()
	}

	return m, nil
}

// View renders the dashboard.
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	return m.render()
}

// sinceUpdate returns the age of the displayed data.
func (m Model) sinceUpdate() time.Duration {
	return time.Since(m.lastUpdate)
}

// sinceStart returns the job uptime relative to the last refresh.
func (m Model) sinceStart(startedAt time.Time) time.Duration {
	return m.lastUpdate.Sub(startedAt)
}

// tickCmd returns a command that sends a tick after 500ms.
func tickCmd() tea.Cmd {
	return tea.Tick(500*time.Millisecond, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

// Run blocks inside the dashboard until the user leaves it. It takes over
// the terminal, so the caller must not read stdin while it runs.
func Run(cfg Config) error {
	p := tea.NewProgram(New(cfg), tea.WithAltScreen())
	_, err := p.Run()
	return err
}

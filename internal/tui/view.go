package tui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ariannacore/letsgo/internal/stats"
)

// render produces the full dashboard frame.
func (m Model) render() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("letsgo session "+m.sessionID) + "\n")

	b.WriteString(sectionHeaderStyle.Render("Session") + "\n")
	b.WriteString(RenderKeyValue("Uptime", stats.FormatDuration(m.summary.Uptime)) + "\n")
	b.WriteString(RenderKeyValue("Shell", m.shell) + "\n")
	b.WriteString(RenderKeyValue("Commands", strconv.FormatInt(m.summary.Commands, 10)) + "\n")
	b.WriteString(labelStyle.Render("Failure rate:") +
		RenderFailureRate(uint64(m.summary.Failures), uint64(m.summary.Commands)) + "\n")
	if m.summary.Timeouts > 0 || m.summary.Cancels > 0 {
		b.WriteString(RenderKeyValue("Timeouts",
			fmt.Sprintf("%d timed out, %d cancelled", m.summary.Timeouts, m.summary.Cancels)) + "\n")
	}
	if m.summary.OracleTurns > 0 {
		b.WriteString(RenderKeyValue("Oracle turns", strconv.FormatInt(m.summary.OracleTurns, 10)) + "\n")
	}

	if m.summary.Latency.Count > 0 {
		b.WriteString(sectionHeaderStyle.Render("Command latency") + "\n")
		b.WriteString(RenderKeyValue("p50", stats.FormatDuration(m.summary.Latency.P50)) + "\n")
		b.WriteString(RenderKeyValue("p95", stats.FormatDuration(m.summary.Latency.P95)) + "\n")
		b.WriteString(RenderKeyValue("p99", stats.FormatDuration(m.summary.Latency.P99)) + "\n")
		b.WriteString(RenderKeyValue("max", stats.FormatDuration(m.summary.Latency.Max)) + "\n")
	}

	b.WriteString(m.renderJobs())

	footer := fmt.Sprintf("q: quit  r: refresh  updated %s ago",
		stats.FormatDuration(m.sinceUpdate()))
	if m.metricsAddr != "" {
		footer += "  metrics http://" + m.metricsAddr + "/metrics"
	}
	b.WriteString(footerStyle.Render(footer) + "\n")

	return b.String()
}

// renderJobs renders the background job table.
func (m Model) renderJobs() string {
	var b strings.Builder
	b.WriteString(sectionHeaderStyle.Render("Background jobs") + "\n")

	if len(m.jobList) == 0 {
		b.WriteString(tableRowStyle.Render("(none)") + "\n")
		return b.String()
	}

	b.WriteString(tableHeaderStyle.Render(fmt.Sprintf("%-8s %-8s %-10s %s",
		"ID", "STATE", "UPTIME", "COMMAND")) + "\n")
	for _, info := range m.jobList {
		state := "running"
		if !info.Running {
			state = "exited"
		}
		command := info.Command
		if max := m.width - 30; max > 10 && len(command) > max {
			command = command[:max-3] + "..."
		}
		row := fmt.Sprintf("%-8d %-8s %-10s %s",
			info.ID, state, stats.FormatDuration(m.sinceStart(info.StartedAt)), command)
		b.WriteString(tableRowStyle.Render(row) + "\n")
	}
	return b.String()
}

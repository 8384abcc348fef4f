package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/marcin-skalski/jobcheck/internal/builds"
	"github.com/marcin-skalski/jobcheck/internal/report"
)

func renderHeader(snap Snapshot) string {
	var b strings.Builder

	user := snap.UserID
	if user == "" {
		user = "(no identity)"
	}
	server := snap.ServerURL
	if server == "" {
		server = "(no server)"
	}

	header := fmt.Sprintf("jobcheck │ %s │ %s │ last %dh │ %s",
		user, server, snap.WindowHours, snap.SortOrder)
	b.WriteString(report.HeaderStyle.Render(header))
	if snap.Badge.Text != "" {
		b.WriteString(" ")
		b.WriteString(badgeStyle(snap.Badge.Color).Render(snap.Badge.Text))
	}
	b.WriteString("\n")
	return b.String()
}

func renderListView(snap Snapshot, status string) string {
	var b strings.Builder

	b.WriteString(renderHeader(snap))

	b.WriteString(report.SectionStyle.Render(fmt.Sprintf("🔔 Newly finished (%d)", len(snap.Finished))))
	b.WriteString("\n")
	b.WriteString(renderFinished(snap.Finished))

	b.WriteString("\n")
	switch {
	case snap.PollError != "":
		b.WriteString(errorStyle.Render("Last poll failed: " + snap.PollError))
	case snap.LastPoll.IsZero():
		b.WriteString(labelStyle.Render("Waiting for first poll"))
	default:
		b.WriteString(labelStyle.Render("Last poll: " + snap.LastPoll.Format("15:04:05")))
	}
	b.WriteString("\n")

	if status != "" {
		b.WriteString(statusStyle.Render(status))
		b.WriteString("\n")
	}

	footer := fmt.Sprintf("Updated: %s │ q:quit r:refresh o:open report i:identity",
		snap.Timestamp.Format("15:04:05"))
	b.WriteString(report.FooterStyle.Render(footer))

	return b.String()
}

func renderFinished(jobs []builds.FinishedJob) string {
	if len(jobs) == 0 {
		return report.EmptyStyle.Render("  (nothing new)") + "\n"
	}

	var b strings.Builder
	for i, j := range jobs {
		prefix := "├─"
		if i == len(jobs)-1 {
			prefix = "└─"
		}
		line := fmt.Sprintf("%s %s #%d ", prefix, report.TruncateName(j.JobName), j.BuildNumber)
		b.WriteString(treeJobStyle.Render(line))
		b.WriteString(report.StatusLabel(j.Status))
		b.WriteString("\n")
	}
	return b.String()
}

func reportLines(r *report.Report, loc *time.Location) []string {
	return strings.Split(strings.TrimRight(report.RenderText(r, loc), "\n"), "\n")
}

func renderReportView(snap Snapshot, r *report.Report, status string, offset int, loc *time.Location) string {
	var b strings.Builder

	b.WriteString(renderHeader(snap))

	if status != "" {
		b.WriteString(statusStyle.Render(status))
		b.WriteString("\n")
	}

	if r != nil {
		lines := reportLines(r, loc)
		start := min(offset, max(0, len(lines)-1))
		end := min(start+maxReportLines, len(lines))
		b.WriteString(strings.Join(lines[start:end], "\n"))
		b.WriteString("\n")
		if len(lines) > maxReportLines {
			b.WriteString(labelStyle.Render(fmt.Sprintf("lines %d-%d of %d", start+1, end, len(lines))))
			b.WriteString("\n")
		}
	}

	b.WriteString(report.FooterStyle.Render("esc:back f:refetch ↑/↓:scroll i:identity q:quit"))
	return b.String()
}

package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/mattn/go-runewidth"
)

const maxJobNameWidth = 60

// TruncateName shortens long job names to fit one terminal line.
func TruncateName(name string) string {
	if runewidth.StringWidth(name) > maxJobNameWidth {
		return runewidth.Truncate(name, maxJobNameWidth-3, "...")
	}
	return name
}

// RenderText renders the report for a terminal.
func RenderText(r *Report, loc *time.Location) string {
	var b strings.Builder

	if r.Empty() {
		b.WriteString(EmptyStyle.Render(r.EmptyMessage()))
		b.WriteString("\n")
		return b.String()
	}

	b.WriteString(SectionStyle.Render(r.Header()))
	b.WriteString("\n")

	for i, e := range r.Entries {
		prefix := "├─"
		child := "│ "
		if i == len(r.Entries)-1 {
			prefix = "└─"
			child = "  "
		}

		b.WriteString(jobStyle.Render(fmt.Sprintf("%s Job: %s", prefix, TruncateName(e.JobName))))
		b.WriteString("\n")
		b.WriteString(child + "  🔗 " + linkStyle.Render(e.JobLink))
		b.WriteString("\n")
		b.WriteString(child + "  Status: " + StatusLabel(e.Status))
		b.WriteString("\n")
		b.WriteString(detailStyle.Render(fmt.Sprintf("%s  Started at: %s", child, FormatTime(e.StartTime, loc))))
		b.WriteString("\n")
		b.WriteString(detailStyle.Render(fmt.Sprintf("%s  Finished at: %s", child, FinishedAt(e, loc))))
		b.WriteString("\n")
	}

	return b.String()
}

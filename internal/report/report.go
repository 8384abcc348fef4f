// Package report shapes inspector results for display: an HTML fragment for
// the popup page and styled text for the terminal.
package report

import (
	"bytes"
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/marcin-skalski/jobcheck/internal/builds"
)

const (
	timeLayout     = "2006-01-02 15:04:05"
	inProgressText = "In progress"
)

// Report is one inspector result, already filtered and sorted.
type Report struct {
	WindowHours int
	Entries     []builds.Entry
	GeneratedAt time.Time
	// Notice is a problem met while preparing the report that did not stop
	// it, shown in place of the success status.
	Notice string
}

func (r *Report) Empty() bool {
	return len(r.Entries) == 0
}

func (r *Report) Header() string {
	return fmt.Sprintf("Jobs triggered in the last %d hour(s):", r.WindowHours)
}

func (r *Report) EmptyMessage() string {
	return fmt.Sprintf("No jobs found for user within the last %d hour(s).", r.WindowHours)
}

// FormatTime renders epoch milliseconds in loc.
func FormatTime(ms int64, loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}
	return time.UnixMilli(ms).In(loc).Format(timeLayout)
}

// FinishedAt is the finish column of an entry.
func FinishedAt(e builds.Entry, loc *time.Location) string {
	if e.InProgress() {
		return inProgressText
	}
	return FormatTime(e.FinishTime, loc)
}

type htmlEntry struct {
	JobName  string
	JobLink  string
	Status   string
	Started  string
	Finished string
}

type htmlView struct {
	Header  string
	Empty   string
	Entries []htmlEntry
}

var fragment = template.Must(template.New("report").Parse(`{{if .Entries}}<h3>{{.Header}}</h3>
{{range .Entries}}<div class="job">
  <strong class="job-name">Job: {{.JobName}}</strong><br>
  &#128279; Link: <a href="{{.JobLink}}" target="_blank">Link to job</a><br>
  &#128202; Status: {{.Status}}<br>
  Started at: {{.Started}}<br>
  Finished at: {{.Finished}}<br>
  <hr>
</div>
{{end}}{{else}}<p>{{.Empty}}</p>
{{end}}`))

// RenderHTML writes the report as an HTML fragment.
func RenderHTML(w io.Writer, r *Report, loc *time.Location) error {
	view := htmlView{
		Header:  r.Header(),
		Empty:   r.EmptyMessage(),
		Entries: make([]htmlEntry, 0, len(r.Entries)),
	}
	for _, e := range r.Entries {
		view.Entries = append(view.Entries, htmlEntry{
			JobName:  e.JobName,
			JobLink:  e.JobLink,
			Status:   e.Status,
			Started:  FormatTime(e.StartTime, loc),
			Finished: FinishedAt(e, loc),
		})
	}

	var buf bytes.Buffer
	if err := fragment.Execute(&buf, view); err != nil {
		return fmt.Errorf("render report: %w", err)
	}
	_, err := buf.WriteTo(w)
	return err
}

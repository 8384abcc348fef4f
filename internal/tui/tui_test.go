package tui

import (
	"context"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marcin-skalski/jobcheck/internal/badge"
	"github.com/marcin-skalski/jobcheck/internal/builds"
	"github.com/marcin-skalski/jobcheck/internal/checker"
	"github.com/marcin-skalski/jobcheck/internal/report"
)

type fakeProvider struct {
	snap  Snapshot
	calls int
}

func (f *fakeProvider) GetSnapshot() Snapshot {
	f.calls++
	return f.snap
}

type fakeInspector struct {
	report   *report.Report
	err      error
	inspects int
	fetches  int
	name     string
}

func (f *fakeInspector) Inspect(ctx context.Context) (*report.Report, error) {
	f.inspects++
	return f.report, f.err
}

func (f *fakeInspector) Fetch(ctx context.Context) (*report.Report, error) {
	f.fetches++
	return f.report, f.err
}

func (f *fakeInspector) RefreshIdentity(ctx context.Context) (string, error) {
	return f.name, nil
}

func key(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func newTestModel(insp *fakeInspector) (Model, *fakeProvider) {
	p := &fakeProvider{snap: Snapshot{
		UserID:      "alice",
		ServerURL:   "https://ci.example.com",
		WindowHours: 1,
		SortOrder:   "asc",
		Badge:       badge.State{Text: "2", Color: badge.ActiveColor},
		Finished: []builds.FinishedJob{
			{JobName: "api", BuildNumber: 12, Status: builds.StatusSuccess},
			{JobName: "web", BuildNumber: 3, Status: builds.StatusFailed},
		},
	}}
	return NewModel(p, insp, time.Second, time.UTC), p
}

func TestModel_ListView(t *testing.T) {
	m, _ := newTestModel(&fakeInspector{})

	out := m.View()

	assert.Contains(t, out, "alice")
	assert.Contains(t, out, "Newly finished (2)")
	assert.Contains(t, out, "api #12")
	assert.Contains(t, out, "web #3")
	assert.Contains(t, out, "Waiting for first poll")
}

func TestModel_OpenReport(t *testing.T) {
	insp := &fakeInspector{report: &report.Report{WindowHours: 1, Entries: []builds.Entry{{
		JobName: "api", JobLink: "https://ci/job/api/12/", Status: builds.StatusSuccess,
		StartTime: 1_000, FinishTime: 2_000,
	}}}}
	m, _ := newTestModel(insp)

	next, cmd := m.Update(key("o"))
	m = next.(Model)
	require.NotNil(t, cmd)
	assert.Equal(t, viewModeReport, m.mode)
	assert.True(t, m.fetching)
	assert.Equal(t, checker.StatusFetching, m.status)

	// A second request while the first is outstanding is dropped.
	next, again := m.Update(key("f"))
	m = next.(Model)
	assert.Nil(t, again)

	next, _ = m.Update(cmd())
	m = next.(Model)

	assert.Equal(t, 1, insp.inspects)
	assert.Zero(t, insp.fetches)
	assert.False(t, m.fetching)
	assert.Equal(t, checker.StatusFetched, m.status)
	assert.Contains(t, m.View(), "Jobs triggered in the last 1 hour(s):")
}

func TestModel_RefetchUsesFetch(t *testing.T) {
	insp := &fakeInspector{report: &report.Report{WindowHours: 1}}
	m, _ := newTestModel(insp)
	m.mode = viewModeReport

	next, cmd := m.Update(key("f"))
	m = next.(Model)
	require.NotNil(t, cmd)
	next, _ = m.Update(cmd())
	m = next.(Model)

	assert.Equal(t, 1, insp.fetches)
	assert.Empty(t, m.status)
	assert.Contains(t, m.View(), "No jobs found for user within the last 1 hour(s).")
}

func TestModel_ReportError(t *testing.T) {
	insp := &fakeInspector{err: &checker.ConfigError{Directive: checker.DirectiveSaveSettings}}
	m, _ := newTestModel(insp)

	next, cmd := m.Update(key("o"))
	m = next.(Model)
	next, _ = m.Update(cmd())
	m = next.(Model)

	assert.Equal(t, checker.DirectiveSaveSettings, m.status)
	assert.Nil(t, m.report)
	assert.Contains(t, m.View(), checker.DirectiveSaveSettings)
}

func TestModel_ReportNotice(t *testing.T) {
	insp := &fakeInspector{report: &report.Report{WindowHours: 1, Notice: "identity resolution failed: boom"}}
	m, _ := newTestModel(insp)

	next, cmd := m.Update(key("o"))
	m = next.(Model)
	next, _ = m.Update(cmd())
	m = next.(Model)

	assert.Equal(t, "identity resolution failed: boom", m.status)
	assert.NotNil(t, m.report)
}

func TestModel_EscReturnsToList(t *testing.T) {
	m, _ := newTestModel(&fakeInspector{})
	m.mode = viewModeReport

	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	assert.Equal(t, viewModeList, next.(Model).mode)
}

func TestModel_Identity(t *testing.T) {
	m, _ := newTestModel(&fakeInspector{name: "alice"})

	next, cmd := m.Update(key("i"))
	m = next.(Model)
	require.NotNil(t, cmd)
	next, _ = m.Update(cmd())

	assert.Equal(t, checker.StatusIdentityFetched, next.(Model).status)
}

func TestModel_TickRefreshesSnapshot(t *testing.T) {
	m, p := newTestModel(&fakeInspector{})
	before := p.calls

	_, cmd := m.Update(tickMsg(time.Now()))

	assert.Equal(t, before+1, p.calls)
	assert.NotNil(t, cmd)
}

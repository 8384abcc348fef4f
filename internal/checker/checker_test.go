package checker

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marcin-skalski/jobcheck/internal/badge"
	"github.com/marcin-skalski/jobcheck/internal/builds"
	"github.com/marcin-skalski/jobcheck/internal/jenkins"
	"github.com/marcin-skalski/jobcheck/internal/settings"
)

var now = time.UnixMilli(1_800_000_000_000)

func ago(d time.Duration) int64 { return now.Add(-d).UnixMilli() }

type stubSource struct {
	mu       sync.Mutex
	jobs     []builds.Job
	err      error
	name     string
	whoErr   error
	fields   []jenkins.FieldSet
	block    chan struct{}
	entered  chan struct{}
	whoCalls int
}

func (s *stubSource) Jobs(ctx context.Context, f jenkins.FieldSet) ([]builds.Job, error) {
	s.mu.Lock()
	s.fields = append(s.fields, f)
	s.mu.Unlock()
	if s.entered != nil {
		close(s.entered)
	}
	if s.block != nil {
		<-s.block
	}
	return s.jobs, s.err
}

func (s *stubSource) WhoAmI(ctx context.Context) (string, error) {
	s.mu.Lock()
	s.whoCalls++
	s.mu.Unlock()
	return s.name, s.whoErr
}

type fixture struct {
	store   *settings.MemoryStore
	badge   *badge.Badge
	source  *stubSource
	urls    []string
	deps    Deps
	factory SourceFactory
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		store:  settings.NewMemoryStore(),
		badge:  badge.New(),
		source: &stubSource{},
	}
	f.deps = Deps{
		Store: f.store,
		Sources: func(serverURL string) Source {
			f.urls = append(f.urls, serverURL)
			return f.source
		},
		Indicator: f.badge,
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		Now:       func() time.Time { return now },
	}
	return f
}

func (f *fixture) configure(t *testing.T, vals map[string]string) {
	t.Helper()
	require.NoError(t, f.store.Set(context.Background(), settings.ScopeSync, vals))
}

func (f *fixture) lastViewed(t *testing.T, at int64) {
	t.Helper()
	require.NoError(t, settings.MarkViewed(context.Background(), f.store, time.UnixMilli(at)))
}

func aliceBuild(number int, result string, ts int64) builds.Build {
	return builds.Build{
		Number: number, URL: "https://ci/job/api/" + result, Result: result, Timestamp: ts,
		Actions: []builds.Action{{Causes: []builds.Cause{{UserID: "alice"}}}},
	}
}

func configured(t *testing.T) *fixture {
	f := newFixture(t)
	f.configure(t, map[string]string{
		settings.KeyServerURL:   "https://ci.example.com",
		settings.KeyUserID:      "alice",
		settings.KeyWindowHours: "1",
	})
	return f
}

func TestPoller_CountsNewFinishedBuilds(t *testing.T) {
	f := configured(t)
	f.lastViewed(t, ago(50*time.Minute))
	f.source.jobs = []builds.Job{{Name: "api", Builds: []builds.Build{
		aliceBuild(1, builds.StatusSuccess, ago(45*time.Minute)),
	}}}

	res, err := NewPoller(f.deps).Poll(context.Background())

	require.NoError(t, err)
	assert.Len(t, res.Finished, 1)
	assert.Equal(t, "1", f.badge.State().Text)
	assert.Equal(t, badge.ActiveColor, f.badge.State().Color)
	assert.Equal(t, []jenkins.FieldSet{jenkins.Basic}, f.source.fields)
	assert.Equal(t, []string{"https://ci.example.com"}, f.urls)
}

func TestPoller_AlreadySeenClearsBadge(t *testing.T) {
	f := configured(t)
	f.badge.SetText("3")
	f.lastViewed(t, ago(40*time.Minute))
	f.source.jobs = []builds.Job{{Name: "api", Builds: []builds.Build{
		aliceBuild(1, builds.StatusSuccess, ago(45*time.Minute)),
	}}}

	res, err := NewPoller(f.deps).Poll(context.Background())

	require.NoError(t, err)
	assert.Empty(t, res.Finished)
	assert.Equal(t, ago(40*time.Minute), res.Cutoff)
	assert.Empty(t, f.badge.State().Text)
}

func TestPoller_MissingConfiguration(t *testing.T) {
	for name, vals := range map[string]map[string]string{
		"no server url": {settings.KeyUserID: "alice"},
		"no user id":    {settings.KeyServerURL: "https://ci"},
	} {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t)
			f.configure(t, vals)
			f.badge.SetText("2")

			_, err := NewPoller(f.deps).Poll(context.Background())

			assert.ErrorIs(t, err, ErrConfigurationMissing)
			assert.Empty(t, f.badge.State().Text)
			assert.Empty(t, f.urls, "no source requested")
			assert.Empty(t, f.source.fields, "no request issued")
		})
	}
}

func TestPoller_ServerErrorKeepsBadge(t *testing.T) {
	f := configured(t)
	f.badge.SetText("2")
	f.source.err = jenkins.ErrServer

	_, err := NewPoller(f.deps).Poll(context.Background())

	assert.ErrorIs(t, err, jenkins.ErrServer)
	assert.Equal(t, "2", f.badge.State().Text)
}

func TestPoller_UndecodableBodyKeepsBadge(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "<html>login page</html>")
	}))
	t.Cleanup(srv.Close)

	f := configured(t)
	f.badge.SetText("3")
	f.deps.Sources = func(serverURL string) Source {
		return jenkins.NewClient(srv.URL, srv.Client(), f.deps.Logger)
	}

	_, err := NewPoller(f.deps).Poll(context.Background())

	assert.ErrorIs(t, err, jenkins.ErrServer)
	assert.Equal(t, "3", f.badge.State().Text)
}

func TestPoller_RejectsOverlappingPolls(t *testing.T) {
	f := configured(t)
	f.source.block = make(chan struct{})
	f.source.entered = make(chan struct{})
	p := NewPoller(f.deps)

	done := make(chan error, 1)
	go func() {
		_, err := p.Poll(context.Background())
		done <- err
	}()
	<-f.source.entered

	_, err := p.Poll(context.Background())
	assert.ErrorIs(t, err, ErrBusy)

	close(f.source.block)
	require.NoError(t, <-done)
}

func TestInspector_Fetch(t *testing.T) {
	f := configured(t)
	f.configure(t, map[string]string{settings.KeySortOrder: "desc", settings.KeyWindowHours: "2"})
	// The last-viewed marker does not narrow the report.
	f.lastViewed(t, ago(time.Minute))
	f.source.jobs = []builds.Job{{Name: "api", Builds: []builds.Build{
		aliceBuild(1, builds.StatusSuccess, 10),
		aliceBuild(2, builds.StatusFailed, ago(90*time.Minute)),
		aliceBuild(3, builds.StatusUnstable, ago(30*time.Minute)),
		aliceBuild(4, builds.StatusSuccess, ago(60*time.Minute)),
	}}}

	r, err := NewInspector(f.deps).Fetch(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 2, r.WindowHours)
	require.Len(t, r.Entries, 3)
	assert.Equal(t, ago(30*time.Minute), r.Entries[0].StartTime)
	assert.Equal(t, ago(60*time.Minute), r.Entries[1].StartTime)
	assert.Equal(t, ago(90*time.Minute), r.Entries[2].StartTime)
	assert.Equal(t, []jenkins.FieldSet{jenkins.Extended}, f.source.fields)
}

func TestInspector_Fetch_Idempotent(t *testing.T) {
	f := configured(t)
	f.source.jobs = []builds.Job{{Name: "api", Builds: []builds.Build{
		aliceBuild(1, builds.StatusSuccess, ago(time.Minute)),
		aliceBuild(2, builds.StatusSuccess, ago(time.Minute)),
	}}}
	in := NewInspector(f.deps)

	first, err := in.Fetch(context.Background())
	require.NoError(t, err)
	second, err := in.Fetch(context.Background())
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestInspector_Fetch_Directives(t *testing.T) {
	t.Run("no server url", func(t *testing.T) {
		f := newFixture(t)
		_, err := NewInspector(f.deps).Fetch(context.Background())

		assert.ErrorIs(t, err, ErrConfigurationMissing)
		assert.EqualError(t, err, DirectiveSaveSettings)
		assert.Empty(t, f.source.fields)
	})

	t.Run("no identity", func(t *testing.T) {
		f := newFixture(t)
		f.configure(t, map[string]string{settings.KeyServerURL: "https://ci"})
		_, err := NewInspector(f.deps).Fetch(context.Background())

		assert.ErrorIs(t, err, ErrConfigurationMissing)
		assert.EqualError(t, err, DirectiveFetchIdentity)
	})
}

func TestInspector_Fetch_ServerError(t *testing.T) {
	f := configured(t)
	f.source.err = errors.Join(jenkins.ErrServer, errors.New("status 503"))

	_, err := NewInspector(f.deps).Fetch(context.Background())

	assert.ErrorIs(t, err, jenkins.ErrServer)
	assert.Contains(t, err.Error(), "status 503")
}

func TestInspector_Open(t *testing.T) {
	f := configured(t)
	f.badge.SetText("4")
	f.source.name = "alice2"

	require.NoError(t, NewInspector(f.deps).Open(context.Background()))

	assert.Empty(t, f.badge.State().Text)
	lv, err := settings.LastViewed(context.Background(), f.store)
	require.NoError(t, err)
	assert.Equal(t, now.UnixMilli(), lv)

	cfg, err := settings.LoadConfiguration(context.Background(), f.store)
	require.NoError(t, err)
	assert.Equal(t, "alice2", cfg.UserID)
}

func TestInspector_Open_WithoutServerSkipsIdentity(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, NewInspector(f.deps).Open(context.Background()))
	assert.Zero(t, f.source.whoCalls)

	lv, err := settings.LastViewed(context.Background(), f.store)
	require.NoError(t, err)
	assert.Equal(t, now.UnixMilli(), lv)
}

func TestInspector_Inspect_IdentityFailureStillFetches(t *testing.T) {
	f := configured(t)
	f.source.whoErr = jenkins.ErrServer
	f.source.jobs = []builds.Job{{Name: "api", Builds: []builds.Build{
		aliceBuild(1, builds.StatusSuccess, ago(time.Minute)),
	}}}

	r, err := NewInspector(f.deps).Inspect(context.Background())

	require.NoError(t, err)
	assert.Len(t, r.Entries, 1)
	assert.Contains(t, r.Notice, ErrIdentity.Error())
}

func TestInspector_Inspect_NoNoticeWhenIdentityResolves(t *testing.T) {
	f := configured(t)
	f.source.name = "alice"

	r, err := NewInspector(f.deps).Inspect(context.Background())

	require.NoError(t, err)
	assert.Empty(t, r.Notice)
}

func TestInspector_RefreshIdentity(t *testing.T) {
	t.Run("empty name", func(t *testing.T) {
		f := configured(t)
		_, err := NewInspector(f.deps).RefreshIdentity(context.Background())

		assert.ErrorIs(t, err, ErrIdentity)
		cfg, _ := settings.LoadConfiguration(context.Background(), f.store)
		assert.Equal(t, "alice", cfg.UserID)
	})

	t.Run("server error", func(t *testing.T) {
		f := configured(t)
		f.source.whoErr = jenkins.ErrServer
		_, err := NewInspector(f.deps).RefreshIdentity(context.Background())

		assert.ErrorIs(t, err, ErrIdentity)
		assert.ErrorIs(t, err, jenkins.ErrServer)
	})

	t.Run("no server url", func(t *testing.T) {
		f := newFixture(t)
		_, err := NewInspector(f.deps).RefreshIdentity(context.Background())

		assert.EqualError(t, err, DirectiveEnterURL)
	})
}

func TestInspector_SaveSettings(t *testing.T) {
	f := newFixture(t)
	f.source.name = "alice"

	status, err := NewInspector(f.deps).SaveSettings(context.Background(), settings.Update{
		ServerURL:   "  https://ci.example.com  ",
		WindowHours: "6",
		SortOrder:   "desc",
	})

	require.NoError(t, err)
	assert.Equal(t, StatusIdentityFetched, status)

	cfg, err := settings.LoadConfiguration(context.Background(), f.store)
	require.NoError(t, err)
	assert.Equal(t, settings.Configuration{
		ServerURL:   "https://ci.example.com",
		UserID:      "alice",
		WindowHours: 6,
		SortOrder:   builds.Descending,
	}, cfg)

	lv, err := settings.LastViewed(context.Background(), f.store)
	require.NoError(t, err)
	assert.Equal(t, now.UnixMilli(), lv)
}

func TestInspector_SaveSettings_Validation(t *testing.T) {
	f := newFixture(t)
	in := NewInspector(f.deps)

	_, err := in.SaveSettings(context.Background(), settings.Update{ServerURL: "   "})
	assert.EqualError(t, err, DirectiveEnterURL)

	_, err = in.SaveSettings(context.Background(), settings.Update{ServerURL: "https://ci", WindowHours: "zero"})
	assert.ErrorContains(t, err, "invalid window hours")

	_, err = in.SaveSettings(context.Background(), settings.Update{ServerURL: "https://ci", SortOrder: "up"})
	assert.ErrorContains(t, err, "invalid sort order")

	cfg, err := settings.LoadConfiguration(context.Background(), f.store)
	require.NoError(t, err)
	assert.Empty(t, cfg.ServerURL)
}

func TestInspector_SaveSettings_IdentityFailure(t *testing.T) {
	f := newFixture(t)
	f.source.whoErr = jenkins.ErrServer

	status, err := NewInspector(f.deps).SaveSettings(context.Background(), settings.Update{ServerURL: "https://ci"})

	assert.Equal(t, StatusSettingsSaved, status)
	assert.ErrorIs(t, err, ErrIdentity)
	cfg, _ := settings.LoadConfiguration(context.Background(), f.store)
	assert.Equal(t, "https://ci", cfg.ServerURL)
}

func TestInspector_SetWindowAndSort(t *testing.T) {
	f := newFixture(t)
	in := NewInspector(f.deps)

	status, err := in.SetWindow(context.Background(), "12")
	require.NoError(t, err)
	assert.Equal(t, StatusWindowSaved, status)

	status, err = in.SetSortOrder(context.Background(), "desc")
	require.NoError(t, err)
	assert.Equal(t, StatusSortSaved, status)

	_, err = in.SetWindow(context.Background(), "-1")
	assert.Error(t, err)
	_, err = in.SetSortOrder(context.Background(), "")
	assert.Error(t, err)

	cfg, err := settings.LoadConfiguration(context.Background(), f.store)
	require.NoError(t, err)
	assert.Equal(t, 12, cfg.WindowHours)
	assert.Equal(t, builds.Descending, cfg.SortOrder)
}

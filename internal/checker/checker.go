// Package checker holds the two entry points of the client: the Poller,
// run on a schedule to update the badge, and the Inspector, run when the
// user opens the report.
package checker

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/marcin-skalski/jobcheck/internal/badge"
	"github.com/marcin-skalski/jobcheck/internal/builds"
	"github.com/marcin-skalski/jobcheck/internal/jenkins"
	"github.com/marcin-skalski/jobcheck/internal/settings"
)

var (
	ErrConfigurationMissing = errors.New("configuration missing")
	ErrIdentity             = errors.New("identity resolution failed")
	ErrBusy                 = errors.New("request already in progress")
)

// ConfigError is a missing-configuration error carrying the message shown
// to the user.
type ConfigError struct {
	Directive string
}

func (e *ConfigError) Error() string { return e.Directive }

func (e *ConfigError) Unwrap() error { return ErrConfigurationMissing }

const (
	DirectiveEnterURL      = "Please enter a Jenkins URL."
	DirectiveSaveSettings  = "Please enter a Jenkins URL and save settings."
	DirectiveFetchIdentity = "User identity not found. Please save settings to fetch identity."
)

// Status texts shown after successful actions.
const (
	StatusFetching        = "Fetching Jenkins data..."
	StatusFetched         = "Filtered data fetched successfully!"
	StatusSettingsSaved   = "Settings saved!"
	StatusIdentityFetched = "Identity fetched successfully!"
	StatusWindowSaved     = "Time frame saved!"
	StatusSortSaved       = "Sort order saved!"
)

// Source is the CI server as seen by the checker.
type Source interface {
	Jobs(ctx context.Context, f jenkins.FieldSet) ([]builds.Job, error)
	WhoAmI(ctx context.Context) (string, error)
}

// SourceFactory returns a Source for the server URL currently saved. It is
// called once per invocation since the URL can change between runs.
type SourceFactory func(serverURL string) Source

// Deps are the collaborators shared by Poller and Inspector.
type Deps struct {
	Store     settings.Store
	Sources   SourceFactory
	Indicator badge.Indicator
	Logger    *slog.Logger
	Now       func() time.Time
}

func (d Deps) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now()
}

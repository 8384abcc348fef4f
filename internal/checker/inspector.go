package checker

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/marcin-skalski/jobcheck/internal/badge"
	"github.com/marcin-skalski/jobcheck/internal/builds"
	"github.com/marcin-skalski/jobcheck/internal/jenkins"
	"github.com/marcin-skalski/jobcheck/internal/report"
	"github.com/marcin-skalski/jobcheck/internal/settings"
)

type Inspector struct {
	deps Deps
	busy atomic.Bool
}

func NewInspector(deps Deps) *Inspector {
	deps.Logger = deps.Logger.With("component", "inspector")
	return &Inspector{deps: deps}
}

// Open is called when the report surface is shown: the badge is cleared and
// the last-viewed marker moves to now. The stored identity is refreshed when
// a server URL is known; its error, if any, is returned after the marker
// has been written.
func (i *Inspector) Open(ctx context.Context) error {
	badge.Clear(i.deps.Indicator)
	if err := settings.MarkViewed(ctx, i.deps.Store, i.deps.now()); err != nil {
		return err
	}

	cfg, err := settings.LoadConfiguration(ctx, i.deps.Store)
	if err != nil {
		return err
	}
	if cfg.ServerURL == "" {
		return nil
	}
	_, err = i.RefreshIdentity(ctx)
	return err
}

// Fetch builds the report for the saved window. A second call while one is
// in flight returns ErrBusy.
func (i *Inspector) Fetch(ctx context.Context) (*report.Report, error) {
	if !i.busy.CompareAndSwap(false, true) {
		return nil, ErrBusy
	}
	defer i.busy.Store(false)

	cfg, err := settings.LoadConfiguration(ctx, i.deps.Store)
	if err != nil {
		return nil, err
	}
	if cfg.ServerURL == "" {
		return nil, &ConfigError{Directive: DirectiveSaveSettings}
	}
	if cfg.UserID == "" {
		return nil, &ConfigError{Directive: DirectiveFetchIdentity}
	}

	jobs, err := i.deps.Sources(cfg.ServerURL).Jobs(ctx, jenkins.Extended)
	if err != nil {
		return nil, fmt.Errorf("inspect: %w", err)
	}

	now := i.deps.now()
	entries := builds.Inspect(jobs, cfg.UserID, builds.InspectCutoff(now, cfg.WindowHours))
	builds.SortEntries(entries, cfg.SortOrder)

	i.deps.Logger.Debug("inspected", "jobs", len(jobs), "entries", len(entries))

	return &report.Report{
		WindowHours: cfg.WindowHours,
		Entries:     entries,
		GeneratedAt: now,
	}, nil
}

// Inspect opens the report and fetches it. An identity refresh failure
// does not stop the fetch; the report is built from the stored identity and
// carries the failure as its notice.
func (i *Inspector) Inspect(ctx context.Context) (*report.Report, error) {
	var notice string
	if err := i.Open(ctx); err != nil {
		if !errors.Is(err, ErrIdentity) {
			return nil, err
		}
		i.deps.Logger.Warn("identity refresh failed", "err", err)
		notice = err.Error()
	}

	r, err := i.Fetch(ctx)
	if err != nil {
		return nil, err
	}
	r.Notice = notice
	return r, nil
}

// RefreshIdentity asks the server who the session belongs to and stores
// the answer as the user id. The stored id is unchanged on failure.
func (i *Inspector) RefreshIdentity(ctx context.Context) (string, error) {
	cfg, err := settings.LoadConfiguration(ctx, i.deps.Store)
	if err != nil {
		return "", err
	}
	if cfg.ServerURL == "" {
		return "", &ConfigError{Directive: DirectiveEnterURL}
	}

	name, err := i.deps.Sources(cfg.ServerURL).WhoAmI(ctx)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrIdentity, err)
	}
	if name == "" {
		return "", fmt.Errorf("%w: name not found in whoAmI response", ErrIdentity)
	}

	if err := settings.SaveUserID(ctx, i.deps.Store, name); err != nil {
		return "", err
	}
	i.deps.Logger.Info("identity refreshed", "user", name)
	return name, nil
}

// SaveSettings stores a new server URL together with window and sort order,
// moves the last-viewed marker to now and refreshes the identity.
func (i *Inspector) SaveSettings(ctx context.Context, u settings.Update) (string, error) {
	u.ServerURL = strings.TrimSpace(u.ServerURL)
	if u.ServerURL == "" {
		return "", &ConfigError{Directive: DirectiveEnterURL}
	}
	if err := validateUpdate(u); err != nil {
		return "", err
	}

	if err := settings.SaveConfiguration(ctx, i.deps.Store, u); err != nil {
		return "", err
	}
	if err := settings.MarkViewed(ctx, i.deps.Store, i.deps.now()); err != nil {
		return "", err
	}

	if _, err := i.RefreshIdentity(ctx); err != nil {
		return StatusSettingsSaved, err
	}
	return StatusIdentityFetched, nil
}

// SetWindow stores the window size on its own.
func (i *Inspector) SetWindow(ctx context.Context, hours string) (string, error) {
	u := settings.Update{WindowHours: strings.TrimSpace(hours)}
	if u.WindowHours == "" {
		return "", errors.New("window hours required")
	}
	if err := validateUpdate(u); err != nil {
		return "", err
	}
	if err := settings.SaveConfiguration(ctx, i.deps.Store, u); err != nil {
		return "", err
	}
	return StatusWindowSaved, nil
}

// SetSortOrder stores the sort order on its own.
func (i *Inspector) SetSortOrder(ctx context.Context, order string) (string, error) {
	u := settings.Update{SortOrder: strings.TrimSpace(order)}
	if u.SortOrder == "" {
		return "", errors.New("sort order required")
	}
	if err := validateUpdate(u); err != nil {
		return "", err
	}
	if err := settings.SaveConfiguration(ctx, i.deps.Store, u); err != nil {
		return "", err
	}
	return StatusSortSaved, nil
}

func validateUpdate(u settings.Update) error {
	if u.WindowHours != "" {
		n, err := strconv.Atoi(u.WindowHours)
		if err != nil || n <= 0 {
			return fmt.Errorf("invalid window hours %q: must be a positive integer", u.WindowHours)
		}
	}
	switch builds.SortOrder(u.SortOrder) {
	case "", builds.Ascending, builds.Descending:
	default:
		return fmt.Errorf("invalid sort order %q (asc|desc)", u.SortOrder)
	}
	return nil
}

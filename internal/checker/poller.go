package checker

import (
	"context"
	"fmt"
	"strconv"
	"sync/atomic"

	"github.com/marcin-skalski/jobcheck/internal/badge"
	"github.com/marcin-skalski/jobcheck/internal/builds"
	"github.com/marcin-skalski/jobcheck/internal/jenkins"
	"github.com/marcin-skalski/jobcheck/internal/settings"
)

// PollResult is what one poll saw.
type PollResult struct {
	Finished []builds.FinishedJob
	Cutoff   int64
}

type Poller struct {
	deps Deps
	busy atomic.Bool
}

func NewPoller(deps Deps) *Poller {
	deps.Logger = deps.Logger.With("component", "poller")
	return &Poller{deps: deps}
}

// Poll counts the user's builds that finished since the later of the window
// start and the last time the report was opened, and shows the count on the
// badge. Without a server URL or user id the badge is cleared and nothing is
// fetched. On fetch errors the badge keeps its previous value.
func (p *Poller) Poll(ctx context.Context) (*PollResult, error) {
	if !p.busy.CompareAndSwap(false, true) {
		return nil, ErrBusy
	}
	defer p.busy.Store(false)

	cfg, err := settings.LoadConfiguration(ctx, p.deps.Store)
	if err != nil {
		return nil, err
	}

	if cfg.ServerURL == "" || cfg.UserID == "" {
		badge.Clear(p.deps.Indicator)
		return nil, &ConfigError{Directive: DirectiveSaveSettings}
	}

	lastViewed, err := settings.LastViewed(ctx, p.deps.Store)
	if err != nil {
		return nil, err
	}

	cutoff := builds.PollCutoff(p.deps.now(), cfg.WindowHours, lastViewed)

	jobs, err := p.deps.Sources(cfg.ServerURL).Jobs(ctx, jenkins.Basic)
	if err != nil {
		return nil, fmt.Errorf("poll: %w", err)
	}

	finished := builds.Finished(jobs, cfg.UserID, cutoff)
	p.deps.Logger.Debug("polled", "jobs", len(jobs), "finished", len(finished), "cutoff", cutoff)

	if len(finished) > 0 {
		p.deps.Indicator.SetText(strconv.Itoa(len(finished)))
		p.deps.Indicator.SetColor(badge.ActiveColor)
	} else {
		badge.Clear(p.deps.Indicator)
	}

	return &PollResult{Finished: finished, Cutoff: cutoff}, nil
}

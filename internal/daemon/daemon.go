package daemon

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/marcin-skalski/jobcheck/internal/badge"
	"github.com/marcin-skalski/jobcheck/internal/builds"
	"github.com/marcin-skalski/jobcheck/internal/checker"
	"github.com/marcin-skalski/jobcheck/internal/settings"
	"github.com/marcin-skalski/jobcheck/internal/tui"
)

// PollEvent is the name the poller is registered under.
const PollEvent = "pollJobs"

// Handler runs once per scheduler tick.
type Handler func(ctx context.Context)

type Poller interface {
	Poll(ctx context.Context) (*checker.PollResult, error)
}

type Daemon struct {
	interval time.Duration
	poller   Poller
	badge    *badge.Badge
	store    settings.Store
	logger   *slog.Logger

	handlersMu sync.Mutex
	handlers   map[string]Handler

	pollMu       sync.Mutex
	lastPoll     time.Time
	lastPollErr  error
	lastFinished []builds.FinishedJob
}

func New(interval time.Duration, poller Poller, b *badge.Badge, store settings.Store, logger *slog.Logger) *Daemon {
	d := &Daemon{
		interval: interval,
		poller:   poller,
		badge:    b,
		store:    store,
		logger:   logger.With("component", "daemon"),
		handlers: make(map[string]Handler),
	}
	d.Register(PollEvent, d.poll)
	return d
}

// Register adds or replaces the handler for a named event.
func (d *Daemon) Register(name string, h Handler) {
	d.handlersMu.Lock()
	defer d.handlersMu.Unlock()
	d.handlers[name] = h
}

// Run fires every handler once, then on each tick until ctx is done.
func (d *Daemon) Run(ctx context.Context) error {
	d.logger.Info("daemon started", "poll_interval", d.interval)

	d.fire(ctx)

	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			d.logger.Info("daemon stopped")
			return nil
		case <-ticker.C:
			d.fire(ctx)
		}
	}
}

func (d *Daemon) fire(ctx context.Context) {
	d.handlersMu.Lock()
	names := make([]string, 0, len(d.handlers))
	for name := range d.handlers {
		names = append(names, name)
	}
	handlers := make(map[string]Handler, len(d.handlers))
	for k, v := range d.handlers {
		handlers[k] = v
	}
	d.handlersMu.Unlock()

	sort.Strings(names)
	for _, name := range names {
		d.logger.Debug("event fired", "event", name)
		handlers[name](ctx)
	}
}

func (d *Daemon) poll(ctx context.Context) {
	res, err := d.poller.Poll(ctx)

	d.pollMu.Lock()
	d.lastPoll = time.Now()
	d.lastPollErr = err
	if err == nil {
		d.lastFinished = res.Finished
	}
	d.pollMu.Unlock()

	switch {
	case err == nil:
		d.logger.Info("polled jobs", "finished", len(res.Finished))
	case errors.Is(err, checker.ErrConfigurationMissing):
		d.logger.Debug("poll skipped", "reason", err)
	case errors.Is(err, checker.ErrBusy):
		d.logger.Debug("poll skipped", "reason", err)
	default:
		d.logger.Error("poll failed", "err", err)
	}
}

func (d *Daemon) GetSnapshot() tui.Snapshot {
	d.pollMu.Lock()
	finished := append([]builds.FinishedJob(nil), d.lastFinished...)
	lastPoll := d.lastPoll
	var pollErr string
	if d.lastPollErr != nil {
		pollErr = d.lastPollErr.Error()
	}
	d.pollMu.Unlock()

	snap := tui.Snapshot{
		Timestamp: time.Now(),
		Badge:     d.badge.State(),
		LastPoll:  lastPoll,
		PollError: pollErr,
		Finished:  finished,
	}

	cfg, err := settings.LoadConfiguration(context.Background(), d.store)
	if err != nil {
		d.logger.Warn("snapshot settings unavailable", "err", err)
		return snap
	}
	snap.ServerURL = cfg.ServerURL
	snap.UserID = cfg.UserID
	snap.WindowHours = cfg.WindowHours
	snap.SortOrder = string(cfg.SortOrder)
	return snap
}

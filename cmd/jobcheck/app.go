package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/spf13/viper"

	"github.com/marcin-skalski/jobcheck/internal/badge"
	"github.com/marcin-skalski/jobcheck/internal/checker"
	"github.com/marcin-skalski/jobcheck/internal/config"
	"github.com/marcin-skalski/jobcheck/internal/jenkins"
	"github.com/marcin-skalski/jobcheck/internal/logging"
	"github.com/marcin-skalski/jobcheck/internal/settings"
)

// app is everything a command needs, built from the config file.
type app struct {
	cfg       *config.Config
	logger    *slog.Logger
	store     settings.Store
	badge     *badge.Badge
	poller    *checker.Poller
	inspector *checker.Inspector

	logCloser io.Closer
}

func newApp(ctx context.Context, quiet bool) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	logger, logCloser, err := logging.Setup(logging.Options{
		File:  cfg.LogFile,
		Level: cfg.Log.Level,
		Quiet: quiet,
	})
	if err != nil {
		return nil, fmt.Errorf("setup logger: %w", err)
	}

	store, err := settings.Open(cfg.Store.Backend, cfg.Store.Path)
	if err != nil {
		logCloser.Close()
		return nil, err
	}

	if err := settings.Seed(ctx, store, seedFromDefaults(cfg.Defaults)); err != nil {
		store.Close()
		logCloser.Close()
		return nil, err
	}

	b := badge.New()
	deps := checker.Deps{
		Store:     store,
		Sources:   newSourceFactory(cfg, logger),
		Indicator: b,
		Logger:    logger,
		Now:       time.Now,
	}

	return &app{
		cfg:       cfg,
		logger:    logger,
		store:     store,
		badge:     b,
		poller:    checker.NewPoller(deps),
		inspector: checker.NewInspector(deps),
		logCloser: logCloser,
	}, nil
}

func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		a.logger.Warn("close settings store", "err", err)
	}
	a.logCloser.Close()
}

// loadConfig reads the file named by --config and applies flag and
// JOBCHECK_* environment overrides.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(viper.GetString("config"))
	if err != nil {
		return nil, err
	}
	if lvl := viper.GetString("log.level"); lvl != "" {
		cfg.Log.Level = lvl
	}
	if listen := viper.GetString("http.listen"); listen != "" {
		cfg.HTTP.Listen = listen
	}
	return cfg, nil
}

func seedFromDefaults(d config.DefaultsConfig) settings.Update {
	u := settings.Update{
		ServerURL: d.ServerURL,
		SortOrder: d.SortOrder,
	}
	if d.WindowHours > 0 {
		u.WindowHours = strconv.Itoa(d.WindowHours)
	}
	return u
}

// newSourceFactory builds a Jenkins client per call so a changed server URL
// takes effect on the next poll.
func newSourceFactory(cfg *config.Config, logger *slog.Logger) checker.SourceFactory {
	logger = logger.With("component", "jenkins")
	return func(serverURL string) checker.Source {
		hc, err := jenkins.NewHTTPClient(serverURL, cfg.Server.Session.Cookies, cfg.Server.Timeout)
		if err != nil {
			logger.Warn("session cookies not applied", "err", err)
			hc = &http.Client{Timeout: cfg.Server.Timeout}
		}
		return jenkins.NewClient(serverURL, hc, logger)
	}
}

package main

import (
	"context"
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/marcin-skalski/jobcheck/internal/daemon"
	"github.com/marcin-skalski/jobcheck/internal/server"
	"github.com/marcin-skalski/jobcheck/internal/tui"
)

var runCmd = &cobra.Command{
	Use:          "run",
	Short:        "Poll on a schedule and show the TUI",
	SilenceUsage: true,
	Args:         cobra.NoArgs,
	RunE:         runDaemon,
}

func runDaemon(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	// Auto-detect TUI capability
	enableTUI := !viper.GetBool("no_tui") && os.Getenv("JOBCHECK_TUI") != "0" &&
		isatty.IsTerminal(os.Stdin.Fd()) && isatty.IsTerminal(os.Stdout.Fd())

	a, err := newApp(ctx, enableTUI)
	if err != nil {
		return err
	}
	defer a.Close()

	d := daemon.New(a.cfg.PollInterval, a.poller, a.badge, a.store, a.logger)

	if a.cfg.HTTP.Listen != "" {
		srv := server.New(a.cfg.HTTP.Listen, a.inspector, a.badge, time.Local, a.logger)
		go func() {
			if err := srv.Start(); err != nil {
				a.logger.Error("http server error", "err", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Stop(shutdownCtx); err != nil {
				a.logger.Warn("http server shutdown", "err", err)
			}
		}()
	}

	if !enableTUI {
		a.logger.Info("jobcheck starting (headless)", "config", viper.GetString("config"))
		return d.Run(ctx)
	}

	// TUI mode: run daemon in background, TUI in foreground
	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("jobcheck daemon starting in background", "config", viper.GetString("config"))
		if err := d.Run(ctx); err != nil && ctx.Err() == nil {
			a.logger.Error("daemon error", "err", err)
			errCh <- err
		}
	}()

	m := tui.NewModel(d, a.inspector, a.cfg.TUI.RefreshInterval, time.Local)
	p := tea.NewProgram(m, tea.WithContext(ctx))

	go func() {
		select {
		case <-errCh:
			p.Send(tea.Quit())
		case <-ctx.Done():
		}
	}()

	if _, err := p.Run(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}

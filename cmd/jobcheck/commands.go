package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/x/ansi"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/marcin-skalski/jobcheck/internal/checker"
	"github.com/marcin-skalski/jobcheck/internal/daemon"
	"github.com/marcin-skalski/jobcheck/internal/report"
	"github.com/marcin-skalski/jobcheck/internal/settings"
)

var pollCmd = &cobra.Command{
	Use:          "poll",
	Short:        "Count newly finished builds once",
	SilenceUsage: true,
	Args:         cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), true)
		if err != nil {
			return err
		}
		defer a.Close()

		return pollOnce(cmd.Context(), a.poller, cmd.OutOrStdout())
	},
}

// pollOnce runs one poll and prints the count. Missing configuration counts
// as nothing new, the same way the scheduled poll clears the badge.
func pollOnce(ctx context.Context, p daemon.Poller, out io.Writer) error {
	res, err := p.Poll(ctx)
	switch {
	case errors.Is(err, checker.ErrConfigurationMissing):
		res = &checker.PollResult{}
	case err != nil:
		return err
	}

	fmt.Fprintf(out, "%d newly finished\n", len(res.Finished))
	for _, j := range res.Finished {
		fmt.Fprintf(out, "  %s #%d %s\n", report.TruncateName(j.JobName), j.BuildNumber, j.Status)
	}
	return nil
}

var inspectCmd = &cobra.Command{
	Use:          "inspect",
	Short:        "Show builds you triggered within the saved window",
	SilenceUsage: true,
	Args:         cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		asHTML, _ := cmd.Flags().GetBool("html")

		a, err := newApp(cmd.Context(), true)
		if err != nil {
			return err
		}
		defer a.Close()

		r, err := a.inspector.Inspect(cmd.Context())
		if err != nil {
			return err
		}

		if r.Notice != "" {
			fmt.Fprintln(cmd.ErrOrStderr(), r.Notice)
		}

		out := cmd.OutOrStdout()
		if asHTML {
			return report.RenderHTML(out, r, time.Local)
		}
		return writeTerminal(out, report.RenderText(r, time.Local))
	},
}

var settingsCmd = &cobra.Command{
	Use:          "settings",
	Short:        "Show or change the saved settings",
	SilenceUsage: true,
	Args:         cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		flags := cmd.Flags()
		serverURL, _ := flags.GetString("server")
		window, _ := flags.GetString("window")
		sortOrder, _ := flags.GetString("sort")

		a, err := newApp(cmd.Context(), true)
		if err != nil {
			return err
		}
		defer a.Close()

		ctx := cmd.Context()
		out := cmd.OutOrStdout()

		switch {
		case flags.Changed("server"):
			status, err := a.inspector.SaveSettings(ctx, settings.Update{
				ServerURL:   serverURL,
				WindowHours: window,
				SortOrder:   sortOrder,
			})
			if status != "" {
				fmt.Fprintln(out, status)
			}
			if err != nil {
				return err
			}

		case flags.Changed("window") || flags.Changed("sort"):
			if flags.Changed("window") {
				status, err := a.inspector.SetWindow(ctx, window)
				if err != nil {
					return err
				}
				fmt.Fprintln(out, status)
			}
			if flags.Changed("sort") {
				status, err := a.inspector.SetSortOrder(ctx, sortOrder)
				if err != nil {
					return err
				}
				fmt.Fprintln(out, status)
			}
		}

		cfg, err := settings.LoadConfiguration(ctx, a.store)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "server: %s\nuser:   %s\nwindow: %d hour(s)\nsort:   %s\n",
			cfg.ServerURL, cfg.UserID, cfg.WindowHours, cfg.SortOrder)
		return nil
	},
}

var whoamiCmd = &cobra.Command{
	Use:          "whoami",
	Short:        "Resolve and store the identity of the session",
	SilenceUsage: true,
	Args:         cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), true)
		if err != nil {
			return err
		}
		defer a.Close()

		name, err := a.inspector.RefreshIdentity(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), name)
		return nil
	},
}

func init() {
	inspectCmd.Flags().Bool("html", false, "print the report as an HTML fragment")

	settingsCmd.Flags().String("server", "", "Jenkins server URL; saving it refreshes the identity")
	settingsCmd.Flags().String("window", "", "time window in hours")
	settingsCmd.Flags().String("sort", "", "sort order (asc|desc)")
}

// writeTerminal drops styling when out is not a terminal.
func writeTerminal(out io.Writer, s string) error {
	if f, ok := out.(*os.File); !ok || !isatty.IsTerminal(f.Fd()) {
		s = ansi.Strip(s)
	}
	_, err := io.WriteString(out, s)
	return err
}

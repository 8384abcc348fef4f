package main

import (
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var rootCmd = &cobra.Command{
	Use:          "jobcheck",
	Short:        "Watch Jenkins for builds you started",
	Long:         `Polls a Jenkins server for builds triggered by the current user and reports the ones that finished.`,
	SilenceUsage: true,
	RunE:         runDaemon,
}

func init() {
	rootCmd.PersistentFlags().StringP("config", "c", "config.yaml", "path to config file")
	rootCmd.PersistentFlags().String("log-level", "", "log level override (debug|info|warn|error)")
	rootCmd.PersistentFlags().Bool("no-tui", false, "disable TUI mode")
	rootCmd.PersistentFlags().String("listen", "", "serve the report over HTTP on this address")

	viper.SetEnvPrefix("JOBCHECK")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()
	viper.SetDefault("config", "config.yaml")

	_ = viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
	_ = viper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("http.listen", rootCmd.PersistentFlags().Lookup("listen"))
	_ = viper.BindPFlag("no_tui", rootCmd.PersistentFlags().Lookup("no-tui"))

	rootCmd.AddCommand(runCmd, pollCmd, inspectCmd, settingsCmd, whoamiCmd)
}

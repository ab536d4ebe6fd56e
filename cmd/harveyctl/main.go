package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/kimchiprasadyadav-beep/callharvey/pkg/logger"
)

var (
	flagBaseURL string
	flagVerbose bool
)

var rootCmd = &cobra.Command{
	Use:   "harveyctl",
	Short: "Call Harvey operator CLI",
	Long:  "Command-line access to the Call Harvey backend: conversations, threads, leads and calls.\nSettings live in ~/.harvey/config.toml.",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if flagVerbose {
			slog.SetDefault(logger.New("local"))
		} else {
			slog.SetDefault(logger.Discard())
		}
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagBaseURL, "base-url", "", "backend base URL (overrides the profile)")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "log sync activity to stderr")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

package main

import (
	"log/slog"

	"github.com/spf13/cobra"
)

var version = "dev"

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "skillrank",
		Short: "Skillrank - evaluation engine for agent skills",
		Long: `Skillrank evaluates third-party agent skills through blinded paired
comparisons: for each skill it generates realistic user prompts, runs
them with and without the skill, has a blind judge pick the better
response, and aggregates the verdicts into a graded leaderboard.

Every intermediate artifact is persisted, so interrupted runs resume
where they left off instead of repeating paid model calls.`,
		Version:      version,
		SilenceUsage: true,
	}

	debugLogging := cmd.PersistentFlags().Bool("debug", false, "Enable debug logging")
	cmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		if *debugLogging {
			slog.SetLogLoggerLevel(slog.LevelDebug)
		}
	}

	// Add subcommands
	cmd.AddCommand(newRunCommand())
	cmd.AddCommand(newListCommand())
	cmd.AddCommand(newLeaderboardCommand())

	return cmd
}

func execute() error {
	rootCmd := newRootCommand()
	return rootCmd.Execute()
}

package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/kalybratex/skillrank/internal/evidence"
)

var (
	leaderboardPath   string
	leaderboardFormat string
)

func newLeaderboardCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "leaderboard",
		Short: "Show the current leaderboard",
		RunE:  leaderboardCommandE,
	}

	cmd.Flags().StringVar(&leaderboardPath, "path", "data/leaderboard.json", "Leaderboard file")
	cmd.Flags().StringVar(&leaderboardFormat, "format", "table", "Output format: table, json")

	return cmd
}

func leaderboardCommandE(cmd *cobra.Command, args []string) error {
	lb, err := evidence.ReadLeaderboard(leaderboardPath)
	if err != nil {
		return err
	}
	if lb == nil {
		fmt.Fprintf(cmd.OutOrStdout(), "No leaderboard at %s; run an evaluation first\n", leaderboardPath)
		return nil
	}

	if leaderboardFormat == "json" {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(lb)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Leaderboard (%d skills, generated %s)\n\n",
		lb.TotalSkills, lb.GeneratedAt.Format("2006-01-02 15:04:05 MST"))

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "RANK\tSKILL\tGRADE\tWIN RATE\tW/L/T\tSECURITY\tCOST/USE\tSTATUS")
	for i, entry := range lb.Rankings {
		winRate := "n/a"
		if entry.WinRate != nil {
			winRate = fmt.Sprintf("%.1f%%", *entry.WinRate*100)
			// The star marks rates whose confidence interval excludes
			// a coin flip.
			if entry.DistinctFromChance {
				winRate += "*"
			}
		}
		grade := entry.Grade
		if grade == "" {
			grade = "-"
		}
		sec := string(entry.SecurityGrade)
		if sec == "" {
			sec = "-"
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%d/%d/%d\t%s\t$%.6f\t%s\n",
			i+1, entry.SkillID, grade, winRate,
			entry.Wins, entry.Losses, entry.Ties,
			sec, entry.CostPerUse, entry.Status)
	}
	return w.Flush()
}

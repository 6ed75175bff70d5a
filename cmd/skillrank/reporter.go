package main

import (
	"fmt"
	"io"
	"time"

	"github.com/kalybratex/skillrank/internal/models"
	"github.com/kalybratex/skillrank/internal/orchestration"
)

// consoleReporter turns progress events into terminal output. Skill
// lifecycle lines always print; per-trial lines only with --verbose.
type consoleReporter struct {
	out     io.Writer
	verbose bool
}

func newConsoleReporter(out io.Writer, verbose bool) *consoleReporter {
	return &consoleReporter{out: out, verbose: verbose}
}

func (r *consoleReporter) handle(ev orchestration.ProgressEvent) {
	switch ev.EventType {
	case orchestration.EventRunStart:
		fmt.Fprintf(r.out, "Evaluating %d skill(s)\n", ev.TotalSkills)
	case orchestration.EventSkillStart:
		fmt.Fprintf(r.out, "[%d/%d] %s\n", ev.SkillNum, ev.TotalSkills, ev.SkillID)
	case orchestration.EventSkillComplete:
		icon := statusIcon(ev.Status)
		fmt.Fprintf(r.out, "[%d/%d] %s %s (%s, %s)\n",
			ev.SkillNum, ev.TotalSkills, ev.SkillID, icon, ev.Status,
			formatDuration(time.Duration(ev.DurationMs)*time.Millisecond))
	case orchestration.EventTrialComplete:
		if r.verbose {
			fmt.Fprintf(r.out, "  trial %d/%d: %s\n", ev.TrialNum, ev.TotalTrials, ev.Verdict)
		}
	case orchestration.EventTrialCached:
		if r.verbose {
			fmt.Fprintf(r.out, "  trial %d/%d: %s (cached)\n", ev.TrialNum, ev.TotalTrials, ev.Verdict)
		}
	case orchestration.EventTrialErrored:
		fmt.Fprintf(r.out, "  trial %d/%d failed: %v\n", ev.TrialNum, ev.TotalTrials, ev.Err)
	case orchestration.EventSecurityComplete:
		if r.verbose {
			fmt.Fprintf(r.out, "  security analysis done for %s\n", ev.SkillID)
		}
	case orchestration.EventSecurityCached:
		if r.verbose {
			fmt.Fprintf(r.out, "  security analysis reused for %s\n", ev.SkillID)
		}
	}
}

// printRunSummary writes the per-skill outcome table after a run.
func printRunSummary(out io.Writer, summary *orchestration.Summary) {
	fmt.Fprintf(out, "\nRun finished in %s\n",
		formatDuration(summary.FinishedAt.Sub(summary.StartedAt)))

	for _, res := range summary.Results {
		line := fmt.Sprintf("  %s %-24s %-9s trials: %d done",
			statusIcon(res.Status), res.SkillID, res.Status, res.CompletedTrials)
		if res.CachedTrials > 0 {
			line += fmt.Sprintf(", %d cached", res.CachedTrials)
		}
		if res.ErroredTrials > 0 {
			line += fmt.Sprintf(", %d errored", res.ErroredTrials)
		}
		if res.Err != nil {
			line += fmt.Sprintf(" (%v)", res.Err)
		}
		fmt.Fprintln(out, line)
	}
}

func statusIcon(status models.RunStatus) string {
	switch status {
	case models.StatusComplete:
		return "✅"
	case models.StatusPartial:
		return "⚠️"
	default:
		return "❌"
	}
}

// formatDuration formats a duration in a consistent, human-readable way.
func formatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	return d.Round(time.Millisecond).String()
}

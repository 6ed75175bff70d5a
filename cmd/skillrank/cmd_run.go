package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/kalybratex/skillrank/internal/config"
	"github.com/kalybratex/skillrank/internal/evidence"
	"github.com/kalybratex/skillrank/internal/judge"
	"github.com/kalybratex/skillrank/internal/limiter"
	"github.com/kalybratex/skillrank/internal/llm"
	"github.com/kalybratex/skillrank/internal/metrics"
	"github.com/kalybratex/skillrank/internal/models"
	"github.com/kalybratex/skillrank/internal/orchestration"
	"github.com/kalybratex/skillrank/internal/promptgen"
	"github.com/kalybratex/skillrank/internal/security"
	"github.com/kalybratex/skillrank/internal/skills"
	"github.com/kalybratex/skillrank/internal/tokens"
	"github.com/kalybratex/skillrank/internal/trials"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	skillIDs     []string
	runAll       bool
	force        bool
	skipSecurity bool
	limit        int
	parallel     int
	workers      int
	configPath   string
	evidenceDir  string
	skillsDir    string
	seed         int64
	verbose      bool
)

func newRunCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Evaluate skills and rebuild the leaderboard",
		Long: `Run the evaluation pipeline for the selected skills.

For each skill: generate prompts (cached by content hash), run each
prompt with and without the skill, judge the pairs blind, analyze the
skill content for security risks, and derive a graded score. The
leaderboard is rebuilt after every skill so interrupting the run never
loses finished work.`,
		RunE: runCommandE,
	}

	cmd.Flags().StringArrayVar(&skillIDs, "skill", nil, "Skill ID to evaluate (can be repeated)")
	cmd.Flags().BoolVar(&runAll, "all", false, "Evaluate every skill in the skills directory")
	cmd.Flags().BoolVar(&force, "force", false, "Discard existing evidence and re-evaluate from scratch")
	cmd.Flags().BoolVar(&skipSecurity, "skip-security", false, "Skip the security analysis pass")
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum number of skills to evaluate (0 = no limit)")
	cmd.Flags().IntVar(&parallel, "parallel", 0, "Concurrent skills (default from config)")
	cmd.Flags().IntVar(&workers, "workers", 1, "Concurrent trials within one skill")
	cmd.Flags().StringVar(&configPath, "config", "", "Path to a YAML config file")
	cmd.Flags().StringVar(&evidenceDir, "evidence-dir", "", "Evidence directory (overrides config)")
	cmd.Flags().StringVar(&skillsDir, "skills-dir", "", "Skills directory (overrides config)")
	cmd.Flags().Int64Var(&seed, "seed", -1, "Position-assignment seed (-1 = random)")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output with per-trial progress")

	return cmd
}

func runCommandE(cmd *cobra.Command, args []string) error {
	if len(skillIDs) == 0 && !runAll {
		return fmt.Errorf("select skills with --skill or pass --all")
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if seed < 0 && cfg.Trials.Seed >= 0 {
		seed = cfg.Trials.Seed
	}

	apiKey, err := config.APIKey()
	if err != nil {
		return err
	}

	store, err := evidence.New(cfg.Paths.EvidenceDir)
	if err != nil {
		return err
	}

	logger := slog.Default()
	m := metrics.New(prometheus.DefaultRegisterer)
	gate := limiter.New(cfg.Limits.MaxConcurrentCalls, cfg.Limits.CallsPerMinute)
	client := llm.NewOpenAI(apiKey, cfg.Models.BaseURL, cfg.Retry, gate, m, logger)

	counter := tokens.NewCounter(tokens.DefaultEncoding)
	gen := promptgen.New(client, store, counter, cfg.Models.Generation,
		cfg.Trials.PromptCount, cfg.Trials.MaxContentBytes, logger)
	j, err := judge.NewForContext(client, cfg.Models.Judge, cfg.Models.JudgeContext)
	if err != nil {
		return err
	}
	runner := trials.New(client, j, cfg.Models.Execution, seed, m)
	analyzer := security.New(client, cfg.Models.Judge)
	loader := skills.NewLoader(cfg.Paths.SkillsDir)

	orch := orchestration.New(cfg, loader, store, gen, runner, analyzer, logger)
	orch.OnProgress(newConsoleReporter(cmd.OutOrStdout(), verbose).handle)

	summary, err := orch.Run(cmd.Context(), orchestration.Options{
		SkillIDs:     skillIDs,
		Limit:        limit,
		Parallel:     parallel,
		Workers:      workers,
		Force:        force,
		SkipSecurity: skipSecurity,
	})
	if err != nil {
		return err
	}

	printRunSummary(cmd.OutOrStdout(), summary)

	if !summary.AllComplete() {
		incomplete := 0
		for _, r := range summary.Results {
			if r.Status != models.StatusComplete {
				incomplete++
			}
		}
		return &IncompleteRunError{
			Message: fmt.Sprintf("%d of %d skill(s) did not complete", incomplete, len(summary.Results)),
		}
	}
	return nil
}

func loadConfig() (*config.Config, error) {
	cfg := config.Default()
	if configPath != "" {
		loaded, err := config.Load(configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	if evidenceDir != "" {
		cfg.Paths.EvidenceDir = evidenceDir
	}
	if skillsDir != "" {
		cfg.Paths.SkillsDir = skillsDir
	}
	return cfg, nil
}

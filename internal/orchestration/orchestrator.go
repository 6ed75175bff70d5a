// Package orchestration drives the full evaluation pipeline: prompts,
// trials, security, scoring, and the leaderboard rebuild, one
// EvaluationRun per skill. Every intermediate artifact is persisted as
// it lands, so an interrupted run resumes from the evidence store
// instead of repeating paid model calls.
package orchestration

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/kalybratex/skillrank/internal/config"
	"github.com/kalybratex/skillrank/internal/evidence"
	"github.com/kalybratex/skillrank/internal/models"
	"github.com/kalybratex/skillrank/internal/promptgen"
	"github.com/kalybratex/skillrank/internal/scoring"
	"github.com/kalybratex/skillrank/internal/security"
	"github.com/kalybratex/skillrank/internal/skills"
	"github.com/kalybratex/skillrank/internal/trials"
)

// ProgressListener receives progress updates
type ProgressListener func(event ProgressEvent)

// EventType represents the type of progress event
type EventType string

// EventType constants
const (
	EventRunStart         EventType = "run_start"
	EventRunComplete      EventType = "run_complete"
	EventSkillStart       EventType = "skill_start"
	EventSkillComplete    EventType = "skill_complete"
	EventTrialStart       EventType = "trial_start"
	EventTrialComplete    EventType = "trial_complete"
	EventTrialCached      EventType = "trial_cached"
	EventTrialErrored     EventType = "trial_errored"
	EventSecurityComplete EventType = "security_complete"
	EventSecurityCached   EventType = "security_cached"
)

// ProgressEvent represents a progress update
type ProgressEvent struct {
	EventType   EventType
	SkillID     string
	SkillNum    int
	TotalSkills int
	TrialNum    int
	TotalTrials int
	Status      models.RunStatus
	Verdict     models.Verdict
	Err         error
	DurationMs  int64
}

// Options select what a run covers.
type Options struct {
	// SkillIDs restricts the run; empty means every discovered skill.
	SkillIDs []string

	// Limit caps how many skills run, 0 for no cap.
	Limit int

	// Parallel is the skill-level concurrency ceiling.
	Parallel int

	// Workers is the trial-level concurrency within one skill.
	Workers int

	// Force discards existing evidence before evaluating.
	Force bool

	// SkipSecurity omits the security pass entirely.
	SkipSecurity bool
}

// SkillResult is one skill's outcome in the run summary.
type SkillResult struct {
	SkillID         string
	Status          models.RunStatus
	CompletedTrials int
	ErroredTrials   int
	CachedTrials    int
	Err             error
}

// Summary enumerates every skill the run touched.
type Summary struct {
	Results    []SkillResult
	StartedAt  time.Time
	FinishedAt time.Time
}

// AllComplete reports whether every skill finished with a full evidence
// set.
func (s *Summary) AllComplete() bool {
	for _, r := range s.Results {
		if r.Status != models.StatusComplete {
			return false
		}
	}
	return len(s.Results) > 0
}

// Orchestrator wires the pipeline stages together.
type Orchestrator struct {
	cfg      *config.Config
	loader   *skills.Loader
	store    *evidence.Store
	gen      *promptgen.Generator
	runner   *trials.Runner
	analyzer *security.Analyzer
	logger   *slog.Logger

	// Serializes leaderboard rebuilds across concurrent skills.
	lbMu sync.Mutex

	progressMu sync.Mutex
	listeners  []ProgressListener
}

func New(cfg *config.Config, loader *skills.Loader, store *evidence.Store, gen *promptgen.Generator, runner *trials.Runner, analyzer *security.Analyzer, logger *slog.Logger) *Orchestrator {
	return &Orchestrator{
		cfg:      cfg,
		loader:   loader,
		store:    store,
		gen:      gen,
		runner:   runner,
		analyzer: analyzer,
		logger:   logger,
	}
}

// OnProgress registers a progress listener
func (o *Orchestrator) OnProgress(listener ProgressListener) {
	o.progressMu.Lock()
	defer o.progressMu.Unlock()
	o.listeners = append(o.listeners, listener)
}

func (o *Orchestrator) notifyProgress(event ProgressEvent) {
	o.progressMu.Lock()
	listeners := make([]ProgressListener, len(o.listeners))
	copy(listeners, o.listeners)
	o.progressMu.Unlock()

	for _, listener := range listeners {
		listener(event)
	}
}

// Run evaluates the selected skills. Per-skill failures are isolated:
// one skill erroring never aborts the others, and the returned summary
// covers every skill attempted.
func (o *Orchestrator) Run(ctx context.Context, opts Options) (*Summary, error) {
	started := time.Now().UTC()

	selected, err := o.selectSkills(opts)
	if err != nil {
		return nil, err
	}
	if len(selected) == 0 {
		return nil, fmt.Errorf("no skills to evaluate")
	}

	o.notifyProgress(ProgressEvent{
		EventType:   EventRunStart,
		TotalSkills: len(selected),
	})

	parallel := opts.Parallel
	if parallel <= 0 {
		parallel = o.cfg.Limits.MaxConcurrentSkills
	}
	if parallel <= 0 {
		parallel = 1
	}

	type result struct {
		index int
		res   SkillResult
	}
	resultChan := make(chan result, len(selected))
	semaphore := make(chan struct{}, parallel)

	var wg sync.WaitGroup
	for i, skill := range selected {
		wg.Add(1)
		go func(idx int, sk *models.Skill) {
			defer wg.Done()

			semaphore <- struct{}{}
			defer func() { <-semaphore }()

			o.notifyProgress(ProgressEvent{
				EventType:   EventSkillStart,
				SkillID:     sk.ID,
				SkillNum:    idx + 1,
				TotalSkills: len(selected),
			})
			skillStart := time.Now()

			res := o.evaluateSkill(ctx, sk, opts)
			resultChan <- result{index: idx, res: res}

			o.notifyProgress(ProgressEvent{
				EventType:   EventSkillComplete,
				SkillID:     sk.ID,
				SkillNum:    idx + 1,
				TotalSkills: len(selected),
				Status:      res.Status,
				Err:         res.Err,
				DurationMs:  time.Since(skillStart).Milliseconds(),
			})
		}(i, skill)
	}
	wg.Wait()
	close(resultChan)

	summary := &Summary{
		Results:   make([]SkillResult, len(selected)),
		StartedAt: started,
	}
	for r := range resultChan {
		summary.Results[r.index] = r.res
	}
	summary.FinishedAt = time.Now().UTC()

	o.notifyProgress(ProgressEvent{
		EventType:  EventRunComplete,
		DurationMs: summary.FinishedAt.Sub(started).Milliseconds(),
	})
	return summary, nil
}

func (o *Orchestrator) selectSkills(opts Options) ([]*models.Skill, error) {
	var selected []*models.Skill
	if len(opts.SkillIDs) > 0 {
		for _, id := range opts.SkillIDs {
			skill, err := o.loader.Load(id)
			if err != nil {
				return nil, err
			}
			selected = append(selected, skill)
		}
	} else {
		all, err := o.loader.LoadAll()
		if err != nil {
			return nil, err
		}
		selected = all
	}
	if opts.Limit > 0 && len(selected) > opts.Limit {
		selected = selected[:opts.Limit]
	}
	return selected, nil
}

// evaluateSkill runs the whole pipeline for one skill. It always
// produces a SkillResult; errors are recorded, never propagated up.
func (o *Orchestrator) evaluateSkill(ctx context.Context, skill *models.Skill, opts Options) SkillResult {
	run := &models.EvaluationRun{
		SkillID:   skill.ID,
		Status:    models.StatusPending,
		StartedAt: time.Now().UTC(),
	}

	if opts.Force {
		if err := o.store.Clear(skill.ID); err != nil {
			return o.failSkill(run, fmt.Errorf("clearing evidence: %w", err))
		}
	}
	if err := o.store.SaveSkillContent(skill.ID, skill.Content); err != nil {
		return o.failSkill(run, err)
	}

	promptSet, err := o.gen.Generate(ctx, skill, opts.Force)
	if err != nil {
		return o.failSkill(run, err)
	}

	// Security runs alongside the trials; it only needs the raw content.
	secDone := make(chan securityOutcome, 1)
	go func() {
		sa, err := o.runSecurity(ctx, skill, opts.SkipSecurity)
		secDone <- securityOutcome{assessment: sa, err: err}
	}()

	completed, cached, errored := o.runTrials(ctx, skill, promptSet, opts)
	sec := <-secDone
	assessment := sec.assessment
	if sec.err != nil {
		o.logger.Error("security analysis failed", "skill", skill.ID, "error", sec.err)
		run.RecordError(fmt.Sprintf("security: %v", sec.err))
	}

	run.TrialCount = completed + cached
	run.ErroredTrials = errored
	run.FinishedAt = time.Now().UTC()

	total := len(promptSet.Prompts)
	fraction := 0.0
	if total > 0 {
		fraction = float64(run.TrialCount) / float64(total)
	}

	var score *models.Score
	switch {
	case run.TrialCount == 0:
		run.Status = models.StatusErrored
	case fraction < o.cfg.Trials.MinCompletedFraction:
		// Too sparse to score honestly. The trials stay on disk for the
		// next resume; no score is derived from them.
		run.Status = models.StatusPartial
		o.logger.Warn("below completion threshold, not scoring",
			"skill", skill.ID,
			"completed", run.TrialCount,
			"total", total)
	default:
		allTrials, err := o.store.LoadTrials(skill.ID)
		if err != nil {
			return o.failSkill(run, err)
		}
		score = scoring.Compute(skill.ID, allTrials, o.cfg.Pricing)
		if err := o.store.SaveScore(score); err != nil {
			return o.failSkill(run, err)
		}
		run.Status = models.StatusComplete
	}

	// Complete trials alone do not finish a skill whose security
	// analysis failed. The run stays partial and the next resume
	// retries the analysis against the cached trials.
	if sec.err != nil && run.Status == models.StatusComplete {
		run.Status = models.StatusPartial
	}

	summary := models.BuildSummary(skill, run, score, assessment, total)
	if err := o.store.SaveSummary(&summary); err != nil {
		return o.failSkill(run, err)
	}
	if err := o.rebuildLeaderboard(); err != nil {
		o.logger.Error("leaderboard rebuild failed", "skill", skill.ID, "error", err)
		run.RecordError(fmt.Sprintf("leaderboard: %v", err))
	}

	return SkillResult{
		SkillID:         skill.ID,
		Status:          run.Status,
		CompletedTrials: completed,
		CachedTrials:    cached,
		ErroredTrials:   errored,
	}
}

// runTrials executes the missing trials for a prompt set. Trials already
// in the store are reused untouched, which is what makes interrupted
// runs resumable.
func (o *Orchestrator) runTrials(ctx context.Context, skill *models.Skill, promptSet *models.PromptSet, opts Options) (completed, cached, errored int) {
	workers := opts.Workers
	if workers <= 0 {
		workers = 1
	}

	var mu sync.Mutex
	semaphore := make(chan struct{}, workers)
	var wg sync.WaitGroup

	total := len(promptSet.Prompts)
	for _, prompt := range promptSet.Prompts {
		existing, found, err := o.store.LoadTrial(skill.ID, prompt.Index)
		if err == nil && found && existing != nil {
			cached++
			o.notifyProgress(ProgressEvent{
				EventType:   EventTrialCached,
				SkillID:     skill.ID,
				TrialNum:    prompt.Index + 1,
				TotalTrials: total,
				Verdict:     existing.Verdict,
			})
			continue
		}

		wg.Add(1)
		go func(p models.Prompt) {
			defer wg.Done()
			semaphore <- struct{}{}
			defer func() { <-semaphore }()

			o.notifyProgress(ProgressEvent{
				EventType:   EventTrialStart,
				SkillID:     skill.ID,
				TrialNum:    p.Index + 1,
				TotalTrials: total,
			})
			trialStart := time.Now()

			trial, err := o.runner.Run(ctx, skill, p)
			if err == nil {
				err = o.store.SaveTrial(trial)
			}

			mu.Lock()
			if err != nil {
				errored++
			} else {
				completed++
			}
			mu.Unlock()

			if err != nil {
				o.logger.Error("trial failed",
					"skill", skill.ID,
					"prompt_index", p.Index,
					"error", err)
				o.notifyProgress(ProgressEvent{
					EventType:   EventTrialErrored,
					SkillID:     skill.ID,
					TrialNum:    p.Index + 1,
					TotalTrials: total,
					Err:         err,
					DurationMs:  time.Since(trialStart).Milliseconds(),
				})
				return
			}
			o.notifyProgress(ProgressEvent{
				EventType:   EventTrialComplete,
				SkillID:     skill.ID,
				TrialNum:    p.Index + 1,
				TotalTrials: total,
				Verdict:     trial.Verdict,
				DurationMs:  time.Since(trialStart).Milliseconds(),
			})
		}(prompt)
	}
	wg.Wait()
	return completed, cached, errored
}

// securityOutcome carries the security pass result across the channel
// that joins it back to the trial loop.
type securityOutcome struct {
	assessment *models.SecurityAssessment
	err        error
}

// runSecurity reuses a persisted assessment when one exists. A failed
// analysis comes back as an error; the caller keeps the run partial so
// the next resume retries it.
func (o *Orchestrator) runSecurity(ctx context.Context, skill *models.Skill, skip bool) (*models.SecurityAssessment, error) {
	if skip {
		sa := security.Skipped(skill.ID)
		if err := o.store.SaveSecurity(sa); err != nil {
			return sa, fmt.Errorf("persisting skipped assessment: %w", err)
		}
		return sa, nil
	}

	if existing, err := o.store.LoadSecurity(skill.ID); err == nil && existing != nil && !existing.Skipped {
		o.notifyProgress(ProgressEvent{
			EventType: EventSecurityCached,
			SkillID:   skill.ID,
		})
		return existing, nil
	}

	sa, err := o.analyzer.Analyze(ctx, skill)
	if err != nil {
		return nil, err
	}
	if err := o.store.SaveSecurity(sa); err != nil {
		return nil, fmt.Errorf("persisting assessment: %w", err)
	}
	o.notifyProgress(ProgressEvent{
		EventType: EventSecurityComplete,
		SkillID:   skill.ID,
	})
	return sa, nil
}

func (o *Orchestrator) failSkill(run *models.EvaluationRun, err error) SkillResult {
	run.Status = models.StatusErrored
	run.FinishedAt = time.Now().UTC()
	run.RecordError(err.Error())
	o.logger.Error("skill evaluation failed", "skill", run.SkillID, "error", err)
	return SkillResult{
		SkillID:       run.SkillID,
		Status:        models.StatusErrored,
		ErroredTrials: run.ErroredTrials,
		Err:           err,
	}
}

// rebuildLeaderboard regenerates the leaderboard from every summary in
// the store. Serialized so concurrent skills do not interleave writes.
func (o *Orchestrator) rebuildLeaderboard() error {
	o.lbMu.Lock()
	defer o.lbMu.Unlock()

	ids, err := o.store.SkillIDs()
	if err != nil {
		return err
	}
	var summaries []models.SkillSummary
	for _, id := range ids {
		s, err := o.store.LoadSummary(id)
		if err != nil {
			return err
		}
		if s != nil {
			summaries = append(summaries, *s)
		}
	}
	_, err = evidence.WriteLeaderboard(o.cfg.Paths.Leaderboard, summaries)
	return err
}

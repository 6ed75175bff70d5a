// Package trials runs paired comparisons: for each prompt, a baseline
// completion (no skill) and a skill-augmented completion (skill content
// as system prompt) are fetched independently, then handed to the blind
// judge. A trial either completes fully or is not persisted at all.
package trials

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kalybratex/skillrank/internal/judge"
	"github.com/kalybratex/skillrank/internal/llm"
	"github.com/kalybratex/skillrank/internal/metrics"
	"github.com/kalybratex/skillrank/internal/models"
)

// Runner executes single trials.
type Runner struct {
	client llm.Client
	judge  *judge.Judge
	model  string
	m      *metrics.Metrics

	mu  sync.Mutex
	rng *rand.Rand
}

// New creates a Runner. seed fixes the position-assignment sequence;
// pass a negative seed for a time-derived one.
func New(client llm.Client, j *judge.Judge, execModel string, seed int64, m *metrics.Metrics) *Runner {
	if seed < 0 {
		seed = time.Now().UnixNano()
	}
	return &Runner{
		client: client,
		judge:  j,
		model:  execModel,
		m:      m,
		rng:    rand.New(rand.NewSource(seed)),
	}
}

// Run executes one full trial for a prompt. The returned trial is fully
// populated; on any error nothing is returned.
func (r *Runner) Run(ctx context.Context, skill *models.Skill, prompt models.Prompt) (*models.Trial, error) {
	started := time.Now().UTC()

	var (
		baseline *llm.Completion
		withSkil *llm.Completion
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		baseline, err = r.client.Complete(gctx, llm.Request{
			Purpose: llm.PurposeExecution,
			Model:   r.model,
			Prompt:  prompt.Text,
		})
		return err
	})
	g.Go(func() error {
		var err error
		withSkil, err = r.client.Complete(gctx, llm.Request{
			Purpose: llm.PurposeExecution,
			Model:   r.model,
			System:  skill.Content,
			Prompt:  prompt.Text,
		})
		return err
	})
	if err := g.Wait(); err != nil {
		r.m.TrialsTotal.WithLabelValues("errored").Inc()
		return nil, err
	}

	positionA := r.drawPosition()
	judgment, err := r.judge.Compare(ctx, skill.ID, prompt.Index,
		prompt.Text, baseline.Text, withSkil.Text, positionA)
	if err != nil {
		r.m.TrialsTotal.WithLabelValues("errored").Inc()
		return nil, err
	}

	r.m.TrialsTotal.WithLabelValues(string(judgment.Verdict)).Inc()
	return &models.Trial{
		SkillID:          skill.ID,
		PromptIndex:      prompt.Index,
		PromptText:       prompt.Text,
		BaselineResponse: baseline.Text,
		SkillResponse:    withSkil.Text,
		BaselineTokens:   baseline.Usage,
		SkillTokens:      withSkil.Usage,
		PositionA:        positionA,
		Verdict:          judgment.Verdict,
		Reasoning:        judgment.Reasoning,
		JudgeRaw:         judgment.Raw,
		JudgeModel:       judgment.Model,
		JudgeContext:     judgment.ContextVersion,
		StartedAt:        started,
		JudgedAt:         time.Now().UTC(),
	}, nil
}

func (r *Runner) drawPosition() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.rng.Intn(2) == 0 {
		return models.PositionBaseline
	}
	return models.PositionSkill
}

// Package promptgen turns a skill's content into a set of realistic
// user prompts via a generation model, cached by content hash so a
// skill is only ever generated against once per revision.
package promptgen

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/kalybratex/skillrank/internal/evidence"
	"github.com/kalybratex/skillrank/internal/llm"
	"github.com/kalybratex/skillrank/internal/models"
	"github.com/kalybratex/skillrank/internal/tokens"
)

// ContentError marks a skill whose content cannot be evaluated at all
// (empty, or too large to fit a generation call). The skill is skipped,
// not failed.
type ContentError struct {
	SkillID string
	Reason  string
}

func (e *ContentError) Error() string {
	return fmt.Sprintf("skill %s: unusable content: %s", e.SkillID, e.Reason)
}

// GenerationError marks a generation call whose output could not be
// turned into prompts, after the client's retry budget was spent.
type GenerationError struct {
	SkillID string
	Err     error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("generating prompts for %s: %v", e.SkillID, e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

// Generator produces and caches prompt sets.
type Generator struct {
	client          llm.Client
	store           *evidence.Store
	counter         tokens.Counter
	model           string
	promptCount     int
	maxContentBytes int
	logger          *slog.Logger
}

func New(client llm.Client, store *evidence.Store, counter tokens.Counter, model string, promptCount, maxContentBytes int, logger *slog.Logger) *Generator {
	if counter == nil {
		counter = tokens.NewEstimatingCounter()
	}
	return &Generator{
		client:          client,
		store:           store,
		counter:         counter,
		model:           model,
		promptCount:     promptCount,
		maxContentBytes: maxContentBytes,
		logger:          logger,
	}
}

// Generate returns the prompt set for a skill, reusing the persisted set
// when its content hash still matches. Set force to regenerate
// regardless of the cache.
func (g *Generator) Generate(ctx context.Context, skill *models.Skill, force bool) (*models.PromptSet, error) {
	if err := g.validateContent(skill); err != nil {
		return nil, err
	}

	hash := evidence.ContentHash(skill.Content)
	if !force {
		cached, err := g.store.LoadPromptSet(skill.ID)
		if err != nil {
			return nil, err
		}
		if cached != nil && cached.ContentHash == hash {
			g.logger.Debug("reusing cached prompts", "skill", skill.ID, "count", len(cached.Prompts))
			return cached, nil
		}
	}

	g.logger.Info("generating prompts",
		"skill", skill.ID,
		"count", g.promptCount,
		"content_tokens", g.counter.Count(skill.Content))

	completion, err := g.client.Complete(ctx, llm.Request{
		Purpose: llm.PurposeGeneration,
		Model:   g.model,
		System:  buildGenerationPrompt(skill.Content, g.promptCount),
		Prompt:  "Generate the prompts as specified.",
	})
	if err != nil {
		return nil, &GenerationError{SkillID: skill.ID, Err: err}
	}

	prompts, err := parsePrompts(completion.Text)
	if err != nil {
		return nil, &GenerationError{SkillID: skill.ID, Err: err}
	}
	prompts = dedupe(prompts)
	if len(prompts) > g.promptCount {
		prompts = prompts[:g.promptCount]
	}

	set := &models.PromptSet{
		SkillID:     skill.ID,
		ContentHash: hash,
		ModelID:     completion.Model,
		TokensUsed:  completion.Usage.Total(),
		GeneratedAt: time.Now().UTC(),
	}
	for i, p := range prompts {
		p.SkillID = skill.ID
		p.Index = i
		set.Prompts = append(set.Prompts, p)
	}
	if len(set.Prompts) < g.promptCount {
		set.Shortfall = g.promptCount - len(set.Prompts)
		g.logger.Warn("prompt generation came up short",
			"skill", skill.ID,
			"wanted", g.promptCount,
			"got", len(set.Prompts))
	}

	if err := g.store.SavePromptSet(set); err != nil {
		return nil, err
	}
	return set, nil
}

func (g *Generator) validateContent(skill *models.Skill) error {
	if strings.TrimSpace(skill.Content) == "" {
		return &ContentError{SkillID: skill.ID, Reason: "empty skill content"}
	}
	if g.maxContentBytes > 0 && len(skill.Content) > g.maxContentBytes {
		return &ContentError{
			SkillID: skill.ID,
			Reason:  fmt.Sprintf("content is %d bytes, limit %d", len(skill.Content), g.maxContentBytes),
		}
	}
	return nil
}

func buildGenerationPrompt(skillContent string, count int) string {
	return fmt.Sprintf(`You are an expert at creating realistic user prompts for testing AI capabilities.

Given the following skill document, generate exactly %d diverse prompts that a real user might ask, which would naturally benefit from the capabilities described in this skill.

Skill document:
---
%s
---

REQUIREMENTS:
1. Generate exactly %d prompts
2. Make prompts sound like realistic user requests (natural language, not formal)
3. Do NOT mention the skill name or that a skill exists - pretend you're a user who just has a task to do
4. Include a mix of difficulty levels: "simple" single-step tasks, "medium" multi-step tasks, and "complex" multi-part tasks requiring deep skill knowledge
5. Each prompt should test a specific capability from the skill
6. Prompts should be diverse - test different capabilities

RESPONSE FORMAT:
Return a JSON array with exactly %d objects, each containing:
- "prompt": The user's request (string)
- "difficulty": One of "simple", "medium", or "complex"
- "capability_tested": Brief description of which skill capability this tests

Return ONLY the JSON array, no additional text.`, count, skillContent, count, count)
}

var (
	fencedJSON  = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)\\s*```")
	bareArray   = regexp.MustCompile(`(?s)\[.*\]`)
	errNoArray  = fmt.Errorf("no JSON array found in response")
	errNoUsable = fmt.Errorf("response contained no usable prompts")
)

type generatedPrompt struct {
	Prompt           string `json:"prompt"`
	Difficulty       string `json:"difficulty"`
	CapabilityTested string `json:"capability_tested"`
}

// parsePrompts extracts the JSON array of prompts from model output,
// tolerating markdown fences and surrounding prose.
func parsePrompts(text string) ([]models.Prompt, error) {
	jsonText := strings.TrimSpace(text)
	if m := fencedJSON.FindStringSubmatch(jsonText); m != nil {
		jsonText = m[1]
	}
	if !strings.HasPrefix(jsonText, "[") {
		m := bareArray.FindString(jsonText)
		if m == "" {
			return nil, errNoArray
		}
		jsonText = m
	}

	var raw []generatedPrompt
	if err := json.Unmarshal([]byte(jsonText), &raw); err != nil {
		return nil, fmt.Errorf("parsing prompt array: %w", err)
	}

	var prompts []models.Prompt
	for _, r := range raw {
		if strings.TrimSpace(r.Prompt) == "" {
			continue
		}
		prompts = append(prompts, models.Prompt{
			Text:             strings.TrimSpace(r.Prompt),
			Difficulty:       normalizeDifficulty(r.Difficulty),
			CapabilityTested: r.CapabilityTested,
		})
	}
	if len(prompts) == 0 {
		return nil, errNoUsable
	}
	return prompts, nil
}

func normalizeDifficulty(d string) string {
	switch strings.ToLower(strings.TrimSpace(d)) {
	case models.DifficultySimple:
		return models.DifficultySimple
	case models.DifficultyMedium:
		return models.DifficultyMedium
	case models.DifficultyComplex:
		return models.DifficultyComplex
	default:
		return ""
	}
}

func dedupe(prompts []models.Prompt) []models.Prompt {
	seen := make(map[string]struct{}, len(prompts))
	var out []models.Prompt
	for _, p := range prompts {
		key := strings.ToLower(strings.Join(strings.Fields(p.Text), " "))
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, p)
	}
	return out
}

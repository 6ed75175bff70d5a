package models

import "time"

// Difficulty buckets for generated prompts.
const (
	DifficultySimple  = "simple"
	DifficultyMedium  = "medium"
	DifficultyComplex = "complex"
)

// Prompt is a single generated evaluation prompt for a skill.
type Prompt struct {
	SkillID          string `json:"skill_id"`
	Index            int    `json:"index"`
	Text             string `json:"text"`
	Difficulty       string `json:"difficulty,omitempty"`
	CapabilityTested string `json:"capability_tested,omitempty"`
}

// PromptSet is the full set of prompts generated for one skill, cached by
// a hash of the skill content so re-runs reuse it unless invalidated.
type PromptSet struct {
	SkillID     string    `json:"skill_id"`
	ContentHash string    `json:"content_hash"`
	Prompts     []Prompt  `json:"prompts"`
	ModelID     string    `json:"model_id"`
	TokensUsed  int       `json:"tokens_used"`
	GeneratedAt time.Time `json:"generated_at"`

	// Shortfall is how many prompts short of the requested count the
	// generation came up after deduplication. Non-zero values are a
	// generation anomaly; the set is never padded to hide them.
	Shortfall int `json:"shortfall,omitempty"`
}

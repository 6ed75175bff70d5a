package models

import "time"

// Verdict is the judge's outcome for a single trial.
type Verdict string

// Verdict constants
const (
	VerdictSkill    Verdict = "skill"
	VerdictBaseline Verdict = "baseline"
	VerdictTie      Verdict = "tie"
)

// Position labels for the blind comparison.
const (
	PositionSkill    = "skill"
	PositionBaseline = "baseline"
)

// TokenUsage holds token counts taken from model response metadata.
// Counts are never recomputed from response text.
type TokenUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// Total returns input plus output tokens.
func (u TokenUsage) Total() int {
	return u.InputTokens + u.OutputTokens
}

// Trial is one completed paired comparison for a single prompt index.
// A trial is either fully populated or absent from the evidence store;
// partially resolved trials are never persisted.
type Trial struct {
	SkillID     string `json:"skill_id"`
	PromptIndex int    `json:"prompt_index"`
	PromptText  string `json:"prompt_text"`

	BaselineResponse string     `json:"baseline_response"`
	SkillResponse    string     `json:"skill_response"`
	BaselineTokens   TokenUsage `json:"baseline_tokens"`
	SkillTokens      TokenUsage `json:"skill_tokens"`

	// PositionA records which response was shown to the judge as "A".
	// Persisted for audit; the judge itself only ever sees the letters.
	PositionA string `json:"position_a"`

	Verdict   Verdict `json:"verdict"`
	Reasoning string  `json:"reasoning"`

	// JudgeRaw is the judge's unparsed output, kept as audit evidence.
	JudgeRaw     string    `json:"judge_raw,omitempty"`
	JudgeModel   string    `json:"judge_model"`
	JudgeContext string    `json:"judge_context,omitempty"`
	StartedAt    time.Time `json:"started_at"`
	JudgedAt     time.Time `json:"judged_at"`
}

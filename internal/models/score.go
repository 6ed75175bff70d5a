package models

import (
	"time"

	"github.com/kalybratex/skillrank/internal/statistics"
)

// Score is the derived rating for a skill. It is a pure function of the
// skill's persisted trials, security assessment, and pricing constants:
// recomputing from the same evidence yields an identical Score.
type Score struct {
	SkillID string `json:"skill_id"`

	Wins   int `json:"wins"`
	Losses int `json:"losses"`
	Ties   int `json:"ties"`

	// WinRate is wins/(wins+losses) in [0,1]. Nil when there are no
	// decisive trials; an undefined rate is never reported as zero.
	WinRate *float64 `json:"win_rate"`

	// Grade is the letter band for the win rate, empty when WinRate is
	// nil ("insufficient data", which is distinct from an F).
	Grade string `json:"grade,omitempty"`

	AvgTokensSkill    float64 `json:"avg_tokens_skill"`
	AvgTokensBaseline float64 `json:"avg_tokens_baseline"`
	CostPerUse        float64 `json:"cost_per_use"`
	BaselineCost      float64 `json:"baseline_cost"`

	CompletedTrials int `json:"completed_trials"`

	// WinRateCI is a bootstrap confidence interval over per-trial
	// outcomes, present when at least two decisive trials exist.
	WinRateCI *statistics.ConfidenceInterval `json:"win_rate_ci,omitempty"`

	// DistinctFromChance is true when the interval excludes a coin
	// flip, in either direction.
	DistinctFromChance bool `json:"distinct_from_chance,omitempty"`

	ComputedAt time.Time `json:"computed_at"`
}

// WinRatePercent returns the win rate scaled to 0-100, and whether it is
// defined at all.
func (s *Score) WinRatePercent() (float64, bool) {
	if s.WinRate == nil {
		return 0, false
	}
	return *s.WinRate * 100.0, true
}

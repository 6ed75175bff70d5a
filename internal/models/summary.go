package models

import (
	"sort"
	"time"
)

// SkillSummary merges a skill's score, security assessment, and evidence
// counts into the record consumed by the leaderboard.
type SkillSummary struct {
	SkillID  string    `json:"skill_id"`
	Name     string    `json:"name"`
	Status   RunStatus `json:"status"`
	Grade    string    `json:"grade,omitempty"`
	WinRate  *float64  `json:"win_rate"`
	Wins     int       `json:"wins"`
	Losses   int       `json:"losses"`
	Ties     int       `json:"ties"`

	// DistinctFromChance marks a win rate whose confidence interval
	// excludes a coin flip.
	DistinctFromChance bool `json:"distinct_from_chance,omitempty"`

	SecurityGrade  SecurityGrade `json:"security_grade,omitempty"`
	SecurityIssues int           `json:"security_issues"`

	AvgTokensSkill float64 `json:"avg_tokens_skill"`
	CostPerUse     float64 `json:"cost_per_use"`

	PromptCount int       `json:"prompt_count"`
	TrialCount  int       `json:"trial_count"`
	ScoredAt    time.Time `json:"scored_at,omitzero"`
}

// Leaderboard is the aggregated artifact read by the public site. It is
// rewritten atomically after each skill completes so an interrupted run
// never loses finished work.
type Leaderboard struct {
	GeneratedAt time.Time      `json:"generated_at"`
	TotalSkills int            `json:"total_skills"`
	Rankings    []SkillSummary `json:"rankings"`
}

// BuildSummary assembles a SkillSummary from per-skill evidence. The
// security assessment may be nil (failed or skipped analysis).
func BuildSummary(skill *Skill, run *EvaluationRun, score *Score, security *SecurityAssessment, promptCount int) SkillSummary {
	s := SkillSummary{
		SkillID:     skill.ID,
		Name:        skill.DisplayName(),
		Status:      run.Status,
		PromptCount: promptCount,
		TrialCount:  run.TrialCount,
	}
	if score != nil {
		s.Grade = score.Grade
		s.WinRate = score.WinRate
		s.Wins = score.Wins
		s.Losses = score.Losses
		s.Ties = score.Ties
		s.DistinctFromChance = score.DistinctFromChance
		s.AvgTokensSkill = score.AvgTokensSkill
		s.CostPerUse = score.CostPerUse
		s.ScoredAt = score.ComputedAt
	}
	if security != nil && !security.Skipped {
		s.SecurityGrade = security.Grade
		s.SecurityIssues = len(security.Issues)
	}
	return s
}

// SortRankings orders summaries by win rate descending, skills with an
// undefined rate last, ties broken by skill ID for stable output.
func SortRankings(rankings []SkillSummary) {
	sort.SliceStable(rankings, func(i, j int) bool {
		a, b := rankings[i], rankings[j]
		switch {
		case a.WinRate != nil && b.WinRate == nil:
			return true
		case a.WinRate == nil && b.WinRate != nil:
			return false
		case a.WinRate != nil && b.WinRate != nil && *a.WinRate != *b.WinRate:
			return *a.WinRate > *b.WinRate
		default:
			return a.SkillID < b.SkillID
		}
	})
}

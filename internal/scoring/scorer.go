// Package scoring derives a skill's Score from its persisted evidence.
// Compute is pure: the same trials and pricing always produce the same
// Score, so scores can be rebuilt from the evidence store at any time.
package scoring

import (
	"hash/fnv"
	"math"
	"time"

	"github.com/kalybratex/skillrank/internal/config"
	"github.com/kalybratex/skillrank/internal/models"
	"github.com/kalybratex/skillrank/internal/statistics"
)

const confidenceLevel = 0.95

// Compute scores a skill from its completed trials. Errored trials never
// reach this function; only fully judged trials count.
func Compute(skillID string, trials []models.Trial, pricing config.PricingConfig) *models.Score {
	score := &models.Score{
		SkillID:         skillID,
		CompletedTrials: len(trials),
		ComputedAt:      time.Now().UTC(),
	}

	var outcomes []float64
	var inSkill, outSkill, inBase, outBase int
	for _, t := range trials {
		switch t.Verdict {
		case models.VerdictSkill:
			score.Wins++
			outcomes = append(outcomes, 1.0)
		case models.VerdictBaseline:
			score.Losses++
			outcomes = append(outcomes, 0.0)
		case models.VerdictTie:
			score.Ties++
		}
		inSkill += t.SkillTokens.InputTokens
		outSkill += t.SkillTokens.OutputTokens
		inBase += t.BaselineTokens.InputTokens
		outBase += t.BaselineTokens.OutputTokens
	}

	// Ties are excluded from the rate. No decisive trials means the
	// rate is undefined, not zero.
	if decisive := score.Wins + score.Losses; decisive > 0 {
		rate := float64(score.Wins) / float64(decisive)
		score.WinRate = &rate
		score.Grade = gradeFor(rate * 100.0)
	}
	if len(outcomes) >= 2 {
		ci := statistics.WinRateCIWithSeed(outcomes, confidenceLevel, ciSeed(skillID))
		score.WinRateCI = &ci
		score.DistinctFromChance = statistics.ExcludesChance(ci)
	}

	if n := len(trials); n > 0 {
		score.AvgTokensSkill = float64(inSkill+outSkill) / float64(n)
		score.AvgTokensBaseline = float64(inBase+outBase) / float64(n)
		score.CostPerUse = roundTo(
			avg(inSkill, n)*pricing.InputPerToken+avg(outSkill, n)*pricing.OutputPerToken,
			pricing.CostPrecision)
		score.BaselineCost = roundTo(
			avg(inBase, n)*pricing.InputPerToken+avg(outBase, n)*pricing.OutputPerToken,
			pricing.CostPrecision)
	}
	return score
}

// gradeFor maps a win-rate percentage to its letter band.
func gradeFor(percent float64) string {
	switch {
	case percent >= 80:
		return "A"
	case percent >= 60:
		return "B"
	case percent >= 40:
		return "C"
	case percent >= 20:
		return "D"
	default:
		return "F"
	}
}

func avg(total, n int) float64 {
	return float64(total) / float64(n)
}

func roundTo(v float64, places int) float64 {
	scale := math.Pow(10, float64(places))
	return math.Round(v*scale) / scale
}

// ciSeed fixes the bootstrap resampling per skill so recomputation is
// reproducible.
func ciSeed(skillID string) int64 {
	h := fnv.New64a()
	h.Write([]byte(skillID))
	return int64(h.Sum64() & math.MaxInt64)
}

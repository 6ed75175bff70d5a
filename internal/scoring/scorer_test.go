package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kalybratex/skillrank/internal/config"
	"github.com/kalybratex/skillrank/internal/models"
)

func trialWith(verdict models.Verdict) models.Trial {
	return models.Trial{
		SkillID:        "pdf",
		Verdict:        verdict,
		SkillTokens:    models.TokenUsage{InputTokens: 50, OutputTokens: 200},
		BaselineTokens: models.TokenUsage{InputTokens: 10, OutputTokens: 100},
	}
}

func trialsOf(wins, losses, ties int) []models.Trial {
	var out []models.Trial
	for i := 0; i < wins; i++ {
		out = append(out, trialWith(models.VerdictSkill))
	}
	for i := 0; i < losses; i++ {
		out = append(out, trialWith(models.VerdictBaseline))
	}
	for i := 0; i < ties; i++ {
		out = append(out, trialWith(models.VerdictTie))
	}
	return out
}

func TestComputeWinRateExcludesTies(t *testing.T) {
	score := Compute("pdf", trialsOf(6, 2, 2), config.Default().Pricing)

	assert.Equal(t, 6, score.Wins)
	assert.Equal(t, 2, score.Losses)
	assert.Equal(t, 2, score.Ties)
	assert.Equal(t, 10, score.CompletedTrials)
	require.NotNil(t, score.WinRate)
	assert.InDelta(t, 0.75, *score.WinRate, 1e-12)
	assert.Equal(t, "B", score.Grade)
}

func TestComputeAllTiesUndefinedRate(t *testing.T) {
	score := Compute("pdf", trialsOf(0, 0, 5), config.Default().Pricing)

	assert.Nil(t, score.WinRate)
	assert.Empty(t, score.Grade)
	assert.Nil(t, score.WinRateCI)
	assert.Equal(t, 5, score.CompletedTrials)

	_, ok := score.WinRatePercent()
	assert.False(t, ok)
}

func TestComputeNoTrials(t *testing.T) {
	score := Compute("pdf", nil, config.Default().Pricing)

	assert.Nil(t, score.WinRate)
	assert.Zero(t, score.CostPerUse)
	assert.Zero(t, score.AvgTokensSkill)
}

func TestComputeAllLossesIsZeroNotNil(t *testing.T) {
	score := Compute("pdf", trialsOf(0, 4, 0), config.Default().Pricing)

	require.NotNil(t, score.WinRate)
	assert.Zero(t, *score.WinRate)
	assert.Equal(t, "F", score.Grade)
}

func TestGradeBands(t *testing.T) {
	tests := []struct {
		percent float64
		want    string
	}{
		{100, "A"}, {80, "A"}, {79.9, "B"}, {60, "B"},
		{59.9, "C"}, {40, "C"}, {39.9, "D"}, {20, "D"},
		{19.9, "F"}, {0, "F"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, gradeFor(tt.percent), "gradeFor(%v)", tt.percent)
	}
}

func TestComputeCosts(t *testing.T) {
	pricing := config.PricingConfig{
		InputPerToken:  1e-6,
		OutputPerToken: 5e-6,
		CostPrecision:  6,
	}
	score := Compute("pdf", trialsOf(1, 1, 0), pricing)

	// Per trial: skill 50 in + 200 out, baseline 10 in + 100 out.
	assert.InDelta(t, 50e-6+200*5e-6, score.CostPerUse, 1e-9)
	assert.InDelta(t, 10e-6+100*5e-6, score.BaselineCost, 1e-9)
	assert.InDelta(t, 250, score.AvgTokensSkill, 1e-9)
	assert.InDelta(t, 110, score.AvgTokensBaseline, 1e-9)
}

func TestComputeDeterministic(t *testing.T) {
	trials := trialsOf(7, 3, 1)
	a := Compute("pdf", trials, config.Default().Pricing)
	b := Compute("pdf", trials, config.Default().Pricing)

	require.NotNil(t, a.WinRateCI)
	require.NotNil(t, b.WinRateCI)
	assert.Equal(t, a.WinRateCI, b.WinRateCI)
	assert.Equal(t, *a.WinRate, *b.WinRate)
}

func TestComputeCIPresentWithTwoDecisiveTrials(t *testing.T) {
	score := Compute("pdf", trialsOf(1, 1, 0), config.Default().Pricing)
	require.NotNil(t, score.WinRateCI)
	assert.GreaterOrEqual(t, score.WinRateCI.Upper, score.WinRateCI.Lower)

	single := Compute("pdf", trialsOf(1, 0, 0), config.Default().Pricing)
	assert.Nil(t, single.WinRateCI)
}

func TestRoundTo(t *testing.T) {
	assert.Equal(t, 0.000123, roundTo(0.0001234999, 6))
	assert.Equal(t, 1.23, roundTo(1.23456, 2))
}

func TestComputeDistinctFromChance(t *testing.T) {
	// Twenty straight wins bootstrap to [1, 1], well clear of 0.5.
	score := Compute("pdf", trialsOf(20, 0, 0), config.Default().Pricing)
	require.NotNil(t, score.WinRateCI)
	assert.True(t, score.DistinctFromChance)

	// An even split straddles the coin flip.
	score = Compute("pdf", trialsOf(10, 10, 0), config.Default().Pricing)
	require.NotNil(t, score.WinRateCI)
	assert.False(t, score.DistinctFromChance)
}

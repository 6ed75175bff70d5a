package evidence

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kalybratex/skillrank/internal/models"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(t.TempDir())
	require.NoError(t, err)
	return s
}

func TestContentHashStable(t *testing.T) {
	h1 := ContentHash("some skill content")
	h2 := ContentHash("some skill content")
	h3 := ContentHash("other content")

	assert.Equal(t, h1, h2)
	assert.NotEqual(t, h1, h3)
	assert.Len(t, h1, 64)
}

func TestTrialRoundTrip(t *testing.T) {
	s := newTestStore(t)

	trial := &models.Trial{
		SkillID:          "pdf",
		PromptIndex:      3,
		PromptText:       "merge these files",
		BaselineResponse: "baseline answer",
		SkillResponse:    "skill answer",
		BaselineTokens:   models.TokenUsage{InputTokens: 10, OutputTokens: 100},
		SkillTokens:      models.TokenUsage{InputTokens: 50, OutputTokens: 200},
		PositionA:        models.PositionSkill,
		Verdict:          models.VerdictSkill,
		Reasoning:        "more complete",
		JudgeModel:       "judge-1",
		StartedAt:        time.Now().UTC().Truncate(time.Second),
		JudgedAt:         time.Now().UTC().Truncate(time.Second),
	}
	require.NoError(t, s.SaveTrial(trial))

	got, found, err := s.LoadTrial("pdf", 3)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, trial, got)

	_, found, err = s.LoadTrial("pdf", 4)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestLoadTrialsOrdered(t *testing.T) {
	s := newTestStore(t)

	for _, idx := range []int{7, 0, 3, 10} {
		require.NoError(t, s.SaveTrial(&models.Trial{
			SkillID: "pdf", PromptIndex: idx, Verdict: models.VerdictTie,
		}))
	}

	trials, err := s.LoadTrials("pdf")
	require.NoError(t, err)
	require.Len(t, trials, 4)
	assert.Equal(t, []int{0, 3, 7, 10}, []int{
		trials[0].PromptIndex, trials[1].PromptIndex,
		trials[2].PromptIndex, trials[3].PromptIndex,
	})
}

func TestLoadTrialsEmptySkill(t *testing.T) {
	s := newTestStore(t)
	trials, err := s.LoadTrials("unknown")
	require.NoError(t, err)
	assert.Empty(t, trials)
}

func TestPromptSetRoundTrip(t *testing.T) {
	s := newTestStore(t)

	ps := &models.PromptSet{
		SkillID:     "pdf",
		ContentHash: ContentHash("content"),
		Prompts: []models.Prompt{
			{SkillID: "pdf", Index: 0, Text: "merge pdfs", Difficulty: models.DifficultySimple},
			{SkillID: "pdf", Index: 1, Text: "extract tables", Difficulty: models.DifficultyComplex},
		},
		ModelID:     "gen-1",
		GeneratedAt: time.Now().UTC().Truncate(time.Second),
	}
	require.NoError(t, s.SavePromptSet(ps))

	got, err := s.LoadPromptSet("pdf")
	require.NoError(t, err)
	assert.Equal(t, ps, got)

	missing, err := s.LoadPromptSet("none")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestScoreAndSecurityRoundTrip(t *testing.T) {
	s := newTestStore(t)

	wr := 7.0 / 9.0
	score := &models.Score{SkillID: "pdf", Wins: 7, Losses: 2, Ties: 1, WinRate: &wr, Grade: "B"}
	require.NoError(t, s.SaveScore(score))

	sa := &models.SecurityAssessment{
		SkillID: "pdf",
		Grade:   models.SecurityGradeWarning,
		Issues: []models.SecurityIssue{
			{Category: models.CategoryDataExfiltration, Severity: models.SeverityMedium, Description: "webhook", Evidence: "curl http://x"},
		},
		Analysis: "one medium issue",
		ModelID:  "judge-1",
	}
	require.NoError(t, s.SaveSecurity(sa))

	gotScore, err := s.LoadScore("pdf")
	require.NoError(t, err)
	require.NotNil(t, gotScore.WinRate)
	assert.InDelta(t, wr, *gotScore.WinRate, 1e-12)

	gotSec, err := s.LoadSecurity("pdf")
	require.NoError(t, err)
	assert.Equal(t, sa.Grade, gotSec.Grade)
	assert.Len(t, gotSec.Issues, 1)
}

func TestClearRemovesEvidence(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.SaveSkillContent("pdf", "content"))
	require.NoError(t, s.SaveTrial(&models.Trial{SkillID: "pdf", PromptIndex: 0, Verdict: models.VerdictSkill}))
	require.NoError(t, s.Clear("pdf"))

	_, found, err := s.LoadTrial("pdf", 0)
	require.NoError(t, err)
	assert.False(t, found)

	// Clearing a skill with no evidence is fine.
	require.NoError(t, s.Clear("nothing"))
}

func TestWriteLeaderboardMergesAndSorts(t *testing.T) {
	path := filepath.Join(t.TempDir(), "leaderboard.json")

	low, high := 0.2, 0.9
	first, err := WriteLeaderboard(path, []models.SkillSummary{
		{SkillID: "low", WinRate: &low, Status: models.StatusComplete},
		{SkillID: "nodata", WinRate: nil, Status: models.StatusPartial},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, first.TotalSkills)

	second, err := WriteLeaderboard(path, []models.SkillSummary{
		{SkillID: "high", WinRate: &high, Status: models.StatusComplete},
	})
	require.NoError(t, err)
	require.Equal(t, 3, second.TotalSkills)

	// Sorted by win rate descending, undefined rates last.
	assert.Equal(t, "high", second.Rankings[0].SkillID)
	assert.Equal(t, "low", second.Rankings[1].SkillID)
	assert.Equal(t, "nodata", second.Rankings[2].SkillID)

	// Re-scoring replaces the prior entry rather than duplicating it.
	updated := 0.5
	third, err := WriteLeaderboard(path, []models.SkillSummary{
		{SkillID: "low", WinRate: &updated, Status: models.StatusComplete},
	})
	require.NoError(t, err)
	assert.Equal(t, 3, third.TotalSkills)
}

func TestWriteFileAtomicLeavesNoTemp(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.SaveSkillContent("pdf", "content"))

	entries, err := os.ReadDir(filepath.Join(s.dir, "pdf"))
	require.NoError(t, err)
	for _, e := range entries {
		assert.NotContains(t, e.Name(), ".tmp")
	}
}

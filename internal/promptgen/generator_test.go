package promptgen

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kalybratex/skillrank/internal/evidence"
	"github.com/kalybratex/skillrank/internal/llm"
	"github.com/kalybratex/skillrank/internal/models"
)

const threePrompts = `[
  {"prompt": "Merge these five quarterly reports into one PDF", "difficulty": "simple", "capability_tested": "pdf_merge"},
  {"prompt": "Extract every table from this contract into a spreadsheet", "difficulty": "medium", "capability_tested": "table_extraction"},
  {"prompt": "Split chapter 3 out, watermark it, and compress the result", "difficulty": "complex", "capability_tested": "multi_step_editing"}
]`

func newTestGenerator(t *testing.T, client llm.Client, promptCount int) (*Generator, *evidence.Store) {
	t.Helper()
	store, err := evidence.New(t.TempDir())
	require.NoError(t, err)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(client, store, nil, "gen-model", promptCount, 64*1024, logger), store
}

func testSkill() *models.Skill {
	return &models.Skill{ID: "pdf", Content: "# PDF skill\nMerge, split, extract."}
}

func TestGenerateParsesAndPersists(t *testing.T) {
	fake := llm.NewFake().Script(llm.PurposeGeneration, llm.FakeResponse{
		Text:  threePrompts,
		Usage: models.TokenUsage{InputTokens: 100, OutputTokens: 250},
	})
	gen, store := newTestGenerator(t, fake, 3)

	set, err := gen.Generate(context.Background(), testSkill(), false)
	require.NoError(t, err)
	require.Len(t, set.Prompts, 3)
	assert.Equal(t, 0, set.Shortfall)
	assert.Equal(t, 350, set.TokensUsed)
	assert.Equal(t, "pdf", set.Prompts[0].SkillID)
	assert.Equal(t, 0, set.Prompts[0].Index)
	assert.Equal(t, models.DifficultyComplex, set.Prompts[2].Difficulty)

	persisted, err := store.LoadPromptSet("pdf")
	require.NoError(t, err)
	assert.Equal(t, set.ContentHash, persisted.ContentHash)
}

func TestGenerateReusesCache(t *testing.T) {
	fake := llm.NewFake().Script(llm.PurposeGeneration, llm.FakeResponse{Text: threePrompts})
	gen, _ := newTestGenerator(t, fake, 3)

	_, err := gen.Generate(context.Background(), testSkill(), false)
	require.NoError(t, err)
	_, err = gen.Generate(context.Background(), testSkill(), false)
	require.NoError(t, err)

	assert.Len(t, fake.RequestsFor(llm.PurposeGeneration), 1)
}

func TestGenerateForceBypassesCache(t *testing.T) {
	fake := llm.NewFake().Script(llm.PurposeGeneration, llm.FakeResponse{Text: threePrompts})
	gen, _ := newTestGenerator(t, fake, 3)

	_, err := gen.Generate(context.Background(), testSkill(), false)
	require.NoError(t, err)
	_, err = gen.Generate(context.Background(), testSkill(), true)
	require.NoError(t, err)

	assert.Len(t, fake.RequestsFor(llm.PurposeGeneration), 2)
}

func TestGenerateChangedContentRegenerates(t *testing.T) {
	fake := llm.NewFake().Script(llm.PurposeGeneration, llm.FakeResponse{Text: threePrompts})
	gen, _ := newTestGenerator(t, fake, 3)

	_, err := gen.Generate(context.Background(), testSkill(), false)
	require.NoError(t, err)

	changed := testSkill()
	changed.Content += "\nNew section."
	_, err = gen.Generate(context.Background(), changed, false)
	require.NoError(t, err)

	assert.Len(t, fake.RequestsFor(llm.PurposeGeneration), 2)
}

func TestGenerateShortfallRecordedNotPadded(t *testing.T) {
	fake := llm.NewFake().Script(llm.PurposeGeneration, llm.FakeResponse{Text: threePrompts})
	gen, _ := newTestGenerator(t, fake, 10)

	set, err := gen.Generate(context.Background(), testSkill(), false)
	require.NoError(t, err)
	assert.Len(t, set.Prompts, 3)
	assert.Equal(t, 7, set.Shortfall)
}

func TestGenerateEmptyContent(t *testing.T) {
	gen, _ := newTestGenerator(t, llm.NewFake(), 3)

	_, err := gen.Generate(context.Background(), &models.Skill{ID: "empty", Content: "  \n"}, false)
	var ce *ContentError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "empty", ce.SkillID)
}

func TestGenerateOversizedContent(t *testing.T) {
	gen, _ := newTestGenerator(t, llm.NewFake(), 3)
	gen.maxContentBytes = 16

	_, err := gen.Generate(context.Background(), testSkill(), false)
	var ce *ContentError
	require.ErrorAs(t, err, &ce)
}

func TestGenerateModelFailure(t *testing.T) {
	fake := llm.NewFake().Script(llm.PurposeGeneration, llm.FakeResponse{Err: errors.New("boom")})
	gen, _ := newTestGenerator(t, fake, 3)

	_, err := gen.Generate(context.Background(), testSkill(), false)
	var ge *GenerationError
	require.ErrorAs(t, err, &ge)
}

func TestParsePrompts(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    int
		wantErr bool
	}{
		{"bare array", threePrompts, 3, false},
		{"json fence", "```json\n" + threePrompts + "\n```", 3, false},
		{"plain fence", "```\n" + threePrompts + "\n```", 3, false},
		{"surrounding prose", "Here are the prompts:\n" + threePrompts + "\nDone.", 3, false},
		{"not json", "I cannot help with that.", 0, true},
		{"empty array", "[]", 0, true},
		{"object not array", `{"prompt": "x"}`, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parsePrompts(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Len(t, got, tt.want)
		})
	}
}

func TestDedupe(t *testing.T) {
	prompts := []models.Prompt{
		{Text: "Merge these PDFs"},
		{Text: "merge  these pdfs"},
		{Text: "Split this file"},
	}
	out := dedupe(prompts)
	require.Len(t, out, 2)
	assert.Equal(t, "Merge these PDFs", out[0].Text)
}

func TestNormalizeDifficulty(t *testing.T) {
	assert.Equal(t, models.DifficultySimple, normalizeDifficulty(" Simple "))
	assert.Equal(t, models.DifficultyMedium, normalizeDifficulty("medium"))
	assert.Equal(t, "", normalizeDifficulty("impossible"))
}

type recordingCounter struct {
	calls int
	last  string
}

func (c *recordingCounter) Count(text string) int {
	c.calls++
	c.last = text
	return len(text)
}

func TestGenerateUsesProvidedCounter(t *testing.T) {
	fake := llm.NewFake().Script(llm.PurposeGeneration, llm.FakeResponse{Text: threePrompts})
	store, err := evidence.New(t.TempDir())
	require.NoError(t, err)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	counter := &recordingCounter{}
	gen := New(fake, store, counter, "gen-model", 3, 64*1024, logger)

	skill := testSkill()
	_, err = gen.Generate(context.Background(), skill, false)
	require.NoError(t, err)

	require.Equal(t, 1, counter.calls)
	assert.Equal(t, skill.Content, counter.last)
}

package evidence

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/kalybratex/skillrank/internal/models"
)

// WriteLeaderboard merges the given summaries into the leaderboard at
// path and rewrites it atomically. Existing entries for other skills are
// preserved; entries for re-scored skills are replaced. The file is
// consumed read-only by the website, so it is always left whole.
func WriteLeaderboard(path string, summaries []models.SkillSummary) (*models.Leaderboard, error) {
	existing := make(map[string]models.SkillSummary)
	if prev, err := ReadLeaderboard(path); err != nil {
		return nil, err
	} else if prev != nil {
		for _, r := range prev.Rankings {
			existing[r.SkillID] = r
		}
	}

	for _, s := range summaries {
		existing[s.SkillID] = s
	}

	rankings := make([]models.SkillSummary, 0, len(existing))
	for _, r := range existing {
		rankings = append(rankings, r)
	}
	models.SortRankings(rankings)

	lb := &models.Leaderboard{
		GeneratedAt: time.Now().UTC(),
		TotalSkills: len(rankings),
		Rankings:    rankings,
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("creating leaderboard directory: %w", err)
	}
	data, err := json.MarshalIndent(lb, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling leaderboard: %w", err)
	}
	if err := writeFileAtomic(path, data); err != nil {
		return nil, err
	}
	return lb, nil
}

// ReadLeaderboard returns the leaderboard at path, or nil when none
// exists yet.
func ReadLeaderboard(path string) (*models.Leaderboard, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading leaderboard: %w", err)
	}
	var lb models.Leaderboard
	if err := json.Unmarshal(data, &lb); err != nil {
		return nil, fmt.Errorf("parsing leaderboard %s: %w", path, err)
	}
	return &lb, nil
}

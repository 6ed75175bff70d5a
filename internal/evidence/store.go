// Package evidence persists every artifact an evaluation produces: skill
// content, prompt sets, trials, security assessments, scores, and
// summaries. The store is the source of truth for resumability: a trial
// exists if and only if its file does, and every number in a score can
// be reconstructed from what is saved here.
package evidence

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/kalybratex/skillrank/internal/models"
)

const trialCacheSize = 1024

// Store is a directory-backed evidence store. One subdirectory per skill:
//
//	<dir>/<skill_id>/
//	├── skill.md          copy of the content evaluated
//	├── prompts.json      generated prompt set
//	├── trials/{n}.json   one file per completed trial
//	├── security.json     security assessment
//	├── score.json        derived score
//	└── summary.json      merged summary record
type Store struct {
	dir string
	mu  sync.Mutex

	// trials holds recently read trials so resumability scans of large
	// runs do not re-read every file.
	trials *lru.Cache[string, *models.Trial]
}

// New creates a Store rooted at dir.
func New(dir string) (*Store, error) {
	cache, err := lru.New[string, *models.Trial](trialCacheSize)
	if err != nil {
		return nil, err
	}
	return &Store{dir: dir, trials: cache}, nil
}

// ContentHash returns the cache key for a skill's content.
func ContentHash(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}

// SaveSkillContent writes the copy of the content under evaluation.
func (s *Store) SaveSkillContent(skillID, content string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	dir, err := s.ensureSkillDir(skillID)
	if err != nil {
		return err
	}
	return writeFileAtomic(filepath.Join(dir, "skill.md"), []byte(content))
}

// SavePromptSet persists the generated prompts for a skill.
func (s *Store) SavePromptSet(ps *models.PromptSet) error {
	return s.saveJSON(ps.SkillID, "prompts.json", ps)
}

// LoadPromptSet returns the cached prompt set, or nil when none exists.
func (s *Store) LoadPromptSet(skillID string) (*models.PromptSet, error) {
	var ps models.PromptSet
	found, err := s.loadJSON(skillID, "prompts.json", &ps)
	if err != nil || !found {
		return nil, err
	}
	return &ps, nil
}

// SaveTrial persists one fully populated trial. Trials are written
// atomically so a crash never leaves a partial trial on disk.
func (s *Store) SaveTrial(trial *models.Trial) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	dir, err := s.ensureSkillDir(trial.SkillID)
	if err != nil {
		return err
	}
	trialsDir := filepath.Join(dir, "trials")
	if err := os.MkdirAll(trialsDir, 0755); err != nil {
		return fmt.Errorf("creating trials directory: %w", err)
	}

	data, err := json.MarshalIndent(trial, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling trial: %w", err)
	}
	path := filepath.Join(trialsDir, fmt.Sprintf("%d.json", trial.PromptIndex))
	if err := writeFileAtomic(path, data); err != nil {
		return err
	}

	s.trials.Add(trialKey(trial.SkillID, trial.PromptIndex), trial)
	return nil
}

// LoadTrial returns the trial for (skillID, index) if one was persisted.
func (s *Store) LoadTrial(skillID string, index int) (*models.Trial, bool, error) {
	key := trialKey(skillID, index)
	if t, ok := s.trials.Get(key); ok {
		return t, true, nil
	}

	path := filepath.Join(s.skillDir(skillID), "trials", fmt.Sprintf("%d.json", index))
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("reading trial: %w", err)
	}

	var trial models.Trial
	if err := json.Unmarshal(data, &trial); err != nil {
		return nil, false, fmt.Errorf("parsing trial %s: %w", path, err)
	}
	s.trials.Add(key, &trial)
	return &trial, true, nil
}

// LoadTrials returns every persisted trial for a skill, ordered by prompt
// index.
func (s *Store) LoadTrials(skillID string) ([]models.Trial, error) {
	trialsDir := filepath.Join(s.skillDir(skillID), "trials")
	entries, err := os.ReadDir(trialsDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading trials directory: %w", err)
	}

	indices := make([]int, 0, len(entries))
	for _, e := range entries {
		name := strings.TrimSuffix(e.Name(), ".json")
		if name == e.Name() {
			continue
		}
		idx, err := strconv.Atoi(name)
		if err != nil {
			continue
		}
		indices = append(indices, idx)
	}
	sort.Ints(indices)

	trials := make([]models.Trial, 0, len(indices))
	for _, idx := range indices {
		t, found, err := s.LoadTrial(skillID, idx)
		if err != nil {
			return nil, err
		}
		if found {
			trials = append(trials, *t)
		}
	}
	return trials, nil
}

// SaveSecurity persists a security assessment.
func (s *Store) SaveSecurity(sa *models.SecurityAssessment) error {
	return s.saveJSON(sa.SkillID, "security.json", sa)
}

// LoadSecurity returns the persisted assessment, or nil when none exists.
func (s *Store) LoadSecurity(skillID string) (*models.SecurityAssessment, error) {
	var sa models.SecurityAssessment
	found, err := s.loadJSON(skillID, "security.json", &sa)
	if err != nil || !found {
		return nil, err
	}
	return &sa, nil
}

// SaveScore persists a derived score.
func (s *Store) SaveScore(score *models.Score) error {
	return s.saveJSON(score.SkillID, "score.json", score)
}

// LoadScore returns the persisted score, or nil when none exists.
func (s *Store) LoadScore(skillID string) (*models.Score, error) {
	var score models.Score
	found, err := s.loadJSON(skillID, "score.json", &score)
	if err != nil || !found {
		return nil, err
	}
	return &score, nil
}

// SaveSummary persists the merged summary record.
func (s *Store) SaveSummary(summary *models.SkillSummary) error {
	return s.saveJSON(summary.SkillID, "summary.json", summary)
}

// LoadSummary returns the persisted summary, or nil when none exists.
func (s *Store) LoadSummary(skillID string) (*models.SkillSummary, error) {
	var sum models.SkillSummary
	found, err := s.loadJSON(skillID, "summary.json", &sum)
	if err != nil || !found {
		return nil, err
	}
	return &sum, nil
}

// Clear removes all evidence for a skill. Used by --force.
func (s *Store) Clear(skillID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.trials.Purge()
	dir := s.skillDir(skillID)
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return nil
	}
	return os.RemoveAll(dir)
}

// SkillIDs lists every skill with any evidence on disk.
func (s *Store) SkillIDs() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			ids = append(ids, e.Name())
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (s *Store) saveJSON(skillID, name string, v any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	dir, err := s.ensureSkillDir(skillID)
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling %s: %w", name, err)
	}
	return writeFileAtomic(filepath.Join(dir, name), data)
}

func (s *Store) loadJSON(skillID, name string, v any) (bool, error) {
	data, err := os.ReadFile(filepath.Join(s.skillDir(skillID), name))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("reading %s: %w", name, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("parsing %s for %s: %w", name, skillID, err)
	}
	return true, nil
}

func (s *Store) skillDir(skillID string) string {
	return filepath.Join(s.dir, skillID)
}

func (s *Store) ensureSkillDir(skillID string) (string, error) {
	dir := s.skillDir(skillID)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("creating evidence directory: %w", err)
	}
	return dir, nil
}

func trialKey(skillID string, index int) string {
	return skillID + "/" + strconv.Itoa(index)
}

// writeFileAtomic writes via a temp file and rename so readers never see
// a torn file and a crash never leaves partial evidence.
func writeFileAtomic(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("writing %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("renaming %s: %w", tmp, err)
	}
	return nil
}

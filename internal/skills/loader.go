// Package skills loads skill definitions from the discovery layout: one
// directory per skill holding its SKILL.md and an optional metadata.json
// left behind by the discovery pipeline.
package skills

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/go-viper/mapstructure/v2"

	"github.com/kalybratex/skillrank/internal/models"
)

// ErrNotFound is returned when a requested skill has no directory or no
// SKILL.md under the skills root.
var ErrNotFound = errors.New("skill not found")

// Loader reads skills from a directory tree.
type Loader struct {
	dir string
}

func NewLoader(dir string) *Loader {
	return &Loader{dir: dir}
}

// Load reads a single skill by ID.
func (l *Loader) Load(id string) (*models.Skill, error) {
	skillDir := filepath.Join(l.dir, id)
	content, err := os.ReadFile(filepath.Join(skillDir, "SKILL.md"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return nil, fmt.Errorf("reading skill %s: %w", id, err)
	}

	skill := &models.Skill{ID: id, Content: string(content)}
	if err := l.loadMetadata(skillDir, skill); err != nil {
		return nil, err
	}
	return skill, nil
}

// LoadAll reads every skill under the root, ordered by ID. Directories
// without a SKILL.md are skipped.
func (l *Loader) LoadAll() ([]*models.Skill, error) {
	ids, err := l.IDs()
	if err != nil {
		return nil, err
	}

	var out []*models.Skill
	for _, id := range ids {
		skill, err := l.Load(id)
		if err != nil {
			return nil, err
		}
		out = append(out, skill)
	}
	return out, nil
}

// IDs lists the skill IDs present under the root, ordered.
func (l *Loader) IDs() ([]string, error) {
	entries, err := os.ReadDir(l.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading skills directory: %w", err)
	}

	var ids []string
	for _, e := range entries {
		if !e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		if _, err := os.Stat(filepath.Join(l.dir, e.Name(), "SKILL.md")); err != nil {
			continue
		}
		ids = append(ids, e.Name())
	}
	sort.Strings(ids)
	return ids, nil
}

// loadMetadata fills the skill's metadata from metadata.json when one
// exists. Unknown keys are ignored so discovery can evolve its schema
// without breaking evaluation.
func (l *Loader) loadMetadata(skillDir string, skill *models.Skill) error {
	data, err := os.ReadFile(filepath.Join(skillDir, "metadata.json"))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("reading metadata for %s: %w", skill.ID, err)
	}

	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("parsing metadata for %s: %w", skill.ID, err)
	}
	if err := mapstructure.Decode(raw, &skill.Metadata); err != nil {
		return fmt.Errorf("decoding metadata for %s: %w", skill.ID, err)
	}
	return nil
}

package models

// Skill is a third-party capability specification under evaluation.
// The discovery pipeline owns these; the evaluation engine only reads them.
type Skill struct {
	ID       string        `json:"skill_id"`
	Content  string        `json:"content"`
	Metadata SkillMetadata `json:"metadata"`
}

// SkillMetadata carries discovery-supplied context about a skill.
type SkillMetadata struct {
	Name      string `json:"name" mapstructure:"name"`
	SourceURL string `json:"source_url,omitempty" mapstructure:"source_url"`
	Stars     int    `json:"stars,omitempty" mapstructure:"stars"`
	Author    string `json:"author,omitempty" mapstructure:"author"`
}

// DisplayName returns the metadata name, falling back to the skill ID.
func (s *Skill) DisplayName() string {
	if s.Metadata.Name != "" {
		return s.Metadata.Name
	}
	return s.ID
}

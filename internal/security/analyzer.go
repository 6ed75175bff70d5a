// Package security grades a skill's raw content against a fixed set of
// risk categories with a single analysis call. A failed analysis is an
// explicit error, never a silent secure grade.
package security

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/kalybratex/skillrank/internal/llm"
	"github.com/kalybratex/skillrank/internal/models"
)

// SecurityError marks an analysis call or parse that failed. The skill's
// assessment stays absent rather than defaulting to secure.
type SecurityError struct {
	SkillID string
	Err     error
}

func (e *SecurityError) Error() string {
	return fmt.Sprintf("security analysis for %s: %v", e.SkillID, e.Err)
}

func (e *SecurityError) Unwrap() error { return e.Err }

// Analyzer runs the security pass.
type Analyzer struct {
	client llm.Client
	model  string
}

func New(client llm.Client, model string) *Analyzer {
	return &Analyzer{client: client, model: model}
}

// Analyze grades one skill's content. The grade is the maximum severity
// across all issues; an empty issue list is secure.
func (a *Analyzer) Analyze(ctx context.Context, skill *models.Skill) (*models.SecurityAssessment, error) {
	completion, err := a.client.Complete(ctx, llm.Request{
		Purpose: llm.PurposeSecurity,
		Model:   a.model,
		Prompt:  buildSecurityPrompt(skill.Content),
	})
	if err != nil {
		return nil, &SecurityError{SkillID: skill.ID, Err: err}
	}

	issues, analysis, err := parseFindings(completion.Text)
	if err != nil {
		return nil, &SecurityError{SkillID: skill.ID, Err: err}
	}

	return &models.SecurityAssessment{
		SkillID:    skill.ID,
		Grade:      gradeIssues(issues),
		Issues:     issues,
		Analysis:   analysis,
		ModelID:    completion.Model,
		TokensUsed: completion.Usage.Total(),
		AnalyzedAt: time.Now().UTC(),
	}, nil
}

// Skipped returns the assessment recorded when the user opts out of the
// security pass. It carries no grade.
func Skipped(skillID string) *models.SecurityAssessment {
	return &models.SecurityAssessment{
		SkillID:    skillID,
		Skipped:    true,
		Analysis:   "security analysis skipped by request",
		AnalyzedAt: time.Now().UTC(),
	}
}

// gradeIssues folds issue severities down to the overall grade.
func gradeIssues(issues []models.SecurityIssue) models.SecurityGrade {
	grade := models.SecurityGradeSecure
	for _, issue := range issues {
		grade = models.MaxSecurityGrade(grade, models.GradeForSeverity(issue.Severity))
	}
	return grade
}

func buildSecurityPrompt(skillContent string) string {
	return fmt.Sprintf(`You are a security analyst reviewing a SKILL.md file for an agentic CLI coding assistant.
SKILL.md files are used to extend the assistant's capabilities.

Analyze the following SKILL.md content for security risks. Check for these risk categories:

1. **data_exfiltration**: External URLs, webhooks, or patterns that send user data outside the local system
   - Look for: fetch(), HTTP requests to external servers, webhook URLs, sending code/data externally

2. **file_system_abuse**: Dangerous file operations
   - Look for: Arbitrary file paths (especially /etc, ~/.ssh, etc.), file deletion, reading sensitive files

3. **credential_theft**: Attempts to access or exfiltrate credentials
   - Look for: Reading environment variables (especially API keys), accessing .env files, credential patterns

4. **code_injection**: Dynamic code execution patterns
   - Look for: eval(), exec(), Function() constructor, dynamic imports with user input

5. **malicious_dependencies**: Suspicious package names (typosquatting, etc.)
   - Look for: Misspelled package names, unusual package sources

SKILL.md CONTENT TO ANALYZE:
---
%s
---

For each issue found, classify its severity:
- **high**: Immediate security risk, data could be exfiltrated or system compromised
- **medium**: Potential risk that warrants user awareness
- **low**: Minor concern, legitimate use case but worth noting

Return your analysis as JSON with this exact format:
{
    "issues": [
        {
            "category": "category_name",
            "severity": "low|medium|high",
            "description": "Human-readable description of the issue",
            "evidence": "The specific code/text that triggered this concern"
        }
    ],
    "analysis": "Overall analysis summary explaining your findings"
}

If no issues are found, return an empty issues array with an analysis explaining why the skill is safe.

Return ONLY the JSON, no additional text.`, skillContent)
}

var (
	fencedFindings = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)\\s*```")
	bareFindings   = regexp.MustCompile(`(?s)\{.*\}`)
)

type findingsPayload struct {
	Issues   []models.SecurityIssue `json:"issues"`
	Analysis string                 `json:"analysis"`
}

func parseFindings(text string) ([]models.SecurityIssue, string, error) {
	jsonText := strings.TrimSpace(text)
	if m := fencedFindings.FindStringSubmatch(jsonText); m != nil {
		jsonText = m[1]
	}
	if !strings.HasPrefix(jsonText, "{") {
		m := bareFindings.FindString(jsonText)
		if m == "" {
			return nil, "", fmt.Errorf("no JSON object in analysis response")
		}
		jsonText = m
	}

	var payload findingsPayload
	if err := json.Unmarshal([]byte(jsonText), &payload); err != nil {
		return nil, "", fmt.Errorf("parsing analysis: %w", err)
	}

	issues := payload.Issues[:0:0]
	for _, issue := range payload.Issues {
		issue.Severity = strings.ToLower(strings.TrimSpace(issue.Severity))
		switch issue.Severity {
		case models.SeverityLow, models.SeverityMedium, models.SeverityHigh:
		default:
			return nil, "", fmt.Errorf("unknown severity %q", issue.Severity)
		}
		issues = append(issues, issue)
	}
	return issues, payload.Analysis, nil
}

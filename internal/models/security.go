package models

import "time"

// SecurityGrade classifies a skill's worst-case risk, ordered
// secure < warning < fail.
type SecurityGrade string

// SecurityGrade constants
const (
	SecurityGradeSecure  SecurityGrade = "secure"
	SecurityGradeWarning SecurityGrade = "warning"
	SecurityGradeFail    SecurityGrade = "fail"
)

// Severity levels for individual security issues.
const (
	SeverityLow    = "low"
	SeverityMedium = "medium"
	SeverityHigh   = "high"
)

// Risk categories the analyzer evaluates skill content against.
const (
	CategoryDataExfiltration      = "data_exfiltration"
	CategoryFileSystemAbuse       = "file_system_abuse"
	CategoryCredentialTheft       = "credential_theft"
	CategoryCodeInjection         = "code_injection"
	CategoryMaliciousDependencies = "malicious_dependencies"
)

// RiskCategories lists every category in analysis order.
var RiskCategories = []string{
	CategoryDataExfiltration,
	CategoryFileSystemAbuse,
	CategoryCredentialTheft,
	CategoryCodeInjection,
	CategoryMaliciousDependencies,
}

// SecurityIssue is a single finding from the security analysis.
type SecurityIssue struct {
	Category    string `json:"category"`
	Severity    string `json:"severity"`
	Description string `json:"description"`
	Evidence    string `json:"evidence"`
}

// SecurityAssessment is the full result of analyzing one skill's content.
type SecurityAssessment struct {
	SkillID    string          `json:"skill_id"`
	Grade      SecurityGrade   `json:"grade,omitempty"`
	Issues     []SecurityIssue `json:"issues"`
	Analysis   string          `json:"analysis"`
	ModelID    string          `json:"model_id"`
	TokensUsed int             `json:"tokens_used"`
	AnalyzedAt time.Time       `json:"analyzed_at"`

	// Skipped marks an assessment omitted by user request. A skipped
	// assessment carries no grade; it is distinct from a clean pass.
	Skipped bool `json:"skipped,omitempty"`
}

// GradeForSeverity maps an issue severity to the grade it implies.
func GradeForSeverity(severity string) SecurityGrade {
	switch severity {
	case SeverityHigh:
		return SecurityGradeFail
	case SeverityMedium:
		return SecurityGradeWarning
	default:
		return SecurityGradeSecure
	}
}

// MaxSecurityGrade returns the more severe of two grades.
func MaxSecurityGrade(a, b SecurityGrade) SecurityGrade {
	if securityGradeRank(a) >= securityGradeRank(b) {
		return a
	}
	return b
}

func securityGradeRank(g SecurityGrade) int {
	switch g {
	case SecurityGradeFail:
		return 2
	case SecurityGradeWarning:
		return 1
	default:
		return 0
	}
}

// Package judge runs the blind A/B comparison between a baseline and a
// skill-augmented response. The judge only ever sees two lettered
// responses; which letter holds which response is recorded on the trial
// and translated back after the verdict.
package judge

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/kalybratex/skillrank/internal/llm"
	"github.com/kalybratex/skillrank/internal/models"
)

// ContextVersion identifies the judge preamble revision. Bump it when
// PlatformContext changes so old verdicts can be told apart from new ones.
const ContextVersion = "v1"

// PlatformContext primes the judge with the agent platform's real
// feature set. Without it, judges trained before those features existed
// penalize platform-specific output as fictional.
const PlatformContext = `IMPORTANT CONTEXT:
These skills are designed for users of an agentic CLI coding assistant
with features including:
- Hooks (PreToolUse, PostToolUse, Notification, Stop, etc.)
- Custom slash commands
- SKILL.md files for specialized capabilities
- Rules for validation and automation
- Custom agents

A response that provides assistant-specific configuration (hooks, rules,
SKILL.md files) is VALUABLE and REAL, not fictional. Judge based on value
to users of the assistant.`

// JudgeError marks a judge call or verdict parse that failed after the
// client's retry budget was spent.
type JudgeError struct {
	SkillID     string
	PromptIndex int
	Err         error
}

func (e *JudgeError) Error() string {
	return fmt.Sprintf("judging %s trial %d: %v", e.SkillID, e.PromptIndex, e.Err)
}

func (e *JudgeError) Unwrap() error { return e.Err }

// Judgment is the translated outcome of one blind comparison.
type Judgment struct {
	Verdict        models.Verdict
	Reasoning      string
	Raw            string
	Model          string
	ContextVersion string
	Usage          models.TokenUsage
}

// contexts maps every known preamble revision to its text. Old revisions
// stay here so persisted verdicts can be re-run under the context that
// produced them.
var contexts = map[string]string{
	"v1": PlatformContext,
}

// Judge compares paired responses.
type Judge struct {
	client   llm.Client
	model    string
	version  string
	preamble string
}

// New builds a judge using the current context revision.
func New(client llm.Client, model string) *Judge {
	j, err := NewForContext(client, model, ContextVersion)
	if err != nil {
		panic(err)
	}
	return j
}

// NewForContext builds a judge pinned to a specific context revision.
// An empty version selects the current one.
func NewForContext(client llm.Client, model, version string) (*Judge, error) {
	if version == "" {
		version = ContextVersion
	}
	preamble, ok := contexts[version]
	if !ok {
		return nil, fmt.Errorf("unknown judge context version %q", version)
	}
	return &Judge{client: client, model: model, version: version, preamble: preamble}, nil
}

// Compare judges one pair of responses. positionA says which response is
// presented as "A"; the verdict comes back already translated to
// skill/baseline/tie.
func (j *Judge) Compare(ctx context.Context, skillID string, promptIndex int, promptText, baselineResponse, skillResponse, positionA string) (*Judgment, error) {
	responseA, responseB := baselineResponse, skillResponse
	if positionA == models.PositionSkill {
		responseA, responseB = skillResponse, baselineResponse
	}

	completion, err := j.client.Complete(ctx, llm.Request{
		Purpose: llm.PurposeJudge,
		Model:   j.model,
		Prompt:  buildJudgePrompt(j.preamble, promptText, responseA, responseB),
	})
	if err != nil {
		return nil, &JudgeError{SkillID: skillID, PromptIndex: promptIndex, Err: err}
	}

	letter, reasoning, err := parseVerdict(completion.Text)
	if err != nil {
		return nil, &JudgeError{SkillID: skillID, PromptIndex: promptIndex, Err: err}
	}

	return &Judgment{
		Verdict:        translateVerdict(letter, positionA),
		Reasoning:      reasoning,
		Raw:            completion.Text,
		Model:          completion.Model,
		ContextVersion: j.version,
		Usage:          completion.Usage,
	}, nil
}

func buildJudgePrompt(preamble, userPrompt, responseA, responseB string) string {
	return fmt.Sprintf(`%s

You are an expert judge evaluating two AI assistant responses to a user's request.
Your job is to determine which response is more helpful, accurate, and valuable to the user.

USER'S REQUEST:
%s

---

RESPONSE A:
%s

---

RESPONSE B:
%s

---

EVALUATION CRITERIA:
1. Helpfulness: Which response better addresses the user's needs?
2. Accuracy: Which response is more correct and reliable?
3. Completeness: Which response provides more comprehensive guidance?
4. Practicality: Which response is more actionable and useful?

INSTRUCTIONS:
Compare the two responses and determine which is better overall.
Return your judgment as JSON with exactly this format:

{"verdict": "A" or "B" or "TIE", "reasoning": "Your explanation here"}

If Response A is clearly better, verdict is "A".
If Response B is clearly better, verdict is "B".
If they are roughly equal in quality, verdict is "TIE".

Return ONLY the JSON, no additional text.`, preamble, userPrompt, responseA, responseB)
}

var (
	fencedVerdict = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)\\s*```")
	bareObject    = regexp.MustCompile(`(?s)\{.*\}`)
)

type verdictPayload struct {
	Verdict   string `json:"verdict"`
	Reasoning string `json:"reasoning"`
}

func parseVerdict(text string) (letter, reasoning string, err error) {
	jsonText := strings.TrimSpace(text)
	if m := fencedVerdict.FindStringSubmatch(jsonText); m != nil {
		jsonText = m[1]
	}
	if !strings.HasPrefix(jsonText, "{") {
		m := bareObject.FindString(jsonText)
		if m == "" {
			return "", "", fmt.Errorf("no JSON object in judge response")
		}
		jsonText = m
	}

	var payload verdictPayload
	if err := json.Unmarshal([]byte(jsonText), &payload); err != nil {
		return "", "", fmt.Errorf("parsing verdict: %w", err)
	}

	letter = strings.ToUpper(strings.TrimSpace(payload.Verdict))
	switch letter {
	case "A", "B", "TIE":
		return letter, payload.Reasoning, nil
	case "":
		return "", "", fmt.Errorf("judge response missing verdict field")
	default:
		return "", "", fmt.Errorf("unexpected verdict %q", payload.Verdict)
	}
}

// translateVerdict maps the judge's letter back through the position
// assignment.
func translateVerdict(letter, positionA string) models.Verdict {
	if letter == "TIE" {
		return models.VerdictTie
	}
	aWon := letter == "A"
	aIsSkill := positionA == models.PositionSkill
	if aWon == aIsSkill {
		return models.VerdictSkill
	}
	return models.VerdictBaseline
}

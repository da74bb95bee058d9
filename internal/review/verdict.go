package review

import (
	"encoding/json"
	"fmt"

	"github.com/xeipuuv/gojsonschema"
)

// VerdictKind distinguishes a real AI assessment from the neutral fallback
// used when the provider could not be reached.
type VerdictKind string

const (
	VerdictAI       VerdictKind = "ai"
	VerdictFallback VerdictKind = "fallback"
)

// Assessment is the structured quality judgment for one submission. Category
// scores are on a 1 to 5 scale; Overall is 0 to 100.
type Assessment struct {
	CodeQuality   int      `json:"code_quality"`
	BestPractices int      `json:"best_practices"`
	Readability   int      `json:"readability"`
	Security      int      `json:"security"`
	Overall       float64  `json:"overall"`
	Strengths     []string `json:"strengths"`
	Weaknesses    []string `json:"weaknesses"`
	Summary       string   `json:"summary"`
}

// Verdict is the reviewer output. Exactly one of the two variants applies:
// Kind VerdictAI carries a provider assessment, Kind VerdictFallback carries
// the neutral assessment plus the reason the provider was unavailable.
type Verdict struct {
	Kind           VerdictKind `json:"kind"`
	Assessment     Assessment  `json:"assessment"`
	FallbackReason string      `json:"fallback_reason,omitempty"`
}

// IsFallback reports whether the verdict is the degraded variant.
func (v Verdict) IsFallback() bool { return v.Kind == VerdictFallback }

// FallbackVerdict returns the neutral verdict used when no assessment could
// be obtained. Middle-of-scale scores keep the final grade driven by the
// static categories instead of punishing provider downtime.
func FallbackVerdict(reason string) Verdict {
	return Verdict{
		Kind: VerdictFallback,
		Assessment: Assessment{
			CodeQuality:   3,
			BestPractices: 3,
			Readability:   3,
			Security:      3,
			Overall:       60,
			Strengths:     []string{},
			Weaknesses:    []string{},
			Summary:       "Unable to analyze code quality automatically",
		},
		FallbackReason: reason,
	}
}

const assessmentSchema = `{
  "type": "object",
  "required": ["code_quality", "best_practices", "readability", "security", "overall", "summary"],
  "properties": {
    "code_quality":   {"type": "integer", "minimum": 1, "maximum": 5},
    "best_practices": {"type": "integer", "minimum": 1, "maximum": 5},
    "readability":    {"type": "integer", "minimum": 1, "maximum": 5},
    "security":       {"type": "integer", "minimum": 1, "maximum": 5},
    "overall":        {"type": "number", "minimum": 0, "maximum": 100},
    "strengths":      {"type": "array", "items": {"type": "string"}},
    "weaknesses":     {"type": "array", "items": {"type": "string"}},
    "summary":        {"type": "string"}
  }
}`

// ParseAssessment validates raw provider JSON against the assessment schema
// and decodes it. Replies that do not conform are rejected so a malformed
// reply degrades to the fallback verdict instead of poisoning the score.
func ParseAssessment(raw string) (Assessment, error) {
	var zero Assessment

	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(assessmentSchema),
		gojsonschema.NewStringLoader(raw),
	)
	if err != nil {
		return zero, fmt.Errorf("assessment validation failed: %w", err)
	}
	if !result.Valid() {
		return zero, fmt.Errorf("assessment does not match schema: %v", result.Errors())
	}

	var a Assessment
	if err := json.Unmarshal([]byte(raw), &a); err != nil {
		return zero, fmt.Errorf("failed to decode assessment: %w", err)
	}
	if a.Strengths == nil {
		a.Strengths = []string{}
	}
	if a.Weaknesses == nil {
		a.Weaknesses = []string{}
	}
	return a, nil
}

// Package scoring turns the per-category analysis results, the AI verdict,
// the deployment report, and the generation-risk estimate into the final
// ScoreCard. It is a pure function of its inputs: identical inputs always
// produce identical cards.
package scoring

import (
	"fmt"
	"math"
	"sort"

	"github.com/jonathan/intern-grader/internal/analysis"
	"github.com/jonathan/intern-grader/internal/commits"
	"github.com/jonathan/intern-grader/internal/deploy"
	"github.com/jonathan/intern-grader/internal/review"
)

// Category names in the ScoreCard.
const (
	CatStructure     = "structure"
	CatSeparation    = "separation"
	CatAsync         = "async"
	CatQueries       = "queries"
	CatMySQL         = "mysql"
	CatMongoDB       = "mongodb"
	CatRedis         = "redis"
	CatLocalStorage  = "local_storage"
	CatFramework     = "framework"
	CatNaming        = "naming"
	CatModularity    = "modularity"
	CatErrorHandling = "error_handling"
	CatSecurity      = "security"
	CatDeployment    = "deployment"
	CatBonus         = "bonus"
)

// ceilings are the maximum points per category. They sum to 100, so the
// overall score is the plain sum of sub-scores.
var ceilings = map[string]int{
	CatStructure:     10,
	CatSeparation:    10,
	CatAsync:         10,
	CatQueries:       10,
	CatMySQL:         8,
	CatMongoDB:       8,
	CatRedis:         5,
	CatLocalStorage:  4,
	CatFramework:     10,
	CatNaming:        5,
	CatModularity:    5,
	CatErrorHandling: 5,
	CatSecurity:      5,
	CatDeployment:    3,
	CatBonus:         2,
}

// Flag severities.
const (
	SeverityCritical = "critical"
	SeverityWarning  = "warning"
)

// Flag codes raised by the engine on top of those carried in from analysis
// and deployment.
const (
	FlagNoMySQL         = "NO_MYSQL"
	FlagNoMongoDB       = "NO_MONGODB"
	FlagNoRedis         = "NO_REDIS"
	FlagCodeMixing      = "CODE_MIXING"
	FlagPoorStructure   = "POOR_STRUCTURE"
	FlagAIGeneratedHigh = "AI_GENERATED_HIGH"
)

// highRiskThreshold is the generation-risk level above which the submission
// is flagged for manual review.
const highRiskThreshold = 0.6

const maxListLen = 5

// Flag is one raised concern with its severity.
type Flag struct {
	Code     string `json:"code"`
	Severity string `json:"severity"`
}

// CategoryScore is one category's points against its ceiling.
type CategoryScore struct {
	Score   int `json:"score"`
	Ceiling int `json:"ceiling"`
}

// ScoreCard is the final scoring output for one run.
type ScoreCard struct {
	Categories     map[string]CategoryScore `json:"categories"`
	Overall        int                      `json:"overall"`
	Grade          string                   `json:"grade"`
	Recommendation string                   `json:"recommendation"`
	Flags          []Flag                   `json:"flags"`
	Strengths      []string                 `json:"strengths"`
	Weaknesses     []string                 `json:"weaknesses"`
	GenerationRisk float64                  `json:"generation_risk"`
	AIFallback     bool                     `json:"ai_fallback"`
}

// Inputs are everything the engine needs for one card.
type Inputs struct {
	Analysis       *analysis.Report
	Verdict        review.Verdict
	Deployment     *deploy.Report
	Commits        *commits.Report
	GenerationRisk float64
	// CustomRubric marks that the caller supplied their own grading rubric,
	// in which case the AI verdict's overall replaces the fixed weighting.
	CustomRubric bool
}

// gradeStep pairs an inclusive lower bound with its grade and recommendation.
// Evaluated top to bottom, first match wins.
type gradeStep struct {
	min            int
	grade          string
	recommendation string
}

var gradeTable = []gradeStep{
	{90, "A+", "Excellent candidate - strongly recommend for interview"},
	{80, "A", "Strong candidate - recommend for interview"},
	{70, "B", "Good candidate - consider for interview"},
	{60, "C", "Average candidate - review carefully"},
	{50, "D", "Below average - significant gaps"},
	{0, "F", "Poor submission - not recommended"},
}

func gradeFor(overall int) (string, string) {
	for _, step := range gradeTable {
		if overall >= step.min {
			return step.grade, step.recommendation
		}
	}
	last := gradeTable[len(gradeTable)-1]
	return last.grade, last.recommendation
}

// aiCategoryPoints scales a 1-5 assessment score onto a ceiling-5 category,
// clamped to the ceiling.
func aiCategoryPoints(score int) int {
	if score < 0 {
		return 0
	}
	if score > 5 {
		return 5
	}
	return score
}

// Score computes the ScoreCard. It assumes a complete Inputs: a run that
// skipped the deployment check passes a zero-score deploy report, and a
// degraded AI review passes the fallback verdict.
func Score(in Inputs) *ScoreCard {
	card := &ScoreCard{
		Categories:     map[string]CategoryScore{},
		Flags:          []Flag{},
		Strengths:      []string{},
		Weaknesses:     []string{},
		GenerationRisk: in.GenerationRisk,
		AIFallback:     in.Verdict.IsFallback(),
	}

	a := in.Analysis
	v := in.Verdict.Assessment

	set := func(name string, score int) {
		ceiling := ceilings[name]
		if score > ceiling {
			score = ceiling
		}
		if score < 0 {
			score = 0
		}
		card.Categories[name] = CategoryScore{Score: score, Ceiling: ceiling}
	}

	set(CatStructure, a.Structure.Score)
	set(CatSeparation, a.Separation.Score)
	set(CatAsync, a.AsyncUsage.Score)
	set(CatQueries, a.Queries.Score)
	set(CatMySQL, a.Datastores.MySQL.Score)
	set(CatMongoDB, a.Datastores.MongoDB.Score)
	set(CatRedis, a.Datastores.Redis.Score)
	set(CatLocalStorage, a.LocalStorage.Score)
	set(CatFramework, a.Framework.Score)
	set(CatNaming, aiCategoryPoints(v.Readability))
	set(CatModularity, aiCategoryPoints(v.CodeQuality))
	set(CatErrorHandling, aiCategoryPoints(v.BestPractices))
	set(CatSecurity, aiCategoryPoints(v.Security))
	set(CatDeployment, in.Deployment.Score)
	set(CatBonus, in.Deployment.ResponsiveScore)

	switch {
	case in.CustomRubric && !in.Verdict.IsFallback():
		card.Overall = int(math.Round(in.Verdict.Assessment.Overall))
	case in.CustomRubric:
		// The caller's rubric replaces the fixed weighting, but the AI never
		// reported an overall. Treat every category as equal weight instead.
		total := 0.0
		for _, cs := range card.Categories {
			if cs.Ceiling > 0 {
				total += float64(cs.Score) / float64(cs.Ceiling)
			}
		}
		card.Overall = int(math.Round(total / float64(len(card.Categories)) * 100))
	default:
		sum := 0
		for _, cs := range card.Categories {
			sum += cs.Score
		}
		card.Overall = sum
	}
	if card.Overall > 100 {
		card.Overall = 100
	}
	if card.Overall < 0 {
		card.Overall = 0
	}

	card.Grade, card.Recommendation = gradeFor(card.Overall)
	card.Flags = buildFlags(in)
	card.Strengths, card.Weaknesses = buildNarrative(in)
	return card
}

func buildFlags(in Inputs) []Flag {
	a := in.Analysis
	flags := []Flag{}
	critical := func(code string) { flags = append(flags, Flag{Code: code, Severity: SeverityCritical}) }
	warning := func(code string) { flags = append(flags, Flag{Code: code, Severity: SeverityWarning}) }

	if !a.Datastores.MySQL.Detected {
		critical(FlagNoMySQL)
	}
	if !a.Datastores.MongoDB.Detected {
		critical(FlagNoMongoDB)
	}
	if !a.Datastores.Redis.Detected {
		critical(FlagNoRedis)
	}
	for _, issue := range a.Queries.Issues {
		if issue == analysis.IssueSQLInjectionRisk {
			critical(analysis.IssueSQLInjectionRisk)
		}
	}
	for _, issue := range a.AsyncUsage.Issues {
		if issue == analysis.IssueFormSubmissionUsed {
			critical(analysis.IssueFormSubmissionUsed)
		}
	}
	for _, issue := range a.Framework.Issues {
		if issue == analysis.IssueNoFramework {
			critical(analysis.IssueNoFramework)
		}
	}

	if a.Separation.Score < 7 {
		warning(FlagCodeMixing)
	}
	if a.Structure.Score < 7 {
		warning(FlagPoorStructure)
	}
	if in.GenerationRisk > highRiskThreshold {
		warning(FlagAIGeneratedHigh)
	}
	for _, code := range in.Deployment.Flags {
		warning(code)
	}

	sort.SliceStable(flags, func(i, j int) bool {
		return flags[i].Severity == SeverityCritical && flags[j].Severity != SeverityCritical
	})
	return flags
}

// buildNarrative assembles strengths and weaknesses, AI-provided text first,
// then technical observations, each list capped.
func buildNarrative(in Inputs) (strengths, weaknesses []string) {
	a := in.Analysis
	strengths = append([]string{}, in.Verdict.Assessment.Strengths...)
	weaknesses = append([]string{}, in.Verdict.Assessment.Weaknesses...)

	if a.Structure.Score == 10 {
		strengths = append(strengths, "Complete project structure with all expected files")
	}
	if a.Separation.Score == 10 {
		strengths = append(strengths, "Clean separation of markup, styling, and logic")
	}
	if a.AsyncUsage.Score == 10 {
		strengths = append(strengths, "Uses asynchronous requests instead of full-page form submissions")
	}
	if a.Queries.Score == 10 {
		strengths = append(strengths, "Consistent use of prepared statements")
	}
	if in.Deployment.Reachable {
		strengths = append(strengths, "Project is deployed and reachable")
	}

	if !a.Datastores.MySQL.Detected {
		weaknesses = append(weaknesses, "No MySQL integration detected")
	}
	if !a.Datastores.MongoDB.Detected {
		weaknesses = append(weaknesses, "No MongoDB integration detected")
	}
	if !a.Datastores.Redis.Detected {
		weaknesses = append(weaknesses, "No Redis session handling detected")
	}
	if a.Separation.Score < 7 {
		weaknesses = append(weaknesses, "Markup mixes styling, scripting, or server code")
	}
	if a.Queries.Score <= 5 && a.Queries.RawQueries > 0 {
		weaknesses = append(weaknesses, "Raw SQL queries vulnerable to injection")
	}
	if in.Commits != nil && in.Commits.Available && in.Commits.TotalCommits <= 2 {
		weaknesses = append(weaknesses, fmt.Sprintf("Only %d commits; development process is not visible", in.Commits.TotalCommits))
	}

	if len(strengths) > maxListLen {
		strengths = strengths[:maxListLen]
	}
	if len(weaknesses) > maxListLen {
		weaknesses = weaknesses[:maxListLen]
	}
	return strengths, weaknesses
}

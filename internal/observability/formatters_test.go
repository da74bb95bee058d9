package observability

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jonathan/intern-grader/internal/analysis"
	"github.com/jonathan/intern-grader/internal/commits"
	"github.com/jonathan/intern-grader/internal/deploy"
	"github.com/jonathan/intern-grader/internal/review"
	"github.com/jonathan/intern-grader/internal/scoring"
)

func TestPrintAnalysis(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	report := &analysis.Report{
		Structure:  analysis.StructureResult{Score: 8, MissingFiles: []string{"register.html"}},
		Separation: analysis.SeparationResult{Score: 7},
		AsyncUsage: analysis.AsyncUsageResult{Score: 10},
		Queries:    analysis.QueryResult{Score: 5},
		Datastores: analysis.DatastoreReport{
			MySQL: analysis.DatastoreResult{Detected: true, Score: 8},
		},
	}

	p.PrintAnalysis(report)
	output := buf.String()

	assert.Contains(t, output, "STATIC ANALYSIS")
	assert.Contains(t, output, "Structure:    8")
	assert.Contains(t, output, "Datastores: mysql")
	assert.Contains(t, output, "Missing structure entries: 1")
}

func TestPrintAnalysis_Nil(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.PrintAnalysis(nil)

	assert.Empty(t, buf.String())
}

func TestPrintVerdict(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	verdict := review.Verdict{Kind: review.VerdictAI, Assessment: review.Assessment{
		CodeQuality: 4, BestPractices: 3, Readability: 4, Security: 2, Overall: 68,
		Strengths: []string{"Clear file layout"},
		Summary:   "Solid beginner project",
	}}

	p.PrintVerdict(verdict)
	output := buf.String()

	assert.Contains(t, output, "AI CODE REVIEW")
	assert.Contains(t, output, "Quality: 4/5")
	assert.Contains(t, output, "Overall: 68/100")
	assert.Contains(t, output, "Clear file layout")
	assert.Contains(t, output, "Solid beginner project")
}

func TestPrintVerdict_Fallback(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.PrintVerdict(review.FallbackVerdict("circuit breaker open"))
	output := buf.String()

	assert.Contains(t, output, "neutral scores applied")
	assert.Contains(t, output, "circuit breaker open")
}

func TestPrintCommitHistory(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	report := &commits.Report{
		Available:          true,
		TotalCommits:       9,
		TimespanDays:       4.5,
		Authors:            []string{"octocat"},
		RiskScore:          0.35,
		Findings:           []string{"Project completed in under 3 days"},
		InterviewQuestions: []string{"Walk me through your development timeline."},
	}

	p.PrintCommitHistory(report)
	output := buf.String()

	assert.Contains(t, output, "COMMIT HISTORY")
	assert.Contains(t, output, "9 over 4.5 days")
	assert.Contains(t, output, "0.35")
	assert.Contains(t, output, "under 3 days")
	assert.Contains(t, output, "development timeline")
}

func TestPrintCommitHistory_Unavailable(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	report := &commits.Report{
		Available: false,
		Findings:  []string{"Commit history could not be retrieved"},
	}

	p.PrintCommitHistory(report)
	output := buf.String()

	assert.Contains(t, output, "Commit history unavailable")
	assert.Contains(t, output, "could not be retrieved")
}

func TestPrintDeployment(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	report := &deploy.Report{
		URL:       "https://webapp.example.com",
		Reachable: true,
		Pages: []deploy.PageResult{
			{URL: "https://webapp.example.com", StatusCode: 200, OK: true},
			{URL: "https://webapp.example.com/login.html", StatusCode: 404},
		},
		ResponsiveScore: 2,
		Screenshots:     []deploy.Screenshot{{Viewport: "desktop"}},
	}

	p.PrintDeployment(report)
	output := buf.String()

	assert.Contains(t, output, "DEPLOYMENT")
	assert.Contains(t, output, "1 live of 2 probed")
	assert.Contains(t, output, "Responsive: 2/2")
	assert.Contains(t, output, "1 captured")
}

func TestPrintDeployment_Unreachable(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	report := &deploy.Report{Flags: []string{deploy.FlagNoDeployment}}

	p.PrintDeployment(report)
	output := buf.String()

	assert.Contains(t, output, "No accessible deployment")
	assert.Contains(t, output, deploy.FlagNoDeployment)
}

func TestPrintScoreCard(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	card := &scoring.ScoreCard{
		Overall:        74,
		Grade:          "B",
		Recommendation: "Good candidate - consider for interview",
		GenerationRisk: 0.15,
		Categories: map[string]scoring.CategoryScore{
			scoring.CatStructure: {Score: 10, Ceiling: 10},
			scoring.CatMySQL:     {Score: 8, Ceiling: 8},
		},
		Flags: []scoring.Flag{
			{Code: scoring.FlagNoRedis, Severity: scoring.SeverityWarning},
		},
	}

	p.PrintScoreCard(card)
	output := buf.String()

	assert.Contains(t, output, "SCORE CARD")
	assert.Contains(t, output, "74/100  (B)")
	assert.Contains(t, output, "consider for interview")
	assert.Contains(t, output, scoring.FlagNoRedis)
	assert.Contains(t, output, "10/10")
}

func TestPrintScoreCard_Nil(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.PrintScoreCard(nil)

	assert.Empty(t, buf.String())
}

func TestPrintBox_LongLines(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	report := &commits.Report{
		Available: false,
		Findings:  []string{"A very long finding message that should be truncated to fit inside the box"},
	}

	p.PrintCommitHistory(report)
	output := buf.String()

	// Should contain box characters
	assert.True(t, strings.Contains(output, "┌"))
	assert.True(t, strings.Contains(output, "└"))
	assert.True(t, strings.Contains(output, "│"))
}

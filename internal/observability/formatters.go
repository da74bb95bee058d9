// Package observability provides formatted output utilities for verbose CLI mode.
package observability

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/jonathan/intern-grader/internal/analysis"
	"github.com/jonathan/intern-grader/internal/commits"
	"github.com/jonathan/intern-grader/internal/deploy"
	"github.com/jonathan/intern-grader/internal/review"
	"github.com/jonathan/intern-grader/internal/scoring"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 5
)

// Printer handles formatted output for verbose mode
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, title)
	fmt.Fprintf(p.out, "├%s┤\n", border)

	lines := strings.Split(content, "\n")
	for _, line := range lines {
		// Truncate long lines
		if len(line) > boxWidth-4 {
			line = line[:boxWidth-7] + "..."
		}
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, line)
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// PrintAnalysis outputs the static-analysis category scores.
func (p *Printer) PrintAnalysis(report *analysis.Report) {
	if report == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Structure:   %2d   Separation: %2d\n", report.Structure.Score, report.Separation.Score))
	sb.WriteString(fmt.Sprintf("Async usage: %2d   Queries:    %2d\n", report.AsyncUsage.Score, report.Queries.Score))
	sb.WriteString(fmt.Sprintf("Framework:   %2d   Complexity: %2d\n", report.Framework.Score, report.Complexity.Score))
	sb.WriteString(fmt.Sprintf("Duplication: %2d   Docs:       %2d\n", report.Duplication.Score, report.Documentation.Score))

	var stores []string
	if report.Datastores.MySQL.Detected {
		stores = append(stores, "mysql")
	}
	if report.Datastores.MongoDB.Detected {
		stores = append(stores, "mongodb")
	}
	if report.Datastores.Redis.Detected {
		stores = append(stores, "redis")
	}
	if report.LocalStorage.Detected {
		stores = append(stores, "localStorage")
	}
	if len(stores) > 0 {
		sb.WriteString(fmt.Sprintf("\nDatastores: %s", strings.Join(stores, ", ")))
	} else {
		sb.WriteString("\nDatastores: none detected")
	}

	if missing := len(report.Structure.MissingFiles) + len(report.Structure.MissingFolders); missing > 0 {
		sb.WriteString(fmt.Sprintf("\nMissing structure entries: %d", missing))
	}

	p.printBox("STATIC ANALYSIS", sb.String())
}

// PrintVerdict outputs the AI review assessment, or the fallback reason when
// the review degraded.
func (p *Printer) PrintVerdict(verdict review.Verdict) {
	var sb strings.Builder

	if verdict.IsFallback() {
		sb.WriteString("AI review unavailable, neutral scores applied\n")
		sb.WriteString(fmt.Sprintf("Reason: %s", verdict.FallbackReason))
		p.printBox("AI CODE REVIEW", sb.String())
		return
	}

	a := verdict.Assessment
	sb.WriteString(fmt.Sprintf("Quality: %d/5   Practices: %d/5\n", a.CodeQuality, a.BestPractices))
	sb.WriteString(fmt.Sprintf("Readability: %d/5   Security: %d/5\n", a.Readability, a.Security))
	sb.WriteString(fmt.Sprintf("Overall: %.0f/100\n", a.Overall))

	if len(a.Strengths) > 0 {
		sb.WriteString("\nStrengths:\n")
		count := min(len(a.Strengths), 3)
		for i := 0; i < count; i++ {
			sb.WriteString(fmt.Sprintf("  • %s\n", a.Strengths[i]))
		}
		if len(a.Strengths) > 3 {
			sb.WriteString(fmt.Sprintf("  ... and %d more\n", len(a.Strengths)-3))
		}
	}

	if a.Summary != "" {
		sb.WriteString("\n")
		sb.WriteString(a.Summary)
	}

	p.printBox("AI CODE REVIEW", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintCommitHistory outputs the commit-history summary and risk signals.
func (p *Printer) PrintCommitHistory(report *commits.Report) {
	if report == nil {
		return
	}

	var sb strings.Builder

	if !report.Available {
		sb.WriteString("Commit history unavailable\n")
		for _, finding := range report.Findings {
			sb.WriteString(fmt.Sprintf("  • %s\n", finding))
		}
		p.printBox("COMMIT HISTORY", strings.TrimSuffix(sb.String(), "\n"))
		return
	}

	sb.WriteString(fmt.Sprintf("Commits:  %d over %.1f days\n", report.TotalCommits, report.TimespanDays))
	sb.WriteString(fmt.Sprintf("Authors:  %d\n", len(report.Authors)))
	sb.WriteString(fmt.Sprintf("Risk:     %.2f\n", report.RiskScore))

	if len(report.Findings) > 0 {
		sb.WriteString("\nFindings:\n")
		count := min(len(report.Findings), maxItemsToShow)
		for i := 0; i < count; i++ {
			sb.WriteString(fmt.Sprintf("  • %s\n", report.Findings[i]))
		}
		if len(report.Findings) > maxItemsToShow {
			sb.WriteString(fmt.Sprintf("  ... and %d more\n", len(report.Findings)-maxItemsToShow))
		}
	}

	if len(report.InterviewQuestions) > 0 {
		sb.WriteString("\nSuggested interview questions:\n")
		count := min(len(report.InterviewQuestions), 3)
		for i := 0; i < count; i++ {
			sb.WriteString(fmt.Sprintf("  • %s\n", report.InterviewQuestions[i]))
		}
		if len(report.InterviewQuestions) > 3 {
			sb.WriteString(fmt.Sprintf("  ... and %d more\n", len(report.InterviewQuestions)-3))
		}
	}

	p.printBox("COMMIT HISTORY", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintDeployment outputs the deployment probe results.
func (p *Printer) PrintDeployment(report *deploy.Report) {
	if report == nil {
		return
	}

	var sb strings.Builder

	if !report.Reachable {
		sb.WriteString("No accessible deployment\n")
		for _, flag := range report.Flags {
			sb.WriteString(fmt.Sprintf("  • %s\n", flag))
		}
		p.printBox("DEPLOYMENT", strings.TrimSuffix(sb.String(), "\n"))
		return
	}

	live := 0
	for _, page := range report.Pages {
		if page.OK {
			live++
		}
	}

	sb.WriteString(fmt.Sprintf("URL:        %s\n", report.URL))
	sb.WriteString(fmt.Sprintf("Pages:      %d live of %d probed\n", live, len(report.Pages)))
	sb.WriteString(fmt.Sprintf("Responsive: %d/2", report.ResponsiveScore))
	if len(report.Screenshots) > 0 {
		sb.WriteString(fmt.Sprintf("\nShots:      %d captured", len(report.Screenshots)))
	}

	p.printBox("DEPLOYMENT", sb.String())
}

// PrintScoreCard outputs the final grade, category breakdown, and flags.
func (p *Printer) PrintScoreCard(card *scoring.ScoreCard) {
	if card == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Overall:  %d/100  (%s)\n", card.Overall, card.Grade))
	sb.WriteString(fmt.Sprintf("%s\n", card.Recommendation))
	sb.WriteString(fmt.Sprintf("Generation risk: %.2f\n", card.GenerationRisk))
	if card.AIFallback {
		sb.WriteString("AI review degraded to neutral scores\n")
	}
	sb.WriteString("\n")

	names := make([]string, 0, len(card.Categories))
	for name := range card.Categories {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		cat := card.Categories[name]
		sb.WriteString(fmt.Sprintf("  %-15s %2d/%d\n", name, cat.Score, cat.Ceiling))
	}

	if len(card.Flags) > 0 {
		sb.WriteString("\nFlags:\n")
		for _, flag := range card.Flags {
			sb.WriteString(fmt.Sprintf("  [%s] %s\n", flag.Severity, flag.Code))
		}
	}

	p.printBox("SCORE CARD", strings.TrimSuffix(sb.String(), "\n"))
}

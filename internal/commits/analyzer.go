package commits

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/jonathan/intern-grader/internal/cache"
	"github.com/jonathan/intern-grader/internal/repo"
)

// aiMessagePatterns match commit messages typical of generated or bulk-pasted
// work rather than incremental development.
var aiMessagePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^initial commit$`),
	regexp.MustCompile(`(?i)^first commit$`),
	regexp.MustCompile(`(?i)^add files via upload$`),
	regexp.MustCompile(`(?i)^upload(ed)? (files|project)`),
	regexp.MustCompile(`(?i)^(create|update) .+\.(html|php|js|css|md)$`),
	regexp.MustCompile(`(?i)^(implemented?|added?) (complete|full|entire) `),
	regexp.MustCompile(`(?i)^final (version|project|submission)`),
}

var conventionalPattern = regexp.MustCompile(`^(feat|fix|chore|docs|style|refactor|perf|test|build|ci)(\([^)]*\))?!?: `)

const (
	shortMessageLen    = 10
	bulkSessionWindow  = time.Hour
	bulkSessionCommits = 3
	rawCommitsKind     = "raw_commits"
	analysisKind       = "analysis"
)

// Analyzer derives the commit-history report, caching both the raw history
// and the finished analysis.
type Analyzer struct {
	lister Lister
	cache  *cache.TTLCache
	logger *slog.Logger
}

// NewAnalyzer creates an analyzer. A nil cache disables caching.
func NewAnalyzer(lister Lister, c *cache.TTLCache, logger *slog.Logger) *Analyzer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Analyzer{lister: lister, cache: c, logger: logger}
}

// Analyze produces the commit report for ref. An unavailable history (not
// found, breaker open, exhausted retries) degrades to a report with
// Available=false so the rest of the run can proceed; only successfully
// derived analyses are cached.
func (a *Analyzer) Analyze(ctx context.Context, ref repo.Ref) *Report {
	analysisKey := cache.Key(ref.Owner, ref.Name, analysisKind)
	if a.cache != nil {
		if data, ok := a.cache.Get(ctx, analysisKey); ok {
			var cached Report
			if err := json.Unmarshal(data, &cached); err == nil {
				a.logger.Debug("commit analysis served from cache", "repo", ref.String())
				return &cached
			}
		}
	}

	history, err := a.listCommits(ctx, ref)
	if err != nil {
		a.logger.Warn("commit history unavailable", "repo", ref.String(), "error", err)
		return &Report{
			Available: false,
			Findings:  []string{"Commit history could not be retrieved; authorship signals are unknown"},
			InterviewQuestions: []string{
				"Ask the candidate to show their local commit history and describe how the project evolved",
			},
		}
	}

	report := analyzeCommits(history)
	if a.cache != nil {
		if data, err := json.Marshal(report); err == nil {
			a.cache.Set(ctx, analysisKey, data, cache.AnalysisTTL)
		}
	}
	return report
}

// listCommits returns the raw history, consulting the short-TTL cache first.
func (a *Analyzer) listCommits(ctx context.Context, ref repo.Ref) ([]CommitMeta, error) {
	rawKey := cache.Key(ref.Owner, ref.Name, rawCommitsKind)
	if a.cache != nil {
		if data, ok := a.cache.Get(ctx, rawKey); ok {
			var cached []CommitMeta
			if err := json.Unmarshal(data, &cached); err == nil {
				return cached, nil
			}
		}
	}

	commits, err := a.lister.List(ctx, ref)
	if err != nil {
		return nil, err
	}
	if a.cache != nil {
		if data, err := json.Marshal(commits); err == nil {
			a.cache.Set(ctx, rawKey, data, cache.RawCommitsTTL)
		}
	}
	return commits, nil
}

// analyzeCommits derives every signal and the risk score from raw history.
func analyzeCommits(commits []CommitMeta) *Report {
	report := &Report{
		Available:          true,
		TotalCommits:       len(commits),
		Authors:            []string{},
		Findings:           []string{},
		InterviewQuestions: []string{},
	}
	if len(commits) == 0 {
		report.Findings = append(report.Findings, "Repository has no commits")
		return report
	}

	ordered := make([]CommitMeta, len(commits))
	copy(ordered, commits)
	sort.Slice(ordered, func(i, j int) bool {
		return ordered[i].AuthoredAt.Before(ordered[j].AuthoredAt)
	})

	authorSet := map[string]bool{}
	short, aiLike, conventional := 0, 0, 0
	for _, c := range ordered {
		if c.Author != "" && !authorSet[c.Author] {
			authorSet[c.Author] = true
			report.Authors = append(report.Authors, c.Author)
		}
		msg := strings.TrimSpace(firstLine(c.Message))
		if len(msg) < shortMessageLen {
			short++
		}
		if matchesAIPattern(msg) {
			aiLike++
		}
		if conventionalPattern.MatchString(msg) {
			conventional++
		}
	}

	n := float64(len(ordered))
	report.FirstCommitAt = ordered[0].AuthoredAt
	report.LastCommitAt = ordered[len(ordered)-1].AuthoredAt
	report.TimespanDays = report.LastCommitAt.Sub(report.FirstCommitAt).Hours() / 24
	report.ShortMessageRatio = float64(short) / n
	report.AIPatternRatio = float64(aiLike) / n
	report.AllConventional = conventional == len(ordered)
	report.BulkSessions = countBulkSessions(ordered)

	if report.TimespanDays > 0 {
		report.CommitsPerDay = n / report.TimespanDays
	} else {
		report.CommitsPerDay = n
	}

	report.RiskScore = timelineRisk(report)
	report.Findings = buildFindings(report)
	report.InterviewQuestions = buildInterviewQuestions(report)
	return report
}

func firstLine(message string) string {
	if i := strings.IndexByte(message, '\n'); i >= 0 {
		return message[:i]
	}
	return message
}

func matchesAIPattern(message string) bool {
	for _, p := range aiMessagePatterns {
		if p.MatchString(message) {
			return true
		}
	}
	return false
}

// countBulkSessions slides a bulkSessionCommits-wide window over the history
// and counts every window that fits inside bulkSessionWindow. Overlapping
// windows each count. Commits must be oldest first.
func countBulkSessions(ordered []CommitMeta) int {
	sessions := 0
	for i := 0; i+bulkSessionCommits-1 < len(ordered); i++ {
		span := ordered[i+bulkSessionCommits-1].AuthoredAt.Sub(ordered[i].AuthoredAt)
		if span < bulkSessionWindow {
			sessions++
		}
	}
	return sessions
}

// timelineRisk computes the commit-side generation risk on a 0 to 1 scale.
// Weights are tuned against labeled past submissions; change them only with
// fresh calibration data.
func timelineRisk(r *Report) float64 {
	risk := 0.0

	risk += 0.25 * r.AIPatternRatio
	risk += 0.15 * r.ShortMessageRatio

	switch {
	case r.CommitsPerDay > 5:
		risk += 0.20
	case r.CommitsPerDay > 3:
		risk += 0.10
	}

	if r.BulkSessions > 2 {
		risk += 0.15
	}

	switch {
	case r.TimespanDays < 1 && r.TotalCommits > 5:
		risk += 0.25
	case r.TimespanDays < 3 && r.TotalCommits > 10:
		risk += 0.15
	}

	if r.AllConventional && r.TotalCommits > 5 {
		risk += 0.10
	}

	if risk > 1 {
		risk = 1
	}
	if risk < 0 {
		risk = 0
	}
	return risk
}

func buildFindings(r *Report) []string {
	findings := []string{}
	if r.TotalCommits == 1 {
		findings = append(findings, "Entire project was committed at once")
	}
	if r.TimespanDays < 1 && r.TotalCommits > 5 {
		findings = append(findings, fmt.Sprintf("All %d commits happened within a single day", r.TotalCommits))
	}
	if r.AIPatternRatio > 0.5 {
		findings = append(findings, "Most commit messages match generated-message patterns")
	}
	if r.ShortMessageRatio > 0.5 {
		findings = append(findings, "Most commit messages are too short to describe the change")
	}
	if r.BulkSessions > 2 {
		findings = append(findings, fmt.Sprintf("%d bulk commit sessions detected", r.BulkSessions))
	}
	if len(r.Authors) > 1 {
		findings = append(findings, fmt.Sprintf("Commits come from %d different authors", len(r.Authors)))
	}
	return findings
}

func buildInterviewQuestions(r *Report) []string {
	questions := []string{}
	if r.TotalCommits <= 2 {
		questions = append(questions, "Ask the candidate to walk through how they built the project step by step")
	}
	if r.TimespanDays < 1 && r.TotalCommits > 5 {
		questions = append(questions, "Ask why the whole project was committed in one sitting")
	}
	if r.AIPatternRatio > 0.5 || r.ShortMessageRatio > 0.5 {
		questions = append(questions, "Ask the candidate to explain a specific commit and what problem it solved")
	}
	if len(r.Authors) > 1 {
		questions = append(questions, "Ask who the other committers are and what they contributed")
	}
	return questions
}

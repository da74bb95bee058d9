// Package commits analyzes a submission's commit history for authorship and
// workflow signals: message patterns, commit cadence, bulk sessions, and the
// timeline risk heuristic. History lookups go through the shared cache and
// the source-host breaker.
package commits

import (
	"context"
	"time"

	"github.com/jonathan/intern-grader/internal/repo"
)

// CommitMeta is one commit as returned by the source host.
type CommitMeta struct {
	SHA        string    `json:"sha"`
	Message    string    `json:"message"`
	Author     string    `json:"author"`
	Email      string    `json:"email"`
	AuthoredAt time.Time `json:"authored_at"`
}

// Lister fetches commit history for a repository, newest first.
type Lister interface {
	List(ctx context.Context, ref repo.Ref) ([]CommitMeta, error)
}

// Report is the derived commit-history analysis.
type Report struct {
	Available          bool      `json:"available"`
	TotalCommits       int       `json:"total_commits"`
	Authors            []string  `json:"authors"`
	FirstCommitAt      time.Time `json:"first_commit_at"`
	LastCommitAt       time.Time `json:"last_commit_at"`
	TimespanDays       float64   `json:"timespan_days"`
	CommitsPerDay      float64   `json:"commits_per_day"`
	ShortMessageRatio  float64   `json:"short_message_ratio"`
	AIPatternRatio     float64   `json:"ai_pattern_ratio"`
	BulkSessions       int       `json:"bulk_sessions"`
	AllConventional    bool      `json:"all_conventional"`
	RiskScore          float64   `json:"risk_score"`
	Findings           []string  `json:"findings"`
	InterviewQuestions []string  `json:"interview_questions"`
}

package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/intern-grader/internal/commits"
	"github.com/jonathan/intern-grader/internal/deploy"
	"github.com/jonathan/intern-grader/internal/progress"
	"github.com/jonathan/intern-grader/internal/repo"
	"github.com/jonathan/intern-grader/internal/review"
)

type fakeRepos struct {
	t        *testing.T
	files    map[string]string
	meta     *repo.Metadata
	err      error
	cleaned  bool
	acquired string
}

func (f *fakeRepos) Acquire(_ context.Context, _ repo.Ref, workspaceID string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	root := f.t.TempDir()
	for rel, content := range f.files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(f.t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(f.t, os.WriteFile(path, []byte(content), 0o644))
	}
	f.acquired = workspaceID
	return root, nil
}

func (f *fakeRepos) Cleanup(string) error {
	f.cleaned = true
	return nil
}

func (f *fakeRepos) Metadata(context.Context, string) (*repo.Metadata, error) {
	if f.meta != nil {
		return f.meta, nil
	}
	return &repo.Metadata{}, nil
}

type fakeHistory struct{ report *commits.Report }

func (f *fakeHistory) Analyze(context.Context, repo.Ref) *commits.Report { return f.report }

type fakeReviewer struct {
	verdict review.Verdict
	rubric  string
}

func (f *fakeReviewer) ReviewQuality(_ context.Context, _ review.CodeSample, rubric string) review.Verdict {
	f.rubric = rubric
	return f.verdict
}

type fakeProber struct {
	report *deploy.Report
	url    string
	called bool
}

func (f *fakeProber) Check(_ context.Context, url string) *deploy.Report {
	f.called = true
	f.url = url
	if f.report != nil {
		return f.report
	}
	return &deploy.Report{Flags: []string{deploy.FlagNoDeployment}}
}

func submissionFiles() map[string]string {
	return map[string]string{
		"index.html":    `<html><head><link href="css/style.css" rel="stylesheet"><script src="js/login.js"></script></head><body></body></html>`,
		"css/style.css": "body { margin: 0; }",
		"js/login.js":   `fetch("php/login.php");`,
		"php/login.php": `<?php $stmt = $conn->prepare("SELECT id FROM users WHERE name = ?"); ?>`,
	}
}

func healthyCommits() *commits.Report {
	return &commits.Report{Available: true, TotalCommits: 12, RiskScore: 0.05}
}

func goodVerdict() review.Verdict {
	return review.Verdict{Kind: review.VerdictAI, Assessment: review.Assessment{
		CodeQuality: 4, BestPractices: 4, Readability: 4, Security: 3, Overall: 70,
		Strengths:  []string{"Clear file layout"},
		Weaknesses: []string{"No input validation"},
		Summary:    "Solid beginner project",
	}}
}

type harness struct {
	service  *Service
	hub      *progress.Hub
	repos    *fakeRepos
	reviewer *fakeReviewer
	prober   *fakeProber
}

func newHarness(t *testing.T, repos *fakeRepos, history *fakeHistory, reviewer *fakeReviewer, prober *fakeProber) *harness {
	t.Helper()
	hub := progress.NewHub(nil)
	service, err := NewService(Options{
		Repos:    repos,
		History:  history,
		Reviewer: reviewer,
		Prober:   prober,
		Hub:      hub,
	})
	require.NoError(t, err)
	return &harness{service: service, hub: hub, repos: repos, reviewer: reviewer, prober: prober}
}

func waitTerminal(t *testing.T, s *Service, runID string) Result {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		res, ok := s.Result(runID)
		require.True(t, ok)
		if res.Status == StatusCompleted || res.Status == StatusFailed {
			return res
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("run did not reach a terminal status")
	return Result{}
}

func TestRunCompletesEndToEnd(t *testing.T) {
	h := newHarness(t,
		&fakeRepos{t: t, files: submissionFiles()},
		&fakeHistory{report: healthyCommits()},
		&fakeReviewer{verdict: goodVerdict()},
		&fakeProber{},
	)

	events, err := h.hub.Connect("watcher")
	require.NoError(t, err)
	require.NoError(t, h.service.Subscribe("watcher", "run-1"))

	runID, err := h.service.StartRun(context.Background(), Request{
		RunID:   "run-1",
		RepoURL: "https://github.com/octocat/webapp",
	})
	require.NoError(t, err)

	res := waitTerminal(t, h.service, runID)
	assert.Equal(t, StatusCompleted, res.Status)
	assert.Equal(t, StageCompleted, res.Stage)
	assert.Empty(t, res.Error)
	require.NotNil(t, res.ScoreCard)
	assert.NotEmpty(t, res.ScoreCard.Grade)
	assert.NotNil(t, res.Analysis)
	assert.NotNil(t, res.Commits)
	assert.NotNil(t, res.Deploy)
	assert.False(t, res.EndedAt.IsZero())
	assert.True(t, h.repos.cleaned)
	assert.Equal(t, runID, h.repos.acquired)

	// Progress never moves backwards across the published events.
	last := -1
	var final progress.Event
	for final.Stage != string(StageCompleted) {
		select {
		case ev := <-events:
			assert.GreaterOrEqual(t, ev.Progress, last, "stage %s", ev.Stage)
			last = ev.Progress
			final = ev
		case <-time.After(5 * time.Second):
			t.Fatal("completed event never arrived")
		}
	}
	assert.Equal(t, 100, final.Progress)
	assert.Equal(t, res.ScoreCard.Grade, final.Data["grade"])
	h.hub.Disconnect("watcher")
}

func TestRunHistoryUnavailableStillCompletes(t *testing.T) {
	h := newHarness(t,
		&fakeRepos{t: t, files: submissionFiles()},
		&fakeHistory{report: &commits.Report{
			Available: false,
			Findings:  []string{"Commit history could not be retrieved"},
		}},
		&fakeReviewer{verdict: goodVerdict()},
		&fakeProber{},
	)

	runID, err := h.service.StartRun(context.Background(), Request{RepoURL: "https://github.com/octocat/webapp"})
	require.NoError(t, err)

	res := waitTerminal(t, h.service, runID)
	assert.Equal(t, StatusCompleted, res.Status)
	require.NotNil(t, res.ScoreCard)
	// Missing history counts as a single-commit submission for risk purposes.
	assert.InDelta(t, 0.45, res.ScoreCard.GenerationRisk, 1e-9)
}

func TestRunHistoryUnavailableReadsLocalClone(t *testing.T) {
	h := newHarness(t,
		&fakeRepos{
			t:     t,
			files: submissionFiles(),
			meta:  &repo.Metadata{TotalCommits: 7, Contributors: []string{"octocat", "helper"}},
		},
		&fakeHistory{report: &commits.Report{Available: false}},
		&fakeReviewer{verdict: goodVerdict()},
		&fakeProber{},
	)

	runID, err := h.service.StartRun(context.Background(), Request{RepoURL: "https://github.com/octocat/webapp"})
	require.NoError(t, err)

	res := waitTerminal(t, h.service, runID)
	assert.Equal(t, StatusCompleted, res.Status)
	require.NotNil(t, res.Commits)
	assert.Contains(t, res.Commits.Findings, "Local clone shows 7 commits by 2 contributors")
}

func TestRunFallbackVerdictStillCompletes(t *testing.T) {
	h := newHarness(t,
		&fakeRepos{t: t, files: submissionFiles()},
		&fakeHistory{report: healthyCommits()},
		&fakeReviewer{verdict: review.FallbackVerdict("circuit breaker open")},
		&fakeProber{},
	)

	runID, err := h.service.StartRun(context.Background(), Request{RepoURL: "https://github.com/octocat/webapp"})
	require.NoError(t, err)

	res := waitTerminal(t, h.service, runID)
	assert.Equal(t, StatusCompleted, res.Status)
	require.True(t, res.Verdict.IsFallback())
	assert.Equal(t, "circuit breaker open", res.Verdict.FallbackReason)
	require.NotNil(t, res.ScoreCard)
	assert.True(t, res.ScoreCard.AIFallback)
}

func TestRunAcquireFailureFails(t *testing.T) {
	h := newHarness(t,
		&fakeRepos{t: t, err: errors.New("clone failed: repository not found")},
		&fakeHistory{report: healthyCommits()},
		&fakeReviewer{verdict: goodVerdict()},
		&fakeProber{},
	)

	events, err := h.hub.Connect("watcher")
	require.NoError(t, err)
	require.NoError(t, h.service.Subscribe("watcher", "run-x"))

	runID, err := h.service.StartRun(context.Background(), Request{RunID: "run-x", RepoURL: "https://github.com/octocat/gone"})
	require.NoError(t, err)

	res := waitTerminal(t, h.service, runID)
	assert.Equal(t, StatusFailed, res.Status)
	assert.Contains(t, res.Error, "repository acquisition failed")
	assert.Nil(t, res.ScoreCard)

	// The failed event reports the percentage of the stage that was running.
	for {
		select {
		case ev := <-events:
			if ev.Stage == string(StageFailed) {
				assert.Equal(t, StageAcquiringRepo.Percent(), ev.Progress)
				h.hub.Disconnect("watcher")
				return
			}
		case <-time.After(5 * time.Second):
			t.Fatal("failed event never arrived")
		}
	}
}

func TestRunSkipDeployment(t *testing.T) {
	prober := &fakeProber{}
	h := newHarness(t,
		&fakeRepos{t: t, files: submissionFiles()},
		&fakeHistory{report: healthyCommits()},
		&fakeReviewer{verdict: goodVerdict()},
		prober,
	)

	runID, err := h.service.StartRun(context.Background(), Request{
		RepoURL:        "https://github.com/octocat/webapp",
		SkipDeployment: true,
	})
	require.NoError(t, err)

	res := waitTerminal(t, h.service, runID)
	assert.Equal(t, StatusCompleted, res.Status)
	assert.False(t, prober.called)
	require.NotNil(t, res.Deploy)
	assert.Zero(t, res.Deploy.Score)
}

func TestRunForwardsDeployURLAndRubric(t *testing.T) {
	prober := &fakeProber{report: &deploy.Report{Reachable: true, Score: deploy.DeploymentPoints}}
	reviewer := &fakeReviewer{verdict: goodVerdict()}
	h := newHarness(t,
		&fakeRepos{t: t, files: submissionFiles()},
		&fakeHistory{report: healthyCommits()},
		reviewer,
		prober,
	)

	runID, err := h.service.StartRun(context.Background(), Request{
		RepoURL:   "https://github.com/octocat/webapp",
		DeployURL: "webapp.example.com",
		Rubric:    "Weight security heavily.",
	})
	require.NoError(t, err)

	res := waitTerminal(t, h.service, runID)
	assert.Equal(t, "webapp.example.com", prober.url)
	assert.Equal(t, "Weight security heavily.", reviewer.rubric)
	// A custom rubric makes the AI's own overall authoritative.
	assert.Equal(t, 70, res.ScoreCard.Overall)
}

func TestStartRunValidation(t *testing.T) {
	h := newHarness(t,
		&fakeRepos{t: t, files: submissionFiles()},
		&fakeHistory{report: healthyCommits()},
		&fakeReviewer{verdict: goodVerdict()},
		&fakeProber{},
	)

	_, err := h.service.StartRun(context.Background(), Request{})
	assert.Error(t, err)

	_, err = h.service.StartRun(context.Background(), Request{RepoURL: "not a repository"})
	assert.Error(t, err)
}

func TestStartRunDuplicateID(t *testing.T) {
	h := newHarness(t,
		&fakeRepos{t: t, files: submissionFiles()},
		&fakeHistory{report: healthyCommits()},
		&fakeReviewer{verdict: goodVerdict()},
		&fakeProber{},
	)

	_, err := h.service.StartRun(context.Background(), Request{RunID: "dup", RepoURL: "https://github.com/octocat/webapp"})
	require.NoError(t, err)
	_, err = h.service.StartRun(context.Background(), Request{RunID: "dup", RepoURL: "https://github.com/octocat/webapp"})
	assert.Error(t, err)
}

func TestReleaseDropsTerminalRunsOnly(t *testing.T) {
	h := newHarness(t,
		&fakeRepos{t: t, files: submissionFiles()},
		&fakeHistory{report: healthyCommits()},
		&fakeReviewer{verdict: goodVerdict()},
		&fakeProber{},
	)

	runID, err := h.service.StartRun(context.Background(), Request{RepoURL: "https://github.com/octocat/webapp"})
	require.NoError(t, err)
	waitTerminal(t, h.service, runID)

	h.service.Release(runID)
	_, ok := h.service.Result(runID)
	assert.False(t, ok)
}

func TestResultUnknownRun(t *testing.T) {
	h := newHarness(t,
		&fakeRepos{t: t, files: submissionFiles()},
		&fakeHistory{report: healthyCommits()},
		&fakeReviewer{verdict: goodVerdict()},
		&fakeProber{},
	)
	_, ok := h.service.Result("missing")
	assert.False(t, ok)
}

func TestNewServiceRequiresCollaborators(t *testing.T) {
	_, err := NewService(Options{})
	assert.Error(t, err)
}

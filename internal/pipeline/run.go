package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/jonathan/intern-grader/internal/analysis"
	"github.com/jonathan/intern-grader/internal/commits"
	"github.com/jonathan/intern-grader/internal/deploy"
	"github.com/jonathan/intern-grader/internal/progress"
	"github.com/jonathan/intern-grader/internal/repo"
	"github.com/jonathan/intern-grader/internal/review"
	"github.com/jonathan/intern-grader/internal/scoring"
)

// execute advances one run through every stage in order. Stages never run
// their own retries; all retry and breaker behavior lives inside the
// collaborators. Only repository acquisition is a hard failure; every
// enrichment step degrades and the run still reaches a ScoreCard.
func (s *Service) execute(ctx context.Context, r *run, req Request, ref repo.Ref) {
	runID := r.snapshot().RunID
	logger := s.logger.With("run", runID, "repo", ref.String())

	enter := func(stage Stage, message string) {
		r.update(func(res *Result) {
			res.Status = StatusProcessing
			res.Stage = stage
		})
		s.publish(runID, stage, message, nil)
		logger.Info("stage entered", "stage", stage, "progress", stage.Percent())
	}

	fail := func(stage Stage, err error) {
		r.update(func(res *Result) {
			res.Status = StatusFailed
			res.Error = err.Error()
			res.EndedAt = time.Now().UTC()
			res.Elapsed = res.EndedAt.Sub(res.StartedAt)
		})
		s.hub.Publish(runID, failedEvent(stage, err))
		logger.Error("run failed", "stage", stage, "error", err)
	}

	enter(StageAcquiringRepo, "Cloning repository")
	localPath, err := s.repos.Acquire(ctx, ref, runID)
	if err != nil {
		fail(StageAcquiringRepo, fmt.Errorf("repository acquisition failed: %w", err))
		return
	}
	defer func() {
		if err := s.repos.Cleanup(runID); err != nil {
			logger.Warn("workspace cleanup failed", "error", err)
		}
	}()
	snapshot := repo.NewSnapshot(localPath)

	enter(StageInspectingHistory, "Inspecting commit history")
	commitsReport := s.history.Analyze(ctx, ref)
	if !commitsReport.Available {
		// The hosted history is gone but the clone still carries its log.
		if meta, err := s.repos.Metadata(ctx, localPath); err == nil && meta.TotalCommits > 0 {
			commitsReport.Findings = append(commitsReport.Findings,
				fmt.Sprintf("Local clone shows %d commits by %d contributors", meta.TotalCommits, len(meta.Contributors)))
		}
	}
	r.update(func(res *Result) { res.Commits = commitsReport })

	enter(StageStaticAnalysis, "Running static analysis")
	checklist := analysis.DefaultChecklist()
	if req.StructureSpec != "" {
		checklist = analysis.ParseChecklist(req.StructureSpec)
	}
	analysisReport := analysis.New(snapshot, checklist, s.logger).Analyze()
	r.update(func(res *Result) { res.Analysis = analysisReport })

	enter(StagePreparingAIInput, "Preparing code sample")
	sample := review.SampleCode(snapshot)

	enter(StageAIReview, "Requesting AI code review")
	verdict := s.reviewer.ReviewQuality(ctx, sample, req.Rubric)
	r.update(func(res *Result) { res.Verdict = verdict })

	enter(StageRiskDetection, "Estimating generation risk")
	risk := s.detectRisk(snapshot, analysisReport, verdict, commitsReport)

	enter(StageDeploymentCheck, "Checking deployment")
	var deployReport *deploy.Report
	if req.SkipDeployment {
		deployReport = &deploy.Report{Pages: []deploy.PageResult{}, Screenshots: []deploy.Screenshot{}, Flags: []string{}}
		s.publish(runID, StageDeploymentCheck, "Deployment check skipped", nil)
	} else {
		deployReport = s.prober.Check(ctx, req.DeployURL)
	}
	r.update(func(res *Result) { res.Deploy = deployReport })

	enter(StageScoring, "Computing final score")
	card := scoring.Score(scoring.Inputs{
		Analysis:       analysisReport,
		Verdict:        verdict,
		Deployment:     deployReport,
		Commits:        commitsReport,
		GenerationRisk: risk,
		CustomRubric:   req.Rubric != "",
	})

	r.update(func(res *Result) {
		res.ScoreCard = card
		res.Status = StatusCompleted
		res.Stage = StageCompleted
		res.EndedAt = time.Now().UTC()
		res.Elapsed = res.EndedAt.Sub(res.StartedAt)
	})
	s.publish(runID, StageCompleted, "Scoring complete", map[string]any{
		"overall": card.Overall,
		"grade":   card.Grade,
	})
	logger.Info("run completed", "overall", card.Overall, "grade", card.Grade, "risk", risk)
}

// detectRisk combines the review-side and commit-side generation risk.
// An unavailable history contributes the single-commit signal, matching the
// judgment that an invisible process is as suspect as a one-shot upload.
// The generic-comment factor is skipped when the AI review degraded, since
// the comment sample was never assessed.
func (s *Service) detectRisk(snapshot *repo.Snapshot, a *analysis.Report, verdict review.Verdict, c *commits.Report) float64 {
	total := c.TotalCommits
	if !c.Available {
		total = 1
	}

	var fileComments [][]string
	if !verdict.IsFallback() {
		for _, path := range snapshot.FilesByExt(".js", ".php") {
			fileComments = append(fileComments, review.ExtractComments(snapshot.ReadFile(path)))
		}
	}

	reviewRisk := review.DetectGenerationRisk(review.RiskInputs{
		TotalCommits:   total,
		StructureScore: a.Structure.Score,
		FileComments:   fileComments,
	})

	if c.RiskScore > reviewRisk {
		return c.RiskScore
	}
	return reviewRisk
}

func failedEvent(stage Stage, err error) progress.Event {
	return progress.Event{
		Stage:    string(StageFailed),
		Progress: stage.Percent(),
		Message:  err.Error(),
	}
}

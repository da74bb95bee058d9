package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/jonathan/intern-grader/internal/analysis"
	"github.com/jonathan/intern-grader/internal/commits"
	"github.com/jonathan/intern-grader/internal/deploy"
	"github.com/jonathan/intern-grader/internal/progress"
	"github.com/jonathan/intern-grader/internal/repo"
	"github.com/jonathan/intern-grader/internal/review"
	"github.com/jonathan/intern-grader/internal/scoring"
)

// HistoryAnalyzer derives the commit-history report for a repository.
type HistoryAnalyzer interface {
	Analyze(ctx context.Context, ref repo.Ref) *commits.Report
}

// QualityReviewer obtains the AI quality verdict for a code sample.
type QualityReviewer interface {
	ReviewQuality(ctx context.Context, sample review.CodeSample, rubric string) review.Verdict
}

// DeploymentChecker probes a deployed site.
type DeploymentChecker interface {
	Check(ctx context.Context, url string) *deploy.Report
}

// Options holds the collaborators a Service composes.
type Options struct {
	Repos    repo.Provider     `validate:"required"`
	History  HistoryAnalyzer   `validate:"required"`
	Reviewer QualityReviewer   `validate:"required"`
	Prober   DeploymentChecker `validate:"required"`
	Hub      *progress.Hub     `validate:"required"`
	Logger   *slog.Logger
}

// Request describes one submission to score.
type Request struct {
	// RunID is caller-supplied; empty means the service generates one.
	RunID string
	// RepoURL is the submission repository.
	RepoURL string `validate:"required"`
	// DeployURL is the optional live site. Empty is scored as no deployment.
	DeployURL string
	// Rubric is optional custom grading criteria forwarded to the AI review.
	Rubric string
	// StructureSpec is optional custom expected-structure text.
	StructureSpec string
	// SkipDeployment omits the deployment stage entirely.
	SkipDeployment bool
}

// Result is the terminal outcome of one run. Until the run reaches a
// terminal status, ScoreCard and the enrichment reports may be nil.
type Result struct {
	RunID     string             `json:"run_id"`
	Status    string             `json:"status"`
	Stage     Stage              `json:"stage"`
	Error     string             `json:"error,omitempty"`
	StartedAt time.Time          `json:"started_at"`
	EndedAt   time.Time          `json:"ended_at,omitzero"`
	Elapsed   time.Duration      `json:"elapsed"`
	ScoreCard *scoring.ScoreCard `json:"score_card,omitempty"`
	Analysis  *analysis.Report   `json:"analysis,omitempty"`
	Verdict   review.Verdict     `json:"verdict"`
	Commits   *commits.Report    `json:"commits,omitempty"`
	Deploy    *deploy.Report     `json:"deployment,omitempty"`
}

type run struct {
	mu     sync.Mutex
	result Result
}

func (r *run) update(fn func(*Result)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fn(&r.result)
}

func (r *run) snapshot() Result {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.result
}

// Service runs scoring pipelines, one goroutine per run, and tracks each
// run's state until the caller consumes the terminal Result.
type Service struct {
	repos    repo.Provider
	history  HistoryAnalyzer
	reviewer QualityReviewer
	prober   DeploymentChecker
	hub      *progress.Hub
	logger   *slog.Logger
	validate *validator.Validate

	mu   sync.Mutex
	runs map[string]*run
}

// NewService validates the collaborator set and creates a Service.
func NewService(opts Options) (*Service, error) {
	v := validator.New()
	if err := v.Struct(opts); err != nil {
		return nil, fmt.Errorf("invalid pipeline options: %w", err)
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repos:    opts.Repos,
		history:  opts.History,
		reviewer: opts.Reviewer,
		prober:   opts.Prober,
		hub:      opts.Hub,
		logger:   logger,
		validate: v,
		runs:     make(map[string]*run),
	}, nil
}

// StartRun validates the request and launches the run on its own goroutine.
// It returns the run identifier immediately; progress is observable through
// Subscribe and the terminal outcome through Result.
func (s *Service) StartRun(ctx context.Context, req Request) (string, error) {
	if err := s.validate.Struct(req); err != nil {
		return "", fmt.Errorf("invalid request: %w", err)
	}
	ref, err := repo.ParseRef(req.RepoURL)
	if err != nil {
		return "", err
	}

	runID := req.RunID
	if runID == "" {
		runID = uuid.NewString()
	}

	r := &run{result: Result{
		RunID:     runID,
		Status:    StatusPending,
		Stage:     StageQueued,
		StartedAt: time.Now().UTC(),
	}}

	s.mu.Lock()
	if _, exists := s.runs[runID]; exists {
		s.mu.Unlock()
		return "", fmt.Errorf("run %q already exists", runID)
	}
	s.runs[runID] = r
	s.mu.Unlock()

	s.publish(runID, StageQueued, "Run queued", nil)
	go s.execute(ctx, r, req, ref)
	return runID, nil
}

// Result returns the current state of a run.
func (s *Service) Result(runID string) (Result, bool) {
	s.mu.Lock()
	r, ok := s.runs[runID]
	s.mu.Unlock()
	if !ok {
		return Result{}, false
	}
	return r.snapshot(), true
}

// Release drops a terminal run from the service's map. Releasing an active
// or unknown run is a no-op.
func (s *Service) Release(runID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r, ok := s.runs[runID]; ok {
		res := r.snapshot()
		if res.Status == StatusCompleted || res.Status == StatusFailed {
			delete(s.runs, runID)
		}
	}
}

// Hub exposes the progress hub for transports that connect observers.
func (s *Service) Hub() *progress.Hub {
	return s.hub
}

// Subscribe attaches a connected observer to a run's progress events.
func (s *Service) Subscribe(observerID, runID string) error {
	return s.hub.Subscribe(observerID, runID)
}

// Unsubscribe detaches an observer from a run.
func (s *Service) Unsubscribe(observerID, runID string) {
	s.hub.Unsubscribe(observerID, runID)
}

func (s *Service) publish(runID string, stage Stage, message string, data map[string]any) {
	s.hub.Publish(runID, progress.Event{
		Stage:    string(stage),
		Progress: stage.Percent(),
		Message:  message,
		Data:     data,
	})
}

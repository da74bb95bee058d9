package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/jonathan/intern-grader/internal/cache"
	"github.com/jonathan/intern-grader/internal/commits"
	"github.com/jonathan/intern-grader/internal/config"
	"github.com/jonathan/intern-grader/internal/deploy"
	"github.com/jonathan/intern-grader/internal/observability"
	"github.com/jonathan/intern-grader/internal/pipeline"
	"github.com/jonathan/intern-grader/internal/progress"
	"github.com/jonathan/intern-grader/internal/repo"
	"github.com/jonathan/intern-grader/internal/resilience"
	"github.com/jonathan/intern-grader/internal/review"
)

var scoreCmd = &cobra.Command{
	Use:   "score",
	Short: "Score one submission end-to-end",
	Long: `Runs the full grading pipeline against a submission repository: clone -> commit history -> static analysis -> AI review -> risk detection -> deployment check -> score card.

Configuration can be loaded from a JSON file using --config. Command-line arguments override config file values.`,
	RunE: runScoreCmd,
}

var (
	scoreConfigPath    string
	scoreRepoURL       string
	scoreDeployURL     string
	scoreRubric        string
	scoreStructure     string
	scoreAPIKey        string
	scoreGitHubToken   string
	scoreReposDir      string
	scoreScreenshotDir string
	scoreOutputPath    string
	scoreModel         string
	scoreMaxPages      int
	scoreDeployTimeout int
	scoreSkipDeploy    bool
	scoreScreenshots   bool
	scoreVerbose       bool
)

func init() {
	// Config file flag (processed first)
	scoreCmd.Flags().StringVar(&scoreConfigPath, "config", "", "Path to config.json file (values can be overridden by other flags)")

	scoreCmd.Flags().StringVarP(&scoreRepoURL, "repo", "r", "", "Submission repository URL")
	scoreCmd.Flags().StringVarP(&scoreDeployURL, "deploy-url", "d", "", "Deployed site URL (optional, absence is scored as no deployment)")
	scoreCmd.Flags().StringVar(&scoreRubric, "rubric", "", "Path to a custom grading rubric text file")
	scoreCmd.Flags().StringVar(&scoreStructure, "structure", "", "Path to a custom expected-structure checklist")
	scoreCmd.Flags().StringVar(&scoreReposDir, "repos-dir", "", "Directory clones are materialized under")
	scoreCmd.Flags().StringVar(&scoreScreenshotDir, "screenshot-dir", "", "Directory deployment screenshots are written to")
	scoreCmd.Flags().StringVarP(&scoreOutputPath, "output", "o", "", "Report JSON destination (default: stdout)")
	scoreCmd.Flags().StringVar(&scoreModel, "model", "", "Gemini model override")
	scoreCmd.Flags().IntVar(&scoreMaxPages, "max-pages", 0, "Maximum deployment pages probed")
	scoreCmd.Flags().IntVar(&scoreDeployTimeout, "deploy-timeout", 0, "Per-request deployment probe timeout in seconds")
	scoreCmd.Flags().BoolVar(&scoreSkipDeploy, "skip-deployment", false, "Skip the deployment stage entirely")
	scoreCmd.Flags().BoolVar(&scoreScreenshots, "screenshots", false, "Capture page screenshots (requires Chrome)")
	scoreCmd.Flags().BoolVarP(&scoreVerbose, "verbose", "v", false, "Print detailed debug information")

	// API key can be passed as a flag, or read from env var GEMINI_API_KEY
	scoreCmd.Flags().StringVar(&scoreAPIKey, "api-key", "", "Gemini API Key (optional, defaults to GEMINI_API_KEY env var)")

	// Token for commit history lookups; unauthenticated calls rate-limit fast
	scoreCmd.Flags().StringVar(&scoreGitHubToken, "github-token", "", "GitHub API token (optional, defaults to GITHUB_TOKEN env var)")

	rootCmd.AddCommand(scoreCmd)
}

func runScoreCmd(cmd *cobra.Command, _ []string) error {
	ctx := context.Background()

	// Step 1: Load config file if provided
	var cfg config.Config
	if scoreConfigPath != "" {
		loadedCfg, err := config.LoadConfig(scoreConfigPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		if err := loadedCfg.Validate(); err != nil {
			return err
		}

		cfg = *loadedCfg
		if scoreVerbose {
			_, _ = fmt.Fprintf(os.Stdout, "Loaded config from: %s\n", scoreConfigPath)
		}
	}

	// Step 2: Apply CLI overrides (command-line args take priority)
	// Only override if the flag was explicitly set
	if cmd.Flags().Changed("repo") {
		cfg.RepoURL = scoreRepoURL
	}
	if cmd.Flags().Changed("deploy-url") {
		cfg.DeployURL = scoreDeployURL
	}
	if cmd.Flags().Changed("rubric") {
		cfg.Rubric = scoreRubric
	}
	if cmd.Flags().Changed("structure") {
		cfg.Structure = scoreStructure
	}
	if cmd.Flags().Changed("api-key") {
		cfg.APIKey = scoreAPIKey
	}
	if cmd.Flags().Changed("github-token") {
		cfg.GitHubToken = scoreGitHubToken
	}
	if cmd.Flags().Changed("repos-dir") {
		cfg.ReposDir = scoreReposDir
	}
	if cmd.Flags().Changed("screenshot-dir") {
		cfg.ScreenshotDir = scoreScreenshotDir
	}
	if cmd.Flags().Changed("output") {
		cfg.OutputPath = scoreOutputPath
	}
	if cmd.Flags().Changed("model") {
		cfg.GeminiModel = scoreModel
	}
	if cmd.Flags().Changed("max-pages") {
		cfg.MaxPages = scoreMaxPages
	}
	if cmd.Flags().Changed("deploy-timeout") {
		cfg.DeployTimeout = scoreDeployTimeout
	}
	if cmd.Flags().Changed("skip-deployment") {
		cfg.SkipDeployment = scoreSkipDeploy
	}
	if cmd.Flags().Changed("screenshots") {
		cfg.Screenshots = scoreScreenshots
	}
	if cmd.Flags().Changed("verbose") {
		cfg.Verbose = scoreVerbose
	}

	// Step 3: Apply defaults for unset values
	defaults := config.Config{
		ReposDir:      ".grader/repos",
		ScreenshotDir: ".grader/screenshots",
		MaxPages:      10,
		DeployTimeout: 15,
	}
	cfg = cfg.MergeWithDefaults(defaults)

	// Step 4: Validate required fields
	if cfg.RepoURL == "" {
		return fmt.Errorf("--repo must be provided (via flag or config)")
	}

	// Step 5: API Key handling. A missing key is not fatal: the run proceeds
	// and the AI review degrades to the neutral fallback verdict.
	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv("GEMINI_API_KEY")
	}
	if cfg.APIKey == "" {
		_, _ = fmt.Fprintln(os.Stderr, "No Gemini API key set; AI review will use the fallback assessment")
	}

	// Step 6: Token handling (optional; unauthenticated lookups still work)
	if cfg.GitHubToken == "" {
		cfg.GitHubToken = os.Getenv("GITHUB_TOKEN")
	}

	level := slog.LevelInfo
	if cfg.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	rubric, err := readOptionalFile(cfg.Rubric)
	if err != nil {
		return err
	}
	structure, err := readOptionalFile(cfg.Structure)
	if err != nil {
		return err
	}

	service, cleanup, err := buildService(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	hub := service.Hub()
	observerID := uuid.NewString()
	events, err := hub.Connect(observerID)
	if err != nil {
		return err
	}
	defer hub.Disconnect(observerID)

	// Subscribe before starting so no stage event is missed.
	runID := uuid.NewString()
	if err := service.Subscribe(observerID, runID); err != nil {
		return err
	}
	if _, err := service.StartRun(ctx, pipeline.Request{
		RunID:          runID,
		RepoURL:        cfg.RepoURL,
		DeployURL:      cfg.DeployURL,
		Rubric:         rubric,
		StructureSpec:  structure,
		SkipDeployment: cfg.SkipDeployment,
	}); err != nil {
		return err
	}

	watchRun(events, cfg.Verbose)

	result, ok := service.Result(runID)
	if !ok {
		return fmt.Errorf("run %s disappeared", runID)
	}
	if result.Status == pipeline.StatusFailed {
		return fmt.Errorf("run failed at %s: %s", result.Stage, result.Error)
	}

	if cfg.Verbose {
		printer := observability.NewPrinter(os.Stdout)
		printer.PrintAnalysis(result.Analysis)
		printer.PrintCommitHistory(result.Commits)
		printer.PrintVerdict(result.Verdict)
		printer.PrintDeployment(result.Deploy)
		printer.PrintScoreCard(result.ScoreCard)
	}

	return writeReport(result, cfg.OutputPath)
}

// watchRun drains progress events to stderr until the run reaches a
// terminal stage and the hub channel is exhausted or goes quiet.
func watchRun(events <-chan progress.Event, verbose bool) {
	for {
		select {
		case event, ok := <-events:
			if !ok {
				return
			}
			if verbose {
				fmt.Fprintf(os.Stderr, "[%3d%%] %-20s %s\n", event.Progress, event.Stage, event.Message)
			}
			if event.Stage == "completed" || event.Stage == "failed" {
				return
			}
		case <-time.After(10 * time.Minute):
			return
		}
	}
}

// buildService assembles the pipeline service and its collaborators. The
// returned cleanup closes the AI provider.
func buildService(ctx context.Context, cfg config.Config, logger *slog.Logger) (*pipeline.Service, func(), error) {
	registry := resilience.NewRegistry(0, 0)

	repos, err := repo.NewGitProvider(cfg.ReposDir)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to prepare repos dir: %w", err)
	}

	var provider review.Provider
	if cfg.APIKey != "" {
		gemini, err := review.NewGeminiProvider(ctx, cfg.APIKey, cfg.GeminiModel)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create AI provider: %w", err)
		}
		provider = gemini
	}

	lister := commits.NewGitHubLister(registry, cfg.GitHubToken, "", logger)
	history := commits.NewAnalyzer(lister, cache.New(cache.NewMemory(), logger), logger)

	proberOpts := deploy.Options{
		ScreenshotDir: cfg.ScreenshotDir,
		MaxPages:      cfg.MaxPages,
		Timeout:       time.Duration(cfg.DeployTimeout) * time.Second,
	}
	if cfg.Screenshots {
		proberOpts.Screenshotter = &deploy.ChromeShooter{}
	}
	prober := deploy.NewProber(registry, proberOpts, logger)

	closeProvider := func() {
		if provider != nil {
			_ = provider.Close()
		}
	}
	service, err := pipeline.NewService(pipeline.Options{
		Repos:    repos,
		History:  history,
		Reviewer: review.NewReviewer(provider, registry, logger),
		Prober:   prober,
		Hub:      progress.NewHub(logger),
		Logger:   logger,
	})
	if err != nil {
		closeProvider()
		return nil, nil, err
	}
	return service, closeProvider, nil
}

func readOptionalFile(path string) (string, error) {
	if path == "" {
		return "", nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}
	return string(data), nil
}

// writeReport marshals the run result to path, or stdout when path is empty.
func writeReport(result pipeline.Result, path string) error {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}

	if path == "" {
		_, err = fmt.Fprintln(os.Stdout, string(data))
		return err
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	fmt.Fprintf(os.Stderr, "Report written to %s\n", path)
	return nil
}

// Package deploy probes a submission's hosted deployment: reachability,
// page discovery, responsive design markers, and screenshots. A missing or
// dead deployment is a scored outcome, never a pipeline failure.
package deploy

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/jonathan/intern-grader/internal/resilience"
)

// DeploymentPoints is awarded when the deployment answers with a usable status.
const DeploymentPoints = 3

// Flags raised by the deployment check.
const (
	FlagNoDeployment  = "NO_DEPLOYMENT"
	FlagNotAccessible = "DEPLOYMENT_NOT_ACCESSIBLE"
)

const maxBodyBytes = 2 << 20

// PageResult is the probe outcome for one discovered page.
type PageResult struct {
	URL        string `json:"url"`
	StatusCode int    `json:"status_code"`
	OK         bool   `json:"ok"`
}

// Screenshot records one captured image on disk.
type Screenshot struct {
	URL      string `json:"url"`
	Path     string `json:"path"`
	Viewport string `json:"viewport"`
}

// Report is the aggregate deployment-check outcome for one run.
type Report struct {
	URL             string       `json:"url"`
	Reachable       bool         `json:"reachable"`
	StatusCode      int          `json:"status_code"`
	Pages           []PageResult `json:"pages"`
	ResponsiveScore int          `json:"responsive_score"`
	Screenshots     []Screenshot `json:"screenshots"`
	Score           int          `json:"score"`
	Flags           []string     `json:"flags"`
}

// Prober runs all deployment probes through the shared deployment-http
// breaker.
type Prober struct {
	client   *http.Client
	caller   *resilience.Caller
	breaker  *resilience.Breaker
	policy   resilience.Policy
	shooter  Screenshotter
	shotDir  string
	maxPages int
	logger   *slog.Logger
}

// Options configures a Prober. Zero values select the defaults.
type Options struct {
	Client        *http.Client
	Screenshotter Screenshotter
	ScreenshotDir string
	MaxPages      int
	Timeout       time.Duration
}

// NewProber wires a prober to the shared breaker registry. A nil
// Screenshotter disables visual capture.
func NewProber(registry *resilience.Registry, opts Options, logger *slog.Logger) *Prober {
	if logger == nil {
		logger = slog.Default()
	}
	client := opts.Client
	if client == nil {
		timeout := opts.Timeout
		if timeout == 0 {
			timeout = 15 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}
	maxPages := opts.MaxPages
	if maxPages == 0 {
		maxPages = 10
	}
	return &Prober{
		client:   client,
		caller:   resilience.NewCaller(logger),
		breaker:  registry.Breaker(resilience.BreakerDeploymentHTTP),
		policy:   resilience.DefaultPolicy(),
		shooter:  opts.Screenshotter,
		shotDir:  opts.ScreenshotDir,
		maxPages: maxPages,
		logger:   logger,
	}
}

// NormalizeURL makes a bare host usable by prefixing https.
func NormalizeURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if !strings.HasPrefix(raw, "http://") && !strings.HasPrefix(raw, "https://") {
		raw = "https://" + raw
	}
	return strings.TrimSuffix(raw, "/")
}

type fetched struct {
	status int
	body   string
}

// fetch performs one GET through the breaker. A non-2xx status is a result,
// not an error; only transport failures count against the breaker.
func (p *Prober) fetch(ctx context.Context, url string) (fetched, error) {
	return resilience.Call(ctx, p.caller, p.breaker, p.policy, func(ctx context.Context) (fetched, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return fetched{}, err
		}
		resp, err := p.client.Do(req)
		if err != nil {
			return fetched{}, fmt.Errorf("request failed: %w", err)
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
		if err != nil {
			return fetched{}, fmt.Errorf("failed to read body: %w", err)
		}
		return fetched{status: resp.StatusCode, body: string(body)}, nil
	})
}

// usableStatus treats anything below client-error territory as a live
// deployment, redirects included.
func usableStatus(code int) bool {
	return code >= 200 && code < 400
}

// Check runs the full deployment probe. It never returns an error: every
// failure mode is folded into the report's score and flags.
func (p *Prober) Check(ctx context.Context, rawURL string) *Report {
	report := &Report{Pages: []PageResult{}, Screenshots: []Screenshot{}, Flags: []string{}}

	url := NormalizeURL(rawURL)
	if url == "" {
		report.Flags = append(report.Flags, FlagNoDeployment)
		return report
	}
	report.URL = url

	home, err := p.fetch(ctx, url)
	if err != nil {
		p.logger.Warn("deployment unreachable", "url", url, "error", err)
		report.Flags = append(report.Flags, FlagNotAccessible)
		return report
	}
	report.StatusCode = home.status
	if !usableStatus(home.status) {
		report.Flags = append(report.Flags, FlagNotAccessible)
		return report
	}

	report.Reachable = true
	report.Score = DeploymentPoints
	report.ResponsiveScore = checkResponsiveness(home.body)
	report.Pages = p.discoverPages(ctx, url, home.body, home.status)

	if p.shooter != nil {
		report.Screenshots = p.captureVisuals(ctx, report.Pages)
	}
	return report
}

// checkResponsiveness scores responsive design markers in homepage HTML,
// one point for a viewport meta tag and one for framework or media-query use.
func checkResponsiveness(html string) int {
	score := 0
	lower := strings.ToLower(html)
	if strings.Contains(lower, `name="viewport"`) || strings.Contains(lower, `name='viewport'`) {
		score++
	}
	if strings.Contains(lower, "bootstrap") || strings.Contains(lower, "@media") {
		score++
	}
	return score
}

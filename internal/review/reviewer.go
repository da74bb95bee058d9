package review

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jonathan/intern-grader/internal/repo"
	"github.com/jonathan/intern-grader/internal/resilience"
)

// Sampling limits keep the prompt inside provider context windows while still
// covering every flow of a typical submission.
const (
	MaxSampleFiles     = 25
	MaxSampleFileChars = 3000
)

// sampledExts are the source kinds worth showing the provider, in priority
// order. Markup comes last; logic files carry the most signal.
var sampledExts = []string{".php", ".js", ".html", ".htm", ".css"}

// CodeSample is the prompt-ready excerpt of a submission.
type CodeSample struct {
	Files int
	Text  string
}

// SampleCode collects up to MaxSampleFiles source files from the snapshot,
// truncating each to MaxSampleFileChars.
func SampleCode(snapshot *repo.Snapshot) CodeSample {
	var b strings.Builder
	files := 0
	for _, ext := range sampledExts {
		for _, path := range snapshot.FilesByExt(ext) {
			if files >= MaxSampleFiles {
				break
			}
			content := snapshot.ReadFile(path)
			if strings.TrimSpace(content) == "" {
				continue
			}
			if len(content) > MaxSampleFileChars {
				content = content[:MaxSampleFileChars] + "\n... (truncated)"
			}
			fmt.Fprintf(&b, "=== %s ===\n%s\n\n", path, content)
			files++
		}
	}
	return CodeSample{Files: files, Text: b.String()}
}

// Reviewer obtains quality assessments through the shared AI breaker.
type Reviewer struct {
	provider Provider
	caller   *resilience.Caller
	breaker  *resilience.Breaker
	policy   resilience.Policy
	logger   *slog.Logger
}

// NewReviewer wires a provider to the shared breaker registry. Every provider
// call goes through the "ai-provider" breaker so repeated failures stop
// traffic for all concurrent runs. A nil provider is accepted; every review
// then degrades to the fallback verdict.
func NewReviewer(provider Provider, registry *resilience.Registry, logger *slog.Logger) *Reviewer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reviewer{
		provider: provider,
		caller:   resilience.NewCaller(logger),
		breaker:  registry.Breaker(resilience.BreakerAIProvider),
		policy:   resilience.DefaultPolicy(),
		logger:   logger,
	}
}

// ReviewQuality asks the provider to assess the sampled code against the
// rubric. It never returns an error: provider failure, an open breaker, or a
// malformed reply all degrade to the fallback verdict with the reason
// recorded.
func (r *Reviewer) ReviewQuality(ctx context.Context, sample CodeSample, rubric string) Verdict {
	if r.provider == nil {
		return FallbackVerdict("provider not configured")
	}
	if sample.Files == 0 {
		return FallbackVerdict("no source files to review")
	}

	prompt := buildQualityPrompt(sample, rubric)
	raw, err := resilience.Call(ctx, r.caller, r.breaker, r.policy, func(ctx context.Context) (string, error) {
		return r.provider.CompleteJSON(ctx, prompt)
	})
	if err != nil {
		reason := "provider error: " + err.Error()
		if resilience.IsCircuitOpen(err) {
			reason = "circuit breaker open"
		}
		r.logger.Warn("AI review degraded to fallback", "reason", reason)
		return FallbackVerdict(reason)
	}

	assessment, err := ParseAssessment(raw)
	if err != nil {
		r.logger.Warn("AI review reply rejected", "error", err)
		return FallbackVerdict("invalid provider reply: " + err.Error())
	}
	return Verdict{Kind: VerdictAI, Assessment: assessment}
}

func buildQualityPrompt(sample CodeSample, rubric string) string {
	var b strings.Builder
	b.WriteString("You are reviewing an internship candidate's web application submission.\n")
	b.WriteString("Assess the code below and reply with a single JSON object with these fields:\n")
	b.WriteString(`{"code_quality": 1-5, "best_practices": 1-5, "readability": 1-5, "security": 1-5, "overall": 0-100, "strengths": [..], "weaknesses": [..], "summary": "..."}` + "\n\n")
	if rubric != "" {
		b.WriteString("Grade against this rubric:\n")
		b.WriteString(rubric)
		b.WriteString("\n\n")
	}
	b.WriteString("Code:\n\n")
	b.WriteString(sample.Text)
	return b.String()
}

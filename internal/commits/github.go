package commits

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/jonathan/intern-grader/internal/repo"
	"github.com/jonathan/intern-grader/internal/resilience"
)

// DefaultAPIBaseURL is the GitHub REST endpoint.
const DefaultAPIBaseURL = "https://api.github.com"

const commitsPerPage = 100

// NotFoundError indicates the repository or its history is not visible to us.
type NotFoundError struct {
	Ref repo.Ref
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("repository %s not found on source host", e.Ref)
}

// GitHubLister fetches commit history from the GitHub REST API through the
// shared source-host breaker.
type GitHubLister struct {
	client  *http.Client
	baseURL string
	token   string
	caller  *resilience.Caller
	breaker *resilience.Breaker
	policy  resilience.Policy
	logger  *slog.Logger
}

// NewGitHubLister creates a lister. An empty token sends unauthenticated
// requests; an empty baseURL selects the public API.
func NewGitHubLister(registry *resilience.Registry, token, baseURL string, logger *slog.Logger) *GitHubLister {
	if logger == nil {
		logger = slog.Default()
	}
	if baseURL == "" {
		baseURL = DefaultAPIBaseURL
	}
	return &GitHubLister{
		client:  &http.Client{Timeout: 15 * time.Second},
		baseURL: baseURL,
		token:   token,
		caller:  resilience.NewCaller(logger),
		breaker: registry.Breaker(resilience.BreakerSourceHostAPI),
		policy:  resilience.DefaultPolicy(),
		logger:  logger,
	}
}

// apiCommit mirrors the fields we need from the GitHub commits endpoint.
type apiCommit struct {
	SHA    string `json:"sha"`
	Commit struct {
		Message string `json:"message"`
		Author  struct {
			Name  string    `json:"name"`
			Email string    `json:"email"`
			Date  time.Time `json:"date"`
		} `json:"author"`
	} `json:"commit"`
}

// List implements Lister. A 404 maps to *NotFoundError and is not retried.
func (l *GitHubLister) List(ctx context.Context, ref repo.Ref) ([]CommitMeta, error) {
	url := fmt.Sprintf("%s/repos/%s/%s/commits?per_page=%d", l.baseURL, ref.Owner, ref.Name, commitsPerPage)

	body, err := resilience.Call(ctx, l.caller, l.breaker, l.policy, func(ctx context.Context) ([]byte, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/vnd.github+json")
		if l.token != "" {
			req.Header.Set("Authorization", "Bearer "+l.token)
		}

		resp, err := l.client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("request failed: %w", err)
		}
		defer resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusNotFound:
			return nil, &NotFoundError{Ref: ref}
		case resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusTooManyRequests:
			return nil, fmt.Errorf("rate limit exceeded (status %d)", resp.StatusCode)
		case resp.StatusCode != http.StatusOK:
			return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
		}
		return io.ReadAll(resp.Body)
	})
	if err != nil {
		return nil, err
	}

	var raw []apiCommit
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("failed to decode commit list: %w", err)
	}

	commits := make([]CommitMeta, 0, len(raw))
	for _, c := range raw {
		commits = append(commits, CommitMeta{
			SHA:        c.SHA,
			Message:    c.Commit.Message,
			Author:     c.Commit.Author.Name,
			Email:      c.Commit.Author.Email,
			AuthoredAt: c.Commit.Author.Date,
		})
	}
	return commits, nil
}

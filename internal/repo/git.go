// git.go implements Provider over the git CLI.
package repo

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

// GitProvider clones repositories into a working directory with the system
// git binary.
type GitProvider struct {
	baseDir string
}

// NewGitProvider creates a provider that clones under baseDir, creating the
// directory if needed.
func NewGitProvider(baseDir string) (*GitProvider, error) {
	if baseDir == "" {
		baseDir = "./repos"
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create repos directory: %w", err)
	}
	return &GitProvider{baseDir: baseDir}, nil
}

// Acquire clones ref into a workspace directory, replacing any previous
// clone for the same workspace.
func (p *GitProvider) Acquire(ctx context.Context, ref Ref, workspaceID string) (string, error) {
	target := filepath.Join(p.baseDir, workspaceID)
	if err := os.RemoveAll(target); err != nil {
		return "", fmt.Errorf("failed to clear workspace: %w", err)
	}

	cmd := exec.CommandContext(ctx, "git", "clone", "--quiet", ref.URL, target)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("failed to clone %s: %s: %w", ref, strings.TrimSpace(stderr.String()), err)
	}
	return target, nil
}

// Cleanup removes the workspace directory.
func (p *GitProvider) Cleanup(workspaceID string) error {
	return os.RemoveAll(filepath.Join(p.baseDir, workspaceID))
}

// Metadata reads commit count, contributors, and the history time span from
// the clone's log.
func (p *GitProvider) Metadata(ctx context.Context, localPath string) (*Metadata, error) {
	out, err := gitOutput(ctx, localPath, "log", "--format=%an%x09%aI")
	if err != nil {
		return nil, fmt.Errorf("failed to read git log: %w", err)
	}

	meta := &Metadata{}
	seen := make(map[string]struct{})
	lines := strings.Split(strings.TrimSpace(out), "\n")
	for _, line := range lines {
		if line == "" {
			continue
		}
		meta.TotalCommits++
		parts := strings.SplitN(line, "\t", 2)
		if _, ok := seen[parts[0]]; !ok {
			seen[parts[0]] = struct{}{}
			meta.Contributors = append(meta.Contributors, parts[0])
		}
		if len(parts) == 2 {
			if ts, err := time.Parse(time.RFC3339, parts[1]); err == nil {
				// git log is newest first.
				if meta.LastCommitAt.IsZero() {
					meta.LastCommitAt = ts
				}
				meta.FirstCommitAt = ts
			}
		}
	}
	meta.IsSingleCommit = meta.TotalCommits == 1
	return meta, nil
}

func gitOutput(ctx context.Context, dir string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir
	out, err := cmd.Output()
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// Package repo defines the repository snapshot boundary: acquiring a local,
// read-only file tree for a remote repository reference and reading it
// safely. Cloning mechanics live behind the Provider interface.
package repo

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

// Ref identifies a remote repository.
type Ref struct {
	Owner string
	Name  string
	URL   string
}

// String returns the owner/name form of the reference.
func (r Ref) String() string {
	return r.Owner + "/" + r.Name
}

// refPatterns cover the URL forms submissions arrive in: https with or
// without a .git suffix, and ssh-style git@ remotes.
var refPatterns = []*regexp.Regexp{
	regexp.MustCompile(`github\.com/([^/]+)/([^/]+?)(?:\.git)?/?$`),
	regexp.MustCompile(`github\.com:([^/]+)/([^/]+?)(?:\.git)?$`),
}

// ParseRef extracts owner and repository name from a repository URL.
func ParseRef(rawURL string) (Ref, error) {
	trimmed := strings.TrimSpace(rawURL)
	for _, pattern := range refPatterns {
		if match := pattern.FindStringSubmatch(trimmed); match != nil {
			return Ref{
				Owner: match[1],
				Name:  strings.TrimSuffix(match[2], ".git"),
				URL:   trimmed,
			}, nil
		}
	}
	return Ref{}, fmt.Errorf("invalid repository URL: %s", rawURL)
}

// Metadata summarizes a snapshot's commit history.
type Metadata struct {
	TotalCommits   int
	Contributors   []string
	FirstCommitAt  time.Time
	LastCommitAt   time.Time
	IsSingleCommit bool
}

// Provider acquires and disposes of local snapshots for remote references.
type Provider interface {
	// Acquire materializes a read-only local file tree for ref and returns
	// its path. workspaceID namespaces concurrent acquisitions.
	Acquire(ctx context.Context, ref Ref, workspaceID string) (string, error)
	// Cleanup removes the workspace created by Acquire.
	Cleanup(workspaceID string) error
	// Metadata derives commit history metadata from an acquired path.
	Metadata(ctx context.Context, localPath string) (*Metadata, error)
}

// Snapshot is a read-only view over an acquired local file tree.
type Snapshot struct {
	root string
}

// NewSnapshot wraps a local directory as a snapshot.
func NewSnapshot(root string) *Snapshot {
	return &Snapshot{root: root}
}

// Root returns the snapshot's base directory.
func (s *Snapshot) Root() string { return s.root }

// HasDir reports whether the relative directory exists.
func (s *Snapshot) HasDir(rel string) bool {
	info, err := os.Stat(filepath.Join(s.root, rel))
	return err == nil && info.IsDir()
}

// HasFile reports whether the relative file exists.
func (s *Snapshot) HasFile(rel string) bool {
	info, err := os.Stat(filepath.Join(s.root, rel))
	return err == nil && info.Mode().IsRegular()
}

// FilesByExt walks the tree and returns paths (relative to the root) of all
// files with any of the given extensions, skipping version-control metadata.
// Extensions are matched case-insensitively and include the leading dot.
func (s *Snapshot) FilesByExt(exts ...string) []string {
	lowered := make([]string, len(exts))
	for i, ext := range exts {
		lowered[i] = strings.ToLower(ext)
	}

	var files []string
	_ = filepath.WalkDir(s.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if d.Name() == ".git" || d.Name() == "node_modules" {
				return filepath.SkipDir
			}
			return nil
		}
		ext := strings.ToLower(filepath.Ext(d.Name()))
		for _, want := range lowered {
			if ext == want {
				if rel, err := filepath.Rel(s.root, path); err == nil {
					files = append(files, rel)
				}
				break
			}
		}
		return nil
	})
	return files
}

// ReadFile returns the content of a file relative to the root, or the empty
// string if it cannot be read. Absence of an expected file is a scored
// signal for the analyzer, not an error.
func (s *Snapshot) ReadFile(rel string) string {
	data, err := os.ReadFile(filepath.Join(s.root, rel))
	if err != nil {
		return ""
	}
	return string(data)
}

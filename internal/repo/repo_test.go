package repo

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRef(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		owner   string
		repo    string
		wantErr bool
	}{
		{name: "https", url: "https://github.com/octocat/hello-world", owner: "octocat", repo: "hello-world"},
		{name: "https trailing slash", url: "https://github.com/octocat/hello-world/", owner: "octocat", repo: "hello-world"},
		{name: "https git suffix", url: "https://github.com/octocat/hello-world.git", owner: "octocat", repo: "hello-world"},
		{name: "ssh", url: "git@github.com:octocat/hello-world.git", owner: "octocat", repo: "hello-world"},
		{name: "not a repo url", url: "https://example.com/foo", wantErr: true},
		{name: "empty", url: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ref, err := ParseRef(tt.url)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.owner, ref.Owner)
			assert.Equal(t, tt.repo, ref.Name)
		})
	}
}

func writeTree(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for rel, content := range files {
		path := filepath.Join(root, rel)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return root
}

func TestSnapshot_FilesByExt(t *testing.T) {
	root := writeTree(t, map[string]string{
		"index.html":        "<html></html>",
		"js/app.js":         "console.log('hi');",
		"php/login.php":     "<?php ?>",
		"css/style.css":     "body {}",
		".git/config":       "ignored",
		"node_modules/x.js": "ignored",
	})
	s := NewSnapshot(root)

	html := s.FilesByExt(".html")
	require.Len(t, html, 1)
	assert.Equal(t, "index.html", html[0])

	code := s.FilesByExt(".js", ".php")
	assert.Len(t, code, 2)
	for _, f := range code {
		assert.NotContains(t, f, "node_modules")
		assert.NotContains(t, f, ".git")
	}
}

func TestSnapshot_HasDirAndHasFile(t *testing.T) {
	root := writeTree(t, map[string]string{
		"js/app.js": "x",
	})
	s := NewSnapshot(root)

	assert.True(t, s.HasDir("js"))
	assert.False(t, s.HasDir("css"))
	assert.True(t, s.HasFile("js/app.js"))
	assert.False(t, s.HasFile("index.html"))
	assert.False(t, s.HasFile("js"), "directory is not a file")
}

func TestSnapshot_ReadFileMissingIsEmpty(t *testing.T) {
	s := NewSnapshot(t.TempDir())
	assert.Equal(t, "", s.ReadFile("nope.html"))
}

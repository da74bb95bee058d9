// Package config provides configuration loading and validation for the CLI.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Config represents the CLI configuration that can be loaded from a JSON file.
// All fields are optional; missing values use defaults or must be provided via CLI flags.
type Config struct {
	// Inputs
	RepoURL   string `json:"repo_url,omitempty"`   // Submission repository URL
	DeployURL string `json:"deploy_url,omitempty"` // Deployed site URL, empty scores as no deployment
	Rubric    string `json:"rubric,omitempty"`     // Path to a custom grading rubric text file
	Structure string `json:"structure,omitempty"`  // Path to a custom expected-structure checklist

	// Credentials
	APIKey      string `json:"api_key,omitempty"`      // Gemini API key
	GitHubToken string `json:"github_token,omitempty"` // Token for commit history API calls

	// Workspace
	ReposDir      string `json:"repos_dir,omitempty"`      // Directory clones are materialized under
	ScreenshotDir string `json:"screenshot_dir,omitempty"` // Directory deployment screenshots are written to
	OutputPath    string `json:"output,omitempty"`         // Report JSON destination, empty prints to stdout

	// Limits
	MaxPages       int `json:"max_pages,omitempty"`       // Maximum deployment pages probed
	DeployTimeout  int `json:"deploy_timeout,omitempty"`  // Per-request deployment probe timeout in seconds
	CacheRetention int `json:"cache_retention,omitempty"` // Commit analysis cache retention in hours

	// Behavior
	GeminiModel    string `json:"gemini_model,omitempty"`    // Override for the review model
	SkipDeployment bool   `json:"skip_deployment,omitempty"` // Skip the deployment stage entirely
	Screenshots    bool   `json:"screenshots,omitempty"`     // Capture page screenshots during deployment checks
	Verbose        bool   `json:"verbose,omitempty"`         // Print detailed debug information
}

// LoadConfig loads configuration from a JSON file.
// Returns an error if the file cannot be read or parsed.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is empty")
	}

	// Resolve path relative to current directory if not absolute
	if !filepath.IsAbs(path) {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
		path = filepath.Join(cwd, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	return &cfg, nil
}

// Validate checks that the configuration has valid values.
// Note: This doesn't check for required fields since those are handled
// by CLI flag validation after merging.
func (c *Config) Validate() error {
	if c.MaxPages < 0 {
		return fmt.Errorf("config error: 'max_pages' must be non-negative")
	}
	if c.DeployTimeout < 0 {
		return fmt.Errorf("config error: 'deploy_timeout' must be non-negative")
	}
	if c.CacheRetention < 0 {
		return fmt.Errorf("config error: 'cache_retention' must be non-negative")
	}

	// Validate file paths exist (if specified)
	if c.Rubric != "" {
		if _, err := os.Stat(c.Rubric); os.IsNotExist(err) {
			return fmt.Errorf("config error: rubric file not found: %s", c.Rubric)
		}
	}
	if c.Structure != "" {
		if _, err := os.Stat(c.Structure); os.IsNotExist(err) {
			return fmt.Errorf("config error: structure file not found: %s", c.Structure)
		}
	}

	return nil
}

// MergeWithDefaults returns a new Config with empty string fields filled from defaults.
// This is used to apply config file values as defaults for CLI flags.
func (c *Config) MergeWithDefaults(defaults Config) Config {
	result := *c

	// String fields: use default if empty
	if result.RepoURL == "" {
		result.RepoURL = defaults.RepoURL
	}
	if result.DeployURL == "" {
		result.DeployURL = defaults.DeployURL
	}
	if result.Rubric == "" {
		result.Rubric = defaults.Rubric
	}
	if result.Structure == "" {
		result.Structure = defaults.Structure
	}
	if result.APIKey == "" {
		result.APIKey = defaults.APIKey
	}
	if result.GitHubToken == "" {
		result.GitHubToken = defaults.GitHubToken
	}
	if result.ReposDir == "" {
		result.ReposDir = defaults.ReposDir
	}
	if result.ScreenshotDir == "" {
		result.ScreenshotDir = defaults.ScreenshotDir
	}
	if result.OutputPath == "" {
		result.OutputPath = defaults.OutputPath
	}
	if result.GeminiModel == "" {
		result.GeminiModel = defaults.GeminiModel
	}

	// Int fields: use default if zero
	if result.MaxPages == 0 {
		result.MaxPages = defaults.MaxPages
	}
	if result.DeployTimeout == 0 {
		result.DeployTimeout = defaults.DeployTimeout
	}
	if result.CacheRetention == 0 {
		result.CacheRetention = defaults.CacheRetention
	}

	// Bool fields: cannot distinguish unset from false, so we don't merge
	// (CLI flags should always win for bools)

	return result
}

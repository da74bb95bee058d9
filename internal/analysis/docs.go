package analysis

import (
	"regexp"
	"strings"
)

var (
	readmeNames = []string{"README.md", "README", "readme.md", "Readme.md", "README.txt"}

	readmeSectionPattern = regexp.MustCompile(`(?im)^#+\s*.*(install|usage|setup|getting started|how to run)`)
	docCommentPattern    = regexp.MustCompile(`/\*\*|^\s*///`)
)

// checkDocumentation combines README quality, comment density, and doc-style
// comments. Points: up to 5 for the README, up to 3 for comment ratio, up to
// 2 for doc comments, capped at 10.
func (a *Analyzer) checkDocumentation(code []sourceFile) DocumentationResult {
	var result DocumentationResult

	var readme string
	for _, name := range readmeNames {
		if a.snapshot.HasFile(name) {
			readme = a.snapshot.ReadFile(name)
			result.HasReadme = true
			break
		}
	}
	if result.HasReadme {
		result.ReadmePoints = 2
		if len(readme) > 300 {
			result.ReadmePoints++
		}
		if readmeSectionPattern.MatchString(readme) {
			result.ReadmePoints++
		}
		if strings.Contains(readme, "```") {
			result.ReadmePoints++
		}
	}

	var commentLines, codeLines, docComments int
	for _, f := range code {
		inBlock := false
		for _, raw := range strings.Split(f.content, "\n") {
			line := strings.TrimSpace(raw)
			if line == "" {
				continue
			}
			if docCommentPattern.MatchString(raw) {
				docComments++
			}
			switch {
			case inBlock:
				commentLines++
				if strings.Contains(line, "*/") {
					inBlock = false
				}
			case strings.HasPrefix(line, "/*"):
				commentLines++
				if !strings.Contains(line, "*/") {
					inBlock = true
				}
			case strings.HasPrefix(line, "//") || strings.HasPrefix(line, "#"):
				commentLines++
			default:
				codeLines++
			}
		}
	}
	if codeLines > 0 {
		result.CommentRatio = float64(commentLines) / float64(codeLines)
	}
	switch {
	case result.CommentRatio >= 0.15:
		result.CommentPoints = 3
	case result.CommentRatio >= 0.05:
		result.CommentPoints = 2
	case result.CommentRatio > 0:
		result.CommentPoints = 1
	}
	switch {
	case docComments >= 5:
		result.DocPoints = 2
	case docComments >= 1:
		result.DocPoints = 1
	}

	result.Score = result.ReadmePoints + result.CommentPoints + result.DocPoints
	if result.Score > 10 {
		result.Score = 10
	}
	return result
}

package analysis

import (
	"regexp"
	"strings"
)

var (
	embeddedStylePattern  = regexp.MustCompile(`(?is)<style[^>]*>.*?</style>|\sstyle\s*=\s*"`)
	embeddedScriptPattern = regexp.MustCompile(`(?is)<script[^>]*>(.*?)</script>`)
	scriptSrcPattern      = regexp.MustCompile(`(?is)<script[^>]*\ssrc\s*=`)
	serverInMarkupPattern = regexp.MustCompile(`(?i)<\?php|<\?=`)
)

// separationCap pairs a violation kind with the ceiling it imposes on the
// category score.
type separationCap struct {
	issue string
	cap   int
}

// Caps are applied in order; the lowest triggered ceiling wins.
var separationCaps = []separationCap{
	{IssueEmbeddedStyle, 7},
	{IssueEmbeddedScript, 7},
	{IssueServerCodeInMarkup, 4},
}

// checkSeparation scores separation of concerns in markup files. Embedded
// style or script caps the score at 7, server code embedded in markup caps
// it at 4, and the worst violation present decides the final score.
func checkSeparation(markup []sourceFile) SeparationResult {
	result := SeparationResult{Score: 10, Issues: []SeparationIssue{}}
	triggered := map[string]bool{}

	for _, f := range markup {
		if n := countEmbeddedStyle(f.content); n > 0 {
			result.Issues = append(result.Issues, SeparationIssue{File: f.path, Issue: IssueEmbeddedStyle, Count: n})
			triggered[IssueEmbeddedStyle] = true
		}
		if n := countEmbeddedScript(f.content); n > 0 {
			result.Issues = append(result.Issues, SeparationIssue{File: f.path, Issue: IssueEmbeddedScript, Count: n})
			triggered[IssueEmbeddedScript] = true
		}
		if n := len(serverInMarkupPattern.FindAllString(f.content, -1)); n > 0 {
			result.Issues = append(result.Issues, SeparationIssue{File: f.path, Issue: IssueServerCodeInMarkup, Count: n})
			triggered[IssueServerCodeInMarkup] = true
		}
	}

	for _, c := range separationCaps {
		if triggered[c.issue] && c.cap < result.Score {
			result.Score = c.cap
		}
	}
	return result
}

func countEmbeddedStyle(content string) int {
	return len(embeddedStylePattern.FindAllString(content, -1))
}

// countEmbeddedScript counts script tags carrying inline code. Tags that only
// reference an external file via src are clean separation and do not count.
func countEmbeddedScript(content string) int {
	n := 0
	for _, m := range embeddedScriptPattern.FindAllStringSubmatch(content, -1) {
		if scriptSrcPattern.MatchString(m[0]) {
			continue
		}
		if strings.TrimSpace(m[1]) != "" {
			n++
		}
	}
	return n
}

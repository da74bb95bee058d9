package analysis

import "regexp"

var (
	asyncCallPattern = regexp.MustCompile(`(?i)\bfetch\s*\(|XMLHttpRequest|\$\.ajax\b|\$\.(?:get|post)\s*\(|\baxios\.`)
	formTagPattern   = regexp.MustCompile(`(?is)<form[^>]*\baction\s*=\s*["'][^"']+["'][^>]*>`)
)

// checkAsyncUsage scores asynchronous request usage against classic form
// submission. The cascade is evaluated top to bottom and the first matching
// rule decides the score.
func checkAsyncUsage(scripts, markup []sourceFile) AsyncUsageResult {
	result := AsyncUsageResult{Issues: []string{}}
	for _, f := range scripts {
		result.AsyncCalls += len(asyncCallPattern.FindAllString(f.content, -1))
	}
	for _, f := range markup {
		result.AsyncCalls += len(asyncCallPattern.FindAllString(f.content, -1))
		result.FormSubmissions += len(formTagPattern.FindAllString(f.content, -1))
	}

	rules := []struct {
		match bool
		score int
		issue string
	}{
		{result.AsyncCalls > 0 && result.FormSubmissions == 0, 10, ""},
		{result.AsyncCalls > 0 && result.FormSubmissions > 0, 4, IssueMixedAsyncForm},
		{result.FormSubmissions > 0, 0, IssueFormSubmissionUsed},
		{true, 5, IssueNoAsyncDetected},
	}
	for _, r := range rules {
		if r.match {
			result.Score = r.score
			if r.issue != "" {
				result.Issues = append(result.Issues, r.issue)
			}
			break
		}
	}
	return result
}

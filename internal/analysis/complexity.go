package analysis

import (
	"regexp"
	"strings"
)

var functionStartPattern = regexp.MustCompile(`(?m)\bfunction\b[^{;]*\{`)

const complexFunctionLines = 50

type functionStats struct {
	lines    int
	maxDepth int
}

// scanFunctions finds brace-delimited function bodies and measures their
// length in lines and their maximum nesting depth relative to the body.
func scanFunctions(content string) []functionStats {
	var stats []functionStats
	for _, loc := range functionStartPattern.FindAllStringIndex(content, -1) {
		open := loc[1] - 1
		depth := 0
		maxDepth := 0
		end := len(content)
		for i := open; i < len(content); i++ {
			switch content[i] {
			case '{':
				depth++
				if depth-1 > maxDepth {
					maxDepth = depth - 1
				}
			case '}':
				depth--
			}
			if depth == 0 {
				end = i
				break
			}
		}
		body := content[open:end]
		stats = append(stats, functionStats{
			lines:    strings.Count(body, "\n") + 1,
			maxDepth: maxDepth,
		})
	}
	return stats
}

// checkComplexity applies length and nesting deductions to a base of 10.
// Length and nesting deductions are not cumulative within their own tier;
// the deeper threshold replaces the shallower one.
func checkComplexity(code []sourceFile) ComplexityResult {
	result := ComplexityResult{Score: 10}
	var totalLines int
	for _, f := range code {
		for _, fn := range scanFunctions(f.content) {
			result.FunctionCount++
			totalLines += fn.lines
			if fn.maxDepth > result.MaxNestingDepth {
				result.MaxNestingDepth = fn.maxDepth
			}
			if fn.lines > complexFunctionLines {
				result.ComplexFunctions++
			}
		}
	}
	if result.FunctionCount == 0 {
		return result
	}
	result.AvgFunctionLength = float64(totalLines) / float64(result.FunctionCount)

	switch {
	case result.AvgFunctionLength > 100:
		result.Score -= 3
	case result.AvgFunctionLength > 50:
		result.Score -= 1
	}
	switch {
	case result.MaxNestingDepth > 5:
		result.Score -= 3
	case result.MaxNestingDepth > 3:
		result.Score -= 1
	}
	if result.ComplexFunctions > 5 {
		result.Score -= 2
	}
	if result.Score < 0 {
		result.Score = 0
	}
	return result
}

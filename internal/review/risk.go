package review

import (
	"regexp"
	"strings"
)

// genericCommentPhrases are phrasings typical of machine-written comments.
// Matching is case-insensitive substring search over a file's comment text.
var genericCommentPhrases = []string{
	"this function",
	"this method",
	"handles the",
	"responsible for",
	"parameters:",
	"returns:",
	"example:",
}

// genericFileThreshold is how many distinct phrases a single file's comments
// must contain before the file counts as machine-styled.
const genericFileThreshold = 3

var commentTextPattern = regexp.MustCompile(`(?m)(?://|#)\s*(.+)$|/\*+\s*([^*]+)`)

// ExtractComments pulls the text of line and block comments out of source
// content.
func ExtractComments(content string) []string {
	var comments []string
	for _, m := range commentTextPattern.FindAllStringSubmatch(content, -1) {
		text := m[1]
		if text == "" {
			text = m[2]
		}
		text = strings.TrimSpace(text)
		if text != "" {
			comments = append(comments, text)
		}
	}
	return comments
}

func isGenericFile(comments []string) bool {
	lower := strings.ToLower(strings.Join(comments, "\n"))
	hits := 0
	for _, phrase := range genericCommentPhrases {
		if strings.Contains(lower, phrase) {
			hits++
		}
	}
	return hits >= genericFileThreshold
}

// RiskInputs are the submission signals the generation-risk heuristic weighs.
// FileComments holds the extracted comments of each sampled file; files
// without comments still take a slot so the fraction stays per file.
type RiskInputs struct {
	TotalCommits   int
	StructureScore int
	FileComments   [][]string
}

// DetectGenerationRisk estimates how likely the submission is machine
// generated, on a 0 to 1 scale. Weights are tuned against labeled past
// submissions; change them only with fresh calibration data.
func DetectGenerationRisk(in RiskInputs) float64 {
	risk := 0.0

	if in.TotalCommits == 1 {
		risk += 0.30
	}
	if in.StructureScore == 10 {
		risk += 0.10
	}
	if in.TotalCommits < 3 {
		risk += 0.15
	}
	if len(in.FileComments) > 0 {
		generic := 0
		for _, comments := range in.FileComments {
			if isGenericFile(comments) {
				generic++
			}
		}
		risk += 0.20 * float64(generic) / float64(len(in.FileComments))
	}

	if risk > 1 {
		risk = 1
	}
	if risk < 0 {
		risk = 0
	}
	return risk
}

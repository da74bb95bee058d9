package analysis

import (
	"hash/fnv"
	"strings"
)

const duplicationWindow = 5

// normalizeLines strips comments and blank lines so that formatting noise
// does not hide copied blocks. Block comments are removed before splitting.
func normalizeLines(content string) []string {
	content = stripBlockComments(content)
	var lines []string
	for _, raw := range strings.Split(content, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" || strings.HasPrefix(line, "//") || strings.HasPrefix(line, "#") {
			continue
		}
		lines = append(lines, line)
	}
	return lines
}

func stripBlockComments(content string) string {
	var b strings.Builder
	for {
		start := strings.Index(content, "/*")
		if start < 0 {
			b.WriteString(content)
			break
		}
		b.WriteString(content[:start])
		rest := content[start+2:]
		end := strings.Index(rest, "*/")
		if end < 0 {
			break
		}
		// Keep line structure so window positions stay aligned.
		b.WriteString(strings.Repeat("\n", strings.Count(content[start:start+2+end+2], "\n")))
		content = rest[end+2:]
	}
	return b.String()
}

func windowHash(lines []string) uint64 {
	h := fnv.New64a()
	for _, line := range lines {
		h.Write([]byte(line))
		h.Write([]byte{'\n'})
	}
	return h.Sum64()
}

// checkDuplication slides a fixed-size window over the normalized lines of
// each file and hashes every window. Windows sharing a hash across the whole
// submission mark their lines as duplicated.
func checkDuplication(code []sourceFile) DuplicationResult {
	type fileWindows struct {
		lineCount int
		hashes    []uint64
	}
	counts := map[uint64]int{}
	var perFile []fileWindows

	for _, f := range code {
		lines := normalizeLines(f.content)
		fw := fileWindows{lineCount: len(lines)}
		for i := 0; i+duplicationWindow <= len(lines); i++ {
			h := windowHash(lines[i : i+duplicationWindow])
			fw.hashes = append(fw.hashes, h)
			counts[h]++
		}
		perFile = append(perFile, fw)
	}

	result := DuplicationResult{Score: 10}
	for _, fw := range perFile {
		result.TotalLines += fw.lineCount
		dup := make([]bool, fw.lineCount)
		for i, h := range fw.hashes {
			if counts[h] < 2 {
				continue
			}
			for j := i; j < i+duplicationWindow; j++ {
				dup[j] = true
			}
		}
		for _, d := range dup {
			if d {
				result.DuplicateLines++
			}
		}
	}

	if result.TotalLines > 0 {
		result.Percentage = 100 * float64(result.DuplicateLines) / float64(result.TotalLines)
	}
	switch {
	case result.Percentage > 30:
		result.Score = 2
	case result.Percentage > 15:
		result.Score = 5
	case result.Percentage > 5:
		result.Score = 8
	}
	return result
}

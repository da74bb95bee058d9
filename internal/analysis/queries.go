package analysis

import "regexp"

var (
	preparedStmtPattern = regexp.MustCompile(`(?i)->\s*prepare\s*\(|mysqli_prepare\s*\(|bind_param\s*\(|bindParam\s*\(|bindValue\s*\(`)
	rawQueryPattern     = regexp.MustCompile(`(?i)(?:->\s*query|mysqli_query|mysql_query)\s*\([^)]*(?:\$\w+|\.\s*\$|"\s*\.)`)
	interpolatedSQL     = regexp.MustCompile(`(?i)"(?:SELECT|INSERT|UPDATE|DELETE)[^"]*\$\w+`)
)

// checkQueries scores database query hygiene in server code. Interpolating
// variables into SQL text is treated as an injection risk regardless of how
// the query is executed.
func checkQueries(server []sourceFile) QueryResult {
	result := QueryResult{Issues: []string{}}
	for _, f := range server {
		result.PreparedStatements += len(preparedStmtPattern.FindAllString(f.content, -1))
		result.RawQueries += len(rawQueryPattern.FindAllString(f.content, -1))
		result.RawQueries += len(interpolatedSQL.FindAllString(f.content, -1))
	}

	rules := []struct {
		match bool
		score int
		issue string
	}{
		{result.PreparedStatements > 0 && result.RawQueries == 0, 10, ""},
		{result.PreparedStatements > 0 && result.RawQueries > 0, 5, IssueMixedSQLPrepared},
		{result.RawQueries > 0, 0, IssueSQLInjectionRisk},
		{true, 5, ""},
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

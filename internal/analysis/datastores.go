package analysis

import (
	"regexp"
	"sort"
)

// Points awarded per detected datastore.
const (
	mysqlPoints        = 8
	mongoPoints        = 8
	redisPoints        = 5
	localStoragePoints = 4
)

var (
	mysqlPattern = regexp.MustCompile(`(?i)mysqli|new\s+PDO\s*\(\s*["']mysql:|mysql_connect|mysqli_connect`)
	mongoPattern = regexp.MustCompile(`(?i)MongoDB\\|MongoClient|mongodb://|new\s+Mongo\b`)
	redisPattern = regexp.MustCompile(`(?i)new\s+Redis\b|Predis\\|redis://|->\s*(?:setex|lpush|hset)\s*\(`)

	localStoragePattern = regexp.MustCompile(`localStorage\s*\.\s*(?:getItem|setItem|removeItem)|sessionStorage\s*\.\s*(?:getItem|setItem)`)

	frameworkLinkPattern  = regexp.MustCompile(`(?i)bootstrap(?:\.min)?\.css|cdn\.jsdelivr\.net/npm/bootstrap|stackpath\.bootstrapcdn\.com|maxcdn\.bootstrapcdn\.com`)
	frameworkClassPattern = regexp.MustCompile(`class\s*=\s*["'][^"']*\b(container|row|col(?:-\w+)+|btn|navbar|card|form-control|table)\b`)
)

func detect(files []sourceFile, pattern *regexp.Regexp, points int) DatastoreResult {
	result := DatastoreResult{Evidence: []string{}}
	for _, f := range files {
		if pattern.MatchString(f.content) {
			result.Detected = true
			result.Evidence = append(result.Evidence, f.path)
		}
	}
	if result.Detected {
		result.Score = points
	}
	return result
}

// checkDatastores detects each expected datastore independently across all
// source files. Scores are per datastore and never offset each other.
func checkDatastores(files []sourceFile) DatastoreReport {
	return DatastoreReport{
		MySQL:   detect(files, mysqlPattern, mysqlPoints),
		MongoDB: detect(files, mongoPattern, mongoPoints),
		Redis:   detect(files, redisPattern, redisPoints),
	}
}

// checkLocalStorage detects browser-side session persistence in scripts.
func checkLocalStorage(scripts []sourceFile) LocalStorageResult {
	result := LocalStorageResult{Evidence: []string{}}
	for _, f := range scripts {
		if localStoragePattern.MatchString(f.content) {
			result.Detected = true
			result.Evidence = append(result.Evidence, f.path)
		}
	}
	if result.Detected {
		result.Score = localStoragePoints
	}
	return result
}

// checkFramework scores responsive-framework adoption. Linking the stylesheet
// and using its class vocabulary are independent signals; either alone earns
// partial credit.
func checkFramework(markup []sourceFile) FrameworkResult {
	result := FrameworkResult{ClassesFound: []string{}, Issues: []string{}}
	linked := false
	classSet := map[string]bool{}
	for _, f := range markup {
		if frameworkLinkPattern.MatchString(f.content) {
			linked = true
		}
		for _, m := range frameworkClassPattern.FindAllStringSubmatch(f.content, -1) {
			classSet[m[1]] = true
		}
	}
	for class := range classSet {
		result.ClassesFound = append(result.ClassesFound, class)
	}
	sort.Strings(result.ClassesFound)
	result.Linked = linked

	rules := []struct {
		match bool
		score int
		issue string
	}{
		{linked && len(classSet) > 0, 10, ""},
		{linked, 7, ""},
		{len(classSet) > 0, 4, ""},
		{true, 0, IssueNoFramework},
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

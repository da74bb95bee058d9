// Package analysis runs the fixed battery of pattern checks over a
// repository snapshot and produces the per-category report the scoring
// engine consumes. Every check is independent and never fails: a missing
// file or folder is a scored signal, not an error.
package analysis

// Issue tags attached to category results. The scoring engine derives flags
// from these.
const (
	IssueFormSubmissionUsed = "FORM_SUBMISSION_USED"
	IssueMixedAsyncForm     = "MIXED_ASYNC_FORM"
	IssueNoAsyncDetected    = "NO_ASYNC_DETECTED"
	IssueSQLInjectionRisk   = "SQL_INJECTION_RISK"
	IssueMixedSQLPrepared   = "MIXED_SQL_PREPARED"
	IssueNoFramework        = "NO_FRAMEWORK"
	IssueEmbeddedStyle      = "embedded_css"
	IssueEmbeddedScript     = "embedded_js"
	IssueServerCodeInMarkup = "server_code_in_markup"
)

// Report is the aggregate static-analysis output for one snapshot.
// Immutable once produced within a run.
type Report struct {
	Structure     StructureResult     `json:"structure"`
	Separation    SeparationResult    `json:"separation"`
	AsyncUsage    AsyncUsageResult    `json:"async_usage"`
	Framework     FrameworkResult     `json:"framework"`
	Queries       QueryResult         `json:"queries"`
	Datastores    DatastoreReport     `json:"datastores"`
	LocalStorage  LocalStorageResult  `json:"local_storage"`
	Complexity    ComplexityResult    `json:"complexity"`
	Duplication   DuplicationResult   `json:"duplication"`
	Documentation DocumentationResult `json:"documentation"`
}

// StructureResult scores the snapshot against the expected checklist.
type StructureResult struct {
	Score           int      `json:"score"`
	ExistingFolders []string `json:"existing_folders"`
	MissingFolders  []string `json:"missing_folders"`
	ExistingFiles   []string `json:"existing_files"`
	MissingFiles    []string `json:"missing_files"`
}

// SeparationIssue records one separation-of-concerns violation in a markup file.
type SeparationIssue struct {
	File  string `json:"file"`
	Issue string `json:"issue"`
	Count int    `json:"count"`
}

// SeparationResult scores how cleanly markup, style, script, and server code
// are separated.
type SeparationResult struct {
	Score  int               `json:"score"`
	Issues []SeparationIssue `json:"issues"`
}

// AsyncUsageResult scores asynchronous-call usage versus classic form submission.
type AsyncUsageResult struct {
	Score           int      `json:"score"`
	AsyncCalls      int      `json:"async_calls"`
	FormSubmissions int      `json:"form_submissions"`
	Issues          []string `json:"issues"`
}

// FrameworkResult records responsive-framework adoption in markup.
type FrameworkResult struct {
	Score        int      `json:"score"`
	Linked       bool     `json:"linked"`
	ClassesFound []string `json:"classes_found"`
	Issues       []string `json:"issues"`
}

// QueryResult scores parameterized-query usage in server code.
type QueryResult struct {
	Score              int      `json:"score"`
	PreparedStatements int      `json:"prepared_statements"`
	RawQueries         int      `json:"raw_queries"`
	Issues             []string `json:"issues"`
}

// DatastoreResult records detection of one datastore.
type DatastoreResult struct {
	Detected bool     `json:"detected"`
	Score    int      `json:"score"`
	Evidence []string `json:"evidence"`
}

// DatastoreReport groups per-datastore detection results.
type DatastoreReport struct {
	MySQL   DatastoreResult `json:"mysql"`
	MongoDB DatastoreResult `json:"mongodb"`
	Redis   DatastoreResult `json:"redis"`
}

// LocalStorageResult records browser local-storage session usage.
type LocalStorageResult struct {
	Detected bool     `json:"detected"`
	Score    int      `json:"score"`
	Evidence []string `json:"evidence"`
}

// ComplexityResult summarizes function-level complexity heuristics.
type ComplexityResult struct {
	Score             int     `json:"score"`
	FunctionCount     int     `json:"function_count"`
	AvgFunctionLength float64 `json:"avg_function_length"`
	MaxNestingDepth   int     `json:"max_nesting_depth"`
	ComplexFunctions  int     `json:"complex_functions"`
}

// DuplicationResult summarizes near-duplicate block detection.
type DuplicationResult struct {
	Score          int     `json:"score"`
	TotalLines     int     `json:"total_lines"`
	DuplicateLines int     `json:"duplicate_lines"`
	Percentage     float64 `json:"percentage"`
}

// DocumentationResult summarizes README and comment quality heuristics.
type DocumentationResult struct {
	Score         int     `json:"score"`
	ReadmePoints  int     `json:"readme_points"`
	CommentPoints int     `json:"comment_points"`
	DocPoints     int     `json:"doc_points"`
	CommentRatio  float64 `json:"comment_ratio"`
	HasReadme     bool    `json:"has_readme"`
}

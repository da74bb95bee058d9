package analysis

import (
	"log/slog"

	"github.com/jonathan/intern-grader/internal/repo"
)

// Analyzer runs every category check over one repository snapshot.
type Analyzer struct {
	snapshot  *repo.Snapshot
	checklist Checklist
	logger    *slog.Logger
}

// New returns an analyzer over snapshot scored against checklist.
func New(snapshot *repo.Snapshot, checklist Checklist, logger *slog.Logger) *Analyzer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Analyzer{snapshot: snapshot, checklist: checklist, logger: logger}
}

// sourceFile pairs a relative path with its content. Content is loaded once
// and shared by every check.
type sourceFile struct {
	path    string
	content string
}

func (a *Analyzer) load(exts ...string) []sourceFile {
	var files []sourceFile
	for _, p := range a.snapshot.FilesByExt(exts...) {
		files = append(files, sourceFile{path: p, content: a.snapshot.ReadFile(p)})
	}
	return files
}

// Analyze runs all checks and assembles the report. Checks never fail; absent
// evidence lowers the corresponding score instead.
func (a *Analyzer) Analyze() *Report {
	markup := a.load(".html", ".htm")
	scripts := a.load(".js")
	server := a.load(".php")
	code := make([]sourceFile, 0, len(scripts)+len(server))
	code = append(code, scripts...)
	code = append(code, server...)
	all := append(append([]sourceFile{}, markup...), code...)

	report := &Report{
		Structure:     a.checkStructure(),
		Separation:    checkSeparation(markup),
		AsyncUsage:    checkAsyncUsage(scripts, markup),
		Framework:     checkFramework(markup),
		Queries:       checkQueries(server),
		Datastores:    checkDatastores(all),
		LocalStorage:  checkLocalStorage(scripts),
		Complexity:    checkComplexity(code),
		Duplication:   checkDuplication(code),
		Documentation: a.checkDocumentation(code),
	}

	a.logger.Info("static analysis complete",
		"structure", report.Structure.Score,
		"separation", report.Separation.Score,
		"async", report.AsyncUsage.Score,
		"framework", report.Framework.Score,
		"queries", report.Queries.Score,
		"files", len(all))
	return report
}

package analysis

import "math"

// checkStructure scores structural completeness as the fraction of checklist
// entries present, rounded to the nearest point on a 10 scale.
func (a *Analyzer) checkStructure() StructureResult {
	result := StructureResult{
		ExistingFolders: []string{},
		MissingFolders:  []string{},
		ExistingFiles:   []string{},
		MissingFiles:    []string{},
	}
	for _, folder := range a.checklist.Folders {
		if a.snapshot.HasDir(folder) {
			result.ExistingFolders = append(result.ExistingFolders, folder)
		} else {
			result.MissingFolders = append(result.MissingFolders, folder)
		}
	}
	for _, file := range a.checklist.Files {
		if a.snapshot.HasFile(file) {
			result.ExistingFiles = append(result.ExistingFiles, file)
		} else {
			result.MissingFiles = append(result.MissingFiles, file)
		}
	}

	expected := len(a.checklist.Folders) + len(a.checklist.Files)
	if expected == 0 {
		result.Score = 10
		return result
	}
	present := len(result.ExistingFolders) + len(result.ExistingFiles)
	result.Score = int(math.Round(10 * float64(present) / float64(expected)))
	return result
}

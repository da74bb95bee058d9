package analysis

import "strings"

// Checklist is the set of folders and files a submission is expected to
// contain. Paths are relative to the repository root and use forward slashes.
type Checklist struct {
	Folders []string
	Files   []string
}

// DefaultChecklist returns the expected layout for the standard assignment:
// static assets split by kind, one page per flow, and matching script and
// server files per flow.
func DefaultChecklist() Checklist {
	return Checklist{
		Folders: []string{"assets", "css", "js", "php"},
		Files: []string{
			"index.html",
			"login.html",
			"profile.html",
			"register.html",
			"js/login.js",
			"js/profile.js",
			"js/register.js",
			"php/login.php",
			"php/profile.php",
			"php/register.php",
		},
	}
}

// ParseChecklist builds a checklist from free-form assignment text. Each
// non-empty line is one entry; entries ending in "/" are folders, the rest
// are files. Lines starting with "#" are ignored. An empty result falls back
// to the default checklist.
func ParseChecklist(text string) Checklist {
	var cl Checklist
	for _, line := range strings.Split(text, "\n") {
		entry := strings.TrimSpace(line)
		entry = strings.TrimPrefix(entry, "- ")
		if entry == "" || strings.HasPrefix(entry, "#") {
			continue
		}
		entry = strings.ReplaceAll(entry, "\\", "/")
		if strings.HasSuffix(entry, "/") {
			cl.Folders = append(cl.Folders, strings.TrimSuffix(entry, "/"))
		} else {
			cl.Files = append(cl.Files, entry)
		}
	}
	if len(cl.Folders) == 0 && len(cl.Files) == 0 {
		return DefaultChecklist()
	}
	return cl
}

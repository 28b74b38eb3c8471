package ingestion

import (
	"path/filepath"
	"strings"
)

// Canonical corpus categories. Retrieval annotates answers with these, so
// the set is deliberately small and stable.
const (
	CategoryAbout      = "about"
	CategorySkills     = "skills"
	CategoryProjects   = "projects"
	CategoryExperience = "experience"
	CategoryEducation  = "education"
	CategoryContact    = "contact"
	CategoryGeneral    = "general"
)

// categoryHints maps filename fragments to canonical categories, checked
// in order so the result is deterministic when a name matches more than
// one hint. Explicit Entry.Category always takes precedence — this is the
// best-effort fallback for plain markdown corpus files.
var categoryHints = []struct {
	hint     string
	category string
}{
	{"experience", CategoryExperience},
	{"resume", CategoryExperience},
	{"career", CategoryExperience},
	{"employment", CategoryExperience},
	{"work", CategoryExperience},
	{"project", CategoryProjects},
	{"portfolio", CategoryProjects},
	{"skill", CategorySkills},
	{"tech", CategorySkills},
	{"stack", CategorySkills},
	{"education", CategoryEducation},
	{"degree", CategoryEducation},
	{"university", CategoryEducation},
	{"certificate", CategoryEducation},
	{"contact", CategoryContact},
	{"social", CategoryContact},
	{"about", CategoryAbout},
	{"bio", CategoryAbout},
	{"intro", CategoryAbout},
}

// InferCategory returns the best-effort canonical category for a corpus
// source name (e.g. "projects.md" → "projects"). Unrecognized names map to
// the general category.
func InferCategory(source string) string {
	stem := strings.ToLower(strings.TrimSuffix(filepath.Base(source), filepath.Ext(source)))
	for _, h := range categoryHints {
		if strings.Contains(stem, h.hint) {
			return h.category
		}
	}
	return CategoryGeneral
}

package domain

import (
	"path/filepath"
	"strings"
)

// VisitContext carries everything an evaluator needs about one directory visit.
type VisitContext struct {
	// Path is the directory as displayed, relative to Root when enumerated.
	Path string
	// Dir is the absolute directory used for execution.
	Dir string
	// Root is the absolute walk root.
	Root string
	// Cwd is the directory onsub was started from, before --chdir.
	Cwd     string
	Section string
	Verbose int
	Debug   bool
	NoExec  bool
}

// NewVisitContext binds a candidate path to the walk root.
func NewVisitContext(root, path, section string) VisitContext {
	dir := path
	if !filepath.IsAbs(dir) {
		dir = filepath.Join(root, path)
	}
	return VisitContext{
		Path:    path,
		Dir:     filepath.Clean(dir),
		Root:    root,
		Section: section,
	}
}

// Candidate is one enumerated directory, optionally pre-assigned to a section by a manifest.
type Candidate struct {
	Path    string
	Section string
	Args    []string
}

// Assigned reports whether the candidate bypasses priority resolution.
func (c Candidate) Assigned() bool {
	return c.Section != ""
}

// SeparatorCount returns the number of path separators in p, the measure used for depth limits.
func SeparatorCount(p string) int {
	return strings.Count(p, string(filepath.Separator))
}

// Package fs provides file system adapters for directory traversal and scoped working directories.
package fs

import (
	"iter"
	"os"
	"path/filepath"

	"github.com/sawolford/onsub/internal/core/domain"
	"go.trai.ch/zerr"
)

// DefaultIgnores are the directory names pruned unless overridden.
var DefaultIgnores = []string{".git", ".hg", ".svn"}

// Walker enumerates directories, following symbolic links.
type Walker struct{}

// NewWalker creates a new Walker.
func NewWalker() *Walker {
	return &Walker{}
}

// Walk yields root as "." followed by every directory below it in lexical
// pre-order, with paths relative to root ("./a/b"). Directories whose base
// name matches an ignore pattern are not entered. When depth >= 0, paths
// whose separator count is at least depth are excluded. Symbolic links to
// directories are followed; a directory reached twice is visited once.
func (w *Walker) Walk(root string, ignores []string, depth int) iter.Seq2[domain.Candidate, error] {
	return func(yield func(domain.Candidate, error) bool) {
		info, err := os.Stat(root)
		if err == nil && !info.IsDir() {
			err = os.ErrInvalid
		}
		if err != nil {
			err = zerr.With(zerr.Wrap(domain.ErrWalkFailed, "cannot read walk root"), "root", root)
			yield(domain.Candidate{}, err)
			return
		}

		visited := make(map[string]bool)
		w.walk(root, ".", ignores, depth, visited, yield)
	}
}

func (w *Walker) walk(
	dir, rel string,
	ignores []string,
	depth int,
	visited map[string]bool,
	yield func(domain.Candidate, error) bool,
) bool {
	if depth >= 0 && domain.SeparatorCount(rel) >= depth {
		return true
	}

	resolved, err := filepath.EvalSymlinks(dir)
	if err != nil || visited[resolved] {
		return true
	}
	visited[resolved] = true

	if !yield(domain.Candidate{Path: rel}, nil) {
		return false
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return true
	}

	for _, entry := range entries {
		name := entry.Name()
		if isIgnored(name, ignores) {
			continue
		}

		full := filepath.Join(dir, name)
		if !isDir(entry, full) {
			continue
		}

		if !w.walk(full, rel+string(filepath.Separator)+name, ignores, depth, visited, yield) {
			return false
		}
	}

	return true
}

func isDir(entry os.DirEntry, full string) bool {
	if entry.IsDir() {
		return true
	}
	if entry.Type()&os.ModeSymlink == 0 {
		return false
	}
	info, err := os.Stat(full)
	return err == nil && info.IsDir()
}

func isIgnored(name string, ignores []string) bool {
	for _, pattern := range ignores {
		if matched, _ := filepath.Match(pattern, name); matched {
			return true
		}
	}
	return false
}

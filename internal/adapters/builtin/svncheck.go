package builtin

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/sawolford/onsub/internal/core/domain"
	"github.com/sawolford/onsub/internal/core/ports"
)

// Drift classes reported by svncheck as exit codes.
const (
	SvnClean = iota
	SvnLocalChanges
	SvnBehind
	SvnDirty
)

// SvnCheck classifies how a Subversion working copy differs from the repository.
type SvnCheck struct {
	executor ports.Executor
}

// NewSvnCheck creates an SvnCheck that queries svn through executor.
func NewSvnCheck(executor ports.Executor) *SvnCheck {
	return &SvnCheck{executor: executor}
}

// Check implements domain.Function. With --local the repository is not contacted.
func (s *SvnCheck) Check(ctx context.Context, vc domain.VisitContext, args []string) (int, string) {
	if vc.NoExec {
		return 0, "[noexec] svncheck"
	}
	if _, err := os.Stat(filepath.Join(vc.Dir, ".svn")); err != nil {
		return 0, "[not an svn clone]"
	}

	nst := s.modified(ctx, vc.Dir)
	prefix := checkPrefix(vc.Path, fmt.Sprintf("wc=%d", nst))

	if slices.Contains(args, "--local") {
		if nst > 0 {
			return SvnLocalChanges, prefix + " {put-upload}"
		}
		return SvnClean, "[no local mods]"
	}

	nin := s.outOfDate(ctx, vc.Dir)
	prefix = checkPrefix(vc.Path, fmt.Sprintf("wc=%d,in=%d", nst, nin))

	switch {
	case nin > 0:
		return SvnBehind, prefix + " {download-get}"
	case nst > 0:
		return SvnDirty, prefix + " {put-upload}"
	default:
		return SvnClean, "[no local mods, no repository changes]"
	}
}

// modified counts status lines with an item status in the first column.
func (s *SvnCheck) modified(ctx context.Context, dir string) int {
	n := 0
	for _, line := range queryLines(ctx, s.executor, dir, "svn st -q") {
		if line != "" && line[0] != ' ' {
			n++
		}
	}
	return n
}

// outOfDate counts items svn status -u marks with "*" in column nine. The
// last line is the revision summary.
func (s *SvnCheck) outOfDate(ctx context.Context, dir string) int {
	lines := queryLines(ctx, s.executor, dir, "svn status -u")
	if len(lines) == 0 {
		return 0
	}
	n := 0
	for _, line := range lines[:len(lines)-1] {
		if len(line) > 9 && line[8] == '*' && line[9] == ' ' {
			n++
		}
	}
	return n
}

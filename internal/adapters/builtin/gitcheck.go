package builtin

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sawolford/onsub/internal/core/domain"
	"github.com/sawolford/onsub/internal/core/ports"
)

// Drift classes reported by gitcheck as exit codes.
const (
	GitClean = iota
	GitLocalChanges
	GitStashed
	GitBehind
	GitAheadDirty
	GitAhead
	GitDivergedDirty
	GitDiverged
	GitDirty
	GitStashOnly
)

// DefaultUpstream is the revision gitcheck compares against.
const DefaultUpstream = "@{u}"

// GitCheck classifies how a git checkout differs from its upstream and
// suggests the onsub invocation that reconciles it.
type GitCheck struct {
	executor ports.Executor
}

// NewGitCheck creates a GitCheck that queries git through executor.
func NewGitCheck(executor ports.Executor) *GitCheck {
	return &GitCheck{executor: executor}
}

// Check implements domain.Function. Arguments: --local skips the fetch and
// only inspects the working copy; --upstream REV overrides DefaultUpstream.
func (g *GitCheck) Check(ctx context.Context, vc domain.VisitContext, args []string) (int, string) {
	if vc.NoExec {
		return 0, "[noexec] gitcheck"
	}
	if _, err := os.Stat(filepath.Join(vc.Dir, ".git")); err != nil {
		return 0, "[not a git clone]"
	}

	local := false
	upstream := DefaultUpstream
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--local":
			local = true
		case "--upstream":
			if i+1 < len(args) {
				upstream = args[i+1]
				i++
			}
		}
	}

	nst := g.count(ctx, vc.Dir, "git status --short")
	nsh := g.count(ctx, vc.Dir, "git stash list --pretty=oneline")
	prefix := checkPrefix(vc.Path, fmt.Sprintf("wc=%d,sh=%d", nst, nsh))

	if local {
		switch {
		case nst > 0:
			return GitLocalChanges, prefix + " {put}"
		case nsh > 0:
			return GitStashed, prefix + " {unstow}"
		default:
			return GitClean, "[no local mods]"
		}
	}

	g.count(ctx, vc.Dir, "git fetch")
	nin := g.count(ctx, vc.Dir, "git log --pretty=oneline .."+upstream)
	nout := g.count(ctx, vc.Dir, "git log --pretty=oneline "+upstream+"..")
	prefix = checkPrefix(vc.Path, fmt.Sprintf("wc=%d,sh=%d,out=%d,in=%d", nst, nsh, nout, nin))

	switch {
	case nin > 0 && nout == 0:
		return GitBehind, prefix + " {get}"
	case nout > 0 && nin == 0 && nst > 0:
		return GitAheadDirty, prefix + " {put-upload}"
	case nout > 0 && nin == 0:
		return GitAhead, prefix + " {upload}"
	case nout > 0 && nin > 0 && nst > 0:
		return GitDivergedDirty, prefix + " {download-get}"
	case nout > 0 && nin > 0:
		return GitDiverged, prefix + " {download}"
	case nst > 0:
		return GitDirty, prefix + " {put}"
	case nsh > 0:
		return GitStashOnly, prefix + " {unstow}"
	default:
		return GitClean, "[no local mods, no repository changes]"
	}
}

// count returns the number of output lines of a successful command and zero otherwise.
func (g *GitCheck) count(ctx context.Context, dir, command string) int {
	return len(queryLines(ctx, g.executor, dir, command))
}

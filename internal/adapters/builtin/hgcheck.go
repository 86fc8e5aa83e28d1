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

// Drift classes reported by hgcheck as exit codes.
const (
	HgClean = iota
	HgLocalChanges
	HgShelved
	HgBehind
	HgAheadDirty
	HgAhead
	HgDivergedDirty
	HgDiverged
	HgDirty
	HgShelveOnly
)

// HgCheck classifies how a Mercurial clone differs from its default path.
type HgCheck struct {
	executor ports.Executor
}

// NewHgCheck creates an HgCheck that queries hg through executor.
func NewHgCheck(executor ports.Executor) *HgCheck {
	return &HgCheck{executor: executor}
}

// Check implements domain.Function. With --local only the working copy
// and the shelves are inspected.
func (h *HgCheck) Check(ctx context.Context, vc domain.VisitContext, args []string) (int, string) {
	if vc.NoExec {
		return 0, "[noexec] hgcheck"
	}
	if _, err := os.Stat(filepath.Join(vc.Dir, ".hg")); err != nil {
		return 0, "[not an hg clone]"
	}

	nst := h.count(ctx, vc.Dir, "hg status -q")
	nsh := h.count(ctx, vc.Dir, "hg shelve --list")
	prefix := checkPrefix(vc.Path, fmt.Sprintf("wc=%d,sh=%d", nst, nsh))

	if slices.Contains(args, "--local") {
		switch {
		case nst > 0:
			return HgLocalChanges, prefix + " {put}"
		case nsh > 0:
			return HgShelved, prefix + " {unstow}"
		default:
			return HgClean, "[no local mods]"
		}
	}

	nin := h.count(ctx, vc.Dir, "hg in -q")
	nout := h.count(ctx, vc.Dir, "hg out -q")
	prefix = checkPrefix(vc.Path, fmt.Sprintf("wc=%d,sh=%d,out=%d,in=%d", nst, nsh, nout, nin))

	switch {
	case nin > 0 && nout == 0:
		return HgBehind, prefix + " {download-get}"
	case nout > 0 && nin == 0 && nst > 0:
		return HgAheadDirty, prefix + " {put-upload}"
	case nout > 0 && nin == 0:
		return HgAhead, prefix + " {upload}"
	case nout > 0 && nin > 0 && nst > 0:
		return HgDivergedDirty, prefix + " {download-get}"
	case nout > 0 && nin > 0:
		return HgDiverged, prefix + " {download-get}"
	case nst > 0:
		return HgDirty, prefix + " {put}"
	case nsh > 0:
		return HgShelveOnly, prefix + " {unstow}"
	default:
		return HgClean, "[no local mods, no repository changes]"
	}
}

// count returns the number of output lines. hg in and hg out exit 1 when
// there is nothing to transfer, which counts as zero.
func (h *HgCheck) count(ctx context.Context, dir, command string) int {
	return len(queryLines(ctx, h.executor, dir, command))
}

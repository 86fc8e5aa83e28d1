package builtin

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/sawolford/onsub/internal/core/domain"
)

// MakeDirs creates the visited directory and its parents.
func MakeDirs(_ context.Context, vc domain.VisitContext, _ []string) (int, string) {
	if vc.NoExec {
		return 0, "[noexec] makedirs " + vc.Path
	}
	if err := os.MkdirAll(vc.Dir, domain.DirPerm); err != nil {
		return 1, err.Error()
	}
	return 0, "makedirs " + vc.Path
}

// FileCheck reports which of the named files are missing from the visited
// directory. The exit code is the number of missing files.
func FileCheck(_ context.Context, vc domain.VisitContext, args []string) (int, string) {
	if len(args) == 0 {
		return 1, "filecheck: no file names given"
	}
	if vc.NoExec {
		return 0, "[noexec] filecheck " + strings.Join(args, " ")
	}

	var missing []string
	for _, name := range args {
		if _, err := os.Stat(filepath.Join(vc.Dir, name)); err != nil {
			missing = append(missing, name)
		}
	}
	if len(missing) == 0 {
		return 0, "[all present]"
	}
	return len(missing), "missing: " + strings.Join(missing, " ")
}

package builtin

import (
	"bytes"
	"context"
	"os"
	"strings"

	"github.com/sawolford/onsub/internal/core/ports"
)

// queryLines runs a version control query in dir and returns its standard
// output lines. Standard error is discarded so warnings are never counted.
// A query that fails or cannot start yields no lines.
func queryLines(ctx context.Context, executor ports.Executor, dir, command string) []string {
	var out bytes.Buffer
	code, err := executor.Run(ctx, dir, command+" 2>"+os.DevNull, &out)
	if err != nil || code != 0 {
		return nil
	}
	text := strings.TrimRight(out.String(), "\n")
	if text == "" {
		return nil
	}
	return strings.Split(text, "\n")
}

// checkPrefix is the onsub invocation a check suggests for one clone.
func checkPrefix(path, comment string) string {
	return `onsub --chdir ` + path + ` --depth 1 --comment "` + comment + `"`
}

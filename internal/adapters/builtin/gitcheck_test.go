package builtin_test

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sawolford/onsub/internal/adapters/builtin"
	"github.com/sawolford/onsub/internal/core/domain"
	"github.com/sawolford/onsub/internal/core/ports/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

// gitState maps git commands to the number of output lines they produce.
type gitState struct {
	status, stash, in, out int
}

func (s gitState) lines(command string) int {
	switch {
	case strings.HasPrefix(command, "git status"):
		return s.status
	case strings.HasPrefix(command, "git stash"):
		return s.stash
	case strings.HasPrefix(command, "git log --pretty=oneline .."):
		return s.in
	case strings.HasPrefix(command, "git log"):
		return s.out
	default:
		return 0
	}
}

func gitClone(t *testing.T) domain.VisitContext {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "repo", ".git"), 0o750))
	return domain.NewVisitContext(root, "./repo", "git")
}

// devNull is the redirection queries use to drop standard error.
var devNull = " 2>" + os.DevNull

// fakeShell answers each query with output(command) and records the query
// without its redirection. Like a shell merging both streams, it adds a
// warning line unless standard error is redirected.
func fakeShell(t *testing.T, commands *[]string, output func(command string) string) *mocks.MockExecutor {
	t.Helper()
	ctrl := gomock.NewController(t)
	executor := mocks.NewMockExecutor(ctrl)
	executor.EXPECT().Run(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, _, command string, out io.Writer) (int, error) {
			query, quiet := strings.CutSuffix(command, devNull)
			*commands = append(*commands, query)
			if !quiet {
				_, _ = io.WriteString(out, "warning: written to standard error\n")
			}
			_, _ = io.WriteString(out, output(query))
			return 0, nil
		}).AnyTimes()
	return executor
}

func fakeGit(t *testing.T, state gitState, commands *[]string) *mocks.MockExecutor {
	t.Helper()
	return fakeShell(t, commands, func(command string) string {
		return strings.Repeat("line\n", state.lines(command))
	})
}

func TestGitCheck_Classification(t *testing.T) {
	tests := []struct {
		name     string
		state    gitState
		wantCode int
		wantOut  string
	}{
		{name: "clean", state: gitState{}, wantCode: builtin.GitClean, wantOut: "[no local mods, no repository changes]"},
		{name: "behind", state: gitState{in: 2}, wantCode: builtin.GitBehind, wantOut: "{get}"},
		{name: "ahead dirty", state: gitState{out: 1, status: 3}, wantCode: builtin.GitAheadDirty, wantOut: "{put-upload}"},
		{name: "ahead", state: gitState{out: 1}, wantCode: builtin.GitAhead, wantOut: "{upload}"},
		{name: "diverged dirty", state: gitState{out: 1, in: 1, status: 1}, wantCode: builtin.GitDivergedDirty, wantOut: "{download-get}"},
		{name: "diverged", state: gitState{out: 1, in: 1}, wantCode: builtin.GitDiverged, wantOut: "{download}"},
		{name: "dirty", state: gitState{status: 1}, wantCode: builtin.GitDirty, wantOut: "{put}"},
		{name: "stash only", state: gitState{stash: 1}, wantCode: builtin.GitStashOnly, wantOut: "{unstow}"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var commands []string
			check := builtin.NewGitCheck(fakeGit(t, tt.state, &commands))

			code, out := check.Check(context.Background(), gitClone(t), nil)
			assert.Equal(t, tt.wantCode, code)
			assert.Contains(t, out, tt.wantOut)
			assert.Contains(t, commands, "git fetch")
		})
	}
}

func TestGitCheck_SuggestionPrefix(t *testing.T) {
	var commands []string
	check := builtin.NewGitCheck(fakeGit(t, gitState{status: 2, stash: 1, in: 4}, &commands))

	_, out := check.Check(context.Background(), gitClone(t), nil)
	assert.Equal(t, `onsub --chdir ./repo --depth 1 --comment "wc=2,sh=1,out=0,in=4" {get}`, out)
}

func TestGitCheck_Local(t *testing.T) {
	tests := []struct {
		name     string
		state    gitState
		wantCode int
		wantOut  string
	}{
		{name: "changes", state: gitState{status: 1}, wantCode: builtin.GitLocalChanges,
			wantOut: `onsub --chdir ./repo --depth 1 --comment "wc=1,sh=0" {put}`},
		{name: "stashed", state: gitState{stash: 2}, wantCode: builtin.GitStashed,
			wantOut: `onsub --chdir ./repo --depth 1 --comment "wc=0,sh=2" {unstow}`},
		{name: "clean", state: gitState{}, wantCode: builtin.GitClean, wantOut: "[no local mods]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var commands []string
			check := builtin.NewGitCheck(fakeGit(t, tt.state, &commands))

			code, out := check.Check(context.Background(), gitClone(t), []string{"--local"})
			assert.Equal(t, tt.wantCode, code)
			assert.Equal(t, tt.wantOut, out)
			assert.NotContains(t, commands, "git fetch")
		})
	}
}

func TestGitCheck_Upstream(t *testing.T) {
	var commands []string
	check := builtin.NewGitCheck(fakeGit(t, gitState{}, &commands))

	_, _ = check.Check(context.Background(), gitClone(t), []string{"--upstream", "origin/main"})
	assert.Contains(t, commands, "git log --pretty=oneline ..origin/main")
	assert.Contains(t, commands, "git log --pretty=oneline origin/main..")
}

func TestGitCheck_NotAClone(t *testing.T) {
	ctrl := gomock.NewController(t)
	check := builtin.NewGitCheck(mocks.NewMockExecutor(ctrl))

	code, out := check.Check(context.Background(), domain.NewVisitContext(t.TempDir(), ".", ""), nil)
	assert.Equal(t, 0, code)
	assert.Equal(t, "[not a git clone]", out)
}

func TestGitCheck_NoExec(t *testing.T) {
	ctrl := gomock.NewController(t)
	check := builtin.NewGitCheck(mocks.NewMockExecutor(ctrl))
	vc := gitClone(t)
	vc.NoExec = true

	code, out := check.Check(context.Background(), vc, nil)
	assert.Equal(t, 0, code)
	assert.Equal(t, "[noexec] gitcheck", out)
}

func TestGitCheck_FailingCommandsCountZero(t *testing.T) {
	ctrl := gomock.NewController(t)
	executor := mocks.NewMockExecutor(ctrl)
	executor.EXPECT().Run(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, _, _ string, out io.Writer) (int, error) {
			_, _ = io.WriteString(out, "fatal: no upstream configured\n")
			return 128, nil
		}).AnyTimes()

	code, out := builtin.NewGitCheck(executor).Check(context.Background(), gitClone(t), nil)
	assert.Equal(t, builtin.GitClean, code)
	assert.Equal(t, "[no local mods, no repository changes]", out)
}

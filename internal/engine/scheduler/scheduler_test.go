package scheduler_test

import (
	"context"
	"io"
	"iter"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"testing"

	"github.com/sawolford/onsub/internal/core/domain"
	"github.com/sawolford/onsub/internal/core/ports"
	"github.com/sawolford/onsub/internal/core/ports/mocks"
	"github.com/sawolford/onsub/internal/engine/report"
	"github.com/sawolford/onsub/internal/engine/scheduler"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type call struct {
	dir, command string
}

type schedulerTestMocks struct {
	executor  *mocks.MockExecutor
	functions *mocks.MockFunctionRegistry
	workdir   *mocks.MockWorkdir
	tracer    *mocks.MockTracer
	logger    *mocks.MockLogger

	mu    sync.Mutex
	calls []call
	fns   map[string]domain.Function
}

func (m *schedulerTestMocks) executed() []call {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := slices.Clone(m.calls)
	slices.SortFunc(out, func(a, b call) int { return strings.Compare(a.dir+a.command, b.dir+b.command) })
	return out
}

// setupSchedulerTest creates common mocks. The executor echoes the command
// and exits with the code named by an "exit N" command.
func setupSchedulerTest(t *testing.T) *schedulerTestMocks {
	t.Helper()
	ctrl := gomock.NewController(t)
	m := &schedulerTestMocks{
		executor:  mocks.NewMockExecutor(ctrl),
		functions: mocks.NewMockFunctionRegistry(ctrl),
		workdir:   mocks.NewMockWorkdir(ctrl),
		tracer:    mocks.NewMockTracer(ctrl),
		logger:    mocks.NewMockLogger(ctrl),
		fns:       map[string]domain.Function{},
	}

	m.executor.EXPECT().Run(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, dir, command string, out io.Writer) (int, error) {
			m.mu.Lock()
			m.calls = append(m.calls, call{dir: dir, command: command})
			m.mu.Unlock()
			_, _ = io.WriteString(out, "  "+command+"\n")
			if code, ok := strings.CutPrefix(command, "exit "); ok {
				return int(code[0] - '0'), nil
			}
			return 0, nil
		},
	).AnyTimes()

	m.functions.EXPECT().Lookup(gomock.Any()).DoAndReturn(func(name string) (domain.Function, bool) {
		fn, ok := m.fns[name]
		return fn, ok
	}).AnyTimes()

	m.workdir.EXPECT().Within(gomock.Any(), gomock.Any()).DoAndReturn(func(_ string, fn func() error) error {
		return fn()
	}).AnyTimes()

	mockSpan := mocks.NewMockSpan(ctrl)
	mockSpan.EXPECT().End().AnyTimes()
	mockSpan.EXPECT().RecordError(gomock.Any()).AnyTimes()
	mockSpan.EXPECT().SetAttribute(gomock.Any(), gomock.Any()).AnyTimes()
	mockSpan.EXPECT().Write(gomock.Any()).DoAndReturn(func(p []byte) (int, error) { return len(p), nil }).AnyTimes()

	// Start has variadic signature: Start(ctx, name, ...opts).
	m.tracer.EXPECT().Start(gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(
		func(ctx context.Context, _ string, _ ...ports.SpanOption) (context.Context, ports.Span) {
			return ctx, mockSpan
		},
	).AnyTimes()
	m.tracer.EXPECT().EmitPlan(gomock.Any(), gomock.Any()).AnyTimes()
	m.logger.EXPECT().Debug(gomock.Any()).AnyTimes()

	return m
}

func (m *schedulerTestMocks) scheduler(opts scheduler.Options) *scheduler.Scheduler {
	return scheduler.NewScheduler(m.executor, m.functions, m.workdir, m.tracer, m.logger, opts)
}

func candidates(cs ...domain.Candidate) iter.Seq2[domain.Candidate, error] {
	return func(yield func(domain.Candidate, error) bool) {
		for _, c := range cs {
			if !yield(c, nil) {
				return
			}
		}
	}
}

// markerProfile applies with score when the directory contains marker.
func markerProfile(name string, score int, marker string) *domain.Profile {
	return &domain.Profile{
		Name:    name,
		Enabled: true,
		Priority: domain.PriorityFunc(func(_ context.Context, vc domain.VisitContext) int {
			if marker == "" {
				return score
			}
			if _, err := os.Stat(filepath.Join(vc.Dir, marker)); err == nil {
				return score
			}
			return 0
		}),
		Commands:  map[string]string{},
		Functions: map[string]string{},
		Variables: map[string]domain.Variable{},
	}
}

func mkdirs(t *testing.T, root string, dirs ...string) {
	t.Helper()
	for _, d := range dirs {
		require.NoError(t, os.MkdirAll(filepath.Join(root, d), 0o750))
	}
}

type builderFunc func(args []string) (string, bool, error)

func (f builderFunc) BuildCommand(
	_ context.Context, _ domain.VisitContext, _ domain.Expander, _ map[string]string, args []string,
) (string, bool, error) {
	return f(args)
}

func TestScheduler_Run_Traversal(t *testing.T) {
	m := setupSchedulerTest(t)
	root := t.TempDir()
	mkdirs(t, root, "app/.git", "lib/.hg", "plain")

	git := markerProfile("git", 4, ".git")
	git.Variables["cmd"] = domain.StaticVar("git")
	hg := markerProfile("hg", 3, ".hg")
	hg.Variables["cmd"] = domain.StaticVar("hg")
	profiles := []*domain.Profile{git, hg}

	agg := report.NewAggregator(false, false)
	err := m.scheduler(scheduler.Options{Root: root, Workers: 2}).Run(
		context.Background(),
		profiles,
		candidates(
			domain.Candidate{Path: "."},
			domain.Candidate{Path: "./app"},
			domain.Candidate{Path: "./lib"},
			domain.Candidate{Path: "./plain"},
		),
		[]string{"{cmd}", "status", "{basename}"},
		agg,
	)
	require.NoError(t, err)

	assert.Equal(t, []call{
		{dir: filepath.Join(root, "app"), command: "git status app"},
		{dir: filepath.Join(root, "lib"), command: "hg status lib"},
	}, m.executed())

	results := agg.Results()
	require.Len(t, results, 2)
	byLocation := map[string]domain.Result{}
	for _, r := range results {
		byLocation[r.Location] = r
	}
	assert.Equal(t, "git status app", byLocation["./app (git)"].Command)
	assert.Equal(t, "git status app", byLocation["./app (git)"].Output)
	assert.Equal(t, domain.PhaseRun, byLocation["./lib (hg)"].Phase)
}

func TestScheduler_Run_FailuresAreResults(t *testing.T) {
	m := setupSchedulerTest(t)
	root := t.TempDir()
	mkdirs(t, root, "a", "b")

	agg := report.NewAggregator(false, false)
	err := m.scheduler(scheduler.Options{Root: root}).Run(
		context.Background(),
		[]*domain.Profile{markerProfile("all", 1, "")},
		candidates(domain.Candidate{Path: "./a"}, domain.Candidate{Path: "./b"}),
		[]string{"exit", "3"},
		agg,
	)
	require.NoError(t, err)
	assert.Equal(t, 2, agg.Failures())
	for _, r := range agg.Results() {
		assert.Equal(t, 3, r.ExitCode)
	}
}

func TestScheduler_Run_StartFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	m := setupSchedulerTest(t)
	executor := mocks.NewMockExecutor(ctrl)
	executor.EXPECT().Run(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		Return(-1, domain.ErrCommandStartFailed)
	root := t.TempDir()

	agg := report.NewAggregator(false, false)
	s := scheduler.NewScheduler(executor, m.functions, m.workdir, m.tracer, m.logger, scheduler.Options{Root: root})
	err := s.Run(context.Background(), []*domain.Profile{markerProfile("all", 1, "")},
		candidates(domain.Candidate{Path: "."}), []string{"true"}, agg)
	require.NoError(t, err)

	require.Len(t, agg.Results(), 1)
	assert.Equal(t, 1, agg.Results()[0].ExitCode)
	assert.Contains(t, agg.Results()[0].Output, "failed to start command")
}

func TestScheduler_Run_DefaultCommand(t *testing.T) {
	m := setupSchedulerTest(t)
	root := t.TempDir()

	prof := markerProfile("all", 1, "")
	prof.Commands["run"] = "echo {path}"

	agg := report.NewAggregator(false, false)
	err := m.scheduler(scheduler.Options{Root: root}).Run(context.Background(), []*domain.Profile{prof},
		candidates(domain.Candidate{Path: "."}), nil, agg)
	require.NoError(t, err)
	assert.Equal(t, []call{{dir: root, command: "echo ."}}, m.executed())
}

func TestScheduler_Run_CommandPrefix(t *testing.T) {
	m := setupSchedulerTest(t)
	root := t.TempDir()

	prof := markerProfile("git", 1, "")
	prof.Variables["cmd"] = domain.StaticVar("git")
	prof.Commands["get"] = "{cmd} pull"

	agg := report.NewAggregator(false, false)
	err := m.scheduler(scheduler.Options{Root: root, CommandPrefix: true}).Run(context.Background(),
		[]*domain.Profile{prof}, candidates(domain.Candidate{Path: "."}), []string{"log", "-1"}, agg)
	require.NoError(t, err)
	assert.Equal(t, []call{{dir: root, command: "git log -1"}}, m.executed())
}

func TestScheduler_Run_FatalErrors(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		wantErr  error
		wantCode int
	}{
		{name: "no command and no run template", args: nil, wantErr: domain.ErrNotEnoughArguments, wantCode: domain.ExitUsage},
		{name: "unknown variable", args: []string{"{nope}"}, wantErr: domain.ErrUnknownVariable, wantCode: domain.ExitTemplate},
		{name: "malformed placeholder", args: []string{"echo", "{open"}, wantErr: domain.ErrMalformedPlaceholder, wantCode: domain.ExitTemplate},
		{name: "unknown function key", args: []string{"fn:nope"}, wantErr: domain.ErrUnknownFunction, wantCode: domain.ExitUnknownFunc},
		{name: "function key without built-in", args: []string{"fn:broken"}, wantErr: domain.ErrUnknownFunction, wantCode: domain.ExitUnknownFunc},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := setupSchedulerTest(t)
			root := t.TempDir()
			prof := markerProfile("all", 1, "")
			prof.Functions["broken"] = "missing-builtin"

			err := m.scheduler(scheduler.Options{Root: root}).Run(context.Background(), []*domain.Profile{prof},
				candidates(domain.Candidate{Path: "."}), tt.args, report.NewAggregator(false, false))
			require.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, tt.wantCode, domain.ExitCode(err))
			assert.Empty(t, m.executed())
		})
	}
}

func TestScheduler_Run_Function(t *testing.T) {
	m := setupSchedulerTest(t)
	root := t.TempDir()
	mkdirs(t, root, "repo")

	var got domain.VisitContext
	var gotArgs []string
	m.fns["gitcheck"] = func(_ context.Context, vc domain.VisitContext, args []string) (int, string) {
		got, gotArgs = vc, args
		return 4, " suggestion \n"
	}
	prof := markerProfile("git", 1, "")
	prof.Functions["check"] = "gitcheck"

	agg := report.NewAggregator(false, false)
	err := m.scheduler(scheduler.Options{Root: root, Verbose: 5}).Run(context.Background(), []*domain.Profile{prof},
		candidates(domain.Candidate{Path: "./repo"}), []string{"fn:check", "--local"}, agg)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(root, "repo"), got.Dir)
	assert.Equal(t, "git", got.Section)
	assert.Equal(t, 5, got.Verbose)
	assert.False(t, got.NoExec)
	assert.Equal(t, []string{"--local"}, gotArgs)
	assert.Empty(t, m.executed())
	assert.Equal(t, []domain.Result{{
		Location: "./repo (git)",
		Command:  "fn:check --local",
		ExitCode: 4,
		Output:   "suggestion",
		Phase:    domain.PhaseRun,
	}}, agg.Results())
}

func TestScheduler_Run_CustomFnPrefix(t *testing.T) {
	m := setupSchedulerTest(t)
	root := t.TempDir()
	called := false
	m.fns["filecheck"] = func(context.Context, domain.VisitContext, []string) (int, string) {
		called = true
		return 0, ""
	}
	prof := markerProfile("all", 1, "")
	prof.Functions["fc"] = "filecheck"

	err := m.scheduler(scheduler.Options{Root: root, FnPrefix: "py:"}).Run(context.Background(), []*domain.Profile{prof},
		candidates(domain.Candidate{Path: "."}), []string{"py:fc"}, report.NewAggregator(false, false))
	require.NoError(t, err)
	assert.True(t, called)
}

func TestScheduler_Run_ManifestBypassesResolution(t *testing.T) {
	m := setupSchedulerTest(t)
	root := t.TempDir()
	mkdirs(t, root, "vendor/.git")

	git := markerProfile("git", 4, ".git")
	svn := markerProfile("svn", 2, ".svn")
	svn.Variables["cmd"] = domain.StaticVar("svn")
	inactive := markerProfile("hg", 3, "")

	agg := report.NewAggregator(false, false)
	err := m.scheduler(scheduler.Options{Root: root}).Run(context.Background(), []*domain.Profile{git, svn},
		candidates(
			domain.Candidate{Path: "vendor", Section: "svn"},
			domain.Candidate{Path: "vendor", Section: inactive.Name},
			domain.Candidate{Path: "missing", Section: "svn"},
		),
		[]string{"{cmd}", "up"}, agg)
	require.NoError(t, err)

	assert.Equal(t, []call{{dir: filepath.Join(root, "vendor"), command: "svn up"}}, m.executed())
	require.Len(t, agg.Results(), 1)
	assert.Equal(t, "vendor (svn)", agg.Results()[0].Location)
}

func TestScheduler_Run_NoOp(t *testing.T) {
	m := setupSchedulerTest(t)
	root := t.TempDir()
	mkdirs(t, root, "a")

	var noexec bool
	m.fns["makedirs"] = func(_ context.Context, vc domain.VisitContext, _ []string) (int, string) {
		noexec = vc.NoExec
		return 0, "[noexec] makedirs " + vc.Path
	}
	prof := markerProfile("all", 1, "")
	prof.Construct = &domain.Construct{Function: "makedirs"}

	agg := report.NewAggregator(false, false)
	err := m.scheduler(scheduler.Options{Root: root, NoOp: true, Construct: true}).Run(context.Background(),
		[]*domain.Profile{prof},
		candidates(domain.Candidate{Path: "a", Section: "all"}, domain.Candidate{Path: "b", Section: "all"}),
		[]string{"rm", "-rf", "{path}"}, agg)
	require.NoError(t, err)

	assert.Empty(t, m.executed())
	assert.True(t, noexec)
	assert.Equal(t, []domain.Result{
		{Location: "b (all)", Command: "makedirs", Output: "[noexec] makedirs b", Phase: domain.PhaseConstruct},
		{Location: "a (all)", Command: "rm -rf a", Phase: domain.PhaseRun},
	}, agg.Results())
}

func TestScheduler_Run_ConstructThenRun(t *testing.T) {
	m := setupSchedulerTest(t)
	root := t.TempDir()
	mkdirs(t, root, "existing")

	m.fns["makedirs"] = func(_ context.Context, vc domain.VisitContext, _ []string) (int, string) {
		if err := os.MkdirAll(vc.Dir, 0o750); err != nil {
			return 1, err.Error()
		}
		return 0, "created"
	}
	all := markerProfile("all", 1, "")
	all.Construct = &domain.Construct{Function: "makedirs"}

	git := markerProfile("git", 4, ".git")
	var builtArgs []string
	git.Construct = &domain.Construct{Builder: builderFunc(func(args []string) (string, bool, error) {
		builtArgs = args
		return "git clone " + args[0] + " repo", true, nil
	})}

	agg := report.NewAggregator(false, false)
	err := m.scheduler(scheduler.Options{Root: root, Construct: true}).Run(context.Background(),
		[]*domain.Profile{git, all},
		candidates(
			domain.Candidate{Path: "repo", Section: "git", Args: []string{"https://example.com/r.git"}},
			domain.Candidate{Path: "new/dir", Section: "all"},
			domain.Candidate{Path: "existing", Section: "all"},
		),
		[]string{"pwd"}, agg)
	require.NoError(t, err)

	assert.Equal(t, []string{"https://example.com/r.git"}, builtArgs)
	assert.DirExists(t, filepath.Join(root, "new", "dir"))

	// Construct commands run from the root; the fake clone did not create repo.
	assert.Equal(t, []call{
		{dir: filepath.Join(root, "existing"), command: "pwd"},
		{dir: filepath.Join(root, "new", "dir"), command: "pwd"},
		{dir: root, command: "git clone https://example.com/r.git repo"},
	}, m.executed())

	results := agg.Results()
	require.Len(t, results, 4)
	phases := []domain.Phase{results[0].Phase, results[1].Phase, results[2].Phase, results[3].Phase}
	assert.Equal(t, []domain.Phase{domain.PhaseConstruct, domain.PhaseConstruct, domain.PhaseRun, domain.PhaseRun}, phases)
}

func TestScheduler_Run_ConstructNothingToDo(t *testing.T) {
	m := setupSchedulerTest(t)
	root := t.TempDir()

	git := markerProfile("git", 4, ".git")
	git.Construct = &domain.Construct{Builder: builderFunc(func([]string) (string, bool, error) {
		return "", false, nil
	})}

	agg := report.NewAggregator(false, false)
	err := m.scheduler(scheduler.Options{Root: root, Construct: true}).Run(context.Background(),
		[]*domain.Profile{git}, candidates(domain.Candidate{Path: "repo", Section: "git"}), []string{"ls"}, agg)
	require.NoError(t, err)
	assert.Empty(t, m.executed())
	assert.Empty(t, agg.Results())
}

func TestScheduler_Run_ConstructErrors(t *testing.T) {
	tests := []struct {
		name      string
		construct *domain.Construct
		wantErr   error
		wantCode  int
	}{
		{name: "missing construct", construct: nil, wantErr: domain.ErrMissingConstruct, wantCode: domain.ExitNoConstruct},
		{name: "unknown function", construct: &domain.Construct{Function: "nope"}, wantErr: domain.ErrUnknownFunction, wantCode: domain.ExitUnknownFunc},
		{
			name: "builder template error",
			construct: &domain.Construct{Builder: builderFunc(func([]string) (string, bool, error) {
				return "", false, domain.ErrUnknownVariable
			})},
			wantErr:  domain.ErrUnknownVariable,
			wantCode: domain.ExitTemplate,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := setupSchedulerTest(t)
			prof := markerProfile("git", 4, ".git")
			prof.Construct = tt.construct

			err := m.scheduler(scheduler.Options{Root: t.TempDir(), Construct: true}).Run(context.Background(),
				[]*domain.Profile{prof}, candidates(domain.Candidate{Path: "repo", Section: "git"}),
				[]string{"ls"}, report.NewAggregator(false, false))
			require.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, tt.wantCode, domain.ExitCode(err))
		})
	}
}

func TestScheduler_Run_ConstructSkipsInactiveSection(t *testing.T) {
	m := setupSchedulerTest(t)
	agg := report.NewAggregator(false, false)

	err := m.scheduler(scheduler.Options{Root: t.TempDir(), Construct: true}).Run(context.Background(),
		[]*domain.Profile{markerProfile("git", 4, ".git")},
		candidates(domain.Candidate{Path: "repo", Section: "hg"}), []string{"ls"}, agg)
	require.NoError(t, err)
	assert.Empty(t, agg.Results())
}

func TestScheduler_Run_Interrupted(t *testing.T) {
	m := setupSchedulerTest(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	agg := report.NewAggregator(false, false)
	err := m.scheduler(scheduler.Options{Root: t.TempDir()}).Run(ctx,
		[]*domain.Profile{markerProfile("all", 1, "")}, candidates(domain.Candidate{Path: "."}), []string{"ls"}, agg)
	require.ErrorIs(t, err, domain.ErrInterrupted)
	assert.Equal(t, domain.ExitInterrupted, domain.ExitCode(err))
	assert.Empty(t, agg.Results())
	assert.Empty(t, m.executed())
}

// futureSink records the outcome of every drained future.
type futureSink struct {
	results []domain.Result
	errs    []error
}

func (s *futureSink) Drain(_ context.Context, _ domain.Phase, futures []domain.Future) error {
	for _, f := range futures {
		r, err := f.Result()
		s.results = append(s.results, r)
		s.errs = append(s.errs, err)
	}
	return nil
}

func TestScheduler_Run_InterruptedWhileRunning(t *testing.T) {
	m := setupSchedulerTest(t)
	root := t.TempDir()
	mkdirs(t, root, "a", "b", "c")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	started := make(chan struct{})
	release := make(chan struct{})
	var (
		mu       sync.Mutex
		executed []string
	)
	executor := mocks.NewMockExecutor(gomock.NewController(t))
	executor.EXPECT().Run(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(
		func(ctx context.Context, dir, _ string, out io.Writer) (int, error) {
			mu.Lock()
			executed = append(executed, filepath.Base(dir))
			first := len(executed) == 1
			mu.Unlock()
			if first {
				close(started)
				<-release
			}
			assert.NoError(t, ctx.Err(), "running work outlives the interrupt")
			_, _ = io.WriteString(out, "finished\n")
			return 0, nil
		},
	).AnyTimes()

	// The interrupt arrives once every item is planned and the first one runs.
	cs := func(yield func(domain.Candidate, error) bool) {
		for _, p := range []string{"a", "b", "c"} {
			if !yield(domain.Candidate{Path: p}, nil) {
				return
			}
		}
		<-started
		cancel()
		close(release)
	}

	sink := &futureSink{}
	sched := scheduler.NewScheduler(executor, m.functions, m.workdir, m.tracer, m.logger,
		scheduler.Options{Root: root, Workers: 1})
	err := sched.Run(ctx, []*domain.Profile{markerProfile("all", 1, "")}, cs, []string{"ls"}, sink)

	require.ErrorIs(t, err, domain.ErrInterrupted)
	assert.Equal(t, []string{"a"}, executed)

	require.Len(t, sink.results, 3)
	require.NoError(t, sink.errs[0])
	assert.Equal(t, "finished", sink.results[0].Output)
	for i := 1; i < 3; i++ {
		require.ErrorIs(t, sink.errs[i], domain.ErrCancelled)
		assert.True(t, sink.results[i].Cancelled)
	}

	agg := report.NewAggregator(false, false)
	require.NoError(t, agg.Drain(ctx, domain.PhaseRun, []domain.Future{
		domain.Resolved(sink.results[0]),
		domain.Resolved(sink.results[1]),
	}))
	assert.Len(t, agg.Results(), 1, "cancelled items never reach the report")
}

func TestScheduler_Run_EnumerationError(t *testing.T) {
	m := setupSchedulerTest(t)
	failing := func(yield func(domain.Candidate, error) bool) {
		yield(domain.Candidate{}, domain.ErrWalkFailed)
	}

	err := m.scheduler(scheduler.Options{Root: t.TempDir()}).Run(context.Background(),
		[]*domain.Profile{markerProfile("all", 1, "")}, failing, []string{"ls"}, report.NewAggregator(false, false))
	require.ErrorIs(t, err, domain.ErrWalkFailed)
}

// Package app implements the application layer for onsub.
package app

import (
	"cmp"
	"context"
	"fmt"
	"io"
	"iter"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/muesli/termenv"
	"github.com/sawolford/onsub/internal/adapters/detector"
	"github.com/sawolford/onsub/internal/adapters/fs"
	"github.com/sawolford/onsub/internal/adapters/linear"
	"github.com/sawolford/onsub/internal/adapters/telemetry"
	"github.com/sawolford/onsub/internal/core/domain"
	"github.com/sawolford/onsub/internal/core/ports"
	"github.com/sawolford/onsub/internal/engine/report"
	"github.com/sawolford/onsub/internal/engine/scheduler"
	"github.com/sawolford/onsub/internal/engine/template"
	"github.com/sawolford/onsub/internal/ui/output"
	"github.com/sawolford/onsub/internal/ui/style"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.trai.ch/zerr"
)

// Output formats accepted by --output.
const (
	OutputText = "text"
	OutputJSON = "json"
)

// DefaultVerbose is the verbosity used when none is configured.
const DefaultVerbose = 4

// App represents the main application logic.
type App struct {
	configLoader ports.ConfigLoader
	manifests    ports.ManifestLoader
	walker       ports.Walker
	executor     ports.Executor
	functions    ports.FunctionRegistry
	workdir      ports.Workdir
	logger       ports.Logger

	stdout     io.Writer
	stderr     io.Writer
	isTerminal func() bool
}

// New creates a new App instance.
func New(
	loader ports.ConfigLoader,
	manifests ports.ManifestLoader,
	walker ports.Walker,
	executor ports.Executor,
	functions ports.FunctionRegistry,
	workdir ports.Workdir,
	log ports.Logger,
) *App {
	return &App{
		configLoader: loader,
		manifests:    manifests,
		walker:       walker,
		executor:     executor,
		functions:    functions,
		workdir:      workdir,
		logger:       log,
		stdout:       os.Stdout,
		stderr:       os.Stderr,
		isTerminal:   detector.StdoutIsTerminal,
	}
}

// WithOutput redirects the result report and progress lines.
func (a *App) WithOutput(stdout, stderr io.Writer) *App {
	a.stdout = stdout
	a.stderr = stderr
	return a
}

// WithTerminal replaces terminal detection for automatic color selection.
func (a *App) WithTerminal(isTerminal func() bool) *App {
	a.isTerminal = isTerminal
	return a
}

// RunOptions configuration for the Run method.
type RunOptions struct {
	// Overrides are PROFILE.NAME=VALUE or defaults.NAME=VALUE assignments.
	Overrides []string
	Enable    []string
	Disable   []string
	NoEnable  bool

	// Files are manifest files; none means traversal mode.
	Files   []string
	ChDir   string
	Depth   int
	Ignores []string

	NoOp   bool
	NoExec bool
	NoMake bool

	Invert   bool
	Discard  bool
	Suppress bool
	Verbose  int
	Debug    bool
	Color    string
	NoColor  bool
	Output   string

	Workers      int
	SleepMake    time.Duration
	SleepCommand time.Duration
	TTY          bool

	CommandPrefix bool
	// Rounds bounds template substitution; zero leaves commands unexpanded.
	Rounds     int
	OpenBrace  string
	CloseBrace string
	FnPrefix   string
}

// DefaultRunOptions returns the options of a run with no flags given.
func DefaultRunOptions() RunOptions {
	return RunOptions{
		Depth:      -1,
		Ignores:    slices.Clone(fs.DefaultIgnores),
		Verbose:    DefaultVerbose,
		Color:      detector.ColorAuto,
		Output:     OutputText,
		Rounds:     template.DefaultRounds,
		OpenBrace:  template.DefaultOpenEscape,
		CloseBrace: template.DefaultCloseEscape,
		FnPrefix:   scheduler.DefaultFnPrefix,
	}
}

// LoadConfig reads the configuration file at path.
func (a *App) LoadConfig(path string) (*domain.Config, error) {
	cfg, err := a.configLoader.Load(path)
	if err != nil {
		return nil, zerr.Wrap(err, "failed to load configuration")
	}
	return cfg, nil
}

// Run dispatches args to every selected directory and reports the results.
// The returned status is the clamped failure count; a non-nil error is fatal
// and maps to a reserved exit code through domain.ExitCode.
//
//nolint:cyclop,funlen // orchestration function
func (a *App) Run(ctx context.Context, cfg *domain.Config, args []string, opts RunOptions) (int, error) {
	if err := ApplyOverrides(cfg.Profiles, opts.Overrides); err != nil {
		return 0, err
	}
	if err := checkProfiles(cfg.Profiles, opts.Enable, opts.Disable); err != nil {
		return 0, err
	}
	profiles := cfg.Profiles.Active(opts.Enable, opts.Disable, opts.NoEnable)

	colored, err := detector.ResolveColor(opts.Color, opts.NoColor, a.isTerminal)
	if err != nil {
		return 0, err
	}
	profile := output.ProfileFor(colored)

	palette, unknown := style.DefaultPalette.WithOverrides(cfg.Colors)
	for _, role := range unknown {
		a.logger.Warn("ignoring unknown color role " + role)
	}

	if opts.Output == "" {
		opts.Output = OutputText
	}
	if opts.Output != OutputText && opts.Output != OutputJSON {
		return 0, zerr.With(zerr.Wrap(domain.ErrInvalidFlag, "unknown output format"), "output", opts.Output)
	}

	if tty, ok := a.executor.(interface{ SetTTY(bool) }); ok {
		tty.SetTTY(opts.TTY)
	}

	cwd, err := os.Getwd()
	if err != nil {
		return 0, zerr.Wrap(err, "cannot determine working directory")
	}
	root := cmp.Or(opts.ChDir, cwd)
	if !filepath.IsAbs(root) {
		root = filepath.Join(cwd, root)
	}

	candidates, manifestMode, err := a.candidates(root, opts)
	if err != nil {
		return 0, err
	}

	runID := uuid.NewString()
	ctx, tracer, finish := a.setupTelemetry(ctx, profile, runID, opts)
	defer finish()

	sched := scheduler.NewScheduler(a.executor, a.functions, a.workdir, tracer, a.logger, scheduler.Options{
		Root:          root,
		Cwd:           cwd,
		Workers:       opts.Workers,
		NoOp:          opts.NoOp,
		NoExec:        opts.NoExec,
		Construct:     manifestMode && !opts.NoMake,
		Debug:         opts.Debug,
		Verbose:       opts.Verbose,
		CommandPrefix: opts.CommandPrefix,
		FnPrefix:      opts.FnPrefix,
		Expander: template.Expander{
			Open:   cmp.Or(opts.OpenBrace, template.DefaultOpenEscape),
			Close:  cmp.Or(opts.CloseBrace, template.DefaultCloseEscape),
			Rounds: opts.Rounds,
		},
		SleepMake:    opts.SleepMake,
		SleepCommand: opts.SleepCommand,
	})

	agg := report.NewAggregator(opts.Invert, opts.Discard)

	a.logger.Debug(fmt.Sprintf("run %s: %d active profile(s), root %s", runID, len(profiles), root))

	// Nothing is reported unless every phase completed.
	if err := sched.Run(ctx, profiles, candidates, args, agg); err != nil {
		return 0, err
	}

	if err := a.writeResults(agg.Results(), runID, profile, palette, opts); err != nil {
		return 0, zerr.Wrap(err, "cannot write results")
	}

	status, clamped := domain.FailureExitCode(agg.Failures())
	if clamped {
		a.logger.Warn(fmt.Sprintf("%d failures, exit status clamped to %d", agg.Failures(), status))
	}
	return status, nil
}

func (a *App) writeResults(
	results []domain.Result,
	runID string,
	profile func() termenv.Profile,
	palette style.Palette,
	opts RunOptions,
) error {
	if opts.Output == OutputJSON {
		jw := report.NewJSONWriter(a.stdout, runID)
		for _, r := range results {
			jw.Write(r)
		}
		return jw.Err()
	}
	return report.NewRenderer(a.stdout, profile, palette, opts.Verbose, opts.Suppress).Render(results)
}

// candidates selects manifest mode when files are given, traversal otherwise.
func (a *App) candidates(root string, opts RunOptions) (iter.Seq2[domain.Candidate, error], bool, error) {
	if len(opts.Files) == 0 {
		return a.walker.Walk(root, opts.Ignores, opts.Depth), false, nil
	}

	files := make([]string, len(opts.Files))
	for i, f := range opts.Files {
		files[i] = f
		if !filepath.IsAbs(f) {
			files[i] = filepath.Join(root, f)
		}
	}

	list, err := a.manifests.Load(files)
	if err != nil {
		return nil, true, err
	}
	return func(yield func(domain.Candidate, error) bool) {
		for _, c := range list {
			if !yield(c, nil) {
				return
			}
		}
	}, true, nil
}

// setupTelemetry opens the root span of the run. Work item spans are bridged
// to a progress renderer on stderr.
func (a *App) setupTelemetry(
	ctx context.Context,
	profile func() termenv.Profile,
	runID string,
	opts RunOptions,
) (context.Context, ports.Tracer, func()) {
	renderer := linear.NewRenderer(a.stderr, profile, opts.Verbose, opts.Debug)

	var tp *sdktrace.TracerProvider
	if renderer.Quiet() {
		tp = sdktrace.NewTracerProvider()
	} else {
		tp = sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(telemetry.NewBridge(renderer)))
	}

	tracer := telemetry.NewOTelTracerFromProvider(tp, "onsub")
	if !renderer.Quiet() {
		tracer.WithRenderer(renderer)
	}

	ctx, root := tp.Tracer("onsub").Start(ctx, "onsub", trace.WithAttributes(
		attribute.String("onsub.run_id", runID),
	))

	return ctx, tracer, func() {
		root.End()
		_ = renderer.Stop()
		_ = tracer.Shutdown(context.Background())
		_ = tp.Shutdown(context.Background())
	}
}

// ApplyOverrides assigns PROFILE.NAME=VALUE overrides. The pseudo profile
// "defaults" assigns the variable in every profile.
func ApplyOverrides(profiles *domain.Registry, overrides []string) error {
	for _, o := range overrides {
		key, value, ok := strings.Cut(o, "=")
		name, variable, dotted := strings.Cut(key, ".")
		if !ok || !dotted || name == "" || variable == "" {
			return zerr.With(zerr.Wrap(domain.ErrInvalidFlag, "expected PROFILE.NAME=VALUE"), "config", o)
		}

		if name == "defaults" {
			for _, p := range profiles.All() {
				p.SetVariable(variable, value)
			}
			continue
		}

		p, found := profiles.Get(name)
		if !found {
			return zerr.With(zerr.Wrap(domain.ErrProfileNotFound, "cannot override variable"), "profile", name)
		}
		p.SetVariable(variable, value)
	}
	return nil
}

func checkProfiles(profiles *domain.Registry, names ...[]string) error {
	for _, list := range names {
		for _, name := range list {
			if _, ok := profiles.Get(name); !ok {
				return zerr.With(zerr.Wrap(domain.ErrProfileNotFound, "cannot select profile"), "profile", name)
			}
		}
	}
	return nil
}

// Dump writes the variables of the named profiles, or of every profile, as YAML.
func (a *App) Dump(w io.Writer, cfg *domain.Config, names []string) error {
	if err := checkProfiles(cfg.Profiles, names); err != nil {
		return err
	}

	cwd, err := os.Getwd()
	if err != nil {
		return zerr.Wrap(err, "cannot determine working directory")
	}

	var selected []*domain.Profile
	for _, p := range cfg.Profiles.All() {
		if len(names) == 0 || slices.Contains(names, p.Name) {
			selected = append(selected, p)
		}
	}
	return writeDump(w, selected, cwd)
}

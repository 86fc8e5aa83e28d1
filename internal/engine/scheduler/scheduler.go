// Package scheduler dispatches commands to directories in two phases:
// constructing missing directories, then running the requested command.
package scheduler

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"iter"
	"os"
	"strings"
	"time"

	"github.com/sawolford/onsub/internal/core/domain"
	"github.com/sawolford/onsub/internal/core/ports"
	"github.com/sawolford/onsub/internal/engine/pool"
	"github.com/sawolford/onsub/internal/engine/resolver"
	"github.com/sawolford/onsub/internal/engine/template"
	"go.trai.ch/zerr"
)

// DefaultFnPrefix marks a command token as an in-process function key.
const DefaultFnPrefix = "fn:"

// RunCommand is the command template used when no command is given.
const RunCommand = "run"

// Options controls a scheduler run.
type Options struct {
	// Root is the directory candidate paths are relative to.
	Root string
	// Cwd is the directory onsub was started from; empty means Root.
	Cwd string
	// Workers is the pool size; non-positive means the number of CPUs.
	Workers int
	// NoOp reports commands instead of running them.
	NoOp bool
	// NoExec is passed to in-process functions.
	NoExec bool
	// Construct enables the construct-missing phase.
	Construct bool
	Debug     bool
	Verbose   int
	// CommandPrefix prepends {cmd} to the command.
	CommandPrefix bool
	FnPrefix      string
	Expander      template.Expander
	// SleepMake and SleepCommand delay successive submissions of each phase.
	SleepMake    time.Duration
	SleepCommand time.Duration
}

// Sink receives the futures of a phase once every item of the phase was submitted.
// It must not return before every future has resolved.
type Sink interface {
	Drain(ctx context.Context, phase domain.Phase, futures []domain.Future) error
}

// Scheduler submits work items for candidate directories.
type Scheduler struct {
	executor  ports.Executor
	functions ports.FunctionRegistry
	workdir   ports.Workdir
	resolver  *resolver.Resolver
	tracer    ports.Tracer
	logger    ports.Logger
	opts      Options
}

// NewScheduler creates a new Scheduler with the given dependencies.
func NewScheduler(
	executor ports.Executor,
	functions ports.FunctionRegistry,
	workdir ports.Workdir,
	tracer ports.Tracer,
	logger ports.Logger,
	opts Options,
) *Scheduler {
	if opts.FnPrefix == "" {
		opts.FnPrefix = DefaultFnPrefix
	}
	if opts.Expander == (template.Expander{}) {
		opts.Expander = template.NewExpander()
	}
	return &Scheduler{
		executor:  executor,
		functions: functions,
		workdir:   workdir,
		resolver:  resolver.New(workdir),
		tracer:    tracer,
		logger:    logger,
		opts:      opts,
	}
}

// Run executes both phases over candidates. profiles are the active profiles
// in registration order. When the construct phase is enabled candidates are
// enumerated twice. Per-directory failures are reported through results;
// the returned error is fatal to the whole run.
func (s *Scheduler) Run(
	ctx context.Context,
	profiles []*domain.Profile,
	candidates iter.Seq2[domain.Candidate, error],
	args []string,
	sink Sink,
) error {
	p := pool.New(ctx, s.opts.Workers)
	defer func() { _ = p.Close() }()

	active := make(map[string]*domain.Profile, len(profiles))
	for _, prof := range profiles {
		active[prof.Name] = prof
	}

	if s.opts.Construct {
		planned, err := s.construct(ctx, p, active, candidates)
		if err := s.drain(ctx, sink, domain.PhaseConstruct, planned, err); err != nil {
			return err
		}
	}

	planned, err := s.run(ctx, p, profiles, active, candidates, args)
	return s.drain(ctx, sink, domain.PhaseRun, planned, err)
}

// plan collects the futures of one phase with the locations they belong to.
type plan struct {
	futures   []domain.Future
	locations []string
}

func (pl *plan) add(location string, f domain.Future) {
	pl.futures = append(pl.futures, f)
	pl.locations = append(pl.locations, location)
}

// drain hands the futures of a phase to the sink. On a fatal error, queued
// items are cancelled first so that the sink only waits for running ones.
func (s *Scheduler) drain(ctx context.Context, sink Sink, phase domain.Phase, planned plan, err error) error {
	if err != nil {
		for _, f := range planned.futures {
			f.Cancel()
		}
	}

	s.tracer.EmitPlan(ctx, planned.locations)

	if drainErr := sink.Drain(ctx, phase, planned.futures); err == nil {
		err = drainErr
	}
	if err == nil && ctx.Err() != nil {
		err = zerr.Wrap(domain.ErrInterrupted, ctx.Err().Error())
	}
	return err
}

func (s *Scheduler) visit(c domain.Candidate) domain.VisitContext {
	vc := domain.NewVisitContext(s.opts.Root, c.Path, c.Section)
	vc.Cwd = s.opts.Cwd
	vc.Verbose = s.opts.Verbose
	vc.Debug = s.opts.Debug
	vc.NoExec = s.opts.NoExec || s.opts.NoOp
	return vc
}

func (s *Scheduler) construct(
	ctx context.Context,
	p *pool.Pool,
	active map[string]*domain.Profile,
	candidates iter.Seq2[domain.Candidate, error],
) (plan, error) {
	var planned plan

	for c, err := range candidates {
		if err != nil {
			return planned, err
		}
		if ctx.Err() != nil {
			return planned, zerr.Wrap(domain.ErrInterrupted, ctx.Err().Error())
		}
		if !c.Assigned() {
			continue
		}
		vc := s.visit(c)
		if _, err := os.Stat(vc.Dir); err == nil {
			continue
		}
		prof, ok := active[c.Section]
		if !ok {
			s.logger.Debug("skipping " + domain.Location(c.Path, c.Section) + ": profile not active")
			continue
		}
		if prof.Construct == nil {
			err := zerr.Wrap(domain.ErrMissingConstruct, "cannot create "+c.Path)
			return planned, zerr.With(err, "profile", prof.Name)
		}

		f, err := s.constructOne(ctx, p, prof, vc, c.Args)
		if err != nil {
			return planned, err
		}
		if f == nil {
			continue
		}
		if len(planned.futures) > 0 {
			sleep(ctx, s.opts.SleepMake)
		}
		planned.add(domain.Location(vc.Path, vc.Section), f)
	}
	return planned, nil
}

func (s *Scheduler) constructOne(
	ctx context.Context,
	p *pool.Pool,
	prof *domain.Profile,
	vc domain.VisitContext,
	args []string,
) (domain.Future, error) {
	location := domain.Location(vc.Path, vc.Section)

	if prof.Construct.Function != "" {
		fn, ok := s.functions.Lookup(prof.Construct.Function)
		if !ok {
			err := zerr.Wrap(domain.ErrUnknownFunction, "cannot create "+vc.Path)
			return nil, zerr.With(zerr.With(err, "function", prof.Construct.Function), "profile", prof.Name)
		}
		code, out := fn(ctx, vc, args)
		return domain.Resolved(domain.Result{
			Location: location,
			Command:  prof.Construct.Function,
			ExitCode: code,
			Output:   strings.TrimSpace(out),
			Phase:    domain.PhaseConstruct,
		}), nil
	}

	cmd, ok, err := prof.Construct.Builder.BuildCommand(ctx, vc, s.opts.Expander, prof.Snapshot(vc), args)
	if err != nil {
		return nil, zerr.With(zerr.Wrap(err, "cannot build construct command"), "path", vc.Path)
	}
	if !ok {
		s.logger.Debug("nothing to construct for " + location)
		return nil, nil
	}

	// The directory does not exist yet, so construct commands run from the root.
	return s.submit(p, vc, vc.Root, cmd, domain.PhaseConstruct), nil
}

func (s *Scheduler) run(
	ctx context.Context,
	p *pool.Pool,
	profiles []*domain.Profile,
	active map[string]*domain.Profile,
	candidates iter.Seq2[domain.Candidate, error],
	args []string,
) (plan, error) {
	var planned plan

	for c, err := range candidates {
		if err != nil {
			return planned, err
		}
		if ctx.Err() != nil {
			return planned, zerr.Wrap(domain.ErrInterrupted, ctx.Err().Error())
		}

		vc := s.visit(c)
		var prof *domain.Profile
		if c.Assigned() {
			var ok bool
			if prof, ok = active[c.Section]; !ok {
				continue
			}
			if info, err := os.Stat(vc.Dir); err != nil || !info.IsDir() {
				s.logger.Debug("skipping " + domain.Location(c.Path, c.Section) + ": directory does not exist")
				continue
			}
		} else {
			var ok bool
			if prof, ok = s.resolver.Resolve(ctx, vc, profiles); !ok {
				continue
			}
			vc.Section = prof.Name
		}

		f, err := s.runOne(ctx, p, prof, vc, args)
		if err != nil {
			return planned, err
		}
		if len(planned.futures) > 0 {
			sleep(ctx, s.opts.SleepCommand)
		}
		planned.add(domain.Location(vc.Path, vc.Section), f)
	}
	return planned, nil
}

func (s *Scheduler) runOne(
	ctx context.Context,
	p *pool.Pool,
	prof *domain.Profile,
	vc domain.VisitContext,
	args []string,
) (domain.Future, error) {
	if len(args) > 0 && strings.HasPrefix(args[0], s.opts.FnPrefix) {
		return s.callFunction(ctx, prof, vc, args)
	}

	var tmpl string
	switch {
	case len(args) > 0:
		tmpl = strings.Join(args, " ")
	case prof.Commands[RunCommand] != "":
		tmpl = "{" + RunCommand + "}"
	default:
		err := zerr.Wrap(domain.ErrNotEnoughArguments, "no command given")
		return nil, zerr.With(err, "profile", prof.Name)
	}
	if s.opts.CommandPrefix {
		tmpl = "{cmd} " + tmpl
	}

	cmd, err := s.opts.Expander.Expand(tmpl, prof.Snapshot(vc))
	if err != nil {
		return nil, zerr.With(zerr.With(zerr.Wrap(err, "cannot expand command"), "path", vc.Path), "profile", prof.Name)
	}

	return s.submit(p, vc, vc.Dir, cmd, domain.PhaseRun), nil
}

func (s *Scheduler) callFunction(
	ctx context.Context,
	prof *domain.Profile,
	vc domain.VisitContext,
	args []string,
) (domain.Future, error) {
	key := strings.TrimPrefix(args[0], s.opts.FnPrefix)
	name, ok := prof.Functions[key]
	if !ok {
		err := zerr.With(zerr.Wrap(domain.ErrUnknownFunction, "no function "+key), "profile", prof.Name)
		return nil, err
	}
	fn, ok := s.functions.Lookup(name)
	if !ok {
		err := zerr.With(zerr.Wrap(domain.ErrUnknownFunction, "no built-in "+name), "profile", prof.Name)
		return nil, err
	}

	var (
		code int
		out  string
	)
	err := s.workdir.Within(vc.Dir, func() error {
		code, out = fn(ctx, vc, args[1:])
		return nil
	})
	if err != nil {
		code, out = 1, err.Error()
	}

	return domain.Resolved(domain.Result{
		Location: domain.Location(vc.Path, vc.Section),
		Command:  strings.Join(args, " "),
		ExitCode: code,
		Output:   strings.TrimSpace(out),
		Phase:    domain.PhaseRun,
	}), nil
}

// submit queues a shell work item. Its output is streamed into a span and
// captured for the result.
func (s *Scheduler) submit(p *pool.Pool, vc domain.VisitContext, dir, cmd string, phase domain.Phase) domain.Future {
	location := domain.Location(vc.Path, vc.Section)

	if s.opts.NoOp {
		return domain.Resolved(domain.Result{Location: location, Command: cmd, Phase: phase})
	}

	return p.Submit(func(ctx context.Context) domain.Result {
		ctx, span := s.tracer.Start(ctx, location+" "+cmd,
			ports.WithAttribute("onsub.path", vc.Path),
			ports.WithAttribute("onsub.section", vc.Section),
			ports.WithAttribute("onsub.phase", string(phase)),
		)
		defer span.End()

		var out bytes.Buffer
		code, err := s.executor.Run(ctx, dir, cmd, io.MultiWriter(&out, span))
		if err != nil {
			span.RecordError(err)
			code = 1
			out.WriteString(err.Error())
		} else if code != 0 {
			span.RecordError(zerr.New(fmt.Sprintf("exit status %d", code)))
		}
		span.SetAttribute("onsub.exit_code", code)

		return domain.Result{
			Location: location,
			Command:  cmd,
			ExitCode: code,
			Output:   strings.TrimSpace(out.String()),
			Phase:    phase,
		}
	})
}

func sleep(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

package config

import (
	"context"
	"maps"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/sawolford/onsub/internal/core/domain"
	"go.trai.ch/zerr"
)

func (l *Loader) buildProfile(name string, dto *ProfileDTO, defaults DefaultsDTO) (*domain.Profile, error) {
	p := &domain.Profile{
		Name:      name,
		Enabled:   dto.Enabled,
		Commands:  maps.Clone(dto.Commands),
		Functions: maps.Clone(dto.Functions),
		Variables: make(map[string]domain.Variable),
	}

	for _, layer := range []map[string]VarDTO{
		defaults.Vars,
		defaults.Platform[l.goos],
		dto.Vars,
		dto.Platform[l.goos],
	} {
		for key, v := range layer {
			p.Variables[key] = v.variable()
		}
	}

	if dto.Priority.Score < 0 {
		return nil, zerr.With(zerr.Wrap(domain.ErrConfigInvalid, "priority score must not be negative"), "profile", name)
	}
	if dto.Priority.Score > 0 {
		prio := &markerPriority{fs: l.fs, rule: dto.Priority}
		if !prio.hasRule() {
			l.Logger.Debug("profile " + name + " has no priority rule and only applies through manifests")
		}
		p.Priority = prio
	}

	if dto.Construct != nil {
		c, err := buildConstruct(name, dto.Construct, l.fs)
		if err != nil {
			return nil, err
		}
		p.Construct = c
	}

	return p, nil
}

func buildConstruct(profile string, dto *ConstructDTO, fsys FileSystem) (*domain.Construct, error) {
	switch {
	case dto.Command != "" && dto.Function != "":
		return nil, zerr.With(zerr.Wrap(domain.ErrConfigInvalid, "construct sets both command and function"), "profile", profile)
	case dto.Function != "":
		return &domain.Construct{Function: dto.Function}, nil
	case dto.Command != "":
		if dto.Args < 0 {
			return nil, zerr.With(zerr.Wrap(domain.ErrConfigInvalid, "construct args must not be negative"), "profile", profile)
		}
		return &domain.Construct{
			Builder: NewTemplateBuilder(dto.Command, dto.Args, dto.UnlessExists, fsys),
		}, nil
	default:
		return nil, zerr.With(zerr.Wrap(domain.ErrConfigInvalid, "construct needs a command or a function"), "profile", profile)
	}
}

func (v VarDTO) variable() domain.Variable {
	if v.Env == "" {
		return domain.StaticVar(v.Value)
	}
	name, fallback := v.Env, v.Value
	return func(domain.VisitContext) string {
		if s := os.Getenv(name); s != "" {
			return s
		}
		return fallback
	}
}

// markerPriority scores a directory by the presence of marker entries.
type markerPriority struct {
	fs   FileSystem
	rule PriorityDTO
}

func (m *markerPriority) hasRule() bool {
	r := m.rule
	return r.Always || len(r.Exists) > 0 || len(r.Dirs) > 0 || len(r.Files) > 0
}

// Priority returns the configured score when every declared condition holds.
func (m *markerPriority) Priority(_ context.Context, vc domain.VisitContext) int {
	r := m.rule
	if r.Always {
		return r.Score
	}
	if !m.hasRule() {
		return 0
	}

	if len(r.Exists) > 0 {
		found := false
		for _, name := range r.Exists {
			if _, err := m.fs.Stat(filepath.Join(vc.Dir, name)); err == nil {
				found = true
				break
			}
		}
		if !found {
			return 0
		}
	}
	for _, name := range r.Dirs {
		info, err := m.fs.Stat(filepath.Join(vc.Dir, name))
		if err != nil || !info.IsDir() {
			return 0
		}
	}
	for _, name := range r.Files {
		info, err := m.fs.Stat(filepath.Join(vc.Dir, name))
		if err != nil || !info.Mode().IsRegular() {
			return 0
		}
	}
	return r.Score
}

// TemplateBuilder builds a construct command from a template. Manifest
// arguments are bound to {1}..{n} and {args}.
type TemplateBuilder struct {
	Command      string
	MinArgs      int
	UnlessExists []string
	fs           FileSystem
}

// NewTemplateBuilder creates a TemplateBuilder that checks UnlessExists targets on fsys.
func NewTemplateBuilder(command string, minArgs int, unlessExists []string, fsys FileSystem) *TemplateBuilder {
	return &TemplateBuilder{Command: command, MinArgs: minArgs, UnlessExists: unlessExists, fs: fsys}
}

// BuildCommand implements domain.CommandBuilder. It reports nothing to do when
// fewer than MinArgs arguments are given or any UnlessExists target exists.
func (b *TemplateBuilder) BuildCommand(
	_ context.Context,
	vc domain.VisitContext,
	exp domain.Expander,
	vars map[string]string,
	args []string,
) (string, bool, error) {
	if len(args) < b.MinArgs {
		return "", false, nil
	}

	bound := make(map[string]string, len(vars)+len(args)+1)
	maps.Copy(bound, vars)
	for i, arg := range args {
		bound[strconv.Itoa(i+1)] = arg
	}
	bound["args"] = strings.Join(args, " ")

	for _, tmpl := range b.UnlessExists {
		target, err := exp.Expand(tmpl, bound)
		if err != nil {
			return "", false, err
		}
		if !filepath.IsAbs(target) {
			target = filepath.Join(vc.Root, target)
		}
		if _, err := b.fs.Stat(target); err == nil {
			return "", false, nil
		}
	}

	cmd, err := exp.Expand(b.Command, bound)
	if err != nil {
		return "", false, err
	}
	return cmd, true, nil
}

package domain

import (
	"cmp"
	"context"
	"maps"
	"os"
	"path/filepath"
)

// Prioritizer scores how well a profile applies to a directory. Zero means it does not apply.
type Prioritizer interface {
	Priority(ctx context.Context, vc VisitContext) int
}

// PriorityFunc adapts a plain function to the Prioritizer interface.
type PriorityFunc func(ctx context.Context, vc VisitContext) int

// Priority calls f.
func (f PriorityFunc) Priority(ctx context.Context, vc VisitContext) int {
	return f(ctx, vc)
}

// Expander substitutes placeholders in a template.
type Expander interface {
	Expand(tmpl string, vars map[string]string) (string, error)
}

// CommandBuilder produces the command that materializes a missing directory.
// A false second return value means there is nothing to do.
type CommandBuilder interface {
	BuildCommand(ctx context.Context, vc VisitContext, exp Expander, vars map[string]string, args []string) (string, bool, error)
}

// Function is an in-process callable returning an exit code and output.
type Function func(ctx context.Context, vc VisitContext, args []string) (int, string)

// Variable yields a substitution value for one directory visit.
type Variable func(vc VisitContext) string

// StaticVar returns a Variable with a fixed value.
func StaticVar(value string) Variable {
	return func(VisitContext) string { return value }
}

// EnvVar returns a Variable that reads an environment variable at visit time.
func EnvVar(name string) Variable {
	return func(VisitContext) string { return os.Getenv(name) }
}

// Construct describes how a profile materializes a missing directory.
// Exactly one of Builder and Function is set.
type Construct struct {
	Builder  CommandBuilder
	Function string
}

// Profile is a named capability bundle for one kind of directory.
type Profile struct {
	Name      string
	Enabled   bool
	Priority  Prioritizer
	Construct *Construct
	Commands  map[string]string
	Functions map[string]string
	Variables map[string]Variable
}

// Snapshot materializes the profile's variables for one visit.
// Commands are visible as variables so templates can reference each other.
// Built-in variables come first: profile commands, variables and overrides
// of the same name replace them.
func (p *Profile) Snapshot(vc VisitContext) map[string]string {
	vars := make(map[string]string, len(p.Commands)+len(p.Variables)+len(builtinVariables))
	for name, fn := range builtinVariables {
		vars[name] = fn(vc)
	}
	maps.Copy(vars, p.Commands)
	for name, v := range p.Variables {
		vars[name] = v(vc)
	}
	return vars
}

var builtinVariables = map[string]Variable{
	"path":    func(vc VisitContext) string { return vc.Path },
	"abspath": func(vc VisitContext) string { return vc.Dir },
	"basename": func(vc VisitContext) string {
		return filepath.Base(vc.Dir)
	},
	"section": func(vc VisitContext) string { return vc.Section },
	"root":    func(vc VisitContext) string { return vc.Root },
	"cwd":     func(vc VisitContext) string { return cmp.Or(vc.Cwd, vc.Root) },
}

// SetVariable overrides a variable with a fixed value.
func (p *Profile) SetVariable(name, value string) {
	if p.Variables == nil {
		p.Variables = make(map[string]Variable)
	}
	p.Variables[name] = StaticVar(value)
}

// Registry holds profiles in registration order.
type Registry struct {
	profiles []*Profile
	byName   map[string]*Profile
}

// NewRegistry creates a registry from profiles in registration order.
// A later profile with a duplicate name replaces the earlier one in place.
func NewRegistry(profiles ...*Profile) *Registry {
	r := &Registry{byName: make(map[string]*Profile, len(profiles))}
	for _, p := range profiles {
		r.Add(p)
	}
	return r
}

// Add registers a profile.
func (r *Registry) Add(p *Profile) {
	if _, exists := r.byName[p.Name]; exists {
		for i, existing := range r.profiles {
			if existing.Name == p.Name {
				r.profiles[i] = p
			}
		}
	} else {
		r.profiles = append(r.profiles, p)
	}
	r.byName[p.Name] = p
}

// Get returns the profile with the given name.
func (r *Registry) Get(name string) (*Profile, bool) {
	p, ok := r.byName[name]
	return p, ok
}

// All returns every profile in registration order.
func (r *Registry) All() []*Profile {
	return r.profiles
}

// Len returns the number of registered profiles.
func (r *Registry) Len() int {
	return len(r.profiles)
}

// Active returns the profiles selected for this run in registration order.
// When noEnable is set, configured enablement is ignored.
func (r *Registry) Active(enable, disable []string, noEnable bool) []*Profile {
	on := make(map[string]bool, len(enable))
	for _, name := range enable {
		on[name] = true
	}
	off := make(map[string]bool, len(disable))
	for _, name := range disable {
		off[name] = true
	}

	var active []*Profile
	for _, p := range r.profiles {
		selected := (p.Enabled && !noEnable) || on[p.Name]
		if selected && !off[p.Name] {
			active = append(active, p)
		}
	}
	return active
}

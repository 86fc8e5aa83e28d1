// Package builtin provides the in-process functions profiles can reference by name.
package builtin

import (
	"maps"
	"slices"

	"github.com/sawolford/onsub/internal/core/domain"
	"github.com/sawolford/onsub/internal/core/ports"
)

// Registry implements ports.FunctionRegistry.
type Registry struct {
	functions map[string]domain.Function
}

// NewRegistry creates a registry holding the built-in functions. The version
// control queries of gitcheck, hgcheck and svncheck run through executor.
func NewRegistry(executor ports.Executor) *Registry {
	r := &Registry{functions: make(map[string]domain.Function)}
	r.Register("makedirs", MakeDirs)
	r.Register("filecheck", FileCheck)
	r.Register("gitcheck", NewGitCheck(executor).Check)
	r.Register("hgcheck", NewHgCheck(executor).Check)
	r.Register("svncheck", NewSvnCheck(executor).Check)
	return r
}

// Register adds or replaces a function.
func (r *Registry) Register(name string, fn domain.Function) {
	r.functions[name] = fn
}

// Lookup returns the function registered under name.
func (r *Registry) Lookup(name string) (domain.Function, bool) {
	fn, ok := r.functions[name]
	return fn, ok
}

// Names returns the registered names in sorted order.
func (r *Registry) Names() []string {
	return slices.Sorted(maps.Keys(r.functions))
}

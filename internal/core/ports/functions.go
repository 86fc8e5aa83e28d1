package ports

import "github.com/sawolford/onsub/internal/core/domain"

// FunctionRegistry resolves in-process functions by name.
//
//go:generate mockgen -source=functions.go -destination=mocks/mock_functions.go -package=mocks
type FunctionRegistry interface {
	Lookup(name string) (domain.Function, bool)
	Names() []string
}

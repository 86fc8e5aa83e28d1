package ports

import (
	"context"
	"io"
)

// Executor runs a command line through the platform shell.
//
//go:generate mockgen -source=executor.go -destination=mocks/mock_executor.go -package=mocks
type Executor interface {
	// Run executes command in dir, writing combined stdout and stderr to out.
	// A non-zero exit status is reported through the returned code, not the error.
	// The error is reserved for commands that could not be started at all.
	Run(ctx context.Context, dir, command string, out io.Writer) (int, error)
}

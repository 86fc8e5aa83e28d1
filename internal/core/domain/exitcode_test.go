package domain_test

import (
	"errors"
	"testing"

	"github.com/sawolford/onsub/internal/core/domain"
	"github.com/stretchr/testify/assert"
	"go.trai.ch/zerr"
)

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "nil", err: nil, want: 0},
		{name: "usage", err: domain.ErrNotEnoughArguments, want: domain.ExitUsage},
		{name: "unknown error", err: errors.New("boom"), want: domain.ExitUsage},
		{name: "missing config", err: domain.ErrConfigNotFound, want: domain.ExitMissingFile},
		{name: "missing manifest", err: domain.ErrManifestNotFound, want: domain.ExitMissingFile},
		{name: "missing walk root", err: domain.ErrWalkFailed, want: domain.ExitMissingFile},
		{name: "start failure", err: domain.ErrCommandStartFailed, want: domain.ExitUsage},
		{name: "no construct", err: domain.ErrMissingConstruct, want: domain.ExitNoConstruct},
		{name: "unknown function", err: domain.ErrUnknownFunction, want: domain.ExitUnknownFunc},
		{name: "template", err: domain.ErrUnknownVariable, want: domain.ExitTemplate},
		{name: "exhausted", err: domain.ErrSubstitutionExhausted, want: domain.ExitTemplate},
		{name: "interrupted", err: domain.ErrInterrupted, want: domain.ExitInterrupted},
		{
			name: "wrapped with metadata",
			err:  zerr.With(zerr.Wrap(domain.ErrUnknownFunction, "lookup failed"), "function", "fn:x"),
			want: domain.ExitUnknownFunc,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, domain.ExitCode(tt.err))
		})
	}
}

func TestFailureExitCode(t *testing.T) {
	code, clamped := domain.FailureExitCode(3)
	assert.Equal(t, 3, code)
	assert.False(t, clamped)

	code, clamped = domain.FailureExitCode(250)
	assert.Equal(t, 250, code)
	assert.False(t, clamped)

	code, clamped = domain.FailureExitCode(400)
	assert.Equal(t, domain.MaxFailureExitCode, code)
	assert.True(t, clamped)
}

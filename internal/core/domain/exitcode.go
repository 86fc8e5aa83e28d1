package domain

import "errors"

// Reserved process exit codes. Failure counts never reach these values.
const (
	ExitUsage          = 255
	ExitMissingFile    = 254
	ExitNoConstruct    = 253
	ExitUnknownFunc    = 252
	ExitTemplate       = 251
	ExitInterrupted    = 130
	MaxFailureExitCode = 250
)

// ExitCode maps a fatal error to its reserved process exit code.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, ErrInterrupted):
		return ExitInterrupted
	case errors.Is(err, ErrMissingConstruct):
		return ExitNoConstruct
	case errors.Is(err, ErrUnknownFunction):
		return ExitUnknownFunc
	case errors.Is(err, ErrUnknownVariable),
		errors.Is(err, ErrMalformedPlaceholder),
		errors.Is(err, ErrSubstitutionExhausted):
		return ExitTemplate
	case errors.Is(err, ErrConfigNotFound),
		errors.Is(err, ErrConfigReadFailed),
		errors.Is(err, ErrConfigParseFailed),
		errors.Is(err, ErrConfigInvalid),
		errors.Is(err, ErrUnsupportedFormat),
		errors.Is(err, ErrManifestNotFound),
		errors.Is(err, ErrManifestParseFailed),
		errors.Is(err, ErrProfileNotFound),
		errors.Is(err, ErrWalkFailed):
		return ExitMissingFile
	default:
		return ExitUsage
	}
}

// FailureExitCode clamps a failure count to MaxFailureExitCode.
// The second return value reports whether clamping occurred.
func FailureExitCode(failures int) (int, bool) {
	if failures > MaxFailureExitCode {
		return MaxFailureExitCode, true
	}
	return failures, false
}

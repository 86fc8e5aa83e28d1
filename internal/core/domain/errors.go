package domain

import "go.trai.ch/zerr"

var (
	// ErrNotEnoughArguments is returned when no command was given and the profile has no run template.
	ErrNotEnoughArguments = zerr.New("not enough command arguments")

	// ErrInvalidFlag is returned when a flag value cannot be interpreted.
	ErrInvalidFlag = zerr.New("invalid flag value")

	// ErrConfigNotFound is returned when the configuration file does not exist.
	ErrConfigNotFound = zerr.New("configuration file not found")

	// ErrConfigReadFailed is returned when the configuration file cannot be read.
	ErrConfigReadFailed = zerr.New("failed to read configuration file")

	// ErrConfigParseFailed is returned when the configuration file cannot be parsed.
	ErrConfigParseFailed = zerr.New("failed to parse configuration file")

	// ErrConfigInvalid is returned when the configuration is well-formed but semantically invalid.
	ErrConfigInvalid = zerr.New("invalid configuration")

	// ErrUnsupportedFormat is returned for configuration or manifest files with an unknown extension.
	ErrUnsupportedFormat = zerr.New("unsupported file format, expected .yaml, .yml or .toml")

	// ErrManifestNotFound is returned when a manifest file does not exist.
	ErrManifestNotFound = zerr.New("manifest file not found")

	// ErrManifestParseFailed is returned when a manifest file cannot be parsed.
	ErrManifestParseFailed = zerr.New("failed to parse manifest file")

	// ErrProfileNotFound is returned when a profile name is not registered.
	ErrProfileNotFound = zerr.New("profile not found")

	// ErrMissingConstruct is returned when a missing path belongs to a profile without a construct capability.
	ErrMissingConstruct = zerr.New("profile has no construct capability")

	// ErrUnknownFunction is returned when an in-process function key cannot be resolved.
	ErrUnknownFunction = zerr.New("unknown in-process function")

	// ErrUnknownVariable is returned when a placeholder names an undefined variable.
	ErrUnknownVariable = zerr.New("unknown template variable")

	// ErrMalformedPlaceholder is returned when a template contains unbalanced or invalid braces.
	ErrMalformedPlaceholder = zerr.New("malformed template placeholder")

	// ErrSubstitutionExhausted is returned when placeholders remain after the last substitution round.
	ErrSubstitutionExhausted = zerr.New("template substitution did not converge")

	// ErrInterrupted is returned when the run was cancelled by a signal.
	ErrInterrupted = zerr.New("interrupted")

	// ErrCancelled is the error of a future whose work item was dropped before it started.
	ErrCancelled = zerr.New("work item cancelled")

	// ErrPoolClosed is returned when submitting to a pool that no longer accepts work.
	ErrPoolClosed = zerr.New("worker pool is closed")

	// ErrCommandStartFailed is returned when a shell command could not be started.
	ErrCommandStartFailed = zerr.New("failed to start command")

	// ErrWalkFailed is returned when a directory cannot be traversed.
	ErrWalkFailed = zerr.New("failed to walk directory")

	// ErrChdirFailed is returned when the working directory cannot be changed or restored.
	ErrChdirFailed = zerr.New("failed to change working directory")
)

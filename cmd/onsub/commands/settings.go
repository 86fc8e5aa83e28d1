package commands

import (
	"strings"

	"github.com/sawolford/onsub/internal/app"
	"github.com/sawolford/onsub/internal/core/domain"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.trai.ch/zerr"
)

// EnvPrefix prefixes environment variables that set flag defaults.
const EnvPrefix = "ONSUB"

// Flag names double as setting keys in the configuration file.
const (
	flagConfigFile   = "configfile"
	flagConfig       = "config"
	flagLogJSON      = "log-json"
	flagDebug        = "debug"
	flagEnable       = "enable"
	flagDisable      = "disable"
	flagNoEnable     = "noenable"
	flagFile         = "file"
	flagNoFile       = "nofile"
	flagIgnore       = "ignore"
	flagNoIgnore     = "noignore"
	flagDepth        = "depth"
	flagChDir        = "chdir"
	flagComment      = "comment"
	flagNoOp         = "noop"
	flagNoExec       = "noexec"
	flagNoMake       = "nomake"
	flagInvert       = "invert"
	flagDiscard      = "discard"
	flagSuppress     = "suppress"
	flagVerbose      = "verbose"
	flagNoColor      = "nocolor"
	flagColor        = "color"
	flagWorkers      = "workers"
	flagSleepMake    = "sleepmake"
	flagSleepCommand = "sleepcommand"
	flagTTY          = "tty"
	flagOutput       = "output"
	flagCommand      = "command"
	flagCount        = "count"
	flagOpenBrace    = "openbrace"
	flagCloseBrace   = "closebrace"
	flagFnPrefix     = "fn-prefix"
)

const maxVerbose = 5

func addPersistentFlags(cmd *cobra.Command) {
	f := cmd.PersistentFlags()
	f.String(flagConfigFile, "", "Configuration file (default $HOME/.onsub.yaml)")
	f.StringArray(flagConfig, nil, "Override a variable: PROFILE.NAME=VALUE or defaults.NAME=VALUE")
	f.Bool(flagLogJSON, false, "Write diagnostics as JSON")
	f.Bool(flagDebug, false, "Enable debug diagnostics and stream command output")
}

func addRunFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	def := app.DefaultRunOptions()

	f.StringSlice(flagEnable, nil, "Enable a profile for this run")
	f.StringSlice(flagDisable, nil, "Disable a profile for this run")
	f.Bool(flagNoEnable, false, "Ignore enablement from the configuration file")

	f.StringSlice(flagFile, nil, "Read directories from a manifest file instead of walking")
	f.Bool(flagNoFile, false, "Ignore manifest files set in the configuration")
	f.StringSlice(flagIgnore, def.Ignores, "Directory name pattern to skip while walking")
	f.Bool(flagNoIgnore, false, "Walk into every directory")
	f.Int(flagDepth, def.Depth, "Maximum walk depth, negative for unlimited")
	f.String(flagChDir, "", "Directory to start from")
	f.StringArray(flagComment, nil, "Annotation, ignored")

	f.Bool(flagNoOp, false, "Print commands without running them")
	f.Bool(flagNoExec, false, "Ask in-process functions not to make changes")
	f.Bool(flagNoMake, false, "Do not create missing manifest directories")

	f.Bool(flagInvert, false, "Count successes as failures and failures as successes")
	f.Bool(flagDiscard, false, "Treat every result as a success")
	f.Bool(flagSuppress, false, "Do not print the error summary")
	f.Int(flagVerbose, def.Verbose, "Verbosity from 0 (silent) to 5 (completion times)")
	f.Bool(flagNoColor, false, "Disable colors")
	f.String(flagColor, def.Color, "Color mode: auto, always or never")
	f.String(flagOutput, def.Output, "Result format: text or json")

	f.Int(flagWorkers, 0, "Parallel commands, 0 for one per CPU")
	f.Duration(flagSleepMake, 0, "Delay between construct submissions")
	f.Duration(flagSleepCommand, 0, "Delay between command submissions")
	f.Bool(flagTTY, false, "Run commands under a pseudo-terminal")

	f.Bool(flagCommand, false, "Prefix the command with {cmd}")
	f.Int(flagCount, def.Rounds, "Maximum template substitution rounds")
	f.String(flagOpenBrace, def.OpenBrace, "Marker producing a literal {")
	f.String(flagCloseBrace, def.CloseBrace, "Marker producing a literal }")
	f.String(flagFnPrefix, def.FnPrefix, "Prefix selecting an in-process function")
}

// settings layers flags over ONSUB_* environment variables over the
// configuration file's settings over flag defaults.
type settings struct {
	v *viper.Viper
}

func newSettings(cmd *cobra.Command) (*settings, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return nil, zerr.Wrap(err, "cannot bind flags")
	}
	return &settings{v: v}, nil
}

func (s *settings) configFile() string {
	if path := s.v.GetString(flagConfigFile); path != "" {
		return path
	}
	return domain.DefaultConfigPath()
}

// merge adds the configuration file's settings below flags and environment.
func (s *settings) merge(values map[string]any) error {
	if len(values) == 0 {
		return nil
	}
	if err := s.v.MergeConfigMap(values); err != nil {
		return zerr.With(zerr.Wrap(domain.ErrConfigInvalid, "invalid settings"), "cause", err.Error())
	}
	return nil
}

func (s *settings) runOptions(cmd *cobra.Command) (app.RunOptions, error) {
	v := s.v

	files := v.GetStringSlice(flagFile)
	if v.GetBool(flagNoFile) {
		// Only files named on the command line remain.
		files, _ = cmd.Flags().GetStringSlice(flagFile)
	}

	var ignores []string
	if !v.GetBool(flagNoIgnore) {
		ignores = v.GetStringSlice(flagIgnore)
	}

	opts := app.RunOptions{
		Overrides:     v.GetStringSlice(flagConfig),
		Enable:        v.GetStringSlice(flagEnable),
		Disable:       v.GetStringSlice(flagDisable),
		NoEnable:      v.GetBool(flagNoEnable),
		Files:         files,
		ChDir:         v.GetString(flagChDir),
		Depth:         v.GetInt(flagDepth),
		Ignores:       ignores,
		NoOp:          v.GetBool(flagNoOp),
		NoExec:        v.GetBool(flagNoExec),
		NoMake:        v.GetBool(flagNoMake),
		Invert:        v.GetBool(flagInvert),
		Discard:       v.GetBool(flagDiscard),
		Suppress:      v.GetBool(flagSuppress),
		Verbose:       v.GetInt(flagVerbose),
		Debug:         v.GetBool(flagDebug),
		Color:         v.GetString(flagColor),
		NoColor:       v.GetBool(flagNoColor),
		Output:        v.GetString(flagOutput),
		Workers:       v.GetInt(flagWorkers),
		SleepMake:     v.GetDuration(flagSleepMake),
		SleepCommand:  v.GetDuration(flagSleepCommand),
		TTY:           v.GetBool(flagTTY),
		CommandPrefix: v.GetBool(flagCommand),
		Rounds:        v.GetInt(flagCount),
		OpenBrace:     v.GetString(flagOpenBrace),
		CloseBrace:    v.GetString(flagCloseBrace),
		FnPrefix:      v.GetString(flagFnPrefix),
	}

	switch {
	case opts.Verbose < 0 || opts.Verbose > maxVerbose:
		return opts, zerr.With(zerr.Wrap(domain.ErrInvalidFlag, "verbosity out of range"), flagVerbose, opts.Verbose)
	case opts.Workers < 0:
		return opts, zerr.With(zerr.Wrap(domain.ErrInvalidFlag, "negative worker count"), flagWorkers, opts.Workers)
	case opts.Rounds < 0:
		return opts, zerr.With(zerr.Wrap(domain.ErrInvalidFlag, "negative substitution rounds"), flagCount, opts.Rounds)
	case opts.OpenBrace == "" || opts.CloseBrace == "" || opts.FnPrefix == "":
		return opts, zerr.Wrap(domain.ErrInvalidFlag, "escape markers and function prefix must not be empty")
	}
	return opts, nil
}

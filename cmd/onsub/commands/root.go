// Package commands implements the CLI commands for onsub.
package commands

import (
	"context"
	"fmt"
	"io"

	"github.com/sawolford/onsub/internal/app"
	"github.com/sawolford/onsub/internal/build"
	"github.com/sawolford/onsub/internal/core/domain"
	"github.com/sawolford/onsub/internal/core/ports"
	"github.com/spf13/cobra"
)

// CLI represents the command line interface for onsub.
type CLI struct {
	app     Application
	logger  ports.Logger
	rootCmd *cobra.Command
	status  int
}

// Application represents the application logic interface.
type Application interface {
	LoadConfig(path string) (*domain.Config, error)
	Run(ctx context.Context, cfg *domain.Config, args []string, opts app.RunOptions) (int, error)
	Dump(w io.Writer, cfg *domain.Config, names []string) error
}

// New creates a new CLI instance with the given app. The logger may be nil.
func New(a Application, log ports.Logger) *CLI {
	rootCmd := &cobra.Command{
		Use:   "onsub [flags] command...",
		Short: "Run a command in every matching subdirectory",
		Long: `onsub walks a directory tree (or reads manifest files), picks the
best-matching profile for every directory and runs the command there
in parallel. Flag defaults can be set under "settings:" in the
configuration file or through ONSUB_* environment variables.`,
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       build.Version,
		// Keep "completion" free for use as a command token.
		CompletionOptions: cobra.CompletionOptions{DisableDefaultCmd: true},
	}

	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"{{.Name}} version {{.Version}} (commit: %s, date: %s)\n",
		build.Commit,
		build.Date,
	))
	rootCmd.InitDefaultVersionFlag()
	rootCmd.Flags().Lookup("version").Usage = "Print the application version"

	rootCmd.InitDefaultHelpFlag()
	rootCmd.Flags().Lookup("help").Usage = "Show help for command"

	c := &CLI{
		app:     a,
		logger:  log,
		rootCmd: rootCmd,
	}

	addPersistentFlags(rootCmd)
	addRunFlags(rootCmd)
	// Command tokens such as "ls -la" must reach the command untouched.
	rootCmd.Flags().SetInterspersed(false)
	rootCmd.RunE = c.runE

	rootCmd.AddCommand(c.newDumpCmd())
	rootCmd.AddCommand(c.newVersionCmd())

	return c
}

// Execute runs the root command with the given context and returns the
// process status of a completed run.
func (c *CLI) Execute(ctx context.Context) (int, error) {
	c.status = 0
	c.rootCmd.SetContext(ctx)
	if err := c.rootCmd.Execute(); err != nil {
		return 0, err
	}
	return c.status, nil
}

// SetArgs sets the arguments for the root command. Used for testing.
func (c *CLI) SetArgs(args []string) {
	c.rootCmd.SetArgs(args)
}

// SetOutput sets the output and error streams for the root command. Used for testing.
func (c *CLI) SetOutput(out, err io.Writer) {
	c.rootCmd.SetOut(out)
	c.rootCmd.SetErr(err)
}

func (c *CLI) runE(cmd *cobra.Command, args []string) error {
	s, err := newSettings(cmd)
	if err != nil {
		return err
	}
	cfg, err := c.loadConfig(s)
	if err != nil {
		return err
	}

	opts, err := s.runOptions(cmd)
	if err != nil {
		return err
	}

	status, err := c.app.Run(cmd.Context(), cfg, args, opts)
	if err != nil {
		return err
	}
	c.status = status
	return nil
}

// loadConfig configures the logger, then loads the configuration file and
// layers its settings below flags and environment variables.
func (c *CLI) loadConfig(s *settings) (*domain.Config, error) {
	c.configureLogger(s)

	cfg, err := c.app.LoadConfig(s.configFile())
	if err != nil {
		return nil, err
	}
	if err := s.merge(cfg.Settings); err != nil {
		return nil, err
	}
	// Settings may change logging too.
	c.configureLogger(s)
	return cfg, nil
}

func (c *CLI) configureLogger(s *settings) {
	if c.logger == nil {
		return
	}
	if l, ok := c.logger.(interface{ SetJSON(bool) }); ok {
		l.SetJSON(s.v.GetBool(flagLogJSON))
	}
	if l, ok := c.logger.(interface{ SetDebug(bool) }); ok {
		l.SetDebug(s.v.GetBool(flagDebug))
	}
}

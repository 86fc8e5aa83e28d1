package commands

import (
	"github.com/sawolford/onsub/internal/app"
	"github.com/spf13/cobra"
)

func (c *CLI) newDumpCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "dump [profile...]",
		Short: "Print profile variables as YAML",
		Long: `dump prints the enablement, variables, commands and functions of the
named profiles, or of every profile, after --config overrides.
Variables are evaluated for the current directory.`,
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSettings(cmd)
			if err != nil {
				return err
			}
			cfg, err := c.loadConfig(s)
			if err != nil {
				return err
			}
			if err := app.ApplyOverrides(cfg.Profiles, s.v.GetStringSlice(flagConfig)); err != nil {
				return err
			}
			return c.app.Dump(cmd.OutOrStdout(), cfg, args)
		},
	}
}

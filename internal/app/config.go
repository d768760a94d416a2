package app

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"lending-library/internal/config"
)

func newConfigCmd(s *session) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect or write the configuration file",
	}
	cmd.AddCommand(newConfigInitCmd(s), newConfigShowCmd(s))
	return cmd
}

func newConfigInitCmd(s *session) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write the effective configuration to the config file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if _, err := os.Stat(s.cfg.Path); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", s.cfg.Path)
			}
			if err := config.Save(s.cfg); err != nil {
				return fmt.Errorf("writing config: %w", err)
			}
			s.out.ok("Wrote %s", s.cfg.Path)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing file")
	return cmd
}

func newConfigShowCmd(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if s.out.json {
				return s.out.encode(s.cfg)
			}
			s.out.header("# %s", s.cfg.Path)
			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			defer enc.Close()
			return enc.Encode(s.cfg)
		},
	}
}

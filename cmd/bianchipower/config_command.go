package main

import (
	"github.com/spf13/cobra"

	"github.com/cwbudde/algo-survey/internal/config"
)

func newConfigCommand() *cobra.Command {
	var path string
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the effective run file",
		Long:  "Print the run file that results from the built-in defaults and --config.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(path)
			if err != nil {
				return err
			}
			raw, err := config.Encode(*cfg)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(raw)
			return err
		},
	}
	cmd.Flags().StringVarP(&path, "config", "c", "", "TOML run file")
	return cmd
}

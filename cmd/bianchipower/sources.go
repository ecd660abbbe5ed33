package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cwbudde/algo-survey/catalog"
	"github.com/cwbudde/algo-survey/storage"
)

func newSourcesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "sources",
		Short: "List catalog sources and output formats",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			rows := [][]string{}
			for _, name := range catalog.Sources.Names() {
				rows = append(rows, []string{"source", name})
			}
			for _, name := range storage.Formats() {
				rows = append(rows, []string{"format", name})
			}
			fmt.Fprintln(out, renderTable(out, []string{"kind", "name"}, rows, nil))
			return nil
		},
	}
}

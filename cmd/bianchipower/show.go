package main

import (
	"fmt"
	"io"
	"math"
	"slices"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/cwbudde/algo-survey/storage"
)

func newShowCommand() *cobra.Command {
	var showMeta bool
	cmd := &cobra.Command{
		Use:   "show <file>",
		Short: "Print a stored 1d measurement as a table",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := storage.Read1D(args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderMeasurement(out, m))
			if showMeta {
				fmt.Fprintln(out, renderMeta(out, m.Meta))
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&showMeta, "meta", "m", false, "also print the metadata")
	return cmd
}

func renderMeasurement(w io.Writer, m *storage.Measurement) string {
	headers := append([]string{"bin", "k_lo", "k_hi"}, m.Columns...)
	right := make(map[int]bool, len(headers))
	for i := range headers {
		right[i] = true
	}

	var rows [][]string
	if len(m.Data) > 0 {
		for r := range m.Data[0] {
			row := []string{strconv.Itoa(r), edge(m.Edges, r), edge(m.Edges, r+1)}
			for c := range m.Data {
				row = append(row, formatValue(m.Data[c][r]))
			}
			rows = append(rows, row)
		}
	}
	return renderTable(w, headers, rows, right)
}

func renderMeta(w io.Writer, meta storage.Meta) string {
	keys := make([]string, 0, len(meta))
	for k := range meta {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	rows := make([][]string, len(keys))
	for i, k := range keys {
		rows[i] = []string{k, fmt.Sprint(meta[k])}
	}
	return renderTable(w, []string{"key", "value"}, rows, nil)
}

func edge(edges []float64, i int) string {
	if i < 0 || i >= len(edges) {
		return ""
	}
	return formatValue(edges[i])
}

func formatValue(v float64) string {
	if math.IsNaN(v) {
		return "-"
	}
	return strconv.FormatFloat(v, 'g', 6, 64)
}

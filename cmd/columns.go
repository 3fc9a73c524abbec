package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/KaramelBytes/tabletalk/internal/web"
	"github.com/spf13/cobra"
)

var columnsCmd = &cobra.Command{
	Use:   "columns",
	Short: "List dataset columns and their inferred types",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := requireConfig()
		if err != nil {
			return err
		}
		t, err := newLoader(c, currentLogger()).Load(cmd.Context())
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%s: %d rows, %d columns\n", t.Name(), t.Len(), len(t.Columns()))
		tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		kinds := t.Kinds()
		for i, col := range t.Columns() {
			fmt.Fprintf(tw, "  %s\t%s\n", col, kinds[i])
		}
		if err := tw.Flush(); err != nil {
			return err
		}
		opts := web.PlotOptions(t.Columns(), c.PlotColumns)
		if len(opts) == 0 {
			fmt.Fprintln(out, "⚠ No plottable columns (check plot_columns)")
			return nil
		}
		fmt.Fprintf(out, "Plot options: %v\n", opts)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(columnsCmd)
}

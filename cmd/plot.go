package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var plotOutput string

var plotCmd = &cobra.Command{
	Use:   "plot <x> <y>",
	Short: "Render a scatter plot of two dataset columns",
	Example: `  tabletalk plot price area
  tabletalk plot price bedrooms --output ./price_bedrooms.png`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := requireConfig()
		if err != nil {
			return err
		}
		if plotOutput != "" {
			c.PlotPath = plotOutput
		}
		log := currentLogger()
		plots, err := buildPlotService(c, newLoader(c, log), log)
		if err != nil {
			return err
		}
		a, err := plots.Plot(cmd.Context(), args[0], args[1])
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "✓ %s\n", a.Message())
		fmt.Fprintf(out, "  path: %s\n", a.Path)
		if a.Skipped > 0 {
			fmt.Fprintf(out, "⚠ %d of %d rows skipped (missing or non-numeric)\n", a.Skipped, a.Points+a.Skipped)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(plotCmd)
	plotCmd.Flags().StringVarP(&plotOutput, "output", "o", "", "image path (overrides plot_path)")
}

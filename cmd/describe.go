package cmd

import (
	"fmt"

	"github.com/KaramelBytes/tabletalk/internal/utils"
	"github.com/spf13/cobra"
)

var (
	descOutput string
	descJSON   bool
)

var describeCmd = &cobra.Command{
	Use:   "describe",
	Short: "Summarize the dataset column by column",
	Example: `  tabletalk describe
  tabletalk describe --json
  tabletalk describe --output ./housing.summary.md`,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := requireConfig()
		if err != nil {
			return err
		}
		t, err := newLoader(c, currentLogger()).Load(cmd.Context())
		if err != nil {
			return err
		}
		p := t.Profile()
		var body []byte
		if descJSON {
			if body, err = utils.PrettyJSON(p); err != nil {
				return err
			}
		} else {
			body = []byte(p.Markdown())
		}
		if descOutput == "" {
			fmt.Fprintln(cmd.OutOrStdout(), string(body))
			return nil
		}
		if err := utils.SafeWriteFile(descOutput, body); err != nil {
			return fmt.Errorf("write output: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Wrote summary to %s\n", descOutput)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(describeCmd)
	describeCmd.Flags().StringVarP(&descOutput, "output", "o", "", "write the summary to this file instead of stdout")
	describeCmd.Flags().BoolVar(&descJSON, "json", false, "emit JSON instead of Markdown")
}

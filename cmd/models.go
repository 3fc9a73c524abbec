package cmd

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/KaramelBytes/tabletalk/internal/ai"
	"github.com/spf13/cobra"
)

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List models installed on the local Ollama runtime",
	Long: `Lists the models the Ollama runtime at ollama_host has installed and checks
that the configured model is one of them. The context window column comes from
the built-in catalog used to size prompts.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := requireConfig()
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if c.Provider != ai.ProviderOllama {
			fmt.Fprintf(out, "⚠ provider is %s; listing models from Ollama at %s anyway\n", c.Provider, c.OllamaHost)
		}
		client := ai.NewOllamaClient(c.OllamaHost, c.HTTPTimeout(), 0, 0, 0)
		ctx, cancel := context.WithTimeout(cmd.Context(), c.HTTPTimeout())
		defer cancel()
		models, err := client.ListModels(ctx)
		if err != nil {
			return fmt.Errorf("list models: %w", err)
		}
		if len(models) == 0 {
			fmt.Fprintf(out, "No models installed. Install one with 'ollama pull %s'\n", c.Model)
			return nil
		}

		tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "\tNAME\tSIZE\tCONTEXT\tMODIFIED")
		configured := false
		for _, m := range models {
			mark := ""
			if m.Name == c.Model || m.Name == c.Model+":latest" {
				mark = "*"
				configured = true
			}
			ctxCol := "-"
			if mi, ok := ai.LookupModel(m.Name); ok {
				ctxCol = fmt.Sprintf("%d", mi.ContextTokens)
			}
			modified := "-"
			if !m.ModifiedAt.IsZero() {
				modified = m.ModifiedAt.Format(time.DateOnly)
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", mark, m.Name, humanSize(m.Size), ctxCol, modified)
		}
		if err := tw.Flush(); err != nil {
			return err
		}
		if c.Provider == ai.ProviderOllama {
			if configured {
				fmt.Fprintf(out, "✓ Configured model %s is installed\n", c.Model)
			} else {
				fmt.Fprintf(out, "⚠ Configured model %s is not installed. Install it with 'ollama pull %s'\n", c.Model, c.Model)
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(modelsCmd)
}

func humanSize(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(n)/float64(div), "KMGTPE"[exp])
}

package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/KaramelBytes/tabletalk/internal/prompt"
	"github.com/KaramelBytes/tabletalk/internal/qa"
	"github.com/KaramelBytes/tabletalk/internal/utils"
	"github.com/spf13/cobra"
)

var (
	askStream        bool
	askVerbose       bool
	askPrintPrompt   bool
	askDryRun        bool
	askPreviewTokens int
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask the model a question about the dataset",
	Example: `  tabletalk ask "What is the average price?"
  tabletalk ask --stream --dataset ./Housing.csv "Which houses have 4 bedrooms?"
  tabletalk ask --dry-run "How many rows are there?"`,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := requireConfig()
		if err != nil {
			return err
		}
		// Queries go to the model as typed, empty ones included.
		query := strings.Join(args, " ")
		out := cmd.OutOrStdout()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		if askPrintPrompt || askDryRun {
			t, err := newLoader(c, currentLogger()).Load(ctx)
			if err != nil {
				return err
			}
			p, err := prompt.NewBuilder(promptPolicy(c)).Build(t, query)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Tokens: total≈%d (instructions≈%d, table≈%d, summary≈%d, question≈%d)\n",
				p.EstimatedTokens, p.Sections["instructions"], p.Sections["table"], p.Sections["summary"], p.Sections["question"])
			if p.Truncated {
				fmt.Fprintf(out, "⚠ Dataset truncated to %d of %d rows; a column profile was added.\n", p.RowsIncluded, p.RowsTotal)
			}
			preview := p.System
			if askPreviewTokens > 0 {
				preview = utils.TruncateToTokenLimit(preview, askPreviewTokens)
			}
			fmt.Fprintln(out, "-- prompt --")
			fmt.Fprintln(out, preview)
			if askDryRun {
				fmt.Fprintln(out, "--dry-run: no model call was made")
				return nil
			}
		}

		svc, err := buildServices(ctx, c, nil)
		if err != nil {
			return err
		}
		if askVerbose {
			fmt.Fprintf(out, "⚙ Asking model=%s via %s ...\n", c.Model, c.Provider)
		}

		var ans *qa.Answer
		if askStream {
			ans, err = svc.qa.AskStream(ctx, query, func(delta string) { fmt.Fprint(out, delta) })
			if err == nil {
				fmt.Fprintln(out)
			}
		} else {
			ans, err = svc.qa.Ask(ctx, query)
			if err == nil {
				fmt.Fprintln(out, ans.Text)
			}
		}
		if err != nil {
			return err
		}
		if askVerbose {
			fmt.Fprintf(out, "Rows: %d/%d sent, prompt≈%d tokens, elapsed %s\n",
				ans.RowsIncluded, ans.RowsTotal, ans.EstimatedTokens, ans.Elapsed.Round(time.Millisecond))
			if ans.Usage.TotalTokens > 0 {
				fmt.Fprintf(out, "Usage: prompt=%d completion=%d total=%d\n",
					ans.Usage.PromptTokens, ans.Usage.CompletionTokens, ans.Usage.TotalTokens)
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(askCmd)
	askCmd.Flags().BoolVar(&askStream, "stream", false, "print the answer as it is generated")
	askCmd.Flags().BoolVarP(&askVerbose, "verbose", "v", false, "print model, row and token details")
	askCmd.Flags().BoolVar(&askPrintPrompt, "print-prompt", false, "print the prompt before sending it")
	askCmd.Flags().BoolVar(&askDryRun, "dry-run", false, "print the prompt and exit without calling the model")
	askCmd.Flags().IntVar(&askPreviewTokens, "preview-tokens", 400, "truncate the printed prompt to about this many tokens (0 = full)")
}

package cmd

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/shaurya-ahuja/quicknotes-ai/config"
)

// NewAskCommand creates the 'ask' command.
func NewAskCommand(app *App) *cobra.Command {
	var (
		topK         int
		outputFormat string
	)

	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Ask a natural-language question across all processed meetings",
		Long: `Ask retrieves the most relevant meeting excerpts from the vector index
and produces an answer grounded in them, citing the source meetings.

When nothing has been indexed yet the command reports that directly, without
calling the generation backend.

Examples:
  quicknotes ask "what did we decide about the Q3 budget?"
  quicknotes ask "who owns the migration?" -k 10
  quicknotes ask "open action items for Alice" --output json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			question := strings.Join(args, " ")
			k := topK
			if k == 0 {
				k = app.Config.Index.TopK
			}

			answer, err := app.QueryEngine().Ask(cmd.Context(), question, k)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if config.OutputFormat(outputFormat) == config.OutputFormatJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(answer)
			}

			fmt.Fprintln(out, answer.Text)
			if len(answer.MeetingIDs) > 0 {
				fmt.Fprintf(out, "\nCited meetings: %s\n", strings.Join(answer.MeetingIDs, ", "))
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&topK, "top-k", "k", 0, "Number of excerpts to retrieve (default from config)")
	cmd.Flags().StringVarP(&outputFormat, "output", "o", "text", "Output format: text, json")

	return cmd
}

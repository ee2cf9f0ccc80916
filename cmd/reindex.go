package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/shaurya-ahuja/quicknotes-ai/pkg/index"
	"github.com/shaurya-ahuja/quicknotes-ai/pkg/logging"
	"github.com/shaurya-ahuja/quicknotes-ai/pkg/note"
)

// NewReindexCommand creates the 'reindex' command.
func NewReindexCommand(app *App) *cobra.Command {
	var (
		all    bool
		worker bool
	)

	cmd := &cobra.Command{
		Use:   "reindex [meeting-id]",
		Short: "Rebuild the vector index for one or all meetings",
		Long: `Reindex recomputes chunks and embeddings for stored meetings. Use it
after switching embedding models, or to retry meetings whose indexing failed
during processing.

With --worker the command runs a queue consumer that drains meetings parked
by indexing failures. It requires Redis and runs until interrupted.

Examples:
  quicknotes reindex 7b0c...
  quicknotes reindex --all
  quicknotes reindex --worker`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			switch {
			case worker:
				if app.Queue == nil {
					return fmt.Errorf("--worker requires a redis address in the configuration")
				}
				app.Logger.Info("reindex worker started")
				w := index.NewWorker(app.Queue, app.reindexMeeting, app.Logger)
				return w.Run(ctx)

			case all:
				meetings, err := app.Store.ListMeetings(ctx)
				if err != nil {
					return err
				}
				var done, failed int
				for _, m := range meetings {
					if m.Status != note.StatusComplete {
						continue
					}
					if err := app.reindexMeeting(ctx, m.ID); err != nil {
						app.Logger.Error("reindex failed",
							logging.F("meeting_id", m.ID), logging.Err(err))
						failed++
						continue
					}
					done++
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Reindexed %d meetings, %d failed\n", done, failed)
				return nil

			case len(args) == 1:
				if err := app.reindexMeeting(ctx, args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Reindexed meeting %s\n", args[0])
				return nil

			default:
				return fmt.Errorf("a meeting id, --all, or --worker is required")
			}
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "Reindex every completed meeting")
	cmd.Flags().BoolVar(&worker, "worker", false, "Run as a queue-draining reindex worker")

	return cmd
}

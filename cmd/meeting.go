package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/shaurya-ahuja/quicknotes-ai/config"
	"github.com/shaurya-ahuja/quicknotes-ai/pkg/export"
	"github.com/shaurya-ahuja/quicknotes-ai/pkg/logging"
	"github.com/shaurya-ahuja/quicknotes-ai/pkg/note"
)

// NewMeetingCommand creates the 'meeting' command group.
func NewMeetingCommand(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "meeting",
		Short: "Inspect and manage processed meetings",
		Long: `Commands for working with stored meetings.

Commands:
  list    - List meetings, optionally filtered by keyword
  show    - Show one meeting's summary, actions, and transcript
  actions - List or toggle a meeting's action items
  export  - Write a meeting as JSON or markdown
  delete  - Remove a meeting and everything derived from it`,
	}

	cmd.AddCommand(newMeetingListCommand(app))
	cmd.AddCommand(newMeetingShowCommand(app))
	cmd.AddCommand(newMeetingActionsCommand(app))
	cmd.AddCommand(newMeetingExportCommand(app))
	cmd.AddCommand(newMeetingDeleteCommand(app))
	return cmd
}

func newMeetingListCommand(app *App) *cobra.Command {
	var (
		search string
		tag    string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List meetings, newest first",
		Example: `  quicknotes meeting list
  quicknotes meeting list --search budget
  quicknotes meeting list --tag planning`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			var (
				meetings []*note.Meeting
				err      error
			)
			if search != "" {
				meetings, err = app.Store.SearchMeetings(ctx, search)
			} else {
				meetings, err = app.Store.ListMeetings(ctx)
			}
			if err != nil {
				return err
			}
			if tag != "" {
				meetings = filterByTag(meetings, tag)
			}

			out := cmd.OutOrStdout()
			if len(meetings) == 0 {
				fmt.Fprintln(out, "No meetings found.")
				return nil
			}
			for _, m := range meetings {
				status := string(m.Status)
				if m.Status == note.StatusFailed {
					status = fmt.Sprintf("failed(%s)", m.FailedStage)
				}
				fmt.Fprintf(out, "%s  %s  %-18s %s\n",
					m.ID, m.CreatedAt.Format("2006-01-02 15:04"), status, m.Title)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&search, "search", "s", "", "Keyword filter over title, transcript, and summary")
	cmd.Flags().StringVar(&tag, "tag", "", "Only meetings carrying this tag")
	return cmd
}

func filterByTag(meetings []*note.Meeting, tag string) []*note.Meeting {
	var out []*note.Meeting
	for _, m := range meetings {
		for _, t := range m.Tags {
			if strings.EqualFold(t, tag) {
				out = append(out, m)
				break
			}
		}
	}
	return out
}

func newMeetingShowCommand(app *App) *cobra.Command {
	var outputFormat string

	cmd := &cobra.Command{
		Use:   "show <meeting-id>",
		Short: "Show a meeting's summary, action items, and transcript",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			record, err := loadRecord(cmd, app, args[0])
			if err != nil {
				return err
			}
			return writeRecord(cmd, record, config.OutputFormat(outputFormat))
		},
	}

	cmd.Flags().StringVarP(&outputFormat, "output", "o", "text", "Output format: text, json, markdown")
	return cmd
}

func newMeetingActionsCommand(app *App) *cobra.Command {
	var (
		toggle        string
		hideCompleted bool
	)

	cmd := &cobra.Command{
		Use:   "actions <meeting-id>",
		Short: "List a meeting's action items, or toggle one",
		Example: `  quicknotes meeting actions 7b0c...
  quicknotes meeting actions 7b0c... --toggle <item-id>
  quicknotes meeting actions 7b0c... --hide-completed`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			if toggle != "" {
				item, err := app.Store.ToggleActionItem(ctx, toggle)
				if err != nil {
					return err
				}
				state := "open"
				if item.Completed {
					state = "done"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", state, item.String())
				return nil
			}

			items, err := app.Store.ListActionItems(ctx, args[0])
			if err != nil {
				return err
			}
			if len(items) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No action items.")
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), export.Checklist(items, !hideCompleted))
			return nil
		},
	}

	cmd.Flags().StringVar(&toggle, "toggle", "", "Toggle completion of the given action item id")
	cmd.Flags().BoolVar(&hideCompleted, "hide-completed", false, "Hide completed items")
	return cmd
}

func newMeetingExportCommand(app *App) *cobra.Command {
	var (
		outputFormat string
		outFile      string
	)

	cmd := &cobra.Command{
		Use:   "export <meeting-id>",
		Short: "Export a meeting as structured JSON or markdown",
		Example: `  quicknotes meeting export 7b0c... -o markdown > notes.md
  quicknotes meeting export 7b0c... -o json --file meeting.json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			record, err := loadRecord(cmd, app, args[0])
			if err != nil {
				return err
			}

			if outFile != "" {
				f, err := os.Create(outFile)
				if err != nil {
					return fmt.Errorf("create output file: %w", err)
				}
				defer f.Close()
				cmd.SetOut(f)
			}
			format := config.OutputFormat(outputFormat)
			if format == config.OutputFormatText {
				format = config.OutputFormatMarkdown
			}
			return writeRecord(cmd, record, format)
		},
	}

	cmd.Flags().StringVarP(&outputFormat, "output", "o", "markdown", "Output format: json, markdown")
	cmd.Flags().StringVar(&outFile, "file", "", "Write to a file instead of stdout")
	return cmd
}

func newMeetingDeleteCommand(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <meeting-id>",
		Short: "Delete a meeting, its action items, and its index chunks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := app.Store.DeleteMeeting(ctx, args[0]); err != nil {
				return err
			}
			if err := app.Indexer.Remove(ctx, args[0]); err != nil {
				app.Logger.Warn("removing meeting from index", logging.Err(err))
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted meeting %s\n", args[0])
			return nil
		},
	}
	return cmd
}

func loadRecord(cmd *cobra.Command, app *App, meetingID string) (*export.Record, error) {
	ctx := cmd.Context()
	m, err := app.Store.GetMeeting(ctx, meetingID)
	if err != nil {
		return nil, err
	}
	items, err := app.Store.ListActionItems(ctx, meetingID)
	if err != nil {
		return nil, err
	}
	return export.NewRecord(m, items), nil
}

func writeRecord(cmd *cobra.Command, record *export.Record, format config.OutputFormat) error {
	out := cmd.OutOrStdout()
	switch format {
	case config.OutputFormatJSON:
		return record.WriteJSON(out)
	case config.OutputFormatMarkdown:
		return record.WriteMarkdown(out)
	default:
		fmt.Fprintf(out, "%s (%s)\n", record.Title, record.CreatedAt.Format("2006-01-02 15:04"))
		fmt.Fprintf(out, "Status: %s", record.Status)
		if record.Error != "" {
			fmt.Fprintf(out, " (%s)", record.Error)
		}
		fmt.Fprintln(out)
		if len(record.Speakers) > 0 {
			fmt.Fprintf(out, "Speakers: %s\n", strings.Join(record.Speakers, ", "))
		}
		if len(record.Summary) > 0 {
			fmt.Fprintln(out, "\nSummary:")
			for _, bullet := range record.Summary {
				fmt.Fprintf(out, "  - %s\n", bullet)
			}
		}
		if len(record.ActionItems) > 0 {
			fmt.Fprintln(out, "\nAction items:")
			fmt.Fprintln(out, export.Checklist(record.ActionItems, true))
		}
		return nil
	}
}

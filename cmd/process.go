package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/shaurya-ahuja/quicknotes-ai/pkg/diarize"
	"github.com/shaurya-ahuja/quicknotes-ai/pkg/ingest"
	"github.com/shaurya-ahuja/quicknotes-ai/pkg/note"
)

// NewProcessCommand creates the 'process' command.
func NewProcessCommand(app *App) *cobra.Command {
	var (
		title          string
		language       string
		tags           []string
		transcriptFile string
	)

	cmd := &cobra.Command{
		Use:   "process <audio-file>",
		Short: "Process a meeting recording into notes, action items, and the index",
		Long: `Process runs a recording through the full pipeline: transcription,
speaker attribution, summarization, action item extraction, and indexing.

A pre-transcribed meeting can be processed without audio via --transcript;
the transcription stage is skipped and the file's speaker labels are kept.

Examples:
  # Process a recording
  quicknotes process standup.wav --title "Daily standup"

  # Force the transcription language
  quicknotes process retro.wav --language es

  # Process an existing transcript file
  quicknotes process --transcript notes.txt --title "Planning" --tags planning,q3`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 && transcriptFile == "" {
				return fmt.Errorf("an audio file or --transcript is required")
			}

			m := note.NewMeeting(title)
			m.Language = language
			m.Tags = tags
			if len(args) > 0 {
				m.AudioPath = args[0]
				if m.Title == "" {
					m.Title = args[0]
				}
			}
			if m.Title == "" {
				m.Title = transcriptFile
			}

			ctx := cmd.Context()
			if err := app.Store.SaveMeeting(ctx, m); err != nil {
				return err
			}

			if transcriptFile != "" {
				return processTranscript(cmd, app, m, transcriptFile)
			}

			if err := app.Pipeline().Process(ctx, m); err != nil {
				return fmt.Errorf("processing failed at %s: %w", m.FailedStage, err)
			}

			return printMeetingResult(cmd, app, m)
		},
	}

	cmd.Flags().StringVarP(&title, "title", "t", "", "Meeting title (defaults to the file name)")
	cmd.Flags().StringVarP(&language, "language", "l", "", "Language hint, e.g. en, es (default: auto-detect)")
	cmd.Flags().StringSliceVar(&tags, "tags", nil, "Comma-separated tags")
	cmd.Flags().StringVar(&transcriptFile, "transcript", "", "Process a transcript file instead of audio")

	return cmd
}

// processTranscript feeds a pre-transcribed meeting into the pipeline from
// the diarization stage onward.
func processTranscript(cmd *cobra.Command, app *App, m *note.Meeting, path string) error {
	ctx := cmd.Context()

	segments, err := ingest.ParseTranscriptFile(path)
	if err != nil {
		return err
	}
	m.Segments = segments

	// Labels supplied by the file are kept; only unlabeled segments get
	// pause-based attribution.
	unlabeled := true
	for _, seg := range segments {
		if seg.Speaker != "" {
			unlabeled = false
			break
		}
	}
	if unlabeled {
		stage := diarize.NewStage(diarize.Config{}, app.Logger)
		m.Status = note.StatusDiarizing
		if err := app.Store.SaveMeeting(ctx, m); err != nil {
			return err
		}
		if err := stage.Run(ctx, m); err != nil {
			app.Logger.Warn("diarization degraded")
		}
	}

	p := app.Pipeline()
	if err := p.ProcessFromSummarizing(ctx, m); err != nil {
		return fmt.Errorf("processing failed at %s: %w", m.FailedStage, err)
	}
	return printMeetingResult(cmd, app, m)
}

func printMeetingResult(cmd *cobra.Command, app *App, m *note.Meeting) error {
	ctx := cmd.Context()
	items, err := app.Store.ListActionItems(ctx, m.ID)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Meeting %s (%s)\n", m.ID, m.Title)
	fmt.Fprintf(out, "Status: %s\n", m.Status)
	fmt.Fprintf(out, "Language: %s, speakers: %s\n", m.Language, strings.Join(m.Speakers(), ", "))
	if len(m.Summary) > 0 {
		fmt.Fprintln(out, "\nSummary:")
		for _, bullet := range m.Summary {
			fmt.Fprintf(out, "  - %s\n", bullet)
		}
	}
	if len(items) > 0 {
		fmt.Fprintln(out, "\nAction items:")
		for _, item := range items {
			fmt.Fprintf(out, "  - %s\n", item.String())
		}
	}
	return nil
}

// Package main provides the quicknotes CLI entry point.
// quicknotes turns meeting recordings into searchable notes using local
// models for transcription, summarization, and retrieval.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/shaurya-ahuja/quicknotes-ai/cmd"
	"github.com/shaurya-ahuja/quicknotes-ai/config"
)

// Global flags and state.
var (
	cfgFile     string
	debug       bool
	memoryStore bool

	// app is shared by all commands; PersistentPreRunE wires it once the
	// configuration is loaded.
	app = &cmd.App{}
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "quicknotes",
	Short: "Meeting notes, action items, and Q&A from recordings",
	Long: `quicknotes processes meeting recordings into transcripts, summaries,
and action items, then answers questions across all processed meetings.

Everything runs against local backends: a Whisper-compatible server for
transcription, Ollama for summaries, answers, and embeddings, PostgreSQL
for storage, and optionally Redis for the reindex queue.

COMMON WORKFLOWS:
  Process a recording:  quicknotes process standup.wav --title "Standup"
  Ask a question:       quicknotes ask "what did we decide about the budget?"
  Review a meeting:     quicknotes meeting list  ->  quicknotes meeting show <id>
  Track action items:   quicknotes meeting actions <id> --toggle <item-id>
  Export notes:         quicknotes meeting export <id> -o markdown

Configuration lives at ~/.quicknotes/config.yaml; run
'quicknotes config init' to create it. QUICKNOTES_* environment
variables override file values.`,
	SilenceUsage: true,
	PersistentPreRunE: func(c *cobra.Command, args []string) error {
		if c.Name() == "version" || c.Name() == "help" || c.Name() == "completion" {
			return nil
		}

		var (
			cfg *config.Config
			err error
		)
		if cfgFile != "" {
			cfg, err = config.LoadFromFile(cfgFile)
		} else {
			cfg, err = config.Load()
		}
		if err != nil {
			return fmt.Errorf("loading configuration: %w", err)
		}

		if debug {
			cfg.Logging.Level = "debug"
		}
		if memoryStore {
			cfg.MemoryStore = true
		}

		// Config commands only need the parsed configuration, not the
		// backends behind it.
		if c.Parent() != nil && c.Parent().Name() == "config" {
			app.Config = cfg
			return nil
		}
		return app.Init(c.Context(), cfg)
	},
	PersistentPostRun: func(c *cobra.Command, args []string) {
		if app.Store != nil {
			app.Close()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Config file (default ~/.quicknotes/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&memoryStore, "memory-store", false, "Use the in-memory store instead of PostgreSQL")

	rootCmd.AddCommand(cmd.NewProcessCommand(app))
	rootCmd.AddCommand(cmd.NewAskCommand(app))
	rootCmd.AddCommand(cmd.NewMeetingCommand(app))
	rootCmd.AddCommand(cmd.NewReindexCommand(app))
	rootCmd.AddCommand(cmd.NewConfigCommand(app))
	rootCmd.AddCommand(cmd.NewVersionCommand())
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

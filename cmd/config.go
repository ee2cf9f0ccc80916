package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/shaurya-ahuja/quicknotes-ai/config"
)

// NewConfigCommand creates the 'config' command group.
func NewConfigCommand(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or initialize the configuration",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := yaml.Marshal(app.Config)
			if err != nil {
				return fmt.Errorf("marshal config: %w", err)
			}
			cmd.OutOrStdout().Write(data)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a configuration value and write the config file",
		Long: `Set updates one configuration key and persists the file.

Supported keys:
  models.whisper_url, models.whisper_model, models.ollama_url,
  models.generate_model, models.embed_model, models.language_hint,
  redis.addr, index.top_k, logging.level, output

Examples:
  quicknotes config set models.generate_model llama3.1
  quicknotes config set index.top_k 8`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := setConfigValue(app.Config, args[0], args[1]); err != nil {
				return err
			}
			if err := app.Config.Validate(); err != nil {
				return err
			}
			if err := config.Save(app.Config); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Set %s = %s\n", args[0], args[1])
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Write a default config file to ~/.quicknotes/config.yaml",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := config.ConfigPath()
			if err != nil {
				return err
			}
			if err := config.Save(config.DefaultConfig()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
			return nil
		},
	})

	return cmd
}

func setConfigValue(cfg *config.Config, key, value string) error {
	switch key {
	case "models.whisper_url":
		cfg.Models.WhisperURL = value
	case "models.whisper_model":
		cfg.Models.WhisperModel = value
	case "models.ollama_url":
		cfg.Models.OllamaURL = value
	case "models.generate_model":
		cfg.Models.GenerateModel = value
	case "models.embed_model":
		cfg.Models.EmbedModel = value
	case "models.language_hint":
		cfg.Models.LanguageHint = value
	case "redis.addr":
		cfg.Redis.Addr = value
	case "index.top_k":
		k, err := strconv.Atoi(value)
		if err != nil || k <= 0 {
			return fmt.Errorf("index.top_k must be a positive integer")
		}
		cfg.Index.TopK = k
	case "logging.level":
		cfg.Logging.Level = value
	case "output":
		cfg.Output = config.OutputFormat(value)
	default:
		return fmt.Errorf("unknown configuration key: %s", key)
	}
	return nil
}

package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/edgard/telellmgram/internal/config"
	"github.com/edgard/telellmgram/internal/logger"
)

// cli carries the state shared by every subcommand.
type cli struct {
	configPath string
	cfg        *config.Config
	log        *slog.Logger
}

func newRootCmd() *cobra.Command {
	c := &cli{}

	root := &cobra.Command{
		Use:   "telellmgram",
		Short: "Analyze exported Telegram channels and groups with an LLM",
		Long: `telellmgram imports Telegram chat exports into a local corpus and answers
questions about them with a chunked map-reduce over an LLM. It runs from the
command line or as a Telegram bot.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.LoadConfig(c.configPath)
			if err != nil {
				slog.Error("Failed to load configuration", "path", c.configPath, "error", err)
				return err
			}
			c.cfg = cfg
			c.log = logger.NewLogger(cfg.Logger.Level, cfg.Logger.JSON)
			c.log.Debug("Logger initialized", "level", cfg.Logger.Level, "json", cfg.Logger.JSON, "command", cmd.Name())
			return nil
		},
	}
	root.PersistentFlags().StringVar(&c.configPath, "config", "./config.yaml", "Path to configuration file")

	root.AddCommand(
		newImportCmd(c),
		newMediaCmd(c),
		newMembersCmd(c),
		newAnalyzeCmd(c),
		newRunsCmd(c),
		newServeCmd(c),
	)
	return root
}

// printf writes to the command output, which tests can capture.
func printf(cmd *cobra.Command, format string, args ...any) {
	fmt.Fprintf(cmd.OutOrStdout(), format, args...)
}

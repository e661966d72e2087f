package main

import (
	"github.com/spf13/cobra"

	"github.com/rote-srs/rote/internal/config"
)

func newRootCommand() *cobra.Command {
	var configFlag string

	rootCmd := &cobra.Command{
		Use:           "rote",
		Short:         "Spaced-repetition flashcards from plain markdown decks",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	def := config.Default()
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&configFlag, "config", "c", "", "Configuration file path")
	flags.String("db-path", def.DBPath, "Path to the SQLite database")
	flags.String("repos-dir", def.ReposDir, "Directory git sources are cloned into")
	flags.String("lock-path", def.LockPath, "Path to the study session lock file")
	flags.String("log-level", def.LogLevel, "Log level (debug, info, warn, error)")
	flags.String("log-format", def.LogFormat, "Log format (text, json)")
	flags.String("listen-addr", def.ListenAddr, "Address the web interface listens on")
	flags.Duration("sync-every", def.SyncEvery, "How often the web server re-syncs sources")
	flags.Int("study-limit", def.StudyLimit, "Cards per study session, 0 for no limit")

	ctx := newCommandContext(&configFlag, flags)

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		_, err := ctx.ensureConfig()
		return err
	}

	rootCmd.AddCommand(newSourcesCommand(ctx))
	rootCmd.AddCommand(newSyncCommand(ctx))
	rootCmd.AddCommand(newDueCommand(ctx))
	rootCmd.AddCommand(newStatsCommand(ctx))
	rootCmd.AddCommand(newImportCommand(ctx))
	rootCmd.AddCommand(newGenCommand(ctx))
	rootCmd.AddCommand(newStudyCommand(ctx))
	rootCmd.AddCommand(newServeCommand(ctx))

	return rootCmd
}

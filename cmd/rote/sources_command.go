package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rote-srs/rote/internal/config"
	"github.com/rote-srs/rote/internal/storage"
)

func newSourcesCommand(ctx *commandContext) *cobra.Command {
	sourcesCmd := &cobra.Command{
		Use:   "sources",
		Short: "Manage the deck sources that sync scans",
	}

	sourcesCmd.AddCommand(newSourcesAddCommand(ctx))
	sourcesCmd.AddCommand(newSourcesListCommand(ctx))
	sourcesCmd.AddCommand(newSourcesRemoveCommand(ctx))

	return sourcesCmd
}

func newSourcesAddCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "add <path-or-url>",
		Short: "Register a local directory or git repository of decks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := strings.TrimSpace(args[0])
			if path == "" {
				return fmt.Errorf("source path cannot be empty")
			}

			return ctx.withDB(func(cfg *config.Config, db *storage.DB) error {
				kind := storage.DetectSourceKind(path)
				id, err := db.InsertSource(path, kind)
				if err != nil {
					return fmt.Errorf("failed to add source: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Added %s source %d: %s\n", kind, id, path)
				return nil
			})
		},
	}
}

func newSourcesListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List registered deck sources",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withDB(func(cfg *config.Config, db *storage.DB) error {
				sources, err := db.GetAllSources()
				if err != nil {
					return err
				}
				if len(sources) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No sources configured.")
					return nil
				}

				rows := make([][]string, 0, len(sources))
				for _, src := range sources {
					scanned := "never"
					if src.LastScanned != nil {
						scanned = src.LastScanned.Local().Format("2006-01-02 15:04")
					}
					rows = append(rows, []string{
						strconv.FormatInt(src.ID, 10),
						src.Kind,
						src.Path,
						scanned,
					})
				}

				out := cmd.OutOrStdout()
				aligns := []columnAlignment{alignRight, alignLeft, alignLeft, alignLeft}
				fmt.Fprintln(out, renderTable(out, []string{"ID", "Kind", "Path", "Last scanned"}, rows, aligns))
				return nil
			})
		},
	}
}

func newSourcesRemoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "rm <id>",
		Short: "Remove a source, keeping its cards and their history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid source id %q", args[0])
			}

			return ctx.withDB(func(cfg *config.Config, db *storage.DB) error {
				if err := db.DeleteSource(id); err != nil {
					return fmt.Errorf("failed to remove source: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed source %d.\n", id)
				return nil
			})
		},
	}
}

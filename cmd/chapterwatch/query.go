package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/IshaanNene/ChapterWatch/internal/config"
	"github.com/IshaanNene/ChapterWatch/internal/storage"
)

var (
	queryTitle string
	queryLink  string
)

// queryCmd creates the "query" subcommand for reading stored records.
func queryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "query",
		Short: "List stored book records",
		Args:  cobra.NoArgs,
		RunE:  runQuery,
	}

	cmd.Flags().StringVar(&queryTitle, "title", "", "only the book with this exact title")
	cmd.Flags().StringVar(&queryLink, "link", "", "only books with this exact book link")
	cmd.Flags().StringVar(&storeType, "store", "", "result sink: mongodb, json")

	return cmd
}

func runQuery(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if storeType != "" {
		cfg.Storage.Type = storeType
	}
	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if cfg.Storage.Type == "none" {
		return fmt.Errorf("storage.type is none, nothing to query (use --store or set storage.type)")
	}

	logger := setupLogger(cfg.Logging)
	ctx := context.Background()

	sink, err := storage.Open(ctx, &cfg.Storage, logger)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer closeWithLog(logger, "storage", sink.Close)

	recs, err := sink.Find(ctx, storage.Filter{Title: queryTitle, BookLink: queryLink})
	if err != nil {
		return err
	}
	if len(recs) == 0 {
		fmt.Println("No stored books match.")
		return nil
	}

	renderRecords(recs)
	return nil
}

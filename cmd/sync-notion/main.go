package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/carteira-app/carteira/internal/backup"
	"github.com/carteira-app/carteira/internal/logger"
	"github.com/carteira-app/carteira/internal/notionsync"
	"github.com/carteira-app/carteira/internal/store/inmemory"
)

func main() {
	// Initialize structured logger
	log := logger.New()

	// Parse CLI flags
	statePath := flag.String("state", os.Getenv("CARTEIRA_STATE"), "Path to the ledger snapshot file (required)")
	notionToken := flag.String("notion-token", os.Getenv("NOTION_TOKEN"), "Notion API token (required)")
	notionDBID := flag.String("notion-db-id", os.Getenv("NOTION_DB_ID"), "Notion database ID (required)")
	dryRun := flag.Bool("dry-run", false, "Dry run mode - preview changes without syncing")
	flag.Parse()

	// Validate required flags
	if *statePath == "" {
		log.Fatal().Msg("Error: --state is required (or set CARTEIRA_STATE)")
	}
	if *notionToken == "" {
		log.Fatal().Msg("Error: --notion-token is required (or set NOTION_TOKEN)")
	}
	if *notionDBID == "" {
		log.Fatal().Msg("Error: --notion-db-id is required (or set NOTION_DB_ID)")
	}

	// Create context with timeout so CLI doesn't hang
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	// Add logger to context
	ctx = logger.WithContext(ctx, log)

	log.Info().
		Str("state", *statePath).
		Bool("dry_run", *dryRun).
		Msg("Starting Notion sync")

	// Load the ledger state
	snap, err := backup.LoadFromFile(*statePath)
	if err != nil {
		log.Fatal().Err(err).Str("path", *statePath).Msg("Failed to load state")
	}
	st := inmemory.NewStore()
	if err := backup.Restore(ctx, st, snap); err != nil {
		log.Fatal().Err(err).Str("path", *statePath).Msg("Failed to restore state")
	}

	// Initialize Notion client
	notionClient := notionsync.NewNotionClient(*notionToken)

	// Run the sync
	if err := notionsync.SyncInvoices(ctx, st, notionClient, *notionDBID, *dryRun); err != nil {
		log.Fatal().Err(err).Msg("Notion sync failed")
	}

	if *dryRun {
		fmt.Println("Dry run completed - no changes were made.")
	} else {
		fmt.Println("Notion sync completed successfully.")
	}
}

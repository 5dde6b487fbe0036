package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/carteira-app/carteira/internal/backup"
	infraBQ "github.com/carteira-app/carteira/internal/infra/bigquery"
	"github.com/carteira-app/carteira/internal/jobs"
	"github.com/carteira-app/carteira/internal/jobs/inmemory"
	"github.com/carteira-app/carteira/internal/logger"
)

// The worker backfills BigQuery from a ledger snapshot: every entity in the
// snapshot is published as a sync job and the queue is drained through the
// mirror. Running it after restoring an old snapshot brings the hosted
// mirror back in line with local state.
func main() {
	// Initialize logger
	log := logger.New()

	// Parse CLI flags
	statePath := flag.String("state", os.Getenv("CARTEIRA_STATE"), "Path to the ledger snapshot file (required)")
	flag.Parse()

	if *statePath == "" {
		log.Fatal().Msg("Error: --state is required (or set CARTEIRA_STATE)")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()

	snap, err := backup.LoadFromFile(*statePath)
	if err != nil {
		log.Fatal().Err(err).Str("path", *statePath).Msg("Failed to load snapshot")
	}

	mirror, err := infraBQ.NewMirror(ctx, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create BigQuery mirror")
	}
	defer mirror.Close()

	// Initialize job store and queue
	// In production, this would be replaced with Cloud Tasks or Pub/Sub
	jobStore := inmemory.NewStore()
	jobQueue := inmemory.NewQueue(100, jobStore)

	workerCtx, cancelWorker := context.WithCancel(ctx)
	defer cancelWorker()

	go func() {
		log.Info().Msg("Starting mirror worker")
		if err := jobQueue.Start(workerCtx, mirror.Handle); err != nil {
			log.Error().Err(err).Msg("Mirror worker stopped with error")
		}
	}()

	published := publishSnapshot(ctx, log, jobQueue, snap)
	log.Info().Int("published", published).Msg("Snapshot published, draining queue")

	// Wait for in-flight jobs, then close
	if err := jobQueue.Stop(ctx); err != nil {
		log.Error().Err(err).Msg("Error stopping job queue")
	}
	if err := jobQueue.Close(); err != nil {
		log.Error().Err(err).Msg("Failed to close job queue")
	}

	failed, err := jobStore.ListJobs(ctx, jobs.JobFilter{Status: jobs.JobStatusFailed})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to list jobs")
	}
	if len(failed) > 0 {
		log.Fatal().Int("failed", len(failed)).Msg("Backfill finished with failures")
	}

	fmt.Printf("Backfilled %d entities to BigQuery.\n", published)
}

// publishSnapshot enqueues one sync job per snapshot entity.
func publishSnapshot(ctx context.Context, log zerolog.Logger, pub jobs.Publisher, snap *backup.Snapshot) int {
	published := 0
	publish := func(kind jobs.EntityKind, entityID string, entity interface{}) {
		job, err := jobs.NewSyncJob(kind, entityID, entity)
		if err != nil {
			log.Error().Err(err).Str("entity_id", entityID).Msg("Failed to build sync job")
			return
		}
		if err := pub.PublishSync(ctx, job); err != nil {
			log.Error().Err(err).Str("entity_id", entityID).Msg("Failed to enqueue sync job")
			return
		}
		published++
	}

	for _, acc := range snap.Accounts {
		publish(jobs.EntityAccount, acc.ID, acc)
	}
	for _, card := range snap.Cards {
		publish(jobs.EntityCard, card.ID, card)
	}
	for _, tx := range snap.Transactions {
		publish(jobs.EntityTransaction, tx.ID, tx)
	}
	for _, item := range snap.RecurringItems {
		publish(jobs.EntityRecurringItem, item.ID, item)
	}
	for _, events := range snap.LedgerEvents {
		for _, ev := range events {
			publish(jobs.EntityLedgerEvent, ev.ID, ev)
		}
	}
	return published
}

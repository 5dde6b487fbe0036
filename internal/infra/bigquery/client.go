// Package bigquery mirrors ledger entities to BigQuery. The in-memory store
// stays authoritative; rows written here are snapshots pushed by the sync
// worker, replaced wholesale on each update (last write wins).
package bigquery

import (
	"context"
	"fmt"
	"math/big"
	"os"

	"cloud.google.com/go/bigquery"
	"github.com/shopspring/decimal"
)

var (
	projectID = envOr("CARTEIRA_BQ_PROJECT", "carteira-app")
	datasetID = envOr("CARTEIRA_BQ_DATASET", "carteira")
)

const (
	accountsTable     = "accounts"
	cardsTable        = "cards"
	transactionsTable = "transactions"
	installmentsTable = "installments"
	recurringTable    = "recurring_items"
	ledgerEventsTable = "ledger_events"
)

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func tableRef(table string) string {
	return "`" + projectID + "." + datasetID + "." + table + "`"
}

// runDML executes a parameterized DML statement and waits for completion.
func runDML(ctx context.Context, q *bigquery.Query, op string) error {
	job, err := q.Run(ctx)
	if err != nil {
		return fmt.Errorf("%s: running query: %w", op, err)
	}
	status, err := job.Wait(ctx)
	if err != nil {
		return fmt.Errorf("%s: waiting for job: %w", op, err)
	}
	if err := status.Err(); err != nil {
		return fmt.Errorf("%s: job error: %w", op, err)
	}
	return nil
}

// deleteByID removes rows matching one id column, used before re-inserting a
// snapshot so upserts stay idempotent.
func deleteByID(ctx context.Context, client *bigquery.Client, table, column, id string) error {
	q := client.Query(`
		DELETE FROM ` + tableRef(table) + `
		WHERE ` + column + ` = @id
	`)
	q.Parameters = []bigquery.QueryParameter{
		{Name: "id", Value: id},
	}
	return runDML(ctx, q, "deleteByID "+table)
}

// NUMERIC columns travel as *big.Rat in the BigQuery client.

func ratFromDecimal(d decimal.Decimal) *big.Rat {
	return d.Rat()
}

func decimalFromRat(r *big.Rat) decimal.Decimal {
	if r == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigRat(r, 2)
}

package bigquery

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
	"google.golang.org/api/iterator"

	"github.com/carteira-app/carteira/internal/domain"
)

type LedgerEventRow struct {
	EventID   string `bigquery:"event_id"`   // REQUIRED
	AccountID string `bigquery:"account_id"` // REQUIRED

	Kind   string     `bigquery:"kind"`       // REQUIRED
	Amount *big.Rat   `bigquery:"amount"`     // REQUIRED NUMERIC, signed delta
	Date   civil.Date `bigquery:"event_date"` // REQUIRED DATE

	RefID     bigquery.NullString `bigquery:"ref_id"`     // NULLABLE
	CreatedTS time.Time           `bigquery:"created_ts"` // REQUIRED TIMESTAMP
}

// LedgerEventRowFrom converts a domain ledger event into its mirror row.
func LedgerEventRowFrom(ev *domain.LedgerEvent) *LedgerEventRow {
	return &LedgerEventRow{
		EventID:   ev.ID,
		AccountID: ev.AccountID,
		Kind:      string(ev.Kind),
		Amount:    ratFromDecimal(ev.Amount),
		Date:      ev.Date,
		RefID:     nullString(ev.RefID),
		CreatedTS: ev.CreatedAt,
	}
}

// InsertLedgerEvents appends ledger event rows. Events are immutable, so the
// streaming inserter is used directly with no delete pass.
func InsertLedgerEvents(ctx context.Context, rows []*LedgerEventRow) error {
	client, err := bigquery.NewClient(ctx, projectID)
	if err != nil {
		return fmt.Errorf("InsertLedgerEvents: creating client: %w", err)
	}
	defer client.Close()

	return InsertLedgerEventsWithClient(ctx, client, rows)
}

// InsertLedgerEventsWithClient appends ledger event rows using the provided
// BigQuery client.
func InsertLedgerEventsWithClient(ctx context.Context, client *bigquery.Client, rows []*LedgerEventRow) error {
	if len(rows) == 0 {
		return nil
	}

	table := client.DatasetInProject(projectID, datasetID).Table(ledgerEventsTable)
	inserter := table.Inserter()
	if err := inserter.Put(ctx, rows); err != nil {
		return fmt.Errorf("InsertLedgerEventsWithClient: inserting rows: %w", err)
	}

	return nil
}

// QueryLedgerEventsByAccount retrieves the audit trail for one account in
// application order.
func QueryLedgerEventsByAccount(ctx context.Context, accountID string) ([]*LedgerEventRow, error) {
	client, err := bigquery.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("QueryLedgerEventsByAccount: creating client: %w", err)
	}
	defer client.Close()

	return QueryLedgerEventsByAccountWithClient(ctx, client, accountID)
}

// QueryLedgerEventsByAccountWithClient retrieves the audit trail for one
// account using the provided BigQuery client.
func QueryLedgerEventsByAccountWithClient(ctx context.Context, client *bigquery.Client, accountID string) ([]*LedgerEventRow, error) {
	if accountID == "" {
		return nil, fmt.Errorf("QueryLedgerEventsByAccountWithClient: account_id cannot be empty")
	}

	q := client.Query(`
		SELECT
			event_id,
			account_id,
			kind,
			amount,
			event_date,
			ref_id,
			created_ts
		FROM ` + tableRef(ledgerEventsTable) + `
		WHERE account_id = @account_id
		ORDER BY created_ts, event_id
	`)
	q.Parameters = []bigquery.QueryParameter{
		{Name: "account_id", Value: accountID},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("QueryLedgerEventsByAccountWithClient: reading query: %w", err)
	}

	var events []*LedgerEventRow
	for {
		var row LedgerEventRow
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("QueryLedgerEventsByAccountWithClient: iterating: %w", err)
		}
		events = append(events, &row)
	}

	return events, nil
}

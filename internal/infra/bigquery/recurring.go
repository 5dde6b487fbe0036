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

type RecurringItemRow struct {
	ItemID string `bigquery:"item_id"` // REQUIRED

	Description string   `bigquery:"description"` // NULLABLE
	Amount      *big.Rat `bigquery:"amount"`      // REQUIRED NUMERIC
	Kind        string   `bigquery:"kind"`        // REQUIRED
	IsIncome    bool     `bigquery:"is_income"`   // REQUIRED

	AccountID  string              `bigquery:"account_id"`  // REQUIRED
	CardID     bigquery.NullString `bigquery:"card_id"`     // NULLABLE
	CategoryID bigquery.NullString `bigquery:"category_id"` // NULLABLE

	Day     int64 `bigquery:"day"`     // REQUIRED, anchor day-of-month
	Enabled bool  `bigquery:"enabled"` // REQUIRED

	LastRun bigquery.NullDate `bigquery:"last_run"` // DATE, NULLABLE
	NextRun civil.Date        `bigquery:"next_run"` // REQUIRED DATE

	UpdatedTS bigquery.NullTimestamp `bigquery:"updated_ts"` // TIMESTAMP, NULLABLE
}

// RecurringItemRowFrom converts a domain recurring item into its mirror row.
func RecurringItemRowFrom(item *domain.RecurringItem) *RecurringItemRow {
	row := &RecurringItemRow{
		ItemID:      item.ID,
		Description: item.Description,
		Amount:      ratFromDecimal(item.Amount),
		Kind:        string(item.Kind),
		IsIncome:    item.IsIncome,
		AccountID:   item.AccountID,
		CardID:      nullString(item.CardID),
		CategoryID:  nullString(item.CategoryID),
		Day:         int64(item.Day),
		Enabled:     item.Enabled,
		NextRun:     item.NextRun,
		UpdatedTS:   bigquery.NullTimestamp{Timestamp: time.Now(), Valid: true},
	}
	if item.LastRun != nil {
		row.LastRun = bigquery.NullDate{Date: *item.LastRun, Valid: true}
	}
	return row
}

// UpsertRecurringItem replaces the mirrored snapshot of one recurring item.
func UpsertRecurringItem(ctx context.Context, row *RecurringItemRow) error {
	client, err := bigquery.NewClient(ctx, projectID)
	if err != nil {
		return fmt.Errorf("UpsertRecurringItem: creating client: %w", err)
	}
	defer client.Close()

	return UpsertRecurringItemWithClient(ctx, client, row)
}

// UpsertRecurringItemWithClient replaces the mirrored snapshot of one
// recurring item using the provided BigQuery client.
func UpsertRecurringItemWithClient(ctx context.Context, client *bigquery.Client, row *RecurringItemRow) error {
	if row.ItemID == "" {
		return fmt.Errorf("UpsertRecurringItemWithClient: item_id cannot be empty")
	}

	if err := deleteByID(ctx, client, recurringTable, "item_id", row.ItemID); err != nil {
		return fmt.Errorf("UpsertRecurringItemWithClient: %w", err)
	}

	q := client.Query(`
		INSERT INTO ` + tableRef(recurringTable) + ` (
			item_id, description, amount, kind, is_income,
			account_id, card_id, category_id,
			day, enabled, last_run, next_run, updated_ts
		)
		VALUES (
			@item_id, @description, @amount, @kind, @is_income,
			@account_id, @card_id, @category_id,
			@day, @enabled, @last_run, @next_run, @updated_ts
		)
	`)
	q.Parameters = []bigquery.QueryParameter{
		{Name: "item_id", Value: row.ItemID},
		{Name: "description", Value: row.Description},
		{Name: "amount", Value: row.Amount},
		{Name: "kind", Value: row.Kind},
		{Name: "is_income", Value: row.IsIncome},
		{Name: "account_id", Value: row.AccountID},
		{Name: "card_id", Value: row.CardID},
		{Name: "category_id", Value: row.CategoryID},
		{Name: "day", Value: row.Day},
		{Name: "enabled", Value: row.Enabled},
		{Name: "last_run", Value: row.LastRun},
		{Name: "next_run", Value: row.NextRun},
		{Name: "updated_ts", Value: row.UpdatedTS},
	}

	return runDML(ctx, q, "UpsertRecurringItemWithClient")
}

// ListAllRecurringItems retrieves all mirrored recurring items.
func ListAllRecurringItems(ctx context.Context) ([]*RecurringItemRow, error) {
	client, err := bigquery.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("ListAllRecurringItems: creating client: %w", err)
	}
	defer client.Close()

	return ListAllRecurringItemsWithClient(ctx, client)
}

// ListAllRecurringItemsWithClient retrieves all mirrored recurring items using
// the provided BigQuery client.
func ListAllRecurringItemsWithClient(ctx context.Context, client *bigquery.Client) ([]*RecurringItemRow, error) {
	q := client.Query(`
		SELECT
			item_id,
			description,
			amount,
			kind,
			is_income,
			account_id,
			card_id,
			category_id,
			day,
			enabled,
			last_run,
			next_run,
			updated_ts
		FROM ` + tableRef(recurringTable) + `
		ORDER BY description
	`)

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("ListAllRecurringItemsWithClient: reading query: %w", err)
	}

	var items []*RecurringItemRow
	for {
		var row RecurringItemRow
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ListAllRecurringItemsWithClient: iterating: %w", err)
		}
		items = append(items, &row)
	}

	return items, nil
}

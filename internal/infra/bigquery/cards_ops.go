package bigquery

import (
	"context"
	"fmt"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/iterator"
)

// UpsertCard replaces the mirrored snapshot of one card.
func UpsertCard(ctx context.Context, row *CardRow) error {
	client, err := bigquery.NewClient(ctx, projectID)
	if err != nil {
		return fmt.Errorf("UpsertCard: creating client: %w", err)
	}
	defer client.Close()

	return UpsertCardWithClient(ctx, client, row)
}

// UpsertCardWithClient replaces the mirrored snapshot of one card using the
// provided BigQuery client.
func UpsertCardWithClient(ctx context.Context, client *bigquery.Client, row *CardRow) error {
	if row.CardID == "" {
		return fmt.Errorf("UpsertCardWithClient: card_id cannot be empty")
	}

	if err := deleteByID(ctx, client, cardsTable, "card_id", row.CardID); err != nil {
		return fmt.Errorf("UpsertCardWithClient: %w", err)
	}

	q := client.Query(`
		INSERT INTO ` + tableRef(cardsTable) + ` (
			card_id, card_name, account_id,
			closing_day, due_day, credit_limit,
			is_default, deleted, updated_ts
		)
		VALUES (
			@card_id, @card_name, @account_id,
			@closing_day, @due_day, @credit_limit,
			@is_default, @deleted, @updated_ts
		)
	`)
	q.Parameters = []bigquery.QueryParameter{
		{Name: "card_id", Value: row.CardID},
		{Name: "card_name", Value: row.CardName},
		{Name: "account_id", Value: row.AccountID},
		{Name: "closing_day", Value: row.ClosingDay},
		{Name: "due_day", Value: row.DueDay},
		{Name: "credit_limit", Value: row.CreditLimit},
		{Name: "is_default", Value: row.IsDefault},
		{Name: "deleted", Value: row.Deleted},
		{Name: "updated_ts", Value: row.UpdatedTS},
	}

	return runDML(ctx, q, "UpsertCardWithClient")
}

// ListAllCards retrieves all mirrored cards, soft-deleted ones included.
func ListAllCards(ctx context.Context) ([]*CardRow, error) {
	client, err := bigquery.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("ListAllCards: creating client: %w", err)
	}
	defer client.Close()

	return ListAllCardsWithClient(ctx, client)
}

// ListAllCardsWithClient retrieves all mirrored cards using the provided
// BigQuery client.
func ListAllCardsWithClient(ctx context.Context, client *bigquery.Client) ([]*CardRow, error) {
	q := client.Query(`
		SELECT
			card_id,
			card_name,
			account_id,
			closing_day,
			due_day,
			credit_limit,
			is_default,
			deleted,
			updated_ts
		FROM ` + tableRef(cardsTable) + `
		ORDER BY card_name
	`)

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("ListAllCardsWithClient: reading query: %w", err)
	}

	var cards []*CardRow
	for {
		var row CardRow
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ListAllCardsWithClient: iterating: %w", err)
		}
		cards = append(cards, &row)
	}

	return cards, nil
}

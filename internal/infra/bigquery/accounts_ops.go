package bigquery

import (
	"context"
	"fmt"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/iterator"
)

// UpsertAccount replaces the mirrored snapshot of one account.
func UpsertAccount(ctx context.Context, row *AccountRow) error {
	client, err := bigquery.NewClient(ctx, projectID)
	if err != nil {
		return fmt.Errorf("UpsertAccount: creating client: %w", err)
	}
	defer client.Close()

	return UpsertAccountWithClient(ctx, client, row)
}

// UpsertAccountWithClient replaces the mirrored snapshot of one account using
// the provided BigQuery client.
func UpsertAccountWithClient(ctx context.Context, client *bigquery.Client, row *AccountRow) error {
	if row.AccountID == "" {
		return fmt.Errorf("UpsertAccountWithClient: account_id cannot be empty")
	}

	if err := deleteByID(ctx, client, accountsTable, "account_id", row.AccountID); err != nil {
		return fmt.Errorf("UpsertAccountWithClient: %w", err)
	}

	q := client.Query(`
		INSERT INTO ` + tableRef(accountsTable) + ` (
			account_id, account_name,
			balance, opening_balance,
			is_default, updated_ts
		)
		VALUES (
			@account_id, @account_name,
			@balance, @opening_balance,
			@is_default, @updated_ts
		)
	`)
	q.Parameters = []bigquery.QueryParameter{
		{Name: "account_id", Value: row.AccountID},
		{Name: "account_name", Value: row.AccountName},
		{Name: "balance", Value: row.Balance},
		{Name: "opening_balance", Value: row.OpeningBalance},
		{Name: "is_default", Value: row.IsDefault},
		{Name: "updated_ts", Value: row.UpdatedTS},
	}

	return runDML(ctx, q, "UpsertAccountWithClient")
}

// ListAllAccounts retrieves all mirrored accounts.
func ListAllAccounts(ctx context.Context) ([]*AccountRow, error) {
	client, err := bigquery.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("ListAllAccounts: creating client: %w", err)
	}
	defer client.Close()

	return ListAllAccountsWithClient(ctx, client)
}

// ListAllAccountsWithClient retrieves all mirrored accounts using the provided
// BigQuery client.
func ListAllAccountsWithClient(ctx context.Context, client *bigquery.Client) ([]*AccountRow, error) {
	q := client.Query(`
		SELECT
			account_id,
			account_name,
			balance,
			opening_balance,
			is_default,
			updated_ts
		FROM ` + tableRef(accountsTable) + `
		ORDER BY account_name
	`)

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("ListAllAccountsWithClient: reading query: %w", err)
	}

	var accounts []*AccountRow
	for {
		var row AccountRow
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ListAllAccountsWithClient: iterating: %w", err)
		}
		accounts = append(accounts, &row)
	}

	return accounts, nil
}

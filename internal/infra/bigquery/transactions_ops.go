package bigquery

import (
	"context"
	"fmt"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
	"google.golang.org/api/iterator"
)

// UpsertTransaction replaces the mirrored snapshot of one transaction together
// with its installment schedule.
func UpsertTransaction(ctx context.Context, row *TransactionRow, installments []*InstallmentRow) error {
	client, err := bigquery.NewClient(ctx, projectID)
	if err != nil {
		return fmt.Errorf("UpsertTransaction: creating client: %w", err)
	}
	defer client.Close()

	return UpsertTransactionWithClient(ctx, client, row, installments)
}

// UpsertTransactionWithClient replaces the mirrored snapshot of one
// transaction using the provided BigQuery client. The old transaction row and
// its installment rows are deleted first so a re-pushed snapshot never
// duplicates schedule entries.
func UpsertTransactionWithClient(ctx context.Context, client *bigquery.Client, row *TransactionRow, installments []*InstallmentRow) error {
	if row.TransactionID == "" {
		return fmt.Errorf("UpsertTransactionWithClient: transaction_id cannot be empty")
	}

	if err := DeleteTransactionWithClient(ctx, client, row.TransactionID); err != nil {
		return fmt.Errorf("UpsertTransactionWithClient: %w", err)
	}

	q := client.Query(`
		INSERT INTO ` + tableRef(transactionsTable) + ` (
			transaction_id, description, amount, transaction_date,
			kind, is_income, installments_count,
			account_id, card_id, category_id,
			invoice_card_id, invoice_month_key, invoice_covers,
			updated_ts
		)
		VALUES (
			@transaction_id, @description, @amount, @transaction_date,
			@kind, @is_income, @installments_count,
			@account_id, @card_id, @category_id,
			@invoice_card_id, @invoice_month_key, @invoice_covers,
			@updated_ts
		)
	`)
	q.Parameters = []bigquery.QueryParameter{
		{Name: "transaction_id", Value: row.TransactionID},
		{Name: "description", Value: row.Description},
		{Name: "amount", Value: row.Amount},
		{Name: "transaction_date", Value: row.Date},
		{Name: "kind", Value: row.Kind},
		{Name: "is_income", Value: row.IsIncome},
		{Name: "installments_count", Value: row.InstallmentsCount},
		{Name: "account_id", Value: row.AccountID},
		{Name: "card_id", Value: row.CardID},
		{Name: "category_id", Value: row.CategoryID},
		{Name: "invoice_card_id", Value: row.InvoiceCardID},
		{Name: "invoice_month_key", Value: row.InvoiceMonthKey},
		{Name: "invoice_covers", Value: row.InvoiceCovers},
		{Name: "updated_ts", Value: row.UpdatedTS},
	}

	if err := runDML(ctx, q, "UpsertTransactionWithClient"); err != nil {
		return err
	}

	return InsertInstallmentsWithClient(ctx, client, installments)
}

// InsertInstallmentsWithClient batch-inserts installment rows using the
// streaming inserter.
func InsertInstallmentsWithClient(ctx context.Context, client *bigquery.Client, rows []*InstallmentRow) error {
	if len(rows) == 0 {
		return nil
	}

	table := client.DatasetInProject(projectID, datasetID).Table(installmentsTable)
	inserter := table.Inserter()
	if err := inserter.Put(ctx, rows); err != nil {
		return fmt.Errorf("InsertInstallmentsWithClient: inserting rows: %w", err)
	}

	return nil
}

// DeleteTransaction removes a mirrored transaction and its installments, used
// when a consolidated invoice payment is unwound locally.
func DeleteTransaction(ctx context.Context, transactionID string) error {
	client, err := bigquery.NewClient(ctx, projectID)
	if err != nil {
		return fmt.Errorf("DeleteTransaction: creating client: %w", err)
	}
	defer client.Close()

	return DeleteTransactionWithClient(ctx, client, transactionID)
}

// DeleteTransactionWithClient removes a mirrored transaction and its
// installments using the provided BigQuery client.
func DeleteTransactionWithClient(ctx context.Context, client *bigquery.Client, transactionID string) error {
	if err := deleteByID(ctx, client, installmentsTable, "transaction_id", transactionID); err != nil {
		return fmt.Errorf("DeleteTransactionWithClient: deleting installments: %w", err)
	}
	if err := deleteByID(ctx, client, transactionsTable, "transaction_id", transactionID); err != nil {
		return fmt.Errorf("DeleteTransactionWithClient: deleting transaction: %w", err)
	}
	return nil
}

// QueryTransactionsByDateRange retrieves mirrored transactions whose purchase
// date falls inside [start, end].
func QueryTransactionsByDateRange(ctx context.Context, start, end civil.Date) ([]*TransactionRow, error) {
	client, err := bigquery.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("QueryTransactionsByDateRange: creating client: %w", err)
	}
	defer client.Close()

	return QueryTransactionsByDateRangeWithClient(ctx, client, start, end)
}

// QueryTransactionsByDateRangeWithClient retrieves mirrored transactions using
// the provided BigQuery client.
func QueryTransactionsByDateRangeWithClient(ctx context.Context, client *bigquery.Client, start, end civil.Date) ([]*TransactionRow, error) {
	q := client.Query(`
		SELECT
			transaction_id,
			description,
			amount,
			transaction_date,
			kind,
			is_income,
			installments_count,
			account_id,
			card_id,
			category_id,
			invoice_card_id,
			invoice_month_key,
			invoice_covers,
			updated_ts
		FROM ` + tableRef(transactionsTable) + `
		WHERE transaction_date BETWEEN @start_date AND @end_date
		ORDER BY transaction_date, transaction_id
	`)
	q.Parameters = []bigquery.QueryParameter{
		{Name: "start_date", Value: start},
		{Name: "end_date", Value: end},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("QueryTransactionsByDateRangeWithClient: reading query: %w", err)
	}

	var txs []*TransactionRow
	for {
		var row TransactionRow
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("QueryTransactionsByDateRangeWithClient: iterating: %w", err)
		}
		txs = append(txs, &row)
	}

	return txs, nil
}

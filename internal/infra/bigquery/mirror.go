package bigquery

import (
	"context"
	"encoding/json"
	"fmt"

	"cloud.google.com/go/bigquery"
	"github.com/rs/zerolog"

	"github.com/carteira-app/carteira/internal/domain"
	"github.com/carteira-app/carteira/internal/jobs"
)

// Mirror consumes sync jobs and writes entity snapshots to BigQuery over a
// shared client.
type Mirror struct {
	client *bigquery.Client
	log    zerolog.Logger
}

// NewMirror creates a Mirror with its own BigQuery client.
func NewMirror(ctx context.Context, log zerolog.Logger) (*Mirror, error) {
	client, err := bigquery.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("NewMirror: creating client: %w", err)
	}
	return &Mirror{client: client, log: log}, nil
}

// Close releases the underlying BigQuery client.
func (m *Mirror) Close() error {
	if m.client != nil {
		return m.client.Close()
	}
	return nil
}

// Handle processes one sync job. It satisfies jobs.JobHandler.
func (m *Mirror) Handle(ctx context.Context, job *jobs.SyncJob) error {
	log := m.log.With().
		Str("job_id", job.JobID).
		Str("kind", string(job.Kind)).
		Str("entity_id", job.EntityID).
		Logger()

	if job.Delete {
		if err := m.handleDelete(ctx, job); err != nil {
			log.Error().Err(err).Msg("mirror delete failed")
			return err
		}
		log.Debug().Msg("mirror delete applied")
		return nil
	}

	var err error
	switch job.Kind {
	case jobs.EntityAccount:
		var a domain.Account
		if err = json.Unmarshal(job.Payload, &a); err == nil {
			err = UpsertAccountWithClient(ctx, m.client, AccountRowFrom(&a))
		}
	case jobs.EntityCard:
		var c domain.Card
		if err = json.Unmarshal(job.Payload, &c); err == nil {
			err = UpsertCardWithClient(ctx, m.client, CardRowFrom(&c))
		}
	case jobs.EntityTransaction:
		var tx domain.Transaction
		if err = json.Unmarshal(job.Payload, &tx); err == nil {
			var row *TransactionRow
			var installments []*InstallmentRow
			row, installments, err = TransactionRowFrom(&tx)
			if err == nil {
				err = UpsertTransactionWithClient(ctx, m.client, row, installments)
			}
		}
	case jobs.EntityRecurringItem:
		var item domain.RecurringItem
		if err = json.Unmarshal(job.Payload, &item); err == nil {
			err = UpsertRecurringItemWithClient(ctx, m.client, RecurringItemRowFrom(&item))
		}
	case jobs.EntityLedgerEvent:
		var ev domain.LedgerEvent
		if err = json.Unmarshal(job.Payload, &ev); err == nil {
			err = InsertLedgerEventsWithClient(ctx, m.client, []*LedgerEventRow{LedgerEventRowFrom(&ev)})
		}
	default:
		err = fmt.Errorf("unknown entity kind %q", job.Kind)
	}

	if err != nil {
		log.Error().Err(err).Msg("mirror upsert failed")
		return err
	}
	log.Debug().Msg("mirror upsert applied")
	return nil
}

func (m *Mirror) handleDelete(ctx context.Context, job *jobs.SyncJob) error {
	switch job.Kind {
	case jobs.EntityAccount:
		return deleteByID(ctx, m.client, accountsTable, "account_id", job.EntityID)
	case jobs.EntityCard:
		return deleteByID(ctx, m.client, cardsTable, "card_id", job.EntityID)
	case jobs.EntityTransaction:
		return DeleteTransactionWithClient(ctx, m.client, job.EntityID)
	case jobs.EntityRecurringItem:
		return deleteByID(ctx, m.client, recurringTable, "item_id", job.EntityID)
	default:
		return fmt.Errorf("entity kind %q does not support delete", job.Kind)
	}
}

var _ jobs.JobHandler = (*Mirror)(nil).Handle

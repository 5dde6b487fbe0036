// Package backup exports and restores whole-ledger snapshots. A snapshot is
// a single JSON document carrying every entity plus each account's audit
// trail, written either to a local file or to a GCS bucket.
package backup

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/carteira-app/carteira/internal/domain"
	"github.com/carteira-app/carteira/internal/store"
)

// Snapshot is the serialized form of the full ledger state.
type Snapshot struct {
	ExportedAt time.Time `json:"exported_at"`

	Accounts       []*domain.Account                `json:"accounts"`
	Cards          []*domain.Card                   `json:"cards"`
	Transactions   []*domain.Transaction            `json:"transactions"`
	RecurringItems []*domain.RecurringItem          `json:"recurring_items"`
	LedgerEvents   map[string][]*domain.LedgerEvent `json:"ledger_events"` // accountID -> ordered events
}

// LedgerEventRestorer is implemented by stores that can reload an audit trail
// without replaying its balance effects.
type LedgerEventRestorer interface {
	RestoreLedgerEvents(ctx context.Context, accountID string, events []*domain.LedgerEvent) error
}

// Export reads the full ledger state out of the store.
func Export(ctx context.Context, st store.Store) (*Snapshot, error) {
	accounts, err := st.ListAccounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("export: listing accounts: %w", err)
	}
	cards, err := st.ListCards(ctx, true)
	if err != nil {
		return nil, fmt.Errorf("export: listing cards: %w", err)
	}
	txs, err := st.ListTransactions(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("export: listing transactions: %w", err)
	}
	items, err := st.ListRecurringItems(ctx)
	if err != nil {
		return nil, fmt.Errorf("export: listing recurring items: %w", err)
	}

	events := make(map[string][]*domain.LedgerEvent, len(accounts))
	for _, acc := range accounts {
		evs, err := st.ListLedgerEvents(ctx, acc.ID)
		if err != nil {
			return nil, fmt.Errorf("export: listing events for %s: %w", acc.ID, err)
		}
		if len(evs) > 0 {
			events[acc.ID] = evs
		}
	}

	return &Snapshot{
		ExportedAt:     time.Now().UTC(),
		Accounts:       accounts,
		Cards:          cards,
		Transactions:   txs,
		RecurringItems: items,
		LedgerEvents:   events,
	}, nil
}

// Restore loads a snapshot into an empty store. Account balances come back
// exactly as exported; audit trails are reloaded when the store supports it.
func Restore(ctx context.Context, st store.Store, snap *Snapshot) error {
	for _, acc := range snap.Accounts {
		if err := st.CreateAccount(ctx, acc); err != nil {
			return fmt.Errorf("restore: account %s: %w", acc.ID, err)
		}
	}
	for _, card := range snap.Cards {
		if err := st.CreateCard(ctx, card); err != nil {
			return fmt.Errorf("restore: card %s: %w", card.ID, err)
		}
	}
	for _, tx := range snap.Transactions {
		if err := st.CreateTransaction(ctx, tx); err != nil {
			return fmt.Errorf("restore: transaction %s: %w", tx.ID, err)
		}
	}
	for _, item := range snap.RecurringItems {
		if err := st.CreateRecurringItem(ctx, item); err != nil {
			return fmt.Errorf("restore: recurring item %s: %w", item.ID, err)
		}
	}

	restorer, ok := st.(LedgerEventRestorer)
	if !ok {
		return nil
	}
	for accountID, evs := range snap.LedgerEvents {
		if err := restorer.RestoreLedgerEvents(ctx, accountID, evs); err != nil {
			return fmt.Errorf("restore: events for %s: %w", accountID, err)
		}
	}
	return nil
}

// Encode renders the snapshot as indented JSON.
func (s *Snapshot) Encode() ([]byte, error) {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding snapshot: %w", err)
	}
	return data, nil
}

// Decode parses a snapshot from JSON.
func Decode(data []byte) (*Snapshot, error) {
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("decoding snapshot: %w", err)
	}
	return &snap, nil
}

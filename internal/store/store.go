// Package store defines the data-access boundary the engine computes against.
// Implementations persist whole entities; out-of-band updates replace the
// affected entity wholesale (last-write-wins), so every write takes the full
// value rather than a field patch.
package store

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"github.com/carteira-app/carteira/internal/domain"
)

// ErrNotFound is returned when an entity id is absent from the store.
var ErrNotFound = errors.New("not found")

// Store is the engine's persistence collaborator.
type Store interface {
	CreateAccount(ctx context.Context, acc *domain.Account) error
	GetAccount(ctx context.Context, id string) (*domain.Account, error)
	ListAccounts(ctx context.Context) ([]*domain.Account, error)
	// UpdateAccountBalance applies a signed delta to an account balance and
	// records the event that caused it, atomically. No other operation may
	// change a balance.
	UpdateAccountBalance(ctx context.Context, id string, delta decimal.Decimal, event domain.LedgerEvent) error
	ListLedgerEvents(ctx context.Context, accountID string) ([]*domain.LedgerEvent, error)

	CreateCard(ctx context.Context, card *domain.Card) error
	GetCard(ctx context.Context, id string) (*domain.Card, error)
	ListCards(ctx context.Context, includeDeleted bool) ([]*domain.Card, error)
	// DeleteCard soft-deletes: historical installments survive, new charges
	// are refused.
	DeleteCard(ctx context.Context, id string) error

	CreateTransaction(ctx context.Context, tx *domain.Transaction) error
	GetTransaction(ctx context.Context, id string) (*domain.Transaction, error)
	ListTransactions(ctx context.Context, accountID string) ([]*domain.Transaction, error)
	DeleteTransaction(ctx context.Context, id string) error
	// UpdateInstallment replaces one installment of a transaction wholesale.
	UpdateInstallment(ctx context.Context, txID string, inst domain.Installment) error
	// ListPendingInstallments returns unpaid installments, optionally
	// filtered to one account or one card (empty string means no filter).
	ListPendingInstallments(ctx context.Context, accountID, cardID string) ([]*domain.PendingInstallment, error)

	CreateRecurringItem(ctx context.Context, item *domain.RecurringItem) error
	ListRecurringItems(ctx context.Context) ([]*domain.RecurringItem, error)
	UpdateRecurringItem(ctx context.Context, item *domain.RecurringItem) error
}

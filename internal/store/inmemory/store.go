// Package inmemory is the map-backed Store used by the CLI, the API server's
// local state and the test suites. Data is lost on restart; the sync worker
// mirrors writes to the hosted store.
package inmemory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/carteira-app/carteira/internal/domain"
	"github.com/carteira-app/carteira/internal/store"
)

// Store is an in-memory implementation of store.Store. It is safe for
// concurrent use and always returns copies so callers cannot mutate shared
// state behind its back.
type Store struct {
	mu         sync.RWMutex
	accounts   map[string]*domain.Account
	cards      map[string]*domain.Card
	txs        map[string]*domain.Transaction
	recurring  map[string]*domain.RecurringItem
	events     map[string][]*domain.LedgerEvent // accountID -> ordered events
	txOrder    []string
	recOrder   []string
	cardOrder  []string
	acctOrder  []string
}

// NewStore creates an empty in-memory store.
func NewStore() *Store {
	return &Store{
		accounts:  make(map[string]*domain.Account),
		cards:     make(map[string]*domain.Card),
		txs:       make(map[string]*domain.Transaction),
		recurring: make(map[string]*domain.RecurringItem),
		events:    make(map[string][]*domain.LedgerEvent),
	}
}

func copyAccount(a *domain.Account) *domain.Account {
	c := *a
	return &c
}

func copyCard(c *domain.Card) *domain.Card {
	cp := *c
	return &cp
}

func copyTransaction(t *domain.Transaction) *domain.Transaction {
	cp := *t
	cp.Installments = make([]domain.Installment, len(t.Installments))
	for i, inst := range t.Installments {
		cp.Installments[i] = copyInstallment(inst)
	}
	if t.InvoiceCovers != nil {
		cp.InvoiceCovers = append([]domain.InstallmentRef(nil), t.InvoiceCovers...)
	}
	return &cp
}

func copyInstallment(inst domain.Installment) domain.Installment {
	cp := inst
	if inst.PaymentDate != nil {
		d := *inst.PaymentDate
		cp.PaymentDate = &d
	}
	if inst.PaidAmount != nil {
		a := *inst.PaidAmount
		cp.PaidAmount = &a
	}
	return cp
}

func copyRecurring(r *domain.RecurringItem) *domain.RecurringItem {
	cp := *r
	if r.LastRun != nil {
		d := *r.LastRun
		cp.LastRun = &d
	}
	return &cp
}

// CreateAccount stores a new account.
func (s *Store) CreateAccount(ctx context.Context, acc *domain.Account) error {
	if acc.ID == "" {
		return fmt.Errorf("account id is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.accounts[acc.ID]; !exists {
		s.acctOrder = append(s.acctOrder, acc.ID)
	}
	s.accounts[acc.ID] = copyAccount(acc)
	return nil
}

// GetAccount retrieves an account by id.
func (s *Store) GetAccount(ctx context.Context, id string) (*domain.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	acc, ok := s.accounts[id]
	if !ok {
		return nil, fmt.Errorf("account %s: %w", id, store.ErrNotFound)
	}
	return copyAccount(acc), nil
}

// ListAccounts returns all accounts in creation order.
func (s *Store) ListAccounts(ctx context.Context) ([]*domain.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*domain.Account, 0, len(s.acctOrder))
	for _, id := range s.acctOrder {
		out = append(out, copyAccount(s.accounts[id]))
	}
	return out, nil
}

// UpdateAccountBalance applies a signed delta and appends the causing event.
func (s *Store) UpdateAccountBalance(ctx context.Context, id string, delta decimal.Decimal, event domain.LedgerEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	acc, ok := s.accounts[id]
	if !ok {
		return fmt.Errorf("account %s: %w", id, store.ErrNotFound)
	}
	acc.Balance = acc.Balance.Add(delta)
	ev := event
	s.events[id] = append(s.events[id], &ev)
	return nil
}

// ListLedgerEvents returns the balance-affecting events of an account in
// application order.
func (s *Store) ListLedgerEvents(ctx context.Context, accountID string) ([]*domain.LedgerEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	evs := s.events[accountID]
	out := make([]*domain.LedgerEvent, len(evs))
	for i, ev := range evs {
		cp := *ev
		out[i] = &cp
	}
	return out, nil
}

// RestoreLedgerEvents reloads an account's audit trail without touching its
// balance, used when rehydrating a snapshot whose balances already include
// the events' effects.
func (s *Store) RestoreLedgerEvents(ctx context.Context, accountID string, events []*domain.LedgerEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.accounts[accountID]; !ok {
		return fmt.Errorf("account %s: %w", accountID, store.ErrNotFound)
	}
	restored := make([]*domain.LedgerEvent, len(events))
	for i, ev := range events {
		cp := *ev
		restored[i] = &cp
	}
	s.events[accountID] = restored
	return nil
}

// CreateCard stores a new card.
func (s *Store) CreateCard(ctx context.Context, card *domain.Card) error {
	if card.ID == "" {
		return fmt.Errorf("card id is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.cards[card.ID]; !exists {
		s.cardOrder = append(s.cardOrder, card.ID)
	}
	s.cards[card.ID] = copyCard(card)
	return nil
}

// GetCard retrieves a card by id, including soft-deleted ones.
func (s *Store) GetCard(ctx context.Context, id string) (*domain.Card, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	card, ok := s.cards[id]
	if !ok {
		return nil, fmt.Errorf("card %s: %w", id, store.ErrNotFound)
	}
	return copyCard(card), nil
}

// ListCards returns cards in creation order, skipping soft-deleted ones
// unless includeDeleted is set.
func (s *Store) ListCards(ctx context.Context, includeDeleted bool) ([]*domain.Card, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*domain.Card, 0, len(s.cardOrder))
	for _, id := range s.cardOrder {
		card := s.cards[id]
		if card.Deleted && !includeDeleted {
			continue
		}
		out = append(out, copyCard(card))
	}
	return out, nil
}

// DeleteCard marks a card deleted, keeping its history.
func (s *Store) DeleteCard(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	card, ok := s.cards[id]
	if !ok {
		return fmt.Errorf("card %s: %w", id, store.ErrNotFound)
	}
	card.Deleted = true
	return nil
}

// CreateTransaction stores a new transaction with its installments.
func (s *Store) CreateTransaction(ctx context.Context, tx *domain.Transaction) error {
	if tx.ID == "" {
		return fmt.Errorf("transaction id is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.txs[tx.ID]; !exists {
		s.txOrder = append(s.txOrder, tx.ID)
	}
	s.txs[tx.ID] = copyTransaction(tx)
	return nil
}

// GetTransaction retrieves a transaction by id.
func (s *Store) GetTransaction(ctx context.Context, id string) (*domain.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	tx, ok := s.txs[id]
	if !ok {
		return nil, fmt.Errorf("transaction %s: %w", id, store.ErrNotFound)
	}
	return copyTransaction(tx), nil
}

// ListTransactions returns transactions in creation order, optionally
// filtered to one account.
func (s *Store) ListTransactions(ctx context.Context, accountID string) ([]*domain.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*domain.Transaction
	for _, id := range s.txOrder {
		tx := s.txs[id]
		if accountID != "" && tx.AccountID != accountID {
			continue
		}
		out = append(out, copyTransaction(tx))
	}
	return out, nil
}

// DeleteTransaction removes a transaction entirely. Installments never
// outlive their parent.
func (s *Store) DeleteTransaction(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.txs[id]; !ok {
		return fmt.Errorf("transaction %s: %w", id, store.ErrNotFound)
	}
	delete(s.txs, id)
	for i, txID := range s.txOrder {
		if txID == id {
			s.txOrder = append(s.txOrder[:i], s.txOrder[i+1:]...)
			break
		}
	}
	return nil
}

// UpdateInstallment replaces one installment of a transaction wholesale.
func (s *Store) UpdateInstallment(ctx context.Context, txID string, inst domain.Installment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	tx, ok := s.txs[txID]
	if !ok {
		return fmt.Errorf("transaction %s: %w", txID, store.ErrNotFound)
	}
	for i := range tx.Installments {
		if tx.Installments[i].SequenceNumber == inst.SequenceNumber {
			tx.Installments[i] = copyInstallment(inst)
			return nil
		}
	}
	return fmt.Errorf("transaction %s installment %d: %w", txID, inst.SequenceNumber, store.ErrNotFound)
}

// ListPendingInstallments returns unpaid installments ordered by posting date.
func (s *Store) ListPendingInstallments(ctx context.Context, accountID, cardID string) ([]*domain.PendingInstallment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*domain.PendingInstallment
	for _, id := range s.txOrder {
		tx := s.txs[id]
		if accountID != "" && tx.AccountID != accountID {
			continue
		}
		if cardID != "" && tx.CardID != cardID {
			continue
		}
		if tx.IsInvoicePayment() {
			continue
		}
		for _, inst := range tx.Installments {
			if inst.Paid {
				continue
			}
			out = append(out, &domain.PendingInstallment{
				TransactionID: tx.ID,
				Description:   tx.Description,
				AccountID:     tx.AccountID,
				CardID:        tx.CardID,
				Kind:          tx.Kind,
				IsIncome:      tx.IsIncome,
				Installment:   copyInstallment(inst),
			})
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Installment.PostingDate.Before(out[j].Installment.PostingDate)
	})
	return out, nil
}

// CreateRecurringItem stores a new recurring template.
func (s *Store) CreateRecurringItem(ctx context.Context, item *domain.RecurringItem) error {
	if item.ID == "" {
		return fmt.Errorf("recurring item id is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.recurring[item.ID]; !exists {
		s.recOrder = append(s.recOrder, item.ID)
	}
	s.recurring[item.ID] = copyRecurring(item)
	return nil
}

// ListRecurringItems returns all templates in creation order.
func (s *Store) ListRecurringItems(ctx context.Context) ([]*domain.RecurringItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*domain.RecurringItem, 0, len(s.recOrder))
	for _, id := range s.recOrder {
		out = append(out, copyRecurring(s.recurring[id]))
	}
	return out, nil
}

// UpdateRecurringItem replaces a template wholesale.
func (s *Store) UpdateRecurringItem(ctx context.Context, item *domain.RecurringItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.recurring[item.ID]; !ok {
		return fmt.Errorf("recurring item %s: %w", item.ID, store.ErrNotFound)
	}
	s.recurring[item.ID] = copyRecurring(item)
	return nil
}

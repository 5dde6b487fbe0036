package inmemory

import (
	"context"
	"errors"
	"testing"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"github.com/carteira-app/carteira/internal/domain"
	"github.com/carteira-app/carteira/internal/store"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func date(t *testing.T, s string) civil.Date {
	t.Helper()
	d, err := civil.ParseDate(s)
	if err != nil {
		t.Fatalf("bad date %q: %v", s, err)
	}
	return d
}

func seedTransaction(t *testing.T, s *Store, id string) *domain.Transaction {
	t.Helper()
	tx := &domain.Transaction{
		ID:                id,
		Description:       "TV",
		Amount:            dec("300"),
		Date:              date(t, "2024-01-10"),
		InstallmentsCount: 2,
		Kind:              domain.KindTermed,
		AccountID:         "acct-1",
		Installments: []domain.Installment{
			{SequenceNumber: 1, Amount: dec("150"), PostingDate: date(t, "2024-01-10")},
			{SequenceNumber: 2, Amount: dec("150"), PostingDate: date(t, "2024-02-10")},
		},
	}
	if err := s.CreateTransaction(context.Background(), tx); err != nil {
		t.Fatalf("CreateTransaction: %v", err)
	}
	return tx
}

func TestStoreReturnsCopies(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	seedTransaction(t, s, "tx-1")

	got, err := s.GetTransaction(ctx, "tx-1")
	if err != nil {
		t.Fatalf("GetTransaction: %v", err)
	}
	got.Installments[0].Paid = true
	got.Description = "mutated"

	fresh, err := s.GetTransaction(ctx, "tx-1")
	if err != nil {
		t.Fatalf("GetTransaction: %v", err)
	}
	if fresh.Installments[0].Paid || fresh.Description != "TV" {
		t.Error("mutation of a returned copy leaked into the store")
	}
}

func TestStoreNotFound(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	if _, err := s.GetTransaction(ctx, "nope"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("GetTransaction: got %v, want ErrNotFound", err)
	}
	if _, err := s.GetAccount(ctx, "nope"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("GetAccount: got %v, want ErrNotFound", err)
	}
	if _, err := s.GetCard(ctx, "nope"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("GetCard: got %v, want ErrNotFound", err)
	}
	if err := s.UpdateInstallment(ctx, "nope", domain.Installment{SequenceNumber: 1}); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("UpdateInstallment: got %v, want ErrNotFound", err)
	}
	if err := s.UpdateRecurringItem(ctx, &domain.RecurringItem{ID: "nope"}); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("UpdateRecurringItem: got %v, want ErrNotFound", err)
	}
}

func TestUpdateAccountBalanceRecordsEvents(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	if err := s.CreateAccount(ctx, &domain.Account{ID: "acct-1", Balance: dec("100"), OpeningBalance: dec("100")}); err != nil {
		t.Fatalf("CreateAccount: %v", err)
	}

	ev := domain.LedgerEvent{ID: "ev-1", AccountID: "acct-1", Kind: domain.EventTransferIn, Amount: dec("25")}
	if err := s.UpdateAccountBalance(ctx, "acct-1", dec("25"), ev); err != nil {
		t.Fatalf("UpdateAccountBalance: %v", err)
	}

	acc, _ := s.GetAccount(ctx, "acct-1")
	if !acc.Balance.Equal(dec("125")) {
		t.Errorf("balance = %s, want 125", acc.Balance)
	}
	events, _ := s.ListLedgerEvents(ctx, "acct-1")
	if len(events) != 1 || events[0].ID != "ev-1" {
		t.Errorf("events = %+v, want the recorded event", events)
	}
}

func TestListPendingInstallments(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	tx := seedTransaction(t, s, "tx-1")

	cardTx := &domain.Transaction{
		ID:        "tx-2",
		Amount:    dec("100"),
		Date:      date(t, "2024-01-05"),
		Kind:      domain.KindCard,
		AccountID: "acct-1",
		CardID:    "card-1",
		Installments: []domain.Installment{
			{SequenceNumber: 1, Amount: dec("100"), PostingDate: date(t, "2024-01-05")},
		},
	}
	if err := s.CreateTransaction(ctx, cardTx); err != nil {
		t.Fatalf("CreateTransaction: %v", err)
	}

	t.Run("card filter", func(t *testing.T) {
		pending, err := s.ListPendingInstallments(ctx, "", "card-1")
		if err != nil {
			t.Fatalf("ListPendingInstallments: %v", err)
		}
		if len(pending) != 1 || pending[0].TransactionID != "tx-2" {
			t.Errorf("pending = %+v, want only the card installment", pending)
		}
	})

	t.Run("paid installments drop out", func(t *testing.T) {
		paid := tx.Installments[0]
		paidOn := date(t, "2024-01-15")
		amount := paid.Amount
		paid.Paid = true
		paid.PaymentDate = &paidOn
		paid.PaidAmount = &amount
		if err := s.UpdateInstallment(ctx, tx.ID, paid); err != nil {
			t.Fatalf("UpdateInstallment: %v", err)
		}

		pending, err := s.ListPendingInstallments(ctx, "acct-1", "")
		if err != nil {
			t.Fatalf("ListPendingInstallments: %v", err)
		}
		for _, p := range pending {
			if p.TransactionID == tx.ID && p.Installment.SequenceNumber == 1 {
				t.Error("paid installment still listed as pending")
			}
		}
	})

	t.Run("ordered by posting date", func(t *testing.T) {
		pending, err := s.ListPendingInstallments(ctx, "", "")
		if err != nil {
			t.Fatalf("ListPendingInstallments: %v", err)
		}
		for i := 1; i < len(pending); i++ {
			if pending[i].Installment.PostingDate.Before(pending[i-1].Installment.PostingDate) {
				t.Error("pending installments not ordered by posting date")
			}
		}
	})
}

func TestDeleteCardIsSoft(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	if err := s.CreateCard(ctx, &domain.Card{ID: "card-1", Name: "Violet"}); err != nil {
		t.Fatalf("CreateCard: %v", err)
	}
	if err := s.DeleteCard(ctx, "card-1"); err != nil {
		t.Fatalf("DeleteCard: %v", err)
	}

	card, err := s.GetCard(ctx, "card-1")
	if err != nil {
		t.Fatalf("GetCard after delete: %v", err)
	}
	if !card.Deleted {
		t.Error("card not marked deleted")
	}

	visible, _ := s.ListCards(ctx, false)
	if len(visible) != 0 {
		t.Errorf("deleted card still listed: %+v", visible)
	}
	all, _ := s.ListCards(ctx, true)
	if len(all) != 1 {
		t.Errorf("deleted card missing from includeDeleted listing")
	}
}

func TestDeleteTransaction(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	seedTransaction(t, s, "tx-1")
	seedTransaction(t, s, "tx-2")

	if err := s.DeleteTransaction(ctx, "tx-1"); err != nil {
		t.Fatalf("DeleteTransaction: %v", err)
	}
	if _, err := s.GetTransaction(ctx, "tx-1"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("deleted transaction still present: %v", err)
	}
	txs, _ := s.ListTransactions(ctx, "")
	if len(txs) != 1 || txs[0].ID != "tx-2" {
		t.Errorf("transactions after delete = %+v", txs)
	}
}

package backup

import (
	"context"
	"path/filepath"
	"testing"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"github.com/carteira-app/carteira/internal/domain"
	"github.com/carteira-app/carteira/internal/store/inmemory"
)

func seedStore(t *testing.T) *inmemory.Store {
	t.Helper()
	ctx := context.Background()
	st := inmemory.NewStore()

	acct := &domain.Account{
		ID:             "acct-1",
		Name:           "Checking",
		Balance:        decimal.RequireFromString("1000.00"),
		OpeningBalance: decimal.RequireFromString("1000.00"),
	}
	if err := st.CreateAccount(ctx, acct); err != nil {
		t.Fatalf("CreateAccount: %v", err)
	}
	card := &domain.Card{ID: "card-1", Name: "Visa", ClosingDay: 20, DueDay: 5, AccountID: "acct-1"}
	if err := st.CreateCard(ctx, card); err != nil {
		t.Fatalf("CreateCard: %v", err)
	}
	tx := &domain.Transaction{
		ID:                "tx-1",
		Description:       "groceries",
		Amount:            decimal.RequireFromString("80.00"),
		Date:              civil.Date{Year: 2024, Month: 1, Day: 10},
		InstallmentsCount: 1,
		Kind:              domain.KindCash,
		AccountID:         "acct-1",
		Installments: []domain.Installment{
			{SequenceNumber: 1, Amount: decimal.RequireFromString("80.00"), PostingDate: civil.Date{Year: 2024, Month: 1, Day: 10}},
		},
	}
	if err := st.CreateTransaction(ctx, tx); err != nil {
		t.Fatalf("CreateTransaction: %v", err)
	}

	ev := domain.LedgerEvent{
		ID:        "evt-1",
		AccountID: "acct-1",
		Kind:      domain.EventCashPurchase,
		Amount:    decimal.RequireFromString("-80.00"),
		Date:      civil.Date{Year: 2024, Month: 1, Day: 10},
		RefID:     "tx-1",
	}
	if err := st.UpdateAccountBalance(ctx, "acct-1", ev.Amount, ev); err != nil {
		t.Fatalf("UpdateAccountBalance: %v", err)
	}
	return st
}

func TestExportRestoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	st := seedStore(t)

	snap, err := Export(ctx, st)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if len(snap.Accounts) != 1 || len(snap.Cards) != 1 || len(snap.Transactions) != 1 {
		t.Fatalf("snapshot sizes = %d/%d/%d, want 1/1/1",
			len(snap.Accounts), len(snap.Cards), len(snap.Transactions))
	}
	if len(snap.LedgerEvents["acct-1"]) != 1 {
		t.Fatalf("snapshot events = %d, want 1", len(snap.LedgerEvents["acct-1"]))
	}

	fresh := inmemory.NewStore()
	if err := Restore(ctx, fresh, snap); err != nil {
		t.Fatalf("Restore: %v", err)
	}

	acct, err := fresh.GetAccount(ctx, "acct-1")
	if err != nil {
		t.Fatalf("GetAccount: %v", err)
	}
	if !acct.Balance.Equal(decimal.RequireFromString("920.00")) {
		t.Errorf("restored balance = %s, want 920.00", acct.Balance)
	}

	evs, err := fresh.ListLedgerEvents(ctx, "acct-1")
	if err != nil {
		t.Fatalf("ListLedgerEvents: %v", err)
	}
	if len(evs) != 1 || evs[0].ID != "evt-1" {
		t.Errorf("restored events = %+v, want the exported trail", evs)
	}

	tx, err := fresh.GetTransaction(ctx, "tx-1")
	if err != nil {
		t.Fatalf("GetTransaction: %v", err)
	}
	if len(tx.Installments) != 1 || !tx.Installments[0].Amount.Equal(decimal.RequireFromString("80.00")) {
		t.Errorf("restored transaction = %+v", tx)
	}
}

func TestFileSaveLoadRoundTrip(t *testing.T) {
	ctx := context.Background()
	st := seedStore(t)

	snap, err := Export(ctx, st)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}

	path := filepath.Join(t.TempDir(), "nested", "ledger.json")
	if err := SaveToFile(snap, path); err != nil {
		t.Fatalf("SaveToFile: %v", err)
	}

	loaded, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile: %v", err)
	}
	if !loaded.ExportedAt.Equal(snap.ExportedAt) {
		t.Errorf("ExportedAt = %v, want %v", loaded.ExportedAt, snap.ExportedAt)
	}
	if len(loaded.Transactions) != 1 {
		t.Fatalf("loaded transactions = %d, want 1", len(loaded.Transactions))
	}
	got, want := loaded.Transactions[0], snap.Transactions[0]
	if got.ID != want.ID || got.Date != want.Date || !got.Amount.Equal(want.Amount) {
		t.Errorf("transaction changed across file round trip: %+v", got)
	}
}

func TestLoadFromFileMissing(t *testing.T) {
	if _, err := LoadFromFile(filepath.Join(t.TempDir(), "absent.json")); err == nil {
		t.Fatal("LoadFromFile on a missing path returned nil error")
	}
}

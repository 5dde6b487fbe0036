package engine

import (
	"testing"

	"cloud.google.com/go/civil"

	"github.com/carteira-app/carteira/internal/domain"
)

func TestCreateAccountValidation(t *testing.T) {
	f := newLedgerFixture(t, "2024-01-15")

	if _, err := f.ledger.CreateAccount(f.ctx, "", "", dec("100"), false); !IsValidation(err) {
		t.Errorf("empty name: err = %v, want validation error", err)
	}

	acc, err := f.ledger.CreateAccount(f.ctx, "", "Wallet", dec("-25.50"), false)
	if err != nil {
		t.Fatalf("CreateAccount: %v", err)
	}
	if acc.ID == "" {
		t.Error("CreateAccount did not assign an id")
	}
	if !acc.Balance.Equal(dec("-25.50")) || !acc.OpeningBalance.Equal(dec("-25.50")) {
		t.Errorf("opening balance not carried: balance=%s opening=%s", acc.Balance, acc.OpeningBalance)
	}
	f.reconcile(t, acc.ID)
}

func TestCreateCardValidation(t *testing.T) {
	f := newLedgerFixture(t, "2024-01-15")

	cases := []struct {
		name string
		in   CreateCardInput
	}{
		{"empty name", CreateCardInput{ClosingDay: 20, DueDay: 5, AccountID: "acct-1"}},
		{"closing day zero", CreateCardInput{Name: "X", ClosingDay: 0, DueDay: 5, AccountID: "acct-1"}},
		{"closing day too high", CreateCardInput{Name: "X", ClosingDay: 32, DueDay: 5, AccountID: "acct-1"}},
		{"due day zero", CreateCardInput{Name: "X", ClosingDay: 20, DueDay: 0, AccountID: "acct-1"}},
		{"negative limit", CreateCardInput{Name: "X", ClosingDay: 20, DueDay: 5, Limit: dec("-1"), AccountID: "acct-1"}},
		{"missing account", CreateCardInput{Name: "X", ClosingDay: 20, DueDay: 5, AccountID: "nope"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := f.ledger.CreateCard(f.ctx, tc.in); !IsValidation(err) {
				t.Errorf("err = %v, want validation error", err)
			}
		})
	}

	card, err := f.ledger.CreateCard(f.ctx, CreateCardInput{
		Name: "Amber", ClosingDay: 10, DueDay: 25, Limit: dec("1500"), AccountID: "acct-2",
	})
	if err != nil {
		t.Fatalf("CreateCard: %v", err)
	}
	got, err := f.store.GetCard(f.ctx, card.ID)
	if err != nil {
		t.Fatalf("GetCard: %v", err)
	}
	if got.ClosingDay != 10 || got.DueDay != 25 || got.AccountID != "acct-2" {
		t.Errorf("stored card = %+v", got)
	}
}

func TestDeleteCardIsSoftAndIdempotentOnMissing(t *testing.T) {
	f := newLedgerFixture(t, "2024-01-15")

	res, err := f.ledger.DeleteCard(f.ctx, "card-1")
	if err != nil {
		t.Fatalf("DeleteCard: %v", err)
	}
	if !res.Applied {
		t.Fatalf("DeleteCard not applied: %+v", res)
	}

	card, err := f.store.GetCard(f.ctx, "card-1")
	if err != nil {
		t.Fatalf("GetCard after delete: %v", err)
	}
	if !card.Deleted {
		t.Error("card not soft-deleted")
	}

	res, err = f.ledger.DeleteCard(f.ctx, "ghost")
	if err != nil {
		t.Fatalf("DeleteCard(ghost): %v", err)
	}
	if res.Applied {
		t.Errorf("deleting a missing card applied: %+v", res)
	}
}

func TestCreateRecurringItemFirstRun(t *testing.T) {
	f := newLedgerFixture(t, "2024-01-15")

	cases := []struct {
		name    string
		day     int
		wantRun civil.Date
	}{
		{"later this month", 20, civil.Date{Year: 2024, Month: 1, Day: 20}},
		{"today", 15, civil.Date{Year: 2024, Month: 1, Day: 15}},
		{"already passed", 10, civil.Date{Year: 2024, Month: 2, Day: 10}},
		{"clamped next month", 31, civil.Date{Year: 2024, Month: 1, Day: 31}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			item, err := f.ledger.CreateRecurringItem(f.ctx, CreateRecurringItemInput{
				Description: "rent", Amount: dec("900"), Kind: domain.KindCash,
				AccountID: "acct-1", Day: tc.day,
			})
			if err != nil {
				t.Fatalf("CreateRecurringItem: %v", err)
			}
			if item.NextRun != tc.wantRun {
				t.Errorf("NextRun = %s, want %s", item.NextRun, tc.wantRun)
			}
			if !item.Enabled {
				t.Error("new item not enabled")
			}
		})
	}
}

func TestCreateRecurringItemCardRules(t *testing.T) {
	f := newLedgerFixture(t, "2024-01-15")

	// Card expense on a missing card is refused.
	if _, err := f.ledger.CreateRecurringItem(f.ctx, CreateRecurringItemInput{
		Description: "club", Amount: dec("30"), Kind: domain.KindCard,
		AccountID: "acct-1", CardID: "ghost", Day: 5,
	}); !IsValidation(err) {
		t.Errorf("missing card: err = %v, want validation error", err)
	}

	// Card expense on a deleted card is refused.
	if _, err := f.ledger.DeleteCard(f.ctx, "card-1"); err != nil {
		t.Fatalf("DeleteCard: %v", err)
	}
	if _, err := f.ledger.CreateRecurringItem(f.ctx, CreateRecurringItemInput{
		Description: "club", Amount: dec("30"), Kind: domain.KindCard,
		AccountID: "acct-1", CardID: "card-1", Day: 5,
	}); !IsValidation(err) {
		t.Errorf("deleted card: err = %v, want validation error", err)
	}

	// Card-kind income never touches a card, so no card check applies.
	if _, err := f.ledger.CreateRecurringItem(f.ctx, CreateRecurringItemInput{
		Description: "cashback", Amount: dec("12"), Kind: domain.KindCard, IsIncome: true,
		AccountID: "acct-1", Day: 5,
	}); err != nil {
		t.Errorf("card-kind income: %v", err)
	}
}

func TestDeleteTransactionRefusesPaidInstallments(t *testing.T) {
	f := newLedgerFixture(t, "2024-01-15")

	tx, err := f.ledger.CreateTransaction(f.ctx, CreateTransactionInput{
		Description: "tv", Amount: dec("600"), Date: date(t, "2024-01-10"),
		InstallmentsCount: 3, Kind: domain.KindCard,
		AccountID: "acct-1", CardID: "card-1",
	})
	if err != nil {
		t.Fatalf("CreateTransaction: %v", err)
	}

	if _, err := f.ledger.PayInstallment(f.ctx, tx.ID, 1, dec("200")); err != nil {
		t.Fatalf("PayInstallment: %v", err)
	}
	if _, err := f.ledger.DeleteTransaction(f.ctx, tx.ID); !IsValidation(err) {
		t.Errorf("delete with paid installment: err = %v, want validation error", err)
	}

	if _, err := f.ledger.ReverseInstallmentPayment(f.ctx, tx.ID, 1); err != nil {
		t.Fatalf("ReverseInstallmentPayment: %v", err)
	}
	res, err := f.ledger.DeleteTransaction(f.ctx, tx.ID)
	if err != nil {
		t.Fatalf("DeleteTransaction: %v", err)
	}
	if !res.Applied {
		t.Fatalf("DeleteTransaction not applied: %+v", res)
	}
	if _, err := f.store.GetTransaction(f.ctx, tx.ID); err == nil {
		t.Error("transaction still present after delete")
	}
	f.reconcile(t, "acct-1")

	res, err = f.ledger.DeleteTransaction(f.ctx, "ghost")
	if err != nil {
		t.Fatalf("DeleteTransaction(ghost): %v", err)
	}
	if res.Applied {
		t.Errorf("deleting a missing transaction applied: %+v", res)
	}
}

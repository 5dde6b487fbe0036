package assistant

import (
	"context"
	"strings"
	"testing"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"github.com/carteira-app/carteira/internal/domain"
	"github.com/carteira-app/carteira/internal/store/inmemory"
)

func TestBuildLedgerPrompt(t *testing.T) {
	ctx := context.Background()
	st := inmemory.NewStore()

	if err := st.CreateAccount(ctx, &domain.Account{
		ID:             "acct-1",
		Name:           "Checking",
		Balance:        decimal.RequireFromString("1000.00"),
		OpeningBalance: decimal.RequireFromString("1000.00"),
	}); err != nil {
		t.Fatalf("CreateAccount: %v", err)
	}
	if err := st.CreateCard(ctx, &domain.Card{
		ID: "card-1", Name: "Visa", ClosingDay: 20, DueDay: 5,
		Limit: decimal.RequireFromString("2500.00"), AccountID: "acct-1",
	}); err != nil {
		t.Fatalf("CreateCard: %v", err)
	}
	if err := st.CreateTransaction(ctx, &domain.Transaction{
		ID: "tx-1", Description: "laptop",
		Amount: decimal.RequireFromString("300.00"),
		Date:   civil.Date{Year: 2024, Month: 1, Day: 10},
		Kind:   domain.KindCard, AccountID: "acct-1", CardID: "card-1",
		InstallmentsCount: 1,
		Installments: []domain.Installment{
			{SequenceNumber: 1, Amount: decimal.RequireFromString("300.00"), PostingDate: civil.Date{Year: 2024, Month: 2, Day: 10}},
		},
	}); err != nil {
		t.Fatalf("CreateTransaction: %v", err)
	}
	if err := st.CreateRecurringItem(ctx, &domain.RecurringItem{
		ID: "rec-1", Description: "salary",
		Amount: decimal.RequireFromString("2000.00"),
		Kind:   domain.KindCash, IsIncome: true,
		AccountID: "acct-1", Day: 1, Enabled: true,
		NextRun: civil.Date{Year: 2024, Month: 2, Day: 1},
	}); err != nil {
		t.Fatalf("CreateRecurringItem: %v", err)
	}

	today := civil.Date{Year: 2024, Month: 1, Day: 15}
	prompt, err := buildLedgerPrompt(ctx, st, today, 2)
	if err != nil {
		t.Fatalf("buildLedgerPrompt: %v", err)
	}

	for _, want := range []string{
		"Today: 2024-01-15",
		"Checking: balance 1000.00",
		"Total balance: 1000.00",
		"Visa: closes day 20, due day 5",
		"laptop #1: 300.00",
		"salary: income 2000.00 on day 1",
		"Projected total balance:",
		"2024-01: 1000.00",
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q\n%s", want, prompt)
		}
	}
}

func TestBuildLedgerPromptSkipsDisabledItems(t *testing.T) {
	ctx := context.Background()
	st := inmemory.NewStore()

	if err := st.CreateAccount(ctx, &domain.Account{ID: "acct-1", Name: "Checking"}); err != nil {
		t.Fatalf("CreateAccount: %v", err)
	}
	if err := st.CreateRecurringItem(ctx, &domain.RecurringItem{
		ID: "rec-1", Description: "old gym",
		Amount: decimal.RequireFromString("50.00"),
		Kind:   domain.KindCash, AccountID: "acct-1", Day: 3,
		NextRun: civil.Date{Year: 2024, Month: 2, Day: 3},
	}); err != nil {
		t.Fatalf("CreateRecurringItem: %v", err)
	}

	prompt, err := buildLedgerPrompt(ctx, st, civil.Date{Year: 2024, Month: 1, Day: 15}, 0)
	if err != nil {
		t.Fatalf("buildLedgerPrompt: %v", err)
	}
	if strings.Contains(prompt, "old gym") {
		t.Errorf("disabled recurring item leaked into prompt:\n%s", prompt)
	}
	if strings.Contains(prompt, "Projected total balance") {
		t.Errorf("projection rendered with zero horizon:\n%s", prompt)
	}
}

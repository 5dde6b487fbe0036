package engine

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/carteira-app/carteira/internal/domain"
)

func TestProjectBalancesRecurringOnly(t *testing.T) {
	items := []*domain.RecurringItem{
		{ID: "rent", Amount: dec("200"), Enabled: true},
	}

	got := ProjectBalances(dec("1000"), date(t, "2024-03-15"), items, nil, nil, 2)

	want := []string{"1000", "800", "600"}
	if len(got) != len(want) {
		t.Fatalf("got %d points, want %d", len(got), len(want))
	}
	for i, p := range got {
		if !p.ProjectedBalance.Equal(dec(want[i])) {
			t.Errorf("month %d: balance = %s, want %s", i, p.ProjectedBalance, want[i])
		}
	}
	if got[0].MonthKey != "2024-03" || got[1].MonthKey != "2024-04" || got[2].MonthKey != "2024-05" {
		t.Errorf("month keys = %s, %s, %s", got[0].MonthKey, got[1].MonthKey, got[2].MonthKey)
	}
}

func TestProjectBalancesIncomeAndDisabled(t *testing.T) {
	items := []*domain.RecurringItem{
		{ID: "salary", Amount: dec("3000"), Enabled: true, IsIncome: true},
		{ID: "rent", Amount: dec("1200"), Enabled: true},
		{ID: "old-gym", Amount: dec("90"), Enabled: false},
	}

	got := ProjectBalances(dec("500"), date(t, "2024-01-10"), items, nil, nil, 2)

	// Net +1800 per month; the disabled item contributes nothing.
	want := []string{"500", "2300", "4100"}
	for i, p := range got {
		if !p.ProjectedBalance.Equal(dec(want[i])) {
			t.Errorf("month %d: balance = %s, want %s", i, p.ProjectedBalance, want[i])
		}
	}
}

func TestProjectBalancesPendingInstallments(t *testing.T) {
	card := &domain.Card{ID: "card-1", ClosingDay: 20, DueDay: 5}
	cards := map[string]*domain.Card{"card-1": card}

	pending := []*domain.PendingInstallment{
		{
			// Posting 2024-02-25 is past closing: invoice month Mar, due day
			// 5 < closing 20 pushes the due date to 2024-04-05.
			TransactionID: "tx-1",
			CardID:        "card-1",
			Kind:          domain.KindCard,
			Installment:   domain.Installment{SequenceNumber: 1, Amount: dec("150"), PostingDate: date(t, "2024-02-25")},
		},
		{
			// Termed installment hits on its own posting date.
			TransactionID: "tx-2",
			Kind:          domain.KindTermed,
			Installment:   domain.Installment{SequenceNumber: 2, Amount: dec("50"), PostingDate: date(t, "2024-03-10")},
		},
		{
			// Income installments never reduce the forecast.
			TransactionID: "tx-3",
			IsIncome:      true,
			Installment:   domain.Installment{SequenceNumber: 1, Amount: dec("999"), PostingDate: date(t, "2024-03-15")},
		},
	}

	got := ProjectBalances(dec("1000"), date(t, "2024-02-01"), nil, pending, cards, 3)

	want := []string{"1000", "950", "800", "800"}
	for i, p := range got {
		if !p.ProjectedBalance.Equal(dec(want[i])) {
			t.Errorf("month %d (%s): balance = %s, want %s", i, p.MonthKey, p.ProjectedBalance, want[i])
		}
	}
}

func TestProjectBalancesEmptyInputsFlatLine(t *testing.T) {
	got := ProjectBalances(dec("123.45"), date(t, "2024-06-01"), nil, nil, nil, 4)
	if len(got) != 5 {
		t.Fatalf("got %d points, want 5", len(got))
	}
	for i, p := range got {
		if !p.ProjectedBalance.Equal(dec("123.45")) {
			t.Errorf("month %d: balance = %s, want flat 123.45", i, p.ProjectedBalance)
		}
	}
}

func TestProjectBalancesRoundsEachStep(t *testing.T) {
	items := []*domain.RecurringItem{
		{ID: "odd", Amount: decimal.RequireFromString("33.333"), Enabled: true},
	}
	got := ProjectBalances(dec("100"), date(t, "2024-01-01"), items, nil, nil, 3)
	for i, p := range got {
		if !p.ProjectedBalance.Equal(p.ProjectedBalance.Round(2)) {
			t.Errorf("month %d: balance %s not rounded to cents", i, p.ProjectedBalance)
		}
	}
}

package bigquery

import (
	"encoding/json"
	"testing"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"github.com/carteira-app/carteira/internal/domain"
)

func TestAccountRowRoundTrip(t *testing.T) {
	acct := &domain.Account{
		ID:             "acct-1",
		Name:           "Checking",
		Balance:        decimal.RequireFromString("936.67"),
		OpeningBalance: decimal.RequireFromString("1000.00"),
		IsDefault:      true,
	}

	got := AccountRowFrom(acct).Account()
	if got.ID != acct.ID || got.Name != acct.Name || got.IsDefault != acct.IsDefault {
		t.Errorf("round trip mangled identity fields: %+v", got)
	}
	if !got.Balance.Equal(acct.Balance) {
		t.Errorf("Balance = %s, want %s", got.Balance, acct.Balance)
	}
	if !got.OpeningBalance.Equal(acct.OpeningBalance) {
		t.Errorf("OpeningBalance = %s, want %s", got.OpeningBalance, acct.OpeningBalance)
	}
}

func TestCardRowRoundTrip(t *testing.T) {
	card := &domain.Card{
		ID:         "card-1",
		Name:       "Visa",
		ClosingDay: 20,
		DueDay:     5,
		Limit:      decimal.RequireFromString("2500.00"),
		AccountID:  "acct-1",
		Deleted:    true,
	}

	got := CardRowFrom(card).Card()
	if got.ClosingDay != 20 || got.DueDay != 5 {
		t.Errorf("cycle days = %d/%d, want 20/5", got.ClosingDay, got.DueDay)
	}
	if !got.Deleted {
		t.Error("soft-delete flag lost in round trip")
	}
	if !got.Limit.Equal(card.Limit) {
		t.Errorf("Limit = %s, want %s", got.Limit, card.Limit)
	}
}

func TestTransactionRowFrom(t *testing.T) {
	paidOn := civil.Date{Year: 2024, Month: 3, Day: 5}
	paidAmt := decimal.RequireFromString("33.33")
	tx := &domain.Transaction{
		ID:                "tx-1",
		Description:       "laptop",
		Amount:            decimal.RequireFromString("100.00"),
		Date:              civil.Date{Year: 2024, Month: 1, Day: 31},
		InstallmentsCount: 3,
		Kind:              domain.KindCard,
		AccountID:         "acct-1",
		CardID:            "card-1",
		Installments: []domain.Installment{
			{SequenceNumber: 1, Amount: paidAmt, PostingDate: civil.Date{Year: 2024, Month: 2, Day: 29}, Paid: true, PaymentDate: &paidOn, PaidAmount: &paidAmt},
			{SequenceNumber: 2, Amount: paidAmt, PostingDate: civil.Date{Year: 2024, Month: 3, Day: 31}},
		},
	}

	row, installments, err := TransactionRowFrom(tx)
	if err != nil {
		t.Fatalf("TransactionRowFrom: %v", err)
	}
	if row.CardID.StringVal != "card-1" || !row.CardID.Valid {
		t.Errorf("CardID = %+v, want valid card-1", row.CardID)
	}
	if row.InvoiceCardID.Valid || row.InvoiceCovers.Valid {
		t.Error("ordinary transaction carries invoice columns")
	}
	if len(installments) != 2 {
		t.Fatalf("installment rows = %d, want 2", len(installments))
	}
	first, second := installments[0], installments[1]
	if !first.Paid || !first.PaymentDate.Valid || first.PaidAmount == nil {
		t.Errorf("paid installment lost payment fields: %+v", first)
	}
	if second.Paid || second.PaymentDate.Valid || second.PaidAmount != nil {
		t.Errorf("pending installment gained payment fields: %+v", second)
	}
}

func TestTransactionRowFromInvoiceCovers(t *testing.T) {
	tx := &domain.Transaction{
		ID:              "inv-1",
		Amount:          decimal.RequireFromString("63.33"),
		Date:            civil.Date{Year: 2024, Month: 3, Day: 5},
		Kind:            domain.KindCash,
		AccountID:       "acct-1",
		InvoiceCardID:   "card-1",
		InvoiceMonthKey: "2024-03",
		InvoiceCovers: []domain.InstallmentRef{
			{TransactionID: "tx-1", SequenceNumber: 1, PaidAmount: decimal.RequireFromString("33.33")},
			{TransactionID: "tx-2", SequenceNumber: 1, PaidAmount: decimal.RequireFromString("30.00")},
		},
	}

	row, _, err := TransactionRowFrom(tx)
	if err != nil {
		t.Fatalf("TransactionRowFrom: %v", err)
	}
	if !row.InvoiceCovers.Valid {
		t.Fatal("invoice covers column not populated")
	}

	var covers []domain.InstallmentRef
	if err := json.Unmarshal([]byte(row.InvoiceCovers.StringVal), &covers); err != nil {
		t.Fatalf("decoding invoice covers: %v", err)
	}
	if len(covers) != 2 || covers[0].TransactionID != "tx-1" || covers[1].SequenceNumber != 1 {
		t.Errorf("covers round trip = %+v", covers)
	}
}

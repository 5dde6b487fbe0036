package engine

import (
	"cloud.google.com/go/civil"
	"github.com/google/uuid"

	"github.com/carteira-app/carteira/internal/domain"
)

// RecurringOutcome is the result of evaluating one recurring template against
// a reference date. When the item was not due, Fired is false and Item is the
// template unchanged.
type RecurringOutcome struct {
	Fired       bool
	Transaction *domain.Transaction
	Item        domain.RecurringItem
}

// RunRecurringItem evaluates one template against today. A due item
// materializes exactly one transaction dated at NextRun — never more, however
// far in the past NextRun lies; missed periods are not back-filled.
//
// Income is auto-settled: its single installment is created paid, with the
// payment dated at NextRun. Card-kind income is demoted to cash with no card
// reference, since a card cannot receive an automatic credit. Expenses stay
// unpaid regardless of kind.
//
// closingDay is consulted only for card expenses (the materialized
// installment follows the card's cycle shift) and ignored otherwise.
//
// NextRun advances by exactly one clamped calendar month from its previous
// value and LastRun is set to today, so a second evaluation with the same
// today is a no-op.
func RunRecurringItem(item domain.RecurringItem, today civil.Date, closingDay int) (RecurringOutcome, error) {
	if !item.Due(today) {
		return RecurringOutcome{Item: item}, nil
	}

	kind := item.Kind
	cardID := item.CardID
	isCard := kind == domain.KindCard && !item.IsIncome
	if !isCard {
		cardID = ""
	}
	if item.IsIncome && kind == domain.KindCard {
		kind = domain.KindCash
	}

	installments, err := BuildInstallments(item.NextRun, item.Amount, 1, isCard, closingDay)
	if err != nil {
		return RecurringOutcome{Item: item}, err
	}
	if item.IsIncome {
		paidOn := item.NextRun
		paidAmount := item.Amount
		installments[0].Paid = true
		installments[0].PaymentDate = &paidOn
		installments[0].PaidAmount = &paidAmount
	}

	tx := &domain.Transaction{
		ID:                uuid.New().String(),
		Description:       item.Description,
		Amount:            item.Amount,
		Date:              item.NextRun,
		InstallmentsCount: 1,
		Kind:              kind,
		IsIncome:          item.IsIncome,
		AccountID:         item.AccountID,
		CardID:            cardID,
		CategoryID:        item.CategoryID,
		Installments:      installments,
	}

	lastRun := today
	item.LastRun = &lastRun
	item.NextRun = domain.AddMonthsClamped(item.NextRun, 1)

	return RecurringOutcome{Fired: true, Transaction: tx, Item: item}, nil
}

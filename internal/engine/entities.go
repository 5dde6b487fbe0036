package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/carteira-app/carteira/internal/domain"
	"github.com/carteira-app/carteira/internal/store"
)

// CreateAccount opens an account. The opening balance may carry any sign and
// becomes both Balance and OpeningBalance, so the event trail starts empty
// and reconciled.
func (l *Ledger) CreateAccount(ctx context.Context, id, name string, opening decimal.Decimal, isDefault bool) (*domain.Account, error) {
	if name == "" {
		return nil, validationf("account name must not be empty")
	}
	if id == "" {
		id = uuid.New().String()
	}

	acc := &domain.Account{
		ID:             id,
		Name:           name,
		Balance:        domain.Round2(opening),
		OpeningBalance: domain.Round2(opening),
		IsDefault:      isDefault,
	}
	if err := l.store.CreateAccount(ctx, acc); err != nil {
		return nil, fmt.Errorf("CreateAccount: %w", err)
	}

	l.log.Info().Str("account_id", acc.ID).Str("name", name).Msg("account created")
	return acc, nil
}

// CreateCardInput is the caller-facing shape for a new card.
type CreateCardInput struct {
	ID         string
	Name       string
	ClosingDay int
	DueDay     int
	Limit      decimal.Decimal
	AccountID  string
	IsDefault  bool
}

// CreateCard registers a credit card against an existing account.
func (l *Ledger) CreateCard(ctx context.Context, in CreateCardInput) (*domain.Card, error) {
	if in.Name == "" {
		return nil, validationf("card name must not be empty")
	}
	if in.ClosingDay < 1 || in.ClosingDay > 31 {
		return nil, validationf("closing day must be between 1 and 31, got %d", in.ClosingDay)
	}
	if in.DueDay < 1 || in.DueDay > 31 {
		return nil, validationf("due day must be between 1 and 31, got %d", in.DueDay)
	}
	if in.Limit.IsNegative() {
		return nil, validationf("card limit must not be negative, got %s", in.Limit)
	}
	if _, err := l.store.GetAccount(ctx, in.AccountID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, validationf("card account %s does not exist", in.AccountID)
		}
		return nil, fmt.Errorf("CreateCard: %w", err)
	}

	if in.ID == "" {
		in.ID = uuid.New().String()
	}
	card := &domain.Card{
		ID:         in.ID,
		Name:       in.Name,
		ClosingDay: in.ClosingDay,
		DueDay:     in.DueDay,
		Limit:      domain.Round2(in.Limit),
		AccountID:  in.AccountID,
		IsDefault:  in.IsDefault,
	}
	if err := l.store.CreateCard(ctx, card); err != nil {
		return nil, fmt.Errorf("CreateCard: %w", err)
	}

	l.log.Info().Str("card_id", card.ID).Str("name", in.Name).Msg("card created")
	return card, nil
}

// DeleteCard soft-deletes a card. Existing installments keep their history;
// recurring charges against the card fall back to cash on their next run.
func (l *Ledger) DeleteCard(ctx context.Context, cardID string) (MutationResult, error) {
	err := l.store.DeleteCard(ctx, cardID)
	if errors.Is(err, store.ErrNotFound) {
		return skipped("card does not exist"), nil
	}
	if err != nil {
		return MutationResult{}, fmt.Errorf("DeleteCard: %w", err)
	}

	l.log.Info().Str("card_id", cardID).Msg("card deleted")
	return MutationResult{Applied: true}, nil
}

// CreateRecurringItemInput is the caller-facing shape for a new monthly item.
type CreateRecurringItemInput struct {
	ID          string
	Description string
	Amount      decimal.Decimal
	Kind        domain.TransactionKind
	IsIncome    bool
	AccountID   string
	CardID      string
	CategoryID  string
	Day         int
}

// CreateRecurringItem registers a monthly recurring entry. NextRun starts at
// the first occurrence of Day on or after today.
func (l *Ledger) CreateRecurringItem(ctx context.Context, in CreateRecurringItemInput) (*domain.RecurringItem, error) {
	if in.Description == "" {
		return nil, validationf("recurring item description must not be empty")
	}
	if !in.Amount.IsPositive() {
		return nil, validationf("recurring amount must be positive, got %s", in.Amount)
	}
	if in.Day < 1 || in.Day > 31 {
		return nil, validationf("recurring day must be between 1 and 31, got %d", in.Day)
	}
	if in.Kind != domain.KindCash && in.Kind != domain.KindCard {
		return nil, validationf("recurring kind must be cash or card, got %q", in.Kind)
	}
	if _, err := l.store.GetAccount(ctx, in.AccountID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, validationf("recurring account %s does not exist", in.AccountID)
		}
		return nil, fmt.Errorf("CreateRecurringItem: %w", err)
	}
	if in.Kind == domain.KindCard && !in.IsIncome {
		card, err := l.store.GetCard(ctx, in.CardID)
		if errors.Is(err, store.ErrNotFound) {
			return nil, validationf("recurring card %s does not exist", in.CardID)
		}
		if err != nil {
			return nil, fmt.Errorf("CreateRecurringItem: %w", err)
		}
		if card.Deleted {
			return nil, validationf("recurring card %s is deleted", in.CardID)
		}
	}

	if in.ID == "" {
		in.ID = uuid.New().String()
	}
	item := &domain.RecurringItem{
		ID:          in.ID,
		Description: in.Description,
		Amount:      domain.Round2(in.Amount),
		Kind:        in.Kind,
		IsIncome:    in.IsIncome,
		AccountID:   in.AccountID,
		CardID:      in.CardID,
		CategoryID:  in.CategoryID,
		Day:         in.Day,
		Enabled:     true,
		NextRun:     firstRun(l.today(), in.Day),
	}
	if err := l.store.CreateRecurringItem(ctx, item); err != nil {
		return nil, fmt.Errorf("CreateRecurringItem: %w", err)
	}

	l.log.Info().Str("item_id", item.ID).Str("description", in.Description).Msg("recurring item created")
	return item, nil
}

// firstRun returns the first occurrence of the anchor day on or after today,
// clamped to the month's length.
func firstRun(today civil.Date, day int) civil.Date {
	this := domain.ClampDay(today.Year, today.Month, day)
	if !this.Before(today) {
		return this
	}
	next := time.Date(today.Year, today.Month, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 1, 0)
	return domain.ClampDay(next.Year(), next.Month(), day)
}

// DeleteTransaction removes a transaction that has no settled installments.
// Paid installments must be reversed first so the balance effect is unwound
// through the audit trail rather than silently dropped.
func (l *Ledger) DeleteTransaction(ctx context.Context, txID string) (MutationResult, error) {
	tx, err := l.store.GetTransaction(ctx, txID)
	if errors.Is(err, store.ErrNotFound) {
		return skipped("transaction does not exist"), nil
	}
	if err != nil {
		return MutationResult{}, fmt.Errorf("DeleteTransaction: %w", err)
	}

	for _, inst := range tx.Installments {
		if inst.Paid {
			return MutationResult{}, validationf("transaction %s has paid installments, reverse them first", txID)
		}
	}

	if err := l.store.DeleteTransaction(ctx, txID); err != nil {
		return MutationResult{}, fmt.Errorf("DeleteTransaction: %w", err)
	}

	l.log.Info().Str("transaction_id", txID).Msg("transaction deleted")
	return MutationResult{Applied: true}, nil
}

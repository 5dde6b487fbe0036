package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/carteira-app/carteira/internal/domain"
	"github.com/carteira-app/carteira/internal/store"
)

// Ledger applies the balance-affecting side effects of domain operations.
// Every balance change goes through Store.UpdateAccountBalance together with
// the event that caused it, so an account balance is always reconcilable
// against its event history.
//
// Operations on ids absent from the store return a result with Applied=false
// instead of an error; a stale UI click is harmless.
type Ledger struct {
	store store.Store
	log   zerolog.Logger
	today func() civil.Date
}

// NewLedger creates a Ledger over the given store.
func NewLedger(s store.Store, log zerolog.Logger) *Ledger {
	return &Ledger{
		store: s,
		log:   log,
		today: domain.Today,
	}
}

// MutationResult reports whether an operation took effect. Reason explains a
// skipped operation; Warning carries a non-vetoing anomaly (the operation
// still completed).
type MutationResult struct {
	Applied bool   `json:"applied"`
	Reason  string `json:"reason,omitempty"`
	Warning string `json:"warning,omitempty"`
}

func skipped(reason string) MutationResult {
	return MutationResult{Applied: false, Reason: reason}
}

// InvoiceResult extends MutationResult with the settled aggregate.
type InvoiceResult struct {
	MutationResult
	Total         decimal.Decimal `json:"total"`
	Installments  int             `json:"installments"`
	TransactionID string          `json:"transaction_id,omitempty"`
}

// RecurringReport summarizes one scheduling tick.
type RecurringReport struct {
	Evaluated    int                   `json:"evaluated"`
	Fired        int                   `json:"fired"`
	Transactions []*domain.Transaction `json:"transactions,omitempty"`
}

// CreateTransactionInput is the caller-facing shape for a new purchase or
// income entry.
type CreateTransactionInput struct {
	Description       string
	Amount            decimal.Decimal
	Date              civil.Date
	InstallmentsCount int
	Kind              domain.TransactionKind
	IsIncome          bool
	AccountID         string
	CardID            string
	CategoryID        string
	// PaidAtEntry marks the whole schedule synthetically pre-paid at the
	// purchase date: cash purchases settled on the spot and imported
	// historical records.
	PaidAtEntry bool
}

// signedDelta returns the balance delta a settlement of the given amount
// applies: expenses debit, income credits.
func signedDelta(amount decimal.Decimal, isIncome bool) decimal.Decimal {
	if isIncome {
		return amount
	}
	return amount.Neg()
}

func (l *Ledger) newEvent(accountID string, kind domain.LedgerEventKind, amount decimal.Decimal, date civil.Date, refID string) domain.LedgerEvent {
	return domain.LedgerEvent{
		ID:        uuid.New().String(),
		AccountID: accountID,
		Kind:      kind,
		Amount:    amount,
		Date:      date,
		RefID:     refID,
		CreatedAt: time.Now().UTC(),
	}
}

// CreateTransaction validates the input, builds the installment schedule and
// stores the transaction. A PaidAtEntry entry also applies its balance effect
// immediately.
func (l *Ledger) CreateTransaction(ctx context.Context, in CreateTransactionInput) (*domain.Transaction, error) {
	if !in.Amount.IsPositive() {
		return nil, validationf("transaction amount must be positive, got %s", in.Amount)
	}
	if _, err := l.store.GetAccount(ctx, in.AccountID); err != nil {
		return nil, fmt.Errorf("CreateTransaction: %w", err)
	}

	isCard := in.Kind == domain.KindCard && !in.IsIncome
	closingDay := 0
	if isCard {
		if in.CardID == "" {
			return nil, validationf("card purchase requires a card")
		}
		card, err := l.store.GetCard(ctx, in.CardID)
		if err != nil {
			return nil, fmt.Errorf("CreateTransaction: %w", err)
		}
		if card.Deleted {
			return nil, validationf("card %s is deleted and cannot take new charges", in.CardID)
		}
		closingDay = card.ClosingDay
	} else {
		in.CardID = ""
	}

	installments, err := BuildInstallments(in.Date, in.Amount, in.InstallmentsCount, isCard, closingDay)
	if err != nil {
		return nil, err
	}
	if in.PaidAtEntry {
		for i := range installments {
			paidOn := in.Date
			paidAmount := installments[i].Amount
			installments[i].Paid = true
			installments[i].PaymentDate = &paidOn
			installments[i].PaidAmount = &paidAmount
		}
	}

	tx := &domain.Transaction{
		ID:                uuid.New().String(),
		Description:       in.Description,
		Amount:            in.Amount,
		Date:              in.Date,
		InstallmentsCount: in.InstallmentsCount,
		Kind:              in.Kind,
		IsIncome:          in.IsIncome,
		AccountID:         in.AccountID,
		CardID:            in.CardID,
		CategoryID:        in.CategoryID,
		Installments:      installments,
	}
	if err := l.store.CreateTransaction(ctx, tx); err != nil {
		return nil, fmt.Errorf("CreateTransaction: storing: %w", err)
	}

	if in.PaidAtEntry {
		delta := signedDelta(in.Amount, in.IsIncome)
		ev := l.newEvent(in.AccountID, domain.EventCashPurchase, delta, in.Date, tx.ID)
		if err := l.store.UpdateAccountBalance(ctx, in.AccountID, delta, ev); err != nil {
			return nil, fmt.Errorf("CreateTransaction: balance: %w", err)
		}
	}

	l.log.Info().
		Str("transaction_id", tx.ID).
		Str("kind", string(tx.Kind)).
		Int("installments", len(installments)).
		Str("amount", in.Amount.StringFixed(2)).
		Msg("Transaction created")
	return tx, nil
}

// PayInstallment marks one installment paid with the given amount. Under- and
// over-payment are permitted and recorded verbatim; the payment date is
// today. The owning account is debited (or credited, for income) by the paid
// amount.
func (l *Ledger) PayInstallment(ctx context.Context, txID string, sequence int, paidAmount decimal.Decimal) (MutationResult, error) {
	if !paidAmount.IsPositive() {
		return MutationResult{}, validationf("paid amount must be positive, got %s", paidAmount)
	}

	tx, err := l.store.GetTransaction(ctx, txID)
	if errors.Is(err, store.ErrNotFound) {
		return skipped("transaction not found"), nil
	}
	if err != nil {
		return MutationResult{}, fmt.Errorf("PayInstallment: %w", err)
	}
	inst := tx.Installment(sequence)
	if inst == nil {
		return skipped("installment not found"), nil
	}
	if inst.Paid {
		return skipped("installment already paid"), nil
	}

	result := MutationResult{Applied: true}
	if warn := l.checkSchedule(tx); warn != nil {
		result.Warning = warn.Error()
	}

	today := l.today()
	paid := domain.Round2(paidAmount)
	inst.Paid = true
	inst.PaymentDate = &today
	inst.PaidAmount = &paid
	if err := l.store.UpdateInstallment(ctx, txID, *inst); err != nil {
		return MutationResult{}, fmt.Errorf("PayInstallment: updating installment: %w", err)
	}

	delta := signedDelta(paid, tx.IsIncome)
	ev := l.newEvent(tx.AccountID, domain.EventInstallmentPayment, delta, today, txID)
	if err := l.store.UpdateAccountBalance(ctx, tx.AccountID, delta, ev); err != nil {
		return MutationResult{}, fmt.Errorf("PayInstallment: balance: %w", err)
	}

	l.log.Info().
		Str("transaction_id", txID).
		Int("sequence", sequence).
		Str("paid_amount", paid.StringFixed(2)).
		Msg("Installment paid")
	return result, nil
}

// ReverseInstallmentPayment undoes a payment: the installment returns to its
// pre-pay state and the account is credited back by the previously recorded
// paid amount.
func (l *Ledger) ReverseInstallmentPayment(ctx context.Context, txID string, sequence int) (MutationResult, error) {
	tx, err := l.store.GetTransaction(ctx, txID)
	if errors.Is(err, store.ErrNotFound) {
		return skipped("transaction not found"), nil
	}
	if err != nil {
		return MutationResult{}, fmt.Errorf("ReverseInstallmentPayment: %w", err)
	}
	inst := tx.Installment(sequence)
	if inst == nil {
		return skipped("installment not found"), nil
	}
	if !inst.Paid || inst.PaidAmount == nil {
		return skipped("installment is not paid"), nil
	}

	refund := *inst.PaidAmount
	inst.Paid = false
	inst.PaymentDate = nil
	inst.PaidAmount = nil
	if err := l.store.UpdateInstallment(ctx, txID, *inst); err != nil {
		return MutationResult{}, fmt.Errorf("ReverseInstallmentPayment: updating installment: %w", err)
	}

	delta := signedDelta(refund, tx.IsIncome).Neg()
	ev := l.newEvent(tx.AccountID, domain.EventPaymentReversal, delta, l.today(), txID)
	if err := l.store.UpdateAccountBalance(ctx, tx.AccountID, delta, ev); err != nil {
		return MutationResult{}, fmt.Errorf("ReverseInstallmentPayment: balance: %w", err)
	}

	l.log.Info().
		Str("transaction_id", txID).
		Int("sequence", sequence).
		Str("refund", refund.StringFixed(2)).
		Msg("Installment payment reversed")
	return MutationResult{Applied: true}, nil
}

// PayInvoice batch-settles every unpaid installment on the card whose invoice
// month equals monthKey, debits the card's linked account once for the
// aggregate and synthesizes a single consolidated invoice-payment transaction
// for audit and display.
func (l *Ledger) PayInvoice(ctx context.Context, cardID, monthKey string) (InvoiceResult, error) {
	card, err := l.store.GetCard(ctx, cardID)
	if errors.Is(err, store.ErrNotFound) {
		return InvoiceResult{MutationResult: skipped("card not found")}, nil
	}
	if err != nil {
		return InvoiceResult{}, fmt.Errorf("PayInvoice: %w", err)
	}

	pending, err := l.store.ListPendingInstallments(ctx, "", cardID)
	if err != nil {
		return InvoiceResult{}, fmt.Errorf("PayInvoice: listing pending: %w", err)
	}

	today := l.today()
	total := decimal.Zero
	var covers []domain.InstallmentRef
	for _, p := range pending {
		if InvoiceMonthKey(p.Installment.PostingDate, card.ClosingDay) != monthKey {
			continue
		}
		inst := p.Installment
		paidOn := today
		paidAmount := inst.Amount
		inst.Paid = true
		inst.PaymentDate = &paidOn
		inst.PaidAmount = &paidAmount
		if err := l.store.UpdateInstallment(ctx, p.TransactionID, inst); err != nil {
			return InvoiceResult{}, fmt.Errorf("PayInvoice: updating installment: %w", err)
		}
		covers = append(covers, domain.InstallmentRef{
			TransactionID:  p.TransactionID,
			SequenceNumber: inst.SequenceNumber,
			PaidAmount:     inst.Amount,
		})
		total = total.Add(inst.Amount)
	}
	if len(covers) == 0 {
		return InvoiceResult{MutationResult: skipped("no open installments on invoice " + monthKey)}, nil
	}

	paidOn := today
	paidTotal := total
	consolidated := &domain.Transaction{
		ID:                uuid.New().String(),
		Description:       fmt.Sprintf("Invoice %s — %s", card.Name, monthKey),
		Amount:            total,
		Date:              today,
		InstallmentsCount: 1,
		Kind:              domain.KindCash,
		AccountID:         card.AccountID,
		InvoiceCardID:     cardID,
		InvoiceMonthKey:   monthKey,
		InvoiceCovers:     covers,
		Installments: []domain.Installment{{
			SequenceNumber: 1,
			Amount:         total,
			PostingDate:    today,
			Paid:           true,
			PaymentDate:    &paidOn,
			PaidAmount:     &paidTotal,
		}},
	}
	if err := l.store.CreateTransaction(ctx, consolidated); err != nil {
		return InvoiceResult{}, fmt.Errorf("PayInvoice: storing consolidated transaction: %w", err)
	}

	delta := total.Neg()
	ev := l.newEvent(card.AccountID, domain.EventInvoicePayment, delta, today, consolidated.ID)
	if err := l.store.UpdateAccountBalance(ctx, card.AccountID, delta, ev); err != nil {
		return InvoiceResult{}, fmt.Errorf("PayInvoice: balance: %w", err)
	}

	l.log.Info().
		Str("card_id", cardID).
		Str("month", monthKey).
		Int("installments", len(covers)).
		Str("total", total.StringFixed(2)).
		Msg("Invoice paid")
	return InvoiceResult{
		MutationResult: MutationResult{Applied: true},
		Total:          total,
		Installments:   len(covers),
		TransactionID:  consolidated.ID,
	}, nil
}

// ReverseInvoicePayment unwinds a consolidated invoice payment: the covered
// installments return to unpaid, the linked account is credited back by the
// aggregate and the consolidated transaction is deleted. Reversal is refused
// once any covered installment has been individually touched since the
// invoice was paid, so the credit can never double-count.
func (l *Ledger) ReverseInvoicePayment(ctx context.Context, cardID, monthKey string) (InvoiceResult, error) {
	card, err := l.store.GetCard(ctx, cardID)
	if errors.Is(err, store.ErrNotFound) {
		return InvoiceResult{MutationResult: skipped("card not found")}, nil
	}
	if err != nil {
		return InvoiceResult{}, fmt.Errorf("ReverseInvoicePayment: %w", err)
	}

	txs, err := l.store.ListTransactions(ctx, card.AccountID)
	if err != nil {
		return InvoiceResult{}, fmt.Errorf("ReverseInvoicePayment: listing: %w", err)
	}
	var consolidated *domain.Transaction
	for _, tx := range txs {
		if tx.InvoiceCardID == cardID && tx.InvoiceMonthKey == monthKey {
			consolidated = tx
			break
		}
	}
	if consolidated == nil {
		return InvoiceResult{MutationResult: skipped("no invoice payment found for " + monthKey)}, nil
	}

	// Every covered installment must still carry exactly the payment this
	// invoice applied.
	type covered struct {
		ref  domain.InstallmentRef
		inst domain.Installment
	}
	var toUnwind []covered
	for _, ref := range consolidated.InvoiceCovers {
		tx, err := l.store.GetTransaction(ctx, ref.TransactionID)
		if err != nil {
			return InvoiceResult{}, validationf("invoice installments were modified; transaction %s is gone", ref.TransactionID)
		}
		inst := tx.Installment(ref.SequenceNumber)
		if inst == nil || !inst.Paid || inst.PaidAmount == nil || !inst.PaidAmount.Equal(ref.PaidAmount) {
			return InvoiceResult{}, validationf("invoice installments were modified; reverse them individually")
		}
		toUnwind = append(toUnwind, covered{ref: ref, inst: *inst})
	}

	for _, c := range toUnwind {
		inst := c.inst
		inst.Paid = false
		inst.PaymentDate = nil
		inst.PaidAmount = nil
		if err := l.store.UpdateInstallment(ctx, c.ref.TransactionID, inst); err != nil {
			return InvoiceResult{}, fmt.Errorf("ReverseInvoicePayment: updating installment: %w", err)
		}
	}
	if err := l.store.DeleteTransaction(ctx, consolidated.ID); err != nil {
		return InvoiceResult{}, fmt.Errorf("ReverseInvoicePayment: deleting consolidated transaction: %w", err)
	}

	ev := l.newEvent(card.AccountID, domain.EventInvoiceReversal, consolidated.Amount, l.today(), consolidated.ID)
	if err := l.store.UpdateAccountBalance(ctx, card.AccountID, consolidated.Amount, ev); err != nil {
		return InvoiceResult{}, fmt.Errorf("ReverseInvoicePayment: balance: %w", err)
	}

	l.log.Info().
		Str("card_id", cardID).
		Str("month", monthKey).
		Str("total", consolidated.Amount.StringFixed(2)).
		Msg("Invoice payment reversed")
	return InvoiceResult{
		MutationResult: MutationResult{Applied: true},
		Total:          consolidated.Amount,
		Installments:   len(consolidated.InvoiceCovers),
		TransactionID:  consolidated.ID,
	}, nil
}

// SettleTransaction settles all remaining unpaid installments of a termed
// transaction early, distributing paidTotal across them with the rounding
// remainder on the last one, and debits the account once.
func (l *Ledger) SettleTransaction(ctx context.Context, txID string, paidTotal decimal.Decimal) (MutationResult, error) {
	if !paidTotal.IsPositive() {
		return MutationResult{}, validationf("settlement total must be positive, got %s", paidTotal)
	}

	tx, err := l.store.GetTransaction(ctx, txID)
	if errors.Is(err, store.ErrNotFound) {
		return skipped("transaction not found"), nil
	}
	if err != nil {
		return MutationResult{}, fmt.Errorf("SettleTransaction: %w", err)
	}
	if tx.Kind == domain.KindCard {
		return MutationResult{}, validationf("card transactions settle through their invoice, not directly")
	}

	var remaining []*domain.Installment
	for i := range tx.Installments {
		if !tx.Installments[i].Paid {
			remaining = append(remaining, &tx.Installments[i])
		}
	}
	if len(remaining) == 0 {
		return skipped("transaction is already settled"), nil
	}

	today := l.today()
	parts := domain.SplitAmount(domain.Round2(paidTotal), len(remaining))
	for i, inst := range remaining {
		paidOn := today
		part := parts[i]
		inst.Paid = true
		inst.PaymentDate = &paidOn
		inst.PaidAmount = &part
		if err := l.store.UpdateInstallment(ctx, txID, *inst); err != nil {
			return MutationResult{}, fmt.Errorf("SettleTransaction: updating installment: %w", err)
		}
	}

	delta := signedDelta(domain.Round2(paidTotal), tx.IsIncome)
	ev := l.newEvent(tx.AccountID, domain.EventSettlement, delta, today, txID)
	if err := l.store.UpdateAccountBalance(ctx, tx.AccountID, delta, ev); err != nil {
		return MutationResult{}, fmt.Errorf("SettleTransaction: balance: %w", err)
	}

	l.log.Info().
		Str("transaction_id", txID).
		Int("installments", len(remaining)).
		Str("paid_total", paidTotal.StringFixed(2)).
		Msg("Transaction settled early")
	return MutationResult{Applied: true}, nil
}

// Transfer moves an amount between two accounts atomically with respect to
// the balance invariant: one debit and one credit sharing a transfer id.
func (l *Ledger) Transfer(ctx context.Context, fromID, toID string, amount decimal.Decimal, date civil.Date) (MutationResult, error) {
	if fromID == toID {
		return MutationResult{}, validationf("cannot transfer between an account and itself")
	}
	if !amount.IsPositive() {
		return MutationResult{}, validationf("transfer amount must be positive, got %s", amount)
	}
	if _, err := l.store.GetAccount(ctx, fromID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return skipped("source account not found"), nil
		}
		return MutationResult{}, fmt.Errorf("Transfer: %w", err)
	}
	if _, err := l.store.GetAccount(ctx, toID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return skipped("destination account not found"), nil
		}
		return MutationResult{}, fmt.Errorf("Transfer: %w", err)
	}

	amount = domain.Round2(amount)
	transferID := uuid.New().String()
	out := l.newEvent(fromID, domain.EventTransferOut, amount.Neg(), date, transferID)
	if err := l.store.UpdateAccountBalance(ctx, fromID, amount.Neg(), out); err != nil {
		return MutationResult{}, fmt.Errorf("Transfer: debit: %w", err)
	}
	in := l.newEvent(toID, domain.EventTransferIn, amount, date, transferID)
	if err := l.store.UpdateAccountBalance(ctx, toID, amount, in); err != nil {
		return MutationResult{}, fmt.Errorf("Transfer: credit: %w", err)
	}

	l.log.Info().
		Str("from", fromID).
		Str("to", toID).
		Str("amount", amount.StringFixed(2)).
		Msg("Transfer applied")
	return MutationResult{Applied: true}, nil
}

// RunRecurring evaluates every recurring template against today, each
// advancing at most one period. Income materialized by a template is
// auto-settled and credited to its account.
func (l *Ledger) RunRecurring(ctx context.Context, today civil.Date) (RecurringReport, error) {
	items, err := l.store.ListRecurringItems(ctx)
	if err != nil {
		return RecurringReport{}, fmt.Errorf("RunRecurring: listing items: %w", err)
	}

	report := RecurringReport{Evaluated: len(items)}
	for _, item := range items {
		closingDay := 0
		if item.Kind == domain.KindCard && !item.IsIncome && item.CardID != "" {
			card, err := l.store.GetCard(ctx, item.CardID)
			switch {
			case errors.Is(err, store.ErrNotFound) || (err == nil && card.Deleted):
				// The card is gone; materialize as a plain cash expense.
				l.log.Warn().
					Str("item_id", item.ID).
					Str("card_id", item.CardID).
					Msg("Recurring card no longer usable, falling back to cash")
				item.Kind = domain.KindCash
				item.CardID = ""
			case err != nil:
				return report, fmt.Errorf("RunRecurring: %w", err)
			default:
				closingDay = card.ClosingDay
			}
		}

		outcome, err := RunRecurringItem(*item, today, closingDay)
		if err != nil {
			return report, fmt.Errorf("RunRecurring: item %s: %w", item.ID, err)
		}
		if !outcome.Fired {
			continue
		}

		if err := l.store.CreateTransaction(ctx, outcome.Transaction); err != nil {
			return report, fmt.Errorf("RunRecurring: storing transaction: %w", err)
		}
		if outcome.Transaction.IsIncome {
			ev := l.newEvent(item.AccountID, domain.EventRecurringIncome, item.Amount, outcome.Transaction.Date, outcome.Transaction.ID)
			if err := l.store.UpdateAccountBalance(ctx, item.AccountID, item.Amount, ev); err != nil {
				return report, fmt.Errorf("RunRecurring: balance: %w", err)
			}
		}
		updated := outcome.Item
		if err := l.store.UpdateRecurringItem(ctx, &updated); err != nil {
			return report, fmt.Errorf("RunRecurring: updating item: %w", err)
		}

		report.Fired++
		report.Transactions = append(report.Transactions, outcome.Transaction)
		l.log.Info().
			Str("item_id", item.ID).
			Str("transaction_id", outcome.Transaction.ID).
			Str("next_run", updated.NextRun.String()).
			Msg("Recurring item fired")
	}
	return report, nil
}

// Project builds the month-by-month balance forecast over all accounts.
func (l *Ledger) Project(ctx context.Context, horizonMonths int) ([]ProjectionPoint, error) {
	if horizonMonths < 0 {
		return nil, validationf("projection horizon must not be negative, got %d", horizonMonths)
	}
	accounts, err := l.store.ListAccounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("Project: listing accounts: %w", err)
	}
	current := decimal.Zero
	for _, acc := range accounts {
		current = current.Add(acc.Balance)
	}

	items, err := l.store.ListRecurringItems(ctx)
	if err != nil {
		return nil, fmt.Errorf("Project: listing recurring items: %w", err)
	}
	pending, err := l.store.ListPendingInstallments(ctx, "", "")
	if err != nil {
		return nil, fmt.Errorf("Project: listing pending installments: %w", err)
	}
	cards, err := l.store.ListCards(ctx, true)
	if err != nil {
		return nil, fmt.Errorf("Project: listing cards: %w", err)
	}
	cardsByID := make(map[string]*domain.Card, len(cards))
	for _, card := range cards {
		cardsByID[card.ID] = card
	}

	return ProjectBalances(current, l.today(), items, pending, cardsByID, horizonMonths), nil
}

// InvoiceView lists the open installments on one card invoice together with
// the aggregate and the date the invoice falls due.
type InvoiceView struct {
	CardID   string                       `json:"card_id"`
	MonthKey string                       `json:"month"`
	DueDate  civil.Date                   `json:"due_date"`
	Total    decimal.Decimal              `json:"total"`
	Items    []*domain.PendingInstallment `json:"items"`
}

// Invoice assembles the open invoice for a card and month bucket.
func (l *Ledger) Invoice(ctx context.Context, cardID, monthKey string) (*InvoiceView, error) {
	card, err := l.store.GetCard(ctx, cardID)
	if err != nil {
		return nil, fmt.Errorf("Invoice: %w", err)
	}
	pending, err := l.store.ListPendingInstallments(ctx, "", cardID)
	if err != nil {
		return nil, fmt.Errorf("Invoice: listing pending: %w", err)
	}

	view := &InvoiceView{CardID: cardID, MonthKey: monthKey, Total: decimal.Zero}
	for _, p := range pending {
		if InvoiceMonthKey(p.Installment.PostingDate, card.ClosingDay) != monthKey {
			continue
		}
		view.Items = append(view.Items, p)
		view.Total = view.Total.Add(p.Installment.Amount)
		view.DueDate = InvoiceDueDate(p.Installment.PostingDate, card.ClosingDay, card.DueDay)
	}
	return view, nil
}

// checkSchedule reports an InconsistentStateError when a transaction's
// installments no longer sum to its amount. The anomaly is logged and handed
// back; it never vetoes the operation.
func (l *Ledger) checkSchedule(tx *domain.Transaction) error {
	sum := decimal.Zero
	for _, inst := range tx.Installments {
		sum = sum.Add(inst.Amount)
	}
	if sum.Equal(tx.Amount) {
		return nil
	}
	err := &InconsistentStateError{
		Msg: fmt.Sprintf("transaction %s installments sum to %s, amount is %s", tx.ID, sum, tx.Amount),
	}
	l.log.Warn().Str("transaction_id", tx.ID).Msg(err.Error())
	return err
}

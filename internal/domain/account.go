package domain

import (
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

// Account holds a running balance. The balance is never mutated directly:
// every change is applied together with a LedgerEvent so the balance stays
// reconcilable against the event history.
type Account struct {
	ID             string          `json:"id"`
	Name           string          `json:"name"`
	Balance        decimal.Decimal `json:"balance"`
	OpeningBalance decimal.Decimal `json:"opening_balance"`
	IsDefault      bool            `json:"is_default"`
}

// LedgerEventKind classifies a balance-affecting event.
type LedgerEventKind string

const (
	EventInstallmentPayment LedgerEventKind = "installment_payment"
	EventPaymentReversal    LedgerEventKind = "payment_reversal"
	EventInvoicePayment     LedgerEventKind = "invoice_payment"
	EventInvoiceReversal    LedgerEventKind = "invoice_reversal"
	EventSettlement         LedgerEventKind = "settlement"
	EventTransferOut        LedgerEventKind = "transfer_out"
	EventTransferIn         LedgerEventKind = "transfer_in"
	EventRecurringIncome    LedgerEventKind = "recurring_income"
	EventCashPurchase       LedgerEventKind = "cash_purchase"
)

// LedgerEvent is the audit record for a single signed balance change on one
// account. Amount carries the sign actually applied to the balance.
type LedgerEvent struct {
	ID        string          `json:"id"`
	AccountID string          `json:"account_id"`
	Kind      LedgerEventKind `json:"kind"`
	Amount    decimal.Decimal `json:"amount"` // signed delta applied
	Date      civil.Date      `json:"date"`
	RefID     string          `json:"ref_id,omitempty"` // transaction or transfer id
	CreatedAt time.Time       `json:"created_at"`
}

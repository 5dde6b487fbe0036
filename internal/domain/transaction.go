package domain

import (
	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

// TransactionKind distinguishes how a purchase is settled.
type TransactionKind string

const (
	// KindCash is a purchase settled directly from the account.
	KindCash TransactionKind = "cash"
	// KindCard is a purchase charged to a credit card and settled through a
	// monthly invoice.
	KindCard TransactionKind = "card"
	// KindTermed is a purchase split into dated installments paid directly
	// from the account, with no card involved.
	KindTermed TransactionKind = "termed"
)

// Installment is one dated, amount-bearing slice of a transaction. Its shape
// (sequence, amount, posting date) is fixed at build time; only the payment
// fields mutate afterward.
type Installment struct {
	SequenceNumber int              `json:"sequence_number"` // 1-based
	Amount         decimal.Decimal  `json:"amount"`
	PostingDate    civil.Date       `json:"posting_date"`
	Paid           bool             `json:"paid"`
	PaymentDate    *civil.Date      `json:"payment_date,omitempty"`
	PaidAmount     *decimal.Decimal `json:"paid_amount,omitempty"`
}

// InstallmentRef identifies one installment of a transaction together with the
// amount a batch operation settled it for. Consolidated invoice payments carry
// these so a reversal can verify the underlying installments are untouched.
type InstallmentRef struct {
	TransactionID  string          `json:"transaction_id"`
	SequenceNumber int             `json:"sequence_number"`
	PaidAmount     decimal.Decimal `json:"paid_amount"`
}

// Transaction is a purchase or income entry owned by exactly one account.
type Transaction struct {
	ID                string          `json:"id"`
	Description       string          `json:"description"`
	Amount            decimal.Decimal `json:"amount"` // always positive
	Date              civil.Date      `json:"date"`   // purchase date
	InstallmentsCount int             `json:"installments_count"`
	Kind              TransactionKind `json:"kind"`
	IsIncome          bool            `json:"is_income"`
	AccountID         string          `json:"account_id"`
	CardID            string          `json:"card_id,omitempty"` // only kind=card expenses
	CategoryID        string          `json:"category_id,omitempty"`
	Installments      []Installment   `json:"installments"`

	// Set only on the consolidated transaction synthesized by an invoice
	// payment; empty on ordinary transactions.
	InvoiceCardID   string           `json:"invoice_card_id,omitempty"`
	InvoiceMonthKey string           `json:"invoice_month_key,omitempty"`
	InvoiceCovers   []InstallmentRef `json:"invoice_covers,omitempty"`
}

// Paid reports whether every installment of the transaction has been settled.
func (t *Transaction) Paid() bool {
	for i := range t.Installments {
		if !t.Installments[i].Paid {
			return false
		}
	}
	return len(t.Installments) > 0
}

// IsInvoicePayment reports whether this is a consolidated invoice-payment
// transaction rather than an ordinary purchase.
func (t *Transaction) IsInvoicePayment() bool {
	return t.InvoiceCardID != "" && t.InvoiceMonthKey != ""
}

// Installment returns the installment with the given sequence number, or nil.
func (t *Transaction) Installment(seq int) *Installment {
	for i := range t.Installments {
		if t.Installments[i].SequenceNumber == seq {
			return &t.Installments[i]
		}
	}
	return nil
}

// PendingInstallment is a read-model row joining an unpaid installment with
// the transaction fields the engine needs to bucket and project it.
type PendingInstallment struct {
	TransactionID string          `json:"transaction_id"`
	Description   string          `json:"description"`
	AccountID     string          `json:"account_id"`
	CardID        string          `json:"card_id,omitempty"`
	Kind          TransactionKind `json:"kind"`
	IsIncome      bool            `json:"is_income"`
	Installment   Installment     `json:"installment"`
}

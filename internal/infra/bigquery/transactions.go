package bigquery

import (
	"encoding/json"
	"fmt"
	"math/big"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"

	"github.com/carteira-app/carteira/internal/domain"
)

type TransactionRow struct {
	TransactionID string `bigquery:"transaction_id"` // REQUIRED

	Description string     `bigquery:"description"`      // NULLABLE
	Amount      *big.Rat   `bigquery:"amount"`           // REQUIRED NUMERIC
	Date        civil.Date `bigquery:"transaction_date"` // REQUIRED DATE

	Kind              string `bigquery:"kind"`               // REQUIRED
	IsIncome          bool   `bigquery:"is_income"`          // REQUIRED
	InstallmentsCount int64  `bigquery:"installments_count"` // REQUIRED

	AccountID  string              `bigquery:"account_id"`  // REQUIRED
	CardID     bigquery.NullString `bigquery:"card_id"`     // NULLABLE
	CategoryID bigquery.NullString `bigquery:"category_id"` // NULLABLE

	InvoiceCardID   bigquery.NullString `bigquery:"invoice_card_id"`   // NULLABLE
	InvoiceMonthKey bigquery.NullString `bigquery:"invoice_month_key"` // NULLABLE
	InvoiceCovers   bigquery.NullString `bigquery:"invoice_covers"`    // JSON text, NULLABLE

	UpdatedTS bigquery.NullTimestamp `bigquery:"updated_ts"` // TIMESTAMP, NULLABLE
}

type InstallmentRow struct {
	TransactionID  string `bigquery:"transaction_id"`  // REQUIRED
	SequenceNumber int64  `bigquery:"sequence_number"` // REQUIRED, 1-based

	Amount      *big.Rat   `bigquery:"amount"`       // REQUIRED NUMERIC
	PostingDate civil.Date `bigquery:"posting_date"` // REQUIRED DATE

	Paid        bool              `bigquery:"paid"`         // REQUIRED
	PaymentDate bigquery.NullDate `bigquery:"payment_date"` // DATE, NULLABLE
	PaidAmount  *big.Rat          `bigquery:"paid_amount"`  // NUMERIC, NULLABLE
}

func nullString(s string) bigquery.NullString {
	return bigquery.NullString{StringVal: s, Valid: s != ""}
}

// TransactionRowFrom converts a domain transaction into its mirror row plus
// one installment row per schedule entry.
func TransactionRowFrom(tx *domain.Transaction) (*TransactionRow, []*InstallmentRow, error) {
	covers := bigquery.NullString{Valid: false}
	if len(tx.InvoiceCovers) > 0 {
		raw, err := json.Marshal(tx.InvoiceCovers)
		if err != nil {
			return nil, nil, fmt.Errorf("TransactionRowFrom: encoding invoice covers: %w", err)
		}
		covers = bigquery.NullString{StringVal: string(raw), Valid: true}
	}

	row := &TransactionRow{
		TransactionID:     tx.ID,
		Description:       tx.Description,
		Amount:            ratFromDecimal(tx.Amount),
		Date:              tx.Date,
		Kind:              string(tx.Kind),
		IsIncome:          tx.IsIncome,
		InstallmentsCount: int64(tx.InstallmentsCount),
		AccountID:         tx.AccountID,
		CardID:            nullString(tx.CardID),
		CategoryID:        nullString(tx.CategoryID),
		InvoiceCardID:     nullString(tx.InvoiceCardID),
		InvoiceMonthKey:   nullString(tx.InvoiceMonthKey),
		InvoiceCovers:     covers,
		UpdatedTS:         bigquery.NullTimestamp{Timestamp: time.Now(), Valid: true},
	}

	installments := make([]*InstallmentRow, 0, len(tx.Installments))
	for _, inst := range tx.Installments {
		ir := &InstallmentRow{
			TransactionID:  tx.ID,
			SequenceNumber: int64(inst.SequenceNumber),
			Amount:         ratFromDecimal(inst.Amount),
			PostingDate:    inst.PostingDate,
			Paid:           inst.Paid,
		}
		if inst.PaymentDate != nil {
			ir.PaymentDate = bigquery.NullDate{Date: *inst.PaymentDate, Valid: true}
		}
		if inst.PaidAmount != nil {
			ir.PaidAmount = ratFromDecimal(*inst.PaidAmount)
		}
		installments = append(installments, ir)
	}

	return row, installments, nil
}

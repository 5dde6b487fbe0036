package engine

import (
	"time"

	"cloud.google.com/go/civil"

	"github.com/carteira-app/carteira/internal/domain"
)

// invoiceMonth returns the year/month of the invoice a posting belongs to:
// postings after the closing day roll into the following month's statement.
func invoiceMonth(postingDate civil.Date, closingDay int) (int, time.Month) {
	d := postingDate
	if d.Day > closingDay {
		d = domain.AddMonthsClamped(civil.Date{Year: d.Year, Month: d.Month, Day: 1}, 1)
	}
	return d.Year, d.Month
}

// InvoiceMonthKey maps an installment posting date to the "YYYY-MM" bucket of
// the card invoice it belongs to.
func InvoiceMonthKey(postingDate civil.Date, closingDay int) string {
	year, month := invoiceMonth(postingDate, closingDay)
	return domain.MonthKeyOf(year, month)
}

// InvoiceDueDate returns the calendar date the invoice covering postingDate
// becomes payable. Statements that close late in one month and fall due early
// in the next (dueDay < closingDay) push the due date one further month.
// The due day is clamped to the target month's last valid day.
func InvoiceDueDate(postingDate civil.Date, closingDay, dueDay int) civil.Date {
	year, month := invoiceMonth(postingDate, closingDay)
	due := domain.ClampDay(year, month, dueDay)
	if dueDay < closingDay {
		due = domain.AddMonthsClamped(civil.Date{Year: year, Month: month, Day: dueDay}, 1)
	}
	return due
}

// DueDate returns the date a pending installment actually hits the account:
// the invoice due date for card items, the posting date otherwise.
func DueDate(p *domain.PendingInstallment, card *domain.Card) civil.Date {
	if p.CardID != "" && card != nil {
		return InvoiceDueDate(p.Installment.PostingDate, card.ClosingDay, card.DueDay)
	}
	return p.Installment.PostingDate
}

package domain

import (
	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

// RecurringItem is a template that materializes one transaction per month.
// The cadence is driven entirely by NextRun; Day is the informational
// day-of-month the user picked when creating the item.
//
// NextRun is monotonically non-decreasing across runs: each firing advances it
// by exactly one calendar month (clamped to the target month's last day) from
// its previous value, so repeated evaluation with the same reference date is a
// no-op after the first run.
type RecurringItem struct {
	ID          string          `json:"id"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
	Kind        TransactionKind `json:"kind"`
	IsIncome    bool            `json:"is_income"`
	AccountID   string          `json:"account_id"`
	CardID      string          `json:"card_id,omitempty"`
	CategoryID  string          `json:"category_id,omitempty"`
	Day         int             `json:"day"`
	Enabled     bool            `json:"enabled"`
	LastRun     *civil.Date     `json:"last_run,omitempty"`
	NextRun     civil.Date      `json:"next_run"`
}

// Due reports whether the item should fire when evaluated at the given date.
func (r *RecurringItem) Due(today civil.Date) bool {
	return r.Enabled && !r.NextRun.After(today)
}

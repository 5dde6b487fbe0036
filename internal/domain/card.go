package domain

import "github.com/shopspring/decimal"

// Card is a credit card whose charges roll into a monthly invoice. Closing
// and due day are plain days-of-month in [1,31]; when a month is shorter they
// are clamped to its last day at the point of use.
//
// A deleted card keeps its historical installments but cannot be selected for
// new charges.
type Card struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	ClosingDay int             `json:"closing_day"`
	DueDay     int             `json:"due_day"`
	Limit      decimal.Decimal `json:"limit"`
	AccountID  string          `json:"account_id"` // account invoices settle against
	IsDefault  bool            `json:"is_default"`
	Deleted    bool            `json:"deleted"`
}

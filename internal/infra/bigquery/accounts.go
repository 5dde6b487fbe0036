package bigquery

import (
	"math/big"
	"time"

	"cloud.google.com/go/bigquery"

	"github.com/carteira-app/carteira/internal/domain"
)

type AccountRow struct {
	AccountID string `bigquery:"account_id"` // REQUIRED

	AccountName string `bigquery:"account_name"` // NULLABLE

	Balance        *big.Rat `bigquery:"balance"`         // REQUIRED NUMERIC
	OpeningBalance *big.Rat `bigquery:"opening_balance"` // REQUIRED NUMERIC

	IsDefault bigquery.NullBool      `bigquery:"is_default"` // BOOLEAN, NULLABLE
	UpdatedTS bigquery.NullTimestamp `bigquery:"updated_ts"` // TIMESTAMP, NULLABLE
}

// AccountRowFrom converts a domain account into its mirror row.
func AccountRowFrom(a *domain.Account) *AccountRow {
	return &AccountRow{
		AccountID:      a.ID,
		AccountName:    a.Name,
		Balance:        ratFromDecimal(a.Balance),
		OpeningBalance: ratFromDecimal(a.OpeningBalance),
		IsDefault:      bigquery.NullBool{Bool: a.IsDefault, Valid: true},
		UpdatedTS:      bigquery.NullTimestamp{Timestamp: time.Now(), Valid: true},
	}
}

// Account converts the row back into the domain type.
func (r *AccountRow) Account() *domain.Account {
	return &domain.Account{
		ID:             r.AccountID,
		Name:           r.AccountName,
		Balance:        decimalFromRat(r.Balance),
		OpeningBalance: decimalFromRat(r.OpeningBalance),
		IsDefault:      r.IsDefault.Bool,
	}
}

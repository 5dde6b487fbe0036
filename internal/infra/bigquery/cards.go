package bigquery

import (
	"math/big"
	"time"

	"cloud.google.com/go/bigquery"

	"github.com/carteira-app/carteira/internal/domain"
)

type CardRow struct {
	CardID string `bigquery:"card_id"` // REQUIRED

	CardName  string `bigquery:"card_name"`  // NULLABLE
	AccountID string `bigquery:"account_id"` // REQUIRED

	ClosingDay int64 `bigquery:"closing_day"` // REQUIRED
	DueDay     int64 `bigquery:"due_day"`     // REQUIRED

	CreditLimit *big.Rat `bigquery:"credit_limit"` // NUMERIC, NULLABLE

	IsDefault bigquery.NullBool      `bigquery:"is_default"` // BOOLEAN, NULLABLE
	Deleted   bigquery.NullBool      `bigquery:"deleted"`    // BOOLEAN, NULLABLE
	UpdatedTS bigquery.NullTimestamp `bigquery:"updated_ts"` // TIMESTAMP, NULLABLE
}

// CardRowFrom converts a domain card into its mirror row.
func CardRowFrom(c *domain.Card) *CardRow {
	return &CardRow{
		CardID:      c.ID,
		CardName:    c.Name,
		AccountID:   c.AccountID,
		ClosingDay:  int64(c.ClosingDay),
		DueDay:      int64(c.DueDay),
		CreditLimit: ratFromDecimal(c.Limit),
		IsDefault:   bigquery.NullBool{Bool: c.IsDefault, Valid: true},
		Deleted:     bigquery.NullBool{Bool: c.Deleted, Valid: true},
		UpdatedTS:   bigquery.NullTimestamp{Timestamp: time.Now(), Valid: true},
	}
}

// Card converts the row back into the domain type.
func (r *CardRow) Card() *domain.Card {
	return &domain.Card{
		ID:         r.CardID,
		Name:       r.CardName,
		AccountID:  r.AccountID,
		ClosingDay: int(r.ClosingDay),
		DueDay:     int(r.DueDay),
		Limit:      decimalFromRat(r.CreditLimit),
		IsDefault:  r.IsDefault.Bool,
		Deleted:    r.Deleted.Bool,
	}
}

package engine

import (
	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"github.com/carteira-app/carteira/internal/domain"
)

// BuildInstallments splits a purchase into its dated installment schedule.
//
// Each installment except the last carries round2(total/count); the last one
// absorbs the rounding remainder so the schedule sums back to total exactly.
//
// Posting dates advance monthly from the purchase date, clamped to the last
// valid day of each target month. For card purchases made after the card's
// closing day the whole schedule shifts one month forward: the purchase
// missed the current cycle's closing, so the first installment already posts
// in the following month.
//
// The builder is pure and never marks anything paid; callers settling a cash
// purchase at entry time (or importing historical data) pre-pay the returned
// installments themselves.
func BuildInstallments(purchaseDate civil.Date, total decimal.Decimal, count int, isCard bool, closingDay int) ([]domain.Installment, error) {
	if !total.IsPositive() {
		return nil, validationf("installment total must be positive, got %s", total)
	}
	if count < 1 {
		return nil, validationf("installment count must be at least 1, got %d", count)
	}
	if isCard && (closingDay < 1 || closingDay > 31) {
		return nil, validationf("closing day must be within [1,31], got %d", closingDay)
	}

	startOffset := 0
	if isCard && purchaseDate.Day > closingDay {
		startOffset = 1
	}

	amounts := domain.SplitAmount(total, count)
	installments := make([]domain.Installment, count)
	for i := 0; i < count; i++ {
		installments[i] = domain.Installment{
			SequenceNumber: i + 1,
			Amount:         amounts[i],
			PostingDate:    domain.AddMonthsClamped(purchaseDate, startOffset+i),
		}
	}
	return installments, nil
}

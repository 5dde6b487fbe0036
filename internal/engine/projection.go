package engine

import (
	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"github.com/carteira-app/carteira/internal/domain"
)

// ProjectionPoint is one month of the balance forecast.
type ProjectionPoint struct {
	MonthKey         string          `json:"month"`
	ProjectedBalance decimal.Decimal `json:"projected_balance"`
}

// ProjectBalances forecasts the total balance month by month.
//
// Month 0 is always the current balance, unmodified. Each later month adds
// the net signed amount of every enabled recurring item — the projection is a
// coarse monthly net, treating each item as firing once per covered month
// regardless of its precise day — and subtracts every pending non-income
// installment whose due date lands in that month (invoice due date for card
// items, posting date otherwise). The running balance compounds and is
// rounded to cents at every step.
//
// cards maps card id to card so due dates can follow each card's cycle;
// missing entries fall back to the installment's posting date.
func ProjectBalances(current decimal.Decimal, start civil.Date, items []*domain.RecurringItem, pending []*domain.PendingInstallment, cards map[string]*domain.Card, horizonMonths int) []ProjectionPoint {
	out := make([]ProjectionPoint, 0, horizonMonths+1)
	out = append(out, ProjectionPoint{
		MonthKey:         domain.MonthKey(start),
		ProjectedBalance: domain.Round2(current),
	})

	monthlyNet := decimal.Zero
	for _, item := range items {
		if !item.Enabled {
			continue
		}
		if item.IsIncome {
			monthlyNet = monthlyNet.Add(item.Amount)
		} else {
			monthlyNet = monthlyNet.Sub(item.Amount)
		}
	}

	// Bucket pending expense installments by the month their due date falls
	// in, so each horizon step is a map lookup.
	dueByMonth := make(map[string]decimal.Decimal)
	for _, p := range pending {
		if p.IsIncome {
			continue
		}
		due := DueDate(p, cards[p.CardID])
		key := domain.MonthKey(due)
		dueByMonth[key] = dueByMonth[key].Add(p.Installment.Amount)
	}

	balance := domain.Round2(current)
	for k := 1; k <= horizonMonths; k++ {
		month := domain.AddMonthsClamped(civil.Date{Year: start.Year, Month: start.Month, Day: 1}, k)
		key := domain.MonthKey(month)
		balance = domain.Round2(balance.Add(monthlyNet).Sub(dueByMonth[key]))
		out = append(out, ProjectionPoint{MonthKey: key, ProjectedBalance: balance})
	}
	return out
}

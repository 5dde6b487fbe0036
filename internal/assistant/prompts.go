package assistant

import (
	"context"
	"fmt"
	"strings"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"github.com/carteira-app/carteira/internal/domain"
	"github.com/carteira-app/carteira/internal/engine"
	"github.com/carteira-app/carteira/internal/store"
)

const systemPrompt = "You are a personal finance assistant. Answer questions about the " +
	"user's accounts, cards, installment purchases and upcoming bills using ONLY the " +
	"ledger snapshot below. Amounts are in the user's home currency. If the snapshot " +
	"does not contain the answer, say so plainly instead of guessing. Keep answers " +
	"short and concrete.\n"

// buildLedgerPrompt renders the current ledger state as a plain-text snapshot
// the model can reason over.
func buildLedgerPrompt(ctx context.Context, st store.Store, today civil.Date, horizonMonths int) (string, error) {
	accounts, err := st.ListAccounts(ctx)
	if err != nil {
		return "", fmt.Errorf("buildLedgerPrompt: listing accounts: %w", err)
	}
	cards, err := st.ListCards(ctx, false)
	if err != nil {
		return "", fmt.Errorf("buildLedgerPrompt: listing cards: %w", err)
	}
	pending, err := st.ListPendingInstallments(ctx, "", "")
	if err != nil {
		return "", fmt.Errorf("buildLedgerPrompt: listing pending installments: %w", err)
	}
	items, err := st.ListRecurringItems(ctx)
	if err != nil {
		return "", fmt.Errorf("buildLedgerPrompt: listing recurring items: %w", err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Today: %s\n\n", today)

	total := decimal.Zero
	b.WriteString("Accounts:\n")
	for _, acc := range accounts {
		fmt.Fprintf(&b, "- %s: balance %s\n", acc.Name, acc.Balance.StringFixed(2))
		total = total.Add(acc.Balance)
	}
	fmt.Fprintf(&b, "Total balance: %s\n\n", total.StringFixed(2))

	cardsByID := make(map[string]*domain.Card, len(cards))
	if len(cards) > 0 {
		b.WriteString("Cards:\n")
		for _, c := range cards {
			cardsByID[c.ID] = c
			fmt.Fprintf(&b, "- %s: closes day %d, due day %d, limit %s\n",
				c.Name, c.ClosingDay, c.DueDay, c.Limit.StringFixed(2))
		}
		b.WriteString("\n")
	}

	if len(pending) > 0 {
		b.WriteString("Pending installments (description, sequence, amount, due):\n")
		for _, p := range pending {
			due := engine.DueDate(p, cardsByID[p.CardID])
			fmt.Fprintf(&b, "- %s #%d: %s due %s\n",
				p.Description, p.Installment.SequenceNumber,
				p.Installment.Amount.StringFixed(2), due)
		}
		b.WriteString("\n")
	}

	if len(items) > 0 {
		b.WriteString("Recurring items (monthly):\n")
		for _, item := range items {
			if !item.Enabled {
				continue
			}
			sign := "expense"
			if item.IsIncome {
				sign = "income"
			}
			fmt.Fprintf(&b, "- %s: %s %s on day %d\n",
				item.Description, sign, item.Amount.StringFixed(2), item.Day)
		}
		b.WriteString("\n")
	}

	if horizonMonths > 0 {
		points := engine.ProjectBalances(total, today, items, pending, cardsByID, horizonMonths)
		b.WriteString("Projected total balance:\n")
		for _, pt := range points {
			fmt.Fprintf(&b, "- %s: %s\n", pt.MonthKey, pt.ProjectedBalance.StringFixed(2))
		}
		b.WriteString("\n")
	}

	return b.String(), nil
}

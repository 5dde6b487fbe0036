package domain

import "github.com/shopspring/decimal"

// Amounts are two-decimal currency values. Every value that leaves the engine
// is rounded with Round2; intermediate division may carry more precision and
// reconciliation always pushes the remainder onto the last installment.

// Round2 rounds to cents, half away from zero.
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// SplitAmount divides a total into count parts: the first count-1 parts are
// round2(total/count) and the last part absorbs the rounding remainder, so the
// parts always sum back to total exactly.
func SplitAmount(total decimal.Decimal, count int) []decimal.Decimal {
	per := Round2(total.Div(decimal.NewFromInt(int64(count))))
	parts := make([]decimal.Decimal, count)
	sum := decimal.Zero
	for i := 0; i < count-1; i++ {
		parts[i] = per
		sum = sum.Add(per)
	}
	parts[count-1] = total.Sub(sum)
	return parts
}

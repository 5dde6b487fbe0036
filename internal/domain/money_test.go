package domain

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestSplitAmount(t *testing.T) {
	tests := []struct {
		name  string
		total string
		count int
		want  []string
	}{
		{"even split", "90.00", 3, []string{"30", "30", "30"}},
		{"remainder on last", "100.00", 3, []string{"33.33", "33.33", "33.34"}},
		{"rounding down leaves larger last", "100.01", 3, []string{"33.34", "33.34", "33.33"}},
		{"single part", "55.55", 1, []string{"55.55"}},
		{"cent total", "0.01", 2, []string{"0.01", "0"}},
		{"ten cents by three", "0.10", 3, []string{"0.03", "0.03", "0.04"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			total := decimal.RequireFromString(tt.total)
			parts := SplitAmount(total, tt.count)
			if len(parts) != tt.count {
				t.Fatalf("got %d parts, want %d", len(parts), tt.count)
			}
			sum := decimal.Zero
			for i, p := range parts {
				want := decimal.RequireFromString(tt.want[i])
				if !p.Equal(want) {
					t.Errorf("part %d = %s, want %s", i, p, want)
				}
				sum = sum.Add(p)
			}
			if !sum.Equal(total) {
				t.Errorf("parts sum to %s, want %s", sum, total)
			}
		})
	}
}

func TestSplitAmountAlwaysReconciles(t *testing.T) {
	// Exactness must hold for any cent total and any count.
	for cents := int64(1); cents <= 500; cents += 7 {
		total := decimal.New(cents, -2)
		for count := 1; count <= 12; count++ {
			parts := SplitAmount(total, count)
			sum := decimal.Zero
			for _, p := range parts {
				sum = sum.Add(p)
			}
			if !sum.Equal(total) {
				t.Fatalf("SplitAmount(%s, %d): parts sum to %s", total, count, sum)
			}
		}
	}
}

package engine

import (
	"testing"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

func date(t *testing.T, s string) civil.Date {
	t.Helper()
	d, err := civil.ParseDate(s)
	if err != nil {
		t.Fatalf("bad date %q: %v", s, err)
	}
	return d
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestBuildInstallments(t *testing.T) {
	tests := []struct {
		name         string
		purchaseDate string
		total        string
		count        int
		isCard       bool
		closingDay   int
		wantDates    []string
		wantAmounts  []string
	}{
		{
			name:         "card purchase past closing shifts whole schedule",
			purchaseDate: "2024-01-31",
			total:        "100.00",
			count:        3,
			isCard:       true,
			closingDay:   20,
			wantDates:    []string{"2024-02-29", "2024-03-31", "2024-04-30"},
			wantAmounts:  []string{"33.33", "33.33", "33.34"},
		},
		{
			name:         "card purchase on closing day stays in cycle",
			purchaseDate: "2024-01-20",
			total:        "90.00",
			count:        3,
			isCard:       true,
			closingDay:   20,
			wantDates:    []string{"2024-01-20", "2024-02-20", "2024-03-20"},
			wantAmounts:  []string{"30", "30", "30"},
		},
		{
			name:         "card purchase before closing stays in cycle",
			purchaseDate: "2024-01-05",
			total:        "50.00",
			count:        2,
			isCard:       true,
			closingDay:   20,
			wantDates:    []string{"2024-01-05", "2024-02-05"},
			wantAmounts:  []string{"25", "25"},
		},
		{
			name:         "termed purchase clamps short months",
			purchaseDate: "2024-01-31",
			total:        "100.00",
			count:        3,
			wantDates:    []string{"2024-01-31", "2024-02-29", "2024-03-31"},
			wantAmounts:  []string{"33.33", "33.33", "33.34"},
		},
		{
			name:         "single installment",
			purchaseDate: "2024-06-15",
			total:        "19.90",
			count:        1,
			wantDates:    []string{"2024-06-15"},
			wantAmounts:  []string{"19.9"},
		},
		{
			name:         "rounding up leaves smaller last installment",
			purchaseDate: "2024-03-01",
			total:        "100.01",
			count:        3,
			wantDates:    []string{"2024-03-01", "2024-04-01", "2024-05-01"},
			wantAmounts:  []string{"33.34", "33.34", "33.33"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := BuildInstallments(date(t, tt.purchaseDate), dec(tt.total), tt.count, tt.isCard, tt.closingDay)
			if err != nil {
				t.Fatalf("BuildInstallments: %v", err)
			}
			if len(got) != tt.count {
				t.Fatalf("got %d installments, want %d", len(got), tt.count)
			}
			sum := decimal.Zero
			for i, inst := range got {
				if inst.SequenceNumber != i+1 {
					t.Errorf("installment %d: sequence = %d, want %d", i, inst.SequenceNumber, i+1)
				}
				if inst.PostingDate.String() != tt.wantDates[i] {
					t.Errorf("installment %d: posting date = %s, want %s", i, inst.PostingDate, tt.wantDates[i])
				}
				if !inst.Amount.Equal(dec(tt.wantAmounts[i])) {
					t.Errorf("installment %d: amount = %s, want %s", i, inst.Amount, tt.wantAmounts[i])
				}
				if inst.Paid || inst.PaymentDate != nil || inst.PaidAmount != nil {
					t.Errorf("installment %d: created with payment state set", i)
				}
				sum = sum.Add(inst.Amount)
			}
			if !sum.Equal(dec(tt.total)) {
				t.Errorf("installments sum to %s, want %s", sum, tt.total)
			}
		})
	}
}

func TestBuildInstallmentsValidation(t *testing.T) {
	tests := []struct {
		name       string
		total      string
		count      int
		isCard     bool
		closingDay int
	}{
		{"zero amount", "0", 3, false, 0},
		{"negative amount", "-10.00", 2, false, 0},
		{"zero count", "100.00", 0, false, 0},
		{"card closing day too low", "100.00", 2, true, 0},
		{"card closing day too high", "100.00", 2, true, 32},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := BuildInstallments(date(t, "2024-01-15"), dec(tt.total), tt.count, tt.isCard, tt.closingDay)
			if err == nil {
				t.Fatal("expected validation error, got nil")
			}
			if !IsValidation(err) {
				t.Errorf("expected ValidationError, got %T: %v", err, err)
			}
		})
	}
}

func TestBuildInstallmentsDeterministic(t *testing.T) {
	d := date(t, "2024-01-31")
	a, err := BuildInstallments(d, dec("250.75"), 7, true, 15)
	if err != nil {
		t.Fatalf("BuildInstallments: %v", err)
	}
	b, err := BuildInstallments(d, dec("250.75"), 7, true, 15)
	if err != nil {
		t.Fatalf("BuildInstallments: %v", err)
	}
	for i := range a {
		if a[i].PostingDate != b[i].PostingDate || !a[i].Amount.Equal(b[i].Amount) {
			t.Fatalf("installment %d differs between identical calls", i)
		}
	}
}

func TestBuildInstallmentsSumProperty(t *testing.T) {
	for cents := int64(1); cents <= 100000; cents += 997 {
		total := decimal.New(cents, -2)
		for _, count := range []int{1, 2, 3, 6, 10, 12, 24} {
			got, err := BuildInstallments(date(t, "2024-01-15"), total, count, false, 0)
			if err != nil {
				t.Fatalf("BuildInstallments(%s, %d): %v", total, count, err)
			}
			sum := decimal.Zero
			for _, inst := range got {
				sum = sum.Add(inst.Amount)
			}
			if !sum.Equal(total) {
				t.Fatalf("BuildInstallments(%s, %d): sum = %s", total, count, sum)
			}
		}
	}
}
